package questions

import (
	"sort"

	"github.com/hushhour/backend/internal/models"
)

// SortMode selects one of the three question orderings.
type SortMode string

const (
	// SortTop ranks unanswered questions above answered ones, then by vote
	// count descending, ties broken newest-first. Answered questions always
	// sink to the bottom regardless of votes.
	SortTop SortMode = "top"
	// SortLatest is strict chronological ascending, so new questions append
	// at the end of the list instead of jumping to the top.
	SortLatest SortMode = "latest"
	// SortAnswered keeps only answered questions, by vote count descending.
	SortAnswered SortMode = "answered"
)

// ParseSortMode validates a sort query parameter, defaulting to SortTop.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortTop, SortLatest, SortAnswered:
		return SortMode(s), nil
	case "":
		return SortTop, nil
	}
	return "", models.ErrValidation
}

// Order returns a new slice of questions in the order dictated by mode.
// This is the single home of the ordering policy: every list the server or
// the sync client renders goes through here, so tie-breaks cannot drift
// between call sites. The input slice is not modified.
func Order(mode SortMode, qs []models.Question) []models.Question {
	out := make([]models.Question, 0, len(qs))
	if mode == SortAnswered {
		for _, q := range qs {
			if q.Answered {
				out = append(out, q)
			}
		}
	} else {
		out = append(out, qs...)
	}

	switch mode {
	case SortLatest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortAnswered:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Votes != out[j].Votes {
				return out[i].Votes > out[j].Votes
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default: // SortTop
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Answered != out[j].Answered {
				return !out[i].Answered
			}
			if out[i].Votes != out[j].Votes {
				return out[i].Votes > out[j].Votes
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}
