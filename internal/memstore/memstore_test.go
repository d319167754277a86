package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hushhour/backend/internal/models"
)

func newRoom(status models.RoomStatus) *models.Room {
	now := time.Now().UTC()
	return &models.Room{
		ID:             uuid.New(),
		Code:           "ABC" + uuid.NewString()[:3],
		Title:          "Town hall",
		Status:         status,
		OrganizerToken: uuid.NewString(),
		StartsAt:       now,
		ExpiresAt:      now.Add(6 * time.Hour),
		CreatedAt:      now,
	}
}

func seedQuestion(t *testing.T, s *Store, roomID uuid.UUID) *models.Question {
	t.Helper()
	q := &models.Question{
		ID:        uuid.New(),
		RoomID:    roomID,
		Content:   "What is the roadmap?",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateQuestion(context.Background(), q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q
}

func TestConcurrentDuplicateVoteCountsOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusLive)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	q := seedQuestion(t, s, room.ID)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.RecordVote(ctx, room.ID, q.ID, "voter-device-0001")
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, models.ErrAlreadyVoted):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != attempts-1 {
		t.Fatalf("got %d successes and %d duplicates, want 1 and %d", successes, duplicates, attempts-1)
	}

	got, err := s.GetQuestion(ctx, room.ID, q.ID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.Votes != 1 {
		t.Errorf("votes = %d, want 1", got.Votes)
	}
	if n := s.VoteCount(q.ID); n != 1 {
		t.Errorf("ledger entries = %d, want 1", n)
	}
}

func TestConcurrentDistinctVotersAllCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusLive)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	q := seedQuestion(t, s, room.ID)

	const voters = 24
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.RecordVote(ctx, room.ID, q.ID, fmt.Sprintf("voter-device-%04d", i)); err != nil {
				t.Errorf("voter %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.GetQuestion(ctx, room.ID, q.ID)
	if got.Votes != voters {
		t.Errorf("votes = %d, want %d", got.Votes, voters)
	}
}

func TestVoteUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusLive)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := s.RecordVote(ctx, room.ID, uuid.New(), "voter-device-0001"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTransitionRoomIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusWaiting)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if err := s.TransitionRoom(ctx, room.ID, models.StatusWaiting, models.StatusLive); err != nil {
		t.Fatalf("waiting -> live: %v", err)
	}
	// The compare half of the compare-and-set: expected status is stale.
	if err := s.TransitionRoom(ctx, room.ID, models.StatusWaiting, models.StatusLive); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("stale transition: got %v, want ErrInvalidTransition", err)
	}
	if err := s.TransitionRoom(ctx, room.ID, models.StatusLive, models.StatusEnded); err != nil {
		t.Fatalf("live -> ended: %v", err)
	}
	if err := s.TransitionRoom(ctx, room.ID, models.StatusLive, models.StatusEnded); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("repeat end: got %v, want ErrInvalidTransition", err)
	}
}

func TestExtendRoom(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusLive)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	got, err := s.ExtendRoom(ctx, room.ID, 45)
	if err != nil {
		t.Fatalf("ExtendRoom: %v", err)
	}
	want := room.ExpiresAt.Add(45 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("expires_at = %v, want %v", got, want)
	}

	ended := newRoom(models.StatusEnded)
	if err := s.CreateRoom(ctx, ended); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := s.ExtendRoom(ctx, ended.ID, 10); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("extend ended room: got %v, want ErrInvalidTransition", err)
	}
}

func TestCodeUniqueAmongActiveRoomsOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := newRoom(models.StatusLive)
	first.Code = "QQWWEE"
	if err := s.CreateRoom(ctx, first); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	dup := newRoom(models.StatusWaiting)
	dup.Code = "qqwwee" // codes are case-insensitive
	if err := s.CreateRoom(ctx, dup); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("duplicate active code: got %v, want ErrValidation", err)
	}
	if inUse, _ := s.CodeInUse(ctx, "qqwwee"); !inUse {
		t.Error("CodeInUse should report an active holder")
	}

	if err := s.TransitionRoom(ctx, first.ID, models.StatusLive, models.StatusEnded); err != nil {
		t.Fatalf("end room: %v", err)
	}
	if inUse, _ := s.CodeInUse(ctx, "QQWWEE"); inUse {
		t.Error("ended room should free its code")
	}
	if err := s.CreateRoom(ctx, dup); err != nil {
		t.Errorf("code reuse after end: %v", err)
	}
}

func TestGetRoomByCodeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusWaiting)
	room.Code = "AB12CD"
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	got, err := s.GetRoomByCode(ctx, "ab12cd")
	if err != nil {
		t.Fatalf("GetRoomByCode: %v", err)
	}
	if got.ID != room.ID {
		t.Errorf("resolved wrong room")
	}
	if _, err := s.GetRoomByCode(ctx, "ZZZZZZ"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown code: got %v, want ErrNotFound", err)
	}
}

func TestMarkAnsweredIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	room := newRoom(models.StatusLive)
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	q := seedQuestion(t, s, room.ID)

	reply := "Shipping in Q3."
	if _, err := s.SetReply(ctx, room.ID, q.ID, reply); err != nil {
		t.Fatalf("SetReply: %v", err)
	}
	once, err := s.MarkAnswered(ctx, room.ID, q.ID)
	if err != nil {
		t.Fatalf("MarkAnswered: %v", err)
	}
	twice, err := s.MarkAnswered(ctx, room.ID, q.ID)
	if err != nil {
		t.Fatalf("MarkAnswered twice: %v", err)
	}
	if !once.Answered || !twice.Answered {
		t.Error("answered flag should be set")
	}
	if twice.OrganizerReply == nil || *twice.OrganizerReply != reply {
		t.Error("MarkAnswered must leave an existing reply untouched")
	}
}
