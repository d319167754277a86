// Package memstore is the in-memory twin of the pgx repositories. It backs
// single-process deployments that run without a database, and the concurrency
// property tests. All operations are atomic under one mutex, matching the
// transactional guarantees the SQL store gets from Postgres.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hushhour/backend/internal/models"
)

type voteKey struct {
	questionID uuid.UUID
	voterID    string
}

// Store implements the rooms and questions store interfaces on maps.
type Store struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]*models.Room
	byCode    map[string]uuid.UUID
	questions map[uuid.UUID]*models.Question
	votes     map[voteKey]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rooms:     make(map[uuid.UUID]*models.Room),
		byCode:    make(map[string]uuid.UUID),
		questions: make(map[uuid.UUID]*models.Question),
		votes:     make(map[voteKey]struct{}),
	}
}

// CreateRoom inserts a room, enforcing code uniqueness among non-ended rooms.
func (s *Store) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := strings.ToUpper(room.Code)
	if id, ok := s.byCode[code]; ok {
		if holder := s.rooms[id]; holder != nil && holder.Status != models.StatusEnded {
			return models.ErrValidation
		}
	}
	cp := *room
	cp.Code = code
	s.rooms[cp.ID] = &cp
	s.byCode[code] = cp.ID
	return nil
}

// GetRoomByCode resolves a room by code, case-insensitive.
func (s *Store) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.roomCopyLocked(id)
}

// GetRoomByID resolves a room by id.
func (s *Store) GetRoomByID(_ context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCopyLocked(id)
}

// CodeInUse reports whether a non-ended room holds the code.
func (s *Store) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return false, nil
	}
	room := s.rooms[id]
	return room != nil && room.Status != models.StatusEnded, nil
}

// TransitionRoom applies a conditional status change, mirroring the SQL
// store's compare-and-set update.
func (s *Store) TransitionRoom(_ context.Context, id uuid.UUID, from, to models.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return models.ErrNotFound
	}
	if room.Status != from {
		return models.ErrInvalidTransition
	}
	room.Status = to
	return nil
}

// ExtendRoom pushes expiry forward while the room is live.
func (s *Store) ExtendRoom(_ context.Context, id uuid.UUID, minutes int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return time.Time{}, models.ErrNotFound
	}
	if room.Status != models.StatusLive {
		return time.Time{}, models.ErrInvalidTransition
	}
	room.ExpiresAt = room.ExpiresAt.Add(time.Duration(minutes) * time.Minute)
	return room.ExpiresAt, nil
}

// CreateQuestion inserts a question.
func (s *Store) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[q.RoomID]; !ok {
		return models.ErrNotFound
	}
	cp := *q
	s.questions[cp.ID] = &cp
	return nil
}

// GetQuestion resolves a question scoped to its room.
func (s *Store) GetQuestion(_ context.Context, roomID, questionID uuid.UUID) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionCopyLocked(roomID, questionID)
}

// ListQuestions returns copies of a room's questions, oldest first.
func (s *Store) ListQuestions(_ context.Context, roomID uuid.UUID) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Question
	for _, q := range s.questions {
		if q.RoomID == roomID {
			list = append(list, *q)
		}
	}
	// Stable base order so callers' sort is deterministic.
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// RecordVote claims the (question, voter) ledger key and increments the vote
// count as one unit under the store mutex. Exactly one of any number of
// concurrent duplicates wins.
func (s *Store) RecordVote(_ context.Context, roomID, questionID uuid.UUID, voterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.RoomID != roomID {
		return 0, models.ErrNotFound
	}
	key := voteKey{questionID: questionID, voterID: voterID}
	if _, dup := s.votes[key]; dup {
		return 0, models.ErrAlreadyVoted
	}
	s.votes[key] = struct{}{}
	q.Votes++
	return q.Votes, nil
}

// VoteCount returns the number of ledger entries for a question.
func (s *Store) VoteCount(questionID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.votes {
		if key.questionID == questionID {
			n++
		}
	}
	return n
}

// SetReply stores the organizer reply and marks the question answered.
func (s *Store) SetReply(_ context.Context, roomID, questionID uuid.UUID, reply string) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.RoomID != roomID {
		return nil, models.ErrNotFound
	}
	q.OrganizerReply = &reply
	q.Answered = true
	cp := *q
	return &cp, nil
}

// MarkAnswered sets answered, leaving any reply untouched.
func (s *Store) MarkAnswered(_ context.Context, roomID, questionID uuid.UUID) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.RoomID != roomID {
		return nil, models.ErrNotFound
	}
	q.Answered = true
	cp := *q
	return &cp, nil
}

func (s *Store) roomCopyLocked(id uuid.UUID) (*models.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *Store) questionCopyLocked(roomID, questionID uuid.UUID) (*models.Question, error) {
	q, ok := s.questions[questionID]
	if !ok || q.RoomID != roomID {
		return nil, models.ErrNotFound
	}
	cp := *q
	return &cp, nil
}
