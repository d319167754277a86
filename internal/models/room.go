package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a room. Transitions are monotonic:
// waiting -> live -> ended. Ended is terminal.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusLive    RoomStatus = "live"
	StatusEnded   RoomStatus = "ended"
)

// Room represents one Q&A session, joinable by a 6-character code.
type Room struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Title          string     `json:"title"`
	Status         RoomStatus `json:"status"`
	OrganizerToken string     `json:"-"`
	StartsAt       time.Time  `json:"starts_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Expired reports whether the room is past its expiry time. Expiry is a pure
// function of the wall clock and orthogonal to Status: a room can be live and
// expired at the same time. There is no background timer; callers evaluate
// this lazily.
func (r *Room) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Open reports whether mutations (submit, vote, reply) are still allowed.
func (r *Room) Open(now time.Time) bool {
	return r.Status != StatusEnded && !r.Expired(now)
}

// CanStart validates the waiting -> live transition.
func (r *Room) CanStart() error {
	if r.Status != StatusWaiting {
		return ErrInvalidTransition
	}
	return nil
}

// CanEnd validates the transition to ended from any non-terminal status.
// A repeated end on an already-ended room fails with ErrInvalidTransition;
// callers may treat that as success-equivalent.
func (r *Room) CanEnd() error {
	if r.Status == StatusEnded {
		return ErrInvalidTransition
	}
	return nil
}

// CanExtend validates an expiry extension: only live rooms can be extended,
// and only by a positive number of minutes. ExpiresAt only ever moves forward.
func (r *Room) CanExtend(minutes int) error {
	if minutes <= 0 {
		return ErrValidation
	}
	if r.Status != StatusLive {
		return ErrInvalidTransition
	}
	return nil
}
