package models

import "errors"

// Error taxonomy shared by the store implementations and the HTTP layer.
// All of these are terminal failures: the server never retries them, and
// clients must not auto-retry mutations that return them.
var (
	// ErrNotFound means a room code or question id did not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the organizer token did not match.
	ErrForbidden = errors.New("invalid organizer token")
	// ErrInvalidTransition means a lifecycle operation is illegal for the
	// room's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSessionClosed means a mutation hit an ended or time-expired room.
	ErrSessionClosed = errors.New("session closed")
	// ErrAlreadyVoted means this voter already voted on this question.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrValidation means malformed input (empty content, non-positive
	// extension, bad sort mode).
	ErrValidation = errors.New("invalid input")
)
