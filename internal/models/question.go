package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is an anonymous audience question in a room. Votes only ever go
// up within a session; OrganizerReply set implies Answered.
type Question struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	Content        string    `json:"content"`
	Votes          int       `json:"votes"`
	Answered       bool      `json:"answered"`
	OrganizerReply *string   `json:"organizer_reply,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Vote is one dedup-ledger entry: its existence means the voter has already
// incremented the question's count. At most one per (question, voter).
type Vote struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	QuestionID uuid.UUID `json:"question_id"`
	VoterID    string    `json:"voter_id"`
	CreatedAt  time.Time `json:"created_at"`
}
