package models

import "github.com/google/uuid"

// EventType enumerates the closed set of change notifications pushed to
// subscribed clients.
type EventType string

const (
	EventRoomStatusChanged EventType = "room_status_changed"
	EventRoomExtended      EventType = "room_extended"
	EventQuestionCreated   EventType = "question_created"
	EventQuestionUpdated   EventType = "question_updated"
)

// Event is the wire payload fanned out to a room's live connections. It is
// deliberately content-free: a cache-invalidation signal telling clients to
// re-fetch, never a state transfer. Carrying entity snapshots here invites
// staleness bugs when mutations race.
type Event struct {
	Type   EventType `json:"type"`
	RoomID uuid.UUID `json:"room_id"`
}
