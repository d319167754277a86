package rooms

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hushhour/backend/internal/models"
)

// Store is the persistence surface the Room Registry needs. Implemented by
// the pgx Repository and by memstore for demo mode and tests.
type Store interface {
	// CreateRoom inserts a fully-populated room record. Fails with
	// models.ErrValidation if the code is already held by a non-ended room.
	CreateRoom(ctx context.Context, room *models.Room) error

	// GetRoomByCode resolves a room by its human code, case-insensitive.
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)

	// GetRoomByID resolves a room by id.
	GetRoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error)

	// CodeInUse reports whether code is held by any non-ended room.
	CodeInUse(ctx context.Context, code string) (bool, error)

	// TransitionRoom moves the room from one status to another. The check
	// and the write are a single conditional update: if the room is no
	// longer in from (concurrent transition), models.ErrInvalidTransition.
	TransitionRoom(ctx context.Context, id uuid.UUID, from, to models.RoomStatus) error

	// ExtendRoom pushes expires_at forward by minutes, only while the room
	// is live. Returns the new expiry.
	ExtendRoom(ctx context.Context, id uuid.UUID, minutes int) (time.Time, error)
}
