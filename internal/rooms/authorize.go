package rooms

import (
	"context"
	"crypto/subtle"

	"github.com/hushhour/backend/internal/models"
)

// Authorize resolves a room by code and verifies the organizer token against
// it. The token is an unauthenticated bearer capability: whoever holds it has
// full organizer rights for that room, and nothing binds it to a person.
func Authorize(ctx context.Context, s Store, code, token string) (*models.Room, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(room.OrganizerToken), []byte(token)) != 1 {
		return nil, models.ErrForbidden
	}
	return room, nil
}
