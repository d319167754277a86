package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// codeAttempts bounds the collision-retry loop when allocating a room code.
const codeAttempts = 5

// generateCode returns a 6-character uppercase room code.
func generateCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// allocateCode generates a room code that no non-ended room currently holds.
// Codes are only unique among active rooms, so ended rooms free theirs up.
func allocateCode(ctx context.Context, s Store) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := generateCode()
		inUse, err := s.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code in %d attempts", codeAttempts)
}

// newOrganizerToken mints the bearer capability handed to the room creator.
// It is shown exactly once, in the creation response.
func newOrganizerToken() string {
	return uuid.NewString()
}
