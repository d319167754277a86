package questions

import (
	"context"

	"github.com/google/uuid"

	"github.com/hushhour/backend/internal/models"
)

// Store is the persistence surface for questions and the vote dedup ledger.
// Implemented by the pgx Repository and by memstore.
type Store interface {
	// CreateQuestion inserts a new question with zero votes.
	CreateQuestion(ctx context.Context, q *models.Question) error

	// GetQuestion resolves a question that belongs to the given room.
	GetQuestion(ctx context.Context, roomID, questionID uuid.UUID) (*models.Question, error)

	// ListQuestions returns all of a room's questions in no particular
	// order; callers apply Order. Restartable: each call is a fresh read.
	ListQuestions(ctx context.Context, roomID uuid.UUID) ([]models.Question, error)

	// RecordVote inserts the (question, voter) ledger entry and increments
	// the question's vote count as one atomic unit. Returns the new count,
	// or models.ErrAlreadyVoted if the ledger already holds the key. The
	// dedup check and the increment must not be separable: a concurrent
	// duplicate from the same voter lands exactly one increment.
	RecordVote(ctx context.Context, roomID, questionID uuid.UUID, voterID string) (int, error)

	// SetReply stores the organizer reply and marks the question answered.
	SetReply(ctx context.Context, roomID, questionID uuid.UUID, reply string) (*models.Question, error)

	// MarkAnswered sets answered without touching any existing reply.
	// Idempotent.
	MarkAnswered(ctx context.Context, roomID, questionID uuid.UUID) (*models.Question, error)
}
