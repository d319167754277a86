package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hushhour/backend/internal/models"
)

// Repository handles question and vote persistence on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateQuestion inserts a new question.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (id, room_id, content, votes, answered, created_at)
		VALUES ($1, $2, $3, 0, FALSE, $4)`
	_, err := r.pool.Exec(ctx, query, q.ID, q.RoomID, q.Content, q.CreatedAt)
	return err
}

// GetQuestion returns a question scoped to its room.
func (r *Repository) GetQuestion(ctx context.Context, roomID, questionID uuid.UUID) (*models.Question, error) {
	const query = `SELECT id, room_id, content, votes, answered, organizer_reply, created_at
		FROM questions WHERE id = $1 AND room_id = $2`
	return scanQuestion(r.pool.QueryRow(ctx, query, questionID, roomID))
}

// ListQuestions returns all questions in a room, oldest first. Ordering for
// display is applied by Order, never here.
func (r *Repository) ListQuestions(ctx context.Context, roomID uuid.UUID) ([]models.Question, error) {
	const query = `SELECT id, room_id, content, votes, answered, organizer_reply, created_at
		FROM questions WHERE room_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.RoomID, &q.Content, &q.Votes, &q.Answered, &q.OrganizerReply, &q.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// RecordVote runs the dedup insert and the count increment in one
// transaction. The votes table has UNIQUE (question_id, voter_id); ON
// CONFLICT DO NOTHING makes the insert the atomic claim, and the increment
// only happens when the claim succeeded. Two concurrent votes from the same
// voter serialize on the unique index: one inserts, one conflicts.
func (r *Repository) RecordVote(ctx context.Context, roomID, questionID uuid.UUID, voterID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Resolve the question first so an unknown id surfaces as not-found
	// rather than as a foreign key violation from the ledger insert.
	const exists = `SELECT 1 FROM questions WHERE id = $1 AND room_id = $2`
	var one int
	if err := tx.QueryRow(ctx, exists, questionID, roomID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}

	const insert = `INSERT INTO votes (id, room_id, question_id, voter_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (question_id, voter_id) DO NOTHING`
	tag, err := tx.Exec(ctx, insert, uuid.New(), roomID, questionID, voterID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, models.ErrAlreadyVoted
	}

	const bump = `UPDATE questions SET votes = votes + 1
		WHERE id = $1 AND room_id = $2 RETURNING votes`
	var votes int
	if err := tx.QueryRow(ctx, bump, questionID, roomID).Scan(&votes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}
	return votes, tx.Commit(ctx)
}

// SetReply stores the organizer reply; a reply always marks answered.
func (r *Repository) SetReply(ctx context.Context, roomID, questionID uuid.UUID, reply string) (*models.Question, error) {
	const query = `UPDATE questions SET organizer_reply = $1, answered = TRUE
		WHERE id = $2 AND room_id = $3
		RETURNING id, room_id, content, votes, answered, organizer_reply, created_at`
	return scanQuestion(r.pool.QueryRow(ctx, query, reply, questionID, roomID))
}

// MarkAnswered sets answered only, leaving any reply untouched.
func (r *Repository) MarkAnswered(ctx context.Context, roomID, questionID uuid.UUID) (*models.Question, error) {
	const query = `UPDATE questions SET answered = TRUE
		WHERE id = $1 AND room_id = $2
		RETURNING id, room_id, content, votes, answered, organizer_reply, created_at`
	return scanQuestion(r.pool.QueryRow(ctx, query, questionID, roomID))
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	err := row.Scan(&q.ID, &q.RoomID, &q.Content, &q.Votes, &q.Answered, &q.OrganizerReply, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
