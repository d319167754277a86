package rooms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hushhour/backend/internal/models"
)

// Repository handles room persistence on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a rooms repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRoom inserts a new room.
func (r *Repository) CreateRoom(ctx context.Context, room *models.Room) error {
	const q = `INSERT INTO rooms (id, code, title, status, organizer_token, starts_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q,
		room.ID, strings.ToUpper(room.Code), room.Title, room.Status,
		room.OrganizerToken, room.StartsAt, room.ExpiresAt, room.CreatedAt)
	return err
}

// GetRoomByCode returns a room by its human code, case-insensitive.
func (r *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	const q = `SELECT id, code, title, status, organizer_token, starts_at, expires_at, created_at
		FROM rooms WHERE code = $1`
	return r.scanRoom(r.pool.QueryRow(ctx, q, strings.ToUpper(code)))
}

// GetRoomByID returns a room by id.
func (r *Repository) GetRoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	const q = `SELECT id, code, title, status, organizer_token, starts_at, expires_at, created_at
		FROM rooms WHERE id = $1`
	return r.scanRoom(r.pool.QueryRow(ctx, q, id))
}

// CodeInUse reports whether code belongs to any room that has not ended.
func (r *Repository) CodeInUse(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM rooms WHERE code = $1 AND status <> $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, strings.ToUpper(code), models.StatusEnded).Scan(&exists)
	return exists, err
}

// TransitionRoom applies a status transition as one conditional update so a
// concurrent transition cannot slip between check and write.
func (r *Repository) TransitionRoom(ctx context.Context, id uuid.UUID, from, to models.RoomStatus) error {
	const q = `UPDATE rooms SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// ExtendRoom moves expires_at forward by minutes while the room is live.
func (r *Repository) ExtendRoom(ctx context.Context, id uuid.UUID, minutes int) (time.Time, error) {
	const q = `UPDATE rooms SET expires_at = expires_at + make_interval(mins => $1)
		WHERE id = $2 AND status = $3
		RETURNING expires_at`
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, q, minutes, id, models.StatusLive).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, models.ErrInvalidTransition
	}
	return expiresAt, err
}

func (r *Repository) scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	err := row.Scan(&room.ID, &room.Code, &room.Title, &room.Status,
		&room.OrganizerToken, &room.StartsAt, &room.ExpiresAt, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
