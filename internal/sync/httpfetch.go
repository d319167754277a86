package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hushhour/backend/internal/models"
)

// HTTPFetcher implements Fetcher against the room API. Responses use the
// server's {success, data, error} envelope; error statuses map back onto the
// domain taxonomy so callers can match with errors.Is.
type HTTPFetcher struct {
	baseURL  string
	roomCode string
	client   *http.Client
}

// NewHTTPFetcher creates a fetcher for one room.
func NewHTTPFetcher(baseURL, roomCode string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		roomCode: roomCode,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Room fetches the room record.
func (f *HTTPFetcher) Room(ctx context.Context) (*models.Room, error) {
	var room models.Room
	err := f.do(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/%s", f.roomCode), nil, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Questions fetches the full question snapshot. Sort order is irrelevant
// here; the controller re-orders locally.
func (f *HTTPFetcher) Questions(ctx context.Context) ([]models.Question, error) {
	var data struct {
		Questions []models.Question `json:"questions"`
	}
	path := fmt.Sprintf("/api/rooms/%s/questions?sort=latest", f.roomCode)
	if err := f.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Questions, nil
}

// SubmitQuestion posts a new question.
func (f *HTTPFetcher) SubmitQuestion(ctx context.Context, content, voterID string) (*models.Question, error) {
	body := map[string]string{"content": content, "voter_id": voterID}
	var q models.Question
	path := fmt.Sprintf("/api/rooms/%s/questions", f.roomCode)
	if err := f.do(ctx, http.MethodPost, path, body, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Vote posts an upvote for a question.
func (f *HTTPFetcher) Vote(ctx context.Context, questionID uuid.UUID, voterID string) error {
	body := map[string]string{"voter_id": voterID}
	path := fmt.Sprintf("/api/rooms/%s/questions/%s/vote", f.roomCode, questionID)
	return f.do(ctx, http.MethodPost, path, body, nil)
}

func (f *HTTPFetcher) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return statusError(resp.StatusCode, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// statusError maps an HTTP failure back onto the domain taxonomy. 409 is
// ambiguous between a transition conflict and a duplicate vote; the message
// disambiguates.
func statusError(status int, msg string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", models.ErrForbidden, msg)
	case http.StatusGone:
		return fmt.Errorf("%w: %s", models.ErrSessionClosed, msg)
	case http.StatusConflict:
		if strings.Contains(msg, "voted") {
			return fmt.Errorf("%w: %s", models.ErrAlreadyVoted, msg)
		}
		return fmt.Errorf("%w: %s", models.ErrInvalidTransition, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", models.ErrValidation, msg)
	default:
		return fmt.Errorf("server error (%d): %s", status, msg)
	}
}
