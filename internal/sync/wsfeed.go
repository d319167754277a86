package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
)

// WSFeed implements Feed over the server's websocket endpoint. Each
// Subscribe is one connection; the returned channel closes when the
// connection drops, and the controller handles reconnecting.
type WSFeed struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewWSFeed creates a feed for one room. baseURL is the http(s) server URL.
func NewWSFeed(baseURL string, roomID uuid.UUID, logger *zap.Logger) *WSFeed {
	wsURL := strings.Replace(strings.TrimRight(baseURL, "/"), "http", "ws", 1)
	return &WSFeed{
		url:    fmt.Sprintf("%s/ws/%s", wsURL, roomID),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

// Subscribe dials the room channel and streams its change events until the
// connection drops or ctx is cancelled.
func (f *WSFeed) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", f.url, err)
	}

	events := make(chan models.Event)
	done := make(chan struct{})
	go func() {
		// Exits with the reader, not just on ctx cancel, so repeated
		// reconnects do not accumulate parked goroutines.
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()
	go func() {
		defer close(events)
		defer close(done)
		for {
			var ev models.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					f.logger.Debug("feed read failed", zap.Error(err))
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
