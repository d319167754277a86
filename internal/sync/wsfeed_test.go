package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
)

// newEventServer serves one event per connection and then hangs up, which is
// how a feed connection drop looks from the client side.
func newEventServer(t *testing.T, roomID uuid.UUID) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(models.Event{Type: models.EventQuestionCreated, RoomID: roomID})
		conn.Close()
	}))
}

func TestWSFeedClosesEventsOnDrop(t *testing.T) {
	roomID := uuid.New()
	srv := newEventServer(t, roomID)
	defer srv.Close()

	feed := NewWSFeed(srv.URL, roomID, zap.NewNop())
	events, err := feed.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case ev := <-events:
		if ev.RoomID != roomID {
			t.Errorf("got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected channel close after hangup")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after hangup")
	}
}

func TestWSFeedRepeatedReconnectsLeaveNoGoroutines(t *testing.T) {
	roomID := uuid.New()
	srv := newEventServer(t, roomID)
	defer srv.Close()

	feed := NewWSFeed(srv.URL, roomID, zap.NewNop())

	// The ctx outlives every connection, as it does under the controller's
	// reconnect loop; per-connection goroutines must still wind down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	const cycles = 20
	for i := 0; i < cycles; i++ {
		events, err := feed.Subscribe(ctx)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		for range events {
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+cycles/4 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d over %d reconnects", before, runtime.NumGoroutine(), cycles)
}
