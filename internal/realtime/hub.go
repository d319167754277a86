package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
)

// subscriptionBuffer is the per-connection event buffer. A connection that
// falls this far behind is considered dead and is dropped; clients recover by
// re-fetching on reconnect, so missed events are harmless.
const subscriptionBuffer = 32

// Bridge fans events across server instances (Redis pub/sub). Optional: with
// a nil bridge the hub is purely in-process.
type Bridge interface {
	PublishRoomEvent(ev models.Event) error
	SubscribeRoom(roomID uuid.UUID, handler func(ev models.Event)) (cancel func(), err error)
}

// Hub is the connection registry and broadcaster: it owns the room id -> live
// subscriptions mapping and its locking. Delivery is best-effort with no
// replay; a subscription that was not registered at publish time never sees
// that event.
type Hub struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]map[*Subscription]struct{}
	bridges map[uuid.UUID]func() // cancel bridge subscription per room
	bridge  Bridge
	logger  *zap.Logger
}

// Subscription is one live connection's view of a room's event stream.
type Subscription struct {
	ch     chan models.Event
	hub    *Hub
	roomID uuid.UUID
	closed bool // guarded by hub.mu
}

// Events is the channel the subscriber reads from. It is closed when the
// subscription is closed or dropped by the hub.
func (s *Subscription) Events() <-chan models.Event {
	return s.ch
}

// Close removes the subscription from the hub. Safe to call more than once,
// and safe to call concurrently with Publish.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// NewHub creates a broadcaster. bridge may be nil for single-process mode.
func NewHub(logger *zap.Logger, bridge Bridge) *Hub {
	return &Hub{
		rooms:   make(map[uuid.UUID]map[*Subscription]struct{}),
		bridges: make(map[uuid.UUID]func()),
		bridge:  bridge,
		logger:  logger,
	}
}

// Subscribe registers a new live connection for a room. The first subscriber
// of a room opens the bridge subscription for it. The bridge call is a
// network round trip and runs outside the hub lock, so a slow bridge never
// stalls publishing to other rooms.
func (h *Hub) Subscribe(roomID uuid.UUID) *Subscription {
	sub := &Subscription{
		ch:     make(chan models.Event, subscriptionBuffer),
		hub:    h,
		roomID: roomID,
	}

	h.mu.Lock()
	first := h.rooms[roomID] == nil
	if first {
		h.rooms[roomID] = make(map[*Subscription]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	h.mu.Unlock()

	if first && h.bridge != nil {
		h.openBridge(roomID)
	}
	return sub
}

func (h *Hub) openBridge(roomID uuid.UUID) {
	cancel, err := h.bridge.SubscribeRoom(roomID, h.deliver)
	if err != nil {
		h.logger.Warn("bridge subscribe failed, local-only delivery",
			zap.String("room_id", roomID.String()), zap.Error(err))
		return
	}

	h.mu.Lock()
	_, live := h.rooms[roomID]
	if live && h.bridges[roomID] == nil {
		h.bridges[roomID] = cancel
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	// The room emptied (or another subscriber raced us here) while the
	// bridge call was in flight.
	cancel()
}

// Publish fans an event out to every subscription of its room. Fire and
// forget: failures are swallowed, never surfaced to the mutating caller.
// With a bridge configured the event goes through it so that every instance
// (including this one) delivers exactly once via its bridge callback.
func (h *Hub) Publish(ev models.Event) {
	if h.bridge != nil {
		if err := h.bridge.PublishRoomEvent(ev); err == nil {
			return
		}
		// Bridge down: fall back to local delivery so this instance's own
		// clients still hear about the change.
	}
	h.deliver(ev)
}

// AudienceCount returns the number of live connections in a room.
func (h *Hub) AudienceCount(roomID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// deliver sends ev to local subscribers. A subscriber whose buffer is full
// cannot be waited on; it is dropped so one stuck connection never blocks
// delivery to the rest.
func (h *Hub) deliver(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[ev.RoomID] {
		select {
		case sub.ch <- ev:
		default:
			h.removeLocked(sub)
			h.logger.Debug("dropped slow subscriber",
				zap.String("room_id", ev.RoomID.String()))
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// removeLocked unregisters sub and closes its channel. Idempotent; the last
// subscriber leaving a room tears down the room's bridge subscription.
func (h *Hub) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	set, ok := h.rooms[sub.roomID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.rooms, sub.roomID)
		if cancel, ok := h.bridges[sub.roomID]; ok {
			cancel()
			delete(h.bridges, sub.roomID)
		}
	}
}
