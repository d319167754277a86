package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
)

func recvEvent(t *testing.T, sub *Subscription) models.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.Event{}
}

func TestHubDeliversToRoomSubscribersOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	roomA := uuid.New()
	roomB := uuid.New()

	subA1 := hub.Subscribe(roomA)
	subA2 := hub.Subscribe(roomA)
	subB := hub.Subscribe(roomB)
	defer subA1.Close()
	defer subA2.Close()
	defer subB.Close()

	hub.Publish(models.Event{Type: models.EventQuestionCreated, RoomID: roomA})

	for _, sub := range []*Subscription{subA1, subA2} {
		ev := recvEvent(t, sub)
		if ev.Type != models.EventQuestionCreated || ev.RoomID != roomA {
			t.Errorf("got event %+v", ev)
		}
	}
	select {
	case ev := <-subB.Events():
		t.Errorf("room B subscriber received foreign event %+v", ev)
	default:
	}
}

func TestHubPublishToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	hub.Publish(models.Event{Type: models.EventRoomStatusChanged, RoomID: uuid.New()})
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	roomID := uuid.New()
	sub := hub.Subscribe(roomID)

	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("events channel should be closed after Close")
	}
	if n := hub.AudienceCount(roomID); n != 0 {
		t.Errorf("audience count = %d after close, want 0", n)
	}

	// Publishing after the last subscriber left must not panic or deliver.
	hub.Publish(models.Event{Type: models.EventRoomExtended, RoomID: roomID})
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	roomID := uuid.New()
	slow := hub.Subscribe(roomID)
	fast := hub.Subscribe(roomID)
	defer fast.Close()

	// Fill the slow subscriber's buffer without draining it, then overflow.
	for i := 0; i <= subscriptionBuffer; i++ {
		hub.Publish(models.Event{Type: models.EventQuestionUpdated, RoomID: roomID})
		for len(fast.Events()) > 0 {
			<-fast.Events()
		}
	}

	if n := hub.AudienceCount(roomID); n != 1 {
		t.Fatalf("audience count = %d, want 1 after slow subscriber dropped", n)
	}

	// The dropped channel drains its buffered events and then closes.
	drained := 0
	for range slow.Events() {
		drained++
	}
	if drained != subscriptionBuffer {
		t.Errorf("drained %d buffered events, want %d", drained, subscriptionBuffer)
	}

	// The survivor still hears new events.
	hub.Publish(models.Event{Type: models.EventQuestionCreated, RoomID: roomID})
	if ev := recvEvent(t, fast); ev.Type != models.EventQuestionCreated {
		t.Errorf("surviving subscriber got %+v", ev)
	}
}

// fakeBridge records publishes and loops them straight back, standing in for
// Redis pub/sub.
type fakeBridge struct {
	publishErr    error
	published     []models.Event
	handlers      map[uuid.UUID]func(models.Event)
	cancels       int
	subscribing   chan struct{} // if non-nil, signalled on SubscribeRoom entry
	subscribeGate chan struct{} // if non-nil, SubscribeRoom blocks until closed
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{handlers: make(map[uuid.UUID]func(models.Event))}
}

func (b *fakeBridge) PublishRoomEvent(ev models.Event) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, ev)
	if h, ok := b.handlers[ev.RoomID]; ok {
		h(ev)
	}
	return nil
}

func (b *fakeBridge) SubscribeRoom(roomID uuid.UUID, handler func(models.Event)) (func(), error) {
	if b.subscribing != nil {
		b.subscribing <- struct{}{}
	}
	if b.subscribeGate != nil {
		<-b.subscribeGate
	}
	b.handlers[roomID] = handler
	return func() {
		b.cancels++
		delete(b.handlers, roomID)
	}, nil
}

func TestHubBridgeRoundTrip(t *testing.T) {
	bridge := newFakeBridge()
	hub := NewHub(zap.NewNop(), bridge)
	roomID := uuid.New()

	sub := hub.Subscribe(roomID)
	hub.Publish(models.Event{Type: models.EventQuestionCreated, RoomID: roomID})

	// Exactly one delivery: through the bridge callback, not doubled by a
	// direct local send.
	ev := recvEvent(t, sub)
	if ev.Type != models.EventQuestionCreated {
		t.Errorf("got %+v", ev)
	}
	select {
	case dup := <-sub.Events():
		t.Errorf("event delivered twice: %+v", dup)
	default:
	}
	if len(bridge.published) != 1 {
		t.Errorf("bridge saw %d publishes, want 1", len(bridge.published))
	}

	sub.Close()
	if bridge.cancels != 1 {
		t.Errorf("bridge cancels = %d, want 1 after last subscriber left", bridge.cancels)
	}
}

func TestHubDeliversWhileBridgeSubscribeInFlight(t *testing.T) {
	bridge := newFakeBridge()
	bridge.publishErr = errors.New("bridge down")
	hub := NewHub(zap.NewNop(), bridge)
	slowRoom := uuid.New()
	otherRoom := uuid.New()

	sub := hub.Subscribe(otherRoom)
	defer sub.Close()

	// Only the slowRoom dial gets parked on the gate.
	bridge.subscribing = make(chan struct{}, 1)
	bridge.subscribeGate = make(chan struct{})
	go hub.Subscribe(slowRoom)
	<-bridge.subscribing // the bridge dial for slowRoom is now parked

	// Local delivery to other rooms must not queue behind the dial.
	delivered := make(chan struct{})
	go func() {
		hub.Publish(models.Event{Type: models.EventQuestionCreated, RoomID: otherRoom})
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("publish stalled behind a slow bridge subscribe")
	}
	if ev := recvEvent(t, sub); ev.RoomID != otherRoom {
		t.Errorf("got %+v", ev)
	}

	close(bridge.subscribeGate)
}

func TestHubFallsBackToLocalWhenBridgeDown(t *testing.T) {
	bridge := newFakeBridge()
	hub := NewHub(zap.NewNop(), bridge)
	roomID := uuid.New()
	sub := hub.Subscribe(roomID)
	defer sub.Close()

	bridge.publishErr = errors.New("connection refused")
	hub.Publish(models.Event{Type: models.EventRoomStatusChanged, RoomID: roomID})

	if ev := recvEvent(t, sub); ev.Type != models.EventRoomStatusChanged {
		t.Errorf("got %+v", ev)
	}
}
