// Package sync implements the client-side view of one room: a pull-based
// authoritative snapshot, a push-based change signal, and an overlay of
// optimistic local edits, reconciled so the rendered list survives races,
// connection drops and failed mutations.
package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
	"github.com/hushhour/backend/internal/questions"
)

const (
	// reconnectBackoff is the fixed delay between subscription attempts.
	// Reconnecting is a liveness mechanism only: state is always re-derived
	// from a full snapshot fetch, never from accumulated events, so there
	// is nothing to recover beyond the connection itself.
	reconnectBackoff = 3 * time.Second

	// gateTick is how often submit/vote gating is re-evaluated. Expiry is a
	// pure function of wall-clock time, so it can flip without any server
	// push.
	gateTick = time.Second
)

// Connectivity is the push-channel state surfaced to the UI.
type Connectivity string

const (
	Connecting   Connectivity = "connecting"
	Connected    Connectivity = "connected"
	Disconnected Connectivity = "disconnected"
)

// Fetcher is the request/response collaborator: snapshot reads plus the
// mutations this client can issue.
type Fetcher interface {
	Room(ctx context.Context) (*models.Room, error)
	Questions(ctx context.Context) ([]models.Question, error)
	SubmitQuestion(ctx context.Context, content, voterID string) (*models.Question, error)
	Vote(ctx context.Context, questionID uuid.UUID, voterID string) error
}

// Feed is the subscribe-to-room-events collaborator. Subscribe blocks until
// a connection is established and returns a channel that closes when the
// connection drops. Events carry no data; they only mean "re-fetch".
type Feed interface {
	Subscribe(ctx context.Context) (<-chan models.Event, error)
}

type pendingKind int

const (
	pendingSubmit pendingKind = iota
	pendingVote
)

// pendingEdit is one optimistic local mutation layered over the snapshot for
// rendering. Confirmed edits are discarded at the next snapshot replacement,
// when the server copy takes their place; failed edits are discarded
// immediately, which restores the pre-mutation view.
type pendingEdit struct {
	kind       pendingKind
	question   models.Question // placeholder, pendingSubmit only
	questionID uuid.UUID       // target, pendingVote only
	confirmed  bool
}

// Controller maintains one client's consistent view of a room. All exported
// methods are safe for concurrent use; event handling and reconciliation run
// on internal goroutines and never block callers.
type Controller struct {
	roomID  uuid.UUID
	fetcher Fetcher
	feed    Feed
	clock   clockwork.Clock
	device  *DeviceState
	logger  *zap.Logger

	mu           gosync.Mutex
	room         *models.Room
	snapshot     []models.Question
	pending      []*pendingEdit
	mode         questions.SortMode
	connectivity Connectivity
	generation   uint64 // issued to each reconcile fetch
	applied      uint64 // generation of the last applied snapshot

	onChange func()
	cancel   context.CancelFunc
	done     gosync.WaitGroup
}

// NewController creates a controller for one room. onChange, if non-nil, is
// invoked (on an internal goroutine) whenever the rendered view may have
// changed.
func NewController(roomID uuid.UUID, fetcher Fetcher, feed Feed, device *DeviceState, clock clockwork.Clock, logger *zap.Logger, onChange func()) *Controller {
	return &Controller{
		roomID:       roomID,
		fetcher:      fetcher,
		feed:         feed,
		clock:        clock,
		device:       device,
		logger:       logger,
		mode:         questions.SortTop,
		connectivity: Connecting,
		onChange:     onChange,
	}
}

// Run mounts the controller: an initial reconciliation, the subscription
// loop with its fixed reconnect backoff, and the gating tick. It returns
// immediately; Close unmounts.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.reconcile(ctx)

	c.done.Add(2)
	go c.feedLoop(ctx)
	go c.gateLoop(ctx)
}

// Close unmounts the controller. In-flight reconciliation fetches are
// abandoned without applying their result, and the backoff and gating timers
// are released.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.done.Wait()
}

// feedLoop keeps a subscription open for the controller's lifetime. Every
// (re)connect triggers a full reconciliation, because any event published
// during a gap is gone for good and only a snapshot fetch can catch up.
func (c *Controller) feedLoop(ctx context.Context) {
	defer c.done.Done()
	for {
		events, err := c.feed.Subscribe(ctx)
		if err != nil {
			c.setConnectivity(Disconnected)
			if !c.backoff(ctx) {
				return
			}
			continue
		}

		c.setConnectivity(Connected)
		c.reconcile(ctx)

		if !c.consume(ctx, events) {
			return
		}
		c.setConnectivity(Disconnected)
		if !c.backoff(ctx) {
			return
		}
	}
}

// consume drains one subscription until it drops (returns true) or the
// controller unmounts (returns false).
func (c *Controller) consume(ctx context.Context, events <-chan models.Event) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return true
			}
			if ev.RoomID == c.roomID {
				c.reconcile(ctx)
			}
		}
	}
}

// backoff waits out the reconnect delay; false means the controller
// unmounted and the timer was released.
func (c *Controller) backoff(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(reconnectBackoff):
		return true
	}
}

// gateLoop re-runs the expiry gate once a second so CanInteract flips the
// moment the clock passes expires_at.
func (c *Controller) gateLoop(ctx context.Context) {
	defer c.done.Done()
	ticker := c.clock.NewTicker(gateTick)
	defer ticker.Stop()
	wasOpen := c.CanInteract()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if open := c.CanInteract(); open != wasOpen {
				wasOpen = open
				c.notify()
			}
		}
	}
}

// reconcile fetches a fresh snapshot of the room and its questions and
// replaces the local view wholesale. Events carry no payload, so there is
// never incremental patching, and therefore no lost-update or out-of-order
// delivery problems. Fetches may complete out of order; a generation counter
// makes application last-issued-wins, and a stale fetch that loses the race
// is discarded.
func (c *Controller) reconcile(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	room, err := c.fetcher.Room(ctx)
	if err != nil {
		c.logger.Debug("room fetch failed", zap.Error(err))
		return
	}
	list, err := c.fetcher.Questions(ctx)
	if err != nil {
		c.logger.Debug("questions fetch failed", zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return // unmounted mid-fetch; do not apply
	}

	c.mu.Lock()
	if gen <= c.applied {
		c.mu.Unlock()
		return
	}
	c.applied = gen
	c.room = room
	c.snapshot = list
	// Confirmed optimistic edits are now represented by server data; keep
	// only the ones still awaiting their mutation response.
	kept := c.pending[:0]
	for _, p := range c.pending {
		if !p.confirmed {
			kept = append(kept, p)
		}
	}
	c.pending = kept
	c.mu.Unlock()
	c.notify()
}

// SetSortMode changes the active ordering for Questions.
func (c *Controller) SetSortMode(mode questions.SortMode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.notify()
}

// Room returns the last reconciled room record, or nil before the first
// successful fetch.
func (c *Controller) Room() *models.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return nil
	}
	cp := *c.room
	return &cp
}

// Questions renders the current view: the authoritative snapshot with
// pending optimistic edits applied on top, in the active sort order. The
// two layers stay separate so an optimistic edit can never silently become
// permanent by being merged into the cache.
func (c *Controller) Questions() []models.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return questions.Order(c.mode, c.overlaidLocked())
}

func (c *Controller) overlaidLocked() []models.Question {
	merged := make([]models.Question, len(c.snapshot))
	copy(merged, c.snapshot)
	for _, p := range c.pending {
		switch p.kind {
		case pendingSubmit:
			merged = append(merged, p.question)
		case pendingVote:
			for i := range merged {
				if merged[i].ID == p.questionID {
					merged[i].Votes++
					break
				}
			}
		}
	}
	return merged
}

// Connectivity reports the push-channel state.
func (c *Controller) Connectivity() Connectivity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectivity
}

// CanInteract reports whether submit/vote affordances should be enabled:
// the room must not be ended and not past its expiry right now.
func (c *Controller) CanInteract() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room != nil && c.room.Open(c.clock.Now())
}

// HasVoted reports whether this device already voted on the question. This
// is a UX guard; the server ledger independently rejects duplicates.
func (c *Controller) HasVoted(questionID uuid.UUID) bool {
	return c.device.HasVoted(c.roomID, questionID)
}

// IsMine reports whether this device authored the question.
func (c *Controller) IsMine(questionID uuid.UUID) bool {
	return c.device.IsMine(c.roomID, questionID)
}

// Submit optimistically splices a placeholder question into the view, then
// issues the mutation. On failure the placeholder is removed, leaving the
// view as it was before the submit, and the error is returned exactly once
// to be surfaced. It is never auto-retried, since a retried submit would
// create a duplicate question.
func (c *Controller) Submit(ctx context.Context, content string) (uuid.UUID, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return uuid.Nil, models.ErrValidation
	}
	if !c.CanInteract() {
		return uuid.Nil, models.ErrSessionClosed
	}

	edit := &pendingEdit{
		kind: pendingSubmit,
		question: models.Question{
			ID:        uuid.New(), // client-generated temporary id
			RoomID:    c.roomID,
			Content:   content,
			CreatedAt: c.clock.Now().UTC(),
		},
	}
	c.addPending(edit)

	q, err := c.fetcher.SubmitQuestion(ctx, content, c.device.VoterID)
	if err != nil {
		c.dropPending(edit)
		return uuid.Nil, fmt.Errorf("submit question: %w", err)
	}
	c.device.MarkMine(c.roomID, q.ID)
	c.confirmPending(edit)
	return q.ID, nil
}

// Vote optimistically bumps the question's count, then issues the mutation.
// The local voted set refuses duplicates up front; if the guard was cleared
// or bypassed, the server still rejects and the bump rolls back.
func (c *Controller) Vote(ctx context.Context, questionID uuid.UUID) error {
	if !c.CanInteract() {
		return models.ErrSessionClosed
	}
	if c.device.HasVoted(c.roomID, questionID) {
		return models.ErrAlreadyVoted
	}

	edit := &pendingEdit{kind: pendingVote, questionID: questionID}
	c.addPending(edit)

	if err := c.fetcher.Vote(ctx, questionID, c.device.VoterID); err != nil {
		c.dropPending(edit)
		return fmt.Errorf("vote: %w", err)
	}
	c.device.MarkVoted(c.roomID, questionID)
	c.confirmPending(edit)
	return nil
}

func (c *Controller) addPending(edit *pendingEdit) {
	c.mu.Lock()
	c.pending = append(c.pending, edit)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) dropPending(edit *pendingEdit) {
	c.mu.Lock()
	for i, p := range c.pending {
		if p == edit {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) confirmPending(edit *pendingEdit) {
	c.mu.Lock()
	edit.confirmed = true
	c.mu.Unlock()
}

func (c *Controller) setConnectivity(state Connectivity) {
	c.mu.Lock()
	changed := c.connectivity != state
	c.connectivity = state
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
