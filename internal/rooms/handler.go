package rooms

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
	"github.com/hushhour/backend/internal/realtime"
	"github.com/hushhour/backend/pkg/qr"
	"github.com/hushhour/backend/pkg/response"
)

const (
	minTitleLen = 3
	maxTitleLen = 100

	// defaultDurationMinutes matches the original six-hour session default.
	defaultDurationMinutes = 360
	maxDurationMinutes     = 24 * 60
)

// CreateRequest is the body for POST /api/rooms.
type CreateRequest struct {
	Title           string  `json:"title" binding:"required"`
	StartsAt        *string `json:"starts_at"`         // RFC3339; default now
	DurationMinutes int     `json:"duration_minutes"` // default 360
}

// CreatedResponse carries the organizer token and QR code. The token appears
// here exactly once; subsequent room reads never include it.
type CreatedResponse struct {
	*models.Room
	OrganizerToken string `json:"organizer_token"`
	QRCode         string `json:"qr_code"`
}

// ExtendRequest is the body for the extend endpoint.
type ExtendRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

// Handler handles room lifecycle HTTP endpoints.
type Handler struct {
	store       Store
	hub         *realtime.Hub
	clock       clockwork.Clock
	frontendURL string
	logger      *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(store Store, hub *realtime.Hub, clock clockwork.Clock, frontendURL string, logger *zap.Logger) *Handler {
	return &Handler{store: store, hub: hub, clock: clock, frontendURL: frontendURL, logger: logger}
}

// Create handles POST /api/rooms (organizer opens a room).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if len(title) < minTitleLen || len(title) > maxTitleLen {
		response.BadRequest(c, "title must be 3-100 characters")
		return
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultDurationMinutes
	}
	if duration < 0 || duration > maxDurationMinutes {
		response.BadRequest(c, "duration_minutes must be 1-1440")
		return
	}

	now := h.clock.Now().UTC()
	startsAt := now
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		startsAt = t.UTC()
	}

	code, err := allocateCode(c.Request.Context(), h.store)
	if err != nil {
		h.logger.Error("allocate room code", zap.Error(err))
		response.Internal(c, "failed to allocate room code")
		return
	}

	room := &models.Room{
		ID:             uuid.New(),
		Code:           code,
		Title:          title,
		Status:         models.StatusWaiting,
		OrganizerToken: newOrganizerToken(),
		StartsAt:       startsAt,
		ExpiresAt:      startsAt.Add(time.Duration(duration) * time.Minute),
		CreatedAt:      now,
	}
	if err := h.store.CreateRoom(c.Request.Context(), room); err != nil {
		h.logger.Error("create room", zap.Error(err))
		response.Internal(c, "failed to create room")
		return
	}

	qrCode, err := qr.EncodeBase64(qr.JoinURL(h.frontendURL, room.Code))
	if err != nil {
		h.logger.Warn("qr generation failed", zap.String("code", room.Code), zap.Error(err))
	}
	response.Created(c, CreatedResponse{Room: room, OrganizerToken: room.OrganizerToken, QRCode: qrCode})
}

// GetByCode handles GET /api/rooms/:code (public room info for attendees).
// Reads are allowed on expired and ended rooms; clients gate their own
// affordances from status and expires_at.
func (h *Handler) GetByCode(c *gin.Context) {
	room, err := h.store.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, room)
}

// Start handles POST /api/organizer/:code/:token/start (waiting -> live).
func (h *Handler) Start(c *gin.Context) {
	h.transition(c, models.StatusLive, func(room *models.Room) error { return room.CanStart() })
}

// End handles POST /api/organizer/:code/:token/end. Ends the session from
// any non-terminal status; a retry against an ended room gets 409, which
// callers may treat as success-equivalent.
func (h *Handler) End(c *gin.Context) {
	h.transition(c, models.StatusEnded, func(room *models.Room) error { return room.CanEnd() })
}

func (h *Handler) transition(c *gin.Context, to models.RoomStatus, guard func(*models.Room) error) {
	room, err := authorizeRequest(c, h.store)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := guard(room); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.TransitionRoom(c.Request.Context(), room.ID, room.Status, to); err != nil {
		response.Error(c, err)
		return
	}
	room.Status = to
	h.hub.Publish(models.Event{Type: models.EventRoomStatusChanged, RoomID: room.ID})
	h.logger.Info("room transitioned",
		zap.String("code", room.Code), zap.String("status", string(to)))
	response.OK(c, room)
}

// Extend handles POST /api/organizer/:code/:token/extend. Only live rooms
// can be extended, and expires_at only ever moves forward.
func (h *Handler) Extend(c *gin.Context) {
	room, err := authorizeRequest(c, h.store)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := room.CanExtend(req.Minutes); err != nil {
		response.Error(c, err)
		return
	}
	expiresAt, err := h.store.ExtendRoom(c.Request.Context(), room.ID, req.Minutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	room.ExpiresAt = expiresAt
	h.hub.Publish(models.Event{Type: models.EventRoomExtended, RoomID: room.ID})
	response.OK(c, room)
}

// RoomExists is the realtime.RoomResolver used by the websocket endpoint.
func (h *Handler) RoomExists(c *gin.Context, roomID uuid.UUID) bool {
	_, err := h.store.GetRoomByID(c.Request.Context(), roomID)
	return err == nil
}

func authorizeRequest(c *gin.Context, s Store) (*models.Room, error) {
	return Authorize(c.Request.Context(), s, c.Param("code"), c.Param("token"))
}
