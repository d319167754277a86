package questions

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
	"github.com/hushhour/backend/internal/realtime"
	"github.com/hushhour/backend/internal/rooms"
	"github.com/hushhour/backend/pkg/qr"
	"github.com/hushhour/backend/pkg/response"
)

const (
	minContentLen = 3
	maxContentLen = 500
	minVoterIDLen = 10
)

// SubmitRequest is the body for POST /api/rooms/:code/questions.
type SubmitRequest struct {
	Content string `json:"content" binding:"required"`
	VoterID string `json:"voter_id" binding:"required"`
}

// VoteRequest is the body for the vote endpoint.
type VoteRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
}

// ReplyRequest is the body for the organizer reply endpoint.
type ReplyRequest struct {
	ReplyText string `json:"reply_text" binding:"required"`
}

// DashboardResponse is the organizer's full view of a room.
type DashboardResponse struct {
	Room      *models.Room      `json:"room"`
	Questions []models.Question `json:"questions"`
	QRCode    string            `json:"qr_code"`
}

// Handler handles question HTTP endpoints for attendees and organizers.
type Handler struct {
	store       Store
	roomStore   rooms.Store
	hub         *realtime.Hub
	clock       clockwork.Clock
	frontendURL string
	logger      *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(store Store, roomStore rooms.Store, hub *realtime.Hub, clock clockwork.Clock, frontendURL string, logger *zap.Logger) *Handler {
	return &Handler{store: store, roomStore: roomStore, hub: hub, clock: clock, frontendURL: frontendURL, logger: logger}
}

// Submit handles POST /api/rooms/:code/questions (attendee asks a question).
// Submissions are accepted while the room is waiting so a queue can build
// before go-live, and rejected once the room ends or expires.
func (h *Handler) Submit(c *gin.Context) {
	room, err := h.roomStore.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !room.Open(h.clock.Now()) {
		response.Error(c, models.ErrSessionClosed)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if len(content) < minContentLen || len(content) > maxContentLen {
		response.BadRequest(c, "question must be 3-500 characters")
		return
	}
	if len(req.VoterID) < minVoterIDLen {
		response.BadRequest(c, "invalid voter_id")
		return
	}

	q := &models.Question{
		ID:        uuid.New(),
		RoomID:    room.ID,
		Content:   content,
		CreatedAt: h.clock.Now().UTC(),
	}
	if err := h.store.CreateQuestion(c.Request.Context(), q); err != nil {
		h.logger.Error("create question", zap.Error(err))
		response.Internal(c, "failed to create question")
		return
	}

	h.hub.Publish(models.Event{Type: models.EventQuestionCreated, RoomID: room.ID})
	response.Created(c, q)
}

// List handles GET /api/rooms/:code/questions?sort=top|latest|answered.
// Listing stays available after a room ends or expires so the history is
// still readable; only mutations are gated.
func (h *Handler) List(c *gin.Context) {
	room, err := h.roomStore.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	mode, err := ParseSortMode(c.Query("sort"))
	if err != nil {
		response.BadRequest(c, "sort must be top, latest or answered")
		return
	}
	list, err := h.store.ListQuestions(c.Request.Context(), room.ID)
	if err != nil {
		h.logger.Error("list questions", zap.Error(err))
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": Order(mode, list)})
}

// Vote handles POST /api/rooms/:code/questions/:id/vote. One vote per
// (question, voter); the ledger, not the client, is the correctness boundary.
func (h *Handler) Vote(c *gin.Context) {
	room, err := h.roomStore.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !room.Open(h.clock.Now()) {
		response.Error(c, models.ErrSessionClosed)
		return
	}
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.VoterID) < minVoterIDLen {
		response.BadRequest(c, "invalid voter_id")
		return
	}

	votes, err := h.store.RecordVote(c.Request.Context(), room.ID, questionID, req.VoterID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.hub.Publish(models.Event{Type: models.EventQuestionUpdated, RoomID: room.ID})
	response.OK(c, gin.H{"id": questionID, "votes": votes})
}

// Dashboard handles GET /api/organizer/:code/:token, the organizer's
// room view with the full question list and the join QR code.
func (h *Handler) Dashboard(c *gin.Context) {
	room, err := h.authorize(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	mode, err := ParseSortMode(c.Query("sort"))
	if err != nil {
		response.BadRequest(c, "sort must be top, latest or answered")
		return
	}
	list, err := h.store.ListQuestions(c.Request.Context(), room.ID)
	if err != nil {
		h.logger.Error("list questions", zap.Error(err))
		response.Internal(c, "failed to list questions")
		return
	}
	qrCode, err := qr.EncodeBase64(qr.JoinURL(h.frontendURL, room.Code))
	if err != nil {
		h.logger.Warn("qr generation failed", zap.String("code", room.Code), zap.Error(err))
	}
	response.OK(c, DashboardResponse{Room: room, Questions: Order(mode, list), QRCode: qrCode})
}

// Reply handles POST /api/organizer/:code/:token/reply/:question_id.
// Setting a reply always marks the question answered.
func (h *Handler) Reply(c *gin.Context) {
	room, err := h.authorize(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !room.Open(h.clock.Now()) {
		response.Error(c, models.ErrSessionClosed)
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reply := strings.TrimSpace(req.ReplyText)
	if reply == "" || len(reply) > maxContentLen {
		response.BadRequest(c, "reply must be 1-500 characters")
		return
	}

	q, err := h.store.SetReply(c.Request.Context(), room.ID, questionID, reply)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.hub.Publish(models.Event{Type: models.EventQuestionUpdated, RoomID: room.ID})
	response.OK(c, q)
}

// MarkAnswered handles POST /api/organizer/:code/:token/mark_answered/:question_id.
// Sets answered without requiring a reply; repeat calls are no-ops.
func (h *Handler) MarkAnswered(c *gin.Context) {
	room, err := h.authorize(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !room.Open(h.clock.Now()) {
		response.Error(c, models.ErrSessionClosed)
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}

	q, err := h.store.MarkAnswered(c.Request.Context(), room.ID, questionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.hub.Publish(models.Event{Type: models.EventQuestionUpdated, RoomID: room.ID})
	response.OK(c, q)
}

func (h *Handler) authorize(c *gin.Context) (*models.Room, error) {
	return rooms.Authorize(c.Request.Context(), h.roomStore, c.Param("code"), c.Param("token"))
}
