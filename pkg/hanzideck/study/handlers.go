package study

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/apperrors"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/revise"
)

// Handler handles study-related requests: per-card judgments and
// completed session records. Judgments flow through the revise protocol;
// session rows are independent history and never touch streak state.
type Handler struct {
	db       *gorm.DB
	protocol *revise.Protocol
}

// NewHandler creates a new study handler
func NewHandler(db *gorm.DB, protocol *revise.Protocol) *Handler {
	return &Handler{db: db, protocol: protocol}
}

// JudgmentRequest represents one correct/incorrect judgment for a card
// studied in a deck. Correct is a pointer so that an explicit false
// survives required-field binding.
type JudgmentRequest struct {
	FlashcardID uint  `json:"flashcard_id" binding:"required"`
	DeckID      uint  `json:"deck_id" binding:"required"`
	Correct     *bool `json:"correct" binding:"required"`
}

// CreateSessionRequest represents a completed study run
type CreateSessionRequest struct {
	DeckID    uint             `json:"deck_id" binding:"required"`
	Correct   int              `json:"correct" binding:"min=0"`
	Incorrect int              `json:"incorrect" binding:"min=0"`
	Mode      models.StudyMode `json:"mode"`
	StartedAt *time.Time       `json:"started_at"`
}

// SessionResponse represents a study session in API responses
type SessionResponse struct {
	ID             uint             `json:"id"`
	DeckID         uint             `json:"deck_id"`
	StartedAt      string           `json:"started_at"`
	EndedAt        string           `json:"ended_at,omitempty"`
	CorrectCount   int              `json:"correct_count"`
	IncorrectCount int              `json:"incorrect_count"`
	Mode           models.StudyMode `json:"mode"`
}

func sessionToResponse(s models.StudySession) SessionResponse {
	resp := SessionResponse{
		ID:             s.ID,
		DeckID:         s.DeckID,
		StartedAt:      s.StartedAt.Format("2006-01-02T15:04:05Z"),
		CorrectCount:   s.CorrectCount,
		IncorrectCount: s.IncorrectCount,
		Mode:           s.Mode,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// RecordJudgment records one per-card judgment and returns the card's
// revise-deck state transition
// @Summary Record a study judgment
// @Accept json
// @Produce json
// @Param judgment body JudgmentRequest true "Judgment"
// @Success 200 {object} revise.JudgmentResult
// @Failure 404 {object} map[string]string "Flashcard not found"
// @Router /study/judgments [post]
func (h *Handler) RecordJudgment(c *gin.Context) {
	var req JudgmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.protocol.RecordJudgment(req.FlashcardID, req.DeckID, *req.Correct)
	if err != nil {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateSession records one completed study run as an immutable row.
// Sessions are written after completion, so EndedAt is set at creation.
// @Summary Record a completed study session
// @Accept json
// @Produce json
// @Param session body CreateSessionRequest true "Session"
// @Success 201 {object} SessionResponse
// @Failure 404 {object} map[string]string "Deck not found"
// @Router /study/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = models.StudyModeNormal
	}
	if !models.ValidStudyMode(mode) {
		invalid := apperrors.Validation("Invalid study mode")
		c.JSON(apperrors.HTTPStatus(invalid), gin.H{"error": invalid.Error()})
		return
	}

	var deck models.Deck
	if err := h.db.First(&deck, req.DeckID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}

	now := time.Now().UTC()
	startedAt := now
	if req.StartedAt != nil {
		startedAt = req.StartedAt.UTC()
	}

	session := models.StudySession{
		DeckID:         deck.ID,
		StartedAt:      startedAt,
		EndedAt:        &now,
		CorrectCount:   req.Correct,
		IncorrectCount: req.Incorrect,
		Mode:           mode,
	}
	if err := h.db.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record session"})
		return
	}

	c.JSON(http.StatusCreated, sessionToResponse(session))
}

// ListSessions returns study sessions, newest first, optionally for one deck
// @Summary List study sessions
// @Produce json
// @Param deck_id query int false "Filter by deck"
// @Success 200 {array} SessionResponse
// @Router /study/sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	query := h.db.Order("started_at DESC")

	if deckParam := c.Query("deck_id"); deckParam != "" {
		deckID, err := strconv.ParseUint(deckParam, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
			return
		}
		query = query.Where("deck_id = ?", uint(deckID))
	}

	var sessions []models.StudySession
	if err := query.Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	responses := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = sessionToResponse(s)
	}
	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers study routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/study/judgments", h.RecordJudgment)
	rg.POST("/study/sessions", h.CreateSession)
	rg.GET("/study/sessions", h.ListSessions)
}
