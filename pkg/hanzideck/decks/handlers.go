package decks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/apperrors"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

// Handler handles deck-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new decks handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateDeckRequest represents the request to create a deck
type CreateDeckRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
}

// UpdateDeckRequest represents the request to update a deck
type UpdateDeckRequest struct {
	Name        string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

// DeckResponse represents a deck in API responses
type DeckResponse struct {
	ID          uint   `json:"id"`
	PublicID    string `json:"public_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CardCount   int    `json:"card_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (h *Handler) deckToResponse(deck models.Deck) (DeckResponse, error) {
	var count int64
	if err := h.db.Table("deck_flashcards").Where("deck_id = ?", deck.ID).Count(&count).Error; err != nil {
		return DeckResponse{}, err
	}
	return DeckResponse{
		ID:          deck.ID,
		PublicID:    deck.PublicID,
		Name:        deck.Name,
		Description: deck.Description,
		CardCount:   int(count),
		CreatedAt:   deck.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   deck.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}, nil
}

func (h *Handler) findDeck(c *gin.Context) (*models.Deck, bool) {
	deckID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
		return nil, false
	}
	var deck models.Deck
	if err := h.db.First(&deck, uint(deckID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return nil, false
	}
	return &deck, true
}

// List returns all decks
// @Summary List decks
// @Produce json
// @Success 200 {array} DeckResponse
// @Router /decks [get]
func (h *Handler) List(c *gin.Context) {
	var decks []models.Deck
	if err := h.db.Order("name ASC").Find(&decks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch decks"})
		return
	}

	responses := make([]DeckResponse, len(decks))
	for i, d := range decks {
		resp, err := h.deckToResponse(d)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch decks"})
			return
		}
		responses[i] = resp
	}
	c.JSON(http.StatusOK, responses)
}

// Get returns a single deck
func (h *Handler) Get(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}
	resp, err := h.deckToResponse(*deck)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deck"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a new deck
// @Summary Create a deck
// @Accept json
// @Produce json
// @Param deck body CreateDeckRequest true "Deck"
// @Success 201 {object} DeckResponse
// @Failure 409 {object} map[string]string "Name already taken"
// @Router /decks [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Deck
	if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		conflict := apperrors.Conflict("A deck with this name already exists")
		c.JSON(apperrors.HTTPStatus(conflict), gin.H{"error": conflict.Error()})
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deck"})
		return
	}

	deck := models.Deck{
		PublicID:    publicID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.Create(&deck).Error; err != nil {
		// The unique index on name backstops the check above
		conflict := apperrors.Conflict("A deck with this name already exists")
		c.JSON(apperrors.HTTPStatus(conflict), gin.H{"error": conflict.Error()})
		return
	}

	resp, err := h.deckToResponse(deck)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deck"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update updates a deck's name or description
func (h *Handler) Update(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}

	var req UpdateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" && req.Name != deck.Name {
		var existing models.Deck
		if err := h.db.Where("name = ? AND id != ?", req.Name, deck.ID).First(&existing).Error; err == nil {
			conflict := apperrors.Conflict("A deck with this name already exists")
			c.JSON(apperrors.HTTPStatus(conflict), gin.H{"error": conflict.Error()})
			return
		}
		deck.Name = req.Name
	}
	if req.Description != nil {
		deck.Description = *req.Description
	}

	if err := h.db.Save(deck).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update deck"})
		return
	}
	resp, err := h.deckToResponse(*deck)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deck"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete deletes a deck and its membership edges. Study session history
// for the deck is kept (sessions are append-only).
func (h *Handler) Delete(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}

	if err := h.db.Model(deck).Association("Flashcards").Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete deck"})
		return
	}
	// Hard delete: a soft-deleted row would keep holding the unique name
	// and public ID, blocking name reuse and revise-deck recreation.
	if err := h.db.Unscoped().Delete(deck).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete deck"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deck deleted"})
}

// RegisterRoutes registers deck routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/decks", h.List)
	rg.POST("/decks", h.Create)
	rg.GET("/decks/:id", h.Get)
	rg.PUT("/decks/:id", h.Update)
	rg.DELETE("/decks/:id", h.Delete)

	// Membership engine
	rg.GET("/decks/:id/flashcards", h.ListFlashcards)
	rg.POST("/decks/:id/flashcards/:cardId", h.AttachFlashcard)
	rg.DELETE("/decks/:id/flashcards/:cardId", h.DetachFlashcard)
	rg.POST("/decks/:id/tags/:tag", h.AttachByTag)
}
