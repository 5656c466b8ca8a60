package flashcards

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/revise"
)

// Handler handles flashcard-related requests
type Handler struct {
	db     *gorm.DB
	ledger *revise.Ledger
}

// NewHandler creates a new flashcards handler. The ledger is needed so
// that deleting a flashcard can also drop its streak record.
func NewHandler(db *gorm.DB, ledger *revise.Ledger) *Handler {
	return &Handler{db: db, ledger: ledger}
}

// CreateFlashcardRequest represents the request to create a flashcard
type CreateFlashcardRequest struct {
	Character string   `json:"character" binding:"required,min=1,max=50"`
	Pinyin    string   `json:"pinyin"`
	Meaning   string   `json:"meaning"`
	Tags      []string `json:"tags"`
}

// UpdateFlashcardRequest represents the request to update a flashcard.
// A non-nil Tags slice replaces the card's tag set.
type UpdateFlashcardRequest struct {
	Character string    `json:"character" binding:"omitempty,min=1,max=50"`
	Pinyin    *string   `json:"pinyin"`
	Meaning   *string   `json:"meaning"`
	Tags      *[]string `json:"tags"`
}

// FlashcardResponse represents a flashcard in API responses, with tag
// names flattened for display
type FlashcardResponse struct {
	ID        uint     `json:"id"`
	Character string   `json:"character"`
	Pinyin    string   `json:"pinyin"`
	Meaning   string   `json:"meaning"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func cardToResponse(card models.Flashcard) FlashcardResponse {
	tags := make([]string, len(card.Tags))
	for i, t := range card.Tags {
		tags[i] = t.Name
	}
	return FlashcardResponse{
		ID:        card.ID,
		Character: card.Character,
		Pinyin:    card.Pinyin,
		Meaning:   card.Meaning,
		Tags:      tags,
		CreatedAt: card.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: card.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ResolveTags maps tag names to Tag rows, creating missing ones. The
// unique index on tags.name closes the create race: a loser re-reads
// the winner's row instead of erroring.
func ResolveTags(db *gorm.DB, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	for _, name := range names {
		if name == "" {
			continue
		}

		var tag models.Tag
		if err := db.Where("name = ?", name).First(&tag).Error; err == nil {
			tags = append(tags, tag)
			continue
		}

		tag = models.Tag{Name: name}
		if err := db.Create(&tag).Error; err != nil {
			if ferr := db.Where("name = ?", name).First(&tag).Error; ferr != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (h *Handler) findFlashcard(c *gin.Context) (*models.Flashcard, bool) {
	cardID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
		return nil, false
	}
	var card models.Flashcard
	if err := h.db.Preload("Tags").First(&card, uint(cardID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard not found"})
		return nil, false
	}
	return &card, true
}

// List returns all flashcards, optionally filtered by tag name
// @Summary List flashcards
// @Produce json
// @Param tag query string false "Filter by tag name"
// @Success 200 {array} FlashcardResponse
// @Router /flashcards [get]
func (h *Handler) List(c *gin.Context) {
	query := h.db.Preload("Tags").Order("flashcards.created_at DESC")

	if tag := c.Query("tag"); tag != "" {
		query = query.
			Joins("INNER JOIN flashcard_tags ON flashcard_tags.flashcard_id = flashcards.id").
			Joins("INNER JOIN tags ON tags.id = flashcard_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	var cards []models.Flashcard
	if err := query.Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch flashcards"})
		return
	}

	responses := make([]FlashcardResponse, len(cards))
	for i, card := range cards {
		responses[i] = cardToResponse(card)
	}
	c.JSON(http.StatusOK, responses)
}

// Get returns a single flashcard
func (h *Handler) Get(c *gin.Context) {
	card, ok := h.findFlashcard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cardToResponse(*card))
}

// Create creates a flashcard, resolving tag names to rows
// @Summary Create a flashcard
// @Accept json
// @Produce json
// @Param flashcard body CreateFlashcardRequest true "Flashcard"
// @Success 201 {object} FlashcardResponse
// @Router /flashcards [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateFlashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := ResolveTags(h.db, req.Tags)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve tags"})
		return
	}

	card := models.Flashcard{
		Character: req.Character,
		Pinyin:    req.Pinyin,
		Meaning:   req.Meaning,
		Tags:      tags,
	}
	if err := h.db.Create(&card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create flashcard"})
		return
	}

	c.JSON(http.StatusCreated, cardToResponse(card))
}

// Update updates a flashcard; a provided tag list replaces the old set
func (h *Handler) Update(c *gin.Context) {
	card, ok := h.findFlashcard(c)
	if !ok {
		return
	}

	var req UpdateFlashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Character != "" {
		card.Character = req.Character
	}
	if req.Pinyin != nil {
		card.Pinyin = *req.Pinyin
	}
	if req.Meaning != nil {
		card.Meaning = *req.Meaning
	}

	if err := h.db.Save(card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update flashcard"})
		return
	}

	if req.Tags != nil {
		tags, err := ResolveTags(h.db, *req.Tags)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve tags"})
			return
		}
		if err := h.db.Model(card).Association("Tags").Replace(tags); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tags"})
			return
		}
		card.Tags = tags
	}

	c.JSON(http.StatusOK, cardToResponse(*card))
}

// Delete deletes a flashcard, detaching every tag and deck edge and
// dropping any streak record so no tracking state is left behind
func (h *Handler) Delete(c *gin.Context) {
	card, ok := h.findFlashcard(c)
	if !ok {
		return
	}

	if err := h.db.Model(card).Association("Tags").Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flashcard"})
		return
	}
	if err := h.db.Model(card).Association("Decks").Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flashcard"})
		return
	}
	if err := h.ledger.Delete(card.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flashcard"})
		return
	}
	if err := h.db.Delete(card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flashcard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Flashcard deleted"})
}

// RegisterRoutes registers flashcard routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/flashcards", h.List)
	rg.POST("/flashcards", h.Create)
	rg.GET("/flashcards/:id", h.Get)
	rg.PUT("/flashcards/:id", h.Update)
	rg.DELETE("/flashcards/:id", h.Delete)
}
