package tags

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"card_count,omitempty"`
}

// List returns all tags with flashcard counts, most used first
// @Summary List tags
// @Produce json
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	type tagWithCount struct {
		ID        uint
		Name      string
		CardCount int
	}

	var results []tagWithCount
	err := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT flashcards.id) as card_count").
		Joins("LEFT JOIN flashcard_tags ON tags.id = flashcard_tags.tag_id").
		Joins("LEFT JOIN flashcards ON flashcard_tags.flashcard_id = flashcards.id AND flashcards.deleted_at IS NULL").
		Group("tags.id").
		Order("card_count DESC").
		Find(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := make([]TagResponse, len(results))
	for i, r := range results {
		tags[i] = TagResponse{
			ID:        r.ID,
			Name:      r.Name,
			CardCount: r.CardCount,
		}
	}
	c.JSON(http.StatusOK, tags)
}

// Delete removes a tag and detaches it from every flashcard
func (h *Handler) Delete(c *gin.Context) {
	tagID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, uint(tagID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	if err := h.db.Model(&tag).Association("Flashcards").Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag"})
		return
	}
	if err := h.db.Delete(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.DELETE("/tags/:id", h.Delete)
}
