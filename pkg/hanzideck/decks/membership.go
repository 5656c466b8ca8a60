package decks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/apperrors"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

// MemberResponse represents a flashcard inside a deck listing, with tag
// names flattened for display
type MemberResponse struct {
	ID        uint     `json:"id"`
	Character string   `json:"character"`
	Pinyin    string   `json:"pinyin"`
	Meaning   string   `json:"meaning"`
	Tags      []string `json:"tags"`
}

// AttachByTagResponse reports how many cards a tag attach added
type AttachByTagResponse struct {
	Attached int `json:"attached"`
}

func memberToResponse(card models.Flashcard) MemberResponse {
	tags := make([]string, len(card.Tags))
	for i, t := range card.Tags {
		tags[i] = t.Name
	}
	return MemberResponse{
		ID:        card.ID,
		Character: card.Character,
		Pinyin:    card.Pinyin,
		Meaning:   card.Meaning,
		Tags:      tags,
	}
}

func (h *Handler) findFlashcardParam(c *gin.Context) (*models.Flashcard, bool) {
	cardID, err := strconv.ParseUint(c.Param("cardId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
		return nil, false
	}
	var card models.Flashcard
	if err := h.db.First(&card, uint(cardID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard not found"})
		return nil, false
	}
	return &card, true
}

// isMember checks the membership edge directly in the join table
func (h *Handler) isMember(flashcardID, deckID uint) (bool, error) {
	var count int64
	err := h.db.Table("deck_flashcards").
		Where("deck_id = ? AND flashcard_id = ?", deckID, flashcardID).
		Count(&count).Error
	return count > 0, err
}

// memberIDs returns the IDs of all flashcards currently in the deck
func (h *Handler) memberIDs(deckID uint) ([]uint, error) {
	var ids []uint
	err := h.db.Table("deck_flashcards").
		Where("deck_id = ?", deckID).
		Pluck("flashcard_id", &ids).Error
	return ids, err
}

// ListFlashcards returns the deck's membership set
// @Summary List flashcards in a deck
// @Produce json
// @Param id path int true "Deck ID"
// @Success 200 {array} MemberResponse
// @Router /decks/{id}/flashcards [get]
func (h *Handler) ListFlashcards(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}

	var cards []models.Flashcard
	err := h.db.Preload("Tags").
		Joins("INNER JOIN deck_flashcards ON deck_flashcards.flashcard_id = flashcards.id").
		Where("deck_flashcards.deck_id = ?", deck.ID).
		Order("flashcards.created_at ASC").
		Find(&cards).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch flashcards"})
		return
	}

	responses := make([]MemberResponse, len(cards))
	for i, card := range cards {
		responses[i] = memberToResponse(card)
	}
	c.JSON(http.StatusOK, responses)
}

// AttachFlashcard adds a flashcard to the deck's membership set
// @Summary Attach a flashcard to a deck
// @Param id path int true "Deck ID"
// @Param cardId path int true "Flashcard ID"
// @Success 201 {object} map[string]string
// @Failure 404 {object} map[string]string "Deck or flashcard not found"
// @Failure 409 {object} map[string]string "Already a member"
// @Router /decks/{id}/flashcards/{cardId} [post]
func (h *Handler) AttachFlashcard(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}
	card, ok := h.findFlashcardParam(c)
	if !ok {
		return
	}

	member, err := h.isMember(card.ID, deck.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if member {
		conflict := apperrors.Conflict("Flashcard is already in this deck")
		c.JSON(apperrors.HTTPStatus(conflict), gin.H{"error": conflict.Error()})
		return
	}

	if err := h.db.Model(deck).Association("Flashcards").Append(card); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach flashcard"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Flashcard attached"})
}

// DetachFlashcard removes a flashcard from the deck's membership set
func (h *Handler) DetachFlashcard(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}
	card, ok := h.findFlashcardParam(c)
	if !ok {
		return
	}

	member, err := h.isMember(card.ID, deck.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard is not in this deck"})
		return
	}

	if err := h.db.Model(deck).Association("Flashcards").Delete(card); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detach flashcard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Flashcard detached"})
}

// AttachByTag attaches every flashcard carrying the given tag that is
// not already a member. Idempotent: a second call attaches zero.
// @Summary Attach all flashcards with a tag to a deck
// @Param id path int true "Deck ID"
// @Param tag path string true "Tag name"
// @Success 200 {object} AttachByTagResponse
// @Failure 404 {object} map[string]string "No flashcards carry the tag"
// @Router /decks/{id}/tags/{tag} [post]
func (h *Handler) AttachByTag(c *gin.Context) {
	deck, ok := h.findDeck(c)
	if !ok {
		return
	}
	tagName := c.Param("tag")

	var cards []models.Flashcard
	err := h.db.
		Joins("INNER JOIN flashcard_tags ON flashcard_tags.flashcard_id = flashcards.id").
		Joins("INNER JOIN tags ON tags.id = flashcard_tags.tag_id").
		Where("tags.name = ?", tagName).
		Find(&cards).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve tag"})
		return
	}
	if len(cards) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No flashcards carry this tag"})
		return
	}

	existing, err := h.memberIDs(deck.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	members := make(map[uint]bool, len(existing))
	for _, id := range existing {
		members[id] = true
	}

	attached := 0
	for i := range cards {
		if members[cards[i].ID] {
			continue
		}
		if err := h.db.Model(deck).Association("Flashcards").Append(&cards[i]); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach flashcards"})
			return
		}
		attached++
	}

	c.JSON(http.StatusOK, AttachByTagResponse{Attached: attached})
}
