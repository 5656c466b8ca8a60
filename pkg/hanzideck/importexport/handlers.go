package importexport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/flashcards"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

// Handler handles import/export requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// FlashcardDocument represents a flashcard in the nested export format
type FlashcardDocument struct {
	Character string   `json:"character"`
	Pinyin    string   `json:"pinyin,omitempty"`
	Meaning   string   `json:"meaning,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// DeckDocument represents a full deck as a nested document:
// deck -> flashcards -> tag name lists. Decks and tags are referenced
// by name on import, not by identifier.
type DeckDocument struct {
	PublicID    string              `json:"public_id,omitempty"`
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description,omitempty"`
	Flashcards  []FlashcardDocument `json:"flashcards" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// findOrCreateDeck resolves a deck by name, creating it if absent
func (h *Handler) findOrCreateDeck(name, description string) (*models.Deck, error) {
	var deck models.Deck
	err := h.db.Where("name = ?", name).First(&deck).Error
	if err == nil {
		return &deck, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	publicID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	deck = models.Deck{PublicID: publicID, Name: name, Description: description}
	if err := h.db.Create(&deck).Error; err != nil {
		// unique name index: someone else created it, use theirs
		if ferr := h.db.Where("name = ?", name).First(&deck).Error; ferr == nil {
			return &deck, nil
		}
		return nil, err
	}
	return &deck, nil
}

// importCard places one flashcard document into a deck. Cards already in
// the deck (matched by character) are skipped; an existing flashcard with
// the same character is reused rather than duplicated.
func (h *Handler) importCard(deck *models.Deck, doc FlashcardDocument) (imported bool, err error) {
	var card models.Flashcard
	err = h.db.Where("character = ?", doc.Character).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		card = models.Flashcard{
			Character: doc.Character,
			Pinyin:    doc.Pinyin,
			Meaning:   doc.Meaning,
		}
		if err := h.db.Create(&card).Error; err != nil {
			return false, err
		}
	} else if err != nil {
		return false, err
	}

	if len(doc.Tags) > 0 {
		tags, err := flashcards.ResolveTags(h.db, doc.Tags)
		if err != nil {
			return false, err
		}
		if err := h.db.Model(&card).Association("Tags").Append(tags); err != nil {
			return false, err
		}
	}

	var count int64
	if err := h.db.Table("deck_flashcards").
		Where("deck_id = ? AND flashcard_id = ?", deck.ID, card.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := h.db.Model(deck).Association("Flashcards").Append(&card); err != nil {
		return false, err
	}
	return true, nil
}

// ExportDeck exports a deck with its flashcards and tag names
// @Summary Export a deck as a nested document
// @Produce json
// @Param id path int true "Deck ID"
// @Success 200 {object} DeckDocument
// @Router /export/decks/{id} [get]
func (h *Handler) ExportDeck(c *gin.Context) {
	deckID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
		return
	}

	var deck models.Deck
	if err := h.db.Preload("Flashcards.Tags").First(&deck, uint(deckID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}

	doc := DeckDocument{
		PublicID:    deck.PublicID,
		Name:        deck.Name,
		Description: deck.Description,
		Flashcards:  make([]FlashcardDocument, len(deck.Flashcards)),
	}
	for i, card := range deck.Flashcards {
		tags := make([]string, len(card.Tags))
		for j, t := range card.Tags {
			tags[j] = t.Name
		}
		doc.Flashcards[i] = FlashcardDocument{
			Character: card.Character,
			Pinyin:    card.Pinyin,
			Meaning:   card.Meaning,
			Tags:      tags,
		}
	}

	c.JSON(http.StatusOK, doc)
}

// ImportDeck imports a nested deck document, resolving the deck and all
// tags by name and skipping cards already present in the deck
// @Summary Import a deck document
// @Accept json
// @Produce json
// @Param deck body DeckDocument true "Deck document"
// @Success 200 {object} ImportResult
// @Router /import/decks [post]
func (h *Handler) ImportDeck(c *gin.Context) {
	var doc DeckDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deck, err := h.findOrCreateDeck(doc.Name, doc.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve deck"})
		return
	}

	result := ImportResult{Errors: []string{}}
	for i, cardDoc := range doc.Flashcards {
		if cardDoc.Character == "" {
			result.Errors = append(result.Errors, "flashcard "+strconv.Itoa(i)+": missing character")
			result.Skipped++
			continue
		}
		imported, err := h.importCard(deck, cardDoc)
		if err != nil {
			result.Errors = append(result.Errors, "flashcard "+strconv.Itoa(i)+": "+err.Error())
			result.Skipped++
			continue
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	c.JSON(http.StatusOK, result)
}

// ImportXLSX imports flashcards from an uploaded spreadsheet. Expected
// columns: character, pinyin, meaning, comma-separated tags. The first
// row is treated as a header and skipped. An optional deck_name form
// field attaches the imported cards to that deck.
// @Summary Import flashcards from an .xlsx upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Param deck_name formData string false "Deck to attach cards to"
// @Success 200 {object} ImportResult
// @Router /import/flashcards/xlsx [post]
func (h *Handler) ImportXLSX(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a valid spreadsheet"})
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read sheet"})
		return
	}

	var deck *models.Deck
	if deckName := c.PostForm("deck_name"); deckName != "" {
		deck, err = h.findOrCreateDeck(deckName, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve deck"})
			return
		}
	}

	result := ImportResult{Errors: []string{}}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			result.Skipped++
			continue
		}

		doc := FlashcardDocument{Character: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			doc.Pinyin = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			doc.Meaning = strings.TrimSpace(row[2])
		}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			for _, name := range strings.Split(row[3], ",") {
				if name = strings.TrimSpace(name); name != "" {
					doc.Tags = append(doc.Tags, name)
				}
			}
		}

		if deck != nil {
			imported, err := h.importCard(deck, doc)
			if err != nil {
				result.Errors = append(result.Errors, "row "+strconv.Itoa(i+1)+": "+err.Error())
				result.Skipped++
				continue
			}
			if imported {
				result.Imported++
			} else {
				result.Skipped++
			}
			continue
		}

		// No deck: create or reuse the card and its tags only
		var card models.Flashcard
		err := h.db.Where("character = ?", doc.Character).First(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			card = models.Flashcard{Character: doc.Character, Pinyin: doc.Pinyin, Meaning: doc.Meaning}
			if err := h.db.Create(&card).Error; err != nil {
				result.Errors = append(result.Errors, "row "+strconv.Itoa(i+1)+": "+err.Error())
				result.Skipped++
				continue
			}
		} else if err != nil {
			result.Errors = append(result.Errors, "row "+strconv.Itoa(i+1)+": "+err.Error())
			result.Skipped++
			continue
		} else {
			result.Skipped++
			continue
		}

		if len(doc.Tags) > 0 {
			tags, terr := flashcards.ResolveTags(h.db, doc.Tags)
			if terr == nil {
				terr = h.db.Model(&card).Association("Tags").Append(tags)
			}
			if terr != nil {
				result.Errors = append(result.Errors, "row "+strconv.Itoa(i+1)+": "+terr.Error())
				result.Skipped++
				continue
			}
		}
		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export/decks/:id", h.ExportDeck)
	rg.POST("/import/decks", h.ImportDeck)
	rg.POST("/import/flashcards/xlsx", h.ImportXLSX)
}
