package decks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func createTestDeck(t *testing.T, db *gorm.DB, name string) models.Deck {
	deck := models.Deck{PublicID: "pub-" + name, Name: name}
	if err := db.Create(&deck).Error; err != nil {
		t.Fatalf("Failed to create test deck: %v", err)
	}
	return deck
}

func createTestCard(t *testing.T, db *gorm.DB, character string, tagNames ...string) models.Flashcard {
	tags := make([]models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		var tag models.Tag
		if err := db.Where("name = ?", name).First(&tag).Error; err != nil {
			tag = models.Tag{Name: name}
			db.Create(&tag)
		}
		tags = append(tags, tag)
	}
	card := models.Flashcard{Character: character, Tags: tags}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("Failed to create test flashcard: %v", err)
	}
	return card
}

func TestCreateDeck(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body, _ := json.Marshal(CreateDeckRequest{Name: "hsk1", Description: "First level vocabulary"})
	req, _ := http.NewRequest("POST", "/api/decks", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var deck DeckResponse
	json.Unmarshal(resp.Body.Bytes(), &deck)
	if deck.Name != "hsk1" {
		t.Errorf("Expected name hsk1, got %s", deck.Name)
	}
	if deck.PublicID == "" {
		t.Error("Expected a public ID to be generated")
	}
}

func TestCreateDeckDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestDeck(t, db, "hsk1")

	body, _ := json.Marshal(CreateDeckRequest{Name: "hsk1"})
	req, _ := http.NewRequest("POST", "/api/decks", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestAttachFlashcard(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	card := createTestCard(t, db, "学")

	url := fmt.Sprintf("/api/decks/%d/flashcards/%d", deck.ID, card.ID)
	req, _ := http.NewRequest("POST", url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	// Attaching again conflicts
	req, _ = http.NewRequest("POST", url, nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on duplicate attach, got %d", resp.Code)
	}
}

func TestAttachFlashcardNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")

	// Missing flashcard
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/decks/%d/flashcards/999", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing flashcard, got %d", resp.Code)
	}

	// Missing deck
	card := createTestCard(t, db, "学")
	req, _ = http.NewRequest("POST", fmt.Sprintf("/api/decks/999/flashcards/%d", card.ID), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing deck, got %d", resp.Code)
	}
}

func TestDetachFlashcard(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	card := createTestCard(t, db, "学")
	db.Model(&deck).Association("Flashcards").Append(&card)

	url := fmt.Sprintf("/api/decks/%d/flashcards/%d", deck.ID, card.ID)
	req, _ := http.NewRequest("DELETE", url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Table("deck_flashcards").Where("deck_id = ?", deck.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no membership edges, got %d", count)
	}

	// Detaching a non-member is a 404
	req, _ = http.NewRequest("DELETE", url, nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-member, got %d", resp.Code)
	}
}

func TestAttachByTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	createTestCard(t, db, "学", "verbs")
	createTestCard(t, db, "习", "verbs")
	card3 := createTestCard(t, db, "好", "adjectives")

	url := fmt.Sprintf("/api/decks/%d/tags/verbs", deck.ID)
	req, _ := http.NewRequest("POST", url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result AttachByTagResponse
	json.Unmarshal(resp.Body.Bytes(), &result)
	if result.Attached != 2 {
		t.Errorf("Expected 2 cards attached, got %d", result.Attached)
	}

	var count int64
	db.Table("deck_flashcards").Where("deck_id = ?", deck.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 membership edges, got %d", count)
	}
	db.Table("deck_flashcards").
		Where("deck_id = ? AND flashcard_id = ?", deck.ID, card3.ID).
		Count(&count)
	if count != 0 {
		t.Error("Expected card with a different tag to stay out")
	}
}

func TestAttachByTagIdempotent(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	createTestCard(t, db, "学", "verbs")

	url := fmt.Sprintf("/api/decks/%d/tags/verbs", deck.ID)
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("POST", url, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.Code)
		}

		var result AttachByTagResponse
		json.Unmarshal(resp.Body.Bytes(), &result)
		expected := 1
		if i > 0 {
			expected = 0
		}
		if result.Attached != expected {
			t.Errorf("Call %d: expected %d attached, got %d", i+1, expected, result.Attached)
		}
	}
}

func TestAttachByTagUnknownTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/decks/%d/tags/nope", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestListFlashcardsFlattensTags(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	card := createTestCard(t, db, "学", "verbs", "hsk1")
	db.Model(&deck).Association("Flashcards").Append(&card)

	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/decks/%d/flashcards", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var members []MemberResponse
	json.Unmarshal(resp.Body.Bytes(), &members)
	if len(members) != 1 {
		t.Fatalf("Expected 1 member, got %d", len(members))
	}
	if len(members[0].Tags) != 2 {
		t.Errorf("Expected 2 flattened tag names, got %v", members[0].Tags)
	}
}

// A deleted deck must release its name: with soft delete the unique
// index would still hold it and block both user recreation and the lazy
// revise-deck singleton.
func TestDeleteDeckFreesName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/decks/%d", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	// The row is really gone, not soft-deleted under the unique index
	var count int64
	db.Unscoped().Model(&models.Deck{}).Where("name = ?", "hsk1").Count(&count)
	if count != 0 {
		t.Fatalf("Expected deck row to be hard deleted, found %d row(s)", count)
	}

	body, _ := json.Marshal(CreateDeckRequest{Name: "hsk1"})
	req, _ = http.NewRequest("POST", "/api/decks", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Errorf("Expected name to be reusable after delete, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetDeckCountFailure(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")

	// Break the join table so the card count query fails
	if err := db.Migrator().DropTable("deck_flashcards"); err != nil {
		t.Fatalf("Failed to drop join table: %v", err)
	}

	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/decks/%d", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 when the count query fails, got %d", resp.Code)
	}
}

func TestDeleteDeckClearsMembership(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	deck := createTestDeck(t, db, "hsk1")
	card := createTestCard(t, db, "学")
	db.Model(&deck).Association("Flashcards").Append(&card)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/decks/%d", deck.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var count int64
	db.Table("deck_flashcards").Where("deck_id = ?", deck.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected membership edges cleared, got %d", count)
	}

	// The flashcard itself survives
	var loaded models.Flashcard
	if err := db.First(&loaded, card.ID).Error; err != nil {
		t.Errorf("Expected flashcard to survive deck deletion: %v", err)
	}
}
