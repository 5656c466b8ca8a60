package tags

import (
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

func TestListTagsWithCounts(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	verbs := models.Tag{Name: "verbs"}
	db.Create(&verbs)
	db.Create(&models.Tag{Name: "unused"})
	db.Create(&models.Flashcard{Character: "学", Tags: []models.Tag{verbs}})
	db.Create(&models.Flashcard{Character: "习", Tags: []models.Tag{verbs}})

	req, _ := http.NewRequest("GET", "/api/tags", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var tags []TagResponse
	json.Unmarshal(resp.Body.Bytes(), &tags)
	if len(tags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(tags))
	}

	// Most used first
	if tags[0].Name != "verbs" || tags[0].CardCount != 2 {
		t.Errorf("Expected verbs with 2 cards first, got %+v", tags[0])
	}
	if tags[1].Name != "unused" || tags[1].CardCount != 0 {
		t.Errorf("Expected unused with 0 cards, got %+v", tags[1])
	}
}

func TestDeleteTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	tag := models.Tag{Name: "verbs"}
	db.Create(&tag)
	card := models.Flashcard{Character: "学", Tags: []models.Tag{tag}}
	db.Create(&card)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/tags/%d", tag.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Tag{}).Where("name = ?", "verbs").Count(&count)
	if count != 0 {
		t.Error("Expected tag row to be deleted")
	}
	db.Table("flashcard_tags").Where("tag_id = ?", tag.ID).Count(&count)
	if count != 0 {
		t.Error("Expected tag edges to be detached")
	}

	// The flashcard survives
	var loaded models.Flashcard
	if err := db.First(&loaded, card.ID).Error; err != nil {
		t.Errorf("Expected flashcard to survive tag deletion: %v", err)
	}
}

func TestDeleteTagNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("DELETE", "/api/tags/999", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}
