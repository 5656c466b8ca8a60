package models

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	// Verify tables exist by checking if we can query them
	tables := []string{"flashcards", "tags", "decks", "study_sessions", "flashcard_tags", "deck_flashcards"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}

	// The streak ledger is not migrated here
	if db.Migrator().HasTable("streak_records") {
		t.Error("Expected streak_records to be owned by the revise package, not GORM")
	}
}

func TestTagNameUnique(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	tag := Tag{Name: "hsk1"}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}

	dup := Tag{Name: "hsk1"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected unique constraint violation for duplicate tag name")
	}

	var count int64
	db.Model(&Tag{}).Where("name = ?", "hsk1").Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 tag row, got %d", count)
	}
}

func TestDeckNameUnique(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	deck := Deck{PublicID: "pub-1", Name: "revise"}
	if err := db.Create(&deck).Error; err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}

	dup := Deck{PublicID: "pub-2", Name: "revise"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected unique constraint violation for duplicate deck name")
	}
}

func TestFlashcardAssociations(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	card := Flashcard{
		Character: "学",
		Pinyin:    "xué",
		Meaning:   "to study",
		Tags:      []Tag{{Name: "hsk1"}, {Name: "verbs"}},
	}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("Failed to create flashcard: %v", err)
	}

	deck := Deck{PublicID: "pub-1", Name: "vocabulary"}
	if err := db.Create(&deck).Error; err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}
	if err := db.Model(&deck).Association("Flashcards").Append(&card); err != nil {
		t.Fatalf("Failed to attach flashcard: %v", err)
	}

	var loaded Flashcard
	if err := db.Preload("Tags").Preload("Decks").First(&loaded, card.ID).Error; err != nil {
		t.Fatalf("Failed to load flashcard: %v", err)
	}
	if len(loaded.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(loaded.Tags))
	}
	if len(loaded.Decks) != 1 {
		t.Errorf("Expected 1 deck, got %d", len(loaded.Decks))
	}
}

func TestStudySessionModel(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	deck := Deck{PublicID: "pub-1", Name: "vocabulary"}
	if err := db.Create(&deck).Error; err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}

	now := time.Now().UTC()
	session := StudySession{
		DeckID:         deck.ID,
		StartedAt:      now,
		EndedAt:        &now,
		CorrectCount:   8,
		IncorrectCount: 2,
		Mode:           StudyModeReverse,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if session.ID == 0 {
		t.Error("Expected session ID to be set after create")
	}

	var loaded StudySession
	if err := db.First(&loaded, session.ID).Error; err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.Mode != StudyModeReverse {
		t.Errorf("Expected mode %q, got %q", StudyModeReverse, loaded.Mode)
	}
	if loaded.EndedAt == nil {
		t.Error("Expected ended_at to be set")
	}
}

func TestValidStudyMode(t *testing.T) {
	for _, mode := range []StudyMode{StudyModeNormal, StudyModeReverse, StudyModeMeaning} {
		if !ValidStudyMode(mode) {
			t.Errorf("Expected %q to be valid", mode)
		}
	}
	if ValidStudyMode("speedrun") {
		t.Error("Expected unknown mode to be invalid")
	}
}
