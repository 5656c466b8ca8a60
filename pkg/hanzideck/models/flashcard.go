package models

import (
	"time"

	"gorm.io/gorm"
)

// Flashcard represents a single Chinese-character flashcard
type Flashcard struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Character string         `gorm:"not null" json:"character"`
	Pinyin    string         `json:"pinyin"`
	Meaning   string         `json:"meaning"`

	// Relationships
	Tags  []Tag  `gorm:"many2many:flashcard_tags;" json:"tags,omitempty"`
	Decks []Deck `gorm:"many2many:deck_flashcards;" json:"decks,omitempty"`
}
