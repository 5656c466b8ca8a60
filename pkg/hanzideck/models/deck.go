package models

import (
	"time"

	"gorm.io/gorm"
)

// Deck represents a named collection of flashcards.
// The deck named "revise" is special cased: it is created lazily by the
// revise protocol and collects cards answered incorrectly. The unique
// index on Name guarantees at most one deck per name exists.
type Deck struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	PublicID    string         `gorm:"uniqueIndex;not null" json:"public_id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`

	// Relationships
	Flashcards []Flashcard    `gorm:"many2many:deck_flashcards;" json:"flashcards,omitempty"`
	Sessions   []StudySession `gorm:"foreignKey:DeckID" json:"sessions,omitempty"`
}
