package models

import (
	"time"
)

// Tag represents a label that can be applied to flashcards.
// Tags are created implicitly the first time a name is used; the
// unique index on Name is what keeps concurrent creates from
// producing duplicates.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Flashcards []Flashcard `gorm:"many2many:flashcard_tags;" json:"flashcards,omitempty"`
}
