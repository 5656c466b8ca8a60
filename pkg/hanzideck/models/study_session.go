package models

import (
	"time"
)

// StudyMode describes how the cards were presented during a session
type StudyMode string

const (
	StudyModeNormal  StudyMode = "normal"  // character shown, recall pronunciation + meaning
	StudyModeReverse StudyMode = "reverse" // meaning shown, recall character
	StudyModeMeaning StudyMode = "meaning" // meaning only
)

// ValidStudyMode reports whether mode is one of the known study modes
func ValidStudyMode(mode StudyMode) bool {
	switch mode {
	case StudyModeNormal, StudyModeReverse, StudyModeMeaning:
		return true
	}
	return false
}

// StudySession records the aggregate outcome of one completed study run
// through a deck. Rows are append-only history: they are written once,
// after the run finishes, and never mutated. Per-card streak tracking
// lives in the revise ledger, not here.
type StudySession struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	DeckID         uint       `gorm:"not null;index" json:"deck_id"`
	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CorrectCount   int        `gorm:"not null;default:0" json:"correct_count"`
	IncorrectCount int        `gorm:"not null;default:0" json:"incorrect_count"`
	Mode           StudyMode  `gorm:"type:varchar(20);default:'normal'" json:"mode"`

	// Relationships
	Deck Deck `gorm:"foreignKey:DeckID" json:"deck,omitempty"`
}
