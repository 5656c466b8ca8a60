package models

import "gorm.io/gorm"

// AllModels returns all models for migration.
// The streak ledger table is not listed here: it is owned by the revise
// package and created through its own raw connection, not via GORM.
func AllModels() []interface{} {
	return []interface{}{
		&Flashcard{},
		&Tag{},
		&Deck{},
		&StudySession{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
