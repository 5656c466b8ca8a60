package revise

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// streakSchema creates the ledger table. The table lives in the same
// database file as the relational entities but is reachable only through
// this package's raw connection, never through GORM.
const streakSchema = `
CREATE TABLE IF NOT EXISTS streak_records (
    flashcard_id INTEGER PRIMARY KEY,
    streak INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);
`

// StreakRecord tracks consecutive correct answers for one flashcard
// while it is a member of the revise deck
type StreakRecord struct {
	FlashcardID uint      `db:"flashcard_id"`
	Streak      int       `db:"streak"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Ledger is the raw-statement access layer for streak records
type Ledger struct {
	db *sqlx.DB
}

// OpenLedger opens a second connection to the database file and ensures
// the streak table exists.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open streak ledger: %w", err)
	}

	// SQLite supports a single writer; the relational connection shares
	// the file, so keep this one small and let busy_timeout absorb lock
	// contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(streakSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply streak schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the ledger connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Get returns the streak record for a flashcard, or nil if none exists
func (l *Ledger) Get(flashcardID uint) (*StreakRecord, error) {
	var rec StreakRecord
	err := l.db.Get(&rec, `
		SELECT flashcard_id, streak, updated_at
		FROM streak_records WHERE flashcard_id = ?
	`, flashcardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read streak for flashcard %d: %w", flashcardID, err)
	}
	return &rec, nil
}

// IncrementStreak bumps the streak for a flashcard and returns the new
// value, creating the record at 1 if none exists. The upsert is a single
// statement so concurrent judgments for the same card cannot lose an
// increment to a read-modify-write interleaving.
func (l *Ledger) IncrementStreak(flashcardID uint) (int, error) {
	var streak int
	err := l.db.Get(&streak, `
		INSERT INTO streak_records (flashcard_id, streak, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(flashcard_id)
		DO UPDATE SET streak = streak + 1, updated_at = excluded.updated_at
		RETURNING streak
	`, flashcardID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to increment streak for flashcard %d: %w", flashcardID, err)
	}
	return streak, nil
}

// ResetStreak sets the streak for a flashcard back to zero, creating the
// record if none exists
func (l *Ledger) ResetStreak(flashcardID uint) error {
	_, err := l.db.Exec(`
		INSERT INTO streak_records (flashcard_id, streak, updated_at)
		VALUES (?, 0, ?)
		ON CONFLICT(flashcard_id)
		DO UPDATE SET streak = 0, updated_at = excluded.updated_at
	`, flashcardID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reset streak for flashcard %d: %w", flashcardID, err)
	}
	return nil
}

// Delete removes the streak record for a flashcard. Deleting a record
// that does not exist is not an error.
func (l *Ledger) Delete(flashcardID uint) error {
	if _, err := l.db.Exec(`DELETE FROM streak_records WHERE flashcard_id = ?`, flashcardID); err != nil {
		return fmt.Errorf("failed to delete streak for flashcard %d: %w", flashcardID, err)
	}
	return nil
}

// All returns every streak record, for the reconcile sweep
func (l *Ledger) All() ([]StreakRecord, error) {
	var records []StreakRecord
	if err := l.db.Select(&records, `SELECT flashcard_id, streak, updated_at FROM streak_records`); err != nil {
		return nil, fmt.Errorf("failed to list streak records: %w", err)
	}
	return records, nil
}
