// Package revise implements the promotion/demotion protocol that keeps
// the "revise" deck populated with cards the learner keeps getting wrong.
//
// A card answered incorrectly while studying the vocabulary pool deck is
// attached to the revise deck. While a member, each correct answer bumps
// its streak in the ledger; an incorrect answer resets the streak to
// zero. After PromotionThreshold consecutive correct answers the card
// graduates: it is detached from the revise deck and its streak record
// deleted.
//
// The ledger and the relational store share a database file but not a
// transaction, so a crash between the detach and the ledger delete can
// leave them inconsistent. Reconcile sweeps that up at startup.
package revise

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/hanzideck/hanzideck/pkg/hanzideck/apperrors"
	"github.com/hanzideck/hanzideck/pkg/hanzideck/models"
)

const (
	// ReviseDeckName identifies the lazily created remediation deck
	ReviseDeckName = "revise"

	reviseDeckDescription = "Cards answered incorrectly, collected for focused repetition"

	// PromotionThreshold is the number of consecutive correct answers
	// required before a card graduates out of the revise deck
	PromotionThreshold = 3
)

// JudgmentResult reports what a recorded judgment did to the card's
// revise-deck state
type JudgmentResult struct {
	Streak   int  `json:"streak"`
	Promoted bool `json:"promoted"`
	Removed  bool `json:"removed"`
}

// Protocol orchestrates the relational store and the streak ledger
type Protocol struct {
	db         *gorm.DB
	ledger     *Ledger
	poolDeckID uint
}

// NewProtocol creates a protocol bound to the vocabulary pool deck whose
// incorrect judgments feed the revise deck
func NewProtocol(db *gorm.DB, ledger *Ledger, poolDeckID uint) *Protocol {
	return &Protocol{db: db, ledger: ledger, poolDeckID: poolDeckID}
}

// Ledger exposes the protocol's streak ledger
func (p *Protocol) Ledger() *Ledger {
	return p.ledger
}

// EnsureReviseDeck returns the revise deck, creating it on first need.
// The unique index on deck names makes this safe under concurrent
// creation: the loser of the race re-reads the winner's row.
func (p *Protocol) EnsureReviseDeck() (*models.Deck, error) {
	var deck models.Deck
	err := p.db.Where("name = ?", ReviseDeckName).First(&deck).Error
	if err == nil {
		return &deck, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storage(err)
	}

	publicID, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	deck = models.Deck{
		PublicID:    publicID,
		Name:        ReviseDeckName,
		Description: reviseDeckDescription,
	}
	if err := p.db.Create(&deck).Error; err != nil {
		// Lost the creation race; fetch the winner
		var existing models.Deck
		if ferr := p.db.Where("name = ?", ReviseDeckName).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, apperrors.Storage(err)
	}
	return &deck, nil
}

// RecordJudgment is the single entry point for per-card study outcomes.
// Which transition fires depends on the deck the judgment occurred in:
//
//   - incorrect on the vocabulary pool deck: attach the card to the
//     revise deck (tracking starts at streak 0, record created lazily)
//   - correct on the revise deck while a member: increment the streak,
//     graduating the card at PromotionThreshold
//   - incorrect on the revise deck while a member: reset the streak
//   - anything else: no-op
//
// Fails closed: if the revise deck cannot be ensured, nothing is
// recorded.
func (p *Protocol) RecordJudgment(flashcardID, deckID uint, correct bool) (*JudgmentResult, error) {
	var card models.Flashcard
	if err := p.db.First(&card, flashcardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("flashcard")
		}
		return nil, apperrors.Storage(err)
	}

	reviseDeck, err := p.EnsureReviseDeck()
	if err != nil {
		return nil, err
	}

	switch {
	case deckID == reviseDeck.ID:
		return p.judgeInReviseDeck(&card, reviseDeck, correct)
	case deckID == p.poolDeckID && !correct:
		return p.trackFromPool(&card, reviseDeck)
	default:
		// Correct answers outside the revise deck, and incorrect answers
		// on decks other than the pool, do not touch tracking state.
		return &JudgmentResult{}, nil
	}
}

// judgeInReviseDeck applies a judgment made while studying the revise
// deck itself. Cards that are not members are untracked and the judgment
// is a no-op.
func (p *Protocol) judgeInReviseDeck(card *models.Flashcard, reviseDeck *models.Deck, correct bool) (*JudgmentResult, error) {
	member, err := p.isMember(card.ID, reviseDeck.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return &JudgmentResult{}, nil
	}

	if !correct {
		if err := p.ledger.ResetStreak(card.ID); err != nil {
			return nil, apperrors.Storage(err)
		}
		return &JudgmentResult{Streak: 0}, nil
	}

	streak, err := p.ledger.IncrementStreak(card.ID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if streak < PromotionThreshold {
		return &JudgmentResult{Streak: streak}, nil
	}

	// Graduation: detach first, then drop the streak record. If the
	// process dies between the two steps the reconcile sweep deletes the
	// orphaned record at next startup.
	if err := p.db.Model(card).Association("Decks").Delete(reviseDeck); err != nil {
		return nil, apperrors.Storage(err)
	}
	if err := p.ledger.Delete(card.ID); err != nil {
		return nil, apperrors.Storage(err)
	}
	return &JudgmentResult{Streak: streak, Promoted: true, Removed: true}, nil
}

// trackFromPool handles an incorrect judgment on the vocabulary pool
// deck: the card joins the revise deck at streak 0. The streak record is
// created lazily by the first judgment recorded in the revise deck, so
// only the membership edge is written here. Already-tracked cards are
// left alone.
func (p *Protocol) trackFromPool(card *models.Flashcard, reviseDeck *models.Deck) (*JudgmentResult, error) {
	member, err := p.isMember(card.ID, reviseDeck.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return &JudgmentResult{}, nil
	}
	if err := p.db.Model(card).Association("Decks").Append(reviseDeck); err != nil {
		return nil, apperrors.Storage(err)
	}
	return &JudgmentResult{Streak: 0}, nil
}

// isMember checks the deck membership edge directly in the join table
func (p *Protocol) isMember(flashcardID, deckID uint) (bool, error) {
	var count int64
	err := p.db.Table("deck_flashcards").
		Where("deck_id = ? AND flashcard_id = ?", deckID, flashcardID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Storage(err)
	}
	return count > 0, nil
}

// Reconcile repairs drift between the two stores left by a crash midway
// through a graduation: streak records whose flashcard is no longer a
// member of the revise deck are deleted. Revise-deck members without a
// record are already valid (streak 0, record created lazily) and are
// left untouched. Returns the number of records removed.
func (p *Protocol) Reconcile() (int, error) {
	reviseDeck, err := p.EnsureReviseDeck()
	if err != nil {
		return 0, err
	}

	records, err := p.ledger.All()
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	removed := 0
	for _, rec := range records {
		member, err := p.isMember(rec.FlashcardID, reviseDeck.ID)
		if err != nil {
			return removed, err
		}
		if member {
			continue
		}
		if err := p.ledger.Delete(rec.FlashcardID); err != nil {
			return removed, apperrors.Storage(err)
		}
		removed++
	}
	return removed, nil
}
