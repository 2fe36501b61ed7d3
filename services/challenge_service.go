// services/challenge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"spider-league/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeService struct {
	DB  *gorm.DB
	TTL time.Duration
}

func NewChallengeService(db *gorm.DB, ttl time.Duration) *ChallengeService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ChallengeService{DB: db, TTL: ttl}
}

// Create opens a challenge from challengerID's spider against another user's spider
func (s *ChallengeService) Create(ctx context.Context, challengerID, spiderID, opponentSpiderID, message string) (*models.Challenge, error) {
	db := s.DB.WithContext(ctx)
	if spiderID == opponentSpiderID {
		return nil, ErrSameSpider
	}
	own, err := loadSpider(db, spiderID)
	if err != nil {
		return nil, err
	}
	if own.OwnerID != challengerID {
		return nil, ErrNotSpiderOwner
	}
	opp, err := loadSpider(db, opponentSpiderID)
	if err != nil {
		return nil, err
	}
	if opp.OwnerID == challengerID {
		return nil, ErrSelfChallenge
	}
	if !own.IsBattleReady() || !opp.IsBattleReady() {
		return nil, ErrSpiderNotReady
	}

	ch := &models.Challenge{
		ID:                 uuid.NewString(),
		ChallengerID:       challengerID,
		ChallengerSpiderID: own.ID,
		OpponentID:         opp.OwnerID,
		OpponentSpiderID:   opp.ID,
		Status:             models.ChallengePending,
		Message:            strings.TrimSpace(message),
		ExpiresAt:          time.Now().Add(s.TTL),
	}
	if err := db.Create(ch).Error; err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	log.Printf("🧵 [CHALLENGE] %s: %s challenges %s (%s vs %s)", ch.ID, challengerID, opp.OwnerID, own.Nickname, opp.Nickname)
	return ch, nil
}

// Accept creates the linked battle. Only the challenged user may accept a
// pending, unexpired challenge; both spiders must still belong to their users.
func (s *ChallengeService) Accept(ctx context.Context, challengeID, userID string) (*models.Challenge, *models.Battle, error) {
	var (
		ch     models.Challenge
		battle *models.Battle
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockPending(tx, challengeID, userID, &ch); err != nil {
			return err
		}

		var err error
		battle, err = createBattleTx(tx, ch.ChallengerID, ch.ChallengerSpiderID, ch.OpponentSpiderID, &ch.ID)
		if err != nil {
			return err
		}
		if battle.Team2UserID != ch.OpponentID {
			return ErrNotSpiderOwner
		}

		now := time.Now()
		ch.Status = models.ChallengeAccepted
		ch.BattleID = &battle.ID
		ch.RespondedAt = &now
		return tx.Model(&ch).Updates(map[string]interface{}{
			"status":       ch.Status,
			"battle_id":    battle.ID,
			"responded_at": now,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("🧵 [CHALLENGE] %s accepted → battle %s", ch.ID, battle.ID)
	return &ch, battle, nil
}

// Decline closes a pending challenge without a battle
func (s *ChallengeService) Decline(ctx context.Context, challengeID, userID string) (*models.Challenge, error) {
	var ch models.Challenge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockPending(tx, challengeID, userID, &ch); err != nil {
			return err
		}
		now := time.Now()
		ch.Status = models.ChallengeDeclined
		ch.RespondedAt = &now
		return tx.Model(&ch).Updates(map[string]interface{}{
			"status":       ch.Status,
			"responded_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *ChallengeService) lockPending(tx *gorm.DB, challengeID, userID string, ch *models.Challenge) error {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(ch, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}
	if ch.OpponentID != userID {
		return ErrNotChallengeOpponent
	}
	if ch.Status != models.ChallengePending {
		return ErrChallengeNotPending
	}
	if time.Now().After(ch.ExpiresAt) {
		return ErrChallengeExpired
	}
	return nil
}

// Get returns a challenge visible to one of its two participants
func (s *ChallengeService) Get(ctx context.Context, challengeID, userID string) (*models.Challenge, error) {
	var ch models.Challenge
	err := s.DB.WithContext(ctx).
		Where("id = ? AND (challenger_id = ? OR opponent_id = ?)", challengeID, userID, userID).
		First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ListForUser returns challenges sent or received, newest first; status "" means all
func (s *ChallengeService) ListForUser(ctx context.Context, userID, status string) ([]models.Challenge, error) {
	db := s.DB.WithContext(ctx).Where("challenger_id = ? OR opponent_id = ?", userID, userID)
	if status != "" {
		db = db.Where("status = ?", strings.ToUpper(status))
	}
	var out []models.Challenge
	err := db.Order("created_at DESC").Limit(100).Find(&out).Error
	return out, err
}

// ExpireStale moves pending challenges past their expiry to EXPIRED
func (s *ChallengeService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ? AND expires_at < ?", models.ChallengePending, now).
		Update("status", models.ChallengeExpired)
	return res.RowsAffected, res.Error
}
