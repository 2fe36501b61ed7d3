package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"time"

	"spider-league/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XPWeights define relative values for battle outcomes
type XPWeights struct {
	WinXP      int64
	LossXP     int64
	CaptureXP  int64 // bonus for winning a challenge (spider captured)
	ClassifyXP int64 // an uploaded spider became battle-ready
}

var DefaultXPWeights = XPWeights{
	WinXP:      50,
	LossXP:     10,
	CaptureXP:  100,
	ClassifyXP: 25,
}

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,  // Hatchling
	2: 5,  // Weaver
	3: 10, // Hunter
	4: 20, // Stalker
	5: 40, // Apex
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// RankName is the display name of a rank
func RankName(rank int) string {
	switch rank {
	case 1:
		return "Hatchling"
	case 2:
		return "Weaver"
	case 3:
		return "Hunter"
	case 4:
		return "Stalker"
	case 5:
		return "Apex"
	default:
		if rank > 5 {
			return "Apex"
		}
		return "Hatchling"
	}
}

type ProgressionService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewProgressionService(db *gorm.DB, badges *BadgeService) *ProgressionService {
	return &ProgressionService{DB: db, Badges: badges}
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(externalUserID string) (*models.UserProgress, error) {
	return ensureProgress(s.DB, externalUserID, false)
}

// ensureProgress loads the user's row, creating it first if needed. With
// lock set the row stays locked until tx ends (postgres only), so
// concurrent battles for the same user apply their counters one at a time.
func ensureProgress(tx *gorm.DB, externalUserID string, lock bool) (*models.UserProgress, error) {
	prog, err := findProgress(tx, externalUserID, lock)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return prog, err
	}

	// another first battle may insert the same user between the read and here
	fresh := models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Level:          1,
		Rank:           1,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, err
	}
	return findProgress(tx, externalUserID, lock)
}

func findProgress(tx *gorm.DB, externalUserID string, lock bool) (*models.UserProgress, error) {
	q := tx
	if lock && tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var prog models.UserProgress
	if err := q.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}

// applyXP adds xp and runs the level/rank-up rules in place
func applyXP(prog *models.UserProgress, xp int64) {
	oldRank := prog.Rank
	prog.TotalXP += xp

	// Level-up logic: accumulate until enough for next level
	for prog.TotalXP >= int64(BaseXPPerLevel)*int64(prog.Level)+xpForNextLevel(prog.Level) {
		prog.Level++
		now := time.Now()
		prog.LastLevelUpAt = &now
	}

	if newRank := determineRank(prog.Level); newRank > oldRank {
		now := time.Now()
		prog.Rank = newRank
		prog.LastRankUpAt = &now
	}
}

// AwardXP atomically updates XP, level and rank, returning the new progress
func (s *ProgressionService) AwardXP(externalUserID string, xp int64, reason string) (*models.UserProgress, error) {
	var updated models.UserProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := ensureProgress(tx, externalUserID, true)
		if err != nil {
			return err
		}
		applyXP(prog, xp)
		if err := tx.Save(prog).Error; err != nil {
			return err
		}
		updated = *prog
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎮 XP Awarded: %s → XP=%d, Lvl=%d, Rank=%d (reason: %s)",
		externalUserID, updated.TotalXP, updated.Level, updated.Rank, reason)

	if s.Badges != nil {
		if _, err := s.Badges.AutoAwardBadges(externalUserID, nil); err != nil {
			log.Printf("⚠️ Badge evaluation failed for %s: %v", externalUserID, err)
		}
	}
	return &updated, nil
}

// RecordBattle updates both players' counters, streaks and XP, then
// evaluates badges for the winner. captured marks a challenge win.
func (s *ProgressionService) RecordBattle(battleID, winnerID, loserID string, captured bool) error {
	now := time.Now()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// lock in a fixed order so a rematch finishing at the same time cannot deadlock
		ids := []string{winnerID, loserID}
		slices.Sort(ids)
		rows := make(map[string]*models.UserProgress, 2)
		for _, id := range slices.Compact(ids) {
			prog, err := ensureProgress(tx, id, true)
			if err != nil {
				return fmt.Errorf("progress for %s: %w", id, err)
			}
			rows[id] = prog
		}

		winner := rows[winnerID]
		winner.TotalBattles++
		winner.BattlesWon++
		winner.WinStreak++
		if winner.WinStreak > winner.BestWinStreak {
			winner.BestWinStreak = winner.WinStreak
		}
		winner.LastBattleAt = &now
		xp := DefaultXPWeights.WinXP
		if captured {
			winner.SpidersCaptured++
			xp += DefaultXPWeights.CaptureXP
		}
		applyXP(winner, xp)
		if err := tx.Save(winner).Error; err != nil {
			return err
		}

		// practice battle between two spiders of the same user
		if loserID == winnerID {
			return nil
		}

		loser := rows[loserID]
		loser.TotalBattles++
		loser.WinStreak = 0
		loser.LastBattleAt = &now
		if captured {
			loser.SpidersLost++
		}
		applyXP(loser, DefaultXPWeights.LossXP)
		return tx.Save(loser).Error
	})
	if err != nil {
		return err
	}

	log.Printf("🎮 Battle %s recorded: winner=%s loser=%s captured=%t", battleID, winnerID, loserID, captured)

	if s.Badges != nil {
		for _, uid := range []string{winnerID, loserID} {
			if _, err := s.Badges.AutoAwardBadges(uid, &battleID); err != nil {
				log.Printf("⚠️ Badge evaluation failed for %s: %v", uid, err)
			}
		}
	}
	return nil
}

// GetProgress returns the progress row, creating it on first access
func (s *ProgressionService) GetProgress(externalUserID string) (*models.UserProgress, error) {
	return s.EnsureProgressRecord(externalUserID)
}

// Leaderboard returns the top users by battles won
func (s *ProgressionService) Leaderboard(limit int) ([]models.UserProgress, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var rows []models.UserProgress
	err := s.DB.Order("battles_won DESC").Order("total_xp DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
