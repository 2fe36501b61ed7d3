package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress tracks battle progression for each user (denormalized for performance)
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Rank    int   `json:"rank" gorm:"default:1"` // Hatchling(1)→Weaver(2)→Hunter(3)→Stalker(4)→Apex(5)

	// Battle counters
	TotalBattles    int64 `json:"total_battles" gorm:"default:0"`
	BattlesWon      int64 `json:"battles_won" gorm:"default:0;index"`
	SpidersCaptured int64 `json:"spiders_captured" gorm:"default:0"`
	SpidersLost     int64 `json:"spiders_lost" gorm:"default:0"`
	WinStreak       int64 `json:"win_streak" gorm:"default:0"`
	BestWinStreak   int64 `json:"best_win_streak" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`
	LastBattleAt  *time.Time `json:"last_battle_at,omitempty"`

	Timestamps
}

// Counter returns a counter by its badge threshold key
func (p *UserProgress) Counter(key string) (int64, bool) {
	switch key {
	case "total_battles":
		return p.TotalBattles, true
	case "battles_won":
		return p.BattlesWon, true
	case "spiders_captured":
		return p.SpidersCaptured, true
	case "best_win_streak":
		return p.BestWinStreak, true
	case "level":
		return int64(p.Level), true
	case "rank":
		return int64(p.Rank), true
	}
	return 0, false
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
