package models

import (
	"time"

	"gorm.io/datatypes"
)

// BadgeType: static catalogue entry, seeded at start-up
type BadgeType struct {
	ID          string            `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string            `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_WIN", "COLLECTOR"
	Name        string            `gorm:"not null" json:"name"`
	Description string            `json:"description"`
	IconURL     string            `gorm:"type:text" json:"icon_url"`
	Rarity      string            `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   datatypes.JSONMap `json:"threshold"`                                        // e.g., {"battles_won": 1}
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"external_user_id"`
	BadgeTypeID    string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_type_id"`
	BadgeType      BadgeType `gorm:"foreignKey:BadgeTypeID" json:"badge_type"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
	BattleID       *string   `json:"battle_id,omitempty"` // battle that triggered the award
}

// BadgeTriggers is the seeded catalogue. Threshold keys match UserProgress counters.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_BATTLE",
		Name:        "Into the Web",
		Description: "Fought your first battle",
		Rarity:      "common",
		Threshold:   datatypes.JSONMap{"total_battles": 1},
	},
	{
		Code:        "FIRST_WIN",
		Name:        "First Bite",
		Description: "Won your first battle",
		Rarity:      "common",
		Threshold:   datatypes.JSONMap{"battles_won": 1},
	},
	{
		Code:        "HAT_TRICK",
		Name:        "Hat Trick",
		Description: "Won three battles in a row",
		Rarity:      "rare",
		Threshold:   datatypes.JSONMap{"best_win_streak": 3},
	},
	{
		Code:        "COLLECTOR",
		Name:        "Collector",
		Description: "Captured five spiders in challenges",
		Rarity:      "epic",
		Threshold:   datatypes.JSONMap{"spiders_captured": 5},
	},
	{
		Code:        "VETERAN",
		Name:        "Veteran",
		Description: "Fought 25 battles",
		Rarity:      "rare",
		Threshold:   datatypes.JSONMap{"total_battles": 25},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Silk Road",
		Description: "Reached level 10",
		Rarity:      "epic",
		Threshold:   datatypes.JSONMap{"level": 10},
	},
}
