// models/spider.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Rarity is the classifier-assigned rarity tier of a spider
type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityUncommon  Rarity = "UNCOMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

// PowerMultiplier scales the raw stat total into power_score
func (r Rarity) PowerMultiplier() float64 {
	switch r {
	case RarityUncommon:
		return 1.1
	case RarityRare:
		return 1.25
	case RarityEpic:
		return 1.5
	case RarityLegendary:
		return 2.0
	default:
		return 1.0
	}
}

// Valid reports whether r is one of the known tiers
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

const (
	ClassificationPending    = "pending"
	ClassificationClassified = "classified"
	ClassificationFailed     = "failed"
)

// Stat bounds applied to every combat attribute
const (
	MinStat = 1
	MaxStat = 100
)

// Spider is a fighter owned by exactly one user.
// OwnerID is only ever changed through the battle ownership transfer.
type Spider struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID  string `gorm:"index;not null" json:"owner_id"` // external user id
	Nickname string `gorm:"not null" json:"nickname"`
	Slug     string `gorm:"index" json:"slug"`
	Species  string `json:"species"`
	ImageURL string `gorm:"type:text" json:"image_url"`
	ImageKey string `gorm:"type:text" json:"-"`
	Rarity   Rarity `gorm:"type:varchar(16);default:'COMMON'" json:"rarity"`

	HitPoints int `json:"hit_points" gorm:"default:0"`
	Damage    int `json:"damage" gorm:"default:0"`
	Speed     int `json:"speed" gorm:"default:0"`
	Defense   int `json:"defense" gorm:"default:0"`
	Venom     int `json:"venom" gorm:"default:0"`
	Webcraft  int `json:"webcraft" gorm:"default:0"`

	PowerScore     int                         `json:"power_score" gorm:"default:0;index"`
	SpecialAttacks datatypes.JSONSlice[string] `json:"special_attacks"`

	ClassificationStatus   string     `gorm:"type:varchar(16);default:'pending';index" json:"classification_status"`
	ClassificationError    string     `json:"classification_error,omitempty"`
	ClassificationAttempts int        `json:"-" gorm:"default:0"`
	ClassifiedAt           *time.Time `json:"classified_at,omitempty"`

	Timestamps
}

// ComputePowerScore derives power_score from the six stats and rarity
func ComputePowerScore(s *Spider) int {
	total := s.HitPoints + s.Damage + s.Speed + s.Defense + s.Venom + s.Webcraft
	return int(float64(total) * s.Rarity.PowerMultiplier())
}

// IsBattleReady reports whether the spider has been classified
func (s *Spider) IsBattleReady() bool {
	return s.ClassificationStatus == ClassificationClassified
}

// Snapshot copies the battle-relevant fields so later stat changes
// do not alter a battle record.
func (s *Spider) Snapshot() SpiderSnapshot {
	specials := make([]string, len(s.SpecialAttacks))
	copy(specials, s.SpecialAttacks)
	return SpiderSnapshot{
		ID:             s.ID,
		Nickname:       s.Nickname,
		Species:        s.Species,
		ImageURL:       s.ImageURL,
		Rarity:         s.Rarity,
		HitPoints:      s.HitPoints,
		Damage:         s.Damage,
		Speed:          s.Speed,
		Defense:        s.Defense,
		Venom:          s.Venom,
		Webcraft:       s.Webcraft,
		PowerScore:     s.PowerScore,
		SpecialAttacks: specials,
	}
}

// SpiderSnapshot is the immutable copy of a spider stored on a battle
type SpiderSnapshot struct {
	ID             string   `json:"id"`
	Nickname       string   `json:"nickname"`
	Species        string   `json:"species"`
	ImageURL       string   `json:"image_url,omitempty"`
	Rarity         Rarity   `json:"rarity"`
	HitPoints      int      `json:"hit_points"`
	Damage         int      `json:"damage"`
	Speed          int      `json:"speed"`
	Defense        int      `json:"defense"`
	Venom          int      `json:"venom"`
	Webcraft       int      `json:"webcraft"`
	PowerScore     int      `json:"power_score"`
	SpecialAttacks []string `json:"special_attacks,omitempty"`
}
