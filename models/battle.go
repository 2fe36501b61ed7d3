// models/battle.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// BattleStatus tracks the simulator lifecycle of a battle
type BattleStatus string

const (
	BattleStatusPending   BattleStatus = "PENDING"
	BattleStatusRunning   BattleStatus = "RUNNING"
	BattleStatusCompleted BattleStatus = "COMPLETED"
	BattleStatusFailed    BattleStatus = "FAILED"
)

// Side identifies a team slot; also used as the winner indicator
type Side string

const (
	SideTeam1 Side = "TEAM_1"
	SideTeam2 Side = "TEAM_2"
	SideTie   Side = "TIE"
)

// Opponent returns the other team slot
func (s Side) Opponent() Side {
	if s == SideTeam1 {
		return SideTeam2
	}
	return SideTeam1
}

// ActionType is the kind of move performed in a turn
type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionSpecial ActionType = "special"
	ActionPass    ActionType = "pass"
	ActionDefend  ActionType = "defend"
)

// Battle is created once, mutated turn by turn, then frozen once terminal
type Battle struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	Team1UserID string                             `gorm:"index;not null" json:"team1_user_id"`
	Team2UserID string                             `gorm:"index;not null" json:"team2_user_id"`
	Team1Spider datatypes.JSONType[SpiderSnapshot] `json:"team1_spider"`
	Team2Spider datatypes.JSONType[SpiderSnapshot] `json:"team2_spider"`

	P1CurrentHP       int    `json:"p1_current_hp"`
	P2CurrentHP       int    `json:"p2_current_hp"`
	CurrentTurn       int    `json:"current_turn" gorm:"default:0"`
	CurrentTurnUserID string `json:"current_turn_user_id,omitempty"`

	Status       BattleStatus `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`
	IsActive     bool         `json:"is_active" gorm:"default:true"`
	Winner       *Side        `gorm:"type:varchar(8)" json:"winner,omitempty"`
	WinnerUserID *string      `gorm:"index" json:"winner_user_id,omitempty"`
	ChallengeID  *string      `gorm:"index" json:"challenge_id,omitempty"`

	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`

	Turns []BattleTurn `json:"turns,omitempty" gorm:"foreignKey:BattleID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsTerminal reports whether the battle record is final
func (b *Battle) IsTerminal() bool {
	return b.Status == BattleStatusCompleted || b.Status == BattleStatusFailed
}

// UserFor returns the owning user of the given side
func (b *Battle) UserFor(side Side) string {
	if side == SideTeam2 {
		return b.Team2UserID
	}
	return b.Team1UserID
}

// SpiderFor returns the snapshot used by the given side
func (b *Battle) SpiderFor(side Side) SpiderSnapshot {
	if side == SideTeam2 {
		return b.Team2Spider.Data()
	}
	return b.Team1Spider.Data()
}

// BattleTurn is an append-only entry in a battle's turn log
type BattleTurn struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	BattleID string `gorm:"not null;uniqueIndex:idx_battle_turn" json:"battle_id"`
	// 1-based, contiguous within a battle
	TurnIndex int `gorm:"not null;uniqueIndex:idx_battle_turn" json:"turn_index"`

	ActorSide   Side       `gorm:"type:varchar(8);not null" json:"actor_side"`
	ActorUserID string     `gorm:"not null" json:"actor_user_id"`
	ActionType  ActionType `gorm:"type:varchar(16);not null" json:"action_type"`

	AttackerRoll     int `json:"attacker_roll"`
	DefenderRoll     int `json:"defender_roll"`
	Damage           int `json:"damage"`
	DefenderHPBefore int `json:"defender_hp_before"`
	DefenderHPAfter  int `json:"defender_hp_after"`
	P1HPAfter        int `json:"p1_hp_after"`
	P2HPAfter        int `json:"p2_hp_after"`

	IsCritical  bool   `json:"is_critical"`
	IsDodged    bool   `json:"is_dodged"`
	SpecialMove string `json:"special_move,omitempty"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
