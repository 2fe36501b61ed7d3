// models/challenge.go
package models

import "time"

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "PENDING"
	ChallengeAccepted  ChallengeStatus = "ACCEPTED"
	ChallengeDeclined  ChallengeStatus = "DECLINED"
	ChallengeExpired   ChallengeStatus = "EXPIRED"
	ChallengeCompleted ChallengeStatus = "COMPLETED"
	ChallengeFailed    ChallengeStatus = "FAILED" // its battle failed; no spider changed hands
)

// Challenge is a wager between two users: the loser's spider goes to the winner
type Challenge struct {
	ID                 string          `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengerID       string          `gorm:"index;not null" json:"challenger_id"`
	ChallengerSpiderID string          `gorm:"not null" json:"challenger_spider_id"`
	OpponentID         string          `gorm:"index;not null" json:"opponent_id"`
	OpponentSpiderID   string          `gorm:"not null" json:"opponent_spider_id"`
	Status             ChallengeStatus `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`
	Message            string          `gorm:"type:text" json:"message,omitempty"`

	BattleID      *string `gorm:"index" json:"battle_id,omitempty"`
	WinnerID      *string `json:"winner_id,omitempty"`
	LoserSpiderID *string `json:"loser_spider_id,omitempty"`

	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
