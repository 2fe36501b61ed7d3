package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"spider-league/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes upserts the badge catalogue by code
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		bt := trigger
		bt.ID = uuid.NewString()
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity", "threshold"}),
		}).Create(&bt).Error
		if err != nil {
			return fmt.Errorf("seed badge %s: %w", trigger.Code, err)
		}
	}
	return nil
}

// AutoAwardBadges checks every badge threshold for a user and awards the
// ones newly met. Returns the codes awarded.
func (s *BadgeService) AutoAwardBadges(externalUserID string, battleID *string) ([]string, error) {
	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var types []models.BadgeType
	if err := s.DB.Find(&types).Error; err != nil {
		return nil, err
	}

	var awarded []string
	for _, bt := range types {
		if !meetsThreshold(&prog, bt.Threshold) {
			continue
		}
		var count int64
		if err := s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_id = ?", externalUserID, bt.ID).
			Count(&count).Error; err != nil {
			return awarded, err
		}
		if count > 0 {
			continue
		}
		ub := models.UserBadge{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			BadgeTypeID:    bt.ID,
			BattleID:       battleID,
		}
		// a concurrent evaluation may have awarded it since the count
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "badge_type_id"}},
			DoNothing: true,
		}).Create(&ub)
		if res.Error != nil {
			return awarded, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		awarded = append(awarded, bt.Code)
		log.Printf("🎖️ Badge awarded: %s → %s", bt.Name, externalUserID)
	}
	return awarded, nil
}

// ListUserBadges returns awarded badges with their catalogue entry
func (s *BadgeService) ListUserBadges(externalUserID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Preload("BadgeType").
		Where("external_user_id = ?", externalUserID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}

// meetsThreshold: every key must be met. Unknown keys never match.
func meetsThreshold(prog *models.UserProgress, req map[string]interface{}) bool {
	if len(req) == 0 {
		return false
	}
	for key, raw := range req {
		required, ok := toInt64(raw)
		if !ok {
			return false
		}
		have, known := prog.Counter(key)
		if !known || have < required {
			return false
		}
	}
	return true
}

// Thresholds read back from the database arrive as json.Number;
// freshly built maps hold plain ints.
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}
