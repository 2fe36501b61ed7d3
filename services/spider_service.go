// services/spider_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"spider-league/models"
	"spider-league/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageStore persists uploaded photos (R2 in production)
type ImageStore interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Classifier turns a spider photo into species and stats
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*Classification, error)
}

type SpiderService struct {
	DB          *gorm.DB
	Images      ImageStore
	MaxAttempts int
}

func NewSpiderService(db *gorm.DB, images ImageStore, maxAttempts int) *SpiderService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &SpiderService{DB: db, Images: images, MaxAttempts: maxAttempts}
}

func normalizeNickname(nickname string) (string, error) {
	nickname = strings.Join(strings.Fields(nickname), " ")
	if n := utf8.RuneCountInString(nickname); n == 0 || n > 40 {
		return "", ErrBadNickname
	}
	return nickname, nil
}

// Upload stores the photo and creates a spider awaiting classification
func (s *SpiderService) Upload(ctx context.Context, ownerID, nickname, filename, contentType string, body io.Reader) (*models.Spider, error) {
	nickname, err := normalizeNickname(nickname)
	if err != nil {
		return nil, err
	}
	if s.Images == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}

	key := utils.SpiderImageKey(nickname, filename)
	url, err := s.Images.PutObject(ctx, key, contentType, body)
	if err != nil {
		return nil, err
	}

	spider := &models.Spider{
		ID:                   uuid.NewString(),
		OwnerID:              ownerID,
		Nickname:             nickname,
		Slug:                 utils.NicknameSlug(nickname),
		ImageURL:             url,
		ImageKey:             key,
		Rarity:               models.RarityCommon,
		ClassificationStatus: models.ClassificationPending,
	}
	if err := s.DB.WithContext(ctx).Create(spider).Error; err != nil {
		if delErr := s.Images.DeleteObject(ctx, key); delErr != nil {
			log.Printf("⚠️ [SPIDER] orphaned image %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("create spider: %w", err)
	}
	log.Printf("🕷️ [SPIDER] %s uploaded %q (%s)", ownerID, nickname, spider.ID)
	return spider, nil
}

// PendingForClassification returns spiders still waiting on the classifier
func (s *SpiderService) PendingForClassification(ctx context.Context, limit int) ([]models.Spider, error) {
	var spiders []models.Spider
	err := s.DB.WithContext(ctx).
		Where("classification_status = ?", models.ClassificationPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&spiders).Error
	return spiders, err
}

func clampStat(v int) int {
	return min(max(v, models.MinStat), models.MaxStat)
}

// ApplyClassification sets species, rarity and stats once, deriving power_score
func (s *SpiderService) ApplyClassification(ctx context.Context, spiderID string, c *Classification) (*models.Spider, error) {
	if c.IsSpider != nil && !*c.IsSpider {
		return nil, s.MarkClassificationFailed(ctx, spiderID, ErrNotASpider, true)
	}

	var spider models.Spider
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&spider, "id = ?", spiderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSpiderNotFound
			}
			return err
		}
		if spider.ClassificationStatus == models.ClassificationClassified {
			return nil
		}

		rarity := models.Rarity(strings.ToUpper(strings.TrimSpace(c.Rarity)))
		if !rarity.Valid() {
			rarity = models.RarityCommon
		}
		now := time.Now()
		spider.Species = utils.SpeciesDisplayName(c.Species)
		spider.Rarity = rarity
		spider.HitPoints = clampStat(c.HitPoints)
		spider.Damage = clampStat(c.Damage)
		spider.Speed = clampStat(c.Speed)
		spider.Defense = clampStat(c.Defense)
		spider.Venom = clampStat(c.Venom)
		spider.Webcraft = clampStat(c.Webcraft)
		spider.SpecialAttacks = cleanSpecials(c.SpecialAttacks)
		spider.PowerScore = models.ComputePowerScore(&spider)
		spider.ClassificationStatus = models.ClassificationClassified
		spider.ClassificationError = ""
		spider.ClassifiedAt = &now
		return tx.Save(&spider).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🔬 [CLASSIFIER] %s classified as %s (%s, power %d)", spider.ID, spider.Species, spider.Rarity, spider.PowerScore)
	return &spider, nil
}

func cleanSpecials(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, sp := range in {
		sp = strings.TrimSpace(sp)
		if sp == "" || seen[sp] {
			continue
		}
		seen[sp] = true
		out = append(out, sp)
	}
	return out
}

// MarkClassificationFailed counts a failed attempt; after MaxAttempts (or
// when final is set) the spider is marked failed. Returns cause.
func (s *SpiderService) MarkClassificationFailed(ctx context.Context, spiderID string, cause error, final bool) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var spider models.Spider
		if err := tx.First(&spider, "id = ?", spiderID).Error; err != nil {
			return err
		}
		spider.ClassificationAttempts++
		spider.ClassificationError = cause.Error()
		if final || spider.ClassificationAttempts >= s.MaxAttempts {
			spider.ClassificationStatus = models.ClassificationFailed
		}
		return tx.Save(&spider).Error
	})
	if err != nil {
		log.Printf("❌ [CLASSIFIER] could not record failure for %s: %v", spiderID, err)
	}
	return cause
}

// Get returns one spider by id
func (s *SpiderService) Get(ctx context.Context, spiderID string) (*models.Spider, error) {
	return loadSpider(s.DB.WithContext(ctx), spiderID)
}

// ListByOwner returns a user's collection, strongest first
func (s *SpiderService) ListByOwner(ctx context.Context, ownerID string) ([]models.Spider, error) {
	var spiders []models.Spider
	err := s.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("power_score DESC").Order("created_at ASC").
		Find(&spiders).Error
	return spiders, err
}

// Rename changes a spider's nickname; only the owner may do this
func (s *SpiderService) Rename(ctx context.Context, spiderID, ownerID, nickname string) (*models.Spider, error) {
	nickname, err := normalizeNickname(nickname)
	if err != nil {
		return nil, err
	}
	spider, err := loadSpider(s.DB.WithContext(ctx), spiderID)
	if err != nil {
		return nil, err
	}
	if spider.OwnerID != ownerID {
		return nil, ErrNotSpiderOwner
	}
	spider.Nickname = nickname
	spider.Slug = utils.NicknameSlug(nickname)
	if err := s.DB.WithContext(ctx).Model(spider).Updates(map[string]interface{}{
		"nickname": spider.Nickname,
		"slug":     spider.Slug,
	}).Error; err != nil {
		return nil, err
	}
	return spider, nil
}
