package services

import (
	"fmt"
	"testing"

	"spider-league/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with every table migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Spider{},
		&models.Battle{},
		&models.BattleTurn{},
		&models.Challenge{},
		&models.UserProgress{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := NewBadgeService(db).SeedBadgeTypes(); err != nil {
		t.Fatalf("seed badges: %v", err)
	}
	return db
}

type spiderStats struct {
	hp, dmg, venom, def, power int
}

// seedSpider inserts a classified spider ready to fight
func seedSpider(t *testing.T, db *gorm.DB, owner, nickname string, st spiderStats) *models.Spider {
	t.Helper()
	sp := &models.Spider{
		ID:                   uuid.NewString(),
		OwnerID:              owner,
		Nickname:             nickname,
		Species:              "Test Spider",
		Rarity:               models.RarityCommon,
		HitPoints:            st.hp,
		Damage:               st.dmg,
		Speed:                10,
		Defense:              st.def,
		Venom:                st.venom,
		Webcraft:             10,
		PowerScore:           st.power,
		ClassificationStatus: models.ClassificationClassified,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("seed spider: %v", err)
	}
	return sp
}

var (
	statsA = spiderStats{hp: 100, dmg: 50, venom: 30, def: 20, power: 300}
	statsB = spiderStats{hp: 80, dmg: 40, venom: 25, def: 15, power: 250}
)

// workedExampleDice always attacks with an attacker roll of 15 and a
// defender roll of 10.
func workedExampleDice() Dice {
	n := 0
	return DiceFunc(func(min, max int) int {
		if max == 20 {
			n++
			if n%2 == 1 {
				return 15
			}
			return 10
		}
		return min
	})
}
