package services

import (
	"context"
	"testing"
	"time"

	"spider-league/models"
)

func TestHousekeeperJobs(t *testing.T) {
	db := newTestDB(t)
	battles := newBattleService(db)
	challenges := NewChallengeService(db, time.Hour)
	hk := NewHousekeeper(battles, challenges, 10*time.Minute)
	ctx := context.Background()

	a := seedSpider(t, db, "user-1", "Alpha", statsA)
	b := seedSpider(t, db, "user-2", "Bravo", statsB)

	ch, _ := challenges.Create(ctx, "user-1", a.ID, b.ID, "")
	battle, _ := battles.CreateBattle(ctx, "user-1", a.ID, b.ID, nil)
	db.Model(&models.Battle{}).Where("id = ?", battle.ID).
		Updates(map[string]interface{}{"status": models.BattleStatusRunning, "started_at": time.Now().Add(-15 * time.Minute)})

	later := time.Now().Add(2 * time.Hour)
	hk.ExpireChallenges(ctx, later)
	hk.ReapStaleBattles(ctx, time.Now())

	got, _ := challenges.Get(ctx, ch.ID, "user-1")
	if got.Status != models.ChallengeExpired {
		t.Errorf("challenge status = %s, want EXPIRED", got.Status)
	}
	stale, _ := battles.GetBattle(ctx, battle.ID, false)
	if stale.Status != models.BattleStatusFailed {
		t.Errorf("battle status = %s, want FAILED", stale.Status)
	}
}

func TestHousekeeperStart(t *testing.T) {
	db := newTestDB(t)
	hk := NewHousekeeper(newBattleService(db), NewChallengeService(db, 0), 0)
	if hk.StaleAfter != 10*time.Minute {
		t.Errorf("default stale after = %v", hk.StaleAfter)
	}
	sched, err := hk.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := len(sched.Jobs()); n != 2 {
		t.Errorf("scheduled %d jobs, want 2", n)
	}
	if err := sched.Shutdown(); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
