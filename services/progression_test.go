package services

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"spider-league/models"
)

func TestRecordBattleStreaksAndBadges(t *testing.T) {
	db := newTestDB(t)
	badges := NewBadgeService(db)
	svc := NewProgressionService(db, badges)

	for i := 0; i < 3; i++ {
		if err := svc.RecordBattle("b", "hunter", "prey", false); err != nil {
			t.Fatalf("RecordBattle: %v", err)
		}
	}

	hunter, _ := svc.GetProgress("hunter")
	if hunter.BattlesWon != 3 || hunter.WinStreak != 3 || hunter.BestWinStreak != 3 {
		t.Errorf("hunter = %+v", hunter)
	}
	if hunter.TotalXP != 3*DefaultXPWeights.WinXP {
		t.Errorf("hunter xp = %d", hunter.TotalXP)
	}

	owned, err := badges.ListUserBadges("hunter")
	if err != nil {
		t.Fatalf("ListUserBadges: %v", err)
	}
	var codes []string
	for _, ub := range owned {
		codes = append(codes, ub.BadgeType.Code)
	}
	for _, want := range []string{"FIRST_BATTLE", "FIRST_WIN", "HAT_TRICK"} {
		if !slices.Contains(codes, want) {
			t.Errorf("hunter badges %v missing %s", codes, want)
		}
	}

	prey, _ := svc.GetProgress("prey")
	if prey.TotalBattles != 3 || prey.BattlesWon != 0 || prey.TotalXP != 3*DefaultXPWeights.LossXP {
		t.Errorf("prey = %+v", prey)
	}

	// a loss resets the streak but not the best streak
	if err := svc.RecordBattle("b", "prey", "hunter", true); err != nil {
		t.Fatalf("RecordBattle: %v", err)
	}
	hunter, _ = svc.GetProgress("hunter")
	if hunter.WinStreak != 0 || hunter.BestWinStreak != 3 || hunter.SpidersLost != 1 {
		t.Errorf("hunter after loss = %+v", hunter)
	}
	prey, _ = svc.GetProgress("prey")
	if prey.SpidersCaptured != 1 || prey.TotalXP != 3*DefaultXPWeights.LossXP+DefaultXPWeights.WinXP+DefaultXPWeights.CaptureXP {
		t.Errorf("prey after capture = %+v", prey)
	}
}

func TestAutoAwardBadgesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	badges := NewBadgeService(db)
	svc := NewProgressionService(db, badges)

	if err := svc.RecordBattle("b", "u", "v", false); err != nil {
		t.Fatalf("RecordBattle: %v", err)
	}
	again, err := badges.AutoAwardBadges("u", nil)
	if err != nil {
		t.Fatalf("AutoAwardBadges: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("re-evaluation awarded %v", again)
	}
	if err := badges.SeedBadgeTypes(); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	owned, _ := badges.ListUserBadges("u")
	if len(owned) != 2 {
		t.Errorf("u has %d badges, want 2", len(owned))
	}
}

func TestAwardXPLevelsUp(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, nil)

	prog, err := svc.AwardXP("u", 250, "test")
	if err != nil {
		t.Fatalf("AwardXP: %v", err)
	}
	if prog.Level != 2 || prog.LastLevelUpAt == nil {
		t.Errorf("level = %d, want 2", prog.Level)
	}
	if RankName(prog.Rank) != "Hatchling" {
		t.Errorf("rank name = %s", RankName(prog.Rank))
	}
}

func TestLeaderboardOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, nil)

	_ = svc.RecordBattle("b1", "gold", "bronze", false)
	_ = svc.RecordBattle("b2", "gold", "silver", false)
	_ = svc.RecordBattle("b3", "silver", "bronze", false)

	rows, err := svc.Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	var order []string
	for _, r := range rows {
		order = append(order, r.ExternalUserID)
	}
	if !slices.Equal(order, []string{"gold", "silver", "bronze"}) {
		t.Errorf("leaderboard = %v", order)
	}
}

func TestRecordBattleConcurrentResults(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, NewBadgeService(db))

	const rounds = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- svc.RecordBattle(fmt.Sprintf("c%d", i), "champ", fmt.Sprintf("rookie-%d", i), false)
		}(i)
		// rematches lock the same two rows in the opposite roles
		go func(i int) {
			defer wg.Done()
			errs <- svc.RecordBattle(fmt.Sprintf("r%d", i), "rival", "champ", false)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordBattle: %v", err)
		}
	}

	var rows int64
	db.Model(&models.UserProgress{}).Where("external_user_id = ?", "champ").Count(&rows)
	if rows != 1 {
		t.Fatalf("champ has %d progress rows, want 1", rows)
	}
	champ, _ := svc.GetProgress("champ")
	if champ.BattlesWon != rounds || champ.TotalBattles != 2*rounds {
		t.Errorf("champ won %d of %d, want %d of %d", champ.BattlesWon, champ.TotalBattles, rounds, 2*rounds)
	}
	rival, _ := svc.GetProgress("rival")
	if rival.BattlesWon != rounds {
		t.Errorf("rival won %d, want %d", rival.BattlesWon, rounds)
	}
}

func TestEnsureProgressKeepsExistingRow(t *testing.T) {
	db := newTestDB(t)

	first, err := ensureProgress(db, "u", true)
	if err != nil {
		t.Fatalf("ensureProgress: %v", err)
	}
	first.BattlesWon = 4
	db.Save(first)

	again, err := ensureProgress(db, "u", false)
	if err != nil {
		t.Fatalf("ensureProgress: %v", err)
	}
	if again.ID != first.ID || again.BattlesWon != 4 {
		t.Errorf("second call returned %+v, want the existing row", again)
	}
}
