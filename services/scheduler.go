// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Housekeeper runs the periodic cleanup jobs: challenge expiry and the
// stale-battle reaper.
type Housekeeper struct {
	Battles    *BattleService
	Challenges *ChallengeService
	StaleAfter time.Duration
}

func NewHousekeeper(battles *BattleService, challenges *ChallengeService, staleAfter time.Duration) *Housekeeper {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &Housekeeper{Battles: battles, Challenges: challenges, StaleAfter: staleAfter}
}

// ExpireChallenges is the body of the challenge-expiry job
func (h *Housekeeper) ExpireChallenges(ctx context.Context, now time.Time) {
	n, err := h.Challenges.ExpireStale(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] challenge expiry failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("⌛ [Scheduler] expired %d challenge(s)", n)
	}
}

// ReapStaleBattles is the body of the stale-battle job
func (h *Housekeeper) ReapStaleBattles(ctx context.Context, now time.Time) {
	n, err := h.Battles.FailStaleBattles(ctx, now.Add(-h.StaleAfter))
	if err != nil {
		log.Printf("[Scheduler] stale battle sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 [Scheduler] failed %d stale battle(s)", n)
	}
}

// Start schedules both jobs every minute. Callers shut the scheduler down.
func (h *Housekeeper) Start() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Every minute: expire unanswered challenges
	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			h.ExpireChallenges(context.Background(), time.Now())
		}),
	); err != nil {
		return nil, err
	}

	// Every minute: fail battles whose runner never finished
	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			h.ReapStaleBattles(context.Background(), time.Now())
		}),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
