// services/battle_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"spider-league/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BattleService struct {
	DB          *gorm.DB
	Dice        Dice
	TurnDelay   time.Duration // pacing for live spectators; 0 disables
	Progression *ProgressionService
}

func NewBattleService(db *gorm.DB, dice Dice, turnDelay time.Duration, progression *ProgressionService) *BattleService {
	return &BattleService{DB: db, Dice: dice, TurnDelay: turnDelay, Progression: progression}
}

// BattleResult is what the simulator endpoint reports back
type BattleResult struct {
	BattleID     string      `json:"battleId"`
	Winner       models.Side `json:"winnerSide"`
	WinnerUserID string      `json:"winner"`
	Turns        int         `json:"turns"`
	P1HP         int         `json:"p1_hp"`
	P2HP         int         `json:"p2_hp"`
}

// CreateBattle snapshots both spiders into a new PENDING battle.
// The challenger side (TEAM_1) belongs to userID.
func (s *BattleService) CreateBattle(ctx context.Context, userID, spiderID, opponentSpiderID string, challengeID *string) (*models.Battle, error) {
	var battle *models.Battle
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		battle, err = createBattleTx(tx, userID, spiderID, opponentSpiderID, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return battle, nil
}

func createBattleTx(tx *gorm.DB, userID, spiderID, opponentSpiderID string, challengeID *string) (*models.Battle, error) {
	if spiderID == opponentSpiderID {
		return nil, ErrSameSpider
	}
	own, err := loadSpider(tx, spiderID)
	if err != nil {
		return nil, err
	}
	if own.OwnerID != userID {
		return nil, ErrNotSpiderOwner
	}
	opp, err := loadSpider(tx, opponentSpiderID)
	if err != nil {
		return nil, err
	}
	if !own.IsBattleReady() || !opp.IsBattleReady() {
		return nil, ErrSpiderNotReady
	}

	battle := &models.Battle{
		ID:          uuid.NewString(),
		Team1UserID: own.OwnerID,
		Team2UserID: opp.OwnerID,
		Team1Spider: datatypes.NewJSONType(own.Snapshot()),
		Team2Spider: datatypes.NewJSONType(opp.Snapshot()),
		P1CurrentHP: own.HitPoints,
		P2CurrentHP: opp.HitPoints,
		Status:      models.BattleStatusPending,
		IsActive:    true,
		ChallengeID: challengeID,
	}
	battle.CurrentTurnUserID = battle.Team1UserID
	if err := tx.Create(battle).Error; err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}
	return battle, nil
}

func loadSpider(tx *gorm.DB, id string) (*models.Spider, error) {
	var sp models.Spider
	if err := tx.First(&sp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpiderNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// Run simulates a battle to completion: claim, play every turn, finalize.
// A battle can only be run once; a second call returns ErrBattleAlreadyClaimed.
func (s *BattleService) Run(ctx context.Context, battleID string) (*BattleResult, error) {
	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}

	if err := s.claim(ctx, battle); err != nil {
		return nil, err
	}

	return s.execute(ctx, battle)
}

func (s *BattleService) loadBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	if battleID == "" {
		return nil, ErrBattleNotFound
	}
	var battle models.Battle
	if err := s.DB.WithContext(ctx).First(&battle, "id = ?", battleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("load battle %s: %w", battleID, err)
	}
	if err := validateBattle(&battle); err != nil {
		return nil, err
	}
	return &battle, nil
}

func validateBattle(b *models.Battle) error {
	if b.Team1UserID == "" || b.Team2UserID == "" {
		return fmt.Errorf("%w: missing team user", ErrMalformedBattle)
	}
	for _, side := range []models.Side{models.SideTeam1, models.SideTeam2} {
		sp := b.SpiderFor(side)
		if sp.ID == "" || sp.Nickname == "" {
			return fmt.Errorf("%w: %s spider snapshot is empty", ErrMalformedBattle, side)
		}
		if sp.HitPoints <= 0 || sp.Damage < 0 || sp.Venom < 0 || sp.Defense < 0 {
			return fmt.Errorf("%w: %s spider has invalid stats", ErrMalformedBattle, side)
		}
	}
	return nil
}

// claim moves the battle PENDING → RUNNING; only one caller can win it
func (s *BattleService) claim(ctx context.Context, battle *models.Battle) error {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Battle{}).
		Where("id = ? AND status = ?", battle.ID, models.BattleStatusPending).
		Updates(map[string]interface{}{
			"status":     models.BattleStatusRunning,
			"is_active":  true,
			"started_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("claim battle %s: %w", battle.ID, res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrBattleAlreadyClaimed
	}
	battle.Status = models.BattleStatusRunning
	battle.StartedAt = &now
	return nil
}

// execute plays and persists a battle that the caller has already claimed
func (s *BattleService) execute(ctx context.Context, battle *models.Battle) (*BattleResult, error) {
	outcome := SimulateBattle(battle.Team1Spider.Data(), battle.Team2Spider.Data(), s.Dice)

	log.Printf("⚔️ [BATTLE] %s started: %s vs %s", battle.ID,
		battle.Team1Spider.Data().Nickname, battle.Team2Spider.Data().Nickname)

	for i, turn := range outcome.Turns {
		if err := s.persistTurn(ctx, battle, turn); err != nil {
			s.markFailed(battle.ID, err.Error())
			return nil, fmt.Errorf("persist turn %d of battle %s: %w", turn.Index, battle.ID, err)
		}
		if i < len(outcome.Turns)-1 {
			if err := s.pace(ctx); err != nil {
				return nil, err
			}
		}
	}

	if err := s.finalize(ctx, battle, &outcome); err != nil {
		log.Printf("❌ [BATTLE] %s finalize failed: %v", battle.ID, err)
		s.markFailed(battle.ID, err.Error())
		return nil, err
	}

	winnerUserID := battle.UserFor(outcome.Winner)
	log.Printf("🏆 [BATTLE] %s finished after %d turns: winner=%s (%d-%d)",
		battle.ID, outcome.TurnCount(), winnerUserID, outcome.P1HP, outcome.P2HP)

	s.afterBattle(battle, &outcome)

	return &BattleResult{
		BattleID:     battle.ID,
		Winner:       outcome.Winner,
		WinnerUserID: winnerUserID,
		Turns:        outcome.TurnCount(),
		P1HP:         outcome.P1HP,
		P2HP:         outcome.P2HP,
	}, nil
}

// persistTurn appends the turn and moves the running counters together
func (s *BattleService) persistTurn(ctx context.Context, battle *models.Battle, t SimulatedTurn) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.BattleTurn{
			ID:               uuid.NewString(),
			BattleID:         battle.ID,
			TurnIndex:        t.Index,
			ActorSide:        t.Actor,
			ActorUserID:      battle.UserFor(t.Actor),
			ActionType:       t.Action,
			AttackerRoll:     t.AttackerRoll,
			DefenderRoll:     t.DefenderRoll,
			Damage:           t.Damage,
			DefenderHPBefore: t.DefenderHPBefore,
			DefenderHPAfter:  t.DefenderHPAfter,
			P1HPAfter:        t.P1HP,
			P2HPAfter:        t.P2HP,
			IsCritical:       t.Critical,
			IsDodged:         t.Dodged,
			SpecialMove:      t.SpecialMove,
			Description:      t.Description,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.Battle{}).Where("id = ?", battle.ID).Updates(map[string]interface{}{
			"p1_current_hp":        t.P1HP,
			"p2_current_hp":        t.P2HP,
			"current_turn":         t.Index,
			"current_turn_user_id": battle.UserFor(t.Actor.Opponent()),
		}).Error
	})
}

func (s *BattleService) pace(ctx context.Context) error {
	if s.TurnDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.TurnDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finalize commits the result: battle terminal state, ownership transfer and
// challenge completion happen in one transaction or not at all.
func (s *BattleService) finalize(ctx context.Context, battle *models.Battle, outcome *BattleOutcome) error {
	winner := outcome.Winner
	loser := winner.Opponent()
	winnerUserID := battle.UserFor(winner)
	loserUserID := battle.UserFor(loser)
	loserSpider := battle.SpiderFor(loser)
	now := time.Now()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Battle{}).
			Where("id = ? AND status = ?", battle.ID, models.BattleStatusRunning).
			Updates(map[string]interface{}{
				"status":         models.BattleStatusCompleted,
				"is_active":      false,
				"winner":         string(winner),
				"winner_user_id": winnerUserID,
				"p1_current_hp":  outcome.P1HP,
				"p2_current_hp":  outcome.P2HP,
				"current_turn":   outcome.TurnCount(),
				"finished_at":    now,
			})
		if res.Error != nil {
			return fmt.Errorf("finalize battle: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("finalize battle %s: %w", battle.ID, ErrBattleAlreadyClaimed)
		}

		if battle.ChallengeID == nil {
			return nil
		}

		if err := TransferSpiderOwnership(tx, loserSpider.ID, loserUserID, winnerUserID); err != nil {
			return err
		}

		res = tx.Model(&models.Challenge{}).
			Where("id = ?", *battle.ChallengeID).
			Updates(map[string]interface{}{
				"status":          models.ChallengeCompleted,
				"winner_id":       winnerUserID,
				"loser_spider_id": loserSpider.ID,
				"completed_at":    now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete challenge %s: %w", *battle.ChallengeID, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("complete challenge %s: %w", *battle.ChallengeID, ErrChallengeNotFound)
		}
		return nil
	})
}

// TransferSpiderOwnership moves one spider from one owner to another.
// It only succeeds if the spider is still owned by fromUserID.
func TransferSpiderOwnership(tx *gorm.DB, spiderID, fromUserID, toUserID string) error {
	res := tx.Model(&models.Spider{}).
		Where("id = ? AND owner_id = ?", spiderID, fromUserID).
		Update("owner_id", toUserID)
	if res.Error != nil {
		return fmt.Errorf("transfer spider %s: %w", spiderID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("transfer spider %s: %w", spiderID, ErrOwnershipConflict)
	}
	log.Printf("🕷️ [BATTLE] spider %s transferred %s → %s", spiderID, fromUserID, toUserID)
	return nil
}

// afterBattle runs best-effort side effects; failures never undo the battle
func (s *BattleService) afterBattle(battle *models.Battle, outcome *BattleOutcome) {
	if s.Progression == nil {
		return
	}
	winnerUserID := battle.UserFor(outcome.Winner)
	loserUserID := battle.UserFor(outcome.Winner.Opponent())
	captured := battle.ChallengeID != nil
	if err := s.Progression.RecordBattle(battle.ID, winnerUserID, loserUserID, captured); err != nil {
		log.Printf("⚠️ [BATTLE] %s progression update failed: %v", battle.ID, err)
	}
}

// markFailed records a terminal failure for a battle still RUNNING
func (s *BattleService) markFailed(battleID, reason string) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		_, err := failBattles(tx, []string{battleID}, reason)
		return err
	})
	if err != nil {
		log.Printf("❌ [BATTLE] could not mark %s failed: %v", battleID, err)
	}
}

// FailStaleBattles fails battles stuck RUNNING since before olderThan
func (s *BattleService) FailStaleBattles(ctx context.Context, olderThan time.Time) (int64, error) {
	var failed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Battle{}).
			Where("status = ? AND started_at < ?", models.BattleStatusRunning, olderThan).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		var err error
		failed, err = failBattles(tx, ids, "stale")
		return err
	})
	return failed, err
}

// failBattles moves the RUNNING battles among ids to FAILED and closes any
// challenge waiting on them. The loser keeps their spider.
func failBattles(tx *gorm.DB, ids []string, reason string) (int64, error) {
	res := tx.Model(&models.Battle{}).
		Where("id IN ? AND status = ?", ids, models.BattleStatusRunning).
		Updates(map[string]interface{}{
			"status":         models.BattleStatusFailed,
			"is_active":      false,
			"failure_reason": reason,
			"finished_at":    time.Now(),
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return res.RowsAffected, res.Error
	}

	err := tx.Model(&models.Challenge{}).
		Where("battle_id IN ? AND status = ?", ids, models.ChallengeAccepted).
		Updates(map[string]interface{}{
			"status":       models.ChallengeFailed,
			"completed_at": time.Now(),
		}).Error
	if err != nil {
		return 0, fmt.Errorf("fail challenges: %w", err)
	}
	return res.RowsAffected, nil
}

// GetBattle loads a battle, optionally with its turn log
func (s *BattleService) GetBattle(ctx context.Context, battleID string, withTurns bool) (*models.Battle, error) {
	db := s.DB.WithContext(ctx)
	if withTurns {
		db = db.Preload("Turns", func(tx *gorm.DB) *gorm.DB { return tx.Order("turn_index ASC") })
	}
	var battle models.Battle
	if err := db.First(&battle, "id = ?", battleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return &battle, nil
}

// ListTurns returns turns with index > afterIndex in order
func (s *BattleService) ListTurns(ctx context.Context, battleID string, afterIndex int) ([]models.BattleTurn, error) {
	var turns []models.BattleTurn
	err := s.DB.WithContext(ctx).
		Where("battle_id = ? AND turn_index > ?", battleID, afterIndex).
		Order("turn_index ASC").
		Find(&turns).Error
	return turns, err
}

// ListUserBattles returns the most recent battles a user fought in
func (s *BattleService) ListUserBattles(ctx context.Context, userID string, limit int) ([]models.Battle, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var battles []models.Battle
	err := s.DB.WithContext(ctx).
		Where("team1_user_id = ? OR team2_user_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&battles).Error
	return battles, err
}
