// services/battle_simulator.go
package services

import (
	"fmt"
	"math"

	"spider-league/models"
)

const (
	MinTurns = 4
	MaxTurns = 12

	// attack chance out of 100; the rest are specials
	attackChance = 75

	DefaultSpecialMove = "Venomous Strike"
)

// SimulatedTurn is one resolved turn before it is persisted
type SimulatedTurn struct {
	Index            int
	Actor            models.Side
	Action           models.ActionType
	AttackerRoll     int
	DefenderRoll     int
	Damage           int
	DefenderHPBefore int
	DefenderHPAfter  int
	P1HP             int
	P2HP             int
	Critical         bool
	Dodged           bool
	SpecialMove      string
	Description      string
}

// BattleOutcome is the full result of a simulated battle
type BattleOutcome struct {
	Turns  []SimulatedTurn
	P1HP   int
	P2HP   int
	Winner models.Side
}

// TurnCount returns the number of turns played
func (o *BattleOutcome) TurnCount() int { return len(o.Turns) }

// SimulateBattle plays a full battle between two snapshots. Side TEAM_1 acts first.
// It is pure: all randomness comes from dice.
func SimulateBattle(p1, p2 models.SpiderSnapshot, dice Dice) BattleOutcome {
	hp := map[models.Side]int{
		models.SideTeam1: p1.HitPoints,
		models.SideTeam2: p2.HitPoints,
	}
	fighters := map[models.Side]models.SpiderSnapshot{
		models.SideTeam1: p1,
		models.SideTeam2: p2,
	}

	var turns []SimulatedTurn
	actor := models.SideTeam1
	count := 0
	for (hp[models.SideTeam1] > 0 && hp[models.SideTeam2] > 0 && count < MaxTurns) || count < MinTurns {
		defender := actor.Opponent()
		attacker := fighters[actor]

		atkRoll := dice.Roll(1, 20)
		defRoll := dice.Roll(1, 20)

		action := models.ActionAttack
		if dice.Roll(1, 100) > attackChance {
			action = models.ActionSpecial
		}

		res := resolveStrike(action, attacker, fighters[defender], atkRoll, defRoll, turnScale(count))

		before := hp[defender]
		after := before - res.damage
		if after < 0 {
			after = 0
		}
		hp[defender] = after

		turn := SimulatedTurn{
			Index:            count + 1,
			Actor:            actor,
			Action:           action,
			AttackerRoll:     atkRoll,
			DefenderRoll:     defRoll,
			Damage:           res.damage,
			DefenderHPBefore: before,
			DefenderHPAfter:  after,
			P1HP:             hp[models.SideTeam1],
			P2HP:             hp[models.SideTeam2],
			Critical:         res.critical,
			Dodged:           res.dodged,
		}
		if action == models.ActionSpecial {
			turn.SpecialMove = pickSpecialMove(attacker.SpecialAttacks, dice)
		}
		turn.Description = describeTurn(turn, attacker, fighters[defender])
		turns = append(turns, turn)

		count++
		actor = defender
	}

	return BattleOutcome{
		Turns:  turns,
		P1HP:   hp[models.SideTeam1],
		P2HP:   hp[models.SideTeam2],
		Winner: decideWinner(hp[models.SideTeam1], hp[models.SideTeam2], p1.PowerScore, p2.PowerScore),
	}
}

// turnScale halves damage for the opening turns so every battle lasts MinTurns
func turnScale(completedTurns int) float64 {
	if completedTurns < MinTurns {
		return 0.5
	}
	return 1.0
}

type strike struct {
	damage   int
	critical bool
	dodged   bool
}

func resolveStrike(action models.ActionType, attacker, defender models.SpiderSnapshot, atkRoll, defRoll int, scale float64) strike {
	if action == models.ActionSpecial {
		base := int(math.Floor(float64(attacker.Venom)*2.0*scale)) + (atkRoll - 8)
		mitigation := defender.Defense / 15
		if defRoll > 18 {
			mitigation += 2
		}
		if defRoll == 20 && atkRoll < 19 {
			return strike{dodged: true}
		}
		dmg := max(8, base-mitigation)
		if atkRoll >= 19 {
			return strike{damage: int(math.Floor(float64(dmg) * 3.0)), critical: true}
		}
		return strike{damage: dmg}
	}

	base := int(math.Floor(float64(attacker.Damage)*1.8*scale)) + (atkRoll - 10)
	mitigation := defender.Defense / 18
	if defRoll > 17 {
		mitigation += 2
	}
	if defRoll >= 19 && atkRoll < 20 {
		return strike{dodged: true}
	}
	dmg := max(5, base-mitigation)
	if atkRoll == 20 {
		return strike{damage: int(math.Floor(float64(dmg) * 2.5)), critical: true}
	}
	return strike{damage: dmg}
}

// decideWinner: higher HP wins; equal HP goes to the higher power score,
// and an exact power tie goes to TEAM_1.
func decideWinner(p1HP, p2HP, p1Power, p2Power int) models.Side {
	switch {
	case p1HP > p2HP:
		return models.SideTeam1
	case p2HP > p1HP:
		return models.SideTeam2
	case p1Power >= p2Power:
		return models.SideTeam1
	default:
		return models.SideTeam2
	}
}

func pickSpecialMove(specials []string, dice Dice) string {
	if len(specials) == 0 {
		return DefaultSpecialMove
	}
	return specials[dice.Roll(0, len(specials)-1)]
}

func describeTurn(t SimulatedTurn, attacker, defender models.SpiderSnapshot) string {
	move := "attacks"
	if t.Action == models.ActionSpecial {
		move = "unleashes " + t.SpecialMove + " on"
	}
	switch {
	case t.Dodged:
		return fmt.Sprintf("%s %s %s, but %s dodges!", attacker.Nickname, move, defender.Nickname, defender.Nickname)
	case t.Critical:
		return fmt.Sprintf("%s %s %s for a CRITICAL %d damage!", attacker.Nickname, move, defender.Nickname, t.Damage)
	default:
		return fmt.Sprintf("%s %s %s for %d damage.", attacker.Nickname, move, defender.Nickname, t.Damage)
	}
}
