package services

import (
	"math"
	"testing"

	"spider-league/models"
)

func snapshot(name string, st spiderStats, specials ...string) models.SpiderSnapshot {
	return models.SpiderSnapshot{
		ID:             name,
		Nickname:       name,
		HitPoints:      st.hp,
		Damage:         st.dmg,
		Venom:          st.venom,
		Defense:        st.def,
		PowerScore:     st.power,
		SpecialAttacks: specials,
	}
}

func TestSimulateBattleWorkedExample(t *testing.T) {
	out := SimulateBattle(snapshot("A", statsA), snapshot("B", statsB), workedExampleDice())

	wantDamage := []int{50, 40, 50, 40}
	if out.TurnCount() != len(wantDamage) {
		t.Fatalf("turns = %d, want %d", out.TurnCount(), len(wantDamage))
	}
	for i, turn := range out.Turns {
		if turn.Damage != wantDamage[i] {
			t.Errorf("turn %d damage = %d, want %d", turn.Index, turn.Damage, wantDamage[i])
		}
		if turn.Action != models.ActionAttack {
			t.Errorf("turn %d action = %s, want attack", turn.Index, turn.Action)
		}
	}
	if out.P1HP != 20 || out.P2HP != 0 {
		t.Errorf("final hp = %d/%d, want 20/0", out.P1HP, out.P2HP)
	}
	if out.Winner != models.SideTeam1 {
		t.Errorf("winner = %s, want TEAM_1", out.Winner)
	}
}

func TestSimulateBattleInvariants(t *testing.T) {
	tough := spiderStats{hp: 100, dmg: 10, venom: 10, def: 100, power: 100}
	for seed := int64(1); seed <= 200; seed++ {
		out := SimulateBattle(snapshot("A", statsA), snapshot("B", tough, "Web Snare"), NewSeededDice(seed))

		if n := out.TurnCount(); n < MinTurns || n > MaxTurns {
			t.Fatalf("seed %d: %d turns, want %d..%d", seed, n, MinTurns, MaxTurns)
		}

		p1, p2 := statsA.hp, tough.hp
		for i, turn := range out.Turns {
			if turn.Index != i+1 {
				t.Fatalf("seed %d: turn %d has index %d", seed, i+1, turn.Index)
			}
			wantActor := models.SideTeam1
			if i%2 == 1 {
				wantActor = models.SideTeam2
			}
			if turn.Actor != wantActor {
				t.Fatalf("seed %d: turn %d actor %s, want %s", seed, turn.Index, turn.Actor, wantActor)
			}
			if turn.P1HP > p1 || turn.P2HP > p2 || turn.P1HP < 0 || turn.P2HP < 0 {
				t.Fatalf("seed %d: turn %d hp went %d/%d → %d/%d", seed, turn.Index, p1, p2, turn.P1HP, turn.P2HP)
			}
			if turn.Dodged && turn.Damage != 0 {
				t.Fatalf("seed %d: dodged turn %d dealt %d", seed, turn.Index, turn.Damage)
			}
			if turn.DefenderHPBefore-turn.DefenderHPAfter > turn.Damage {
				t.Fatalf("seed %d: turn %d removed more hp than its damage", seed, turn.Index)
			}
			p1, p2 = turn.P1HP, turn.P2HP
		}
		if p1 != out.P1HP || p2 != out.P2HP {
			t.Fatalf("seed %d: outcome hp %d/%d, last turn %d/%d", seed, out.P1HP, out.P2HP, p1, p2)
		}
		if out.TurnCount() < MaxTurns && out.P1HP > 0 && out.P2HP > 0 {
			t.Fatalf("seed %d: stopped after %d turns with both alive", seed, out.TurnCount())
		}
	}
}

// every d20 is a 19 and every action an attack, so each strike is dodged
func allDodgedDice() Dice {
	return DiceFunc(func(min, max int) int {
		if max == 20 {
			return 19
		}
		return min
	})
}

func TestSimulateBattleStopsAtMaxTurns(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 spiderStats
		want   models.Side
	}{
		{"higher hp wins", statsA, statsB, models.SideTeam1},
		{"hp tie, power decides", spiderStats{hp: 90, dmg: 40, venom: 20, def: 20, power: 200},
			spiderStats{hp: 90, dmg: 40, venom: 20, def: 20, power: 300}, models.SideTeam2},
		{"exact tie goes to side A", statsB, statsB, models.SideTeam1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SimulateBattle(snapshot("A", tt.p1), snapshot("B", tt.p2), allDodgedDice())

			if out.TurnCount() != MaxTurns {
				t.Fatalf("turns = %d, want %d", out.TurnCount(), MaxTurns)
			}
			for _, turn := range out.Turns {
				if !turn.Dodged || turn.Damage != 0 {
					t.Fatalf("turn %d = %+v, want a dodge", turn.Index, turn)
				}
			}
			if out.P1HP != tt.p1.hp || out.P2HP != tt.p2.hp {
				t.Errorf("final hp = %d/%d, want %d/%d", out.P1HP, out.P2HP, tt.p1.hp, tt.p2.hp)
			}
			if out.Winner != tt.want {
				t.Errorf("winner = %s, want %s", out.Winner, tt.want)
			}
		})
	}
}

func TestSimulateBattleSeedDeterminism(t *testing.T) {
	a := SimulateBattle(snapshot("A", statsA, "Bite"), snapshot("B", statsB), NewSeededDice(42))
	b := SimulateBattle(snapshot("A", statsA, "Bite"), snapshot("B", statsB), NewSeededDice(42))

	if a.TurnCount() != b.TurnCount() || a.Winner != b.Winner || a.P1HP != b.P1HP || a.P2HP != b.P2HP {
		t.Fatalf("same seed, different outcomes: %+v vs %+v", a, b)
	}
	for i := range a.Turns {
		if a.Turns[i] != b.Turns[i] {
			t.Fatalf("turn %d differs: %+v vs %+v", i+1, a.Turns[i], b.Turns[i])
		}
	}
}

func TestResolveStrike(t *testing.T) {
	a := snapshot("A", statsA)
	b := snapshot("B", statsB)

	t.Run("critical beats the same roll uncritical", func(t *testing.T) {
		crit := resolveStrike(models.ActionAttack, a, b, 20, 10, 1.0)
		if !crit.critical {
			t.Fatalf("attacker roll 20 was not critical: %+v", crit)
		}
		plain := max(5, int(math.Floor(float64(a.Damage)*1.8))+(20-10)-b.Defense/18)
		if crit.damage <= plain {
			t.Errorf("critical %d should exceed uncritical %d", crit.damage, plain)
		}
		if want := int(math.Floor(float64(plain) * 2.5)); crit.damage != want {
			t.Errorf("critical = %d, want %d", crit.damage, want)
		}

		special := resolveStrike(models.ActionSpecial, a, b, 19, 10, 1.0)
		if !special.critical {
			t.Fatalf("special with attacker roll 19 was not critical: %+v", special)
		}
		plain = max(8, int(math.Floor(float64(a.Venom)*2.0))+(19-8)-b.Defense/15)
		if special.damage <= plain || special.damage != plain*3 {
			t.Errorf("special critical = %d, uncritical %d", special.damage, plain)
		}
	})

	t.Run("attack dodge", func(t *testing.T) {
		s := resolveStrike(models.ActionAttack, a, b, 15, 19, 1.0)
		if !s.dodged || s.damage != 0 {
			t.Errorf("got %+v, want a dodge", s)
		}
		// a natural 20 cannot be dodged
		s = resolveStrike(models.ActionAttack, a, b, 20, 20, 1.0)
		if s.dodged || s.damage == 0 {
			t.Errorf("got %+v, want a hit", s)
		}
	})

	t.Run("special dodge only on 20", func(t *testing.T) {
		if s := resolveStrike(models.ActionSpecial, a, b, 10, 19, 1.0); s.dodged {
			t.Errorf("defender roll 19 dodged a special")
		}
		if s := resolveStrike(models.ActionSpecial, a, b, 10, 20, 1.0); !s.dodged {
			t.Errorf("defender roll 20 did not dodge a special")
		}
		if s := resolveStrike(models.ActionSpecial, a, b, 19, 20, 1.0); s.dodged || !s.critical {
			t.Errorf("attacker roll 19 special: %+v", s)
		}
	})

	t.Run("damage floors", func(t *testing.T) {
		weak := snapshot("W", spiderStats{hp: 10, dmg: 1, venom: 1, def: 1})
		wall := snapshot("X", spiderStats{hp: 10, dmg: 1, venom: 1, def: 100})
		if s := resolveStrike(models.ActionAttack, weak, wall, 1, 18, 0.5); s.damage != 5 {
			t.Errorf("attack floor = %d, want 5", s.damage)
		}
		if s := resolveStrike(models.ActionSpecial, weak, wall, 1, 18, 0.5); s.damage != 8 {
			t.Errorf("special floor = %d, want 8", s.damage)
		}
	})
}

func TestDecideWinner(t *testing.T) {
	tests := []struct {
		name         string
		p1HP, p2HP   int
		p1Pow, p2Pow int
		want         models.Side
	}{
		{"higher hp wins", 10, 5, 1, 999, models.SideTeam1},
		{"side B higher hp", 0, 3, 999, 1, models.SideTeam2},
		{"hp tie, power decides", 0, 0, 100, 200, models.SideTeam2},
		{"hp tie, side A power", 7, 7, 300, 200, models.SideTeam1},
		{"exact tie goes to side A", 0, 0, 250, 250, models.SideTeam1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideWinner(tt.p1HP, tt.p2HP, tt.p1Pow, tt.p2Pow); got != tt.want {
				t.Errorf("decideWinner = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSpecialMoveLabels(t *testing.T) {
	// always special, label index 1
	dice := DiceFunc(func(min, max int) int {
		switch max {
		case 100:
			return 100
		case 20:
			return 10
		}
		return max
	})

	out := SimulateBattle(snapshot("A", statsA), snapshot("B", statsB, "Web Snare", "Silk Whip"), dice)
	for _, turn := range out.Turns {
		if turn.Action != models.ActionSpecial {
			t.Fatalf("turn %d action = %s, want special", turn.Index, turn.Action)
		}
		want := DefaultSpecialMove
		if turn.Actor == models.SideTeam2 {
			want = "Silk Whip"
		}
		if turn.SpecialMove != want {
			t.Errorf("turn %d special = %q, want %q", turn.Index, turn.SpecialMove, want)
		}
	}
}

func TestOpeningTurnsAreHalved(t *testing.T) {
	if turnScale(0) != 0.5 || turnScale(MinTurns-1) != 0.5 {
		t.Errorf("opening turns should be halved")
	}
	if turnScale(MinTurns) != 1.0 {
		t.Errorf("turn %d should deal full damage", MinTurns+1)
	}
}

func TestSeededDiceRange(t *testing.T) {
	d := NewSeededDice(7)
	for i := 0; i < 1000; i++ {
		if v := d.Roll(1, 20); v < 1 || v > 20 {
			t.Fatalf("roll %d out of range", v)
		}
	}
	if v := d.Roll(3, 3); v != 3 {
		t.Errorf("degenerate roll = %d, want 3", v)
	}
}
