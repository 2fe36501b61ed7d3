// services/dice.go
package services

import (
	"math/rand"
	"sync"
	"time"
)

// Dice is the simulator's only source of randomness.
type Dice interface {
	// Roll returns a uniform integer in [min, max].
	Roll(min, max int) int
}

// DiceFunc adapts a plain function to Dice (scripted rolls in tests).
type DiceFunc func(min, max int) int

func (f DiceFunc) Roll(min, max int) int { return f(min, max) }

type randDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDice returns a time-seeded Dice safe for concurrent battles
func NewDice() Dice {
	return NewSeededDice(time.Now().UnixNano())
}

// NewSeededDice returns a reproducible Dice: same seed, same rolls
func NewSeededDice(seed int64) Dice {
	return &randDice{rng: rand.New(rand.NewSource(seed))}
}

func (d *randDice) Roll(min, max int) int {
	if max <= min {
		return min
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return min + d.rng.Intn(max-min+1)
}
