package engine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"sync"
)

// DiceRoller produces a face value for a dice code
type DiceRoller interface {
	Roll(code string) (int, error)
}

// DiceResolver rolls dice from a ruleset catalog with a seeded source
type DiceResolver struct {
	mu      sync.Mutex
	catalog map[string]DiceDefinition
	rng     *mathrand.Rand
}

// NewDiceResolver creates a resolver over the ruleset's dice catalog
func NewDiceResolver(rules *Ruleset, seed int64) *DiceResolver {
	catalog := make(map[string]DiceDefinition)
	if rules != nil {
		for code, def := range rules.Dice {
			catalog[code] = def
		}
	}
	return &DiceResolver{
		catalog: catalog,
		rng:     mathrand.New(mathrand.NewSource(seed)),
	}
}

// Roll returns one face of the given dice. Weighted dice pick a face with
// probability proportional to its weight.
func (d *DiceResolver) Roll(code string) (int, error) {
	def, ok := d.catalog[code]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDice, code)
	}
	if len(def.Faces) == 0 {
		return 0, fmt.Errorf("%w: dice %q has no faces", ErrValidation, code)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(def.Weights) != len(def.Faces) {
		return def.Faces[d.rng.Intn(len(def.Faces))], nil
	}
	return def.Faces[weightedIndex(d.rng, def.Weights)], nil
}

// weightedIndex picks an index with probability proportional to its weight.
// Non-positive weights are never picked unless every weight is non-positive.
func weightedIndex(rng *mathrand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// NewSeed returns a random seed for board and dice generation
func NewSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1), nil
}
