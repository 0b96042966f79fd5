package engine

import (
	"errors"
	"testing"
)

func TestDiceResolver(t *testing.T) {
	rules := DefaultRuleset()

	t.Run("uniform faces", func(t *testing.T) {
		d := NewDiceResolver(rules, 42)
		seen := make(map[int]bool)
		for i := 0; i < 600; i++ {
			v, err := d.Roll("DC_STANDARD")
			if err != nil {
				t.Fatalf("Roll failed: %v", err)
			}
			if v < 1 || v > 6 {
				t.Fatalf("Rolled %d outside 1..6", v)
			}
			seen[v] = true
		}
		if len(seen) != 6 {
			t.Errorf("Expected every face to show up, saw %v", seen)
		}
	})

	t.Run("zero weight face never rolls", func(t *testing.T) {
		custom := DefaultRuleset()
		custom.Dice["DC_LOADED"] = DiceDefinition{Faces: []int{1, 6}, Weights: []int{0, 1}}
		d := NewDiceResolver(custom, 7)
		for i := 0; i < 200; i++ {
			v, err := d.Roll("DC_LOADED")
			if err != nil {
				t.Fatalf("Roll failed: %v", err)
			}
			if v != 6 {
				t.Fatalf("Expected only 6, got %d", v)
			}
		}
	})

	t.Run("weights skew the distribution", func(t *testing.T) {
		custom := DefaultRuleset()
		custom.Dice["DC_SKEW"] = DiceDefinition{Faces: []int{1, 2}, Weights: []int{1, 9}}
		d := NewDiceResolver(custom, 3)
		twos := 0
		for i := 0; i < 1000; i++ {
			v, _ := d.Roll("DC_SKEW")
			if v == 2 {
				twos++
			}
		}
		if twos < 800 {
			t.Errorf("Expected about 900 twos, got %d", twos)
		}
	})

	t.Run("unknown dice", func(t *testing.T) {
		d := NewDiceResolver(rules, 1)
		if _, err := d.Roll("DC_NOPE"); !errors.Is(err, ErrUnknownDice) {
			t.Errorf("Expected ErrUnknownDice, got %v", err)
		}
	})

	t.Run("same seed same sequence", func(t *testing.T) {
		a := NewDiceResolver(rules, 99)
		b := NewDiceResolver(rules, 99)
		for i := 0; i < 50; i++ {
			va, _ := a.Roll("DC_LUCKY")
			vb, _ := b.Roll("DC_LUCKY")
			if va != vb {
				t.Fatalf("Roll %d differs: %d vs %d", i, va, vb)
			}
		}
	})
}

func TestFixedDice(t *testing.T) {
	d := newFixedDice(3, 5)
	for i, want := range []int{3, 5, 5} {
		got, err := d.Roll("any")
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if got != want {
			t.Errorf("Roll %d: expected %d, got %d", i, want, got)
		}
	}

	if _, err := newFixedDice().Roll("any"); err == nil {
		t.Error("Expected error from empty queue")
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed failed: %v", err)
	}
	if a < 0 {
		t.Errorf("Expected non-negative seed, got %d", a)
	}
}
