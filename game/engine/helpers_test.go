package engine

import (
	"fmt"
	"sync"
	"testing"
)

// plainBoard returns a board of the given size without any special cell
func plainBoard(size int) *BoardDefinition {
	rows, columns := Layout(size)
	b := &BoardDefinition{
		GameID:     1,
		Size:       size,
		Rows:       rows,
		Columns:    columns,
		Difficulty: DifficultyNormal,
		Cells:      make([]Cell, size),
		Jumps:      make(map[int]int),
	}
	for i := 1; i <= size; i++ {
		b.Cells[i-1] = Cell{Index: i, Row: (i - 1) / columns}
	}
	return b
}

func withJump(b *BoardDefinition, from, to int) *BoardDefinition {
	kind := CellLadder
	if to < from {
		kind = CellSnake
	}
	b.Cells[from-1].Special = kind
	b.Cells[from-1].Destination = to
	b.Jumps[from] = to
	return b
}

func withCell(b *BoardDefinition, c Cell) *BoardDefinition {
	c.Row = b.Cells[c.Index-1].Row
	b.Cells[c.Index-1] = c
	return b
}

func newTestGame(t *testing.T, board *BoardDefinition, rules *Ruleset, players []int64, values ...int) *Game {
	t.Helper()
	if rules == nil {
		rules = DefaultRuleset()
	}
	g, err := NewGame(board, rules, players, newFixedDice(values...))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return g
}

// setPlayer edits a player's state directly, bypassing the rules
func setPlayer(t *testing.T, g *Game, userID int64, edit func(p *PlayerState)) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[userID]
	if !ok {
		t.Fatalf("player %d not in game", userID)
	}
	edit(p)
}

func mustPlayer(t *testing.T, g *Game, userID int64) PlayerState {
	t.Helper()
	p, ok := g.Player(userID)
	if !ok {
		t.Fatalf("player %d not in game", userID)
	}
	return p
}

func mustRoll(t *testing.T, g *Game, userID int64) RollOutcome {
	t.Helper()
	out, err := g.RollDice(userID, "")
	if err != nil {
		t.Fatalf("RollDice(%d) failed: %v", userID, err)
	}
	return out
}

func hasToken(tokens []ResultToken, want ResultToken) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

// fixedDice returns the queued values in order; rolling past the end of the
// queue repeats the last value
type fixedDice struct {
	mu     sync.Mutex
	values []int
	next   int
}

func newFixedDice(values ...int) *fixedDice {
	return &fixedDice{values: values}
}

func (f *fixedDice) Roll(string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0, fmt.Errorf("%w: no dice values queued", ErrValidation)
	}
	i := f.next
	if i >= len(f.values) {
		i = len(f.values) - 1
	} else {
		f.next++
	}
	return f.values[i], nil
}
