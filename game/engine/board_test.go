package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		size, rows, columns int
	}{
		{16, 4, 4},
		{50, 7, 8},
		{100, 10, 10},
		{101, 10, 11},
		{400, 20, 20},
	}
	for _, tt := range tests {
		rows, columns := Layout(tt.size)
		if rows != tt.rows || columns != tt.columns {
			t.Errorf("Layout(%d) = %dx%d, expected %dx%d", tt.size, rows, columns, tt.rows, tt.columns)
		}
		if rows*columns < tt.size {
			t.Errorf("Layout(%d) does not fit every cell", tt.size)
		}
	}
}

func TestBuildBoardValidation(t *testing.T) {
	rules := DefaultRuleset()

	tests := []struct {
		name    string
		spec    BoardSpec
		rules   *Ruleset
		wantErr error
	}{
		{"zero game id", BoardSpec{GameID: 0, Size: 100}, rules, ErrInvalidGameID},
		{"negative game id", BoardSpec{GameID: -3, Size: 100}, rules, ErrInvalidGameID},
		{"too small", BoardSpec{GameID: 1, Size: 10}, rules, ErrInvalidBoardSize},
		{"too large", BoardSpec{GameID: 1, Size: 401}, rules, ErrInvalidBoardSize},
		{"unknown difficulty", BoardSpec{GameID: 1, Size: 100, Difficulty: "nightmare"}, rules, ErrUnknownDifficulty},
		{"nil ruleset", BoardSpec{GameID: 1, Size: 100}, nil, ErrNilRuleset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBoard(tt.spec, tt.rules, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildBoardIsDeterministic(t *testing.T) {
	rules := DefaultRuleset()
	spec := BoardSpec{GameID: 9, Size: 100, EnableBonus: true, EnableTrap: true, EnableTeleport: true}

	a, err := BuildBoard(spec, rules, 1234)
	if err != nil {
		t.Fatalf("BuildBoard failed: %v", err)
	}
	b, err := BuildBoard(spec, rules, 1234)
	if err != nil {
		t.Fatalf("BuildBoard failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical boards for the same seed")
	}
	if a.Difficulty != DifficultyNormal {
		t.Errorf("Expected default difficulty %s, got %s", DifficultyNormal, a.Difficulty)
	}
}

func TestBuildBoardInvariants(t *testing.T) {
	rules := DefaultRuleset()
	sizes := []int{16, 25, 50, 99, 100, 230, 400}
	difficulties := []string{DifficultyEasy, DifficultyNormal, DifficultyHard}

	for _, size := range sizes {
		for _, difficulty := range difficulties {
			for seed := int64(1); seed <= 5; seed++ {
				board, err := BuildBoard(BoardSpec{
					GameID:         1,
					Size:           size,
					EnableBonus:    true,
					EnableTrap:     true,
					EnableTeleport: true,
					Difficulty:     difficulty,
				}, rules, seed)
				if err != nil {
					t.Fatalf("BuildBoard(%d, %s, %d) failed: %v", size, difficulty, seed, err)
				}
				checkBoard(t, board)
			}
		}
	}
}

func checkBoard(t *testing.T, b *BoardDefinition) {
	t.Helper()

	if len(b.Cells) != b.Size {
		t.Fatalf("Expected %d cells, got %d", b.Size, len(b.Cells))
	}
	if b.Cells[0].Special != CellPlain || b.Cells[b.Size-1].Special != CellPlain {
		t.Errorf("size %d seed %d: first and last cells must be plain", b.Size, b.Seed)
	}

	destinations := make(map[int]bool)
	for i, c := range b.Cells {
		if c.Index != i+1 {
			t.Fatalf("Cell %d has index %d", i+1, c.Index)
		}
		if c.Row != i/b.Columns {
			t.Errorf("Cell %d in row %d, expected %d", c.Index, c.Row, i/b.Columns)
		}
		col := i % b.Columns
		if c.Row%2 == 1 {
			col = b.Columns - 1 - col
		}
		if c.Column != col {
			t.Errorf("Cell %d in column %d, expected serpentine %d", c.Index, c.Column, col)
		}
		if c.Destination != 0 {
			destinations[c.Destination] = true
		}
	}

	for from, to := range b.Jumps {
		src := b.Cells[from-1]
		dst := b.Cells[to-1]
		switch src.Special {
		case CellLadder:
			if to <= from {
				t.Errorf("Ladder %d -> %d does not go up", from, to)
			}
		case CellSnake:
			if to >= from {
				t.Errorf("Snake %d -> %d does not go down", from, to)
			}
		default:
			t.Errorf("Jump source %d is %q", from, src.Special)
		}
		if src.Row == dst.Row {
			t.Errorf("Jump %d -> %d stays in row %d", from, to, src.Row)
		}
	}

	for _, c := range b.Cells {
		if c.Special != CellPlain && destinations[c.Index] {
			t.Errorf("Cell %d is both special and a destination", c.Index)
		}
		if c.Special == CellTeleport && (c.Destination < 2 || c.Destination >= b.Size) {
			t.Errorf("Teleport %d lands on %d", c.Index, c.Destination)
		}
	}
}

func TestBuildBoardHazardCounts(t *testing.T) {
	rules := DefaultRuleset()

	t.Run("disabled hazards are absent", func(t *testing.T) {
		board, err := BuildBoard(BoardSpec{GameID: 1, Size: 100, Difficulty: DifficultyHard}, rules, 7)
		if err != nil {
			t.Fatalf("BuildBoard failed: %v", err)
		}
		for _, kind := range []SpecialCellType{CellBonus, CellTrap, CellTeleport} {
			if n := board.CountSpecial(kind); n != 0 {
				t.Errorf("Expected no %s cells, got %d", kind, n)
			}
		}
	})

	t.Run("counts scale with difficulty", func(t *testing.T) {
		board, err := BuildBoard(BoardSpec{
			GameID:         1,
			Size:           100,
			EnableBonus:    true,
			EnableTrap:     true,
			EnableTeleport: true,
			Difficulty:     DifficultyHard,
		}, rules, 7)
		if err != nil {
			t.Fatalf("BuildBoard failed: %v", err)
		}
		want := map[SpecialCellType]int{
			CellLadder:   4,
			CellSnake:    8,
			CellBonus:    2,
			CellTrap:     4,
			CellTeleport: 3,
		}
		for kind, n := range want {
			if got := board.CountSpecial(kind); got != n {
				t.Errorf("Expected %d %s cells, got %d", n, kind, got)
			}
		}
		if len(board.Jumps) != 12 {
			t.Errorf("Expected 12 jumps, got %d", len(board.Jumps))
		}
	})

	t.Run("bonus cells carry a grant", func(t *testing.T) {
		board, err := BuildBoard(BoardSpec{GameID: 1, Size: 200, EnableBonus: true, Difficulty: DifficultyEasy}, rules, 3)
		if err != nil {
			t.Fatalf("BuildBoard failed: %v", err)
		}
		for _, c := range board.Cells {
			if c.Special == CellBonus && c.GrantItem == "" && c.GrantDice == "" && !c.ExtraRoll {
				t.Errorf("Bonus cell %d grants nothing", c.Index)
			}
		}
	})

	t.Run("small board still gets hazards", func(t *testing.T) {
		if n := scaledCount(3, 16); n != 1 {
			t.Errorf("Expected at least one placement, got %d", n)
		}
		if n := scaledCount(0, 400); n != 0 {
			t.Errorf("Expected no placement for zero profile, got %d", n)
		}
	})
}
