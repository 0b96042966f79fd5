package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// maxPlacementAttempts bounds the retries for a single pair placement
const maxPlacementAttempts = 32

// BoardSpec holds the inputs of BuildBoard
type BoardSpec struct {
	GameID         int64  `json:"game_id"`
	Size           int    `json:"board_size"`
	EnableBonus    bool   `json:"enable_bonus_cells"`
	EnableTrap     bool   `json:"enable_trap_cells"`
	EnableTeleport bool   `json:"enable_teleport_cells"`
	Difficulty     string `json:"difficulty"`
}

// FinalCell returns the index a player must reach to win
func (b *BoardDefinition) FinalCell() int {
	return b.Size
}

// CellAt returns the cell with the given 1-based index
func (b *BoardDefinition) CellAt(index int) (Cell, bool) {
	if index < 1 || index > len(b.Cells) {
		return Cell{}, false
	}
	return b.Cells[index-1], true
}

// CountSpecial returns how many cells carry the given special type
func (b *BoardDefinition) CountSpecial(kind SpecialCellType) int {
	count := 0
	for _, c := range b.Cells {
		if c.Special == kind {
			count++
		}
	}
	return count
}

// Layout returns rows and columns for a board of the given size
func Layout(size int) (rows, columns int) {
	columns = int(math.Ceil(math.Sqrt(float64(size))))
	rows = (size + columns - 1) / columns
	return rows, columns
}

// BuildBoard generates a board from a BoardSpec. The result depends only on the
// spec, the ruleset and the seed.
func BuildBoard(spec BoardSpec, rules *Ruleset, seed int64) (*BoardDefinition, error) {
	if spec.GameID <= 0 {
		return nil, ErrInvalidGameID
	}
	if rules == nil {
		return nil, ErrNilRuleset
	}
	if spec.Size < rules.MinBoardSize || spec.Size > rules.MaxBoardSize {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidBoardSize, spec.Size, rules.MinBoardSize, rules.MaxBoardSize)
	}

	difficulty := spec.Difficulty
	if difficulty == "" {
		difficulty = DifficultyNormal
	}
	profile, ok := rules.Difficulties[difficulty]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
	}

	rows, columns := Layout(spec.Size)
	board := &BoardDefinition{
		GameID:     spec.GameID,
		Size:       spec.Size,
		Rows:       rows,
		Columns:    columns,
		Difficulty: difficulty,
		Seed:       seed,
		Cells:      make([]Cell, spec.Size),
		Jumps:      make(map[int]int),
	}

	// Serpentine numbering: even rows run left to right, odd rows right to left
	for i := 1; i <= spec.Size; i++ {
		row := (i - 1) / columns
		col := (i - 1) % columns
		if row%2 == 1 {
			col = columns - 1 - col
		}
		board.Cells[i-1] = Cell{Index: i, Row: row, Column: col}
	}

	p := newPlacer(board, rand.New(rand.NewSource(seed)))

	for n := scaledCount(profile.Ladders, spec.Size); n > 0; n-- {
		low, high, ok := p.takeRowSeparatedPair()
		if !ok {
			break
		}
		p.setJump(low, high, CellLadder)
	}
	for n := scaledCount(profile.Snakes, spec.Size); n > 0; n-- {
		low, high, ok := p.takeRowSeparatedPair()
		if !ok {
			break
		}
		p.setJump(high, low, CellSnake)
	}

	if spec.EnableTeleport {
		for n := scaledCount(profile.Teleport, spec.Size); n > 0 && p.free() >= 2; n-- {
			src := p.take()
			dst := p.take()
			board.Cells[src-1].Special = CellTeleport
			board.Cells[src-1].Destination = dst
		}
	}

	if spec.EnableBonus {
		for n := scaledCount(profile.Bonus, spec.Size); n > 0 && p.free() > 0; n-- {
			idx := p.take()
			cell := &board.Cells[idx-1]
			cell.Special = CellBonus
			grant := p.pickGrant(rules.BonusGrants)
			cell.GrantItem = grant.ItemCode
			cell.GrantDice = grant.DiceCode
			cell.ExtraRoll = grant.ExtraRoll
		}
	}

	if spec.EnableTrap {
		for n := scaledCount(profile.Trap, spec.Size); n > 0 && p.free() > 0; n-- {
			board.Cells[p.take()-1].Special = CellTrap
		}
	}

	return board, nil
}

// scaledCount converts a per-100-cells count to the board size. A non-zero
// profile always yields at least one placement.
func scaledCount(per100, size int) int {
	if per100 <= 0 {
		return 0
	}
	n := int(math.Round(float64(per100*size) / 100))
	if n < 1 {
		n = 1
	}
	return n
}

// placer hands out unreserved cells in a seed-deterministic order
type placer struct {
	board *BoardDefinition
	rng   *rand.Rand
	cells []int // sorted free cell indices
}

func newPlacer(board *BoardDefinition, rng *rand.Rand) *placer {
	// First and last cells never carry a special
	cells := make([]int, 0, board.Size)
	for i := 2; i < board.Size; i++ {
		cells = append(cells, i)
	}
	return &placer{board: board, rng: rng, cells: cells}
}

func (p *placer) free() int {
	return len(p.cells)
}

func (p *placer) take() int {
	i := p.rng.Intn(len(p.cells))
	v := p.cells[i]
	p.cells = append(p.cells[:i], p.cells[i+1:]...)
	return v
}

func (p *placer) remove(v int) {
	i := sort.SearchInts(p.cells, v)
	if i < len(p.cells) && p.cells[i] == v {
		p.cells = append(p.cells[:i], p.cells[i+1:]...)
	}
}

// takeRowSeparatedPair reserves two free cells lying in different rows and
// returns them ordered low, high
func (p *placer) takeRowSeparatedPair() (int, int, bool) {
	for attempt := 0; attempt < maxPlacementAttempts && len(p.cells) >= 2; attempt++ {
		a := p.cells[p.rng.Intn(len(p.cells))]
		rowA := p.board.Cells[a-1].Row

		candidates := make([]int, 0, len(p.cells))
		for _, c := range p.cells {
			if p.board.Cells[c-1].Row != rowA {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		b := candidates[p.rng.Intn(len(candidates))]
		p.remove(a)
		p.remove(b)
		if a > b {
			a, b = b, a
		}
		return a, b, true
	}
	return 0, 0, false
}

func (p *placer) setJump(from, to int, kind SpecialCellType) {
	p.board.Cells[from-1].Special = kind
	p.board.Cells[from-1].Destination = to
	p.board.Jumps[from] = to
}

func (p *placer) pickGrant(pool []BonusGrant) BonusGrant {
	if len(pool) == 0 {
		return BonusGrant{ExtraRoll: true, Weight: 1}
	}
	weights := make([]int, len(pool))
	for i, g := range pool {
		weights[i] = g.Weight
	}
	return pool[weightedIndex(p.rng, weights)]
}
