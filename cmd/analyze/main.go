// Command analyze prints quick, human-readable heuristics about the rulesets
// in the project's configs directory. For each difficulty it generates sample
// boards, counts their specials and estimates how many rolls a lone player
// needs to finish with the ruleset's default dice.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

const (
	sampleBoards = 50
	// maxRolls caps a simulated race so a hostile board cannot loop forever
	maxRolls = 10000
)

// BoardStats summarizes the boards generated for one difficulty
type BoardStats struct {
	Difficulty   string
	Size         int
	Boards       int
	AvgLadders   float64
	AvgSnakes    float64
	AvgTeleports float64
	AvgRolls     float64
	MinRolls     int
	MaxRolls     int
	Unfinished   int
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No rulesets found in %s\n", configDir)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeRuleset(file)
	}
}

func analyzeRuleset(path string) {
	rules, err := engine.LoadRuleset(path)
	if err != nil {
		fmt.Printf("Error loading ruleset: %v\n", err)
		return
	}

	fmt.Printf("Name: %s\n", rules.Name)
	fmt.Printf("Board sizes: %d-%d\n", rules.MinBoardSize, rules.MaxBoardSize)
	fmt.Printf("Turn: %ds, kick after %d missed turns\n", rules.TurnDurationSec, rules.KickThreshold)
	fmt.Printf("Items: %d, Dice: %d (default %s)\n", len(rules.Items), len(rules.Dice), rules.DefaultDice)

	size := 100
	if size < rules.MinBoardSize || size > rules.MaxBoardSize {
		size = rules.MinBoardSize
	}

	difficulties := make([]string, 0, len(rules.Difficulties))
	for name := range rules.Difficulties {
		difficulties = append(difficulties, name)
	}
	sort.Strings(difficulties)

	for _, difficulty := range difficulties {
		stats, err := analyzeDifficulty(rules, difficulty, size, sampleBoards)
		if err != nil {
			fmt.Printf("  %s: %v\n", difficulty, err)
			continue
		}
		fmt.Printf("  %-8s ladders %.1f, snakes %.1f, teleports %.1f | rolls avg %.1f (min %d, max %d)\n",
			stats.Difficulty, stats.AvgLadders, stats.AvgSnakes, stats.AvgTeleports,
			stats.AvgRolls, stats.MinRolls, stats.MaxRolls)
		if stats.Unfinished > 0 {
			fmt.Printf("  ⚠️  %d of %d races did not finish within %d rolls\n", stats.Unfinished, stats.Boards, maxRolls)
		}
	}
}

// analyzeDifficulty builds count seeded boards and races a lone player on each
func analyzeDifficulty(rules *engine.Ruleset, difficulty string, size, count int) (BoardStats, error) {
	stats := BoardStats{Difficulty: difficulty, Size: size}

	finished := 0
	totalRolls := 0
	for seed := int64(1); seed <= int64(count); seed++ {
		spec := engine.BoardSpec{
			GameID:         1,
			Size:           size,
			EnableTeleport: true,
			Difficulty:     difficulty,
		}
		board, err := engine.BuildBoard(spec, rules, seed)
		if err != nil {
			return stats, err
		}

		stats.Boards++
		stats.AvgLadders += float64(board.CountSpecial(engine.CellLadder))
		stats.AvgSnakes += float64(board.CountSpecial(engine.CellSnake))
		stats.AvgTeleports += float64(board.CountSpecial(engine.CellTeleport))

		rolls, ok := simulateRace(board, engine.NewDiceResolver(rules, seed), rules.DefaultDice)
		if !ok {
			stats.Unfinished++
			continue
		}
		finished++
		totalRolls += rolls
		if stats.MinRolls == 0 || rolls < stats.MinRolls {
			stats.MinRolls = rolls
		}
		if rolls > stats.MaxRolls {
			stats.MaxRolls = rolls
		}
	}

	if stats.Boards > 0 {
		n := float64(stats.Boards)
		stats.AvgLadders /= n
		stats.AvgSnakes /= n
		stats.AvgTeleports /= n
	}
	if finished > 0 {
		stats.AvgRolls = float64(totalRolls) / float64(finished)
	}
	return stats, nil
}

// simulateRace rolls until the token lands exactly on the final cell.
// Overshooting rolls leave the token in place.
func simulateRace(board *engine.BoardDefinition, dice *engine.DiceResolver, code string) (int, bool) {
	final := board.FinalCell()
	pos := 1
	for rolls := 1; rolls <= maxRolls; rolls++ {
		value, err := dice.Roll(code)
		if err != nil {
			return rolls, false
		}
		if pos+value > final {
			continue
		}
		pos += value
		if pos < 1 {
			pos = 1
		}
		if cell, ok := board.CellAt(pos); ok && cell.Destination > 0 {
			pos = cell.Destination
		}
		if pos == final {
			return rolls, true
		}
	}
	return maxRolls, false
}
