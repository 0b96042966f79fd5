// Command validate checks the ruleset JSON files in the ../configs directory.
// For every file it:
//   - decodes and validates the ruleset
//   - generates boards for each difficulty at the smallest, default and largest size
//   - checks that every generated board is well formed
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

// boardSeeds is how many seeded boards are generated per size and difficulty
const boardSeeds = 20

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateRuleset loads a ruleset file and builds sample boards with it
func validateRuleset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	rules, err := engine.ParseRuleset(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	difficulties := make([]string, 0, len(rules.Difficulties))
	for name := range rules.Difficulties {
		difficulties = append(difficulties, name)
	}
	sort.Strings(difficulties)

	boards := 0
	for _, difficulty := range difficulties {
		for _, size := range sampleSizes(rules) {
			for seed := int64(1); seed <= boardSeeds; seed++ {
				spec := engine.BoardSpec{
					GameID:         1,
					Size:           size,
					EnableBonus:    true,
					EnableTrap:     true,
					EnableTeleport: true,
					Difficulty:     difficulty,
				}
				board, err := engine.BuildBoard(spec, rules, seed)
				if err != nil {
					result.fail("%s board of %d cells (seed %d): %v", difficulty, size, seed, err)
					continue
				}
				for _, problem := range checkBoard(board) {
					result.fail("%s board of %d cells (seed %d): %s", difficulty, size, seed, problem)
				}
				boards++
			}
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors,
			fmt.Sprintf("✓ %d items, %d dice, difficulties: %s", len(rules.Items), len(rules.Dice), strings.Join(difficulties, ", ")),
			fmt.Sprintf("✓ %d sample boards generated", boards),
		)
	}
	return result
}

// sampleSizes returns the board sizes exercised for a ruleset
func sampleSizes(rules *engine.Ruleset) []int {
	sizes := []int{rules.MinBoardSize}
	if rules.MinBoardSize < 100 && rules.MaxBoardSize > 100 {
		sizes = append(sizes, 100)
	}
	if rules.MaxBoardSize != rules.MinBoardSize {
		sizes = append(sizes, rules.MaxBoardSize)
	}
	return sizes
}

// checkBoard reports structural problems of a generated board
func checkBoard(board *engine.BoardDefinition) []string {
	var problems []string

	if len(board.Cells) != board.Size {
		problems = append(problems, fmt.Sprintf("expected %d cells, got %d", board.Size, len(board.Cells)))
		return problems
	}

	for i, cell := range board.Cells {
		if cell.Index != i+1 {
			problems = append(problems, fmt.Sprintf("cell %d has index %d", i+1, cell.Index))
		}
	}

	for _, index := range []int{1, board.Size} {
		if cell, _ := board.CellAt(index); cell.Special != engine.CellPlain {
			problems = append(problems, fmt.Sprintf("cell %d must be plain, got %s", index, cell.Special))
		}
	}

	for _, cell := range board.Cells {
		switch cell.Special {
		case engine.CellLadder:
			if cell.Destination <= cell.Index || cell.Destination >= board.Size {
				problems = append(problems, fmt.Sprintf("ladder %d → %d out of range", cell.Index, cell.Destination))
			}
		case engine.CellSnake:
			if cell.Destination >= cell.Index || cell.Destination < 1 {
				problems = append(problems, fmt.Sprintf("snake %d → %d out of range", cell.Index, cell.Destination))
			}
		case engine.CellTeleport:
			if cell.Destination < 1 || cell.Destination >= board.Size || cell.Destination == cell.Index {
				problems = append(problems, fmt.Sprintf("teleport %d → %d out of range", cell.Index, cell.Destination))
			}
		}
		if jump, ok := board.Jumps[cell.Index]; ok && jump != cell.Destination {
			problems = append(problems, fmt.Sprintf("jump table disagrees at %d", cell.Index))
		}
	}

	return problems
}

func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding ruleset files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateRuleset(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All rulesets are valid!")
	} else {
		fmt.Println("❌ Some rulesets have errors")
		os.Exit(1)
	}
}
