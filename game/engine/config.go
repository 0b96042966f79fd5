package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ruleset bounds
const (
	MinBoardSize     = 16
	MaxBoardSize     = 400
	MaxKickThreshold = 20
	MaxDiceFaces     = 64
)

// ItemDefinition maps an item code to its effect
type ItemDefinition struct {
	Kind   EffectKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

// DiceDefinition describes the faces of a dice and optional per-face weights
type DiceDefinition struct {
	Faces   []int `json:"faces"`
	Weights []int `json:"weights,omitempty"`
}

// DifficultyProfile holds hazard counts per 100 board cells
type DifficultyProfile struct {
	Ladders  int `json:"ladders"`
	Snakes   int `json:"snakes"`
	Bonus    int `json:"bonus"`
	Trap     int `json:"trap"`
	Teleport int `json:"teleport"`
}

// BonusGrant is one entry of the weighted pool bonus cells draw from
type BonusGrant struct {
	ItemCode  string `json:"item_code,omitempty"`
	DiceCode  string `json:"dice_code,omitempty"`
	ExtraRoll bool   `json:"extra_roll,omitempty"`
	Weight    int    `json:"weight"`
}

// Rewards configures the coins handed out when a game finishes
type Rewards struct {
	WinCoins           int `json:"win_coins"`
	ParticipationCoins int `json:"participation_coins"`
}

// Ruleset represents the game rules loaded from JSON
type Ruleset struct {
	Name            string                       `json:"name"`
	Description     string                       `json:"description"`
	MinBoardSize    int                          `json:"min_board_size"`
	MaxBoardSize    int                          `json:"max_board_size"`
	KickThreshold   int                          `json:"kick_threshold"`
	TurnDurationSec int                          `json:"turn_duration_sec"`
	TickIntervalSec int                          `json:"tick_interval_sec"`
	TrapFreezeTurns int                          `json:"trap_freeze_turns"`
	DefaultDice     string                       `json:"default_dice"`
	Items           map[string]ItemDefinition    `json:"items"`
	Dice            map[string]DiceDefinition    `json:"dice"`
	ShieldBlocks    []EffectKind                 `json:"shield_blocks"`
	Difficulties    map[string]DifficultyProfile `json:"difficulties"`
	BonusGrants     []BonusGrant                 `json:"bonus_grants"`
	Rewards         Rewards                      `json:"rewards"`
	Messages        map[ResultToken]string       `json:"messages,omitempty"`
}

// ShieldCancels reports whether an active shield cancels the given hostile effect
func (r *Ruleset) ShieldCancels(kind EffectKind) bool {
	for _, k := range r.ShieldBlocks {
		if k == kind {
			return true
		}
	}
	return false
}

// Message returns the configured text for a token, or "" when none is set
func (r *Ruleset) Message(token ResultToken) string {
	if r.Messages == nil {
		return ""
	}
	return r.Messages[token]
}

// ValidateRuleset validates a ruleset for correctness and playability
func ValidateRuleset(rules *Ruleset) error {
	if rules == nil {
		return ErrNilRuleset
	}
	if rules.Name == "" {
		return fmt.Errorf("ruleset validation: name is required")
	}
	if rules.Description == "" {
		return fmt.Errorf("ruleset validation: description is required")
	}

	// Board bounds
	if rules.MinBoardSize < MinBoardSize || rules.MaxBoardSize > MaxBoardSize || rules.MinBoardSize > rules.MaxBoardSize {
		return fmt.Errorf("ruleset validation: board size bounds must satisfy %d <= min (%d) <= max (%d) <= %d",
			MinBoardSize, rules.MinBoardSize, rules.MaxBoardSize, MaxBoardSize)
	}

	if rules.KickThreshold < 1 || rules.KickThreshold > MaxKickThreshold {
		return fmt.Errorf("ruleset validation: kick_threshold must be between 1 and %d, got %d", MaxKickThreshold, rules.KickThreshold)
	}
	if rules.TurnDurationSec < 0 || rules.TickIntervalSec < 0 {
		return fmt.Errorf("ruleset validation: turn_duration_sec and tick_interval_sec must not be negative")
	}
	if rules.TrapFreezeTurns < 0 {
		return fmt.Errorf("ruleset validation: trap_freeze_turns must not be negative, got %d", rules.TrapFreezeTurns)
	}

	// Items
	for code, item := range rules.Items {
		if !item.Kind.IsItem() {
			return fmt.Errorf("ruleset validation: item %s has unknown kind '%s'", code, item.Kind)
		}
		if item.Kind != EffectSwap && item.Amount <= 0 {
			return fmt.Errorf("ruleset validation: item %s (%s) needs a positive amount", code, item.Kind)
		}
	}

	// Dice
	if len(rules.Dice) == 0 {
		return fmt.Errorf("ruleset validation: at least one dice is required")
	}
	for code, dice := range rules.Dice {
		if len(dice.Faces) == 0 || len(dice.Faces) > MaxDiceFaces {
			return fmt.Errorf("ruleset validation: dice %s must have between 1 and %d faces", code, MaxDiceFaces)
		}
		if len(dice.Weights) > 0 {
			if len(dice.Weights) != len(dice.Faces) {
				return fmt.Errorf("ruleset validation: dice %s has %d weights for %d faces", code, len(dice.Weights), len(dice.Faces))
			}
			total := 0
			for _, w := range dice.Weights {
				if w < 0 {
					return fmt.Errorf("ruleset validation: dice %s has a negative weight", code)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("ruleset validation: dice %s weights sum to zero", code)
			}
		}
	}
	if _, ok := rules.Dice[rules.DefaultDice]; !ok {
		return fmt.Errorf("ruleset validation: default_dice '%s' is not in the dice catalog", rules.DefaultDice)
	}

	for _, kind := range rules.ShieldBlocks {
		switch kind {
		case EffectSnake, EffectTrap, EffectAnchor, EffectFreeze, EffectSwap:
		default:
			return fmt.Errorf("ruleset validation: shield cannot block '%s'", kind)
		}
	}

	// Difficulties
	if len(rules.Difficulties) == 0 {
		return fmt.Errorf("ruleset validation: at least one difficulty is required")
	}
	for tag, p := range rules.Difficulties {
		if p.Ladders < 0 || p.Snakes < 0 || p.Bonus < 0 || p.Trap < 0 || p.Teleport < 0 {
			return fmt.Errorf("ruleset validation: difficulty %s has negative counts", tag)
		}
		// Every hazard takes cells; leave at least half the board plain
		if 2*(p.Ladders+p.Snakes+p.Teleport)+p.Bonus+p.Trap > 50 {
			return fmt.Errorf("ruleset validation: difficulty %s reserves more than half of the board", tag)
		}
	}

	// Bonus pool must reference known codes
	for i, g := range rules.BonusGrants {
		if g.Weight <= 0 {
			return fmt.Errorf("ruleset validation: bonus_grants[%d] needs a positive weight", i)
		}
		if g.ItemCode == "" && g.DiceCode == "" && !g.ExtraRoll {
			return fmt.Errorf("ruleset validation: bonus_grants[%d] grants nothing", i)
		}
		if g.ItemCode != "" {
			if _, ok := rules.Items[g.ItemCode]; !ok {
				return fmt.Errorf("ruleset validation: bonus_grants[%d] references unknown item '%s'", i, g.ItemCode)
			}
		}
		if g.DiceCode != "" {
			if _, ok := rules.Dice[g.DiceCode]; !ok {
				return fmt.Errorf("ruleset validation: bonus_grants[%d] references unknown dice '%s'", i, g.DiceCode)
			}
		}
	}

	if rules.Rewards.WinCoins < 0 || rules.Rewards.ParticipationCoins < 0 {
		return fmt.Errorf("ruleset validation: rewards must not be negative")
	}

	return nil
}

// LoadRuleset loads a ruleset from a JSON file
func LoadRuleset(filename string) (*Ruleset, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ParseRuleset(data)
}

// ParseRuleset decodes and validates a JSON ruleset
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rules Ruleset
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset: %w", err)
	}

	if err := ValidateRuleset(&rules); err != nil {
		return nil, err
	}

	return &rules, nil
}

// DefaultRuleset returns the built-in ruleset used when no file is configured
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Name:            "classic",
		Description:     "Classic 100-cell race with the standard item catalog",
		MinBoardSize:    MinBoardSize,
		MaxBoardSize:    MaxBoardSize,
		KickThreshold:   3,
		TurnDurationSec: 30,
		TickIntervalSec: 5,
		TrapFreezeTurns: 1,
		DefaultDice:     "DC_STANDARD",
		Items: map[string]ItemDefinition{
			"IT_ROCKET": {Kind: EffectRocket, Amount: 5},
			"IT_ANCHOR": {Kind: EffectAnchor, Amount: 5},
			"IT_SWAP":   {Kind: EffectSwap},
			"IT_FREEZE": {Kind: EffectFreeze, Amount: 1},
			"IT_SHIELD": {Kind: EffectShield, Amount: 3},
		},
		Dice: map[string]DiceDefinition{
			"DC_STANDARD": {Faces: []int{1, 2, 3, 4, 5, 6}},
			"DC_LUCKY":    {Faces: []int{1, 2, 3, 4, 5, 6}, Weights: []int{1, 1, 2, 2, 3, 3}},
			"DC_SNAIL":    {Faces: []int{1, 1, 2, 2, 3, 3}},
			"DC_CURSED":   {Faces: []int{-2, -1, 1, 2, 3, 4}},
		},
		ShieldBlocks: []EffectKind{EffectSnake, EffectAnchor, EffectFreeze, EffectTrap},
		Difficulties: map[string]DifficultyProfile{
			DifficultyEasy:   {Ladders: 8, Snakes: 4, Bonus: 4, Trap: 2, Teleport: 2},
			DifficultyNormal: {Ladders: 6, Snakes: 6, Bonus: 3, Trap: 3, Teleport: 2},
			DifficultyHard:   {Ladders: 4, Snakes: 8, Bonus: 2, Trap: 4, Teleport: 3},
		},
		BonusGrants: []BonusGrant{
			{ItemCode: "IT_ROCKET", Weight: 3},
			{ItemCode: "IT_SHIELD", Weight: 2},
			{ItemCode: "IT_ANCHOR", Weight: 2},
			{ItemCode: "IT_FREEZE", Weight: 1},
			{ItemCode: "IT_SWAP", Weight: 1},
			{DiceCode: "DC_LUCKY", Weight: 2},
			{ExtraRoll: true, Weight: 3},
		},
		Rewards: Rewards{WinCoins: 100, ParticipationCoins: 10},
		Messages: map[ResultToken]string{
			TokenLadder:               "Up the ladder!",
			TokenSnake:                "Bitten by a snake!",
			TokenSnakeBlockedByShield: "Your shield fended off the snake.",
			TokenBonusItem:            "Bonus! You found an item.",
			TokenBonusDice:            "Bonus! You found a dice.",
			TokenExtraRoll:            "Roll again!",
			TokenTrap:                 "Trapped! You lose your next turn.",
			TokenTrapBlockedByShield:  "Your shield broke the trap.",
			TokenTeleport:             "Whoosh, teleported!",
			TokenRollTooHigh:          "Too high, you need an exact landing.",
			TokenFrozenSkip:           "You are frozen and skip this turn.",
			TokenWin:                  "You reached the final cell!",
			TokenBlockedByShield:      "Blocked by shield.",
		},
	}
}
