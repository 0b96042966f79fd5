// Package engine provides the core game logic for the ladder game.
//
// The engine package implements the game mechanics including:
//   - Board generation with ladders, snakes and optional bonus, trap and teleport cells
//   - Dice resolution for uniform and weighted dice
//   - Jump and special cell resolution when a player lands on a cell
//   - Item effects (rocket, anchor, swap, freeze, shield)
//   - Turn sequencing, timeouts, kicks and win detection
//   - Ruleset loading and validation
//
// Core Types:
//
// BoardDefinition is the immutable board produced by BuildBoard. Game owns the
// authoritative state of one running match and serializes every operation on
// it behind a single mutex. Ruleset carries the item and dice catalogs, the
// difficulty profiles and the numeric rules, loaded from JSON files.
//
// Usage:
//
//	rules := engine.DefaultRuleset()
//	board, err := engine.BuildBoard(engine.BoardSpec{
//		GameID:     42,
//		Size:       100,
//		EnableBonus: true,
//		Difficulty: engine.DifficultyNormal,
//	}, rules, seed)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.NewGame(board, rules, []int64{1, 2}, engine.NewDiceResolver(rules, seed))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := game.RollDice(1, rules.DefaultDice)
//	state := game.GetCurrentState()
//
// Game Rules:
//
// Players start off the board at cell 0 and race to the final cell. A roll
// that would overshoot the final cell is wasted. Ladders lift, snakes drop,
// and a shield cancels the next hostile effect aimed at its holder. A player
// who times out too many turns in a row is removed from the game; the last
// player standing wins.
package engine
