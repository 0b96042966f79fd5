// Package service provides the orchestration layer for the ladder game.
//
// The service package implements:
//   - Game creation from a ruleset and board request
//   - Dice and item actions resolved against equipped slots
//   - Turn deadlines, timeouts and kicks driven by a TurnClock
//   - Result finalization and event fan-out
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionStore keeps one immutable Session record per game.
// RulesetManager loads rulesets. InventoryProvider, ResultSink, Notifier and
// ActionJournal are optional collaborators supplied with Option values.
//
// Concurrency:
//
// Each engine.Game serializes its own actions, so actions on different games
// never contend. Collaborators are called after the game state has settled and
// their failures are logged, never rolled back.
//
// Usage:
//
//	sessions := session.NewManager()
//	rulesets, err := config.NewManager("configs")
//	svc := service.NewGameService(sessions, rulesets,
//		service.WithClock(clock.New(log)),
//		service.WithNotifier(hub),
//	)
//
//	info, err := svc.CreateGame(ctx, service.CreateBoardRequest{
//		GameID:        1,
//		BoardSize:     100,
//		Difficulty:    "normal",
//		PlayerUserIDs: []int64{10, 20},
//	})
package service
