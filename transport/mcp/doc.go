// Package mcp exposes the ladder game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call is translated into a REST call
// against a running game server and the JSON response is rendered as text.
//
// Tools:
//   - create_game, list_games
//   - game_state, get_board
//   - roll_dice, use_item, leave_game
//   - action_history
//   - list_rulesets, game_rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
