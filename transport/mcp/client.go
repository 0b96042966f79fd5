package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ladder Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ladder Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Race your token from cell 1 to the final cell. Ladders lift you, snakes drop you.
Items and special dice from your equipped slots can change the race.

AVAILABLE TOOLS:
- create_game: Start a game for a list of players
- list_games: List running games
- game_state: Current turn, positions and effects
- get_board: Board layout (snakes, ladders, special cells)
- roll_dice: Roll for the current player, optionally with an equipped dice slot
- use_item: Use an equipped item before rolling
- leave_game: Remove a player from a game
- action_history: Actions recorded for a game, oldest first
- list_rulesets: List available rulesets
- game_rules: Full rules reference`),
	)

	c.registerTools()
}

func gameIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Game ID",
	}
}

func playerProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": desc,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game on a generated board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"player_user_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Players in turn order",
				},
				"board_size": map[string]interface{}{
					"type":        "integer",
					"description": "Number of cells (default 100)",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"enum":        []string{engine.DifficultyEasy, engine.DifficultyNormal, engine.DifficultyHard},
					"description": "Board difficulty (default normal)",
				},
				"ruleset": map[string]interface{}{
					"type":        "string",
					"description": "Ruleset name (optional)",
				},
				"special_cells": map[string]interface{}{
					"type":        "boolean",
					"description": "Enable bonus, trap and teleport cells",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Board seed for a reproducible layout (optional)",
				},
			},
			Required: []string{"game_id", "player_user_ids"},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all running games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current state of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_board",
		Description: "Get the board layout of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleGetBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "roll_dice",
		Description: "Roll the dice for the player whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id":        gameIDProperty(),
				"player_user_id": playerProperty("Rolling player"),
				"dice_slot": map[string]interface{}{
					"type":        "integer",
					"minimum":     engine.MinDiceSlot,
					"maximum":     engine.MaxDiceSlot,
					"description": "Equipped dice slot (optional, default dice without it)",
				},
			},
			Required: []string{"game_id", "player_user_id"},
		},
	}, c.handleRollDice)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "use_item",
		Description: "Use an equipped item. At most one item per turn, before rolling",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id":        gameIDProperty(),
				"player_user_id": playerProperty("Player using the item"),
				"item_slot": map[string]interface{}{
					"type":        "integer",
					"minimum":     engine.MinItemSlot,
					"maximum":     engine.MaxItemSlot,
					"description": "Equipped item slot",
				},
				"target_user_id": playerProperty("Target player for hostile items (optional)"),
			},
			Required: []string{"game_id", "player_user_id", "item_slot"},
		},
	}, c.handleUseItem)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_game",
		Description: "Remove a player from a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id":        gameIDProperty(),
				"player_user_id": playerProperty("Leaving player"),
			},
			Required: []string{"game_id", "player_user_id"},
		},
	}, c.handleLeaveGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get the actions recorded for a game, oldest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of actions (default 100)",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rulesets",
		Description: "List available rulesets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRulesets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of the game, optionally for a specific ruleset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"ruleset": map[string]interface{}{
					"type":        "string",
					"description": "Ruleset name (optional)",
				},
			},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// argument helpers; JSON numbers arrive as float64

func intArg(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func requireInt(args map[string]interface{}, key string) (int64, error) {
	v, ok := intArg(args, key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	gameID, err := requireInt(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rawPlayers, _ := args["player_user_ids"].([]interface{})
	players := make([]int64, 0, len(rawPlayers))
	for i := range rawPlayers {
		if id, ok := intArg(map[string]interface{}{"id": rawPlayers[i]}, "id"); ok {
			players = append(players, id)
		}
	}

	req := service.CreateBoardRequest{
		GameID:        gameID,
		BoardSize:     100,
		Difficulty:    engine.DifficultyNormal,
		PlayerUserIDs: players,
	}
	if size, ok := intArg(args, "board_size"); ok {
		req.BoardSize = int(size)
	}
	if difficulty, _ := args["difficulty"].(string); difficulty != "" {
		req.Difficulty = difficulty
	}
	req.Ruleset, _ = args["ruleset"].(string)
	if special, _ := args["special_cells"].(bool); special {
		req.EnableBonusCells = true
		req.EnableTrapCells = true
		req.EnableTeleportCells = true
	}
	if seed, ok := intArg(args, "seed"); ok {
		req.Seed = &seed
	}

	var info service.GameInfo
	if err := c.apiCall(ctx, "POST", "/api/games", req, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game %d (ruleset: %s)\n\n", info.GameID, info.RulesetName)
	result += formatState(&info.State)
	if info.Board != nil {
		result += "\n" + formatBoard(info.Board)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                 `json:"count"`
		Games []*service.GameInfo `json:"games"`
	}

	if err := c.apiCall(ctx, "GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		status := fmt.Sprintf("turn: player %d", g.State.CurrentTurnUserID)
		if g.State.IsFinished {
			status = fmt.Sprintf("finished (%s)", g.State.EndReason)
		}
		result += fmt.Sprintf("- Game %d (Ruleset: %s, Players: %v, %s)\n",
			g.GameID, g.RulesetName, g.Players, status)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := requireInt(request.GetArguments(), "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var snap engine.StateSnapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/games/%d/state", gameID), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&snap)), nil
}

func (c *Client) handleGetBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := requireInt(request.GetArguments(), "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board engine.BoardDefinition
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/games/%d/board", gameID), nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(&board)), nil
}

func (c *Client) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID, err := requireInt(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := requireInt(args, "player_user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.RollDiceRequest{GameID: gameID, PlayerUserID: userID}
	if slot, ok := intArg(args, "dice_slot"); ok {
		s := int(slot)
		body.DiceSlot = &s
	}

	var out engine.RollOutcome
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/games/%d/roll", gameID), body, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoll(&out)), nil
}

func (c *Client) handleUseItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID, err := requireInt(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := requireInt(args, "player_user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slot, err := requireInt(args, "item_slot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.UseItemRequest{GameID: gameID, PlayerUserID: userID, ItemSlot: int(slot)}
	if target, ok := intArg(args, "target_user_id"); ok {
		body.TargetUserID = &target
	}

	var out engine.ItemEffectOutcome
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/games/%d/items", gameID), body, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatItem(&out)), nil
}

func (c *Client) handleLeaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID, err := requireInt(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := requireInt(args, "player_user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out engine.LeaveOutcome
	body := map[string]int64{"player_user_id": userID}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/games/%d/leave", gameID), body, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Player %d left game %d. Remaining: %v\n", out.UserID, out.GameID, out.RemainingPlayers)
	if out.IsGameOver {
		result += fmt.Sprintf("Game over (%s), winner: %d\n", out.EndReason, out.WinnerID)
	} else if out.WasCurrentTurn {
		result += fmt.Sprintf("Turn passed to player %d\n", out.NextTurnUserID)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	gameID, err := requireInt(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := fmt.Sprintf("/api/games/%d/actions", gameID)
	if limit, ok := intArg(args, "limit"); ok {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count   int                    `json:"count"`
		Actions []service.ActionRecord `json:"actions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Actions for game %d (%d):\n\n", gameID, response.Count)
	for _, rec := range response.Actions {
		fmt.Fprintf(&b, "- #%d %s", rec.TurnSeq, rec.Action)
		if rec.ActorUserID != 0 {
			fmt.Fprintf(&b, " by player %d", rec.ActorUserID)
		}
		fmt.Fprintf(&b, " at %s\n", rec.Timestamp.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListRulesets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rulesets []service.RulesetInfo
	if err := c.apiCall(ctx, "GET", "/api/rulesets", nil, &rulesets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Rulesets:\n\n"
	for _, r := range rulesets {
		result += fmt.Sprintf("• %s\n  %s\n  Board: %d-%d cells, Difficulties: %s\n\n",
			r.RulesetID, r.Description, r.MinBoardSize, r.MaxBoardSize, strings.Join(r.Difficulties, ", "))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := request.GetArguments()["ruleset"].(string)
	if name == "" {
		return mcp.NewToolResultText(gameRules), nil
	}

	var rules engine.Ruleset
	if err := c.apiCall(ctx, "GET", "/api/rulesets/"+name, nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(gameRules + "\n" + formatRuleset(&rules)), nil
}

const gameRules = `Ladder Game - Rules

OBJECTIVE:
Be the first to land exactly on the final cell. A roll that would overshoot it
leaves your token where it is.

TURNS:
• Players act in turn order. Only the current player may roll or use an item.
• Use at most one item per turn, then roll. The roll ends your turn unless it
  grants an extra roll.
• Each turn has a deadline. Missing it counts a strike; too many strikes and
  you are removed from the game.

BOARD:
• Ladders move you up, snakes move you down.
• Bonus cells grant an item or dice, trap cells freeze you, teleport cells move
  you to a paired cell.

ITEMS (equipped in slots 1-3):
• Rocket: store a bonus added to your next roll
• Anchor: push a target back by a fixed number of cells (not below start)
• Swap: swap positions with a target
• Freeze: target skips turns
• Shield: cancel hostile effects for a number of turns

DICE (equipped in slots 1-2):
Special dice change the range of values rolled. Without a dice slot the
ruleset's default dice is used.

REWARDS:
The winner earns the ruleset's win coins, other remaining players earn the
participation reward.`

// Formatting helpers

func formatState(snap *engine.StateSnapshot) string {
	var b strings.Builder

	if snap.IsFinished {
		fmt.Fprintf(&b, "🏁 GAME OVER (%s)", snap.EndReason)
		if snap.WinnerID != 0 {
			fmt.Fprintf(&b, " winner: player %d", snap.WinnerID)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Current turn: player %d (turn #%d)\n", snap.CurrentTurnUserID, snap.TurnSeq)
	}
	fmt.Fprintf(&b, "Final cell: %d\n", snap.FinalCell)
	if len(snap.RemovedPlayers) > 0 {
		fmt.Fprintf(&b, "Removed: %v\n", snap.RemovedPlayers)
	}

	b.WriteString("\nPlayers:\n")
	for _, tok := range snap.Tokens {
		fmt.Fprintf(&b, "- Player %d: cell %d", tok.UserID, tok.CellIndex)
		var flags []string
		if tok.RemainingFrozenTurns > 0 {
			flags = append(flags, fmt.Sprintf("frozen %d", tok.RemainingFrozenTurns))
		}
		if tok.HasShield {
			flags = append(flags, fmt.Sprintf("shield %d", tok.RemainingShieldTurns))
		}
		if tok.HasPendingBonus {
			flags = append(flags, fmt.Sprintf("bonus +%d", tok.PendingBonus))
		}
		if tok.ConsecutiveTimeouts > 0 {
			flags = append(flags, fmt.Sprintf("strikes %d", tok.ConsecutiveTimeouts))
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatBoard(board *engine.BoardDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Board: %d cells (%s), %dx%d\n", board.Size, board.Difficulty, board.Columns, board.Rows)

	for _, cell := range board.Cells {
		switch cell.Special {
		case engine.CellPlain:
			continue
		case engine.CellLadder, engine.CellSnake, engine.CellTeleport:
			fmt.Fprintf(&b, "- %s %d → %d\n", cell.Special, cell.Index, cell.Destination)
		default:
			fmt.Fprintf(&b, "- %s at %d", cell.Special, cell.Index)
			if cell.GrantItem != "" {
				fmt.Fprintf(&b, " (item %s)", cell.GrantItem)
			}
			if cell.GrantDice != "" {
				fmt.Fprintf(&b, " (dice %s)", cell.GrantDice)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatRoll(out *engine.RollOutcome) string {
	var b strings.Builder
	dice := out.DiceCode
	if dice == "" {
		dice = "default dice"
	}
	fmt.Fprintf(&b, "Player %d rolled %d with %s: %d → %d\n", out.UserID, out.DiceValue, dice, out.FromCell, out.ToCell)
	if len(out.Effects) > 0 {
		effects := make([]string, len(out.Effects))
		for i, e := range out.Effects {
			effects[i] = string(e)
		}
		fmt.Fprintf(&b, "Effects: %s\n", strings.Join(effects, ", "))
	}
	if out.Message != "" {
		b.WriteString(out.Message + "\n")
	}
	if out.ExtraRoll {
		b.WriteString("Extra roll granted!\n")
	}
	if out.IsGameOver {
		fmt.Fprintf(&b, "🏁 Game over, winner: player %d\n", out.WinnerID)
	}
	return b.String()
}

func formatItem(out *engine.ItemEffectOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Player %d used %s (%s)", out.CasterID, out.ItemCode, out.EffectKind)
	if out.TargetID != 0 && out.TargetID != out.CasterID {
		fmt.Fprintf(&b, " on player %d", out.TargetID)
	}
	b.WriteString("\n")
	switch {
	case out.WasBlockedByShield:
		b.WriteString("Blocked by shield\n")
	case out.TargetFrozen:
		b.WriteString("Target frozen\n")
	case out.ShieldActivated:
		b.WriteString("Shield activated\n")
	case out.BonusStored > 0:
		fmt.Fprintf(&b, "Next roll bonus: +%d\n", out.BonusStored)
	case out.FromCell != out.ToCell:
		fmt.Fprintf(&b, "Moved %d → %d\n", out.FromCell, out.ToCell)
	}
	return b.String()
}

func formatRuleset(rules *engine.Ruleset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RULESET %s\n%s\n", rules.Name, rules.Description)
	fmt.Fprintf(&b, "Turn: %ds, kick after %d missed turns\n", rules.TurnDurationSec, rules.KickThreshold)
	fmt.Fprintf(&b, "Rewards: win %d, participation %d\n", rules.Rewards.WinCoins, rules.Rewards.ParticipationCoins)

	codes := make([]string, 0, len(rules.Items))
	for code := range rules.Items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		item := rules.Items[code]
		fmt.Fprintf(&b, "- item %s: %s\n", code, item.Kind)
	}

	codes = codes[:0]
	for code := range rules.Dice {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, "- dice %s: faces %v\n", code, rules.Dice[code].Faces)
	}
	return b.String()
}
