package service

import (
	"time"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

// CreateBoardRequest asks for a new game on a freshly generated board
type CreateBoardRequest struct {
	GameID              int64   `json:"game_id"`
	BoardSize           int     `json:"board_size"`
	EnableBonusCells    bool    `json:"enable_bonus_cells"`
	EnableTrapCells     bool    `json:"enable_trap_cells"`
	EnableTeleportCells bool    `json:"enable_teleport_cells"`
	Difficulty          string  `json:"difficulty"`
	PlayerUserIDs       []int64 `json:"player_user_ids"`
	Ruleset             string  `json:"ruleset,omitempty"`
	Seed                *int64  `json:"seed,omitempty"`
}

// RollDiceRequest rolls the dice in a slot, or the default dice without one
type RollDiceRequest struct {
	GameID       int64 `json:"game_id"`
	PlayerUserID int64 `json:"player_user_id"`
	DiceSlot     *int  `json:"dice_slot,omitempty"`
}

// UseItemRequest uses the item in a slot, optionally against another player
type UseItemRequest struct {
	GameID       int64  `json:"game_id"`
	PlayerUserID int64  `json:"player_user_id"`
	ItemSlot     int    `json:"item_slot"`
	TargetUserID *int64 `json:"target_user_id,omitempty"`
}

// GameInfo provides information about a game session
type GameInfo struct {
	GameID         int64                   `json:"game_id"`
	RulesetName    string                  `json:"ruleset"`
	Players        []int64                 `json:"players"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	State          engine.StateSnapshot    `json:"state"`
	Board          *engine.BoardDefinition `json:"board,omitempty"`
	TurnDeadline   *time.Time              `json:"turn_deadline,omitempty"`
}

// RulesetInfo provides information about a ruleset file
type RulesetInfo struct {
	Filename     string   `json:"filename"`
	RulesetID    string   `json:"ruleset_id"` // The identifier to use for game creation
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MinBoardSize int      `json:"min_board_size"`
	MaxBoardSize int      `json:"max_board_size"`
	Difficulties []string `json:"difficulties"`
}

// GameResult is handed to the result sink when a game finishes
type GameResult struct {
	GameID      int64            `json:"game_id"`
	RulesetName string           `json:"ruleset"`
	WinnerID    int64            `json:"winner_id"`
	EndReason   engine.EndReason `json:"end_reason"`
	Players     []int64          `json:"players"`
	Coins       map[int64]int    `json:"coins"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// EventType names a notification pushed to clients
type EventType string

const (
	EventGameCreated EventType = "game_created"
	EventMove        EventType = "move"
	EventItemUsed    EventType = "item_used"
	EventTurnChanged EventType = "turn_changed"
	EventPlayerLeft  EventType = "player_left"
	EventTimerTick   EventType = "timer_tick"
	EventGameEnd     EventType = "game_end"
)

// Event represents something that happened in a game
type Event struct {
	Type      EventType `json:"type"`
	GameID    int64     `json:"game_id"`
	UserID    int64     `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// TurnChange is the payload of a turn_changed event
type TurnChange struct {
	CurrentTurnUserID int64      `json:"current_turn_user_id"`
	TurnSeq           uint64     `json:"turn_seq"`
	Deadline          *time.Time `json:"deadline,omitempty"`
}

// PlayerLeft is the payload of a player_left event
type PlayerLeft struct {
	Reason           string  `json:"reason"` // "kicked" or "left"
	RemainingPlayers []int64 `json:"remaining_players"`
}

// TimerTick is the payload of a timer_tick event
type TimerTick struct {
	CurrentTurnUserID int64  `json:"current_turn_user_id"`
	TurnSeq           uint64 `json:"turn_seq"`
	RemainingSeconds  int    `json:"remaining_seconds"`
}

// ActionRecord is one journal entry
type ActionRecord struct {
	ID          string    `json:"id"`
	GameID      int64     `json:"game_id"`
	TurnSeq     uint64    `json:"turn_seq"`
	ActorUserID int64     `json:"actor_user_id,omitempty"`
	Action      string    `json:"action"`
	Payload     any       `json:"payload,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
