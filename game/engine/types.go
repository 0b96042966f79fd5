package engine

// SpecialCellType represents the effect attached to a board cell
type SpecialCellType string

const (
	CellPlain    SpecialCellType = ""
	CellLadder   SpecialCellType = "ladder"
	CellSnake    SpecialCellType = "snake"
	CellBonus    SpecialCellType = "bonus"
	CellTrap     SpecialCellType = "trap"
	CellTeleport SpecialCellType = "teleport"
)

// EffectKind is the closed set of effects an item or hazard can have
type EffectKind string

const (
	EffectRocket EffectKind = "rocket"
	EffectAnchor EffectKind = "anchor"
	EffectSwap   EffectKind = "swap"
	EffectFreeze EffectKind = "freeze"
	EffectShield EffectKind = "shield"

	// Hazards, only meaningful for shield policy
	EffectSnake EffectKind = "snake"
	EffectTrap  EffectKind = "trap"
)

// IsItem reports whether the kind can be carried by an item
func (k EffectKind) IsItem() bool {
	switch k {
	case EffectRocket, EffectAnchor, EffectSwap, EffectFreeze, EffectShield:
		return true
	}
	return false
}

// IsOffensive reports whether the item targets another player
func (k EffectKind) IsOffensive() bool {
	return k == EffectAnchor || k == EffectSwap || k == EffectFreeze
}

// ResultToken describes one thing that happened while resolving an action
type ResultToken string

const (
	TokenNone                 ResultToken = "none"
	TokenLadder               ResultToken = "ladder"
	TokenSnake                ResultToken = "snake"
	TokenSnakeBlockedByShield ResultToken = "snake_blocked_by_shield"
	TokenBonusItem            ResultToken = "bonus_item"
	TokenBonusDice            ResultToken = "bonus_dice"
	TokenExtraRoll            ResultToken = "extra_roll"
	TokenTrap                 ResultToken = "trap"
	TokenTrapBlockedByShield  ResultToken = "trap_blocked_by_shield"
	TokenTeleport             ResultToken = "teleport"
	TokenRollTooHigh          ResultToken = "roll_too_high"
	TokenFrozenSkip           ResultToken = "frozen_skip"
	TokenWin                  ResultToken = "win"
	TokenBlockedByShield      ResultToken = "blocked_by_shield"
	TokenNoEffect             ResultToken = "no_effect"
)

// EndReason explains why a game finished
type EndReason string

const (
	EndReasonNone              EndReason = ""
	EndReasonReachedFinalCell  EndReason = "reached_final_cell"
	EndReasonLastPlayer        EndReason = "last_player_standing"
	EndReasonAllPlayersRemoved EndReason = "all_players_kicked"
	EndReasonAllPlayersLeft    EndReason = "all_players_left"
	EndReasonAbandoned         EndReason = "abandoned"
)

// Difficulty tags understood by the default ruleset
const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

const (
	// StartCell is the off-board cell every player begins on
	StartCell = 0

	// Validation constants
	MinItemSlot = 1
	MaxItemSlot = 3
	MinDiceSlot = 1
	MaxDiceSlot = 2
)

// Cell represents a single board cell. Index is 1-based; Row 0 is the bottom row.
type Cell struct {
	Index       int             `json:"index"`
	Row         int             `json:"row"`
	Column      int             `json:"column"`
	Special     SpecialCellType `json:"special,omitempty"`
	Destination int             `json:"destination,omitempty"` // ladder, snake and teleport
	GrantItem   string          `json:"grant_item,omitempty"`
	GrantDice   string          `json:"grant_dice,omitempty"`
	ExtraRoll   bool            `json:"extra_roll,omitempty"`
}

// BoardDefinition is the immutable board for one game
type BoardDefinition struct {
	GameID     int64       `json:"game_id"`
	Size       int         `json:"board_size"`
	Rows       int         `json:"rows"`
	Columns    int         `json:"columns"`
	Difficulty string      `json:"difficulty"`
	Seed       int64       `json:"seed"`
	Cells      []Cell      `json:"cells"`
	Jumps      map[int]int `json:"jumps"`
}

// PlayerState is the runtime state of one player. It is owned by Game and
// only ever handed out as a copy.
type PlayerState struct {
	UserID              int64 `json:"user_id"`
	Position            int   `json:"position"`
	FrozenTurns         int   `json:"frozen_turns"`
	ShieldActive        bool  `json:"shield_active"`
	ShieldTurns         int   `json:"shield_turns"`
	PendingBonus        int   `json:"pending_bonus"`
	HasRolled           bool  `json:"has_rolled"`
	ItemUsed            bool  `json:"item_used"`
	ConsecutiveTimeouts int   `json:"consecutive_timeouts"`
}

// RollOutcome is the result of a RollDice call
type RollOutcome struct {
	GameID          int64         `json:"game_id"`
	UserID          int64         `json:"user_id"`
	DiceCode        string        `json:"dice_code,omitempty"`
	DiceValue       int           `json:"dice_value"`
	FromCell        int           `json:"from_cell"`
	ToCell          int           `json:"to_cell"`
	IsGameOver      bool          `json:"is_game_over"`
	WinnerID        int64         `json:"winner_id,omitempty"`
	Effects         []ResultToken `json:"effects"`
	ExtraInfo       string        `json:"extra_info"`
	Message         string        `json:"message,omitempty"`
	UsedBonus       bool          `json:"used_bonus"`
	BonusIgnored    bool          `json:"bonus_ignored"`
	BonusAmount     int           `json:"bonus_amount,omitempty"`
	GrantedItemCode string        `json:"granted_item_code,omitempty"`
	GrantedDiceCode string        `json:"granted_dice_code,omitempty"`
	Frozen          bool          `json:"frozen"`
	Trapped         bool          `json:"trapped"`
	ExtraRoll       bool          `json:"extra_roll"`
	RollTooHigh     bool          `json:"roll_too_high"`
	NextTurnUserID  int64         `json:"next_turn_user_id,omitempty"`
	TurnChanged     bool          `json:"turn_changed"`
	TurnSeq         uint64        `json:"turn_seq"`
}

// DiceConsumed reports whether the roll used up the dice it was given
func (o RollOutcome) DiceConsumed() bool {
	return !o.Frozen
}

// ItemEffectOutcome is the result of a UseItem call
type ItemEffectOutcome struct {
	GameID             int64       `json:"game_id"`
	CasterID           int64       `json:"caster_id"`
	TargetID           int64       `json:"target_id"`
	ItemCode           string      `json:"item_code"`
	EffectKind         EffectKind  `json:"effect_kind"`
	FromCell           int         `json:"from_cell"`
	ToCell             int         `json:"to_cell"`
	WasBlockedByShield bool        `json:"was_blocked_by_shield"`
	TargetFrozen       bool        `json:"target_frozen"`
	ShieldActivated    bool        `json:"shield_activated"`
	BonusStored        int         `json:"bonus_stored,omitempty"`
	Consumed           bool        `json:"consumed"`
	Token              ResultToken `json:"token"`
	Message            string      `json:"message,omitempty"`
}

// TimeoutOutcome is the result of a HandleTurnTimeout call
type TimeoutOutcome struct {
	GameID              int64     `json:"game_id"`
	TimedOutUserID      int64     `json:"timed_out_user_id"`
	ConsecutiveTimeouts int       `json:"consecutive_timeouts"`
	Kicked              bool      `json:"kicked"`
	FrozenConsumed      bool      `json:"frozen_consumed,omitempty"`
	NextTurnUserID      int64     `json:"next_turn_user_id,omitempty"`
	RemainingPlayers    []int64   `json:"remaining_players"`
	IsGameOver          bool      `json:"is_game_over"`
	WinnerID            int64     `json:"winner_id,omitempty"`
	EndReason           EndReason `json:"end_reason,omitempty"`
	TurnSeq             uint64    `json:"turn_seq"`
}

// LeaveOutcome is the result of a Leave call
type LeaveOutcome struct {
	GameID           int64     `json:"game_id"`
	UserID           int64     `json:"user_id"`
	WasCurrentTurn   bool      `json:"was_current_turn"`
	NextTurnUserID   int64     `json:"next_turn_user_id,omitempty"`
	RemainingPlayers []int64   `json:"remaining_players"`
	IsGameOver       bool      `json:"is_game_over"`
	WinnerID         int64     `json:"winner_id,omitempty"`
	EndReason        EndReason `json:"end_reason,omitempty"`
	TurnSeq          uint64    `json:"turn_seq"`
}

// PlayerToken is the public view of one player in a snapshot
type PlayerToken struct {
	UserID               int64 `json:"user_id"`
	CellIndex            int   `json:"cell_index"`
	HasShield            bool  `json:"has_shield"`
	RemainingShieldTurns int   `json:"remaining_shield_turns"`
	RemainingFrozenTurns int   `json:"remaining_frozen_turns"`
	HasPendingBonus      bool  `json:"has_pending_bonus"`
	PendingBonus         int   `json:"pending_bonus,omitempty"`
	ConsecutiveTimeouts  int   `json:"consecutive_timeouts"`
}

// StateSnapshot is a consistent copy of the game state
type StateSnapshot struct {
	GameID            int64         `json:"game_id"`
	CurrentTurnUserID int64         `json:"current_turn_user_id"`
	TurnOrder         []int64       `json:"turn_order"`
	RemovedPlayers    []int64       `json:"removed_players,omitempty"`
	TurnSeq           uint64        `json:"turn_seq"`
	IsFinished        bool          `json:"is_finished"`
	WinnerID          int64         `json:"winner_id,omitempty"`
	EndReason         EndReason     `json:"end_reason,omitempty"`
	FinalCell         int           `json:"final_cell"`
	Tokens            []PlayerToken `json:"tokens"`
}
