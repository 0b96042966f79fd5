package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/laddergame/game/clock"
	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// GameService defines all game-related operations
type GameService interface {
	// Game lifecycle
	CreateGame(ctx context.Context, req CreateBoardRequest) (*GameInfo, error)
	GetGame(ctx context.Context, gameID int64) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	DeleteGame(ctx context.Context, gameID int64) error

	// Player actions
	RollDice(ctx context.Context, req RollDiceRequest) (*engine.RollOutcome, error)
	UseItem(ctx context.Context, req UseItemRequest) (*engine.ItemEffectOutcome, error)
	LeaveGame(ctx context.Context, gameID, userID int64) (*engine.LeaveOutcome, error)

	// Turn clock entry point
	HandleTurnTimeout(ctx context.Context, gameID int64, seq uint64) (*engine.TimeoutOutcome, error)

	// Game state
	GetCurrentState(ctx context.Context, gameID int64) (*engine.StateSnapshot, error)
	GetBoard(ctx context.Context, gameID int64) (*engine.BoardDefinition, error)

	// Rulesets
	ListRulesets(ctx context.Context) ([]*RulesetInfo, error)
	LoadRuleset(ctx context.Context, name string) (*engine.Ruleset, error)
	SaveRuleset(ctx context.Context, name string, rules *engine.Ruleset) error

	// Housekeeping
	PruneGames(ctx context.Context, maxIdle time.Duration) int
}

// SessionStore defines session storage operations
type SessionStore interface {
	Create(sess *Session) error
	TryGet(gameID int64) (*Session, bool)
	Update(next *Session) error
	List() []*Session
	Delete(gameID int64) error
}

// RulesetManager handles ruleset loading
type RulesetManager interface {
	LoadRuleset(name string) (*engine.Ruleset, error)
	ListRulesets() ([]*RulesetInfo, error)
	GetDefault() *engine.Ruleset
	SaveRuleset(name string, rules *engine.Ruleset) error
}

// Equipment is the item or dice a player has in one slot
type Equipment struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// InventoryProvider exposes the players' equipped items and dice
type InventoryProvider interface {
	EquippedItem(ctx context.Context, userID int64, slot int) (Equipment, bool, error)
	EquippedDice(ctx context.Context, userID int64, slot int) (Equipment, bool, error)
	ConsumeItem(ctx context.Context, userID int64, code string) error
	ConsumeDice(ctx context.Context, userID int64, code string) error
	GrantItem(ctx context.Context, userID int64, code string) error
	GrantDice(ctx context.Context, userID int64, code string) error
}

// EquipmentKind separates item slots from dice slots
type EquipmentKind string

const (
	EquipmentItem EquipmentKind = "item"
	EquipmentDice EquipmentKind = "dice"
)

// ValidateSlot checks a slot number against the bounds of its kind
func ValidateSlot(kind EquipmentKind, slot int) error {
	switch kind {
	case EquipmentItem:
		if slot < engine.MinItemSlot || slot > engine.MaxItemSlot {
			return fmt.Errorf("%w: item slot %d", engine.ErrInvalidSlot, slot)
		}
	case EquipmentDice:
		if slot < engine.MinDiceSlot || slot > engine.MaxDiceSlot {
			return fmt.Errorf("%w: dice slot %d", engine.ErrInvalidSlot, slot)
		}
	default:
		return fmt.Errorf("%w: unknown equipment kind %q", engine.ErrValidation, kind)
	}
	return nil
}

// InventoryManager is an InventoryProvider that can also be stocked
type InventoryManager interface {
	InventoryProvider
	Equip(ctx context.Context, userID int64, kind EquipmentKind, slot int, code string) error
	AddStock(ctx context.Context, userID int64, kind EquipmentKind, code string, quantity int) error
}

// ResultSink receives the final result of every game exactly once
type ResultSink interface {
	FinalizeGame(ctx context.Context, result GameResult) error
}

// Notifier delivers game events to connected clients
type Notifier interface {
	Notify(event Event)
}

// StatePublisher pushes full snapshots so followers can resync after a
// dropped event
type StatePublisher interface {
	BroadcastState(snap engine.StateSnapshot)
}

// Wallets reports the coins credited to players by finished games
type Wallets interface {
	Balance(ctx context.Context, userID int64) (int, error)
}

// ActionJournal records every accepted game action
type ActionJournal interface {
	Record(ctx context.Context, rec ActionRecord) error
}

// ActionReader reads journaled actions back, oldest first
type ActionReader interface {
	Actions(ctx context.Context, gameID int64, limit int) ([]ActionRecord, error)
}

// TurnClock schedules turn deadlines
type TurnClock interface {
	Bind(h clock.Handler)
	Start(gameID int64, seq uint64, duration, tick time.Duration)
	Stop(gameID int64)
	Deadline(gameID int64) (time.Time, uint64, bool)
}

// Session represents one running game. Records are immutable once stored;
// every change goes through SessionStore.Update with a new value.
type Session struct {
	GameID         int64
	Game           *engine.Game
	Board          *engine.BoardDefinition
	RulesetName    string
	Players        []int64
	TurnSeq        uint64
	Finished       bool
	WinnerID       int64
	EndReason      engine.EndReason
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// MultiSink fans a result out to several sinks and joins their errors
type MultiSink []ResultSink

// FinalizeGame implements ResultSink
func (m MultiSink) FinalizeGame(ctx context.Context, result GameResult) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.FinalizeGame(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiNotifier fans an event out to several notifiers
type MultiNotifier []Notifier

// Notify implements Notifier
func (m MultiNotifier) Notify(event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(event)
		}
	}
}
