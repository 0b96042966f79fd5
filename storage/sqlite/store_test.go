package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpenTwiceKeepsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.AddStock(context.Background(), 1, service.EquipmentItem, "IT_ROCKET", 3))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	qty, err := second.Stock(context.Background(), 1, service.EquipmentItem, "IT_ROCKET")
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
}

func TestStoreInventory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, ok, err := store.EquippedDice(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Equip(ctx, 7, service.EquipmentDice, 1, "DC_LUCKY"))

	eq, ok, err := store.EquippedDice(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, service.Equipment{Code: "DC_LUCKY", Quantity: 0}, eq)

	require.NoError(t, store.GrantDice(ctx, 7, "DC_LUCKY"))
	require.NoError(t, store.AddStock(ctx, 7, service.EquipmentDice, "DC_LUCKY", 2))

	eq, _, err = store.EquippedDice(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, eq.Quantity)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.ConsumeDice(ctx, 7, "DC_LUCKY"))
	}
	assert.ErrorIs(t, store.ConsumeDice(ctx, 7, "DC_LUCKY"), engine.ErrNoQuantity)

	// Re-equipping replaces the code in the slot
	require.NoError(t, store.Equip(ctx, 7, service.EquipmentDice, 1, "DC_SNAIL"))
	eq, _, err = store.EquippedDice(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "DC_SNAIL", eq.Code)

	require.NoError(t, store.Equip(ctx, 7, service.EquipmentDice, 1, ""))
	_, ok, err = store.EquippedDice(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, store.Equip(ctx, 7, service.EquipmentItem, 4, "IT_SWAP"), engine.ErrInvalidSlot)
	assert.ErrorIs(t, store.AddStock(ctx, 7, service.EquipmentItem, "IT_SWAP", 0), engine.ErrValidation)
}

func TestStoreItemsAndDiceAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.GrantItem(ctx, 1, "X"))
	require.NoError(t, store.Equip(ctx, 1, service.EquipmentItem, 2, "X"))
	require.NoError(t, store.Equip(ctx, 1, service.EquipmentDice, 2, "X"))

	item, _, err := store.EquippedItem(ctx, 1, 2)
	require.NoError(t, err)
	dice, _, err := store.EquippedDice(ctx, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 0, dice.Quantity)
	require.NoError(t, store.ConsumeItem(ctx, 1, "X"))
	assert.ErrorIs(t, store.ConsumeItem(ctx, 1, "X"), engine.ErrNoQuantity)
}

func TestStoreFinalizeGame(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := service.GameResult{
		GameID:      9,
		RulesetName: "classic",
		WinnerID:    2,
		EndReason:   engine.EndReasonReachedFinalCell,
		Players:     []int64{1, 2, 3},
		Coins:       map[int64]int{1: 10, 2: 100, 3: 0},
		FinishedAt:  finished,
	}

	require.NoError(t, store.FinalizeGame(ctx, result))
	// A second delivery must not credit twice
	require.NoError(t, store.FinalizeGame(ctx, result))

	got, err := store.Result(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, result.WinnerID, got.WinnerID)
	assert.Equal(t, result.EndReason, got.EndReason)
	assert.Equal(t, result.Players, got.Players)
	assert.Equal(t, result.Coins, got.Coins)
	assert.True(t, finished.Equal(got.FinishedAt))

	balance, err := store.Balance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	balance, err = store.Balance(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	_, err = store.Result(ctx, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.FinalizeGame(ctx, service.GameResult{}), engine.ErrInvalidGameID)
}

func TestStoreJournal(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []service.ActionRecord{
		{ID: "a", GameID: 1, TurnSeq: 0, Action: "create", Timestamp: base},
		{ID: "b", GameID: 1, TurnSeq: 0, ActorUserID: 10, Action: "roll", Payload: map[string]int{"dice_value": 4}, Timestamp: base.Add(time.Second)},
		{ID: "c", GameID: 2, Action: "create", Timestamp: base},
	}
	for _, rec := range recs {
		require.NoError(t, store.Record(ctx, rec))
	}
	// Replays are ignored
	require.NoError(t, store.Record(ctx, recs[1]))

	got, err := store.Actions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "create", got[0].Action)
	assert.Equal(t, "roll", got[1].Action)
	assert.Equal(t, int64(10), got[1].ActorUserID)
	assert.JSONEq(t, `{"dice_value":4}`, string(got[1].Payload.(json.RawMessage)))

	assert.Error(t, store.Record(ctx, service.ActionRecord{GameID: 1}))
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.EquippedItem(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
