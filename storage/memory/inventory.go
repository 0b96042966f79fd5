// Package memory provides in-process implementations of the game service
// collaborators. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

type slotKey struct {
	userID int64
	kind   service.EquipmentKind
	slot   int
}

type stockKey struct {
	userID int64
	kind   service.EquipmentKind
	code   string
}

// Inventory keeps equipped slots and stock counts per player
type Inventory struct {
	mu    sync.RWMutex
	slots map[slotKey]string
	stock map[stockKey]int
}

// NewInventory creates an empty inventory
func NewInventory() *Inventory {
	return &Inventory{
		slots: make(map[slotKey]string),
		stock: make(map[stockKey]int),
	}
}

// EquippedItem implements service.InventoryProvider
func (inv *Inventory) EquippedItem(ctx context.Context, userID int64, slot int) (service.Equipment, bool, error) {
	return inv.equipped(userID, service.EquipmentItem, slot)
}

// EquippedDice implements service.InventoryProvider
func (inv *Inventory) EquippedDice(ctx context.Context, userID int64, slot int) (service.Equipment, bool, error) {
	return inv.equipped(userID, service.EquipmentDice, slot)
}

// ConsumeItem implements service.InventoryProvider
func (inv *Inventory) ConsumeItem(ctx context.Context, userID int64, code string) error {
	return inv.consume(userID, service.EquipmentItem, code)
}

// ConsumeDice implements service.InventoryProvider
func (inv *Inventory) ConsumeDice(ctx context.Context, userID int64, code string) error {
	return inv.consume(userID, service.EquipmentDice, code)
}

// GrantItem implements service.InventoryProvider
func (inv *Inventory) GrantItem(ctx context.Context, userID int64, code string) error {
	return inv.AddStock(ctx, userID, service.EquipmentItem, code, 1)
}

// GrantDice implements service.InventoryProvider
func (inv *Inventory) GrantDice(ctx context.Context, userID int64, code string) error {
	return inv.AddStock(ctx, userID, service.EquipmentDice, code, 1)
}

// Equip puts code into a slot. An empty code clears the slot.
func (inv *Inventory) Equip(ctx context.Context, userID int64, kind service.EquipmentKind, slot int, code string) error {
	if err := service.ValidateSlot(kind, slot); err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	key := slotKey{userID, kind, slot}
	if code == "" {
		delete(inv.slots, key)
		return nil
	}
	inv.slots[key] = code
	return nil
}

// AddStock adds quantity units of code to a player's stock
func (inv *Inventory) AddStock(ctx context.Context, userID int64, kind service.EquipmentKind, code string, quantity int) error {
	if userID <= 0 {
		return engine.ErrInvalidUserID
	}
	if code == "" || quantity <= 0 {
		return fmt.Errorf("%w: stock needs a code and a positive quantity", engine.ErrValidation)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.stock[stockKey{userID, kind, code}] += quantity
	return nil
}

// Stock returns how many units of code a player holds
func (inv *Inventory) Stock(userID int64, kind service.EquipmentKind, code string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.stock[stockKey{userID, kind, code}]
}

func (inv *Inventory) equipped(userID int64, kind service.EquipmentKind, slot int) (service.Equipment, bool, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	code, ok := inv.slots[slotKey{userID, kind, slot}]
	if !ok {
		return service.Equipment{}, false, nil
	}
	return service.Equipment{Code: code, Quantity: inv.stock[stockKey{userID, kind, code}]}, true, nil
}

func (inv *Inventory) consume(userID int64, kind service.EquipmentKind, code string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	key := stockKey{userID, kind, code}
	if inv.stock[key] <= 0 {
		return fmt.Errorf("%w: %s", engine.ErrNoQuantity, code)
	}
	inv.stock[key]--
	return nil
}

var _ service.InventoryManager = (*Inventory)(nil)
