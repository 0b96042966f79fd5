package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// EquippedItem implements service.InventoryProvider.
func (s *Store) EquippedItem(ctx context.Context, userID int64, slot int) (service.Equipment, bool, error) {
	return s.equipped(ctx, userID, service.EquipmentItem, slot)
}

// EquippedDice implements service.InventoryProvider.
func (s *Store) EquippedDice(ctx context.Context, userID int64, slot int) (service.Equipment, bool, error) {
	return s.equipped(ctx, userID, service.EquipmentDice, slot)
}

// ConsumeItem implements service.InventoryProvider.
func (s *Store) ConsumeItem(ctx context.Context, userID int64, code string) error {
	return s.consume(ctx, userID, service.EquipmentItem, code)
}

// ConsumeDice implements service.InventoryProvider.
func (s *Store) ConsumeDice(ctx context.Context, userID int64, code string) error {
	return s.consume(ctx, userID, service.EquipmentDice, code)
}

// GrantItem implements service.InventoryProvider.
func (s *Store) GrantItem(ctx context.Context, userID int64, code string) error {
	return s.AddStock(ctx, userID, service.EquipmentItem, code, 1)
}

// GrantDice implements service.InventoryProvider.
func (s *Store) GrantDice(ctx context.Context, userID int64, code string) error {
	return s.AddStock(ctx, userID, service.EquipmentDice, code, 1)
}

// Equip puts code into a slot. An empty code clears the slot.
func (s *Store) Equip(ctx context.Context, userID int64, kind service.EquipmentKind, slot int, code string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if userID <= 0 {
		return engine.ErrInvalidUserID
	}
	if err := service.ValidateSlot(kind, slot); err != nil {
		return err
	}

	if code == "" {
		_, err := s.sqlDB.ExecContext(ctx,
			`DELETE FROM player_slots WHERE user_id = ? AND kind = ? AND slot = ?`,
			userID, string(kind), slot)
		if err != nil {
			return fmt.Errorf("clear slot: %w", err)
		}
		return nil
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO player_slots (user_id, kind, slot, code) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, kind, slot) DO UPDATE SET code = excluded.code`,
		userID, string(kind), slot, code)
	if err != nil {
		return fmt.Errorf("equip slot: %w", err)
	}
	return nil
}

// AddStock adds quantity units of code to a player's stock.
func (s *Store) AddStock(ctx context.Context, userID int64, kind service.EquipmentKind, code string, quantity int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if userID <= 0 {
		return engine.ErrInvalidUserID
	}
	if code == "" || quantity <= 0 {
		return fmt.Errorf("%w: stock needs a code and a positive quantity", engine.ErrValidation)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO player_stock (user_id, kind, code, quantity) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, kind, code) DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, string(kind), code, quantity)
	if err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	return nil
}

// Stock returns how many units of code a player holds.
func (s *Store) Stock(ctx context.Context, userID int64, kind service.EquipmentKind, code string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var quantity int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT quantity FROM player_stock WHERE user_id = ? AND kind = ? AND code = ?`,
		userID, string(kind), code).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return quantity, nil
}

func (s *Store) equipped(ctx context.Context, userID int64, kind service.EquipmentKind, slot int) (service.Equipment, bool, error) {
	if err := s.ready(ctx); err != nil {
		return service.Equipment{}, false, err
	}

	var eq service.Equipment
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT s.code, COALESCE(st.quantity, 0)
		   FROM player_slots s
		   LEFT JOIN player_stock st
		     ON st.user_id = s.user_id AND st.kind = s.kind AND st.code = s.code
		  WHERE s.user_id = ? AND s.kind = ? AND s.slot = ?`,
		userID, string(kind), slot).Scan(&eq.Code, &eq.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Equipment{}, false, nil
	}
	if err != nil {
		return service.Equipment{}, false, fmt.Errorf("read slot: %w", err)
	}
	return eq, true, nil
}

func (s *Store) consume(ctx context.Context, userID int64, kind service.EquipmentKind, code string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE player_stock SET quantity = quantity - 1
		  WHERE user_id = ? AND kind = ? AND code = ? AND quantity > 0`,
		userID, string(kind), code)
	if err != nil {
		return fmt.Errorf("consume stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume stock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", engine.ErrNoQuantity, code)
	}
	return nil
}

var _ service.InventoryManager = (*Store)(nil)
