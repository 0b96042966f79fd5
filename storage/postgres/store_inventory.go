package postgres

import (
	"context"
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
		q := `DELETE FROM player_slots WHERE user_id = $1 AND kind = $2 AND slot = $3`
		if _, err := s.pool.Exec(ctx, q, userID, string(kind), slot); err != nil {
			return fmt.Errorf("failed to clear slot: %w", err)
		}
		return nil
	}

	q := `
	INSERT INTO player_slots (user_id, kind, slot, code) VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, kind, slot) DO UPDATE SET code = EXCLUDED.code;
	`
	if _, err := s.pool.Exec(ctx, q, userID, string(kind), slot, code); err != nil {
		return fmt.Errorf("failed to equip slot: %w", err)
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

	q := `
	INSERT INTO player_stock (user_id, kind, code, quantity) VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, kind, code) DO UPDATE SET quantity = player_stock.quantity + EXCLUDED.quantity;
	`
	if _, err := s.pool.Exec(ctx, q, userID, string(kind), code, quantity); err != nil {
		return fmt.Errorf("failed to add stock: %w", err)
	}
	return nil
}

func (s *Store) equipped(ctx context.Context, userID int64, kind service.EquipmentKind, slot int) (service.Equipment, bool, error) {
	if err := s.ready(ctx); err != nil {
		return service.Equipment{}, false, err
	}

	q := `
	SELECT s.code, COALESCE(st.quantity, 0)
	  FROM player_slots s
	  LEFT JOIN player_stock st
	    ON st.user_id = s.user_id AND st.kind = s.kind AND st.code = s.code
	 WHERE s.user_id = $1 AND s.kind = $2 AND s.slot = $3;
	`
	var eq service.Equipment
	if err := s.pool.QueryRow(ctx, q, userID, string(kind), slot).Scan(&eq.Code, &eq.Quantity); err != nil {
		if isNoRows(err) {
			return service.Equipment{}, false, nil
		}
		return service.Equipment{}, false, fmt.Errorf("failed to read slot: %w", err)
	}
	return eq, true, nil
}

func (s *Store) consume(ctx context.Context, userID int64, kind service.EquipmentKind, code string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	q := `
	UPDATE player_stock SET quantity = quantity - 1
	 WHERE user_id = $1 AND kind = $2 AND code = $3 AND quantity > 0;
	`
	tag, err := s.pool.Exec(ctx, q, userID, string(kind), code)
	if err != nil {
		return fmt.Errorf("failed to consume stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", engine.ErrNoQuantity, code)
	}
	return nil
}

var _ service.InventoryManager = (*Store)(nil)
