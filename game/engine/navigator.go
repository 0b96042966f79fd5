package engine

// Landing describes where a player ends up after special cells are applied
type Landing struct {
	Cell        int
	Tokens      []ResultToken
	GrantedItem string
	GrantedDice string
	ExtraRoll   bool
	Trapped     bool
}

// Navigator resolves jumps and special cells on a board. It holds no state of
// its own; every mutation lands on the PlayerState it is given.
type Navigator struct {
	board *BoardDefinition
	rules *Ruleset
}

// NewNavigator creates a navigator for the board and ruleset
func NewNavigator(board *BoardDefinition, rules *Ruleset) Navigator {
	return Navigator{board: board, rules: rules}
}

// ApplyJumpEffectsIfAny resolves a single ladder or snake hop from the
// candidate cell. The destination is never evaluated for a further jump.
func (n Navigator) ApplyJumpEffectsIfAny(p *PlayerState, candidate int) (int, ResultToken) {
	dest, ok := n.board.Jumps[candidate]
	if !ok {
		return candidate, TokenNone
	}

	switch {
	case dest > candidate:
		return dest, TokenLadder
	case dest < candidate:
		if n.absorb(p, EffectSnake) {
			return candidate, TokenSnakeBlockedByShield
		}
		return dest, TokenSnake
	}
	return candidate, TokenNone
}

// ApplySpecialCellIfAny applies the bonus, trap or teleport effect of the
// cell and appends its token to tokens
func (n Navigator) ApplySpecialCellIfAny(p *PlayerState, cellIndex int, tokens []ResultToken) Landing {
	landing := Landing{Cell: cellIndex, Tokens: tokens}

	cell, ok := n.board.CellAt(cellIndex)
	if !ok {
		return landing
	}

	switch cell.Special {
	case CellBonus:
		if cell.GrantItem != "" {
			landing.GrantedItem = cell.GrantItem
			landing.Tokens = append(landing.Tokens, TokenBonusItem)
		}
		if cell.GrantDice != "" {
			landing.GrantedDice = cell.GrantDice
			landing.Tokens = append(landing.Tokens, TokenBonusDice)
		}
		if cell.ExtraRoll {
			landing.ExtraRoll = true
			landing.Tokens = append(landing.Tokens, TokenExtraRoll)
		}

	case CellTrap:
		if n.absorb(p, EffectTrap) {
			landing.Tokens = append(landing.Tokens, TokenTrapBlockedByShield)
			break
		}
		if n.rules.TrapFreezeTurns > p.FrozenTurns {
			p.FrozenTurns = n.rules.TrapFreezeTurns
		}
		landing.Trapped = n.rules.TrapFreezeTurns > 0
		landing.Tokens = append(landing.Tokens, TokenTrap)

	case CellTeleport:
		if cell.Destination >= 1 && cell.Destination <= n.board.Size {
			landing.Cell = cell.Destination
			landing.Tokens = append(landing.Tokens, TokenTeleport)
		}
	}

	return landing
}

// absorb consumes the player's shield if it is active and the ruleset lets it
// cancel kind
func (n Navigator) absorb(p *PlayerState, kind EffectKind) bool {
	if !p.ShieldActive || !n.rules.ShieldCancels(kind) {
		return false
	}
	p.ShieldActive = false
	p.ShieldTurns = 0
	return true
}
