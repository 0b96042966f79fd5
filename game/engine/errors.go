package engine

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by an engine operation wraps exactly
// one of them, so callers can tell a rejected request from a broken rule.
var (
	ErrValidation        = errors.New("validation failed")
	ErrRule              = errors.New("rule violation")
	ErrInconsistentState = errors.New("inconsistent game state")
)

// Validation errors
var (
	ErrInvalidGameID     = fmt.Errorf("%w: game id must be positive", ErrValidation)
	ErrInvalidUserID     = fmt.Errorf("%w: user id must be positive", ErrValidation)
	ErrInvalidBoardSize  = fmt.Errorf("%w: board size out of range", ErrValidation)
	ErrNoPlayers         = fmt.Errorf("%w: at least one player is required", ErrValidation)
	ErrDuplicatePlayer   = fmt.Errorf("%w: duplicate player id", ErrValidation)
	ErrUnknownDifficulty = fmt.Errorf("%w: unknown difficulty", ErrValidation)
	ErrUnknownDice       = fmt.Errorf("%w: unknown dice code", ErrValidation)
	ErrUnknownItem       = fmt.Errorf("%w: unknown item code", ErrValidation)
	ErrInvalidTarget     = fmt.Errorf("%w: invalid item target", ErrValidation)
	ErrInvalidSlot       = fmt.Errorf("%w: slot out of range", ErrValidation)
	ErrNilBoard          = fmt.Errorf("%w: board is required", ErrValidation)
	ErrNilRuleset        = fmt.Errorf("%w: ruleset is required", ErrValidation)
)

// Business rule errors
var (
	ErrGameFinished    = fmt.Errorf("%w: game already finished", ErrRule)
	ErrPlayerNotInGame = fmt.Errorf("%w: player is not in this game", ErrRule)
	ErrNotYourTurn     = fmt.Errorf("%w: not your turn", ErrRule)
	ErrItemAlreadyUsed = fmt.Errorf("%w: an item was already used this turn", ErrRule)
	ErrItemNotEquipped = fmt.Errorf("%w: nothing equipped in that slot", ErrRule)
	ErrNoQuantity      = fmt.Errorf("%w: no quantity remaining", ErrRule)
	ErrStaleTimeout    = fmt.Errorf("%w: turn already changed", ErrRule)
	ErrTargetNotInGame = fmt.Errorf("%w: target is not in this game", ErrRule)
	ErrAlreadyRolled   = fmt.Errorf("%w: already rolled this turn", ErrRule)
)

// IsValidation reports whether err is a precondition failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRule reports whether err is a business rule failure
func IsRule(err error) bool {
	return errors.Is(err, ErrRule)
}
