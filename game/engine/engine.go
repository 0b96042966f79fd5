package engine

import (
	"fmt"
	"sync"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Player actions
	RollDice(userID int64, diceCode string) (RollOutcome, error)
	UseItem(userID int64, itemCode string, targetID int64) (ItemEffectOutcome, error)
	Leave(userID int64) (LeaveOutcome, error)

	// Turn clock entry points
	HandleTurnTimeout() (TimeoutOutcome, error)
	HandleTurnTimeoutAt(seq uint64) (TimeoutOutcome, error)

	// Read access
	GetCurrentState() StateSnapshot
	Board() *BoardDefinition
	Rules() *Ruleset
	TurnSeq() uint64
}

// Game owns the authoritative state of one match. Every exported method takes
// the game lock for its whole duration.
type Game struct {
	mu sync.Mutex

	id    int64
	board *BoardDefinition
	rules *Ruleset
	dice  DiceRoller
	nav   Navigator

	players   map[int64]*PlayerState
	turnOrder []int64
	turnIndex int
	turnSeq   uint64
	removed   []int64

	finished  bool
	winnerID  int64
	endReason EndReason
}

var _ Engine = (*Game)(nil)

// NewGame creates a game around a built board. A nil dice roller falls back
// to a DiceResolver seeded from the board seed.
func NewGame(board *BoardDefinition, rules *Ruleset, players []int64, dice DiceRoller) (*Game, error) {
	if board == nil {
		return nil, ErrNilBoard
	}
	if rules == nil {
		return nil, ErrNilRuleset
	}
	if board.GameID <= 0 {
		return nil, ErrInvalidGameID
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	g := &Game{
		id:        board.GameID,
		board:     board,
		rules:     rules,
		dice:      dice,
		nav:       NewNavigator(board, rules),
		players:   make(map[int64]*PlayerState, len(players)),
		turnOrder: make([]int64, 0, len(players)),
	}
	if g.dice == nil {
		g.dice = NewDiceResolver(rules, board.Seed)
	}

	for _, id := range players {
		if id <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidUserID, id)
		}
		if _, exists := g.players[id]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePlayer, id)
		}
		g.players[id] = &PlayerState{UserID: id, Position: StartCell}
		g.turnOrder = append(g.turnOrder, id)
	}

	return g, nil
}

// ID returns the game identifier
func (g *Game) ID() int64 {
	return g.id
}

// Board returns the immutable board
func (g *Game) Board() *BoardDefinition {
	return g.board
}

// Rules returns the ruleset the game was created with
func (g *Game) Rules() *Ruleset {
	return g.rules
}

// TurnSeq returns the current turn sequence number
func (g *Game) TurnSeq() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turnSeq
}

// IsFinished reports whether the game has ended
func (g *Game) IsFinished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

// Player returns a copy of a player's state
func (g *Game) Player(userID int64) (PlayerState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[userID]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// CurrentTurnUserID returns the player whose turn it is, or 0 once finished
func (g *Game) CurrentTurnUserID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLocked()
}

// RollDice rolls diceCode for userID and resolves the move. An empty code
// uses the ruleset's default dice.
func (g *Game) RollDice(userID int64, diceCode string) (RollOutcome, error) {
	if userID <= 0 {
		return RollOutcome{}, ErrInvalidUserID
	}
	if diceCode == "" {
		diceCode = g.rules.DefaultDice
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.actorLocked(userID)
	if err != nil {
		return RollOutcome{}, err
	}
	if p.HasRolled {
		return RollOutcome{}, ErrAlreadyRolled
	}

	out := RollOutcome{
		GameID:   g.id,
		UserID:   userID,
		FromCell: p.Position,
		ToCell:   p.Position,
	}

	// Frozen players skip without touching the dice
	if p.FrozenTurns > 0 {
		p.ConsecutiveTimeouts = 0
		p.FrozenTurns--
		g.advanceTurnLocked(p)
		out.Frozen = true
		return g.finishRollLocked(out, []ResultToken{TokenFrozenSkip}), nil
	}

	value, err := g.dice.Roll(diceCode)
	if err != nil {
		return RollOutcome{}, err
	}
	p.ConsecutiveTimeouts = 0
	p.HasRolled = true
	out.DiceCode = diceCode
	out.DiceValue = value

	final := g.board.FinalCell()
	target := clampStart(p.Position + value)

	if p.PendingBonus > 0 {
		boosted := clampStart(p.Position + value + p.PendingBonus)
		if boosted <= final {
			target = boosted
			out.UsedBonus = true
			out.BonusAmount = p.PendingBonus
		} else {
			out.BonusIgnored = true
		}
		p.PendingBonus = 0
	}

	if target > final {
		out.RollTooHigh = true
		g.advanceTurnLocked(p)
		return g.finishRollLocked(out, []ResultToken{TokenRollTooHigh}), nil
	}

	var tokens []ResultToken
	cell, token := g.nav.ApplyJumpEffectsIfAny(p, target)
	if token != TokenNone {
		tokens = append(tokens, token)
	}
	landing := g.nav.ApplySpecialCellIfAny(p, cell, tokens)
	tokens = landing.Tokens

	p.Position = landing.Cell
	out.ToCell = p.Position
	out.GrantedItemCode = landing.GrantedItem
	out.GrantedDiceCode = landing.GrantedDice
	out.Trapped = landing.Trapped

	switch {
	case p.Position >= final:
		p.Position = final
		out.ToCell = final
		tokens = append(tokens, TokenWin)
		g.finishLocked(userID, EndReasonReachedFinalCell)
	case landing.ExtraRoll:
		out.ExtraRoll = true
		p.HasRolled = false
		p.ItemUsed = false
		g.turnSeq++
	default:
		g.advanceTurnLocked(p)
	}

	return g.finishRollLocked(out, tokens), nil
}

func (g *Game) finishRollLocked(out RollOutcome, tokens []ResultToken) RollOutcome {
	if len(tokens) == 0 {
		tokens = []ResultToken{TokenNone}
	}
	last := tokens[len(tokens)-1]
	out.Effects = tokens
	out.ExtraInfo = string(last)
	out.Message = g.rules.Message(last)
	out.IsGameOver = g.finished
	out.WinnerID = g.winnerID
	out.NextTurnUserID = g.currentLocked()
	out.TurnChanged = out.NextTurnUserID != out.UserID
	out.TurnSeq = g.turnSeq
	return out
}

// UseItem applies itemCode from userID. Offensive items need a target other
// than the caster; self items ignore targetID when it is 0.
func (g *Game) UseItem(userID int64, itemCode string, targetID int64) (ItemEffectOutcome, error) {
	if userID <= 0 {
		return ItemEffectOutcome{}, ErrInvalidUserID
	}
	def, ok := g.rules.Items[itemCode]
	if !ok {
		return ItemEffectOutcome{}, fmt.Errorf("%w: %q", ErrUnknownItem, itemCode)
	}
	if def.Kind.IsOffensive() {
		if targetID <= 0 || targetID == userID {
			return ItemEffectOutcome{}, ErrInvalidTarget
		}
	} else if targetID != 0 && targetID != userID {
		return ItemEffectOutcome{}, ErrInvalidTarget
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	caster, err := g.actorLocked(userID)
	if err != nil {
		return ItemEffectOutcome{}, err
	}
	if caster.ItemUsed {
		return ItemEffectOutcome{}, ErrItemAlreadyUsed
	}

	target := caster
	if def.Kind.IsOffensive() {
		t, ok := g.players[targetID]
		if !ok {
			return ItemEffectOutcome{}, ErrTargetNotInGame
		}
		target = t
	}

	out := g.nav.resolveItem(caster, target, def)
	out.GameID = g.id
	out.CasterID = userID
	out.TargetID = target.UserID
	out.ItemCode = itemCode
	out.Message = g.rules.Message(out.Token)

	caster.ConsecutiveTimeouts = 0
	if out.Consumed || out.WasBlockedByShield {
		caster.ItemUsed = true
	}

	return out, nil
}

// HandleTurnTimeout resolves an expired turn for the current player
func (g *Game) HandleTurnTimeout() (TimeoutOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeoutLocked()
}

// HandleTurnTimeoutAt resolves an expired turn only if the turn sequence still
// matches seq. A clock firing after the turn already changed gets
// ErrStaleTimeout.
func (g *Game) HandleTurnTimeoutAt(seq uint64) (TimeoutOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finished {
		return TimeoutOutcome{}, ErrGameFinished
	}
	if seq != g.turnSeq {
		return TimeoutOutcome{}, ErrStaleTimeout
	}
	return g.timeoutLocked()
}

func (g *Game) timeoutLocked() (TimeoutOutcome, error) {
	if g.finished {
		return TimeoutOutcome{}, ErrGameFinished
	}

	current := g.turnOrder[g.turnIndex]
	p, ok := g.players[current]
	if !ok {
		return TimeoutOutcome{}, fmt.Errorf("%w: player %d in turn order has no state", ErrInconsistentState, current)
	}

	p.ConsecutiveTimeouts++
	out := TimeoutOutcome{
		GameID:              g.id,
		TimedOutUserID:      current,
		ConsecutiveTimeouts: p.ConsecutiveTimeouts,
	}

	if p.ConsecutiveTimeouts >= g.rules.KickThreshold {
		out.Kicked = true
		g.removeLocked(current, EndReasonAllPlayersRemoved)
	} else {
		if p.FrozenTurns > 0 {
			p.FrozenTurns--
			out.FrozenConsumed = true
		}
		g.advanceTurnLocked(p)
	}

	out.NextTurnUserID = g.currentLocked()
	out.RemainingPlayers = g.turnOrderLocked()
	out.IsGameOver = g.finished
	out.WinnerID = g.winnerID
	out.EndReason = g.endReason
	out.TurnSeq = g.turnSeq
	return out, nil
}

// Leave removes a player who quits voluntarily. Leaving on your own turn
// passes the turn; the remaining player wins if only one is left.
func (g *Game) Leave(userID int64) (LeaveOutcome, error) {
	if userID <= 0 {
		return LeaveOutcome{}, ErrInvalidUserID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finished {
		return LeaveOutcome{}, ErrGameFinished
	}
	if _, ok := g.players[userID]; !ok {
		return LeaveOutcome{}, ErrPlayerNotInGame
	}

	out := LeaveOutcome{
		GameID:         g.id,
		UserID:         userID,
		WasCurrentTurn: g.currentLocked() == userID,
	}
	g.removeLocked(userID, EndReasonAllPlayersLeft)

	out.NextTurnUserID = g.currentLocked()
	out.RemainingPlayers = g.turnOrderLocked()
	out.IsGameOver = g.finished
	out.WinnerID = g.winnerID
	out.EndReason = g.endReason
	out.TurnSeq = g.turnSeq
	return out, nil
}

// Abandon ends an unfinished game without a winner
func (g *Game) Abandon() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finished {
		return false
	}
	g.finishLocked(0, EndReasonAbandoned)
	return true
}

// GetCurrentState returns a consistent snapshot of the game
func (g *Game) GetCurrentState() StateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := StateSnapshot{
		GameID:            g.id,
		CurrentTurnUserID: g.currentLocked(),
		TurnOrder:         g.turnOrderLocked(),
		RemovedPlayers:    append([]int64(nil), g.removed...),
		TurnSeq:           g.turnSeq,
		IsFinished:        g.finished,
		WinnerID:          g.winnerID,
		EndReason:         g.endReason,
		FinalCell:         g.board.FinalCell(),
		Tokens:            make([]PlayerToken, 0, len(g.turnOrder)),
	}
	for _, id := range g.turnOrder {
		p := g.players[id]
		if p == nil {
			continue
		}
		snap.Tokens = append(snap.Tokens, PlayerToken{
			UserID:               p.UserID,
			CellIndex:            p.Position,
			HasShield:            p.ShieldActive,
			RemainingShieldTurns: p.ShieldTurns,
			RemainingFrozenTurns: p.FrozenTurns,
			HasPendingBonus:      p.PendingBonus > 0,
			PendingBonus:         p.PendingBonus,
			ConsecutiveTimeouts:  p.ConsecutiveTimeouts,
		})
	}
	return snap
}

// actorLocked checks that userID may act now and returns its state
func (g *Game) actorLocked(userID int64) (*PlayerState, error) {
	if g.finished {
		return nil, ErrGameFinished
	}
	if !g.inTurnOrderLocked(userID) {
		return nil, ErrPlayerNotInGame
	}
	if g.turnOrder[g.turnIndex] != userID {
		return nil, ErrNotYourTurn
	}
	p, ok := g.players[userID]
	if !ok {
		return nil, fmt.Errorf("%w: player %d in turn order has no state", ErrInconsistentState, userID)
	}
	return p, nil
}

func (g *Game) inTurnOrderLocked(userID int64) bool {
	for _, id := range g.turnOrder {
		if id == userID {
			return true
		}
	}
	return false
}

// advanceTurnLocked ends the actor's turn: its shield ticks down and the
// next player in order gets a fresh turn
func (g *Game) advanceTurnLocked(actor *PlayerState) {
	if actor.ShieldActive {
		actor.ShieldTurns--
		if actor.ShieldTurns <= 0 {
			actor.ShieldActive = false
			actor.ShieldTurns = 0
		}
	}
	actor.HasRolled = false
	actor.ItemUsed = false

	g.turnIndex = (g.turnIndex + 1) % len(g.turnOrder)
	if next := g.players[g.turnOrder[g.turnIndex]]; next != nil {
		next.HasRolled = false
		next.ItemUsed = false
	}
	g.turnSeq++
}

// removeLocked drops a player from the turn order and finishes the game when
// at most one player remains. emptied is the end reason when nobody is left.
func (g *Game) removeLocked(userID int64, emptied EndReason) {
	idx := -1
	for i, id := range g.turnOrder {
		if id == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	wasCurrent := idx == g.turnIndex
	g.turnOrder = append(g.turnOrder[:idx], g.turnOrder[idx+1:]...)
	g.removed = append(g.removed, userID)
	delete(g.players, userID)

	if idx < g.turnIndex {
		g.turnIndex--
	}
	if g.turnIndex >= len(g.turnOrder) {
		g.turnIndex = 0
	}

	switch len(g.turnOrder) {
	case 0:
		g.finishLocked(0, emptied)
		return
	case 1:
		g.finishLocked(g.turnOrder[0], EndReasonLastPlayer)
		return
	}

	if wasCurrent {
		if next := g.players[g.turnOrder[g.turnIndex]]; next != nil {
			next.HasRolled = false
			next.ItemUsed = false
		}
		g.turnSeq++
	}
}

func (g *Game) finishLocked(winnerID int64, reason EndReason) {
	g.finished = true
	g.winnerID = winnerID
	g.endReason = reason
	g.turnSeq++
}

func (g *Game) currentLocked() int64 {
	if g.finished || len(g.turnOrder) == 0 {
		return 0
	}
	return g.turnOrder[g.turnIndex]
}

func (g *Game) turnOrderLocked() []int64 {
	order := make([]int64, len(g.turnOrder))
	copy(order, g.turnOrder)
	return order
}

func clampStart(cell int) int {
	if cell < StartCell {
		return StartCell
	}
	return cell
}
