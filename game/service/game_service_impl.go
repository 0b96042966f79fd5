package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

// collaboratorTimeout bounds collaborator calls made from clock callbacks
const collaboratorTimeout = 5 * time.Second

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionStore
	rulesets  RulesetManager
	inventory InventoryProvider
	results   ResultSink
	notifier  Notifier
	journal   ActionJournal
	states    StatePublisher
	clock     TurnClock
	log       logrus.FieldLogger
	now       func() time.Time
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithInventory sets the inventory provider used for equipped slots
func WithInventory(inv InventoryProvider) Option {
	return func(s *gameServiceImpl) { s.inventory = inv }
}

// WithResultSink sets the sink receiving final results
func WithResultSink(sink ResultSink) Option {
	return func(s *gameServiceImpl) { s.results = sink }
}

// WithNotifier sets the event notifier
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithJournal sets the action journal
func WithJournal(j ActionJournal) Option {
	return func(s *gameServiceImpl) { s.journal = j }
}

// WithStatePublisher sets the receiver of a full snapshot after every change
func WithStatePublisher(p StatePublisher) Option {
	return func(s *gameServiceImpl) { s.states = p }
}

// WithClock sets the turn clock. The service binds itself as its handler.
func WithClock(c TurnClock) Option {
	return func(s *gameServiceImpl) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *gameServiceImpl) { s.log = log }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionStore, rulesets RulesetManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		rulesets: rulesets,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "game_service")
	if s.clock != nil {
		s.clock.Bind(s)
	}
	return s
}

// CreateGame builds a board and registers a new game
func (s *gameServiceImpl) CreateGame(ctx context.Context, req CreateBoardRequest) (*GameInfo, error) {
	if req.GameID <= 0 {
		return nil, engine.ErrInvalidGameID
	}
	if len(req.PlayerUserIDs) == 0 {
		return nil, engine.ErrNoPlayers
	}
	if _, ok := s.sessions.TryGet(req.GameID); ok {
		return nil, fmt.Errorf("%w: %d", ErrGameExists, req.GameID)
	}

	rules, rulesetName, err := s.resolveRuleset(req.Ruleset)
	if err != nil {
		return nil, err
	}

	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else if seed, err = engine.NewSeed(); err != nil {
		return nil, err
	}

	board, err := engine.BuildBoard(engine.BoardSpec{
		GameID:         req.GameID,
		Size:           req.BoardSize,
		EnableBonus:    req.EnableBonusCells,
		EnableTrap:     req.EnableTrapCells,
		EnableTeleport: req.EnableTeleportCells,
		Difficulty:     req.Difficulty,
	}, rules, seed)
	if err != nil {
		return nil, err
	}

	game, err := engine.NewGame(board, rules, req.PlayerUserIDs, nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		GameID:         req.GameID,
		Game:           game,
		Board:          board,
		RulesetName:    rulesetName,
		Players:        append([]int64(nil), req.PlayerUserIDs...),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := s.sessions.Create(sess); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"game_id":    req.GameID,
		"board_size": board.Size,
		"difficulty": board.Difficulty,
		"players":    len(req.PlayerUserIDs),
		"ruleset":    rulesetName,
	}).Info("game created")

	snap := game.GetCurrentState()
	s.record(ctx, req.GameID, snap.TurnSeq, 0, "create", req)
	s.notify(Event{Type: EventGameCreated, GameID: req.GameID, Data: snap})
	s.startTurn(sess, snap, true)

	return s.info(sess, true), nil
}

// GetGame retrieves game information including the board
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID int64) (*GameInfo, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	if next := s.refresh(gameID); next != nil {
		sess = next
	}
	return s.info(sess, true), nil
}

// ListGames returns all games ordered by id
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].GameID < sessions[j].GameID })

	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, false))
	}
	return result, nil
}

// DeleteGame abandons a running game and removes it
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID int64) error {
	sess, err := s.session(gameID)
	if err != nil {
		return err
	}
	s.dispose(ctx, sess)
	return s.sessions.Delete(gameID)
}

// RollDice rolls for the current player
func (s *gameServiceImpl) RollDice(ctx context.Context, req RollDiceRequest) (*engine.RollOutcome, error) {
	if req.GameID <= 0 {
		return nil, engine.ErrInvalidGameID
	}
	if req.PlayerUserID <= 0 {
		return nil, engine.ErrInvalidUserID
	}
	if req.DiceSlot != nil && (*req.DiceSlot < engine.MinDiceSlot || *req.DiceSlot > engine.MaxDiceSlot) {
		return nil, fmt.Errorf("%w: dice slot %d", engine.ErrInvalidSlot, *req.DiceSlot)
	}

	sess, err := s.session(req.GameID)
	if err != nil {
		return nil, err
	}

	diceCode := ""
	fromSlot := false
	if req.DiceSlot != nil {
		eq, err := s.equipped(ctx, req.PlayerUserID, *req.DiceSlot, true)
		switch {
		case err == nil:
			diceCode = eq.Code
			fromSlot = true
		case !s.frozen(sess, req.PlayerUserID):
			return nil, err
		}
	}

	out, err := sess.Game.RollDice(req.PlayerUserID, diceCode)
	if err != nil {
		return nil, err
	}

	// The game state is settled; everything below is best effort
	log := s.log.WithFields(logrus.Fields{"game_id": req.GameID, "user_id": req.PlayerUserID})
	if fromSlot && out.DiceConsumed() && s.inventory != nil {
		if err := s.inventory.ConsumeDice(ctx, req.PlayerUserID, diceCode); err != nil {
			log.WithError(err).Warn("failed to consume dice")
		}
	}
	if out.GrantedItemCode != "" && s.inventory != nil {
		if err := s.inventory.GrantItem(ctx, req.PlayerUserID, out.GrantedItemCode); err != nil {
			log.WithError(err).Warn("failed to grant bonus item")
		}
	}
	if out.GrantedDiceCode != "" && s.inventory != nil {
		if err := s.inventory.GrantDice(ctx, req.PlayerUserID, out.GrantedDiceCode); err != nil {
			log.WithError(err).Warn("failed to grant bonus dice")
		}
	}

	log.WithFields(logrus.Fields{
		"dice":    out.DiceValue,
		"from":    out.FromCell,
		"to":      out.ToCell,
		"effects": out.Effects,
	}).Debug("dice rolled")

	s.record(ctx, req.GameID, out.TurnSeq, req.PlayerUserID, "roll", out)
	s.notify(Event{Type: EventMove, GameID: req.GameID, UserID: req.PlayerUserID, Data: out})
	s.afterTransition(ctx, sess, out.IsGameOver, true, out.TurnChanged)
	s.refresh(req.GameID)

	return &out, nil
}

// frozen reports whether the player will skip instead of rolling. A frozen
// skip never touches the dice, so a bad dice slot does not block it.
func (s *gameServiceImpl) frozen(sess *Session, userID int64) bool {
	p, ok := sess.Game.Player(userID)
	return ok && p.FrozenTurns > 0
}

// UseItem applies the item equipped in a slot
func (s *gameServiceImpl) UseItem(ctx context.Context, req UseItemRequest) (*engine.ItemEffectOutcome, error) {
	if req.GameID <= 0 {
		return nil, engine.ErrInvalidGameID
	}
	if req.PlayerUserID <= 0 {
		return nil, engine.ErrInvalidUserID
	}
	if req.ItemSlot < engine.MinItemSlot || req.ItemSlot > engine.MaxItemSlot {
		return nil, fmt.Errorf("%w: item slot %d", engine.ErrInvalidSlot, req.ItemSlot)
	}
	if req.TargetUserID != nil && *req.TargetUserID <= 0 {
		return nil, engine.ErrInvalidTarget
	}

	sess, err := s.session(req.GameID)
	if err != nil {
		return nil, err
	}

	eq, err := s.equipped(ctx, req.PlayerUserID, req.ItemSlot, false)
	if err != nil {
		return nil, err
	}

	var target int64
	if req.TargetUserID != nil {
		target = *req.TargetUserID
	}

	out, err := sess.Game.UseItem(req.PlayerUserID, eq.Code, target)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"game_id": req.GameID, "user_id": req.PlayerUserID, "item": eq.Code})
	if out.Consumed {
		if err := s.inventory.ConsumeItem(ctx, req.PlayerUserID, eq.Code); err != nil {
			log.WithError(err).Warn("failed to consume item")
		}
	}
	if out.WasBlockedByShield {
		log.WithField("target_id", out.TargetID).Debug("item blocked by shield")
	}

	s.record(ctx, req.GameID, sess.Game.TurnSeq(), req.PlayerUserID, "use_item", out)
	s.notify(Event{Type: EventItemUsed, GameID: req.GameID, UserID: req.PlayerUserID, Data: out})
	s.refresh(req.GameID)

	return &out, nil
}

// LeaveGame removes a player who quits
func (s *gameServiceImpl) LeaveGame(ctx context.Context, gameID, userID int64) (*engine.LeaveOutcome, error) {
	if gameID <= 0 {
		return nil, engine.ErrInvalidGameID
	}
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}

	out, err := sess.Game.Leave(userID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"game_id": gameID, "user_id": userID}).Info("player left")
	s.record(ctx, gameID, out.TurnSeq, userID, "leave", out)
	s.notify(Event{
		Type:   EventPlayerLeft,
		GameID: gameID,
		UserID: userID,
		Data:   PlayerLeft{Reason: "left", RemainingPlayers: out.RemainingPlayers},
	})
	s.afterTransition(ctx, sess, out.IsGameOver, out.WasCurrentTurn, out.WasCurrentTurn)
	s.refresh(gameID)

	return &out, nil
}

// HandleTurnTimeout resolves an expired turn if seq is still current
func (s *gameServiceImpl) HandleTurnTimeout(ctx context.Context, gameID int64, seq uint64) (*engine.TimeoutOutcome, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}

	out, err := sess.Game.HandleTurnTimeoutAt(seq)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"game_id":  gameID,
		"user_id":  out.TimedOutUserID,
		"timeouts": out.ConsecutiveTimeouts,
	})
	if out.Kicked {
		log.Info("player kicked after consecutive timeouts")
		s.notify(Event{
			Type:   EventPlayerLeft,
			GameID: gameID,
			UserID: out.TimedOutUserID,
			Data:   PlayerLeft{Reason: "kicked", RemainingPlayers: out.RemainingPlayers},
		})
	} else {
		log.Debug("turn timed out")
	}

	s.record(ctx, gameID, out.TurnSeq, out.TimedOutUserID, "timeout", out)
	s.afterTransition(ctx, sess, out.IsGameOver, true, true)
	s.refresh(gameID)

	return &out, nil
}

// TurnExpired implements clock.Handler
func (s *gameServiceImpl) TurnExpired(gameID int64, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	_, err := s.HandleTurnTimeout(ctx, gameID, seq)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrStaleTimeout):
		s.log.WithFields(logrus.Fields{"game_id": gameID, "turn_seq": seq}).Debug("stale turn expiry ignored")
		s.rearm(gameID)
	case errors.Is(err, engine.ErrGameFinished), errors.Is(err, ErrGameNotFound):
	default:
		s.log.WithError(err).WithField("game_id", gameID).Error("turn timeout failed")
	}
}

// TimerTick implements clock.Handler
func (s *gameServiceImpl) TimerTick(gameID int64, seq uint64, remaining time.Duration) {
	sess, ok := s.sessions.TryGet(gameID)
	if !ok {
		return
	}
	snap := sess.Game.GetCurrentState()
	if snap.IsFinished || snap.TurnSeq != seq {
		return
	}
	s.notify(Event{
		Type:   EventTimerTick,
		GameID: gameID,
		Data: TimerTick{
			CurrentTurnUserID: snap.CurrentTurnUserID,
			TurnSeq:           seq,
			RemainingSeconds:  int((remaining + time.Second - 1) / time.Second),
		},
	})
}

// GetCurrentState returns the game snapshot
func (s *gameServiceImpl) GetCurrentState(ctx context.Context, gameID int64) (*engine.StateSnapshot, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	snap := sess.Game.GetCurrentState()
	return &snap, nil
}

// GetBoard returns the board of a game
func (s *gameServiceImpl) GetBoard(ctx context.Context, gameID int64) (*engine.BoardDefinition, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	return sess.Board, nil
}

// ListRulesets returns all available rulesets
func (s *gameServiceImpl) ListRulesets(ctx context.Context) ([]*RulesetInfo, error) {
	if s.rulesets == nil {
		return nil, nil
	}
	return s.rulesets.ListRulesets()
}

// LoadRuleset loads a ruleset by name; an empty name returns the default
func (s *gameServiceImpl) LoadRuleset(ctx context.Context, name string) (*engine.Ruleset, error) {
	rules, _, err := s.resolveRuleset(name)
	return rules, err
}

// SaveRuleset validates and stores a ruleset
func (s *gameServiceImpl) SaveRuleset(ctx context.Context, name string, rules *engine.Ruleset) error {
	if s.rulesets == nil {
		return fmt.Errorf("ruleset storage is not configured")
	}
	return s.rulesets.SaveRuleset(name, rules)
}

// PruneGames abandons and removes games idle for longer than maxIdle
func (s *gameServiceImpl) PruneGames(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for _, sess := range s.sessions.List() {
		if !sess.LastAccessedAt.Before(cutoff) {
			continue
		}
		s.dispose(ctx, sess)
		if err := s.sessions.Delete(sess.GameID); err == nil {
			removed++
		}
	}
	return removed
}

// dispose stops the clock and finalizes a game that never finished
func (s *gameServiceImpl) dispose(ctx context.Context, sess *Session) {
	if sess.Game.Abandon() {
		s.finalize(ctx, sess, sess.Game.GetCurrentState())
	}
	if s.clock != nil {
		s.clock.Stop(sess.GameID)
	}
}

func (s *gameServiceImpl) session(gameID int64) (*Session, error) {
	if gameID <= 0 {
		return nil, engine.ErrInvalidGameID
	}
	sess, ok := s.sessions.TryGet(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrGameNotFound, gameID)
	}
	return sess, nil
}

func (s *gameServiceImpl) resolveRuleset(name string) (*engine.Ruleset, string, error) {
	if s.rulesets == nil {
		rules := engine.DefaultRuleset()
		if name != "" && name != rules.Name {
			return nil, "", fmt.Errorf("ruleset '%s' not found", name)
		}
		return rules, rules.Name, nil
	}
	if name == "" {
		rules := s.rulesets.GetDefault()
		return rules, rules.Name, nil
	}
	rules, err := s.rulesets.LoadRuleset(name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load ruleset %s: %w", name, err)
	}
	return rules, name, nil
}

// equipped looks up the item or dice in a slot and checks it can be used
func (s *gameServiceImpl) equipped(ctx context.Context, userID int64, slot int, dice bool) (Equipment, error) {
	if s.inventory == nil {
		return Equipment{}, engine.ErrItemNotEquipped
	}

	var (
		eq  Equipment
		ok  bool
		err error
	)
	if dice {
		eq, ok, err = s.inventory.EquippedDice(ctx, userID, slot)
	} else {
		eq, ok, err = s.inventory.EquippedItem(ctx, userID, slot)
	}
	if err != nil {
		return Equipment{}, fmt.Errorf("inventory lookup failed: %w", err)
	}
	if !ok || eq.Code == "" {
		return Equipment{}, engine.ErrItemNotEquipped
	}
	if eq.Quantity <= 0 {
		return Equipment{}, engine.ErrNoQuantity
	}
	return eq, nil
}

// afterTransition finalizes a finished game or arms the clock for the next
// turn. announce sends turn_changed; an extra roll rearms without it.
func (s *gameServiceImpl) afterTransition(ctx context.Context, sess *Session, finished, rearm, announce bool) {
	snap := sess.Game.GetCurrentState()
	if finished {
		s.finalize(ctx, sess, snap)
		return
	}
	if rearm && !snap.IsFinished {
		s.startTurn(sess, snap, announce)
	}
}

func (s *gameServiceImpl) startTurn(sess *Session, snap engine.StateSnapshot, announce bool) {
	change := TurnChange{CurrentTurnUserID: snap.CurrentTurnUserID, TurnSeq: snap.TurnSeq}

	rules := sess.Game.Rules()
	if s.clock != nil && rules.TurnDurationSec > 0 {
		s.clock.Start(sess.GameID, snap.TurnSeq,
			time.Duration(rules.TurnDurationSec)*time.Second,
			time.Duration(rules.TickIntervalSec)*time.Second)
		if deadline, seq, ok := s.clock.Deadline(sess.GameID); ok && seq == snap.TurnSeq {
			change.Deadline = &deadline
		}
	}

	if announce {
		s.notify(Event{Type: EventTurnChanged, GameID: sess.GameID, UserID: snap.CurrentTurnUserID, Data: change})
	}
}

// rearm restarts the clock when a stale expiry left the current turn unarmed
func (s *gameServiceImpl) rearm(gameID int64) {
	sess, ok := s.sessions.TryGet(gameID)
	if !ok || s.clock == nil {
		return
	}
	snap := sess.Game.GetCurrentState()
	if snap.IsFinished {
		return
	}
	if _, seq, armed := s.clock.Deadline(gameID); armed && seq >= snap.TurnSeq {
		return
	}
	rules := sess.Game.Rules()
	s.clock.Start(gameID, snap.TurnSeq,
		time.Duration(rules.TurnDurationSec)*time.Second,
		time.Duration(rules.TickIntervalSec)*time.Second)
}

func (s *gameServiceImpl) finalize(ctx context.Context, sess *Session, snap engine.StateSnapshot) {
	if s.clock != nil {
		s.clock.Stop(sess.GameID)
	}

	result := GameResult{
		GameID:      sess.GameID,
		RulesetName: sess.RulesetName,
		WinnerID:    snap.WinnerID,
		EndReason:   snap.EndReason,
		Players:     append([]int64(nil), sess.Players...),
		Coins:       ComputeCoins(sess.Game.Rules(), sess.Players, snap),
		FinishedAt:  s.now(),
	}

	log := s.log.WithFields(logrus.Fields{
		"game_id":    sess.GameID,
		"winner_id":  result.WinnerID,
		"end_reason": result.EndReason,
	})
	log.Info("game finished")

	if s.results != nil {
		if err := s.results.FinalizeGame(ctx, result); err != nil {
			log.WithError(err).Error("failed to finalize game result")
		}
	}

	s.record(ctx, sess.GameID, snap.TurnSeq, result.WinnerID, "game_end", result)
	s.notify(Event{Type: EventGameEnd, GameID: sess.GameID, UserID: result.WinnerID, Data: result})
}

// ComputeCoins returns the reward of every original player. Removed players
// and abandoned games earn nothing.
func ComputeCoins(rules *engine.Ruleset, players []int64, snap engine.StateSnapshot) map[int64]int {
	removed := make(map[int64]bool, len(snap.RemovedPlayers))
	for _, id := range snap.RemovedPlayers {
		removed[id] = true
	}

	coins := make(map[int64]int, len(players))
	for _, id := range players {
		switch {
		case snap.EndReason == engine.EndReasonAbandoned, removed[id]:
			coins[id] = 0
		case id == snap.WinnerID:
			coins[id] = rules.Rewards.WinCoins
		default:
			coins[id] = rules.Rewards.ParticipationCoins
		}
	}
	return coins
}

// refresh replaces the stored record with one built from the current game state
func (s *gameServiceImpl) refresh(gameID int64) *Session {
	sess, ok := s.sessions.TryGet(gameID)
	if !ok {
		return nil
	}
	snap := sess.Game.GetCurrentState()

	next := *sess
	next.TurnSeq = snap.TurnSeq
	next.Finished = snap.IsFinished
	next.WinnerID = snap.WinnerID
	next.EndReason = snap.EndReason
	next.LastAccessedAt = s.now()

	if err := s.sessions.Update(&next); err != nil {
		s.log.WithError(err).WithField("game_id", gameID).Debug("session update skipped")
		return nil
	}
	if s.states != nil {
		s.states.BroadcastState(snap)
	}
	return &next
}

func (s *gameServiceImpl) info(sess *Session, withBoard bool) *GameInfo {
	info := &GameInfo{
		GameID:         sess.GameID,
		RulesetName:    sess.RulesetName,
		Players:        append([]int64(nil), sess.Players...),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Game.GetCurrentState(),
	}
	if withBoard {
		info.Board = sess.Board
	}
	if s.clock != nil {
		if deadline, seq, ok := s.clock.Deadline(sess.GameID); ok && seq == info.State.TurnSeq {
			info.TurnDeadline = &deadline
		}
	}
	return info
}

func (s *gameServiceImpl) record(ctx context.Context, gameID int64, seq uint64, actor int64, action string, payload any) {
	if s.journal == nil {
		return
	}
	rec := ActionRecord{
		ID:          uuid.NewString(),
		GameID:      gameID,
		TurnSeq:     seq,
		ActorUserID: actor,
		Action:      action,
		Payload:     payload,
		Timestamp:   s.now(),
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"game_id": gameID, "action": action}).Warn("failed to journal action")
	}
}

func (s *gameServiceImpl) notify(event Event) {
	if s.notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.notifier.Notify(event)
}
