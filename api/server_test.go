package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/config"
	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
	"github.com/wricardo/mcp-training/laddergame/game/session"
	"github.com/wricardo/mcp-training/laddergame/storage/memory"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateGameFunc      func(ctx context.Context, req service.CreateBoardRequest) (*service.GameInfo, error)
	GetGameFunc         func(ctx context.Context, gameID int64) (*service.GameInfo, error)
	ListGamesFunc       func(ctx context.Context) ([]*service.GameInfo, error)
	DeleteGameFunc      func(ctx context.Context, gameID int64) error
	RollDiceFunc        func(ctx context.Context, req service.RollDiceRequest) (*engine.RollOutcome, error)
	UseItemFunc         func(ctx context.Context, req service.UseItemRequest) (*engine.ItemEffectOutcome, error)
	LeaveGameFunc       func(ctx context.Context, gameID, userID int64) (*engine.LeaveOutcome, error)
	GetCurrentStateFunc func(ctx context.Context, gameID int64) (*engine.StateSnapshot, error)
	GetBoardFunc        func(ctx context.Context, gameID int64) (*engine.BoardDefinition, error)
	ListRulesetsFunc    func(ctx context.Context) ([]*service.RulesetInfo, error)
	LoadRulesetFunc     func(ctx context.Context, name string) (*engine.Ruleset, error)
	SaveRulesetFunc     func(ctx context.Context, name string, rules *engine.Ruleset) error
}

func (m *MockGameService) CreateGame(ctx context.Context, req service.CreateBoardRequest) (*service.GameInfo, error) {
	if m.CreateGameFunc != nil {
		return m.CreateGameFunc(ctx, req)
	}
	return &service.GameInfo{GameID: req.GameID, Players: req.PlayerUserIDs, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetGame(ctx context.Context, gameID int64) (*service.GameInfo, error) {
	if m.GetGameFunc != nil {
		return m.GetGameFunc(ctx, gameID)
	}
	return &service.GameInfo{GameID: gameID}, nil
}

func (m *MockGameService) ListGames(ctx context.Context) ([]*service.GameInfo, error) {
	if m.ListGamesFunc != nil {
		return m.ListGamesFunc(ctx)
	}
	return []*service.GameInfo{}, nil
}

func (m *MockGameService) DeleteGame(ctx context.Context, gameID int64) error {
	if m.DeleteGameFunc != nil {
		return m.DeleteGameFunc(ctx, gameID)
	}
	return nil
}

func (m *MockGameService) RollDice(ctx context.Context, req service.RollDiceRequest) (*engine.RollOutcome, error) {
	if m.RollDiceFunc != nil {
		return m.RollDiceFunc(ctx, req)
	}
	return &engine.RollOutcome{GameID: req.GameID, UserID: req.PlayerUserID}, nil
}

func (m *MockGameService) UseItem(ctx context.Context, req service.UseItemRequest) (*engine.ItemEffectOutcome, error) {
	if m.UseItemFunc != nil {
		return m.UseItemFunc(ctx, req)
	}
	return &engine.ItemEffectOutcome{GameID: req.GameID, CasterID: req.PlayerUserID}, nil
}

func (m *MockGameService) LeaveGame(ctx context.Context, gameID, userID int64) (*engine.LeaveOutcome, error) {
	if m.LeaveGameFunc != nil {
		return m.LeaveGameFunc(ctx, gameID, userID)
	}
	return &engine.LeaveOutcome{GameID: gameID, UserID: userID}, nil
}

func (m *MockGameService) HandleTurnTimeout(ctx context.Context, gameID int64, seq uint64) (*engine.TimeoutOutcome, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *MockGameService) GetCurrentState(ctx context.Context, gameID int64) (*engine.StateSnapshot, error) {
	if m.GetCurrentStateFunc != nil {
		return m.GetCurrentStateFunc(ctx, gameID)
	}
	return &engine.StateSnapshot{GameID: gameID}, nil
}

func (m *MockGameService) GetBoard(ctx context.Context, gameID int64) (*engine.BoardDefinition, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, gameID)
	}
	return &engine.BoardDefinition{}, nil
}

func (m *MockGameService) ListRulesets(ctx context.Context) ([]*service.RulesetInfo, error) {
	if m.ListRulesetsFunc != nil {
		return m.ListRulesetsFunc(ctx)
	}
	return []*service.RulesetInfo{}, nil
}

func (m *MockGameService) LoadRuleset(ctx context.Context, name string) (*engine.Ruleset, error) {
	if m.LoadRulesetFunc != nil {
		return m.LoadRulesetFunc(ctx, name)
	}
	return engine.DefaultRuleset(), nil
}

func (m *MockGameService) SaveRuleset(ctx context.Context, name string, rules *engine.Ruleset) error {
	if m.SaveRulesetFunc != nil {
		return m.SaveRulesetFunc(ctx, name, rules)
	}
	return nil
}

func (m *MockGameService) PruneGames(ctx context.Context, maxIdle time.Duration) int {
	return 0
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupTestServer(svc service.GameService, opts ...Option) *Server {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewServer(svc, nil, opts...)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"game not found", fmt.Errorf("wrap: %w", service.ErrGameNotFound), http.StatusNotFound},
		{"ruleset not found", config.ErrRulesetNotFound, http.StatusNotFound},
		{"validation", engine.ErrInvalidSlot, http.StatusBadRequest},
		{"invalid ruleset", config.ErrInvalidRuleset, http.StatusBadRequest},
		{"rule", engine.ErrNotYourTurn, http.StatusConflict},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCreateGame(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:        "Create game",
			requestBody: service.CreateBoardRequest{GameID: 9, BoardSize: 100, Difficulty: "normal", PlayerUserIDs: []int64{1, 2}},
			setupMock: func(m *MockGameService) {
				m.CreateGameFunc = func(ctx context.Context, req service.CreateBoardRequest) (*service.GameInfo, error) {
					if req.GameID != 9 || len(req.PlayerUserIDs) != 2 {
						t.Errorf("Unexpected request %+v", req)
					}
					return &service.GameInfo{GameID: 9, Players: req.PlayerUserIDs}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Validation error",
			requestBody: service.CreateBoardRequest{GameID: 9},
			setupMock: func(m *MockGameService) {
				m.CreateGameFunc = func(ctx context.Context, req service.CreateBoardRequest) (*service.GameInfo, error) {
					return nil, engine.ErrNoPlayers
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Service error",
			requestBody: service.CreateBoardRequest{GameID: 9},
			setupMock: func(m *MockGameService) {
				m.CreateGameFunc = func(ctx context.Context, req service.CreateBoardRequest) (*service.GameInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/games", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListGamesSortAndLimit(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListGamesFunc: func(ctx context.Context) ([]*service.GameInfo, error) {
			return []*service.GameInfo{
				{GameID: 1, CreatedAt: now.Add(-time.Minute)},
				{GameID: 2, CreatedAt: now.Add(-time.Hour)},
				{GameID: 3, CreatedAt: now},
			}, nil
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("GET", "/api/games?sort=created&order=desc&limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count int                 `json:"count"`
		Total int                 `json:"total"`
		Games []*service.GameInfo `json:"games"`
	}
	parseResponse(t, w, &resp)

	if resp.Count != 2 || resp.Total != 3 {
		t.Errorf("Expected count 2 of 3, got %d of %d", resp.Count, resp.Total)
	}
	if resp.Games[0].GameID != 3 || resp.Games[1].GameID != 1 {
		t.Errorf("Expected games [3 1], got [%d %d]", resp.Games[0].GameID, resp.Games[1].GameID)
	}
}

func TestGetGame(t *testing.T) {
	mockService := &MockGameService{
		GetGameFunc: func(ctx context.Context, gameID int64) (*service.GameInfo, error) {
			if gameID == 404 {
				return nil, fmt.Errorf("%w: %d", service.ErrGameNotFound, gameID)
			}
			return &service.GameInfo{GameID: gameID}, nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/api/games/5", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/games/404", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/games/abc", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRollDiceUsesPathGameID(t *testing.T) {
	slot := 2
	mockService := &MockGameService{
		RollDiceFunc: func(ctx context.Context, req service.RollDiceRequest) (*engine.RollOutcome, error) {
			if req.GameID != 7 {
				t.Errorf("Expected game 7, got %d", req.GameID)
			}
			if req.DiceSlot == nil || *req.DiceSlot != 2 {
				t.Errorf("Expected dice slot 2, got %v", req.DiceSlot)
			}
			return &engine.RollOutcome{GameID: req.GameID, UserID: req.PlayerUserID, DiceValue: 4, ToCell: 5}, nil
		},
	}

	body := service.RollDiceRequest{GameID: 99, PlayerUserID: 1, DiceSlot: &slot}
	w := serve(setupTestServer(mockService), makeRequest("POST", "/api/games/7/roll", body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var out engine.RollOutcome
	parseResponse(t, w, &out)
	if out.DiceValue != 4 || out.ToCell != 5 {
		t.Errorf("Unexpected outcome %+v", out)
	}
}

func TestRollDiceNotYourTurn(t *testing.T) {
	mockService := &MockGameService{
		RollDiceFunc: func(ctx context.Context, req service.RollDiceRequest) (*engine.RollOutcome, error) {
			return nil, engine.ErrNotYourTurn
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("POST", "/api/games/7/roll", map[string]int{"player_user_id": 2}))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestUseItemAndLeave(t *testing.T) {
	var gotTarget int64
	mockService := &MockGameService{
		UseItemFunc: func(ctx context.Context, req service.UseItemRequest) (*engine.ItemEffectOutcome, error) {
			if req.TargetUserID != nil {
				gotTarget = *req.TargetUserID
			}
			return &engine.ItemEffectOutcome{GameID: req.GameID, ItemCode: "IT_FREEZE"}, nil
		},
		LeaveGameFunc: func(ctx context.Context, gameID, userID int64) (*engine.LeaveOutcome, error) {
			return &engine.LeaveOutcome{GameID: gameID, UserID: userID, RemainingPlayers: []int64{2}}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("POST", "/api/games/3/items", map[string]int64{"player_user_id": 1, "item_slot": 1, "target_user_id": 2}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotTarget != 2 {
		t.Errorf("Expected target 2, got %d", gotTarget)
	}

	w = serve(server, makeRequest("POST", "/api/games/3/leave", map[string]int64{"player_user_id": 1}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var out engine.LeaveOutcome
	parseResponse(t, w, &out)
	if out.UserID != 1 || len(out.RemainingPlayers) != 1 {
		t.Errorf("Unexpected leave outcome %+v", out)
	}
}

func TestRulesetRoutes(t *testing.T) {
	var saved string
	mockService := &MockGameService{
		LoadRulesetFunc: func(ctx context.Context, name string) (*engine.Ruleset, error) {
			if name != "easy" {
				return nil, fmt.Errorf("%w: %s", config.ErrRulesetNotFound, name)
			}
			return &engine.Ruleset{Name: "easy"}, nil
		},
		SaveRulesetFunc: func(ctx context.Context, name string, rules *engine.Ruleset) error {
			saved = name
			return nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/api/rulesets/easy.json", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/rulesets/nope", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := serve(server, makeRequest("POST", "/api/rulesets", map[string]string{"description": "x"})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing name, got %d", w.Code)
	}
	if w := serve(server, makeRequest("POST", "/api/rulesets", map[string]string{"name": "custom"})); w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if saved != "custom" {
		t.Errorf("Expected ruleset 'custom' to be saved, got %q", saved)
	}
}

func TestPlayerRoutesNeedInventory(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("PUT", "/api/players/1/slots", map[string]interface{}{"kind": "item", "slot": 1, "code": "IT_ROCKET"}))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	for _, path := range []string{"/healthz", "/api/health"} {
		if w := serve(server, makeRequest("GET", path, nil)); w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

func TestActionsNotConfigured(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	if w := serve(server, makeRequest("GET", "/api/games/1/actions", nil)); w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", w.Code)
	}
}

func TestWebSocketWithoutHub(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	if w := serve(server, makeRequest("GET", "/ws?game=1", nil)); w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", w.Code)
	}
}

// End-to-end through the real service, session store and memory inventory

func newLiveServer(t *testing.T) (*Server, *memory.Inventory, *memory.Results) {
	t.Helper()
	rulesets, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to load rulesets: %v", err)
	}
	inv := memory.NewInventory()
	results := memory.NewResults()
	journal := memory.NewJournal(0)
	svc := service.NewGameService(session.NewManager(), rulesets,
		service.WithInventory(inv),
		service.WithResultSink(results),
		service.WithJournal(journal),
		service.WithLogger(quietLogger()),
	)
	return setupTestServer(svc, WithInventory(inv), WithWallets(results), WithActions(journal)), inv, results
}

func TestLiveGameFlow(t *testing.T) {
	server, _, _ := newLiveServer(t)
	seed := int64(42)

	create := service.CreateBoardRequest{
		GameID:        11,
		BoardSize:     100,
		Difficulty:    "normal",
		PlayerUserIDs: []int64{1, 2},
		Seed:          &seed,
	}
	w := serve(server, makeRequest("POST", "/api/games", create))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// duplicate id
	if w := serve(server, makeRequest("POST", "/api/games", create)); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate game, got %d", w.Code)
	}

	// player 2 is out of turn
	w = serve(server, makeRequest("POST", "/api/games/11/roll", map[string]int64{"player_user_id": 2}))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(server, makeRequest("POST", "/api/games/11/roll", map[string]int64{"player_user_id": 1}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var roll engine.RollOutcome
	parseResponse(t, w, &roll)
	if roll.DiceValue < 1 || roll.DiceValue > 6 {
		t.Errorf("Expected a d6 roll, got %d", roll.DiceValue)
	}

	w = serve(server, makeRequest("GET", "/api/games/11/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.StateSnapshot
	parseResponse(t, w, &snap)
	if snap.GameID != 11 || len(snap.TurnOrder) != 2 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	if w := serve(server, makeRequest("GET", "/api/games/11/board", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for board, got %d", w.Code)
	}

	w = serve(server, makeRequest("GET", "/api/games/11/actions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for actions, got %d: %s", w.Code, w.Body.String())
	}
	var history struct {
		Count   int                    `json:"count"`
		Actions []service.ActionRecord `json:"actions"`
	}
	parseResponse(t, w, &history)
	if history.Count != 2 || len(history.Actions) != 2 {
		t.Fatalf("Expected create and roll actions, got %+v", history)
	}
	if history.Actions[0].Action != "create" || history.Actions[1].Action != "roll" {
		t.Errorf("Unexpected action order %q, %q", history.Actions[0].Action, history.Actions[1].Action)
	}
	if history.Actions[1].ActorUserID != 1 {
		t.Errorf("Expected roll by player 1, got %d", history.Actions[1].ActorUserID)
	}

	if w := serve(server, makeRequest("GET", "/api/games/11/actions?limit=zero", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad limit, got %d", w.Code)
	}

	// empty slot
	w = serve(server, makeRequest("POST", "/api/games/11/items", map[string]int64{"player_user_id": 1, "item_slot": 1}))
	if w.Code != http.StatusConflict && w.Code != http.StatusOK {
		t.Errorf("Expected 409 or 200 for item use, got %d: %s", w.Code, w.Body.String())
	}

	if w := serve(server, makeRequest("DELETE", "/api/games/11", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for delete, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/games/11", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestLivePlayerInventory(t *testing.T) {
	server, inv, _ := newLiveServer(t)

	w := serve(server, makeRequest("PUT", "/api/players/4/slots", map[string]interface{}{"kind": "item", "slot": 2, "code": "IT_SHIELD"}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	w = serve(server, makeRequest("POST", "/api/players/4/stock", map[string]interface{}{"kind": "item", "code": "IT_SHIELD", "quantity": 3}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := inv.Stock(4, service.EquipmentItem, "IT_SHIELD"); got != 3 {
		t.Errorf("Expected stock 3, got %d", got)
	}

	w = serve(server, makeRequest("PUT", "/api/players/4/slots", map[string]interface{}{"kind": "item", "slot": 9, "code": "IT_SHIELD"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad slot, got %d", w.Code)
	}

	w = serve(server, makeRequest("GET", "/api/players/4/wallet", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var wallet map[string]int64
	parseResponse(t, w, &wallet)
	if wallet["coins"] != 0 {
		t.Errorf("Expected 0 coins, got %d", wallet["coins"])
	}
}
