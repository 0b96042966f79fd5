package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/config"
	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
	"github.com/wricardo/mcp-training/laddergame/transport/websocket"
)

const (
	defaultActionLimit = 100
	maxActionLimit     = 1000
)

// Server represents the REST API server
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	inventory service.InventoryManager
	wallets   service.Wallets
	actions   service.ActionReader
	router    *mux.Router
	log       logrus.FieldLogger
}

// Option configures optional server collaborators
type Option func(*Server)

// WithInventory enables the player slot and stock routes
func WithInventory(inv service.InventoryManager) Option {
	return func(s *Server) { s.inventory = inv }
}

// WithWallets enables the wallet route
func WithWallets(w service.Wallets) Option {
	return func(s *Server) { s.wallets = w }
}

// WithActions enables the action history route
func WithActions(reader service.ActionReader) Option {
	return func(s *Server) { s.actions = reader }
}

// WithLogger sets the request logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Games
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleDeleteGame).Methods("DELETE")

	// Player actions
	api.HandleFunc("/games/{id}/roll", s.handleRollDice).Methods("POST")
	api.HandleFunc("/games/{id}/items", s.handleUseItem).Methods("POST")
	api.HandleFunc("/games/{id}/leave", s.handleLeaveGame).Methods("POST")

	// Game state
	api.HandleFunc("/games/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/games/{id}/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/games/{id}/actions", s.handleGetActions).Methods("GET")

	// Rulesets
	api.HandleFunc("/rulesets", s.handleListRulesets).Methods("GET")
	api.HandleFunc("/rulesets", s.handleSaveRuleset).Methods("POST")
	api.HandleFunc("/rulesets/{name}", s.handleGetRuleset).Methods("GET")

	// Player inventory and wallet
	api.HandleFunc("/players/{id}/slots", s.handleEquip).Methods("PUT")
	api.HandleFunc("/players/{id}/stock", s.handleAddStock).Methods("POST")
	api.HandleFunc("/players/{id}/wallet", s.handleWallet).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrader needs the raw writer
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, config.ErrRulesetNotFound):
		return http.StatusNotFound
	case engine.IsValidation(err),
		errors.Is(err, config.ErrInvalidRuleset),
		errors.Is(err, config.ErrInvalidRulesetName):
		return http.StatusBadRequest
	case engine.IsRule(err), errors.Is(err, service.ErrGameExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func parseID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, into interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBoardRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateGame(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "id" (default), "created", "accessed"
	order := query.Get("order") // "asc" (default), "desc"

	if sortBy == "" {
		sortBy = "id"
	}
	if order == "" {
		order = "asc"
	}

	sort.SliceStable(games, func(i, j int) bool {
		if order == "desc" {
			i, j = j, i
		}
		switch sortBy {
		case "created":
			return games[i].CreatedAt.Before(games[j].CreatedAt)
		case "accessed":
			return games[i].LastAccessedAt.Before(games[j].LastAccessedAt)
		default:
			return games[i].GameID < games[j].GameID
		}
	})

	total := len(games)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(games) {
		games = games[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"total": total,
		"games": games,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.DeleteGame(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Game %d deleted", gameID),
	})
}

// Player Action Handlers

func (s *Server) handleRollDice(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req service.RollDiceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.GameID = gameID

	out, err := s.service.RollDice(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUseItem(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req service.UseItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.GameID = gameID

	out, err := s.service.UseItem(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaveGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PlayerUserID int64 `json:"player_user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.service.LeaveGame(r.Context(), gameID, req.PlayerUserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

// Game State Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.service.GetCurrentState(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	board, err := s.service.GetBoard(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleGetActions(w http.ResponseWriter, r *http.Request) {
	if s.actions == nil {
		respondError(w, http.StatusNotImplemented, "action history is not configured")
		return
	}
	gameID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultActionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxActionLimit {
			limit = maxActionLimit
		}
	}

	recs, err := s.actions.Actions(r.Context(), gameID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []service.ActionRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id": gameID,
		"count":   len(recs),
		"actions": recs,
	})
}

// Ruleset Handlers

func (s *Server) handleListRulesets(w http.ResponseWriter, r *http.Request) {
	rulesets, err := s.service.ListRulesets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rulesets)
}

func (s *Server) handleGetRuleset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	rules, err := s.service.LoadRuleset(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleSaveRuleset(w http.ResponseWriter, r *http.Request) {
	var rules engine.Ruleset
	if err := decodeBody(r, &rules); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if rules.Name == "" {
		respondError(w, http.StatusBadRequest, "Ruleset name is required")
		return
	}

	if err := s.service.SaveRuleset(r.Context(), rules.Name, &rules); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Ruleset saved successfully",
		"ruleset_id": rules.Name,
	})
}

// Player Handlers

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil {
		respondError(w, http.StatusNotImplemented, "inventory is not configured")
		return
	}
	userID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Kind service.EquipmentKind `json:"kind"`
		Slot int                   `json:"slot"`
		Code string                `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.inventory.Equip(r.Context(), userID, req.Kind, req.Slot, req.Code); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"kind":    req.Kind,
		"slot":    req.Slot,
		"code":    req.Code,
	})
}

func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil {
		respondError(w, http.StatusNotImplemented, "inventory is not configured")
		return
	}
	userID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Kind     service.EquipmentKind `json:"kind"`
		Code     string                `json:"code"`
		Quantity int                   `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.inventory.AddStock(r.Context(), userID, req.Kind, req.Code, req.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  userID,
		"kind":     req.Kind,
		"code":     req.Code,
		"quantity": req.Quantity,
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if s.wallets == nil {
		respondError(w, http.StatusNotImplemented, "wallets are not configured")
		return
	}
	userID, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	coins, err := s.wallets.Balance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"user_id": userID,
		"coins":   int64(coins),
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket is not enabled", http.StatusNotImplemented)
		return
	}

	gameID, err := strconv.ParseInt(r.URL.Query().Get("game"), 10, 64)
	if err != nil || gameID <= 0 {
		http.Error(w, "game parameter required", http.StatusBadRequest)
		return
	}

	snap, err := s.service.GetCurrentState(r.Context(), gameID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	s.hub.ServeWS(w, r, gameID, snap)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
