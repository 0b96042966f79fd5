package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// Results stores final results and credits coins to player wallets. A game
// is credited once even if FinalizeGame is called again.
type Results struct {
	mu      sync.RWMutex
	results map[int64]service.GameResult
	wallets map[int64]int
}

// NewResults creates an empty result store
func NewResults() *Results {
	return &Results{
		results: make(map[int64]service.GameResult),
		wallets: make(map[int64]int),
	}
}

// FinalizeGame implements service.ResultSink
func (r *Results) FinalizeGame(ctx context.Context, result service.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[result.GameID]; exists {
		return nil
	}
	r.results[result.GameID] = result
	for userID, coins := range result.Coins {
		r.wallets[userID] += coins
	}
	return nil
}

// Result returns the stored result of a game
func (r *Results) Result(gameID int64) (service.GameResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[gameID]
	return result, ok
}

// Balance returns the coins credited to a player
func (r *Results) Balance(ctx context.Context, userID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wallets[userID], nil
}

// GameIDs returns the ids of all finished games in ascending order
func (r *Results) GameIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.results))
	for id := range r.results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var (
	_ service.ResultSink = (*Results)(nil)
	_ service.Wallets    = (*Results)(nil)
)
