package session

import (
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

// ResultArchive stores the final results of finished games
type ResultArchive interface {
	// Save persists a result, replacing any earlier one for the same game
	Save(result service.GameResult) error

	// Load retrieves the result of a game
	Load(gameID int64) (*service.GameResult, error)

	// Delete removes a stored result
	Delete(gameID int64) error

	// ListAll returns the ids of all archived games
	ListAll() ([]int64, error)

	// Exists checks if a result is stored for a game
	Exists(gameID int64) bool
}
