package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

const resultFilePrefix = "game-"

// FileArchive implements ResultArchive using one JSON file per game. It is
// also a service.ResultSink.
type FileArchive struct {
	resultsDir string
}

// NewFileArchive creates a file-based result archive
func NewFileArchive(resultsDir string) (*FileArchive, error) {
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &FileArchive{resultsDir: resultsDir}, nil
}

// FinalizeGame implements service.ResultSink
func (fa *FileArchive) FinalizeGame(ctx context.Context, result service.GameResult) error {
	return fa.Save(result)
}

// Save writes a result to its JSON file
func (fa *FileArchive) Save(result service.GameResult) error {
	if result.GameID <= 0 {
		return ErrInvalidGameID
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game result: %w", err)
	}

	// Write to a temp file first so readers never see a partial result
	filePath := fa.getFilePath(result.GameID)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}

	return nil
}

// Load reads the result of a game
func (fa *FileArchive) Load(gameID int64) (*service.GameResult, error) {
	jsonData, err := os.ReadFile(fa.getFilePath(gameID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result service.GameResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game result: %w", err)
	}
	return &result, nil
}

// Delete removes a result file
func (fa *FileArchive) Delete(gameID int64) error {
	if !fa.Exists(gameID) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fa.getFilePath(gameID)); err != nil {
		return fmt.Errorf("failed to remove result file: %w", err)
	}

	return nil
}

// ListAll returns the ids of all archived games in ascending order
func (fa *FileArchive) ListAll() ([]int64, error) {
	entries, err := os.ReadDir(fa.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var ids []int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, resultFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, resultFilePrefix), ".json"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Exists checks if a result file exists
func (fa *FileArchive) Exists(gameID int64) bool {
	_, err := os.Stat(fa.getFilePath(gameID))
	return err == nil
}

func (fa *FileArchive) getFilePath(gameID int64) string {
	return filepath.Join(fa.resultsDir, fmt.Sprintf("%s%d.json", resultFilePrefix, gameID))
}
