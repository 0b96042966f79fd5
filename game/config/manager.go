package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
	"github.com/wricardo/mcp-training/laddergame/game/service"
)

var (
	ErrRulesetNotFound    = errors.New("ruleset not found")
	ErrInvalidRuleset     = errors.New("invalid ruleset")
	ErrInvalidRulesetName = errors.New("invalid ruleset name")
)

// DefaultRulesetName is the file loaded as default when present
const DefaultRulesetName = "classic"

// Manager handles ruleset loading and caching
type Manager struct {
	configDir      string
	defaultRuleset *engine.Ruleset
	rulesets       map[string]*engine.Ruleset
	mu             sync.RWMutex
}

// NewManager creates a new ruleset manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		rulesets:  make(map[string]*engine.Ruleset),
	}

	m.defaultRuleset = m.resolveDefault()
	return m, nil
}

// LoadRuleset loads a ruleset by name
func (m *Manager) LoadRuleset(name string) (*engine.Ruleset, error) {
	name = strings.TrimSuffix(name, ".json")
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if rules, exists := m.rulesets[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if rules, exists := m.rulesets[name]; exists {
		return rules, nil
	}

	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRulesetNotFound, name)
		}
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}

	rules, err := engine.ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleset, err)
	}
	if rules.Name == "" {
		rules.Name = name
	}

	m.rulesets[name] = rules
	return rules, nil
}

// ListRulesets returns information about all valid ruleset files
func (m *Manager) ListRulesets() ([]*service.RulesetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var rulesets []*service.RulesetInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")

		rules, err := m.LoadRuleset(name)
		if err != nil {
			// Skip invalid rulesets
			continue
		}

		rulesets = append(rulesets, &service.RulesetInfo{
			Filename:     entry.Name(),
			RulesetID:    name,
			Name:         rules.Name,
			Description:  rules.Description,
			MinBoardSize: rules.MinBoardSize,
			MaxBoardSize: rules.MaxBoardSize,
			Difficulties: difficulties(rules),
		})
	}

	return rulesets, nil
}

// GetDefault returns the default ruleset
func (m *Manager) GetDefault() *engine.Ruleset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultRuleset
}

// SetDefault sets the default ruleset by name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadRuleset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultRuleset = rules
	return nil
}

// RefreshCache drops cached rulesets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.rulesets = make(map[string]*engine.Ruleset)
	m.mu.Unlock()

	// LoadRuleset takes the lock itself
	rules := m.resolveDefault()

	m.mu.Lock()
	m.defaultRuleset = rules
	m.mu.Unlock()
	return nil
}

// SaveRuleset validates a ruleset and writes it to disk
func (m *Manager) SaveRuleset(name string, rules *engine.Ruleset) error {
	name = strings.TrimSuffix(name, ".json")
	if err := checkName(name); err != nil {
		return err
	}
	if err := engine.ValidateRuleset(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleset, err)
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ruleset: %w", err)
	}

	if err := os.WriteFile(m.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write ruleset file: %w", err)
	}

	m.mu.Lock()
	m.rulesets[name] = rules
	m.mu.Unlock()

	return nil
}

// resolveDefault picks classic.json, then the first valid file, then the
// built-in ruleset
func (m *Manager) resolveDefault() *engine.Ruleset {
	if rules, err := m.LoadRuleset(DefaultRulesetName); err == nil {
		return rules
	}

	infos, err := m.ListRulesets()
	if err == nil && len(infos) > 0 {
		if rules, err := m.LoadRuleset(infos[0].RulesetID); err == nil {
			return rules
		}
	}

	return engine.DefaultRuleset()
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.configDir, name+".json")
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidRulesetName, name)
	}
	return nil
}

func difficulties(rules *engine.Ruleset) []string {
	names := make([]string, 0, len(rules.Difficulties))
	for name := range rules.Difficulties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of cached rulesets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rulesets)
}
