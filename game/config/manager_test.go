package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/laddergame/game/engine"
)

func createValidRuleset(name string) *engine.Ruleset {
	rules := engine.DefaultRuleset()
	rules.Name = name
	rules.Description = "Test ruleset"
	return rules
}

func writeRulesetFile(t *testing.T, dir, name string, rules *engine.Ruleset) {
	t.Helper()
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal ruleset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write ruleset file: %v", err)
	}
}

func writeRawFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic is the default", func(t *testing.T) {
		dir := t.TempDir()
		writeRulesetFile(t, dir, "classic", createValidRuleset("Classic"))
		writeRulesetFile(t, dir, "alpha", createValidRuleset("Alpha"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected default Classic, got %s", got)
		}
	})

	t.Run("first valid file without classic", func(t *testing.T) {
		dir := t.TempDir()
		writeRawFile(t, dir, "aaa.json", "{not json")
		writeRulesetFile(t, dir, "beta", createValidRuleset("Beta"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Beta" {
			t.Errorf("Expected default Beta, got %s", got)
		}
	})

	t.Run("built-in fallback", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without ruleset files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Name != engine.DefaultRuleset().Name {
			t.Errorf("Expected built-in default ruleset, got %+v", def)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})
}

func TestManager_LoadRuleset(t *testing.T) {
	dir := t.TempDir()
	writeRulesetFile(t, dir, "easy", createValidRuleset("Easy"))

	invalid := createValidRuleset("Broken")
	invalid.KickThreshold = 0
	writeRulesetFile(t, dir, "broken", invalid)
	writeRawFile(t, dir, "malformed.json", "{")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing ruleset", func(t *testing.T) {
		rules, err := manager.LoadRuleset("easy")
		if err != nil {
			t.Fatalf("Failed to load ruleset: %v", err)
		}
		if rules.Name != "Easy" {
			t.Errorf("Expected name Easy, got %s", rules.Name)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		if _, err := manager.LoadRuleset("easy.json"); err != nil {
			t.Errorf("Failed to load ruleset with extension: %v", err)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadRuleset("easy")
		second, _ := manager.LoadRuleset("easy")
		if first != second {
			t.Error("Expected cached ruleset to be returned")
		}
	})

	tests := []struct {
		name    string
		ruleset string
		wantErr error
	}{
		{"non-existent", "missing", ErrRulesetNotFound},
		{"invalid", "broken", ErrInvalidRuleset},
		{"malformed JSON", "malformed", ErrInvalidRuleset},
		{"path traversal", "../secret", ErrInvalidRulesetName},
		{"empty name", "", ErrInvalidRulesetName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.LoadRuleset(tt.ruleset)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestManager_ListRulesets(t *testing.T) {
	dir := t.TempDir()
	writeRulesetFile(t, dir, "classic", createValidRuleset("Classic"))
	writeRulesetFile(t, dir, "hard", createValidRuleset("Hard"))
	writeRawFile(t, dir, "broken.json", "[]")
	writeRawFile(t, dir, "README.md", "not a ruleset")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	infos, err := manager.ListRulesets()
	if err != nil {
		t.Fatalf("Failed to list rulesets: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 rulesets, got %d", len(infos))
	}

	found := map[string]bool{}
	for _, info := range infos {
		found[info.RulesetID] = true
		if len(info.Difficulties) != 3 {
			t.Errorf("Expected 3 difficulties for %s, got %v", info.RulesetID, info.Difficulties)
		}
	}
	if !found["classic"] || !found["hard"] {
		t.Errorf("Expected classic and hard, got %v", found)
	}
}

func TestManager_SaveRuleset(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("save and reload", func(t *testing.T) {
		if err := manager.SaveRuleset("custom", createValidRuleset("Custom")); err != nil {
			t.Fatalf("Failed to save ruleset: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "custom.json")); err != nil {
			t.Errorf("Expected custom.json on disk: %v", err)
		}

		if err := manager.RefreshCache(); err != nil {
			t.Fatalf("Failed to refresh cache: %v", err)
		}
		rules, err := manager.LoadRuleset("custom")
		if err != nil {
			t.Fatalf("Failed to reload ruleset: %v", err)
		}
		if rules.Name != "Custom" {
			t.Errorf("Expected name Custom, got %s", rules.Name)
		}
	})

	t.Run("rejects invalid ruleset", func(t *testing.T) {
		bad := createValidRuleset("Bad")
		bad.DefaultDice = "DC_MISSING"
		if err := manager.SaveRuleset("bad", bad); !errors.Is(err, ErrInvalidRuleset) {
			t.Errorf("Expected ErrInvalidRuleset, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Invalid ruleset should not be written")
		}
	})

	t.Run("rejects bad name", func(t *testing.T) {
		if err := manager.SaveRuleset("a/b", createValidRuleset("X")); !errors.Is(err, ErrInvalidRulesetName) {
			t.Errorf("Expected ErrInvalidRulesetName, got %v", err)
		}
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeRulesetFile(t, dir, "classic", createValidRuleset("Classic"))
	writeRulesetFile(t, dir, "hard", createValidRuleset("Hard"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("hard"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if got := manager.GetDefault().Name; got != "Hard" {
		t.Errorf("Expected default Hard, got %s", got)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrRulesetNotFound) {
		t.Errorf("Expected ErrRulesetNotFound, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeRulesetFile(t, dir, "classic", createValidRuleset("Classic"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	writeRulesetFile(t, dir, "classic", createValidRuleset("Classic v2"))
	if got := manager.GetDefault().Name; got != "Classic" {
		t.Errorf("Expected cached default before refresh, got %s", got)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	if got := manager.GetDefault().Name; got != "Classic v2" {
		t.Errorf("Expected reloaded default, got %s", got)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		writeRulesetFile(t, dir, fmt.Sprintf("ruleset%d", i), createValidRuleset(fmt.Sprintf("Ruleset%d", i)))
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadRuleset(fmt.Sprintf("ruleset%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() < 5 {
		t.Errorf("Expected at least 5 rulesets in cache, got %d", manager.Count())
	}
}
