// Package config provides ruleset management for the ladder game.
//
// The config package handles:
//   - Loading rulesets from JSON files
//   - Ruleset validation before use or save
//   - Default ruleset management
//   - Ruleset discovery and listing
//
// Ruleset Format:
//
// Rulesets are stored as JSON files in the configs directory. Each ruleset
// defines the item and dice catalogs, the difficulty profiles used by the
// board generator, the kick threshold and turn duration, the bonus grant pool,
// rewards and player-facing messages. See engine.Ruleset for the fields.
//
// Available Rulesets:
//   - classic: balanced catalog, 30 second turns
//   - easy: gentle profiles and longer turns
//   - hard: more snakes and traps, short turns
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadRuleset("hard")
//	defaultRules := manager.GetDefault()
//	infos, err := manager.ListRulesets()
//
// When the directory holds no classic.json the first valid file becomes the
// default, and without any valid file the built-in engine.DefaultRuleset is
// used.
package config
