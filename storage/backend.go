// Package storage selects and opens the collaborators the game service
// persists through: player inventories, result wallets, the action journal
// and an optional cross-process event publisher.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/service"
	"github.com/wricardo/mcp-training/laddergame/storage/memory"
	"github.com/wricardo/mcp-training/laddergame/storage/postgres"
	"github.com/wricardo/mcp-training/laddergame/storage/redis"
	"github.com/wricardo/mcp-training/laddergame/storage/sqlite"
)

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the storage backend. Every field can be set from the
// environment.
type Config struct {
	Driver       string `env:"LADDERGAME_STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath   string `env:"LADDERGAME_SQLITE_PATH" envDefault:"laddergame.db"`
	PostgresDSN  string `env:"LADDERGAME_POSTGRES_DSN"`
	RedisAddr    string `env:"LADDERGAME_REDIS_ADDR"`
	RedisPrefix  string `env:"LADDERGAME_REDIS_PREFIX" envDefault:"laddergame"`
	JournalLimit int    `env:"LADDERGAME_JOURNAL_LIMIT" envDefault:"500"`
}

// ConfigFromEnv loads a Config from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	return cfg, cfg.Validate()
}

// Validate checks that the selected driver has what it needs.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite driver requires LADDERGAME_SQLITE_PATH")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres driver requires LADDERGAME_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}

// Backend bundles the opened collaborators. Publisher is nil unless redis is
// configured.
type Backend struct {
	Driver    string
	Inventory service.InventoryManager
	Results   service.ResultSink
	Wallets   service.Wallets
	Journal   service.ActionJournal
	Actions   service.ActionReader
	Publisher service.Notifier

	closers []func() error
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens the backend selected by cfg. When redis is configured it takes
// over the action journal and publishes events.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Backend, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{Driver: cfg.Driver}

	switch cfg.Driver {
	case DriverMemory:
		results := memory.NewResults()
		b.Inventory = memory.NewInventory()
		b.Results = results
		b.Wallets = results
		journal := memory.NewJournal(cfg.JournalLimit)
		b.Journal, b.Actions = journal, journal

	case DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.Inventory, b.Results, b.Wallets = store, store, store
		b.Journal, b.Actions = store, store

	case DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.Inventory, b.Results, b.Wallets = store, store, store
		b.Journal, b.Actions = store, store
	}

	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		journal := redis.NewJournal(client, cfg.RedisPrefix)
		b.Journal, b.Actions = journal, journal
		b.Publisher = redis.NewPublisher(client, cfg.RedisPrefix, log)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"redis":  cfg.RedisAddr != "",
	}).Info("storage backend opened")
	return b, nil
}
