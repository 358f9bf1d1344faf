// Package app builds the ledger's dependencies from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/events"
	"github.com/mmynk/divvy/internal/events/kafka"
	"github.com/mmynk/divvy/internal/metrics"
	"github.com/mmynk/divvy/internal/receipt"
	"github.com/mmynk/divvy/internal/service"
	"github.com/mmynk/divvy/internal/storage"
	"github.com/mmynk/divvy/internal/storage/bolt"
	"github.com/mmynk/divvy/internal/storage/postgres"
	"github.com/mmynk/divvy/internal/storage/sqlite"
)

// OpenStore opens the record store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		store, err = sqlite.New(cfg.Path)
	case config.DriverBolt:
		store, err = bolt.New(cfg.Path)
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewAnalyzer returns the Gemini analyzer, or receipt.Disabled when no API
// key is configured.
func NewAnalyzer(ctx context.Context, cfg *config.Config) (receipt.Analyzer, error) {
	if cfg.Gemini.APIKey == "" {
		slog.Info("Receipt analysis disabled", "reason", "GEMINI_API_KEY not set")
		return receipt.Disabled{}, nil
	}
	analyzer, err := receipt.NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey,
		receipt.WithModel(cfg.Gemini.Model),
		receipt.WithTimeout(cfg.Gemini.Timeout),
		receipt.WithPartyNames(cfg.Parties.Names()),
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Receipt analysis enabled", "model", cfg.Gemini.Model, "timeout", cfg.Gemini.Timeout)
	return analyzer, nil
}

// NewPublisher returns a Kafka publisher, or events.Nop when no brokers are set.
func NewPublisher(cfg config.KafkaConfig) events.Publisher {
	if len(cfg.Brokers) == 0 {
		return events.Nop{}
	}
	slog.Info("Publishing ledger changes", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return kafka.NewPublisher(cfg.Brokers, cfg.Topic)
}

// Ledger is a fully wired LedgerService plus the resources it owns.
type Ledger struct {
	Service   *service.LedgerService
	Store     storage.Store
	Publisher events.Publisher
}

// NewLedger opens the store and builds the service. m may be nil.
func NewLedger(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Ledger, error) {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	analyzer, err := NewAnalyzer(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	publisher := NewPublisher(cfg.Kafka)

	svc := service.NewLedgerService(store,
		service.WithAnalyzer(analyzer),
		service.WithPublisher(publisher),
		service.WithMetrics(m),
		service.WithParties(cfg.Parties),
	)
	return &Ledger{Service: svc, Store: store, Publisher: publisher}, nil
}

// Close flushes the publisher and closes the store.
func (l *Ledger) Close() error {
	if err := l.Publisher.Close(); err != nil {
		slog.Warn("Failed to close publisher", "error", err)
	}
	return l.Store.Close()
}
