package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reconcile-cli/internal/collect"
	"github.com/sells-group/reconcile-cli/internal/config"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
	"github.com/sells-group/reconcile-cli/internal/resilience"
	"github.com/sells-group/reconcile-cli/internal/store"
	"github.com/sells-group/reconcile-cli/pkg/banking"
)

const defaultSQLitePath = "reconcile.db"

func initStore(ctx context.Context) (store.Store, error) {
	reg := model.DefaultRegistry()
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn, store.WithColumns(reg))
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}, store.WithColumns(reg))
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newCollector wires the collector to the store, reading bank statement
// fields from the parsing service when configured.
func newCollector(st store.Store) *collect.Collector {
	src := collect.Sources{
		Applications: st,
		Banking:      st,
		Client:       st,
		OCR:          st,
	}
	if cfg.Banking.Provider == "api" {
		client := banking.NewClient(cfg.Banking.BaseURL,
			banking.WithAPIKey(cfg.Banking.APIKey),
			banking.WithRateLimit(cfg.Banking.RateLimit),
		)
		src.Banking = collect.NewBankingAPI(client, model.DefaultRegistry())
	}
	return collect.New(src, collect.Config{
		SourceTimeout: time.Duration(cfg.Collector.SourceTimeoutMs) * time.Millisecond,
		Retry:         resilience.FromConfig(cfg.Collector.RetryAttempts, cfg.Collector.RetryBackoffMs),
	})
}

func newScorer() *ocrinsight.WeightScorer {
	weights := cfg.OCR.LabelWeights
	if len(weights) == 0 {
		weights = nil
	}
	return ocrinsight.NewWeightScorer(weights, cfg.OCR.DefaultWeight)
}

func emptyOnMissing() bool {
	return cfg.Conflicts.MissingApplication == config.MissingEmpty
}

// validate checks the loaded config for a command mode.
func validate(mode string) error {
	if cfg == nil {
		return eris.New("config not loaded")
	}
	return cfg.Validate(mode)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}
