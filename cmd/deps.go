package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/ingest"
	"github.com/sells-group/permit-scout/internal/source"
	"github.com/sells-group/permit-scout/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "permit-scout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTP(fetcher.HTTPOptions{
		Timeout:           time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.Fetch.MaxRetries,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	})
}

func newRunner(st store.Store) *ingest.Runner {
	return ingest.New(st, newFetcher(), source.NewRegistry(), cfg)
}
