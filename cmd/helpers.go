package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/embedder"
	"github.com/leelesemann-sys/vergabe-radar/internal/fetcher"
	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
	"github.com/leelesemann-sys/vergabe-radar/internal/source"
)

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is not configured")
	}
	return db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
}

func buildSource() (source.Source, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Source.UserAgent,
		Timeout:      time.Duration(cfg.Source.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Source.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	reg := source.NewRegistry(source.ProviderOptions{
		BaseURL: cfg.Source.BaseURL,
		Fetcher: f,
	})
	return reg.Get(cfg.Source.Provider)
}

func buildEmbedder(pool db.Pool) (*embedder.Embedder, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, eris.New("embedding.api_key is not configured")
	}
	return embedder.New(cfg.Embedding, pool), nil
}

func buildIndexer(pool db.Pool) (*indexer.Indexer, error) {
	return indexer.New(cfg.Index, cfg.Embedding.Dimensions, pool)
}
