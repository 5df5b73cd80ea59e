package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/foliocms/folio/core/config"
	"github.com/foliocms/folio/core/history"
	"github.com/foliocms/folio/core/locks"
	"github.com/foliocms/folio/core/pool"
	"github.com/foliocms/folio/core/releases"
	"github.com/foliocms/folio/core/search"
	"github.com/foliocms/folio/core/store"
	"github.com/foliocms/folio/core/versioning"
)

// app wires the core services from configuration for one CLI invocation.
type app struct {
	cfg      *config.Config
	docs     store.DocumentStore
	cache    *store.VersionCache
	versions *versioning.Store
	locks    *locks.Resolver
	history  *history.Service
	releases *releases.Manager
	index    *search.Index
	logger   *slog.Logger
}

func newApp(ctx context.Context) (*app, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Config()

	logger := newLogger(cfg.Logging.Level)

	docs, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := store.NewVersionCache(store.VersionCacheConfig{MaxCost: cfg.Cache.VersionMaxCost})
	if err != nil {
		docs.Close()
		return nil, err
	}

	index, err := search.Open(cfg.Search.Path)
	if err != nil {
		cache.Close()
		docs.Close()
		return nil, err
	}

	versions := versioning.NewStore(docs,
		versioning.WithCache(cache),
		versioning.WithRetryPolicy(&cfg.Versioning.Retry),
		versioning.WithLogger(logger),
	)

	hierarchy := store.NewHierarchy(docs)
	resolver := locks.NewResolver(hierarchy, hierarchy)

	actors, err := history.NewCachedActorDirectory(
		history.ActorDirectoryFunc(func(ctx context.Context, actorID string) (string, error) {
			return actorID, nil
		}),
		cfg.Cache.ActorNames,
	)
	if err != nil {
		index.Close()
		cache.Close()
		docs.Close()
		return nil, err
	}

	historySvc := history.NewService(docs, versions, resolver,
		history.WithActorDirectory(actors),
		history.WithIndexer(index),
		history.WithLogger(logger),
	)

	releaseMgr := releases.NewManager(docs, versions,
		releases.WithPool(pool.New(cfg.Batch.Workers)),
		releases.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		docs:     docs,
		cache:    cache,
		versions: versions,
		locks:    resolver,
		history:  historySvc,
		releases: releaseMgr,
		index:    index,
		logger:   logger,
	}, nil
}

func (a *app) Close() {
	a.index.Close()
	a.cache.Close()
	a.docs.Close()
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite", "":
		sqliteCfg := store.DefaultSQLiteConfig(cfg.Storage.Path)
		if cfg.Storage.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.Storage.BusyTimeout
		}
		if cfg.Storage.MaxOpen > 0 {
			sqliteCfg.MaxOpen = cfg.Storage.MaxOpen
		}
		if cfg.Storage.MaxIdle > 0 {
			sqliteCfg.MaxIdle = cfg.Storage.MaxIdle
		}
		return store.OpenSQLite(ctx, sqliteCfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
