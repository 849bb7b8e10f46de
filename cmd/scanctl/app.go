package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mxscan/scankit/cache"
	"github.com/mxscan/scankit/config"
	"github.com/mxscan/scankit/gateway"
	"github.com/mxscan/scankit/history"
	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/outbox"
	"github.com/mxscan/scankit/photo"
	"github.com/mxscan/scankit/store"
)

// app wires the client components from configuration. One app lives for
// the duration of one command.
type app struct {
	cfg     config.Config
	log     logger.Logger
	store   store.Store
	cache   *cache.PlaceCache
	outbox  *outbox.Outbox
	gateway *gateway.Gateway
	journal *history.Journal
	photos  *photo.Pipeline
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if badgeFlag != "" {
		cfg.Badge = badgeFlag
	}

	var log logger.Logger
	if cfg.LogFormat == "json" {
		log = logger.NewJSONLogger()
	} else {
		log = logger.NewConsoleLogger()
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	cacheOpts := []cache.Option{cache.WithTTL(cfg.CacheTTLDuration())}
	if cfg.CacheCapacity > 0 {
		cacheOpts = append(cacheOpts, cache.WithCapacity(cfg.CacheCapacity))
	}
	pc := cache.New(ctx, st, log, cacheOpts...)
	box := outbox.New(st, log)
	gw := gateway.New(log, cfg.BaseURL, pc, box)

	photoOpts := []photo.Option{}
	if cfg.PhotoBudget > 0 {
		photoOpts = append(photoOpts, photo.WithBudget(cfg.PhotoBudget))
	}
	if cfg.PhotoMaxDimension > 0 {
		photoOpts = append(photoOpts, photo.WithMaxDimension(cfg.PhotoMaxDimension))
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		cache:   pc,
		outbox:  box,
		gateway: gw,
		journal: history.New(st, log),
		photos:  photo.New(log, photoOpts...),
	}, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFile(cfg.StorePath)
	case "sqlite":
		return store.NewSQLite(cfg.StorePath)
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing redis address %q", cfg.RedisAddr)
		}
		return store.NewRedis(redis.NewClient(opts), store.WithPrefix("scankit")), nil
	}
	return nil, errors.Newf("unknown store backend %q", cfg.Store)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store: %s", err)
	}
}
