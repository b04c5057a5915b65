package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/example/chirpolly/internal/config"
	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/database"
	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/internal/review"
	"github.com/example/chirpolly/internal/snapshot"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
)

// app holds the wired storage and services shared by every command.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	db      *sqlx.DB
	redis   *goredis.Client
	catalog *content.Catalog
	users   *database.UserRepository
	review  *review.Service
}

func openApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	dsn := cfg.DBPath
	if cfg.DBType == "postgres" {
		dsn = cfg.DatabaseURL
	}
	db, err := database.Connect(ctx, cfg.DBType, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &app{cfg: cfg, log: log, db: db, users: database.NewUserRepository(db)}

	a.catalog, err = content.Load(cfg.ContentPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("content catalog not found, starting with no lesson units", "path", cfg.ContentPath)
		a.catalog, err = content.New(), nil
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	var store snapshot.Store
	if cfg.RedisAddr != "" {
		a.redis, err = snapshot.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = snapshot.NewRedisStore(a.redis, 0)
		log.Info("mirroring snapshots to redis", "addr", cfg.RedisAddr)
	} else if cfg.SnapshotDir != "" {
		fileStore, err := snapshot.NewFileStore(cfg.SnapshotDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = fileStore
	}

	sm, err := srs.NewSM2(cfg.SRS)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.review, err = review.New(review.Deps{
		Scheduler:  sm,
		Vocabulary: database.NewVocabularyRepository(db),
		History:    database.NewReviewLogRepository(db),
		Units:      database.NewUnitRepository(db),
		Catalog:    a.catalog,
		Snapshots:  store,
		Log:        log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
}
