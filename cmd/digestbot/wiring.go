package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"digestbot/common"
	"digestbot/config"
	"digestbot/definition"
	"digestbot/digest"
	"digestbot/library"
	"digestbot/llm"
)

const lockPrefix = "digest:lock:"

// app holds the long-lived collaborators shared by the subcommands.
type app struct {
	store    *library.SQLite
	locker   *common.RedisLock
	pipeline *digest.Pipeline
}

func (a *app) Close() {
	if a.locker != nil {
		_ = a.locker.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// openStore opens the library database, running migrations.
func openStore(cfg *config.Config) (*library.SQLite, error) {
	store, err := library.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", cfg.DatabasePath, err)
	}
	return store, nil
}

// newApp wires the digest pipeline. The Redis lock is only used when an
// address is configured.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	s3Client, err := common.NewS3(ctx, common.S3Config{
		Region:       cfg.S3.Region,
		Profile:      cfg.S3.Profile,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init s3: %w", err)
	}
	if cfg.S3.Bucket == "" {
		logger.Warn("S3_BUCKET not set; every run will skip with an absent definition")
	}

	completer, err := llm.New(cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init llm: %w", err)
	}

	deps := digest.Deps{
		Definitions: definition.NewLoader(s3Client, cfg.S3.Bucket, cfg.S3.DefinitionKey, logger),
		Searcher:    store,
		Saver:       store,
		Completer:   completer,
		Logger:      logger,
	}

	if cfg.Redis.Addr != "" {
		locker, err := common.NewRedisLock(common.RedisLockConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   lockPrefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.locker = locker
		deps.Locker = locker
	} else {
		logger.Info("REDIS_ADDR not set; running without per-user locks")
	}

	pipeline, err := digest.New(cfg.Pipeline(), deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init digest pipeline: %w", err)
	}
	a.pipeline = pipeline
	return a, nil
}
