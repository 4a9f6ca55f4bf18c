package main

import (
	"context"
	"fmt"
	"path/filepath"

	"healthtrack/internal/adapter/local"
	"healthtrack/internal/adapter/memory"
	"healthtrack/internal/adapter/postgres"
	"healthtrack/internal/adapter/s3kv"
	"healthtrack/internal/config"
	"healthtrack/internal/domain"
)

// backend bundles the repositories selected by config.
type backend struct {
	records  domain.RecordStore
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	if cfg.Store == config.StorePostgres {
		db, err := postgres.Open(cfg.DatabaseURL, postgres.WithTimeout(cfg.StoreTimeout))
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		return &backend{records: db, users: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil
	}

	if cfg.Store == config.StoreMemory {
		db := memory.New()
		return &backend{records: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	}

	// The KV stores keep accounts next to the records they own.
	b := &backend{close: func() error { return nil }}
	var kv local.KV
	switch cfg.Store {
	case config.StoreFile:
		fkv, err := local.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		kv = fkv
	case config.StoreSQLite:
		path := ""
		if cfg.DataDir != "" {
			path = filepath.Join(cfg.DataDir, "healthtrack.db")
		}
		skv, err := local.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		kv = skv
		b.close = skv.Close
	case config.StoreS3:
		bucket, err := s3kv.New(ctx, s3kv.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
			Timeout:   cfg.StoreTimeout,
		})
		if err != nil {
			return nil, err
		}
		kv = bucket
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	accounts := local.NewAccounts(kv)
	b.records = local.New(kv)
	b.users = accounts
	b.sessions = accounts.Sessions()
	return b, nil
}
