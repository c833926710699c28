package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/config"
	"github.com/capitalize-ai/chatdesk/internal/handler"
	natsclient "github.com/capitalize-ai/chatdesk/internal/nats"
	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// openedStore is a store backend plus what main needs to supervise it.
type openedStore struct {
	store  store.Store
	checks []handler.ReadinessCheck
	close  func()
}

// openStore opens the backend named by cfg.StoreBackend.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*openedStore, error) {
	switch cfg.StoreBackend {
	case store.BackendMemory:
		log.Warn("using in-memory store, history is lost on exit")
		return &openedStore{store: store.NewMemoryStore(), close: func() {}}, nil

	case store.BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			var err error
			if path, err = store.DefaultSQLitePath(); err != nil {
				return nil, fmt.Errorf("failed to resolve database path: %w", err)
			}
		}
		db, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite store", zap.String("path", path))
		return &openedStore{
			store:  db,
			checks: []handler.ReadinessCheck{{Name: "sqlite", Check: db.Ping}},
			close: func() {
				if err := db.Close(); err != nil {
					log.Warn("failed to close database", zap.Error(err))
				}
			},
		}, nil

	case store.BackendNATS:
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		bucket := cfg.NATSKVBucket
		if bucket == "" {
			bucket = natsclient.DefaultBucket
		}
		kv, err := natsclient.EnsureBucket(ctx, client, bucket)
		if err != nil {
			client.Close()
			return nil, err
		}
		log.Info("using NATS key-value store", zap.String("bucket", bucket))
		return &openedStore{
			store:  kv,
			checks: []handler.ReadinessCheck{{Name: "nats", Check: client.Check}},
			close:  client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
