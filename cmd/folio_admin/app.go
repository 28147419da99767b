package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/folio-admin/internal/config"
	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/jonathan/folio-admin/internal/publish"
	"github.com/jonathan/folio-admin/internal/storage"
	"github.com/jonathan/folio-admin/internal/store"
	log "github.com/sirupsen/logrus"
)

// resolveConfig merges CLI flags over the environment over the config file
// over the built-in defaults.
func resolveConfig() (config.Config, error) {
	flags := config.Config{
		App:        appArg,
		Storage:    storageArg,
		SQLitePath: sqlitePath,
	}

	env, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	cfg := flags.MergeWithDefaults(env)

	if configPath != "" {
		file, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.MergeWithDefaults(*file)
	}

	// DATABASE_URL alone selects postgres.
	if cfg.Storage == "" && cfg.DatabaseURL != "" {
		cfg.Storage = "postgres"
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app is the set of components every command works against.
type app struct {
	cfg         config.Config
	keys        storage.Keys
	storage     storage.Storage
	store       *store.Store
	credentials *credential.Source
}

// openApp resolves configuration, opens storage and loads the document.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Storage,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	log.WithFields(log.Fields{"app": cfg.App, "storage": cfg.Storage}).Debug("Opened storage")

	keys := storage.NewKeys(cfg.App)
	s := store.New(st, keys)
	s.Init(ctx)

	return &app{
		cfg:         cfg,
		keys:        keys,
		storage:     st,
		store:       s,
		credentials: credential.NewSource(st, keys),
	}, nil
}

// synchronizer builds the publisher for this app's configuration.
func (a *app) synchronizer() *publish.Synchronizer {
	timeout := time.Duration(a.cfg.PublishTimeout)
	return publish.NewSynchronizer(a.store, a.credentials, &http.Client{Timeout: timeout + 5*time.Second}, publish.Options{
		APIBase: a.cfg.GitHubAPI,
		Path:    a.cfg.PublishPath,
		Branch:  a.cfg.PublishBranch,
		Timeout: timeout,
	})
}

func (a *app) Close() {
	a.store.Close()
	if err := a.storage.Close(); err != nil {
		log.Warnf("Failed to close storage: %v", err)
	}
}
