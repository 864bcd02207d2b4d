package cli

import (
	"fmt"

	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/cred"
	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/locks"
	"github.com/inkwell-app/inkwell/internal/migration"
	"github.com/inkwell-app/inkwell/internal/sync"
	"github.com/inkwell-app/inkwell/internal/webdav"
)

// app bundles the collaborators every command needs: configuration, the
// local store, the credential store, and the shared per-attachment lock
// that serializes sync and migration work on the same file.
type app struct {
	cfg     *config.Config
	paths   config.Paths
	db      *db.DB
	creds   *cred.Store
	attLock *locks.KeyedMutex
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	creds, err := cred.New(paths.Credentials)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	return &app{
		cfg:     cfg,
		paths:   paths,
		db:      database,
		creds:   creds,
		attLock: locks.New(),
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

func (a *app) transportFactory() sync.TransportFactory {
	opts := webdav.ClientOptions{
		Timeout:           a.cfg.Sync.HTTPTimeout,
		RequestsPerSecond: a.cfg.Sync.RequestsPerSecond,
		MaxRetries:        a.cfg.Sync.MaxRetries,
	}
	return func(serverURL, username, password string) webdav.Transport {
		return webdav.NewClient(serverURL, username, password, opts)
	}
}

func (a *app) syncEngine() *sync.Engine {
	return sync.New(a.db, a.creds, a.transportFactory(), a.paths.Attachments, a.attLock)
}

func (a *app) migrationEngine() *migration.Engine {
	return migration.NewEngine(a.db, a.paths.Attachments, a.attLock)
}
