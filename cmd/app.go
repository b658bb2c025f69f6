// file: cmd/app.go
// version: 1.0.0
// guid: 8b592fca-9302-4102-982b-992c55e95d62

package cmd

import (
	"fmt"

	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/blacklist"
	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/download"
)

// app is everything a command needs, built from config.AppConfig.
type app struct {
	store    database.Store
	governor *blacklist.Governor
	backends *download.Registry
	orch     *acquisition.Orchestrator
}

func openApp() (*app, error) {
	cfg := config.AppConfig
	store, err := database.Open(cfg.DatabaseType, cfg.DatabasePath, cfg.EnableSQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	backends, err := download.NewRegistry(cfg.Backends, download.NewSessionCache(cfg.SessionTTL))
	if err != nil {
		store.Close()
		return nil, err
	}

	governor := blacklist.New(store,
		blacklist.WithWindow(cfg.Blacklist.Window),
		blacklist.WithMaxRetries(cfg.Blacklist.MaxRetries),
	)
	return &app{
		store:    store,
		governor: governor,
		backends: backends,
		orch:     acquisition.New(store, governor, backends),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
