package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/matheuskafuri/alccalc/internal/cache"
	"github.com/matheuskafuri/alccalc/internal/config"
	"github.com/matheuskafuri/alccalc/internal/feed"
	"github.com/matheuskafuri/alccalc/internal/logging"
	"github.com/spf13/cobra"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *cache.Store
	fetcher *feed.Fetcher
	manager *cache.Manager
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	store, err := cache.Open(cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	fetcher := feed.NewFetcher(cfg)
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		fetcher: fetcher,
		manager: cache.NewManager(cfg.RawFeedPath(), store, fetcher, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
