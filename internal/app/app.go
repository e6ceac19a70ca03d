package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/registry"
	"github.com/vk/labelgrid/internal/taskstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	cfg       *Config
	registry  *registry.Registry
	converter config.Converter
	store     *taskstore.Store
}

// NewApp is the constructor for the main application. Rendered output goes
// to outW and logs to logW. It loads the registry, parses every template and
// validates them against each other.
//
// A broken registry is a fatal startup error, so NewApp panics; the
// entrypoint recovers and reports it.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.RegistryPath)
	if err != nil {
		panic(fmt.Errorf("failed to load registry: %w", err))
	}
	logger.Debug("Registry configuration loaded and translated into unified model.")

	reg := registry.New()
	if err := reg.Load(ctx, model, cfg.TemplatesDir); err != nil {
		panic(fmt.Errorf("failed to load registry: %w", err))
	}
	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}

	a := &App{
		outW:      outW,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		converter: converter,
	}

	if cfg.DBPath != "" {
		store, err := taskstore.Open(cfg.DBPath)
		if err != nil {
			panic(err)
		}
		a.store = store
		logger.Debug("Task store opened.", "path", cfg.DBPath)
	}
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Close releases the task store, if one is open.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
