package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/catalog"
	"github.com/roach88/gpures/internal/config"
	"github.com/roach88/gpures/internal/engine"
	"github.com/roach88/gpures/internal/store"
)

// env is everything a command needs to talk to the engine.
type env struct {
	cfg     config.Config
	store   *store.Store
	catalog *catalog.Catalog
	engine  *engine.Engine
	logger  *slog.Logger
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Catalog != "" {
		cfg.Catalog = opts.Catalog
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openEnv loads config, catalog and database and builds the engine.
// Callers must Close the returned env.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	configureLogging(cmd.ErrOrStderr(), cfg.SlogLevel(), cfg.LogFormat)
	logger := slog.Default()

	cat := catalog.FromResources()
	if cfg.Catalog != "" {
		cat, err = catalog.Load(cfg.Catalog)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		logger.Debug("catalog loaded", "path", cfg.Catalog, "resources", cat.Len())
	} else {
		logger.Warn("no catalog configured; every resource will be reported as unknown")
	}

	policy, err := engine.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid policy", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Database)

	eng := engine.New(st, cat,
		engine.WithPolicy(policy),
		engine.WithMaxAttempts(cfg.MaxAttempts),
		engine.WithPastTolerance(cfg.PastTolerance),
		engine.WithLogger(logger),
	)

	return &env{cfg: cfg, store: st, catalog: cat, engine: eng, logger: logger}, nil
}

// Close releases the database.
func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}
