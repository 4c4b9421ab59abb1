package cli

import (
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/config"
	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/remote"
	"github.com/roach88/offpos/internal/report"
	"github.com/roach88/offpos/internal/store"
)

// app is the wired core behind every command.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *store.Store
	notify     *notify.Engine
	ledger     *ledger.Ledger
	reports    *report.Generator
	restaurant string
}

// loadConfig reads .env, the config file and the environment.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.EnvFile != "" {
		if err := config.LoadDotEnv(opts.EnvFile); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load env file", err)
		}
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Restaurant != "" {
		cfg.Restaurant = opts.Restaurant
	}
	return cfg, nil
}

// newApp opens the store and wires the core from configuration.
// The caller must call close.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging()
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	a, err := wire(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func wire(cfg *config.Config, logger *zap.Logger) (*app, error) {
	readPolicy, err := notify.ParseReadPolicy(cfg.Sync.ReadPolicy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	deletePolicy, err := ledger.ParseDeletePolicy(cfg.Ledger.DeletePolicy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	timeout, err := cfg.RemoteTimeout()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	var rem notify.Remote = remote.Offline{}
	if cfg.Remote.BaseURL != "" {
		client, err := remote.NewClient(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Token:   cfg.Remote.Token,
			Timeout: timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid remote config", err)
		}
		rem = client
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", zap.String("path", cfg.Database.Path))

	settings := report.GSTSettings{
		GSTIN:         cfg.Report.GSTIN,
		PlaceOfSupply: cfg.Report.PlaceOfSupply,
		SACCode:       cfg.Report.SACCode,
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		notify: notify.New(st, rem, notify.LogDeliverer{Logger: logger}, logger,
			notify.WithReadPolicy(readPolicy),
			notify.WithRemoteTimeout(timeout),
		),
		ledger:     ledger.New(st, logger, ledger.WithDeletePolicy(deletePolicy)),
		reports:    report.NewGenerator(st, loc, settings, logger),
		restaurant: cfg.Restaurant,
	}, nil
}

// tenant returns the configured restaurant or a command error.
func (a *app) tenant() (string, error) {
	if a.restaurant == "" {
		return "", WrapExitError(ExitCommandError, "no restaurant selected (use --restaurant or OFFPOS_RESTAURANT)",
			model.NewError(model.CodeNotAuthenticated, "cli", "no restaurant context"))
	}
	return a.restaurant, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp wires the core, runs fn with the selected tenant and closes it.
func withApp(opts *RootOptions, fn func(a *app, restaurantID string) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	restaurantID, err := a.tenant()
	if err != nil {
		return err
	}
	return fn(a, restaurantID)
}
