package app

import (
	"context"
	"fmt"
	"os"

	"qwenauth/internal/config"
	"qwenauth/pkg/logging"
)

// Application bootstraps and runs qwenauth.
//
// Initialization is two-phase: NewApplication loads the configuration,
// sets up logging and wires the services; Run then serves the local proxy
// until the context ends. CLI commands that only need the services (login,
// status, token) stop after the first phase.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance.
//
// Debug logging is enabled by the --debug flag, QWENAUTH_DEBUG, or
// debug: true in config.yaml.
func NewApplication(cfg *Config) (*Application, error) {
	debug := cfg.Debug || logging.DebugFromEnv()
	logging.InitForCLI(logging.LevelFor(debug), os.Stderr)

	qcfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.QwenAuthConfig = &qcfg

	if qcfg.Debug && !debug {
		cfg.Debug = true
		logging.InitForCLI(logging.LevelDebug, os.Stderr)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Config returns the application configuration.
func (a *Application) Config() *Config {
	return a.config
}

// Run serves the local proxy until ctx is done or a termination signal
// arrives.
func (a *Application) Run(ctx context.Context) error {
	return runServe(ctx, a.config, a.services)
}
