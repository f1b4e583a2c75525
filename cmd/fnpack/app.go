// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/fnpack/internal/config"
	"github.com/invowk/fnpack/internal/envstore"
)

type (
	// App wires CLI services and shared dependencies. Every cobra handler
	// receives an App and delegates configuration loading and store access
	// through it.
	App struct {
		Config    ConfigProvider
		OpenStore StoreFactory
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		OpenStore StoreFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// StoreFactory opens the environment store selected by the configuration.
	StoreFactory func(ctx context.Context, cfg envstore.Config) (envstore.Store, error)
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.OpenStore == nil {
		deps.OpenStore = envstore.New
	}

	return &App{
		Config:    deps.Config,
		OpenStore: deps.OpenStore,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// loadConfig loads the configuration named by the global flags and folds
// ui.verbose into the verbose flag.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		flags.verbose = true
	}
	return cfg, nil
}

// newLogger returns the progress logger written to stderr. Verbose runs log
// at debug level.
func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}
