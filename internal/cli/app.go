// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of the session controller and its collaborators.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/i18n"
	"github.com/jeranaias/parley/internal/identity"
	"github.com/jeranaias/parley/internal/prefs"
	"github.com/jeranaias/parley/internal/storage"
)

// LogFileName is the log written while the TUI owns the terminal.
const LogFileName = "parley.log"

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath  string
	Verbose     bool
	StoreDriver string
	StorePath   string
	BackendURL  string
}

// App holds one wired session.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *log.Logger
	Store      storage.Store
	Backend    *backend.Client
	Translator *i18n.Translator
	Controller *chat.Controller

	flags   *GlobalFlags
	logFile *os.File
}

// loadConfig reads the configuration named by flags and applies flag
// overrides on top of the file and environment.
func loadConfig(flags *GlobalFlags) (*config.Config, string, error) {
	path := flags.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}

	if flags.StoreDriver != "" {
		cfg.Storage.Driver = flags.StoreDriver
	}
	if flags.StorePath != "" {
		cfg.Storage.Path = flags.StorePath
	}
	if flags.BackendURL != "" {
		cfg.Backend.URL = flags.BackendURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// newLogger configures a charm logger at the configured level.
func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "parley",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// openLogFile opens ~/.parley/parley.log for appending.
func openLogFile() (*os.File, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

// NewApp loads configuration and wires the controller. Logs go to logOut;
// when logOut is nil they go to the log file.
func NewApp(flags *GlobalFlags, logOut io.Writer) (*App, error) {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, ConfigPath: path, flags: flags}

	if logOut == nil {
		f, err := openLogFile()
		if err != nil {
			logOut = io.Discard
		} else {
			a.logFile = f
			logOut = f
		}
	}
	a.Logger = newLogger(logOut, cfg.Log.Level, flags.Verbose)

	a.Store, err = storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	a.Logger.Debug("store opened", "driver", cfg.Storage.Driver)

	a.Backend, err = backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout()),
		backend.WithRateLimit(cfg.Backend.RequestsPerMinute),
		backend.WithLogger(a.Logger.WithPrefix("backend")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	p, err := prefs.New(a.Store, prefs.Catalog{Models: cfg.Chat.Models, Roles: cfg.Chat.Roles}, a.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Translator = i18n.New(cfg.Chat.Locale)
	a.Controller, err = chat.New(chat.Options{
		Identity:   identity.New(a.Store, a.Logger),
		History:    history.New(a.Store, a.Logger),
		Prefs:      p,
		Backend:    a.Backend,
		Translator: a.Translator,
		Logger:     a.Logger,
		ExportDir:  cfg.Export.Dir,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// WatchConfig follows edits to the configuration file for the lifetime of
// ctx and points the backend client at a changed URL. A --backend flag pins
// the URL and disables the follow.
func (a *App) WatchConfig(ctx context.Context) {
	if a.flags.BackendURL != "" || a.ConfigPath == "" {
		return
	}

	onChange := func(cfg *config.Config) {
		if cfg.Backend.URL == a.Backend.BaseURL() {
			return
		}
		if err := a.Backend.SetBaseURL(cfg.Backend.URL); err != nil {
			a.Logger.Warn("config reload: backend url rejected", "err", err)
			return
		}
		a.Logger.Info("backend url changed", "url", a.Backend.BaseURL())
	}
	onError := func(err error) {
		a.Logger.Warn("config reload failed", "err", err)
	}

	if err := config.Watch(ctx, a.ConfigPath, config.DefaultWatchDebounce, onChange, onError); err != nil {
		a.Logger.Debug("config watch unavailable", "err", err)
	}
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
		a.Store = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}
