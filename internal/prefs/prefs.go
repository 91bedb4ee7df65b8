// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs holds the user's selected backend model and persona role.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/parley/internal/storage"
)

// Storage keys.
const (
	ModelKey = "model"
	RoleKey  = "role"
)

// DefaultRole is the persona used until the user picks another.
const DefaultRole = "default"

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrUnknownRole  = errors.New("unknown role")
	ErrEmptyCatalog = errors.New("model and role lists must not be empty")
)

// =============================================================================
// TYPES
// =============================================================================

// Catalog is the closed set of selectable models and roles.
type Catalog struct {
	Models []string
	Roles  []string
}

// HasModel reports whether id is a selectable model.
func (c Catalog) HasModel(id string) bool {
	return slices.Contains(c.Models, id)
}

// HasRole reports whether id is a selectable role.
func (c Catalog) HasRole(id string) bool {
	return slices.Contains(c.Roles, id)
}

// Defaults returns the first model and DefaultRole (or the first role when
// DefaultRole is not offered).
func (c Catalog) Defaults() Settings {
	s := Settings{}
	if len(c.Models) > 0 {
		s.Model = c.Models[0]
	}
	switch {
	case c.HasRole(DefaultRole):
		s.Role = DefaultRole
	case len(c.Roles) > 0:
		s.Role = c.Roles[0]
	}
	return s
}

// Settings is the current selection.
type Settings struct {
	Model string `json:"model"`
	Role  string `json:"role"`
}

// =============================================================================
// PREFS
// =============================================================================

// Prefs owns the current Settings and persists every change synchronously.
type Prefs struct {
	kv      storage.Store
	catalog Catalog
	logger  *log.Logger

	mu      sync.RWMutex
	current Settings
	loaded  bool
}

// New creates a Prefs over kv. The catalog must offer at least one model
// and one role.
func New(kv storage.Store, catalog Catalog, logger *log.Logger) (*Prefs, error) {
	if len(catalog.Models) == 0 || len(catalog.Roles) == 0 {
		return nil, ErrEmptyCatalog
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Prefs{
		kv:      kv,
		catalog: catalog,
		logger:  logger,
		current: catalog.Defaults(),
	}, nil
}

// Catalog returns the selectable models and roles.
func (p *Prefs) Catalog() Catalog {
	return Catalog{Models: slices.Clone(p.catalog.Models), Roles: slices.Clone(p.catalog.Roles)}
}

// Load reads the persisted selection. Missing, unreadable, or no longer
// offered values fall back to the defaults.
func (p *Prefs) Load() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.catalog.Defaults()
	if v, ok := p.read(ModelKey); ok && p.catalog.HasModel(v) {
		s.Model = v
	}
	if v, ok := p.read(RoleKey); ok && p.catalog.HasRole(v) {
		s.Role = v
	}
	p.current = s
	p.loaded = true
	return s
}

// Current returns the selection, loading it on first use.
func (p *Prefs) Current() Settings {
	p.mu.RLock()
	if p.loaded {
		s := p.current
		p.mu.RUnlock()
		return s
	}
	p.mu.RUnlock()
	return p.Load()
}

// SetModel selects a model. Values outside the catalog are rejected and the
// previous selection kept. A persistence failure is returned, but the
// selection still applies for this process.
func (p *Prefs) SetModel(id string) error {
	if !p.catalog.HasModel(id) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	p.Current()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.Model = id
	return p.write(ModelKey, id)
}

// SetRole selects a persona role with the same rules as SetModel.
func (p *Prefs) SetRole(id string) error {
	if !p.catalog.HasRole(id) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, id)
	}
	p.Current()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.Role = id
	return p.write(RoleKey, id)
}

func (p *Prefs) read(key string) (string, bool) {
	raw, err := p.kv.Get(key)
	if err != nil {
		if !storage.IsNotFound(err) {
			p.logger.Warn("failed to read preference", "key", key, "err", err)
		}
		return "", false
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		p.logger.Warn("ignoring malformed preference", "key", key)
		return "", false
	}
	return v, true
}

func (p *Prefs) write(key, value string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := p.kv.Set(key, string(data)); err != nil {
		p.logger.Warn("failed to persist preference", "key", key, "err", err)
		return err
	}
	return nil
}
