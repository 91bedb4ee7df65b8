// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store behind parley's
// identity, preferences and conversation history.
//
// # Drivers
//
//   - FileStore: one <key>.json file per key, written atomically (default)
//   - SQLiteStore: a single kv table in a pure Go SQLite database
//   - MemoryStore: process-local map, used by tests and --store-driver=memory
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	v, err := store.Get("identity")
//	if storage.IsNotFound(err) {
//	    // first run
//	}
//
// Keys are restricted to [A-Za-z0-9_.-] so they are safe file names.
package storage
