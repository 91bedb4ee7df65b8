// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for parley.
//
// # Configuration File
//
// The file lives at ~/.parley/config.toml:
//
//	[backend]
//	url = "http://localhost:8000"
//	timeout_secs = 120
//	requests_per_minute = 0
//
//	[storage]
//	driver = "file"   # file | sqlite | memory
//	path = ""
//
//	[chat]
//	models = ["llama3-8b-8192", "mixtral-8x7b-32768", "gemma-7b-it"]
//	roles = ["default", "teacher", "analyst", "concise"]
//	locale = "fr"
//
//	[export]
//	dir = "."
//
//	[log]
//	level = "info"
//
// # Environment Variables
//
//   - PARLEY_BACKEND_URL: Override backend.url
//   - PARLEY_STORAGE_DRIVER: Override storage.driver
//   - PARLEY_STORAGE_PATH: Override storage.path
//   - PARLEY_LOCALE: Override chat.locale
//   - PARLEY_LOG_LEVEL: Override log.level
//
// # Usage
//
//	cfg, err := config.LoadFromPath(path)
//	config.Watch(ctx, path, 0, func(c *config.Config) {
//	    client.SetBaseURL(c.Backend.URL)
//	}, nil)
package config
