// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the chat completion backend.
//
// # Wire Contract
//
//	POST {base}/chat
//	{"message": "hello", "userId": "...", "model": "...", "role": "..."}
//
//	200 {"response": "hi there", "sources": ["doc1"]}
//
// # Usage
//
//	client, err := backend.New(cfg.Backend.URL,
//	    backend.WithTimeout(cfg.Backend.Timeout()),
//	    backend.WithRateLimit(cfg.Backend.RequestsPerMinute),
//	)
//	reply, err := client.Complete(ctx, backend.Request{Message: text})
package backend
