// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// # Key Types
//
//   - Author: who wrote a message (user or assistant)
//   - Message: author, text and optional citation sources
//
// # Usage
//
//	msg := model.NewUserMessage("hello")
//	reply := model.NewAssistantMessage("hi there", []string{"doc1"})
//
// Messages are plain values. The JSON form is the persisted form:
//
//	{"author":"assistant","text":"hi there","sources":["doc1"]}
//
// Older histories wrote "bot" for the assistant; it decodes as AuthorAssistant.
package model
