// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat session controller.
//
// The Controller owns the transcript and a two-state turn machine:
//
//	Idle --Submit(text)--> Sending --reply or failure--> Idle
//
// On Submit the user message is appended to the transcript and the history
// log at once and the typing flag is raised. The backend reply, or a
// localized error notice when the call fails, is appended the same way and
// the flag is lowered. A second Submit while Sending returns ErrTurnInFlight.
//
// # Usage
//
//	ctrl, err := chat.New(chat.Options{
//	    Identity: identity.New(kv, logger),
//	    History:  history.New(kv, logger),
//	    Prefs:    p,
//	    Backend:  client,
//	    OnChange: func(v chat.View) { render(v) },
//	})
//	err = ctrl.Submit(ctx, "hello")
package chat
