// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling and exit codes for parley commands.
//
// Commands always return errors; Execute decides how to display them and
// which exit code to use.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/prefs"
	"github.com/jeranaias/parley/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitStorageError indicates persistence could not be opened
	ExitStorageError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "history")
	Action  string // Action being performed (e.g., "export")
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCodeFor maps an error to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validation config.ValidateErrors
	var status *backend.StatusError
	var storageErr *storage.StorageError

	switch {
	case errors.As(err, &validation):
		return ExitConfigError
	case errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, prefs.ErrUnknownModel),
		errors.Is(err, prefs.ErrUnknownRole),
		errors.Is(err, chat.ErrEmptyMessage):
		return ExitUsageError
	case errors.As(err, &status), errors.Is(err, backend.ErrInvalidBaseURL):
		return ExitNetworkError
	case errors.As(err, &storageErr), errors.Is(err, storage.ErrUnknownDriver):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}

// DisplayError writes err in the standard format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %v\n", RenderConditional(ErrorStyle, "Error:"), err)
}
