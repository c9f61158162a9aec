// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"errors"
	"fmt"

	"github.com/jeranaias/filechat/internal/cloud"
)

var (
	// ErrBusy is returned when a submit arrives while an exchange is in flight.
	ErrBusy = errors.New("an exchange is already in progress")

	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("controller is closed")

	// ErrEmptyText is wrapped by ValidationError for blank input.
	ErrEmptyText = errors.New("message is empty")

	// ErrTextTooLong is wrapped by ValidationError for input over the limit.
	ErrTextTooLong = errors.New("message is too long")
)

// ValidationError reports input rejected before any state change.
type ValidationError struct {
	Field string // "text" or "file"
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// FAILURE COPY
// =============================================================================

// Assistant messages used when an exchange fails.
const (
	RateLimitedText = "I'm currently experiencing high demand. Please wait a moment and try again."
	NetworkText     = "I'm having trouble connecting right now. Please check your internet connection and try again."
	ServerText      = "I'm experiencing some technical difficulties. Please try again in a moment."
	MalformedText   = "I apologize, but I couldn't generate a response. Please try again."
)

// FailureText maps an exchange error to the assistant message shown in the
// conversation. Errors that are not gateway errors read as server trouble.
func FailureText(err error) string {
	kind, ok := cloud.KindOf(err)
	if !ok {
		return ServerText
	}
	switch kind {
	case cloud.KindRateLimited:
		return RateLimitedText
	case cloud.KindNetwork:
		return NetworkText
	case cloud.KindMalformed:
		return MalformedText
	default:
		return ServerText
	}
}
