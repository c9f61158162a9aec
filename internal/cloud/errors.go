// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed completion exchange.
type ErrorKind int

const (
	// KindNetwork means no HTTP response was received.
	KindNetwork ErrorKind = iota
	// KindRateLimited means the endpoint asked us to slow down.
	KindRateLimited
	// KindServer covers every other non-2xx response.
	KindServer
	// KindMalformed means a 2xx response without a usable candidate.
	KindMalformed
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed_response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("completion API key not configured")

// GatewayError is returned by Gateway.Complete for every failure.
type GatewayError struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Code    string // provider error code, if any
	Message string // provider error message, if any
	Err     error  // underlying transport or decode error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("completion %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("completion %s (HTTP %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
	default:
		return "completion " + e.Kind.String()
	}
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches another *GatewayError with the same Kind, so callers can write
// errors.Is(err, &cloud.GatewayError{Kind: cloud.KindRateLimited}).
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of a gateway error and false for any other error.
func KindOf(err error) (ErrorKind, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}
