// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to the remote chat completion endpoint.
//
// The endpoint speaks the OpenAI-compatible chat completions format (Groq by
// default). This package sends one request per turn, never retries, and maps
// every failure into a GatewayError with one of four kinds.
//
// # Key Types
//
//   - Gateway: HTTP client for the completions endpoint
//   - ChatRequest / ChatResponse: Wire format
//   - GatewayError: Network, RateLimited, Server, or Malformed failure
//
// # Usage
//
//	gw := cloud.NewGateway(apiKey).WithLogger(logger)
//	text, err := gw.Complete(ctx, payload)
//	var gerr *cloud.GatewayError
//	if errors.As(err, &gerr) && gerr.Kind == cloud.KindRateLimited {
//	    // back off
//	}
//
// # Security
//
// API keys are never logged. Request and response bodies are never logged.
// All requests use TLS 1.2+.
package cloud
