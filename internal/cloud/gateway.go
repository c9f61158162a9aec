// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/filechat/internal/logging"
	"github.com/jeranaias/filechat/internal/prompt"
	"github.com/jeranaias/filechat/internal/util"
)

// Configuration constants for the completion endpoint.
const (
	// DefaultBaseURL is the OpenAI-compatible base URL.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the model identifier sent with every request.
	DefaultModel = "llama-3.3-70b-versatile"

	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7

	// DefaultMaxTokens bounds the reply length.
	DefaultMaxTokens = 1000

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "filechat/1.0"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body of a chat completions request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []prompt.Turn `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse is the subset of the completion response we read.
// Unknown fields are ignored.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      prompt.Turn `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway sends completion requests. A Gateway is safe for concurrent use,
// although the chat controller only ever has one request in flight.
type Gateway struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewGateway creates a gateway with the default endpoint and model.
func NewGateway(apiKey string) *Gateway {
	return &Gateway{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.Discard(),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (g *Gateway) WithBaseURL(url string) *Gateway {
	if url != "" {
		g.baseURL = strings.TrimSuffix(url, "/")
	}
	return g
}

// WithModel sets the model identifier.
func (g *Gateway) WithModel(model string) *Gateway {
	if model != "" {
		g.model = model
	}
	return g
}

// WithTemperature sets the sampling temperature.
func (g *Gateway) WithTemperature(t float64) *Gateway {
	g.temperature = t
	return g
}

// WithMaxTokens sets the reply token budget. Non-positive values are ignored.
func (g *Gateway) WithMaxTokens(n int) *Gateway {
	if n > 0 {
		g.maxTokens = n
	}
	return g
}

// WithTimeout sets the request timeout.
func (g *Gateway) WithTimeout(timeout time.Duration) *Gateway {
	if timeout > 0 {
		g.httpClient.Timeout = timeout
	}
	return g
}

// WithHTTPClient replaces the HTTP client.
func (g *Gateway) WithHTTPClient(c *http.Client) *Gateway {
	if c != nil {
		g.httpClient = c
	}
	return g
}

// WithRateLimit spaces requests so that at most perMinute are started per
// minute. Zero disables pacing.
func (g *Gateway) WithRateLimit(perMinute int) *Gateway {
	if perMinute <= 0 {
		g.limiter = rate.NewLimiter(rate.Inf, 1)
		return g
	}
	g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return g
}

// WithLogger sets the logger used for request/response lines.
func (g *Gateway) WithLogger(logger *slog.Logger) *Gateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Model returns the configured model identifier.
func (g *Gateway) Model() string {
	return g.model
}

// IsConfigured returns true if the gateway has an API key configured.
func (g *Gateway) IsConfigured() bool {
	return g.apiKey != ""
}

// APIKeyMasked returns a masked version of the API key for display.
// SECURITY: Never exposes API key fragments - use fingerprint instead.
func (g *Gateway) APIKeyMasked() string {
	if g.apiKey == "" {
		return "[not set]"
	}
	h := sha256.Sum256([]byte(g.apiKey))
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(g.apiKey), hex.EncodeToString(h[:4]))
}

// Complete sends payload and returns the assistant text of the first choice.
//
// Exactly one HTTP request is made. Every failure is a *GatewayError.
func (g *Gateway) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	if !g.IsConfigured() {
		return "", &GatewayError{Kind: KindServer, Err: ErrNotConfigured}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", &GatewayError{Kind: KindNetwork, Err: err}
	}

	body, err := json.Marshal(ChatRequest{
		Model:       g.model,
		Messages:    payload.Messages,
		Stream:      false,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", &GatewayError{Kind: KindMalformed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &GatewayError{Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	g.setHeaders(req)

	// CLOUD: Secure logging - never headers or bodies
	logger := logging.FromContext(ctx, g.logger)
	logger.Debug("api request", "method", req.Method, "path", req.URL.Path, "turns", len(payload.Messages))
	start := time.Now()

	resp, err := g.httpClient.Do(req)
	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")
	if err != nil {
		logger.Warn("api request failed", "path", req.URL.Path, "duration", time.Since(start), "error", err)
		return "", &GatewayError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	logger.Info("api response", "status", resp.StatusCode, "duration", time.Since(start))

	data, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyErrorResponse(resp.StatusCode, data)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", &GatewayError{Kind: KindMalformed, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	content := chatResp.GetContent()
	if strings.TrimSpace(content) == "" {
		return "", &GatewayError{Kind: KindMalformed, Status: resp.StatusCode, Message: "no candidate message"}
	}
	return content, nil
}

// setHeaders sets the required headers for API requests.
func (g *Gateway) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	// Read one byte past the limit so an exact-size body is not mistaken for truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &GatewayError{
			Kind:    KindMalformed,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response exceeded maximum size of %d bytes", MaxResponseSize),
		}
	}
	return body, nil
}

// classifyErrorResponse maps a non-2xx response to a GatewayError.
//
// 429 is always rate limiting. Some providers report throttling with other
// statuses, so a provider message mentioning "rate limit" also counts.
func classifyErrorResponse(status int, body []byte) *GatewayError {
	gerr := &GatewayError{Kind: KindServer, Status: status}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		gerr.Code = apiErr.Error.Code
		gerr.Message = apiErr.Error.Message
	} else {
		gerr.Message = util.TruncateRunes(strings.TrimSpace(string(body)), 200)
	}

	if status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(gerr.Message), "rate limit") {
		gerr.Kind = KindRateLimited
	}
	return gerr
}
