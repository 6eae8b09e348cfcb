// Package llm implements a minimal chat-completions client over raw HTTP
// with retries, used for both the retrieval and assist endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const maxErrorBodyBytes = 1500

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d: %s", e.Code, e.Body)
}

// DecodeError is returned when a 2xx response body cannot be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ModelError is returned when the response carries an explicit error object
// instead of a completion.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error: %s", e.Message)
}

// ErrNoCredential is returned when the endpoint has no API token configured.
var ErrNoCredential = errors.New("endpoint credential is not configured")

// Endpoint describes one chat-completions endpoint.
type Endpoint struct {
	URL         string
	Token       string
	Model       string
	Temperature float32
}

// Client performs chat-completion requests with bounded retries.
type Client struct {
	httpClient     *http.Client
	maxAttempts    int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	logger         *slog.Logger
}

// Options configures the shared HTTP layer of a Client.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Logger         *slog.Logger
}

// NewClient creates a Client. Zero option fields fall back to safe defaults.
func NewClient(opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 8 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.RequestTimeout,
		},
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
		logger:         logger.With("component", "llm"),
	}
}

// chatMessage is one entry in a chat-completions conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is one prompt message passed by callers.
type Message struct {
	Role    string
	Content string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete performs a single chat-completion request with no retries.
func (c *Client) Complete(ctx context.Context, ep Endpoint, msgs []Message) (string, error) {
	if ep.Token == "" {
		return "", ErrNoCredential
	}

	reqBody := chatRequest{
		Model:       ep.Model,
		Messages:    make([]chatMessage, 0, len(msgs)),
		Temperature: ep.Temperature,
	}
	for _, m := range msgs {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", ep.URL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: snippet}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &DecodeError{Err: err}
	}

	if parsed.Error != nil {
		return "", &ModelError{Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &DecodeError{Err: errors.New("response contains no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}

// CompleteWithRetry performs a chat-completion request, retrying transient
// failures (connection errors, timeouts, 429 and 5xx statuses) with jittered
// exponential backoff. Non-transient errors return immediately.
func (c *Client) CompleteWithRetry(ctx context.Context, ep Endpoint, msgs []Message) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.Complete(ctx, ep, msgs)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == c.maxAttempts {
			return "", err
		}

		delay := c.backoffDelay(attempt)
		c.logger.WarnContext(ctx, "Transient endpoint error, retrying",
			"attempt", attempt, "max_attempts", c.maxAttempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", lastErr
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay/2 + jitter
}

// IsRetryable reports whether the error is a transient transport or server
// failure worth retrying.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	if errors.Is(err, ErrNoCredential) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// IsTimeout reports whether the error is a timeout of any kind.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// IsConnectionError reports whether the error looks like a failure to reach
// the endpoint at all (DNS, refused connection, reset).
func IsConnectionError(err error) bool {
	if IsTimeout(err) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps dial failures; treat any non-timeout url.Error
		// without an HTTP status as a connection problem.
		return true
	}
	return false
}
