// Package notifier delivers Discord webhook payloads over HTTP with
// bounded retries and exponential backoff.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/discord"
)

const (
	userAgent      = "swarm-monitor/v1"
	defaultTimeout = 30 * time.Second
	// shutdownTimeout bounds the best-effort send issued while the
	// process is already exiting.
	shutdownTimeout = 5 * time.Second
	backoffBase     = time.Second
)

// DeliveryError reports that a payload could not be delivered. Attempts
// is the number of HTTP requests issued before giving up.
type DeliveryError struct {
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Config holds the delivery client settings.
type Config struct {
	URL string
	// TimeoutSeconds bounds each HTTP attempt. Default 30.
	TimeoutSeconds int
	// RetryAttempts is the total number of requests issued per payload
	// before failing. Default 3.
	RetryAttempts int
}

// Client posts payloads to a Discord webhook. Delivery is synchronous:
// the event loop deliberately blocks for at most timeout × attempts per
// event so notifications leave in arrival order.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	url        string
	attempts   int
	backoff    time.Duration
}

// NewClient creates a Client. Returns an error if the URL is invalid.
func NewClient(logger *zap.Logger, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webhook URL must include a host")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("notifier"),
		url:        cfg.URL,
		attempts:   attempts,
		backoff:    backoffBase,
	}, nil
}

// Deliver posts the payload, retrying transient failures (connection
// errors, timeouts, HTTP 429/500/502/503/504) with exponential backoff.
// Non-retryable HTTP errors fail immediately. Returns *DeliveryError on
// failure; callers log and continue.
func (c *Client) Deliver(ctx context.Context, payload discord.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		sendTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s, ...
			backoff := c.backoff << (attempt - 1)
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				sendTotal.WithLabelValues("error").Inc()
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			}
			sendTotal.WithLabelValues("retry").Inc()
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			sendTotal.WithLabelValues("error").Inc()
			return &DeliveryError{Attempts: attempt + 1, Err: lastErr}
		}

		c.logger.Debug("Webhook send transient failure, will retry",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	sendTotal.WithLabelValues("error").Inc()
	return &DeliveryError{Attempts: c.attempts, Err: lastErr}
}

// DeliverBestEffort sends with a short fixed timeout, a single attempt,
// and swallows every error. Used for the shutdown notice while the
// process is exiting.
func (c *Client) DeliverBestEffort(payload discord.Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Debug("Skipping best-effort send", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.post(ctx, body); err != nil {
		c.logger.Debug("Best-effort webhook send failed", zap.Error(err))
	}
}

// post executes a single HTTP POST request.
func (c *Client) post(ctx context.Context, body []byte) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		sendDuration.WithLabelValues("error").Observe(duration)
		return &httpError{err: err, retryable: true}
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		sendTotal.WithLabelValues("success").Inc()
		sendDuration.WithLabelValues("success").Observe(duration)
		return nil
	}

	sendDuration.WithLabelValues("error").Observe(duration)
	return &httpError{
		err:       fmt.Errorf("webhook returned HTTP %d", resp.StatusCode),
		retryable: retryableStatus(resp.StatusCode),
	}
}

// httpError wraps an error with a retryable flag.
type httpError struct {
	err       error
	retryable bool
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

// isRetryable returns true if the error is a transient failure worth
// retrying.
func isRetryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.retryable
	}
	// Unknown errors (connection refused, DNS, etc.) are retryable.
	return true
}

// retryableStatus reports whether an HTTP status is transient. Discord
// signals rate limiting with 429.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RedactURL masks the webhook secret for safe logging. Discord carries
// the token in the final path segment; query values are masked too.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.Path != "" && u.Path != "/" {
		segs := strings.Split(u.Path, "/")
		segs[len(segs)-1] = "REDACTED"
		u.Path = strings.Join(segs, "/")
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
