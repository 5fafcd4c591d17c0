package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"food-gateway/internal/core/domain"
	"food-gateway/internal/observability"
)

// maxBodySize caps how much of an upstream reply we are willing to buffer.
const maxBodySize = 10 << 20

// Options configure the upstream client.
type Options struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
	// Transport is the base round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client is an implementation of the UpstreamClient port over HTTP.
type Client struct {
	url      string
	user     string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a new upstream client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		url:      opts.URL,
		user:     opts.User,
		password: opts.Password,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		logger: logger,
	}
}

// Post sends payload as JSON and returns the raw JSON object of a 2xx reply.
// Every failure is a *domain.CommandError; unclassified ones are logged and made generic.
func (c *Client) Post(ctx context.Context, command domain.Command, payload any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.post(ctx, command, payload)
	observability.ObserveUpstream(string(command), outcome(err), time.Since(start))
	return raw, err
}

func (c *Client) post(ctx context.Context, command domain.Command, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.unexpected(ctx, command, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, c.unexpected(ctx, command, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.WarnContext(ctx, "upstream request timed out", "url", c.url, "command", command, "error", err.Error())
			return nil, domain.NewError(domain.ErrTimeout, domain.MsgTimeout)
		}
		return nil, c.unexpected(ctx, command, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WarnContext(ctx, "failed to close upstream response body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return nil, domain.NewError(domain.ErrTimeout, domain.MsgTimeout)
		}
		return nil, c.unexpected(ctx, command, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, errorMessage(data, resp.StatusCode))
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return nil, c.unexpected(ctx, command, fmt.Errorf("malformed response body (status %d, %d bytes)", resp.StatusCode, len(data)))
	}
	return json.RawMessage(data), nil
}

// unexpected logs the raw failure with the upstream URL and hides it from the caller.
func (c *Client) unexpected(ctx context.Context, command domain.Command, err error) error {
	c.logger.ErrorContext(ctx, "unexpected error sending request to upstream",
		"url", c.url,
		"command", command,
		"error", err.Error(),
	)
	return domain.Internal()
}

// classify maps an upstream status code onto the error taxonomy.
func classify(status int, message string) *domain.CommandError {
	switch status {
	case http.StatusBadRequest:
		return domain.NewError(domain.ErrInvalidRequest, "%s", message)
	case http.StatusUnauthorized:
		return domain.NewError(domain.ErrUnauthorized, "%s", message)
	case http.StatusForbidden:
		return domain.NewError(domain.ErrForbidden, "%s", message)
	case http.StatusNotFound:
		return domain.NewError(domain.ErrNotFound, "%s", message)
	case http.StatusConflict:
		return domain.NewError(domain.ErrConflict, "%s", message)
	default:
		return domain.NewError(domain.ErrUpstream, "HTTP Error: %s", message)
	}
}

// errorMessage prefers the "message" field of the upstream body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg, ok := payload.Message.(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func requestID(ctx context.Context) string {
	if id := observability.RequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
