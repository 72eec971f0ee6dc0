// Package supabase provides a client for Supabase (GoTrue auth, PostgREST
// and Storage). It is the real backend for the account area: profile,
// addresses, favorites, orders and reviews.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase APIs. Unlike a service-role
// backend it always acts on behalf of the signed-in customer: every data
// call carries the caller's access token and row-level security does the
// scoping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

type apiError struct {
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Error_  string `json:"error_description"`
}

func (e *apiError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	default:
		return e.Error_
	}
}

// do executes one request against the Supabase API. token may be empty for
// anonymous auth endpoints. Status codes map onto the domain taxonomy:
// 401 → ErrUnauthorized, other 4xx → ErrServerRejected, transport
// failures → ErrNetwork. 5xx stays a plain error so backoff retries it.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &domain.ErrNetwork{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrNetwork{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized:
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return nil, &domain.ErrUnauthorized{Message: ae.text()}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		c.logger.Warn("supabase: request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", ae.text()),
		)
		return nil, &domain.ErrServerRejected{Status: resp.StatusCode, Message: ae.text()}
	default:
		c.logger.Warn("supabase: server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(raw))
	}
}

// doRead wraps a read in the circuit breaker plus retry-with-backoff.
// Mutations never go through here: retrying a write could apply it twice.
func (c *Client) doRead(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var raw []byte
	var opErr error
	_, err := c.cb.Execute(func() (any, error) {
		opErr = resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var innerErr error
			raw, innerErr = c.do(ctx, method, path, token, payload)
			return innerErr
		})
		if opErr != nil && domain.Permanent(opErr) {
			// Definitive rejections are not backend failures.
			return nil, nil
		}
		return nil, opErr
	})
	return raw, c.resolveErr(opErr, err)
}

// doWrite wraps a mutation in the circuit breaker only.
func (c *Client) doWrite(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var raw []byte
	var opErr error
	_, err := c.cb.Execute(func() (any, error) {
		raw, opErr = c.do(ctx, method, path, token, payload)
		if opErr != nil && domain.Permanent(opErr) {
			return nil, nil
		}
		return nil, opErr
	})
	return raw, c.resolveErr(opErr, err)
}

func (c *Client) resolveErr(opErr, cbErr error) error {
	if cbErr == gobreaker.ErrOpenState || cbErr == gobreaker.ErrTooManyRequests {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	if opErr != nil {
		return opErr
	}
	return cbErr
}

// parseTime tolerates both timestamptz and bare dates coming from
// PostgREST.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, _ = time.Parse("2006-01-02", s)
	}
	return t
}
