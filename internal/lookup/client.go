package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
	"github.com/drfirst/go-healthassist/pkg/responsecache"
)

// DefaultTimeout bounds every external request.
const DefaultTimeout = 25 * time.Second

const maxBodyBytes = 8 << 20

// Lookup outcomes reported to the observer.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// ErrInvalidBody is returned when a service answers with something other than JSON.
var ErrInvalidBody = errors.New("response body is not valid JSON")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Service, e.Code)
}

// StatusCode returns the upstream HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithObserver is called with the outcome of every request.
func WithObserver(fn func(service, outcome string)) ClientOption {
	return func(c *Client) { c.observe = fn }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// Client performs cached, breaker-guarded JSON requests. Only successful
// responses are cached.
type Client struct {
	http    *http.Client
	cache   *responsecache.Cache
	logger  *zap.Logger
	tracer  trace.Tracer
	observe func(service, outcome string)
}

// NewClient creates a client with the given request timeout. cache may be nil
// to disable caching.
func NewClient(timeout time.Duration, cache *responsecache.Cache, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger,
		tracer:  otel.Tracer("lookup"),
		observe: func(string, string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one external call.
type request struct {
	service  string
	method   string
	endpoint string
	params   map[string]string
	headers  map[string]string
	body     []byte
}

// GetJSON issues a GET with query params and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, cb *circuitbreaker.CircuitBreaker, service, endpoint string,
	params map[string]string, out any) error {
	raw, err := c.do(ctx, cb, request{service: service, method: http.MethodGet, endpoint: endpoint, params: params})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// PostJSON issues a POST with a JSON payload and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, cb *circuitbreaker.CircuitBreaker, service, endpoint string,
	headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", service, err)
	}
	raw, err := c.do(ctx, cb, request{
		service:  service,
		method:   http.MethodPost,
		endpoint: endpoint,
		headers:  headers,
		body:     body,
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) do(ctx context.Context, cb *circuitbreaker.CircuitBreaker, req request) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "lookup_"+req.service,
		trace.WithAttributes(
			attribute.String("service", req.service),
			attribute.String("http.method", req.method),
		))
	defer span.End()

	key := responsecache.Key(req.method, req.endpoint, req.params, req.body)
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			c.observe(req.service, OutcomeCacheHit)
			return raw, nil
		}
	}

	var (
		raw json.RawMessage
		err error
	)
	if cb != nil {
		raw, err = circuitbreaker.Do(ctx, cb, func(ctx context.Context) (json.RawMessage, error) {
			return c.send(ctx, req)
		})
	} else {
		raw, err = c.send(ctx, req)
	}
	if err != nil {
		outcome := OutcomeFailure
		switch {
		case circuitbreaker.IsRejected(err):
			outcome = OutcomeRejected
		case IsNotFound(err):
			outcome = OutcomeNotFound
		}
		c.observe(req.service, outcome)
		span.RecordError(err)
		c.logger.Debug("lookup failed",
			zap.String("service", req.service),
			zap.String("endpoint", req.endpoint),
			zap.Error(err))
		return nil, err
	}

	c.observe(req.service, OutcomeSuccess)
	if c.cache != nil {
		c.cache.Put(ctx, key, raw)
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, req request) (json.RawMessage, error) {
	target, err := url.Parse(req.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse %s endpoint: %w", req.service, err)
	}
	if len(req.params) > 0 {
		q := target.Query()
		for k, v := range req.params {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.service, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", req.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Service: req.service, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.service, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: %w", req.service, ErrInvalidBody)
	}
	return json.RawMessage(data), nil
}
