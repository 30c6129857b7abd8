package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// HTTPClient defines the interface for an HTTP http
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Policy holds the retry timings. Every duration is derived from one time
// unit so tests can shrink the whole schedule at once.
type Policy struct {
	// BaseTimeout is the first attempt's timeout; each later attempt adds TimeoutStep.
	BaseTimeout time.Duration
	TimeoutStep time.Duration
	// BackoffStep is multiplied by (attempt+1) after a 429/502/503/504.
	BackoffStep  time.Duration
	TimeoutDelay time.Duration
	ConnectDelay time.Duration
}

// PolicyForUnit returns the standard schedule (30+15n timeout, 2(n+1) backoff,
// 2 after timeouts, 3 after connection errors) expressed in unit.
func PolicyForUnit(unit time.Duration) Policy {
	if unit <= 0 {
		unit = time.Second
	}
	return Policy{
		BaseTimeout:  30 * unit,
		TimeoutStep:  15 * unit,
		BackoffStep:  2 * unit,
		TimeoutDelay: 2 * unit,
		ConnectDelay: 3 * unit,
	}
}

func DefaultPolicy() Policy {
	return PolicyForUnit(time.Second)
}

// TimeoutFor returns the timeout of the zero-based attempt.
func (p Policy) TimeoutFor(attempt int) time.Duration {
	return p.BaseTimeout + time.Duration(attempt)*p.TimeoutStep
}

// Request is a single logical POST, possibly sent more than once.
type Request struct {
	URL        string
	Headers    map[string]string
	Payload    interface{}
	MaxRetries int
	// Stopped is polled before every attempt; nil means never stopped.
	Stopped func() bool
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Client owns the process-wide connection pool.
type Client struct {
	http   HTTPClient
	policy Policy
	logger *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the pooled client, mostly for tests.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

func New(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http:   NewPooledClient(),
		policy: DefaultPolicy(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewPooledClient builds the shared keep-alive client. Timeouts are applied
// per attempt through the request context, so the client itself has none.
func NewPooledClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (c *Client) Policy() Policy {
	return c.policy
}

// schedule is a backoff.BackOff whose next delay is chosen by the failed
// attempt itself, since the wait depends on the failure class.
type schedule struct {
	next time.Duration
}

func (s *schedule) NextBackOff() time.Duration { return s.next }
func (s *schedule) Reset()                     { s.next = 0 }

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Send POSTs the request with up to MaxRetries attempts.
//
// A 200 or any non-retryable status returns the response with a nil error;
// the caller inspects the status. A nil response means no usable answer:
// transient failures outlived the budget (ErrRetriesExhausted), the stop flag
// was raised (ErrStopped), or an unclassified failure aborted the loop.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	maxRetries := req.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	sched := &schedule{}
	policy := backoff.WithContext(backoff.WithMaxRetries(sched, uint64(maxRetries-1)), ctx)

	attempt := 0
	transient := false

	op := func() (*Response, error) {
		if req.Stopped != nil && req.Stopped() {
			return nil, backoff.Permanent(ErrStopped)
		}

		n := attempt
		attempt++
		timeout := c.policy.TimeoutFor(n)

		c.logger.Debug("Sending upstream request",
			zap.String("url", req.URL),
			zap.Int("attempt", n+1),
			zap.Duration("timeout", timeout),
		)

		resp, err := c.roundTrip(ctx, req.URL, req.Headers, body, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}

			switch classify(err) {
			case classTimeout:
				c.logger.Warn("Upstream attempt timed out", zap.String("url", req.URL), zap.Int("attempt", n+1))
				transient = true
				sched.next = c.policy.TimeoutDelay
				return nil, err
			case classConnection:
				c.logger.Warn("Upstream connection failed", zap.String("url", req.URL), zap.Int("attempt", n+1), zap.Error(err))
				transient = true
				sched.next = c.policy.ConnectDelay
				return nil, err
			default:
				c.logger.Error("Upstream request aborted", zap.String("url", req.URL), zap.Error(err))
				transient = false
				return nil, backoff.Permanent(err)
			}
		}

		resp.Attempts = n + 1

		if retryableStatus(resp.StatusCode) {
			wait := time.Duration(n+1) * c.policy.BackoffStep
			c.logger.Warn("Upstream returned retryable status",
				zap.String("url", req.URL),
				zap.Int("status", resp.StatusCode),
				zap.Duration("wait", wait),
			)
			transient = true
			sched.next = wait
			return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: resp.Body, URL: req.URL}
		}

		transient = false
		return resp, nil
	}

	resp, err := backoff.RetryWithData(op, policy)
	if err == nil {
		return resp, nil
	}

	if transient && ctx.Err() == nil && !errors.Is(err, ErrStopped) {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	return nil, err
}

func (c *Client) roundTrip(ctx context.Context, url string, headers map[string]string, body []byte, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
