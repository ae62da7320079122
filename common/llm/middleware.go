package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"forest.app/forest/common/metrics"
)

// NewFromConfig builds the production client chain:
// metrics -> rate limit -> retry -> OpenAI-compatible transport.
func NewFromConfig(cfg Config) (Client, error) {
	base, err := New(cfg)
	if err != nil {
		return nil, err
	}

	c := WithRetry(base, cfg.MaxRetries)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c = WithRateLimit(c, rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	return WithMetrics(c), nil
}

type retryClient struct {
	next       Client
	maxRetries int
	newBackOff func() backoff.BackOff
}

// WithRetry retries retryable failures (see IsRetryable) with exponential backoff.
func WithRetry(next Client, maxRetries int) Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryClient{
		next:       next,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 8 * time.Second
			return b
		},
	}
}

func (c *retryClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.next.Chat(ctx, req, result)
		if err != nil && !IsRetryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	if err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return resp, nil
}

func (c *retryClient) Model() string {
	return c.next.Model()
}

type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// WithRateLimit blocks each call until the limiter grants a token.
func WithRateLimit(next Client, limiter *rate.Limiter) Client {
	return &rateLimitedClient{next: next, limiter: limiter}
}

func (c *rateLimitedClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for llm rate limiter: %w", err)
	}
	return c.next.Chat(ctx, req, result)
}

func (c *rateLimitedClient) Model() string {
	return c.next.Model()
}

type instrumentedClient struct {
	next Client
}

// WithMetrics records request counts and latency per schema.
func WithMetrics(next Client) Client {
	return &instrumentedClient{next: next}
}

func (c *instrumentedClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	start := time.Now()
	resp, err := c.next.Chat(ctx, req, result)
	metrics.LLMRequestDuration.WithLabelValues(req.SchemaName).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(req.SchemaName, outcome).Inc()
	return resp, err
}

func (c *instrumentedClient) Model() string {
	return c.next.Model()
}
