package llm

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/cenkalti/backoff/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/time/rate"
)

type scriptedClient struct {
	calls  atomic.Int32
	errors []error
}

func (c *scriptedClient) Chat(_ context.Context, _ Request, result any) (*Response, error) {
	n := int(c.calls.Add(1)) - 1
	if n < len(c.errors) && c.errors[n] != nil {
		return nil, c.errors[n]
	}
	if out, ok := result.(*map[string]string); ok {
		*out = map[string]string{"status": "ok"}
	}
	return &Response{PromptTokens: 10, CompletionTokens: 5}, nil
}

func (c *scriptedClient) Model() string { return "scripted" }

func immediateRetry(next Client, maxRetries int) *retryClient {
	c := WithRetry(next, maxRetries).(*retryClient)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

var _ = Describe("retryClient", func() {
	ctx := context.Background()

	It("retries network failures until success", func() {
		inner := &scriptedClient{errors: []error{errors.New("connection refused"), errors.New("EOF")}}
		c := immediateRetry(inner, 3)

		var out map[string]string
		resp, err := c.Chat(ctx, Request{SchemaName: "test"}, &out)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.PromptTokens).To(Equal(10))
		Expect(out).To(HaveKeyWithValue("status", "ok"))
		Expect(inner.calls.Load()).To(Equal(int32(3)))
	})

	It("stops after the configured number of retries", func() {
		boom := errors.New("connection refused")
		inner := &scriptedClient{errors: []error{boom, boom, boom, boom}}
		c := immediateRetry(inner, 2)

		var out map[string]string
		_, err := c.Chat(ctx, Request{}, &out)

		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(inner.calls.Load()).To(Equal(int32(3)))
	})

	It("does not retry malformed responses", func() {
		inner := &scriptedClient{errors: []error{ErrMalformedResponse}}
		c := immediateRetry(inner, 5)

		var out map[string]string
		_, err := c.Chat(ctx, Request{}, &out)

		Expect(errors.Is(err, ErrMalformedResponse)).To(BeTrue())
		Expect(inner.calls.Load()).To(Equal(int32(1)))
	})

	It("passes the model through", func() {
		Expect(WithRetry(&scriptedClient{}, 1).Model()).To(Equal("scripted"))
	})
})

var _ = Describe("rateLimitedClient", func() {
	It("fails fast when the context is already cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		limiter := rate.NewLimiter(rate.Limit(0.001), 1)
		limiter.Allow() // drain the only token
		c := WithRateLimit(&scriptedClient{}, limiter)

		var out map[string]string
		_, err := c.Chat(ctx, Request{}, &out)
		Expect(err).To(MatchError(ContainSubstring("rate limiter")))
	})

	It("forwards calls when tokens are available", func() {
		inner := &scriptedClient{}
		c := WithMetrics(WithRateLimit(inner, rate.NewLimiter(rate.Inf, 1)))

		var out map[string]string
		_, err := c.Chat(context.Background(), Request{SchemaName: "test"}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.calls.Load()).To(Equal(int32(1)))
	})
})
