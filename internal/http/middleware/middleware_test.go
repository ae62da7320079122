package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"forest.app/forest/common/metrics"
)

func serve(router *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = Describe("Recovery", func() {
	It("turns a panic into a 500", func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(Recovery())
		router.GET("/boom", func(*gin.Context) { panic("kaboom") })

		w := serve(router, http.MethodGet, "/boom", "")

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error"}`))
	})
})

var _ = Describe("Logger", func() {
	var (
		buf    *bytes.Buffer
		router *gin.Engine
		prev   *slog.Logger
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		buf = &bytes.Buffer{}
		prev = slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(buf, nil)))
		DeferCleanup(func() { slog.SetDefault(prev) })

		router = gin.New()
		router.Use(Logger("/health"))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	It("logs requests with their status", func() {
		serve(router, http.MethodGet, "/ok?x=1", "")
		Expect(buf.String()).To(ContainSubstring(`msg=request`))
		Expect(buf.String()).To(ContainSubstring(`path="/ok?x=1"`))
		Expect(buf.String()).To(ContainSubstring("status=200"))
	})

	It("logs client errors as warnings", func() {
		serve(router, http.MethodGet, "/missing", "")
		Expect(buf.String()).To(ContainSubstring("level=WARN"))
		Expect(buf.String()).To(ContainSubstring(`msg="request error"`))
	})

	It("skips successful quiet paths", func() {
		serve(router, http.MethodGet, "/health", "")
		Expect(buf.String()).To(BeEmpty())
	})
})

var _ = Describe("RateLimit", func() {
	var (
		limiter *IPRateLimiter
		router  *gin.Engine
		now     time.Time
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		limiter = NewIPRateLimiter(1, 2)
		limiter.now = func() time.Time { return now }

		router = gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/command", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	It("rejects requests past the burst with 429", func() {
		before := testutil.ToFloat64(metrics.RateLimitedTotal)

		Expect(serve(router, http.MethodGet, "/command", "10.0.0.1:1234").Code).To(Equal(http.StatusOK))
		Expect(serve(router, http.MethodGet, "/command", "10.0.0.1:1234").Code).To(Equal(http.StatusOK))
		w := serve(router, http.MethodGet, "/command", "10.0.0.1:1234")

		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Header().Get("Retry-After")).To(Equal("1"))
		Expect(testutil.ToFloat64(metrics.RateLimitedTotal)).To(Equal(before + 1))
	})

	It("keeps separate budgets per client", func() {
		for range 2 {
			serve(router, http.MethodGet, "/command", "10.0.0.1:1234")
		}
		Expect(serve(router, http.MethodGet, "/command", "10.0.0.2:1234").Code).To(Equal(http.StatusOK))
	})

	It("refills over time", func() {
		for range 3 {
			serve(router, http.MethodGet, "/command", "10.0.0.1:1234")
		}
		now = now.Add(time.Second)
		Expect(serve(router, http.MethodGet, "/command", "10.0.0.1:1234").Code).To(Equal(http.StatusOK))
	})

	It("drops idle clients", func() {
		limiter.Allow("10.0.0.1")
		now = now.Add(limiterIdleTTL + time.Minute)
		limiter.Allow("10.0.0.2")

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		Expect(limiter.clients).To(HaveLen(1))
		Expect(limiter.clients).To(HaveKey("10.0.0.2"))
	})
})
