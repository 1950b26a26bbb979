package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/CodingTam/requesthtml/pkg/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("RateLimiter", func() {
	It("rejects a client once its burst is spent", func() {
		// Given
		rl := NewRateLimiter(1, 2)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }
		h := rl.Middleware(ok)

		call := func(addr string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		// When / Then
		Expect(call("10.0.0.1:1000").Code).To(Equal(http.StatusOK))
		Expect(call("10.0.0.1:1001").Code).To(Equal(http.StatusOK))
		w := call("10.0.0.1:1002")
		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Body.String()).To(ContainSubstring("RATE_LIMITED"))
		Expect(call("10.0.0.2:1000").Code).To(Equal(http.StatusOK))

		now = now.Add(time.Second)
		Expect(call("10.0.0.1:1003").Code).To(Equal(http.StatusOK))
	})

	It("forgets idle clients", func() {
		rl := NewRateLimiter(1, 1)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		Expect(rl.Allow("a")).To(BeTrue())
		now = now.Add(limiterIdleTTL + time.Minute)
		Expect(rl.Allow("b")).To(BeTrue())

		Expect(rl.visitors).NotTo(HaveKey("a"))
		Expect(rl.visitors).To(HaveKey("b"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into the 500 envelope", func() {
		h := RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		w := httptest.NewRecorder()

		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("success", false))
		Expect(body).To(HaveKeyWithValue("code", "INTERNAL_ERROR"))
	})
})

var _ = Describe("RequestID", func() {
	It("keeps a caller supplied trace id", func() {
		var seen string
		h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = TraceIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(seen).To(Equal("trace-123"))
		Expect(w.Header().Get(TraceHeader)).To(Equal("trace-123"))
	})

	It("mints an id when the header is missing or oversized", func() {
		h := RequestID(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, strings.Repeat("x", maxTraceIDLen+1))
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Header().Get(TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight for an allowed origin", func() {
		h := CORS([]string{"http://dashboard.local"})(ok)
		req := httptest.NewRequest(http.MethodOptions, "/api/requests", nil)
		req.Header.Set("Origin", "http://dashboard.local")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://dashboard.local"))
		Expect(w.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("does not echo unknown origins", func() {
		h := CORS([]string{"http://dashboard.local"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
		req.Header.Set("Origin", "http://evil.local")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("masks secrets in bodies and headers", func() {
		var buf bytes.Buffer
		lg := slog.New(slog.NewJSONHandler(&buf, nil))
		h := LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"token":"abc.def.ghi"}`))
		}))
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
		req.Header.Set("Authorization", "Bearer abc")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Body.String()).To(ContainSubstring("abc.def.ghi"))
		out := buf.String()
		Expect(out).NotTo(ContainSubstring("admin123"))
		Expect(out).NotTo(ContainSubstring("abc.def.ghi"))
		Expect(out).NotTo(ContainSubstring("Bearer abc"))
		Expect(out).To(ContainSubstring("admin"))
	})

	It("filters nested JSON keys", func() {
		masked := filterBody([]byte(`{"user":{"name":"a","api_key":"k"},"items":[{"secret":"s"}]}`))

		Expect(masked).To(ContainSubstring(`"api_key":"[FILTERED]"`))
		Expect(masked).To(ContainSubstring(`"secret":"[FILTERED]"`))
		Expect(masked).To(ContainSubstring(`"name":"a"`))
	})
})

var _ = Describe("HTTPMetrics", func() {
	It("labels requests by route pattern", func() {
		reg := prometheus.NewRegistry()
		m := NewHTTPMetrics(reg)
		r := chi.NewRouter()
		r.Use(m.Middleware)
		r.Get("/api/requests/{id}/history", ok)

		for _, id := range []string{"1", "REQ2"} {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/requests/"+id+"/history", nil))
		}

		metric := &dto.Metric{}
		Expect(m.Requests().WithLabelValues(http.MethodGet, "/api/requests/{id}/history", "200").Write(metric)).To(Succeed())
		Expect(metric.GetCounter().GetValue()).To(Equal(2.0))
	})
})
