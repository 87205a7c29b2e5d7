package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByDonorOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var keys []string
	r.Use(func(c *gin.Context) {
		c.Next()
		keys = append(keys, KeyByDonorOrIP()(c))
	})
	r.PUT("/donors/:donorId/locations/:locationId", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/donors/d-7/locations/l1", "/health"} {
		method := http.MethodGet
		if path != "/health" {
			method = http.MethodPut
		}
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(keys) != 2 || keys[0] != "donor:d-7" || keys[1] != "ip:203.0.113.9" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestNewRateLimiter_BurstCoercion_AndBucketReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyByDonorOrIP()) // burst<=0 coerced to 1
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	lim := rl.limiter("k1")
	if lim == nil {
		t.Fatalf("expected limiter")
	}
	if got := rl.limiter("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
	if rl.limiter("k2") == lim {
		t.Fatalf("distinct keys must not share a bucket")
	}
}

func TestRateLimiter_Handler_Allow_Deny_And_Exempt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// rps=1, burst=1 -> first immediate request allowed, second denied
	rl := NewRateLimiter(1.0, 1, KeyByDonorOrIP(), "/health")

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request should be allowed, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate-limited, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected JSON body: %v", body)
	}

	// exempt route is served even though the client's bucket is empty
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("exempt request %d limited: %d", i, w.Code)
		}
	}
}
