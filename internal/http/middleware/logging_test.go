package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// captureLogger swaps the global logger for one writing JSON lines to a buffer.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessLine decodes the last log line in buf.
func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func loggedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	return r
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen any
	r.GET("/health", func(c *gin.Context) {
		seen, _ = c.Get(requestIDKey)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
	}{
		{"generated", ""},
		{"canonical header", "Z-REQ-123"},
		{"lowercase header", "abc-123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tc.header != "" {
				req.Header.Set(strings.ToLower(requestIDHeader), tc.header)
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || seen != got {
				t.Fatalf("header %q, context %v", got, seen)
			}
			if tc.header != "" && got != tc.header {
				t.Fatalf("want propagated %q, got %q", tc.header, got)
			}
		})
	}
}

func TestLogger_LevelByOutcome(t *testing.T) {
	r := loggedEngine()
	r.GET("/seekers/:seekerId/searches", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	cases := []struct {
		path      string
		wantLevel string
		wantPath  string
	}{
		{"/seekers/s1/searches", "info", "/seekers/:seekerId/searches"},
		{"/missing", "warn", "/missing"},
		{"/fail", "error", "/fail"},
		{"/err", "error", "/err"},
	}
	for _, tc := range cases {
		buf := captureLogger(t)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

		line := accessLine(t, buf)
		if line["level"] != tc.wantLevel || line["path"] != tc.wantPath {
			t.Errorf("GET %s logged level=%v path=%v, want %s %s", tc.path, line["level"], line["path"], tc.wantLevel, tc.wantPath)
		}
		if line["request_id"] == "" || line["status"] == nil {
			t.Errorf("GET %s missing request_id/status: %v", tc.path, line)
		}
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestLogger_RedactsQueryAndAddsTraceID(t *testing.T) {
	buf := captureLogger(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "req")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(RequestID(), Logger())
	r.GET("/seekers/:seekerId/searches", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/seekers/s1/searches?contact=%2B8801712345678&email=a@b.com&page=2", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "8801712345678") || strings.Contains(out, "a@b.com") {
		t.Fatalf("PII leaked into access log:\n%s", out)
	}
	line := accessLine(t, buf)
	q, _ := line["query"].(string)
	if !strings.Contains(q, "[REDACTED:email]") || !strings.Contains(q, "page=2") {
		t.Fatalf("query = %q", q)
	}
	if tid, _ := line["trace_id"].(string); len(tid) != 32 {
		t.Fatalf("trace_id = %v", line["trace_id"])
	}
}

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"page=1&page_size=20":    "page=1&page_size=20",
		"phone=+880 1712-345678": "phone=[REDACTED:phone]",
		"to=ops@example.org":     "to=[REDACTED:email]",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Fatalf("redact(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRecovery(t *testing.T) {
	r := loggedEngine()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/panic-after-write", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	t.Run("before write yields JSON 500", func(t *testing.T) {
		buf := captureLogger(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json body: %v", err)
		}
		if body["code"] != "internal_error" || body["request_id"] != w.Header().Get(requestIDHeader) {
			t.Fatalf("unexpected body: %v", body)
		}
		if !strings.Contains(buf.String(), "panic recovered") {
			t.Fatalf("panic not logged:\n%s", buf.String())
		}
	})

	t.Run("after write keeps the partial body", func(t *testing.T) {
		captureLogger(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic-after-write", nil))

		if strings.Contains(w.Body.String(), "internal_error") {
			t.Fatalf("JSON envelope written after partial response: %q", w.Body.String())
		}
	})
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, withLogger := range []bool{false, true} {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		if withLogger {
			r.Use(Logger())
		}
		r.GET("/use", func(c *gin.Context) {
			lg := LoggerFrom(c)
			lg.Info().Msg("handler line")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

		first := strings.SplitN(buf.String(), "\n", 2)[0]
		if !strings.Contains(first, `"message":"handler line"`) {
			t.Fatalf("withLogger=%v: handler line missing:\n%s", withLogger, buf.String())
		}
		if got := strings.Contains(first, `"request_id"`); got != withLogger {
			t.Fatalf("withLogger=%v: request_id present=%v", withLogger, got)
		}
	}
}

func TestHelpers_asString_and_truncate(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" || asString(nil) != "" {
		t.Fatalf("asString")
	}
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
