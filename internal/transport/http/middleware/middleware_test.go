package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) resp.ErrorBody {
	t.Helper()
	var b resp.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("body %q: %v", w.Body.String(), err)
	}
	return b
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	rid := w.Header().Get(KeyRequestID)
	if rid == "" || rid != w.Body.String() {
		t.Fatalf("generated id = %q, body = %q", rid, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	if got := serve(r, req).Header().Get(KeyRequestID); got != "abc-123" {
		t.Errorf("echoed id = %q", got)
	}
}

func TestProcessTime_SetBeforeBody(t *testing.T) {
	r := gin.New()
	r.Use(ProcessTime())
	r.GET("/json", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/empty", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, p := range []string{"/json", "/empty"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Header().Get(HeaderProcessTime) == "" {
			t.Errorf("%s: %s header missing", p, HeaderProcessTime)
		}
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(1, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		rq := httptest.NewRequest(http.MethodGet, "/x", nil)
		rq.RemoteAddr = ip + ":40000"
		return rq
	}
	if w := serve(r, req("192.0.2.1")); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	w := serve(r, req("192.0.2.1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if b := decodeErr(t, w); b.Code != resp.CodeTooManyRequests {
		t.Errorf("body code = %d", b.Code)
	}
	if w := serve(r, req("192.0.2.2")); w.Code != http.StatusOK {
		t.Errorf("other ip = %d, want its own bucket", w.Code)
	}
}

func TestMaxBodyBytes_RejectsDeclaredLength(t *testing.T) {
	called := false
	r := gin.New()
	r.Use(MaxBodyBytes(10))
	r.POST("/x", func(c *gin.Context) { called = true })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 100))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if called {
		t.Error("handler ran for an oversized body")
	}
}

func TestTimeout_AnswersWhenHandlerWroteNothing(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
}

func TestConcurrencyLimit_BusyWhenFull(t *testing.T) {
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	entered, release, done := make(chan struct{}), make(chan struct{}), make(chan struct{})
	r.GET("/hold", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	go func() {
		defer close(done)
		serve(r, httptest.NewRequest(http.MethodGet, "/hold", nil))
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w := serve(r, httptest.NewRequest(http.MethodGet, "/hold", nil).WithContext(ctx))
	close(release)
	<-done

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestRecovery_GenericBody(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("db exploded") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Error("panic value leaked to the client")
	}
	if b := decodeErr(t, w); b.Code != resp.CodeServerError {
		t.Errorf("body = %+v", b)
	}
}

func TestCORS(t *testing.T) {
	preflight := func(h gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(h)
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		return serve(r, req)
	}

	w := preflight(CORS([]string{"*"}), "https://app.example")
	if w.Code != http.StatusNoContent {
		t.Fatalf("wildcard preflight = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow-origin = %q, want the echoed origin", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed")
	}

	w = preflight(CORS([]string{"https://a.example"}), "https://b.example")
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign origin = %d, want 403", w.Code)
	}
}

func TestMetrics_CountsByRoute(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	serve(r, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/users/2", nil))

	body := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	want := `http_requests_total{method="GET",path="/users/:id",status="200"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output lacks %s\n%s", want, body)
	}
}

func TestAccessLog_LevelsAndMasking(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok?token=abc&q=1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	ok, missing := entries[0], entries[1]
	if ok.Level != zapcore.InfoLevel || missing.Level != zapcore.WarnLevel {
		t.Errorf("levels = %v, %v", ok.Level, missing.Level)
	}
	fields := ok.ContextMap()
	if fields["rid"] == "" {
		t.Error("request id not logged")
	}
	q, _ := fields["query"].(map[string][]string)
	if q == nil || q["token"][0] != "****" || q["q"][0] != "1" {
		t.Errorf("query = %#v", fields["query"])
	}
}
