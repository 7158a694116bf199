package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/core/migrate"
	"go-gin-gorm-users/internal/migrations"
	"go-gin-gorm-users/internal/transport/http/ez"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.App{
			Name:    "Users API",
			Version: "1.0.0",
			HTTP: config.HTTP{
				CORSOrigins:       []string{"*"},
				RateLimitRPS:      1000,
				RateLimitBurst:    1000,
				MaxInflight:       10,
				MaxBodyBytes:      1 << 20,
				RequestTimeoutSec: 5,
			},
		},
		DB: config.DB{Name: "test"},
	}
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "api.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	m, err := migrate.New(db, nil, migrations.All()...)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Up(context.Background()); err != nil {
		t.Fatal(err)
	}
	return NewAPIEngine(Deps{Log: zap.NewNop(), DB: db, Config: testConfig()})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoot(t *testing.T) {
	w := get(newEngine(t), "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"message": "Welcome to Users API",
		"version": "1.0.0",
		"docs":    "/docs",
		"redoc":   "/redoc",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %q, want %q", k, body[k], v)
		}
	}
	if w.Header().Get(mdw.KeyRequestID) == "" || w.Header().Get(mdw.HeaderProcessTime) == "" {
		t.Error("request id or process time header missing")
	}
}

func TestHealthAndReady(t *testing.T) {
	r := newEngine(t)

	w := get(r, "/health")
	var health struct {
		Status    string `json:"status"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || health.Status != "healthy" || health.Timestamp == 0 {
		t.Errorf("health = %d %+v", w.Code, health)
	}

	if w := get(r, "/ready"); w.Code != http.StatusOK {
		t.Errorf("ready = %d %s", w.Code, w.Body.String())
	}
}

func TestUsersMountedWithAndWithoutSlash(t *testing.T) {
	r := newEngine(t)
	for _, p := range []string{"/api/v1/users/", "/api/v1/users"} {
		w := get(r, p)
		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
			t.Errorf("GET %s = %d %s", p, w.Code, w.Body.String())
		}
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	w := get(newEngine(t), "/nope")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"code":404`) {
		t.Errorf("404 = %d %s", w.Code, w.Body.String())
	}
}

func TestDocsListEveryUserOperation(t *testing.T) {
	r := newEngine(t)
	w := get(r, "/openapi.json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"/api/v1/users/":     {"get", "post"},
		"/api/v1/users/{id}": {"get", "put", "delete"},
	}
	for path, methods := range want {
		for _, m := range methods {
			if _, ok := doc.Paths[path][m]; !ok {
				t.Errorf("%s %s missing from docs", m, path)
			}
		}
	}

	for _, p := range []string{"/docs", "/redoc"} {
		if w := get(r, p); w.Code != http.StatusOK {
			t.Errorf("%s = %d", p, w.Code)
		}
	}
}

func TestMetricsExposed(t *testing.T) {
	r := newEngine(t)
	get(r, "/health")
	body := get(r, "/metrics").Body.String()
	for _, want := range []string{"http_requests_total", "go_goroutines", "go_sql_open_connections"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics lack %s", want)
		}
	}
}

type pingModule struct{ order *[]string }

func (p pingModule) MountAPI(api ez.EZ) { *p.order = append(*p.order, "ping") }

type firstModule struct{ order *[]string }

func (f firstModule) MountAPI(api ez.EZ) { *f.order = append(*f.order, "first") }

func (firstModule) Priority() int { return 1 }

func TestRegistryMountsByPriority(t *testing.T) {
	var order []string
	var reg Registry
	reg.Register(pingModule{&order}, firstModule{&order})
	reg.MountAll(ez.EZ{})
	if len(order) != 2 || order[0] != "first" || order[1] != "ping" {
		t.Errorf("order = %v", order)
	}
}
