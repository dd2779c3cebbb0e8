package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pizzeria/api/internal/config"
	"github.com/pizzeria/api/internal/database"
	mw "github.com/pizzeria/api/internal/middleware"
	"github.com/pizzeria/api/internal/router"
	"github.com/pizzeria/api/internal/storage"
	"github.com/pizzeria/api/internal/ws"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, limiter *mw.RateLimiter) (http.Handler, string) {
	t.Helper()

	dir := t.TempDir()
	photos, err := storage.NewDiskStore(dir, "http://localhost:8081")
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:      "router-test-secret",
		AllowedOrigins: []string{"http://localhost:19006"},
	}
	r := router.New(cfg, router.Deps{
		Queries: database.New(nil),
		Hub:     ws.NewHub(),
		Photos:  photos,
		Limiter: limiter,
		Logger:  zap.NewNop(),
	})
	return r, dir
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	rr := serve(r, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body: %s", rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type: %q", rr.Header().Get("Content-Type"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	serve(r, httptest.NewRequest("GET", "/health", nil))

	rr := serve(r, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "pizzeria_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	for _, path := range []string{"/me", "/pizzas", "/orders", "/notifications"} {
		rr := serve(r, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %d, want 401", path, rr.Code)
		}
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	rr := serve(r, httptest.NewRequest("GET", "/ws", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rr.Code)
	}
}

func TestPhotosServedFromDisk(t *testing.T) {
	r, dir := newTestRouter(t, nil)
	if err := os.WriteFile(filepath.Join(dir, "a.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	rr := serve(r, httptest.NewRequest("GET", "/photos/a.png", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "png-bytes" {
		t.Errorf("body: got %q", body)
	}

	rr = serve(r, httptest.NewRequest("GET", "/photos/", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("directory listing: got %d, want 404", rr.Code)
	}
}

func TestAuthRoutesRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, mw.NewRateLimiter(1, 1))

	send := func() int {
		req := httptest.NewRequest("POST", "/auth/sign-in", strings.NewReader("{"))
		req.RemoteAddr = "203.0.113.9:4000"
		return serve(r, req).Code
	}
	if code := send(); code != http.StatusBadRequest {
		t.Fatalf("first request: got %d, want 400", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want 429", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/orders", nil)
	req.Header.Set("Origin", "http://localhost:19006")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := serve(r, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:19006" {
		t.Errorf("allow origin: got %q", got)
	}
}
