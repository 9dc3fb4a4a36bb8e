// components/generate/generate_test.go
//
// Run: go test ./components/generate -v

package generate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/entitlement"
	gen "github.com/yanizio/sitesmith/internal/generate"
)

type activeStore struct{}

func (activeStore) ByUser(_ context.Context, u string) (*entitlement.Record, error) {
	return &entitlement.Record{UserID: u, Status: entitlement.StatusActive}, nil
}
func (activeStore) ByCustomer(context.Context, string) (*entitlement.Record, error) {
	return nil, entitlement.ErrNotFound
}
func (activeStore) Upsert(context.Context, *entitlement.Record) error { return nil }

func newRouter(t *testing.T, upstream http.HandlerFunc) http.Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	cat, err := gen.LoadCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	c := &Component{}
	_ = c.Init(&component.Runtime{
		Generator: gen.New(srv.URL, "test-model", 0, 5*time.Second, cat),
		Gate:      entitlement.NewGate(activeStore{}, []string{"/builder"}, "/login", "/billing"),
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(auth.WithCaller(r.Context(), &auth.Caller{UserID: "u1"}))
			next.ServeHTTP(w, r)
		})
	})
	c.Routes(r)
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body)))
	return rec
}

func TestGenerateReturnsDocument(t *testing.T) {
	h := newRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<h1>Hello</h1>"}}]}`))
	})

	rec := post(h, `{"apiKey":"sk-1","prompt":"a bakery","template":"landing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d %s", rec.Code, rec.Body)
	}
	var out struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.HTML, "<!DOCTYPE html>") || !strings.Contains(out.HTML, "<h1>Hello</h1>") {
		t.Fatalf("html %q", out.HTML)
	}
}

func TestGenerateValidation(t *testing.T) {
	h := newRouter(t, func(http.ResponseWriter, *http.Request) { t.Error("upstream called") })

	for _, body := range []string{
		`{"prompt":"x"}`,
		`{"apiKey":"k"}`,
		`{"apiKey":"k","prompt":"x","template":"ghost"}`,
	} {
		if rec := post(h, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: code %d", body, rec.Code)
		}
	}
}

func TestGenerateUpstreamMessagePassesThrough(t *testing.T) {
	h := newRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})

	rec := post(h, `{"apiKey":"k","prompt":"x"}`)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Rate limit reached") {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
}

func TestTemplatesHidePrompts(t *testing.T) {
	h := newRouter(t, func(http.ResponseWriter, *http.Request) {})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"landing"`) {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "prompt") {
		t.Fatalf("prompt leaked: %s", rec.Body)
	}
}
