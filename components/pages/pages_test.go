// components/pages/pages_test.go
//
// Run: go test ./components/pages -v

package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/billing"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/config"
	"github.com/yanizio/sitesmith/internal/csrf"
	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/database"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/generate"
	"github.com/yanizio/sitesmith/internal/site"
	"github.com/yanizio/sitesmith/internal/view"
)

func newRouter(t *testing.T) (http.Handler, *site.Service) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenWithOptions(ctx, "sqlite3", ":memory:", database.Options{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var stmts []string
	stmts = append(stmts, site.Schema...)
	stmts = append(stmts, customdomain.Schema...)
	stmts = append(stmts, entitlement.Schema...)
	if err := database.Migrate(ctx, db, stmts); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	views, err := view.New("")
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	cat, err := generate.LoadCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	cfg := config.Defaults()
	cfg.Auth.SignInURL = "https://id.example.com/login"

	sites := site.NewService(site.NewRepository(db), nil)
	c := &Component{}
	_ = c.Init(&component.Runtime{
		Config:    &cfg,
		Views:     views,
		CSRF:      csrf.NewSigner("test-secret-0123456789", time.Hour),
		Sites:     sites,
		Domains:   customdomain.NewService(customdomain.NewRepository(db), nil, sites),
		Billing:   billing.NewService(nil, entitlement.NewRepository(db), billing.Options{}),
		Generator: generate.New("http://127.0.0.1:0", "m", 0, 0, cat),
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				r = r.WithContext(auth.WithCaller(r.Context(), &auth.Caller{UserID: id}))
			}
			next.ServeHTTP(w, r)
		})
	})
	c.Routes(r)
	return r, sites
}

func get(h http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLandingAndAssets(t *testing.T) {
	h, _ := newRouter(t)

	rec := get(h, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="description"`) {
		t.Fatalf("landing: %d", rec.Code)
	}
	if rec := get(h, "/assets/app.css", ""); rec.Code != http.StatusOK {
		t.Fatalf("asset: %d", rec.Code)
	}
}

func TestLoginHandOff(t *testing.T) {
	h, _ := newRouter(t)

	rec := get(h, "/login?next=/builder", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "https://id.example.com/login?next=%2Fbuilder" {
		t.Fatalf("anonymous: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = get(h, "/login?next=/builder", "u1")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/builder" {
		t.Fatalf("signed in: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = get(h, "/login?next=//evil.example.com", "u1")
	if rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("open redirect: %q", rec.Header().Get("Location"))
	}

	rec = get(h, "/login?stay=1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "id.example.com") {
		t.Fatalf("stay: %d", rec.Code)
	}
}

func TestBillingPage(t *testing.T) {
	h, _ := newRouter(t)

	rec := get(h, "/billing", "")
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "/login?next=") {
		t.Fatalf("anonymous: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := get(h, "/billing?next=/builder", "u1"); rec.Code != http.StatusOK {
		t.Fatalf("signed in: %d", rec.Code)
	}
}

func TestDashboardAndBuilder(t *testing.T) {
	h, sites := newRouter(t)
	rec, err := sites.Save(context.Background(), "u1", site.SaveInput{Template: "landing", Prompt: "a tea shop", HTML: "<p>tea</p>"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	page := get(h, "/dashboard", "u1")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), rec.ID) {
		t.Fatalf("dashboard: %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), `name="csrf-token"`) {
		t.Error("signed-in page missing csrf meta")
	}
	if strings.Contains(get(h, "/", "").Body.String(), `name="csrf-token"`) {
		t.Error("anonymous page carries csrf meta")
	}

	page = get(h, "/builder?site="+rec.ID, "u1")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "a tea shop") {
		t.Fatalf("builder: %d", page.Code)
	}

	// Someone else's id opens an empty builder.
	page = get(h, "/builder?site="+rec.ID, "u2")
	if page.Code != http.StatusOK || strings.Contains(page.Body.String(), "a tea shop") {
		t.Fatalf("foreign builder: %d", page.Code)
	}
}
