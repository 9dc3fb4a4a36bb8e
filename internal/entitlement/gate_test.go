// internal/entitlement/gate_test.go
//
// Gate behavior across subscription states, anonymity, and store failure.
//
// Run: go test ./internal/entitlement -v

package entitlement

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/yanizio/sitesmith/internal/auth"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	rec   *Record
	err   error
	calls int
}

func (f *fakeStore) ByUser(context.Context, string) (*Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.rec == nil {
		return nil, ErrNotFound
	}
	return f.rec, nil
}

func (f *fakeStore) ByCustomer(context.Context, string) (*Record, error) { return nil, ErrNotFound }
func (f *fakeStore) Upsert(context.Context, *Record) error              { return nil }

func ptr(t time.Time) *time.Time { return &t }

func newTestGate(s Store) *Gate {
	g := NewGate(s, []string{"/dashboard", "/builder/"}, "/login", "/billing")
	g.now = func() time.Time { return fixedNow }
	return g
}

func serve(g *Gate, target string, caller *auth.Caller) *httptest.ResponseRecorder {
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if caller != nil {
		r = r.WithContext(auth.WithCaller(r.Context(), caller))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestGateDecisions(t *testing.T) {
	user := &auth.Caller{UserID: "user-1"}

	cases := []struct {
		name     string
		rec      *Record
		err      error
		caller   *auth.Caller
		wantCode int
		wantPath string
	}{
		{"anonymous", nil, nil, nil, http.StatusFound, "/login"},
		{"no row", nil, nil, user, http.StatusFound, "/billing"},
		{"active future end", &Record{Status: StatusActive, CurrentPeriodEnd: ptr(fixedNow.Add(time.Hour))}, nil, user, http.StatusOK, ""},
		{"active past end", &Record{Status: StatusActive, CurrentPeriodEnd: ptr(fixedNow.Add(-time.Hour))}, nil, user, http.StatusFound, "/billing"},
		{"active end equals now", &Record{Status: StatusActive, CurrentPeriodEnd: ptr(fixedNow)}, nil, user, http.StatusFound, "/billing"},
		{"trialing no end", &Record{Status: StatusTrialing}, nil, user, http.StatusOK, ""},
		{"canceled future end", &Record{Status: StatusCanceled, CurrentPeriodEnd: ptr(fixedNow.Add(72 * time.Hour))}, nil, user, http.StatusFound, "/billing"},
		{"past_due future end", &Record{Status: StatusPastDue, CurrentPeriodEnd: ptr(fixedNow.Add(72 * time.Hour))}, nil, user, http.StatusFound, "/billing"},
		{"inactive no end", &Record{Status: StatusInactive}, nil, user, http.StatusFound, "/billing"},
		{"store error fails closed", nil, errors.New("db down"), user, http.StatusFound, "/billing"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGate(&fakeStore{rec: tc.rec, err: tc.err})
			w := serve(g, "/dashboard/sites?tab=2", tc.caller)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
			if tc.wantPath == "" {
				return
			}
			loc, err := url.Parse(w.Header().Get("Location"))
			if err != nil {
				t.Fatalf("bad Location: %v", err)
			}
			if loc.Path != tc.wantPath {
				t.Fatalf("redirect path = %q, want %q", loc.Path, tc.wantPath)
			}
			if got := loc.Query().Get("next"); got != "/dashboard/sites?tab=2" {
				t.Fatalf("next = %q", got)
			}
		})
	}
}

func TestGateSkipsUnprotectedPaths(t *testing.T) {
	s := &fakeStore{}
	g := newTestGate(s)

	for _, p := range []string{"/", "/login", "/billing", "/dashboards", "/api/sites"} {
		w := serve(g, p, &auth.Caller{UserID: "user-1"})
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", p, w.Code)
		}
	}
	if s.calls != 0 {
		t.Fatalf("unprotected paths triggered %d lookups", s.calls)
	}
}

func TestGateProtectsTrailingSlashPrefix(t *testing.T) {
	g := newTestGate(&fakeStore{})
	if !g.Protected("/builder") || !g.Protected("/builder/abc") {
		t.Fatal("builder prefix not protected")
	}
}

func TestGateSingleLookup(t *testing.T) {
	s := &fakeStore{rec: &Record{Status: StatusActive}}
	serve(newTestGate(s), "/dashboard", &auth.Caller{UserID: "user-1"})
	if s.calls != 1 {
		t.Fatalf("lookups = %d, want 1", s.calls)
	}
}

func TestRequireActive(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name   string
		rec    *Record
		caller *auth.Caller
		want   int
	}{
		{"anonymous", nil, nil, http.StatusUnauthorized},
		{"unpaid", &Record{Status: StatusCanceled}, &auth.Caller{UserID: "u"}, http.StatusPaymentRequired},
		{"paid", &Record{Status: StatusActive}, &auth.Caller{UserID: "u"}, http.StatusOK},
	}
	for _, tc := range cases {
		g := newTestGate(&fakeStore{rec: tc.rec})
		r := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		if tc.caller != nil {
			r = r.WithContext(auth.WithCaller(r.Context(), tc.caller))
		}
		w := httptest.NewRecorder()
		g.RequireActive(ok).ServeHTTP(w, r)
		if w.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}
