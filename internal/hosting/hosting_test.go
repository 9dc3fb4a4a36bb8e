package hosting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/site"
)

type fakeSource struct {
	byHost map[string]string
	byID   map[string]string
	err    error
}

func (f *fakeSource) PublishedByID(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if h, ok := f.byID[id]; ok {
		return h, nil
	}
	return "", site.ErrNotFound
}

func (f *fakeSource) PublishedByHost(_ context.Context, host string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if h, ok := f.byHost[host]; ok {
		return h, nil
	}
	return "", site.ErrNotFound
}

func TestCanonicalHost(t *testing.T) {
	for in, want := range map[string]string{
		"Example.COM":       "example.com",
		"example.com:8443":  "example.com",
		"example.com.":      "example.com",
		"[::1]:8080":        "::1",
		" localhost:8080 ":  "localhost",
	} {
		if got := CanonicalHost(in); got != want {
			t.Errorf("%q → %q, want %q", in, got, want)
		}
	}
}

func TestDispatch(t *testing.T) {
	src := &fakeSource{byHost: map[string]string{"shop.example.com": "<p>shop</p>"}}
	s := New(src, []string{"app.example.com"})
	app := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := s.Dispatch(app)

	cases := []struct {
		method, host string
		code         int
		body         string
	}{
		{http.MethodGet, "app.example.com:443", http.StatusTeapot, ""},
		{http.MethodGet, "SHOP.example.com", http.StatusOK, "<p>shop</p>"},
		{http.MethodHead, "shop.example.com", http.StatusOK, ""},
		{http.MethodPost, "shop.example.com", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "unknown.example.com", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/", nil)
		req.Host = tc.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.code {
			t.Errorf("%s %s: code %d, want %d", tc.method, tc.host, rec.Code, tc.code)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Errorf("%s %s: body %q", tc.method, tc.host, rec.Body.String())
		}
	}
}

func TestServeByID(t *testing.T) {
	src := &fakeSource{byID: map[string]string{"s1": "<h1>one</h1>"}}
	s := New(src, nil)
	r := chi.NewRouter()
	r.Get("/s/{id}", s.ServeByID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/s1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>one</h1>" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", rec.Code)
	}

	src.err = errors.New("db down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s/s1", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("error: %d", rec.Code)
	}
}

// gatedSource holds its first read open until release is closed.
type gatedSource struct {
	mu      sync.Mutex
	doc     string
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) read() (string, error) {
	g.mu.Lock()
	g.calls++
	first, doc := g.calls == 1, g.doc
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	return doc, nil
}

func (g *gatedSource) PublishedByID(context.Context, string) (string, error)   { return g.read() }
func (g *gatedSource) PublishedByHost(context.Context, string) (string, error) { return g.read() }

func (g *gatedSource) set(doc string) {
	g.mu.Lock()
	g.doc = doc
	g.mu.Unlock()
}

func TestInvalidateSeparatesInFlightReads(t *testing.T) {
	src := &gatedSource{doc: "OLD", entered: make(chan struct{}), release: make(chan struct{})}
	s := New(src, []string{"app.example.com"})
	h := s.Dispatch(http.NotFoundHandler())

	get := func() string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "shop.example.com"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Body.String()
	}

	early := make(chan string, 1)
	go func() { early <- get() }()
	<-src.entered

	src.set("NEW")
	s.Invalidate()

	late := make(chan string, 1)
	go func() { late <- get() }()
	select {
	case got := <-late:
		if got != "NEW" {
			t.Fatalf("after invalidate: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request after invalidate joined the earlier read")
	}

	close(src.release)
	if got := <-early; got != "OLD" {
		t.Fatalf("earlier read: %q", got)
	}
	if got := get(); got != "NEW" {
		t.Fatalf("later read: %q", got)
	}
}
