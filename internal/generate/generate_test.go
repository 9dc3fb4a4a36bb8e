// internal/generate/generate_test.go
//
// Run: go test ./internal/generate -v

package generate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

/*──────────────────────────── document ────────────────────────────────────*/

func TestEnsureDocument(t *testing.T) {
	cases := []struct {
		name, in      string
		prefix, want  string
		wrapped       bool
	}{
		{"full doc kept", "<!DOCTYPE html><html><body>x</body></html>", "<!DOCTYPE html><html>", "", false},
		{"doctype added", "<html><body>x</body></html>", "<!DOCTYPE html>\n<html>", "", false},
		{"fenced doc", "Here you go:\n```html\n<html><body>y</body></html>\n```\nEnjoy!", "<!DOCTYPE html>\n<html><body>y", "", false},
		{"fragment wrapped", "<h1>Hello</h1>", "<!DOCTYPE html>", "<h1>Hello</h1>", true},
		{"fenced fragment", "```\n<section>z</section>\n```", "<!DOCTYPE html>", "<section>z</section>", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EnsureDocument(tc.in, "Title")
			if !strings.HasPrefix(got, tc.prefix) {
				t.Fatalf("prefix: got %q", got)
			}
			if strings.Contains(got, "```") {
				t.Fatalf("fence left in %q", got)
			}
			if tc.wrapped {
				if !strings.Contains(got, "<title>Title</title>") || !strings.Contains(got, tc.want) {
					t.Fatalf("not wrapped: %q", got)
				}
			}
		})
	}
}

/*──────────────────────────── catalog ─────────────────────────────────────*/

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c.List()) == 0 {
		t.Fatal("empty default catalog")
	}
	if _, err := c.Lookup("portfolio"); err != nil {
		t.Fatalf("portfolio missing: %v", err)
	}
	if _, err := c.Lookup("nope"); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseCatalogRejects(t *testing.T) {
	bad := map[string]string{
		"duplicate": "- {id: a, prompt: x}\n- {id: a, prompt: y}\n",
		"bad id":    "- {id: 'A B', prompt: x}\n",
		"no prompt": "- {id: a}\n",
	}
	for name, raw := range bad {
		if _, err := ParseCatalog([]byte(raw)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

/*──────────────────────────── client ──────────────────────────────────────*/

func TestGenerateSendsKeyAndWraps(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotReq)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```html\\n<h1>Bakery</h1>\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	cat, _ := LoadCatalog("")
	g := New(srv.URL+"/", "test-model", 100, 5*time.Second, cat)

	html, err := g.Generate(context.Background(), Request{APIKey: "sk-test", Prompt: "a bakery", Template: "restaurant"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Fatalf("request %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "restaurant website") ||
		!strings.HasSuffix(gotReq.Messages[1].Content, "a bakery") {
		t.Errorf("template prompt not prefixed: %q", gotReq.Messages[1].Content)
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") || !strings.Contains(html, "<h1>Bakery</h1>") {
		t.Errorf("html %q", html)
	}
	if !strings.Contains(html, "<title>Restaurant</title>") {
		t.Errorf("title not from template: %q", html)
	}
}

func TestGenerateUpstreamErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-bad."}}`))
	}))
	defer srv.Close()

	g := New(srv.URL, "m", 0, time.Second, nil)
	_, err := g.Generate(context.Background(), Request{APIKey: "sk-bad", Prompt: "x"})

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %T %v", err, err)
	}
	if ue.Status != http.StatusUnauthorized || ue.Error() != "Incorrect API key provided: sk-bad." {
		t.Fatalf("ue = %+v", ue)
	}
}

func TestGenerateUnknownTemplateSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	g := New(srv.URL, "m", 0, time.Second, nil)
	if _, err := g.Generate(context.Background(), Request{APIKey: "k", Prompt: "x", Template: "ghost"}); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("upstream called")
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := New(srv.URL, "m", 0, time.Second, nil)
	if _, err := g.Generate(context.Background(), Request{APIKey: "k", Prompt: "x"}); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("err = %v", err)
	}
}
