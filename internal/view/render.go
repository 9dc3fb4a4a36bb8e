// internal/view/render.go
//
// Central view engine for the dashboard pages: template lookup, theme
// override chain, and func-map injection.
//
// Public helpers
// --------------
//   - New      – parse every page once at boot.
//   - Render   – write a page to an http.ResponseWriter.
//
// Lookup precedence (first hit wins):
//   1. <root>/themes/<theme>/templates/<name>.html
//   2. embedded templates/<name>.html
//
// The layout ("layout.html") follows the same chain.  Every page file
// defines a "content" block that the layout executes.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/head"
	"github.com/yanizio/sitesmith/internal/requestinfo"
)

//go:embed templates/*.html
var embedded embed.FS

// Pages rendered by the app.
var Pages = []string{"landing", "login", "billing", "dashboard", "builder"}

// Page is the data every template receives.
type Page struct {
	Head   *head.Builder
	Caller *auth.Caller
	Info   *requestinfo.RequestInfo
	Data   map[string]any
}

// Renderer holds one parsed set per page.  It is read-only after New.
type Renderer struct {
	sets map[string]*template.Template
}

// New parses the layout and every page, preferring files in themeDir.
// An empty or missing themeDir means embedded templates only.
func New(themeDir string) (*Renderer, error) {
	layout, err := read(themeDir, "layout")
	if err != nil {
		return nil, err
	}

	r := &Renderer{sets: make(map[string]*template.Template, len(Pages))}
	for _, name := range Pages {
		src, err := read(themeDir, name)
		if err != nil {
			return nil, err
		}
		t, err := template.New("layout").Funcs(funcMap()).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.New(name).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.sets[name] = t
	}
	return r, nil
}

// read returns the theme override for name or the embedded copy.
func read(themeDir, name string) ([]byte, error) {
	file := name + ".html"
	if themeDir != "" {
		b, err := os.ReadFile(filepath.Join(themeDir, file))
		if err == nil {
			return b, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return fs.ReadFile(embedded, "templates/"+file)
}

// Render executes page name into a buffer, then writes it with status.
// Buffering keeps a half-rendered page from reaching the browser.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p *Page) error {
	t, ok := r.sets[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	if p.Head == nil {
		p.Head = head.New()
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func funcMap() template.FuncMap {
	fm := template.FuncMap{"dict": dict}
	for k, v := range uaFuncMap() {
		fm[k] = v
	}
	return fm
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
