// internal/generate/catalog.go
//
// Template catalog: the starting points offered in the builder.
//
// Context
//   Each template is a named prompt prefix.  The catalog is a YAML list,
//   either the embedded default or a file named by `templates.catalog_path`.
//   It is parsed once at boot and read-only afterwards.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package generate

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Template is one catalog entry.
type Template struct {
	ID          string `yaml:"id"          json:"id"`
	Name        string `yaml:"name"        json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt"      json:"-"`
}

// Catalog is an ordered, read-only template list.
type Catalog struct {
	items []Template
	byID  map[string]*Template
}

// ErrUnknownTemplate is returned by Lookup for ids not in the catalog.
var ErrUnknownTemplate = errors.New("unknown template")

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// LoadCatalog reads path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML list and enforces unique, well-formed ids.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var items []Template
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{items: items, byID: make(map[string]*Template, len(items))}
	for i := range c.items {
		t := &c.items[i]
		t.ID = strings.TrimSpace(t.ID)
		if !idPattern.MatchString(t.ID) {
			return nil, fmt.Errorf("catalog entry %d: invalid id %q", i, t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, t.ID)
		}
		if strings.TrimSpace(t.Prompt) == "" {
			return nil, fmt.Errorf("catalog entry %q: prompt is required", t.ID)
		}
		c.byID[t.ID] = t
	}
	return c, nil
}

// List returns the entries in file order.
func (c *Catalog) List() []Template {
	out := make([]Template, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, ErrUnknownTemplate
	}
	return *t, nil
}
