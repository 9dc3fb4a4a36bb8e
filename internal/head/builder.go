// internal/head/builder.go
//
// The Builder collects everything that belongs inside a <head> element.
// It is scoped to one render: dashboard pages push tags into it before the
// layout executes, and the generator uses it to wrap model fragments into
// a complete document.
//
// Features
// --------
//   - SetTitle          – single <title> tag (last call wins).
//   - Meta, Link, Style – arbitrary tags with deduplication.
//   - Head              – every collected tag, ready for a layout.
//   - Wrap              – a full HTML5 document around a body fragment.
package head

import (
	"html/template"
	"strings"
	"sync"
)

// Builder is safe for concurrent use; typical use is one goroutine per
// render.
type Builder struct {
	mu sync.Mutex

	title  string
	metas  []string
	links  []string
	styles []string

	seen map[string]struct{}
}

// New returns a builder preloaded with the charset and viewport tags every
// page needs.
func New() *Builder {
	b := &Builder{seen: make(map[string]struct{})}
	b.Meta(`<meta charset="utf-8">`)
	b.Meta(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	return b
}

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// Title returns a fully formed <title> tag or an empty string.
func (b *Builder) Title() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.title == "" {
		return ""
	}
	return template.HTML("<title>" + template.HTMLEscapeString(b.title) + "</title>")
}

// Meta, Link, and Style take pre-built trusted tags.
func (b *Builder) Meta(tag string)  { b.add("meta:"+tag, &b.metas, tag) }
func (b *Builder) Link(tag string)  { b.add("link:"+tag, &b.links, tag) }
func (b *Builder) Style(css string) { b.add("style:"+css, &b.styles, "<style>"+css+"</style>") }

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// Head returns metas, title, links, and styles in that order.
func (b *Builder) Head() template.HTML {
	title := b.Title()

	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, m := range b.metas {
		sb.WriteString(m)
	}
	sb.WriteString(string(title))
	for _, l := range b.links {
		sb.WriteString(l)
	}
	for _, s := range b.styles {
		sb.WriteString(s)
	}
	return template.HTML(sb.String())
}

// Wrap places body inside a complete HTML5 document built from the
// collected head.  body is trusted markup and is not escaped.
func (b *Builder) Wrap(body string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>")
	sb.WriteString(string(b.Head()))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}
