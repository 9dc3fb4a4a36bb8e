package generate

import (
	"strings"

	"github.com/yanizio/sitesmith/internal/head"
)

const fence = "```"

// EnsureDocument coerces model output into a complete HTML document.
// Markdown code fences are removed; output that already has an <html>
// element gets a doctype if it lacks one; anything else is treated as a
// body fragment and wrapped.
func EnsureDocument(text, title string) string {
	doc := strings.TrimSpace(stripFences(text))

	lower := strings.ToLower(doc)
	if strings.Contains(lower, "<html") {
		if !strings.HasPrefix(lower, "<!doctype") {
			doc = "<!DOCTYPE html>\n" + doc
		}
		return doc
	}

	b := head.New()
	if title != "" {
		b.SetTitle(title)
	}
	return b.Wrap(doc)
}

// stripFences returns the text between the first opening fence line and
// the last closing fence.  Text without fences comes back unchanged.
func stripFences(s string) string {
	start := strings.Index(s, fence)
	if start < 0 {
		return s
	}
	rest := s[start+len(fence):]
	// Skip the info string ("html") on the opening line.
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return strings.TrimSuffix(strings.TrimSpace(rest), fence)
	}
	body := rest[nl+1:]
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return body
}
