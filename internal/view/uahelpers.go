// internal/view/uahelpers.go
//
// User-Agent template helpers.  Each takes the *Page so templates can write
// {{ if isMobile . }}…{{ end }} without reaching into request internals.
// A page rendered outside the requestinfo middleware gets zero values.
package view

import (
	"html/template"

	"github.com/yanizio/sitesmith/internal/ua"
)

func uaFuncMap() template.FuncMap {
	info := func(p *Page) ua.Info {
		if p == nil || p.Info == nil {
			return ua.Info{}
		}
		return p.Info.UA
	}
	return template.FuncMap{
		"browser":  func(p *Page) string { return info(p).Browser },
		"os":       func(p *Page) string { return info(p).OS },
		"device":   func(p *Page) string { return info(p).Device },
		"isMobile": func(p *Page) bool { return info(p).Device == ua.DeviceMobile },
		"isBot":    func(p *Page) bool { return info(p).IsBot },
	}
}
