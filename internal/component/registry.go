// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At boot the app collects
// every component's Migrations(), calls Init(rt) with the shared Runtime,
// and then lets each component add its routes to the one app router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes()
// adds handlers to the shared router; components must not mount
// sub-routers at "/", which chi rejects when done twice:
//
//	func (c *Component) Routes(r chi.Router) {
//		r.Get("/api/things", c.list)
//		r.With(c.gate.RequireActive).Post("/api/things", c.create)
//	}
type Component interface {
	Name() string
	Migrations() []string
	Init(rt *Runtime) error
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second
// registration under the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so boot order
// and migration order are stable.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Migrations concatenates the DDL of every registered component.
func Migrations() []string {
	var out []string
	for _, c := range All() {
		out = append(out, c.Migrations()...)
	}
	return out
}
