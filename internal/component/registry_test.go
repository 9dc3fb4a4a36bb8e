package component

import (
	"testing"

	"github.com/go-chi/chi/v5"
)

type stub struct {
	name string
	ddl  []string
}

func (s stub) Name() string            { return s.name }
func (s stub) Migrations() []string    { return s.ddl }
func (s stub) Init(*Runtime) error     { return nil }
func (s stub) Routes(chi.Router)       {}

func TestRegistryOrderAndMigrations(t *testing.T) {
	mu.Lock()
	saved := registry
	registry = map[string]Component{}
	mu.Unlock()
	t.Cleanup(func() { mu.Lock(); registry = saved; mu.Unlock() })

	Register(stub{name: "sites", ddl: []string{"B"}})
	Register(stub{name: "billing", ddl: []string{"A"}})
	Register(stub{name: "pages"})

	all := All()
	if len(all) != 3 || all[0].Name() != "billing" || all[2].Name() != "sites" {
		t.Fatalf("order: %v", all)
	}
	if got := Migrations(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("migrations: %v", got)
	}
}
