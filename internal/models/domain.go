package models

import (
	"fmt"

	"github.com/mlodari/camposanto/internal/common"
)

// Domain describes one remote collection the engine mirrors locally: its
// name, the human-readable descriptor field indexed for lookup-by-name, the
// nested child relations expanded on full reads, and the remote ordering.
//
// Replay dispatch resolves a Domain once, when a change is queued, instead of
// switching on table-name strings at sync time.
type Domain struct {
	Name            string
	DescriptorField string
	Relations       []string
	OrderBy         string
}

// Registry is the set of known domains, looked up by collection name.
type Registry struct {
	domains map[string]Domain
	order   []string
}

func NewRegistry(domains ...Domain) *Registry {
	r := &Registry{domains: make(map[string]Domain, len(domains))}
	for _, d := range domains {
		if _, dup := r.domains[d.Name]; dup {
			continue
		}
		r.domains[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r
}

// Lookup returns the domain registered under name.
func (r *Registry) Lookup(name string) (Domain, error) {
	d, ok := r.domains[name]
	if !ok {
		return Domain{}, fmt.Errorf("unknown domain %q: %w", name, common.ErrorNotFound)
	}
	return d, nil
}

// Names returns the registered collection names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultRegistry returns the cemetery-records domains as exposed by the
// remote database.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Domain{
			Name:            "Cimitero",
			DescriptorField: "Descrizione",
			Relations: []string{
				"Settore(*,Blocco(*,Loculo(*,Defunto(*))))",
				"Foto(*)",
				"Documento(*)",
				"Mappa(*)",
			},
			OrderBy: "Descrizione",
		},
		Domain{Name: "Settore", DescriptorField: "Descrizione", OrderBy: "Descrizione"},
		Domain{Name: "Blocco", DescriptorField: "Descrizione", OrderBy: "Descrizione"},
		Domain{Name: "Loculo", DescriptorField: "Numero", OrderBy: "Numero"},
		Domain{Name: "Defunto", DescriptorField: "Nominativo", OrderBy: "Nominativo"},
		Domain{Name: "Foto", DescriptorField: "Descrizione"},
		Domain{Name: "Documento", DescriptorField: "Descrizione"},
		Domain{Name: "Mappa", DescriptorField: "Descrizione"},
	)
}
