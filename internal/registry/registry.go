package registry

import (
	"fmt"
	"sort"

	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/layout"
)

// Registry holds the projects of a single application instance and the
// parsed template of each. Templates are immutable once loaded, so a loaded
// Registry may be read from any number of goroutines.
type Registry struct {
	projects  map[string]*config.Project
	templates map[string]*layout.Node
	// templateErrs records templates that could not be loaded, keyed by
	// project. They are reported by ValidateRegistry.
	templateErrs map[string]error
}

// New creates and initializes an empty Registry.
func New() *Registry {
	return &Registry{
		projects:     make(map[string]*config.Project),
		templates:    make(map[string]*layout.Node),
		templateErrs: make(map[string]error),
	}
}

// Names returns the names of all registered projects in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.projects))
	for name := range r.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Project returns the named project.
func (r *Registry) Project(name string) (*config.Project, bool) {
	p, ok := r.projects[name]
	return p, ok
}

// Template returns the parsed layout of the named project.
func (r *Registry) Template(name string) (*layout.Node, error) {
	if _, ok := r.projects[name]; !ok {
		return nil, fmt.Errorf("unknown project %q", name)
	}
	if err := r.templateErrs[name]; err != nil {
		return nil, err
	}
	return r.templates[name], nil
}

// InputFields returns the input class and fields of the named project.
func (r *Registry) InputFields(name string) (class string, fields []string, err error) {
	p, ok := r.projects[name]
	if !ok {
		return "", nil, fmt.Errorf("unknown project %q", name)
	}
	if p.Input == nil {
		return "", nil, nil
	}
	return p.Input.Class, p.Input.Fields, nil
}

// ByDomain groups project names by their domain. Names within a domain are
// sorted.
func (r *Registry) ByDomain() map[string][]string {
	out := make(map[string][]string)
	for _, name := range r.Names() {
		p := r.projects[name]
		out[p.Domain] = append(out[p.Domain], name)
	}
	return out
}
