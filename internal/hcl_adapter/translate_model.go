// This file translates the HCL schema structs into the format-agnostic model
// defined in the config package.

package hcl_adapter

import (
	"fmt"

	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/schema"
)

func translateProject(s *schema.Project, file string) (*config.Project, error) {
	p := &config.Project{
		Name:        s.Name,
		Domain:      s.Domain,
		Description: s.Description,
		Template:    s.Template,
		Input:       translateDataset(s.Input),
		Output:      translateDataset(s.Output),
		Annotations: make(map[string]*config.Annotation, len(s.Annotations)),
		Source:      file,
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%s: project name must not be empty", s.DeclRange)
	}
	if p.Template == "" {
		return nil, fmt.Errorf("%s: project %q has an empty template path", s.DeclRange, p.Name)
	}

	for _, a := range s.Annotations {
		if _, dup := p.Annotations[a.Field]; dup {
			return nil, fmt.Errorf("%s: project %q declares annotation %q twice", s.DeclRange, p.Name, a.Field)
		}
		p.Annotations[a.Field] = &config.Annotation{
			Field:    a.Field,
			FromName: a.FromName,
			ToName:   a.ToName,
			Type:     a.Type,
			Value:    a.Value,
		}
	}
	return p, nil
}

func translateDataset(s *schema.Dataset) *config.Dataset {
	if s == nil {
		return nil
	}
	return &config.Dataset{Class: s.Class, Fields: s.Fields}
}
