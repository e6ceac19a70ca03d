package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/layout"
)

// ValidateRegistry performs a strict consistency check between the registry
// entries and their layouts. All problems are collected and returned in one
// error.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		p := r.projects[name]
		if err := r.templateErrs[name]; err != nil {
			errs = append(errs, fmt.Sprintf("project '%s': template '%s': %v", name, p.Template, err))
			continue
		}
		root := r.templates[name]

		errs = append(errs, checkInputs(p, root)...)
		errs = append(errs, checkComponents(p, root)...)

		if len(p.Annotations) == 0 {
			logger.Warn("Project declares no annotation results; its layout output will not be collected.", "project", name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "projects", len(r.projects))
	return nil
}

// checkInputs reports layout variables that the project does not declare
// as input fields.
func checkInputs(p *config.Project, root *layout.Node) []string {
	declared := make(map[string]struct{})
	if p.Input != nil {
		for _, f := range p.Input.Fields {
			declared[f] = struct{}{}
		}
	}

	var errs []string
	for _, v := range layout.References(root).RootNames() {
		if _, ok := declared[v]; !ok {
			errs = append(errs, fmt.Sprintf("project '%s': layout binds variable '%s' which is not a declared input field", p.Name, v))
		}
	}
	return errs
}

// checkComponents reports annotations and toName references that point at
// components the layout does not have. Names inside repeaters are compared
// with their index tokens as wildcards.
func checkComponents(p *config.Project, root *layout.Node) []string {
	names := make(map[string]struct{})
	for _, n := range layout.Names(root) {
		names[layout.NamePattern(n)] = struct{}{}
	}
	has := func(n string) bool {
		_, ok := names[layout.NamePattern(n)]
		return ok
	}

	var errs []string
	for _, to := range layout.ToNames(root) {
		if !has(to) {
			errs = append(errs, fmt.Sprintf("project '%s': layout component references toName '%s' which is not a component name", p.Name, to))
		}
	}

	for _, field := range sortedKeys(p.Annotations) {
		a := p.Annotations[field]
		if len(a.FromName) != len(a.Type) {
			errs = append(errs, fmt.Sprintf("project '%s', annotation '%s': %d from_name entries but %d type entries", p.Name, field, len(a.FromName), len(a.Type)))
		}
		for _, from := range a.FromName {
			if !has(from) {
				errs = append(errs, fmt.Sprintf("project '%s', annotation '%s': from_name '%s' is not a component of the layout", p.Name, field, from))
			}
		}
		if !has(a.ToName) {
			errs = append(errs, fmt.Sprintf("project '%s', annotation '%s': to_name '%s' is not a component of the layout", p.Name, field, a.ToName))
		}
		errs = append(errs, checkAnnotationTokens(p, a)...)
	}
	return errs
}

// checkAnnotationTokens reports index tokens in to_name and value that no
// from_name entry binds, and a value that is not a single binding.
func checkAnnotationTokens(p *config.Project, a *config.Annotation) []string {
	bound := make(map[string]bool)
	for _, from := range a.FromName {
		for _, tok := range layout.Tokens(from) {
			bound[tok] = true
		}
	}

	var errs []string
	unbound := func(attr, s string) {
		for _, tok := range layout.Tokens(s) {
			if !bound[tok] {
				errs = append(errs, fmt.Sprintf("project '%s', annotation '%s': %s '%s' uses index token {{%s}} which no from_name binds", p.Name, a.Field, attr, s, tok))
			}
		}
	}
	unbound("to_name", a.ToName)

	if a.Value != "" {
		unbound("value", a.Value)
		zeros := make(map[string]string)
		for _, tok := range layout.Tokens(a.Value) {
			zeros[tok] = "0"
		}
		if _, ok := binding.Whole(layout.ReplaceTokens(a.Value, zeros)); !ok {
			errs = append(errs, fmt.Sprintf("project '%s', annotation '%s': value '%s' must be a single binding such as $%s", p.Name, a.Field, a.Value, a.Field))
		}
	}
	return errs
}

func sortedKeys(m map[string]*config.Annotation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
