package annotation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/layout"
	"github.com/zclconf/go-cty/cty"
)

// OriginManual marks results that stand for human input.
const OriginManual = "manual"

// Result is a single annotation result entry.
type Result struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Origin   string         `json:"origin"`
	FromName string         `json:"from_name"`
	ToName   string         `json:"to_name"`
	Value    map[string]any `json:"value"`
}

// Build returns the results for the draft fields that the project annotates,
// ordered by field name and then by component order in the rendered layout.
// Draft fields without an annotation entry are ignored.
//
// Values that cannot be read are skipped and reported in the returned error;
// the results hold everything else.
func Build(p *config.Project, rendered *layout.Node, draft *binding.Context) ([]Result, error) {
	b := &builder{draft: draft, components: layout.Components(rendered)}

	fields := make([]string, 0, len(p.Annotations))
	for f := range p.Annotations {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		a := p.Annotations[field]
		v, ok := draft.Lookup(field)
		if !ok || v.IsNull() {
			continue
		}
		if len(a.FromName) != len(a.Type) {
			b.errorf("annotation %q has %d from_name entries but %d types", field, len(a.FromName), len(a.Type))
			continue
		}
		for i, from := range a.FromName {
			b.component(a, v, from, a.Type[i])
		}
	}
	return b.results, errors.Join(b.errs...)
}

type builder struct {
	draft      *binding.Context
	components []layout.Component
	results    []Result
	errs       []error
}

func (b *builder) errorf(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// component adds the results of one from_name entry of an annotation.
func (b *builder) component(a *config.Annotation, v cty.Value, from, typ string) {
	if len(layout.Tokens(from)) == 0 {
		value, ok := b.value(a, v, from, nil)
		if !ok {
			return
		}
		b.add(from, a.ToName, typ, value)
		return
	}

	for _, c := range b.components {
		index, ok := layout.MatchName(from, c.Name)
		if !ok {
			continue
		}
		value, ok := b.value(a, v, from, index)
		if !ok {
			continue
		}
		b.add(c.Name, layout.ReplaceTokens(a.ToName, index), typ, value)
	}
}

// value reads the draft value of one result. index binds the tokens of an
// indexed from_name.
func (b *builder) value(a *config.Annotation, v cty.Value, from string, index map[string]string) (cty.Value, bool) {
	if a.Value != "" {
		path := layout.ReplaceTokens(a.Value, index)
		ref, ok := binding.Whole(path)
		if !ok {
			b.errorf("annotation %q: value %q is not a single binding", a.Field, path)
			return cty.NilVal, false
		}
		resolved, ok := binding.Resolve(ref.Expr, b.draft)
		if !ok {
			b.errorf("annotation %q: draft has no value at %s for %s", a.Field, path, layout.ReplaceTokens(from, index))
		}
		return resolved, ok
	}

	if len(a.FromName) > 1 {
		ty := v.Type()
		switch {
		case ty.IsObjectType() && ty.HasAttribute(from):
			v = v.GetAttr(from)
		case ty.IsMapType() && v.HasIndex(cty.StringVal(from)).True():
			v = v.Index(cty.StringVal(from))
		case ty.IsObjectType() || ty.IsMapType():
			return cty.NilVal, false
		default:
			b.errorf("annotation %q: draft value must be an object keyed by from_name, got %s", a.Field, ty.FriendlyName())
			return cty.NilVal, false
		}
	}

	seen := make(map[string]bool)
	for _, tok := range layout.Tokens(from) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		i, _ := strconv.Atoi(index[tok])
		ty := v.Type()
		if v.IsNull() || !(ty.IsListType() || ty.IsTupleType()) || i >= v.LengthInt() {
			b.errorf("annotation %q: draft has no value for %s", a.Field, layout.ReplaceTokens(from, index))
			return cty.NilVal, false
		}
		v = v.Index(cty.NumberIntVal(int64(i)))
	}
	if v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

func (b *builder) add(from, to, typ string, v cty.Value) {
	s, ok := binding.Stringify(v)
	if !ok {
		b.errorf("draft value for %s is not known", from)
		return
	}
	b.results = append(b.results, Result{
		ID:       "draft_" + strconv.Itoa(len(b.results)),
		Type:     typ,
		Origin:   OriginManual,
		FromName: from,
		ToName:   to,
		Value:    resultValue(typ, s),
	})
}

// resultValue shapes a value the way the result type expects it.
func resultValue(typ, s string) map[string]any {
	switch typ {
	case "textarea":
		return map[string]any{"text": []string{s}}
	case "taxonomy":
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return map[string]any{"taxonomy": [][]string{parts}}
	default:
		return map[string]any{typ: []string{s}}
	}
}
