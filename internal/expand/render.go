// Package expand turns a parsed layout and a data context into a fully
// resolved tree: guards are decided, repeaters are replaced by their
// expansions and bindings are substituted.
//
// Rendering is a pure function of its inputs. Templates are never modified
// and no state is kept between calls, so renders may run concurrently.
package expand

import (
	"fmt"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/layout"
)

// Render resolves a template against a data context. The result contains
// only fragment, element and text nodes, in source order.
//
// Problems are never fatal. An element whose attribute is exactly one
// binding that cannot be resolved is omitted together with its subtree.
// Unresolved bindings embedded in longer text become empty strings.
func Render(root *layout.Node, data *binding.Context) (*layout.Node, *Report) {
	a := &assembler{data: data, report: &Report{}}
	out := &layout.Node{Kind: layout.KindFragment, Pos: root.Pos}
	if root.Kind == layout.KindFragment {
		out.Children = a.nodes(root.Children)
	} else {
		out.Children = a.node(root)
	}
	return out, a.report
}

type assembler struct {
	data   *binding.Context
	report *Report
}

// nodes resolves a sibling sequence, splicing guard bodies and repeater
// expansions in place.
func (a *assembler) nodes(in []*layout.Node) []*layout.Node {
	var out []*layout.Node
	for _, n := range in {
		out = append(out, a.node(n)...)
	}
	return out
}

func (a *assembler) node(n *layout.Node) []*layout.Node {
	switch n.Kind {
	case layout.KindFragment:
		return a.nodes(n.Children)

	case layout.KindText:
		if n.Raw {
			return []*layout.Node{{Kind: layout.KindText, Text: n.Text, Raw: true, Pos: n.Pos}}
		}
		return []*layout.Node{{Kind: layout.KindText, Text: a.interpolate(n, "text", n.Text), Pos: n.Pos}}

	case layout.KindGuard:
		if !binding.EvalGuard(n.Text, a.data) {
			return nil
		}
		return a.nodes(n.Children)

	case layout.KindRepeater:
		clones, issue := Expand(n, a.data)
		if issue != nil {
			a.report.add(*issue)
			return nil
		}
		var out []*layout.Node
		for _, clone := range clones {
			out = append(out, a.nodes(clone.Children)...)
		}
		return out

	default:
		return a.element(n)
	}
}

func (a *assembler) element(n *layout.Node) []*layout.Node {
	out := &layout.Node{Kind: layout.KindElement, Tag: n.Tag, Pos: n.Pos}
	if n.Attrs != nil {
		out.Attrs = make([]layout.Attr, len(n.Attrs))
	}

	for i, attr := range n.Attrs {
		if ref, whole := binding.Whole(attr.Value); whole {
			v, ok := binding.Resolve(ref.Expr, a.data)
			var s string
			if ok {
				s, ok = binding.Stringify(v)
			}
			if !ok {
				a.report.add(Issue{
					Kind:    MissingBinding,
					Tag:     n.Tag,
					Pos:     n.Pos,
					Binding: attr.Value,
					Omitted: true,
					Message: fmt.Sprintf("attribute %s is bound to %s which is not in the data context; element omitted", attr.Name, attr.Value),
				})
				return nil
			}
			out.Attrs[i] = layout.Attr{Name: attr.Name, Value: s}
			continue
		}
		out.Attrs[i] = layout.Attr{Name: attr.Name, Value: a.interpolate(n, "attribute "+attr.Name, attr.Value)}
	}

	out.Children = a.nodes(n.Children)
	return []*layout.Node{out}
}

func (a *assembler) interpolate(n *layout.Node, where, s string) string {
	resolved, missing := binding.Interpolate(s, a.data)
	for _, ref := range missing {
		a.report.add(Issue{
			Kind:    MissingBinding,
			Tag:     tagOf(n),
			Pos:     n.Pos,
			Binding: "$" + ref.Expr,
			Message: fmt.Sprintf("%s references $%s which is not in the data context; substituted with an empty string", where, ref.Expr),
		})
	}
	return resolved
}

func tagOf(n *layout.Node) string {
	if n.Tag == "" {
		return n.Kind.String()
	}
	return n.Tag
}
