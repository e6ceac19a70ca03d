package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/refs"
)

// Validate checks the structural rules a template must satisfy before it
// can be rendered. It reports every problem found, joined; each one wraps
// ErrMalformedTemplate.
func Validate(name string, root *Node) error {
	v := &validator{name: name}
	v.walk(root, map[string]bool{})
	return errors.Join(v.errs...)
}

type validator struct {
	name string
	errs []error
}

func (v *validator) errorf(n *Node, format string, args ...any) {
	v.errs = append(v.errs, &ParseError{Template: v.name, Pos: n.Pos, Msg: fmt.Sprintf(format, args...)})
}

// scoped checks that every index token in s is declared by an enclosing
// repeater.
func (v *validator) scoped(n *Node, s, where string, scope map[string]bool) {
	for _, tok := range Tokens(s) {
		if !scope[tok] {
			v.errorf(n, "index token {{%s}} in %s is used outside of any repeater declaring it", tok, where)
		}
	}
}

func (v *validator) walk(n *Node, scope map[string]bool) {
	switch n.Kind {
	case KindText:
		if !n.Raw {
			v.scoped(n, n.Text, "text", scope)
		}
		return

	case KindGuard:
		v.scoped(n, n.Text, "guard", scope)
		expr, err := binding.ParseGuard(placeholders(n.Text))
		if err != nil {
			v.errorf(n, "%v", err)
			break
		}
		c := refs.NewContainer()
		c.Add(expr)
		if funcs := c.CalledFunctions(); len(funcs) > 0 {
			v.errorf(n, "guard %q calls functions (%s); guards may only reference data", n.Text, strings.Join(funcs, ", "))
		}

	case KindRepeater:
		source, hasSource := n.Attr(AttrOn)
		flag, hasFlag := n.Attr(AttrIndexFlag)
		if !hasSource || source == "" {
			v.errorf(n, "<%s> requires an %q attribute", RepeaterTag, AttrOn)
		} else {
			v.scoped(n, source, "repeater source", scope)
			if _, ok := binding.Whole(placeholders(source)); !ok {
				v.errorf(n, "repeater source %q must be a single binding such as $items", source)
			}
		}
		tok := tokenName(flag)
		if !hasFlag || tok == "" {
			v.errorf(n, "<%s> requires an %q attribute of the form {{name}}, got %q", RepeaterTag, AttrIndexFlag, flag)
		} else {
			inner := make(map[string]bool, len(scope)+1)
			for k := range scope {
				inner[k] = true
			}
			inner[tok] = true
			scope = inner
		}

	case KindElement:
		for _, a := range n.Attrs {
			v.scoped(n, a.Value, fmt.Sprintf("attribute %s of <%s>", a.Name, n.Tag), scope)
		}
	}

	for _, ch := range n.Children {
		v.walk(ch, scope)
	}
}

// placeholders replaces every index token with 0 so that bindings such as
// `$items[{{idx}}].id` can be parsed before expansion.
func placeholders(s string) string {
	return tokenPattern.ReplaceAllString(s, "0")
}

// References collects the traversals of all bindings, guards and repeater
// sources in a template, with index tokens replaced by 0.
func References(root *Node) *refs.Container {
	c := refs.NewContainer()
	var walk func(n *Node)
	addBindings := func(s string) {
		for _, r := range binding.Find(placeholders(s)) {
			if t, err := binding.Traversal(r.Expr); err == nil {
				c.AddTraversals(t)
			}
		}
	}
	walk = func(n *Node) {
		switch n.Kind {
		case KindText:
			if !n.Raw {
				addBindings(n.Text)
			}
		case KindGuard:
			if expr, err := binding.ParseGuard(placeholders(n.Text)); err == nil {
				c.Add(expr)
			}
		case KindElement, KindRepeater:
			for _, a := range n.Attrs {
				addBindings(a.Value)
			}
		}
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	walk(root)
	return c
}
