// Package binding resolves `$name[0].field` bindings and guard expressions
// against a per-render data context.
//
// Resolution never fails loudly: a binding that cannot be resolved (missing
// variable, missing attribute, index out of range, null value) is reported as
// unresolved and the caller decides between omission and empty substitution.
package binding

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

var refPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*(?:\[[0-9]+\]|\.[A-Za-z_][A-Za-z0-9_]*)*)`)

// Ref is a single binding occurrence inside a string.
type Ref struct {
	// Expr is the binding path without the leading `$`.
	Expr string
	// Start and End are the byte offsets of the whole `$...` occurrence.
	Start, End int
}

// Find returns every binding in s, in order of appearance.
func Find(s string) []Ref {
	if !strings.Contains(s, "$") {
		return nil
	}
	matches := refPattern.FindAllStringSubmatchIndex(s, -1)
	out := make([]Ref, 0, len(matches))
	for _, m := range matches {
		out = append(out, Ref{Expr: s[m[2]:m[3]], Start: m[0], End: m[1]})
	}
	return out
}

// Whole reports whether s consists of exactly one binding and nothing else.
func Whole(s string) (Ref, bool) {
	refs := Find(s)
	if len(refs) != 1 || refs[0].Start != 0 || refs[0].End != len(s) {
		return Ref{}, false
	}
	return refs[0], true
}

// Traversal parses a binding path into an absolute HCL traversal.
func Traversal(expr string) (hcl.Traversal, error) {
	t, diags := hclsyntax.ParseTraversalAbs([]byte(expr), "binding", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid binding %q: %w", "$"+expr, diags)
	}
	return t, nil
}

// Resolve looks up a binding path in the data context. The second result is
// false when the path cannot be resolved to a known, non-null value.
func Resolve(expr string, c *Context) (cty.Value, bool) {
	t, err := Traversal(expr)
	if err != nil {
		return cty.NilVal, false
	}
	v, diags := t.TraverseAbs(c.eval())
	if diags.HasErrors() || v.IsNull() || !v.IsWhollyKnown() {
		return cty.NilVal, false
	}
	return v, true
}

// Stringify renders a resolved value for use inside an attribute or text.
// Strings are used verbatim, numbers in shortest decimal form, bools as
// true/false, and collections or objects as JSON.
func Stringify(v cty.Value) (string, bool) {
	if v.IsNull() || !v.IsWhollyKnown() {
		return "", false
	}
	switch ty := v.Type(); {
	case ty == cty.String:
		return v.AsString(), true
	case ty == cty.Number:
		return v.AsBigFloat().Text('f', -1), true
	case ty == cty.Bool:
		if v.True() {
			return "true", true
		}
		return "false", true
	default:
		b, err := ctyjson.Marshal(v, ty)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Interpolate replaces every binding in s with its stringified value.
// Unresolved bindings are replaced by the empty string and returned.
func Interpolate(s string, c *Context) (string, []Ref) {
	refs := Find(s)
	if len(refs) == 0 {
		return s, nil
	}

	var b strings.Builder
	var missing []Ref
	last := 0
	for _, r := range refs {
		b.WriteString(s[last:r.Start])
		last = r.End

		v, ok := Resolve(r.Expr, c)
		if !ok {
			missing = append(missing, r)
			continue
		}
		str, ok := Stringify(v)
		if !ok {
			missing = append(missing, r)
			continue
		}
		b.WriteString(str)
	}
	b.WriteString(s[last:])
	return b.String(), missing
}
