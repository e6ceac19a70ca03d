package binding

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseGuard parses the condition of a `{cond ? ... : null}` guard.
func ParseGuard(src string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "guard", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid guard %q: %w", src, diags)
	}
	return expr, nil
}

// EvalGuard evaluates a guard condition. A condition that fails to parse or
// evaluate, for example because it names a variable absent from the
// context, is false. The operands of &&, || and ! are tested with Truthy,
// so `speaker_details && audio_url` holds when both are present.
func EvalGuard(src string, c *Context) bool {
	expr, err := ParseGuard(src)
	if err != nil {
		return false
	}
	return truthy(expr, c.eval())
}

func truthy(expr hcl.Expression, ctx *hcl.EvalContext) bool {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return truthy(e.Expression, ctx)
	case *hclsyntax.BinaryOpExpr:
		switch e.Op {
		case hclsyntax.OpLogicalAnd:
			return truthy(e.LHS, ctx) && truthy(e.RHS, ctx)
		case hclsyntax.OpLogicalOr:
			return truthy(e.LHS, ctx) || truthy(e.RHS, ctx)
		}
	case *hclsyntax.UnaryOpExpr:
		if e.Op == hclsyntax.OpLogicalNot {
			return !truthy(e.Val, ctx)
		}
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return false
	}
	return Truthy(v)
}

// Truthy implements the guard existence check: null, unknown, empty strings
// and empty collections are false, bools are themselves, and any other
// present value is true.
func Truthy(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	switch ty := v.Type(); {
	case ty == cty.Bool:
		return v.True()
	case ty == cty.String:
		return v.AsString() != ""
	case ty.IsObjectType():
		return len(ty.AttributeTypes()) > 0
	case ty.IsCollectionType() || ty.IsTupleType():
		return v.LengthInt() > 0
	default:
		return true
	}
}
