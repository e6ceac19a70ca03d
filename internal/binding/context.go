package binding

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Context is the data context of a single render: a mapping from variable
// name to value. A Context is never modified after construction.
type Context struct {
	vars    map[string]cty.Value
	evalCtx *hcl.EvalContext
}

// NewContext builds a Context from the given variables. The map is copied.
func NewContext(vars map[string]cty.Value) *Context {
	copied := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &Context{
		vars:    copied,
		evalCtx: &hcl.EvalContext{Variables: copied},
	}
}

// ContextFromValue builds a Context from an object or map value.
func ContextFromValue(v cty.Value) (*Context, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("data context must not be null")
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("data context must be wholly known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("data context must be an object, got %s", ty.FriendlyName())
	}
	return NewContext(v.AsValueMap()), nil
}

// Lookup returns the top-level variable with the given name.
func (c *Context) Lookup(name string) (cty.Value, bool) {
	if c == nil {
		return cty.NilVal, false
	}
	v, ok := c.vars[name]
	return v, ok
}

// Names returns the sorted variable names of the context.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.vars))
	for k := range c.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Context) eval() *hcl.EvalContext {
	if c == nil {
		return &hcl.EvalContext{}
	}
	return c.evalCtx
}
