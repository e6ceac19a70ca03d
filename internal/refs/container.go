// Package refs collects the variable references and function calls made by
// the bindings and guard expressions of a layout.
package refs

import (
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Container gathers HCL expressions and traversals and reports what they
// reference. Results are computed lazily and cached until the next Add.
// All methods are safe for concurrent use.
type Container struct {
	mu          sync.Mutex
	expressions []hcl.Expression
	traversals  []hcl.Traversal

	analyzed        bool
	references      []hcl.Traversal
	calledFunctions []string
}

// NewContainer creates a new, empty container.
func NewContainer() *Container {
	return &Container{}
}

// Add adds expressions for analysis. Nil expressions are ignored.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, expr := range exprs {
		if expr != nil {
			c.expressions = append(c.expressions, expr)
		}
	}
	c.analyzed = false
}

// AddTraversals adds plain traversals, such as parsed `$name[0].field`
// bindings. Empty traversals are ignored.
func (c *Container) AddTraversals(ts ...hcl.Traversal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range ts {
		if len(t) > 0 {
			c.traversals = append(c.traversals, t)
		}
	}
	c.analyzed = false
}

// analyze must be called with c.mu held.
func (c *Container) analyze() {
	if c.analyzed {
		return
	}
	c.references, c.calledFunctions = extract(c.expressions, c.traversals)
	c.analyzed = true
}

// References returns all unique traversals, sorted by their canonical key.
func (c *Container) References() []hcl.Traversal {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyze()
	return c.references
}

// RootNames returns the sorted, unique root variable names referenced.
func (c *Container) RootNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyze()

	seen := make(map[string]struct{})
	var names []string
	for _, t := range c.references {
		name := t.RootName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalledFunctions returns the sorted, unique names of functions called.
func (c *Container) CalledFunctions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyze()
	return c.calledFunctions
}

// TraversalKey renders a traversal canonically, e.g. `conversation_json[0].id`.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

func extract(exprs []hcl.Expression, extra []hcl.Traversal) ([]hcl.Traversal, []string) {
	traversals := make(map[string]hcl.Traversal)
	functions := make(map[string]struct{})

	for _, t := range extra {
		traversals[TraversalKey(t)] = t
	}
	for _, expr := range exprs {
		for _, t := range expr.Variables() {
			traversals[TraversalKey(t)] = t
		}
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			hclsyntax.VisitAll(syntaxExpr, func(n hclsyntax.Node) hcl.Diagnostics {
				if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
					functions[call.Name] = struct{}{}
				}
				return nil
			})
		}
	}

	keys := make([]string, 0, len(traversals))
	for k := range traversals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]hcl.Traversal, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, traversals[k])
	}

	funcs := make([]string, 0, len(functions))
	for f := range functions {
		funcs = append(funcs, f)
	}
	sort.Strings(funcs)

	return refs, funcs
}
