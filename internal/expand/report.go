package expand

import (
	"fmt"

	"github.com/vk/labelgrid/internal/layout"
)

// IssueKind classifies a non-fatal render problem.
type IssueKind int

const (
	// MissingBinding: a referenced variable or path is absent from the data
	// context. The node is omitted or the binding substituted by "".
	MissingBinding IssueKind = iota
	// MalformedRepeaterSource: a repeater source resolved to something that
	// is not a collection. The repeater yields no elements.
	MalformedRepeaterSource
)

func (k IssueKind) String() string {
	switch k {
	case MissingBinding:
		return "missing_binding"
	case MalformedRepeaterSource:
		return "malformed_repeater_source"
	default:
		return fmt.Sprintf("issue(%d)", int(k))
	}
}

// Issue is a single problem met while rendering.
type Issue struct {
	Kind    IssueKind
	Tag     string
	Pos     layout.Pos
	Binding string
	// Omitted is true when the problem removed the node from the output.
	Omitted bool
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at <%s> line %d: %s", i.Kind, i.Tag, i.Pos.Line, i.Message)
}

// Report collects the issues of one render, in traversal order.
type Report struct {
	Issues []Issue
}

func (r *Report) add(i Issue) {
	r.Issues = append(r.Issues, i)
}

// Count returns the number of issues of the given kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Empty reports whether the render met no issues.
func (r *Report) Empty() bool {
	return len(r.Issues) == 0
}
