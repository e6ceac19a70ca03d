package expand

import (
	"fmt"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/layout"
)

// Expand clones the body of a repeater once per element of its source
// collection. Clone i is a fragment in which the repeater's index token is
// replaced by i. An absent source yields no clones and a MissingBinding
// issue; a source that is not a list, tuple or set yields no clones and a
// MalformedRepeaterSource issue. The repeater itself is not modified.
func Expand(rep *layout.Node, data *binding.Context) ([]*layout.Node, *Issue) {
	source, _ := rep.Directive()
	ref, ok := binding.Whole(source)
	if !ok {
		return nil, &Issue{
			Kind:    MalformedRepeaterSource,
			Tag:     rep.Tag,
			Pos:     rep.Pos,
			Binding: source,
			Omitted: true,
			Message: fmt.Sprintf("repeater source %q is not a single binding", source),
		}
	}

	v, ok := binding.Resolve(ref.Expr, data)
	if !ok {
		return nil, &Issue{
			Kind:    MissingBinding,
			Tag:     rep.Tag,
			Pos:     rep.Pos,
			Binding: source,
			Omitted: true,
			Message: fmt.Sprintf("repeater source %s is not in the data context", source),
		}
	}

	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return nil, &Issue{
			Kind:    MalformedRepeaterSource,
			Tag:     rep.Tag,
			Pos:     rep.Pos,
			Binding: source,
			Omitted: true,
			Message: fmt.Sprintf("repeater source %s is a %s, not a collection", source, ty.FriendlyName()),
		}
	}

	n := v.LengthInt()
	clones := make([]*layout.Node, n)
	for i := 0; i < n; i++ {
		clones[i] = rep.Instantiate(i)
	}
	return clones, nil
}
