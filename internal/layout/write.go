package layout

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"
)

const indentUnit = "  "

// Write serializes a tree as markup. Leaf elements are self-closing,
// attribute values and text are escaped and nesting is indented by two
// spaces. The same tree always produces the same bytes.
func Write(w io.Writer, root *Node) error {
	_, err := w.Write(Markup(root))
	return err
}

// Markup returns the serialized form of a tree, as written by Write.
func Markup(root *Node) []byte {
	var b bytes.Buffer
	writeNode(&b, root, 0)
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n *Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat(indentUnit, depth)

	switch n.Kind {
	case KindFragment:
		for _, ch := range n.Children {
			writeNode(b, ch, depth)
		}

	case KindText:
		b.WriteString(indent)
		escape(b, n.Text)
		b.WriteByte('\n')

	case KindGuard:
		b.WriteString(indent)
		b.WriteString("{" + n.Text + " ?\n")
		for _, ch := range n.Children {
			writeNode(b, ch, depth+1)
		}
		b.WriteString(indent)
		b.WriteString(": null}\n")

	default:
		b.WriteString(indent)
		b.WriteByte('<')
		b.WriteString(n.Tag)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			escape(b, a.Value)
			b.WriteByte('"')
		}

		switch {
		case len(n.Children) == 0:
			b.WriteString("/>\n")
		case len(n.Children) == 1 && n.Children[0].Kind == KindText:
			b.WriteByte('>')
			escape(b, n.Children[0].Text)
			b.WriteString("</" + n.Tag + ">\n")
		default:
			b.WriteString(">\n")
			for _, ch := range n.Children {
				writeNode(b, ch, depth+1)
			}
			b.WriteString(indent)
			b.WriteString("</" + n.Tag + ">\n")
		}
	}
}

func escape(b *bytes.Buffer, s string) {
	// Writes to a bytes.Buffer cannot fail.
	_ = xml.EscapeText(b, []byte(s))
}

type jsonNode struct {
	Kind     string  `json:"kind"`
	Tag      string  `json:"tag,omitempty"`
	Attrs    []Attr  `json:"attrs,omitempty"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// MarshalJSON encodes the node for rendering layers that consume JSON
// rather than markup.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonNode{
		Kind:     n.Kind.String(),
		Tag:      n.Tag,
		Attrs:    n.Attrs,
		Text:     n.Text,
		Children: n.Children,
	})
}
