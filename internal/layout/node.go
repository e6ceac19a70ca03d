package layout

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the role of a Node in a layout tree.
type Kind int

const (
	// KindFragment is an ordered sequence of sibling nodes. Parsed documents
	// and repeater instances are fragments.
	KindFragment Kind = iota
	// KindElement is a markup tag with attributes and children.
	KindElement
	// KindText is character data.
	KindText
	// KindGuard wraps children emitted only when its condition holds.
	KindGuard
	// KindRepeater wraps children emitted once per element of a collection.
	KindRepeater
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindGuard:
		return "guard"
	case KindRepeater:
		return "repeater"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Markup vocabulary understood by the parser.
const (
	RepeaterTag   = "Repeater"
	AttrOn        = "on"
	AttrIndexFlag = "indexFlag"
	AttrName      = "name"
	AttrToName    = "toName"
)

// rawTextTags hold character data that is passed through untouched.
var rawTextTags = map[string]bool{
	"Style":  true,
	"Script": true,
}

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Attr is a single attribute. Attribute order is preserved from the source.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Pos is a line/column position in a template source.
type Pos struct {
	Line   int
	Column int
}

// Node is a layout tree node. Trees returned by Parse are never modified
// afterwards and may be shared by concurrent renders.
type Node struct {
	Kind  Kind
	Tag   string
	Attrs []Attr
	// Text is the character data of a text node, or the condition of a guard.
	Text string
	// Raw marks text that must not be interpolated, such as stylesheets.
	Raw      bool
	Children []*Node
	Pos      Pos
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Directive returns the source binding and index token of a repeater.
func (n *Node) Directive() (source, token string) {
	source, _ = n.Attr(AttrOn)
	token, _ = n.Attr(AttrIndexFlag)
	return source, token
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Attrs != nil {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return &c
}

// Instantiate returns the repeater body for one iteration: a fragment of
// deep-copied children in which the repeater's index token is replaced by
// index.
func (n *Node) Instantiate(index int) *Node {
	_, flag := n.Directive()
	value := strconv.Itoa(index)

	frag := &Node{Kind: KindFragment, Pos: n.Pos, Children: make([]*Node, len(n.Children))}
	for i, ch := range n.Children {
		frag.Children[i] = ch.Substitute(flag, value)
	}
	return frag
}

// Substitute returns a deep copy in which every occurrence of the index
// token, given in its `{{name}}` form, is replaced by value. A nested repeater declaring the same token
// shadows it: only that repeater's source is substituted.
func (n *Node) Substitute(token, value string) *Node {
	return n.substitute(tokenName(token), value)
}

func (n *Node) substitute(name, value string) *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Tag: n.Tag, Raw: n.Raw, Pos: n.Pos}
	if n.Raw {
		c.Text = n.Text
	} else {
		c.Text = replaceToken(n.Text, name, value)
	}

	shadowed := false
	if n.Kind == KindRepeater {
		_, flag := n.Directive()
		shadowed = tokenName(flag) == name
	}

	if n.Attrs != nil {
		c.Attrs = make([]Attr, len(n.Attrs))
		for i, a := range n.Attrs {
			if n.Kind == KindRepeater && a.Name == AttrIndexFlag {
				c.Attrs[i] = a
				continue
			}
			c.Attrs[i] = Attr{Name: a.Name, Value: replaceToken(a.Value, name, value)}
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			if shadowed {
				c.Children[i] = ch.Clone()
			} else {
				c.Children[i] = ch.substitute(name, value)
			}
		}
	}
	return c
}

// tokenName extracts `idx` from `{{idx}}`. It returns "" for anything that
// is not a single token.
func tokenName(flag string) string {
	m := tokenPattern.FindStringSubmatchIndex(flag)
	if m == nil || m[0] != 0 || m[1] != len(flag) {
		return ""
	}
	return flag[m[2]:m[3]]
}

func replaceToken(s, name, value string) string {
	if name == "" || len(s) < 4 {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if tokenName(tok) == name {
			return value
		}
		return tok
	})
}

// Tokens returns the names of all index tokens used in s, in order.
func Tokens(s string) []string {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}

// ReplaceTokens replaces the index tokens of s that have an entry in values.
func ReplaceTokens(s string, values map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		if v, ok := values[tokenName(tok)]; ok {
			return v
		}
		return tok
	})
}

// MatchName matches a resolved component name against a name holding index
// tokens, such as `output_{{i}}_{{j}}`, and returns the index bound to each
// token. A token used twice must bind the same index both times.
func MatchName(pattern, name string) (map[string]string, bool) {
	var expr strings.Builder
	expr.WriteString("^")
	last := 0
	for _, m := range tokenPattern.FindAllStringIndex(pattern, -1) {
		expr.WriteString(regexp.QuoteMeta(pattern[last:m[0]]))
		expr.WriteString(`(\d+)`)
		last = m[1]
	}
	expr.WriteString(regexp.QuoteMeta(pattern[last:]))
	expr.WriteString("$")

	m := regexp.MustCompile(expr.String()).FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	values := make(map[string]string)
	for i, tok := range Tokens(pattern) {
		if prev, seen := values[tok]; seen && prev != m[i+1] {
			return nil, false
		}
		values[tok] = m[i+1]
	}
	return values, true
}

// Component is a named widget of a layout, as referenced by annotation
// results and by other widgets' toName attributes.
type Component struct {
	Tag    string
	Name   string
	ToName string
	Pos    Pos
}

// Components lists every element carrying a name or toName attribute, in
// document order. Names inside repeaters keep their index tokens.
func Components(root *Node) []Component {
	var out []Component
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindElement {
			name, hasName := n.Attr(AttrName)
			to, hasTo := n.Attr(AttrToName)
			if hasName || hasTo {
				out = append(out, Component{Tag: n.Tag, Name: name, ToName: to, Pos: n.Pos})
			}
		}
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	walk(root)
	return out
}

// NamePattern rewrites every index token in a component name to a common
// placeholder, so `output_{{idx}}_{{idx2}}` and `output_{{i}}_{{j}}` compare
// equal.
func NamePattern(name string) string {
	return tokenPattern.ReplaceAllString(name, "{{}}")
}

// Names returns the name attribute of every component, in document order.
func Names(root *Node) []string {
	var out []string
	for _, c := range Components(root) {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}

// ToNames returns the toName attribute of every component, in document
// order. A toName may list several targets separated by commas.
func ToNames(root *Node) []string {
	var out []string
	for _, c := range Components(root) {
		for _, to := range strings.Split(c.ToName, ",") {
			if to = strings.TrimSpace(to); to != "" {
				out = append(out, to)
			}
		}
	}
	return out
}
