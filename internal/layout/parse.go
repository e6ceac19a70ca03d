package layout

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrMalformedTemplate is the sentinel wrapped by every parse and validation
// failure. Malformed templates are rejected before any render.
var ErrMalformedTemplate = errors.New("malformed template")

// ParseError describes a malformed template at a source position.
type ParseError struct {
	Template string
	Pos      Pos
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Template, e.Pos.Line, e.Pos.Column, e.Msg)
}

// Unwrap makes errors.Is(err, ErrMalformedTemplate) hold.
func (e *ParseError) Unwrap() error {
	return ErrMalformedTemplate
}

var (
	guardOpen  = regexp.MustCompile(`\{\s*((?:[^{}?]|\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})+?)\s*\?`)
	guardClose = regexp.MustCompile(`:\s*null\s*\}`)
)

// Parse reads a layout template. The dialect is XML-like markup with
// case-sensitive tags, any number of top-level elements, guard blocks of
// the form `{cond ? <A/> <B/> : null}` in element content, and
// `<Repeater on="$path" indexFlag="{{idx}}">` directives.
//
// Guards may join conditions JSX-style with `&&`, which is not valid in XML
// character data; it is read as if written `&amp;&amp;`. Columns reported
// after such an operator on the same line count the escaped form.
//
// The returned fragment has already passed Validate.
func Parse(name string, src []byte) (*Node, error) {
	src = bytes.ReplaceAll(src, []byte("&&"), []byte("&amp;&amp;"))
	p := &parser{name: name, dec: xml.NewDecoder(bytes.NewReader(src))}
	p.dec.Strict = true
	p.dec.Entity = xml.HTMLEntity

	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	if err := Validate(name, root); err != nil {
		return nil, err
	}
	return root, nil
}

type parser struct {
	name  string
	dec   *xml.Decoder
	stack []*Node
}

func (p *parser) errorf(pos Pos, format string, args ...any) error {
	return &ParseError{Template: p.name, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) pos() Pos {
	line, col := p.dec.InputPos()
	return Pos{Line: line, Column: col}
}

func (p *parser) top() *Node {
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(n *Node) {
	top := p.top()
	top.Children = append(top.Children, n)
	p.stack = append(p.stack, n)
}

func (p *parser) parse() (*Node, error) {
	root := &Node{Kind: KindFragment, Pos: Pos{Line: 1, Column: 1}}
	p.stack = []*Node{root}

	for {
		start := p.pos()
		tok, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, p.errorf(Pos{Line: syntaxErr.Line, Column: start.Column}, "%s", syntaxErr.Msg)
			}
			return nil, p.errorf(start, "%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.push(p.element(t, start))
		case xml.EndElement:
			if top := p.top(); top.Kind == KindGuard {
				return nil, p.errorf(start, "</%s> closes while guard %q opened at line %d is still open", qualified(t.Name), top.Text, top.Pos.Line)
			}
			p.stack = p.stack[:len(p.stack)-1]
		case xml.CharData:
			if err := p.charData(string(t), start); err != nil {
				return nil, err
			}
		}
	}

	if top := p.top(); top != root {
		if top.Kind == KindGuard {
			return nil, p.errorf(top.Pos, "guard %q is never closed with ': null}'", top.Text)
		}
		return nil, p.errorf(top.Pos, "element <%s> is never closed", top.Tag)
	}
	return root, nil
}

func (p *parser) element(t xml.StartElement, pos Pos) *Node {
	n := &Node{Kind: KindElement, Tag: qualified(t.Name), Pos: pos}
	if n.Tag == RepeaterTag {
		n.Kind = KindRepeater
	}
	if len(t.Attr) > 0 {
		n.Attrs = make([]Attr, len(t.Attr))
		for i, a := range t.Attr {
			n.Attrs[i] = Attr{Name: qualified(a.Name), Value: a.Value}
		}
	}
	return n
}

// charData splits character data into text nodes and guard boundaries.
func (p *parser) charData(s string, pos Pos) error {
	top := p.top()
	if top.Kind == KindElement && rawTextTags[top.Tag] {
		if text := strings.TrimSpace(s); text != "" {
			top.Children = append(top.Children, &Node{Kind: KindText, Text: text, Raw: true, Pos: pos})
		}
		return nil
	}

	for s != "" {
		open := guardOpen.FindStringSubmatchIndex(s)
		closing := guardClose.FindStringIndex(s)

		switch {
		case open != nil && (closing == nil || open[0] < closing[0]):
			p.text(s[:open[0]], pos)
			guard := &Node{Kind: KindGuard, Text: strings.TrimSpace(s[open[2]:open[3]]), Pos: pos}
			p.push(guard)
			s = s[open[1]:]
		case closing != nil:
			p.text(s[:closing[0]], pos)
			if p.top().Kind != KindGuard {
				return p.errorf(pos, "': null}' without an open guard")
			}
			p.stack = p.stack[:len(p.stack)-1]
			s = s[closing[1]:]
		default:
			p.text(s, pos)
			s = ""
		}
	}
	return nil
}

func (p *parser) text(s string, pos Pos) {
	text := strings.TrimSpace(s)
	if text == "" {
		return
	}
	top := p.top()
	top.Children = append(top.Children, &Node{Kind: KindText, Text: text, Pos: pos})
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
