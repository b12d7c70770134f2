// Package markup builds HTML as a typed node tree.
//
// There are two node kinds: [Text], which is always escaped when rendered,
// and [*Element]. No node type carries raw HTML, so text taken from plant
// records cannot inject markup no matter how it is assembled.
//
// Tag and attribute names are checked when an element is built. Event handler
// attributes (on*) are rejected, and URL-valued attributes (src, href) are
// filtered to schemes that cannot execute script.
//
//	n := markup.El("p", markup.Attrs("class", "plant-name"), markup.Text(name))
//	html := markup.Render(n)
package markup

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// Node is an element or a text run.
type Node interface {
	render(buf *bytes.Buffer)
}

// Text is a run of character data, escaped on output.
type Text string

func (t Text) render(buf *bytes.Buffer) {
	buf.WriteString(Escape(string(t)))
}

// Attr is one attribute. An empty Value with Bool set renders the bare name.
type Attr struct {
	Name  string
	Value string
	Bool  bool
}

// Element is an HTML element with attributes and children.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []Node
}

var (
	tagRe  = regexp.MustCompile(`^[a-z][a-z0-9]*$`)
	attrRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// voidTags have no closing tag and no children.
var voidTags = map[string]bool{
	"area": true, "br": true, "col": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "wbr": true,
}

// urlAttrs hold URLs and are filtered through SafeURL.
var urlAttrs = map[string]bool{"src": true, "href": true, "action": true, "poster": true}

// El builds an element. It panics on an invalid tag or attribute name,
// since names are always constants in calling code.
func El(tag string, attrs []Attr, children ...Node) *Element {
	if !tagRe.MatchString(tag) || tag == "script" || tag == "style" {
		panic(fmt.Sprintf("markup: invalid tag %q", tag))
	}
	for _, a := range attrs {
		if !attrRe.MatchString(a.Name) || strings.HasPrefix(a.Name, "on") {
			panic(fmt.Sprintf("markup: invalid attribute %q on <%s>", a.Name, tag))
		}
	}
	if voidTags[tag] && len(children) > 0 {
		panic(fmt.Sprintf("markup: void element <%s> cannot have children", tag))
	}
	return &Element{Tag: tag, Attrs: attrs, Children: children}
}

// Attrs builds an attribute list from name/value pairs.
func Attrs(pairs ...string) []Attr {
	if len(pairs)%2 != 0 {
		panic("markup: Attrs needs name/value pairs")
	}
	out := make([]Attr, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Attr{Name: pairs[i], Value: pairs[i+1]})
	}
	return out
}

// Flag is a boolean attribute such as hidden.
func Flag(name string) Attr { return Attr{Name: name, Bool: true} }

// Append adds children and returns the element for chaining.
func (e *Element) Append(children ...Node) *Element {
	if voidTags[e.Tag] && len(children) > 0 {
		panic(fmt.Sprintf("markup: void element <%s> cannot have children", e.Tag))
	}
	e.Children = append(e.Children, children...)
	return e
}

func (e *Element) render(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(e.Tag)
	for _, a := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		if a.Bool && a.Value == "" {
			continue
		}
		v := a.Value
		if urlAttrs[a.Name] {
			v = SafeURL(v)
		}
		buf.WriteString(`="`)
		buf.WriteString(Escape(v))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	if voidTags[e.Tag] {
		return
	}
	for _, c := range e.Children {
		if c != nil {
			c.render(buf)
		}
	}
	buf.WriteString("</")
	buf.WriteString(e.Tag)
	buf.WriteByte('>')
}

// Render serialises a node tree to an HTML string.
func Render(n Node) string {
	var buf bytes.Buffer
	n.render(&buf)
	return buf.String()
}

// WriteTo serialises a node tree into w.
func WriteTo(w io.Writer, n Node) (int64, error) {
	var buf bytes.Buffer
	n.render(&buf)
	return buf.WriteTo(w)
}

// Escape replaces & < > " and ' with character references.
func Escape(s string) string {
	return html.EscapeString(s)
}

// InvalidURL replaces URLs that SafeURL refuses.
const InvalidURL = "about:invalid"

// SafeURL returns u when it is relative or uses http, https or an image
// data URI, and InvalidURL otherwise.
func SafeURL(u string) string {
	s := strings.TrimSpace(u)
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return u
	}
	// A colon after the first path, query or fragment delimiter is not a scheme.
	if i := strings.IndexAny(s, "/?#"); i >= 0 && i < colon {
		return u
	}
	switch scheme := strings.ToLower(s[:colon]); scheme {
	case "http", "https":
		return u
	case "data":
		if strings.HasPrefix(strings.ToLower(s[colon+1:]), "image/") {
			return u
		}
	}
	return InvalidURL
}
