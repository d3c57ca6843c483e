// Package dom manages the live document an application is grafted onto.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/mosaic/pkg/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// ErrNoTree is returned when grafting an application that has no cached tree.
var ErrNoTree = errors.New("application has no cached document tree")

// Document is the live page: a parsed tree with its <html>, <head> and <body> located.
// It is not safe for concurrent use; the orchestrator owns it.
type Document struct {
	node *html.Node
	html *html.Node
	head *html.Node
	body *html.Node
}

// New returns an empty shell document.
func New() *Document {
	d, err := Parse(strings.NewReader(blankDocument))
	if err != nil {
		panic(fmt.Sprintf("dom: parse blank document: %v", err))
	}
	return d
}

// Parse reads an HTML document. The parser always produces <html>, <head> and <body>.
func Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	root := FindElement(node, atom.Html)
	if root == nil {
		return nil, errors.New("dom: document has no <html> element")
	}
	return &Document{
		node: node,
		html: root,
		head: childElement(root, atom.Head),
		body: childElement(root, atom.Body),
	}, nil
}

// Root returns the <html> element.
func (d *Document) Root() *html.Node { return d.html }

// Head returns the <head> element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Reset strips the root attributes and every head and body child, leaving an empty shell.
func (d *Document) Reset() {
	d.html.Attr = nil
	removeChildren(d.head)
	removeChildren(d.body)
}

// AppendHead inserts n as the last child of <head>.
func (d *Document) AppendHead(n *html.Node) {
	d.head.AppendChild(n)
}

// Graft copies the root attributes of app's cached tree onto the live root and moves
// its head and body children into the live document. The cached tree is then replaced
// with a clone taken before the move, so the next graft starts from an untouched copy.
func (d *Document) Graft(app *domain.Application) error {
	if app.Tree == nil {
		return fmt.Errorf("%w: %s", ErrNoTree, app.Location)
	}
	pristine := Clone(app.Tree)

	for _, a := range pristine.Attr {
		SetAttr(d.html, a.Key, a.Val)
	}
	if head := childElement(app.Tree, atom.Head); head != nil {
		moveChildren(head, d.head)
	}
	if body := childElement(app.Tree, atom.Body); body != nil {
		moveChildren(body, d.body)
	}

	app.Tree = pristine
	return nil
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.node)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; c = from.FirstChild {
		from.RemoveChild(c)
		to.AppendChild(c)
	}
}

func childElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}
