// Package rewriter parses a trunk entry HTML file into a mutable DOM plus a
// list of extracted asset link descriptors, and later re-inserts each
// pipeline's output HTML at the descriptor's original position.
package rewriter

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/trunkgo/internal/errors"
)

// Kind identifies which pipeline a LinkDescriptor belongs to.
type Kind string

const (
	KindRust          Kind = "rust"
	KindSass          Kind = "sass"
	KindTailwindCSS   Kind = "tailwind-css"
	KindCSS           Kind = "css"
	KindIcon          Kind = "icon"
	KindInline        Kind = "inline"
	KindCopyFile      Kind = "copy-file"
	KindCopyDir       Kind = "copy-dir"
	KindScript        Kind = "script"
	KindPublicURLBase Kind = "trunk-public-url-base"
)

const (
	attrDataTrunk       = "data-trunk"
	attrRel             = "rel"
	attrPublicURLMarker = "data-trunk-public-url"
	anchorPrefix        = "trunk-anchor:"
)

// LinkDescriptor is a tagged record identifying one pipeline to run, with
// every attribute carried verbatim so the owning pipeline package can decode
// only the attributes it understands.
type LinkDescriptor struct {
	Kind Kind
	// Anchor is the opaque insertion-anchor ID used to find this
	// descriptor's original DOM position during finalization.
	Anchor string
	// Attrs holds every attribute present on the source element, keyed by
	// attribute name exactly as written (e.g. "href", "data-target-path").
	Attrs map[string]string
	// SourceIndex is the descriptor's position among all descriptors in
	// source order, used to apply HTML patches deterministically.
	SourceIndex int
	// inHead records whether the original element lived under <head>, so
	// ApplyPatches can parse replacement HTML with the matching context.
	inHead bool
}

// Attr returns a descriptor attribute and whether it was present.
func (d LinkDescriptor) Attr(name string) (string, bool) {
	v, ok := d.Attrs[name]
	return v, ok
}

// AttrBool reports whether a boolean-style attribute (presence = true, with
// "false" as an explicit escape hatch) is set.
func (d LinkDescriptor) AttrBool(name string) bool {
	v, ok := d.Attrs[name]
	if !ok {
		return false
	}
	return v != "false"
}

// Patch is the HTML a pipeline contributes back at its descriptor's anchor.
// Empty HTML removes the anchor with no replacement (e.g. copy-file/copy-dir,
// or a worker-type rust link).
type Patch struct {
	Anchor string
	HTML   string
}

// EntryHTML is the parsed DOM of the source HTML file plus every extracted
// link descriptor.
type EntryHTML struct {
	doc          *html.Node
	Descriptors  []LinkDescriptor
	PublicURLSet bool

	anchors map[string]*html.Node
}

// Parse reads and parses an entry HTML file, extracting every
// `<link data-trunk>`, `<script data-trunk>`, and `<base data-trunk-public-url>`
// element into descriptors (or, for the base element, applying it directly).
// missingSource is called once per descriptor whose href/src attribute
// references a non-URL path that does not exist under sourceDir; it should
// log a warning, not fail the parse (spec.md §4.1).
func Parse(r io.Reader, sourceDir string, exists func(path string) bool, missingSource func(descriptor LinkDescriptor, path string)) (*EntryHTML, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.TypeHTMLParse, "parsing entry HTML", err)
	}

	e := &EntryHTML{doc: doc, anchors: make(map[string]*html.Node)}

	var walk func(n *html.Node, inHead bool)
	walk = func(n *html.Node, inHead bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				inHead = true
			case atom.Body:
				inHead = false
			}

			if hasAttr(n, attrDataTrunk) {
				switch n.DataAtom {
				case atom.Link, atom.Script:
					e.extractDescriptor(n, inHead)
					return
				}
			} else if n.DataAtom == atom.Base && hasAttr(n, attrPublicURLMarker) {
				e.PublicURLSet = true
			}
		}

		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			walk(c, inHead)
			c = next
		}
	}
	walk(doc, false)

	if exists != nil {
		for _, d := range e.Descriptors {
			path, hasPath := d.Attr("href")
			if !hasPath {
				path, hasPath = d.Attr("src")
			}
			if !hasPath || path == "" || isAbsoluteURL(path) {
				continue
			}
			if !exists(path) && missingSource != nil {
				missingSource(d, path)
			}
		}
	}

	return e, nil
}

func isAbsoluteURL(path string) bool {
	return strings.Contains(path, "://") || strings.HasPrefix(path, "//")
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func attrs(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

// extractDescriptor records n as a LinkDescriptor, replaces it in the DOM
// with an anchor comment, and appends it to e.Descriptors.
func (e *EntryHTML) extractDescriptor(n *html.Node, inHead bool) {
	kind := KindScript
	if n.DataAtom == atom.Link {
		kind = relToKind(attrValue(n, attrRel))
	}

	anchor := uuid.NewString()
	d := LinkDescriptor{
		Kind:        kind,
		Anchor:      anchor,
		Attrs:       attrs(n),
		SourceIndex: len(e.Descriptors),
		inHead:      inHead,
	}
	e.Descriptors = append(e.Descriptors, d)

	comment := &html.Node{
		Type: html.CommentNode,
		Data: anchorPrefix + anchor,
	}
	if n.Parent != nil {
		n.Parent.InsertBefore(comment, n)
		n.Parent.RemoveChild(n)
	}
	e.anchors[anchor] = comment
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func relToKind(rel string) Kind {
	switch rel {
	case "sass", "scss":
		return KindSass
	case "tailwind-css":
		return KindTailwindCSS
	case "css":
		return KindCSS
	case "icon":
		return KindIcon
	case "inline":
		return KindInline
	case "copy-file":
		return KindCopyFile
	case "copy-dir":
		return KindCopyDir
	case "rust":
		return KindRust
	default:
		return Kind(rel)
	}
}

// SetPublicURL rewrites the `<base data-trunk-public-url>` element's href to
// publicURL and strips the marker attribute, per spec.md §4.1/§4.3's
// trunk-public-url-base directive (handled entirely by the rewriter, no
// pipeline task involved).
func (e *EntryHTML) SetPublicURL(publicURL string) {
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == atom.Base && hasAttr(n, attrPublicURLMarker) {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}

	base := find(e.doc)
	if base == nil {
		return
	}

	newAttrs := make([]html.Attribute, 0, len(base.Attr))
	hasHref := false
	for _, a := range base.Attr {
		switch a.Key {
		case attrPublicURLMarker:
			continue
		case "href":
			a.Val = publicURL
			hasHref = true
		}
		newAttrs = append(newAttrs, a)
	}
	if !hasHref {
		newAttrs = append(newAttrs, html.Attribute{Key: "href", Val: publicURL})
	}
	base.Attr = newAttrs
}

// ApplyPatches replaces every descriptor's anchor comment with the HTML the
// owning pipeline produced, in the order patches are given. Callers are
// expected to have already sorted patches by descriptor SourceIndex so that
// source-order is preserved in the output (spec.md §4.2's finalization
// sequence, step 2).
func (e *EntryHTML) ApplyPatches(patches []Patch) error {
	headByAnchor := make(map[string]bool, len(e.Descriptors))
	for _, d := range e.Descriptors {
		headByAnchor[d.Anchor] = d.inHead
	}

	for _, p := range patches {
		anchorNode, ok := e.anchors[p.Anchor]
		if !ok {
			return errors.New(errors.TypeArtifactCollision, fmt.Sprintf("no anchor found for %s", p.Anchor))
		}
		if anchorNode.Parent == nil {
			continue // already applied or detached
		}

		if p.HTML == "" {
			anchorNode.Parent.RemoveChild(anchorNode)
			continue
		}

		context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		if headByAnchor[p.Anchor] {
			context = &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
		}

		nodes, err := html.ParseFragment(strings.NewReader(p.HTML), context)
		if err != nil {
			return errors.Wrap(errors.TypeHTMLParse, fmt.Sprintf("parsing patch HTML for anchor %s", p.Anchor), err)
		}

		parent := anchorNode.Parent
		for _, node := range nodes {
			parent.InsertBefore(node, anchorNode)
		}
		parent.RemoveChild(anchorNode)
	}

	return nil
}

// InjectHead inserts a raw HTML fragment at the start of <head>, used for the loader-script/preload injection step (spec.md §4.1's
// "build.inject_scripts" behavior).
func (e *EntryHTML) InjectHead(fragment string) error {
	return e.inject(atom.Head, fragment, true)
}

// InjectBodyEnd appends raw HTML at the end of <body>.
func (e *EntryHTML) InjectBodyEnd(fragment string) error {
	return e.inject(atom.Body, fragment, false)
}

func (e *EntryHTML) inject(target atom.Atom, fragment string, atStart bool) error {
	if fragment == "" {
		return nil
	}

	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == target {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}

	node := find(e.doc)
	if node == nil {
		return errors.New(errors.TypeHTMLParse, fmt.Sprintf("entry HTML has no <%s> element", target))
	}

	context := &html.Node{Type: html.ElementNode, Data: target.String(), DataAtom: target}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return errors.Wrap(errors.TypeHTMLParse, "parsing injected fragment", err)
	}

	if atStart {
		first := node.FirstChild
		for _, n := range nodes {
			node.InsertBefore(n, first)
		}
	} else {
		for _, n := range nodes {
			node.AppendChild(n)
		}
	}
	return nil
}

// Render serializes the current DOM to HTML bytes.
func (e *EntryHTML) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.doc); err != nil {
		return nil, errors.Wrap(errors.TypeIO, "rendering final HTML", err)
	}
	return buf.Bytes(), nil
}
