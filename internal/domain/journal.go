package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType is the discriminator stored in the "type" field of a journal node.
type NodeType string

const (
	NodeTypePage    NodeType = "page"
	NodeTypeSection NodeType = "section"
)

// Node is one entry of a journal tree. It is implemented only by *Page and
// *Section: pages are leaves, sections are containers.
type Node interface {
	NodeID() string
	NodeTitle() string
	SetTitle(title string)
	Type() NodeType
	isNode()
}

// Page is a leaf node. Its content lives in JournalDocument.Pages under the same id.
type Page struct {
	ID    string
	Title string
}

func (p *Page) NodeID() string        { return p.ID }
func (p *Page) NodeTitle() string     { return p.Title }
func (p *Page) SetTitle(title string) { p.Title = title }
func (p *Page) Type() NodeType        { return NodeTypePage }
func (p *Page) isNode()               {}

// Section is a container node. Children may be empty but a section never has content.
type Section struct {
	ID       string
	Title    string
	Children []Node
}

func (s *Section) NodeID() string        { return s.ID }
func (s *Section) NodeTitle() string     { return s.Title }
func (s *Section) SetTitle(title string) { s.Title = title }
func (s *Section) Type() NodeType        { return NodeTypeSection }
func (s *Section) isNode()               {}

// PageContent is the rich-text body of one page.
// FormattedText is an opaque serialized blob; it is stored and returned verbatim.
type PageContent struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	FormattedText string    `json:"formattedText"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JournalDocument is the whole notebook of one destination.
//
// Every *Page in Tree has exactly one entry in Pages and every entry in Pages
// belongs to a *Page in Tree. SelectedID is empty or the id of a node in Tree.
type JournalDocument struct {
	Tree       []Node
	Pages      map[string]PageContent
	SelectedID string
}

// Crumb is one element of a breadcrumb path, ordered from the root down.
type Crumb struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Type  NodeType `json:"type"`
}

// JournalView is what the presentation layer renders: the document plus the
// breadcrumb of the current selection.
type JournalView struct {
	Document   JournalDocument `json:"journal"`
	Breadcrumb []Crumb         `json:"breadcrumb"`
}

// nodeJSON is the stored shape of a node. Children is a pointer so that
// sections always serialize "children" (possibly empty) and pages never do.
type nodeJSON struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Type     NodeType    `json:"type"`
	Children *[]nodeJSON `json:"children,omitempty"`
}

type documentJSON struct {
	Tree       []nodeJSON             `json:"tree"`
	Pages      map[string]PageContent `json:"pages"`
	SelectedID *string                `json:"selectedId"`
}

// MarshalJSON writes the document in its stable storage shape.
func (d JournalDocument) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		Tree:  encodeNodes(d.Tree),
		Pages: d.Pages,
	}
	if out.Pages == nil {
		out.Pages = map[string]PageContent{}
	}
	if d.SelectedID != "" {
		id := d.SelectedID
		out.SelectedID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a stored document. Unknown node types fail with
// ErrInvalidStructure. A page that carries children (older documents allowed
// it) is kept as a page and its children are hoisted right after it.
func (d *JournalDocument) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}
	tree, err := decodeNodes(in.Tree)
	if err != nil {
		return err
	}
	d.Tree = tree
	d.Pages = in.Pages
	if d.Pages == nil {
		d.Pages = map[string]PageContent{}
	}
	d.SelectedID = ""
	if in.SelectedID != nil {
		d.SelectedID = *in.SelectedID
	}
	return nil
}

func encodeNodes(nodes []Node) []nodeJSON {
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *Page:
			out = append(out, nodeJSON{ID: n.ID, Title: n.Title, Type: NodeTypePage})
		case *Section:
			children := encodeNodes(n.Children)
			out = append(out, nodeJSON{ID: n.ID, Title: n.Title, Type: NodeTypeSection, Children: &children})
		}
	}
	return out
}

func decodeNodes(in []nodeJSON) ([]Node, error) {
	out := make([]Node, 0, len(in))
	for _, n := range in {
		var children []Node
		if n.Children != nil {
			var err error
			if children, err = decodeNodes(*n.Children); err != nil {
				return nil, err
			}
		}
		switch n.Type {
		case NodeTypePage:
			out = append(out, &Page{ID: n.ID, Title: n.Title})
			out = append(out, children...)
		case NodeTypeSection:
			out = append(out, &Section{ID: n.ID, Title: n.Title, Children: children})
		default:
			return nil, fmt.Errorf("%w: node %q has unknown type %q", ErrInvalidStructure, n.ID, n.Type)
		}
	}
	return out, nil
}
