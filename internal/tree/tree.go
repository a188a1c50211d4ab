// Package tree implements the structural algorithms of a journal tree.
// Every function works on a tree value owned by the caller and keeps no state
// between calls. Functions that can do nothing at a boundary (first sibling,
// root level) report false; a missing id is reported as domain.ErrNotFound.
package tree

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// Frame is one step of a Path: the slice that contains Node and its index there.
// Siblings points at the slice variable itself (the root slice or a section's
// Children), so mutations through it are visible to the tree.
type Frame struct {
	Siblings *[]domain.Node
	Index    int
	Node     domain.Node
}

// Path is the chain of frames from a root node down to a located node.
// A Path is only valid until the next structural mutation of the tree.
type Path []Frame

// Last returns the frame of the located node.
func (p Path) Last() Frame { return p[len(p)-1] }

// Depth is 1 for root-level nodes.
func (p Path) Depth() int { return len(p) }

// Parent returns the frame of the located node's parent section.
// ok is false for root-level nodes.
func (p Path) Parent() (Frame, bool) {
	if len(p) < 2 {
		return Frame{}, false
	}
	return p[len(p)-2], true
}

// Crumbs returns the breadcrumb of the path, root first.
func (p Path) Crumbs() []domain.Crumb {
	out := make([]domain.Crumb, len(p))
	for i, f := range p {
		out[i] = domain.Crumb{ID: f.Node.NodeID(), Title: f.Node.NodeTitle(), Type: f.Node.Type()}
	}
	return out
}

// Locate searches the tree depth-first for id and returns its path.
func Locate(tree *[]domain.Node, id string) (Path, error) {
	if id != "" {
		if p := locate(tree, id, nil); p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("tree.Locate %q: %w", id, domain.ErrNotFound)
}

func locate(siblings *[]domain.Node, id string, prefix Path) Path {
	for i, n := range *siblings {
		// Full slice expression so sibling branches never share a backing array.
		p := append(prefix[:len(prefix):len(prefix)], Frame{Siblings: siblings, Index: i, Node: n})
		if n.NodeID() == id {
			return p
		}
		if s, ok := n.(*domain.Section); ok {
			if found := locate(&s.Children, id, p); found != nil {
				return found
			}
		}
	}
	return nil
}

// InsertAfter inserts node right after position index. An index of -1 inserts
// at the head; an index past the end appends.
func InsertAfter(siblings *[]domain.Node, index int, node domain.Node) {
	at := min(max(index+1, 0), len(*siblings))
	*siblings = slices.Insert(*siblings, at, node)
}

// RemoveAt detaches and returns the node at index.
func RemoveAt(siblings *[]domain.Node, index int) domain.Node {
	removed := (*siblings)[index]
	*siblings = slices.Delete(*siblings, index, index+1)
	return removed
}

// NewPage allocates a page node and its empty content record.
func NewPage(title string, now time.Time) (*domain.Page, domain.PageContent) {
	id := uuid.NewString()
	return &domain.Page{ID: id, Title: title}, domain.PageContent{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSection allocates an empty section node.
func NewSection(title string) *domain.Section {
	return &domain.Section{ID: uuid.NewString(), Title: title, Children: []domain.Node{}}
}

// MoveUp swaps the located node with its previous sibling.
func MoveUp(p Path) bool {
	last := p.Last()
	if last.Index == 0 {
		return false
	}
	s := *last.Siblings
	s[last.Index-1], s[last.Index] = s[last.Index], s[last.Index-1]
	return true
}

// MoveDown swaps the located node with its next sibling.
func MoveDown(p Path) bool {
	last := p.Last()
	s := *last.Siblings
	if last.Index >= len(s)-1 {
		return false
	}
	s[last.Index+1], s[last.Index] = s[last.Index], s[last.Index+1]
	return true
}

// Indent makes the located node the last child of its previous sibling.
// Pages are leaves, so a previous sibling that is a page is a boundary too.
func Indent(p Path) bool {
	last := p.Last()
	if last.Index == 0 {
		return false
	}
	prev, ok := (*last.Siblings)[last.Index-1].(*domain.Section)
	if !ok {
		return false
	}
	node := RemoveAt(last.Siblings, last.Index)
	prev.Children = append(prev.Children, node)
	return true
}

// Outdent moves the located node out of its parent section and places it
// immediately after that parent in the parent's own sibling list.
func Outdent(p Path) bool {
	parent, ok := p.Parent()
	if !ok {
		return false
	}
	section := parent.Node.(*domain.Section)
	node := RemoveAt(&section.Children, p.Last().Index)
	InsertAfter(parent.Siblings, parent.Index, node)
	return true
}

// PageIDs returns the ids of every page in the subtree rooted at n, n included.
func PageIDs(n domain.Node) []string {
	var ids []string
	Walk([]domain.Node{n}, func(n domain.Node, _ int) {
		if n.Type() == domain.NodeTypePage {
			ids = append(ids, n.NodeID())
		}
	})
	return ids
}

// Walk visits every node depth-first in display order. Root nodes have depth 0.
func Walk(nodes []domain.Node, fn func(n domain.Node, depth int)) {
	walk(nodes, 0, fn)
}

func walk(nodes []domain.Node, depth int, fn func(domain.Node, int)) {
	for _, n := range nodes {
		fn(n, depth)
		if s, ok := n.(*domain.Section); ok {
			walk(s.Children, depth+1, fn)
		}
	}
}
