// Package journal applies structural edits and selection changes to a
// domain.JournalDocument. It is the only code that mutates a document; the
// repository calls it inside one read-modify-write of the stored value.
package journal

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/tree"
)

const (
	// SeedPageTitle is the title of the page every new journal starts with.
	SeedPageTitle = "Page 1"

	DefaultPageTitle    = "New page"
	DefaultSectionTitle = "New section"
)

// OpKind names one structural edit. Values match the tree panel's actions.
type OpKind string

const (
	OpAddPage    OpKind = "add-page"
	OpAddSection OpKind = "add-section"
	OpRename     OpKind = "rename"
	OpDelete     OpKind = "delete"
	OpMoveUp     OpKind = "move-up"
	OpMoveDown   OpKind = "move-down"
	OpIndent     OpKind = "indent"
	OpOutdent    OpKind = "outdent"
)

// OpKinds lists every supported operation.
func OpKinds() []OpKind {
	return []OpKind{OpAddPage, OpAddSection, OpRename, OpDelete, OpMoveUp, OpMoveDown, OpIndent, OpOutdent}
}

// Op is one tree edit. NodeID is the node acted upon; when empty the current
// selection is used. Title is the title of a new node or the new title on rename.
type Op struct {
	Kind   OpKind `json:"kind"`
	NodeID string `json:"node_id,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Result reports what Apply did. Changed is false for boundary no-ops.
// NodeID is the node acted upon (the new node for add operations).
type Result struct {
	Changed bool
	NodeID  string
}

// Seed returns the document a destination's journal starts with: a single
// selected page titled "Page 1".
func Seed(now time.Time) domain.JournalDocument {
	page, content := tree.NewPage(SeedPageTitle, now)
	return domain.JournalDocument{
		Tree:       []domain.Node{page},
		Pages:      map[string]domain.PageContent{page.ID: content},
		SelectedID: page.ID,
	}
}

// Apply performs op on doc and updates the selection:
//   - add selects the new node,
//   - delete selects the first root node (or nothing when the tree is empty),
//   - every other operation leaves the selection alone.
//
// A target id that is not in the tree returns domain.ErrNotFound and leaves doc untouched.
func Apply(doc *domain.JournalDocument, op Op, now time.Time) (Result, error) {
	if !slices.Contains(OpKinds(), op.Kind) {
		return Result{}, fmt.Errorf("journal.Apply: %w: unknown operation %q", domain.ErrValidation, op.Kind)
	}
	if doc.Pages == nil {
		doc.Pages = map[string]domain.PageContent{}
	}
	switch op.Kind {
	case OpAddPage, OpAddSection:
		return add(doc, op, now)
	}

	target := op.NodeID
	if target == "" {
		target = doc.SelectedID
	}
	path, err := tree.Locate(&doc.Tree, target)
	if err != nil {
		return Result{}, fmt.Errorf("journal.Apply %s: %w", op.Kind, err)
	}
	res := Result{NodeID: target}

	switch op.Kind {
	case OpRename:
		res.Changed = rename(doc, path.Last().Node, op.Title)
	case OpDelete:
		last := path.Last()
		removed := tree.RemoveAt(last.Siblings, last.Index)
		for _, id := range tree.PageIDs(removed) {
			delete(doc.Pages, id)
		}
		doc.SelectedID = ""
		if len(doc.Tree) > 0 {
			doc.SelectedID = doc.Tree[0].NodeID()
		}
		res.Changed = true
	case OpMoveUp:
		res.Changed = tree.MoveUp(path)
	case OpMoveDown:
		res.Changed = tree.MoveDown(path)
	case OpIndent:
		res.Changed = tree.Indent(path)
	case OpOutdent:
		res.Changed = tree.Outdent(path)
	}
	return res, nil
}

// add inserts a new node right after the target. With no usable selection the
// node is appended at root level; an explicit NodeID that does not exist is an error.
func add(doc *domain.JournalDocument, op Op, now time.Time) (Result, error) {
	var path tree.Path
	switch {
	case op.NodeID != "":
		p, err := tree.Locate(&doc.Tree, op.NodeID)
		if err != nil {
			return Result{}, fmt.Errorf("journal.Apply %s: %w", op.Kind, err)
		}
		path = p
	case doc.SelectedID != "":
		// A stale selection falls back to appending at the root.
		path, _ = tree.Locate(&doc.Tree, doc.SelectedID)
	}

	title := strings.TrimSpace(op.Title)
	var node domain.Node
	if op.Kind == OpAddPage {
		if title == "" {
			title = DefaultPageTitle
		}
		page, content := tree.NewPage(title, now)
		doc.Pages[page.ID] = content
		node = page
	} else {
		if title == "" {
			title = DefaultSectionTitle
		}
		node = tree.NewSection(title)
	}

	if path != nil {
		last := path.Last()
		tree.InsertAfter(last.Siblings, last.Index, node)
	} else {
		doc.Tree = append(doc.Tree, node)
	}
	doc.SelectedID = node.NodeID()
	return Result{Changed: true, NodeID: node.NodeID()}, nil
}

// rename sets the title on the node and, for pages, on the content record.
// An empty title is ignored.
func rename(doc *domain.JournalDocument, n domain.Node, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" || title == n.NodeTitle() {
		return false
	}
	n.SetTitle(title)
	if n.Type() == domain.NodeTypePage {
		content := doc.Pages[n.NodeID()]
		content.ID = n.NodeID()
		content.Title = title
		doc.Pages[n.NodeID()] = content
	}
	return true
}

// Select makes id the active node. An empty id clears the selection.
func Select(doc *domain.JournalDocument, id string) error {
	if id == "" {
		doc.SelectedID = ""
		return nil
	}
	if _, err := tree.Locate(&doc.Tree, id); err != nil {
		return fmt.Errorf("journal.Select: %w", err)
	}
	doc.SelectedID = id
	return nil
}

// SetPageContent stores new formatted text for a page and refreshes UpdatedAt.
func SetPageContent(doc *domain.JournalDocument, pageID, formattedText string, now time.Time) error {
	content, ok := doc.Pages[pageID]
	if !ok {
		return fmt.Errorf("journal.SetPageContent %q: %w", pageID, domain.ErrNotFound)
	}
	content.FormattedText = formattedText
	content.UpdatedAt = now
	doc.Pages[pageID] = content
	return nil
}
