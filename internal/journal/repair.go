package journal

import (
	"time"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/tree"
)

// Repair restores the document invariants on a value read from storage and
// reports whether anything had to change:
//   - a page node without content gets an empty content record,
//   - content with no page node (or keyed by a section id) is dropped,
//   - a section without a children slice gets an empty one,
//   - a selection that points nowhere is cleared.
//
// Duplicate node ids are left alone; Locate resolves to the first occurrence.
func Repair(doc *domain.JournalDocument, now time.Time) bool {
	changed := false
	if doc.Pages == nil {
		doc.Pages = map[string]domain.PageContent{}
	}
	if doc.Tree == nil {
		doc.Tree = []domain.Node{}
	}

	pageIDs := make(map[string]struct{})
	selectionFound := doc.SelectedID == ""
	tree.Walk(doc.Tree, func(n domain.Node, _ int) {
		if n.NodeID() == doc.SelectedID {
			selectionFound = true
		}
		switch n := n.(type) {
		case *domain.Section:
			if n.Children == nil {
				n.Children = []domain.Node{}
			}
		case *domain.Page:
			pageIDs[n.ID] = struct{}{}
			if _, ok := doc.Pages[n.ID]; !ok {
				doc.Pages[n.ID] = domain.PageContent{ID: n.ID, Title: n.Title, CreatedAt: now, UpdatedAt: now}
				changed = true
			}
		}
	})

	for id := range doc.Pages {
		if _, ok := pageIDs[id]; !ok {
			delete(doc.Pages, id)
			changed = true
		}
	}
	if !selectionFound {
		doc.SelectedID = ""
		changed = true
	}
	return changed
}
