package journal

import (
	"strings"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/tree"
)

// Breadcrumb returns the path from the root to id, or nil when id is empty or
// no longer in the tree.
func Breadcrumb(doc *domain.JournalDocument, id string) []domain.Crumb {
	path, err := tree.Locate(&doc.Tree, id)
	if err != nil {
		return nil
	}
	return path.Crumbs()
}

// BreadcrumbString renders crumbs the way the editor header shows them: "Trip / Day 1".
func BreadcrumbString(crumbs []domain.Crumb) string {
	titles := make([]string, len(crumbs))
	for i, c := range crumbs {
		titles[i] = c.Title
	}
	return strings.Join(titles, " / ")
}

// View pairs doc with the breadcrumb of its selection.
func View(doc domain.JournalDocument) domain.JournalView {
	crumbs := Breadcrumb(&doc, doc.SelectedID)
	if crumbs == nil {
		crumbs = []domain.Crumb{}
	}
	return domain.JournalView{Document: doc, Breadcrumb: crumbs}
}

// SelectedPage returns the selected node's content when the selection is a page.
// ok is false when nothing is selected or a section is.
func SelectedPage(doc *domain.JournalDocument) (domain.PageContent, bool) {
	path, err := tree.Locate(&doc.Tree, doc.SelectedID)
	if err != nil || path.Last().Node.Type() != domain.NodeTypePage {
		return domain.PageContent{}, false
	}
	content, ok := doc.Pages[doc.SelectedID]
	return content, ok
}
