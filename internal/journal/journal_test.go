package journal_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/tree"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func apply(t *testing.T, doc *domain.JournalDocument, op journal.Op) journal.Result {
	t.Helper()
	res, err := journal.Apply(doc, op, now)
	require.NoError(t, err)
	return res
}

// checkInvariants asserts that node ids are unique, that pages and content
// records match one to one and that the selection is empty or points into
// the tree.
func checkInvariants(t *testing.T, doc *domain.JournalDocument) {
	t.Helper()
	pages := map[string]bool{}
	ids := map[string]bool{}
	nodes := 0
	tree.Walk(doc.Tree, func(n domain.Node, _ int) {
		nodes++
		assert.False(t, ids[n.NodeID()], "node id %s appears twice", n.NodeID())
		ids[n.NodeID()] = true
		if n.Type() == domain.NodeTypePage {
			pages[n.NodeID()] = true
			_, ok := doc.Pages[n.NodeID()]
			assert.True(t, ok, "page %s has content", n.NodeID())
		}
	})
	assert.Len(t, ids, nodes, "node ids are unique")
	for id := range doc.Pages {
		assert.True(t, pages[id], "content %s belongs to a page", id)
	}
	if doc.SelectedID != "" {
		assert.True(t, ids[doc.SelectedID], "selection %s is in the tree", doc.SelectedID)
	}
}

func TestSeed(t *testing.T) {
	doc := journal.Seed(now)

	require.Len(t, doc.Tree, 1)
	assert.Equal(t, journal.SeedPageTitle, doc.Tree[0].NodeTitle())
	assert.Equal(t, domain.NodeTypePage, doc.Tree[0].Type())
	assert.Equal(t, doc.Tree[0].NodeID(), doc.SelectedID)
	checkInvariants(t, &doc)
}

// TestScenario builds "Trip notes / Day 1", moves it around and deletes the
// section with its pages.
func TestScenario(t *testing.T) {
	doc := journal.Seed(now)
	seed := doc.SelectedID

	sec := apply(t, &doc, journal.Op{Kind: journal.OpAddSection, Title: "Trip notes"})
	assert.Equal(t, sec.NodeID, doc.SelectedID, "add selects the new node")
	day := apply(t, &doc, journal.Op{Kind: journal.OpAddPage, Title: "Day 1"})
	require.Len(t, doc.Tree, 3)

	res := apply(t, &doc, journal.Op{Kind: journal.OpIndent, NodeID: day.NodeID})
	assert.True(t, res.Changed)
	assert.Equal(t, "Trip notes / Day 1", journal.BreadcrumbString(journal.Breadcrumb(&doc, day.NodeID)))

	res = apply(t, &doc, journal.Op{Kind: journal.OpRename, NodeID: day.NodeID, Title: "  Day one "})
	assert.True(t, res.Changed)
	assert.Equal(t, "Day one", doc.Pages[day.NodeID].Title, "rename updates the content record")

	res = apply(t, &doc, journal.Op{Kind: journal.OpRename, NodeID: day.NodeID, Title: "   "})
	assert.False(t, res.Changed, "blank title is ignored")

	res = apply(t, &doc, journal.Op{Kind: journal.OpDelete, NodeID: sec.NodeID})
	assert.True(t, res.Changed)
	assert.NotContains(t, doc.Pages, day.NodeID, "pages under a deleted section go too")
	assert.Equal(t, seed, doc.SelectedID, "delete selects the first root node")
	checkInvariants(t, &doc)
}

// TestDelete_CascadesNestedPages deletes a section holding three pages, one of
// them inside a nested section, and checks exactly those contents go.
func TestDelete_CascadesNestedPages(t *testing.T) {
	doc := journal.Seed(now)
	keep := doc.SelectedID

	sec := apply(t, &doc, journal.Op{Kind: journal.OpAddSection, Title: "Week 1"})
	day1 := apply(t, &doc, journal.Op{Kind: journal.OpAddPage, Title: "Day 1"})
	apply(t, &doc, journal.Op{Kind: journal.OpIndent, NodeID: day1.NodeID})
	day2 := apply(t, &doc, journal.Op{Kind: journal.OpAddPage, NodeID: day1.NodeID, Title: "Day 2"})
	inner := apply(t, &doc, journal.Op{Kind: journal.OpAddSection, NodeID: day2.NodeID, Title: "Side trip"})
	day3 := apply(t, &doc, journal.Op{Kind: journal.OpAddPage, NodeID: inner.NodeID, Title: "Day 3"})
	apply(t, &doc, journal.Op{Kind: journal.OpIndent, NodeID: day3.NodeID})

	assert.Equal(t, "Week 1 / Side trip / Day 3",
		journal.BreadcrumbString(journal.Breadcrumb(&doc, day3.NodeID)))
	require.Len(t, doc.Pages, 4)
	checkInvariants(t, &doc)

	apply(t, &doc, journal.Op{Kind: journal.OpDelete, NodeID: sec.NodeID})

	assert.Len(t, doc.Pages, 1, "three pages removed with the section")
	assert.Contains(t, doc.Pages, keep)
	for _, id := range []string{day1.NodeID, day2.NodeID, day3.NodeID} {
		assert.NotContains(t, doc.Pages, id)
	}
	assert.Len(t, doc.Tree, 1)
	checkInvariants(t, &doc)
}

func TestAdd_DefaultsAndPlacement(t *testing.T) {
	doc := journal.Seed(now)
	first := doc.SelectedID

	p := apply(t, &doc, journal.Op{Kind: journal.OpAddPage})
	s := apply(t, &doc, journal.Op{Kind: journal.OpAddSection, NodeID: first})

	assert.Equal(t, journal.DefaultPageTitle, doc.Pages[p.NodeID].Title)
	require.Len(t, doc.Tree, 3)
	assert.Equal(t, s.NodeID, doc.Tree[1].NodeID(), "inserted right after the target")
	assert.Equal(t, journal.DefaultSectionTitle, doc.Tree[1].NodeTitle())
}

func TestAdd_WithoutSelectionAppendsAtRoot(t *testing.T) {
	doc := journal.Seed(now)
	require.NoError(t, journal.Select(&doc, ""))

	res := apply(t, &doc, journal.Op{Kind: journal.OpAddPage, Title: "Last"})

	assert.Equal(t, res.NodeID, doc.Tree[len(doc.Tree)-1].NodeID())
}

func TestAdd_ExplicitMissingTarget(t *testing.T) {
	doc := journal.Seed(now)

	_, err := journal.Apply(&doc, journal.Op{Kind: journal.OpAddPage, NodeID: "gone"}, now)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, doc.Tree, 1)
}

func TestDelete_LastNodeClearsSelection(t *testing.T) {
	doc := journal.Seed(now)

	apply(t, &doc, journal.Op{Kind: journal.OpDelete})

	assert.Empty(t, doc.Tree)
	assert.Empty(t, doc.Pages)
	assert.Empty(t, doc.SelectedID)
}

func TestApply_UnknownKind(t *testing.T) {
	doc := journal.Seed(now)

	_, err := journal.Apply(&doc, journal.Op{Kind: "shuffle"}, now)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestApply_MissingTarget(t *testing.T) {
	doc := journal.Seed(now)
	require.NoError(t, journal.Select(&doc, ""))

	for _, kind := range []journal.OpKind{journal.OpRename, journal.OpDelete, journal.OpMoveUp, journal.OpIndent} {
		_, err := journal.Apply(&doc, journal.Op{Kind: kind}, now)
		assert.ErrorIs(t, err, domain.ErrNotFound, kind)
	}
}

func TestSelect(t *testing.T) {
	doc := journal.Seed(now)
	first := doc.SelectedID

	assert.ErrorIs(t, journal.Select(&doc, "nope"), domain.ErrNotFound)
	assert.Equal(t, first, doc.SelectedID, "failed select keeps the selection")

	require.NoError(t, journal.Select(&doc, ""))
	_, ok := journal.SelectedPage(&doc)
	assert.False(t, ok)

	sec := apply(t, &doc, journal.Op{Kind: journal.OpAddSection})
	require.NoError(t, journal.Select(&doc, sec.NodeID))
	_, ok = journal.SelectedPage(&doc)
	assert.False(t, ok, "a section has no content")

	require.NoError(t, journal.Select(&doc, first))
	content, ok := journal.SelectedPage(&doc)
	assert.True(t, ok)
	assert.Equal(t, first, content.ID)
}

func TestSetPageContent(t *testing.T) {
	doc := journal.Seed(now)
	later := now.Add(time.Hour)

	require.NoError(t, journal.SetPageContent(&doc, doc.SelectedID, "<b>hi</b>", later))

	content := doc.Pages[doc.SelectedID]
	assert.Equal(t, "<b>hi</b>", content.FormattedText)
	assert.Equal(t, later, content.UpdatedAt)
	assert.Equal(t, now, content.CreatedAt)

	assert.ErrorIs(t, journal.SetPageContent(&doc, "missing", "x", later), domain.ErrNotFound)
}

func TestView(t *testing.T) {
	doc := journal.Seed(now)
	require.NoError(t, journal.Select(&doc, ""))

	view := journal.View(doc)

	assert.NotNil(t, view.Breadcrumb)
	assert.Empty(t, view.Breadcrumb)
}

// TestRandomOps applies a long random sequence of operations and checks the
// document invariants after every step.
func TestRandomOps(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	kinds := journal.OpKinds()
	doc := journal.Seed(now)

	for i := range 500 {
		var ids []string
		tree.Walk(doc.Tree, func(n domain.Node, _ int) { ids = append(ids, n.NodeID()) })

		op := journal.Op{Kind: kinds[rng.IntN(len(kinds))], Title: "t"}
		if len(ids) > 0 && rng.IntN(4) > 0 {
			op.NodeID = ids[rng.IntN(len(ids))]
		}
		if len(ids) == 0 && op.Kind != journal.OpAddPage && op.Kind != journal.OpAddSection {
			op.Kind = journal.OpAddPage
		}
		if op.NodeID == "" && doc.SelectedID == "" && op.Kind != journal.OpAddPage && op.Kind != journal.OpAddSection {
			continue
		}

		_, err := journal.Apply(&doc, op, now)
		require.NoError(t, err, "step %d: %+v", i, op)
		checkInvariants(t, &doc)
	}
}

func TestRepair(t *testing.T) {
	doc := domain.JournalDocument{
		Tree: []domain.Node{
			&domain.Page{ID: "p1", Title: "Day 1"},
			&domain.Section{ID: "s1", Title: "Week"},
		},
		Pages: map[string]domain.PageContent{
			"s1":     {ID: "s1"},
			"orphan": {ID: "orphan"},
		},
		SelectedID: "gone",
	}

	assert.True(t, journal.Repair(&doc, now))

	assert.Equal(t, "Day 1", doc.Pages["p1"].Title)
	assert.NotContains(t, doc.Pages, "s1")
	assert.NotContains(t, doc.Pages, "orphan")
	assert.Empty(t, doc.SelectedID)
	assert.NotNil(t, doc.Tree[1].(*domain.Section).Children)
	checkInvariants(t, &doc)

	assert.False(t, journal.Repair(&doc, now), "a valid document is left alone")
}
