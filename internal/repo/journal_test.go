package repo_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/repo"
	"github.com/pkordes/travel-journal/backend/internal/store"
)

const journalDestID = "6f3b8c1e-0d2a-4f57-8b9e-1a2c3d4e5f60"

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newJournalRepo(t *testing.T) (repo.JournalRepo, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	r := repo.NewJournalRepo(s,
		repo.WithNow(func() time.Time { return fixedNow }),
		repo.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return r, s
}

func stored(t *testing.T, s store.Store) domain.JournalDocument {
	t.Helper()
	var doc domain.JournalDocument
	require.NoError(t, store.GetJSON(context.Background(), s, repo.JournalKey(journalDestID), &doc))
	return doc
}

func TestJournalRepo_Open_SeedsAndPersists(t *testing.T) {
	r, s := newJournalRepo(t)

	doc, err := r.Open(context.Background(), journalDestID)

	require.NoError(t, err)
	require.Len(t, doc.Tree, 1)
	assert.Equal(t, journal.SeedPageTitle, doc.Tree[0].NodeTitle())
	assert.Equal(t, doc.Tree[0].NodeID(), doc.SelectedID)
	assert.Equal(t, fixedNow, doc.Pages[doc.SelectedID].CreatedAt)

	persisted := stored(t, s)
	assert.Equal(t, doc.SelectedID, persisted.SelectedID, "the seed is written on first access")
}

func TestJournalRepo_Open_IsStable(t *testing.T) {
	r, _ := newJournalRepo(t)
	ctx := context.Background()

	first, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)
	second, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)

	assert.Equal(t, first.SelectedID, second.SelectedID)
}

func TestJournalRepo_Open_ReseedsCorruptDocument(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, repo.JournalKey(journalDestID),
		[]byte(`{"tree":[{"id":"x","title":"?","type":"folder"}],"pages":{}}`)))

	doc, err := r.Open(ctx, journalDestID)

	require.NoError(t, err)
	require.Len(t, doc.Tree, 1)
	assert.Equal(t, journal.SeedPageTitle, doc.Tree[0].NodeTitle())
	assert.Equal(t, doc.SelectedID, stored(t, s).SelectedID)
}

func TestJournalRepo_Open_RepairsMissingContent(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, repo.JournalKey(journalDestID), []byte(`{
		"tree":[{"id":"p1","title":"Day 1","type":"page"}],
		"pages":{"orphan":{"id":"orphan","title":"Gone"}},
		"selectedId":"missing"}`)))

	doc, err := r.Open(ctx, journalDestID)

	require.NoError(t, err)
	assert.Contains(t, doc.Pages, "p1")
	assert.NotContains(t, doc.Pages, "orphan")
	assert.Empty(t, doc.SelectedID)
	assert.Contains(t, stored(t, s).Pages, "p1", "the repair is persisted")
}

func TestJournalRepo_ApplyTreeOp(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()

	doc, res, err := r.ApplyTreeOp(ctx, journalDestID, journal.Op{Kind: journal.OpAddSection, Title: "Week 1"})

	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.Len(t, doc.Tree, 2)
	assert.Equal(t, res.NodeID, doc.SelectedID)
	assert.Len(t, stored(t, s).Tree, 2)
}

func TestJournalRepo_ApplyTreeOp_MissingNode(t *testing.T) {
	r, _ := newJournalRepo(t)
	ctx := context.Background()
	before, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)

	doc, res, err := r.ApplyTreeOp(ctx, journalDestID, journal.Op{Kind: journal.OpDelete, NodeID: "nope"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, res.Changed)
	assert.Equal(t, before.SelectedID, doc.SelectedID)
	assert.Len(t, doc.Tree, 1)
}

func TestJournalRepo_ApplyTreeOp_NoopDoesNotWrite(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()
	_, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, repo.JournalKey(journalDestID), mustMarshal(t, stored(t, s))))
	before, err := s.Get(ctx, repo.JournalKey(journalDestID))
	require.NoError(t, err)

	_, res, err := r.ApplyTreeOp(ctx, journalDestID, journal.Op{Kind: journal.OpMoveUp})

	require.NoError(t, err)
	assert.False(t, res.Changed)
	after, err := s.Get(ctx, repo.JournalKey(journalDestID))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestJournalRepo_Select(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()

	doc, err := r.Select(ctx, journalDestID, "")
	require.NoError(t, err)
	assert.Empty(t, doc.SelectedID)
	assert.Empty(t, stored(t, s).SelectedID)

	_, err = r.Select(ctx, journalDestID, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournalRepo_SavePageContent(t *testing.T) {
	r, _ := newJournalRepo(t)
	ctx := context.Background()
	doc, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)

	require.NoError(t, r.SavePageContent(ctx, journalDestID, doc.SelectedID, "<p>Tram 28</p>"))

	page, err := r.Page(ctx, journalDestID, doc.SelectedID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Tram 28</p>", page.FormattedText)
	assert.Equal(t, journal.SeedPageTitle, page.Title)
}

func TestJournalRepo_SavePageContent_NeverSeeds(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()

	err := r.SavePageContent(ctx, journalDestID, "p1", "text")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, repo.JournalKey(journalDestID))
	assert.ErrorIs(t, err, domain.ErrNotFound, "no journal is created by a save")
}

func TestJournalRepo_Page_Missing(t *testing.T) {
	r, _ := newJournalRepo(t)
	ctx := context.Background()

	_, err := r.Page(ctx, journalDestID, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "no journal yet")

	_, err = r.Open(ctx, journalDestID)
	require.NoError(t, err)
	_, err = r.Page(ctx, journalDestID, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "no such page")
}

func TestJournalRepo_Delete(t *testing.T) {
	r, s := newJournalRepo(t)
	ctx := context.Background()
	_, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, journalDestID))
	require.NoError(t, r.Delete(ctx, journalDestID), "deleting twice is fine")

	_, err = s.Get(ctx, repo.JournalKey(journalDestID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestJournalRepo_ConcurrentOpsAreNotLost runs adds in parallel; each one is a
// full read-modify-write, so every page must survive.
func TestJournalRepo_ConcurrentOpsAreNotLost(t *testing.T) {
	r, _ := newJournalRepo(t)
	ctx := context.Background()
	const adds = 20

	var wg sync.WaitGroup
	for j := 0; j < adds; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.ApplyTreeOp(ctx, journalDestID, journal.Op{Kind: journal.OpAddPage})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := r.Open(ctx, journalDestID)
	require.NoError(t, err)
	assert.Len(t, doc.Tree, adds+1)
	assert.Len(t, doc.Pages, adds+1)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
