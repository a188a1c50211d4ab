package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/store"
)

// JournalRepo owns the journal document of every destination. It is the only
// path through which a stored document changes: each method loads the latest
// value, applies one change and writes the whole document back, all inside a
// single store.Update call for the destination's key.
//
// When the write itself fails the error wraps domain.ErrStorage and the
// returned document is the state that could not be persisted.
type JournalRepo interface {
	// Open returns the destination's journal, creating and persisting the
	// seeded document ("Page 1", selected) on first access.
	Open(ctx context.Context, destinationID string) (domain.JournalDocument, error)

	// ApplyTreeOp applies one structural edit and persists the result.
	// A target id missing from the tree returns domain.ErrNotFound together
	// with the unchanged document.
	ApplyTreeOp(ctx context.Context, destinationID string, op journal.Op) (domain.JournalDocument, journal.Result, error)

	// Select sets the selected node ("" clears it) and persists the document.
	Select(ctx context.Context, destinationID, nodeID string) (domain.JournalDocument, error)

	// SavePageContent writes new formatted text for one page. It never creates
	// a document: a missing journal or page returns domain.ErrNotFound.
	SavePageContent(ctx context.Context, destinationID, pageID, formattedText string) error

	// Page reads the content of one page without modifying anything.
	Page(ctx context.Context, destinationID, pageID string) (domain.PageContent, error)

	// Delete removes the whole journal. Deleting a missing journal is not an error.
	Delete(ctx context.Context, destinationID string) error
}

// JournalRepoOption configures a JournalRepo.
type JournalRepoOption func(*kvJournalRepo)

// WithNow replaces the clock used for createdAt/updatedAt stamps.
func WithNow(now func() time.Time) JournalRepoOption {
	return func(r *kvJournalRepo) { r.now = now }
}

// WithLogger sets the logger used to report documents that had to be repaired.
func WithLogger(logger *slog.Logger) JournalRepoOption {
	return func(r *kvJournalRepo) { r.logger = logger }
}

type kvJournalRepo struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewJournalRepo constructs a JournalRepo over any store.Store backend.
func NewJournalRepo(s store.Store, opts ...JournalRepoOption) JournalRepo {
	r := &kvJournalRepo{store: s, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JournalKey is the store key of a destination's journal document.
func JournalKey(destinationID string) string {
	return "journal/" + destinationID
}

func (r *kvJournalRepo) Open(ctx context.Context, destinationID string) (domain.JournalDocument, error) {
	doc, err := r.mutate(ctx, destinationID, true, func(*domain.JournalDocument) (bool, error) {
		return false, nil
	})
	if err != nil {
		return doc, fmt.Errorf("repo.JournalRepo.Open: %w", err)
	}
	return doc, nil
}

func (r *kvJournalRepo) ApplyTreeOp(ctx context.Context, destinationID string, op journal.Op) (domain.JournalDocument, journal.Result, error) {
	var res journal.Result
	doc, err := r.mutate(ctx, destinationID, true, func(doc *domain.JournalDocument) (bool, error) {
		var err error
		res, err = journal.Apply(doc, op, r.now().UTC())
		return res.Changed, err
	})
	if err != nil {
		return doc, res, fmt.Errorf("repo.JournalRepo.ApplyTreeOp: %w", err)
	}
	return doc, res, nil
}

func (r *kvJournalRepo) Select(ctx context.Context, destinationID, nodeID string) (domain.JournalDocument, error) {
	doc, err := r.mutate(ctx, destinationID, true, func(doc *domain.JournalDocument) (bool, error) {
		if doc.SelectedID == nodeID {
			return false, nil
		}
		return true, journal.Select(doc, nodeID)
	})
	if err != nil {
		return doc, fmt.Errorf("repo.JournalRepo.Select: %w", err)
	}
	return doc, nil
}

func (r *kvJournalRepo) SavePageContent(ctx context.Context, destinationID, pageID, formattedText string) error {
	_, err := r.mutate(ctx, destinationID, false, func(doc *domain.JournalDocument) (bool, error) {
		return true, journal.SetPageContent(doc, pageID, formattedText, r.now().UTC())
	})
	if err != nil {
		return fmt.Errorf("repo.JournalRepo.SavePageContent: %w", err)
	}
	return nil
}

func (r *kvJournalRepo) Page(ctx context.Context, destinationID, pageID string) (domain.PageContent, error) {
	data, err := r.store.Get(ctx, JournalKey(destinationID))
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("repo.JournalRepo.Page: %w", err)
	}
	var doc domain.JournalDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.PageContent{}, fmt.Errorf("repo.JournalRepo.Page: %w", err)
	}
	journal.Repair(&doc, r.now().UTC())
	content, ok := doc.Pages[pageID]
	if !ok {
		return domain.PageContent{}, fmt.Errorf("repo.JournalRepo.Page %q: %w", pageID, domain.ErrNotFound)
	}
	return content, nil
}

func (r *kvJournalRepo) Delete(ctx context.Context, destinationID string) error {
	if err := r.store.Delete(ctx, JournalKey(destinationID)); err != nil {
		return fmt.Errorf("repo.JournalRepo.Delete: %w", err)
	}
	return nil
}

// mutate runs one read-modify-write of a destination's document. fn reports
// whether it changed the document; nothing is written when neither fn nor
// loading (seeding, repair) changed anything. When fn fails the document is
// left as loaded, but a freshly seeded or repaired document is still written.
func (r *kvJournalRepo) mutate(
	ctx context.Context,
	destinationID string,
	create bool,
	fn func(doc *domain.JournalDocument) (bool, error),
) (domain.JournalDocument, error) {
	key := JournalKey(destinationID)

	var (
		doc   domain.JournalDocument
		opErr error
	)
	err := r.store.Update(ctx, key, func(current []byte) ([]byte, error) {
		var (
			dirty bool
			err   error
		)
		doc, dirty, err = r.load(key, current, create)
		if err != nil {
			return nil, err
		}

		changed, err := fn(&doc)
		if err != nil {
			if !dirty {
				return nil, err
			}
			opErr = err
		}
		if !dirty && !changed {
			return nil, nil
		}
		return json.Marshal(doc)
	})
	if err != nil {
		return doc, err
	}
	return doc, opErr
}

// load decodes the stored value of key. A missing value is seeded when create
// is set; an undecodable one is logged and replaced by a seed.
func (r *kvJournalRepo) load(key string, current []byte, create bool) (domain.JournalDocument, bool, error) {
	now := r.now().UTC()
	if current == nil {
		if !create {
			return domain.JournalDocument{}, false, fmt.Errorf("journal %q: %w", key, domain.ErrNotFound)
		}
		return journal.Seed(now), true, nil
	}

	var doc domain.JournalDocument
	if err := json.Unmarshal(current, &doc); err != nil {
		if !errors.Is(err, domain.ErrInvalidStructure) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidStructure, err)
		}
		r.logger.Warn("journal document unreadable, reseeding", "key", key, "error", err)
		return journal.Seed(now), true, nil
	}
	if journal.Repair(&doc, now) {
		r.logger.Warn("journal document repaired", "key", key)
		return doc, true, nil
	}
	return doc, false, nil
}
