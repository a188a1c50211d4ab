package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/metrics"
	"github.com/pkordes/travel-journal/backend/internal/repo"
)

const maxTitleLength = 200

// JournalService exposes the journal of a destination to the presentation layer.
//
// Two downgrades happen here rather than in the repository:
//   - an operation naming a node that no longer exists returns the unchanged
//     journal instead of an error, since the UI can race its own deletes;
//   - a write the store could not persist is logged and counted, and the
//     computed journal is still returned.
type JournalService struct {
	repo    repo.JournalRepo
	logger  *slog.Logger
	metrics *metrics.Collector
	policy  *bluemonday.Policy
}

// NewJournalService constructs a JournalService. A nil collector records nothing.
func NewJournalService(r repo.JournalRepo, logger *slog.Logger, m *metrics.Collector) *JournalService {
	return &JournalService{
		repo:    r,
		logger:  logger,
		metrics: m,
		policy:  bluemonday.UGCPolicy(),
	}
}

// Open returns the destination's journal, creating it on first access.
func (s *JournalService) Open(ctx context.Context, destinationID string) (domain.JournalView, error) {
	if err := validateDestinationID(destinationID); err != nil {
		return domain.JournalView{}, err
	}
	doc, err := s.repo.Open(ctx, destinationID)
	if err != nil {
		if doc, err = s.bestEffort(ctx, "open", destinationID, doc, err); err != nil {
			return domain.JournalView{}, fmt.Errorf("service.JournalService.Open: %w", err)
		}
	}
	return journal.View(doc), nil
}

// Apply runs one structural edit.
func (s *JournalService) Apply(ctx context.Context, destinationID string, op journal.Op) (domain.JournalView, journal.Result, error) {
	if err := validateDestinationID(destinationID); err != nil {
		return domain.JournalView{}, journal.Result{}, err
	}
	if err := validateOp(op); err != nil {
		s.metrics.TreeOp(string(op.Kind), metrics.OutcomeInvalid)
		return domain.JournalView{}, journal.Result{}, err
	}

	doc, res, err := s.repo.ApplyTreeOp(ctx, destinationID, op)
	switch {
	case err == nil:
		s.metrics.TreeOp(string(op.Kind), outcome(res))
	case errors.Is(err, domain.ErrNotFound):
		s.logger.DebugContext(ctx, "tree op target not found",
			"destination_id", destinationID, "op", op.Kind, "node_id", op.NodeID)
		s.metrics.TreeOp(string(op.Kind), metrics.OutcomeNotFound)
		res = journal.Result{}
		err = nil
	case errors.Is(err, domain.ErrStorage):
		s.metrics.TreeOp(string(op.Kind), metrics.OutcomeStorage)
		if doc, err = s.bestEffort(ctx, "apply_tree_op", destinationID, doc, err); err != nil {
			return domain.JournalView{}, journal.Result{}, fmt.Errorf("service.JournalService.Apply: %w", err)
		}
	default:
		s.metrics.TreeOp(string(op.Kind), metrics.OutcomeError)
		return domain.JournalView{}, journal.Result{}, fmt.Errorf("service.JournalService.Apply: %w", err)
	}

	if res.Changed {
		s.logger.InfoContext(ctx, "journal changed",
			"destination_id", destinationID, "op", op.Kind, "node_id", res.NodeID)
	}
	return journal.View(doc), res, nil
}

// Select sets the active node. A node id that is not in the tree leaves the
// selection as it was.
func (s *JournalService) Select(ctx context.Context, destinationID, nodeID string) (domain.JournalView, error) {
	if err := validateDestinationID(destinationID); err != nil {
		return domain.JournalView{}, err
	}
	doc, err := s.repo.Select(ctx, destinationID, nodeID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		s.logger.DebugContext(ctx, "select target not found", "destination_id", destinationID, "node_id", nodeID)
	default:
		if doc, err = s.bestEffort(ctx, "select", destinationID, doc, err); err != nil {
			return domain.JournalView{}, fmt.Errorf("service.JournalService.Select: %w", err)
		}
	}
	return journal.View(doc), nil
}

// Page returns the content of one page.
func (s *JournalService) Page(ctx context.Context, destinationID, pageID string) (domain.PageContent, error) {
	content, err := s.repo.Page(ctx, destinationID, pageID)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("service.JournalService.Page: %w", err)
	}
	return content, nil
}

// PageHTML returns a page's formatted text sanitized for display outside the editor.
func (s *JournalService) PageHTML(ctx context.Context, destinationID, pageID string) (string, error) {
	content, err := s.Page(ctx, destinationID, pageID)
	if err != nil {
		return "", err
	}
	return s.policy.Sanitize(content.FormattedText), nil
}

// SavePageContent is the editor's autosave entry point. Storage failures are
// counted here; the editor decides how to report them.
func (s *JournalService) SavePageContent(ctx context.Context, destinationID, pageID, formattedText string) error {
	if err := s.repo.SavePageContent(ctx, destinationID, pageID, formattedText); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			s.metrics.StorageFailure("save_page_content")
		}
		return fmt.Errorf("service.JournalService.SavePageContent: %w", err)
	}
	return nil
}

// Delete removes the destination's journal.
func (s *JournalService) Delete(ctx context.Context, destinationID string) error {
	if err := validateDestinationID(destinationID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, destinationID); err != nil {
		return fmt.Errorf("service.JournalService.Delete: %w", err)
	}
	s.logger.InfoContext(ctx, "journal deleted", "destination_id", destinationID)
	return nil
}

// bestEffort turns a storage failure into a warning when the repository still
// computed a document. Any other error, or a failure before anything was
// loaded, is returned unchanged.
func (s *JournalService) bestEffort(ctx context.Context, operation, destinationID string, doc domain.JournalDocument, err error) (domain.JournalDocument, error) {
	if !errors.Is(err, domain.ErrStorage) || doc.Pages == nil {
		return doc, err
	}
	s.metrics.StorageFailure(operation)
	s.logger.WarnContext(ctx, "journal not persisted",
		"destination_id", destinationID, "operation", operation, "error", err)
	return doc, nil
}

func outcome(res journal.Result) string {
	if res.Changed {
		return metrics.OutcomeChanged
	}
	return metrics.OutcomeNoop
}

func validateDestinationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: destination id is required", domain.ErrValidation)
	}
	return nil
}

func validateOp(op journal.Op) error {
	kinds := make([]any, 0, len(journal.OpKinds()))
	for _, k := range journal.OpKinds() {
		kinds = append(kinds, k)
	}
	err := validation.ValidateStruct(&op,
		validation.Field(&op.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&op.Title, validation.RuneLength(0, maxTitleLength)),
		validation.Field(&op.NodeID, validation.RuneLength(0, 64)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
