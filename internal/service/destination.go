// Package service contains the business logic for the Travel Journal API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/repo"
)

// journalDeleter is the part of the journal the destination service needs.
type journalDeleter interface {
	Delete(ctx context.Context, destinationID string) error
}

// DestinationService implements business logic for Destination operations.
type DestinationService struct {
	repo     repo.DestinationRepo
	journals journalDeleter
	logger   *slog.Logger
}

// NewDestinationService constructs a DestinationService. Deleting a destination
// also deletes its journal through journals.
func NewDestinationService(r repo.DestinationRepo, journals journalDeleter, logger *slog.Logger) *DestinationService {
	return &DestinationService{repo: r, journals: journals, logger: logger}
}

// Create validates and persists a new destination.
func (s *DestinationService) Create(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	d = normalizeDestination(d)
	if err := validateDestination(d); err != nil {
		return domain.Destination{}, fmt.Errorf("service.DestinationService.Create: %w", err)
	}
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("service.DestinationService.Create: %w", err)
	}
	return created, nil
}

// GetByID returns a single destination by ID.
func (s *DestinationService) GetByID(ctx context.Context, id uuid.UUID) (domain.Destination, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("service.DestinationService.GetByID: %w", err)
	}
	return d, nil
}

// ListPaged returns one page of destinations and the total count.
func (s *DestinationService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error) {
	list, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.DestinationService.ListPaged: %w", err)
	}
	return list, total, nil
}

// Update validates and updates an existing destination.
func (s *DestinationService) Update(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	d = normalizeDestination(d)
	if err := validateDestination(d); err != nil {
		return domain.Destination{}, fmt.Errorf("service.DestinationService.Update: %w", err)
	}
	updated, err := s.repo.Update(ctx, d)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("service.DestinationService.Update: %w", err)
	}
	return updated, nil
}

// Delete removes a destination and then its journal. A journal that cannot be
// removed is logged; the destination is already gone and the orphaned
// document is unreachable.
func (s *DestinationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.DestinationService.Delete: %w", err)
	}
	if err := s.journals.Delete(ctx, id.String()); err != nil {
		s.logger.WarnContext(ctx, "journal not deleted with destination", "destination_id", id, "error", err)
	}
	return nil
}

func normalizeDestination(d domain.Destination) domain.Destination {
	d.Place = strings.TrimSpace(d.Place)
	d.Country = strings.TrimSpace(d.Country)
	d.Mood = strings.TrimSpace(d.Mood)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

// validateDestination enforces the destination's field rules. It is called
// after normalizeDestination, so a whitespace-only place counts as empty.
func validateDestination(d domain.Destination) error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Place, validation.Required.Error("place is required"), validation.RuneLength(1, 200)),
		validation.Field(&d.Country, validation.RuneLength(0, 100)),
		validation.Field(&d.StartDate, validation.Required.Error("start_date is required")),
		validation.Field(&d.EndDate,
			validation.Required.Error("end_date is required"),
			validation.By(func(any) error {
				if d.EndDate.Before(d.StartDate) {
					return errors.New("end_date must not be before start_date")
				}
				return nil
			})),
		validation.Field(&d.Mood, validation.RuneLength(0, 50)),
		validation.Field(&d.Rating, validation.NilOrNotEmpty, validation.Min(1), validation.Max(5)),
		validation.Field(&d.Notes, validation.RuneLength(0, 2000)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
