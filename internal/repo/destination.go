// Package repo contains all persistence logic for the Travel Journal API.
// Destinations live in Postgres; journals live in a key-value store.
// No business logic lives here, only storage access and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DestinationRepo defines the persistence operations for Destinations.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with a mock.
type DestinationRepo interface {
	// Create inserts a new destination and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, d domain.Destination) (domain.Destination, error)

	// GetByID retrieves a single destination by its UUID primary key.
	// Returns domain.ErrNotFound if no destination with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Destination, error)

	// ListPaged returns one page of destinations ordered by start_date descending,
	// together with the total number of destinations.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error)

	// Update overwrites the mutable fields of an existing destination and returns the
	// updated record. Returns domain.ErrNotFound if no destination with that ID exists.
	Update(ctx context.Context, d domain.Destination) (domain.Destination, error)

	// Delete removes a destination by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgDestinationRepo is the Postgres implementation of DestinationRepo.
type pgDestinationRepo struct {
	db db
}

// NewDestinationRepo constructs a DestinationRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewDestinationRepo(db db) DestinationRepo {
	return &pgDestinationRepo{db: db}
}

const destinationColumns = `id, place, country, start_date, end_date, mood, rating, notes, created_at, updated_at`

// Create inserts a new destination row and returns the full persisted record.
func (r *pgDestinationRepo) Create(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	const q = `
		INSERT INTO destinations (place, country, start_date, end_date, mood, rating, notes)
		VALUES (@place, @country, @start_date, @end_date, @mood, @rating, @notes)
		RETURNING ` + destinationColumns

	row := r.db.QueryRow(ctx, q, destinationArgs(d))
	result, err := scanDestination(row)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("repo.DestinationRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a destination by primary key.
func (r *pgDestinationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Destination, error) {
	const q = `SELECT ` + destinationColumns + ` FROM destinations WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanDestination(row)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("repo.DestinationRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns destinations ordered by start_date descending (most recent first).
// The total is taken from a window count so one round trip serves both values.
func (r *pgDestinationRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error) {
	const q = `
		SELECT ` + destinationColumns + `, count(*) OVER () AS total
		FROM destinations
		ORDER BY start_date DESC, created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.DestinationRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Destination
		total int64
	)
	for rows.Next() {
		d, err := scanDestination(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.DestinationRepo.ListPaged: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.DestinationRepo.ListPaged: rows: %w", err)
	}
	if len(out) == 0 && p.Offset() > 0 {
		// Past the last page the window count is unavailable; count directly.
		if err := r.db.QueryRow(ctx, `SELECT count(*) FROM destinations`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("repo.DestinationRepo.ListPaged: count: %w", err)
		}
	}

	return out, total, nil
}

// Update overwrites the mutable fields of a destination and returns the updated record.
func (r *pgDestinationRepo) Update(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	const q = `
		UPDATE destinations
		SET place      = @place,
		    country    = @country,
		    start_date = @start_date,
		    end_date   = @end_date,
		    mood       = @mood,
		    rating     = @rating,
		    notes      = @notes,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + destinationColumns

	args := destinationArgs(d)
	args["id"] = d.ID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanDestination(row)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("repo.DestinationRepo.Update: %w", err)
	}
	return result, nil
}

// Delete removes a destination by primary key.
func (r *pgDestinationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM destinations WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.DestinationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.DestinationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func destinationArgs(d domain.Destination) pgx.NamedArgs {
	return pgx.NamedArgs{
		"place":      d.Place,
		"country":    d.Country,
		"start_date": d.StartDate,
		"end_date":   d.EndDate,
		"mood":       d.Mood,
		"rating":     d.Rating, // nil becomes NULL
		"notes":      d.Notes,
	}
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanDestination to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanDestination maps a single database row into a domain.Destination.
// extra receives any columns selected after the destination columns.
func scanDestination(s scanner, extra ...any) (domain.Destination, error) {
	var (
		d         domain.Destination
		id        pgtype.UUID
		startDate pgtype.Date
		endDate   pgtype.Date
		rating    pgtype.Int2
	)

	dest := append([]any{
		&id, &d.Place, &d.Country, &startDate, &endDate, &d.Mood, &rating, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Destination{}, domain.ErrNotFound
		}
		return domain.Destination{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.StartDate = startDate.Time
	d.EndDate = endDate.Time
	if rating.Valid {
		v := int(rating.Int16)
		d.Rating = &v
	}
	return d, nil
}
