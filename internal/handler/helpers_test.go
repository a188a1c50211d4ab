package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/editor/editortest"
	"github.com/pkordes/travel-journal/backend/internal/handler"
	"github.com/pkordes/travel-journal/backend/internal/repo"
	"github.com/pkordes/travel-journal/backend/internal/service"
	"github.com/pkordes/travel-journal/backend/internal/store"
)

// mockDestinationServicer is a test double for handler.DestinationServicer.
// Set only the method fields your test needs.
type mockDestinationServicer struct {
	create    func(ctx context.Context, d domain.Destination) (domain.Destination, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Destination, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error)
	update    func(ctx context.Context, d domain.Destination) (domain.Destination, error)
	delete    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDestinationServicer) Create(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	return m.create(ctx, d)
}
func (m *mockDestinationServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Destination, error) {
	return m.getByID(ctx, id)
}
func (m *mockDestinationServicer) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockDestinationServicer) Update(ctx context.Context, d domain.Destination) (domain.Destination, error) {
	return m.update(ctx, d)
}
func (m *mockDestinationServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockDestinationServicer must satisfy handler.DestinationServicer.
var _ handler.DestinationServicer = (*mockDestinationServicer)(nil)

// existingDestinations answers GetByID for every id in ids and 404 otherwise.
func existingDestinations(ids ...uuid.UUID) *mockDestinationServicer {
	return &mockDestinationServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Destination, error) {
			for _, known := range ids {
				if id == known {
					d := destinationFixture()
					d.ID = id
					return d, nil
				}
			}
			return domain.Destination{}, domain.ErrNotFound
		},
	}
}

// testAPI is the full route tree over in-memory journal storage.
type testAPI struct {
	http.Handler
	clock    *editortest.Clock
	sessions *service.SessionService
}

// newTestAPI wires real journal and session services over a MemoryStore, with
// a mocked destination service. This mirrors how main.go wires production.
func newTestAPI(t *testing.T, destinations handler.DestinationServicer) testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	journals := service.NewJournalService(repo.NewJournalRepo(store.NewMemoryStore(), repo.WithLogger(logger)), logger, nil)
	clock := editortest.NewClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	sessions := service.NewSessionService(journals, logger, nil, service.WithClock(clock))
	srv := handler.NewServer(destinations, journals, sessions, logger)
	return testAPI{Handler: srv.Handler(), clock: clock, sessions: sessions}
}

func destinationFixture() domain.Destination {
	rating := 5
	return domain.Destination{
		ID:        uuid.New(),
		Place:     "Kyoto",
		Country:   "Japan",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
		Rating:    &rating,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// do sends one request and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}
