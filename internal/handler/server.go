// Package handler implements the HTTP handlers for the Travel Journal API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, destination.go, journal.go, session.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/editor"
	"github.com/pkordes/travel-journal/backend/internal/journal"
	"github.com/pkordes/travel-journal/backend/internal/service"
)

// DestinationServicer defines the business operations the destination
// handlers depend on. Defining the interface here (in the consumer package)
// lets handler tests inject a mock without touching the database.
type DestinationServicer interface {
	Create(ctx context.Context, d domain.Destination) (domain.Destination, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Destination, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error)
	Update(ctx context.Context, d domain.Destination) (domain.Destination, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// JournalServicer defines the journal operations behind the tree panel.
type JournalServicer interface {
	Open(ctx context.Context, destinationID string) (domain.JournalView, error)
	Apply(ctx context.Context, destinationID string, op journal.Op) (domain.JournalView, journal.Result, error)
	Select(ctx context.Context, destinationID, nodeID string) (domain.JournalView, error)
	Page(ctx context.Context, destinationID, pageID string) (domain.PageContent, error)
	PageHTML(ctx context.Context, destinationID, pageID string) (string, error)
	Delete(ctx context.Context, destinationID string) error
}

// SessionServicer defines the editor session operations.
type SessionServicer interface {
	Open(ctx context.Context, destinationID string) (service.SessionView, error)
	Select(ctx context.Context, id uuid.UUID, nodeID string) (service.SessionView, error)
	ContentChanged(ctx context.Context, id uuid.UUID, formattedText string) (service.SessionView, error)
	Format(ctx context.Context, id uuid.UUID, cmd editor.FormatCommand) (service.SessionView, error)
	Flush(ctx context.Context, id uuid.UUID) (service.SessionView, error)
	State(ctx context.Context, id uuid.UUID) (service.SessionView, error)
	Close(ctx context.Context, id uuid.UUID) error
	CloseDestination(ctx context.Context, destinationID string)
}

// Server holds the dependencies of every handler.
type Server struct {
	destinations DestinationServicer
	journals     JournalServicer
	sessions     SessionServicer
	logger       *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(destinations DestinationServicer, journals JournalServicer, sessions SessionServicer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{destinations: destinations, journals: journals, sessions: sessions, logger: logger}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Handler returns the API routes. Cross-cutting middleware (request ids,
// logging, CORS, body limits) is applied by the caller.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/destinations", func(r chi.Router) {
		r.Get("/", s.ListDestinations)
		r.Post("/", s.CreateDestination)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetDestination)
			r.Put("/", s.UpdateDestination)
			r.Delete("/", s.DeleteDestination)

			r.Route("/journal", func(r chi.Router) {
				r.Get("/", s.OpenJournal)
				r.Delete("/", s.DeleteJournal)
				r.Post("/ops", s.ApplyJournalOp)
				r.Put("/selection", s.SelectNode)
				r.Get("/pages/{pageId}", s.GetPage)
				r.Get("/pages/{pageId}/html", s.GetPageHTML)
				r.Post("/sessions", s.OpenSession)
			})
		})
	})

	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.CloseSession)
		r.Put("/page", s.SelectSessionPage)
		r.Put("/content", s.UpdateSessionContent)
		r.Post("/format", s.FormatSession)
		r.Post("/flush", s.FlushSession)
	})

	return r
}
