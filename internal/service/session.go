package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/editor"
	"github.com/pkordes/travel-journal/backend/internal/metrics"
)

// ErrSessionNotFound is returned for an unknown or already closed session id.
var ErrSessionNotFound = fmt.Errorf("editor session %w", domain.ErrNotFound)

// journalNavigator is what a session needs from the journal: selection for
// the tree panel, page reads and autosave writes for the editor.
type journalNavigator interface {
	Open(ctx context.Context, destinationID string) (domain.JournalView, error)
	Select(ctx context.Context, destinationID, nodeID string) (domain.JournalView, error)
	editor.Pages
}

// SessionView is an editor session as the presentation layer sees it.
type SessionView struct {
	ID      uuid.UUID              `json:"id"`
	Editor  editor.State           `json:"editor"`
	Journal *domain.JournalView    `json:"journal,omitempty"`
	Applied []editor.FormatCommand `json:"applied,omitempty"`
}

// SessionService keeps the open editor sessions, one per journal view, and
// mediates between a tree panel click and the editor: selecting a page loads
// it into the session, selecting a section leaves no page open.
type SessionService struct {
	journals journalNavigator
	logger   *slog.Logger
	metrics  *metrics.Collector
	debounce time.Duration
	clock    editor.Clock

	mu       sync.Mutex
	sessions map[uuid.UUID]*openSession
}

type openSession struct {
	destinationID string
	session       *editor.Session
	surface       *editor.RecordingSurface
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithDebounce sets the autosave window of new sessions.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *SessionService) { s.debounce = d }
}

// WithClock sets the clock of new sessions.
func WithClock(c editor.Clock) SessionOption {
	return func(s *SessionService) { s.clock = c }
}

// NewSessionService constructs a SessionService. A nil collector records nothing.
func NewSessionService(journals journalNavigator, logger *slog.Logger, m *metrics.Collector, opts ...SessionOption) *SessionService {
	s := &SessionService{
		journals: journals,
		logger:   logger,
		metrics:  m,
		debounce: editor.DefaultDebounce,
		clock:    editor.SystemClock{},
		sessions: make(map[uuid.UUID]*openSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a session on the destination's journal and loads the selected
// node when it is a page.
func (s *SessionService) Open(ctx context.Context, destinationID string) (SessionView, error) {
	view, err := s.journals.Open(ctx, destinationID)
	if err != nil {
		return SessionView{}, fmt.Errorf("service.SessionService.Open: %w", err)
	}

	surface := &editor.RecordingSurface{}
	session := editor.New(s.journals,
		editor.WithClock(s.clock),
		editor.WithDebounce(s.debounce),
		editor.WithSurface(surface),
		editor.WithLogger(s.logger),
		editor.WithSaveHook(func(trigger editor.SaveTrigger, err error) {
			s.metrics.Autosave(string(trigger), err)
		}),
	)
	if err := session.Load(ctx, destinationID, selectedPageID(view)); err != nil {
		return SessionView{}, fmt.Errorf("service.SessionService.Open: %w", err)
	}

	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = &openSession{destinationID: destinationID, session: session, surface: surface}
	s.mu.Unlock()
	s.metrics.SessionOpened()
	s.logger.InfoContext(ctx, "editor session opened", "session_id", id, "destination_id", destinationID)

	return SessionView{ID: id, Editor: session.State(), Journal: &view}, nil
}

// Select persists the new selection and loads it into the editor. Pending
// text of the previous page is written before the switch.
func (s *SessionService) Select(ctx context.Context, id uuid.UUID, nodeID string) (SessionView, error) {
	entry, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	// Flush first so the selection write and the content write never race.
	entry.session.FlushNow(ctx)

	view, err := s.journals.Select(ctx, entry.destinationID, nodeID)
	if err != nil {
		return SessionView{}, fmt.Errorf("service.SessionService.Select: %w", err)
	}
	if err := entry.session.Load(ctx, entry.destinationID, selectedPageID(view)); err != nil {
		return SessionView{}, fmt.Errorf("service.SessionService.Select: %w", err)
	}
	return SessionView{ID: id, Editor: entry.session.State(), Journal: &view}, nil
}

// ContentChanged hands the editor's latest text to the session.
func (s *SessionService) ContentChanged(_ context.Context, id uuid.UUID, formattedText string) (SessionView, error) {
	entry, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	entry.session.ContentChanged(formattedText)
	return SessionView{ID: id, Editor: entry.session.State()}, nil
}

// Format applies an inline format command and returns every command the
// surface accepted since the page was loaded.
func (s *SessionService) Format(_ context.Context, id uuid.UUID, cmd editor.FormatCommand) (SessionView, error) {
	entry, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	if err := entry.session.ApplyInlineFormat(cmd); err != nil {
		if errors.Is(err, editor.ErrUnsupportedFormat) {
			return SessionView{}, fmt.Errorf("service.SessionService.Format: %w: %w", domain.ErrValidation, err)
		}
		return SessionView{}, fmt.Errorf("service.SessionService.Format: %w", err)
	}
	return SessionView{ID: id, Editor: entry.session.State(), Applied: entry.surface.Commands()}, nil
}

// Flush writes pending text now.
func (s *SessionService) Flush(ctx context.Context, id uuid.UUID) (SessionView, error) {
	entry, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	entry.session.FlushNow(ctx)
	return SessionView{ID: id, Editor: entry.session.State()}, nil
}

// State returns a session snapshot.
func (s *SessionService) State(_ context.Context, id uuid.UUID) (SessionView, error) {
	entry, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{ID: id, Editor: entry.session.State()}, nil
}

// Close flushes and forgets the session.
func (s *SessionService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("service.SessionService.Close: %w", ErrSessionNotFound)
	}

	entry.session.Close(ctx)
	s.metrics.SessionClosed()
	s.logger.InfoContext(ctx, "editor session closed", "session_id", id, "destination_id", entry.destinationID)
	return nil
}

// CloseAll flushes and closes every open session. Used on shutdown.
func (s *SessionService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	open := s.sessions
	s.sessions = make(map[uuid.UUID]*openSession)
	s.mu.Unlock()

	for _, entry := range open {
		entry.session.Close(ctx)
		s.metrics.SessionClosed()
	}
	if len(open) > 0 {
		s.logger.InfoContext(ctx, "editor sessions closed", "count", len(open))
	}
}

// CloseDestination closes every session open on one destination's journal.
// Called before the journal is deleted.
func (s *SessionService) CloseDestination(ctx context.Context, destinationID string) {
	s.mu.Lock()
	var closing []*openSession
	for id, entry := range s.sessions {
		if entry.destinationID == destinationID {
			closing = append(closing, entry)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, entry := range closing {
		entry.session.Close(ctx)
		s.metrics.SessionClosed()
	}
}

// Len is the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionService) get(id uuid.UUID) (*openSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// selectedPageID is the selected node id when it names a page, else "".
func selectedPageID(view domain.JournalView) string {
	id := view.Document.SelectedID
	if id == "" {
		return ""
	}
	if _, ok := view.Document.Pages[id]; !ok {
		return ""
	}
	return id
}
