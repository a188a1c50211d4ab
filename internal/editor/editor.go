// Package editor implements the page editor session: the page currently open
// in one journal view, its latest unsaved text and the debounce timer that
// writes that text back to the journal.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// DefaultDebounce is how long the session waits after the last change before saving.
const DefaultDebounce = 300 * time.Millisecond

// ErrUnsupportedFormat is returned by ApplyInlineFormat for unknown commands.
var ErrUnsupportedFormat = errors.New("unsupported format command")

// FormatCommand is an inline formatting directive for the editing surface.
type FormatCommand string

const (
	FormatBold       FormatCommand = "bold"
	FormatItalic     FormatCommand = "italic"
	FormatHeading2   FormatCommand = "heading2"
	FormatBulletList FormatCommand = "bullet-list"
)

// FormatCommands lists the supported commands.
func FormatCommands() []FormatCommand {
	return []FormatCommand{FormatBold, FormatItalic, FormatHeading2, FormatBulletList}
}

// Pages is the part of the journal the session reads and writes.
type Pages interface {
	Page(ctx context.Context, destinationID, pageID string) (domain.PageContent, error)
	SavePageContent(ctx context.Context, destinationID, pageID, formattedText string) error
}

// Surface is the rich-text editing primitive the session drives.
type Surface interface {
	Display(formattedText string)
	Format(cmd FormatCommand)
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock supplies time and timers. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the Clock backed by package time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SaveTrigger says what caused a save.
type SaveTrigger string

const (
	TriggerDebounce SaveTrigger = "debounce"
	TriggerFlush    SaveTrigger = "flush"
	TriggerSwitch   SaveTrigger = "switch"
	TriggerClose    SaveTrigger = "close"
)

// State is a snapshot of a session.
type State struct {
	DestinationID string `json:"destination_id,omitempty"`
	PageID        string `json:"page_id,omitempty"`
	FormattedText string `json:"formatted_text"`
	Dirty         bool   `json:"dirty"`
	Closed        bool   `json:"closed"`
	// SavedAt is when the session last wrote successfully; nil before that.
	SavedAt *time.Time `json:"saved_at"`
}

// Option configures a Session.
type Option func(*Session)

func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

// WithDebounce sets the autosave delay; non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

func WithSurface(surface Surface) Option { return func(s *Session) { s.surface = surface } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithSaveHook registers a callback run after every save attempt, outside the
// state lock but before the next save may start. It must not call back into
// the session. err is nil on success.
func WithSaveHook(fn func(trigger SaveTrigger, err error)) Option {
	return func(s *Session) { s.onSave = fn }
}

// Session is one open journal view's editor. It is safe for concurrent use.
//
// Each armed timer carries the generation it was armed in. Loading another
// page, flushing or closing bumps the generation, so a timer that fires late
// finds a newer generation and does nothing.
//
// saveMu is held from taking the pending text until its write returns, so
// writes reach storage in the order the text was taken. Lock order is saveMu
// then mu.
type Session struct {
	pages    Pages
	clock    Clock
	debounce time.Duration
	surface  Surface
	logger   *slog.Logger
	onSave   func(SaveTrigger, error)

	saveMu sync.Mutex

	mu            sync.Mutex
	destinationID string
	pageID        string
	text          string
	dirty         bool
	timer         Timer
	generation    uint64
	closed        bool
	savedAt       time.Time
}

// New returns a session with no page open.
func New(pages Pages, opts ...Option) *Session {
	s := &Session{
		pages:    pages,
		clock:    SystemClock{},
		debounce: DefaultDebounce,
		surface:  nopSurface{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load makes pageID the active page. Pending text of the previous page is
// written first. A pageID that is empty, not a page, or gone leaves the
// session with no page open and returns nil.
func (s *Session) Load(ctx context.Context, destinationID, pageID string) error {
	s.saveMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.saveMu.Unlock()
		return nil
	}
	pending := s.takePendingLocked()
	s.destinationID, s.pageID, s.text = "", "", ""
	s.mu.Unlock()

	s.save(ctx, pending, TriggerSwitch)
	s.saveMu.Unlock()

	if destinationID == "" || pageID == "" {
		s.surface.Display("")
		return nil
	}
	content, err := s.pages.Page(ctx, destinationID, pageID)
	if err != nil {
		s.surface.Display("")
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("editor.Session.Load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.generation++
	s.destinationID, s.pageID, s.text = destinationID, pageID, content.FormattedText
	s.surface.Display(content.FormattedText)
	return nil
}

// ContentChanged records the latest text of the active page and restarts the
// debounce window. Without an active page it is ignored.
func (s *Session) ContentChanged(formattedText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pageID == "" {
		return
	}
	s.text = formattedText
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

// ApplyInlineFormat forwards cmd to the editing surface.
func (s *Session) ApplyInlineFormat(cmd FormatCommand) error {
	switch cmd {
	case FormatBold, FormatItalic, FormatHeading2, FormatBulletList:
	default:
		return fmt.Errorf("editor.Session.ApplyInlineFormat %q: %w", cmd, ErrUnsupportedFormat)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pageID == "" {
		return nil
	}
	s.surface.Format(cmd)
	return nil
}

// FlushNow writes pending text immediately and cancels the timer.
func (s *Session) FlushNow(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	pending := s.takePendingLocked()
	s.mu.Unlock()

	s.save(ctx, pending, TriggerFlush)
}

// Close flushes pending text and ends the session. Every later call is a no-op.
func (s *Session) Close(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	pending := s.takePendingLocked()
	s.closed = true
	s.destinationID, s.pageID, s.text = "", "", ""
	s.mu.Unlock()

	s.save(ctx, pending, TriggerClose)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		DestinationID: s.destinationID,
		PageID:        s.pageID,
		FormattedText: s.text,
		Dirty:         s.dirty,
		Closed:        s.closed,
	}
	if !s.savedAt.IsZero() {
		t := s.savedAt
		st.SavedAt = &t
	}
	return st
}

type pendingSave struct {
	destinationID string
	pageID        string
	text          string
}

// takePendingLocked cancels the timer, invalidates any timer already firing
// and hands back the unsaved text, if any. s.mu must be held.
func (s *Session) takePendingLocked() *pendingSave {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	if !s.dirty || s.pageID == "" {
		return nil
	}
	s.dirty = false
	return &pendingSave{destinationID: s.destinationID, pageID: s.pageID, text: s.text}
}

func (s *Session) fire(gen uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	pending := s.takePendingLocked()
	s.mu.Unlock()

	s.save(context.Background(), pending, TriggerDebounce)
}

// save writes p. A page deleted in the meantime is skipped silently.
func (s *Session) save(ctx context.Context, p *pendingSave, trigger SaveTrigger) {
	if p == nil {
		return
	}
	err := s.pages.SavePageContent(ctx, p.destinationID, p.pageID, p.text)
	switch {
	case err == nil:
		s.mu.Lock()
		s.savedAt = s.clock.Now()
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "page saved", "destination_id", p.destinationID, "page_id", p.pageID, "trigger", trigger)
	case errors.Is(err, domain.ErrNotFound):
		s.logger.DebugContext(ctx, "page gone, save skipped", "destination_id", p.destinationID, "page_id", p.pageID)
		err = nil
	default:
		s.logger.WarnContext(ctx, "page save failed", "destination_id", p.destinationID, "page_id", p.pageID, "trigger", trigger, "error", err)
	}
	if s.onSave != nil {
		s.onSave(trigger, err)
	}
}

type nopSurface struct{}

func (nopSurface) Display(string)       {}
func (nopSurface) Format(FormatCommand) {}

// RecordingSurface remembers what the session asked it to do. The HTTP layer
// uses it to echo accepted commands back to the client.
type RecordingSurface struct {
	mu       sync.Mutex
	text     string
	commands []FormatCommand
}

func (r *RecordingSurface) Display(formattedText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = formattedText
	r.commands = nil
}

func (r *RecordingSurface) Format(cmd FormatCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Displayed returns the text last handed to Display.
func (r *RecordingSurface) Displayed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// Commands returns the format commands received since the last Display.
func (r *RecordingSurface) Commands() []FormatCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FormatCommand(nil), r.commands...)
}
