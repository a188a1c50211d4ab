package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/journal"
)

// OpResult reports what a tree operation did.
type OpResult struct {
	Changed bool   `json:"changed"`
	NodeID  string `json:"node_id,omitempty"`
}

// JournalOpResponse is the body of POST /destinations/{id}/journal/ops.
type JournalOpResponse struct {
	domain.JournalView
	Result OpResult `json:"result"`
}

// SelectionRequest is the body of PUT .../journal/selection. A null or empty
// node_id clears the selection.
type SelectionRequest struct {
	NodeID *string `json:"node_id"`
}

// journalDestination resolves {id} and checks that the destination exists.
// It writes the error response itself and reports whether to continue.
func (s *Server) journalDestination(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := bindUUID(w, r, "id")
	if !ok {
		return "", false
	}
	if _, err := s.destinations.GetByID(r.Context(), id); err != nil {
		s.writeError(w, r, err, "destination not found")
		return "", false
	}
	return id.String(), true
}

// OpenJournal handles GET /destinations/{id}/journal. The journal is created
// on first access.
func (s *Server) OpenJournal(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	view, err := s.journals.Open(r.Context(), destID)
	if err != nil {
		s.writeError(w, r, err, "journal not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteJournal handles DELETE /destinations/{id}/journal.
func (s *Server) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	s.sessions.CloseDestination(r.Context(), destID)
	if err := s.journals.Delete(r.Context(), destID); err != nil {
		s.writeError(w, r, err, "journal not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyJournalOp handles POST /destinations/{id}/journal/ops.
// A node id that no longer exists is answered with the unchanged journal.
func (s *Server) ApplyJournalOp(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	var op journal.Op
	if !decodeBody(w, r, &op) {
		return
	}

	view, res, err := s.journals.Apply(r.Context(), destID, op)
	if err != nil {
		s.writeError(w, r, err, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, JournalOpResponse{
		JournalView: view,
		Result:      OpResult{Changed: res.Changed, NodeID: res.NodeID},
	})
}

// SelectNode handles PUT /destinations/{id}/journal/selection.
func (s *Server) SelectNode(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	var body SelectionRequest
	if !decodeBody(w, r, &body) {
		return
	}
	nodeID := ""
	if body.NodeID != nil {
		nodeID = *body.NodeID
	}

	view, err := s.journals.Select(r.Context(), destID, nodeID)
	if err != nil {
		s.writeError(w, r, err, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetPage handles GET /destinations/{id}/journal/pages/{pageId}.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	content, err := s.journals.Page(r.Context(), destID, chi.URLParam(r, "pageId"))
	if err != nil {
		s.writeError(w, r, err, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// GetPageHTML handles GET /destinations/{id}/journal/pages/{pageId}/html and
// returns the page's formatted text sanitized for display.
func (s *Server) GetPageHTML(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	html, err := s.journals.PageHTML(r.Context(), destID, chi.URLParam(r, "pageId"))
	if err != nil {
		s.writeError(w, r, err, "page not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}
