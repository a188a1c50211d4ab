package handler

import (
	"net/http"

	"github.com/pkordes/travel-journal/backend/internal/editor"
)

// SessionPageRequest is the body of PUT /sessions/{sid}/page.
type SessionPageRequest struct {
	NodeID *string `json:"node_id"`
}

// SessionContentRequest is the body of PUT /sessions/{sid}/content.
type SessionContentRequest struct {
	FormattedText string `json:"formatted_text"`
}

// SessionFormatRequest is the body of POST /sessions/{sid}/format.
type SessionFormatRequest struct {
	Command editor.FormatCommand `json:"command"`
}

// OpenSession handles POST /destinations/{id}/journal/sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	destID, ok := s.journalDestination(w, r)
	if !ok {
		return
	}
	view, err := s.sessions.Open(r.Context(), destID)
	if err != nil {
		s.writeError(w, r, err, "journal not found")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /sessions/{sid}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	view, err := s.sessions.State(r.Context(), sid)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SelectSessionPage handles PUT /sessions/{sid}/page: the tree panel click.
// The selection is persisted and a page is loaded into the editor; a section
// leaves no page open.
func (s *Server) SelectSessionPage(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	var body SessionPageRequest
	if !decodeBody(w, r, &body) {
		return
	}
	nodeID := ""
	if body.NodeID != nil {
		nodeID = *body.NodeID
	}

	view, err := s.sessions.Select(r.Context(), sid, nodeID)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateSessionContent handles PUT /sessions/{sid}/content. The text is saved
// once the editor has been idle for the autosave window.
func (s *Server) UpdateSessionContent(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	var body SessionContentRequest
	if !decodeBody(w, r, &body) {
		return
	}

	view, err := s.sessions.ContentChanged(r.Context(), sid, body.FormattedText)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// FormatSession handles POST /sessions/{sid}/format.
func (s *Server) FormatSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	var body SessionFormatRequest
	if !decodeBody(w, r, &body) {
		return
	}

	view, err := s.sessions.Format(r.Context(), sid, body.Command)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// FlushSession handles POST /sessions/{sid}/flush.
func (s *Server) FlushSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	view, err := s.sessions.Flush(r.Context(), sid)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CloseSession handles DELETE /sessions/{sid}. Pending text is saved first.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := bindUUID(w, r, "sid")
	if !ok {
		return
	}
	if err := s.sessions.Close(r.Context(), sid); err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
