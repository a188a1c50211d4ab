package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// DestinationRequest is the body of POST /destinations and PUT /destinations/{id}.
type DestinationRequest struct {
	Place     string             `json:"place"`
	Country   *string            `json:"country,omitempty"`
	StartDate openapi_types.Date `json:"start_date"`
	EndDate   openapi_types.Date `json:"end_date"`
	Mood      *string            `json:"mood,omitempty"`
	Rating    *int               `json:"rating,omitempty"`
	Notes     *string            `json:"notes,omitempty"`
}

// Destination is the API representation of a destination.
type Destination struct {
	Id        openapi_types.UUID `json:"id"`
	Place     string             `json:"place"`
	Country   string             `json:"country,omitempty"`
	StartDate openapi_types.Date `json:"start_date"`
	EndDate   openapi_types.Date `json:"end_date"`
	Days      int                `json:"days"`
	Mood      string             `json:"mood,omitempty"`
	Rating    *int               `json:"rating,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// DestinationList is the body of GET /destinations.
type DestinationList struct {
	Data       []Destination `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// CreateDestination handles POST /destinations.
func (s *Server) CreateDestination(w http.ResponseWriter, r *http.Request) {
	var body DestinationRequest
	if !decodeBody(w, r, &body) {
		return
	}

	created, err := s.destinations.Create(r.Context(), requestToDestination(body))
	if err != nil {
		s.writeError(w, r, err, "destination not found")
		return
	}
	writeJSON(w, http.StatusCreated, destinationToResponse(created))
}

// ListDestinations handles GET /destinations.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListDestinations(w http.ResponseWriter, r *http.Request) {
	page, limit, err := paginationQuery(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	params := domain.NewPaginationParams(page, limit)

	list, total, err := s.destinations.ListPaged(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err, "destination not found")
		return
	}

	data := make([]Destination, len(list))
	for i, d := range list {
		data[i] = destinationToResponse(d)
	}
	writeJSON(w, http.StatusOK, DestinationList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetDestination handles GET /destinations/{id}.
func (s *Server) GetDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := bindUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := s.destinations.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "destination not found")
		return
	}
	writeJSON(w, http.StatusOK, destinationToResponse(d))
}

// UpdateDestination handles PUT /destinations/{id}.
func (s *Server) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := bindUUID(w, r, "id")
	if !ok {
		return
	}
	var body DestinationRequest
	if !decodeBody(w, r, &body) {
		return
	}

	d := requestToDestination(body)
	d.ID = id
	updated, err := s.destinations.Update(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err, "destination not found")
		return
	}
	writeJSON(w, http.StatusOK, destinationToResponse(updated))
}

// DeleteDestination handles DELETE /destinations/{id}. Open editor sessions
// on its journal are closed first; the journal goes with the destination.
func (s *Server) DeleteDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := bindUUID(w, r, "id")
	if !ok {
		return
	}
	s.sessions.CloseDestination(r.Context(), id.String())
	if err := s.destinations.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, "destination not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// requestToDestination converts a request body into a domain.Destination.
func requestToDestination(body DestinationRequest) domain.Destination {
	d := domain.Destination{
		Place:     body.Place,
		StartDate: body.StartDate.Time,
		EndDate:   body.EndDate.Time,
		Rating:    body.Rating,
	}
	if body.Country != nil {
		d.Country = *body.Country
	}
	if body.Mood != nil {
		d.Mood = *body.Mood
	}
	if body.Notes != nil {
		d.Notes = *body.Notes
	}
	return d
}

// destinationToResponse converts a domain.Destination into its API shape.
func destinationToResponse(d domain.Destination) Destination {
	return Destination{
		Id:        d.ID,
		Place:     d.Place,
		Country:   d.Country,
		StartDate: openapi_types.Date{Time: d.StartDate},
		EndDate:   openapi_types.Date{Time: d.EndDate},
		Days:      d.Days(),
		Mood:      d.Mood,
		Rating:    d.Rating,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
