package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/backend/internal/domain"
	"github.com/pkordes/travel-journal/backend/internal/handler"
)

func validRequest() map[string]any {
	return map[string]any{
		"place":      "Kyoto",
		"country":    "Japan",
		"start_date": "2025-04-01",
		"end_date":   "2025-04-07",
		"rating":     5,
	}
}

func TestCreateDestination_Returns201(t *testing.T) {
	var got domain.Destination
	api := newTestAPI(t, &mockDestinationServicer{
		create: func(_ context.Context, d domain.Destination) (domain.Destination, error) {
			got = d
			d.ID = uuid.New()
			return d, nil
		},
	})

	rec := do(t, api, http.MethodPost, "/destinations", validRequest())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[handler.Destination](t, rec)
	assert.Equal(t, "Kyoto", body.Place)
	assert.Equal(t, "2025-04-07", body.EndDate.String())
	assert.Equal(t, 7, body.Days)
	assert.Equal(t, "Japan", got.Country)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 5, *got.Rating)
}

func TestCreateDestination_ValidationError_Returns422(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{
		create: func(context.Context, domain.Destination) (domain.Destination, error) {
			return domain.Destination{}, fmt.Errorf("service.DestinationService.Create: %w: place: place is required.", domain.ErrValidation)
		},
	})

	rec := do(t, api, http.MethodPost, "/destinations", map[string]any{"start_date": "2025-04-01"})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[handler.ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "place: place is required.", body.Error.Message)
}

func TestCreateDestination_MalformedBody_Returns422(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{})

	req := httptest.NewRequest(http.MethodPost, "/destinations", strings.NewReader(`{"place":`))
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateDestination_BadDate_Returns422(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{})

	body := validRequest()
	body["start_date"] = "April first"
	rec := do(t, api, http.MethodPost, "/destinations", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListDestinations_Pagination(t *testing.T) {
	var gotParams domain.PaginationParams
	api := newTestAPI(t, &mockDestinationServicer{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Destination, int64, error) {
			gotParams = p
			return []domain.Destination{destinationFixture()}, 11, nil
		},
	})

	rec := do(t, api, http.MethodGet, "/destinations?page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[handler.DestinationList](t, rec)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, handler.Pagination{Page: 2, Limit: 5, Total: 11}, body.Pagination)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 5}, gotParams)
}

func TestListDestinations_BadQuery_Returns422(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{})

	rec := do(t, api, http.MethodGet, "/destinations?page=two", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetDestination(t *testing.T) {
	d := destinationFixture()
	api := newTestAPI(t, existingDestinations(d.ID))

	rec := do(t, api, http.MethodGet, "/destinations/"+d.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, d.ID, decode[handler.Destination](t, rec).Id)

	rec = do(t, api, http.MethodGet, "/destinations/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "destination not found", decode[handler.ErrorResponse](t, rec).Error.Message)
}

func TestGetDestination_InvalidID_Returns422(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{})

	rec := do(t, api, http.MethodGet, "/destinations/not-a-uuid", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateDestination_UsesPathID(t *testing.T) {
	id := uuid.New()
	api := newTestAPI(t, &mockDestinationServicer{
		update: func(_ context.Context, d domain.Destination) (domain.Destination, error) {
			return d, nil
		},
	})

	rec := do(t, api, http.MethodPut, "/destinations/"+id.String(), validRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[handler.Destination](t, rec).Id)
}

func TestDeleteDestination_ClosesSessionsAndReturns204(t *testing.T) {
	d := destinationFixture()
	mock := existingDestinations(d.ID)
	mock.delete = func(context.Context, uuid.UUID) error { return nil }
	api := newTestAPI(t, mock)

	rec := do(t, api, http.MethodPost, "/destinations/"+d.ID.String()+"/journal/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, api.sessions.Len())

	rec = do(t, api, http.MethodDelete, "/destinations/"+d.ID.String(), nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, api.sessions.Len())
}

func TestDeleteDestination_UnexpectedError_Returns500(t *testing.T) {
	api := newTestAPI(t, &mockDestinationServicer{
		delete: func(context.Context, uuid.UUID) error { return errors.New("connection refused") },
	})

	rec := do(t, api, http.MethodDelete, "/destinations/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[handler.ErrorResponse](t, rec)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "connection refused")
}
