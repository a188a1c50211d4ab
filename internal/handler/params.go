package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// pathUUID binds a uuid path parameter the way generated oapi-codegen routers do.
func pathUUID(r *http.Request, name string) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

// paginationQuery binds the optional ?page= and ?limit= query parameters.
func paginationQuery(r *http.Request) (page, limit *int, err error) {
	query := r.URL.Query()
	if err = runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		return nil, nil, err
	}
	if err = runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		return nil, nil, err
	}
	return page, limit, nil
}

// bindUUID writes a 422 for a malformed id and reports whether to continue.
func bindUUID(w http.ResponseWriter, r *http.Request, name string) (openapi_types.UUID, bool) {
	id, err := pathUUID(r, name)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid "+name+": "+err.Error()))
		return id, false
	}
	return id, true
}
