package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"series-tracker/models"
)

// SeriesBackend is the service behind the document routes
type SeriesBackend interface {
	List(ctx context.Context, owner, collection string) ([]models.Series, error)
	Get(ctx context.Context, owner, collection, id string) (models.Series, error)
	Create(ctx context.Context, owner, collection string, in models.SeriesInput) (models.Series, error)
	Update(ctx context.Context, owner, collection, id string, item models.Series) error
	Delete(ctx context.Context, owner, collection, id string) error
}

// SeriesHandler handles document requests for the signed-in user
type SeriesHandler struct {
	series SeriesBackend
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(series SeriesBackend) *SeriesHandler {
	return &SeriesHandler{series: series}
}

// owner returns the authenticated user id; RequireAuth guarantees it is set
func owner(r *http.Request) string {
	p, _ := PrincipalFromContext(r.Context())
	return p.UserID
}

// List handles GET /api/collections/{collection}/documents
func (h *SeriesHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	list, err := h.series.List(r.Context(), owner(r), collection)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/collections/{collection}/documents/{id}
func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	item, err := h.series.Get(r.Context(), owner(r), vars["collection"], vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /api/collections/{collection}/documents
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	var in models.SeriesInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.series.Create(r.Context(), owner(r), collection, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/collections/{collection}/documents/{id}
func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var item models.Series
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, err)
		return
	}
	if item.ID != "" && item.ID != vars["id"] {
		writeError(w, models.InvalidInput("id in body does not match the URL"))
		return
	}

	if err := h.series.Update(r.Context(), owner(r), vars["collection"], vars["id"], item); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/collections/{collection}/documents/{id}
func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.series.Delete(r.Context(), owner(r), vars["collection"], vars["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
