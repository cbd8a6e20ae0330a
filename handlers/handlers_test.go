package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"series-tracker/models"
	"series-tracker/services"
)

type fakeAuth struct {
	tokens map[string]services.Principal
}

func (f fakeAuth) Authenticate(ctx context.Context, token string) (services.Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return services.Principal{}, models.ErrUnauthorized
	}
	return p, nil
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(req))

	req.Header.Set("Authorization", "Bearer  abc ")
	assert.Equal(t, "abc", BearerToken(req))
}

func TestRequireAuth(t *testing.T) {
	auth := fakeAuth{tokens: map[string]services.Principal{"good": {UserID: "u1", Email: "ana@example.com"}}}
	var seen services.Principal
	h := RequireAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"missing", http.MethodGet, "", http.StatusUnauthorized},
		{"unknown", http.MethodGet, "Bearer bad", http.StatusUnauthorized},
		{"valid", http.MethodGet, "Bearer good", http.StatusTeapot},
		{"preflight", http.MethodOptions, "", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "u1", seen.UserID)
}

func TestStatusFor(t *testing.T) {
	tests := map[error]int{
		models.ErrInvalidInput:  http.StatusBadRequest,
		models.ErrUnauthorized:  http.StatusUnauthorized,
		models.ErrNotFound:      http.StatusNotFound,
		models.ErrConflict:      http.StatusConflict,
		models.ErrRateLimited:   http.StatusTooManyRequests,
		errors.New("disk full"): http.StatusInternalServerError,
	}
	for err, want := range tests {
		assert.Equal(t, want, statusFor(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("sqlite: database is locked"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sqlite")
	assert.Contains(t, rec.Body.String(), `"code":"internal"`)
}

type fakeSeries struct {
	items map[string]models.Series
}

func (f *fakeSeries) List(ctx context.Context, owner, collection string) ([]models.Series, error) {
	out := []models.Series{}
	for _, s := range f.items {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSeries) Get(ctx context.Context, owner, collection, id string) (models.Series, error) {
	s, ok := f.items[id]
	if !ok {
		return models.Series{}, models.ErrNotFound
	}
	return s, nil
}

func (f *fakeSeries) Create(ctx context.Context, owner, collection string, in models.SeriesInput) (models.Series, error) {
	s := in.WithID(fmt.Sprintf("%s-%d", owner, len(f.items)+1))
	f.items[s.ID] = s
	return s, nil
}

func (f *fakeSeries) Update(ctx context.Context, owner, collection, id string, item models.Series) error {
	if _, ok := f.items[id]; !ok {
		return models.ErrNotFound
	}
	item.ID = id
	f.items[id] = item
	return nil
}

func (f *fakeSeries) Delete(ctx context.Context, owner, collection, id string) error {
	delete(f.items, id)
	return nil
}

func newSeriesRouter(backend SeriesBackend) http.Handler {
	auth := fakeAuth{tokens: map[string]services.Principal{"tok": {UserID: "u1"}}}
	h := NewSeriesHandler(backend)
	r := mux.NewRouter()
	docs := r.PathPrefix("/api/collections/{collection}/documents").Subrouter()
	docs.Use(RequireAuth(auth))
	docs.HandleFunc("", h.List).Methods(http.MethodGet)
	docs.HandleFunc("", h.Create).Methods(http.MethodPost)
	docs.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	docs.HandleFunc("/{id}", h.Update).Methods(http.MethodPut)
	docs.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSeriesHandlerRoutes(t *testing.T) {
	backend := &fakeSeries{items: map[string]models.Series{}}
	h := newSeriesRouter(backend)

	rec := do(t, h, http.MethodPost, "/api/collections/series/documents", `{"name":"Loki","episodeCount":12,"imageUrl":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"u1-1","name":"Loki","episodeCount":12,"imageUrl":""}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/collections/series/documents/u1-1", `{"id":"u1-1","name":"Loki","episodeCount":13,"imageUrl":""}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 13, backend.items["u1-1"].EpisodeCount)

	rec = do(t, h, http.MethodPut, "/api/collections/series/documents/u1-1", `{"id":"other","name":"Loki"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/collections/series/documents/missing", `{"name":"Loki"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/collections/series/documents/u1-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"episodeCount":13`)

	rec = do(t, h, http.MethodGet, "/api/collections/series/documents/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/collections/series/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"episodeCount":13`)

	rec = do(t, h, http.MethodDelete, "/api/collections/series/documents/u1-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, backend.items)
}

func TestSeriesHandlerRejectsBadJSON(t *testing.T) {
	h := newSeriesRouter(&fakeSeries{items: map[string]models.Series{}})

	rec := do(t, h, http.MethodPost, "/api/collections/series/documents", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/collections/series/documents", `{"name":"x","season":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}
