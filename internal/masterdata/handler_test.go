package masterdata

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo Repository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(NewService(repo, logger), logger)
	r := chi.NewRouter()
	r.Route("/businesses", h.MountBusinessRoutes)
	r.Route("/banks", h.MountBankRoutes)
	return r
}

func TestCreateAndFetchBusinessOverHTTP(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	body := `{"name":"Shree Traders","gst_number":"27AAPFU0939F1ZV","address":"12 MG Road","pincode":"411001"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/businesses", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created Business
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/businesses/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var fetched Business
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&fetched))
	assert.Equal(t, "Shree Traders", fetched.Name)
}

func TestCreateBusinessValidationOverHTTP(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	for _, body := range []string{
		`{"name":"","gst_number":"27AAPFU0939F1ZV","address":"x"}`,
		`{"name":"A","gst_number":"BAD","address":"x"}`,
		`{"name":"A","gst_number":"27AAPFU0939F1ZV","address":"x","pincode":"12"}`,
		`not json`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/businesses", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestGetBankAccountUnknownID(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/banks/2b1c9f0e-8f3a-4c1e-9d51-7a0be2f7f001", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/banks/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
