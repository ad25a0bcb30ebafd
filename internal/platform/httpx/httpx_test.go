package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("credits: %w", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("invoice %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("credits: %w", shared.ErrConsistency), http.StatusUnprocessableEntity},
		{fmt.Errorf("sequence: %w", shared.ErrConcurrency), http.StatusConflict},
		{fmt.Errorf("%w: dial tcp", shared.ErrStorage), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		RespondError(rr, tt.err)
		require.Equal(t, tt.status, rr.Code, tt.err.Error())

		var problem ProblemDetail
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
		assert.Equal(t, tt.status, problem.Status)
	}
}

func TestStorageProblemHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("%w: password authentication failed", shared.ErrStorage))
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"1","extra":true}`))
	var body struct {
		Amount string `json:"amount"`
	}
	err := DecodeJSON(req, &body)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got, err := ParseDate("2024-05-10", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, loc), got)

	_, err = ParseDate("10/05/2024", loc)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
	}
	err := ValidateStruct(validator.New(), input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "Name failed required")
	assert.NoError(t, ValidateStruct(validator.New(), input{Name: "x"}))
}
