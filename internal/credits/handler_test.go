package credits

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/sequence"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(NewService(repo, sequence.NewAllocator(time.UTC), nil, logger), time.UTC, logger)
	r := chi.NewRouter()
	r.Route("/credits", h.MountRoutes)
	return r
}

func seedHandlerRepo() (*memoryRepo, masterdata.BankAccount, invoices.Invoice) {
	repo := newMemoryRepo()
	bank := masterdata.BankAccount{ID: uuid.New(), BankName: "ICICI", AccountNumber: "000401234567"}
	repo.state.banks[bank.ID] = bank
	inv := invoices.Invoice{
		ID:            uuid.New(),
		Number:        "B2C/2024-25/4",
		GrandTotal:    decimal.RequireFromString("1000"),
		RoundedAmount: decimal.NewNullDecimal(decimal.RequireFromString("1000")),
		Balance:       decimal.NewNullDecimal(decimal.RequireFromString("1000")),
	}
	repo.state.invoices[inv.ID] = inv
	return repo, bank, inv
}

func TestAllocateOverHTTP(t *testing.T) {
	repo, bank, inv := seedHandlerRepo()
	router := newTestRouter(repo)
	body := fmt.Sprintf(`{"credit_amount":"250","credit_date":"2024-08-14","bank_account_id":%q,
		"allocations":[{"invoice_id":%q,"credit_amount":"250"}]}`, bank.ID, inv.ID)

	req := httptest.NewRequest(http.MethodPost, "/credits", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, "neft-001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var credit PaymentCredit
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&credit))
	assert.Equal(t, int64(1), credit.Number)
	require.Len(t, credit.Lines, 1)
	assert.Equal(t, "750", credit.Lines[0].Invoice.Balance.Decimal.String())

	req = httptest.NewRequest(http.MethodPost, "/credits", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, "neft-001")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits/"+credit.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAllocateRejectsMismatchedTotals(t *testing.T) {
	repo, bank, inv := seedHandlerRepo()
	router := newTestRouter(repo)
	body := fmt.Sprintf(`{"credit_amount":"300","credit_date":"2024-08-14","bank_account_id":%q,
		"allocations":[{"invoice_id":%q,"credit_amount":"250"}]}`, bank.ID, inv.ID)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/credits", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAllocateRejectsMalformedRequests(t *testing.T) {
	repo, bank, _ := seedHandlerRepo()
	router := newTestRouter(repo)

	for _, body := range []string{
		fmt.Sprintf(`{"credit_amount":"10","credit_date":"2024-08-14","bank_account_id":%q,"allocations":[]}`, bank.ID),
		fmt.Sprintf(`{"credit_amount":"10","bank_account_id":%q,"allocations":[{"invoice_id":%q,"credit_amount":"10"}]}`, bank.ID, uuid.New()),
		`{"credit_amount":"10","credit_date":"2024-08-14","allocations":[{"credit_amount":"10"}]}`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/credits", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}

	rr := httptest.NewRecorder()
	body := fmt.Sprintf(`{"credit_amount":"10","credit_date":"2024-08-14","bank_account_id":%q,
		"allocations":[{"invoice_id":%q,"credit_amount":"10"}]}`, bank.ID, uuid.New())
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/credits", strings.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListCreditsRejectsInvertedRange(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits?from=2024-05-01&to=2024-04-01", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
