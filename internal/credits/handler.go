package credits

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/platform/httpx"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

// IdempotencyHeader carries the client-chosen key for POST /credits.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires payment credit endpoints.
type Handler struct {
	service   *Service
	loc       *time.Location
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(service *Service, loc *time.Location, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, loc: loc, logger: logger, validator: validator.New()}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.allocate)
	r.Get("/{id}", h.get)
}

type allocationRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"credit_amount"`
}

type allocateRequest struct {
	Amount        decimal.Decimal     `json:"credit_amount"`
	CreditDate    string              `json:"credit_date" validate:"required"`
	BankAccountID uuid.UUID           `json:"bank_account_id" validate:"required"`
	Reference     string              `json:"reference" validate:"max=120"`
	Allocations   []allocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	creditDate, err := httpx.ParseDate(req.CreditDate, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	allocations := make([]Allocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		allocations = append(allocations, Allocation(a))
	}

	credit, err := h.service.AllocatePayment(r.Context(), AllocatePaymentInput{
		Amount:         req.Amount,
		CreditDate:     creditDate,
		BankAccountID:  req.BankAccountID,
		Reference:      req.Reference,
		Allocations:    allocations,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.logFailure("allocate payment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, credit)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	credit, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logFailure("get payment credit", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, credit)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.QueryUUID(r, "business_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.QueryDate(r, "from", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.service.List(r.Context(), ListFilter{BusinessID: businessID, From: from, To: to, Limit: limit})
	if err != nil {
		h.logFailure("list payment credits", err)
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []PaymentCredit{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) logFailure(op string, err error) {
	switch shared.KindOf(err) {
	case shared.ErrValidation, shared.ErrNotFound, shared.ErrConsistency:
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}
