package invoices

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

// Handler wires invoice JSON endpoints.
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

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/financials", h.updateFinancials)
}

type itemRequest struct {
	Description string          `json:"description" validate:"required"`
	HSNCode     string          `json:"hsn_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type createRequest struct {
	Type         string          `json:"invoice_type" validate:"required,oneof=B2B B2C EXPORT b2b b2c export"`
	InvoiceDate  string          `json:"invoice_date" validate:"required"`
	BusinessID   *uuid.UUID      `json:"business_id"`
	CustomerName string          `json:"customer_name" validate:"max=200"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxTotal     decimal.Decimal `json:"tax_total"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Items        []itemRequest   `json:"items" validate:"dive"`
}

type updateFinancialsRequest struct {
	GrandTotal    *decimal.Decimal `json:"grand_total"`
	RoundedAmount *decimal.Decimal `json:"rounded_amount"`
	TotalPaid     *decimal.Decimal `json:"total_paid"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	issuedOn, err := httpx.ParseDate(req.InvoiceDate, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, Item(item))
	}
	inv, err := h.service.Create(r.Context(), CreateInput{
		Type:         Type(req.Type),
		IssuedOn:     issuedOn,
		BusinessID:   req.BusinessID,
		CustomerName: req.CustomerName,
		Currency:     req.Currency,
		Subtotal:     req.Subtotal,
		TaxTotal:     req.TaxTotal,
		GrandTotal:   req.GrandTotal,
		TotalPaid:    req.TotalPaid,
		Items:        items,
	})
	if err != nil {
		h.logFailure("create invoice", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logFailure("get invoice", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.QueryUUID(r, "business_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{BusinessID: businessID}
	if raw := r.URL.Query().Get("type"); raw != "" {
		invoiceType, err := ParseType(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Type = invoiceType
	}
	filter.UnpaidOnly, _ = strconv.ParseBool(r.URL.Query().Get("unpaid"))
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logFailure("list invoices", err)
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) updateFinancials(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateFinancialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.UpdateFinancials(r.Context(), id, UpdateFinancialsInput(req))
	if err != nil {
		h.logFailure("update invoice financials", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) logFailure(op string, err error) {
	switch shared.KindOf(err) {
	case shared.ErrValidation, shared.ErrNotFound:
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}
