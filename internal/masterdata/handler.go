package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bizledger/internal/platform/httpx"
)

// Handler wires master data JSON endpoints.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, validator: validator.New()}
}

// MountBusinessRoutes registers /businesses routes.
func (h *Handler) MountBusinessRoutes(r chi.Router) {
	r.Get("/", h.listBusinesses)
	r.Post("/", h.createBusiness)
	r.Get("/{id}", h.getBusiness)
}

// MountBankRoutes registers /banks routes.
func (h *Handler) MountBankRoutes(r chi.Router) {
	r.Get("/", h.listBankAccounts)
	r.Post("/", h.createBankAccount)
	r.Get("/{id}", h.getBankAccount)
}

func (h *Handler) createBusiness(w http.ResponseWriter, r *http.Request) {
	var input CreateBusinessInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	business, err := h.service.CreateBusiness(r.Context(), input)
	if err != nil {
		h.logger.Warn("create business", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, business)
}

func (h *Handler) getBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	business, err := h.service.GetBusiness(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, business)
}

func (h *Handler) listBusinesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	businesses, err := h.service.ListBusinesses(r.Context(), ListFilters{Search: q.Get("q"), Limit: limit, Offset: offset})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if businesses == nil {
		businesses = []Business{}
	}
	httpx.JSON(w, http.StatusOK, businesses)
}

func (h *Handler) createBankAccount(w http.ResponseWriter, r *http.Request) {
	var input CreateBankAccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateBankAccount(r.Context(), input)
	if err != nil {
		h.logger.Warn("create bank account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) getBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.GetBankAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) listBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListBankAccounts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []BankAccount{}
	}
	httpx.JSON(w, http.StatusOK, accounts)
}
