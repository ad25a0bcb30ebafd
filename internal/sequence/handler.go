package sequence

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizledger/internal/platform/httpx"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Handler exposes read-only number previews.
type Handler struct {
	service *Service
	loc     *time.Location
	logger  *slog.Logger
}

// NewHandler constructs the preview handler.
func NewHandler(service *Service, loc *time.Location, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, loc: loc, logger: logger}
}

// MountRoutes registers preview routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoice", h.previewInvoice)
	r.Get("/credit", h.previewScope(PaymentCreditScope()))
	r.Get("/voucher", h.previewScope(VoucherScope()))
}

type previewResponse struct {
	Scope         string `json:"scope"`
	FinancialYear string `json:"financial_year"`
	Sequence      int64  `json:"sequence"`
	Number        string `json:"number"`
}

func (h *Handler) previewInvoice(w http.ResponseWriter, r *http.Request) {
	h.preview(w, r, InvoiceScope(r.URL.Query().Get("type")))
}

func (h *Handler) previewScope(scope Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.preview(w, r, scope)
	}
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, scope Scope) {
	ref, err := httpx.QueryDate(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	number, err := h.service.Preview(r.Context(), scope, ref)
	if err != nil {
		if shared.KindOf(err) == shared.ErrStorage {
			h.logger.Error("preview sequence", slog.String("scope", scope.Key()), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, previewResponse{
		Scope:         scope.Key(),
		FinancialYear: number.Year.Label(),
		Sequence:      number.Seq,
		Number:        number.String(),
	})
}
