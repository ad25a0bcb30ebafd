package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/bizledger/internal/credits"
	"github.com/odyssey-erp/bizledger/internal/invoices"
	ledgerhttp "github.com/odyssey-erp/bizledger/internal/ledger/http"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/observability"
	"github.com/odyssey-erp/bizledger/internal/platform/httpx"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SequenceHandler   *sequence.Handler
	InvoiceHandler    *invoices.Handler
	CreditHandler     *credits.Handler
	LedgerHandler     *ledgerhttp.Handler
	MasterDataHandler *masterdata.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
	// Ready reports dependency health for /healthz. Nil means always healthy.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router with BizLedger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.InvoiceHandler != nil {
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	}
	if params.CreditHandler != nil {
		r.Route("/credits", params.CreditHandler.MountRoutes)
	}
	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.MasterDataHandler != nil {
		r.Route("/businesses", params.MasterDataHandler.MountBusinessRoutes)
		r.Route("/banks", params.MasterDataHandler.MountBankRoutes)
	}
	if params.SequenceHandler != nil {
		r.Route("/sequences", params.SequenceHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
