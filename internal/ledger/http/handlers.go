package ledgerhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/ledger"
	"github.com/odyssey-erp/bizledger/internal/ledger/export"
	"github.com/odyssey-erp/bizledger/internal/platform/httpx"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

const requestTimeout = 10 * time.Second

var errFormat = fmt.Errorf("ledger: format must be json, csv or pdf: %w", shared.ErrValidation)

// Builder produces ledger statements.
type Builder interface {
	BuildLedger(ctx context.Context, businessID uuid.UUID, start, end time.Time) (ledger.Statement, error)
}

// PDFRenderer turns a statement into a PDF document.
type PDFRenderer interface {
	RenderLedger(ctx context.Context, stmt ledger.Statement) ([]byte, error)
}

// Handler serves ledger statements as JSON, CSV or PDF.
type Handler struct {
	builder Builder
	pdf     PDFRenderer
	loc     *time.Location
	logger  *slog.Logger
}

// NewHandler builds a ledger handler. pdf may be nil, which disables PDF export.
func NewHandler(builder Builder, pdf PDFRenderer, loc *time.Location, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{builder: builder, pdf: pdf, loc: loc, logger: logger}
}

type ledgerQuery struct {
	businessID uuid.UUID
	start      time.Time
	end        time.Time
	format     string
}

func (h *Handler) parseQuery(r *http.Request) (ledgerQuery, error) {
	var q ledgerQuery
	businessID, err := httpx.QueryUUID(r, "business_id")
	if err != nil {
		return q, err
	}
	if businessID == nil {
		return q, fmt.Errorf("%w: business_id required", shared.ErrValidation)
	}
	q.businessID = *businessID
	if q.start, err = httpx.QueryDate(r, "start", h.loc); err != nil {
		return q, err
	}
	if q.end, err = httpx.QueryDate(r, "end", h.loc); err != nil {
		return q, err
	}
	q.format = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch q.format {
	case "":
		q.format = "json"
	case "json", "csv", "pdf":
	default:
		return q, errFormat
	}
	return q, nil
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stmt, err := h.builder.BuildLedger(ctx, q.businessID, q.start, q.end)
	if err != nil {
		h.logFailure("build ledger", err)
		httpx.RespondError(w, err)
		return
	}

	switch q.format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteLedgerCSV(&buf, stmt); err != nil {
			h.logger.Error("ledger csv", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", ledger.Filename(stmt, "csv"), buf.Bytes())
	case "pdf":
		if h.pdf == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "PDF export unavailable", "no renderer configured")
			return
		}
		data, err := h.pdf.RenderLedger(ctx, stmt)
		if err != nil {
			h.logger.Error("ledger pdf", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "PDF rendering failed", "")
			return
		}
		writeAttachment(w, "application/pdf", ledger.Filename(stmt, "pdf"), data)
	default:
		httpx.JSON(w, http.StatusOK, stmt)
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) logFailure(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	switch shared.KindOf(err) {
	case shared.ErrValidation, shared.ErrNotFound:
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}
