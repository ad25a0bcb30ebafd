package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/bizledger/internal/credits"
	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/ledger"
	"github.com/odyssey-erp/bizledger/internal/ledger/export"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/observability"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/internal/shared"
	"github.com/odyssey-erp/bizledger/report"
)

// Services is the set of domain services shared by the server, worker and CLI.
type Services struct {
	Allocator   *sequence.Allocator
	Sequences   *sequence.Service
	MasterData  *masterdata.Service
	Invoices    *invoices.Service
	Credits     *credits.Service
	Ledger      *ledger.Service
	LedgerCache *ledger.Cache
	PDF         *export.PDFExporter
	Keys        *shared.IdempotencyStore
}

// NewServices wires repositories and services over the shared pool. redisClient
// and metrics may be nil.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	loc := cfg.Location()
	allocator := sequence.NewAllocator(loc)
	if metrics != nil {
		allocator = allocator.WithRecorder(metrics)
	}
	cache := ledger.NewCache(redisClient, cfg.LedgerCacheTTL)

	creditService := credits.NewService(credits.NewRepository(pool, loc), allocator, cache, logger)
	if metrics != nil {
		creditService = creditService.WithRecorder(metrics)
	}

	var pdf *export.PDFExporter
	if cfg.GotenbergURL != "" {
		pdf = export.NewPDFExporter(report.NewClient(cfg.GotenbergURL), export.Letterhead{
			Name:    cfg.CompanyName,
			Address: cfg.CompanyAddress,
			GSTIN:   cfg.CompanyGSTIN,
		})
	}

	return &Services{
		Allocator:   allocator,
		Sequences:   sequence.NewService(allocator, sequence.NewPGStore(pool, loc)),
		MasterData:  masterdata.NewService(masterdata.NewPGRepository(pool), logger),
		Invoices:    invoices.NewService(invoices.NewRepository(pool, loc), allocator, cache, logger),
		Credits:     creditService,
		Ledger:      ledger.NewService(ledger.NewPGReader(pool), cache, loc, logger),
		LedgerCache: cache,
		PDF:         pdf,
		Keys:        shared.NewIdempotencyStore(pool),
	}
}
