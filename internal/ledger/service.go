package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Reader loads statement sources from one consistent snapshot.
type Reader interface {
	Load(ctx context.Context, businessID uuid.UUID, start, end time.Time) (Sources, error)
}

// Service builds ledger statements.
type Service struct {
	reader Reader
	cache  *Cache
	loc    *time.Location
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs the ledger service. cache may be nil.
func NewService(reader Reader, cache *Cache, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, cache: cache, loc: loc, logger: logger}
}

// Location is the timezone calendar days are normalised in.
func (s *Service) Location() *time.Location { return s.loc }

// BuildLedger returns the statement for businessID over the calendar days
// [start, end]. Identical concurrent requests share one build.
func (s *Service) BuildLedger(ctx context.Context, businessID uuid.UUID, start, end time.Time) (Statement, error) {
	if businessID == uuid.Nil {
		return Statement{}, ErrMissingBusiness
	}
	if start.IsZero() || end.IsZero() {
		return Statement{}, ErrMissingDates
	}
	start = shared.StartOfDay(start, s.loc)
	end = shared.EndOfDay(end, s.loc)
	if end.Before(start) {
		return Statement{}, ErrInvalidRange
	}

	key, err := s.cache.BuildKey(ctx, "ledger", businessID.String(), start.Format("20060102"), end.Format("20060102"))
	if err != nil {
		s.logger.Warn("ledger cache unavailable", slog.Any("error", err))
		return s.build(ctx, businessID, start, end)
	}

	// The shared build outlives any single caller; each caller still stops
	// waiting on its own cancellation below.
	buildCtx := context.WithoutCancel(ctx)
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var stmt Statement
		err := s.cache.FetchJSON(buildCtx, key, &stmt, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx, businessID, start, end)
		})
		return stmt, err
	})
	select {
	case <-ctx.Done():
		return Statement{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Statement{}, res.Err
		}
		return res.Val.(Statement), nil
	}
}

// Warm builds and caches a statement, discarding the result.
func (s *Service) Warm(ctx context.Context, businessID uuid.UUID, start, end time.Time) error {
	_, err := s.BuildLedger(ctx, businessID, start, end)
	return err
}

func (s *Service) build(ctx context.Context, businessID uuid.UUID, start, end time.Time) (Statement, error) {
	src, err := s.reader.Load(ctx, businessID, start, end)
	if err != nil {
		return Statement{}, err
	}
	stmt := Compose(src, start, end, s.loc)
	s.logger.Debug("ledger built",
		slog.String("business_id", businessID.String()),
		slog.Int("entries", len(stmt.Entries)),
		slog.String("closing_balance", stmt.ClosingBalance.StringFixed(2)))
	return stmt, nil
}

// Filename returns ledger-<business>-<start>-<end>.<ext> with spaces in the
// business name replaced by underscores.
func Filename(stmt Statement, ext string) string {
	name := strings.Join(strings.Fields(stmt.Business.Name), "_")
	return "ledger-" + name + "-" + stmt.Start.Format("2006-01-02") + "-" + stmt.End.Format("2006-01-02") + "." + ext
}
