package sequence

import (
	"context"
	"time"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Store is the persistence port behind the allocator.
type Store interface {
	// MaxIssued returns the highest sequence already used in the scope and year,
	// considering both the counter row and numbers present on stored records.
	MaxIssued(ctx context.Context, scope Scope, fy shared.FinancialYear) (int64, error)
	// Advance atomically moves the counter to max(current, floor)+1 and returns it.
	Advance(ctx context.Context, scope Scope, fy shared.FinancialYear, floor int64) (int64, error)
}

// Recorder receives a notification for every reserved number.
type Recorder interface {
	SequenceIssued(scope string)
}

// Allocator computes scoped, per-financial-year sequence numbers.
type Allocator struct {
	loc      *time.Location
	recorder Recorder
}

// NewAllocator constructs an allocator that evaluates reference dates in loc.
func NewAllocator(loc *time.Location) *Allocator {
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{loc: loc}
}

// WithRecorder attaches a metrics recorder.
func (a *Allocator) WithRecorder(r Recorder) *Allocator {
	a.recorder = r
	return a
}

// Location returns the location used to resolve financial years.
func (a *Allocator) Location() *time.Location { return a.loc }

// FinancialYear resolves the financial year of ref in the allocator's location.
func (a *Allocator) FinancialYear(ref time.Time) shared.FinancialYear {
	return shared.FinancialYearOf(ref.In(a.loc))
}

// Peek returns the number the next reservation would receive without reserving it.
func (a *Allocator) Peek(ctx context.Context, store Store, scope Scope, ref time.Time) (Number, error) {
	fy, err := a.resolve(scope, ref)
	if err != nil {
		return Number{}, err
	}
	max, err := store.MaxIssued(ctx, scope, fy)
	if err != nil {
		return Number{}, err
	}
	return Number{Scope: scope, Year: fy, Seq: max + 1}, nil
}

// Next reserves the next number. store must be bound to the caller's transaction
// so a rollback releases the number again.
func (a *Allocator) Next(ctx context.Context, store Store, scope Scope, ref time.Time) (Number, error) {
	fy, err := a.resolve(scope, ref)
	if err != nil {
		return Number{}, err
	}
	floor, err := store.MaxIssued(ctx, scope, fy)
	if err != nil {
		return Number{}, err
	}
	seq, err := store.Advance(ctx, scope, fy, floor)
	if err != nil {
		return Number{}, err
	}
	if a.recorder != nil {
		a.recorder.SequenceIssued(scope.Key())
	}
	return Number{Scope: scope, Year: fy, Seq: seq}, nil
}

func (a *Allocator) resolve(scope Scope, ref time.Time) (shared.FinancialYear, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	if ref.IsZero() {
		return 0, ErrInvalidDate
	}
	return a.FinancialYear(ref), nil
}
