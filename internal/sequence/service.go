package sequence

import (
	"context"
	"time"
)

// Service previews upcoming numbers for forms and tooling. Reservation always
// goes through Allocator.Next inside the owning module's transaction.
type Service struct {
	allocator *Allocator
	store     Store
	now       func() time.Time
}

// NewService constructs a preview service over a pool-bound store.
func NewService(allocator *Allocator, store Store) *Service {
	return &Service{allocator: allocator, store: store, now: time.Now}
}

// WithNow overrides the clock used when no reference date is supplied.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Preview returns the next number for scope; a zero ref means today.
func (s *Service) Preview(ctx context.Context, scope Scope, ref time.Time) (Number, error) {
	if ref.IsZero() {
		ref = s.now()
	}
	return s.allocator.Peek(ctx, s.store, scope, ref)
}
