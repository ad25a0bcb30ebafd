package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: shared.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: CodeUniqueViolation}, want: shared.ErrConcurrency},
		{name: "serialization", err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: CodeSerializationFailure}), want: shared.ErrConcurrency},
		{name: "deadlock", err: &pgconn.PgError{Code: CodeDeadlockDetected}, want: shared.ErrConcurrency},
		{name: "other pg error", err: &pgconn.PgError{Code: "42P01"}, want: shared.ErrStorage},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: shared.ErrStorage},
		{name: "already classified", err: fmt.Errorf("invoice: %w", shared.ErrValidation), want: shared.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.want, shared.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyPassesThroughContextErrors(t *testing.T) {
	err := fmt.Errorf("query: %w", context.DeadlineExceeded)
	got := Classify(err)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.Nil(t, shared.KindOf(got))
	assert.NoError(t, Classify(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "businesses_gst_number_key"}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "businesses_gst_number_key"))
	assert.False(t, IsUniqueViolation(err, "invoices_number_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
