package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesSorted(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestSchemaDefinesRepositoryTables(t *testing.T) {
	body, err := fs.ReadFile(Files, "0001_init.sql")
	require.NoError(t, err)
	schema := string(body)

	for _, table := range []string{
		"businesses", "bank_accounts", "sequence_counters", "invoices", "invoice_items",
		"payment_credits", "invoice_credits", "partial_payments", "expenses", "idempotency_keys",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.True(t, strings.Contains(schema, "UNIQUE (financial_year, credit_number)"))
	assert.True(t, strings.Contains(schema, "PRIMARY KEY (scope, fy_start)"))
	assert.Regexp(t, `(?s)CREATE TABLE IF NOT EXISTS partial_payments \([^;]*business_id\s+UUID REFERENCES businesses`, schema)
}
