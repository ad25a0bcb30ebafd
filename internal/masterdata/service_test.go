package masterdata

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

func validBusinessInput() CreateBusinessInput {
	return CreateBusinessInput{
		Name:      "Shree Traders",
		GSTNumber: " 27aapfu 0939f1zv ",
		Address:   "12 MG Road",
		District:  "Pune",
		State:     "Maharashtra",
		Pincode:   "411001",
	}
}

func TestGSTValidation(t *testing.T) {
	assert.True(t, ValidGST("27AAPFU0939F1ZV"))
	assert.True(t, ValidGST(NormalizeGST("29abcde1234f1z5")))
	assert.False(t, ValidGST("27AAPFU0939F0ZV"), "entity code cannot be 0")
	assert.False(t, ValidGST("27AAPFU0939F1XV"), "fourteenth character must be Z")
	assert.False(t, ValidGST("27AAPFU0939F1Z"))
}

func TestCreateBusinessNormalisesGST(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	business, err := svc.CreateBusiness(context.Background(), validBusinessInput())
	require.NoError(t, err)
	assert.Equal(t, "27AAPFU0939F1ZV", business.GSTNumber)
	assert.NotEqual(t, uuid.Nil, business.ID)
	assert.Equal(t, "12 MG Road, Pune, Maharashtra, 411001", business.FullAddress())
}

func TestCreateBusinessRejectsInvalidInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	input := validBusinessInput()
	input.GSTNumber = "27AAPFU0939"
	_, err := svc.CreateBusiness(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidGST)
	assert.ErrorIs(t, err, shared.ErrValidation)

	input = validBusinessInput()
	input.Name = "   "
	_, err = svc.CreateBusiness(ctx, input)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateBusinessRejectsDuplicateGST(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateBusiness(ctx, validBusinessInput())
	require.NoError(t, err)
	_, err = svc.CreateBusiness(ctx, validBusinessInput())
	assert.ErrorIs(t, err, ErrDuplicateGST)
}

func TestGetBusinessNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.GetBusiness(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.GetBusiness(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestCreateBankAccount(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	account, err := svc.CreateBankAccount(ctx, CreateBankAccountInput{
		BankName:          "HDFC Bank",
		AccountNumber:     "50100123456789",
		IFSCCode:          "hdfc0001234",
		AccountHolderName: "Acme Exports",
	})
	require.NoError(t, err)
	assert.Equal(t, "HDFC0001234", account.IFSCCode)
	assert.Equal(t, "56789", account.Tail())

	_, err = svc.CreateBankAccount(ctx, CreateBankAccountInput{BankName: "SBI", AccountNumber: "1", IFSCCode: "SBIN0000001"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestFullAddressSkipsBlankParts(t *testing.T) {
	b := Business{Address: "Plot 4", Address2: " ", State: "Gujarat"}
	assert.Equal(t, "Plot 4, Gujarat", b.FullAddress())
	assert.Equal(t, "", Business{}.FullAddress())
	assert.Equal(t, "123", BankAccount{AccountNumber: "123"}.Tail())
}
