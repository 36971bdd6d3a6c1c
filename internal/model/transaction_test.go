package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMovement_SignFollowsType(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		quantity  int
		wantType  TransactionType
		wantDelta int
	}{
		{"IN adds stock", "IN", 5, TxReceipt, 5},
		{"OUT removes stock", "out", 5, TxIssue, -5},
		{"RECEIPT alias", "RECEIPT", 3, TxReceipt, 3},
		{"ISSUE alias", "ISSUE", 3, TxIssue, -3},
		{"positive adjustment", "ADJUSTMENT", 2, TxAdjustment, 2},
		{"negative adjustment", "ADJUSTMENT", -7, TxAdjustment, -7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, delta, err := ParseMovement(tt.kind, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantDelta, delta)
		})
	}
}

func TestParseMovement_Rejects(t *testing.T) {
	_, _, err := ParseMovement("IN", -5)
	assert.ErrorIs(t, err, ErrInvalidDelta, "IN takes an unsigned magnitude")

	_, _, err = ParseMovement("OUT", 0)
	assert.ErrorIs(t, err, ErrInvalidDelta)

	_, _, err = ParseMovement("ADJUSTMENT", 0)
	assert.ErrorIs(t, err, ErrInvalidDelta)

	_, _, err = ParseMovement("TRANSFER", 1)
	assert.ErrorIs(t, err, ErrUnknownTransactionType)
}

func TestCheckDelta(t *testing.T) {
	assert.NoError(t, TxReceipt.CheckDelta(1))
	assert.ErrorIs(t, TxReceipt.CheckDelta(-1), ErrInvalidDelta)
	assert.NoError(t, TxIssue.CheckDelta(-1))
	assert.ErrorIs(t, TxIssue.CheckDelta(1), ErrInvalidDelta)
	assert.NoError(t, TxAdjustment.CheckDelta(-1))
	assert.ErrorIs(t, TransactionType("GIFT").CheckDelta(1), ErrUnknownTransactionType)
}

func TestProduct_LowStockAndValue(t *testing.T) {
	p := Product{Quantity: 5, MinStockLevel: 5, PurchasePrice: decimal.RequireFromString("12.50")}
	assert.True(t, p.IsLowStock(), "quantity equal to the minimum counts as low stock")
	assert.True(t, decimal.RequireFromString("62.5").Equal(p.StockValue()))

	p.Quantity = 6
	assert.False(t, p.IsLowStock())
}
