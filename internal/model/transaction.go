package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxReceipt    TransactionType = "RECEIPT"
	TxIssue      TransactionType = "ISSUE"
	TxAdjustment TransactionType = "ADJUSTMENT"
)

var (
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrInvalidDelta           = errors.New("invalid quantity delta")
)

// ParseTransactionType accepts the canonical names and the IN/OUT labels
// used by the HTTP layer.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RECEIPT", "IN":
		return TxReceipt, nil
	case "ISSUE", "OUT":
		return TxIssue, nil
	case "ADJUSTMENT", "ADJUST":
		return TxAdjustment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
}

// CheckDelta enforces the sign rule of each type: receipts add stock, issues
// remove it, adjustments go either way. A zero delta is never valid.
func (t TransactionType) CheckDelta(delta int) error {
	switch t {
	case TxReceipt:
		if delta <= 0 {
			return fmt.Errorf("%w: %s requires a positive delta, got %d", ErrInvalidDelta, t, delta)
		}
	case TxIssue:
		if delta >= 0 {
			return fmt.Errorf("%w: %s requires a negative delta, got %d", ErrInvalidDelta, t, delta)
		}
	case TxAdjustment:
		if delta == 0 {
			return fmt.Errorf("%w: %s requires a non-zero delta", ErrInvalidDelta, t)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransactionType, string(t))
	}
	return nil
}

// ParseMovement maps a movement label and quantity onto a type and a signed
// delta. IN and OUT carry an unsigned magnitude; ADJUSTMENT carries the sign.
func ParseMovement(kind string, quantity int) (TransactionType, int, error) {
	t, err := ParseTransactionType(kind)
	if err != nil {
		return "", 0, err
	}

	delta := quantity
	switch t {
	case TxReceipt, TxIssue:
		if quantity <= 0 {
			return "", 0, fmt.Errorf("%w: %s quantity must be greater than zero", ErrInvalidDelta, t)
		}
		if t == TxIssue {
			delta = -quantity
		}
	}

	if err := t.CheckDelta(delta); err != nil {
		return "", 0, err
	}
	return t, delta, nil
}

// Transaction is one immutable ledger entry. ProductID is a weak reference:
// the product may be soft-deleted later and its history stays.
type Transaction struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Type          TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	Delta         int             `gorm:"not null" json:"delta"`
	QuantityAfter int             `gorm:"not null" json:"quantity_after"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	Actor         string          `gorm:"type:varchar(255);not null" json:"actor"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
}
