package service

import (
	"errors"
	"fmt"
	"strings"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/validator"

	"github.com/google/uuid"
)

// Sentinel errors. Match with errors.Is; the structured errors below unwrap
// to one of these.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrSupplierNotFound    = errors.New("supplier not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateSKU        = errors.New("SKU already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrConflict            = errors.New("concurrent modification, retry the operation")
	ErrInvalidDelta        = model.ErrInvalidDelta
	ErrValidation          = errors.New("validation failed")
)

// InsufficientStockError is returned when a delta would take quantity below zero.
type InsufficientStockError struct {
	ProductID uuid.UUID
	OnHand    int
	Delta     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: on hand %d, delta %d, shortfall %d",
		e.OnHand, e.Delta, -(e.OnHand + e.Delta))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DuplicateSKUError is returned when a caller-supplied SKU is taken.
type DuplicateSKUError struct {
	SKU string
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("SKU already exists: %s", e.SKU)
}

func (e *DuplicateSKUError) Unwrap() error {
	return ErrDuplicateSKU
}

// ConflictError is returned after the bounded retries on a contended product
// are used up. The whole operation may be retried by the caller.
type ConflictError struct {
	ProductID uuid.UUID
	Attempts  int
	Cause     error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("conflict on product %s after %d attempts", e.ProductID, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationError carries the failed fields of a request.
type ValidationError struct {
	Fields []*validator.ErrorResponse
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("field '%s' failed on tag '%s'", f.FailedField, f.Tag))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSupplierNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsClientError returns true if the request itself was wrong.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidDelta) ||
		errors.Is(err, model.ErrUnknownTransactionType) ||
		errors.Is(err, ErrValidation)
}

// IsDuplicate returns true for uniqueness violations the caller can correct.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateSKU) || errors.Is(err, ErrDuplicateEmail)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
