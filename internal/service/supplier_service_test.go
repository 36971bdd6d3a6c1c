package service

import (
	"context"
	"errors"
	"testing"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSupplierFixture(t *testing.T) (*fixture, SupplierService) {
	t.Helper()
	f := newFixture(t, InventoryOptions{})
	return f, NewSupplierService(f.suppliers, f.products, f.db)
}

func supplierRequest(email string) *SupplierRequest {
	return &SupplierRequest{
		Name:          "Acme",
		Email:         email,
		Phone:         "555-0100",
		Address:       "1 Main St",
		ContactPerson: "Ana",
	}
}

func TestSupplier_CRUD(t *testing.T) {
	_, suppliers := newSupplierFixture(t)
	ctx := context.Background()

	created, err := suppliers.CreateSupplier(ctx, supplierRequest(" Sales@Acme.test "), clerk)
	require.NoError(t, err)
	assert.Equal(t, "sales@acme.test", created.Email)

	got, err := suppliers.GetSupplier(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	update := supplierRequest("orders@acme.test")
	update.Name = "Acme Ltd"
	updated, err := suppliers.UpdateSupplier(ctx, created.ID, update, clerk)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", updated.Name)
	assert.Equal(t, "orders@acme.test", updated.Email)

	all, err := suppliers.GetAllSuppliers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = suppliers.GetSupplier(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestSupplier_DuplicateEmail(t *testing.T) {
	_, suppliers := newSupplierFixture(t)
	ctx := context.Background()

	_, err := suppliers.CreateSupplier(ctx, supplierRequest("a@acme.test"), clerk)
	require.NoError(t, err)
	other, err := suppliers.CreateSupplier(ctx, supplierRequest("b@acme.test"), clerk)
	require.NoError(t, err)

	_, err = suppliers.CreateSupplier(ctx, supplierRequest("A@acme.test"), clerk)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = suppliers.UpdateSupplier(ctx, other.ID, supplierRequest("a@acme.test"), clerk)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSupplier_Validation(t *testing.T) {
	_, suppliers := newSupplierFixture(t)

	_, err := suppliers.CreateSupplier(context.Background(), supplierRequest("not-an-email"), clerk)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSupplier_DeleteDetachesProducts(t *testing.T) {
	f, suppliers := newSupplierFixture(t)
	ctx := context.Background()

	supplier, err := suppliers.CreateSupplier(ctx, supplierRequest("a@acme.test"), clerk)
	require.NoError(t, err)

	req := productRequest("Bolt", 4)
	req.SupplierID = &supplier.ID
	p, err := f.svc.CreateProduct(ctx, req, clerk)
	require.NoError(t, err)
	require.NotNil(t, p.SupplierID)

	require.NoError(t, suppliers.DeleteSupplier(ctx, supplier.ID, clerk))

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SupplierID)
	assert.Equal(t, 4, stored.Quantity)

	_, err = suppliers.GetSupplier(ctx, supplier.ID)
	assert.ErrorIs(t, err, ErrSupplierNotFound)

	assert.ErrorIs(t, suppliers.DeleteSupplier(ctx, supplier.ID, clerk), ErrSupplierNotFound)
}

func TestSupplier_UpdateNormalizesEmail(t *testing.T) {
	_, suppliers := newSupplierFixture(t)
	ctx := context.Background()

	created, err := suppliers.CreateSupplier(ctx, supplierRequest("a@acme.test"), clerk)
	require.NoError(t, err)

	updated, err := suppliers.UpdateSupplier(ctx, created.ID, supplierRequest("  Orders@ACME.test\t"), clerk)
	require.NoError(t, err)
	assert.Equal(t, "orders@acme.test", updated.Email)
}

// brokenEmailLookup fails every email lookup as a dropped connection would.
type brokenEmailLookup struct {
	repository.SupplierRepository
}

var errLookupFailed = errors.New("connection reset")

func (brokenEmailLookup) FindByEmail(context.Context, string) (*model.Supplier, error) {
	return nil, errLookupFailed
}

func TestSupplier_EmailLookupErrorIsReturned(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	suppliers := NewSupplierService(brokenEmailLookup{f.suppliers}, f.products, f.db)

	_, err := suppliers.CreateSupplier(context.Background(), supplierRequest("a@acme.test"), clerk)
	require.Error(t, err)
	assert.ErrorIs(t, err, errLookupFailed)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	all, err := f.suppliers.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
