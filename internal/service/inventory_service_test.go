package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var clerk = Actor{ID: "user-1", Name: "Clerk", Email: "clerk@example.com"}

type fixture struct {
	db        *gorm.DB
	products  repository.ProductRepository
	ledger    repository.TransactionRepository
	suppliers repository.SupplierRepository
	svc       InventoryService
	events    *recordingNotifier
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (n *recordingNotifier) Publish(payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if m, ok := payload.(map[string]interface{}); ok {
		n.events = append(n.events, m)
	}
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		action, _ := e["action"].(string)
		out = append(out, action)
	}
	return out
}

func newFixture(t *testing.T, opts InventoryOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		products:  repository.NewProductRepo(db),
		ledger:    repository.NewTransactionRepo(db),
		suppliers: repository.NewSupplierRepo(db),
		events:    &recordingNotifier{},
	}
	if opts.Notifier == nil {
		opts.Notifier = f.events
	}
	f.svc = NewInventoryService(f.products, f.ledger, f.suppliers, db, opts)
	return f
}

func productRequest(name string, quantity int) *CreateProductRequest {
	return &CreateProductRequest{
		ProductDetails: ProductDetails{
			Name:          name,
			Category:      "Hardware",
			PurchasePrice: decimal.RequireFromString("10.00"),
			SellingPrice:  decimal.RequireFromString("12.50"),
			MinStockLevel: 5,
			MaxStockLevel: 100,
			Location:      "A1",
		},
		Quantity: quantity,
	}
}

func (f *fixture) create(t *testing.T, name string, quantity int) *model.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), productRequest(name, quantity), clerk)
	require.NoError(t, err)
	return p
}

func (f *fixture) ledgerSum(t *testing.T, id uuid.UUID) int {
	t.Helper()
	entries, err := f.ledger.FindByProduct(context.Background(), id)
	require.NoError(t, err)
	sum := 0
	for _, e := range entries {
		sum += e.Delta
	}
	return sum
}

func TestCreateProduct_AllocatesSKUAndOpeningEntry(t *testing.T) {
	f := newFixture(t, InventoryOptions{SKUs: NewSKUAllocator("TEST")})

	p := f.create(t, "Bolt", 10)

	assert.True(t, IsGeneratedSKU("TEST", p.SKU), p.SKU)
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, clerk.ID, p.CreatedBy)

	history, err := f.svc.GetProductHistory(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.TxReceipt, history[0].Type)
	assert.Equal(t, 10, history[0].Delta)
	assert.Equal(t, 10, history[0].QuantityAfter)
	assert.Equal(t, clerk.ID, history[0].Actor)
	assert.Equal(t, []string{"product_created"}, f.events.actions())
}

func TestCreateProduct_ZeroQuantityHasNoLedger(t *testing.T) {
	f := newFixture(t, InventoryOptions{})

	p := f.create(t, "Nut", 0)

	n, err := f.ledger.CountByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateProduct_DuplicateExplicitSKU(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()

	req := productRequest("Washer", 1)
	req.SKU = "WASH-01"
	_, err := f.svc.CreateProduct(ctx, req, clerk)
	require.NoError(t, err)

	again := productRequest("Other washer", 3)
	again.SKU = "WASH-01"
	_, err = f.svc.CreateProduct(ctx, again, clerk)

	var dup *DuplicateSKUError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "WASH-01", dup.SKU)
	assert.True(t, IsDuplicate(err))

	all, err := f.svc.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateProduct_SKUOfDeletedProductStaysReserved(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()

	req := productRequest("Gear", 0)
	req.SKU = "GEAR-1"
	p, err := f.svc.CreateProduct(ctx, req, clerk)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID, clerk))

	_, err = f.svc.CreateProduct(ctx, req, clerk)
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

// sequenceAllocator replays fixed SKUs, then falls back to a real allocator.
type sequenceAllocator struct {
	mu   sync.Mutex
	skus []string
	next SKUAllocator
}

func (a *sequenceAllocator) Allocate() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.skus) == 0 {
		return a.next.Allocate()
	}
	sku := a.skus[0]
	a.skus = a.skus[1:]
	return sku
}

func TestCreateProduct_RetriesAllocatedSKUCollision(t *testing.T) {
	alloc := &sequenceAllocator{skus: []string{"PROD-X", "PROD-X", "PROD-X"}, next: NewSKUAllocator("PROD")}
	f := newFixture(t, InventoryOptions{SKUs: alloc})
	ctx := context.Background()

	first := f.create(t, "First", 4)
	require.Equal(t, "PROD-X", first.SKU)

	second := f.create(t, "Second", 6)
	assert.NotEqual(t, "PROD-X", second.SKU)
	assert.True(t, IsGeneratedSKU("PROD", second.SKU))

	// The failed attempts left nothing behind.
	all, err := f.svc.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 6, f.ledgerSum(t, second.ID))
}

func TestCreateProduct_GivesUpAfterBoundedAttempts(t *testing.T) {
	skus := make([]string, maxSKUAttempts+1)
	for i := range skus {
		skus[i] = "SAME"
	}
	f := newFixture(t, InventoryOptions{SKUs: &sequenceAllocator{skus: skus, next: NewSKUAllocator("P")}})

	f.create(t, "Taken", 0)
	_, err := f.svc.CreateProduct(context.Background(), productRequest("Never", 0), clerk)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *CreateProductRequest)
		field  string
	}{
		{"missing name", func(r *CreateProductRequest) { r.Name = "" }, "Name"},
		{"negative quantity", func(r *CreateProductRequest) { r.Quantity = -1 }, "Quantity"},
		{"min above max", func(r *CreateProductRequest) { r.MinStockLevel = 50; r.MaxStockLevel = 10 }, "MaxStockLevel"},
		{"bad sku", func(r *CreateProductRequest) { r.SKU = "has space" }, "SKU"},
		{"negative price", func(r *CreateProductRequest) { r.PurchasePrice = decimal.NewFromInt(-1) }, "PurchasePrice"},
		{"sub-cent price", func(r *CreateProductRequest) { r.SellingPrice = decimal.RequireFromString("1.005") }, "SellingPrice"},
		{"price above column range", func(r *CreateProductRequest) { r.PurchasePrice = decimal.New(1, 13) }, "PurchasePrice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := productRequest("Valid", 1)
			tt.mutate(req)

			_, err := f.svc.CreateProduct(ctx, req, clerk)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Contains(t, verr.Fields[0].FailedField, tt.field)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestCreateProduct_PricesKeepTwoDecimals(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()

	req := productRequest("Washer", 1)
	req.PurchasePrice = decimal.RequireFromString("1.500")
	req.SellingPrice = decimal.RequireFromString("99999.99")
	p, err := f.svc.CreateProduct(ctx, req, clerk)
	require.NoError(t, err)

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.50", stored.PurchasePrice.StringFixed(2))

	details := req.ProductDetails
	details.PurchasePrice = decimal.RequireFromString("0.125")
	_, err = f.svc.UpdateProduct(ctx, p.ID, &details, clerk)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scale", verr.Fields[0].Tag)
}

func TestCreateProduct_UnknownSupplier(t *testing.T) {
	f := newFixture(t, InventoryOptions{})

	req := productRequest("Orphan", 0)
	missing := uuid.New()
	req.SupplierID = &missing

	_, err := f.svc.CreateProduct(context.Background(), req, clerk)
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestApplyDelta_UpdatesQuantityAndLedger(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 10)

	updated, entry, err := f.svc.ApplyDelta(ctx, p.ID, -4, model.TxIssue, "order 42", clerk)
	require.NoError(t, err)

	assert.Equal(t, 6, updated.Quantity)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, model.TxIssue, entry.Type)
	assert.Equal(t, -4, entry.Delta)
	assert.Equal(t, 6, entry.QuantityAfter)
	assert.Equal(t, "order 42", entry.Reason)
	assert.NotZero(t, entry.ID)

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Quantity)
	assert.Equal(t, stored.Quantity, f.ledgerSum(t, p.ID))
	assert.Contains(t, f.events.actions(), "transaction_created")
}

func TestApplyDelta_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 3)

	_, _, err := f.svc.ApplyDelta(ctx, p.ID, -5, model.TxIssue, "", clerk)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.OnHand)
	assert.Equal(t, -5, insufficient.Delta)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity)
	assert.Equal(t, 1, stored.Version)

	n, err := f.ledger.CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestApplyDelta_DrainToZero(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	p := f.create(t, "Bolt", 3)

	updated, _, err := f.svc.ApplyDelta(context.Background(), p.ID, -3, model.TxIssue, "", clerk)
	require.NoError(t, err)
	assert.Zero(t, updated.Quantity)
}

func TestApplyDelta_SignRules(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	p := f.create(t, "Bolt", 10)

	tests := []struct {
		txType model.TransactionType
		delta  int
		ok     bool
	}{
		{model.TxReceipt, 5, true},
		{model.TxReceipt, -1, false},
		{model.TxIssue, -1, true},
		{model.TxIssue, 2, false},
		{model.TxAdjustment, -2, true},
		{model.TxAdjustment, 3, true},
		{model.TxAdjustment, 0, false},
		{model.TxReceipt, 0, false},
	}
	for _, tt := range tests {
		_, _, err := f.svc.ApplyDelta(context.Background(), p.ID, tt.delta, tt.txType, "", clerk)
		if tt.ok {
			assert.NoError(t, err, "%s %d", tt.txType, tt.delta)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDelta, "%s %d", tt.txType, tt.delta)
		}
	}

	_, _, err := f.svc.ApplyDelta(context.Background(), p.ID, 1, model.TransactionType("GIFT"), "", clerk)
	assert.ErrorIs(t, err, model.ErrUnknownTransactionType)
}

func TestApplyDelta_UnknownProduct(t *testing.T) {
	f := newFixture(t, InventoryOptions{})

	_, _, err := f.svc.ApplyDelta(context.Background(), uuid.New(), 1, model.TxReceipt, "", clerk)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, IsNotFound(err))
}

func TestApplyDelta_DefaultReason(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	p := f.create(t, "Bolt", 1)

	_, entry, err := f.svc.ApplyDelta(context.Background(), p.ID, 2, model.TxAdjustment, "  ", clerk)
	require.NoError(t, err)
	assert.Equal(t, "adjustment", entry.Reason)
}

func TestApplyDelta_RandomSequenceMatchesLedgerSum(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 20)
	rng := rand.New(rand.NewSource(7))

	expected := 20
	for i := 0; i < 200; i++ {
		delta := rng.Intn(21) - 10
		if delta == 0 {
			continue
		}
		_, _, err := f.svc.ApplyDelta(ctx, p.ID, delta, model.TxAdjustment, "", clerk)
		if expected+delta < 0 {
			require.ErrorIs(t, err, ErrInsufficientStock)
			continue
		}
		require.NoError(t, err)
		expected += delta
	}

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, stored.Quantity)
	assert.Equal(t, expected, f.ledgerSum(t, p.ID))

	history, err := f.svc.GetProductHistory(ctx, p.ID)
	require.NoError(t, err)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].QuantityAfter+history[i].Delta, history[i].QuantityAfter)
		assert.Less(t, history[i-1].ID, history[i].ID)
	}
}

func TestApplyDelta_ConcurrentIssuesNeverOversell(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 50)

	var (
		wg           sync.WaitGroup
		ok, rejected atomic.Int32
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.ApplyDelta(ctx, p.ID, -1, model.TxIssue, "", clerk)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				rejected.Add(1)
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, ok.Load())
	assert.EqualValues(t, 30, rejected.Load())

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Quantity)
	assert.Equal(t, 0, f.ledgerSum(t, p.ID))
	assert.Equal(t, 51, stored.Version)
}

func TestApplyDelta_ConcurrentMixedDeltas(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta, txType := 3, model.TxReceipt
			if i%2 == 0 {
				delta, txType = -2, model.TxIssue
			}
			_, _, err := f.svc.ApplyDelta(ctx, p.ID, delta, txType, "", clerk)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100+20*3-20*2, stored.Quantity)
	assert.Equal(t, stored.Quantity, f.ledgerSum(t, p.ID))
}

// staleProducts reports a lost version race for the first n quantity updates.
type staleProducts struct {
	repository.ProductRepository
	remaining *atomic.Int32
}

func (s staleProducts) WithTx(tx *gorm.DB) repository.ProductRepository {
	return staleProducts{ProductRepository: s.ProductRepository.WithTx(tx), remaining: s.remaining}
}

func (s staleProducts) UpdateQuantity(ctx context.Context, id uuid.UUID, expectedVersion, newQuantity int, updatedBy string, at time.Time) (bool, error) {
	if s.remaining.Add(-1) >= 0 {
		return false, nil
	}
	return s.ProductRepository.UpdateQuantity(ctx, id, expectedVersion, newQuantity, updatedBy, at)
}

func newStaleFixture(t *testing.T, staleUpdates int32, maxRetries int) *fixture {
	t.Helper()
	f := newFixture(t, InventoryOptions{})
	remaining := &atomic.Int32{}
	remaining.Store(staleUpdates)
	f.svc = NewInventoryService(staleProducts{ProductRepository: f.products, remaining: remaining},
		f.ledger, f.suppliers, f.db, InventoryOptions{MaxRetries: maxRetries})
	return f
}

func TestApplyDelta_RetriesStaleVersion(t *testing.T) {
	f := newStaleFixture(t, 2, 3)
	p := f.create(t, "Bolt", 5)

	updated, _, err := f.svc.ApplyDelta(context.Background(), p.ID, 1, model.TxReceipt, "", clerk)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)

	n, err := f.ledger.CountByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "rolled back attempts leave no ledger entries")
}

func TestApplyDelta_ConflictAfterRetries(t *testing.T) {
	f := newStaleFixture(t, 10, 3)
	p := f.create(t, "Bolt", 5)

	_, _, err := f.svc.ApplyDelta(context.Background(), p.ID, 1, model.TxReceipt, "", clerk)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 3, conflict.Attempts)
	assert.True(t, IsRetryable(err))

	stored, err := f.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
}

func TestApplyDelta_CanceledContext(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	p := f.create(t, "Bolt", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.svc.ApplyDelta(ctx, p.ID, 1, model.TxReceipt, "", clerk)
	require.Error(t, err)

	stored, err := f.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
}

func TestUpdateProduct_LeavesQuantityAndSKU(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 7)

	details := productRequest("Hex bolt", 0).ProductDetails
	details.Category = "Fasteners"
	details.MinStockLevel = 10

	updated, err := f.svc.UpdateProduct(ctx, p.ID, &details, clerk)
	require.NoError(t, err)
	assert.Equal(t, "Hex bolt", updated.Name)

	stored, err := f.svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fasteners", stored.Category)
	assert.Equal(t, 7, stored.Quantity)
	assert.Equal(t, p.SKU, stored.SKU)
	assert.True(t, stored.IsLowStock())

	_, err = f.svc.UpdateProduct(ctx, uuid.New(), &details, clerk)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProduct_KeepsHistory(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 7)
	_, _, err := f.svc.ApplyDelta(ctx, p.ID, -2, model.TxIssue, "", clerk)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID, clerk))

	_, err = f.svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	history, err := f.svc.GetProductHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, _, err = f.svc.ApplyDelta(ctx, p.ID, 1, model.TxReceipt, "", clerk)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, p.ID, clerk), ErrProductNotFound)
}

func TestSearchHelpers(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	f.create(t, "Steel Bolt", 1)
	f.create(t, "Brass bolt", 1)

	book := productRequest("Manual", 1)
	book.Category = "Books"
	_, err := f.svc.CreateProduct(ctx, book, clerk)
	require.NoError(t, err)

	found, err := f.svc.SearchProducts(ctx, "BOLT")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.svc.SearchProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	books, err := f.svc.FindByCategory(ctx, "Books")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Manual", books[0].Name)

	none, err := f.svc.FindByCategory(ctx, "Toys")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransactionsQueries(t *testing.T) {
	f := newFixture(t, InventoryOptions{})
	ctx := context.Background()
	p := f.create(t, "Bolt", 2)
	_, entry, err := f.svc.ApplyDelta(ctx, p.ID, 3, model.TxReceipt, "", clerk)
	require.NoError(t, err)

	all, err := f.svc.GetAllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, entry.ID, all[0].ID, "newest first")

	got, err := f.svc.GetTransactionByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Delta)

	_, err = f.svc.GetTransactionByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
