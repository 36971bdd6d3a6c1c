package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-stock-ledger/internal/lock"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"
	"go-stock-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	defaultMaxRetries = 3
	maxSKUAttempts    = 5
	moduleInventory   = "inventory"
)

// errStaleVersion means the product row changed between read and write.
var errStaleVersion = errors.New("stale product version")

var tracer trace.Tracer = otel.Tracer("go-stock-ledger/internal/service")

type InventoryService interface {
	CreateProduct(ctx context.Context, req *CreateProductRequest, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductDetails, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	FindByCategory(ctx context.Context, category string) ([]model.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]model.Product, error)

	// ApplyDelta is the only path that changes a product's quantity.
	ApplyDelta(ctx context.Context, productID uuid.UUID, delta int, txType model.TransactionType, reason string, actor Actor) (*model.Product, *model.Transaction, error)

	GetProductHistory(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id uint) (*model.Transaction, error)
}

// ProductDetails are the caller-editable fields of a product.
type ProductDetails struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	Category      string          `json:"category" validate:"required,max=100"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	MinStockLevel int             `json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel int             `json:"max_stock_level" validate:"gte=0,gtefield=MinStockLevel"`
	Location      string          `json:"location" validate:"required,max=255"`
	SupplierID    *uuid.UUID      `json:"supplier_id"`
}

// CreateProductRequest adds the fields only settable at creation. An empty SKU
// is allocated by the service; Quantity becomes an opening ledger entry.
type CreateProductRequest struct {
	ProductDetails
	SKU      string `json:"sku" validate:"omitempty,sku"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// InventoryOptions carries the collaborators that have sensible defaults.
type InventoryOptions struct {
	Locker     lock.Locker
	SKUs       SKUAllocator
	Notifier   Notifier
	Logger     logrus.FieldLogger
	MaxRetries int
}

type inventoryService struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	supplierRepo    repository.SupplierRepository
	db              *gorm.DB
	locker          lock.Locker
	skus            SKUAllocator
	notifier        Notifier
	log             logrus.FieldLogger
	maxRetries      int
}

func NewInventoryService(pRepo repository.ProductRepository, tRepo repository.TransactionRepository, sRepo repository.SupplierRepository, db *gorm.DB, opts InventoryOptions) InventoryService {
	s := &inventoryService{
		productRepo:     pRepo,
		transactionRepo: tRepo,
		supplierRepo:    sRepo,
		db:              db,
		locker:          opts.Locker,
		skus:            opts.SKUs,
		notifier:        opts.Notifier,
		log:             opts.Logger,
		maxRetries:      opts.MaxRetries,
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.skus == nil {
		s.skus = NewSKUAllocator("PROD")
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	return s
}

// Prices are stored as decimal(15,2): at most priceScale fractional digits
// and an absolute value below maxPrice.
const priceScale = 2

var maxPrice = decimal.New(1, 13)

func checkPrices(d *ProductDetails) error {
	verr := &ValidationError{}
	for _, price := range []struct {
		field string
		value decimal.Decimal
	}{
		{"PurchasePrice", d.PurchasePrice},
		{"SellingPrice", d.SellingPrice},
	} {
		field := "ProductDetails." + price.field
		switch {
		case price.value.IsNegative():
			verr.Fields = append(verr.Fields, &validator.ErrorResponse{FailedField: field, Tag: "gte", Value: "0"})
		case !price.value.Equal(price.value.Round(priceScale)):
			verr.Fields = append(verr.Fields, &validator.ErrorResponse{FailedField: field, Tag: "scale", Value: strconv.Itoa(priceScale)})
		case price.value.GreaterThanOrEqual(maxPrice):
			verr.Fields = append(verr.Fields, &validator.ErrorResponse{FailedField: field, Tag: "lt", Value: maxPrice.String()})
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func (s *inventoryService) checkSupplier(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.supplierRepo.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSupplierNotFound
		}
		return fmt.Errorf("load supplier: %w", err)
	}
	return nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, req *CreateProductRequest, actor Actor) (*model.Product, error) {
	// 1. Validasi Struct Dasar
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := checkPrices(&req.ProductDetails); err != nil {
		return nil, err
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	explicitSKU := strings.TrimSpace(req.SKU)
	attempts := 1
	if explicitSKU == "" {
		attempts = maxSKUAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		sku := explicitSKU
		if sku == "" {
			sku = s.skus.Allocate()
		}

		product := &model.Product{
			SKU:           sku,
			Name:          req.Name,
			Description:   req.Description,
			Category:      req.Category,
			PurchasePrice: req.PurchasePrice,
			SellingPrice:  req.SellingPrice,
			Quantity:      req.Quantity,
			MinStockLevel: req.MinStockLevel,
			MaxStockLevel: req.MaxStockLevel,
			Location:      req.Location,
			SupplierID:    req.SupplierID,
			Version:       1,
		}
		product.CreatedBy = actor.String()
		product.UpdatedBy = actor.String()

		// 2. Product row and opening ledger entry commit together
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			products := s.productRepo.WithTx(tx)

			if explicitSKU != "" {
				_, err := products.FindBySKU(ctx, sku)
				if err == nil {
					return &DuplicateSKUError{SKU: sku}
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}

			if err := products.Create(ctx, product); err != nil {
				return err
			}

			if product.Quantity > 0 {
				opening := &model.Transaction{
					ProductID:     product.ID,
					Type:          model.TxReceipt,
					Delta:         product.Quantity,
					QuantityAfter: product.Quantity,
					Reason:        "opening balance",
					Actor:         actor.String(),
					CreatedAt:     product.CreatedAt,
				}
				if err := s.transactionRepo.WithTx(tx).Append(ctx, opening); err != nil {
					return fmt.Errorf("append opening entry: %w", err)
				}
			}
			return nil
		})

		switch {
		case err == nil:
			s.publishProduct("product_created", product, actor,
				fmt.Sprintf("%s created product '%s'", actor.displayName(), product.Name))
			return product, nil
		case errors.Is(err, gorm.ErrDuplicatedKey) && explicitSKU == "":
			s.log.WithFields(logrus.Fields{
				"module":  moduleInventory,
				"sku":     sku,
				"attempt": attempt,
			}).Warn("allocated SKU collided, allocating another")
			continue
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, &DuplicateSKUError{SKU: sku}
		case errors.Is(err, ErrDuplicateSKU):
			return nil, err
		default:
			logger.LogError(s.log, moduleInventory, "CreateProduct", "persist product", sku, err)
			return nil, fmt.Errorf("create product: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: no free SKU after %d attempts", ErrConflict, attempts)
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductDetails, actor Actor) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := checkPrices(req); err != nil {
		return nil, err
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	var updated *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)

		existing, err := products.FindByIDForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}

		existing.Name = req.Name
		existing.Description = req.Description
		existing.Category = req.Category
		existing.PurchasePrice = req.PurchasePrice
		existing.SellingPrice = req.SellingPrice
		existing.MinStockLevel = req.MinStockLevel
		existing.MaxStockLevel = req.MaxStockLevel
		existing.Location = req.Location
		existing.SupplierID = req.SupplierID
		existing.UpdatedBy = actor.String()

		if err := products.UpdateDetails(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.publishProduct("product_updated", updated, actor,
		fmt.Sprintf("%s updated product '%s'", actor.displayName(), updated.Name))
	return updated, nil
}

// DeleteProduct soft-deletes the product. Its ledger history stays queryable
// and its SKU stays reserved.
func (s *inventoryService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.productRepo.WithTx(tx).Delete(ctx, id, actor.String())
		return err
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !deleted {
		return ErrProductNotFound
	}

	s.notifier.Publish(map[string]interface{}{
		"type":       "stock_update",
		"action":     "product_deleted",
		"product_id": id,
		"user":       actorPayload(actor),
	})
	return nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (s *inventoryService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *inventoryService) FindByCategory(ctx context.Context, category string) ([]model.Product, error) {
	return s.productRepo.FindByCategory(ctx, category)
}

func (s *inventoryService) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	if strings.TrimSpace(keyword) == "" {
		return s.productRepo.FindAll(ctx)
	}
	return s.productRepo.SearchByName(ctx, keyword)
}

func (s *inventoryService) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int, txType model.TransactionType, reason string, actor Actor) (*model.Product, *model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "InventoryService.ApplyDelta", trace.WithAttributes(
		attribute.String("product.id", productID.String()),
		attribute.String("stock.type", string(txType)),
		attribute.Int("stock.delta", delta),
	))
	defer span.End()

	product, entry, err := s.applyDelta(ctx, productID, delta, txType, reason, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	s.notifier.Publish(map[string]interface{}{
		"type":   "stock_update",
		"action": "transaction_created",
		"transaction": map[string]interface{}{
			"id":         entry.ID,
			"type":       entry.Type,
			"delta":      entry.Delta,
			"product_id": product.ID,
			"product": map[string]interface{}{
				"name": product.Name,
				"sku":  product.SKU,
			},
			"new_stock": product.Quantity,
		},
		"user":    actorPayload(actor),
		"message": fmt.Sprintf("%s applied %+d to '%s' (%s)", actor.displayName(), delta, product.Name, txType),
	})
	return product, entry, nil
}

func (s *inventoryService) applyDelta(ctx context.Context, productID uuid.UUID, delta int, txType model.TransactionType, reason string, actor Actor) (*model.Product, *model.Transaction, error) {
	if err := txType.CheckDelta(delta); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = strings.ToLower(string(txType))
	}

	unlock, err := s.locker.Lock(ctx, productID.String())
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, nil, &ConflictError{ProductID: productID, Attempts: 0, Cause: err}
		}
		return nil, nil, fmt.Errorf("lock product: %w", err)
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		product, entry, err := s.applyOnce(ctx, productID, delta, txType, reason, actor)
		if err == nil {
			return product, entry, nil
		}
		if !errors.Is(err, errStaleVersion) {
			return nil, nil, err
		}
		lastErr = err
		s.log.WithFields(logrus.Fields{
			"module":     moduleInventory,
			"product_id": productID,
			"attempt":    attempt,
		}).Warn("product changed during stock update, retrying")
	}

	return nil, nil, &ConflictError{ProductID: productID, Attempts: s.maxRetries, Cause: lastErr}
}

// applyOnce runs one read-check-write cycle. The product update and the
// ledger append share the database transaction, so a failure leaves neither.
func (s *inventoryService) applyOnce(ctx context.Context, productID uuid.UUID, delta int, txType model.TransactionType, reason string, actor Actor) (*model.Product, *model.Transaction, error) {
	var (
		product *model.Product
		entry   *model.Transaction
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)

		current, err := products.FindByIDForUpdate(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}

		newQuantity := current.Quantity + delta
		if delta > 0 && newQuantity < current.Quantity {
			return fmt.Errorf("%w: quantity overflow", ErrInvalidDelta)
		}
		if newQuantity < 0 {
			return &InsufficientStockError{ProductID: productID, OnHand: current.Quantity, Delta: delta}
		}

		now := time.Now()
		ok, err := products.UpdateQuantity(ctx, current.ID, current.Version, newQuantity, actor.String(), now)
		if err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		if !ok {
			return errStaleVersion
		}

		ledgerEntry := &model.Transaction{
			ProductID:     current.ID,
			Type:          txType,
			Delta:         delta,
			QuantityAfter: newQuantity,
			Reason:        reason,
			Actor:         actor.String(),
			CreatedAt:     now,
		}
		if err := s.transactionRepo.WithTx(tx).Append(ctx, ledgerEntry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		current.Quantity = newQuantity
		current.Version++
		current.UpdatedAt = now
		current.UpdatedBy = actor.String()
		product, entry = current, ledgerEntry
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return product, entry, nil
}

func (s *inventoryService) GetProductHistory(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error) {
	return s.transactionRepo.FindByProduct(ctx, productID)
}

func (s *inventoryService) GetAllTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.transactionRepo.FindAll(ctx)
}

func (s *inventoryService) GetTransactionByID(ctx context.Context, id uint) (*model.Transaction, error) {
	entry, err := s.transactionRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return entry, nil
}

func (s *inventoryService) publishProduct(action string, p *model.Product, actor Actor, message string) {
	s.notifier.Publish(map[string]interface{}{
		"type":   "stock_update",
		"action": action,
		"product": map[string]interface{}{
			"id":    p.ID,
			"sku":   p.SKU,
			"name":  p.Name,
			"stock": p.Quantity,
			"price": p.SellingPrice,
		},
		"user":    actorPayload(actor),
		"message": message,
	})
}

func actorPayload(a Actor) map[string]interface{} {
	return map[string]interface{}{
		"id":    a.ID,
		"name":  a.Name,
		"email": a.Email,
	}
}
