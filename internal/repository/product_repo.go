package repository

import (
	"context"
	"strings"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	// WithTx returns a repository bound to tx so several writes share one
	// database transaction.
	WithTx(tx *gorm.DB) ProductRepository

	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindByCategory(ctx context.Context, category string) ([]model.Product, error)
	SearchByName(ctx context.Context, keyword string) ([]model.Product, error)
	FindLowStock(ctx context.Context) ([]model.Product, error)
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
	UpdateDetails(ctx context.Context, product *model.Product) error
	UpdateQuantity(ctx context.Context, id uuid.UUID, expectedVersion, newQuantity int, updatedBy string, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) (bool, error)
	DetachSupplier(ctx context.Context, supplierID uuid.UUID, updatedBy string) (int64, error)
}

// CategoryCount is one row of the category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{tx}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("sku ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate takes a row lock on databases that support it. Only
// meaningful inside a transaction.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU also sees soft-deleted products: their SKUs stay reserved.
func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Unscoped().First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByCategory(ctx context.Context, category string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("category = ?", category).Order("sku ASC").Find(&products).Error
	return products, err
}

// SearchByName matches keyword as a literal, case-insensitive substring.
func (r *productRepo) SearchByName(ctx context.Context, keyword string) ([]model.Product, error) {
	var products []model.Product
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(keyword))) + "%"
	err := r.db.WithContext(ctx).Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).Order("sku ASC").Find(&products).Error
	return products, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *productRepo) FindLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("quantity <= min_stock_level").Order("sku ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}

// UpdateDetails writes descriptive fields only. SKU, quantity and version are
// not in the column list.
func (r *productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Model(product).
		Select("name", "description", "category", "purchase_price", "selling_price",
			"min_stock_level", "max_stock_level", "location", "supplier_id", "updated_by", "updated_at").
		Updates(product).Error
}

// UpdateQuantity is a compare-and-set on the version column. It returns false
// when the row changed since expectedVersion was read.
func (r *productRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, expectedVersion, newQuantity int, updatedBy string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":   newQuantity,
			"version":    gorm.Expr("version + 1"),
			"updated_by": updatedBy,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
		return false, err
	}
	res := db.Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) DetachSupplier(ctx context.Context, supplierID uuid.UUID, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("supplier_id = ?", supplierID).
		Updates(map[string]interface{}{
			"supplier_id": nil,
			"updated_by":  updatedBy,
		})
	return res.RowsAffected, res.Error
}
