package repository

import (
	"context"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository is the append-only ledger store. There is no Update
// or Delete: corrections are new ADJUSTMENT entries.
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository

	Append(ctx context.Context, entry *model.Transaction) error
	FindAll(ctx context.Context) ([]model.Transaction, error)
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	FindBetween(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	SumDeltasByProduct(ctx context.Context) (map[uuid.UUID]int64, error)
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepo{tx}
}

func (r *transactionRepo) Append(ctx context.Context, entry *model.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).Order("id DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(ctx context.Context, id uint) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

// FindByProduct returns the history of one product, oldest first.
func (r *transactionRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

func (r *transactionRepo) FindBetween(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Order("created_at ASC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) SumDeltasByProduct(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("product_id, COALESCE(SUM(delta), 0) as total").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Total
	}
	return sums, nil
}
