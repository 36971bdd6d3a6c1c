package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReportService interface {
	LowStockProducts(ctx context.Context) ([]model.Product, error)
	TotalInventoryValue(ctx context.Context) (decimal.Decimal, error)
	CategoryDistribution(ctx context.Context) (map[string]int64, error)
	GenerateReport(ctx context.Context) (*InventoryReport, error)
	StockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	Reconcile(ctx context.Context) ([]Discrepancy, error)
}

// InventoryReport is the composite report. All of its figures come from one
// product snapshot.
type InventoryReport struct {
	TotalProducts        int              `json:"total_products"`
	TotalInventoryValue  decimal.Decimal  `json:"total_inventory_value"`
	LowStockCount        int              `json:"low_stock_count"`
	LowStockProducts     []model.Product  `json:"low_stock_products"`
	CategoryDistribution map[string]int64 `json:"category_distribution"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// Discrepancy is a product whose quantity differs from the sum of its ledger.
type Discrepancy struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	LedgerSum int64     `json:"ledger_sum"`
}

type reportService struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	db              *gorm.DB
	now             func() time.Time
}

func NewReportService(pRepo repository.ProductRepository, tRepo repository.TransactionRepository, db *gorm.DB) ReportService {
	return &reportService{
		productRepo:     pRepo,
		transactionRepo: tRepo,
		db:              db,
		now:             time.Now,
	}
}

func (s *reportService) LowStockProducts(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindLowStock(ctx)
}

func (s *reportService) TotalInventoryValue(ctx context.Context) (decimal.Decimal, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load products: %w", err)
	}
	return inventoryValue(products), nil
}

func (s *reportService) CategoryDistribution(ctx context.Context) (map[string]int64, error) {
	rows, err := s.productRepo.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	dist := make(map[string]int64, len(rows))
	for _, row := range rows {
		dist[row.Category] = row.Count
	}
	return dist, nil
}

func (s *reportService) GenerateReport(ctx context.Context) (*InventoryReport, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return BuildReport(products, s.now()), nil
}

// BuildReport derives every report figure from the given products.
func BuildReport(products []model.Product, at time.Time) *InventoryReport {
	report := &InventoryReport{
		TotalProducts:        len(products),
		TotalInventoryValue:  inventoryValue(products),
		LowStockProducts:     []model.Product{},
		CategoryDistribution: make(map[string]int64),
		GeneratedAt:          at,
	}
	for _, p := range products {
		if p.IsLowStock() {
			report.LowStockProducts = append(report.LowStockProducts, p)
		}
		report.CategoryDistribution[p.Category]++
	}
	sort.Slice(report.LowStockProducts, func(i, j int) bool {
		return report.LowStockProducts[i].SKU < report.LowStockProducts[j].SKU
	})
	report.LowStockCount = len(report.LowStockProducts)
	return report
}

func inventoryValue(products []model.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.StockValue())
	}
	return total
}

// MaxMovementDays bounds the StockMovement window.
const MaxMovementDays = 366

// StockMovement returns daily inbound and outbound totals for the last days
// days, oldest first. Days without movement are included with zeros. A
// window above MaxMovementDays is clamped to it.
func (s *reportService) StockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	if days > MaxMovementDays {
		days = MaxMovementDays
	}
	endDate := s.now()
	startDay := truncateDay(endDate).AddDate(0, 0, -(days - 1))

	entries, err := s.transactionRepo.FindBetween(ctx, startDay, endDate)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	buckets := make(map[string]*repository.StockMovementData, days)
	result := make([]repository.StockMovementData, days)
	for i := 0; i < days; i++ {
		result[i].Date = startDay.AddDate(0, 0, i).Format("2006-01-02")
		buckets[result[i].Date] = &result[i]
	}

	for _, e := range entries {
		b, ok := buckets[e.CreatedAt.In(endDate.Location()).Format("2006-01-02")]
		if !ok {
			continue
		}
		if e.Delta > 0 {
			b.Inbound += e.Delta
		} else {
			b.Outbound += -e.Delta
		}
	}
	return result, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Reconcile lists live products whose quantity differs from the sum of their
// ledger deltas. Products and sums are read in one transaction.
func (s *reportService) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	var opts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	discrepancies := []Discrepancy{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := s.productRepo.WithTx(tx).FindAll(ctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		sums, err := s.transactionRepo.WithTx(tx).SumDeltasByProduct(ctx)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}

		for _, p := range products {
			if sum := sums[p.ID]; sum != int64(p.Quantity) {
				discrepancies = append(discrepancies, Discrepancy{
					ProductID: p.ID,
					SKU:       p.SKU,
					Quantity:  p.Quantity,
					LedgerSum: sum,
				})
			}
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return discrepancies, nil
}
