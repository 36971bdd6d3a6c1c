package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Quantity is owned by the stock ledger: it only
// changes through InventoryService.ApplyDelta, never through a field update.
type Product struct {
	BaseModel
	SKU           string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      string          `gorm:"type:varchar(100);not null;index" json:"category"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"selling_price"`
	Quantity      int             `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`
	MinStockLevel int             `gorm:"not null;default:0" json:"min_stock_level"`
	MaxStockLevel int             `gorm:"not null;default:0" json:"max_stock_level"`
	Location      string          `gorm:"type:varchar(255);not null" json:"location"`
	SupplierID    *uuid.UUID      `gorm:"type:uuid;index" json:"supplier_id,omitempty"`

	// Version is bumped on every quantity change and guards against lost updates.
	Version int `gorm:"not null;default:1" json:"version"`
}

// IsLowStock reports whether the product is at or below its reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.MinStockLevel
}

// StockValue is quantity times purchase price.
func (p *Product) StockValue() decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
