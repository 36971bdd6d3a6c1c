package repository

import (
	"go-stock-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Privilege{},
		&model.Role{},
		&model.User{},
		&model.Supplier{},
		&model.Product{},
		&model.Transaction{},
	)
}
