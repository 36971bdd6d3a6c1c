package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierService interface {
	CreateSupplier(ctx context.Context, req *SupplierRequest, actor Actor) (*model.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	GetAllSuppliers(ctx context.Context) ([]model.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, req *SupplierRequest, actor Actor) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID, actor Actor) error
}

type SupplierRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=32"`
	Address       string `json:"address"`
	ContactPerson string `json:"contact_person" validate:"required,max=255"`
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	db           *gorm.DB
}

func NewSupplierService(sRepo repository.SupplierRepository, pRepo repository.ProductRepository, db *gorm.DB) SupplierService {
	return &supplierService{supplierRepo: sRepo, productRepo: pRepo, db: db}
}

func (s *supplierService) CreateSupplier(ctx context.Context, req *SupplierRequest, actor Actor) (*model.Supplier, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, err
	}

	email := req.Email
	if err := s.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}

	supplier := &model.Supplier{
		Name:          req.Name,
		Email:         email,
		Phone:         req.Phone,
		Address:       req.Address,
		ContactPerson: req.ContactPerson,
	}
	supplier.CreatedBy = actor.String()
	supplier.UpdatedBy = actor.String()

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSupplierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) GetAllSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.supplierRepo.FindAll(ctx)
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id uuid.UUID, req *SupplierRequest, actor Actor) (*model.Supplier, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, err
	}

	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}

	email := req.Email
	if email != supplier.Email {
		if err := s.checkEmailFree(ctx, email); err != nil {
			return nil, err
		}
	}

	supplier.Name = req.Name
	supplier.Email = email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.ContactPerson = req.ContactPerson
	supplier.UpdatedBy = actor.String()

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	return supplier, nil
}

// DeleteSupplier clears the supplier from every product and removes it, in one
// transaction.
func (s *supplierService) DeleteSupplier(ctx context.Context, id uuid.UUID, actor Actor) error {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.productRepo.WithTx(tx).DetachSupplier(ctx, id, actor.String()); err != nil {
			return fmt.Errorf("detach products: %w", err)
		}
		var err error
		deleted, err = s.supplierRepo.WithTx(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if !deleted {
		return ErrSupplierNotFound
	}
	return nil
}

// checkEmailFree returns ErrDuplicateEmail when another supplier owns email.
func (s *supplierService) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.supplierRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("look up supplier email: %w", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
