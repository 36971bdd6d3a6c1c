package handler

import (
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler mounted under /api/v1.
type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Report    *ReportHandler
	Supplier  *SupplierHandler
	User      *UserHandler
	Role      *RoleHandler
}

// Register mounts the routes on api. requireAuth guards everything except
// login, password reset and token validation.
func (h *Handlers) Register(api fiber.Router, requireAuth fiber.Handler) {
	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/validate-token", h.Auth.ValidateToken)
	auth.Post("/heartbeat", requireAuth, h.Auth.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	// Catalog. Static paths go before /products/:id.
	protected.Get("/products", middleware.RequirePrivilege(model.PrivProductView), h.Inventory.GetProducts)
	protected.Get("/products/low-stock", middleware.RequireAnyPrivilege(model.PrivProductView, model.PrivReportView), h.Inventory.GetLowStock)
	protected.Get("/products/search", middleware.RequirePrivilege(model.PrivProductView), h.Inventory.SearchProducts)
	protected.Get("/products/:id", middleware.RequirePrivilege(model.PrivProductView), h.Inventory.GetProduct)
	protected.Post("/products", middleware.RequirePrivilege(model.PrivProductCreate), h.Inventory.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege(model.PrivProductUpdate), h.Inventory.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege(model.PrivProductDelete), h.Inventory.DeleteProduct)

	// Ledger
	protected.Post("/products/:id/stock", middleware.RequirePrivilege(model.PrivStockApply), h.Inventory.ApplyStock)
	protected.Get("/products/:id/transactions", middleware.RequirePrivilege(model.PrivLedgerView), h.Inventory.GetProductTransactions)
	protected.Get("/transactions", middleware.RequirePrivilege(model.PrivLedgerView), h.Inventory.GetTransactions)
	protected.Get("/transactions/:id", middleware.RequirePrivilege(model.PrivLedgerView), h.Inventory.GetTransaction)

	// Reports
	reports := protected.Group("/reports", middleware.RequirePrivilege(model.PrivReportView))
	reports.Get("/inventory", h.Report.GetInventoryReport)
	reports.Get("/inventory.xlsx", h.Report.ExportInventoryReport)
	reports.Get("/stock-movement", h.Report.GetStockMovement)
	reports.Get("/reconcile", h.Report.Reconcile)

	// Suppliers
	protected.Get("/suppliers", middleware.RequirePrivilege(model.PrivSupplierView), h.Supplier.GetSuppliers)
	protected.Get("/suppliers/:id", middleware.RequirePrivilege(model.PrivSupplierView), h.Supplier.GetSupplier)
	protected.Post("/suppliers", middleware.RequirePrivilege(model.PrivSupplierManage), h.Supplier.CreateSupplier)
	protected.Put("/suppliers/:id", middleware.RequirePrivilege(model.PrivSupplierManage), h.Supplier.UpdateSupplier)
	protected.Delete("/suppliers/:id", middleware.RequirePrivilege(model.PrivSupplierManage), h.Supplier.DeleteSupplier)

	// Users and access control
	protected.Get("/users", middleware.RequirePrivilege(model.PrivUserManage), h.User.GetUsers)
	protected.Get("/users/:id", middleware.RequirePrivilege(model.PrivUserManage), h.User.GetUser)
	protected.Post("/users", middleware.RequirePrivilege(model.PrivUserManage), h.User.CreateUser)
	protected.Put("/users/:id/active", middleware.RequirePrivilege(model.PrivUserManage), h.User.SetUserActive)
	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)
}
