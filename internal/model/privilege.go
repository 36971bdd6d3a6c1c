package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "stock:apply"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Privilege codes checked by the HTTP layer.
const (
	PrivProductView    = "product:view"
	PrivProductCreate  = "product:create"
	PrivProductUpdate  = "product:update"
	PrivProductDelete  = "product:delete"
	PrivStockApply     = "stock:apply"
	PrivLedgerView     = "ledger:view"
	PrivReportView     = "report:view"
	PrivSupplierView   = "supplier:view"
	PrivSupplierManage = "supplier:manage"
	PrivUserManage     = "user:manage"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// Catalog
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	// Stock ledger
	{Code: PrivStockApply, Name: "Apply Stock Movement"},
	{Code: PrivLedgerView, Name: "View Ledger"},
	// Reports
	{Code: PrivReportView, Name: "View Reports"},
	// Suppliers
	{Code: PrivSupplierView, Name: "View Supplier"},
	{Code: PrivSupplierManage, Name: "Manage Supplier"},
	// Operators
	{Code: PrivUserManage, Name: "Manage Users"},
}
