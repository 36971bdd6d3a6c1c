package handler

import (
	"strconv"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type InventoryHandler struct {
	service service.InventoryService
	reports service.ReportService
	log     logrus.FieldLogger
}

func NewInventoryHandler(s service.InventoryService, r service.ReportService, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{service: s, reports: r, log: log}
}

// StockRequest is the body of POST /products/:id/stock. IN and OUT carry an
// unsigned quantity; ADJUSTMENT carries a signed one.
type StockRequest struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(c.UserContext(), &req, actorFrom(c))
	if err != nil {
		h.logFailure("CreateProduct", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req service.ProductDetails
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), productID, &req, actorFrom(c))
	if err != nil {
		h.logFailure("UpdateProduct", err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.service.DeleteProduct(c.UserContext(), productID, actorFrom(c)); err != nil {
		h.logFailure("DeleteProduct", err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := h.service.GetProduct(c.UserContext(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// GetProducts lists the catalog. ?category= narrows it to one category.
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	var (
		products []model.Product
		err      error
	)
	if category := c.Query("category"); category != "" {
		products, err = h.service.FindByCategory(c.UserContext(), category)
	} else {
		products, err = h.service.GetAllProducts(c.UserContext())
	}
	if err != nil {
		h.logFailure("GetProducts", err)
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) SearchProducts(c *fiber.Ctx) error {
	products, err := h.service.SearchProducts(c.UserContext(), c.Query("keyword"))
	if err != nil {
		h.logFailure("SearchProducts", err)
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.reports.LowStockProducts(c.UserContext())
	if err != nil {
		h.logFailure("GetLowStock", err)
		return respondError(c, err)
	}
	return c.JSON(products)
}

// ApplyStock records a stock movement for one product.
// POST /api/v1/products/:id/stock
func (h *InventoryHandler) ApplyStock(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req StockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	txType, delta, err := model.ParseMovement(req.Type, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}

	product, entry, err := h.service.ApplyDelta(c.UserContext(), productID, delta, txType, req.Reason, actorFrom(c))
	if err != nil {
		h.logFailure("ApplyStock", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Transaction recorded",
		"product":     product,
		"transaction": entry,
	})
}

func (h *InventoryHandler) GetProductTransactions(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	history, err := h.service.GetProductHistory(c.UserContext(), productID)
	if err != nil {
		h.logFailure("GetProductTransactions", err)
		return respondError(c, err)
	}
	return c.JSON(history)
}

func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	transactions, err := h.service.GetAllTransactions(c.UserContext())
	if err != nil {
		h.logFailure("GetTransactions", err)
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	txID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := h.service.GetTransactionByID(c.UserContext(), uint(txID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}

func (h *InventoryHandler) logFailure(funcName string, err error) {
	if service.IsNotFound(err) || service.IsClientError(err) || service.IsDuplicate(err) {
		return
	}
	h.log.WithFields(logrus.Fields{"module": "handler", "funcName": funcName}).WithError(err).Error("request failed")
}
