package handler

import (
	"bytes"
	"fmt"
	"strconv"

	"go-stock-ledger/internal/export"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ReportHandler struct {
	service service.ReportService
	log     logrus.FieldLogger
}

func NewReportHandler(s service.ReportService, log logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{service: s, log: log}
}

// GetInventoryReport returns the composite inventory report
// GET /api/v1/reports/inventory
func (h *ReportHandler) GetInventoryReport(c *fiber.Ctx) error {
	report, err := h.service.GenerateReport(c.UserContext())
	if err != nil {
		h.log.WithError(err).Error("generate inventory report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}
	return c.JSON(report)
}

// ExportInventoryReport returns the same report as an xlsx workbook
// GET /api/v1/reports/inventory.xlsx
func (h *ReportHandler) ExportInventoryReport(c *fiber.Ctx) error {
	report, err := h.service.GenerateReport(c.UserContext())
	if err != nil {
		h.log.WithError(err).Error("generate inventory report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}

	var buf bytes.Buffer
	if err := export.WriteInventoryReport(&buf, report); err != nil {
		h.log.WithError(err).Error("write inventory workbook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write file"})
	}

	c.Set(fiber.HeaderContentType, export.ContentTypeXLSX)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=inventory-%s.xlsx", report.GeneratedAt.Format("20060102-150405")))
	return c.Send(buf.Bytes())
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *ReportHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}
	if days > service.MaxMovementDays {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("days must be at most %d", service.MaxMovementDays),
		})
	}

	data, err := h.service.StockMovement(c.UserContext(), days)
	if err != nil {
		h.log.WithError(err).Error("stock movement")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stock movement"})
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// Reconcile lists products whose quantity disagrees with their ledger
// GET /api/v1/reports/reconcile
func (h *ReportHandler) Reconcile(c *fiber.Ctx) error {
	discrepancies, err := h.service.Reconcile(c.UserContext())
	if err != nil {
		h.log.WithError(err).Error("reconcile ledger")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reconcile"})
	}
	return c.JSON(fiber.Map{
		"consistent":    len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}
