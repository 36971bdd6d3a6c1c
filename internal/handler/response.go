package handler

import (
	"errors"

	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// actorFrom builds the actor recorded on ledger entries from the JWT locals.
func actorFrom(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		actor.ID = v
	}
	if v, ok := c.Locals(middleware.LocalUserName).(string); ok {
		actor.Name = v
	}
	if v, ok := c.Locals(middleware.LocalUserEmail).(string); ok {
		actor.Email = v
	}
	if actor.ID == "" && actor.Email == "" {
		return service.SystemActor
	}
	return actor
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
	}

	var insufficient *service.InsufficientStockError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    err.Error(),
			"on_hand":  insufficient.OnHand,
			"delta":    insufficient.Delta,
			"shortage": -(insufficient.OnHand + insufficient.Delta),
		})
	}

	switch {
	case service.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case service.IsRetryable(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "retryable": true})
	case service.IsDuplicate(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case service.IsClientError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}
