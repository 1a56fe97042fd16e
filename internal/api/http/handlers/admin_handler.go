package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/service"
)

// Sweeper runs one expiry pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// AdminHandler exposes operator actions.
type AdminHandler struct {
	sweeper Sweeper
}

// NewAdminHandler constructs handler.
func NewAdminHandler(sweeper Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// Sweep POST /api/admin/sweep.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	ids := result.BookingIDs
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		Date:         domain.FormatDate(result.Today),
		Completed:    result.Completed,
		BookingIDs:   ids,
		RoomsTouched: result.RoomsTouched,
	}})
}
