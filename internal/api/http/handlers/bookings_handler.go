package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/service"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

// BookingsHandler exposes the booking lifecycle over HTTP.
type BookingsHandler struct {
	service   *service.BookingService
	validator *dto.Validator
}

// NewBookingsHandler constructs handler.
func NewBookingsHandler(bookingService *service.BookingService, validator *dto.Validator) *BookingsHandler {
	return &BookingsHandler{service: bookingService, validator: validator}
}

// Create POST /api/bookings.
func (h *BookingsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}
	if req.UserID == "" {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewValidationError("validation failed", map[string]any{"userId": "is required"})
		}
		req.UserID = principal.User.ID
	}

	checkIn, checkOut, err := parseRange(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return err
	}
	input := service.BookingCreateInput{
		UserID:       req.UserID,
		RoomID:       req.RoomID,
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
	}
	if req.Status != nil {
		status := domain.BookingStatus(*req.Status)
		input.Status = &status
	}

	detail, err := h.service.CreateBooking(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bookingResponse(detail)})
}

// List GET /api/bookings.
func (h *BookingsHandler) List(c *fiber.Ctx) error {
	return respondList(c)(h.service.ListBookings(c.UserContext()))
}

// Upcoming GET /api/bookings/upcoming.
func (h *BookingsHandler) Upcoming(c *fiber.Ctx) error {
	return respondList(c)(h.service.ListUpcoming(c.UserContext()))
}

// Active GET /api/bookings/active.
func (h *BookingsHandler) Active(c *fiber.Ctx) error {
	return respondList(c)(h.service.ListActive(c.UserContext()))
}

// ByUser GET /api/bookings/user/:userId.
func (h *BookingsHandler) ByUser(c *fiber.Ctx) error {
	return respondList(c)(h.service.ListByUser(c.UserContext(), c.Params("userId")))
}

// ByRoom GET /api/bookings/room/:roomId.
func (h *BookingsHandler) ByRoom(c *fiber.Ctx) error {
	return respondList(c)(h.service.ListByRoom(c.UserContext(), c.Params("roomId")))
}

// Get GET /api/bookings/:id.
func (h *BookingsHandler) Get(c *fiber.Ctx) error {
	detail, err := h.service.GetBooking(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(detail)})
}

// Update PUT /api/bookings/:id.
func (h *BookingsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	input := service.BookingUpdateInput{UserID: req.UserID, RoomID: req.RoomID}
	if req.CheckInDate != nil {
		d, err := parseDateField("checkInDate", *req.CheckInDate)
		if err != nil {
			return err
		}
		input.CheckInDate = &d
	}
	if req.CheckOutDate != nil {
		d, err := parseDateField("checkOutDate", *req.CheckOutDate)
		if err != nil {
			return err
		}
		input.CheckOutDate = &d
	}
	if req.Status != nil {
		status := domain.BookingStatus(*req.Status)
		input.Status = &status
	}

	detail, err := h.service.UpdateBooking(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(detail)})
}

// Delete DELETE /api/bookings/:id.
func (h *BookingsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteBooking(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func respondList(c *fiber.Ctx) func([]service.BookingDetail, error) error {
	return func(details []service.BookingDetail, err error) error {
		if err != nil {
			return err
		}
		items := make([]dto.BookingResponse, 0, len(details))
		for i := range details {
			items = append(items, bookingResponse(&details[i]))
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

func bookingResponse(detail *service.BookingDetail) dto.BookingResponse {
	return dto.NewBookingResponse(detail.Booking, detail.User, detail.Room)
}

func parseRange(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseDateField("checkInDate", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDateField("checkOutDate", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

func parseDateField(field, value string) (time.Time, error) {
	d, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("validation failed", map[string]any{
			field: "must be a date in " + domain.DateLayout + " format",
		})
	}
	return d, nil
}
