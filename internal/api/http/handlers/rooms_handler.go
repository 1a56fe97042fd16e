package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/service"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

// RoomsHandler manages room endpoints.
type RoomsHandler struct {
	rooms     *service.RoomService
	bookings  *service.BookingService
	validator *dto.Validator
}

// NewRoomsHandler constructs handler.
func NewRoomsHandler(rooms *service.RoomService, bookings *service.BookingService, validator *dto.Validator) *RoomsHandler {
	return &RoomsHandler{rooms: rooms, bookings: bookings, validator: validator}
}

// List GET /api/rooms.
func (h *RoomsHandler) List(c *fiber.Ctx) error {
	rooms, err := h.rooms.ListRooms(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		items = append(items, dto.NewRoomResponse(&rooms[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/rooms/:id.
func (h *RoomsHandler) Get(c *fiber.Ctx) error {
	room, err := h.rooms.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRoomResponse(room)})
}

// AvailableCount GET /api/rooms/available/count.
func (h *RoomsHandler) AvailableCount(c *fiber.Ctx) error {
	count, err := h.bookings.CountAvailableRooms(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

// Create POST /api/rooms.
func (h *RoomsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	room, err := h.rooms.CreateRoom(c.UserContext(), service.RoomCreateInput{
		RoomNumber: req.RoomNumber,
		Type:       req.Type,
		Price:      *req.Price,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRoomResponse(room)})
}

// Delete DELETE /api/rooms/:id.
func (h *RoomsHandler) Delete(c *fiber.Ctx) error {
	if err := h.rooms.DeleteRoom(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Update PUT /api/rooms/:id.
func (h *RoomsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	room, err := h.rooms.UpdateRoom(c.UserContext(), c.Params("id"), service.RoomUpdateInput{
		RoomNumber: req.RoomNumber,
		Type:       req.Type,
		Price:      req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRoomResponse(room)})
}
