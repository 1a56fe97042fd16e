package dto

import (
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

// CreateBookingRequest payload. UserID defaults to the caller.
type CreateBookingRequest struct {
	UserID       string  `json:"userId"`
	RoomID       string  `json:"roomId" validate:"required"`
	CheckInDate  string  `json:"checkInDate" validate:"required,date"`
	CheckOutDate string  `json:"checkOutDate" validate:"required,date"`
	Status       *string `json:"status" validate:"omitempty,booking_status"`
}

// UpdateBookingRequest payload. Omitted fields are left unchanged.
type UpdateBookingRequest struct {
	UserID       *string `json:"userId" validate:"omitempty,min=1"`
	RoomID       *string `json:"roomId" validate:"omitempty,min=1"`
	CheckInDate  *string `json:"checkInDate" validate:"omitempty,date"`
	CheckOutDate *string `json:"checkOutDate" validate:"omitempty,date"`
	Status       *string `json:"status" validate:"omitempty,booking_status"`
}

// BookingResponse is a booking with its user and room embedded.
type BookingResponse struct {
	ID           string               `json:"id"`
	UserID       string               `json:"userId"`
	RoomID       string               `json:"roomId"`
	CheckInDate  string               `json:"checkInDate"`
	CheckOutDate string               `json:"checkOutDate"`
	Status       domain.BookingStatus `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	User         *UserResponse        `json:"user,omitempty"`
	Room         *RoomResponse        `json:"room,omitempty"`
}

// NewBookingResponse maps a booking and its resolved relations.
func NewBookingResponse(b domain.Booking, user *domain.User, room *domain.Room) BookingResponse {
	resp := BookingResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		RoomID:       b.RoomID,
		CheckInDate:  domain.FormatDate(b.CheckInDate),
		CheckOutDate: domain.FormatDate(b.CheckOutDate),
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if user != nil {
		u := NewUserResponse(user)
		resp.User = &u
	}
	if room != nil {
		r := NewRoomResponse(room)
		resp.Room = &r
	}
	return resp
}

// SweepResponse reports a manual sweep.
type SweepResponse struct {
	Date         string   `json:"date"`
	Completed    int      `json:"completed"`
	BookingIDs   []string `json:"bookingIds"`
	RoomsTouched int      `json:"roomsTouched"`
}
