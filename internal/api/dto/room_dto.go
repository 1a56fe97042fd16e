package dto

import (
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

// CreateRoomRequest payload.
type CreateRoomRequest struct {
	RoomNumber string   `json:"roomNumber" validate:"required,max=32"`
	Type       string   `json:"type" validate:"required,max=64"`
	Price      *float64 `json:"price" validate:"required,gte=0"`
}

// UpdateRoomRequest payload. The available flag is not editable.
type UpdateRoomRequest struct {
	RoomNumber *string  `json:"roomNumber" validate:"omitempty,min=1,max=32"`
	Type       *string  `json:"type" validate:"omitempty,min=1,max=64"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
}

// RoomResponse response.
type RoomResponse struct {
	ID         string    `json:"id"`
	RoomNumber string    `json:"roomNumber"`
	Type       string    `json:"type"`
	Price      float64   `json:"price"`
	Available  bool      `json:"available"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewRoomResponse maps a room.
func NewRoomResponse(r *domain.Room) RoomResponse {
	return RoomResponse{
		ID:         r.ID,
		RoomNumber: r.RoomNumber,
		Type:       r.Type,
		Price:      r.Price,
		Available:  r.Available,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
