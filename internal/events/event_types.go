package events

import (
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBookingCreated EventType = "booking_created"
	EventBookingUpdated EventType = "booking_updated"
	EventBookingDeleted EventType = "booking_deleted"
	EventBookingExpired EventType = "booking_expired"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	BookingID string    `json:"booking_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// BookingCreatedPayload payload.
type BookingCreatedPayload struct {
	UserID       string               `json:"user_id"`
	RoomID       string               `json:"room_id"`
	CheckInDate  string               `json:"check_in_date"`
	CheckOutDate string               `json:"check_out_date"`
	Status       domain.BookingStatus `json:"status"`
}

// BookingUpdatedPayload payload. OldRoomID is set only when the room changed.
type BookingUpdatedPayload struct {
	OldStatus domain.BookingStatus `json:"old_status"`
	NewStatus domain.BookingStatus `json:"new_status"`
	OldRoomID string               `json:"old_room_id,omitempty"`
	RoomID    string               `json:"room_id"`
}

// BookingDeletedPayload payload.
type BookingDeletedPayload struct {
	RoomID string               `json:"room_id"`
	Status domain.BookingStatus `json:"status"`
}

// BookingExpiredPayload payload.
type BookingExpiredPayload struct {
	RoomID       string `json:"room_id"`
	CheckOutDate string `json:"check_out_date"`
}
