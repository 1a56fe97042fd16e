package domain

import "time"

// BookingStatus enumerates lifecycle states for bookings.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Valid reports whether s is one of the three status literals.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same state is always allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	return s == BookingStatusBooked && next.IsTerminal()
}

// Booking reserves one room for one user over [CheckInDate, CheckOutDate).
type Booking struct {
	ID           string
	UserID       string
	RoomID       string
	CheckInDate  time.Time
	CheckOutDate time.Time
	Status       BookingStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the booking still claims its room.
func (b Booking) IsActive() bool {
	return b.Status == BookingStatusBooked
}

// Overlaps reports whether the booking's stay intersects [checkIn, checkOut).
// Touching ranges do not overlap.
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return RangesOverlap(b.CheckInDate, b.CheckOutDate, checkIn, checkOut)
}
