// Package availability decides whether a room is free for a date range.
// Only BOOKED bookings constrain a room; the room's cached available flag is
// never consulted.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
)

// FindConflict returns the first booking that blocks [checkIn, checkOut), or
// nil. The booking with id excludeID is ignored so an update does not clash
// with itself.
func FindConflict(bookings []domain.Booking, checkIn, checkOut time.Time, excludeID string) *domain.Booking {
	for i := range bookings {
		b := &bookings[i]
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if !b.IsActive() {
			continue
		}
		if b.Overlaps(checkIn, checkOut) {
			return b
		}
	}
	return nil
}

// Checker answers availability questions from the booking store.
type Checker struct {
	bookings repository.BookingRepository
}

// NewChecker builds a Checker over bookings.
func NewChecker(bookings repository.BookingRepository) *Checker {
	return &Checker{bookings: bookings}
}

// IsAvailable reports whether roomID has no active booking overlapping
// [checkIn, checkOut), ignoring excludeID. Callers validate the range first.
func (c *Checker) IsAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (bool, error) {
	conflict, err := c.Conflict(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// Conflict is IsAvailable that also reports which booking is in the way.
func (c *Checker) Conflict(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (*domain.Booking, error) {
	bookings, err := c.bookings.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for room %s: %w", roomID, err)
	}
	return FindConflict(bookings, checkIn, checkOut, excludeID), nil
}
