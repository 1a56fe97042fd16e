package domain

import "time"

// Room is a bookable unit. Available is a cache of "no BOOKED booking claims
// this room" and is only written by the booking lifecycle and the sweeper.
type Room struct {
	ID         string
	RoomNumber string
	Type       string
	Price      float64
	Available  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
