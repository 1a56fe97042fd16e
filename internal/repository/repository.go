package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/booking-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("repository: duplicate value")
	// ErrOverlap is returned when a BOOKED booking would share nights with
	// another BOOKED booking of the same room.
	ErrOverlap = errors.New("repository: overlapping booking")
	// ErrInUse is returned when a delete targets a row bookings still reference.
	ErrInUse = errors.New("repository: still referenced")
)

// TxFunc runs inside a transaction. Repository calls made with the supplied
// context join that transaction.
type TxFunc func(ctx context.Context) error

// TxManager runs a unit of work atomically. Nested calls reuse the outer
// transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Update writes username, email, password hash and role.
	Update(ctx context.Context, user *domain.User) error
	// Delete fails with ErrInUse while any booking references the user.
	Delete(ctx context.Context, id string) error
}

// RoomRepository defines persistence access for rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Update(ctx context.Context, room *domain.Room) error
	// Delete fails with ErrInUse while any booking references the room.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	CountAvailable(ctx context.Context) (int, error)
	SetAvailability(ctx context.Context, id string, available bool) error
	// LockForUpdate blocks concurrent writers on the given rooms until the
	// surrounding transaction ends. Missing ids yield ErrNotFound.
	LockForUpdate(ctx context.Context, ids ...string) error
}

// BookingRepository defines persistence access for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// GetByIDForUpdate is GetByID that also locks the row for the
	// surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Booking, error)
	// ListUpcoming returns non-cancelled bookings checking in on or after today.
	ListUpcoming(ctx context.Context, today time.Time) ([]domain.Booking, error)
	// ListActive returns BOOKED bookings whose stay includes today.
	ListActive(ctx context.Context, today time.Time) ([]domain.Booking, error)
	// ListExpired returns BOOKED bookings whose check-out is before today.
	ListExpired(ctx context.Context, today time.Time) ([]domain.Booking, error)
	CountActiveByRoom(ctx context.Context, roomID string) (int, error)
}
