package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/booking-service/internal/domain"
)

type bookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository returns a Postgres-backed implementation.
func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingColumns = `id, user_id, room_id, check_in_date, check_out_date, status, created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	const query = `
        INSERT INTO bookings (user_id, room_id, check_in_date, check_out_date, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		booking.UserID,
		booking.RoomID,
		booking.CheckInDate,
		booking.CheckOutDate,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	return mapPgError(err)
}

func (r *bookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	const query = `
        UPDATE bookings SET user_id=$1, room_id=$2, check_in_date=$3, check_out_date=$4, status=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		booking.UserID,
		booking.RoomID,
		booking.CheckInDate,
		booking.CheckOutDate,
		booking.Status,
		booking.ID,
	).Scan(&booking.UpdatedAt)
	return mapPgError(err)
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return booking, nil
}

func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1 FOR UPDATE`

	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return booking, nil
}

func (r *bookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at, id`)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY check_in_date, id`, userID)
}

func (r *bookingRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE room_id=$1 ORDER BY check_in_date, id`, roomID)
}

func (r *bookingRepository) ListUpcoming(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
        WHERE check_in_date >= $1 AND status <> 'CANCELLED'
        ORDER BY check_in_date, id`
	return r.list(ctx, query, today)
}

func (r *bookingRepository) ListActive(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
        WHERE check_in_date <= $1 AND check_out_date >= $1 AND status = 'BOOKED'
        ORDER BY check_in_date, id`
	return r.list(ctx, query, today)
}

func (r *bookingRepository) ListExpired(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
        WHERE check_out_date < $1 AND status = 'BOOKED'
        ORDER BY room_id, id
        FOR UPDATE`
	return r.list(ctx, query, today)
}

func (r *bookingRepository) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE room_id=$1 AND status='BOOKED'`

	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, roomID).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, mapPgError(rows.Err())
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	if err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.RoomID,
		&booking.CheckInDate,
		&booking.CheckOutDate,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &booking, nil
}
