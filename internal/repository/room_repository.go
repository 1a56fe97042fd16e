package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/booking-service/internal/domain"
)

type roomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository returns a Postgres-backed implementation.
func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

const roomColumns = `id, room_number, type, price, available, created_at, updated_at`

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	const query = `
        INSERT INTO rooms (room_number, type, price, available)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		room.RoomNumber,
		room.Type,
		room.Price,
		room.Available,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	return mapPgError(err)
}

// Update writes the descriptive columns. The available flag has its own path.
func (r *roomRepository) Update(ctx context.Context, room *domain.Room) error {
	const query = `
        UPDATE rooms SET room_number=$1, type=$2, price=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		room.RoomNumber,
		room.Type,
		room.Price,
		room.ID,
	).Scan(&room.UpdatedAt)
	return mapPgError(err)
}

// Delete relies on the bookings.room_id foreign key to refuse referenced rooms.
func (r *roomRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM rooms WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id=$1`

	room, err := scanRoom(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return room, nil
}

func (r *roomRepository) List(ctx context.Context) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY room_number`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, mapPgError(rows.Err())
}

func (r *roomRepository) CountAvailable(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM rooms WHERE available`

	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}

func (r *roomRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	const query = `UPDATE rooms SET available=$1, updated_at=NOW() WHERE id=$2 AND available IS DISTINCT FROM $1`

	if _, err := conn(ctx, r.pool).Exec(ctx, query, available, id); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *roomRepository) LockForUpdate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	const query = `SELECT id FROM rooms WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ordered)
	if err != nil {
		return mapPgError(err)
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return mapPgError(err)
	}
	if len(locked) != len(ordered) {
		return fmt.Errorf("%w: locked %d of %d rooms", ErrNotFound, len(locked), len(ordered))
	}
	return nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	if err := row.Scan(
		&room.ID,
		&room.RoomNumber,
		&room.Type,
		&room.Price,
		&room.Available,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &room, nil
}
