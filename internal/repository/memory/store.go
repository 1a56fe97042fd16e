// Package memory provides an in-process implementation of the repository
// contracts. Transactions are serialized and stage their writes on a private
// copy of the data that replaces the committed copy only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
)

type state struct {
	users    map[string]domain.User
	rooms    map[string]domain.Room
	bookings map[string]domain.Booking
}

func newState() *state {
	return &state{
		users:    map[string]domain.User{},
		rooms:    map[string]domain.Room{},
		bookings: map[string]domain.Booking{},
	}
}

func (s *state) clone() *state {
	out := &state{
		users:    make(map[string]domain.User, len(s.users)),
		rooms:    make(map[string]domain.Room, len(s.rooms)),
		bookings: make(map[string]domain.Booking, len(s.bookings)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.rooms {
		out.rooms[k] = v
	}
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	return out
}

type txKey struct {
	store *Store
}

// Store holds users, rooms and bookings in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

// WithinTx implements repository.TxManager.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if _, ok := ctx.Value(txKey{s}).(*state); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{s}, staged)); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = staged
	s.mu.Unlock()
	return nil
}

// read runs f against the transaction's staged copy, or the committed data.
func (s *Store) read(ctx context.Context, f func(*state) error) error {
	if st, ok := ctx.Value(txKey{s}).(*state); ok {
		return f(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f(s.data)
}

// write runs f inside the caller's transaction, or a fresh one.
func (s *Store) write(ctx context.Context, f func(*state) error) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		return f(ctx.Value(txKey{s}).(*state))
	})
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Rooms returns the room repository view of the store.
func (s *Store) Rooms() repository.RoomRepository { return roomRepo{s} }

// Bookings returns the booking repository view of the store.
func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username || u.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now().UTC()
		user.ID = uuid.NewString()
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Username == username })
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r userRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.s.read(ctx, func(st *state) error {
		for _, u := range st.users {
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, err
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, u := range st.users {
			if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
				return repository.ErrDuplicate
			}
		}
		current.Username = user.Username
		current.Email = user.Email
		current.PasswordHash = user.PasswordHash
		current.Role = user.Role
		current.UpdatedAt = r.s.now().UTC()
		st.users[user.ID] = current
		user.UpdatedAt = current.UpdatedAt
		return nil
	})
}

// Delete mirrors the bookings.user_id foreign key.
func (r userRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range st.bookings {
			if b.UserID == id {
				return repository.ErrInUse
			}
		}
		delete(st.users, id)
		return nil
	})
}

func (r userRepo) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	err := r.s.read(ctx, func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

type roomRepo struct{ s *Store }

func (r roomRepo) Create(ctx context.Context, room *domain.Room) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.rooms {
			if existing.RoomNumber == room.RoomNumber {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now().UTC()
		room.ID = uuid.NewString()
		room.CreatedAt, room.UpdatedAt = now, now
		st.rooms[room.ID] = *room
		return nil
	})
}

func (r roomRepo) Update(ctx context.Context, room *domain.Room) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.rooms[room.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, existing := range st.rooms {
			if id != room.ID && existing.RoomNumber == room.RoomNumber {
				return repository.ErrDuplicate
			}
		}
		current.RoomNumber = room.RoomNumber
		current.Type = room.Type
		current.Price = room.Price
		current.UpdatedAt = r.s.now().UTC()
		st.rooms[room.ID] = current
		room.UpdatedAt = current.UpdatedAt
		return nil
	})
}

// Delete mirrors the bookings.room_id foreign key.
func (r roomRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.rooms[id]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range st.bookings {
			if b.RoomID == id {
				return repository.ErrInUse
			}
		}
		delete(st.rooms, id)
		return nil
	})
}

func (r roomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var found *domain.Room
	err := r.s.read(ctx, func(st *state) error {
		room, ok := st.rooms[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &room
		return nil
	})
	return found, err
}

func (r roomRepo) List(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.s.read(ctx, func(st *state) error {
		for _, room := range st.rooms {
			rooms = append(rooms, room)
		}
		return nil
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, err
}

func (r roomRepo) CountAvailable(ctx context.Context) (int, error) {
	count := 0
	err := r.s.read(ctx, func(st *state) error {
		for _, room := range st.rooms {
			if room.Available {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r roomRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.s.write(ctx, func(st *state) error {
		room, ok := st.rooms[id]
		if !ok || room.Available == available {
			return nil
		}
		room.Available = available
		room.UpdatedAt = r.s.now().UTC()
		st.rooms[id] = room
		return nil
	})
}

// LockForUpdate only checks existence; transactions are already serialized.
func (r roomRepo) LockForUpdate(ctx context.Context, ids ...string) error {
	return r.s.read(ctx, func(st *state) error {
		for _, id := range ids {
			if _, ok := st.rooms[id]; !ok {
				return repository.ErrNotFound
			}
		}
		return nil
	})
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return r.s.write(ctx, func(st *state) error {
		if err := checkOverlap(st, *booking); err != nil {
			return err
		}
		now := r.s.now().UTC()
		booking.ID = uuid.NewString()
		booking.CreatedAt, booking.UpdatedAt = now, now
		st.bookings[booking.ID] = *booking
		return nil
	})
}

func (r bookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.bookings[booking.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkOverlap(st, *booking); err != nil {
			return err
		}
		booking.CreatedAt = current.CreatedAt
		booking.UpdatedAt = r.s.now().UTC()
		st.bookings[booking.ID] = *booking
		return nil
	})
}

func (r bookingRepo) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.bookings[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.bookings, id)
		return nil
	})
}

func (r bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var found *domain.Booking
	err := r.s.read(ctx, func(st *state) error {
		booking, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &booking
		return nil
	})
	return found, err
}

// GetByIDForUpdate needs no row lock; transactions are already serialized.
func (r bookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r bookingRepo) List(ctx context.Context) ([]domain.Booking, error) {
	bookings, err := r.filter(ctx, func(domain.Booking) bool { return true })
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
	return bookings, err
}

func (r bookingRepo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool { return b.UserID == userID })
}

func (r bookingRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool { return b.RoomID == roomID })
}

func (r bookingRepo) ListUpcoming(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool {
		return !b.CheckInDate.Before(today) && b.Status != domain.BookingStatusCancelled
	})
}

func (r bookingRepo) ListActive(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool {
		return b.IsActive() && !b.CheckInDate.After(today) && !b.CheckOutDate.Before(today)
	})
}

func (r bookingRepo) ListExpired(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool {
		return b.IsActive() && b.CheckOutDate.Before(today)
	})
}

func (r bookingRepo) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	bookings, err := r.filter(ctx, func(b domain.Booking) bool { return b.RoomID == roomID && b.IsActive() })
	return len(bookings), err
}

// filter returns matching bookings ordered by check-in date, then id.
func (r bookingRepo) filter(ctx context.Context, match func(domain.Booking) bool) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bookings {
			if match(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInDate.Equal(out[j].CheckInDate) {
			return out[i].CheckInDate.Before(out[j].CheckInDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// checkOverlap mirrors the bookings exclusion constraint.
func checkOverlap(st *state, candidate domain.Booking) error {
	if !candidate.IsActive() {
		return nil
	}
	for id, other := range st.bookings {
		if id == candidate.ID || other.RoomID != candidate.RoomID || !other.IsActive() {
			continue
		}
		if other.Overlaps(candidate.CheckInDate, candidate.CheckOutDate) {
			return repository.ErrOverlap
		}
	}
	return nil
}
