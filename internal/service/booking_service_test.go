package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/repository/memory"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

type fixture struct {
	store    *memory.Store
	bookings *BookingService
	expiry   *ExpiryService
	now      time.Time
	user     *domain.User
	roomA    *domain.Room
	roomB    *domain.Room
	events   *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:  memory.NewStore(),
		now:    time.Date(2023, 12, 15, 10, 0, 0, 0, time.UTC),
		events: &eventLog{},
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventBookingCreated, events.EventBookingUpdated, events.EventBookingDeleted, events.EventBookingExpired} {
		dispatcher.Subscribe(et, f.events.record)
	}

	deps := BookingDependencies{
		TxManager:   f.store,
		BookingRepo: f.store.Bookings(),
		RoomRepo:    f.store.Rooms(),
		UserRepo:    f.store.Users(),
		Dispatcher:  dispatcher,
		Metrics:     observability.NewMetrics(),
		Clock:       func() time.Time { return f.now },
	}
	f.bookings = NewBookingService(deps)
	f.expiry = NewExpiryService(deps)

	f.user = &domain.User{Username: "guest", Email: "guest@example.com", Role: domain.UserRoleUser}
	require.NoError(t, f.store.Users().Create(ctx, f.user))
	f.roomA = &domain.Room{RoomNumber: "101", Type: "double", Price: 120, Available: true}
	require.NoError(t, f.store.Rooms().Create(ctx, f.roomA))
	f.roomB = &domain.Room{RoomNumber: "102", Type: "suite", Price: 250, Available: true}
	require.NoError(t, f.store.Rooms().Create(ctx, f.roomB))
	return f
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) create(t *testing.T, roomID, in, out string) *BookingDetail {
	t.Helper()
	detail, err := f.bookings.CreateBooking(context.Background(), BookingCreateInput{
		UserID:       f.user.ID,
		RoomID:       roomID,
		CheckInDate:  day(t, in),
		CheckOutDate: day(t, out),
	})
	require.NoError(t, err)
	return detail
}

func (f *fixture) room(t *testing.T, id string) *domain.Room {
	t.Helper()
	room, err := f.store.Rooms().GetByID(context.Background(), id)
	require.NoError(t, err)
	return room
}

func (f *fixture) booking(t *testing.T, id string) *domain.Booking {
	t.Helper()
	b, err := f.store.Bookings().GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t)

	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	assert.NotEmpty(t, detail.Booking.ID)
	assert.Equal(t, domain.BookingStatusBooked, detail.Booking.Status)
	require.NotNil(t, detail.User)
	assert.Equal(t, f.user.ID, detail.User.ID)
	require.NotNil(t, detail.Room)
	assert.False(t, detail.Room.Available)
	assert.False(t, f.room(t, f.roomA.ID).Available)
	assert.Equal(t, []events.EventType{events.EventBookingCreated}, f.events.types())
}

func TestCreateBooking_Errors(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	tests := []struct {
		name    string
		userID  string
		roomID  string
		in, out string
		status  *domain.BookingStatus
		code    string
	}{
		{"missing user", "nope", f.roomA.ID, "2024-02-01", "2024-02-02", nil, apperrors.CodeNotFound},
		{"missing room", f.user.ID, "nope", "2024-02-01", "2024-02-02", nil, apperrors.CodeNotFound},
		{"same day", f.user.ID, f.roomA.ID, "2024-02-01", "2024-02-01", nil, apperrors.CodeInvalidRange},
		{"inverted", f.user.ID, f.roomA.ID, "2024-02-05", "2024-02-01", nil, apperrors.CodeInvalidRange},
		{"past check-in", f.user.ID, f.roomB.ID, "2023-12-14", "2023-12-20", nil, apperrors.CodePastDate},
		{"overlap", f.user.ID, f.roomA.ID, "2024-01-04", "2024-01-06", nil, apperrors.CodeConflict},
		{"contained", f.user.ID, f.roomA.ID, "2024-01-02", "2024-01-03", nil, apperrors.CodeConflict},
		{"unknown status", f.user.ID, f.roomB.ID, "2024-02-01", "2024-02-02", ptr(domain.BookingStatus("PENDING")), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(context.Background(), BookingCreateInput{
				UserID:       tt.userID,
				RoomID:       tt.roomID,
				CheckInDate:  day(t, tt.in),
				CheckOutDate: day(t, tt.out),
				Status:       tt.status,
			})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	all, err := f.store.Bookings().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, f.room(t, f.roomB.ID).Available)
}

func TestCreateBooking_TodayIsNotPast(t *testing.T) {
	f := newFixture(t)
	detail := f.create(t, f.roomA.ID, "2023-12-15", "2023-12-16")
	assert.Equal(t, day(t, "2023-12-15"), detail.Booking.CheckInDate)
}

func TestCreateBooking_TouchingRangesSucceed(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	detail := f.create(t, f.roomA.ID, "2024-01-05", "2024-01-08")
	assert.Equal(t, domain.BookingStatusBooked, detail.Booking.Status)

	earlier := f.create(t, f.roomA.ID, "2023-12-28", "2024-01-01")
	assert.NotEmpty(t, earlier.Booking.ID)
}

func TestCreateBooking_PermissiveInitialStatus(t *testing.T) {
	f := newFixture(t)

	detail, err := f.bookings.CreateBooking(context.Background(), BookingCreateInput{
		UserID:       f.user.ID,
		RoomID:       f.roomA.ID,
		CheckInDate:  day(t, "2024-01-01"),
		CheckOutDate: day(t, "2024-01-05"),
		Status:       ptr(domain.BookingStatusCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, detail.Booking.Status)
	// a cancelled booking does not claim the room
	assert.True(t, f.room(t, f.roomA.ID).Available)

	f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")
}

func TestCreateBooking_TerminalStatusLeavesRoomAvailable(t *testing.T) {
	for _, status := range []domain.BookingStatus{domain.BookingStatusCancelled, domain.BookingStatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)

			detail, err := f.bookings.CreateBooking(context.Background(), BookingCreateInput{
				UserID:       f.user.ID,
				RoomID:       f.roomB.ID,
				CheckInDate:  day(t, "2024-01-01"),
				CheckOutDate: day(t, "2024-01-03"),
				Status:       ptr(status),
			})
			require.NoError(t, err)
			assert.Equal(t, status, detail.Booking.Status)
			assert.True(t, detail.Room.Available)
			assert.True(t, f.room(t, f.roomB.ID).Available)
		})
	}
}

func TestDeleteBooking_ReleasesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")
	require.False(t, f.room(t, f.roomA.ID).Available)

	require.NoError(t, f.bookings.DeleteBooking(ctx, detail.Booking.ID))

	assert.True(t, f.room(t, f.roomA.ID).Available)
	_, err := f.bookings.GetBooking(ctx, detail.Booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	err = f.bookings.DeleteBooking(ctx, detail.Booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, []events.EventType{events.EventBookingCreated, events.EventBookingDeleted}, f.events.types())
}

func TestDeleteBooking_KeepsRoomClaimedByOtherBooking(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")
	f.create(t, f.roomA.ID, "2024-02-01", "2024-02-05")

	require.NoError(t, f.bookings.DeleteBooking(context.Background(), first.Booking.ID))

	assert.False(t, f.room(t, f.roomA.ID).Available)
}

func TestUpdateBooking_MoveRoom(t *testing.T) {
	f := newFixture(t)
	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	updated, err := f.bookings.UpdateBooking(context.Background(), detail.Booking.ID, BookingUpdateInput{
		RoomID: ptr(f.roomB.ID),
	})
	require.NoError(t, err)

	assert.Equal(t, f.roomB.ID, updated.Booking.RoomID)
	assert.Equal(t, f.roomB.ID, updated.Room.ID)
	assert.True(t, f.room(t, f.roomA.ID).Available)
	assert.False(t, f.room(t, f.roomB.ID).Available)
}

func TestUpdateBooking_CancelFreesRoomKeepsDates(t *testing.T) {
	f := newFixture(t)
	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	updated, err := f.bookings.UpdateBooking(context.Background(), detail.Booking.ID, BookingUpdateInput{
		Status: ptr(domain.BookingStatusCancelled),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, updated.Booking.Status)
	assert.Equal(t, day(t, "2024-01-01"), updated.Booking.CheckInDate)
	assert.Equal(t, day(t, "2024-01-05"), updated.Booking.CheckOutDate)
	assert.True(t, f.room(t, f.roomA.ID).Available)

	// the freed nights can be booked again
	f.create(t, f.roomA.ID, "2024-01-02", "2024-01-04")
}

func TestUpdateBooking_DatesExcludeSelf(t *testing.T) {
	f := newFixture(t)
	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	updated, err := f.bookings.UpdateBooking(context.Background(), detail.Booking.ID, BookingUpdateInput{
		CheckOutDate: ptr(day(t, "2024-01-07")),
	})
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-01-07"), updated.Booking.CheckOutDate)
	assert.Equal(t, day(t, "2024-01-01"), updated.Booking.CheckInDate)
}

func TestUpdateBooking_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")
	f.create(t, f.roomB.ID, "2024-01-03", "2024-01-06")

	tests := []struct {
		name  string
		id    string
		input BookingUpdateInput
		code  string
	}{
		{"missing booking", "nope", BookingUpdateInput{}, apperrors.CodeNotFound},
		{"missing room", target.Booking.ID, BookingUpdateInput{RoomID: ptr("nope")}, apperrors.CodeNotFound},
		{"missing user", target.Booking.ID, BookingUpdateInput{UserID: ptr("nope")}, apperrors.CodeNotFound},
		{"inverted dates", target.Booking.ID, BookingUpdateInput{CheckInDate: ptr(day(t, "2024-01-06"))}, apperrors.CodeInvalidRange},
		{"conflict on new room", target.Booking.ID, BookingUpdateInput{RoomID: ptr(f.roomB.ID)}, apperrors.CodeConflict},
		{"unknown status", target.Booking.ID, BookingUpdateInput{Status: ptr(domain.BookingStatus("LOST"))}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.UpdateBooking(ctx, tt.id, tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	// nothing moved
	b := f.booking(t, target.Booking.ID)
	assert.Equal(t, f.roomA.ID, b.RoomID)
	assert.Equal(t, day(t, "2024-01-05"), b.CheckOutDate)
	assert.False(t, f.room(t, f.roomA.ID).Available)
	assert.False(t, f.room(t, f.roomB.ID).Available)
}

func TestUpdateBooking_TerminalCannotBeRevived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detail := f.create(t, f.roomA.ID, "2024-01-01", "2024-01-05")

	_, err := f.bookings.UpdateBooking(ctx, detail.Booking.ID, BookingUpdateInput{Status: ptr(domain.BookingStatusCompleted)})
	require.NoError(t, err)

	_, err = f.bookings.UpdateBooking(ctx, detail.Booking.ID, BookingUpdateInput{Status: ptr(domain.BookingStatusBooked)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = f.bookings.UpdateBooking(ctx, detail.Booking.ID, BookingUpdateInput{Status: ptr(domain.BookingStatusCancelled)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	assert.Equal(t, domain.BookingStatusCompleted, f.booking(t, detail.Booking.ID).Status)
	assert.True(t, f.room(t, f.roomA.ID).Available)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &domain.User{Username: "other", Email: "other@example.com", Role: domain.UserRoleUser}
	require.NoError(t, f.store.Users().Create(ctx, other))

	current := f.create(t, f.roomA.ID, "2023-12-15", "2023-12-18")
	future := f.create(t, f.roomB.ID, "2024-01-10", "2024-01-12")
	cancelled := f.create(t, f.roomB.ID, "2024-02-10", "2024-02-12")
	_, err := f.bookings.UpdateBooking(ctx, cancelled.Booking.ID, BookingUpdateInput{
		Status: ptr(domain.BookingStatusCancelled),
		UserID: ptr(other.ID),
	})
	require.NoError(t, err)

	// move the clock so the first booking is mid-stay
	f.now = time.Date(2023, 12, 17, 9, 0, 0, 0, time.UTC)

	all, err := f.bookings.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := f.bookings.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, current.Booking.ID, active[0].Booking.ID)

	upcoming, err := f.bookings.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.Booking.ID, upcoming[0].Booking.ID)
	require.NotNil(t, upcoming[0].Room)
	assert.Equal(t, "102", upcoming[0].Room.RoomNumber)

	byUser, err := f.bookings.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "other", byUser[0].User.Username)

	byRoom, err := f.bookings.ListByRoom(ctx, f.roomB.ID)
	require.NoError(t, err)
	assert.Len(t, byRoom, 2)

	count, err := f.bookings.CountAvailableRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := f.bookings.GetBooking(ctx, future.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.Username, got.User.Username)
}

func TestActiveIncludesCheckOutDay(t *testing.T) {
	f := newFixture(t)
	detail := f.create(t, f.roomA.ID, "2023-12-15", "2023-12-18")
	f.now = time.Date(2023, 12, 18, 12, 0, 0, 0, time.UTC)

	active, err := f.bookings.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, detail.Booking.ID, active[0].Booking.ID)
}

func TestCreateBooking_ConcurrentOverlapOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	in, out := day(t, "2024-03-01"), day(t, "2024-03-04")

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookings.CreateBooking(context.Background(), BookingCreateInput{
				UserID: f.user.ID, RoomID: f.roomA.ID, CheckInDate: in, CheckOutDate: out,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestBookedIntervalsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges := [][2]string{
		{"2024-01-01", "2024-01-05"},
		{"2024-01-03", "2024-01-08"},
		{"2024-01-05", "2024-01-07"},
		{"2024-01-06", "2024-01-10"},
		{"2024-01-10", "2024-01-11"},
		{"2023-12-30", "2024-01-02"},
	}
	for _, r := range ranges {
		_, _ = f.bookings.CreateBooking(ctx, BookingCreateInput{
			UserID: f.user.ID, RoomID: f.roomA.ID, CheckInDate: day(t, r[0]), CheckOutDate: day(t, r[1]),
		})
	}

	booked, err := f.store.Bookings().ListByRoom(ctx, f.roomA.ID)
	require.NoError(t, err)
	require.NotEmpty(t, booked)
	for i := range booked {
		for j := i + 1; j < len(booked); j++ {
			if !booked[i].IsActive() || !booked[j].IsActive() {
				continue
			}
			assert.False(t, booked[i].Overlaps(booked[j].CheckInDate, booked[j].CheckOutDate),
				"%s overlaps %s", booked[i].ID, booked[j].ID)
		}
	}
}
