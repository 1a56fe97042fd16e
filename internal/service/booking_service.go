package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/availability"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

// BookingService owns the booking lifecycle and keeps each room's available
// flag in step with its BOOKED bookings.
type BookingService struct {
	tx         repository.TxManager
	bookings   repository.BookingRepository
	rooms      repository.RoomRepository
	users      repository.UserRepository
	checker    *availability.Checker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	loc        *time.Location
}

// BookingDependencies bundles collaborators for the booking and expiry services.
type BookingDependencies struct {
	TxManager   repository.TxManager
	BookingRepo repository.BookingRepository
	RoomRepo    repository.RoomRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location decides which calendar date is "today". Defaults to UTC.
	Location *time.Location
}

func (d BookingDependencies) withDefaults() BookingDependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// BookingCreateInput describes a new booking. A nil Status means BOOKED.
type BookingCreateInput struct {
	UserID       string
	RoomID       string
	CheckInDate  time.Time
	CheckOutDate time.Time
	Status       *domain.BookingStatus
}

// BookingUpdateInput carries a partial update; nil fields are left unchanged.
type BookingUpdateInput struct {
	UserID       *string
	RoomID       *string
	CheckInDate  *time.Time
	CheckOutDate *time.Time
	Status       *domain.BookingStatus
}

// BookingDetail is a booking with its user and room resolved.
type BookingDetail struct {
	Booking domain.Booking
	User    *domain.User
	Room    *domain.Room
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	deps = deps.withDefaults()
	return &BookingService{
		tx:         deps.TxManager,
		bookings:   deps.BookingRepo,
		rooms:      deps.RoomRepo,
		users:      deps.UserRepo,
		checker:    availability.NewChecker(deps.BookingRepo),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		loc:        deps.Location,
	}
}

// Today returns the current calendar date in the configured location.
func (s *BookingService) Today() time.Time {
	return domain.Today(s.now(), s.loc)
}

// CreateBooking validates, conflict-checks and stores a booking, then marks
// its room unavailable.
func (s *BookingService) CreateBooking(ctx context.Context, input BookingCreateInput) (*BookingDetail, error) {
	status := domain.BookingStatusBooked
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, s.observe("create", invalidStatus(*input.Status))
		}
		status = *input.Status
	}
	checkIn, checkOut := domain.DateOf(input.CheckInDate), domain.DateOf(input.CheckOutDate)

	var detail *BookingDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			return notFoundOr(err, "user", input.UserID)
		}
		if err := s.rooms.LockForUpdate(ctx, input.RoomID); err != nil {
			return notFoundOr(err, "room", input.RoomID)
		}

		if !domain.ValidRange(checkIn, checkOut) {
			return apperrors.NewInvalidRange(rangeDetails(checkIn, checkOut))
		}
		if today := s.Today(); checkIn.Before(today) {
			return apperrors.NewPastDate(map[string]any{
				"check_in_date": domain.FormatDate(checkIn),
				"today":         domain.FormatDate(today),
			})
		}
		if err := s.ensureAvailable(ctx, input.RoomID, checkIn, checkOut, ""); err != nil {
			return err
		}

		booking := &domain.Booking{
			UserID:       user.ID,
			RoomID:       input.RoomID,
			CheckInDate:  checkIn,
			CheckOutDate: checkOut,
			Status:       status,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return storeError(err)
		}
		// A booking created as CANCELLED or COMPLETED never claims the room;
		// availability follows BOOKED bookings only.
		if err := s.syncRooms(ctx, booking.RoomID); err != nil {
			return err
		}

		room, err := s.rooms.GetByID(ctx, booking.RoomID)
		if err != nil {
			return err
		}
		detail = &BookingDetail{Booking: *booking, User: user, Room: room}
		return nil
	})
	if err != nil {
		return nil, s.observe("create", err)
	}
	s.observe("create", nil)

	s.logger.Info("booking created",
		zap.String("booking_id", detail.Booking.ID),
		zap.String("room_id", detail.Booking.RoomID),
		zap.String("check_in", domain.FormatDate(checkIn)),
		zap.String("check_out", domain.FormatDate(checkOut)))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventBookingCreated,
		BookingID: detail.Booking.ID,
		ActorID:   detail.Booking.UserID,
		Payload: events.BookingCreatedPayload{
			UserID:       detail.Booking.UserID,
			RoomID:       detail.Booking.RoomID,
			CheckInDate:  domain.FormatDate(checkIn),
			CheckOutDate: domain.FormatDate(checkOut),
			Status:       detail.Booking.Status,
		},
	})
	return detail, nil
}

// UpdateBooking applies a partial update. Terminal bookings cannot be revived.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, input BookingUpdateInput) (*BookingDetail, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, s.observe("update", invalidStatus(*input.Status))
	}

	var (
		detail    *BookingDetail
		oldStatus domain.BookingStatus
		oldRoomID string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "booking", id)
		}
		oldStatus, oldRoomID = booking.Status, booking.RoomID

		targetRoomID := booking.RoomID
		if input.RoomID != nil {
			targetRoomID = *input.RoomID
		}
		if err := s.rooms.LockForUpdate(ctx, booking.RoomID, targetRoomID); err != nil {
			return notFoundOr(err, "room", targetRoomID)
		}

		var user *domain.User
		if input.UserID != nil {
			if user, err = s.users.GetByID(ctx, *input.UserID); err != nil {
				return notFoundOr(err, "user", *input.UserID)
			}
			booking.UserID = user.ID
		}
		booking.RoomID = targetRoomID

		if input.CheckInDate != nil {
			booking.CheckInDate = domain.DateOf(*input.CheckInDate)
		}
		if input.CheckOutDate != nil {
			booking.CheckOutDate = domain.DateOf(*input.CheckOutDate)
		}
		if !domain.ValidRange(booking.CheckInDate, booking.CheckOutDate) {
			return apperrors.NewInvalidRange(rangeDetails(booking.CheckInDate, booking.CheckOutDate))
		}

		if input.Status != nil {
			if !booking.Status.CanTransitionTo(*input.Status) {
				return apperrors.NewInvalidTransition(string(booking.Status), string(*input.Status))
			}
			booking.Status = *input.Status
		}

		if booking.IsActive() {
			if err := s.ensureAvailable(ctx, booking.RoomID, booking.CheckInDate, booking.CheckOutDate, booking.ID); err != nil {
				return err
			}
		}

		if err := s.bookings.Update(ctx, booking); err != nil {
			return storeError(err)
		}
		if err := s.syncRooms(ctx, oldRoomID, booking.RoomID); err != nil {
			return err
		}

		detail, err = s.resolve(ctx, *booking, user)
		return err
	})
	if err != nil {
		return nil, s.observe("update", err)
	}
	s.observe("update", nil)

	payload := events.BookingUpdatedPayload{
		OldStatus: oldStatus,
		NewStatus: detail.Booking.Status,
		RoomID:    detail.Booking.RoomID,
	}
	if oldRoomID != detail.Booking.RoomID {
		payload.OldRoomID = oldRoomID
	}
	s.logger.Info("booking updated",
		zap.String("booking_id", id),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(detail.Booking.Status)),
		zap.String("room_id", detail.Booking.RoomID))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventBookingUpdated,
		BookingID: id,
		ActorID:   detail.Booking.UserID,
		Payload:   payload,
	})
	return detail, nil
}

// DeleteBooking removes a booking and releases its room.
func (s *BookingService) DeleteBooking(ctx context.Context, id string) error {
	var deleted domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "booking", id)
		}
		if err := s.rooms.LockForUpdate(ctx, booking.RoomID); err != nil {
			return notFoundOr(err, "room", booking.RoomID)
		}
		if err := s.bookings.Delete(ctx, id); err != nil {
			return notFoundOr(err, "booking", id)
		}
		deleted = *booking
		return s.syncRooms(ctx, booking.RoomID)
	})
	if err != nil {
		return s.observe("delete", err)
	}
	s.observe("delete", nil)

	s.logger.Info("booking deleted", zap.String("booking_id", id), zap.String("room_id", deleted.RoomID))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventBookingDeleted,
		BookingID: id,
		ActorID:   deleted.UserID,
		Payload:   events.BookingDeletedPayload{RoomID: deleted.RoomID, Status: deleted.Status},
	})
	return nil
}

// GetBooking returns one booking.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*BookingDetail, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "booking", id)
	}
	return s.resolve(ctx, *booking, nil)
}

// ListBookings returns every booking.
func (s *BookingService) ListBookings(ctx context.Context) ([]BookingDetail, error) {
	return s.resolveAll(ctx)(s.bookings.List(ctx))
}

// ListByUser returns the bookings of one user.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]BookingDetail, error) {
	return s.resolveAll(ctx)(s.bookings.ListByUser(ctx, userID))
}

// ListByRoom returns the bookings of one room.
func (s *BookingService) ListByRoom(ctx context.Context, roomID string) ([]BookingDetail, error) {
	return s.resolveAll(ctx)(s.bookings.ListByRoom(ctx, roomID))
}

// ListUpcoming returns non-cancelled bookings that check in today or later.
func (s *BookingService) ListUpcoming(ctx context.Context) ([]BookingDetail, error) {
	return s.resolveAll(ctx)(s.bookings.ListUpcoming(ctx, s.Today()))
}

// ListActive returns BOOKED bookings whose stay includes today, both ends inclusive.
func (s *BookingService) ListActive(ctx context.Context) ([]BookingDetail, error) {
	return s.resolveAll(ctx)(s.bookings.ListActive(ctx, s.Today()))
}

// CountAvailableRooms counts rooms whose available flag is set.
func (s *BookingService) CountAvailableRooms(ctx context.Context) (int, error) {
	return s.rooms.CountAvailable(ctx)
}

func (s *BookingService) ensureAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) error {
	conflict, err := s.checker.Conflict(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return apperrors.NewConflict("room is not available for the selected dates", map[string]any{
			"room_id":             roomID,
			"conflicting_booking": conflict.ID,
			"check_in_date":       domain.FormatDate(checkIn),
			"check_out_date":      domain.FormatDate(checkOut),
		})
	}
	return nil
}

// syncRooms recomputes available for each room from its BOOKED bookings.
func (s *BookingService) syncRooms(ctx context.Context, roomIDs ...string) error {
	return syncRoomAvailability(ctx, s.rooms, s.bookings, roomIDs...)
}

func syncRoomAvailability(ctx context.Context, rooms repository.RoomRepository, bookings repository.BookingRepository, roomIDs ...string) error {
	seen := make(map[string]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		active, err := bookings.CountActiveByRoom(ctx, id)
		if err != nil {
			return err
		}
		if err := rooms.SetAvailability(ctx, id, active == 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *BookingService) resolve(ctx context.Context, booking domain.Booking, user *domain.User) (*BookingDetail, error) {
	detail := &BookingDetail{Booking: booking, User: user}
	if detail.User == nil {
		u, err := s.users.GetByID(ctx, booking.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		detail.User = u
	}
	room, err := s.rooms.GetByID(ctx, booking.RoomID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	detail.Room = room
	return detail, nil
}

// resolveAll adapts a repository list call into resolved details, caching
// lookups so each user and room is read once.
func (s *BookingService) resolveAll(ctx context.Context) func([]domain.Booking, error) ([]BookingDetail, error) {
	return func(bookings []domain.Booking, err error) ([]BookingDetail, error) {
		if err != nil {
			return nil, err
		}
		users := map[string]*domain.User{}
		rooms := map[string]*domain.Room{}
		out := make([]BookingDetail, 0, len(bookings))
		for _, b := range bookings {
			user, ok := users[b.UserID]
			if !ok {
				if user, err = s.users.GetByID(ctx, b.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return nil, err
				}
				users[b.UserID] = user
			}
			room, ok := rooms[b.RoomID]
			if !ok {
				if room, err = s.rooms.GetByID(ctx, b.RoomID); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return nil, err
				}
				rooms[b.RoomID] = room
			}
			out = append(out, BookingDetail{Booking: b, User: user, Room: room})
		}
		return out, nil
	}
}

func (s *BookingService) observe(operation string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	s.metrics.RecordBookingOp(operation, outcome)
	return err
}

func (s *BookingService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, s.now, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

// storeError maps constraint violations surfaced on write.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOverlap):
		return apperrors.NewConflict("room is not available for the selected dates", nil)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("booking", nil)
	}
	return err
}

func invalidStatus(status domain.BookingStatus) error {
	return apperrors.NewValidationError("unknown booking status", map[string]any{
		"status":  string(status),
		"allowed": []string{string(domain.BookingStatusBooked), string(domain.BookingStatusCancelled), string(domain.BookingStatusCompleted)},
	})
}

func rangeDetails(checkIn, checkOut time.Time) map[string]any {
	return map[string]any{
		"check_in_date":  domain.FormatDate(checkIn),
		"check_out_date": domain.FormatDate(checkOut),
	}
}
