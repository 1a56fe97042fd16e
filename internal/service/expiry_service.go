package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/repository"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Today        time.Time
	Completed    int
	BookingIDs   []string
	RoomsTouched int
}

// ExpiryService completes BOOKED bookings whose stay has ended.
type ExpiryService struct {
	tx         repository.TxManager
	bookings   repository.BookingRepository
	rooms      repository.RoomRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	loc        *time.Location
}

// NewExpiryService constructs the service from the same bundle as BookingService.
func NewExpiryService(deps BookingDependencies) *ExpiryService {
	deps = deps.withDefaults()
	return &ExpiryService{
		tx:         deps.TxManager,
		bookings:   deps.BookingRepo,
		rooms:      deps.RoomRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		loc:        deps.Location,
	}
}

// Sweep moves every BOOKED booking with a check-out before today to
// COMPLETED and releases the rooms, all in one transaction. Running it again
// on the same day changes nothing.
func (s *ExpiryService) Sweep(ctx context.Context) (SweepResult, error) {
	today := domain.Today(s.now(), s.loc)
	result := SweepResult{Today: today}

	var expired []domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		expired, err = s.bookings.ListExpired(ctx, today)
		if err != nil {
			return fmt.Errorf("list expired bookings: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		roomIDs := make([]string, 0, len(expired))
		for _, b := range expired {
			roomIDs = append(roomIDs, b.RoomID)
		}
		if err := s.rooms.LockForUpdate(ctx, roomIDs...); err != nil {
			return fmt.Errorf("lock rooms: %w", err)
		}

		for i := range expired {
			expired[i].Status = domain.BookingStatusCompleted
			if err := s.bookings.Update(ctx, &expired[i]); err != nil {
				return fmt.Errorf("complete booking %s: %w", expired[i].ID, err)
			}
		}
		if err := syncRoomAvailability(ctx, s.rooms, s.bookings, roomIDs...); err != nil {
			return fmt.Errorf("sync room availability: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordSweep(0, err)
		s.logger.Error("expiry sweep abandoned", zap.Time("today", today), zap.Error(err))
		return SweepResult{Today: today}, err
	}

	touched := map[string]struct{}{}
	for _, b := range expired {
		result.BookingIDs = append(result.BookingIDs, b.ID)
		touched[b.RoomID] = struct{}{}
	}
	result.Completed = len(expired)
	result.RoomsTouched = len(touched)

	s.metrics.RecordSweep(result.Completed, nil)
	s.logger.Info("expiry sweep finished",
		zap.String("today", domain.FormatDate(today)),
		zap.Int("completed", result.Completed),
		zap.Int("rooms_touched", result.RoomsTouched))

	for _, b := range expired {
		publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
			Type:      events.EventBookingExpired,
			BookingID: b.ID,
			Payload: events.BookingExpiredPayload{
				RoomID:       b.RoomID,
				CheckOutDate: domain.FormatDate(b.CheckOutDate),
			},
		})
	}
	return result, nil
}
