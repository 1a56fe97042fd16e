package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

// RoomService manages room records. It never writes the available flag.
type RoomService struct {
	rooms  repository.RoomRepository
	logger *zap.Logger
}

// RoomCreateInput describes a new room.
type RoomCreateInput struct {
	RoomNumber string
	Type       string
	Price      float64
}

// RoomUpdateInput carries a partial room edit.
type RoomUpdateInput struct {
	RoomNumber *string
	Type       *string
	Price      *float64
}

// NewRoomService constructs the service.
func NewRoomService(rooms repository.RoomRepository, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, logger: logger}
}

// CreateRoom adds a room. New rooms have no bookings and start available.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomCreateInput) (*domain.Room, error) {
	room := &domain.Room{
		RoomNumber: strings.TrimSpace(input.RoomNumber),
		Type:       strings.TrimSpace(input.Type),
		Price:      input.Price,
		Available:  true,
	}
	if err := validateRoom(room); err != nil {
		return nil, err
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, roomStoreError(err, room.RoomNumber)
	}
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("room_number", room.RoomNumber))
	return room, nil
}

// UpdateRoom edits number, type or price.
func (s *RoomService) UpdateRoom(ctx context.Context, id string, input RoomUpdateInput) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "room", id)
	}
	if input.RoomNumber != nil {
		room.RoomNumber = strings.TrimSpace(*input.RoomNumber)
	}
	if input.Type != nil {
		room.Type = strings.TrimSpace(*input.Type)
	}
	if input.Price != nil {
		room.Price = *input.Price
	}
	if err := validateRoom(room); err != nil {
		return nil, err
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, roomStoreError(err, room.RoomNumber)
	}
	return room, nil
}

// GetRoom returns one room.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "room", id)
	}
	return room, nil
}

// DeleteRoom removes a room no booking references, in any status.
func (s *RoomService) DeleteRoom(ctx context.Context, id string) error {
	if err := s.rooms.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return apperrors.NewConflict("room still has bookings", map[string]any{"room_id": id})
		}
		return notFoundOr(err, "room", id)
	}
	s.logger.Info("room deleted", zap.String("room_id", id))
	return nil
}

// ListRooms returns every room ordered by number.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}

func validateRoom(room *domain.Room) error {
	details := map[string]any{}
	if room.RoomNumber == "" {
		details["room_number"] = "required"
	}
	if room.Type == "" {
		details["type"] = "required"
	}
	if room.Price < 0 {
		details["price"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid room", details)
	}
	return nil
}

func roomStoreError(err error, number string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("room number already exists", map[string]any{"room_number": number})
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("room", nil)
	}
	return err
}
