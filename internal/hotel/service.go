package hotel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service manages the rooms, guests and bookings the reports read.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

type RoomInput struct {
	Number string          `json:"number"`
	Type   string          `json:"type"`
	Floor  int             `json:"floor"`
	Rate   decimal.Decimal `json:"rate"`
}

func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*models.Room, error) {
	if strings.TrimSpace(in.Number) == "" || strings.TrimSpace(in.Type) == "" {
		return nil, fmt.Errorf("%w: room number and type are required", apperrors.ErrValidation)
	}
	if in.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: rate must not be negative", apperrors.ErrValidation)
	}

	room := &models.Room{
		Number: strings.TrimSpace(in.Number),
		Type:   strings.ToLower(strings.TrimSpace(in.Type)),
		Floor:  in.Floor,
		Rate:   in.Rate,
		Status: models.RoomStatusAvailable,
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).Order("number").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

type GuestInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
}

func (s *Service) CreateGuest(ctx context.Context, in GuestInput) (*models.Guest, error) {
	if strings.TrimSpace(in.FirstName) == "" && strings.TrimSpace(in.LastName) == "" {
		return nil, fmt.Errorf("%w: guest name is required", apperrors.ErrValidation)
	}

	guest := &models.Guest{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Country:   strings.ToUpper(strings.TrimSpace(in.Country)),
	}
	if err := s.db.WithContext(ctx).Create(guest).Error; err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}
	return guest, nil
}

func (s *Service) ListGuests(ctx context.Context) ([]models.Guest, error) {
	var guests []models.Guest
	if err := s.db.WithContext(ctx).Order("last_name, first_name").Find(&guests).Error; err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return guests, nil
}

type BookingInput struct {
	RoomID   uint                 `json:"room_id"`
	GuestID  *uint                `json:"guest_id"`
	CheckIn  time.Time            `json:"check_in"`
	CheckOut time.Time            `json:"check_out"`
	Status   models.BookingStatus `json:"status"`
}

func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*models.Booking, error) {
	if in.Status == "" {
		in.Status = models.BookingStatusPending
	}
	if !in.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", apperrors.ErrValidation, in.Status)
	}
	if !in.CheckOut.After(in.CheckIn) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", apperrors.ErrValidation)
	}

	db := s.db.WithContext(ctx)
	var room models.Room
	if err := db.First(&room, in.RoomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", apperrors.ErrNotFound, in.RoomID)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if in.GuestID != nil {
		var guest models.Guest
		if err := db.First(&guest, *in.GuestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: guest %d", apperrors.ErrNotFound, *in.GuestID)
			}
			return nil, fmt.Errorf("failed to get guest: %w", err)
		}
	}

	booking := &models.Booking{
		RoomID:   room.ID,
		GuestID:  in.GuestID,
		CheckIn:  in.CheckIn.UTC(),
		CheckOut: in.CheckOut.UTC(),
		Status:   in.Status,
	}
	if err := db.Create(booking).Error; err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	booking.Room = room
	return booking, nil
}

// ListBookings returns bookings, newest first, optionally filtered by status.
func (s *Service) ListBookings(ctx context.Context, status models.BookingStatus) ([]models.Booking, error) {
	query := s.db.WithContext(ctx).Preload("Room").Preload("Guest").Preload("Invoice").Order("created_at DESC, id DESC")
	if status != "" {
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown booking status %q", apperrors.ErrValidation, status)
		}
		query = query.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) getBooking(db *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := db.Preload("Room").Preload("Invoice").First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// SetBookingStatus moves a booking to status and keeps the room status in step.
func (s *Service) SetBookingStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", apperrors.ErrValidation, status)
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.getBooking(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		return s.syncRoomStatus(tx, booking.RoomID, status)
	})
	if err != nil {
		return nil, err
	}

	booking.Status = status
	return booking, nil
}

// CheckOut closes a booking and issues its invoice. A booking is checked out once.
func (s *Service) CheckOut(ctx context.Context, id uint, total decimal.Decimal) (*models.Booking, error) {
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: invoice total must not be negative", apperrors.ErrValidation)
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.getBooking(tx, id)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingStatusCheckedOut || booking.Invoice != nil {
			return fmt.Errorf("%w: booking %d is already checked out", apperrors.ErrValidation, id)
		}
		if booking.Status == models.BookingStatusCancelled {
			return fmt.Errorf("%w: booking %d is cancelled", apperrors.ErrValidation, id)
		}

		invoice := &models.Invoice{
			BookingID: booking.ID,
			Total:     total,
			IssuedAt:  s.now().UTC(),
		}
		if err := tx.Create(invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("status", models.BookingStatusCheckedOut).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		booking.Invoice = invoice
		return s.syncRoomStatus(tx, booking.RoomID, models.BookingStatusCheckedOut)
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusCheckedOut
	s.logger.Info("Booking checked out",
		zap.Uint("booking_id", booking.ID),
		zap.String("total", total.StringFixed(2)))
	return booking, nil
}

func (s *Service) syncRoomStatus(tx *gorm.DB, roomID uint, status models.BookingStatus) error {
	var roomStatus models.RoomStatus
	switch status {
	case models.BookingStatusCheckedIn:
		roomStatus = models.RoomStatusOccupied
	case models.BookingStatusCheckedOut, models.BookingStatusCancelled:
		roomStatus = models.RoomStatusAvailable
	default:
		return nil
	}
	if err := tx.Model(&models.Room{}).Where("id = ?", roomID).Update("status", roomStatus).Error; err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	return nil
}
