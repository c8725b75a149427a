package report

import (
	"context"
	"fmt"
	"time"

	"github.com/hoteldesk/internal/models"
	"github.com/shopspring/decimal"
)

type Dashboard struct {
	TotalRooms     int64   `json:"total_rooms"`
	OccupiedRooms  int64   `json:"occupied_rooms"`
	AvailableRooms int64   `json:"available_rooms"`
	OccupancyRate  float64 `json:"occupancy_rate"`
	ActiveBookings int64   `json:"active_bookings"`
	TodayCheckIns  int64   `json:"today_check_ins"`
	TodayCheckOuts int64   `json:"today_check_outs"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	TotalGuests    int64   `json:"total_guests"`
}

// DashboardStats is a snapshot of the hotel as of now.
func (s *Service) DashboardStats(ctx context.Context, now time.Time) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	stats := &Dashboard{}
	today := truncateDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	if err := db.Model(&models.Room{}).Count(&stats.TotalRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}
	if err := db.Model(&models.Room{}).Where("status = ?", models.RoomStatusOccupied).Count(&stats.OccupiedRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupied rooms: %w", err)
	}
	if err := db.Model(&models.Room{}).Where("status = ?", models.RoomStatusAvailable).Count(&stats.AvailableRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count available rooms: %w", err)
	}
	stats.OccupancyRate = ratio(float64(stats.OccupiedRooms), float64(stats.TotalRooms))

	active := []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCheckedIn}
	if err := db.Model(&models.Booking{}).Where("status IN ?", active).Count(&stats.ActiveBookings).Error; err != nil {
		return nil, fmt.Errorf("failed to count active bookings: %w", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("check_in >= ? AND check_in < ? AND status <> ?", today, tomorrow, models.BookingStatusCancelled).
		Count(&stats.TodayCheckIns).Error; err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("check_out >= ? AND check_out < ? AND status <> ?", today, tomorrow, models.BookingStatusCancelled).
		Count(&stats.TodayCheckOuts).Error; err != nil {
		return nil, fmt.Errorf("failed to count check-outs: %w", err)
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	var invoices []models.Invoice
	if err := db.Where("issued_at >= ? AND issued_at <= ?", monthStart, now.UTC()).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	revenue := decimal.Zero
	for _, invoice := range invoices {
		revenue = revenue.Add(invoice.Total)
	}
	stats.MonthlyRevenue = revenue.InexactFloat64()

	if err := db.Model(&models.Guest{}).Count(&stats.TotalGuests).Error; err != nil {
		return nil, fmt.Errorf("failed to count guests: %w", err)
	}
	return stats, nil
}

// RevenueStats returns the daily revenue series for the trailing days.
func (s *Service) RevenueStats(ctx context.Context, now time.Time, days int) ([]Point, error) {
	data, err := s.builder.Revenue(ctx, TrailingWindow(now, days))
	if err != nil {
		return nil, err
	}
	return data.Revenue.DailyRevenue, nil
}

// OccupancyStats returns the daily occupancy series for the trailing days.
func (s *Service) OccupancyStats(ctx context.Context, now time.Time, days int) ([]Point, error) {
	data, err := s.builder.Occupancy(ctx, TrailingWindow(now, days))
	if err != nil {
		return nil, err
	}
	return data.Occupancy.DailyOccupancy, nil
}
