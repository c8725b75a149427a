package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hoteldesk/internal/models"
)

type roomTypeCount struct {
	Type  string
	Total int64
}

// Occupancy computes the share of rooms held by confirmed or checked-in
// bookings for every day of the window.
func (b *Builder) Occupancy(ctx context.Context, w Window) (*ReportData, error) {
	db := b.db.WithContext(ctx)

	var totalRooms int64
	if err := db.Model(&models.Room{}).Count(&totalRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}

	var bookings []models.Booking
	if err := db.Preload("Room").
		Where("status IN ?", []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCheckedIn}).
		Where("check_in <= ? AND check_out >= ?", w.End, w.Start).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for occupancy report: %w", err)
	}

	var counts []roomTypeCount
	if err := db.Model(&models.Room{}).
		Select("type, count(*) as total").
		Group("type").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count rooms by type: %w", err)
	}
	roomsByType := make(map[string]int, len(counts))
	for _, c := range counts {
		roomsByType[c.Type] = int(c.Total)
	}

	occupancy := summarizeOccupancy(int(totalRooms), roomsByType, bookings, w)

	data := newReportData(models.ReportKindOccupancy, "Occupancy Report", w)
	data.Occupancy = occupancy
	data.Summary = fmt.Sprintf("Average occupancy of %.2f%% across %d rooms, peaking at %.2f%% with a low of %.2f%%.",
		occupancy.AverageOccupancy, occupancy.TotalRooms, occupancy.PeakOccupancy, occupancy.LowestOccupancy)
	data.Charts = []Chart{
		{Type: ChartLine, Title: "Daily Occupancy", Series: occupancy.DailyOccupancy},
		{Type: ChartBar, Title: "Occupancy by Room Type", Series: occupancy.OccupancyByRoomType},
	}
	return data, nil
}

func summarizeOccupancy(totalRooms int, roomsByType map[string]int, bookings []models.Booking, w Window) *OccupancyData {
	data := &OccupancyData{
		TotalRooms:          totalRooms,
		DailyOccupancy:      make([]Point, 0),
		OccupancyByRoomType: make([]Point, 0, len(roomsByType)),
	}

	days := w.Days()
	var sum float64
	peak, lowest := math.Inf(-1), math.Inf(1)
	for _, day := range days {
		occupied := 0
		for i := range bookings {
			if coversDay(&bookings[i], day) {
				occupied++
			}
		}
		rate := math.Min(ratio(float64(occupied), float64(totalRooms)), 100)

		data.DailyOccupancy = append(data.DailyOccupancy, Point{Label: day.Format(DateLayout), Value: rate})
		sum += rate
		peak = math.Max(peak, rate)
		lowest = math.Min(lowest, rate)
	}
	if len(days) > 0 {
		data.AverageOccupancy = sum / float64(len(days))
		data.PeakOccupancy = peak
		data.LowestOccupancy = lowest
	}

	bookingsByType := make(map[string]int)
	for i := range bookings {
		bookingsByType[roomTypeOf(&bookings[i])]++
	}
	for _, roomType := range sortedKeys(roomsByType) {
		rate := ratio(float64(bookingsByType[roomType]), float64(roomsByType[roomType]))
		data.OccupancyByRoomType = append(data.OccupancyByRoomType, Point{Label: roomType, Value: rate})
	}

	return data
}

// coversDay reports whether the booking holds its room on the night of day.
// The check-out day itself is not occupied.
func coversDay(b *models.Booking, day time.Time) bool {
	return !truncateDay(b.CheckIn).After(day) && truncateDay(b.CheckOut).After(day)
}
