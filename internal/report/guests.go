package report

import (
	"context"
	"fmt"

	"github.com/hoteldesk/internal/models"
)

// GuestAnalytics describes who booked inside the window.
func (b *Builder) GuestAnalytics(ctx context.Context, w Window) (*ReportData, error) {
	var bookings []models.Booking
	if err := b.db.WithContext(ctx).
		Preload("Guest").
		Where("created_at BETWEEN ? AND ?", w.Start, w.End).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for guest analytics: %w", err)
	}

	guests := summarizeGuests(bookings)

	data := newReportData(models.ReportKindGuestAnalytics, "Guest Analytics Report", w)
	data.GuestAnalytics = guests
	data.Summary = fmt.Sprintf("%d unique guests made %d bookings, %d of them returning, with an average stay of %.2f nights.",
		guests.UniqueGuests, guests.TotalBookings, guests.RepeatGuests, guests.AverageStayDuration)
	data.Charts = []Chart{
		{Type: ChartPie, Title: "Guests by Country", Series: guests.GuestsByCountry},
	}
	return data, nil
}

func summarizeGuests(bookings []models.Booking) *GuestAnalyticsData {
	data := &GuestAnalyticsData{
		TotalBookings:   len(bookings),
		GuestsByCountry: make([]Point, 0),
	}

	bookingsPerGuest := make(map[uint]int)
	countryOf := make(map[uint]string)
	nights := 0
	for i := range bookings {
		booking := &bookings[i]
		nights += booking.Nights()

		if booking.GuestID == nil {
			continue
		}
		bookingsPerGuest[*booking.GuestID]++
		country := "unknown"
		if booking.Guest != nil && booking.Guest.Country != "" {
			country = booking.Guest.Country
		}
		countryOf[*booking.GuestID] = country
	}

	data.UniqueGuests = len(bookingsPerGuest)
	for _, n := range bookingsPerGuest {
		if n > 1 {
			data.RepeatGuests++
		}
	}
	data.RepeatGuestRate = ratio(float64(data.RepeatGuests), float64(data.UniqueGuests))
	if len(bookings) > 0 {
		data.AverageStayDuration = float64(nights) / float64(len(bookings))
	}

	byCountry := make(map[string]int)
	for _, country := range countryOf {
		byCountry[country]++
	}
	for _, country := range sortedKeys(byCountry) {
		data.GuestsByCountry = append(data.GuestsByCountry, Point{Label: country, Value: float64(byCountry[country])})
	}

	return data
}
