package report

import (
	"context"
	"fmt"

	"github.com/hoteldesk/internal/models"
	"github.com/shopspring/decimal"
)

// Revenue sums the invoices of checked-out bookings created inside the window.
func (b *Builder) Revenue(ctx context.Context, w Window) (*ReportData, error) {
	var bookings []models.Booking
	if err := b.db.WithContext(ctx).
		Preload("Invoice").
		Preload("Room").
		Where("status = ? AND created_at BETWEEN ? AND ?", models.BookingStatusCheckedOut, w.Start, w.End).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for revenue report: %w", err)
	}

	revenue, total, average := summarizeRevenue(bookings, w)

	data := newReportData(models.ReportKindRevenue, "Revenue Report", w)
	data.Revenue = revenue
	data.Summary = fmt.Sprintf("Total revenue of $%s from %d bookings, with an average of $%s per booking.",
		total.StringFixed(2), revenue.BookingCount, average.StringFixed(2))
	data.Charts = []Chart{
		{Type: ChartLine, Title: "Daily Revenue", Series: revenue.DailyRevenue},
		{Type: ChartPie, Title: "Revenue by Room Type", Series: revenue.RevenueByRoomType},
	}
	return data, nil
}

func summarizeRevenue(bookings []models.Booking, w Window) (*RevenueData, decimal.Decimal, decimal.Decimal) {
	total := decimal.Zero
	daily := make(map[string]decimal.Decimal)
	byType := make(map[string]decimal.Decimal)

	for i := range bookings {
		booking := &bookings[i]
		amount := decimal.Zero
		if booking.Invoice != nil {
			amount = booking.Invoice.Total.Round(2)
		}
		total = total.Add(amount)

		day := dayKey(booking.CreatedAt)
		daily[day] = daily[day].Add(amount)

		roomType := roomTypeOf(booking)
		byType[roomType] = byType[roomType].Add(amount)
	}

	average := decimal.Zero
	if len(bookings) > 0 {
		average = total.Div(decimal.NewFromInt(int64(len(bookings))))
	}

	data := &RevenueData{
		TotalRevenue:      money(total),
		BookingCount:      len(bookings),
		AverageRevenue:    money(average),
		DailyRevenue:      make([]Point, 0),
		RevenueByRoomType: make([]Point, 0, len(byType)),
	}

	for _, day := range w.Days() {
		key := day.Format(DateLayout)
		data.DailyRevenue = append(data.DailyRevenue, Point{Label: key, Value: money(daily[key])})
	}
	for _, roomType := range sortedKeys(byType) {
		data.RevenueByRoomType = append(data.RevenueByRoomType, Point{Label: roomType, Value: money(byType[roomType])})
	}

	return data, total, average
}

// money converts a cent-rounded amount to float once. Totals and buckets are
// summed as decimals, so they agree to the cent.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
