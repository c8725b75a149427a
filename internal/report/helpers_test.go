package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hoteldesk/internal/database"
	"github.com/hoteldesk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedRoom(t *testing.T, db *gorm.DB, number, roomType string) *models.Room {
	t.Helper()
	room := &models.Room{
		Number: number,
		Type:   roomType,
		Floor:  1,
		Rate:   decimal.NewFromInt(100),
		Status: models.RoomStatusAvailable,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedGuest(t *testing.T, db *gorm.DB, name, country string) *models.Guest {
	t.Helper()
	guest := &models.Guest{FirstName: name, LastName: "Test", Email: name + "@example.com", Country: country}
	require.NoError(t, db.Create(guest).Error)
	return guest
}

type bookingRow struct {
	room     *models.Room
	guest    *models.Guest
	status   models.BookingStatus
	checkIn  time.Time
	checkOut time.Time
	created  time.Time
	invoice  string
}

func seedBooking(t *testing.T, db *gorm.DB, row bookingRow) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		RoomID:   row.room.ID,
		Status:   row.status,
		CheckIn:  row.checkIn,
		CheckOut: row.checkOut,
	}
	booking.CreatedAt = row.created
	if row.guest != nil {
		booking.GuestID = &row.guest.ID
	}
	require.NoError(t, db.Create(booking).Error)

	if row.invoice != "" {
		invoice := &models.Invoice{
			BookingID: booking.ID,
			Total:     decimal.RequireFromString(row.invoice),
			IssuedAt:  row.checkOut,
		}
		require.NoError(t, db.Create(invoice).Error)
	}
	return booking
}

func sumSeries(points []Point) float64 {
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}
