package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn,
		BookingStatusCheckedOut, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	gorm.Model
	RoomID   uint          `json:"room_id" gorm:"index;not null"`
	Room     Room          `json:"room"`
	GuestID  *uint         `json:"guest_id" gorm:"index"`
	Guest    *Guest        `json:"guest,omitempty"`
	CheckIn  time.Time     `json:"check_in" gorm:"index;not null"`
	CheckOut time.Time     `json:"check_out" gorm:"index;not null"`
	Status   BookingStatus `json:"status" gorm:"index;not null"`
	Invoice  *Invoice      `json:"invoice,omitempty"`
}

// Nights is the stay length in whole days, a partial day counting as one.
func (b *Booking) Nights() int {
	d := b.CheckOut.Sub(b.CheckIn)
	if d <= 0 {
		return 0
	}
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

type Invoice struct {
	gorm.Model
	BookingID uint            `json:"booking_id" gorm:"uniqueIndex;not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	IssuedAt  time.Time       `json:"issued_at"`
}
