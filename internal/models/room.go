package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room is a sellable unit. Type is free text ("standard", "deluxe", "suite", ...)
// and is the grouping key for the per-room-type report series.
type Room struct {
	gorm.Model
	Number string          `json:"number" gorm:"uniqueIndex;not null"`
	Type   string          `json:"type" gorm:"index;not null"`
	Floor  int             `json:"floor"`
	Rate   decimal.Decimal `json:"rate" gorm:"type:decimal(10,2)"`
	Status RoomStatus      `json:"status" gorm:"not null"`
}

type Guest struct {
	gorm.Model
	FirstName string `json:"first_name" gorm:"not null"`
	LastName  string `json:"last_name" gorm:"not null"`
	Email     string `json:"email" gorm:"index"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
}

func (g *Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}
