package report

import (
	"time"

	"github.com/hoteldesk/internal/models"
)

// ReportData is the result of one builder run. It carries no generation
// timestamp, so the same window over the same rows serializes identically.
type ReportData struct {
	Type      models.ReportKind `json:"type"`
	Title     string            `json:"title"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Summary   string            `json:"summary"`

	Revenue        *RevenueData        `json:"revenue,omitempty"`
	Occupancy      *OccupancyData      `json:"occupancy,omitempty"`
	GuestAnalytics *GuestAnalyticsData `json:"guest_analytics,omitempty"`

	Charts []Chart `json:"charts"`
}

type RevenueData struct {
	TotalRevenue      float64 `json:"total_revenue"`
	BookingCount      int     `json:"booking_count"`
	AverageRevenue    float64 `json:"average_revenue"`
	DailyRevenue      []Point `json:"daily_revenue"`
	RevenueByRoomType []Point `json:"revenue_by_room_type"`
}

type OccupancyData struct {
	TotalRooms          int     `json:"total_rooms"`
	AverageOccupancy    float64 `json:"average_occupancy"`
	PeakOccupancy       float64 `json:"peak_occupancy"`
	LowestOccupancy     float64 `json:"lowest_occupancy"`
	DailyOccupancy      []Point `json:"daily_occupancy"`
	OccupancyByRoomType []Point `json:"occupancy_by_room_type"`
}

type GuestAnalyticsData struct {
	TotalBookings       int     `json:"total_bookings"`
	UniqueGuests        int     `json:"unique_guests"`
	RepeatGuests        int     `json:"repeat_guests"`
	RepeatGuestRate     float64 `json:"repeat_guest_rate"`
	AverageStayDuration float64 `json:"average_stay_duration"`
	GuestsByCountry     []Point `json:"guests_by_country"`
}

// Point is one labelled value of a series: a date for daily series,
// a room type or country for breakdowns.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
)

type Chart struct {
	Type   ChartType `json:"type"`
	Title  string    `json:"title"`
	Series []Point   `json:"series"`
}
