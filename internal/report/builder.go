package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/models"
	"gorm.io/gorm"
)

// Builder turns booking, room and invoice rows into ReportData. It only reads;
// queries are independent and run outside a transaction.
type Builder struct {
	db *gorm.DB
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// Build produces the report of the given kind for the window.
func (b *Builder) Build(ctx context.Context, kind models.ReportKind, w Window) (*ReportData, error) {
	switch kind {
	case models.ReportKindRevenue:
		return b.Revenue(ctx, w)
	case models.ReportKindOccupancy:
		return b.Occupancy(ctx, w)
	case models.ReportKindGuestAnalytics:
		return b.GuestAnalytics(ctx, w)
	case models.ReportKindCustom:
		return b.Combined(ctx, w)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidKind, kind)
	}
}

// Combined carries the revenue, occupancy and guest payloads in one report.
func (b *Builder) Combined(ctx context.Context, w Window) (*ReportData, error) {
	revenue, err := b.Revenue(ctx, w)
	if err != nil {
		return nil, err
	}
	occupancy, err := b.Occupancy(ctx, w)
	if err != nil {
		return nil, err
	}
	guests, err := b.GuestAnalytics(ctx, w)
	if err != nil {
		return nil, err
	}

	data := newReportData(models.ReportKindCustom, "Custom Report", w)
	data.Revenue = revenue.Revenue
	data.Occupancy = occupancy.Occupancy
	data.GuestAnalytics = guests.GuestAnalytics
	data.Summary = strings.Join([]string{revenue.Summary, occupancy.Summary, guests.Summary}, " ")
	data.Charts = append(data.Charts, revenue.Charts...)
	data.Charts = append(data.Charts, occupancy.Charts...)
	data.Charts = append(data.Charts, guests.Charts...)
	return data, nil
}

func newReportData(kind models.ReportKind, title string, w Window) *ReportData {
	return &ReportData{
		Type:      kind,
		Title:     title,
		StartDate: w.Start,
		EndDate:   w.End,
		Charts:    []Chart{},
	}
}

// ratio returns part/whole*100, or 0 when whole is 0.
func ratio(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func roomTypeOf(b *models.Booking) string {
	if b.Room.Type == "" {
		return "unknown"
	}
	return b.Room.Type
}
