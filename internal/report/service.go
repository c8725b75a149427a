package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	recentReports    = 5
)

// Service stores and serves ad-hoc reports. It sits next to the scheduler,
// which calls the Builder directly.
type Service struct {
	db      *gorm.DB
	builder *Builder
	logger  *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		builder: NewBuilder(db),
		logger:  logger,
	}
}

func (s *Service) Builder() *Builder {
	return s.builder
}

// GenerateCustomReport builds a report over the window and saves it. The
// stored payload is the JSON encoding of the ReportData.
func (s *Service) GenerateCustomReport(ctx context.Context, kind models.ReportKind, w Window, params map[string]interface{}, ownerID uint) (*models.Report, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidKind, kind)
	}

	data, err := s.builder.Build(ctx, kind, w)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report data: %w", err)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: parameters are not serializable", apperrors.ErrValidation)
	}

	report := &models.Report{
		Name:       fmt.Sprintf("%s (%s)", data.Title, w.Label()),
		Type:       kind,
		StartDate:  w.Start,
		EndDate:    w.End,
		Data:       datatypes.JSON(payload),
		Summary:    data.Summary,
		Parameters: datatypes.JSON(rawParams),
		OwnerID:    ownerID,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Info("Report generated",
		zap.Uint("report_id", report.ID),
		zap.String("type", string(kind)),
		zap.Uint("owner_id", ownerID))
	return report, nil
}

func (s *Service) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: report %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ListReports returns saved reports, newest first.
func (s *Service) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var reports []models.Report
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// ExportReport renders a saved report from its stored payload.
func (s *Service) ExportReport(ctx context.Context, id uint, format Format) (*Export, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	var data ReportData
	if err := json.Unmarshal(report.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode report %d: %w", id, err)
	}
	return Render(&data, report.Name, format)
}

type Overview struct {
	ScheduledTotal   int64           `json:"scheduled_total"`
	ScheduledActive  int64           `json:"scheduled_active"`
	ScheduledFailing int64           `json:"scheduled_failing"`
	GeneratedTotal   int64           `json:"generated_total"`
	LastGeneratedAt  *time.Time      `json:"last_generated_at"`
	RecentReports    []models.Report `json:"recent_reports"`
}

func (s *Service) ReportsOverview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	overview := &Overview{}

	if err := db.Model(&models.ScheduledReport{}).Count(&overview.ScheduledTotal).Error; err != nil {
		return nil, fmt.Errorf("failed to count scheduled reports: %w", err)
	}
	if err := db.Model(&models.ScheduledReport{}).Where("is_active = ?", true).Count(&overview.ScheduledActive).Error; err != nil {
		return nil, fmt.Errorf("failed to count active scheduled reports: %w", err)
	}
	if err := db.Model(&models.ScheduledReport{}).Where("status = ?", models.ScheduleStatusError).Count(&overview.ScheduledFailing).Error; err != nil {
		return nil, fmt.Errorf("failed to count failing scheduled reports: %w", err)
	}
	if err := db.Model(&models.Report{}).Count(&overview.GeneratedTotal).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	recent, err := s.ListReports(ctx, recentReports)
	if err != nil {
		return nil, err
	}
	overview.RecentReports = recent
	if len(recent) > 0 {
		last := recent[0].CreatedAt
		overview.LastGeneratedAt = &last
	}
	return overview, nil
}
