package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/logging"
	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/notify"
	"github.com/hoteldesk/internal/report"
	"github.com/hoteldesk/internal/validation"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

const (
	defaultMaxConcurrentRuns = 4
	defaultWindowDays        = 30
)

// ReportBuilder builds the report a firing delivers.
type ReportBuilder interface {
	Build(ctx context.Context, kind models.ReportKind, w report.Window) (*report.ReportData, error)
}

// Sender delivers a built report. *notify.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, delivery notify.Delivery) error
	NotifyFailure(ctx context.Context, reportName string, runErr error)
}

// Actor is the user on whose behalf a schedule is changed.
type Actor struct {
	UserID uint
	Role   models.Role
}

func (a Actor) canModify(record *models.ScheduledReport) bool {
	return a.Role == models.RoleAdmin || a.UserID == record.OwnerID
}

// Input creates or updates a scheduled report. On update, zero fields keep
// their stored value.
type Input struct {
	Name       string                 `json:"name"`
	Type       models.ReportKind      `json:"type"`
	Schedule   string                 `json:"schedule"`
	Recipients []string               `json:"recipients"`
	Parameters map[string]interface{} `json:"parameters"`
	IsActive   *bool                  `json:"is_active,omitempty"`
}

type Options struct {
	MaxConcurrentRuns int64
	WindowDays        int
	Guard             Guard
	Now               func() time.Time
}

// Scheduler owns the cron timers of active scheduled reports. Each timer is
// keyed by report id; registering a report again replaces its timer.
type Scheduler struct {
	db         *gorm.DB
	builder    ReportBuilder
	sender     Sender
	logger     *zap.Logger
	cron       *cron.Cron
	parser     cron.Parser
	mutex      sync.Mutex
	entries    map[uint]cron.EntryID
	sem        *semaphore.Weighted
	guard      Guard
	windowDays int
	now        func() time.Time
	metrics    *RunMetrics
}

func New(db *gorm.DB, builder ReportBuilder, sender Sender, logger *zap.Logger, opts Options) *Scheduler {
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaultWindowDays
	}
	if opts.Guard == nil {
		opts.Guard = NoGuard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLogger := logging.CronLogger{Logger: logger.Named("cron")}

	return &Scheduler{
		db:      db,
		builder: builder,
		sender:  sender,
		logger:  logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		parser:     parser,
		entries:    make(map[uint]cron.EntryID),
		sem:        semaphore.NewWeighted(opts.MaxConcurrentRuns),
		guard:      opts.Guard,
		windowDays: opts.WindowDays,
		now:        opts.Now,
		metrics:    &RunMetrics{},
	}
}

// ParseSchedule parses a five-field cron expression or a descriptor such as @daily.
func (s *Scheduler) ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := s.parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

func (s *Scheduler) validate(record *models.ScheduledReport) (cron.Schedule, error) {
	if strings.TrimSpace(record.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if !record.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidKind, record.Type)
	}
	sched, err := s.ParseSchedule(record.Schedule)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSchedule(record.RecipientList(), record.ParameterMap()); err != nil {
		return nil, err
	}
	return sched, nil
}

// Schedule validates and stores a new active scheduled report, then
// registers its timer. Nothing is stored when validation fails.
func (s *Scheduler) Schedule(ctx context.Context, in Input, actor Actor) (*models.ScheduledReport, error) {
	if !actor.Role.Can(models.PermissionManageReports) {
		return nil, fmt.Errorf("%w: role %s cannot schedule reports", apperrors.ErrForbidden, actor.Role)
	}

	record := &models.ScheduledReport{
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Schedule: strings.TrimSpace(in.Schedule),
		IsActive: true,
		OwnerID:  actor.UserID,
		Status:   models.ScheduleStatusOK,
	}
	if err := record.SetRecipients(in.Recipients); err != nil {
		return nil, fmt.Errorf("%w: recipients: %v", apperrors.ErrValidation, err)
	}
	if err := record.SetParameters(in.Parameters); err != nil {
		return nil, fmt.Errorf("%w: parameters: %v", apperrors.ErrValidation, err)
	}

	sched, err := s.validate(record)
	if err != nil {
		return nil, err
	}
	record.NextRun = sched.Next(s.now().UTC())

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save scheduled report: %w", err)
	}
	s.register(record.ID, sched)

	s.logger.Info("Scheduled report created",
		zap.Uint("report_id", record.ID),
		zap.String("schedule", record.Schedule),
		zap.Time("next_run", record.NextRun))
	return record, nil
}

// Update changes a scheduled report. Only its owner or an admin may do so.
func (s *Scheduler) Update(ctx context.Context, id uint, in Input, actor Actor) (*models.ScheduledReport, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(record) {
		return nil, fmt.Errorf("%w: scheduled report %d belongs to another user", apperrors.ErrForbidden, id)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		record.Name = name
	}
	if in.Type != "" {
		record.Type = in.Type
	}
	if expr := strings.TrimSpace(in.Schedule); expr != "" {
		record.Schedule = expr
	}
	if in.Recipients != nil {
		if err := record.SetRecipients(in.Recipients); err != nil {
			return nil, fmt.Errorf("%w: recipients: %v", apperrors.ErrValidation, err)
		}
	}
	if in.Parameters != nil {
		if err := record.SetParameters(in.Parameters); err != nil {
			return nil, fmt.Errorf("%w: parameters: %v", apperrors.ErrValidation, err)
		}
	}
	if in.IsActive != nil {
		record.IsActive = *in.IsActive
	}

	sched, err := s.validate(record)
	if err != nil {
		return nil, err
	}
	record.NextRun = sched.Next(s.now().UTC())

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to update scheduled report: %w", err)
	}

	if record.IsActive {
		s.register(record.ID, sched)
	} else {
		s.Cancel(record.ID)
	}
	s.logger.Info("Scheduled report updated",
		zap.Uint("report_id", record.ID),
		zap.Bool("active", record.IsActive))
	return record, nil
}

// Delete removes a scheduled report and its timer. Only its owner or an admin may do so.
func (s *Scheduler) Delete(ctx context.Context, id uint, actor Actor) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canModify(record) {
		return fmt.Errorf("%w: scheduled report %d belongs to another user", apperrors.ErrForbidden, id)
	}

	if err := s.db.WithContext(ctx).Delete(record).Error; err != nil {
		return fmt.Errorf("failed to delete scheduled report: %w", err)
	}
	s.Cancel(id)

	s.logger.Info("Scheduled report deleted", zap.Uint("report_id", id))
	return nil
}

func (s *Scheduler) Get(ctx context.Context, id uint) (*models.ScheduledReport, error) {
	var record models.ScheduledReport
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: scheduled report %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get scheduled report: %w", err)
	}
	return &record, nil
}

func (s *Scheduler) List(ctx context.Context) ([]models.ScheduledReport, error) {
	var records []models.ScheduledReport
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list scheduled reports: %w", err)
	}
	return records, nil
}

// Register adds or replaces the timer of a stored record.
func (s *Scheduler) Register(record *models.ScheduledReport) error {
	sched, err := s.ParseSchedule(record.Schedule)
	if err != nil {
		return err
	}
	s.register(record.ID, sched)
	return nil
}

func (s *Scheduler) register(id uint, sched cron.Schedule) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
	}
	s.entries[id] = s.cron.Schedule(sched, cron.FuncJob(func() {
		s.run(id)
	}))
}

// Cancel removes the timer of a report, if any.
func (s *Scheduler) Cancel(id uint) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}

func (s *Scheduler) IsRegistered(id uint) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Scheduler) RegisteredCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// Reconcile registers a timer for every active record. Missed runs are not
// caught up. A record whose schedule no longer parses is marked failed and skipped.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	var records []models.ScheduledReport
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&records).Error; err != nil {
		return 0, fmt.Errorf("failed to load active scheduled reports: %w", err)
	}

	registered := 0
	for i := range records {
		record := &records[i]
		if err := s.Register(record); err != nil {
			s.logger.Error("Skipping scheduled report with invalid schedule",
				zap.Uint("report_id", record.ID),
				zap.String("schedule", record.Schedule),
				zap.Error(err))
			s.markFailed(ctx, record, err)
			continue
		}
		registered++
	}

	s.logger.Info("Scheduled reports registered", zap.Int("count", registered))
	return registered, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Report scheduler started", zap.Int("timers", s.RegisteredCount()))
}

// Stop halts the timers and waits for running firings until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Report scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(id uint) {
	ctx := context.Background()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	if err := s.fire(ctx, id); err != nil {
		s.logger.Error("Scheduled report run failed", zap.Uint("report_id", id), zap.Error(err))
	}
}

// fire runs one firing: re-read the record, build, deliver, record the outcome.
func (s *Scheduler) fire(ctx context.Context, id uint) error {
	start := time.Now()
	log := s.logger.With(zap.Uint("report_id", id), zap.String("run_id", uuid.NewString()))

	var record models.ScheduledReport
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug("Scheduled report no longer exists, dropping timer")
			s.Cancel(id)
			return nil
		}
		return fmt.Errorf("failed to load scheduled report: %w", err)
	}
	if !record.IsActive {
		log.Debug("Scheduled report is inactive, dropping timer")
		s.Cancel(id)
		return nil
	}

	release, ok, err := s.guard.Acquire(ctx, id)
	if err != nil {
		s.metrics.recordRun(time.Since(start), err)
		s.markFailed(ctx, &record, err)
		return err
	}
	if !ok {
		log.Info("Scheduled report is already running, skipping")
		s.metrics.recordSkip()
		return nil
	}
	defer release()

	now := s.now().UTC()
	params := record.ParameterMap()
	window := report.TrailingWindow(now, windowDays(params, s.windowDays))

	err = s.deliver(ctx, &record, window, params)
	s.metrics.recordRun(time.Since(start), err)
	if err != nil {
		s.markFailed(ctx, &record, err)
		return err
	}

	updates := map[string]interface{}{
		"last_run":   now,
		"status":     models.ScheduleStatusOK,
		"last_error": "",
	}
	if sched, perr := s.ParseSchedule(record.Schedule); perr == nil {
		updates["next_run"] = sched.Next(now)
	}
	if err := s.db.WithContext(ctx).Model(&models.ScheduledReport{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	log.Info("Scheduled report delivered",
		zap.String("type", string(record.Type)),
		zap.Int("recipients", len(record.RecipientList())),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, record *models.ScheduledReport, window report.Window, params map[string]interface{}) error {
	data, err := s.builder.Build(ctx, record.Type, window)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	delivery := notify.Delivery{
		Recipients: record.RecipientList(),
		ReportName: record.Name,
		Title:      data.Title,
		Period:     window.Label(),
		Summary:    data.Summary,
	}

	if raw, ok := params["attachment_format"].(string); ok && raw != "" {
		format, err := report.ParseFormat(raw)
		if err != nil {
			return err
		}
		export, err := report.Render(data, record.Name, format)
		if err != nil {
			return fmt.Errorf("failed to render attachment: %w", err)
		}
		delivery.Attachment = &notify.Attachment{
			Filename:    export.Filename,
			ContentType: export.ContentType,
			Content:     export.Content,
		}
	}

	return s.sender.Send(ctx, delivery)
}

// markFailed records a failed run. The timer stays registered and last_run is untouched.
func (s *Scheduler) markFailed(ctx context.Context, record *models.ScheduledReport, runErr error) {
	updates := map[string]interface{}{
		"status":     models.ScheduleStatusError,
		"last_error": runErr.Error(),
	}
	if err := s.db.WithContext(ctx).Model(&models.ScheduledReport{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		s.logger.Error("Failed to record scheduled report failure",
			zap.Uint("report_id", record.ID),
			zap.Error(err))
	}
	s.sender.NotifyFailure(ctx, record.Name, runErr)
}

func (s *Scheduler) Metrics() MetricsSnapshot {
	return s.metrics.snapshot()
}

func windowDays(params map[string]interface{}, fallback int) int {
	switch v := params["window_days"].(type) {
	case float64:
		if v >= 1 {
			return int(v)
		}
	case int:
		if v >= 1 {
			return v
		}
	}
	return fallback
}
