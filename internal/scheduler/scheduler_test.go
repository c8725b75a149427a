package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/database"
	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/notify"
	"github.com/hoteldesk/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC)

type fakeBuilder struct {
	mutex   sync.Mutex
	windows []report.Window
	kinds   []models.ReportKind
	err     error
}

func (f *fakeBuilder) Build(_ context.Context, kind models.ReportKind, w report.Window) (*report.ReportData, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.windows = append(f.windows, w)
	f.kinds = append(f.kinds, kind)
	if f.err != nil {
		return nil, f.err
	}
	return &report.ReportData{
		Type:      kind,
		Title:     "Revenue Report",
		StartDate: w.Start,
		EndDate:   w.End,
		Summary:   "Total revenue of $0.00 from 0 bookings, with an average of $0.00 per booking.",
		Revenue:   &report.RevenueData{DailyRevenue: []report.Point{}, RevenueByRoomType: []report.Point{}},
		Charts:    []report.Chart{},
	}, nil
}

type fakeSender struct {
	mutex      sync.Mutex
	deliveries []notify.Delivery
	failures   []string
	err        error
}

func (f *fakeSender) Send(_ context.Context, d notify.Delivery) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, d)
	return nil
}

func (f *fakeSender) NotifyFailure(_ context.Context, name string, _ error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.failures = append(f.failures, name)
}

type fixture struct {
	db      *gorm.DB
	builder *fakeBuilder
	sender  *fakeSender
	sched   *Scheduler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	f := &fixture{db: db, builder: &fakeBuilder{}, sender: &fakeSender{}}
	f.sched = New(db, f.builder, f.sender, zap.NewNop(), opts)
	return f
}

var (
	manager = Actor{UserID: 1, Role: models.RoleManager}
	other   = Actor{UserID: 2, Role: models.RoleManager}
	admin   = Actor{UserID: 3, Role: models.RoleAdmin}
	staff   = Actor{UserID: 4, Role: models.RoleStaff}
)

func dailyInput() Input {
	return Input{
		Name:       "Daily revenue",
		Type:       models.ReportKindRevenue,
		Schedule:   "0 0 * * *",
		Recipients: []string{"gm@hotel.test", "owner@hotel.test", "gm@hotel.test"},
	}
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ScheduledReport{}).Count(&n).Error)
	return n
}

func TestScheduleCreatesOneRecordAndOneTimer(t *testing.T) {
	f := newFixture(t, Options{})

	record, err := f.sched.Schedule(context.Background(), dailyInput(), manager)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRecords(t, f.db))
	assert.Equal(t, 1, f.sched.RegisteredCount())
	assert.True(t, f.sched.IsRegistered(record.ID))

	stored, err := f.sched.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, models.ScheduleStatusOK, stored.Status)
	assert.Equal(t, uint(1), stored.OwnerID)
	assert.Nil(t, stored.LastRun)
	assert.True(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC).Equal(stored.NextRun))
	assert.Equal(t, []string{"gm@hotel.test", "owner@hotel.test", "gm@hotel.test"}, stored.RecipientList())
}

func TestScheduleAcceptsDescriptors(t *testing.T) {
	f := newFixture(t, Options{})
	in := dailyInput()
	in.Schedule = "@weekly"

	record, err := f.sched.Schedule(context.Background(), in, manager)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC).Equal(record.NextRun))
}

func TestScheduleRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		actor   Actor
		wantErr error
	}{
		{"short cron", func(in *Input) { in.Schedule = "* * *" }, manager, apperrors.ErrInvalidSchedule},
		{"out of range cron", func(in *Input) { in.Schedule = "61 0 * * *" }, manager, apperrors.ErrInvalidSchedule},
		{"unknown kind", func(in *Input) { in.Type = "forecast" }, manager, apperrors.ErrInvalidKind},
		{"no recipients", func(in *Input) { in.Recipients = nil }, manager, apperrors.ErrValidation},
		{"bad recipient", func(in *Input) { in.Recipients = []string{"front desk"} }, manager, apperrors.ErrValidation},
		{"bad window", func(in *Input) { in.Parameters = map[string]interface{}{"window_days": 0} }, manager, apperrors.ErrValidation},
		{"missing name", func(in *Input) { in.Name = "  " }, manager, apperrors.ErrValidation},
		{"staff", func(in *Input) {}, staff, apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			in := dailyInput()
			tt.mutate(&in)

			record, err := f.sched.Schedule(context.Background(), in, tt.actor)
			assert.Nil(t, record)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, countRecords(t, f.db))
			assert.Zero(t, f.sched.RegisteredCount())
		})
	}
}

func TestFireDelivers(t *testing.T) {
	f := newFixture(t, Options{WindowDays: 30})
	ctx := context.Background()
	in := dailyInput()
	in.Parameters = map[string]interface{}{"window_days": 7}
	record, err := f.sched.Schedule(ctx, in, manager)
	require.NoError(t, err)

	require.NoError(t, f.sched.fire(ctx, record.ID))

	require.Len(t, f.sender.deliveries, 1)
	delivery := f.sender.deliveries[0]
	assert.Equal(t, []string{"gm@hotel.test", "owner@hotel.test", "gm@hotel.test"}, delivery.Recipients)
	assert.Equal(t, "Daily revenue", delivery.ReportName)
	assert.Contains(t, delivery.Summary, "Total revenue")
	assert.Nil(t, delivery.Attachment)

	require.Len(t, f.builder.windows, 1)
	assert.Equal(t, fixedNow, f.builder.windows[0].End)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), f.builder.windows[0].Start)

	stored, err := f.sched.Get(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRun)
	assert.True(t, fixedNow.Equal(*stored.LastRun))
	assert.True(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC).Equal(stored.NextRun))
	assert.Equal(t, models.ScheduleStatusOK, stored.Status)
	assert.Empty(t, stored.LastError)

	assert.Equal(t, uint64(1), f.sched.Metrics().TotalRuns)
}

func TestFireUsesConfiguredWindow(t *testing.T) {
	f := newFixture(t, Options{WindowDays: 14})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	require.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Equal(t, fixedNow.AddDate(0, 0, -14), f.builder.windows[0].Start)
}

func TestFireAttachesExport(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	in := dailyInput()
	in.Parameters = map[string]interface{}{"attachment_format": "csv"}
	record, err := f.sched.Schedule(ctx, in, manager)
	require.NoError(t, err)

	require.NoError(t, f.sched.fire(ctx, record.ID))

	require.Len(t, f.sender.deliveries, 1)
	attachment := f.sender.deliveries[0].Attachment
	require.NotNil(t, attachment)
	assert.Equal(t, "text/csv", attachment.ContentType)
	assert.Contains(t, string(attachment.Content), "Section,Metric,Value")
}

func TestFireForDeletedRecordIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	// Delete the row behind the scheduler's back; the timer is still registered.
	require.NoError(t, f.db.Delete(&models.ScheduledReport{}, record.ID).Error)
	require.True(t, f.sched.IsRegistered(record.ID))

	assert.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Empty(t, f.sender.deliveries)
	assert.Empty(t, f.builder.windows)
	assert.False(t, f.sched.IsRegistered(record.ID))
}

func TestFireForInactiveRecordIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.ScheduledReport{}).Where("id = ?", record.ID).Update("is_active", false).Error)

	assert.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Empty(t, f.sender.deliveries)
}

func TestFireRecordsBuildFailure(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	f.builder.err = errors.New("database is locked")
	err = f.sched.fire(ctx, record.ID)
	require.Error(t, err)

	stored, err := f.sched.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusError, stored.Status)
	assert.Contains(t, stored.LastError, "database is locked")
	assert.Nil(t, stored.LastRun)
	assert.True(t, stored.IsActive)
	assert.True(t, f.sched.IsRegistered(record.ID))
	assert.Empty(t, f.sender.deliveries)
	assert.Equal(t, []string{"Daily revenue"}, f.sender.failures)
	assert.Equal(t, uint64(1), f.sched.Metrics().FailedRuns)

	// The next successful firing clears the error.
	f.builder.err = nil
	require.NoError(t, f.sched.fire(ctx, record.ID))
	stored, err = f.sched.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusOK, stored.Status)
	assert.Empty(t, stored.LastError)
}

func TestFireRecordsSendFailure(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	f.sender.err = errors.New("535 authentication failed")
	require.Error(t, f.sched.fire(ctx, record.ID))

	stored, err := f.sched.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusError, stored.Status)
	assert.Contains(t, stored.LastError, "535 authentication failed")
	assert.True(t, f.sched.IsRegistered(record.ID))
}

func TestFireSkipsWhenGuardHeld(t *testing.T) {
	guard := NewMemoryGuard()
	f := newFixture(t, Options{Guard: guard})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	release, ok, err := guard.Acquire(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Empty(t, f.sender.deliveries)
	assert.Equal(t, uint64(1), f.sched.Metrics().SkippedRuns)

	release()
	require.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Len(t, f.sender.deliveries, 1)
}

func TestFireRecordsGuardFailure(t *testing.T) {
	mr, client := setupTestRedis(t)
	f := newFixture(t, Options{Guard: NewRedisGuard(client, time.Minute, zap.NewNop())})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	mr.Close()
	err = f.sched.fire(ctx, record.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire run lease")

	stored, err := f.sched.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusError, stored.Status)
	assert.Contains(t, stored.LastError, "failed to acquire run lease")
	assert.Nil(t, stored.LastRun)
	assert.True(t, f.sched.IsRegistered(record.ID))
	assert.Empty(t, f.builder.kinds)
	assert.Empty(t, f.sender.deliveries)
	assert.Equal(t, []string{"Daily revenue"}, f.sender.failures)

	metrics := f.sched.Metrics()
	assert.Equal(t, uint64(1), metrics.TotalRuns)
	assert.Equal(t, uint64(1), metrics.FailedRuns)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	_, err = f.sched.Update(ctx, record.ID, Input{Name: "Hijacked"}, other)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.sched.Update(ctx, record.ID, Input{Schedule: "not a cron"}, manager)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)

	updated, err := f.sched.Update(ctx, record.ID, Input{Schedule: "0 9 * * 1", Recipients: []string{"ops@hotel.test"}}, manager)
	require.NoError(t, err)
	assert.Equal(t, "Daily revenue", updated.Name)
	assert.Equal(t, []string{"ops@hotel.test"}, updated.RecipientList())
	assert.True(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC).Equal(updated.NextRun))
	assert.True(t, f.sched.IsRegistered(record.ID))
	assert.Equal(t, 1, f.sched.RegisteredCount())

	inactive := false
	updated, err = f.sched.Update(ctx, record.ID, Input{IsActive: &inactive}, admin)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.False(t, f.sched.IsRegistered(record.ID))

	active := true
	_, err = f.sched.Update(ctx, record.ID, Input{IsActive: &active}, manager)
	require.NoError(t, err)
	assert.True(t, f.sched.IsRegistered(record.ID))

	_, err = f.sched.Update(ctx, 999, Input{Name: "x"}, admin)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	record, err := f.sched.Schedule(ctx, dailyInput(), manager)
	require.NoError(t, err)

	assert.ErrorIs(t, f.sched.Delete(ctx, record.ID, other), apperrors.ErrForbidden)
	assert.True(t, f.sched.IsRegistered(record.ID))

	require.NoError(t, f.sched.Delete(ctx, record.ID, admin))
	assert.False(t, f.sched.IsRegistered(record.ID))
	assert.Zero(t, countRecords(t, f.db))

	assert.ErrorIs(t, f.sched.Delete(ctx, record.ID, admin), apperrors.ErrNotFound)
	assert.NoError(t, f.sched.fire(ctx, record.ID))
	assert.Empty(t, f.sender.deliveries)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	seed := func(name, schedule string, active bool) *models.ScheduledReport {
		r := &models.ScheduledReport{
			Name:     name,
			Type:     models.ReportKindOccupancy,
			Schedule: schedule,
			Status:   models.ScheduleStatusOK,
			NextRun:  fixedNow,
			OwnerID:  1,
		}
		require.NoError(t, r.SetRecipients([]string{"gm@hotel.test"}))
		require.NoError(t, f.db.Create(r).Error)
		// IsActive false is the zero value, so set it explicitly.
		require.NoError(t, f.db.Model(r).Update("is_active", active).Error)
		return r
	}
	first := seed("first", "0 0 * * *", true)
	second := seed("second", "@hourly", true)
	paused := seed("paused", "0 0 * * *", false)
	broken := seed("broken", "every day", true)

	registered, err := f.sched.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, registered)
	assert.True(t, f.sched.IsRegistered(first.ID))
	assert.True(t, f.sched.IsRegistered(second.ID))
	assert.False(t, f.sched.IsRegistered(paused.ID))
	assert.False(t, f.sched.IsRegistered(broken.ID))

	stored, err := f.sched.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusError, stored.Status)
	assert.Contains(t, stored.LastError, "invalid schedule")

	// Reconciling again replaces timers instead of duplicating them.
	_, err = f.sched.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.sched.RegisteredCount())
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.sched.Schedule(context.Background(), dailyInput(), manager)
	require.NoError(t, err)

	f.sched.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, f.sched.Stop(ctx))
}

func TestWindowDays(t *testing.T) {
	assert.Equal(t, 30, windowDays(map[string]interface{}{}, 30))
	assert.Equal(t, 7, windowDays(map[string]interface{}{"window_days": float64(7)}, 30))
	assert.Equal(t, 7, windowDays(map[string]interface{}{"window_days": 7}, 30))
	assert.Equal(t, 30, windowDays(map[string]interface{}{"window_days": "7"}, 30))
	assert.Equal(t, 30, windowDays(map[string]interface{}{"window_days": float64(0)}, 30))
}
