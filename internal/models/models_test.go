package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingNights(t *testing.T) {
	in := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		out  time.Time
		want int
	}{
		{"same instant", in, 0},
		{"checkout before checkin", in.Add(-time.Hour), 0},
		{"exactly two days", in.Add(48 * time.Hour), 2},
		{"partial day rounds up", in.Add(49 * time.Hour), 3},
		{"late checkout", in.Add(20 * time.Hour), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Booking{CheckIn: in, CheckOut: tc.out}
			assert.Equal(t, tc.want, b.Nights())
		})
	}
}

func TestScheduledReportRecipientsKeepOrderAndDuplicates(t *testing.T) {
	var sr ScheduledReport
	require.NoError(t, sr.SetRecipients([]string{"b@hotel.test", "a@hotel.test", "b@hotel.test"}))
	assert.Equal(t, []string{"b@hotel.test", "a@hotel.test", "b@hotel.test"}, sr.RecipientList())

	var empty ScheduledReport
	assert.Empty(t, empty.RecipientList())
}

func TestScheduledReportParameters(t *testing.T) {
	var sr ScheduledReport
	assert.Empty(t, sr.ParameterMap())

	require.NoError(t, sr.SetParameters(map[string]interface{}{"window_days": 7}))
	params := sr.ParameterMap()
	assert.Equal(t, float64(7), params["window_days"])

	require.NoError(t, sr.SetParameters(nil))
	assert.Equal(t, "{}", string(sr.Parameters))
}

func TestReportKindIsValid(t *testing.T) {
	assert.True(t, ReportKindRevenue.IsValid())
	assert.True(t, ReportKindCustom.IsValid())
	assert.False(t, ReportKind("weekly").IsValid())
}

func TestUserPermissions(t *testing.T) {
	admin := User{Role: RoleAdmin}
	manager := User{Role: RoleManager}
	staff := User{Role: RoleStaff}

	assert.True(t, admin.HasPermission("manage_users"))
	assert.False(t, manager.HasPermission("manage_users"))
	assert.True(t, manager.HasPermission("manage_reports"))
	assert.False(t, staff.HasPermission("manage_reports"))
	assert.True(t, staff.HasPermission("view_reports"))
}

func TestUserPassword(t *testing.T) {
	var u User
	require.NoError(t, u.SetPassword("s3cret"))
	assert.NotEqual(t, "s3cret", u.Password)
	assert.True(t, u.CheckPassword("s3cret"))
	assert.False(t, u.CheckPassword("wrong"))
}
