package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportKind string

const (
	ReportKindRevenue        ReportKind = "revenue"
	ReportKindOccupancy      ReportKind = "occupancy"
	ReportKindGuestAnalytics ReportKind = "guest_analytics"
	ReportKindCustom         ReportKind = "custom"
)

func (k ReportKind) IsValid() bool {
	switch k {
	case ReportKindRevenue, ReportKindOccupancy, ReportKindGuestAnalytics, ReportKindCustom:
		return true
	}
	return false
}

type ScheduleStatus string

const (
	ScheduleStatusOK    ScheduleStatus = "ok"
	ScheduleStatusError ScheduleStatus = "error"
)

// ScheduledReport is a recurring report delivery. Schedule is a cron
// expression; Recipients keeps the order and duplicates it was created with.
type ScheduledReport struct {
	gorm.Model
	Name       string         `json:"name" gorm:"not null"`
	Type       ReportKind     `json:"type" gorm:"not null"`
	Schedule   string         `json:"schedule" gorm:"not null"`
	Recipients datatypes.JSON `json:"recipients"`
	Parameters datatypes.JSON `json:"parameters"`
	IsActive   bool           `json:"is_active" gorm:"index"`
	LastRun    *time.Time     `json:"last_run"`
	NextRun    time.Time      `json:"next_run"`
	OwnerID    uint           `json:"owner_id" gorm:"index"`
	Status     ScheduleStatus `json:"status" gorm:"not null"`
	LastError  string         `json:"last_error,omitempty"`
}

func (r *ScheduledReport) RecipientList() []string {
	var recipients []string
	if len(r.Recipients) == 0 {
		return recipients
	}
	_ = json.Unmarshal(r.Recipients, &recipients)
	return recipients
}

func (r *ScheduledReport) SetRecipients(recipients []string) error {
	if recipients == nil {
		recipients = []string{}
	}
	raw, err := json.Marshal(recipients)
	if err != nil {
		return err
	}
	r.Recipients = datatypes.JSON(raw)
	return nil
}

func (r *ScheduledReport) ParameterMap() map[string]interface{} {
	params := map[string]interface{}{}
	if len(r.Parameters) == 0 {
		return params
	}
	_ = json.Unmarshal(r.Parameters, &params)
	return params
}

func (r *ScheduledReport) SetParameters(params map[string]interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	r.Parameters = datatypes.JSON(raw)
	return nil
}

// Report is a saved ad-hoc report. Data holds the serialized report payload.
type Report struct {
	gorm.Model
	Name       string         `json:"name" gorm:"not null"`
	Type       ReportKind     `json:"type" gorm:"index;not null"`
	StartDate  time.Time      `json:"start_date"`
	EndDate    time.Time      `json:"end_date"`
	Data       datatypes.JSON `json:"data"`
	Summary    string         `json:"summary"`
	Parameters datatypes.JSON `json:"parameters"`
	OwnerID    uint           `json:"owner_id" gorm:"index"`
}
