package client

import (
	"fmt"
	"mime"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/report"
	"github.com/hoteldesk/internal/scheduler"
)

// Client talks to the HotelDesk API on behalf of the CLI.
type Client struct {
	http *resty.Client
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func NewClient(baseURL, token string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		http.SetAuthToken(token)
	}
	return &Client{http: http}
}

func (c *Client) do(req *resty.Request, method, path string) (*resty.Response, error) {
	req.SetError(&errorResponse{})
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*errorResponse); ok {
			apiErr.Code = body.Error.Code
			apiErr.Message = body.Error.Message
			apiErr.Details = body.Error.Details
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) Login(username, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	req := c.http.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&result)
	if _, err := c.do(req, resty.MethodPost, "/api/v1/auth/login"); err != nil {
		return "", err
	}
	return result.Token, nil
}

// Report runs one of the read-only report queries: revenue, occupancy or
// guest-analytics.
func (c *Client) Report(kind, startDate, endDate string) (*report.ReportData, error) {
	var data report.ReportData
	req := c.http.R().
		SetQueryParams(map[string]string{"start_date": startDate, "end_date": endDate}).
		SetResult(&data)
	if _, err := c.do(req, resty.MethodGet, "/api/v1/reports/"+kind); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) GenerateReport(kind models.ReportKind, startDate, endDate string, params map[string]interface{}) (*models.Report, error) {
	var stored models.Report
	req := c.http.R().
		SetBody(map[string]interface{}{
			"type":       kind,
			"start_date": startDate,
			"end_date":   endDate,
			"parameters": params,
		}).
		SetResult(&stored)
	if _, err := c.do(req, resty.MethodPost, "/api/v1/reports/custom"); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (c *Client) ListReports(limit int) ([]models.Report, error) {
	var reports []models.Report
	req := c.http.R().SetResult(&reports)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if _, err := c.do(req, resty.MethodGet, "/api/v1/reports"); err != nil {
		return nil, err
	}
	return reports, nil
}

// ExportReport downloads a saved report. The filename comes from the
// server's Content-Disposition header.
func (c *Client) ExportReport(id uint, format string) ([]byte, string, error) {
	req := c.http.R().
		SetPathParam("id", strconv.FormatUint(uint64(id), 10)).
		SetQueryParam("format", format)
	resp, err := c.do(req, resty.MethodGet, "/api/v1/reports/{id}/export")
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("report_%d.%s", id, format)
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return resp.Body(), filename, nil
}

func (c *Client) ListScheduledReports() ([]models.ScheduledReport, error) {
	var records []models.ScheduledReport
	if _, err := c.do(c.http.R().SetResult(&records), resty.MethodGet, "/api/v1/reports/scheduled"); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) CreateScheduledReport(in scheduler.Input) (*models.ScheduledReport, error) {
	var record models.ScheduledReport
	req := c.http.R().SetBody(in).SetResult(&record)
	if _, err := c.do(req, resty.MethodPost, "/api/v1/reports/scheduled"); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) UpdateScheduledReport(id uint, in scheduler.Input) (*models.ScheduledReport, error) {
	var record models.ScheduledReport
	req := c.http.R().
		SetPathParam("id", strconv.FormatUint(uint64(id), 10)).
		SetBody(in).
		SetResult(&record)
	if _, err := c.do(req, resty.MethodPut, "/api/v1/reports/scheduled/{id}"); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) DeleteScheduledReport(id uint) error {
	req := c.http.R().SetPathParam("id", strconv.FormatUint(uint64(id), 10))
	_, err := c.do(req, resty.MethodDelete, "/api/v1/reports/scheduled/{id}")
	return err
}

func (c *Client) Dashboard() (*report.Dashboard, error) {
	var stats report.Dashboard
	if _, err := c.do(c.http.R().SetResult(&stats), resty.MethodGet, "/api/v1/dashboard/stats"); err != nil {
		return nil, err
	}
	return &stats, nil
}
