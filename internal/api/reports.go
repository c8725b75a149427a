package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/report"
	"github.com/hoteldesk/internal/scheduler"
	"go.uber.org/zap"
)

type customReportRequest struct {
	Type       models.ReportKind      `json:"type"`
	StartDate  string                 `json:"start_date"`
	EndDate    string                 `json:"end_date"`
	Parameters map[string]interface{} `json:"parameters"`
}

func (s *Server) listReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	reports, err := s.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) getReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	stored, err := s.reports.GetReport(c.Request.Context(), id)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) generateCustomReport(c *gin.Context) {
	var req customReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	w, err := report.ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	actor := actorFrom(c)
	stored, err := s.reports.GenerateCustomReport(c.Request.Context(), req.Type, w, req.Parameters, actor.UserID)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (s *Server) exportReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	export, err := s.reports.ExportReport(c.Request.Context(), id, format)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

func (s *Server) reportsOverview(c *gin.Context) {
	overview, err := s.reports.ReportsOverview(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) revenueReport(c *gin.Context) {
	s.buildReport(c, models.ReportKindRevenue)
}

func (s *Server) occupancyReport(c *gin.Context) {
	s.buildReport(c, models.ReportKindOccupancy)
}

func (s *Server) guestAnalyticsReport(c *gin.Context) {
	s.buildReport(c, models.ReportKindGuestAnalytics)
}

// buildReport answers the read-only report queries. Nothing is persisted.
func (s *Server) buildReport(c *gin.Context, kind models.ReportKind) {
	w, err := report.ParseWindow(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	data, err := s.reports.Builder().Build(c.Request.Context(), kind, w)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) dashboardStats(c *gin.Context) {
	stats, err := s.reports.DashboardStats(c.Request.Context(), s.now())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) revenueStats(c *gin.Context) {
	days, ok := s.statsDaysFrom(c)
	if !ok {
		return
	}
	points, err := s.reports.RevenueStats(c.Request.Context(), s.now(), days)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) occupancyStats(c *gin.Context) {
	days, ok := s.statsDaysFrom(c)
	if !ok {
		return
	}
	points, err := s.reports.OccupancyStats(c.Request.Context(), s.now(), days)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) statsDaysFrom(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return s.statsDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 366 {
		apperrors.RespondWithError(c, fmt.Errorf("%w: days must be between 1 and 366", apperrors.ErrValidation))
		return 0, false
	}
	return days, true
}

func (s *Server) listScheduledReports(c *gin.Context) {
	records, err := s.scheduler.List(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) createScheduledReport(c *gin.Context) {
	var in scheduler.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, err := s.scheduler.Schedule(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) updateScheduledReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in scheduler.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, err := s.scheduler.Update(c.Request.Context(), id, in, actorFrom(c))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteScheduledReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.scheduler.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		apperrors.RespondWithError(c, err)
		return
	}

	s.logger.Info("Scheduled report deleted", zap.Uint("report_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Scheduled report deleted successfully"})
}
