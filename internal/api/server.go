package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/auth"
	"github.com/hoteldesk/internal/hotel"
	"github.com/hoteldesk/internal/logging"
	"github.com/hoteldesk/internal/models"
	"github.com/hoteldesk/internal/report"
	"github.com/hoteldesk/internal/scheduler"
	"go.uber.org/zap"
)

type Services struct {
	Auth      *auth.Authenticator
	Reports   *report.Service
	Scheduler *scheduler.Scheduler
	Hotel     *hotel.Service
}

type Options struct {
	Port        int
	CORSOrigins []string
	// StatsDays is the default trailing window of the /stats endpoints.
	StatsDays int
}

type Server struct {
	auth       *auth.Authenticator
	reports    *report.Service
	scheduler  *scheduler.Scheduler
	hotel      *hotel.Service
	logger     *zap.Logger
	router     *gin.Engine
	httpServer *http.Server
	statsDays  int
	now        func() time.Time
}

func NewServer(services Services, opts Options, logger *zap.Logger) *Server {
	if opts.StatsDays <= 0 {
		opts.StatsDays = 30
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	corsConfig.AllowCredentials = true
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	server := &Server{
		auth:      services.Auth,
		reports:   services.Reports,
		scheduler: services.Scheduler,
		hotel:     services.Hotel,
		logger:    logger,
		router:    router,
		statsDays: opts.StatsDays,
		now:       time.Now,
	}
	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(s.auth.Middleware())

	manage := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	reports := api.Group("/reports")
	{
		reports.GET("", s.listReports)
		reports.GET("/overview", s.reportsOverview)
		reports.GET("/revenue", s.revenueReport)
		reports.GET("/occupancy", s.occupancyReport)
		reports.GET("/guest-analytics", s.guestAnalyticsReport)
		reports.POST("/custom", manage, s.generateCustomReport)
		reports.GET("/scheduled", s.listScheduledReports)
		reports.POST("/scheduled", manage, s.createScheduledReport)
		reports.PUT("/scheduled/:id", manage, s.updateScheduledReport)
		reports.DELETE("/scheduled/:id", manage, s.deleteScheduledReport)
		reports.GET("/:id", s.getReport)
		reports.GET("/:id/export", s.exportReport)
	}

	api.GET("/dashboard/stats", s.dashboardStats)
	api.GET("/stats/revenue", s.revenueStats)
	api.GET("/stats/occupancy", s.occupancyStats)

	api.GET("/rooms", s.listRooms)
	api.POST("/rooms", manage, s.createRoom)
	api.GET("/guests", s.listGuests)
	api.POST("/guests", s.createGuest)
	api.GET("/bookings", s.listBookings)
	api.POST("/bookings", s.createBooking)
	api.PUT("/bookings/:id/status", s.setBookingStatus)
	api.POST("/bookings/:id/checkout", s.checkOutBooking)

	// User management endpoints
	admin := api.Group("/admin")
	admin.Use(auth.RequireRole(models.RoleAdmin))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"scheduled_timers": s.scheduler.RegisteredCount(),
		"scheduler":        s.scheduler.Metrics(),
	})
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	token, user, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.auth.ListUsers(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) createUser(c *gin.Context) {
	var req auth.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := s.auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func respondBadRequest(c *gin.Context, err error) {
	apperrors.RespondWithError(c, apperrors.NewAPIError(http.StatusBadRequest, apperrors.CodeBadRequest,
		"Invalid request payload.", err.Error()))
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.RespondWithError(c, apperrors.NewAPIError(http.StatusBadRequest, apperrors.CodeBadRequest,
			"Invalid ID.", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func actorFrom(c *gin.Context) scheduler.Actor {
	user, _ := auth.CurrentUser(c)
	return scheduler.Actor{UserID: user.ID, Role: user.Role}
}
