package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hoteldesk/internal/api"
	"github.com/hoteldesk/internal/auth"
	"github.com/hoteldesk/internal/config"
	"github.com/hoteldesk/internal/database"
	"github.com/hoteldesk/internal/hotel"
	"github.com/hoteldesk/internal/logging"
	"github.com/hoteldesk/internal/notify"
	"github.com/hoteldesk/internal/report"
	"github.com/hoteldesk/internal/scheduler"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "hoteldesk")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	if err := database.Initialize(cfg, logger); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	db := database.GetDB()
	ctx := context.Background()

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, db)
	if cfg.Auth.AdminPassword != "" {
		if err := authn.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminEmail, logger); err != nil {
			logger.Fatal("Failed to bootstrap admin user", zap.Error(err))
		}
	}

	reports := report.NewService(db, logger)
	dispatcher := notify.NewDispatcher(&notify.Config{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		Username:     cfg.Email.Username,
		Password:     cfg.Email.Password,
		EmailFrom:    cfg.Email.From,
		SlackToken:   cfg.Slack.Token,
		SlackChannel: cfg.Slack.Channel,
	}, logger)

	guard, closeGuard := newGuard(cfg, logger)
	defer closeGuard()

	sched := scheduler.New(db, reports.Builder(), dispatcher, logger.Named("scheduler"), scheduler.Options{
		MaxConcurrentRuns: cfg.Scheduler.MaxConcurrentRuns,
		WindowDays:        cfg.Scheduler.WindowDays,
		Guard:             guard,
	})

	// Re-arm timers of active schedules
	registered, err := sched.Reconcile(ctx)
	if err != nil {
		logger.Fatal("Failed to load scheduled reports", zap.Error(err))
	}
	logger.Info("Scheduled reports loaded", zap.Int("registered", registered))
	sched.Start()

	server := api.NewServer(api.Services{
		Auth:      authn,
		Reports:   reports,
		Scheduler: sched,
		Hotel:     hotel.NewService(db, logger),
	}, api.Options{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		StatsDays:   cfg.Scheduler.WindowDays,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("API server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down API server", zap.Error(err))
	}
	// Waits for in-flight report runs
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
}

func newGuard(cfg *config.Config, logger *zap.Logger) (scheduler.Guard, func()) {
	switch cfg.Scheduler.Guard {
	case "memory":
		return scheduler.NewMemoryGuard(), func() {}
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		return scheduler.NewRedisGuard(client, cfg.Scheduler.LeaseTTL, logger.Named("guard")), func() { client.Close() }
	default:
		return scheduler.NoGuard{}, func() {}
	}
}
