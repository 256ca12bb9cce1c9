package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeclock/internal/api"
	"timeclock/internal/config"
	"timeclock/internal/handler"
	"timeclock/internal/repository"
	"timeclock/internal/service"
	"timeclock/internal/shift"
	"timeclock/pkg/telegram"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const version = "v1.0.0"

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logrus.Info("Initializing config...")
	cfg := config.GetBotConfig()
	logrus.WithFields(logrus.Fields{
		"timezone":            cfg.Location().String(),
		"long_shift_hours":    cfg.Policy.LongShiftThresholdHours,
		"leave_day_hours":     cfg.Policy.LeaveDayFixedHours,
		"double_clock_in":     cfg.Policy.DoubleClockIn,
		"long_skips_leave":    cfg.Policy.LongShiftSkipsLeave,
		"alert_interval":      cfg.AlertInterval.String(),
		"http_addr":           cfg.HTTPAddr,
		"cors_allowed_origin": cfg.AllowedOrigins,
	}).Info("Config initialized")

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		logrus.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get database instance:", err)
	}

	// sqlite leaves foreign keys off unless asked
	if _, err = sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logrus.Warnf("Failed to enable foreign keys: %v", err)
	}

	logger := logrus.StandardLogger()

	userRepo, err := repository.NewUserRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create user repository")
	}
	eventRepo, err := repository.NewGormClockEventRepository(db, logger)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create clock event repository")
	}
	bookingRepo, err := repository.NewGormLeaveBookingRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create leave booking repository")
	}
	dayRepo, err := repository.NewGormNonWorkingDayRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create non-working day repository")
	}

	pipeline := service.NewPipeline(shift.Options{
		Policy:   cfg.Policy,
		Location: cfg.Location(),
		Now:      time.Now,
		Logger:   logger,
	})

	userService := service.NewUserService(&userRepo)
	calendarService := service.NewNonWorkingDayService(dayRepo)
	clockService := service.NewClockService(eventRepo, &userRepo, pipeline, logger)
	leaveService := service.NewLeaveService(bookingRepo, calendarService, pipeline, logger)
	reportService := service.NewReportService(eventRepo, &userRepo, calendarService, pipeline, logger)

	if err := userService.InitializeAdmin(cfg.BaseAdminChatID); err != nil {
		logrus.Warnf("Failed to initialize admin: %v", err)
	} else if cfg.BaseAdminChatID != 0 {
		logrus.Infof("Admin initialized with chat ID: %d", cfg.BaseAdminChatID)
	}

	if cfg.CalendarFile != "" {
		n, err := calendarService.LoadFromJSON(cfg.CalendarFile)
		if err != nil {
			logrus.WithError(err).Warn("Failed to load production calendar")
		} else {
			logrus.Infof("Loaded %d non-working days from %s", n, cfg.CalendarFile)
		}
	}

	client, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramDebug)
	if err != nil {
		logrus.Fatal("Failed to create Telegram client:", err)
	}

	logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client,
		userService,
		clockService,
		leaveService,
		reportService,
		calendarService,
		cfg,
	)

	router := api.NewRouter(
		api.NewLogger(os.Stdout, version),
		cfg.AllowedOrigins,
		api.NewTimeclockHandler(clockService, reportService),
	)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logrus.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	alerts := service.NewAlertService(reportService, userService, client, cfg.AlertInterval, logger)
	go alerts.Run(ctx)

	go botHandler.HandleUpdates(client.Updates())

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	<-ctx.Done()

	client.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown failed")
	}

	if err := sqlDB.Close(); err != nil {
		logrus.Infof("Error closing database: %v", err)
	}

	logrus.Info("Bot stopped gracefully")
}
