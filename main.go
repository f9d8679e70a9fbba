package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yeremiapane/restobooker/config"
	"github.com/yeremiapane/restobooker/mq"
	"github.com/yeremiapane/restobooker/router"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	utils.SetJWTSecret(cfg.JWTSecret, cfg.JWTTTL)

	window, err := cfg.OperatingWindow()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid operating window: %v", err)
	}
	utils.InfoLogger.Printf("Operating window %s-%s, visit %dm, buffer %dm (%s)",
		window.Open, window.Close, window.VisitMinutes, window.BufferMinutes, window.Location)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if _, err := config.SeedAdmin(db, cfg); err != nil {
		utils.ErrorLogger.Printf("Failed to seed admin: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, err := newQueue(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to start notification queue: %v", err)
	}

	clock := services.RealClock{}
	site := services.SiteInfo{BaseURL: cfg.SiteBaseURL, Location: window.Location}
	tokens := services.NewSignedTokens(cfg.SigningSecret, clock)
	mailer := utils.NewSMTPMailer(cfg.SMTP)
	worker := services.NewNotificationWorker(db, mailer, tokens, site, clock, cfg.ManagerEmail)
	if err := worker.Register(prometheus.DefaultRegisterer); err != nil {
		utils.ErrorLogger.Printf("Failed to register notification metrics: %v", err)
	}
	if err := queue.Consume(ctx, worker.Handle); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start notification consumer: %v", err)
	}

	monitor := services.NewReminderMonitor(db, queue, clock)
	monitor.Interval = cfg.ReminderPollInterval
	monitor.Start()

	utils.StartBlacklistCleanup(ctx, time.Hour)

	r := router.SetupRouter(router.Deps{
		DB:                  db,
		Window:              window,
		Notifier:            services.NewNotificationDispatcher(queue, 2*time.Second),
		Tokens:              tokens,
		Site:                site,
		Clock:               clock,
		Metrics:             worker,
		ReminderHoursBefore: cfg.ReminderHoursBefore,
		CORSOrigins:         cfg.CORSOrigins,
		MediaURL:            cfg.MediaURL,
		RateLimit:           50,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}

	monitor.Stop()
	cancel()
	if err := queue.Close(); err != nil {
		utils.ErrorLogger.Printf("Failed to close notification queue: %v", err)
	}
	utils.InfoLogger.Println("Server exited")
}

func newQueue(cfg *config.Config) (mq.Queue, error) {
	switch cfg.NotifyBackend {
	case "amqp":
		return mq.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue)
	case "memory", "":
		return mq.NewMemoryQueue(256, cfg.NotifyWorkers), nil
	}
	return nil, errors.New("unknown NOTIFY_BACKEND " + cfg.NotifyBackend)
}
