package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskhive/go-reminder-service/internal/consumer"
	"github.com/taskhive/go-reminder-service/internal/delivery"
	"github.com/taskhive/go-reminder-service/internal/dlq"
	"github.com/taskhive/go-reminder-service/internal/handler"
	"github.com/taskhive/go-reminder-service/internal/middleware"
	"github.com/taskhive/go-reminder-service/internal/planner"
	"github.com/taskhive/go-reminder-service/internal/processor"
	"github.com/taskhive/go-reminder-service/internal/repository"
	"github.com/taskhive/go-reminder-service/internal/scheduler"
	"github.com/taskhive/go-reminder-service/internal/shared/config"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
	"github.com/taskhive/go-reminder-service/internal/shared/mongodb"
	"github.com/taskhive/go-reminder-service/internal/shared/rabbitmq"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Task Reminder Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize repositories
	recordRepo := repository.NewNotificationRecordRepository(mongoClient)
	taskRepo := repository.NewTaskRepository(mongoClient)
	failedRepo := repository.NewFailedRecordRepository(mongoClient)

	if err := recordRepo.EnsureIndexes(context.Background()); err != nil {
		log.Error("Failed to ensure record indexes", "error", err)
	}

	// Initialize delivery channel
	emailChannel := delivery.NewEmailChannel(cfg.SMTP, log)
	if !emailChannel.Configured() {
		log.Warn("SMTP credentials absent, notifications are disabled")
	}

	// Initialize planner and sweep processor
	notificationPlanner := planner.NewPlanner(recordRepo, time.Local, log)
	deadLetterQueue := dlq.NewDeadLetterQueue(failedRepo, log)
	sweepProcessor := processor.NewProcessor(
		recordRepo,
		taskRepo,
		emailChannel,
		deadLetterQueue,
		time.Duration(cfg.Sweep.SendTimeoutSeconds)*time.Second,
		cfg.Sweep.MaxDeliveryAttempts,
		log,
	)

	// Initialize sweep driver
	sweepDriver := scheduler.NewSweepDriver(sweepProcessor, cfg.Sweep.Schedule, log)
	if err := sweepDriver.Start(); err != nil {
		log.Fatal("Failed to start sweep driver", "error", err)
	}
	defer sweepDriver.Stop()

	// Initialize HTTP handlers
	sweepHandler := handler.NewSweepHandler(sweepDriver, log)
	scheduleHandler := handler.NewScheduleHandler(notificationPlanner, log)
	notificationHandler := handler.NewNotificationHandler(recordRepo, log)
	dlqHandler := handler.NewDLQHandler(deadLetterQueue, recordRepo, log)

	// Initialize rate limiter for the external trigger
	triggerLimiter := middleware.NewTriggerRateLimiter(cfg.Sweep.TriggerRateLimit, cfg.Sweep.TriggerRateBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Sweep trigger for the external cron
	router.POST("/internal/sweep", middleware.RateLimitMiddleware(triggerLimiter), sweepHandler.TriggerSweep)

	// API routes
	v1 := router.Group("/api/v1")
	{
		schedules := v1.Group("/schedules")
		{
			schedules.POST("", scheduleHandler.ScheduleTask)
			schedules.DELETE("/:taskId", scheduleHandler.CancelTask)
		}

		v1.GET("/notifications", notificationHandler.GetNotifications)

		dlqRoutes := v1.Group("/dlq")
		{
			dlqRoutes.GET("", dlqHandler.GetFailedNotifications)
			dlqRoutes.POST("/:id/retry", dlqHandler.RetryNotification)
		}
	}

	// Start task event consumer when RabbitMQ is configured
	if cfg.RabbitMQ.URL != "" {
		rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		defer rabbitMQClient.Close()

		eventConsumer := consumer.NewTaskEventConsumer(rabbitMQClient, notificationPlanner, sweepDriver, log)
		go func() {
			if err := eventConsumer.Start(); err != nil {
				log.Error("Task event consumer stopped", "error", err)
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set, task event consumer disabled")
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Task Reminder Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Task Reminder Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Task Reminder Service stopped")
}
