package main

import (
	"access_service/internal/config"
	"access_service/internal/database/mongo"
	"access_service/internal/events"
	"access_service/internal/handlers"
	"access_service/internal/repository"
	"access_service/internal/service"
	"access_service/pkg/discovery"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/insights", "log", "access_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func rabbitURI(cfg *config.Config) string {
	if cfg.RabbitMQUser == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@rabbitmq:%s/", cfg.RabbitMQUser, cfg.RabbitMQPassword, cfg.RabbitMQPort)
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{})

	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Access Service is healthy")
	})

	eventPublisher, err := events.NewEventPublisher(rabbitURI(cfg))
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher, _ = events.NewEventPublisher("")
	}

	eventConsumer, err := events.NewEventConsumer(rabbitURI(cfg),
		repository.Repositories_instance.UserInfoRepository,
		repository.Repositories_instance.AccessRequestRepository)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
		} else {
			log.Println("Successfully started event consumer")
			defer eventConsumer.Close()
		}
	}

	// Initialize services
	notificationService := service.NewNotificationService(eventPublisher)
	hierarchyService := service.NewHierarchyService()
	tokenService := service.NewTokenService()
	autoApproveService := service.NewAutoApproveService()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := autoApproveService.SeedDefaultConfig(ctx); err != nil {
		log.Printf("Warning: Failed to seed auto-approve config: %v", err)
	}
	cancel()

	projectAccessService := service.NewProjectAccessService(hierarchyService, tokenService, notificationService)
	requestService := service.NewAccessRequestService(hierarchyService, autoApproveService, projectAccessService, notificationService)

	// Initialize and register handlers
	requestHandler := handlers.NewAccessRequestHandler(requestService, projectAccessService)
	requestHandler.RegisterRoutes(app)

	projectAccessHandler := handlers.NewProjectAccessHandler(projectAccessService, repository.Repositories_instance.ProjectConfigRepository)
	projectAccessHandler.RegisterRoutes(app)

	if err := discovery.ServiceDiscovery.Register(); err != nil {
		log.Printf("Warning: Failed to register with service discovery: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	mongo.DisconnectMongo()

	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
