package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/vcredible/vcredible-api/internal/config"
	"github.com/vcredible/vcredible-api/internal/database"
	"github.com/vcredible/vcredible-api/internal/handlers"
	"github.com/vcredible/vcredible-api/internal/middleware"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/utils"

	_ "github.com/vcredible/vcredible-api/docs/api" // Swagger docs
)

// @title vCredible API
// @version 1.0.0
// @description Credit rating platform backend: company applications, credit reports and the customer dashboard
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/vcredible/vcredible-api

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          utils.GlobalErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("vcredible")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	appHandler := &handlers.ApplicationHandler{DB: db, Cfg: cfg}
	dashHandler := &handlers.DashboardHandler{DB: db, Cfg: cfg}
	ratingHandler := &handlers.RatingHandler{DB: db, Cfg: cfg}

	// Account and session routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/token/refresh", authHandler.Refresh)
	auth.Post("/logout", middleware.AuthOptional(cfg), authHandler.Logout)
	auth.Post("/change-password", middleware.AuthRequired(cfg), authHandler.ChangePassword)
	auth.Get("/profile", middleware.AuthRequired(cfg), authHandler.Me)
	auth.Put("/profile", middleware.AuthRequired(cfg), authHandler.UpdateMe)

	// Application form routes; submission works for anonymous callers too
	form := api.Group("/form")
	form.Post("/applications/create", middleware.AuthOptional(cfg), appHandler.Submit)
	form.Get("/applications", middleware.AuthRequired(cfg), appHandler.List)
	form.Get("/applications/summary", middleware.AuthRequired(cfg), appHandler.Summary)
	form.Post("/applications/documents/upload", middleware.AuthRequired(cfg), appHandler.UploadDocuments)
	form.Get("/applications/:id", middleware.AuthRequired(cfg), appHandler.Get)
	form.Put("/applications/:id/update", middleware.AuthRequired(cfg), appHandler.Update)
	form.Get("/applications/:id/status", middleware.AuthRequired(cfg), appHandler.Status)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/rating-grades", ratingHandler.Grades)
	dashboard.Use(middleware.AuthRequired(cfg))
	dashboard.Get("/overview", dashHandler.Overview)
	dashboard.Get("/profile", dashHandler.Profile)
	dashboard.Put("/profile", dashHandler.UpdateProfile)
	dashboard.Get("/activities", dashHandler.Activities)
	dashboard.Get("/credit-ratings", ratingHandler.List)
	dashboard.Get("/credit-ratings/:id", ratingHandler.Detail)
	dashboard.Get("/reports/active", ratingHandler.ActiveReports)
	dashboard.Get("/reports/history", ratingHandler.History)
	dashboard.Post("/actions/download-report", ratingHandler.Download)
	dashboard.Post("/actions/print-invoice", ratingHandler.PrintInvoice)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}
