package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/config"
	"alfredoptarigan/call-auditor/internal/handlers"
	"alfredoptarigan/call-auditor/internal/repositories"
	"alfredoptarigan/call-auditor/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	zlog.Info("✅ Config loaded successfully")

	// Optional report archive
	var reportRepo repositories.ReportRepository
	if cfg.Database.Enabled {
		db, err := config.InitDatabase(cfg, zlog)
		if err != nil {
			zlog.Fatal("❌ Failed to initialize database", zap.Error(err))
		}
		reportRepo = repositories.NewReportRepository(db)
		zlog.Info("✅ Report archive enabled")
	}

	// Job store
	var jobRepo repositories.JobRepository
	if cfg.Redis.URL != "" {
		client, err := config.InitRedis(cfg)
		if err != nil {
			zlog.Fatal("❌ Failed to initialize redis", zap.Error(err))
		}
		defer client.Close()
		jobRepo = repositories.NewRedisJobRepository(client, cfg.Redis.JobTTL)
		zlog.Info("✅ Redis job store connected")
	} else {
		jobRepo = repositories.NewMemoryJobRepository()
		zlog.Info("✅ In-memory job store initialized")
	}

	// Initialize services
	storageService := services.NewStorageService(services.StorageOptions{
		UploadPath:         cfg.Storage.UploadPath,
		MaxFileSize:        cfg.Storage.MaxFileSize,
		AllowedFormats:     cfg.Storage.AllowedFormats,
		MaxFilesPerRequest: cfg.Storage.MaxFilesPerRequest,
	}, zlog)
	if err := storageService.EnsureUploadDir(); err != nil {
		zlog.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	catalog, err := services.NewCriterionCatalog(cfg.Catalog.Path)
	if err != nil {
		zlog.Fatal("❌ Failed to load criteria catalog", zap.Error(err))
	}
	zlog.Info("✅ Criteria catalog loaded", zap.Int("criteria", len(catalog.List())))

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(services.GeminiOptions{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		MaxAttempts:       cfg.Gemini.MaxAttempts,
	}, zlog)
	if err != nil {
		zlog.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
	}
	zlog.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))

	auditor := services.NewFileAuditor(geminiService, catalog, zlog)
	coordinator := services.NewCoordinator(auditor, storageService, cfg.Worker.Concurrency, zlog)
	auditService := services.NewAuditService(coordinator, reportRepo, zlog)
	streamer := services.NewProgressStreamer(auditService, zlog)
	tracker := services.NewJobTracker(jobRepo, auditService, zlog)
	zlog.Info("✅ Services initialized successfully", zap.Int("concurrency", cfg.Worker.Concurrency))

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(storageService, catalog)
	auditHandler := handlers.NewAuditHandler(storageService, auditService, streamer, tracker, zlog)
	jobHandler := handlers.NewJobHandler(tracker)
	reportHandler := handlers.NewReportHandler(reportRepo)
	zlog.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Call Auditor API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 15 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * cfg.Storage.MaxFilesPerRequest,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, handlers.Routes{
		Upload: uploadHandler,
		Audit:  auditHandler,
		Jobs:   jobHandler,
		Report: reportHandler,
	})

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Call Auditor API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/parameters",
				"POST /api/v1/upload",
				"POST /api/v1/audit",
				"POST /api/v1/audit/combined",
				"POST /api/v1/audit/stream",
				"POST /api/v1/audit/async",
				"GET /api/v1/audit/jobs/:id",
				"GET /api/v1/audit/jobs/:id/result",
				"GET /api/v1/reports/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			zlog.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("❌ Failed to start server", zap.Error(err))
	}

	// Background jobs are abandoned, their files still cleaned up.
	tracker.Stop()
	zlog.Info("👋 Server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
