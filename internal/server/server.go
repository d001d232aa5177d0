// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"streamlens/internal/cache"
	"streamlens/internal/config"
	"streamlens/internal/database"
	"streamlens/internal/featureflags"
	"streamlens/internal/ingest"
	"streamlens/internal/middleware"
	"streamlens/internal/models"
	"streamlens/internal/notifications"
	"streamlens/internal/orders"
	"streamlens/internal/repository"
	"streamlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	streamRepo  repository.StreamRepository
	commentRepo repository.CommentRepository
	statRepo    repository.StatRepository
	sessionRepo repository.SessionRepository

	captureService   *service.CaptureService
	linkService      *service.LinkService
	analyticsService *service.AnalyticsService
	reportService    *service.ReportService

	notifier   *notifications.Notifier
	reportHub  *notifications.ReportHub
	ingestHub  *ingest.Hub
	feedClient *ingest.FeedClient

	featureFlags *featureflags.Manager
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	streamRepo := repository.NewStreamRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	statRepo := repository.NewStatRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	server := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		streamRepo:  streamRepo,
		commentRepo: commentRepo,
		statRepo:    statRepo,
		sessionRepo: sessionRepo,
	}

	var orderClient service.OrderLister
	if cfg.OrderAPIBaseURL != "" {
		orderClient = orders.NewClient(cfg.OrderAPIBaseURL, cfg.OrderAPIToken,
			orders.WithMaxPages(cfg.OrderMaxPages),
			orders.WithPageDelay(time.Duration(cfg.OrderPageDelayMS)*time.Millisecond),
		)
	}

	server.notifier = notifications.NewNotifier(redisClient)
	server.reportHub = notifications.NewReportHub()
	server.featureFlags = featureflags.NewManager(cfg.FeatureFlags)

	server.captureService = service.NewCaptureService(streamRepo, commentRepo, statRepo, nil)
	server.linkService = service.NewLinkService(streamRepo, sessionRepo, commentRepo)
	server.analyticsService = service.NewAnalyticsService(streamRepo, commentRepo, orderClient, cfg.FlashSaleThreshold)
	server.reportService = service.NewReportService(
		streamRepo, commentRepo, statRepo,
		server.analyticsService, server.notifier,
		cfg.FlashSaleThreshold, cfg.CorpusSampleCap,
	)

	server.ingestHub = ingest.NewHub(streamRepo, commentRepo, statRepo, cfg.IngestBuffer, cfg.IngestWorkers)
	if cfg.FeedURL != "" {
		server.feedClient = ingest.NewFeedClient(cfg.FeedURL, server.ingestHub)
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and Room ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics and /metrics endpoint
	middleware.InitMetrics(app)

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// CORS before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (300 requests per minute per IP; the ingest
	// push endpoints carry sustained event traffic)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Stream reads are open; lifecycle mutations need an operator token.
	streams := api.Group("/streams")
	streams.Get("/", s.GetStreams)
	streams.Get("/:id/comments", s.GetStreamComments)
	streams.Get("/:id/stats", s.GetStreamStats)
	streams.Get("/:id/analytics/products", s.GetProductInterest)
	streams.Get("/:id/analytics/sentiment", s.GetSentimentBreakdown)
	streams.Get("/:id/analytics/categories", s.GetCategoryBreakdown)
	streams.Get("/:id/analytics/gmv", s.GetGMVSeries)
	streams.Get("/:id/flash-sales", s.GetFlashSales)
	streams.Get("/:id/report", s.GetReport)
	streams.Get("/:id/links", s.GetLinks)
	streams.Get("/:id", s.GetStream)

	protected := api.Group("/streams", middleware.AuthRequired)
	protected.Post("/start", middleware.RateLimit(
		s.redis, 10, time.Minute, "start_capture"), s.StartCapture)
	protected.Post("/:id/stop", s.StopCapture)
	protected.Post("/:id/fail", s.FailCapture)
	protected.Post("/:id/merge", middleware.RateLimit(
		s.redis, 10, time.Minute, "merge_streams"), s.MergeStreams)
	protected.Post("/:id/links", s.CreateLink)
	protected.Post("/:id/links/auto", s.AutoLink)
	protected.Delete("/:id/links/:sessionId", s.DeleteLink)
	protected.Post("/:id/report/send", s.SendReport)
	protected.Delete("/:id", s.DeleteStream)

	api.Get("/feature-flags", middleware.AuthRequired, s.GetFeatureFlags)

	// Ingest push endpoints for relays that cannot hold a feed socket.
	ingestGroup := api.Group("/ingest", middleware.AuthRequired)
	ingestGroup.Post("/events", s.IngestEvents)

	api.Get("/ingest/ws", middleware.WebSocketAuthRequired, s.IngestWebSocketHandler())

	// Dashboard report stream
	api.Get("/ws/reports", middleware.WebSocketAuthRequired, s.ReportWebSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional; caching and report fan-out degrade without it.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "StreamLens API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Workers run on a background context; Shutdown drains them explicitly
	// after the feed stops producing.
	s.ingestHub.Start(context.Background())
	if s.feedClient != nil {
		go s.feedClient.Run(ctx)
	}
	go func() {
		if err := s.reportHub.StartWiring(ctx, s.notifier); err != nil {
			log.Printf("failed to start report hub wiring: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the feed client and hub wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Drain buffered ingest events before the DB goes away
	if err := s.ingestHub.Shutdown(ctx); err != nil {
		log.Printf("error draining ingest hub: %v", err)
	}

	if err := s.reportHub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down report hub: %v", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
