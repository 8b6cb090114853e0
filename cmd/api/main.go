package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/johnquangdev/meeting-digest/docs"
	pkgvalidator "github.com/johnquangdev/meeting-digest/pkg/validator"

	"github.com/johnquangdev/meeting-digest/internal/adapter/handler"
	"github.com/johnquangdev/meeting-digest/internal/adapter/repository"
	"github.com/johnquangdev/meeting-digest/internal/domain/repositories"
	"github.com/johnquangdev/meeting-digest/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-digest/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-digest/internal/infrastructure/storage"
	aiuse "github.com/johnquangdev/meeting-digest/internal/usecase/ai"
	pkgai "github.com/johnquangdev/meeting-digest/pkg/ai"
	"github.com/johnquangdev/meeting-digest/pkg/config"
)

// @title           Meeting Digest API
// @version         1.0
// @description     Turns meeting transcripts into structured summaries with an overview, key decisions and action items.

// @BasePath  /v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	var closers []func(context.Context)

	// Summary store
	log.Printf("📦 Connecting to %s store...", cfg.Store.Driver)
	repo, closeStore, err := newSummaryStore(startupCtx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize summary store: %v", err)
	}
	closers = append(closers, closeStore)

	// Public-id cache
	var store cache.Store
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(startupCtx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		redisStore := cache.NewRedisStore(redisClient)
		closers = append(closers, func(context.Context) { _ = redisStore.Close() })
		store = redisStore
	} else {
		log.Println("📦 Using in-memory summary cache")
		memoryStore := cache.NewMemoryStore()
		closers = append(closers, func(context.Context) { _ = memoryStore.Close() })
		store = memoryStore
	}
	repo = repository.NewCachedSummaryRepository(repo, store, cfg.Redis.CacheTTL, logger)

	// Failed-output archive
	var archiver aiuse.ResponseArchiver
	var bucket handler.BucketInspector
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		minioClient, err := storage.NewMinIOClient(startupCtx, &cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		archiver = minioClient
		bucket = minioClient
	} else {
		log.Println("⚠️  Object storage disabled; unparseable model output will only be logged")
	}

	// AI components
	log.Println("🤖 Initializing AI components...")
	geminiClient := pkgai.NewGeminiClient(&cfg.Gemini, logger)
	aiService := aiuse.NewAIService(geminiClient, repo, archiver, logger)
	summaryController := handler.NewSummaryController(aiService, logger)

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, summaryController, bucket)
	router.Setup(e)

	// Start server
	go func() {
		addr := cfg.GetServerAddr()
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}
	if err := aiService.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Pending archive uploads abandoned: %v", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](ctx)
	}

	log.Println("✅ Server stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newSummaryStore opens the configured store and returns its repository and a close func
func newSummaryStore(ctx context.Context, cfg *config.Config) (repositories.SummaryRepository, func(context.Context), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		mongoDB, err := database.NewMongoDB(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.EnsureSummaryIndexes(ctx, mongoDB.Collection); err != nil {
			_ = mongoDB.Close(context.Background())
			return nil, nil, err
		}
		closeFn := func(ctx context.Context) { _ = mongoDB.Close(ctx) }
		return repository.NewMongoSummaryRepository(mongoDB.Collection), closeFn, nil

	default:
		db, err := database.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		// Production deployments should manage schema via scripts/migrate.go
		if cfg.Database.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				_ = database.CloseDB(db)
				return nil, nil, err
			}
		} else {
			log.Println("🔄 Skipping migrations; run scripts/migrate.go to manage the schema")
		}
		closeFn := func(context.Context) { _ = database.CloseDB(db) }
		return repository.NewSummaryRepository(db), closeFn, nil
	}
}
