package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/johnquangdev/meeting-digest/pkg/config"
)

// BucketInspector reports archive bucket status for the health check
type BucketInspector interface {
	GetBucketInfo(ctx context.Context) (map[string]interface{}, error)
}

// Router holds all handlers
type Router struct {
	cfg               *config.Config
	summaryController *SummaryController
	storage           BucketInspector
}

// NewRouter creates a new router with all handlers. storage may be nil.
func NewRouter(cfg *config.Config, summaryController *SummaryController, storage BucketInspector) *Router {
	return &Router{
		cfg:               cfg,
		summaryController: summaryController,
		storage:           storage,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupSummaryRoutes(v1)
}

// setupSummaryRoutes configures summary generation and lookup routes
func (rt *Router) setupSummaryRoutes(g *echo.Group) {
	summaries := g.Group("/summaries")

	summaries.POST("", rt.summaryController.CreateSummary)
	summaries.POST("/stream", rt.summaryController.StreamSummary)
	summaries.GET("", rt.summaryController.ListSummaries)
	summaries.GET("/public/:publicId", rt.summaryController.GetSummaryByPublicID)
	summaries.GET("/:id", rt.summaryController.GetSummary)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	resp := map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"environment": rt.cfg.Server.Environment,
		"store":       rt.cfg.Store.Driver,
	}

	if rt.storage != nil {
		info, err := rt.storage.GetBucketInfo(c.Request().Context())
		if err != nil {
			resp["storage"] = map[string]interface{}{"error": "unavailable"}
		} else {
			resp["storage"] = info
		}
	}

	return c.JSON(http.StatusOK, resp)
}
