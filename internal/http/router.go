package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pmcopilot/backend/internal/config"
	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/http/handlers"
	"github.com/pmcopilot/backend/internal/http/middleware"
	"github.com/pmcopilot/backend/internal/service"

	_ "github.com/pmcopilot/backend/docs"
)

// Services bundles the pipeline services the router exposes.
type Services struct {
	Insights    *service.InsightService
	Suggestions *service.SuggestionService
	Calibration *service.CalibrationService
	Query       *service.QueryService
	Review      *service.ReviewService
	Analytics   *service.AnalyticsService
}

func Router(cfg config.Config, store *db.Store, svc Services, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:        store,
		Insights:     svc.Insights,
		Suggestions:  svc.Suggestions,
		Calibration:  svc.Calibration,
		Query:        svc.Query,
		Review:       svc.Review,
		Analytics:    svc.Analytics,
		Validator:    validator.New(),
		Logger:       logger,
		InsightCache: service.NewTTLCache[service.InsightResult](cfg.InsightCacheTTL),
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/insights/themes", h.InsightThemes)
		api.GET("/insights/themes/filtered", h.InsightThemesFiltered)
		api.GET("/insights/top10", h.InsightTop10)
		api.GET("/insights/suggest", h.Suggest)
		api.GET("/calibration/precision", h.CalibrationSweep)
		api.GET("/calibration/by-vertical", h.CalibrationByVertical)
		api.POST("/ask", h.Ask)
		api.GET("/verticals", h.VerticalsList)
		api.GET("/analytics/label-frequencies", h.LabelFrequencies)
		api.GET("/export/top10.csv", h.ExportTop10CSV)
		api.GET("/export/themes.csv", h.ExportThemesCSV)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/sync/tickets", h.SyncTickets)
		admin.POST("/verticals/backfill", h.VerticalsBackfill)
		admin.GET("/review/sample", h.ReviewSample)
		admin.POST("/review/labels", h.SubmitLabels)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
