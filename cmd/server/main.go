package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pmcopilot/backend/internal/config"
	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/embed"
	httpapi "github.com/pmcopilot/backend/internal/http"
	"github.com/pmcopilot/backend/internal/service"
	"github.com/pmcopilot/backend/internal/verticals"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "pm-insight-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	var provider embed.Provider
	if cfg.EmbedURL == "" {
		provider = &embed.Mock{ModelName: cfg.EmbedModel, Dimension: cfg.EmbedDim}
		logger.Info().Msg("using mock embedding provider")
	} else {
		provider = &embed.HTTPProvider{
			BaseURL:   cfg.EmbedURL,
			ModelName: cfg.EmbedModel,
			Dimension: cfg.EmbedDim,
			Device:    cfg.EmbedDevice,
		}
	}

	cache := &service.EmbeddingCache{
		Store:           store,
		Provider:        provider,
		RefreshOnChange: cfg.EmbedRefreshOnChange,
		Logger:          logger,
	}
	classifier := &verticals.Classifier{
		Provider: provider,
		Config: verticals.EnsembleConfig{
			SimWeight:       cfg.EnsembleSimWeight,
			KeywordWeight:   cfg.EnsembleKeywordWeight,
			ConfidenceBase:  cfg.ConfidenceBase,
			ConfidenceScale: cfg.ConfidenceScale,
			ConfidenceMin:   cfg.ConfidenceMin,
			ConfidenceMax:   cfg.ConfidenceMax,
		},
	}
	insights := &service.InsightService{
		Store:            store,
		Embeddings:       cache,
		Classifier:       classifier,
		PersistThreshold: cfg.PersistThreshold,
		Logger:           logger,
	}
	svc := httpapi.Services{
		Insights:    insights,
		Suggestions: &service.SuggestionService{Insights: insights},
		Calibration: &service.CalibrationService{Store: store, Classifier: classifier},
		Query:       &service.QueryService{Store: store, Embeddings: cache, Provider: provider},
		Review:      &service.ReviewService{Store: store, Classifier: classifier},
		Analytics:   &service.AnalyticsService{Store: store},
	}

	router := httpapi.Router(cfg, store, svc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
