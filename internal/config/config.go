package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"ENV"`
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	AdminKey    string `mapstructure:"ADMIN_KEY"`
	CORSAllowed string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Embedding provider. Empty EmbedURL selects the deterministic mock.
	EmbedURL             string `mapstructure:"EMBED_URL"`
	EmbedModel           string `mapstructure:"EMBED_MODEL"`
	EmbedDim             int    `mapstructure:"EMBED_DIM"`
	EmbedDevice          string `mapstructure:"EMBED_DEVICE"`
	EmbedRefreshOnChange bool   `mapstructure:"EMBED_REFRESH_ON_CHANGE"`

	// Classifier tuning. Defaults reproduce the shipped behavior; the values
	// are heuristic and kept overridable for empirical tuning.
	PersistThreshold      float64 `mapstructure:"PERSIST_THRESHOLD"`
	EnsembleSimWeight     float64 `mapstructure:"ENSEMBLE_SIM_WEIGHT"`
	EnsembleKeywordWeight float64 `mapstructure:"ENSEMBLE_KEYWORD_WEIGHT"`
	ConfidenceBase        float64 `mapstructure:"CONFIDENCE_BASE"`
	ConfidenceScale       float64 `mapstructure:"CONFIDENCE_SCALE"`
	ConfidenceMin         float64 `mapstructure:"CONFIDENCE_MIN"`
	ConfidenceMax         float64 `mapstructure:"CONFIDENCE_MAX"`

	InsightCacheTTL time.Duration `mapstructure:"INSIGHT_CACHE_TTL"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("EMBED_MODEL", "all-MiniLM-L6-v2")
	v.SetDefault("EMBED_DIM", 384)
	v.SetDefault("EMBED_DEVICE", "")
	v.SetDefault("EMBED_REFRESH_ON_CHANGE", false)
	v.SetDefault("PERSIST_THRESHOLD", 0.80)
	v.SetDefault("ENSEMBLE_SIM_WEIGHT", 0.65)
	v.SetDefault("ENSEMBLE_KEYWORD_WEIGHT", 0.35)
	v.SetDefault("CONFIDENCE_BASE", 0.55)
	v.SetDefault("CONFIDENCE_SCALE", 0.40)
	v.SetDefault("CONFIDENCE_MIN", 0.50)
	v.SetDefault("CONFIDENCE_MAX", 0.95)
	v.SetDefault("INSIGHT_CACHE_TTL", "120s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
