package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ugcstudio/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv                 string
	LogLevel               string
	Port                   string
	DatabaseURL            string
	DBMaxConns             int
	SlowQueryThreshold     time.Duration
	StoragePath            string
	GeoIPDBPath            string
	GeminiAPIKey           string
	GeminiBaseURL          string
	PlannerModel           string
	ImageModel             string
	AssetAspectRatio       domain.AspectRatio
	BrandProfile           string
	MaterializeConcurrency int
	ProviderInterval       time.Duration
	RunTTL                 time.Duration
	DefaultLocale          string
	CORSAllowedOrigins     []string
	MaxUploadBytes         int64
	ProviderTimeout        time.Duration
	HTTPReadTimeout        time.Duration
	HTTPWriteTimeout       time.Duration
	HTTPIdleTimeout        time.Duration
	RateLimitPerMin        int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		DatabaseURL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:             getEnvInt("DB_MAX_CONNS", 5),
		SlowQueryThreshold:     time.Millisecond * time.Duration(getEnvInt("SLOW_QUERY_MS", 250)),
		StoragePath:            strings.TrimSpace(os.Getenv("STORAGE_PATH")),
		GeoIPDBPath:            os.Getenv("GEOIP_DB_PATH"),
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:          getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		PlannerModel:           getEnv("PLANNER_MODEL", "gemini-3-pro-preview"),
		ImageModel:             getEnv("IMAGE_MODEL", "gemini-2.5-flash-image"),
		BrandProfile:           getEnv("BRAND_PROFILE", "pikhacu"),
		MaterializeConcurrency: getEnvInt("MATERIALIZE_CONCURRENCY", 1),
		ProviderInterval:       time.Millisecond * time.Duration(getEnvInt("PROVIDER_INTERVAL_MS", 0)),
		RunTTL:                 time.Minute * time.Duration(getEnvInt("RUN_TTL_MINUTES", 60)),
		DefaultLocale:          getEnv("DEFAULT_LOCALE", "id"),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		MaxUploadBytes:         int64(getEnvInt("MAX_UPLOAD_BYTES", 16<<20)),
		ProviderTimeout:        time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 180)),
		HTTPReadTimeout:        time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:       time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:        time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
	}

	aspect, err := domain.ParseAspectRatio(getEnv("ASSET_ASPECT_RATIO", string(domain.DefaultAssetAspectRatio)))
	if err != nil {
		return nil, fmt.Errorf("ASSET_ASPECT_RATIO: %w", err)
	}
	cfg.AssetAspectRatio = aspect

	if cfg.MaterializeConcurrency < 1 {
		return nil, fmt.Errorf("MATERIALIZE_CONCURRENCY must be at least 1")
	}
	if cfg.ProviderInterval < 0 {
		return nil, fmt.Errorf("PROVIDER_INTERVAL_MS must not be negative")
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if cfg.RunTTL <= 0 {
		return nil, fmt.Errorf("RUN_TTL_MINUTES must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
