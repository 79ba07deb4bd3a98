package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv  string
	Port    string
	APIKeys []string

	FalAPIKey  string
	FalBaseURL string
	FalTimeout time.Duration

	RedisURL string
	CacheTTL time.Duration

	UploadDir         string
	MaxFileSize       int64
	AllowedImageTypes []string
	AllowedVideoTypes []string

	RateLimitPerMin int
	SweepInterval   time.Duration
	RetentionAge    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		APIKeys:           splitList(os.Getenv("API_KEYS")),
		FalAPIKey:         os.Getenv("FAL_API_KEY"),
		FalBaseURL:        getEnv("FAL_BASE_URL", "https://fal.run/fal-ai"),
		FalTimeout:        time.Second * time.Duration(getEnvInt("FAL_TIMEOUT_SECONDS", 300)),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTL:          time.Second * time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize:       int64(getEnvInt("MAX_FILE_SIZE_BYTES", 50*1024*1024)),
		AllowedImageTypes: splitList(getEnv("ALLOWED_IMAGE_TYPES", "image/jpeg,image/png,image/webp")),
		AllowedVideoTypes: splitList(getEnv("ALLOWED_VIDEO_TYPES", "video/mp4,video/avi,video/mov")),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		SweepInterval:     time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 3600)),
		RetentionAge:      time.Hour * time.Duration(getEnvInt("RETENTION_HOURS", 24)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.FalAPIKey == "" {
		return nil, fmt.Errorf("FAL_API_KEY is required")
	}

	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("API_KEYS is required")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode. Detailed
// error messages are only exposed to callers in this mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
