package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	APIBaseURL             string
	TryOnPath              string
	TryOnTimeout           time.Duration
	AuthTimeout            time.Duration
	TryOnQuality           string
	AutoSubmit             bool
	AutoSubmitDelay        time.Duration
	RefreshUsageAfterTryOn bool
	TokenStore             string
	TokenFile              string
	MongoURI               string
	MongoDatabase          string
	AWSRegion              string
	MaxImageBytes          int64
	RenderPages            bool
	LogLevel               string
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using default values or system environment variables")
	}

	APIBaseURL = getEnv("API_BASE_URL", "http://localhost:8000")
	TryOnPath = getEnv("TRYON_PATH", "/api/v1/virtual-tryon")
	TryOnTimeout = getDuration("TRYON_TIMEOUT", 120*time.Second)
	AuthTimeout = getDuration("AUTH_TIMEOUT", 30*time.Second)
	TryOnQuality = os.Getenv("TRYON_QUALITY")

	AutoSubmit = getBool("AUTO_SUBMIT", false)
	AutoSubmitDelay = getDuration("AUTO_SUBMIT_DELAY", 3*time.Second)
	RefreshUsageAfterTryOn = getBool("REFRESH_USAGE_AFTER_TRYON", false)

	TokenStore = getEnv("TOKEN_STORE", "file")
	TokenFile = os.Getenv("TOKEN_FILE")
	if TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		TokenFile = filepath.Join(home, ".fitly", "state.json")
	}

	MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017/")
	MongoDatabase = getEnv("MONGO_DATABASE", "fitly")
	AWSRegion = getEnv("AWS_REGION", "ap-south-1")

	MaxImageBytes = int64(getInt("MAX_IMAGE_BYTES", 10<<20))
	RenderPages = getBool("RENDER_PAGES", false)
	LogLevel = getEnv("LOG_LEVEL", "info")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
	return fallback
}
