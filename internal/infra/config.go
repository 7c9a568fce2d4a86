package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	LogLevel    string
	Port        string
	DatabaseURL string

	DBMaxConns       int
	DBConnectTimeout time.Duration

	GeoIPDBPath string
	GeocoderURL string

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PublicURL    string

	ContentProvider  string
	ImageProvider    string
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIOrg        string
	QwenAPIKey       string
	QwenModel        string
	QwenBaseURL      string

	ImageRequestDelay     time.Duration
	ImageRateLimitBackoff time.Duration
	ImageCallTimeout      time.Duration
	ContentCallTimeout    time.Duration

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadEnvFiles loads .env and .env.local when present. Variables already set
// in the process environment win.
func LoadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := LoadPipelineConfig()

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadPipelineConfig reads the same keys as LoadConfig without requiring a
// database. It backs the one-shot generate command.
func LoadPipelineConfig() *Config {
	LoadEnvFiles()

	port := getEnv("PORT", "8080")
	delay := getEnvDuration("IMAGE_REQUEST_DELAY", 2*time.Second)
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		GeocoderURL: getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "fs")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "sitegen"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		ContentProvider:  strings.ToLower(getEnv("CONTENT_PROVIDER", "gemini")),
		ImageProvider:    strings.ToLower(getEnv("IMAGE_PROVIDER", "gemini")),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),
		QwenAPIKey:       os.Getenv("QWEN_API_KEY"),
		QwenModel:        getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenBaseURL:      getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),

		ImageRequestDelay:     delay,
		ImageRateLimitBackoff: getEnvDuration("IMAGE_RATE_LIMIT_BACKOFF", 5*delay),
		ImageCallTimeout:      getEnvDuration("IMAGE_CALL_TIMEOUT", 90*time.Second),
		ContentCallTimeout:    getEnvDuration("CONTENT_CALL_TIMEOUT", 45*time.Second),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
	return cfg
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("1500ms", "2s") or a bare
// number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
