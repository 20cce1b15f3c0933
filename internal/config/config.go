package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string
	BasePath string
	AppEnv   string

	MongoURI string
	MongoDB  string

	JWTSecret string
	TokenTTL  time.Duration

	UploadDir     string
	MaxFileSizeMB int64
	CORSOrigins   []string

	PostgresDSN     string
	RedisAddr       string
	RedisPassword   string
	AccountCacheTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	return &Config{
		Port:            getenv("PORT", "5000"),
		BasePath:        strings.TrimRight(getenv("BASE_PATH", "/library"), "/"),
		AppEnv:          getenv("APP_ENV", "production"),
		MongoURI:        getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "busy_layout"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		TokenTTL:        getduration("TOKEN_TTL", 7*24*time.Hour),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		MaxFileSizeMB:   getint("MAX_FILE_SIZE_MB", 50),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "*")),
		PostgresDSN:     getenv("POSTGRES_DSN", ""),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		AccountCacheTTL: getduration("ACCOUNT_CACHE_TTL", 5*time.Minute),
		MinioEndpoint:   getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getenv("MINIO_BUCKET", "layouts"),
		MinioUseSSL:     getenv("MINIO_USE_SSL", "false") == "true",
		AdminUsername:   getenv("ADMIN_USERNAME", "admin"),
		AdminEmail:      getenv("ADMIN_EMAIL", "admin@busylayout.com"),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin123"),
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MaxFileSizeMB <= 0 {
		return errors.New("MAX_FILE_SIZE_MB must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// Development reports whether internal error detail may be returned to clients.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// MaxFileSize is the per-file upload ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.MaxFileSizeMB << 20
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
