package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port int

	DatabaseURL string
	DBName      string
	DBPool      DBPoolConfig

	CORSOrigin string

	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MaskUnknownUser    bool

	LogLevel string

	UploadDir string
	S3        ObjectStoreConfig

	KafkaBrokers []string

	ES ESConfig

	RateLimit RateLimitConfig
}

type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type DBPoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment variables", err)
	}

	return Config{
		Port: EnvIntDefault("PORT", 8000),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBName:      os.Getenv("DB_NAME"),
		DBPool: DBPoolConfig{
			MaxOpen:     EnvIntDefault("DB_MAX_OPEN_CONNS", 20),
			MaxIdle:     EnvIntDefault("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime: EnvDurationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		CORSOrigin: EnvDefault("CORS_ORIGIN", "http://localhost:3000"),

		AccessTokenSecret:  []byte(os.Getenv("ACCESS_TOKEN_SECRET")),
		RefreshTokenSecret: []byte(os.Getenv("REFRESH_TOKEN_SECRET")),
		AccessTokenTTL:     EnvDurationDefault("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenTTL:    EnvDurationDefault("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		MaskUnknownUser:    EnvBoolDefault("AUTH_MASK_UNKNOWN_USER", false),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		UploadDir: EnvDefault("UPLOAD_DIR", "./public/temp"),
		S3: ObjectStoreConfig{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        EnvDefault("S3_REGION", "us-east-1"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ES: ESConfig{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    EnvDefault("ES_INDEX", "videos"),
		},

		RateLimit: RateLimitConfig{
			Requests: EnvIntDefault("RATE_LIMIT_REQUESTS", 10),
			Window:   EnvDurationDefault("RATE_LIMIT_WINDOW", time.Minute),
			Burst:    EnvIntDefault("RATE_LIMIT_BURST", 5),
		},
	}
}

// DSN returns DatabaseURL with its path replaced by DBName when one is set.
func (c Config) DSN() (string, error) {
	if c.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if c.DBName == "" {
		return c.DatabaseURL, nil
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("DATABASE_URL must be a URL when DB_NAME is set")
	}
	u.Path = "/" + strings.TrimPrefix(c.DBName, "/")
	return u.String(), nil
}

func (c Config) Validate() error {
	if len(c.AccessTokenSecret) == 0 || len(c.RefreshTokenSecret) == 0 {
		return fmt.Errorf("token secrets must be set")
	}
	if string(c.AccessTokenSecret) == string(c.RefreshTokenSecret) {
		return fmt.Errorf("access and refresh token secrets must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	// Credentialed CORS responses cannot carry a wildcard origin.
	if o := strings.TrimSpace(c.CORSOrigin); o == "" || o == "*" {
		return fmt.Errorf("CORS_ORIGIN must name a single origin")
	}
	return nil
}
