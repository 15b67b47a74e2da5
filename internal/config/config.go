package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Backend     BackendConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Push        PushConfig
	Email       EmailConfig
	Triggers    TriggerConfig
	Thumbnails  ThumbnailConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	Debug       bool
	LogLevel    string

	// AllowedOrigins limits browser origins on the presence socket; empty allows any.
	AllowedOrigins []string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	WebAPIKey       string
	StorageBucket   string
}

type BackendConfig struct {
	Documents string // "firestore", "postgres", "memory"
	Objects   string // "gcs", "s3", "memory"
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	// IOTimeout bounds both reads and writes.
	IOTimeout time.Duration
}

// ObjectStoreConfig configures the S3-compatible object store.
type ObjectStoreConfig struct {
	Region        string
	Endpoint      string
	Bucket        string
	PublicBaseURL string
}

type PushConfig struct {
	Provider   string // "fcm", "console"
	RatePerSec float64
	Burst      int
}

type EmailConfig struct {
	Provider     string // "resend", "console"
	FromAddress  string
	FromName     string
	ResendAPIKey string
}

type TriggerConfig struct {
	// Audience enables OIDC verification of trigger callers when non-empty.
	Audience       string
	DedupeTTL      time.Duration
	FanoutParallel int
}

type ThumbnailConfig struct {
	MaxSize int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvBool("DEBUG", false),
			LogLevel:       getEnvNonEmpty("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", nil),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			WebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		},
		Backend: BackendConfig{
			Documents: getEnvNonEmpty("DOCUMENT_STORE", "memory"),
			Objects:   getEnvNonEmpty("OBJECT_STORE", "memory"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "widgetshare"),
			Password: getEnv("DB_PASSWORD", "widgetshare"),
			DBName:   getEnv("DB_NAME", "widgetshare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE", 30*time.Minute),
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),

			MigrationsDir: getEnvNonEmpty("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),

			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 3),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			IOTimeout:    getEnvDuration("REDIS_IO_TIMEOUT", 3*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Region:        getEnvNonEmpty("S3_REGION", "us-east-1"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			Bucket:        getEnv("S3_BUCKET", ""),
			PublicBaseURL: getEnv("OBJECT_PUBLIC_BASE_URL", ""),
		},
		Push: PushConfig{
			Provider:   getEnvNonEmpty("PUSH_PROVIDER", "console"),
			RatePerSec: getEnvFloat64("PUSH_RATE_PER_SEC", 50),
			Burst:      getEnvInt("PUSH_BURST", 20),
		},
		Email: EmailConfig{
			Provider:     getEnvNonEmpty("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@widgetshare.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "WidgetShare"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Triggers: TriggerConfig{
			Audience:       getEnv("TRIGGER_AUDIENCE", ""),
			DedupeTTL:      getEnvDuration("TRIGGER_DEDUPE_TTL", 24*time.Hour),
			FanoutParallel: getEnvInt("TRIGGER_FANOUT_PARALLEL", 8),
		},
		Thumbnails: ThumbnailConfig{
			MaxSize: getEnvInt("THUMBNAIL_MAX_SIZE", 200),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Backend.Documents {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore document store")
		}
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q", c.Backend.Documents)
	}

	switch c.Backend.Objects {
	case "gcs":
		if c.Firebase.StorageBucket == "" {
			return fmt.Errorf("FIREBASE_STORAGE_BUCKET is required for the gcs object store")
		}
	case "s3":
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 object store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.Backend.Objects)
	}

	if c.Push.Provider == "fcm" && c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for fcm push")
	}
	if c.Email.Provider == "resend" && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required for the resend email provider")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// UsesFirebase reports whether any component needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.Backend.Documents == "firestore" || c.Backend.Objects == "gcs" || c.Push.Provider == "fcm"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValues []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return defaultValues
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			item := strings.TrimSpace(part)
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValues
}
