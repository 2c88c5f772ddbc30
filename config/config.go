package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Zendesk    ZendeskConfig
	Salesforce SalesforceConfig
	GitHub     GitHubConfig
	Sync       SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds service-token signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// ZendeskConfig holds Zendesk API settings. The custom field ids map
// product-specific ticket fields; 0 disables a field.
type ZendeskConfig struct {
	Subdomain           string
	Email               string
	APIToken            string
	FieldProduct        int64
	FieldModule         int64
	FieldTicketType     int64
	FieldWorkflowStatus int64
	FieldIssueSubtype   int64
	FieldEscalated      int64
}

// SalesforceConfig holds Salesforce OAuth settings.
type SalesforceConfig struct {
	InstanceURL  string
	ClientID     string
	ClientSecret string
	TokenURL     string // optional override; defaults from InstanceURL
}

// GitHubConfig holds the engineering tracking repository settings.
type GitHubConfig struct {
	Token string
	Owner string
	Repo  string
}

// SyncConfig holds orchestration tuning and scheduler cadences.
type SyncConfig struct {
	MaxPagesPerOrg int
	OrgPause       time.Duration
	DeltaInterval  time.Duration
	FullInterval   time.Duration
}

// DSN returns the PostgreSQL connection string. If DatabaseConfig.URL is
// set (DATABASE_URL env) it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "720"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/support_cache?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "support_cache"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Zendesk: ZendeskConfig{
			Subdomain:           getEnv("ZENDESK_SUBDOMAIN", ""),
			Email:               getEnv("ZENDESK_EMAIL", ""),
			APIToken:            getEnv("ZENDESK_API_TOKEN", ""),
			FieldProduct:        getEnvInt64("ZENDESK_FIELD_PRODUCT", 0),
			FieldModule:         getEnvInt64("ZENDESK_FIELD_MODULE", 0),
			FieldTicketType:     getEnvInt64("ZENDESK_FIELD_TICKET_TYPE", 0),
			FieldWorkflowStatus: getEnvInt64("ZENDESK_FIELD_WORKFLOW_STATUS", 0),
			FieldIssueSubtype:   getEnvInt64("ZENDESK_FIELD_ISSUE_SUBTYPE", 0),
			FieldEscalated:      getEnvInt64("ZENDESK_FIELD_ESCALATED", 0),
		},
		Salesforce: SalesforceConfig{
			InstanceURL:  getEnv("SALESFORCE_INSTANCE_URL", ""),
			ClientID:     getEnv("SALESFORCE_CLIENT_ID", ""),
			ClientSecret: getEnv("SALESFORCE_CLIENT_SECRET", ""),
			TokenURL:     getEnv("SALESFORCE_TOKEN_URL", ""),
		},
		GitHub: GitHubConfig{
			Token: getEnv("GITHUB_TOKEN", ""),
			Owner: getEnv("GITHUB_OWNER", ""),
			Repo:  getEnv("GITHUB_REPO", ""),
		},
		Sync: SyncConfig{
			MaxPagesPerOrg: getEnvInt("SYNC_MAX_PAGES_PER_ORG", 10),
			OrgPause:       time.Duration(getEnvInt("SYNC_ORG_PAUSE_MS", 200)) * time.Millisecond,
			DeltaInterval:  time.Duration(getEnvInt("SYNC_DELTA_INTERVAL_MIN", 30)) * time.Minute,
			FullInterval:   time.Duration(getEnvInt("SYNC_FULL_INTERVAL_MIN", 1440)) * time.Minute,
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
