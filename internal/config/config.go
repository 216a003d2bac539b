package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "naturequest-dev-secret-change-me"

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite, postgres or mysql
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres and mysql
	MigrationsPath string

	StorageBackend string // bolt, sql, mongo or memory
	BoltPath       string
	MongoURI       string
	MongoDatabase  string
	SeedDemoData   bool

	JWTSecret       string
	SessionDuration time.Duration

	AzureClientID        string
	AzureClientSecret    string
	AzureTenantID        string
	OAuthRedirectBaseURL string
	AllowedEmailDomains  []string
	TeacherGroups        []string
	AdminGroups          []string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	Debug bool
}

var validBackends = map[string]bool{"bolt": true, "sql": true, "mongo": true, "memory": true}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat .env: %w", err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./naturequest.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "./migrations")
	v.SetDefault("STORAGE_BACKEND", "bolt")
	v.SetDefault("BOLT_PATH", "./data/naturequest.bolt")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "naturequest")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_DURATION", 24*time.Hour)
	v.SetDefault("AZURE_CLIENT_ID", "")
	v.SetDefault("AZURE_CLIENT_SECRET", "")
	v.SetDefault("AZURE_TENANT_ID", "common")
	v.SetDefault("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_EMAIL_DOMAINS", "")
	v.SetDefault("TEACHER_GROUPS", "")
	v.SetDefault("ADMIN_GROUPS", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("SES_FROM_NAME", "NatureQuest")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("DEBUG", false)
	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:           v.GetString("PORT"),
		DatabaseType:         strings.ToLower(v.GetString("DATABASE_TYPE")),
		DatabasePath:         v.GetString("DB_PATH"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		MigrationsPath:       v.GetString("MIGRATIONS_PATH"),
		StorageBackend:       strings.ToLower(v.GetString("STORAGE_BACKEND")),
		BoltPath:             v.GetString("BOLT_PATH"),
		MongoURI:             v.GetString("MONGO_URI"),
		MongoDatabase:        v.GetString("MONGO_DATABASE"),
		SeedDemoData:         v.GetBool("SEED_DEMO_DATA"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		SessionDuration:      v.GetDuration("SESSION_DURATION"),
		AzureClientID:        v.GetString("AZURE_CLIENT_ID"),
		AzureClientSecret:    v.GetString("AZURE_CLIENT_SECRET"),
		AzureTenantID:        v.GetString("AZURE_TENANT_ID"),
		OAuthRedirectBaseURL: strings.TrimSuffix(v.GetString("OAUTH_REDIRECT_BASE_URL"), "/"),
		AllowedEmailDomains:  splitList(v.GetString("ALLOWED_EMAIL_DOMAINS")),
		TeacherGroups:        splitList(v.GetString("TEACHER_GROUPS")),
		AdminGroups:          splitList(v.GetString("ADMIN_GROUPS")),
		AWSRegion:            v.GetString("AWS_REGION"),
		SESFromEmail:         v.GetString("SES_FROM_EMAIL"),
		SESFromName:          v.GetString("SES_FROM_NAME"),
		AppBaseURL:           strings.TrimSuffix(v.GetString("APP_BASE_URL"), "/"),
		RateLimitRequests:    v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:      v.GetDuration("RATE_LIMIT_WINDOW"),
		Debug:                v.GetBool("DEBUG"),
	}

	if !validBackends[cfg.StorageBackend] {
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
	if cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("SESSION_DURATION must be positive, got %s", cfg.SessionDuration)
	}
	if cfg.JWTSecret == "" {
		log.Printf("WARNING: JWT_SECRET not set, using the development secret")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// OAuthEnabled reports whether Azure AD login is configured
func (c *Config) OAuthEnabled() bool {
	return c.AzureClientID != "" && c.AzureClientSecret != ""
}

// splitList parses a comma separated value, dropping empty items
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
