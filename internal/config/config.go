package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Jira     JiraConfig
	Slack    SlackConfig
	Sync     SyncConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// JiraConfig holds issue-tracker API credentials. When BaseURL or APIToken is
// empty the mock tracker client is used instead of the real one.
type JiraConfig struct {
	BaseURL       string
	Email         string
	APIToken      string
	WebhookSecret string
}

// SlackConfig holds chat-platform credentials and posting defaults. When
// BotToken is empty the mock chat client is used.
type SlackConfig struct {
	BotToken       string
	DefaultChannel string
	ClosedEmoji    string
}

// SyncConfig tunes the reply sync engine and closure notifier.
type SyncConfig struct {
	ClosedStatuses       []string
	ReplyFetchLimit      int
	BatchIntervalSeconds int
	BatchWorkerEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "jira-slack-integration"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Jira: JiraConfig{
			BaseURL:       os.Getenv("JIRA_BASE_URL"),
			Email:         os.Getenv("JIRA_EMAIL"),
			APIToken:      os.Getenv("JIRA_API_TOKEN"),
			WebhookSecret: os.Getenv("JIRA_WEBHOOK_SECRET"),
		},
		Slack: SlackConfig{
			BotToken:       os.Getenv("SLACK_BOT_TOKEN"),
			DefaultChannel: getEnv("SLACK_DEFAULT_CHANNEL", "#jira-tickets"),
			ClosedEmoji:    getEnv("SLACK_CLOSED_EMOJI", "white_check_mark"),
		},
		Sync: SyncConfig{
			ClosedStatuses:       getEnvAsList("SYNC_CLOSED_STATUSES", []string{"Done", "Closed", "Resolved"}),
			ReplyFetchLimit:      getEnvAsInt("SYNC_REPLY_FETCH_LIMIT", 200),
			BatchIntervalSeconds: getEnvAsInt("SYNC_BATCH_INTERVAL_SECONDS", 300),
			BatchWorkerEnabled:   getEnvAsBool("SYNC_BATCH_WORKER_ENABLED", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UseMockClient reports whether tracker credentials are absent.
func (j JiraConfig) UseMockClient() bool {
	return j.BaseURL == "" || j.APIToken == ""
}

// UseMockClient reports whether chat credentials are absent.
func (s SlackConfig) UseMockClient() bool {
	return s.BotToken == ""
}

// IsClosedStatus reports whether the status belongs to the configured
// terminal set. Comparison is case-insensitive.
func (s SyncConfig) IsClosedStatus(status string) bool {
	for _, closed := range s.ClosedStatuses {
		if strings.EqualFold(closed, status) {
			return true
		}
	}
	return false
}

// BatchInterval returns the batch sync period.
func (s SyncConfig) BatchInterval() time.Duration {
	if s.BatchIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.BatchIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
