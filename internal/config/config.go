package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Tickets      TicketConfig
	Analytics    AnalyticsConfig
	Kafka        KafkaConfig
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

// Log encodings.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is LogFormatJSON or LogFormatConsole.
	Format string
	// Development enables stack traces on warnings and disables sampling.
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	// BootstrapAdmin* seed the first administrator when the staff table is empty.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// PasswordResetTTLMinutes bounds how long a reset token stays redeemable.
	PasswordResetTTLMinutes int
	// PasswordResetExposeToken returns requested reset tokens in the HTTP response.
	// There is no mail delivery, so production relies on admin-issued tokens instead.
	PasswordResetExposeToken bool
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
}

// NotificationConfig controls the in-process event subscribers.
type NotificationConfig struct {
	LogEvents bool
}

// Transition policies.
const (
	TransitionPermissive = "permissive"
	TransitionStrict     = "strict"
)

// resolved_at policies.
const (
	ResolvedAtFirst  = "first"
	ResolvedAtLatest = "latest"
)

// TicketConfig holds lifecycle rules.
type TicketConfig struct {
	NumberMaxAttempts int
	TransitionPolicy  string
	ResolvedAtPolicy  string
	Timezone          string
}

// Location resolves Timezone, falling back to UTC.
func (t TicketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil || t.Timezone == "" {
		return time.UTC
	}
	return loc
}

// AnalyticsConfig tunes the snapshot cache.
type AnalyticsConfig struct {
	CacheTTLSeconds int
}

// CacheTTL returns the snapshot cache lifetime; zero disables caching.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// KafkaConfig configures lifecycle event publication. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
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
	appName := getEnv("APP_NAME", "support-desk")
	appEnv := strings.ToLower(getEnv("APP_ENV", "development"))

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   appEnv,
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
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat(appEnv))),
			Development: appEnv == "development",
			Service:     appName,
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:      os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword:   os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
			PasswordResetTTLMinutes:  getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 60),
			PasswordResetExposeToken: getEnvAsBool("AUTH_PASSWORD_RESET_EXPOSE_TOKEN", appEnv == "development"),
		},
		Notification: NotificationConfig{
			LogEvents: getEnvAsBool("NOTIFY_LOG_EVENTS", true),
		},
		Tickets: TicketConfig{
			NumberMaxAttempts: getEnvAsInt("TICKET_NUMBER_MAX_ATTEMPTS", 5),
			TransitionPolicy:  strings.ToLower(getEnv("TICKET_TRANSITION_POLICY", TransitionPermissive)),
			ResolvedAtPolicy:  strings.ToLower(getEnv("TICKET_RESOLVED_AT_POLICY", ResolvedAtFirst)),
			Timezone:          getEnv("TICKET_TIMEZONE", "UTC"),
		},
		Analytics: AnalyticsConfig{
			CacheTTLSeconds: getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 60),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "ticket-events"),
		},
	}

	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Tickets.NumberMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("TICKET_NUMBER_MAX_ATTEMPTS must be positive, got %d", c.Tickets.NumberMaxAttempts))
	}
	switch c.Tickets.TransitionPolicy {
	case TransitionPermissive, TransitionStrict:
	default:
		errs = append(errs, fmt.Errorf("unknown TICKET_TRANSITION_POLICY %q", c.Tickets.TransitionPolicy))
	}
	switch c.Tickets.ResolvedAtPolicy {
	case ResolvedAtFirst, ResolvedAtLatest:
	default:
		errs = append(errs, fmt.Errorf("unknown TICKET_RESOLVED_AT_POLICY %q", c.Tickets.ResolvedAtPolicy))
	}
	if _, err := time.LoadLocation(c.Tickets.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TICKET_TIMEZONE: %w", err))
	}
	if c.Auth.PasswordResetTTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_PASSWORD_RESET_TTL_MINUTES must be positive, got %d", c.Auth.PasswordResetTTLMinutes))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set"))
	}
	switch c.Logger.Format {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Logger.Format))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC must be set when KAFKA_BROKERS is"))
	}
	return errors.Join(errs...)
}

func defaultLogFormat(env string) string {
	if env == "development" {
		return LogFormatConsole
	}
	return LogFormatJSON
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

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
