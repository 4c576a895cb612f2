package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fixora/kpiboard/internal/kpi"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
	KPI      KPIConfig      `json:"kpi"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
	MaxBodyBytes int64         `json:"max_body_bytes"`
	TrustProxy   bool          `json:"trust_proxy"`

	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"-"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	QueryTimeout   time.Duration `json:"query_timeout"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AuthEnabled       bool          `json:"auth_enabled"`
	JWTSecret         string        `json:"-"`
	JWTExpiration     time.Duration `json:"jwt_expiration"`
	RateLimitEnabled  bool          `json:"rate_limit_enabled"`
	RateLimitRedis    bool          `json:"rate_limit_redis"`
	RateLimitRequests int           `json:"rate_limit_requests"`
	RateLimitWindow   time.Duration `json:"rate_limit_window"`
	RateLimitBlock    time.Duration `json:"rate_limit_block"`
}

// KPIConfig represents workload scoring configuration
type KPIConfig struct {
	Scoring      kpi.Scoring `json:"scoring"`
	BaseScoring  kpi.Scoring `json:"-"` // env and defaults only, before the profile
	ProfilePath  string      `json:"profile_path"`
	Workers      int         `json:"workers"`
	TraceBacklog bool        `json:"trace_backlog"`
	WatchProfile bool        `json:"watch_profile"`
}

// Load loads configuration from .env, environment variables and defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
			MaxBodyBytes: int64(getEnvInt("SERVER_MAX_BODY_BYTES", 32<<20)),
			TrustProxy:   getEnvBool("SERVER_TRUST_PROXY", false),

			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "helpdesk"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getEnvDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Timeout: getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			AuthEnabled:       getEnvBool("AUTH_ENABLED", false),
			JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
			JWTExpiration:     getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
			RateLimitRedis:    getEnvBool("RATE_LIMIT_REDIS", false),
			RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RateLimitBlock:    getEnvDuration("RATE_LIMIT_BLOCK", 15*time.Minute),
		},
		KPI: KPIConfig{
			Scoring:      scoringFromEnv(),
			BaseScoring:  scoringFromEnv(),
			ProfilePath:  getEnv("KPI_SCORING_PROFILE", ""),
			Workers:      getEnvInt("KPI_WORKERS", 0),
			TraceBacklog: getEnvBool("KPI_TRACE_BACKLOG", false),
			WatchProfile: getEnvBool("KPI_WATCH_PROFILE", true),
		},
	}

	if config.KPI.ProfilePath != "" {
		scoring, err := LoadScoringProfile(config.KPI.ProfilePath, config.KPI.BaseScoring)
		if err != nil {
			return nil, err
		}
		config.KPI.Scoring = scoring
	}

	return config, nil
}

func scoringFromEnv() kpi.Scoring {
	d := kpi.DefaultScoring()
	return kpi.Scoring{
		FRTTargetMinutes:  getEnvFloat("KPI_FRT_TARGET_MIN", d.FRTTargetMinutes),
		ARTTargetMinutes:  getEnvFloat("KPI_ART_TARGET_MIN", d.ARTTargetMinutes),
		SLATargetHours:    getEnvFloat("KPI_SLA_TARGET_HOURS", d.SLATargetHours),
		VolumeSaturation:  getEnvFloat("KPI_VOLUME_SATURATION", d.VolumeSaturation),
		BacklogSaturation: getEnvFloat("KPI_BACKLOG_SATURATION", d.BacklogSaturation),
		Weights: kpi.Weights{
			FRT:     getEnvFloat("KPI_WEIGHT_FRT", d.Weights.FRT),
			ART:     getEnvFloat("KPI_WEIGHT_ART", d.Weights.ART),
			FCR:     getEnvFloat("KPI_WEIGHT_FCR", d.Weights.FCR),
			SLA:     getEnvFloat("KPI_WEIGHT_SLA", d.Weights.SLA),
			Volume:  getEnvFloat("KPI_WEIGHT_VOL", d.Weights.Volume),
			Backlog: getEnvFloat("KPI_WEIGHT_BACKLOG", d.Weights.Backlog),
		},
		Thresholds: kpi.Thresholds{
			A: getEnvFloat("KPI_RANK_A", d.Thresholds.A),
			B: getEnvFloat("KPI_RANK_B", d.Thresholds.B),
			C: getEnvFloat("KPI_RANK_C", d.Thresholds.C),
		},
	}
}

// LoadScoringProfile reads a YAML scoring profile. Keys missing from the
// file keep the values of base.
func LoadScoringProfile(path string, base kpi.Scoring) (kpi.Scoring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kpi.Scoring{}, fmt.Errorf("failed to read scoring profile %s: %w", path, err)
	}

	scoring := base
	if err := yaml.Unmarshal(data, &scoring); err != nil {
		return kpi.Scoring{}, fmt.Errorf("failed to parse scoring profile %s: %w", path, err)
	}
	if err := scoring.Validate(); err != nil {
		return kpi.Scoring{}, fmt.Errorf("scoring profile %s: %w", path, err)
	}
	return scoring, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if c.KPI.Workers < 0 {
		return fmt.Errorf("KPI workers must not be negative")
	}

	if err := c.KPI.Scoring.Validate(); err != nil {
		return err
	}

	if c.Security.RateLimitEnabled && (c.Security.RateLimitRequests <= 0 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	if c.Security.JWTSecret == "" || c.Security.JWTSecret == defaultJWTSecret {
		if c.IsProduction() && c.Security.AuthEnabled {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
