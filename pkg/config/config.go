package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Providers   ProvidersConfig
	Policy      PolicyConfig
	KPI         KPIConfig
	Aggregation AggregationConfig
	Audit       AuditConfig
	Reference   ReferenceCacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// ProvidersConfig holds endpoints and the bounded timeout for external
// prisoner-data and prison-reference lookups.
type ProvidersConfig struct {
	PrisonerSearchBaseURL string
	PrisonAPIBaseURL      string
	Timeout               time.Duration
}

// PolicyConfig is the injected review-interval table. Every threshold is
// configuration; the defaults mirror the statutory framework values.
type PolicyConfig struct {
	FirstReviewHorizonDays      int
	BaseIntervalDays            int
	BasicLevelCode              string
	BasicFirstReviewDays        int
	BasicConfirmedDays          int
	BasicConfirmedShortenedDays int
	YoungPersonAgeYears         int
}

// KPIConfig controls the daily snapshot task.
type KPIConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
}

// AggregationConfig tunes location summaries. UnreviewedBucket decides how
// prisoners with no review record surface: "bucket" adds an explicit
// Unreviewed level row, "error" degrades just that prisoner's row.
type AggregationConfig struct {
	UnreviewedBucket      string
	BehaviourWindowMonths int
}

// AuditConfig sizes the fire-and-forget audit queue.
type AuditConfig struct {
	Workers    int
	BufferSize int
}

// ReferenceCacheConfig bounds how long cached reference data stays valid.
type ReferenceCacheConfig struct {
	FreshFor time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Providers = ProvidersConfig{
		PrisonerSearchBaseURL: v.GetString("PRISONER_SEARCH_BASE_URL"),
		PrisonAPIBaseURL:      v.GetString("PRISON_API_BASE_URL"),
		Timeout:               parseDuration(v.GetString("PROVIDER_TIMEOUT"), 5*time.Second),
	}

	cfg.Policy = PolicyConfig{
		FirstReviewHorizonDays:      v.GetInt("POLICY_FIRST_REVIEW_HORIZON_DAYS"),
		BaseIntervalDays:            v.GetInt("POLICY_BASE_INTERVAL_DAYS"),
		BasicLevelCode:              v.GetString("POLICY_BASIC_LEVEL_CODE"),
		BasicFirstReviewDays:        v.GetInt("POLICY_BASIC_FIRST_REVIEW_DAYS"),
		BasicConfirmedDays:          v.GetInt("POLICY_BASIC_CONFIRMED_DAYS"),
		BasicConfirmedShortenedDays: v.GetInt("POLICY_BASIC_CONFIRMED_SHORTENED_DAYS"),
		YoungPersonAgeYears:         v.GetInt("POLICY_YOUNG_PERSON_AGE_YEARS"),
	}

	cfg.KPI = KPIConfig{
		Enabled:  v.GetBool("ENABLE_KPI_TASK"),
		Interval: parseDuration(v.GetString("KPI_TASK_INTERVAL"), 24*time.Hour),
		LockTTL:  parseDuration(v.GetString("KPI_TASK_LOCK_TTL"), 10*time.Minute),
	}

	cfg.Aggregation = AggregationConfig{
		UnreviewedBucket:      v.GetString("AGGREGATION_UNREVIEWED_BUCKET"),
		BehaviourWindowMonths: v.GetInt("AGGREGATION_BEHAVIOUR_WINDOW_MONTHS"),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
	}

	cfg.Reference = ReferenceCacheConfig{
		FreshFor: parseDuration(v.GetString("REFERENCE_CACHE_FRESH_FOR"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "incentives")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PRISONER_SEARCH_BASE_URL", "http://localhost:8081")
	v.SetDefault("PRISON_API_BASE_URL", "http://localhost:8082")
	v.SetDefault("PROVIDER_TIMEOUT", "5s")

	v.SetDefault("POLICY_FIRST_REVIEW_HORIZON_DAYS", 90)
	v.SetDefault("POLICY_BASE_INTERVAL_DAYS", 365)
	v.SetDefault("POLICY_BASIC_LEVEL_CODE", "BAS")
	v.SetDefault("POLICY_BASIC_FIRST_REVIEW_DAYS", 7)
	v.SetDefault("POLICY_BASIC_CONFIRMED_DAYS", 28)
	v.SetDefault("POLICY_BASIC_CONFIRMED_SHORTENED_DAYS", 14)
	v.SetDefault("POLICY_YOUNG_PERSON_AGE_YEARS", 18)

	v.SetDefault("ENABLE_KPI_TASK", false)
	v.SetDefault("KPI_TASK_INTERVAL", "24h")
	v.SetDefault("KPI_TASK_LOCK_TTL", "10m")

	v.SetDefault("AGGREGATION_UNREVIEWED_BUCKET", "bucket")
	v.SetDefault("AGGREGATION_BEHAVIOUR_WINDOW_MONTHS", 3)

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_BUFFER_SIZE", 64)

	v.SetDefault("REFERENCE_CACHE_FRESH_FOR", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
