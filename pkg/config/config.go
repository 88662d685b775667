package config

import (
	"errors"
	"io/fs"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     ScheduleCacheConfig
	Scheduler SchedulerConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScheduleCacheConfig governs the read cache for persisted day schedules.
type ScheduleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SchedulerConfig tunes the daily scheduling engine and its async runner.
type SchedulerConfig struct {
	MaxPeriodsPerDay      int
	MaxConsecutivePeriods int
	Seed                  int64
	SimulatedAbsenceRate  float64
	SimulatedAbsenceMax   int
	Workers               int
	WorkerRetries         int
	RunTTL                time.Duration
	MaxRangeDays          int
	DefaultWeekDays       int
	ShutdownDrainTimeout  time.Duration
}

// SimulationEnabled reports whether random absences should be overlaid on real availability.
func (c SchedulerConfig) SimulationEnabled() bool {
	return c.SimulatedAbsenceRate > 0
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = ScheduleCacheConfig{
		Enabled: v.GetBool("ENABLE_SCHEDULE_CACHE"),
		TTL:     parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxPeriodsPerDay:      v.GetInt("SCHEDULER_MAX_PERIODS_PER_DAY"),
		MaxConsecutivePeriods: v.GetInt("SCHEDULER_MAX_CONSECUTIVE_PERIODS"),
		Seed:                  v.GetInt64("SCHEDULER_SEED"),
		SimulatedAbsenceRate:  v.GetFloat64("SCHEDULER_SIMULATED_ABSENCE_RATE"),
		SimulatedAbsenceMax:   v.GetInt("SCHEDULER_SIMULATED_ABSENCE_MAX"),
		Workers:               v.GetInt("SCHEDULER_WORKERS"),
		WorkerRetries:         v.GetInt("SCHEDULER_WORKER_RETRIES"),
		RunTTL:                parseDuration(v.GetString("SCHEDULER_RUN_TTL"), time.Hour),
		MaxRangeDays:          v.GetInt("SCHEDULER_MAX_RANGE_DAYS"),
		DefaultWeekDays:       v.GetInt("SCHEDULER_DEFAULT_WEEK_DAYS"),
		ShutdownDrainTimeout:  parseDuration(v.GetString("SCHEDULER_SHUTDOWN_TIMEOUT"), 10*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "15m")

	v.SetDefault("SCHEDULER_MAX_PERIODS_PER_DAY", 6)
	v.SetDefault("SCHEDULER_MAX_CONSECUTIVE_PERIODS", 3)
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_SIMULATED_ABSENCE_RATE", 0)
	v.SetDefault("SCHEDULER_SIMULATED_ABSENCE_MAX", 3)
	v.SetDefault("SCHEDULER_WORKERS", 1)
	v.SetDefault("SCHEDULER_WORKER_RETRIES", 1)
	v.SetDefault("SCHEDULER_RUN_TTL", "1h")
	v.SetDefault("SCHEDULER_MAX_RANGE_DAYS", 31)
	v.SetDefault("SCHEDULER_DEFAULT_WEEK_DAYS", 7)
	v.SetDefault("SCHEDULER_SHUTDOWN_TIMEOUT", "10s")
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
