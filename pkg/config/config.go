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
	Env  string
	Port int

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
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

// JWTConfig carries the signing secret and token lifetimes. The secret is
// read once at startup and must never be logged.
type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// Budget bounds the number of requests a client may issue per window.
type Budget struct {
	Requests int
	Window   time.Duration
}

// RateLimitConfig declares per-endpoint request budgets.
type RateLimitConfig struct {
	Register   Budget
	Login      Budget
	Refresh    Budget
	TaskCreate Budget
	TaskList   Budget
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 30*time.Minute),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RateLimit = RateLimitConfig{
		Register:   loadBudget(v, "RATE_LIMIT_REGISTER", 5, time.Minute),
		Login:      loadBudget(v, "RATE_LIMIT_LOGIN", 10, time.Minute),
		Refresh:    loadBudget(v, "RATE_LIMIT_REFRESH", 10, time.Minute),
		TaskCreate: loadBudget(v, "RATE_LIMIT_TASK_CREATE", 10, time.Minute),
		TaskList:   loadBudget(v, "RATE_LIMIT_TASK_LIST", 30, time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "task_manager")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "task-manager-api")
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_REGISTER_MAX", 5)
	v.SetDefault("RATE_LIMIT_REGISTER_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_LOGIN_MAX", 10)
	v.SetDefault("RATE_LIMIT_LOGIN_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_REFRESH_MAX", 10)
	v.SetDefault("RATE_LIMIT_REFRESH_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_TASK_CREATE_MAX", 10)
	v.SetDefault("RATE_LIMIT_TASK_CREATE_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_TASK_LIST_MAX", 30)
	v.SetDefault("RATE_LIMIT_TASK_LIST_WINDOW", "60s")
}

func loadBudget(v *viper.Viper, prefix string, maxRequests int, window time.Duration) Budget {
	budget := Budget{
		Requests: v.GetInt(prefix + "_MAX"),
		Window:   parseDuration(v.GetString(prefix+"_WINDOW"), window),
	}
	if budget.Requests <= 0 {
		budget.Requests = maxRequests
	}
	return budget
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
