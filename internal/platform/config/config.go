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

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	DBLogLevel  string
	AutoMigrate bool

	JWTSecret    string
	JWTIssuer    string
	AdminUserIDs []string

	VoteRateLimitRPS   float64
	VoteRateLimitBurst int

	TaskBus          string
	RedisAddr        string
	RedisQueuePrefix string

	OutboxBatchSize    int
	WorkerPollInterval time.Duration
	DedupTTL           time.Duration

	SeedFile      string
	EnableSwagger bool
}

const (
	TaskBusMemory = "memory"
	TaskBusRedis  = "redis"
)

func Load() (Config, error) {
	// .env.local is optional; real environment variables always win.
	_ = godotenv.Load(".env.local")

	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "altvote"),
		HTTPPort:    envString("HTTP_PORT", "8080"),
		PostgresDSN: os.Getenv("DATABASE_URL"),
		DBLogLevel:  envString("DB_LOG_LEVEL", "warn"),
		AutoMigrate: envBool("AUTO_MIGRATE", false),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTIssuer:    os.Getenv("JWT_ISSUER"),
		AdminUserIDs: envList("ADMIN_USER_IDS"),

		TaskBus:          strings.ToLower(envString("TASK_BUS", TaskBusMemory)),
		RedisAddr:        envString("REDIS_ADDR", "localhost:6379"),
		RedisQueuePrefix: envString("REDIS_QUEUE_PREFIX", "altvote:tasks"),

		SeedFile:      envString("SEED_FILE", "seed/categories.yaml"),
		EnableSwagger: envBool("ENABLE_SWAGGER", true),
	}

	var err error
	if cfg.VoteRateLimitRPS, err = envFloat("VOTE_RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.VoteRateLimitBurst, err = envInt("VOTE_RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("OUTBOX_BATCH_SIZE", 100); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPollInterval, err = envDuration("WORKER_POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DedupTTL, err = envDuration("DEDUP_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.TaskBus != TaskBusMemory && cfg.TaskBus != TaskBusRedis {
		return Config{}, fmt.Errorf("TASK_BUS must be %q or %q, got %q", TaskBusMemory, TaskBusRedis, cfg.TaskBus)
	}
	return cfg, nil
}

// RequireJWTSecret is checked by processes that verify bearer tokens.
func (c Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func envString(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
