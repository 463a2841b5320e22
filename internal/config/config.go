package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds every setting the server and the CLI read from the environment.
type Config struct {
	Port        string
	CORSOrigins []string
	StoreDriver string
	LogLevel    string

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string

	DB    DBConfig
	Redis RedisConfig

	Depreciation DepreciationConfig
	// AlertEscalateAfter of zero keeps every open session with pending items at high priority.
	AlertEscalateAfter time.Duration
}

type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type DepreciationConfig struct {
	UsefulLifeMonths int
	ResidualRate     decimal.Decimal
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		GetLogger().Debug("no .env file found, relying on system env")
	}

	return Config{
		Port:        stringFromEnv("PORT", "8080"),
		CORSOrigins: listFromEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		StoreDriver: strings.ToLower(stringFromEnv("STORE_DRIVER", StoreDriverPostgres)),
		LogLevel:    stringFromEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			Host:            stringFromEnv("DB_HOST", "localhost"),
			Port:            stringFromEnv("DB_PORT", "5432"),
			User:            stringFromEnv("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            stringFromEnv("DB_NAME", "patrimonio"),
			SSLMode:         stringFromEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intFromEnv("REDIS_DB", 0),
		},
		Depreciation: DepreciationConfig{
			UsefulLifeMonths: intFromEnv("DEPRECIATION_USEFUL_LIFE_MONTHS", 120),
			ResidualRate:     decimalFromEnv("DEPRECIATION_RESIDUAL_RATE", decimal.Zero),
		},
		AlertEscalateAfter: durationFromEnv("ALERT_ESCALATE_AFTER", 0),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func stringFromEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func decimalFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func listFromEnv(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
