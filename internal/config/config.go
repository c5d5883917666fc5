package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendREST  = "rest"
	BackendMySQL = "mysql"
)

const (
	// A checkout makes up to this many sequential backend calls: the order
	// fan-out, the sale and the sales refresh.
	checkoutBackendCalls = 3
	lockTTLMargin        = 5 * time.Second
)

type Config struct {
	AppEnv     string
	LogLevel   string
	TerminalID string

	HTTPPort int
	GRPCPort int

	BackendMode    string
	BackendURL     string
	BackendTimeout time.Duration
	MySQLDSN       string

	RedisAddr       string
	CheckoutLockTTL time.Duration

	CheckoutMaxConcurrent int

	OTLPEndpoint string
}

// Load reads a .env file when present and then the process environment.
// Malformed numbers and durations fall back to their defaults. The checkout
// lock TTL is raised to outlive a checkout whose every call hits the
// backend timeout.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:                getEnv("APP_ENV", "dev"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		TerminalID:            getEnv("TERMINAL_ID", "pos-1"),
		HTTPPort:              getEnvInt("HTTP_PORT", 8090),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		BackendMode:           strings.ToLower(getEnv("BACKEND_MODE", BackendREST)),
		BackendURL:            getEnv("BACKEND_URL", "http://localhost:8080"),
		BackendTimeout:        getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		MySQLDSN:              getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/coffeepos?parseTime=true"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		CheckoutLockTTL:       getEnvDuration("CHECKOUT_LOCK_TTL", 0),
		CheckoutMaxConcurrent: getEnvInt("CHECKOUT_MAX_CONCURRENT", 8),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	cfg.CheckoutLockTTL = max(cfg.CheckoutLockTTL, MinCheckoutLockTTL(cfg.BackendTimeout))

	return cfg
}

// MinCheckoutLockTTL is the shortest lock TTL that cannot expire while a
// checkout is still waiting on the backend.
func MinCheckoutLockTTL(backendTimeout time.Duration) time.Duration {
	return checkoutBackendCalls*backendTimeout + lockTTLMargin
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}

	return d
}
