package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-level configuration. Guardrail and exit thresholds
// live in their own packages; this covers wiring: addresses, paths, symbols,
// cadence.
type Config struct {
	ServerAddr string
	JWTSecret  string
	JWTTTL     time.Duration
	AdminUser  string
	AdminPass  string

	DatabasePath string

	Symbols        []string
	Capital        float64
	MaxDailyLoss   float64
	CycleEvery     time.Duration
	MonitorEvery   time.Duration
	SnapshotMaxAge time.Duration
	StrategiesFile string
	HITLTimeout    time.Duration

	RationaleURL     string
	RationaleModel   string
	RationaleTimeout time.Duration
}

// Load reads .env if present, then the environment, with working defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] no .env file, using environment")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:  getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:     getEnvDuration("JWT_TTL", 12*time.Hour),
		AdminUser:  getEnv("ADMIN_USER", "operator"),
		AdminPass:  getEnv("ADMIN_PASS", "operator"),

		DatabasePath: getEnv("DATABASE_PATH", "data/daytrade.db"),

		Symbols:        getEnvList("SYMBOLS", []string{"RELIANCE", "TCS", "HDFCBANK"}),
		Capital:        getEnvFloat("CAPITAL", 10000),
		MaxDailyLoss:   getEnvFloat("MAX_DAILY_LOSS", 200),
		CycleEvery:     getEnvDuration("CYCLE_EVERY", 60*time.Second),
		MonitorEvery:   getEnvDuration("MONITOR_EVERY", 5*time.Second),
		SnapshotMaxAge: getEnvDuration("SNAPSHOT_MAX_AGE", 90*time.Second),
		StrategiesFile: getEnv("STRATEGIES_FILE", "strategies.yaml"),
		HITLTimeout:    getEnvDuration("HITL_TIMEOUT", 5*time.Minute),

		RationaleURL:     getEnv("RATIONALE_URL", "http://localhost:11434"),
		RationaleModel:   getEnv("RATIONALE_MODEL", "llama3.2"),
		RationaleTimeout: getEnvDuration("RATIONALE_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("[CONFIG] invalid float for %s, using %.2f", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[CONFIG] invalid duration for %s, using %s", key, fallback)
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
