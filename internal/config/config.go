package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	LogLevel           string
	CORSOrigins        []string
	TallySchedule      string        // cron spec for vote tally snapshots
	EventPruneSchedule string        // cron spec for pruning old events
	EventRetention     time.Duration // events older than this are pruned
	StatsInterval      time.Duration // host stat sampling period
	BcryptCost         int
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}

	retention, err := time.ParseDuration(getEnv("EVENT_RETENTION", "720h"))
	if err != nil {
		return nil, err
	}

	statsInterval, err := time.ParseDuration(getEnv("STATS_INTERVAL", "15s"))
	if err != nil {
		return nil, err
	}

	cost, err := strconv.Atoi(getEnv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./polls.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		TallySchedule:      getEnv("TALLY_SCHEDULE", "@every 5m"),
		EventPruneSchedule: getEnv("EVENT_PRUNE_SCHEDULE", "@daily"),
		EventRetention:     retention,
		StatsInterval:      statsInterval,
		BcryptCost:         cost,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
