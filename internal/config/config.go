package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the dispatch server.
// Values load from environment variables with defaults that let the binary
// run locally without external services: no Redis means settings stay
// in-process, no Kafka means telemetry publishing is off, no Postgres means
// the in-memory archive, no directions token means the route feature reports
// its one-time configuration error and everything else keeps running.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	DirectionsEndpoint string
	DirectionsProfile  string
	DirectionsToken    string

	TriderUpdateInterval time.Duration
	RideRequestInterval  time.Duration
	AIInsightInterval    time.Duration

	DefaultBaseFare float64
	PerKmCharge     float64
	ConvenienceFee  float64

	GeminiAPIKey string

	LogLevel      string
	RunMigrations bool
	Seed          int64
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,

		KafkaTopic: "trider-locations",

		DirectionsEndpoint: "https://api.mapbox.com",
		DirectionsProfile:  "mapbox/driving",

		TriderUpdateInterval: 5 * time.Second,
		RideRequestInterval:  30 * time.Second,
		AIInsightInterval:    60 * time.Second,

		DefaultBaseFare: 25,
		PerKmCharge:     10,
		ConvenienceFee:  5,

		LogLevel: "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.DirectionsEndpoint, "DIRECTIONS_ENDPOINT")
	setStringFromEnv(&cfg.DirectionsProfile, "DIRECTIONS_PROFILE")
	cfg.DirectionsToken = strings.TrimSpace(os.Getenv("DIRECTIONS_TOKEN"))

	setDurationFromEnv(&cfg.TriderUpdateInterval, "TRIDER_UPDATE_INTERVAL", &errs)
	setDurationFromEnv(&cfg.RideRequestInterval, "RIDE_REQUEST_INTERVAL", &errs)
	setDurationFromEnv(&cfg.AIInsightInterval, "AI_INSIGHT_INTERVAL", &errs)

	setFloatFromEnv(&cfg.DefaultBaseFare, "DEFAULT_BASE_FARE", &errs)
	setFloatFromEnv(&cfg.PerKmCharge, "PER_KM_CHARGE", &errs)
	setFloatFromEnv(&cfg.ConvenienceFee, "CONVENIENCE_FEE", &errs)

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")
	setInt64FromEnv(&cfg.Seed, "SIM_SEED", &errs)

	if cfg.TriderUpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("TRIDER_UPDATE_INTERVAL must be > 0"))
	}
	if cfg.RideRequestInterval <= 0 {
		errs = append(errs, fmt.Errorf("RIDE_REQUEST_INTERVAL must be > 0"))
	}
	if cfg.AIInsightInterval <= 0 {
		errs = append(errs, fmt.Errorf("AI_INSIGHT_INTERVAL must be > 0"))
	}
	if cfg.DefaultBaseFare < 0 || cfg.PerKmCharge < 0 || cfg.ConvenienceFee < 0 {
		errs = append(errs, fmt.Errorf("fare settings must be >= 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setInt64FromEnv(target *int64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
