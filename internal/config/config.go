// README: Config loader with env defaults for HTTP, storage, auth, events, and matching settings.
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

type RouteConfig struct {
	MaxSeats     int
	StopInterval time.Duration
	MapsAPIKey   string
	MapsRegion   string
}

type BroadcastConfig struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

type Config struct {
	LogLevel string
	HTTP     struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Auth struct {
		// Mode is "firebase" or "jwt".
		Mode      string
		JWTSecret string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
		FCMEnabled      bool
	}
	Events struct {
		QueueSize    int
		KafkaBrokers []string
		KafkaTopic   string
		AMQPURL      string
		AMQPExchange string
	}
	Route     RouteConfig
	Broadcast BroadcastConfig
}

// Load reads CAMPUSPOOL_* variables, after merging an optional .env file from the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.LogLevel = envOrDefault("CAMPUSPOOL_LOG_LEVEL", "info")
	cfg.HTTP.Addr = envOrDefault("CAMPUSPOOL_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("CAMPUSPOOL_DB_DSN")
	cfg.Redis.Addr = os.Getenv("CAMPUSPOOL_REDIS_ADDR")

	cfg.Auth.Mode = strings.ToLower(envOrDefault("CAMPUSPOOL_AUTH_MODE", "firebase"))
	cfg.Auth.JWTSecret = os.Getenv("CAMPUSPOOL_JWT_SECRET")
	cfg.Firebase.ProjectID = os.Getenv("CAMPUSPOOL_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("CAMPUSPOOL_FIREBASE_CREDENTIALS")
	cfg.Firebase.FCMEnabled = envOrDefaultBool("CAMPUSPOOL_FCM_ENABLED", false)

	cfg.Events.QueueSize = envOrDefaultInt("CAMPUSPOOL_EVENT_QUEUE", 256)
	cfg.Events.KafkaBrokers = envList("CAMPUSPOOL_KAFKA_BROKERS")
	cfg.Events.KafkaTopic = envOrDefault("CAMPUSPOOL_KAFKA_TOPIC", "campuspool.events")
	cfg.Events.AMQPURL = os.Getenv("CAMPUSPOOL_AMQP_URL")
	cfg.Events.AMQPExchange = envOrDefault("CAMPUSPOOL_AMQP_EXCHANGE", "campuspool.events")

	cfg.Route.MaxSeats = envOrDefaultInt("CAMPUSPOOL_MAX_SEATS", 6)
	cfg.Route.StopInterval = envOrDefaultDuration("CAMPUSPOOL_STOP_INTERVAL", 10*time.Minute)
	cfg.Route.MapsAPIKey = os.Getenv("CAMPUSPOOL_MAPS_API_KEY")
	cfg.Route.MapsRegion = envOrDefault("CAMPUSPOOL_MAPS_REGION", "in")

	cfg.Broadcast.DefaultTTL = envOrDefaultDuration("CAMPUSPOOL_BROADCAST_TTL", 30*time.Minute)
	cfg.Broadcast.SweepInterval = envOrDefaultDuration("CAMPUSPOOL_SWEEP_INTERVAL", time.Minute)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("CAMPUSPOOL_HTTP_ADDR must not be empty"))
	}
	switch c.Auth.Mode {
	case "firebase":
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("CAMPUSPOOL_FIREBASE_PROJECT_ID is required in firebase auth mode"))
		}
	case "jwt":
		if len(c.Auth.JWTSecret) < 16 {
			errs = append(errs, errors.New("CAMPUSPOOL_JWT_SECRET must be at least 16 bytes in jwt auth mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("CAMPUSPOOL_AUTH_MODE %q: want firebase or jwt", c.Auth.Mode))
	}
	if c.Firebase.FCMEnabled && c.Firebase.ProjectID == "" {
		errs = append(errs, errors.New("CAMPUSPOOL_FCM_ENABLED requires CAMPUSPOOL_FIREBASE_PROJECT_ID"))
	}
	if c.Route.MaxSeats < 1 {
		errs = append(errs, errors.New("CAMPUSPOOL_MAX_SEATS must be positive"))
	}
	if c.Route.StopInterval <= 0 {
		errs = append(errs, errors.New("CAMPUSPOOL_STOP_INTERVAL must be positive"))
	}
	if c.Broadcast.DefaultTTL <= 0 {
		errs = append(errs, errors.New("CAMPUSPOOL_BROADCAST_TTL must be positive"))
	}
	if c.Broadcast.SweepInterval <= 0 {
		errs = append(errs, errors.New("CAMPUSPOOL_SWEEP_INTERVAL must be positive"))
	}
	if c.Events.QueueSize < 1 {
		errs = append(errs, errors.New("CAMPUSPOOL_EVENT_QUEUE must be positive"))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
