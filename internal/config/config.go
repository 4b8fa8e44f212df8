package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"truck-simulator/internal/route"
	"truck-simulator/internal/states"
)

type Config struct {
	// Routing
	OSRMURL          string
	RouteTimeout     time.Duration
	DetourFactor     float64
	FallbackSpeedKmh float64

	// State attribution
	StatesGeoJSON string
	MaxSnapKm     float64

	// Batch
	MetrosFile string
	Trips      int
	Workers    int
	Seed       int64

	// Outputs
	DatabaseURL     string
	NATSURL         string
	LogNATSSubjects bool
	MetricsAddr     string

	LogLevel string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.OSRMURL = getenvDefault("OSRM_URL", "https://router.project-osrm.org")

	if v := os.Getenv("ROUTE_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid ROUTE_TIMEOUT_SEC: %q", v)
		}
		cfg.RouteTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.RouteTimeout = 30 * time.Second
	}

	if v := os.Getenv("DETOUR_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid DETOUR_FACTOR: %q", v)
		}
		cfg.DetourFactor = f
	} else {
		cfg.DetourFactor = route.DefaultDetourFactor
	}

	if v := os.Getenv("FALLBACK_SPEED_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid FALLBACK_SPEED_KMH: %q", v)
		}
		cfg.FallbackSpeedKmh = f
	} else {
		cfg.FallbackSpeedKmh = route.DefaultFallbackSpeedKmh
	}

	cfg.StatesGeoJSON = os.Getenv("STATES_GEOJSON")

	if v := os.Getenv("MAX_SNAP_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid MAX_SNAP_KM: %q", v)
		}
		cfg.MaxSnapKm = f
	} else {
		cfg.MaxSnapKm = states.DefaultMaxSnapKm
	}

	cfg.MetrosFile = os.Getenv("METROS_FILE")

	if v := os.Getenv("SIM_TRIPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SIM_TRIPS: %q", v)
		}
		cfg.Trips = n
	} else {
		cfg.Trips = 100
	}

	if v := os.Getenv("SIM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SIM_WORKERS: %q", v)
		}
		cfg.Workers = n
	} else {
		cfg.Workers = 8
	}

	if v := os.Getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_SEED: %q", v)
		}
		cfg.Seed = n
	}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars.
	// Empty disables persistence.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn

	// NATS URL; empty disables publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")

	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
