// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service     ServiceConfig
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Departments DepartmentsConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	Port            int
	GRPCPort        int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds Postgres connection and pool settings.
type DatabaseConfig struct {
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
	HealthCheck time.Duration
}

// NATSConfig holds notification publisher settings.
type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
}

// DepartmentsConfig names the departments that decide each approval axis.
type DepartmentsConfig struct {
	Procurement string
	Finance     string
	Inventory   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	l := &loader{}
	cfg := &Config{
		Service: ServiceConfig{
			Name:        l.str("SERVICE_NAME", "be-erp-approvals"),
			Version:     l.str("SERVICE_VERSION", "dev"),
			Environment: l.str("ENVIRONMENT", "development"),
			LogLevel:    l.str("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:            l.int("HTTP_PORT", 8080),
			GRPCPort:        l.int("GRPC_PORT", 9090),
			ReadTimeout:     l.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    l.duration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     l.duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
			RequestTimeout:  l.duration("REQUEST_TIMEOUT", 30*time.Second),
			CORSOrigins:     []string{l.str("CORS_ORIGIN", "*")},
		},
		Database: DatabaseConfig{
			URL:         l.str("DATABASE_URL", ""),
			Host:        l.str("DB_HOST", "localhost"),
			Port:        l.int("DB_PORT", 5432),
			User:        l.str("DB_USER", "postgres"),
			Password:    l.str("DB_PASSWORD", "postgres"),
			Database:    l.str("DB_NAME", "erp"),
			SSLMode:     l.str("DB_SSLMODE", "disable"),
			MaxConns:    int32(l.int("DB_MAX_CONNS", 10)),
			MinConns:    int32(l.int("DB_MIN_CONNS", 1)),
			MaxConnTime: l.duration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxIdleTime: l.duration("DB_MAX_CONN_IDLE", 30*time.Minute),
			HealthCheck: l.duration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		},
		NATS: NATSConfig{
			Enabled: l.bool("NATS_ENABLED", false),
			URL:     l.str("NATS_URL", "nats://localhost:4222"),
			Stream:  l.str("NATS_STREAM", "NOTIFICATIONS"),
		},
		Departments: DepartmentsConfig{
			Procurement: l.str("DEPT_PROCUREMENT", "Procurement"),
			Finance:     l.str("DEPT_FINANCE", "Finance"),
			Inventory:   l.str("DEPT_INVENTORY", "Inventory"),
		},
	}

	if l.err != nil {
		return nil, l.err
	}
	return cfg, nil
}

// loader records the first parse failure so Load can report it once.
type loader struct {
	err error
}

func (l *loader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (l *loader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return n
}

func (l *loader) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return b
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return d
}

func (l *loader) fail(key, value string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}
