// Package config reads taskcal settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with TASKCAL_STORE.
const (
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreRedis     = "redis"
	StoreHTTP      = "http"
	StoreDiskv     = "diskv"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

var Stores = []string{StoreSQLite, StorePostgres, StoreRedis, StoreHTTP, StoreDiskv, StoreFirestore, StoreMemory}

type Config struct {
	AppEnv string
	Store  string

	DatabaseURL string
	SQLitePath  string

	RedisURL    string
	RedisPrefix string

	RemoteURL       string
	RemoteTimeout   time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration

	DiskvPath string

	FirestoreProjectID      string
	FirebaseCredentialsPath string
	FirestoreCollection     string

	// RabbitMQURL enables event publishing when set.
	RabbitMQURL string

	DayOrder      string
	FailurePolicy string

	ServeAddr string

	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarPath string
}

// requiredSetting names the variable each store cannot run without.
var requiredSetting = map[string]struct {
	env string
	get func(*Config) string
}{
	StorePostgres:  {"DATABASE_URL", func(c *Config) string { return c.DatabaseURL }},
	StoreRedis:     {"REDIS_URL", func(c *Config) string { return c.RedisURL }},
	StoreHTTP:      {"TASKCAL_REMOTE_URL", func(c *Config) string { return c.RemoteURL }},
	StoreFirestore: {"FIRESTORE_PROJECT_ID", func(c *Config) string { return c.FirestoreProjectID }},
}

// Load reads the environment, after merging a .env file from the working
// directory when there is one. Malformed numbers and durations are errors.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var env envReader
	cfg := &Config{
		AppEnv: env.str("APP_ENV", "development"),
		Store:  strings.ToLower(env.str("TASKCAL_STORE", StoreSQLite)),

		DatabaseURL: env.str("DATABASE_URL", ""),
		SQLitePath:  env.str("SQLITE_PATH", ""),

		RedisURL:    env.str("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: env.str("TASKCAL_REDIS_PREFIX", "taskcal"),

		RemoteURL:       env.str("TASKCAL_REMOTE_URL", ""),
		RemoteTimeout:   env.duration("TASKCAL_REMOTE_TIMEOUT", 10*time.Second),
		BreakerFailures: env.int("TASKCAL_BREAKER_FAILURES", 5),
		BreakerTimeout:  env.duration("TASKCAL_BREAKER_TIMEOUT", 30*time.Second),

		DiskvPath: env.str("TASKCAL_DISKV_PATH", dataDir("diskv")),

		FirestoreProjectID:      env.str("FIRESTORE_PROJECT_ID", ""),
		FirebaseCredentialsPath: env.str("FIREBASE_CREDENTIALS_PATH", ""),
		FirestoreCollection:     env.str("FIRESTORE_COLLECTION", "tasks"),

		RabbitMQURL: env.str("RABBITMQ_URL", ""),

		DayOrder:      strings.ToLower(env.str("TASKCAL_DAY_ORDER", "insertion")),
		FailurePolicy: strings.ToLower(env.str("TASKCAL_FAILURE_POLICY", "keep")),

		ServeAddr: env.str("TASKCAL_SERVE_ADDR", "127.0.0.1:8080"),

		CalDAVURL:          env.str("CALDAV_URL", ""),
		CalDAVUsername:     env.str("CALDAV_USERNAME", ""),
		CalDAVPassword:     env.str("CALDAV_PASSWORD", ""),
		CalDAVCalendarPath: env.str("CALDAV_CALENDAR_PATH", ""),
	}
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the store name and that the store has what it needs.
func (c *Config) Validate() error {
	known := false
	for _, s := range Stores {
		known = known || s == c.Store
	}
	if !known {
		return fmt.Errorf("unknown TASKCAL_STORE %q (want one of %s)", c.Store, strings.Join(Stores, ", "))
	}
	if req, ok := requiredSetting[c.Store]; ok && req.get(c) == "" {
		return fmt.Errorf("TASKCAL_STORE=%s requires %s", c.Store, req.env)
	}
	if c.BreakerFailures < 1 {
		return fmt.Errorf("TASKCAL_BREAKER_FAILURES must be at least 1, got %d", c.BreakerFailures)
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// HasCalDAV reports whether CalDAV export has a server to talk to.
func (c *Config) HasCalDAV() bool { return c.CalDAVURL != "" }

// envReader reads typed variables and remembers every malformed one.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (r *envReader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

// dataDir is ~/.taskcal/name, or a relative .taskcal/name without a home.
func dataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskcal", name)
	}
	return filepath.Join(home, ".taskcal", name)
}
