package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported storage backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	// Server
	Port                    string        `yaml:"port"`
	DataDir                 string        `yaml:"dataDir"`
	StoreBackend            string        `yaml:"storeBackend"`
	DBPath                  string        `yaml:"dbPath"`
	BadgerDir               string        `yaml:"badgerDir"`
	RedisAddr               string        `yaml:"redisAddr"`
	RedisPassword           string        `yaml:"redisPassword"`
	RedisDB                 int           `yaml:"redisDB"`
	TokenTTL                time.Duration `yaml:"tokenTTL"`
	AuthRateLimit           int           `yaml:"authRateLimit"`
	SignInAttemptsPerMinute int           `yaml:"signInAttemptsPerMinute"`
	CORSOrigins             []string      `yaml:"corsOrigins"`

	// Client
	APIURL         string        `yaml:"apiUrl"`
	SessionFile    string        `yaml:"sessionFile"`
	Collection     string        `yaml:"collection"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	LogLevel string `yaml:"logLevel"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	cwd, _ := os.Getwd()
	dataDir := filepath.Join(cwd, "data")

	return &Config{
		Port:                    "8080",
		DataDir:                 dataDir,
		StoreBackend:            BackendSQLite,
		TokenTTL:                720 * time.Hour,
		AuthRateLimit:           20,
		SignInAttemptsPerMinute: 5,
		CORSOrigins:             []string{"*"},
		APIURL:                  "http://localhost:8080",
		Collection:              "series",
		RequestTimeout:          10 * time.Second,
		LogLevel:                "info",
	}
}

// LoadConfig loads the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (environment wins).
// An empty path falls back to SERIES_CONFIG.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SERIES_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.BadgerDir = getEnv("BADGER_DIR", c.BadgerDir)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.APIURL = getEnv("API_URL", c.APIURL)
	c.SessionFile = getEnv("SESSION_FILE", c.SessionFile)
	c.Collection = getEnv("COLLECTION", c.Collection)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", c.AuthRateLimit); err != nil {
		return err
	}
	if c.SignInAttemptsPerMinute, err = getEnvInt("SIGNIN_ATTEMPTS_PER_MINUTE", c.SignInAttemptsPerMinute); err != nil {
		return err
	}
	if c.TokenTTL, err = getEnvDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	return nil
}

// fillDerived sets paths that default to locations under DataDir
func (c *Config) fillDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "series.db")
	}
	if c.BadgerDir == "" {
		c.BadgerDir = filepath.Join(c.DataDir, "badger")
	}
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(c.DataDir, "session.json")
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("invalid store backend %q: must be one of sqlite, badger, memory", c.StoreBackend)
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.AuthRateLimit <= 0 || c.SignInAttemptsPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if strings.TrimSpace(c.Collection) == "" || strings.Contains(c.Collection, "/") {
		return fmt.Errorf("invalid collection name %q", c.Collection)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
