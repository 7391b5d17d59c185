package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "mhestore.yaml"

// Config holds all application configuration.
type Config struct {
	// Marketplace
	APIBaseURL  string `yaml:"api_base_url"`
	SiteURL     string `yaml:"site_url"`
	AccessToken string `yaml:"access_token"`
	UserID      int64  `yaml:"user_id"`
	UserAgent   string `yaml:"user_agent"`
	Currency    string `yaml:"currency"`
	CompareMax  int    `yaml:"compare_max"`

	// Rate limiting and retries
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	ReadRetries    int           `yaml:"read_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Local state
	StoreDriver   string `yaml:"store_driver"` // "file", "memory", "redis"
	StorePath     string `yaml:"store_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Surfaces
	Browser  string `yaml:"browser"` // "system", "chrome"
	HTTPPort string `yaml:"http_port"`
	APIKey   string `yaml:"api_key"`
	ProxyURL string `yaml:"proxy_url"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8000/api",
		SiteURL:        "http://localhost:3000",
		UserAgent:      "mhestore/1.0",
		Currency:       "INR",
		CompareMax:     4,
		RatePerSecond:  5.0,
		RateBurst:      5,
		MaxConcurrent:  4,
		ReadRetries:    2,
		RequestTimeout: 15 * time.Second,
		StoreDriver:    "file",
		Browser:        "system",
		HTTPPort:       "8080",
		LogLevel:       "warn",
	}
}

// LoadFile overlays values from a YAML file. A missing file is not an
// error unless required is set.
func (c *Config) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("MHESTORE_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("MHESTORE_SITE_URL"); v != "" {
		c.SiteURL = v
	}
	if v := os.Getenv("MHESTORE_TOKEN"); v != "" {
		c.AccessToken = v
	}
	if v := os.Getenv("MHESTORE_USER_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.UserID = n
		}
	}
	if v := os.Getenv("MHESTORE_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("MHESTORE_CURRENCY"); v != "" {
		c.Currency = strings.ToUpper(v)
	}
	if v := os.Getenv("MHESTORE_COMPARE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CompareMax = n
		}
	}
	if v := os.Getenv("MHESTORE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("MHESTORE_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("MHESTORE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("MHESTORE_READ_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReadRetries = n
		}
	}
	if v := os.Getenv("MHESTORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("MHESTORE_STORE"); v != "" {
		c.StoreDriver = v
	}
	if v := os.Getenv("MHESTORE_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("MHESTORE_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("MHESTORE_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("MHESTORE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("MHESTORE_REDIS_PREFIX"); v != "" {
		c.RedisPrefix = v
	}
	if v := os.Getenv("MHESTORE_BROWSER"); v != "" {
		c.Browser = v
	}
	if v := os.Getenv("MHESTORE_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("MHESTORE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("MHESTORE_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	urls := []struct{ name, raw string }{
		{"api_base_url", c.APIBaseURL},
		{"site_url", c.SiteURL},
	}
	for _, u := range urls {
		parsed, err := url.Parse(u.raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("%s: %q is not an http(s) URL", u.name, u.raw)
		}
	}
	switch c.StoreDriver {
	case "file", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("store_driver redis needs redis_addr")
		}
	default:
		return fmt.Errorf("store_driver: unknown driver %q", c.StoreDriver)
	}
	if c.CompareMax < 1 {
		return fmt.Errorf("compare_max must be at least 1, got %d", c.CompareMax)
	}
	if c.RatePerSecond <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("rate limit must be positive (rate %v, burst %d)", c.RatePerSecond, c.RateBurst)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.ReadRetries < 0 {
		return fmt.Errorf("read_retries cannot be negative, got %d", c.ReadRetries)
	}
	return nil
}
