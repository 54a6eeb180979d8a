package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"houses_scraper/models"
	"houses_scraper/search"
)

const DefaultSearchPath = "config/search.yaml"

type Config struct {
	Database  DatabaseConfig
	Proxy     ProxyConfig
	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	S3        S3Config
	LogFile   string
	Search    SearchConfig
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string
	URL    string
}

type ProxyConfig struct {
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	Fetcher        string // browser, chrome or http
	Headless       bool
	BrowserDataDir string
	Delay          time.Duration
	Jitter         time.Duration
	ScreenshotDir  string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SearchConfig is the per-run search definition read from the YAML file.
type SearchConfig struct {
	search.Filter `yaml:",inline"`
	Contact       models.ContactForm `yaml:"contact"`
	SubmitContact *bool              `yaml:"submit_contact"`
	PageLimit     int                `yaml:"page_limit"`
}

// ShouldSubmitContact defaults to true when the file does not say otherwise.
func (s *SearchConfig) ShouldSubmitContact() bool {
	return s.SubmitContact == nil || *s.SubmitContact
}

// ValidationError is returned for configuration that must stop the process
// before any request is made.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var errRequired = errors.New("is required")

func Load(searchPath string) (*Config, error) {
	_ = godotenv.Load()

	if searchPath == "" {
		searchPath = getEnv("SEARCH_CONFIG", DefaultSearchPath)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "scraper.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron:     os.Getenv("SCRAPE_CRON"),
			Interval: getEnvDuration("SCRAPE_INTERVAL", 0),
		},
		Scraper: ScraperConfig{
			Fetcher:        getEnv("FETCHER", "browser"),
			Headless:       getEnvBool("HEADLESS", true),
			BrowserDataDir: os.Getenv("BROWSER_DATA_DIR"),
			Delay:          time.Duration(getEnvInt("SCRAPE_DELAY_MS", 1500)) * time.Millisecond,
			Jitter:         time.Duration(getEnvInt("SCRAPE_JITTER_MS", 1000)) * time.Millisecond,
			ScreenshotDir:  getEnv("SCREENSHOT_DIR", "logs/screenshots"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		LogFile: getEnv("LOG_FILE", "scraper.log"),
	}

	sc, err := LoadSearch(searchPath)
	if err != nil {
		return nil, err
	}
	cfg.Search = *sc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSearch reads a search file, filling the defaults for anything it omits.
func LoadSearch(path string) (*SearchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search config: %w", err)
	}
	return ParseSearch(data)
}

func ParseSearch(data []byte) (*SearchConfig, error) {
	sc := &SearchConfig{Filter: search.DefaultFilter(), PageLimit: 1}
	sc.PropertyTypes = nil

	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse search config: %w", err)
	}

	if sc.PropertyTypes == nil {
		sc.PropertyTypes = search.DefaultFilter().PropertyTypes
	}
	return sc, nil
}

// Validate checks everything that would otherwise only fail mid-crawl.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return &ValidationError{Field: "DB_PATH", Err: errRequired}
		}
	case "postgres":
		if c.Database.URL == "" {
			return &ValidationError{Field: "DATABASE_URL", Err: errRequired}
		}
	default:
		return &ValidationError{Field: "DB_DRIVER", Err: fmt.Errorf("unknown driver %q", c.Database.Driver)}
	}

	switch c.Scraper.Fetcher {
	case "browser", "chrome", "http":
	default:
		return &ValidationError{Field: "FETCHER", Err: fmt.Errorf("unknown fetcher %q", c.Scraper.Fetcher)}
	}

	if c.Scraper.Delay < 0 || c.Scraper.Jitter < 0 {
		return &ValidationError{Field: "SCRAPE_DELAY_MS", Err: errors.New("delays must not be negative")}
	}

	return c.Search.Validate()
}

func (s *SearchConfig) Validate() error {
	if err := s.Filter.Validate(); err != nil {
		return &ValidationError{Field: "search", Err: err}
	}
	if s.PageLimit < 1 {
		return &ValidationError{Field: "page_limit", Err: fmt.Errorf("must be at least 1, got %d", s.PageLimit)}
	}
	if strings.TrimSpace(s.Contact.Name) == "" {
		return &ValidationError{Field: "contact.name", Err: errRequired}
	}
	if strings.TrimSpace(s.Contact.Email) == "" {
		return &ValidationError{Field: "contact.email", Err: errRequired}
	}
	if _, err := mail.ParseAddress(s.Contact.Email); err != nil {
		return &ValidationError{Field: "contact.email", Err: err}
	}
	if strings.TrimSpace(s.Contact.Phone) == "" {
		return &ValidationError{Field: "contact.phone", Err: errRequired}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
