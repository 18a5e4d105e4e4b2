package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Pjt727/homeroom/projectpath"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogle = "google"
	ProviderFeed   = "feed"
)

const (
	defaultListen          = ":3000"
	defaultTimezone        = "America/New_York"
	defaultProviderTimeout = 15 * time.Second
	defaultProviderRate    = 5.0
	defaultConcurrency     = 4
	defaultLogLevel        = "info"
)

// GoogleConfig holds the OAuth client used to reach Google Calendar.
// TokenFile points at a JSON encoded oauth2.Token with a refresh token.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
	// Endpoint overrides the API base url (used against mock servers)
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	DBConn     string `yaml:"db_conn"`
	TestDBConn string `yaml:"test_db_conn"`

	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Timezone is the single IANA zone every course schedule is interpreted in.
	Timezone string `yaml:"timezone"`

	Provider string       `yaml:"provider"`
	Google   GoogleConfig `yaml:"google"`
	// FeedBaseURL is the public url prefix for /feeds/{id}.ics links.
	FeedBaseURL string `yaml:"feed_base_url"`

	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	// ProviderRate is the starting requests per second allowed against the provider.
	ProviderRate    float64 `yaml:"provider_rate"`
	SyncConcurrency int     `yaml:"sync_concurrency"`

	// ResyncCron is a cron expression (e.g. "0 3 * * *") for the periodic
	// resync of every parent. Empty disables it.
	ResyncCron string `yaml:"resync_cron"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		AllowedOrigins:  []string{"*"},
		Timezone:        defaultTimezone,
		Provider:        ProviderGoogle,
		ProviderTimeout: defaultProviderTimeout,
		ProviderRate:    defaultProviderRate,
		SyncConcurrency: defaultConcurrency,
		LogLevel:        defaultLogLevel,
	}
}

// Normalize fills in zero values so partially filled files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGoogle
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaultProviderTimeout
	}
	if c.ProviderRate <= 0 {
		c.ProviderRate = defaultProviderRate
	}
	if c.SyncConcurrency <= 0 {
		c.SyncConcurrency = defaultConcurrency
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogle, ProviderFeed:
	default:
		return fmt.Errorf("unknown calendar provider %q (expected %s or %s)", c.Provider, ProviderGoogle, ProviderFeed)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the optional YAML file at path, then overlays the environment
// (after loading the project's .env when present).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(projectpath.Root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("could not parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// running purely from the environment
		default:
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DB_CONN", &c.DBConn)
	setString("TEST_DB_CONN", &c.TestDBConn)
	setString("HOMEROOM_LISTEN", &c.Listen)
	setString("HOMEROOM_TIMEZONE", &c.Timezone)
	setString("CALENDAR_PROVIDER", &c.Provider)
	setString("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	setString("GOOGLE_TOKEN_FILE", &c.Google.TokenFile)
	setString("GOOGLE_CALENDAR_ENDPOINT", &c.Google.Endpoint)
	setString("FEED_BASE_URL", &c.FeedBaseURL)
	setString("RESYNC_CRON", &c.ResyncCron)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FILE", &c.LogFile)

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
	if v := getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_TIMEOUT %q: %w", v, err)
		}
		c.ProviderTimeout = d
	}
	if v := getenv("PROVIDER_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_RATE %q: %w", v, err)
		}
		c.ProviderRate = r
	}
	if v := getenv("SYNC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_CONCURRENCY %q: %w", v, err)
		}
		c.SyncConcurrency = n
	}
	return nil
}

// FeedURL is the subscribe link of a feed calendar, empty when feeds are not
// served or no public base url is configured
func (c *Config) FeedURL(calendarID string) string {
	if c.Provider != ProviderFeed || c.FeedBaseURL == "" || calendarID == "" {
		return ""
	}
	return strings.TrimSuffix(c.FeedBaseURL, "/") + "/feeds/" + calendarID + ".ics"
}
