package folio

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvProduction is the only environment in which pages may be indexed.
const EnvProduction = "production"

// ContentfulConfig locates the CMS space and holds its API credentials.
type ContentfulConfig struct {
	SpaceID        string        `yaml:"space_id"`
	Environment    string        `yaml:"environment"`      // default "master"
	AccessToken    string        `yaml:"access_token"`     // Delivery API token
	PreviewToken   string        `yaml:"preview_token"`    // Preview API token, enables preview mode
	BaseURL        string        `yaml:"base_url"`         // default cdn.contentful.com
	PreviewBaseURL string        `yaml:"preview_base_url"` // default preview.contentful.com
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// Validate checks that the space can be reached.
func (c ContentfulConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SpaceID, validation.Required),
		validation.Field(&c.AccessToken, validation.Required),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.PreviewBaseURL, is.URL),
	)
}

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Fallback site name (default "Portfolio")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Fallback site description
	Author      string `yaml:"author"`      // Fallback author for meta tags and JSON-LD

	Addr        string `yaml:"addr"`        // Listen address (default ":3000")
	Environment string `yaml:"environment"` // Anything but "production" is noindex

	Contentful ContentfulConfig `yaml:"contentful"`

	CacheTTL             time.Duration `yaml:"cache_ttl"`              // Entry cache TTL (default 30s)
	RevalidateInterval   time.Duration `yaml:"revalidate_interval"`    // Background refresh (default 5m, negative disables)
	SnapshotDatabasePath string        `yaml:"snapshot_database_path"` // SQLite path (default "data/folio.db")
	RedisURL             string        `yaml:"redis_url"`              // Optional shared entry cache

	SessionSecret   string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure    bool   `yaml:"cookie_secure"`  // Set true for HTTPS
	PreviewSecret   string `yaml:"preview_secret"`
	RevalidateToken string `yaml:"revalidate_token"`

	MetricsEnabled bool     `yaml:"metrics_enabled"`
	FaviconVersion string   `yaml:"favicon_version"`
	ImageProxy     bool     `yaml:"image_proxy"` // Serve CMS images through /_img
	AssetHosts     []string `yaml:"asset_hosts"` // Hosts /_img may fetch from
	LogLevel       string   `yaml:"log_level"`
}

// DefaultAssetHosts are the Contentful asset CDNs.
var DefaultAssetHosts = []string{
	"images.ctfassets.net",
	"assets.ctfassets.net",
	"downloads.ctfassets.net",
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Contentful.Environment == "" {
		c.Contentful.Environment = "master"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.RevalidateInterval == 0 {
		c.RevalidateInterval = 5 * time.Minute
	}
	if c.SnapshotDatabasePath == "" {
		c.SnapshotDatabasePath = "data/folio.db"
	}
	if len(c.AssetHosts) == 0 {
		c.AssetHosts = append([]string(nil), DefaultAssetHosts...)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// IsProduction reports whether pages may be indexed by search engines.
func (c SiteConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate checks the configuration for a site backed by Contentful.
func (c SiteConfig) Validate() error {
	return c.validate(true)
}

func (c SiteConfig) validate(needContentful bool) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.SessionSecret, validation.Required),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Contentful, validation.Skip.When(!needContentful)),
	)
}

// LoadConfig reads an optional YAML file, overlays environment variables
// and applies defaults. An empty path skips the file.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("folio: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("folio: parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(cfg *SiteConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("FOLIO_NAME", &cfg.Name)
	str("FOLIO_URL", &cfg.URL)
	str("FOLIO_DESCRIPTION", &cfg.Description)
	str("FOLIO_AUTHOR", &cfg.Author)
	str("FOLIO_ADDR", &cfg.Addr)
	str("FOLIO_ENV", &cfg.Environment)
	str("FOLIO_SNAPSHOT_DB", &cfg.SnapshotDatabasePath)
	str("FOLIO_REDIS_URL", &cfg.RedisURL)
	str("FOLIO_SESSION_SECRET", &cfg.SessionSecret)
	str("FOLIO_PREVIEW_SECRET", &cfg.PreviewSecret)
	str("FOLIO_REVALIDATE_TOKEN", &cfg.RevalidateToken)
	str("FOLIO_FAVICON_VERSION", &cfg.FaviconVersion)
	str("LOG_LEVEL", &cfg.LogLevel)
	dur("FOLIO_CACHE_TTL", &cfg.CacheTTL)
	dur("FOLIO_REVALIDATE_INTERVAL", &cfg.RevalidateInterval)
	boolean("FOLIO_COOKIE_SECURE", &cfg.CookieSecure)
	boolean("FOLIO_METRICS", &cfg.MetricsEnabled)
	boolean("FOLIO_IMAGE_PROXY", &cfg.ImageProxy)
	if v, ok := lookup("FOLIO_ASSET_HOSTS"); ok && v != "" {
		cfg.AssetHosts = nil
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.AssetHosts = append(cfg.AssetHosts, h)
			}
		}
	}

	str("CONTENTFUL_SPACE_ID", &cfg.Contentful.SpaceID)
	str("CONTENTFUL_ENVIRONMENT", &cfg.Contentful.Environment)
	str("CONTENTFUL_ACCESS_TOKEN", &cfg.Contentful.AccessToken)
	str("CONTENTFUL_PREVIEW_ACCESS_TOKEN", &cfg.Contentful.PreviewToken)
	str("CONTENTFUL_BASE_URL", &cfg.Contentful.BaseURL)
	str("CONTENTFUL_PREVIEW_BASE_URL", &cfg.Contentful.PreviewBaseURL)
	dur("CONTENTFUL_TIMEOUT", &cfg.Contentful.Timeout)
	if v, ok := lookup("CONTENTFUL_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CONTENTFUL_MAX_RETRIES: %w", err))
		} else {
			cfg.Contentful.MaxRetries = n
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("folio: environment: %w", errors.Join(errs...))
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews overrides the default page components. Nil fields keep the
// default.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = a.Views.merge(v)
	}
}

// WithRepository sets the published-content source, replacing the
// Contentful Delivery client. Contentful credentials are then optional.
func WithRepository(r Repository) Option {
	return func(a *App) {
		a.repo = r
	}
}

// WithPreviewRepository sets the draft-content source used in preview
// sessions.
func WithPreviewRepository(r Repository) Option {
	return func(a *App) {
		a.previewRepo = r
	}
}

// WithSharedCache sets the second-level entry cache shared between
// instances, replacing the one built from RedisURL.
func WithSharedCache(s SharedCache) Option {
	return func(a *App) {
		a.shared = s
	}
}

// WithLogger sets the application logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
