// Package folio is a portfolio site engine built with Go, Echo, and templ,
// backed by the Contentful headless CMS. It renders the home, work, project,
// about, contact and legal pages with resolved SEO metadata, a no-JS
// lightbox gallery, RSS, and a sitemap.
//
// Users may replace any page template via the ViewFuncs struct; folio
// handles content fetching, caching, preview sessions, and middleware.
package folio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/contentful"
	"github.com/eringen/folio/views"
)

// ViewFuncs holds the templ components the handlers render. This is the
// inversion-of-control mechanism that lets users own and customize all
// templates.
type ViewFuncs struct {
	Home        func(p views.Page, image *content.Asset) templ.Component
	Work        func(p views.Page, projects []content.Project) templ.Component
	Project     func(p views.Page, project content.Project, lb views.Lightbox) templ.Component
	About       func(p views.Page, about *content.About, section string) templ.Component
	Contact     func(p views.Page, about *content.About) templ.Component
	Legal       func(p views.Page, doc views.LegalDoc) templ.Component
	NotFound    func(p views.Page) templ.Component
	ServerError func(p views.Page) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Work:        views.Work,
		Project:     views.Project,
		About:       views.About,
		Contact:     views.Contact,
		Legal:       views.Legal,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v ViewFuncs) merge(o ViewFuncs) ViewFuncs {
	if o.Home != nil {
		v.Home = o.Home
	}
	if o.Work != nil {
		v.Work = o.Work
	}
	if o.Project != nil {
		v.Project = o.Project
	}
	if o.About != nil {
		v.About = o.About
	}
	if o.Contact != nil {
		v.Contact = o.Contact
	}
	if o.Legal != nil {
		v.Legal = o.Legal
	}
	if o.NotFound != nil {
		v.NotFound = o.NotFound
	}
	if o.ServerError != nil {
		v.ServerError = o.ServerError
	}
	return v
}

// App is the central folio application. It wires together the content
// repositories, cache, store, handlers, middleware, and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *ContentCache
	Views   ViewFuncs
	Logger  *zap.Logger
	Metrics *Metrics

	repo           Repository
	previewRepo    Repository
	shared         SharedCache
	previewLimiter *Limiter
	revalidator    *Revalidator
	httpClient     *http.Client
	imageGroup     singleflight.Group
	customRoutes   []func(*App)
	staticDir      string
	ready          bool
}

// New creates a new folio App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:     cfg,
		Echo:       echo.New(),
		Views:      DefaultViews(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		staticDir:  "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup validates the configuration and initializes the store, repositories,
// cache, middleware, and routes without starting the server. Start calls it;
// tests call it directly and drive a.Echo with httptest.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.validate(a.repo == nil); err != nil {
		return fmt.Errorf("folio: invalid config: %w", err)
	}

	if a.Logger == nil {
		logger, err := NewLogger(a.Config.LogLevel, a.Config.Environment)
		if err != nil {
			return err
		}
		a.Logger = logger
	}

	if err := a.setupRepositories(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.SnapshotDatabasePath)
	if err != nil {
		return fmt.Errorf("folio: init store: %w", err)
	}
	a.Store = store

	if a.shared == nil && a.Config.RedisURL != "" {
		rc, err := NewRedisCache(a.Config.RedisURL, a.Config.CacheTTL, a.Config.Contentful.SpaceID+":"+a.Config.Contentful.Environment)
		if err != nil {
			return err
		}
		a.shared = rc
	}

	a.Metrics = NewMetrics()
	a.Cache = NewContentCache(a.repo, CacheOptions{
		TTL:     a.Config.CacheTTL,
		Store:   a.Store,
		Shared:  a.shared,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	})

	if a.Config.RevalidateInterval > 0 {
		r, err := NewRevalidator(a.Cache, a.Config.RevalidateInterval, a.Logger)
		if err != nil {
			return err
		}
		if err := r.Schedule("@daily", a.pruneImages); err != nil {
			return err
		}
		a.revalidator = r
	}

	a.previewLimiter = NewLimiter(10, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Serve embedded framework assets (gallery.js). These are served under
	// /public/ and fall through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/gallery.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/favicon.ico", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/_img", a.handleImage)

	// Pages
	e.GET("/", a.handleHome)
	e.GET("/work/", a.handleWork)
	e.GET("/projects/:slug/", a.handleProject)
	e.GET("/about/", a.handleAbout)
	e.GET("/contact/", a.handleContact)
	e.GET("/imprint/", a.handleImprint)
	e.GET("/privacy/", a.handlePrivacy)
	e.GET("/datenschutz/", handlePrivacyRedirect)

	// API
	e.GET("/api/refresh-favicon", handleRefreshFavicon)
	e.GET("/api/preview", a.handlePreview)
	e.POST("/api/preview/exit/", a.handlePreviewExit)
	e.POST("/api/revalidate", a.handleRevalidate)

	if a.Config.MetricsEnabled {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: a.Metrics.Registry,
		}))
	}
}

func (a *App) setupRepositories() error {
	cf := a.Config.Contentful
	if a.repo == nil {
		client, err := contentful.New(contentful.Config{
			SpaceID:     cf.SpaceID,
			Environment: cf.Environment,
			AccessToken: cf.AccessToken,
			BaseURL:     cf.BaseURL,
			Timeout:     cf.Timeout,
			MaxRetries:  cf.MaxRetries,
			Logger:      a.Logger,
		})
		if err != nil {
			return fmt.Errorf("folio: delivery client: %w", err)
		}
		a.repo = client
	}
	if a.previewRepo == nil && cf.PreviewToken != "" && cf.SpaceID != "" {
		base := cf.PreviewBaseURL
		if base == "" {
			base = contentful.PreviewBaseURL
		}
		client, err := contentful.New(contentful.Config{
			SpaceID:     cf.SpaceID,
			Environment: cf.Environment,
			AccessToken: cf.PreviewToken,
			BaseURL:     base,
			Timeout:     cf.Timeout,
			MaxRetries:  cf.MaxRetries,
			Logger:      a.Logger,
		})
		if err != nil {
			return fmt.Errorf("folio: preview client: %w", err)
		}
		a.previewRepo = client
	}
	return nil
}

// imageRetention is how long resized images stay in the cache.
const imageRetention = 30 * 24 * time.Hour

func (a *App) pruneImages() {
	n, err := a.Store.PruneImages(time.Now().Add(-imageRetention))
	if err != nil {
		a.Logger.Error("image cache prune failed", zap.Error(err))
		return
	}
	a.Logger.Info("image cache pruned", zap.Int64("removed", n))
}

// Start initializes the app, warms the cache, starts background
// revalidation, and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if a.revalidator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.revalidator.RunOnce(ctx); err != nil {
			a.Logger.Warn("initial content load incomplete", zap.Error(err))
		}
		cancel()
		a.revalidator.Start()
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("environment", a.Config.Environment))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.revalidator != nil {
		a.revalidator.Stop()
	}
	if a.previewLimiter != nil {
		a.previewLimiter.Stop()
	}
	var errs []error
	if a.shared != nil {
		errs = append(errs, a.shared.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
