package folio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/folio/content"
)

func asset(name string) map[string]any {
	return map[string]any{
		"title": name,
		"file": map[string]any{
			"url":         "//images.ctfassets.net/space/" + name + ".jpg",
			"contentType": "image/jpeg",
			"details":     map[string]any{"size": 1024, "image": map[string]any{"width": 800, "height": 600}},
		},
	}
}

// seedRepo returns a repository holding a small but complete site.
func seedRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.set(content.TypeSiteSettings, content.Entry{ID: "s", Fields: map[string]any{
		"siteName": "Studio Nord",
		"author":   "Ada Nord",
	}})
	repo.set(content.TypeSEOMetadata, content.Entry{ID: "seo-home", Fields: map[string]any{
		"pageTitle":       "Graphic Design",
		"metaDescription": "Posters, books and identities.",
	}}, content.Entry{ID: "seo-about", Fields: map[string]any{
		"pageTitle":       "About the studio",
		"metaDescription": "Who we are.",
	}})
	repo.set(content.TypeHeader, content.Entry{ID: "h", Fields: map[string]any{
		"title": "Studio Nord",
		"navigationLinks": []any{
			map[string]any{"label": "Work", "url": "/work/"},
			map[string]any{"label": "About", "url": "/about/"},
		},
	}})
	repo.set(content.TypeLandingPage, content.Entry{ID: "l", Fields: map[string]any{
		"randomImage": []any{asset("landing")},
	}})
	repo.set(content.TypeProject,
		content.Entry{ID: "p1", UpdatedAt: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), Fields: map[string]any{
			"title": "Poster Series",
			"slug":  "poster-series",
			"year":  "2023",
			"image": []any{asset("one"), asset("two"), asset("three")},
		}},
		content.Entry{ID: "p2", Fields: map[string]any{
			"title": "Type Specimen",
			"slug":  "type-specimen",
		}},
	)
	repo.set(content.TypeImprint, content.Entry{ID: "i", Fields: map[string]any{
		"englishTitle": "Legal Notice",
	}})
	return repo
}

func newTestApp(t *testing.T, configure func(*SiteConfig), opts ...Option) *App {
	t.Helper()
	cfg := SiteConfig{
		URL:                  "https://studio.example",
		SessionSecret:        "test-secret",
		SnapshotDatabasePath: filepath.Join(t.TempDir(), "folio.db"),
	}
	if configure != nil {
		configure(&cfg)
	}
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "favicon.ico"), []byte("ico"), 0o644))

	base := []Option{WithRepository(seedRepo()), WithLogger(zap.NewNop()), WithStaticDir(static)}
	app := New(cfg, append(base, opts...)...)
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })
	return app
}

func do(app *App, method, target string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func TestSetupRequiresContentfulWithoutRepository(t *testing.T) {
	app := New(SiteConfig{SessionSecret: "x", SnapshotDatabasePath: filepath.Join(t.TempDir(), "f.db")}, WithLogger(zap.NewNop()))
	assert.Error(t, app.Setup())
}

func TestHomePage(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	assert.Equal(t, "Graphic Design | Studio Nord", doc.Find("title").Text())
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	assert.Equal(t, "Posters, books and identities.", desc)
	src, _ := doc.Find("img.landing-image").Attr("src")
	assert.Equal(t, "https://images.ctfassets.net/space/landing.jpg", src)
	assert.Equal(t, 1, doc.Find(`meta[name="robots"]`).Length(), "non-production pages are noindex")
	assert.Equal(t, "private, max-age=30, stale-while-revalidate=300", rec.Header().Get("Cache-Control"),
		"pages carry the CSRF cookie")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSharedResourcesSetNoCookie(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.Environment = EnvProduction })

	for _, path := range []string{"/robots.txt", "/sitemap.xml", "/feed.xml", "/favicon.ico"} {
		rec := do(app, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Header().Values("Set-Cookie"), path)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Cache-Control"), "public"), path)
	}

	rec := do(app, http.MethodGet, "/")
	assert.NotEmpty(t, rec.Header().Values("Set-Cookie"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Cache-Control"), "private"))
}

func TestProductionPagesAreIndexable(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.Environment = EnvProduction })

	doc := parse(t, do(app, http.MethodGet, "/"))
	assert.Equal(t, 0, doc.Find(`meta[name="robots"]`).Length())
}

func TestWorkPage(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/work/")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	assert.Equal(t, 2, doc.Find("li.project-card").Length())
	href, _ := doc.Find("li.project-card a").First().Attr("href")
	assert.Equal(t, "/projects/poster-series/", href)
	// No SEO record names the work page, so the default title applies.
	assert.Equal(t, "Work | Studio Nord", doc.Find("title").Text())
}

func TestTrailingSlashRedirect(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/work")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/work/", rec.Header().Get("Location"))
}

func TestProjectPage(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/projects/poster-series/")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	assert.Equal(t, "Poster Series | Studio Nord", doc.Find("title").Text())
	assert.Equal(t, 3, doc.Find("a[data-gallery-index]").Length())
	assert.Equal(t, 0, doc.Find("#lightbox").Length())
	assert.Equal(t, 1, doc.Find(`script[src="/public/gallery.js"]`).Length())
	assert.Contains(t, doc.Find(`script[type="application/ld+json"]`).Text(), "CreativeWork")
	_, hasClass := doc.Find("body").Attr("class")
	assert.False(t, hasClass)
}

func TestProjectPageKeepsOwnTitle(t *testing.T) {
	repo := seedRepo()
	repo.set(content.TypeSEOMetadata, content.Entry{ID: "seo-work", Fields: map[string]any{
		"pageTitle":       "Projects",
		"metaDescription": "Everything we made.",
	}})
	app := newTestApp(t, nil, WithRepository(repo))

	doc := parse(t, do(app, http.MethodGet, "/projects/poster-series/"))
	assert.Equal(t, "Poster Series | Studio Nord", doc.Find("title").Text())
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	assert.NotEqual(t, "Everything we made.", desc)
}

func TestProjectLightbox(t *testing.T) {
	app := newTestApp(t, nil)

	doc := parse(t, do(app, http.MethodGet, "/projects/poster-series/?image=1"))

	lb := doc.Find("#lightbox")
	require.Equal(t, 1, lb.Length())
	assert.Equal(t, "2 / 3", lb.Find("figcaption .lightbox-counter").Text())
	assert.Equal(t, "two", lb.Find("figcaption .lightbox-title").Text())
	prev, _ := lb.Find("a.lightbox-prev").Attr("href")
	next, _ := lb.Find("a.lightbox-next").Attr("href")
	assert.Equal(t, "/projects/poster-series/?image=0#lightbox", prev)
	assert.Equal(t, "/projects/poster-series/?image=2#lightbox", next)
	class, _ := doc.Find("body").Attr("class")
	assert.Equal(t, "modal-open", class)
}

func TestProjectLightboxIgnoresBadIndex(t *testing.T) {
	app := newTestApp(t, nil)

	for _, q := range []string{"9", "-1", "abc"} {
		rec := do(app, http.MethodGet, "/projects/poster-series/?image="+q)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, parse(t, rec).Find("#lightbox").Length(), "image=%s", q)
	}
}

func TestProjectNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/projects/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, parse(t, rec).Find("title").Text(), "Page not found")
}

func TestAboutUsesMatchingSEORecord(t *testing.T) {
	app := newTestApp(t, nil)

	doc := parse(t, do(app, http.MethodGet, "/about/"))
	assert.Equal(t, "About the studio | Studio Nord", doc.Find("title").Text())
}

func TestLegalPages(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/imprint/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Legal Notice | Studio Nord", parse(t, rec).Find("title").Text())

	rec = do(app, http.MethodGet, "/privacy/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Privacy Policy | Studio Nord", parse(t, rec).Find("title").Text())

	rec = do(app, http.MethodGet, "/datenschutz/")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/privacy/", rec.Header().Get("Location"))
}

func TestContentFailureFallsBackToSnapshot(t *testing.T) {
	repo := seedRepo()
	app := newTestApp(t, nil, WithRepository(repo))

	require.Equal(t, http.StatusOK, do(app, http.MethodGet, "/work/").Code)

	// A fresh cache over the same store, with the CMS down.
	repo.fail(errors.New("cms down"))
	app.Cache = NewContentCache(repo, CacheOptions{TTL: time.Minute, Store: app.Store})

	rec := do(app, http.MethodGet, "/work/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, parse(t, rec).Find("li.project-card").Length())
}

func TestRobots(t *testing.T) {
	app := newTestApp(t, nil)
	rec := do(app, http.MethodGet, "/robots.txt")
	assert.Equal(t, "User-agent: *\nDisallow: /\n", rec.Body.String())

	prod := newTestApp(t, func(c *SiteConfig) { c.Environment = EnvProduction })
	rec = do(prod, http.MethodGet, "/robots.txt")
	assert.Contains(t, rec.Body.String(), "Allow: /\n")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://studio.example/sitemap.xml")
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestSitemap(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://studio.example</loc>")
	assert.Contains(t, body, "<loc>https://studio.example/work/</loc>")
	assert.Contains(t, body, "<loc>https://studio.example/projects/poster-series/</loc><lastmod>2024-05-02</lastmod>")
	assert.Contains(t, body, "<loc>https://studio.example/projects/type-specimen/</loc>")
}

func TestFeed(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, "<title>Poster Series</title>")
	assert.Contains(t, body, `url="https://images.ctfassets.net/space/one.jpg"`)
}

func TestFavicon(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/favicon.ico")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ico", rec.Body.String())
}

func TestRefreshFavicon(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/api/refresh-favicon", func(r *http.Request) {
		r.Header.Set("Referer", "http://example.com/about/")
	})
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/about/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))

	rec = do(app, http.MethodGet, "/api/refresh-favicon", func(r *http.Request) {
		r.Header.Set("Referer", "https://evil.example/phish/")
	})
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRevalidate(t *testing.T) {
	repo := seedRepo()
	app := newTestApp(t, func(c *SiteConfig) { c.RevalidateToken = "hook" }, WithRepository(repo))
	bearer := func(tok string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
	}

	assert.Equal(t, http.StatusUnauthorized, do(app, http.MethodPost, "/api/revalidate").Code)
	assert.Equal(t, http.StatusUnauthorized, do(app, http.MethodPost, "/api/revalidate", bearer("wrong")).Code)
	assert.Equal(t, http.StatusBadRequest, do(app, http.MethodPost, "/api/revalidate?type=bogus", bearer("hook")).Code)

	require.Equal(t, http.StatusOK, do(app, http.MethodGet, "/work/").Code)
	repo.set(content.TypeProject, content.Entry{ID: "p3", Fields: map[string]any{"title": "New", "slug": "new"}})

	rec := do(app, http.MethodPost, "/api/revalidate?type=project", bearer("hook"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp revalidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Revalidated)
	assert.Equal(t, []string{"project"}, resp.Types)
	assert.NotZero(t, resp.Now)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	assert.Equal(t, 1, parse(t, do(app, http.MethodGet, "/work/")).Find("li.project-card").Length())
}

func TestRevalidateDisabledWithoutToken(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Equal(t, http.StatusNotFound, do(app, http.MethodPost, "/api/revalidate").Code)
}

func TestPreviewFlow(t *testing.T) {
	drafts := seedRepo()
	drafts.set(content.TypeProject, content.Entry{ID: "d1", Fields: map[string]any{"title": "Draft", "slug": "draft"}})
	app := newTestApp(t, func(c *SiteConfig) {
		c.PreviewSecret = "peek"
		c.Environment = EnvProduction
	}, WithPreviewRepository(drafts))

	rec := do(app, http.MethodGet, "/api/preview?secret=nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(app, http.MethodGet, "/api/preview?secret=peek&redirect=//evil.example")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = do(app, http.MethodGet, "/api/preview?secret=peek&redirect=/work/")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/work/", rec.Header().Get("Location"))
	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionName {
			session = ck
		}
	}
	require.NotNil(t, session)

	rec = do(app, http.MethodGet, "/work/", func(r *http.Request) { r.AddCookie(session) })
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)
	assert.Equal(t, 1, doc.Find(".preview-banner").Length())
	assert.Equal(t, 1, doc.Find(`meta[name="robots"]`).Length(), "preview pages are noindex")
	assert.Equal(t, "Draft", doc.Find(".project-title").Text())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	// Published visitors are unaffected.
	doc = parse(t, do(app, http.MethodGet, "/work/"))
	assert.Equal(t, 2, doc.Find("li.project-card").Length())
}

func TestPreviewRateLimited(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.PreviewSecret = "peek" }, WithPreviewRepository(seedRepo()))

	for range 10 {
		do(app, http.MethodGet, "/api/preview?secret=wrong")
	}
	rec := do(app, http.MethodGet, "/api/preview?secret=peek")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPreviewDisabled(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Equal(t, http.StatusNotFound, do(app, http.MethodGet, "/api/preview?secret=x").Code)
}

func TestPreviewExitRequiresCSRF(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Equal(t, http.StatusForbidden, do(app, http.MethodPost, "/api/preview/exit/").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.MetricsEnabled = true })

	do(app, http.MethodGet, "/work/")
	rec := do(app, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "folio_content_cache_total")
	assert.Contains(t, rec.Body.String(), "requests_total")

	off := newTestApp(t, nil)
	assert.Equal(t, http.StatusNotFound, do(off, http.MethodGet, "/metrics").Code)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(app, http.MethodGet, "/about/")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "'wasm-unsafe-eval'")
}

func TestStartupRefreshWarmsCache(t *testing.T) {
	repo := seedRepo()
	app := newTestApp(t, nil, WithRepository(repo))
	require.NotNil(t, app.revalidator)

	require.NoError(t, app.revalidator.RunOnce(context.Background()))
	calls := repo.calls.Load()
	do(app, http.MethodGet, "/work/")
	assert.Equal(t, calls, repo.calls.Load(), "pages are served from the warmed cache")
}
