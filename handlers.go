package folio

import (
	"context"
	"crypto/subtle"
	"errors"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/gallery"
	"github.com/eringen/folio/views"
)

// siteData is the content shared by every page: identity, SEO records,
// header, and the legal records whose titles label the footer links.
type siteData struct {
	settings *content.SiteSettings
	seo      []content.SEOMetadata
	header   *content.Header
	imprint  *content.Imprint
	privacy  *content.Privacy
}

// entries returns the entries of a content type for this request: drafts in
// a preview session, cached published content otherwise. It never fails;
// a failed preview fetch falls back to published content.
func (a *App) entries(ctx context.Context, preview bool, contentType string) []content.Entry {
	if preview && a.previewRepo != nil {
		entries, err := a.previewRepo.FetchEntries(ctx, contentType)
		if err == nil {
			return entries
		}
		a.Logger.Warn("preview fetch failed, serving published content",
			zap.String("content_type", contentType), zap.Error(err))
	}
	return a.Cache.Entries(ctx, contentType)
}

func (a *App) warnDecode(contentType string, err error) {
	if err != nil {
		a.Logger.Warn("invalid content entries", zap.String("content_type", contentType), zap.Error(err))
	}
}

func (a *App) loadSite(ctx context.Context, preview bool) siteData {
	types := []string{
		content.TypeSiteSettings,
		content.TypeSEOMetadata,
		content.TypeHeader,
		content.TypeImprint,
		content.TypePrivacy,
	}
	results := make([][]content.Entry, len(types))
	var g errgroup.Group
	for i, ct := range types {
		g.Go(func() error {
			results[i] = a.entries(ctx, preview, ct)
			return nil
		})
	}
	_ = g.Wait()

	var d siteData
	var err error
	d.settings, err = content.DecodeSiteSettings(results[0])
	a.warnDecode(content.TypeSiteSettings, err)
	d.seo, err = content.DecodeSEOMetadata(results[1])
	a.warnDecode(content.TypeSEOMetadata, err)
	d.header, err = content.DecodeHeader(results[2])
	a.warnDecode(content.TypeHeader, err)
	d.imprint, err = content.DecodeImprint(results[3])
	a.warnDecode(content.TypeImprint, err)
	d.privacy, err = content.DecodePrivacy(results[4])
	a.warnDecode(content.TypePrivacy, err)
	return d
}

// buildPage resolves metadata for ref and assembles the layout data.
func (a *App) buildPage(c echo.Context, d siteData, ref PageRef) views.Page {
	preview := IsPreview(c)
	pm := a.Config.ResolvePage(d.settings, d.seo, ref, preview)

	site := views.SiteConfig{
		Name:        pm.OpenGraph.SiteName,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      pm.Author,
	}
	if d.settings != nil {
		if d.settings.SiteURL != "" {
			site.URL = d.settings.SiteURL
		}
		if d.settings.SiteDescription != "" {
			site.Description = d.settings.SiteDescription
		}
	}

	var footer views.FooterLinks
	if d.imprint != nil {
		footer.ImprintTitle = strings.TrimSpace(d.imprint.EnglishTitle)
	}
	if d.privacy != nil {
		footer.PrivacyTitle = strings.TrimSpace(d.privacy.Title)
	}

	return views.Page{
		Site:           site,
		Meta:           pm,
		FaviconVersion: a.Config.FaviconVersion,
		Header:         d.header,
		Footer:         footer,
		Path:           c.Request().URL.Path,
		Preview:        preview,
		CSRFToken:      CsrfToken(c),
		JSONLD:         views.WebsiteJsonLD(site),
		ImageProxy:     a.Config.ImageProxy,
	}
}

func (a *App) page(c echo.Context, ref PageRef) views.Page {
	d := a.loadSite(c.Request().Context(), IsPreview(c))
	return a.buildPage(c, d, ref)
}

func (a *App) projects(c echo.Context) []content.Project {
	projects, err := content.DecodeProjects(a.entries(c.Request().Context(), IsPreview(c), content.TypeProject))
	a.warnDecode(content.TypeProject, err)
	return projects
}

func (a *App) about(c echo.Context) *content.About {
	about, err := content.DecodeAbout(a.entries(c.Request().Context(), IsPreview(c), content.TypeAbout))
	a.warnDecode(content.TypeAbout, err)
	return about
}

func (a *App) handleHome(c echo.Context) error {
	p := a.page(c, HomePage)
	landing, err := content.DecodeLandingPage(a.entries(c.Request().Context(), p.Preview, content.TypeLandingPage))
	a.warnDecode(content.TypeLandingPage, err)
	return Render(c, a.Views.Home(p, pickLandingImage(landing)))
}

// pickLandingImage chooses one renderable landing image at random, or nil.
func pickLandingImage(lp *content.LandingPage) *content.Asset {
	if lp == nil {
		return nil
	}
	var candidates []*content.Asset
	for i := range lp.RandomImage {
		if lp.RandomImage[i].HasFile() {
			candidates = append(candidates, &lp.RandomImage[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.IntN(len(candidates))]
}

func (a *App) handleWork(c echo.Context) error {
	p := a.page(c, WorkPage)
	return Render(c, a.Views.Work(p, a.projects(c)))
}

func (a *App) handleProject(c echo.Context) error {
	slug := c.Param("slug")
	project, ok := content.FindProject(a.projects(c), slug)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	p := a.page(c, ProjectPage(project))
	p.JSONLD = views.CreativeWorkJsonLD(p.Site, project)
	p.Scripts = []string{"/public/gallery.js"}

	nav := gallery.New(len(project.Images()), gallery.WithScrollLock(func(locked bool) {
		if locked {
			p.BodyClass = "modal-open"
		} else {
			p.BodyClass = ""
		}
	}))
	if q := c.QueryParam("image"); q != "" {
		if i, err := strconv.Atoi(q); err == nil {
			nav.Open(i)
		}
	}
	return Render(c, a.Views.Project(p, project, views.NewLightbox(nav)))
}

func (a *App) handleAbout(c echo.Context) error {
	p := a.page(c, AboutPage)
	return Render(c, a.Views.About(p, a.about(c), c.QueryParam("section")))
}

func (a *App) handleContact(c echo.Context) error {
	p := a.page(c, ContactPage)
	return Render(c, a.Views.Contact(p, a.about(c)))
}

func (a *App) handleImprint(c echo.Context) error {
	d := a.loadSite(c.Request().Context(), IsPreview(c))
	p := a.buildPage(c, d, ImprintPage(d.imprint))
	return Render(c, a.Views.Legal(p, views.ImprintDoc(d.imprint)))
}

func (a *App) handlePrivacy(c echo.Context) error {
	d := a.loadSite(c.Request().Context(), IsPreview(c))
	p := a.buildPage(c, d, PrivacyPage(d.privacy))
	return Render(c, a.Views.Legal(p, views.PrivacyDoc(d.privacy)))
}

func handlePrivacyRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/privacy/")
}

func (a *App) handleSitemap(c echo.Context) error {
	entries := a.Cache.Entries(c.Request().Context(), content.TypeProject)
	projects, err := content.DecodeProjects(entries)
	a.warnDecode(content.TypeProject, err)
	return a.renderSitemap(c, projects, entryDates(entries))
}

func (a *App) handleFeed(c echo.Context) error {
	entries := a.Cache.Entries(c.Request().Context(), content.TypeProject)
	projects, err := content.DecodeProjects(entries)
	a.warnDecode(content.TypeProject, err)
	return a.renderRSS(c, projects, entryDates(entries))
}

// entryDates maps project slugs to their last CMS update.
func entryDates(entries []content.Entry) map[string]time.Time {
	out := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if slug, ok := e.Fields["slug"].(string); ok && slug != "" {
			if _, seen := out[slug]; !seen {
				out[slug] = e.UpdatedAt
			}
		}
	}
	return out
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.ico"))
}

func (a *App) handleRobots(c echo.Context) error {
	if !a.Config.IsProduction() {
		return c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
	}
	sitemap := strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml"
	return c.String(http.StatusOK, "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: "+sitemap+"\n")
}

// handleRefreshFavicon sends the browser back to where it came from with
// caching disabled, forcing the favicon to be requested again.
func handleRefreshFavicon(c echo.Context) error {
	h := c.Response().Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	return c.Redirect(http.StatusTemporaryRedirect, sameHostReferer(c.Request().Referer(), c.Request().Host))
}

type revalidateResponse struct {
	Revalidated bool     `json:"revalidated"`
	Types       []string `json:"types"`
	Now         int64    `json:"now"`
}

// handleRevalidate invalidates cached content on a CMS webhook. ?type=
// narrows it to one content type.
func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.RevalidateToken == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.Config.RevalidateToken)) != 1 {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}

	ctx := c.Request().Context()
	types := content.AllTypes
	if ct := c.QueryParam("type"); ct != "" {
		if !slices.Contains(content.AllTypes, ct) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown content type"})
		}
		types = []string{ct}
		a.Cache.Invalidate(ctx, ct)
	} else {
		a.Cache.InvalidateAll(ctx)
	}
	a.Logger.Info("content invalidated", zap.Strings("types", types))
	return c.JSON(http.StatusOK, revalidateResponse{Revalidated: true, Types: types, Now: time.Now().UnixMilli()})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		p := a.page(c, notFoundPage)
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(p))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		p := a.page(c, errorPage)
		_ = RenderStatus(c, code, a.Views.ServerError(p))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
