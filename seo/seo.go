// Package seo derives the metadata record a page injects into its <head>.
//
// The record combines two independently fetched CMS records (site settings
// and a page's SEO entry) with caller defaults. Resolution is pure: it never
// performs I/O and always produces a usable record, falling back to
// hardcoded values when content is missing.
package seo

import (
	"strings"

	"github.com/eringen/folio/content"
)

// DefaultFaviconURL is used when no favicon asset is configured.
const DefaultFaviconURL = "/favicon.ico"

const (
	ogTypeWebsite    = "website"
	twitterCardLarge = "summary_large_image"
	titleSeparator   = " | "
)

// OpenGraph is the og:* tag block.
type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	SiteName    string `json:"siteName"`
	Type        string `json:"type"`
}

// Twitter is the twitter:* tag block.
type Twitter struct {
	Card        string `json:"card"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// PageMetadata is the normalized metadata for one rendered page. It is
// built fresh for every render and never mutated.
type PageMetadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    string    `json:"keywords"`
	NoIndex     bool      `json:"noIndex"`
	Favicon     string    `json:"favicon"`
	OpenGraph   OpenGraph `json:"openGraph"`
	Twitter     Twitter   `json:"twitter"`
	Author      string    `json:"author"`
}

// Fallbacks are the hardcoded values used when site settings are absent.
type Fallbacks struct {
	SiteName        string
	SiteDescription string
	SiteURL         string
	Author          string
}

// DefaultFallbacks is used by the package-level Resolve.
var DefaultFallbacks = Fallbacks{
	SiteName:        "Portfolio",
	SiteDescription: "Graphic design portfolio",
}

// Resolver resolves page metadata with site-specific fallbacks and an
// indexing policy.
type Resolver struct {
	Fallbacks Fallbacks
	// ForceNoIndex marks every page noindex regardless of content, e.g. for
	// staging deployments and preview sessions.
	ForceNoIndex bool
}

// Resolve resolves metadata with DefaultFallbacks and no forced noindex.
func Resolve(site *content.SiteSettings, meta *content.SEOMetadata, defaultTitle, defaultDescription string) PageMetadata {
	return Resolver{Fallbacks: DefaultFallbacks}.Resolve(site, meta, defaultTitle, defaultDescription)
}

// Resolve combines site settings, a page SEO record and caller defaults.
// Either record may be nil.
func (r Resolver) Resolve(site *content.SiteSettings, meta *content.SEOMetadata, defaultTitle, defaultDescription string) PageMetadata {
	if site == nil {
		site = &content.SiteSettings{}
	}
	if meta == nil {
		meta = &content.SEOMetadata{}
	}

	siteName := firstNonEmpty(site.SiteName, r.Fallbacks.SiteName, DefaultFallbacks.SiteName)
	siteDescription := firstNonEmpty(site.SiteDescription, r.Fallbacks.SiteDescription)
	siteURL := firstNonEmpty(site.SiteURL, r.Fallbacks.SiteURL)
	author := firstNonEmpty(site.Author, r.Fallbacks.Author)

	title := firstNonEmpty(meta.PageTitle, defaultTitle, siteName)
	description := firstNonEmpty(meta.MetaDescription, defaultDescription, siteDescription, DefaultFallbacks.SiteDescription)
	socialTitle := firstNonEmpty(meta.SocialTitle, title)
	socialDescription := firstNonEmpty(meta.SocialDescription, description)
	socialImage := NormalizeAssetURL(site.SocialImage.URL(), "")

	fullTitle := title
	if title != siteName {
		fullTitle = title + titleSeparator + siteName
	}

	return PageMetadata{
		Title:       fullTitle,
		Description: description,
		Keywords:    strings.Join(meta.Keywords, ", "),
		NoIndex:     meta.NoIndex || r.ForceNoIndex,
		Favicon:     NormalizeAssetURL(site.Favicon.URL(), DefaultFaviconURL),
		OpenGraph: OpenGraph{
			Title:       socialTitle,
			Description: socialDescription,
			Image:       socialImage,
			URL:         siteURL,
			SiteName:    siteName,
			Type:        ogTypeWebsite,
		},
		Twitter: Twitter{
			Card:        twitterCardLarge,
			Title:       socialTitle,
			Description: socialDescription,
			Image:       socialImage,
		},
		Author: author,
	}
}

// NormalizeAssetURL promotes protocol-relative URLs to https and passes
// everything else through. An empty URL yields fallback.
func NormalizeAssetURL(u, fallback string) string {
	u = strings.TrimSpace(u)
	switch {
	case u == "":
		return fallback
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	default:
		return u
	}
}

// SelectEntryForPage picks the SEO record for a page. With no page
// identifier the first record wins; otherwise the first record whose page
// title contains the identifier, ignoring case, falling back to the first
// record. The match is a loose substring test on purpose.
func SelectEntryForPage(entries []content.SEOMetadata, pageID string) (*content.SEOMetadata, bool) {
	if len(entries) == 0 {
		return nil, false
	}
	if pageID == "" {
		return &entries[0], true
	}
	if m, ok := MatchEntryForPage(entries, pageID); ok {
		return m, true
	}
	return &entries[0], true
}

// MatchEntryForPage is SelectEntryForPage without the first-record
// fallback: it reports false unless some page title contains pageID.
func MatchEntryForPage(entries []content.SEOMetadata, pageID string) (*content.SEOMetadata, bool) {
	if pageID == "" {
		return nil, false
	}
	needle := strings.ToLower(pageID)
	for i := range entries {
		if strings.Contains(strings.ToLower(entries[i].PageTitle), needle) {
			return &entries[i], true
		}
	}
	return nil, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
