package folio

import (
	"strings"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/richtext"
	"github.com/eringen/folio/seo"
	"github.com/eringen/folio/views"
)

// metaDescriptionLength bounds descriptions derived from rich text.
const metaDescriptionLength = 160

// PageRef identifies a page for metadata resolution: the identifier matched
// against SEO record titles, and the title and description used when no
// record supplies them. The home page has an empty ID.
type PageRef struct {
	ID          string
	Title       string
	Description string
}

// Pages with fixed identifiers.
var (
	HomePage    = PageRef{Title: "Home"}
	WorkPage    = PageRef{ID: "work", Title: "Work"}
	AboutPage   = PageRef{ID: "about", Title: "About"}
	ContactPage = PageRef{ID: "contact", Title: "Contact"}

	notFoundPage = PageRef{ID: "not-found", Title: "Page not found"}
	errorPage    = PageRef{ID: "error", Title: "Something went wrong"}
)

// LookupPage returns the fixed page with the given name.
func LookupPage(name string) (PageRef, bool) {
	switch name {
	case "", "home":
		return HomePage, true
	case WorkPage.ID:
		return WorkPage, true
	case AboutPage.ID:
		return AboutPage, true
	case ContactPage.ID:
		return ContactPage, true
	}
	return PageRef{}, false
}

// ProjectPage matches SEO records by slug and defaults to the project title
// and an excerpt of its description.
func ProjectPage(p content.Project) PageRef {
	desc, _ := richtext.Truncate(strings.TrimSpace(richtext.PlainText(p.Description)), metaDescriptionLength)
	return PageRef{ID: p.Slug, Title: p.Title, Description: desc}
}

// ImprintPage defaults to the imprint's English title.
func ImprintPage(im *content.Imprint) PageRef {
	return PageRef{ID: "imprint", Title: views.ImprintDoc(im).EnglishTitle}
}

// PrivacyPage defaults to the privacy policy's English title.
func PrivacyPage(pr *content.Privacy) PageRef {
	return PageRef{ID: "privacy", Title: views.PrivacyDoc(pr).EnglishTitle}
}

// Resolver returns the metadata resolver for the site. Pages are noindex
// outside production and in preview sessions.
func (c SiteConfig) Resolver(preview bool) seo.Resolver {
	return seo.Resolver{
		Fallbacks: seo.Fallbacks{
			SiteName:        c.Name,
			SiteDescription: c.Description,
			SiteURL:         c.URL,
			Author:          c.Author,
		},
		ForceNoIndex: !c.IsProduction() || preview,
	}
}

// ResolvePage resolves the metadata of a page. The home page takes the
// first SEO record; other pages only a record whose title names them.
func (c SiteConfig) ResolvePage(settings *content.SiteSettings, records []content.SEOMetadata, ref PageRef, preview bool) seo.PageMetadata {
	var meta *content.SEOMetadata
	if ref.ID == "" {
		meta, _ = seo.SelectEntryForPage(records, "")
	} else {
		meta, _ = seo.MatchEntryForPage(records, ref.ID)
	}
	return c.Resolver(preview).Resolve(settings, meta, ref.Title, ref.Description)
}
