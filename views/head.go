package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/eringen/folio/seo"
)

// FaviconURL appends the cache-busting version to a CMS favicon. The
// default favicon and an empty version are left untouched.
func FaviconURL(favicon, version string) string {
	if favicon == "" {
		return seo.DefaultFaviconURL
	}
	if favicon == seo.DefaultFaviconURL || version == "" {
		return favicon
	}
	u, err := url.Parse(favicon)
	if err != nil {
		return favicon
	}
	q := u.Query()
	q.Set("v", version)
	q.Set("refresh", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// Head renders the metadata tags for one page. Output depends only on its
// arguments.
func Head(meta seo.PageMetadata, faviconVersion string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw("<title>")
		h.text(meta.Title)
		h.raw("</title>")
		h.meta("name", "description", meta.Description)
		if meta.Keywords != "" {
			h.meta("name", "keywords", meta.Keywords)
		}
		if meta.Author != "" {
			h.meta("name", "author", meta.Author)
		}

		icon := esc(FaviconURL(meta.Favicon, faviconVersion))
		h.rawf(`<link rel="icon" type="image/x-icon" href="%s">`, icon)
		h.rawf(`<link rel="icon" type="image/ico" href="%s">`, icon)
		h.rawf(`<link rel="shortcut icon" href="%s">`, icon)
		h.rawf(`<link rel="apple-touch-icon" href="%s">`, icon)
		h.rawf(`<link rel="icon" type="image/png" sizes="16x16" href="%s">`, icon)
		h.rawf(`<link rel="icon" type="image/png" sizes="32x32" href="%s">`, icon)
		h.rawf(`<meta name="msapplication-TileImage" content="%s">`, icon)

		if meta.NoIndex {
			h.meta("name", "robots", "noindex, nofollow")
		}

		og := meta.OpenGraph
		h.meta("property", "og:title", og.Title)
		h.meta("property", "og:description", og.Description)
		h.meta("property", "og:type", og.Type)
		if og.Image != "" {
			h.meta("property", "og:image", og.Image)
		}
		if og.URL != "" {
			h.meta("property", "og:url", og.URL)
		}
		h.meta("property", "og:site_name", og.SiteName)

		tw := meta.Twitter
		h.meta("name", "twitter:card", tw.Card)
		h.meta("name", "twitter:title", tw.Title)
		h.meta("name", "twitter:description", tw.Description)
		if tw.Image != "" {
			h.meta("name", "twitter:image", tw.Image)
		}
		return h.err
	})
}
