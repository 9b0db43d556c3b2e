package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/folio/markdown"
)

// Layout wraps body in the document shell: head, header, optional footer.
func Layout(p Page, showFooter bool, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		if h.err != nil {
			return h.err
		}
		if err := Head(p.Meta, p.FaviconVersion).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`<link rel="stylesheet" href="/public/styles.css">`)
		if p.JSONLD != "" {
			h.rawf(`<script type="application/ld+json">%s</script>`, p.JSONLD)
		}
		h.raw(`</head>`)
		if p.BodyClass != "" {
			h.rawf(`<body id="top" class="%s">`, esc(p.BodyClass))
		} else {
			h.raw(`<body id="top">`)
		}
		if p.Preview {
			previewBanner(h, p.CSRFToken)
		}
		if h.err != nil {
			return h.err
		}
		if err := Header(p).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`<main class="main">`)
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw(`</main>`)
		if showFooter {
			if h.err != nil {
				return h.err
			}
			if err := Footer(p.Footer).Render(ctx, w); err != nil {
				return err
			}
		}
		for _, src := range p.Scripts {
			h.rawf(`<script src="%s" defer></script>`, esc(src))
		}
		h.raw(`</body></html>`)
		return h.err
	})
}

func previewBanner(h *htmlWriter, csrf string) {
	h.raw(`<div class="preview-banner" role="status">Preview mode: showing draft content.`)
	h.raw(`<form method="post" action="/api/preview/exit/">`)
	h.rawf(`<input type="hidden" name="_csrf" value="%s">`, esc(csrf))
	h.raw(`<button type="submit">Exit preview</button></form></div>`)
}

// Header renders the site header. Without a header record it falls back
// to the site name.
func Header(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<header class="header"><div class="container">`)
		h.raw(`<a href="/" class="brand">`)
		hd := p.Header
		switch {
		case hd != nil && hd.Logo.HasFile():
			alt := hd.Title
			if alt == "" {
				alt = p.Site.Name
			}
			h.rawf(`<img src="%s" alt="%s" class="logo">`, esc(p.ImageURL(hd.Logo, 400)), esc(alt))
		case hd != nil && hd.Title != "":
			h.text(hd.Title)
		default:
			h.text(p.Site.Name)
		}
		h.raw(`</a>`)
		if hd == nil {
			h.raw(`</div></header>`)
			return h.err
		}
		if hd.BlackText != "" || hd.GrayText != "" {
			h.raw(`<p class="tagline"><span class="tagline-black">`)
			h.text(hd.BlackText)
			h.raw(`</span> <span class="tagline-gray">`)
			h.text(hd.GrayText)
			h.raw(`</span></p>`)
		}
		if len(hd.NavigationLinks) > 0 {
			h.raw(`<nav class="nav" aria-label="Main"><ul>`)
			for _, link := range hd.NavigationLinks {
				href := markdown.SafeURL(link.URL)
				if href == "" {
					continue
				}
				if IsActivePath(p.Path, href) {
					h.rawf(`<li><a href="%s" class="nav-link active" aria-current="page">`, esc(href))
				} else {
					h.rawf(`<li><a href="%s" class="nav-link">`, esc(href))
				}
				h.text(link.Label)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></nav>`)
		}
		h.raw(`</div></header>`)
		return h.err
	})
}

// IsActivePath reports whether a navigation href points at the current
// path, ignoring trailing slashes. The root only matches itself.
func IsActivePath(current, href string) bool {
	if strings.Contains(href, "://") || strings.HasPrefix(href, "mailto:") {
		return false
	}
	c := strings.TrimRight(current, "/")
	l := strings.TrimRight(href, "/")
	if l == "" {
		return c == ""
	}
	return c == l || strings.HasPrefix(c, l+"/")
}

// Footer renders the back-to-top control and the legal links.
func Footer(f FooterLinks) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		imprint := f.ImprintTitle
		if imprint == "" {
			imprint = DefaultImprintTitle
		}
		privacy := f.PrivacyTitle
		if privacy == "" {
			privacy = DefaultPrivacyTitle
		}
		h := newWriter(w)
		h.raw(`<footer class="footer"><div class="container">`)
		h.raw(`<a href="#top" class="back-to-top" aria-label="Back to top">`)
		h.raw(`<img src="/public/images/Back_to_top.png" alt="Back to top" width="40" height="40"></a>`)
		h.raw(`<div class="footer-links"><a href="/imprint/">`)
		h.text(imprint)
		h.raw(`</a> | <a href="/privacy/">`)
		h.text(privacy)
		h.raw(`</a></div></div></footer>`)
		return h.err
	})
}
