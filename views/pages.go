package views

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/richtext"
)

// Home renders the landing page: a single full-bleed image. It has no
// footer.
func Home(p Page, image *content.Asset) templ.Component {
	return Layout(p, false, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="landing">`)
		if src := p.ImageURL(image, lightboxWidth); src != "" {
			h.rawf(`<img src="%s" alt="%s" class="landing-image"%s>`, esc(src), esc(image.Title), dims(image))
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// Work renders the project grid, one cover image per project.
func Work(p Page, projects []content.Project) templ.Component {
	return Layout(p, true, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="work"><ul class="project-grid">`)
		for _, pr := range projects {
			h.rawf(`<li class="project-card"><a href="%s">`, esc(ProjectPath(pr.Slug)))
			if cover := pr.Cover(); cover != nil {
				h.rawf(`<img src="%s" alt="%s" loading="lazy"%s>`, esc(p.ImageURL(cover, thumbnailWidth)), esc(pr.Title), dims(cover))
			}
			h.raw(`<span class="project-title">`)
			h.text(pr.Title)
			h.raw(`</span>`)
			if pr.Year != "" {
				h.raw(` <span class="project-year">`)
				h.text(pr.Year)
				h.raw(`</span>`)
			}
			h.raw(`</a></li>`)
		}
		h.raw(`</ul></section>`)
		return h.err
	}))
}

// ProjectPath returns the detail page path for a slug.
func ProjectPath(slug string) string {
	return "/projects/" + url.PathEscape(slug) + "/"
}

// ImagePath returns the project path with the lightbox open on image i.
func ImagePath(slug string, i int) string {
	return ProjectPath(slug) + "?image=" + strconv.Itoa(i) + "#lightbox"
}

// Project renders a project with its gallery. When lb is open the
// lightbox overlay is rendered server-side with plain links for
// navigation, so the gallery works without scripts.
func Project(p Page, pr content.Project, lb Lightbox) templ.Component {
	return Layout(p, true, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		images := pr.Images()
		h := newWriter(w)
		h.rawf(`<article class="project" data-gallery data-gallery-count="%d">`, len(images))
		h.raw(`<header class="project-header"><h1>`)
		h.text(pr.Title)
		h.raw(`</h1>`)
		if pr.Year != "" || pr.Technique != "" {
			h.raw(`<p class="project-meta">`)
			h.text(strings.Join(nonEmpty(pr.Year, pr.Technique), ", "))
			h.raw(`</p>`)
		}
		h.raw(`</header>`)
		projectDescription(h, pr)
		if href := markdown.SafeURL(pr.Link); href != "" {
			title := pr.LinkTitle
			if title == "" {
				title = DefaultProjectLinkTitle
			}
			h.rawf(`<p class="project-link"><a href="%s" target="_blank" rel="noopener">`, esc(href))
			h.text(title)
			h.raw(`</a></p>`)
		}

		h.raw(`<ul class="gallery">`)
		for i := range images {
			img := &images[i]
			h.rawf(`<li><a href="%s" data-gallery-index="%d" data-gallery-src="%s" data-gallery-title="%s" data-gallery-description="%s">`,
				esc(ImagePath(pr.Slug, i)), i, esc(p.ImageURL(img, lightboxWidth)), esc(img.Title), esc(img.Description))
			h.rawf(`<img src="%s" alt="%s" loading="lazy"%s>`, esc(p.ImageURL(img, thumbnailWidth)), esc(altText(img, pr.Title, i)), dims(img))
			h.raw(`</a>`)
			imageCaption(h, "gallery", img)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		h.raw(`<p class="project-back"><a href="/work/">Back to Projects</a></p>`)

		if lb.Open() && lb.Selected < len(images) {
			lightbox(h, p, pr, images, lb)
		}
		h.raw(`</article>`)
		return h.err
	}))
}

func projectDescription(h *htmlWriter, pr content.Project) {
	if pr.Description.IsEmpty() {
		return
	}
	full := richtext.Render(pr.Description)
	short, cut := richtext.Truncate(strings.TrimSpace(richtext.PlainText(pr.Description)), DescriptionCollapseLength)
	if cut {
		h.raw(`<details class="project-description-mobile"><summary>`)
		h.text(strings.TrimSpace(short) + "…")
		h.raw(`</summary>`)
		h.raw(full)
		h.raw(`</details>`)
		h.raw(`<div class="project-description project-description-desktop">`)
	} else {
		h.raw(`<div class="project-description">`)
	}
	h.raw(full)
	h.raw(`</div>`)
}

func lightbox(h *htmlWriter, p Page, pr content.Project, images []content.Asset, lb Lightbox) {
	img := &images[lb.Selected]
	h.raw(`<div id="lightbox" class="lightbox" role="dialog" aria-modal="true" aria-label="Image viewer">`)
	h.rawf(`<a href="%s" class="lightbox-backdrop" data-gallery-action="backdrop" aria-hidden="true" tabindex="-1"></a>`, esc(ProjectPath(pr.Slug)))
	h.rawf(`<a href="%s" class="lightbox-close" data-gallery-action="close" aria-label="Close">&times;</a>`, esc(ProjectPath(pr.Slug)))
	if lb.Prev >= 0 {
		h.rawf(`<a href="%s" class="lightbox-prev" data-gallery-action="prev" rel="prev" aria-label="Previous image">&lsaquo;</a>`, esc(ImagePath(pr.Slug, lb.Prev)))
	}
	h.rawf(`<figure class="lightbox-figure"><img src="%s" alt="%s" class="lightbox-image" data-gallery-action="image"%s>`,
		esc(p.ImageURL(img, lightboxWidth)), esc(altText(img, pr.Title, lb.Selected)), dims(img))
	h.rawf(`<figcaption><span class="lightbox-counter">%d / %d</span>`, lb.Selected+1, lb.Count)
	imageCaption(h, "lightbox", img)
	h.raw(`</figcaption></figure>`)
	if lb.Next >= 0 {
		h.rawf(`<a href="%s" class="lightbox-next" data-gallery-action="next" rel="next" aria-label="Next image">&rsaquo;</a>`, esc(ImagePath(pr.Slug, lb.Next)))
	}
	h.raw(`</div>`)
}

// imageCaption writes an image's title and description, if any, with
// classes prefixed by prefix.
func imageCaption(h *htmlWriter, prefix string, img *content.Asset) {
	if t := strings.TrimSpace(img.Title); t != "" {
		h.rawf(`<p class="%s-title">`, prefix)
		h.text(t)
		h.raw(`</p>`)
	}
	if d := strings.TrimSpace(img.Description); d != "" {
		h.rawf(`<p class="%s-description">`, prefix)
		h.text(d)
		h.raw(`</p>`)
	}
}

// About renders the biography with its section switcher.
func About(p Page, about *content.About, section string) templ.Component {
	section = NormalizeSection(section)
	return Layout(p, true, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="about"><nav class="section-nav" aria-label="Sections"><ul>`)
		for _, s := range []struct{ id, label string }{
			{SectionAbout, "About"},
			{SectionReferences, "References"},
			{SectionCV, "CV"},
		} {
			if s.id == section {
				h.rawf(`<li><a href="/about/?section=%s" class="active" aria-current="true">%s</a></li>`, s.id, s.label)
			} else {
				h.rawf(`<li><a href="/about/?section=%s">%s</a></li>`, s.id, s.label)
			}
		}
		h.raw(`</ul></nav>`)
		if about == nil {
			h.raw(`</section>`)
			return h.err
		}

		h.rawf(`<div class="about-section about-%s">`, section)
		switch section {
		case SectionAbout:
			if about.Name != "" {
				h.raw(`<h1>`)
				h.text(about.Name)
				h.raw(`</h1>`)
			}
			if src := p.ImageURL(about.Image, thumbnailWidth); src != "" {
				h.rawf(`<img src="%s" alt="%s" class="portrait"%s>`, esc(src), esc(about.Name), dims(about.Image))
			}
			h.raw(richtext.Render(about.About))
			if href := markdown.SafeURL(about.InstagramLink); href != "" {
				h.rawf(`<p><a href="%s" target="_blank" rel="noopener">Instagram</a></p>`, esc(href))
			}
		case SectionReferences:
			h.raw(richtext.Render(about.References))
		case SectionCV:
			if h.err != nil {
				return h.err
			}
			if err := markdown.Markdown(about.CV).Render(ctx, w); err != nil {
				return err
			}
		}
		h.raw(`</div></section>`)
		return h.err
	}))
}

// Contact renders the contact page from the about record.
func Contact(p Page, about *content.About) templ.Component {
	return Layout(p, true, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="contact">`)
		if about != nil {
			if src := p.ImageURL(about.ContactImage, thumbnailWidth); src != "" {
				h.rawf(`<img src="%s" alt="%s" class="contact-image"%s>`, esc(src), esc(about.Name), dims(about.ContactImage))
			}
			h.raw(`<div class="contact-text">`)
			h.raw(richtext.Render(about.Contact))
			h.raw(`<address>`)
			if about.Name != "" {
				h.raw(`<p class="contact-name">`)
				h.text(about.Name)
				h.raw(`</p>`)
			}
			if about.Email != "" {
				h.rawf(`<p><a href="%s">`, esc("mailto:"+about.Email))
				h.text(about.Email)
				h.raw(`</a></p>`)
			}
			if about.PhoneNumber != "" {
				h.rawf(`<p><a href="%s">`, esc("tel:"+strings.ReplaceAll(about.PhoneNumber, " ", "")))
				h.text(about.PhoneNumber)
				h.raw(`</a></p>`)
			}
			h.raw(`</address></div>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// Legal renders a bilingual legal text (imprint or privacy policy).
func Legal(p Page, doc LegalDoc) templ.Component {
	return Layout(p, true, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="legal"><div class="legal-en" lang="en"><h1>`)
		h.text(doc.EnglishTitle)
		h.raw(`</h1>`)
		h.raw(richtext.Render(doc.English))
		h.raw(`</div>`)
		if !doc.German.IsEmpty() {
			h.raw(`<div class="legal-de" lang="de"><h2>`)
			h.text(doc.GermanTitle)
			h.raw(`</h2>`)
			h.raw(richtext.Render(doc.German))
			h.raw(`</div>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// NotFound renders the 404 page.
func NotFound(p Page) templ.Component {
	return Layout(p, true, message("Page not found", "The page you are looking for does not exist."))
}

// ServerError renders the 500 page.
func ServerError(p Page) templ.Component {
	return Layout(p, true, message("Something went wrong", "Please try again in a moment."))
}

func message(title, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(w)
		h.raw(`<section class="message"><h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(body)
		h.raw(`</p><p><a href="/">Back home</a></p></section>`)
		return h.err
	})
}

func dims(a *content.Asset) string {
	if a.Width() <= 0 || a.Height() <= 0 {
		return ""
	}
	return ` width="` + strconv.Itoa(a.Width()) + `" height="` + strconv.Itoa(a.Height()) + `"`
}

func altText(a *content.Asset, fallback string, i int) string {
	if a.Title != "" {
		return a.Title
	}
	return fallback + " " + strconv.Itoa(i+1)
}

func nonEmpty(vals ...string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
