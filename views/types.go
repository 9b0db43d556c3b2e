package views

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/gallery"
	"github.com/eringen/folio/richtext"
	"github.com/eringen/folio/seo"
)

// Default labels and legal page titles, used when the CMS has none.
const (
	DefaultProjectLinkTitle   = "Link to project"
	DefaultImprintTitle       = "Imprint"
	DefaultImprintGermanTitle = "Impressum"
	DefaultPrivacyTitle       = "Privacy Policy"
	DefaultPrivacyGermanTitle = "Datenschutzerklärung"
	DescriptionCollapseLength = 70
	thumbnailWidth            = 800
	lightboxWidth             = 2000
)

// SiteConfig holds site-wide identity used by templates.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// FooterLinks are the titles of the legal pages linked from the footer.
type FooterLinks struct {
	ImprintTitle string
	PrivacyTitle string
}

// Page carries everything the shared layout needs for one request.
type Page struct {
	Site           SiteConfig
	Meta           seo.PageMetadata
	FaviconVersion string
	Header         *content.Header
	Footer         FooterLinks
	// Path is the request path, used to mark the active navigation link.
	Path string
	// Preview is true inside a preview session.
	Preview   bool
	CSRFToken string
	JSONLD    string
	// ImageProxy routes images through the resizing proxy.
	ImageProxy bool
	BodyClass  string
	Scripts    []string
}

// ImageURL returns the URL to render asset at the given width, or "" when
// the asset has no file.
func (p Page) ImageURL(a *content.Asset, width int) string {
	src := a.URL()
	if src == "" {
		return ""
	}
	if !p.ImageProxy || width <= 0 {
		return src
	}
	q := url.Values{}
	q.Set("src", src)
	q.Set("w", strconv.Itoa(width))
	return "/_img?" + q.Encode()
}

// LegalDoc is a bilingual legal text.
type LegalDoc struct {
	EnglishTitle string
	English      richtext.Document
	GermanTitle  string
	German       richtext.Document
}

// ImprintDoc adapts the imprint record, filling default titles.
func ImprintDoc(im *content.Imprint) LegalDoc {
	doc := LegalDoc{EnglishTitle: DefaultImprintTitle, GermanTitle: DefaultImprintGermanTitle}
	if im == nil {
		return doc
	}
	doc.English, doc.German = im.EnglishText, im.GermanText
	if t := strings.TrimSpace(im.EnglishTitle); t != "" {
		doc.EnglishTitle = t
	}
	if t := strings.TrimSpace(im.GermanTitle); t != "" {
		doc.GermanTitle = t
	}
	return doc
}

// PrivacyDoc adapts the privacy record, filling default titles.
func PrivacyDoc(pr *content.Privacy) LegalDoc {
	doc := LegalDoc{EnglishTitle: DefaultPrivacyTitle, GermanTitle: DefaultPrivacyGermanTitle}
	if pr == nil {
		return doc
	}
	doc.English, doc.German = pr.EnglishText, pr.GermanText
	if t := strings.TrimSpace(pr.Title); t != "" {
		doc.EnglishTitle = t
	}
	return doc
}

// Lightbox is the server-rendered view of a gallery navigator.
type Lightbox struct {
	Selected int
	Prev     int
	Next     int
	Count    int
}

// Open reports whether the lightbox overlay is shown.
func (l Lightbox) Open() bool {
	return l.Selected != gallery.None
}

// NewLightbox snapshots n, resolving where the previous and next controls
// lead. Prev and Next are gallery.None when there is nowhere to go.
func NewLightbox(n *gallery.Navigator) Lightbox {
	s := n.State()
	lb := Lightbox{Selected: s.Selected, Prev: gallery.None, Next: gallery.None, Count: n.Len()}
	if s.IsOpen() && n.Len() > 1 {
		lb.Prev = n.Peek(gallery.KeyPress{Key: gallery.KeyArrowLeft}).Selected
		lb.Next = n.Peek(gallery.KeyPress{Key: gallery.KeyArrowRight}).Selected
	}
	return lb
}

// About page sections selectable with ?section=.
const (
	SectionAbout      = "about"
	SectionReferences = "references"
	SectionCV         = "cv"
)

// NormalizeSection maps unknown sections to SectionAbout.
func NormalizeSection(s string) string {
	switch s {
	case SectionReferences, SectionCV:
		return s
	default:
		return SectionAbout
	}
}
