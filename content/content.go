// Package content defines the typed schema for every content type the site
// reads from the headless CMS, and decodes raw entry field mappings into it.
//
// Raw entries are untrusted: each decoder validates at the boundary and drops
// entries that do not satisfy their schema, so rendering code only ever sees
// well-formed values. Optional fields stay zero when absent.
package content

import (
	"strings"
	"time"

	"github.com/eringen/folio/richtext"
)

// Content type identifiers as configured in the CMS space.
const (
	TypeSiteSettings = "siteSettings"
	TypeSEOMetadata  = "seoMetadata"
	TypeHeader       = "header"
	TypeLandingPage  = "landingPage"
	TypeAbout        = "about"
	TypeProject      = "project"
	TypeImprint      = "imprint"
	TypePrivacy      = "datenschutz"
)

// AllTypes lists every content type the site renders, in refresh order.
var AllTypes = []string{
	TypeSiteSettings,
	TypeSEOMetadata,
	TypeHeader,
	TypeLandingPage,
	TypeAbout,
	TypeProject,
	TypeImprint,
	TypePrivacy,
}

// Entry is a raw CMS record: an identifier plus an arbitrary field mapping.
type Entry struct {
	ID          string         `json:"id"`
	ContentType string         `json:"contentType"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Fields      map[string]any `json:"fields"`
}

// ImageDetails holds pixel dimensions of an image asset.
type ImageDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileDetails wraps image details as delivered by the CMS.
type FileDetails struct {
	Size  int          `json:"size"`
	Image ImageDetails `json:"image"`
}

// File is the binary part of an asset.
type File struct {
	URL         string      `json:"url"`
	FileName    string      `json:"fileName"`
	ContentType string      `json:"contentType"`
	Details     FileDetails `json:"details"`
}

// Asset is a media asset reference. URLs may be protocol-relative.
type Asset struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	File        File   `json:"file"`
}

// URL returns the asset URL with protocol-relative URLs promoted to https,
// or "" when the asset has no file.
func (a *Asset) URL() string {
	if a == nil {
		return ""
	}
	u := strings.TrimSpace(a.File.URL)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// HasFile reports whether the asset can be rendered.
func (a *Asset) HasFile() bool {
	return a.URL() != ""
}

// Width returns the image width in pixels, zero when unknown.
func (a *Asset) Width() int {
	if a == nil {
		return 0
	}
	return a.File.Details.Image.Width
}

// Height returns the image height in pixels, zero when unknown.
func (a *Asset) Height() int {
	if a == nil {
		return 0
	}
	return a.File.Details.Image.Height
}

// SiteSettings is the site-wide identity record. All fields are optional.
type SiteSettings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteURL         string `json:"siteUrl"`
	Author          string `json:"author"`
	SocialImage     *Asset `json:"socialImage"`
	Favicon         *Asset `json:"favicon"`
}

// SEOMetadata carries per-page search and social overrides.
type SEOMetadata struct {
	PageTitle         string   `json:"pageTitle"`
	MetaDescription   string   `json:"metaDescription"`
	SocialTitle       string   `json:"socialTitle"`
	SocialDescription string   `json:"socialDescription"`
	NoIndex           bool     `json:"noIndex"`
	Keywords          []string `json:"keywords"`
}

// NavLink is one header navigation entry.
type NavLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Header is the site header: logo or title, two-tone tagline, navigation.
type Header struct {
	Title           string    `json:"title"`
	Logo            *Asset    `json:"logo"`
	NavigationLinks []NavLink `json:"navigationLinks"`
	BlackText       string    `json:"blackText"`
	GrayText        string    `json:"grayText"`
}

// LandingPage holds the pool of images the home page picks from.
type LandingPage struct {
	RandomImage []Asset `json:"randomImage"`
}

// About is the biography record; it also feeds the contact page.
type About struct {
	Name          string            `json:"name"`
	About         richtext.Document `json:"about"`
	References    richtext.Document `json:"references"`
	Email         string            `json:"email"`
	Image         *Asset            `json:"image"`
	CV            string            `json:"cv"`
	InstagramLink string            `json:"instagramLink"`
	Contact       richtext.Document `json:"contact"`
	ContactImage  *Asset            `json:"contactImage"`
	PhoneNumber   string            `json:"phoneNumber"`
}

// Project is one portfolio entry with its ordered image gallery.
type Project struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Image       []Asset           `json:"image"`
	Year        string            `json:"year"`
	Technique   string            `json:"technique"`
	Description richtext.Document `json:"description"`
	Link        string            `json:"link"`
	LinkTitle   string            `json:"linkTitle"`
}

// Images returns the project images that have a renderable file, in
// authoring order.
func (p Project) Images() []Asset {
	out := make([]Asset, 0, len(p.Image))
	for _, img := range p.Image {
		if img.HasFile() {
			out = append(out, img)
		}
	}
	return out
}

// Cover returns the first renderable image, or nil.
func (p Project) Cover() *Asset {
	for i := range p.Image {
		if p.Image[i].HasFile() {
			return &p.Image[i]
		}
	}
	return nil
}

// Imprint is the legal notice in English and German.
type Imprint struct {
	EnglishTitle string            `json:"englishTitle"`
	EnglishText  richtext.Document `json:"englishText"`
	GermanTitle  string            `json:"germanTitle"`
	GermanText   richtext.Document `json:"germanText"`
}

// Privacy is the privacy policy in English and German.
type Privacy struct {
	Title       string            `json:"title"`
	EnglishText richtext.Document `json:"englishText"`
	GermanText  richtext.Document `json:"germanText"`
}
