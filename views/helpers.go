package views

import (
	"net/url"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/richtext"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalLD(data)
}

// CreativeWorkJsonLD produces a Schema.org CreativeWork block for a project.
func CreativeWorkJsonLD(cfg SiteConfig, p content.Project) string {
	projectURL := buildURL(cfg.URL, "projects", p.Slug)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "CreativeWork",
		"name":     p.Title,
		"url":      projectURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   projectURL,
		},
	}
	if desc := strings.TrimSpace(richtext.PlainText(p.Description)); desc != "" {
		data["description"] = desc
	}
	if p.Year != "" {
		data["dateCreated"] = p.Year
	}
	if p.Technique != "" {
		data["artMedium"] = p.Technique
	}
	var images []string
	for _, img := range p.Images() {
		images = append(images, img.URL())
	}
	if len(images) > 0 {
		data["image"] = images
	}
	if cfg.Author != "" {
		data["creator"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalLD(data)
}

func marshalLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
