package folio

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/richtext"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate,omitempty"`
	GUID        string        `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int    `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

func (a *App) renderRSS(c echo.Context, projects []content.Project, updated map[string]time.Time) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(projects))
	for _, p := range projects {
		projectURL := BuildURL(base, "projects", p.Slug)
		desc, _ := richtext.Truncate(strings.TrimSpace(richtext.PlainText(p.Description)), 300)
		item := rssItem{
			Title:       p.Title,
			Link:        projectURL,
			Description: desc,
			GUID:        projectURL,
		}
		if t := updated[p.Slug]; !t.IsZero() {
			item.PubDate = t.UTC().Format(time.RFC1123Z)
		}
		if cover := p.Cover(); cover != nil {
			typ := cover.File.ContentType
			if typ == "" {
				typ = "image/jpeg"
			}
			item.Enclosure = &rssEnclosure{URL: cover.URL(), Length: cover.File.Details.Size, Type: typ}
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
