package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio"
	"github.com/eringen/folio/content"
)

type stubRepo map[string][]content.Entry

func (r stubRepo) FetchEntries(_ context.Context, ct string) ([]content.Entry, error) {
	entries, ok := r[ct]
	if !ok {
		return nil, errors.New("unexpected content type " + ct)
	}
	return entries, nil
}

func metaRepo() stubRepo {
	return stubRepo{
		content.TypeSiteSettings: {{ID: "s1", Fields: map[string]any{"siteName": "Green Graphik"}}},
		content.TypeSEOMetadata: {
			{ID: "m1", Fields: map[string]any{"pageTitle": "Welcome"}},
			{ID: "m2", Fields: map[string]any{"pageTitle": "Home sweet home"}},
		},
		content.TypeProject: {{ID: "p1", Fields: map[string]any{"title": "Poster Series", "slug": "posters"}}},
	}
}

func TestResolveMetaHomeMatchesServer(t *testing.T) {
	cfg := folio.SiteConfig{Name: "Portfolio", Environment: "staging"}
	var warn bytes.Buffer

	pm, err := resolveMeta(context.Background(), cfg, metaRepo(), "home", false, &warn)
	require.NoError(t, err)
	assert.Equal(t, "Welcome | Green Graphik", pm.Title, "home takes the first SEO record")
	assert.True(t, pm.NoIndex, "non-production pages are noindex")
	assert.Empty(t, warn.String())

	want := cfg.ResolvePage(&content.SiteSettings{SiteName: "Green Graphik"},
		[]content.SEOMetadata{{PageTitle: "Welcome"}, {PageTitle: "Home sweet home"}}, folio.HomePage, false)
	assert.Equal(t, want, pm)
}

func TestResolveMetaProduction(t *testing.T) {
	cfg := folio.SiteConfig{Name: "Portfolio", Environment: folio.EnvProduction}

	pm, err := resolveMeta(context.Background(), cfg, metaRepo(), "work", false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "Work | Green Graphik", pm.Title)
	assert.False(t, pm.NoIndex)

	pm, err = resolveMeta(context.Background(), cfg, metaRepo(), "work", true, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, pm.NoIndex, "preview sessions are noindex")
}

func TestResolveMetaProject(t *testing.T) {
	cfg := folio.SiteConfig{Name: "Portfolio", Environment: folio.EnvProduction}

	pm, err := resolveMeta(context.Background(), cfg, metaRepo(), "posters", false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "Poster Series | Green Graphik", pm.Title)

	_, err = resolveMeta(context.Background(), cfg, metaRepo(), "missing", false, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown page")
}

func TestResolveMetaReportsDecodeWarnings(t *testing.T) {
	repo := metaRepo()
	repo[content.TypeSiteSettings] = []content.Entry{{ID: "s1", Fields: map[string]any{
		"siteName": "Green Graphik",
		"siteUrl":  "green graphik site",
	}}}
	var warn bytes.Buffer

	pm, err := resolveMeta(context.Background(), folio.SiteConfig{}, repo, "about", false, &warn)
	require.NoError(t, err)
	assert.Equal(t, "About | Green Graphik", pm.Title)
	assert.Contains(t, warn.String(), "siteUrl")
}
