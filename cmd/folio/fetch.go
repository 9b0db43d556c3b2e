package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/contentful"
	"github.com/eringen/folio/seo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var fetchPreview bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <contentType>",
	Short: "Print the resolved entries of a content type as JSON",
	Long: `Fetch every entry of a content type from Contentful, resolve linked
entries and assets, and print the result as JSON.

Content types: ` + strings.Join(content.AllTypes, ", "),
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var metaCmd = &cobra.Command{
	Use:   "meta [page]",
	Short: "Print the resolved SEO metadata for a page as JSON",
	Long: `Resolve the page metadata exactly as the server would, from site
settings, the matching SEO record and the configured fallbacks.

The page is one of home (the default), work, about, contact, imprint,
privacy, or a project slug.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMeta,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchPreview, "preview", false, "use the preview API (drafts)")
	metaCmd.Flags().BoolVar(&fetchPreview, "preview", false, "use the preview API (drafts)")
}

func newClient(cfg folio.SiteConfig, preview bool) (*contentful.Client, error) {
	cf := cfg.Contentful
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("contentful config: %w", err)
	}
	logger, err := folio.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}
	token, base := cf.AccessToken, cf.BaseURL
	if preview {
		if cf.PreviewToken == "" {
			return nil, fmt.Errorf("preview requested but CONTENTFUL_PREVIEW_ACCESS_TOKEN is not set")
		}
		token, base = cf.PreviewToken, cf.PreviewBaseURL
		if base == "" {
			base = contentful.PreviewBaseURL
		}
	}
	return contentful.New(contentful.Config{
		SpaceID:     cf.SpaceID,
		Environment: cf.Environment,
		AccessToken: token,
		BaseURL:     base,
		Timeout:     cf.Timeout,
		MaxRetries:  cf.MaxRetries,
		Logger:      logger.Named("cli"),
	})
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func runFetch(cmd *cobra.Command, args []string) error {
	ct := args[0]
	if !slices.Contains(content.AllTypes, ct) {
		return fmt.Errorf("unknown content type %q", ct)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, fetchPreview)
	if err != nil {
		return err
	}
	entries, err := client.FetchEntries(cmd.Context(), ct)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []content.Entry{}
	}
	return writeJSON(cmd.OutOrStdout(), entries)
}

func runMeta(cmd *cobra.Command, args []string) error {
	page := "home"
	if len(args) == 1 {
		page = args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, fetchPreview)
	if err != nil {
		return err
	}
	pm, err := resolveMeta(cmd.Context(), cfg, client, page, fetchPreview, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), pm)
}

// resolveMeta resolves page metadata through the same path the page
// handlers use. page is a fixed page name, imprint, privacy or a project
// slug. Decode problems are written to warn.
func resolveMeta(ctx context.Context, cfg folio.SiteConfig, repo folio.Repository, page string, preview bool, warn io.Writer) (seo.PageMetadata, error) {
	fetch := func(ct string) ([]content.Entry, error) {
		entries, err := repo.FetchEntries(ctx, ct)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ct, err)
		}
		return entries, nil
	}
	warnf := func(ct string, err error) {
		if err != nil {
			fmt.Fprintf(warn, "warning: %s: %v\n", ct, err)
		}
	}

	settingsEntries, err := fetch(content.TypeSiteSettings)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	seoEntries, err := fetch(content.TypeSEOMetadata)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	settings, err := content.DecodeSiteSettings(settingsEntries)
	warnf(content.TypeSiteSettings, err)
	records, err := content.DecodeSEOMetadata(seoEntries)
	warnf(content.TypeSEOMetadata, err)

	ref, ok := folio.LookupPage(page)
	switch {
	case ok:
	case page == "imprint":
		entries, err := fetch(content.TypeImprint)
		if err != nil {
			return seo.PageMetadata{}, err
		}
		im, err := content.DecodeImprint(entries)
		warnf(content.TypeImprint, err)
		ref = folio.ImprintPage(im)
	case page == "privacy":
		entries, err := fetch(content.TypePrivacy)
		if err != nil {
			return seo.PageMetadata{}, err
		}
		pr, err := content.DecodePrivacy(entries)
		warnf(content.TypePrivacy, err)
		ref = folio.PrivacyPage(pr)
	default:
		entries, err := fetch(content.TypeProject)
		if err != nil {
			return seo.PageMetadata{}, err
		}
		projects, err := content.DecodeProjects(entries)
		warnf(content.TypeProject, err)
		project, found := content.FindProject(projects, strings.TrimPrefix(page, "projects/"))
		if !found {
			return seo.PageMetadata{}, fmt.Errorf("unknown page %q", page)
		}
		ref = folio.ProjectPage(project)
	}
	return cfg.ResolvePage(settings, records, ref, preview), nil
}
