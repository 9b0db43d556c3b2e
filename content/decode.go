package content

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mitchellh/mapstructure"
)

// Degraded reports optional fields of an entry that were malformed and have
// been cleared. The decoded record is still usable.
type Degraded struct {
	ContentType string
	ID          string
	Err         error
}

func (d *Degraded) Error() string {
	return fmt.Sprintf("content: cleared fields of %s %s: %v", d.ContentType, d.ID, d.Err)
}

func (d *Degraded) Unwrap() error { return d.Err }

// sanitizer is implemented by schemas with optional fields that are cleared,
// rather than rejected, when malformed.
type sanitizer interface {
	sanitize() error
}

// Decode maps raw entry fields onto out (a pointer to a schema struct),
// clears malformed optional fields and validates the required ones. A
// *Degraded error means out is usable; any other error means it is not.
func Decode(e Entry, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(unwrapLinks),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("content: decoder: %w", err)
	}
	if err := dec.Decode(e.Fields); err != nil {
		return fmt.Errorf("content: decode %s %s: %w", e.ContentType, e.ID, err)
	}
	var cleared error
	if s, ok := out.(sanitizer); ok {
		cleared = s.sanitize()
	}
	if v, ok := out.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("content: invalid %s %s: %w", e.ContentType, e.ID, err)
		}
	}
	if cleared != nil {
		return &Degraded{ContentType: e.ContentType, ID: e.ID, Err: cleared}
	}
	return nil
}

// usable reports whether a Decode error still leaves the record in place.
func usable(err error) bool {
	var d *Degraded
	return err == nil || errors.As(err, &d)
}

// clearInvalid empties *field when it breaks rules and names the field in
// the returned error.
func clearInvalid(name string, field *string, rules ...validation.Rule) error {
	if err := validation.Validate(*field, rules...); err != nil {
		*field = ""
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// DecodeAll decodes every entry, keeping the valid ones in order. Entries
// that fail are reported in the returned error; the slice is usable even
// when the error is non-nil.
func DecodeAll[T any](entries []Entry) ([]T, error) {
	out := make([]T, 0, len(entries))
	var errs []error
	for _, e := range entries {
		var item T
		if err := Decode(e, &item); err != nil {
			errs = append(errs, err)
			if !usable(err) {
				continue
			}
		}
		out = append(out, item)
	}
	return out, errors.Join(errs...)
}

// DecodeFirst returns the first entry that decodes to a usable record, or
// nil when there is none.
func DecodeFirst[T any](entries []Entry) (*T, error) {
	var errs []error
	for _, e := range entries {
		var item T
		if err := Decode(e, &item); err != nil {
			errs = append(errs, err)
			if !usable(err) {
				continue
			}
		}
		return &item, errors.Join(errs...)
	}
	return nil, errors.Join(errs...)
}

// unwrapLinks flattens resolved CMS references ({sys, fields}) into their
// field mapping when decoding into a struct. Unresolved references carry
// only sys and decode to the zero value.
func unwrapLinks(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Struct {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if fields, ok := m["fields"].(map[string]any); ok {
		return fields, nil
	}
	if _, ok := m["sys"]; ok {
		return map[string]any{}, nil
	}
	return data, nil
}

var slugPattern = regexp.MustCompile(`^[^\s/?#]+$`)

func (s *SiteSettings) sanitize() error {
	return clearInvalid("siteUrl", &s.SiteURL, is.URL)
}

func (m *SEOMetadata) sanitize() error {
	return errors.Join(
		clearInvalid("pageTitle", &m.PageTitle, validation.Length(0, 300)),
		clearInvalid("metaDescription", &m.MetaDescription, validation.Length(0, 1000)),
	)
}

// Validate implements validation.Validatable.
func (l NavLink) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Label, validation.Required),
		validation.Field(&l.URL, validation.Required),
	)
}

// Validate implements validation.Validatable. A project without a title or
// a usable slug cannot be listed or routed.
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Slug, validation.Required, validation.Match(slugPattern)),
	)
}

func (p *Project) sanitize() error {
	return clearInvalid("link", &p.Link, is.URL)
}

func (a *About) sanitize() error {
	return errors.Join(
		clearInvalid("email", &a.Email, is.EmailFormat),
		clearInvalid("instagramLink", &a.InstagramLink, is.URL),
	)
}

// DecodeSiteSettings returns the first valid site settings record, or nil.
func DecodeSiteSettings(entries []Entry) (*SiteSettings, error) {
	return DecodeFirst[SiteSettings](entries)
}

// DecodeSEOMetadata returns every valid SEO record in CMS order.
func DecodeSEOMetadata(entries []Entry) ([]SEOMetadata, error) {
	out, err := DecodeAll[SEOMetadata](entries)
	for i := range out {
		out[i].Keywords = compact(out[i].Keywords)
	}
	return out, err
}

// DecodeHeader returns the header record with invalid navigation links
// removed, or nil.
func DecodeHeader(entries []Entry) (*Header, error) {
	h, err := DecodeFirst[Header](entries)
	if h == nil {
		return nil, err
	}
	links := h.NavigationLinks[:0]
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, l := range h.NavigationLinks {
		if verr := l.Validate(); verr != nil {
			errs = append(errs, fmt.Errorf("content: navigation link %q: %w", l.Label, verr))
			continue
		}
		links = append(links, l)
	}
	h.NavigationLinks = links
	return h, errors.Join(errs...)
}

// DecodeLandingPage returns the landing page record, or nil.
func DecodeLandingPage(entries []Entry) (*LandingPage, error) {
	return DecodeFirst[LandingPage](entries)
}

// DecodeAbout returns the about record, or nil.
func DecodeAbout(entries []Entry) (*About, error) {
	return DecodeFirst[About](entries)
}

// DecodeProjects returns every valid project in CMS order. Later entries
// with a slug that was already seen are dropped.
func DecodeProjects(entries []Entry) ([]Project, error) {
	all, err := DecodeAll[Project](entries)
	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, p := range all {
		if _, dup := seen[p.Slug]; dup {
			continue
		}
		seen[p.Slug] = struct{}{}
		out = append(out, p)
	}
	return out, err
}

// DecodeImprint returns the imprint record, or nil.
func DecodeImprint(entries []Entry) (*Imprint, error) {
	return DecodeFirst[Imprint](entries)
}

// DecodePrivacy returns the privacy policy record, or nil.
func DecodePrivacy(entries []Entry) (*Privacy, error) {
	return DecodeFirst[Privacy](entries)
}

// FindProject returns the project with the given slug.
func FindProject(projects []Project, slug string) (Project, bool) {
	for _, p := range projects {
		if p.Slug == slug {
			return p, true
		}
	}
	return Project{}, false
}

func compact(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
