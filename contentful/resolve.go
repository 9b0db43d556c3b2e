package contentful

import (
	"time"

	"github.com/eringen/folio/content"
)

const (
	linkTypeEntry = "Entry"
	linkTypeAsset = "Asset"
	sysTypeLink   = "Link"
)

type contentTypeRef struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
}

type sys struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	ContentType *contentTypeRef `json:"contentType,omitempty"`
}

type item struct {
	Sys    sys            `json:"sys"`
	Fields map[string]any `json:"fields"`
}

// collection is one page of a /entries response.
type collection struct {
	Total    int    `json:"total"`
	Skip     int    `json:"skip"`
	Limit    int    `json:"limit"`
	Items    []item `json:"items"`
	Includes struct {
		Entry []item `json:"Entry"`
		Asset []item `json:"Asset"`
	} `json:"includes"`
}

func (s sys) contentType() string {
	if s.ContentType == nil {
		return ""
	}
	return s.ContentType.Sys.ID
}

func (s sys) asMap() map[string]any {
	m := map[string]any{"id": s.ID, "type": s.Type}
	if ct := s.contentType(); ct != "" {
		m["contentType"] = map[string]any{"sys": map[string]any{"id": ct}}
	}
	return m
}

// entries converts the page items into content entries with every
// resolvable link replaced by the linked object.
func (p *collection) entries() []content.Entry {
	r := newResolver(p)
	out := make([]content.Entry, 0, len(p.Items))
	for _, it := range p.Items {
		key := linkTypeEntry + ":" + it.Sys.ID
		r.visiting[key] = true
		fields, _ := r.resolve(it.Fields).(map[string]any)
		delete(r.visiting, key)
		if fields == nil {
			fields = map[string]any{}
		}
		out = append(out, content.Entry{
			ID:          it.Sys.ID,
			ContentType: it.Sys.contentType(),
			UpdatedAt:   it.Sys.UpdatedAt,
			Fields:      fields,
		})
	}
	return out
}

type resolver struct {
	index    map[string]item
	visiting map[string]bool
}

func newResolver(p *collection) *resolver {
	r := &resolver{
		index:    make(map[string]item, len(p.Items)+len(p.Includes.Entry)+len(p.Includes.Asset)),
		visiting: map[string]bool{},
	}
	for _, it := range p.Items {
		r.index[linkTypeEntry+":"+it.Sys.ID] = it
	}
	for _, it := range p.Includes.Entry {
		r.index[linkTypeEntry+":"+it.Sys.ID] = it
	}
	for _, it := range p.Includes.Asset {
		r.index[linkTypeAsset+":"+it.Sys.ID] = it
	}
	return r
}

// resolve walks v and replaces link objects with {sys, fields}. Links that
// are missing from the response, or that would recurse into an object
// already being resolved, are left as bare {sys} objects.
func (r *resolver) resolve(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if key, ok := linkKey(t); ok {
			target, found := r.index[key]
			if !found || r.visiting[key] {
				return map[string]any{"sys": t["sys"]}
			}
			r.visiting[key] = true
			fields, _ := r.resolve(target.Fields).(map[string]any)
			delete(r.visiting, key)
			return map[string]any{"sys": target.Sys.asMap(), "fields": fields}
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = r.resolve(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.resolve(val)
		}
		return out
	default:
		return v
	}
}

func linkKey(m map[string]any) (string, bool) {
	s, ok := m["sys"].(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	if typ, _ := s["type"].(string); typ != sysTypeLink {
		return "", false
	}
	linkType, _ := s["linkType"].(string)
	id, _ := s["id"].(string)
	if id == "" || (linkType != linkTypeEntry && linkType != linkTypeAsset) {
		return "", false
	}
	return linkType + ":" + id, true
}
