package views

import (
	"fmt"
	"html"
	"io"
)

// htmlWriter is an io.Writer wrapper that remembers the first write error
// so components can emit markup without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func newWriter(w io.Writer) *htmlWriter {
	return &htmlWriter{w: w}
}

// raw writes s verbatim. Only use it for trusted markup.
func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// rawf formats trusted markup. Arguments are not escaped.
func (h *htmlWriter) rawf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

// text writes s with HTML escaping.
func (h *htmlWriter) text(s string) {
	h.raw(html.EscapeString(s))
}

// meta writes <meta attr="key" content="value">.
func (h *htmlWriter) meta(attr, key, value string) {
	h.rawf(`<meta %s="%s" content="%s">`, attr, esc(key), esc(value))
}

func esc(s string) string {
	return html.EscapeString(s)
}
