package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, md string) string {
	t.Helper()
	got, err := Render(md)
	if err != nil {
		t.Fatalf("Render(%q): %v", md, err)
	}
	return got
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"Run `go test` to verify.", "<code>go test</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("Render(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := render(t, "  \n"); got != "" {
		t.Errorf("Render(blank) = %q, want empty", got)
	}
}

func TestRenderLists(t *testing.T) {
	got := render(t, "- item 1\n- item 2")
	if !strings.Contains(got, "<ul>") || strings.Count(got, "<li>") != 2 {
		t.Errorf("unordered list = %q", got)
	}

	got = render(t, "1. first\n2. second\n\nsome text")
	if !strings.Contains(got, "<ol>") || !strings.Contains(got, "<p>some text</p>") {
		t.Errorf("ordered list followed by paragraph = %q", got)
	}
}

func TestRenderCVTable(t *testing.T) {
	input := "| Year | Role |\n|---|---|\n| 2021 | Designer |"
	got := render(t, input)
	if !strings.Contains(got, "<table>") || !strings.Contains(got, "<td>Designer</td>") {
		t.Errorf("table = %q", got)
	}
}

func TestRenderHeadingIDs(t *testing.T) {
	got := render(t, "## Exhibitions")
	if !strings.Contains(got, `<h2 id="exhibitions">Exhibitions</h2>`) {
		t.Errorf("heading = %q", got)
	}
}

func TestRenderStripsRawHTML(t *testing.T) {
	got := render(t, "hello <script>alert(1)</script> <b onclick=\"x()\">hi</b>")
	if strings.Contains(got, "<script") || strings.Contains(got, "onclick") {
		t.Errorf("raw HTML survived: %q", got)
	}
}

func TestRenderLinks(t *testing.T) {
	got := render(t, "[site](https://example.com) [bad](javascript:alert(1)) [mail](mailto:a@b.c)")
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("missing external link: %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("external link should open in a new tab: %q", got)
	}
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript link survived: %q", got)
	}
	if !strings.Contains(got, `href="mailto:a@b.c"`) {
		t.Errorf("missing mailto link: %q", got)
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("*cv*").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "<em>cv</em>") {
		t.Errorf("component output = %q", buf.String())
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://instagram.com/studio", "https://instagram.com/studio"},
		{"//images.ctfassets.net/a.png", "https://images.ctfassets.net/a.png"},
		{"/about/", "/about/"},
		{"#cv", "#cv"},
		{"mailto:hi@example.com", "mailto:hi@example.com"},
		{"tel:+4912345", "tel:+4912345"},
		{"javascript:alert(1)", ""},
		{"data:text/html;base64,xx", ""},
		{"example.com", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
