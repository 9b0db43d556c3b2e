// Package richtext renders Contentful rich-text documents to HTML.
//
// A document is a tree of typed nodes. Block nodes carry children, text
// nodes carry a value and a set of marks. Nodes the renderer does not know
// are rendered as their children so that new node types degrade to plain
// text instead of disappearing.
package richtext

import (
	"bytes"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Node types emitted by the Contentful rich-text editor.
const (
	NodeDocument           = "document"
	NodeParagraph          = "paragraph"
	NodeText               = "text"
	NodeHeading1           = "heading-1"
	NodeHeading2           = "heading-2"
	NodeHeading3           = "heading-3"
	NodeHeading4           = "heading-4"
	NodeHeading5           = "heading-5"
	NodeHeading6           = "heading-6"
	NodeOrderedList        = "ordered-list"
	NodeUnorderedList      = "unordered-list"
	NodeListItem           = "list-item"
	NodeQuote              = "blockquote"
	NodeHR                 = "hr"
	NodeHyperlink          = "hyperlink"
	NodeEmbeddedAssetBlock = "embedded-asset-block"
)

// Mark types applied to text nodes.
const (
	MarkBold        = "bold"
	MarkItalic      = "italic"
	MarkUnderline   = "underline"
	MarkCode        = "code"
	MarkSuperscript = "superscript"
	MarkSubscript   = "subscript"
)

// Mark is a formatting mark on a text node.
type Mark struct {
	Type string `json:"type"`
}

// Node is a single node in a rich-text tree.
type Node struct {
	NodeType string         `json:"nodeType"`
	Value    string         `json:"value"`
	Marks    []Mark         `json:"marks"`
	Data     map[string]any `json:"data"`
	Content  []Node         `json:"content"`
}

// Document is the root node of a rich-text field.
type Document = Node

// IsEmpty reports whether the document has no visible text or embedded assets.
func (n Node) IsEmpty() bool {
	if n.NodeType == NodeText {
		return strings.TrimSpace(n.Value) == ""
	}
	if n.NodeType == NodeEmbeddedAssetBlock || n.NodeType == NodeHR {
		return false
	}
	for _, c := range n.Content {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Render converts a document into sanitized HTML.
func Render(doc Document) string {
	var buf bytes.Buffer
	renderNode(&buf, doc)
	return policy.Sanitize(buf.String())
}

var blockTags = map[string]string{
	NodeParagraph:     "p",
	NodeHeading1:      "h1",
	NodeHeading2:      "h2",
	NodeHeading3:      "h3",
	NodeHeading4:      "h4",
	NodeHeading5:      "h5",
	NodeHeading6:      "h6",
	NodeOrderedList:   "ol",
	NodeUnorderedList: "ul",
	NodeListItem:      "li",
	NodeQuote:         "blockquote",
}

var markTags = map[string]string{
	MarkBold:        "strong",
	MarkItalic:      "em",
	MarkUnderline:   "u",
	MarkCode:        "code",
	MarkSuperscript: "sup",
	MarkSubscript:   "sub",
}

func renderNode(buf *bytes.Buffer, n Node) {
	switch n.NodeType {
	case NodeText:
		renderText(buf, n)
		return
	case NodeHR:
		buf.WriteString("<hr/>")
		return
	case NodeHyperlink:
		uri, _ := n.Data["uri"].(string)
		buf.WriteString(`<a href="`)
		buf.WriteString(html.EscapeString(uri))
		buf.WriteString(`">`)
		renderChildren(buf, n)
		buf.WriteString("</a>")
		return
	case NodeEmbeddedAssetBlock:
		renderEmbeddedAsset(buf, n)
		return
	}
	tag, ok := blockTags[n.NodeType]
	if !ok {
		renderChildren(buf, n)
		return
	}
	buf.WriteString("<" + tag + ">")
	renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func renderChildren(buf *bytes.Buffer, n Node) {
	for _, c := range n.Content {
		renderNode(buf, c)
	}
}

func renderText(buf *bytes.Buffer, n Node) {
	var open, closing strings.Builder
	for _, m := range n.Marks {
		tag, ok := markTags[m.Type]
		if !ok {
			continue
		}
		open.WriteString("<" + tag + ">")
		closing.WriteString("</" + tag + ">")
	}
	// Closing tags must unwind in reverse order.
	closeTags := strings.SplitAfter(closing.String(), ">")
	buf.WriteString(open.String())
	buf.WriteString(strings.ReplaceAll(html.EscapeString(n.Value), "\n", "<br/>"))
	for i := len(closeTags) - 1; i >= 0; i-- {
		buf.WriteString(closeTags[i])
	}
}

// renderEmbeddedAsset renders an embedded image; a target without a
// resolved file URL renders nothing.
func renderEmbeddedAsset(buf *bytes.Buffer, n Node) {
	target, _ := n.Data["target"].(map[string]any)
	fields, _ := target["fields"].(map[string]any)
	file, _ := fields["file"].(map[string]any)
	url, _ := file["url"].(string)
	if url == "" {
		return
	}
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	title, _ := fields["title"].(string)
	buf.WriteString(`<img src="`)
	buf.WriteString(html.EscapeString(url))
	buf.WriteString(`" alt="`)
	buf.WriteString(html.EscapeString(title))
	buf.WriteString(`"/>`)
}

// PlainText concatenates the text values of every node in document order.
func PlainText(doc Document) string {
	var b strings.Builder
	collectText(&b, doc)
	return b.String()
}

func collectText(b *strings.Builder, n Node) {
	if n.NodeType == NodeText {
		b.WriteString(n.Value)
		return
	}
	for _, c := range n.Content {
		collectText(b, c)
	}
}

// Truncate shortens s to at most n runes. The second return value reports
// whether anything was cut.
func Truncate(s string, n int) (string, bool) {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}
