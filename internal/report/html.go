package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// sanitizer strips scripts and event handlers that may come from LLM notes
// or from evidence copied out of the audited pages.
var sanitizer = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("style").OnElements("span", "pre")
	return p
}()

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 4px 10px; }
code { background: #f6f8fa; padding: 1px 4px; border-radius: 4px; }
pre { padding: 8px; overflow-x: auto; }
nav a { margin-right: 1rem; }
</style>
</head>
<body>
<nav><a href="/">All runs</a></nav>
{{.Body}}
</body>
</html>
`

var pageTmpl = template.Must(template.New("report").Parse(pageTemplate))

// RenderHTML renders r as a standalone HTML page.
func RenderHTML(r *Report) ([]byte, error) {
	body, err := MarkdownToHTML(RenderMarkdown(r))
	if err != nil {
		return nil, err
	}
	return WrapPage(fmt.Sprintf("%s report %s", r.Kind, r.ID), body)
}

// MarkdownToHTML converts Markdown to sanitized HTML.
func MarkdownToHTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// WrapPage embeds an HTML fragment in the report page layout.
func WrapPage(title string, body template.HTML) ([]byte, error) {
	var out bytes.Buffer
	err := pageTmpl.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{title, body})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}
