package advisor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
)

const outlineTextLimit = 600

// Outline summarises a page for the model: metadata, heading tree,
// element counts, resources and the start of the visible text.
func Outline(doc *htmldoc.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", doc.Title())
	if lang := doc.Lang(); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	if desc, ok := doc.Meta("description"); ok {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}

	b.WriteString("\nHeadings:\n")
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		fmt.Fprintf(&b, "%s%s %s\n", strings.Repeat("  ", level-1), goquery.NodeName(s), strings.Join(strings.Fields(s.Text()), " "))
	})

	b.WriteString("\nElements:\n")
	for _, sel := range []string{"nav", "main", "footer", "form", "input", "button", "a[href]", "img", "ins.adsbygoogle"} {
		if n := doc.Count(sel); n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", sel, n)
		}
	}

	if res := doc.Resources(); len(res) > 0 {
		b.WriteString("\nResources:\n")
		for _, r := range res {
			fmt.Fprintf(&b, "- %s %s (line %d)\n", r.Kind, r.URL, r.Line())
		}
	}
	if inline := doc.InlineScripts(); len(inline) > 0 {
		fmt.Fprintf(&b, "\nInline scripts: %d\n", len(inline))
	}

	text := strings.Join(strings.Fields(doc.BodyText()), " ")
	if len(text) > outlineTextLimit {
		text = truncate(text, outlineTextLimit) + "..."
	}
	if text != "" {
		fmt.Fprintf(&b, "\nVisible text:\n%s\n", text)
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
