package fixer

import (
	"html"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// CacheBust sets the version parameter of local script and stylesheet
// references.
type CacheBust struct {
	Param   string
	Version string
}

func (CacheBust) Name() string { return "cache-bust" }

func (c CacheBust) Fix(relPath string, src []byte) ([]byte, []report.Change, error) {
	doc, err := htmldoc.Parse(relPath, src)
	if err != nil {
		return nil, nil, err
	}

	var edits []edit
	var changes []report.Change
	for _, res := range doc.ResourcesOf(htmldoc.ResourceScript, htmldoc.ResourceStylesheet) {
		if !htmldoc.IsLocal(res.URL) || htmldoc.ExtractVersion(res.URL) == c.Version {
			continue
		}
		updated := htmldoc.SetVersion(res.URL, c.Param, c.Version)
		e, ok := replaceAttrValue(src, res.Tag, res.URL, updated)
		if !ok {
			continue
		}
		edits = append(edits, e)
		changes = append(changes, change(c.Name(), relPath, "replaced", res.Tag, res.URL, updated))
	}

	if len(edits) == 0 {
		return nil, nil, ErrNoChange
	}
	return splice(src, edits), changes, nil
}

// replaceAttrValue locates value inside the tag's source, either verbatim
// or HTML-escaped, and replaces it with updated in the same form.
func replaceAttrValue(src []byte, tag htmldoc.Tag, value, updated string) (edit, bool) {
	raw := string(src[tag.Start:tag.End])
	if i := strings.Index(raw, value); i >= 0 {
		return edit{start: tag.Start + i, end: tag.Start + i + len(value), text: updated}, true
	}
	escaped := html.EscapeString(value)
	if i := strings.Index(raw, escaped); i >= 0 {
		return edit{start: tag.Start + i, end: tag.Start + i + len(escaped), text: html.EscapeString(updated)}, true
	}
	return edit{}, false
}
