package fixer

import (
	"bytes"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// CSP replaces every Content-Security-Policy meta tag with one carrying the
// standard policy. With InsertMissing, pages without one get it inserted
// after <meta charset> or at the top of <head>.
type CSP struct {
	Directives    []string
	InsertMissing bool
}

func (CSP) Name() string { return "csp" }

// Policy joins the directives into a policy string.
func (c CSP) Policy() string {
	return strings.Join(c.Directives, "; ")
}

// Tag renders the standard meta tag.
func (c CSP) Tag() string {
	return `<meta http-equiv="Content-Security-Policy" content="` + attrEscaper.Replace(c.Policy()) + `">`
}

// attrEscaper escapes a double-quoted attribute value, leaving the single
// quotes of CSP keywords readable.
var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")

func (c CSP) Fix(relPath string, src []byte) ([]byte, []report.Change, error) {
	doc, err := htmldoc.Parse(relPath, src)
	if err != nil {
		return nil, nil, err
	}
	want := c.Tag()
	metas := doc.HTTPEquiv("content-security-policy")

	if len(metas) == 0 {
		if !c.InsertMissing {
			return nil, nil, ErrNoChange
		}
		anchor, ok := insertionPoint(doc)
		if !ok {
			return nil, nil, ErrNoChange
		}
		indent := indentOf(src, anchor.Start)
		e := edit{start: anchor.End, end: anchor.End, text: "\n" + indent + want}
		if anchor.Name == "head" {
			e.text = "\n" + indent + "  " + want
		}
		return splice(src, []edit{e}), []report.Change{change(c.Name(), relPath, "inserted", anchor, "", want)}, nil
	}

	for i := range metas {
		metas[i] = clipUnterminated(src, metas[i])
	}

	var edits []edit
	var changes []report.Change
	first := metas[0]
	if strings.TrimSpace(first.Attrs["content"]) != c.Policy() {
		edits = append(edits, edit{start: first.Start, end: first.End, text: want})
		changes = append(changes, change(c.Name(), relPath, "replaced", first, first.Source(src), want))
	}
	for _, m := range metas[1:] {
		edits = append(edits, removal(src, m))
		changes = append(changes, change(c.Name(), relPath, "removed", m, m.Source(src), ""))
	}

	if len(edits) == 0 {
		return nil, nil, ErrNoChange
	}
	return splice(src, edits), changes, nil
}

// clipUnterminated handles a content attribute that was never closed. The
// tokenizer then reads the following markup into the tag, so its range is
// cut back to the first '>' after content= and the rest of the markup is
// left in place.
func clipUnterminated(src []byte, t htmldoc.Tag) htmldoc.Tag {
	if !strings.ContainsAny(t.Attrs["content"], "<>") {
		return t
	}
	raw := bytes.ToLower(src[t.Start:t.End])
	i := bytes.Index(raw, []byte("content="))
	if i < 0 {
		return t
	}
	if j := bytes.IndexByte(raw[i:], '>'); j >= 0 {
		t.End = t.Start + i + j + 1
	}
	return t
}

// insertionPoint returns the tag after which the policy is inserted.
func insertionPoint(doc *htmldoc.Document) (htmldoc.Tag, bool) {
	for _, t := range doc.TagsNamed("meta") {
		if _, ok := t.Attrs["charset"]; ok {
			return t, true
		}
	}
	return doc.Head()
}
