package fixer

import (
	"fmt"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// Dedupe removes duplicate script and stylesheet tags that share a
// normalised URL. The copy with the highest version survives; when none
// is versioned the first one does.
type Dedupe struct{}

func (Dedupe) Name() string { return "dedupe" }

func (d Dedupe) Fix(relPath string, src []byte) ([]byte, []report.Change, error) {
	doc, err := htmldoc.Parse(relPath, src)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]htmldoc.Resource)
	var order []string
	for _, res := range doc.ResourcesOf(htmldoc.ResourceScript, htmldoc.ResourceStylesheet) {
		key := string(res.Kind) + " " + htmldoc.NormalizeURL(res.URL)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], res)
	}

	var edits []edit
	var changes []report.Change
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		keep := keeper(group)
		for i, res := range group {
			if i == keep {
				continue
			}
			edits = append(edits, removal(src, res.Tag))
			changes = append(changes, change(d.Name(), relPath, "removed", res.Tag, res.Tag.Source(src),
				fmt.Sprintf("kept %s", group[keep].URL)))
		}
	}

	if len(edits) == 0 {
		return nil, nil, ErrNoChange
	}
	return splice(src, edits), changes, nil
}

// keeper picks the index of the resource to retain.
func keeper(group []htmldoc.Resource) int {
	best := 0
	bestVersion := htmldoc.ExtractVersion(group[0].URL)
	for i := 1; i < len(group); i++ {
		v := htmldoc.ExtractVersion(group[i].URL)
		if htmldoc.CompareVersions(v, bestVersion) > 0 {
			best, bestVersion = i, v
		}
	}
	return best
}

// InlineDedupe removes repeated identical inline scripts, keeping the
// first. Scripts are compared with whitespace collapsed.
type InlineDedupe struct{}

func (InlineDedupe) Name() string { return "inline-dedupe" }

func (d InlineDedupe) Fix(relPath string, src []byte) ([]byte, []report.Change, error) {
	doc, err := htmldoc.Parse(relPath, src)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var edits []edit
	var changes []report.Change
	for _, s := range doc.InlineScripts() {
		if !seen[s.Hash] {
			seen[s.Hash] = true
			continue
		}
		edits = append(edits, removal(src, s.Tag))
		changes = append(changes, change(d.Name(), relPath, "removed", s.Tag, s.Preview, ""))
	}

	if len(edits) == 0 {
		return nil, nil, ErrNoChange
	}
	return splice(src, edits), changes, nil
}
