// Package fixer rewrites site files: it removes duplicate resources,
// standardises the CSP meta tag and stamps cache-busting versions. Edits
// are byte-range splices on the original source so markup outside the
// touched tags is preserved exactly.
package fixer

import (
	"bytes"
	"errors"
	"sort"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// ErrNoChange is returned by a Fixer that has nothing to do.
var ErrNoChange = errors.New("fixer: no change")

// Fixer transforms one HTML file.
type Fixer interface {
	Name() string
	Fix(relPath string, src []byte) ([]byte, []report.Change, error)
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// splice applies non-overlapping edits to src.
func splice(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var out bytes.Buffer
	out.Grow(len(src))
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		out.Write(src[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(src[pos:])
	return out.Bytes()
}

// removal deletes tag, taking its whole line with it when nothing else
// shares the line.
func removal(src []byte, tag htmldoc.Tag) edit {
	start, end := tag.Start, tag.End

	lineStart := start
	for lineStart > 0 && (src[lineStart-1] == ' ' || src[lineStart-1] == '\t') {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(src) && (src[lineEnd] == ' ' || src[lineEnd] == '\t' || src[lineEnd] == '\r') {
		lineEnd++
	}
	atLineStart := lineStart == 0 || src[lineStart-1] == '\n'
	atLineEnd := lineEnd == len(src) || src[lineEnd] == '\n'
	if atLineStart && atLineEnd {
		if lineEnd < len(src) {
			lineEnd++
		}
		return edit{start: lineStart, end: lineEnd}
	}
	return edit{start: start, end: end}
}

// indentOf returns the leading whitespace of the line containing offset.
func indentOf(src []byte, offset int) string {
	lineStart := bytes.LastIndexByte(src[:offset], '\n') + 1
	i := lineStart
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return string(src[lineStart:i])
}

func change(fixer, file string, action string, tag htmldoc.Tag, before, after string) report.Change {
	return report.Change{
		File:   file,
		Fixer:  fixer,
		Action: action,
		Line:   tag.Line,
		Before: before,
		After:  after,
	}
}

// Chain runs fixers in order, each on the previous output. ErrNoChange is
// returned only when none of them changed anything.
func Chain(relPath string, src []byte, fixers []Fixer) ([]byte, []report.Change, error) {
	current := src
	var all []report.Change
	for _, f := range fixers {
		out, changes, err := f.Fix(relPath, current)
		if errors.Is(err, ErrNoChange) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		current = out
		all = append(all, changes...)
	}
	if len(all) == 0 {
		return nil, nil, ErrNoChange
	}
	return current, all, nil
}
