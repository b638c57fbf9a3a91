package walker

import (
	"path/filepath"
	"strings"
)

// Kind classifies a site file.
type Kind string

const (
	KindHTML  Kind = "html"
	KindCSS   Kind = "css"
	KindJS    Kind = "js"
	KindOther Kind = "other"
)

var extensionToKind = map[string]Kind{
	".html": KindHTML,
	".htm":  KindHTML,
	".css":  KindCSS,
	".js":   KindJS,
	".mjs":  KindJS,
	".cjs":  KindJS,
}

// DetectKind returns the Kind of a file from its extension.
func DetectKind(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := extensionToKind[ext]; ok {
		return kind
	}
	return KindOther
}

// FilterKind returns the files of the given kind, preserving order.
func FilterKind(files []FileInfo, kind Kind) []FileInfo {
	var out []FileInfo
	for _, f := range files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
