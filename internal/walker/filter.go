package walker

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names never descended into: VCS metadata,
// dependencies, build output and the tool's own state.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"reports":      true,
	"development":  true,
	".siteaudit":   true,
	".idea":        true,
	".vscode":      true,
}

// backupMarkers identify copies written by fixers and by hand.
var backupMarkers = []string{".backup", ".bak", ".orig"}

// ExcludedDir reports whether a directory with this name is skipped.
func ExcludedDir(name string) bool {
	return skipDirs[strings.ToLower(name)]
}

// IsBackup reports whether name looks like a backup copy, e.g.
// "index.html.backup", "index.html.backup_duplicates" or "styles.css.bak".
func IsBackup(name string) bool {
	lower := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, marker := range backupMarkers {
		if strings.HasSuffix(lower, marker) || strings.Contains(lower, marker+"_") || strings.Contains(lower, marker+"-") {
			return true
		}
	}
	return false
}

// MatchesInclude reports whether relPath is selected by the include
// patterns. No patterns selects everything.
func MatchesInclude(relPath string, patterns []string) bool {
	return len(patterns) == 0 || matchGlobs(relPath, patterns)
}

// MatchesExclude reports whether relPath is dropped by the exclude patterns.
func MatchesExclude(relPath string, patterns []string) bool {
	return matchGlobs(relPath, patterns)
}

// matchGlobs tries each pattern against the full slash path and against
// the bare file name, so "*.html" selects nested pages too.
func matchGlobs(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}
