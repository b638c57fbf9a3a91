// Package walker discovers the HTML, CSS and JavaScript files of a static
// site checkout.
package walker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the maximum file size to process (2 MB).
const DefaultMaxFileSize int64 = 2 << 20

// sniffLen is how much of a file is inspected for NUL bytes.
const sniffLen = 512

// FileInfo holds metadata about a single file discovered during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Slash-separated path relative to the site root.
	Size        int64
	Kind        Kind
	ContentHash string // SHA-256 hex digest of the file content.
}

// WalkerConfig controls the behaviour of the Walk function.
type WalkerConfig struct {
	RootDir     string
	Include     []string // Glob patterns; only matching files are included.
	Exclude     []string // Glob patterns; matching files are excluded.
	MaxFileSize int64    // 0 means DefaultMaxFileSize.
	AllKinds    bool     // Keep files of KindOther as well.
}

// Walk traverses the tree rooted at config.RootDir and returns every site
// file that passes filtering, in lexical path order. Backup copies, binary
// files, oversized files and default-excluded directories are skipped.
// Include/exclude patterns and the root .gitignore are honoured. Entries
// that cannot be read are skipped rather than failing the walk.
func Walk(config WalkerConfig) ([]FileInfo, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}
	w := &walk{
		root:    root,
		cfg:     config,
		maxSize: config.MaxFileSize,
		ignore:  loadIgnore(filepath.Join(root, ".gitignore")),
	}
	if w.maxSize <= 0 {
		w.maxSize = DefaultMaxFileSize
	}
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}
	return w.files, nil
}

type walk struct {
	root    string
	cfg     WalkerConfig
	maxSize int64
	ignore  ignoreRules
	files   []FileInfo
}

func (w *walk) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		return nil
	}
	name := d.Name()
	if d.IsDir() {
		if path != w.root && ExcludedDir(name) {
			return filepath.SkipDir
		}
		return nil
	}
	if !d.Type().IsRegular() || IsBackup(name) {
		return nil
	}
	kind := DetectKind(name)
	if kind == KindOther && !w.cfg.AllKinds {
		return nil
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if w.ignore.ignored(rel) || !MatchesInclude(rel, w.cfg.Include) || MatchesExclude(rel, w.cfg.Exclude) {
		return nil
	}

	info, err := d.Info()
	if err != nil || info.Size() > w.maxSize {
		return nil
	}
	hash, binary, err := sniff(path)
	if err != nil || binary {
		return nil
	}

	w.files = append(w.files, FileInfo{
		Path:        path,
		RelPath:     rel,
		Size:        info.Size(),
		Kind:        kind,
		ContentHash: hash,
	})
	return nil
}

// sniff hashes a file and reports whether its first bytes contain a NUL,
// which marks it as binary. Callers have already bounded the size.
func sniff(path string) (hash string, binary bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "", true, nil
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), false, nil
}

// ignoreRule is one line of a .gitignore.
type ignoreRule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// ignoreRules are evaluated in order; the last matching rule wins.
type ignoreRules []ignoreRule

func loadIgnore(path string) ignoreRules {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return parseIgnore(string(data))
}

func parseIgnore(src string) ignoreRules {
	var rules ignoreRules
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		anchored := strings.HasPrefix(line, "/") || strings.Contains(strings.TrimPrefix(line, "/"), "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		if !anchored {
			line = "**/" + line
		}
		if !doublestar.ValidatePattern(line) {
			continue
		}
		r.pattern = line
		rules = append(rules, r)
	}
	return rules
}

func (rs ignoreRules) ignored(rel string) bool {
	ignored := false
	for _, r := range rs {
		if r.matches(rel) {
			ignored = !r.negate
		}
	}
	return ignored
}

// matches tests the file itself (unless the rule only names directories)
// and each of its parent directories.
func (r ignoreRule) matches(rel string) bool {
	if !r.dirOnly {
		if ok, _ := doublestar.Match(r.pattern, rel); ok {
			return true
		}
	}
	for i := 0; i < len(rel); i++ {
		if rel[i] != '/' {
			continue
		}
		if ok, _ := doublestar.Match(r.pattern, rel[:i]); ok {
			return true
		}
	}
	return false
}
