package htmldoc

import "bytes"

// LineAt returns the 1-based line number of byte offset in src.
func LineAt(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	return bytes.Count(src[:offset], []byte{'\n'}) + 1
}

// LineOf returns the 1-based line of the nth (1-based) occurrence of needle
// in src, or 0 when there are fewer occurrences.
func LineOf(src []byte, needle string, nth int) int {
	if needle == "" || nth < 1 {
		return 0
	}
	pos := 0
	for i := 0; i < nth; i++ {
		idx := bytes.Index(src[pos:], []byte(needle))
		if idx < 0 {
			return 0
		}
		pos += idx
		if i < nth-1 {
			pos += len(needle)
		}
	}
	return LineAt(src, pos)
}
