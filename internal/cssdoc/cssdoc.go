// Package cssdoc extracts selectors, class definitions and imports from
// stylesheets using the gorilla/css tokenizer.
package cssdoc

import (
	"sort"
	"strings"

	"github.com/gorilla/css/scanner"
)

// Selector is one selector of a rule, e.g. ".hero" from ".hero, .footer { }".
type Selector struct {
	Text    string // whitespace-normalised selector
	Context string // enclosing group at-rules, e.g. "@media (max-width: 600px)"
	Line    int
}

// Stylesheet is a parsed CSS file.
type Stylesheet struct {
	Path      string
	Selectors []Selector
	Imports   []string
	Rules     int

	classes map[string]int // class -> first line defined
}

// blockKind tracks what a '{' opened.
type blockKind int

const (
	blockDecl  blockKind = iota // declarations
	blockGroup                  // @media and friends: nested rules
	blockOther                  // @font-face, @keyframes: nothing to index
)

// groupRules contain nested style rules.
var groupRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@layer":     true,
	"@container": true,
	"@document":  true,
}

// Parse tokenizes src. It never fails; unparseable input yields whatever
// selectors were recognised before the error.
func Parse(path string, src []byte) *Stylesheet {
	sheet := &Stylesheet{Path: path, classes: make(map[string]int)}

	var (
		stack    []blockKind
		contexts []string
		prelude  []*scanner.Token
	)

	selectorContext := func() bool {
		return len(stack) == 0 || stack[len(stack)-1] == blockGroup
	}

	s := scanner.New(string(src))
	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			break
		}
		if tok.Type == scanner.TokenComment {
			continue
		}

		if !selectorContext() {
			if tok.Type == scanner.TokenChar {
				switch tok.Value {
				case "{":
					stack = append(stack, blockOther)
				case "}":
					stack = stack[:len(stack)-1]
				}
			}
			continue
		}

		if tok.Type != scanner.TokenChar {
			prelude = append(prelude, tok)
			continue
		}

		switch tok.Value {
		case "{":
			if at := atKeyword(prelude); at != "" {
				if groupRules[at] {
					stack = append(stack, blockGroup)
					contexts = append(contexts, preludeText(prelude))
				} else {
					stack = append(stack, blockOther)
				}
			} else {
				sheet.addRule(prelude, strings.Join(contexts, " "))
				stack = append(stack, blockDecl)
			}
			prelude = nil
		case ";":
			if atKeyword(prelude) == "@import" {
				if target := importTarget(prelude); target != "" {
					sheet.Imports = append(sheet.Imports, target)
				}
			}
			prelude = nil
		case "}":
			if len(stack) > 0 {
				if stack[len(stack)-1] == blockGroup {
					contexts = contexts[:len(contexts)-1]
				}
				stack = stack[:len(stack)-1]
			}
			prelude = nil
		default:
			prelude = append(prelude, tok)
		}
	}

	return sheet
}

// addRule records the selectors and classes of one style rule.
func (s *Stylesheet) addRule(prelude []*scanner.Token, context string) {
	if len(prelude) == 0 {
		return
	}
	s.Rules++

	var current []*scanner.Token
	flush := func() {
		text := preludeText(current)
		if text != "" {
			s.Selectors = append(s.Selectors, Selector{Text: text, Context: context, Line: firstLine(current)})
		}
		current = nil
	}

	for i, tok := range prelude {
		if tok.Type == scanner.TokenChar && tok.Value == "," {
			flush()
			continue
		}
		current = append(current, tok)
		if tok.Type == scanner.TokenChar && tok.Value == "." && i+1 < len(prelude) && prelude[i+1].Type == scanner.TokenIdent {
			name := prelude[i+1].Value
			if _, seen := s.classes[name]; !seen {
				s.classes[name] = tok.Line
			}
		}
	}
	flush()
}

// Classes returns every class name that appears in a selector, mapped to
// the line of its first definition.
func (s *Stylesheet) Classes() map[string]int {
	return s.classes
}

// ClassNames returns the defined class names sorted.
func (s *Stylesheet) ClassNames() []string {
	names := make([]string, 0, len(s.classes))
	for c := range s.classes {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Duplicate is a selector defined by more than one rule in the same context.
type Duplicate struct {
	Selector string
	Context  string
	Lines    []int
}

// DuplicateSelectors returns selectors defined more than once, in order of
// first definition.
func (s *Stylesheet) DuplicateSelectors() []Duplicate {
	index := make(map[string]int)
	var all []Duplicate
	for _, sel := range s.Selectors {
		key := sel.Context + "\x00" + sel.Text
		if i, ok := index[key]; ok {
			all[i].Lines = append(all[i].Lines, sel.Line)
			continue
		}
		index[key] = len(all)
		all = append(all, Duplicate{Selector: sel.Text, Context: sel.Context, Lines: []int{sel.Line}})
	}

	var out []Duplicate
	for _, d := range all {
		if len(d.Lines) > 1 {
			out = append(out, d)
		}
	}
	return out
}

func atKeyword(prelude []*scanner.Token) string {
	for _, tok := range prelude {
		if tok.Type == scanner.TokenS {
			continue
		}
		if tok.Type == scanner.TokenAtKeyword {
			return strings.ToLower(tok.Value)
		}
		return ""
	}
	return ""
}

func preludeText(tokens []*scanner.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Type == scanner.TokenS {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(tok.Value)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func firstLine(tokens []*scanner.Token) int {
	for _, tok := range tokens {
		if tok.Type != scanner.TokenS {
			return tok.Line
		}
	}
	return 0
}

// importTarget extracts the URL of an @import statement.
func importTarget(prelude []*scanner.Token) string {
	for _, tok := range prelude {
		switch tok.Type {
		case scanner.TokenURI:
			v := strings.TrimSpace(tok.Value)
			v = strings.TrimPrefix(v, "url(")
			v = strings.TrimSuffix(v, ")")
			return unquote(strings.TrimSpace(v))
		case scanner.TokenString:
			return unquote(tok.Value)
		}
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
