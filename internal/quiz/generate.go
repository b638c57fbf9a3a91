package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"
)

var moduleTemplate = template.Must(template.New("module").Parse(`// Code generated by siteaudit quiz generate. DO NOT EDIT.
// {{.Title}}: {{.Questions}} questions, {{.Results}} results.

const {{.Var}} = {{.Payload}};

window.{{.Var}} = {{.Var}};
export default {{.Var}};
`))

// payload is the JSON shape the quiz pages consume. Results are keyed by
// type for direct lookup.
type payload struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Kind        Kind              `json:"kind"`
	Dimensions  []string          `json:"dimensions"`
	Questions   []Question        `json:"questions"`
	Results     map[string]Result `json:"results"`
}

// VarName is the JavaScript identifier of a quiz's data object:
// "teto-egen" becomes "tetoEgenData".
func VarName(id string) string {
	var b strings.Builder
	upper := false
	for _, r := range id {
		if r == '-' || r == '_' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	b.WriteString("Data")
	return b.String()
}

// Generate writes def as a JavaScript module to w.
func Generate(def *Definition, w io.Writer) error {
	p := payload{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		Kind:        def.Kind,
		Dimensions:  def.DimensionsOf(),
		Questions:   def.Questions,
		Results:     make(map[string]Result, len(def.Results)),
	}
	for _, r := range def.Results {
		p.Results[r.Type] = r
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding quiz %s: %w", def.ID, err)
	}

	return moduleTemplate.Execute(w, map[string]any{
		"Title":     headerTitle(def.Title),
		"Questions": len(def.Questions),
		"Results":   len(def.Results),
		"Var":       VarName(def.ID),
		"Payload":   strings.TrimRight(buf.String(), "\n"),
	})
}

// Counts reports how many questions and results a generated module
// carries.
func Counts(module []byte) (questions, results int, err error) {
	decl := bytes.Index(module, []byte("\nconst "))
	if decl < 0 {
		return 0, 0, errors.New("no data declaration found")
	}
	start := bytes.IndexByte(module[decl:], '{')
	end := bytes.LastIndex(module, []byte("};"))
	if start < 0 || decl+start > end {
		return 0, 0, errors.New("no data object found")
	}
	var p struct {
		Questions []json.RawMessage          `json:"questions"`
		Results   map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(module[decl+start:end+1], &p); err != nil {
		return 0, 0, fmt.Errorf("decoding data object: %w", err)
	}
	return len(p.Questions), len(p.Results), nil
}

// headerTitle folds the title onto one line for the // comment in the
// module header. unicode.IsSpace covers the JavaScript line terminators
// U+2028 and U+2029.
func headerTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Render returns the generated module for def.
func Render(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	if err := Generate(def, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateAll loads every definition in dir and writes <id>-data.js files
// into outDir. Nothing is written unless every definition is valid.
func GenerateAll(dir, outDir string) ([]string, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no quiz definitions in %s", dir)
	}

	rendered := make([][]byte, len(defs))
	for i, def := range defs {
		if rendered[i], err = Render(def); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}
	var (
		written []string
		errs    []error
	)
	for i, def := range defs {
		path := filepath.Join(outDir, def.OutputName())
		if err := os.WriteFile(path, rendered[i], 0644); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", path, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}
