// Package quiz loads quiz content definitions, validates them and
// generates the JavaScript data modules the quiz pages load.
package quiz

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition is wrapped by every validation failure.
var ErrInvalidDefinition = errors.New("invalid quiz definition")

// Kind selects the scoring dimensions of a quiz.
type Kind string

const (
	KindMBTI     Kind = "mbti"
	KindTetoEgen Kind = "teto-egen"
	KindLoveDNA  Kind = "love-dna"
	KindCustom   Kind = "custom"
)

// kindDimensions are the score keys each built-in kind accepts.
var kindDimensions = map[Kind][]string{
	KindMBTI:     {"E", "I", "S", "N", "T", "F", "J", "P"},
	KindTetoEgen: {"teto", "egen"},
	KindLoveDNA:  {"T", "W", "C", "A", "L"},
}

// Definition is one quiz: its questions and the results they score towards.
type Definition struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Kind        Kind       `yaml:"kind" json:"kind"`
	Dimensions  []string   `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Questions   []Question `yaml:"questions" json:"questions"`
	Results     []Result   `yaml:"results" json:"results"`
}

type Question struct {
	Text      string   `yaml:"text" json:"text"`
	Dimension string   `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Options   []Option `yaml:"options" json:"options"`
}

type Option struct {
	Text   string         `yaml:"text" json:"text"`
	Scores map[string]int `yaml:"scores" json:"scores"`
}

type Result struct {
	Type          string   `yaml:"type" json:"type"`
	Title         string   `yaml:"title" json:"title"`
	Subtitle      string   `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Emoji         string   `yaml:"emoji,omitempty" json:"emoji,omitempty"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	Traits        []string `yaml:"traits,omitempty" json:"traits,omitempty"`
	Compatibility string   `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`
}

// DimensionsOf returns the score keys valid for def.
func (d *Definition) DimensionsOf() []string {
	if dims, ok := kindDimensions[d.Kind]; ok {
		return dims
	}
	return d.Dimensions
}

// OutputName is the file name of the generated data module.
func (d *Definition) OutputName() string {
	return d.ID + "-data.js"
}

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("quiz.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile("quiz.schema.json")
	})
	return schema, schemaErr
}

// Load reads and validates a YAML definition.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quiz %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, path, err)
	}
	if err := Validate(&def); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &def, nil
}

// LoadDir loads every *.yml and *.yaml file in dir, sorted by file name.
// It returns the valid definitions together with the joined errors of
// the invalid ones.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading quiz dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yml" || ext == ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		defs []*Definition
		errs []error
		ids  = make(map[string]string)
	)
	for _, name := range names {
		def, err := Load(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := ids[def.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: id %q defined in both %s and %s", ErrInvalidDefinition, def.ID, prev, name))
			continue
		}
		ids[def.ID] = name
		defs = append(defs, def)
	}
	return defs, errors.Join(errs...)
}

// Validate checks def against the definition schema and then the rules
// the schema cannot express.
func Validate(def *Definition) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding definition: %w", err)
	}
	if err := s.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	var errs []error
	dims := def.DimensionsOf()
	if len(dims) == 0 {
		errs = append(errs, fmt.Errorf("kind %q needs a dimensions list", def.Kind))
	}
	known := make(map[string]bool, len(dims))
	for _, d := range dims {
		known[d] = true
	}

	for qi, q := range def.Questions {
		for oi, o := range q.Options {
			for _, key := range sortedKeys(o.Scores) {
				if !known[key] {
					errs = append(errs, fmt.Errorf("questions[%d].options[%d]: unknown score key %q", qi, oi, key))
				}
			}
		}
	}

	types := make(map[string]bool, len(def.Results))
	for i, r := range def.Results {
		if types[r.Type] {
			errs = append(errs, fmt.Errorf("results[%d]: duplicate type %q", i, r.Type))
		}
		types[r.Type] = true
		if def.Kind == KindMBTI && !validMBTIType(r.Type) {
			errs = append(errs, fmt.Errorf("results[%d]: %q is not an MBTI type", i, r.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}

var mbtiAxes = [4]string{"EI", "SN", "TF", "JP"}

func validMBTIType(t string) bool {
	if len(t) != 4 {
		return false
	}
	for i, axis := range mbtiAxes {
		if !strings.ContainsRune(axis, rune(t[i])) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
