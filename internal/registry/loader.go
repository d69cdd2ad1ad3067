package registry

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

//go:embed sources.yaml
var defaultSources []byte

var cellPattern = regexp.MustCompile(`^[A-Z]{1,3}[1-9][0-9]*$`)

// File is the on-disk registry definition
type File struct {
	Sources []SourceSpec `yaml:"sources"`
}

// SourceSpec declares one source. Params are adapter specific.
type SourceSpec struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Kind     Kind              `yaml:"kind"`
	Title    string            `yaml:"title"`
	MaxItems int               `yaml:"max_items"`
	Totals   []CellRef         `yaml:"totals"`
	Params   map[string]string `yaml:"params"`
	Disabled bool              `yaml:"disabled"`
}

// Param returns a params value or def when unset
func (s SourceSpec) Param(key, def string) string {
	if v, ok := s.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// AdapterFactory builds the adapter for a declared source
type AdapterFactory func(spec SourceSpec) (Adapter, error)

// Factories maps each kind to its adapter constructor.
// synthetic-constant is built in and may be omitted.
type Factories map[Kind]AdapterFactory

// ValidationError 정의 파일 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a registry definition from path, or the embedded default
// when path is empty.
func Load(path string, factories Factories) (*Registry, error) {
	data := defaultSources
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sources file: %w", err)
		}
	}
	return Parse(data, factories)
}

// Parse decodes and validates a registry definition.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func Parse(data []byte, factories Factories) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	if err := Validate(&file); err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(file.Sources))
	titles := make(holdings.Titles)

	for _, spec := range file.Sources {
		if spec.Disabled {
			continue
		}

		factory, ok := factories[spec.Kind]
		if !ok && spec.Kind == KindSynthetic {
			factory = newSynthetic
		}
		if factory == nil {
			return nil, fmt.Errorf("source %q: no adapter for kind %s", spec.ID, spec.Kind)
		}

		adapter, err := factory(spec)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.ID, err)
		}

		sources = append(sources, Source{
			ID:        spec.ID,
			Name:      spec.Name,
			Kind:      spec.Kind,
			Adapter:   adapter,
			TotalRefs: spec.Totals,
			MaxItems:  spec.MaxItems,
		})
		if spec.Title != "" {
			titles[spec.ID] = spec.Title
		}
	}

	reg, err := New(sources, titles)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	reg.hash = hex.EncodeToString(sum[:])

	return reg, nil
}

// Validate checks the definition before any adapter is built
func Validate(file *File) error {
	if len(file.Sources) == 0 {
		return ValidationError{"sources", "at least one source required"}
	}

	seen := make(map[string]bool, len(file.Sources))
	for i, spec := range file.Sources {
		field := fmt.Sprintf("sources[%d]", i)

		if spec.ID == "" {
			return ValidationError{field + ".id", "required"}
		}
		if seen[spec.ID] {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate id %q", spec.ID)}
		}
		seen[spec.ID] = true

		if !spec.Kind.Valid() {
			return ValidationError{field + ".kind", fmt.Sprintf("unknown kind %q", spec.Kind)}
		}
		if spec.MaxItems < 0 {
			return ValidationError{field + ".max_items", "must be >= 0"}
		}
		for j, ref := range spec.Totals {
			if !cellPattern.MatchString(ref.Cell) {
				return ValidationError{fmt.Sprintf("%s.totals[%d].cell", field, j), fmt.Sprintf("invalid cell %q", ref.Cell)}
			}
		}
		if spec.Kind == KindSynthetic && spec.Params["code"] == "" {
			return ValidationError{field + ".params.code", "required for synthetic sources"}
		}
	}

	return nil
}

func newSynthetic(spec SourceSpec) (Adapter, error) {
	return Synthetic{Code: spec.Params["code"], Name: spec.Params["name"]}, nil
}
