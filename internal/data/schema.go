package data

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// ErrSchema is returned when a file does not satisfy its dataset contract.
var ErrSchema = errors.New("schema violation")

// Dataset is the column contract for one family of artifact files.
type Dataset struct {
	Name     string              `yaml:"-"`
	Graphs   []int               `yaml:"graphs"`
	Files    []string            `yaml:"files"`
	Required []string            `yaml:"required"`
	Aliases  map[string][]string `yaml:"aliases"`

	// merged is Aliases layered over the schema-wide aliases.
	merged map[string][]string
	order  []string
}

// Schema maps artifact files to their dataset contracts.
type Schema struct {
	Aliases  map[string][]string `yaml:"aliases"`
	Datasets map[string]*Dataset `yaml:"datasets"`

	byFile map[string]*Dataset
}

var (
	defaultSchema    *Schema
	defaultSchemaErr error
	defaultOnce      sync.Once
)

// DefaultSchema returns the embedded schema, parsed once.
func DefaultSchema() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultSchema, defaultSchemaErr = ParseSchema(schemaYAML)
	})
	return defaultSchema, defaultSchemaErr
}

// GraphFile returns the file name of a numbered graph export.
func GraphFile(id int) string {
	return fmt.Sprintf("qry_graph_data_%02d.csv", id)
}

// ParseSchema parses and validates a YAML schema document.
func ParseSchema(b []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(s.Datasets) == 0 {
		return nil, errors.New("schema declares no datasets")
	}

	s.byFile = make(map[string]*Dataset)
	names := make([]string, 0, len(s.Datasets))
	for name := range s.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ds := s.Datasets[name]
		if ds == nil {
			return nil, fmt.Errorf("dataset %s: empty definition", name)
		}
		ds.Name = name
		if len(ds.Graphs) == 0 && len(ds.Files) == 0 {
			return nil, fmt.Errorf("dataset %s: no graphs or files", name)
		}

		files := append([]string(nil), ds.Files...)
		for _, id := range ds.Graphs {
			files = append(files, GraphFile(id))
		}
		for _, f := range files {
			if prev, ok := s.byFile[f]; ok {
				return nil, fmt.Errorf("dataset %s: file %s already claimed by %s", name, f, prev.Name)
			}
			s.byFile[f] = ds
		}

		ds.merged = make(map[string][]string, len(s.Aliases)+len(ds.Aliases))
		for canon, cands := range s.Aliases {
			ds.merged[canon] = cands
		}
		for canon, cands := range ds.Aliases {
			ds.merged[canon] = cands
		}
		for canon := range ds.merged {
			ds.order = append(ds.order, canon)
		}
		sort.Strings(ds.order)
	}

	return &s, nil
}

// For returns the dataset governing a file, or nil when none does.
func (s *Schema) For(file string) *Dataset {
	if s == nil {
		return nil
	}
	return s.byFile[file]
}

// Files returns every file named by the schema, sorted.
func (s *Schema) Files() []string {
	out := make([]string, 0, len(s.byFile))
	for f := range s.byFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Resolve renames header cells to their canonical names in place.
func (d *Dataset) Resolve(header []string) []string {
	if d == nil {
		return header
	}
	for _, canon := range d.order {
		if indexOf(header, canon) >= 0 {
			continue
		}
		for _, cand := range append([]string{canon}, d.merged[canon]...) {
			if i := indexFold(header, cand, d.merged); i >= 0 {
				header[i] = canon
				break
			}
		}
	}
	return header
}

// Check reports the required columns a header lacks, wrapped in ErrSchema.
func (d *Dataset) Check(header []string) error {
	if d == nil {
		return nil
	}
	var missing []string
	for _, col := range d.Required {
		if indexOf(header, col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: dataset %s missing columns %s", ErrSchema, d.Name, strings.Join(missing, ", "))
	}
	return nil
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}

// indexFold finds a header matching cand case-insensitively that is not
// itself the exact name of another canonical column.
func indexFold(header []string, cand string, canon map[string][]string) int {
	for i, h := range header {
		if !strings.EqualFold(h, cand) {
			continue
		}
		if _, taken := canon[h]; taken && h != cand {
			continue
		}
		return i
	}
	return -1
}
