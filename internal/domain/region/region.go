// Package region holds the region to country-set table used by the continent
// filter. The same table is served to the dashboard so both sides agree.
package region

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// MatchAll is the unconstrained engine query.
const MatchAll = "*:*"

// Region is one named country set. A region without countries matches everything.
type Region struct {
	Name      string   `yaml:"name" json:"value"`
	Label     string   `yaml:"label" json:"label"`
	Countries []string `yaml:"countries,omitempty" json:"countries,omitempty"`
}

// Table maps region names to country disjunctions over Field.
type Table struct {
	Field   string   `yaml:"field" json:"field"`
	Default string   `yaml:"default" json:"default"`
	Regions []Region `yaml:"regions" json:"regions"`

	byName map[string]int
}

// Load reads a table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read region table %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML region table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse region table: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) index() error {
	if t.Field == "" {
		return fmt.Errorf("region table: field is required")
	}
	t.byName = make(map[string]int, len(t.Regions))
	for i, r := range t.Regions {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if name == "" {
			return fmt.Errorf("region table: entry %d has no name", i)
		}
		if _, dup := t.byName[name]; dup {
			return fmt.Errorf("region table: duplicate region %q", name)
		}
		t.Regions[i].Name = name
		t.byName[name] = i
	}
	t.Default = strings.ToLower(strings.TrimSpace(t.Default))
	if _, ok := t.byName[t.Default]; !ok {
		return fmt.Errorf("region table: default region %q is not defined", t.Default)
	}
	return nil
}

// Lookup returns the region called name (case-insensitive).
func (t *Table) Lookup(name string) (Region, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Region{}, false
	}
	return t.Regions[i], true
}

// Query renders the engine filter for name. Unknown regions fall back to the
// default region.
func (t *Table) Query(name string) string {
	r, ok := t.Lookup(name)
	if !ok {
		r = t.Regions[t.byName[t.Default]]
	}
	if len(r.Countries) == 0 {
		return MatchAll
	}
	terms := make([]string, len(r.Countries))
	for i, c := range r.Countries {
		terms[i] = term(c)
	}
	return t.Field + ":(" + strings.Join(terms, " OR ") + ")"
}

// term quotes anything that is not a single plain word.
func term(country string) string {
	for _, r := range country {
		if !unicode.IsLetter(r) {
			return `"` + country + `"`
		}
	}
	return country
}
