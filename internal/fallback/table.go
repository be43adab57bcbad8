// Package fallback substitutes reference layouts for diagrams that geometric
// detection cannot read reliably.
//
// Reference data lives in an immutable Table built once per batch and passed
// explicitly to whoever needs it. There is no package-level mutable state;
// Default returns a fresh copy of the built-in table on every call.
package fallback

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
)

//go:embed default.yaml
var defaultYAML []byte

// BoxSpec is one reference box. Name is optional.
type BoxSpec struct {
	X      int    `yaml:"x" json:"x"`
	Y      int    `yaml:"y" json:"y"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
}

// RelationSpec is one reference relationship between boxes, by index.
type RelationSpec struct {
	Source int                  `yaml:"source" json:"source"`
	Target int                  `yaml:"target" json:"target"`
	Type   diagram.RelationType `yaml:"type,omitempty" json:"type,omitempty"`
}

// NamedRelationSpec is a documented relationship between two classes, by
// class name. It applies wherever both classes are named.
type NamedRelationSpec struct {
	Source string               `yaml:"source" json:"source"`
	Target string               `yaml:"target" json:"target"`
	Type   diagram.RelationType `yaml:"type,omitempty" json:"type,omitempty"`
}

// Entry is the reference layout for one diagram key.
//
// Irregular entries replace detection output unconditionally; the others
// only when detection reports low confidence. An entry without boxes never
// replaces anything and only contributes its documented relationships.
type Entry struct {
	Irregular     bool                `yaml:"irregular" json:"irregular"`
	Boxes         []BoxSpec           `yaml:"boxes" json:"boxes"`
	Relationships []RelationSpec      `yaml:"relationships" json:"relationships"`
	Documented    []NamedRelationSpec `yaml:"documented_relationships,omitempty" json:"documented_relationships,omitempty"`
}

func (e Entry) clone() Entry {
	e.Boxes = append([]BoxSpec(nil), e.Boxes...)
	e.Relationships = append([]RelationSpec(nil), e.Relationships...)
	e.Documented = append([]NamedRelationSpec(nil), e.Documented...)
	return e
}

func validType(t diagram.RelationType) bool {
	switch t {
	case "", diagram.Association, diagram.DirectedAssociation, diagram.Inheritance,
		diagram.Aggregation, diagram.Composition:
		return true
	}
	return false
}

func (e Entry) validate() error {
	for i, b := range e.Boxes {
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("box %d: non-positive size %dx%d", i, b.Width, b.Height)
		}
	}
	for i, r := range e.Relationships {
		if r.Source < 0 || r.Source >= len(e.Boxes) || r.Target < 0 || r.Target >= len(e.Boxes) {
			return fmt.Errorf("relationship %d: box index out of range (%d -> %d, %d boxes)", i, r.Source, r.Target, len(e.Boxes))
		}
		if r.Source == r.Target {
			return fmt.Errorf("relationship %d: self reference on box %d", i, r.Source)
		}
		if !validType(r.Type) {
			return fmt.Errorf("relationship %d: unknown type %q", i, r.Type)
		}
	}
	for i, r := range e.Documented {
		if r.Source == "" || r.Target == "" {
			return fmt.Errorf("documented relationship %d: missing class name", i)
		}
		if r.Source == r.Target {
			return fmt.Errorf("documented relationship %d: self reference on %s", i, r.Source)
		}
		if !validType(r.Type) {
			return fmt.Errorf("documented relationship %d: unknown type %q", i, r.Type)
		}
	}
	return nil
}

// document is the on-disk YAML shape.
type document struct {
	Diagrams map[string]Entry `yaml:"diagrams"`
}

// Table is an immutable set of reference layouts keyed by diagram key.
// A nil *Table is valid and empty.
type Table struct {
	entries map[string]Entry
}

// NewTable validates entries and returns a table holding copies of them.
// Keys are normalized with Key.
func NewTable(entries map[string]Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for key, e := range entries {
		k := Key(key)
		if k == "" {
			return nil, fmt.Errorf("fallback entry with empty key")
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("fallback entry %q: %w", key, err)
		}
		if _, dup := t.entries[k]; dup {
			return nil, fmt.Errorf("fallback entry %q: duplicate key after normalization", key)
		}
		t.entries[k] = e.clone()
	}
	return t, nil
}

// Parse decodes a YAML reference document.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fallback table: %w", err)
	}
	return NewTable(doc.Diagrams)
}

// LoadFile reads a YAML reference document from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback table: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in table for the known irregular diagrams and
// the documented relationships of the class reference diagrams.
func Default() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		// The embedded document is covered by tests.
		panic(fmt.Sprintf("fallback: invalid built-in table: %v", err))
	}
	return t
}

// Key normalizes a diagram name or file path into a lookup key: directory and
// extension are dropped and the result is lower-cased.
func Key(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

// Lookup returns a copy of the entry registered for key.
func (t *Table) Lookup(key string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[Key(key)]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Irregular reports whether key is registered as irregular.
func (t *Table) Irregular(key string) bool {
	e, ok := t.Lookup(key)
	return ok && e.Irregular
}

// Keys returns the registered keys in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Overlay returns a new table containing t's entries with o's entries
// replacing any that share a key. Neither input is modified.
func (t *Table) Overlay(o *Table) *Table {
	out := &Table{entries: make(map[string]Entry, t.Len()+o.Len())}
	for _, src := range []*Table{t, o} {
		if src == nil {
			continue
		}
		for k, e := range src.entries {
			out.entries[k] = e.clone()
		}
	}
	return out
}

// WithIrregular returns a new table in which the given keys are marked
// irregular. Keys without an entry are ignored.
func (t *Table) WithIrregular(keys ...string) *Table {
	out := t.Overlay(nil)
	for _, key := range keys {
		k := Key(key)
		if e, ok := out.entries[k]; ok {
			e.Irregular = true
			out.entries[k] = e
		}
	}
	return out
}
