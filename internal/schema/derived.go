package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
)

// Position is a class box rectangle.
type Position struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Class is one entry of the derived schema. Methods and Attributes are
// always empty here; text extraction fills them in later.
type Class struct {
	ID         int      `json:"id" yaml:"id"`
	Position   Position `json:"position" yaml:"position"`
	Methods    []string `json:"methods" yaml:"methods"`
	Attributes []string `json:"attributes" yaml:"attributes"`
}

// Relation is a relationship between two classes, by name.
type Relation struct {
	Source string               `json:"source" yaml:"source"`
	Target string               `json:"target" yaml:"target"`
	Type   diagram.RelationType `json:"type" yaml:"type"`
}

// Schema is the derived class schema for one diagram.
type Schema struct {
	Diagram       string           `json:"diagram" yaml:"diagram"`
	Classes       map[string]Class `json:"classes" yaml:"classes"`
	Relationships []Relation       `json:"relationships" yaml:"relationships"`
}

// DefaultClassName is the name given to a box without an assigned name.
func DefaultClassName(id int) string {
	return fmt.Sprintf("Class%d", id)
}

// Derive builds the class schema for r.
//
// Assigned names are placed first: when two boxes share a name the lower id
// keeps it. Every other box gets Class<id>, or Class<id>_<n> with the
// smallest n >= 2 that is still free, so no class is ever overwritten.
func (r *Record) Derive() *Schema {
	s := &Schema{
		Diagram:       r.DiagramName,
		Classes:       make(map[string]Class, len(r.Boxes)),
		Relationships: []Relation{},
	}

	boxes := append([]diagram.Box(nil), r.Boxes...)
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].ID < boxes[j].ID })

	names := make(map[int]string, len(boxes))
	taken := make(map[string]bool, len(boxes))
	for _, b := range boxes {
		name := r.BoxNames[b.ID]
		if name == "" || taken[name] {
			continue
		}
		names[b.ID] = name
		taken[name] = true
	}
	for _, b := range boxes {
		if _, ok := names[b.ID]; ok {
			continue
		}
		name := DefaultClassName(b.ID)
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", DefaultClassName(b.ID), n)
		}
		names[b.ID] = name
		taken[name] = true
	}

	for _, b := range boxes {
		s.Classes[names[b.ID]] = Class{
			ID:         b.ID,
			Position:   Position{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height},
			Methods:    []string{},
			Attributes: []string{},
		}
	}

	for _, e := range r.Relationships {
		s.Relationships = append(s.Relationships, Relation{
			Source: nameFor(names, e.SourceBoxID),
			Target: nameFor(names, e.TargetBoxID),
			Type:   e.Type,
		})
	}
	return s
}

func nameFor(names map[int]string, id int) string {
	if n, ok := names[id]; ok {
		return n
	}
	return DefaultClassName(id)
}

// YAML encodes the schema as YAML. Class keys are emitted in sorted order.
func (s *Schema) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// JSON encodes the schema as indented JSON.
func (s *Schema) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ParseSchema decodes a YAML (or JSON) schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &s, nil
}
