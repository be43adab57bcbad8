// Package schema defines the serialized forms of a diagram structure: the
// persisted per-diagram record and the derived class schema consumed by
// downstream ontology tooling.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
)

// Relationship is the persisted form of a relationship edge.
type Relationship struct {
	SourceBoxID  int                  `json:"source_box_id"`
	TargetBoxID  int                  `json:"target_box_id"`
	SourcePoint  diagram.Point        `json:"source_point"`
	TargetPoint  diagram.Point        `json:"target_point"`
	AngleDegrees float64              `json:"angle"`
	Type         diagram.RelationType `json:"type"`
	Confidence   float64              `json:"confidence"`
}

// Record is the persisted output for one diagram.
type Record struct {
	DiagramName   string                `json:"diagram_name"`
	Title         string                `json:"title,omitempty"`
	Boxes         []diagram.Box         `json:"boxes"`
	Dividers      []diagram.DividerLine `json:"horizontal_lines"`
	Relationships []Relationship        `json:"relationships"`
	BoxNames      map[int]string        `json:"box_names"`
	Diagnostics   diagram.Diagnostics   `json:"diagnostics"`
}

// FromStructure builds the persisted record for s. Slices are never nil so
// empty collections encode as [] rather than null.
func FromStructure(s *diagram.Structure) *Record {
	r := &Record{
		Boxes:         []diagram.Box{},
		Dividers:      []diagram.DividerLine{},
		Relationships: []Relationship{},
		BoxNames:      map[int]string{},
	}
	if s == nil {
		return r
	}

	r.DiagramName = s.DiagramName
	r.Title = s.Title
	r.Diagnostics = s.Diagnostics
	r.Boxes = append(r.Boxes, s.Boxes...)
	r.Dividers = append(r.Dividers, s.Dividers...)
	for _, e := range s.Relationships {
		r.Relationships = append(r.Relationships, Relationship{
			SourceBoxID:  e.SourceBoxID,
			TargetBoxID:  e.TargetBoxID,
			SourcePoint:  e.SourcePoint,
			TargetPoint:  e.TargetPoint,
			AngleDegrees: e.AngleDegrees,
			Type:         e.Type,
			Confidence:   e.Confidence,
		})
	}
	for _, n := range s.Names {
		if _, ok := r.BoxNames[n.BoxID]; !ok {
			r.BoxNames[n.BoxID] = n.Name
		}
	}
	return r
}

// Structure converts the record back into a normalized structure.
func (r *Record) Structure() *diagram.Structure {
	s := &diagram.Structure{
		DiagramName: r.DiagramName,
		Title:       r.Title,
		Boxes:       append([]diagram.Box(nil), r.Boxes...),
		Dividers:    append([]diagram.DividerLine(nil), r.Dividers...),
		Diagnostics: r.Diagnostics,
	}
	for _, e := range r.Relationships {
		s.Relationships = append(s.Relationships, diagram.RelationshipEdge{
			SourceBoxID:  e.SourceBoxID,
			TargetBoxID:  e.TargetBoxID,
			SourcePoint:  e.SourcePoint,
			TargetPoint:  e.TargetPoint,
			AngleDegrees: e.AngleDegrees,
			Type:         e.Type,
			Confidence:   e.Confidence,
		})
	}
	for id, name := range r.BoxNames {
		s.Names = append(s.Names, diagram.NamedClass{BoxID: id, Name: name})
	}
	s.Normalize()
	return s
}

// Validate checks the record's referential invariants.
func (r *Record) Validate() error {
	if err := r.Structure().Validate(); err != nil {
		return fmt.Errorf("record %q: %w", r.DiagramName, err)
	}
	return nil
}

// WriteJSON encodes the record as indented JSON.
func (r *Record) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadRecord decodes a JSON record.
func ReadRecord(rd io.Reader) (*Record, error) {
	var r Record
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if r.BoxNames == nil {
		r.BoxNames = map[int]string{}
	}
	return &r, nil
}

// LoadRecord reads a JSON record from disk.
func LoadRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecord(f)
}
