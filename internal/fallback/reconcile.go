package fallback

import (
	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
)

// SourceName labels structures produced from reference data.
const SourceName = "fallback"

// Reason explains why a fallback entry was applied.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonLowConfidence Reason = "low_confidence"
	ReasonIrregular     Reason = "irregular"
)

// Reconcile decides whether the reference entry for detected.DiagramName
// overrides detection and, if so, returns the replacement structure.
//
// An entry applies when the diagram is registered irregular or when
// lowConfidence is set. Its boxes and relationships replace the detected ones
// entirely; dividers are dropped along with the replaced boxes.
// Diagnostics and title carry over. When no entry applies, detected is
// returned unchanged with ReasonNone.
func Reconcile(detected *diagram.Structure, table *Table, lowConfidence bool) (*diagram.Structure, Reason) {
	entry, ok := table.Lookup(detected.DiagramName)
	if !ok || len(entry.Boxes) == 0 {
		return detected, ReasonNone
	}

	reason := ReasonNone
	switch {
	case entry.Irregular:
		reason = ReasonIrregular
	case lowConfidence:
		reason = ReasonLowConfidence
	default:
		return detected, ReasonNone
	}

	out := Apply(entry, detected.DiagramName)
	out.Title = detected.Title
	out.Precedence = detected.Precedence
	out.Diagnostics = detected.Diagnostics
	return out, reason
}

// Apply builds a structure from a reference entry. Boxes take their IDs from
// their position in the entry and are marked as grid detections.
func Apply(entry Entry, diagramName string) *diagram.Structure {
	s := &diagram.Structure{
		DiagramName:   diagramName,
		Source:        SourceName,
		Boxes:         make([]diagram.Box, len(entry.Boxes)),
		Dividers:      []diagram.DividerLine{},
		Relationships: make([]diagram.RelationshipEdge, 0, len(entry.Relationships)),
	}
	for i, b := range entry.Boxes {
		s.Boxes[i] = diagram.NewBox(i, b.X, b.Y, b.Width, b.Height, diagram.MethodGrid)
		if b.Name != "" {
			s.Names = append(s.Names, diagram.NamedClass{BoxID: i, Name: b.Name})
		}
	}
	for _, r := range entry.Relationships {
		s.Relationships = append(s.Relationships, edge(s.Boxes[r.Source], s.Boxes[r.Target], r.Type))
	}
	return s
}

// Connect adds the entry's documented relationships to s. A relationship
// applies only when both of its classes are named in s, and a pair of boxes
// that is already connected keeps its existing edge. It returns the number
// of edges added.
func Connect(s *diagram.Structure, entry Entry) int {
	if len(entry.Documented) == 0 {
		return 0
	}
	ids := make(map[string]int, len(s.Names))
	for _, n := range s.Names {
		if _, dup := ids[n.Name]; !dup {
			ids[n.Name] = n.BoxID
		}
	}
	linked := make(map[[2]int]bool, len(s.Relationships))
	for _, e := range s.Relationships {
		linked[pairKey(e.SourceBoxID, e.TargetBoxID)] = true
	}

	added := 0
	for _, r := range entry.Documented {
		src, okSrc := ids[r.Source]
		dst, okDst := ids[r.Target]
		if !okSrc || !okDst || src == dst || linked[pairKey(src, dst)] {
			continue
		}
		sb, okSrc := s.Box(src)
		db, okDst := s.Box(dst)
		if !okSrc || !okDst {
			continue
		}
		s.Relationships = append(s.Relationships, edge(sb, db, r.Type))
		linked[pairKey(src, dst)] = true
		added++
	}
	return added
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// edge routes a reference relationship between two boxes. An empty type is an
// association.
func edge(src, dst diagram.Box, typ diagram.RelationType) diagram.RelationshipEdge {
	from, to := Route(src, dst)
	if typ == "" {
		typ = diagram.Association
	}
	return diagram.RelationshipEdge{
		SourceBoxID:  src.ID,
		TargetBoxID:  dst.ID,
		SourcePoint:  from,
		TargetPoint:  to,
		AngleDegrees: diagram.SegmentAngle(from, to),
		Type:         typ,
		Confidence:   1,
	}
}

// Route picks connection points on the outlines of two boxes: bottom-center
// to top-center when src is above dst, top-center to bottom-center when it
// is below, and facing side centers when both share a top edge.
func Route(src, dst diagram.Box) (diagram.Point, diagram.Point) {
	switch {
	case src.Y < dst.Y:
		return diagram.Point{X: src.CenterX, Y: src.Y + src.Height},
			diagram.Point{X: dst.CenterX, Y: dst.Y}
	case src.Y > dst.Y:
		return diagram.Point{X: src.CenterX, Y: src.Y},
			diagram.Point{X: dst.CenterX, Y: dst.Y + dst.Height}
	case src.X < dst.X:
		return diagram.Point{X: src.X + src.Width, Y: src.CenterY},
			diagram.Point{X: dst.X, Y: dst.CenterY}
	default:
		return diagram.Point{X: src.X, Y: src.CenterY},
			diagram.Point{X: dst.X + dst.Width, Y: dst.CenterY}
	}
}
