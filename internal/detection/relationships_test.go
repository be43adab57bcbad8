package detection

import (
	"math"
	"testing"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

func detectAll(b *imaging.Binary) (BoxResult, RelationshipResult) {
	boxes := DetectBoxes(b, DefaultBoxOptions())
	segs := DetectSegments(b, DefaultSegmentOptions())
	rels := DetectRelationships(b, boxes.Boxes, segs, HeadClassifier{}, DefaultRelationshipOptions())
	return boxes, rels
}

func TestDetectRelationships_StackedBoxes(t *testing.T) {
	boxes, rels := detectAll(scenarioA())

	if len(boxes.Boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes.Boxes))
	}
	if len(rels.Edges) != 1 {
		t.Fatalf("expected 1 relationship, got %d: %+v", len(rels.Edges), rels.Edges)
	}

	e := rels.Edges[0]
	pair := [2]int{e.SourceBoxID, e.TargetBoxID}
	if pair != [2]int{0, 1} && pair != [2]int{1, 0} {
		t.Errorf("edge connects %v, want boxes 0 and 1", pair)
	}
	if math.Abs(math.Abs(e.AngleDegrees)-90) > 1 {
		t.Errorf("angle = %.1f, want about 90", e.AngleDegrees)
	}
	if e.SourcePoint.X < 58 || e.SourcePoint.X > 62 {
		t.Errorf("source point %v is not on the connector", e.SourcePoint)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		t.Errorf("confidence %.2f out of range", e.Confidence)
	}
}

func TestDetectRelationships_LineInsideBoxIgnored(t *testing.T) {
	b := imaging.NewBinary(200, 150)
	strokeRect(b, 20, 20, 120, 80)
	strokeLine(b, 20, 50, 139, 50) // divider
	strokeLine(b, 30, 55, 110, 95) // diagonal stroke inside the box
	strokeLine(b, 40, 30, 100, 30) // underline-like stroke

	boxes, rels := detectAll(b)
	if len(boxes.Boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(boxes.Boxes))
	}
	if len(rels.Edges) != 0 {
		t.Errorf("internal lines became relationships: %+v", rels.Edges)
	}
	if rels.Unresolved != 0 {
		t.Errorf("internal lines counted as unresolved: %d", rels.Unresolved)
	}
}

func TestDetectRelationships_DanglingConnector(t *testing.T) {
	b := scenarioA()
	// Leaves box 0 to the right and ends in empty space.
	strokeLine(b, 110, 40, 135, 40)

	boxes := []diagram.Box{
		diagram.NewBox(0, 10, 10, 100, 60, diagram.MethodContour),
		diagram.NewBox(1, 10, 120, 100, 60, diagram.MethodContour),
	}
	segs := []Segment{
		{Start: diagram.Point{X: 60, Y: 69}, End: diagram.Point{X: 60, Y: 120}, Votes: 50},
		{Start: diagram.Point{X: 110, Y: 40}, End: diagram.Point{X: 135, Y: 40}, Votes: 25},
	}
	rels := DetectRelationships(b, boxes, segs, nil, DefaultRelationshipOptions())
	if len(rels.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(rels.Edges))
	}
	if rels.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", rels.Unresolved)
	}
	if rels.Edges[0].Type != diagram.Association {
		t.Errorf("nil classifier should yield associations, got %s", rels.Edges[0].Type)
	}
}

func TestDetectRelationships_OneEdgePerPair(t *testing.T) {
	boxes := []diagram.Box{
		diagram.NewBox(0, 10, 10, 100, 60, diagram.MethodContour),
		diagram.NewBox(1, 10, 120, 100, 60, diagram.MethodContour),
	}
	segs := []Segment{
		{Start: diagram.Point{X: 40, Y: 69}, End: diagram.Point{X: 40, Y: 120}, Votes: 52},
		{Start: diagram.Point{X: 80, Y: 69}, End: diagram.Point{X: 80, Y: 120}, Votes: 51},
		{Start: diagram.Point{X: 60, Y: 120}, End: diagram.Point{X: 60, Y: 69}, Votes: 50},
	}
	rels := DetectRelationships(imaging.NewBinary(140, 200), boxes, segs, nil, DefaultRelationshipOptions())
	if len(rels.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(rels.Edges))
	}
	if rels.Edges[0].SourcePoint.X != 40 {
		t.Errorf("strongest segment should win, got %+v", rels.Edges[0])
	}
}

func TestDetectRelationships_ReversedClassification(t *testing.T) {
	boxes := []diagram.Box{
		diagram.NewBox(0, 10, 10, 100, 60, diagram.MethodContour),
		diagram.NewBox(1, 10, 120, 100, 60, diagram.MethodContour),
	}
	segs := []Segment{{Start: diagram.Point{X: 60, Y: 69}, End: diagram.Point{X: 60, Y: 120}}}
	flip := ClassifierFunc(func(*imaging.Binary, diagram.Point, diagram.Point) Classification {
		return Classification{Type: diagram.Inheritance, Confidence: 2, Reversed: true}
	})

	rels := DetectRelationships(imaging.NewBinary(140, 200), boxes, segs, flip, DefaultRelationshipOptions())
	if len(rels.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(rels.Edges))
	}
	e := rels.Edges[0]
	if e.SourceBoxID != 1 || e.TargetBoxID != 0 {
		t.Errorf("edge should be reversed to 1->0, got %d->%d", e.SourceBoxID, e.TargetBoxID)
	}
	if e.SourcePoint != (diagram.Point{X: 60, Y: 120}) {
		t.Errorf("points should follow the reversal, got %+v", e)
	}
	if e.AngleDegrees != -90 {
		t.Errorf("angle = %.1f, want -90", e.AngleDegrees)
	}
	if e.Confidence != 1 {
		t.Errorf("confidence should be clamped to 1, got %.2f", e.Confidence)
	}
}

// The classifier must not influence which edges exist.
func TestDetectRelationships_ClassifierIsStructurallyNeutral(t *testing.T) {
	b := scenarioA()
	boxes := DetectBoxes(b, DefaultBoxOptions()).Boxes
	segs := DetectSegments(b, DefaultSegmentOptions())

	plain := DetectRelationships(b, boxes, segs, PlainClassifier, DefaultRelationshipOptions())
	heads := DetectRelationships(b, boxes, segs, HeadClassifier{}, DefaultRelationshipOptions())

	if len(plain.Edges) != len(heads.Edges) || plain.Unresolved != heads.Unresolved {
		t.Fatalf("classifier changed structure: %+v vs %+v", plain, heads)
	}
	for i := range plain.Edges {
		a, h := plain.Edges[i], heads.Edges[i]
		pa := [2]int{min(a.SourceBoxID, a.TargetBoxID), max(a.SourceBoxID, a.TargetBoxID)}
		ph := [2]int{min(h.SourceBoxID, h.TargetBoxID), max(h.SourceBoxID, h.TargetBoxID)}
		if pa != ph {
			t.Errorf("edge %d pairs differ: %v vs %v", i, pa, ph)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	boxes := []diagram.Box{
		diagram.NewBox(0, 0, 0, 50, 50, diagram.MethodContour),
		diagram.NewBox(1, 69, 0, 50, 50, diagram.MethodContour),
	}
	tests := []struct {
		name string
		p    diagram.Point
		want int
		ok   bool
	}{
		{"inside first", diagram.Point{X: 10, Y: 10}, 0, true},
		{"inside second", diagram.Point{X: 100, Y: 10}, 1, true},
		{"midway tie goes to lower id", diagram.Point{X: 59, Y: 10}, 0, true},
		{"nearer second", diagram.Point{X: 66, Y: 10}, 1, true},
		{"too far", diagram.Point{X: 60, Y: 200}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveEndpoint(boxes, tt.p, 12)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("resolveEndpoint(%v) = %d, %v; want %d, %v", tt.p, got, ok, tt.want, tt.ok)
			}
		})
	}
}
