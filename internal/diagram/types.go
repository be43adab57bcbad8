package diagram

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sort"
)

// DetectionMethod records which extraction path produced a Box.
type DetectionMethod string

const (
	// MethodContour marks boxes found by geometric detection on the raster.
	MethodContour DetectionMethod = "contour"

	// MethodGrid marks boxes substituted from fallback reference data.
	MethodGrid DetectionMethod = "grid"

	// MethodImagemap marks boxes transcribed from markup regions. These are
	// exact and exempt from area filtering.
	MethodImagemap DetectionMethod = "imagemap"
)

// RelationType is the best-effort classification of a relationship edge.
type RelationType string

const (
	Association         RelationType = "association"
	DirectedAssociation RelationType = "directed_association"
	Inheritance         RelationType = "inheritance"
	Aggregation         RelationType = "aggregation"
	Composition         RelationType = "composition"
)

// Point is a pixel coordinate. It serializes as a two-element [x, y] array.
type Point struct {
	X int
	Y int
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a [x, y] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]int
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// MarshalYAML encodes the point as a flow sequence [x, y].
func (p Point) MarshalYAML() (interface{}, error) {
	return []int{p.X, p.Y}, nil
}

// Box is a rectangular region representing one class in a diagram.
type Box struct {
	ID              int             `json:"id"`
	X               int             `json:"x"`
	Y               int             `json:"y"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	CenterX         int             `json:"center_x"`
	CenterY         int             `json:"center_y"`
	Area            int             `json:"area"`
	DetectionMethod DetectionMethod `json:"detection_method"`
}

// NewBox builds a Box and derives its center and area from the rectangle.
func NewBox(id, x, y, width, height int, method DetectionMethod) Box {
	return Box{
		ID:              id,
		X:               x,
		Y:               y,
		Width:           width,
		Height:          height,
		CenterX:         x + width/2,
		CenterY:         y + height/2,
		Area:            width * height,
		DetectionMethod: method,
	}
}

// Rect returns the box as a half-open image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Contains reports whether p lies inside the box grown by margin on every side.
func (b Box) Contains(p Point, margin int) bool {
	return p.X >= b.X-margin && p.X < b.X+b.Width+margin &&
		p.Y >= b.Y-margin && p.Y < b.Y+b.Height+margin
}

// BoundaryDistance returns the distance from p to the box outline.
// Points inside the box measure to the nearest side; points outside measure
// to the closest point of the rectangle.
func (b Box) BoundaryDistance(p Point) float64 {
	x1, y1 := float64(b.X), float64(b.Y)
	x2, y2 := float64(b.X+b.Width-1), float64(b.Y+b.Height-1)
	px, py := float64(p.X), float64(p.Y)

	if px >= x1 && px <= x2 && py >= y1 && py <= y2 {
		return math.Min(math.Min(px-x1, x2-px), math.Min(py-y1, y2-py))
	}

	dx := math.Max(math.Max(x1-px, 0), px-x2)
	dy := math.Max(math.Max(y1-py, 0), py-y2)
	return math.Hypot(dx, dy)
}

// CenterDistance returns the Euclidean distance between two box centers.
func (b Box) CenterDistance(o Box) float64 {
	return math.Hypot(float64(b.CenterX-o.CenterX), float64(b.CenterY-o.CenterY))
}

// IoU returns the intersection-over-union ratio of two boxes.
func (b Box) IoU(o Box) float64 {
	inter := b.Rect().Intersect(o.Rect())
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	union := b.Area + o.Area - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

// DividerLine is a horizontal compartment separator inside a box.
// RelY is the offset of the divider from the top of its box.
type DividerLine struct {
	ID     int `json:"id"`
	BoxID  int `json:"box_id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	RelY   int `json:"rel_y"`
}

// RelationshipEdge is a line connecting two distinct boxes.
type RelationshipEdge struct {
	SourceBoxID  int          `json:"source_box_id"`
	TargetBoxID  int          `json:"target_box_id"`
	SourcePoint  Point        `json:"source_point"`
	TargetPoint  Point        `json:"target_point"`
	AngleDegrees float64      `json:"angle"`
	Type         RelationType `json:"type"`
	Confidence   float64      `json:"confidence"`
}

// SegmentAngle returns the angle in degrees of the vector from a to b,
// rounded to one decimal place (0 = rightward, 90 = downward).
func SegmentAngle(a, b Point) float64 {
	deg := math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X)) * 180 / math.Pi
	return math.Round(deg*10) / 10
}

// NamedClass associates a box with a class name and, for imagemap-sourced
// names, the link target it came from.
type NamedClass struct {
	BoxID  int    `json:"box_id"`
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

// Structure is the box/divider/relationship structure of one diagram.
//
// Source names the extraction path that produced it and Precedence orders
// competing structures for the same diagram: the merger treats the highest
// precedence non-empty structure as authoritative.
type Structure struct {
	DiagramName   string             `json:"diagram_name"`
	Title         string             `json:"title,omitempty"`
	Source        string             `json:"source,omitempty"`
	Precedence    int                `json:"-"`
	Boxes         []Box              `json:"boxes"`
	Dividers      []DividerLine      `json:"horizontal_lines"`
	Relationships []RelationshipEdge `json:"relationships"`
	Names         []NamedClass       `json:"names,omitempty"`
	Diagnostics   Diagnostics        `json:"diagnostics"`
}

// Empty reports whether the structure carries no boxes.
func (s *Structure) Empty() bool {
	return s == nil || len(s.Boxes) == 0
}

// Box looks up a box by ID.
func (s *Structure) Box(id int) (Box, bool) {
	for _, b := range s.Boxes {
		if b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}

// NameOf returns the class name assigned to a box, or "" if none.
func (s *Structure) NameOf(id int) string {
	for _, n := range s.Names {
		if n.BoxID == id {
			return n.Name
		}
	}
	return ""
}

// Validate checks the referential invariants of the structure.
func (s *Structure) Validate() error {
	ids := make(map[int]bool, len(s.Boxes))
	for _, b := range s.Boxes {
		if ids[b.ID] {
			return fmt.Errorf("duplicate box id %d", b.ID)
		}
		ids[b.ID] = true
	}
	for _, d := range s.Dividers {
		if !ids[d.BoxID] {
			return fmt.Errorf("divider %d references unknown box %d", d.ID, d.BoxID)
		}
	}
	for i, r := range s.Relationships {
		if r.SourceBoxID == r.TargetBoxID {
			return fmt.Errorf("relationship %d connects box %d to itself", i, r.SourceBoxID)
		}
		if !ids[r.SourceBoxID] || !ids[r.TargetBoxID] {
			return fmt.Errorf("relationship %d references unknown box (%d -> %d)", i, r.SourceBoxID, r.TargetBoxID)
		}
	}
	for _, n := range s.Names {
		if !ids[n.BoxID] {
			return fmt.Errorf("name %q references unknown box %d", n.Name, n.BoxID)
		}
	}
	return nil
}

// Normalize puts every collection into its canonical order: boxes by ID,
// dividers by box then vertical position (renumbered), relationships by
// endpoints, names by box ID then name. Identical content always normalizes
// to identical slices.
func (s *Structure) Normalize() {
	sort.SliceStable(s.Boxes, func(i, j int) bool {
		return s.Boxes[i].ID < s.Boxes[j].ID
	})

	sort.SliceStable(s.Dividers, func(i, j int) bool {
		a, b := s.Dividers[i], s.Dividers[j]
		if a.BoxID != b.BoxID {
			return a.BoxID < b.BoxID
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	for i := range s.Dividers {
		s.Dividers[i].ID = i
	}

	sort.SliceStable(s.Relationships, func(i, j int) bool {
		a, b := s.Relationships[i], s.Relationships[j]
		if a.SourceBoxID != b.SourceBoxID {
			return a.SourceBoxID < b.SourceBoxID
		}
		if a.TargetBoxID != b.TargetBoxID {
			return a.TargetBoxID < b.TargetBoxID
		}
		if a.SourcePoint.Y != b.SourcePoint.Y {
			return a.SourcePoint.Y < b.SourcePoint.Y
		}
		return a.SourcePoint.X < b.SourcePoint.X
	})

	sort.SliceStable(s.Names, func(i, j int) bool {
		if s.Names[i].BoxID != s.Names[j].BoxID {
			return s.Names[i].BoxID < s.Names[j].BoxID
		}
		return s.Names[i].Name < s.Names[j].Name
	})

	if s.Boxes == nil {
		s.Boxes = []Box{}
	}
	if s.Dividers == nil {
		s.Dividers = []DividerLine{}
	}
	if s.Relationships == nil {
		s.Relationships = []RelationshipEdge{}
	}
}

// Clone returns a deep copy of the structure.
func (s *Structure) Clone() *Structure {
	if s == nil {
		return nil
	}
	c := *s
	c.Boxes = cloneSlice(s.Boxes)
	c.Dividers = cloneSlice(s.Dividers)
	c.Relationships = cloneSlice(s.Relationships)
	c.Names = cloneSlice(s.Names)
	return &c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
