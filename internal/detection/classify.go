package detection

import (
	"math"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// Classification is a classifier's verdict for one connector.
type Classification struct {
	Type       diagram.RelationType
	Confidence float64

	// Reversed reports that the decorated end is at the segment start, so
	// source and target should be swapped to put the decoration at the target.
	Reversed bool
}

// Classifier assigns a relationship type to a connector between from and to.
//
// Implementations must be deterministic and must not modify ink. The
// relationship detector never depends on the type returned, so classifiers
// can be swapped without affecting structural output.
type Classifier interface {
	Classify(ink *imaging.Binary, from, to diagram.Point) Classification
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ink *imaging.Binary, from, to diagram.Point) Classification

// Classify calls f.
func (f ClassifierFunc) Classify(ink *imaging.Binary, from, to diagram.Point) Classification {
	return f(ink, from, to)
}

// PlainClassifier labels every connector as an association.
var PlainClassifier = ClassifierFunc(func(*imaging.Binary, diagram.Point, diagram.Point) Classification {
	return Classification{Type: diagram.Association, Confidence: 0.5}
})

// endMarker describes the decoration found at one connector end.
type endMarker int

const (
	markerNone endMarker = iota
	markerOpenArrow
	markerHollowTriangle
	markerHollowDiamond
	markerFilledDiamond
)

// HeadClassifier inspects the ink around both connector ends for UML end
// decorations: open arrows, hollow triangles, and hollow or filled diamonds.
//
// The zero value is usable and applies the defaults.
type HeadClassifier struct {
	// Reach is how far back from an endpoint, in pixels, a decoration may
	// extend. Default 16.
	Reach int

	// HalfWidth bounds the perpendicular search on each side of the
	// connector. Default 10.
	HalfWidth int
}

// Classify implements Classifier.
func (c HeadClassifier) Classify(ink *imaging.Binary, from, to diagram.Point) Classification {
	reach, half := c.Reach, c.HalfWidth
	if reach <= 0 {
		reach = 16
	}
	if half <= 0 {
		half = 10
	}

	atEnd := detectMarker(ink, to, from, reach, half)
	atStart := detectMarker(ink, from, to, reach, half)

	marker, reversed := atEnd, false
	if atEnd == markerNone && atStart != markerNone {
		marker, reversed = atStart, true
	}

	switch marker {
	case markerHollowTriangle:
		return Classification{Type: diagram.Inheritance, Confidence: 0.7, Reversed: reversed}
	case markerHollowDiamond:
		return Classification{Type: diagram.Aggregation, Confidence: 0.6, Reversed: reversed}
	case markerFilledDiamond:
		return Classification{Type: diagram.Composition, Confidence: 0.6, Reversed: reversed}
	case markerOpenArrow:
		return Classification{Type: diagram.DirectedAssociation, Confidence: 0.6, Reversed: reversed}
	default:
		return Classification{Type: diagram.Association, Confidence: 0.5}
	}
}

// detectMarker classifies the decoration at tip for a connector arriving
// from other.
func detectMarker(ink *imaging.Binary, tip, other diagram.Point, reach, half int) endMarker {
	dx := float64(tip.X - other.X)
	dy := float64(tip.Y - other.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return markerNone
	}
	dx /= length
	dy /= length
	// Perpendicular unit vector.
	px, py := -dy, dx

	sample := func(back, side int) bool {
		x := float64(tip.X) - float64(back)*dx + float64(side)*px
		y := float64(tip.Y) - float64(back)*dy + float64(side)*py
		return ink.At(int(math.Round(x)), int(math.Round(y)))
	}

	// Width profile: extent of ink across the connector at each step back
	// from the tip, and whether paper is enclosed on the axis.
	widths := make([]int, reach+1)
	enclosed := 0
	for back := 0; back <= reach; back++ {
		lo, hi := 0, 0
		for side := 1; side <= half; side++ {
			if sample(back, -side) {
				lo = side
			}
			if sample(back, side) {
				hi = side
			}
		}
		widths[back] = lo + hi + 1
		if back >= 2 && !sample(back, 0) && lo > 0 && hi > 0 {
			enclosed++
		}
	}

	if !hasWings(ink, tip, dx, dy, reach) {
		return markerNone
	}

	widest := 0
	for back := 1; back <= reach; back++ {
		if widths[back] > widths[widest] {
			widest = back
		}
	}
	// The decoration ends where the width falls back to a bare stroke.
	end := reach
	for back := widest; back <= reach; back++ {
		if widths[back] <= 3 {
			end = back
			break
		}
	}

	if enclosed >= 2 {
		// A triangle is widest at its base, a diamond in its middle.
		if end > 0 && float64(widest) >= 0.7*float64(end) {
			return markerHollowTriangle
		}
		return markerHollowDiamond
	}
	if widths[widest] >= 5 && widest > 0 && widest < end && solidBetween(sample, 1, end-1) {
		return markerFilledDiamond
	}
	return markerOpenArrow
}

// hasWings reports whether strokes leave the tip backwards on both sides of
// the connector at 30 or 45 degrees.
func hasWings(ink *imaging.Binary, tip diagram.Point, dx, dy float64, reach int) bool {
	for _, deg := range []float64{30, 45} {
		rad := deg * math.Pi / 180
		cosA, sinA := math.Cos(rad), math.Sin(rad)
		leftX, leftY := dx*cosA-dy*sinA, dx*sinA+dy*cosA
		rightX, rightY := dx*cosA+dy*sinA, -dx*sinA+dy*cosA

		left, right := 0, 0
		// Skip the first pixels, which belong to the connector itself.
		for d := 3; d <= reach; d++ {
			if ink.At(tip.X-int(math.Round(float64(d)*leftX)), tip.Y-int(math.Round(float64(d)*leftY))) {
				left++
			}
			if ink.At(tip.X-int(math.Round(float64(d)*rightX)), tip.Y-int(math.Round(float64(d)*rightY))) {
				right++
			}
		}
		if left >= 4 && right >= 4 {
			return true
		}
	}
	return false
}

func solidBetween(sample func(back, side int) bool, from, to int) bool {
	if to < from {
		return false
	}
	for back := from; back <= to; back++ {
		for side := -1; side <= 1; side++ {
			if !sample(back, side) {
				return false
			}
		}
	}
	return true
}
