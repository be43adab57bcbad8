package detection

import (
	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// RelationshipOptions tunes connector-to-box resolution.
type RelationshipOptions struct {
	// EndpointTolerance is the largest distance from a segment endpoint to a
	// box outline for the endpoint to attach to that box.
	EndpointTolerance float64

	// ContainmentMargin grows each box when deciding whether a segment lies
	// entirely inside it (and is therefore a divider, border or glyph stroke).
	ContainmentMargin int
}

// DefaultRelationshipOptions returns settings suited to rendered diagrams.
func DefaultRelationshipOptions() RelationshipOptions {
	return RelationshipOptions{
		EndpointTolerance: 12,
		ContainmentMargin: 2,
	}
}

// RelationshipResult is the output of DetectRelationships.
type RelationshipResult struct {
	Edges []diagram.RelationshipEdge

	// Unresolved counts segments that were not internal to a box but could
	// not be attached to two distinct boxes.
	Unresolved int
}

// DetectRelationships turns line segments into edges between boxes.
//
// A segment lying entirely within one box is never a relationship. Each
// remaining endpoint attaches to the box containing it, or failing that to
// the box whose outline is nearest within EndpointTolerance (lower ID on
// ties). Segments whose endpoints attach to fewer than two distinct boxes are
// counted as unresolved. At most one edge is kept per unordered box pair,
// taken from the strongest segment.
//
// classifier may be nil, in which case every edge is an association.
func DetectRelationships(ink *imaging.Binary, boxes []diagram.Box, segments []Segment, classifier Classifier, opts RelationshipOptions) RelationshipResult {
	if classifier == nil {
		classifier = PlainClassifier
	}

	result := RelationshipResult{Edges: []diagram.RelationshipEdge{}}
	seen := make(map[[2]int]bool)

	for _, seg := range segments {
		if insideSingleBox(boxes, seg, opts.ContainmentMargin) {
			continue
		}

		src, okS := resolveEndpoint(boxes, seg.Start, opts.EndpointTolerance)
		tgt, okT := resolveEndpoint(boxes, seg.End, opts.EndpointTolerance)
		if !okS || !okT || src == tgt {
			result.Unresolved++
			continue
		}

		key := [2]int{src, tgt}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		from, to := seg.Start, seg.End
		verdict := classifier.Classify(ink, from, to)
		if verdict.Reversed {
			src, tgt = tgt, src
			from, to = to, from
		}

		result.Edges = append(result.Edges, diagram.RelationshipEdge{
			SourceBoxID:  src,
			TargetBoxID:  tgt,
			SourcePoint:  from,
			TargetPoint:  to,
			AngleDegrees: diagram.SegmentAngle(from, to),
			Type:         verdict.Type,
			Confidence:   clamp01(verdict.Confidence),
		})
	}
	return result
}

func insideSingleBox(boxes []diagram.Box, seg Segment, margin int) bool {
	for _, b := range boxes {
		if b.Contains(seg.Start, margin) && b.Contains(seg.End, margin) {
			return true
		}
	}
	return false
}

// resolveEndpoint returns the ID of the box p belongs to. A containing box
// wins (the smallest, for nested boxes); otherwise the nearest outline within
// tol. Ties go to the lower ID.
func resolveEndpoint(boxes []diagram.Box, p diagram.Point, tol float64) (int, bool) {
	best, bestArea := -1, 0
	for _, b := range boxes {
		if !b.Contains(p, 0) {
			continue
		}
		if best < 0 || b.Area < bestArea || (b.Area == bestArea && b.ID < best) {
			best, bestArea = b.ID, b.Area
		}
	}
	if best >= 0 {
		return best, true
	}

	bestDist := tol
	for _, b := range boxes {
		d := b.BoundaryDistance(p)
		if d > tol {
			continue
		}
		if best < 0 || d < bestDist || (d == bestDist && b.ID < best) {
			best, bestDist = b.ID, d
		}
	}
	return best, best >= 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
