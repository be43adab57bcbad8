// Package merge reconciles competing structures for one diagram.
//
// Each input carries a Precedence. The highest-precedence non-empty input is
// authoritative: its boxes, positions and names are kept verbatim. Dividers
// and relationships from the other inputs are carried over onto the
// authoritative boxes by nearest-centroid matching. The merger never inspects
// where an input came from beyond its Precedence.
package merge

import (
	"sort"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
)

// Options tunes the merge.
type Options struct {
	// Tolerance is the largest centroid distance at which a subordinate box
	// is matched to an authoritative one.
	Tolerance float64
}

// DefaultOptions returns the default merge settings.
func DefaultOptions() Options {
	return Options{Tolerance: 30}
}

// Merge produces the canonical structure for one diagram from its candidate
// structures. Nil inputs are ignored and no input is modified.
//
// When only one input has boxes it is returned as a copy, with the
// diagnostics of the other inputs added. Otherwise subordinate boxes that
// match no authoritative box within tolerance are dropped and counted as
// merge conflicts, and subordinate relationships that lose an endpoint are
// counted as unresolved. The merged result is normalized, so identical
// inputs always serialize identically.
func Merge(opts Options, inputs ...*diagram.Structure) *diagram.Structure {
	ordered := rank(inputs)
	if len(ordered) == 0 {
		return &diagram.Structure{
			Boxes:         []diagram.Box{},
			Dividers:      []diagram.DividerLine{},
			Relationships: []diagram.RelationshipEdge{},
		}
	}

	authority := ordered[0]
	var subordinates []*diagram.Structure
	for _, s := range ordered[1:] {
		if !s.Empty() {
			subordinates = append(subordinates, s)
		}
	}

	out := authority.Clone()
	for _, s := range ordered[1:] {
		out.Diagnostics = out.Diagnostics.Add(s.Diagnostics)
		if out.Title == "" {
			out.Title = s.Title
		}
		if out.DiagramName == "" {
			out.DiagramName = s.DiagramName
		}
	}
	if len(subordinates) == 0 {
		return out
	}

	for _, sub := range subordinates {
		fold(out, sub, opts)
	}
	out.Normalize()
	return out
}

// rank orders non-nil inputs by descending precedence, then by whether they
// have boxes, keeping argument order among equals.
func rank(inputs []*diagram.Structure) []*diagram.Structure {
	var out []*diagram.Structure
	for _, s := range inputs {
		if s != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Empty(), out[j].Empty()
		if ei != ej {
			return !ei
		}
		return out[i].Precedence > out[j].Precedence
	})
	return out
}

// fold carries sub's dividers, relationships and missing names onto out.
func fold(out, sub *diagram.Structure, opts Options) {
	log := logging.Logger()
	matches := Match(sub.Boxes, out.Boxes, opts.Tolerance)

	for _, b := range sub.Boxes {
		if _, ok := matches[b.ID]; !ok {
			out.Diagnostics.MergeConflict++
			log.Debug("dropping unmatched box", "diagram", out.DiagramName, "source", sub.Source, "box", b.ID)
		}
	}

	seenDividers := make(map[[2]int]bool)
	for _, d := range out.Dividers {
		seenDividers[[2]int{d.BoxID, d.Y}] = true
	}
	for _, d := range sub.Dividers {
		id, ok := matches[d.BoxID]
		if !ok {
			continue
		}
		target, _ := out.Box(id)
		key := [2]int{id, d.Y}
		if seenDividers[key] {
			continue
		}
		seenDividers[key] = true
		d.BoxID = id
		d.RelY = d.Y - target.Y
		out.Dividers = append(out.Dividers, d)
	}

	seenPairs := make(map[[2]int]bool)
	for _, e := range out.Relationships {
		seenPairs[pairKey(e.SourceBoxID, e.TargetBoxID)] = true
	}
	for _, e := range sub.Relationships {
		src, okS := matches[e.SourceBoxID]
		tgt, okT := matches[e.TargetBoxID]
		if !okS || !okT || src == tgt {
			out.Diagnostics.UnresolvedRelationship++
			continue
		}
		key := pairKey(src, tgt)
		if seenPairs[key] {
			continue
		}
		seenPairs[key] = true
		e.SourceBoxID, e.TargetBoxID = src, tgt
		out.Relationships = append(out.Relationships, e)
	}

	named := make(map[int]bool)
	for _, n := range out.Names {
		named[n.BoxID] = true
	}
	for _, n := range sub.Names {
		id, ok := matches[n.BoxID]
		if !ok || named[id] {
			continue
		}
		named[id] = true
		n.BoxID = id
		out.Names = append(out.Names, n)
	}
}

// Match pairs boxes in from with boxes in to, one-to-one, by nearest centroid
// within tolerance. Candidate pairs are taken in order of distance, then
// from-ID, then to-ID, so the result does not depend on input order.
// The returned map goes from a from-ID to a to-ID.
func Match(from, to []diagram.Box, tolerance float64) map[int]int {
	type pair struct {
		from, to int
		dist     float64
	}
	var pairs []pair
	for _, a := range from {
		for _, b := range to {
			d := a.CenterDistance(b)
			if d <= tolerance {
				pairs = append(pairs, pair{from: a.ID, to: b.ID, dist: d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		if pairs[i].from != pairs[j].from {
			return pairs[i].from < pairs[j].from
		}
		return pairs[i].to < pairs[j].to
	})

	matched := make(map[int]int)
	taken := make(map[int]bool)
	for _, p := range pairs {
		if _, done := matched[p.from]; done || taken[p.to] {
			continue
		}
		matched[p.from] = p.to
		taken[p.to] = true
	}
	return matched
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
