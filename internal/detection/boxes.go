package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// BoxOptions tunes class box detection.
type BoxOptions struct {
	// DilateRadius closes small breaks in outlines before interiors are
	// labeled. Detected rectangles are inset by the same amount afterwards.
	DilateRadius int

	// MinInteriorPixels drops enclosed regions smaller than this, such as
	// glyph counters and arrowhead interiors.
	MinInteriorPixels int

	// CompartmentGap and CompartmentAlign control when vertically stacked
	// interiors are treated as compartments of one box: their left and right
	// edges must agree within CompartmentAlign and the vertical gap between
	// them must not exceed CompartmentGap.
	CompartmentGap   int
	CompartmentAlign int

	// BorderSearch is how far, in pixels, an interior is grown outward to
	// reach the outer edge of its outline.
	BorderSearch int

	MinArea         int
	MinSide         int
	MaxAspect       float64
	MaxAreaFraction float64
	MaxDimFraction  float64

	// DuplicateIoU is the overlap above which two candidates are the same box.
	DuplicateIoU float64

	// MinBoxes is the count below which a detection is low confidence.
	MinBoxes int
}

// DefaultBoxOptions returns thresholds suited to rendered class diagrams.
func DefaultBoxOptions() BoxOptions {
	return BoxOptions{
		DilateRadius:      1,
		MinInteriorPixels: 200,
		CompartmentGap:    10,
		CompartmentAlign:  4,
		BorderSearch:      8,
		MinArea:           500,
		MinSide:           20,
		MaxAspect:         8,
		MaxAreaFraction:   0.8,
		MaxDimFraction:    0.95,
		DuplicateIoU:      0.5,
		MinBoxes:          2,
	}
}

// BoxResult is the output of DetectBoxes.
type BoxResult struct {
	Boxes []diagram.Box

	// LowConfidence is set when fewer than MinBoxes boxes were found.
	LowConfidence bool
}

// DetectBoxes finds axis-aligned class boxes in a foreground bitmap.
//
// Connector lines join box outlines into one connected ink shape, so boxes
// cannot be read from outer contours. Instead each box is recovered from the
// paper it encloses:
//
//  1. Dilate ink so anti-aliasing gaps do not leak interiors into the page.
//  2. Label background regions that never reach the image border.
//  3. Merge vertically stacked interiors that share left and right edges;
//     these are the compartments of one class separated by dividers.
//  4. Grow each merged interior outward across its outline, then undo the
//     dilation.
//  5. Filter by area, side length, aspect ratio and image fraction, and drop
//     candidates overlapping a larger one by more than DuplicateIoU.
//
// Boxes are ordered top-to-bottom then left-to-right and numbered from 0.
// The result depends only on the bitmap and options.
func DetectBoxes(ink *imaging.Binary, opts BoxOptions) BoxResult {
	if ink.Width == 0 || ink.Height == 0 {
		return BoxResult{Boxes: []diagram.Box{}, LowConfidence: opts.MinBoxes > 0}
	}

	dilated := ink.Dilate(opts.DilateRadius)
	interiors := enclosedRegions(dilated, opts.MinInteriorPixels)
	merged := mergeCompartments(interiors, opts)

	candidates := make([]image.Rectangle, 0, len(merged))
	for _, r := range merged {
		outer := growToOutline(dilated, r, opts.BorderSearch).Inset(opts.DilateRadius)
		if acceptBox(outer, ink.Width, ink.Height, opts) {
			candidates = append(candidates, outer)
		}
	}

	kept := suppressDuplicates(candidates, opts.DuplicateIoU)

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Min.Y != b.Min.Y {
			return a.Min.Y < b.Min.Y
		}
		if a.Min.X != b.Min.X {
			return a.Min.X < b.Min.X
		}
		if a.Dx() != b.Dx() {
			return a.Dx() < b.Dx()
		}
		return a.Dy() < b.Dy()
	})

	boxes := make([]diagram.Box, len(kept))
	for i, r := range kept {
		boxes[i] = diagram.NewBox(i, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), diagram.MethodContour)
	}
	return BoxResult{
		Boxes:         boxes,
		LowConfidence: len(boxes) < opts.MinBoxes,
	}
}

// mergeCompartments unions interiors stacked directly above one another with
// matching horizontal extent and returns the bounding rectangle of each group,
// ordered by the first member's position.
func mergeCompartments(interiors []region, opts BoxOptions) []image.Rectangle {
	uf := newUnionFind(len(interiors))
	for i := range interiors {
		for j := range interiors {
			if i == j {
				continue
			}
			upper, lower := interiors[i].bounds, interiors[j].bounds
			gap := lower.Min.Y - upper.Max.Y
			if gap < 0 || gap > opts.CompartmentGap {
				continue
			}
			if abs(upper.Min.X-lower.Min.X) <= opts.CompartmentAlign &&
				abs(upper.Max.X-lower.Max.X) <= opts.CompartmentAlign {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int]image.Rectangle)
	var roots []int
	for i, r := range interiors {
		root := uf.find(i)
		if cur, ok := groups[root]; ok {
			groups[root] = cur.Union(r.bounds)
			continue
		}
		groups[root] = r.bounds
		roots = append(roots, root)
	}

	out := make([]image.Rectangle, len(roots))
	for i, root := range roots {
		out[i] = groups[root]
	}
	return out
}

// growToOutline pushes each side of r outward while the next row or column
// is mostly ink, up to limit pixels per side.
func growToOutline(b *imaging.Binary, r image.Rectangle, limit int) image.Rectangle {
	for step := 0; step < limit && r.Min.Y > 0 && rowMostlyInk(b, r.Min.Y-1, r.Min.X, r.Max.X); step++ {
		r.Min.Y--
	}
	for step := 0; step < limit && r.Max.Y < b.Height && rowMostlyInk(b, r.Max.Y, r.Min.X, r.Max.X); step++ {
		r.Max.Y++
	}
	for step := 0; step < limit && r.Min.X > 0 && colMostlyInk(b, r.Min.X-1, r.Min.Y, r.Max.Y); step++ {
		r.Min.X--
	}
	for step := 0; step < limit && r.Max.X < b.Width && colMostlyInk(b, r.Max.X, r.Min.Y, r.Max.Y); step++ {
		r.Max.X++
	}
	return r
}

func rowMostlyInk(b *imaging.Binary, y, x0, x1 int) bool {
	n := 0
	for x := x0; x < x1; x++ {
		if b.At(x, y) {
			n++
		}
	}
	return 2*n >= x1-x0
}

func colMostlyInk(b *imaging.Binary, x, y0, y1 int) bool {
	n := 0
	for y := y0; y < y1; y++ {
		if b.At(x, y) {
			n++
		}
	}
	return 2*n >= y1-y0
}

func acceptBox(r image.Rectangle, imgW, imgH int, opts BoxOptions) bool {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return false
	}
	if w*h < opts.MinArea || w < opts.MinSide || h < opts.MinSide {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < 1 {
		aspect = 1 / aspect
	}
	if aspect > opts.MaxAspect {
		return false
	}
	if float64(w*h) > opts.MaxAreaFraction*float64(imgW*imgH) {
		return false
	}
	return float64(w) <= opts.MaxDimFraction*float64(imgW) &&
		float64(h) <= opts.MaxDimFraction*float64(imgH)
}

// suppressDuplicates keeps the larger of any two rectangles whose IoU exceeds
// threshold. Equal areas resolve by position so the outcome is order-free.
func suppressDuplicates(rects []image.Rectangle, threshold float64) []image.Rectangle {
	sorted := append([]image.Rectangle(nil), rects...)
	sort.Slice(sorted, func(i, j int) bool {
		ai, aj := area(sorted[i]), area(sorted[j])
		if ai != aj {
			return ai > aj
		}
		if sorted[i].Min.Y != sorted[j].Min.Y {
			return sorted[i].Min.Y < sorted[j].Min.Y
		}
		return sorted[i].Min.X < sorted[j].Min.X
	})

	kept := make([]image.Rectangle, 0, len(sorted))
	for _, r := range sorted {
		dup := false
		for _, k := range kept {
			if rectIoU(r, k) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, r)
		}
	}
	return kept
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

func rectIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	return float64(ia) / float64(area(a)+area(b)-ia)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
