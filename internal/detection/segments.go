package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// Segment is a straight run of ink found by the Hough transform.
// Start precedes End in row-major order.
type Segment struct {
	Start diagram.Point
	End   diagram.Point
	Votes int
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.End.X-s.Start.X), float64(s.End.Y-s.Start.Y))
}

// SegmentOptions tunes line segment extraction.
type SegmentOptions struct {
	// Angles is the number of Hough angle bins over [0, 180) degrees.
	Angles int

	// MinVotes is the accumulator count a peak needs to be considered.
	MinVotes int

	// MinLength discards runs shorter than this many pixels.
	MinLength int

	// MaxGap splits a Hough line into separate runs wherever consecutive ink
	// pixels along it are further apart than this.
	MaxGap int

	// Tolerance is the perpendicular distance within which a pixel belongs
	// to a Hough line.
	Tolerance float64

	// PeakRadius is the neighborhood, in bins, a peak must dominate.
	PeakRadius int

	// MaxSegments caps the number of returned segments.
	MaxSegments int
}

// DefaultSegmentOptions returns settings suited to rendered class diagrams.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		Angles:      180,
		MinVotes:    20,
		MinLength:   20,
		MaxGap:      5,
		Tolerance:   1.5,
		PeakRadius:  2,
		MaxSegments: 200,
	}
}

type houghPeak struct {
	rho   int
	theta int
	votes int
}

// DetectSegments extracts straight segments from ink using a Hough line
// transform followed by gap splitting along each detected line.
//
// Voting runs on the one-pixel skeleton of ink. On a stroke two or three
// pixels thick, a bin tilted a degree or two crosses every row of the stroke
// and outvotes the true angle, so thick strokes are thinned first.
//
// A Hough peak describes an infinite line, which in a class diagram usually
// passes through several unrelated strokes (box sides, connectors, glyphs).
// Pixels near the line are projected onto it and split wherever the gap
// between neighbors exceeds MaxGap. Each run is then cut where it stops being
// straight, which separates a connector from a parallel box edge that the
// same slightly tilted line grazes. Endpoints come from a least-squares fit
// of each piece's own pixels, not from the quantized Hough line.
//
// Segments are ordered by votes, then position. Each ink pixel is credited
// to the first segment that explains it, so parallel peaks from thick strokes
// and the same line seen at an adjacent angle do not yield duplicates.
func DetectSegments(ink *imaging.Binary, opts SegmentOptions) []Segment {
	width, height := ink.Width, ink.Height
	if width == 0 || height == 0 || opts.Angles <= 0 {
		return []Segment{}
	}

	skel := ink.Thin()
	pixels := make([]inkPixel, 0, skel.Count())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if skel.Pix[y*width+x] {
				pixels = append(pixels, inkPixel{x, y})
			}
		}
	}

	cosT := make([]float64, opts.Angles)
	sinT := make([]float64, opts.Angles)
	for t := range cosT {
		angle := float64(t) * math.Pi / float64(opts.Angles)
		cosT[t] = math.Cos(angle)
		sinT[t] = math.Sin(angle)
	}

	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	rhoBins := 2*maxDist + 1
	acc := make([]int, rhoBins*opts.Angles)
	for _, p := range pixels {
		for t := 0; t < opts.Angles; t++ {
			rho := int(math.Round(float64(p.x)*cosT[t]+float64(p.y)*sinT[t])) + maxDist
			acc[rho*opts.Angles+t]++
		}
	}

	var peaks []houghPeak
	for r := 0; r < rhoBins; r++ {
		for t := 0; t < opts.Angles; t++ {
			v := acc[r*opts.Angles+t]
			if v < opts.MinVotes || !isLocalMax(acc, rhoBins, opts.Angles, r, t, opts.PeakRadius) {
				continue
			}
			peaks = append(peaks, houghPeak{rho: r - maxDist, theta: t, votes: v})
		}
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		if peaks[i].theta != peaks[j].theta {
			return peaks[i].theta < peaks[j].theta
		}
		return peaks[i].rho < peaks[j].rho
	})

	// claimed marks pixels already explained by an accepted segment; a run
	// made mostly of claimed pixels is a shadow of an earlier stroke.
	claimed := make([]bool, len(pixels))
	segments := make([]Segment, 0)
	for _, peak := range peaks {
		if len(segments) >= opts.MaxSegments {
			break
		}
		cosA, sinA := cosT[peak.theta], sinT[peak.theta]
		rho := float64(peak.rho)

		// Position along the line: direction (-sin, cos).
		var near []onLine
		for i, p := range pixels {
			d := float64(p.x)*cosA + float64(p.y)*sinA - rho
			if math.Abs(d) <= opts.Tolerance {
				near = append(near, onLine{along: -float64(p.x)*sinA + float64(p.y)*cosA, offset: d, pixel: i})
			}
		}
		sort.Slice(near, func(i, j int) bool {
			if near[i].along != near[j].along {
				return near[i].along < near[j].along
			}
			return near[i].pixel < near[j].pixel
		})

		for _, run := range splitRuns(near, float64(opts.MaxGap)) {
			for _, piece := range straightPieces(run, straightTolerance) {
				first, last := piece[0].along, piece[len(piece)-1].along
				if last-first < float64(opts.MinLength) {
					continue
				}
				taken := 0
				for _, q := range piece {
					if claimed[q.pixel] {
						taken++
					}
				}
				if 2*taken > len(piece) {
					continue
				}
				start, end := fitEndpoints(pixels, piece)
				seg := orient(Segment{Start: start, End: end, Votes: peak.votes})
				if isNearDuplicate(segments, seg, float64(opts.MaxGap)) {
					continue
				}
				for _, q := range piece {
					claimed[q.pixel] = true
				}
				segments = append(segments, seg)
				if len(segments) >= opts.MaxSegments {
					break
				}
			}
			if len(segments) >= opts.MaxSegments {
				break
			}
		}
	}
	return segments
}

// straightTolerance is how far, in pixels, a run may bow away from the chord
// between its ends before it is cut in two.
const straightTolerance = 1.0

type inkPixel struct{ x, y int }

// onLine is an ink pixel near a Hough line with its position along it and
// its signed distance from it.
type onLine struct {
	along  float64
	offset float64
	pixel  int
}

func isLocalMax(acc []int, rhoBins, angles, r, t, radius int) bool {
	v := acc[r*angles+t]
	for dr := -radius; dr <= radius; dr++ {
		nr := r + dr
		if nr < 0 || nr >= rhoBins {
			continue
		}
		for dt := -radius; dt <= radius; dt++ {
			if dr == 0 && dt == 0 {
				continue
			}
			nt := (t + dt + angles) % angles
			nv := acc[nr*angles+nt]
			// Strictly greater neighbors win; among equals the earliest bin
			// in scan order wins so plateaus yield a single peak.
			if nv > v || (nv == v && (nr < r || (nr == r && nt < t))) {
				return false
			}
		}
	}
	return true
}

// splitRuns groups points sorted by position into runs whose internal gaps
// never exceed maxGap.
func splitRuns(sorted []onLine, maxGap float64) [][]onLine {
	if len(sorted) == 0 {
		return nil
	}
	var runs [][]onLine
	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].along-sorted[i-1].along > maxGap {
			runs = append(runs, sorted[start:i])
			start = i
		}
	}
	return append(runs, sorted[start:])
}

// straightPieces cuts a run sorted by position into pieces that each stay
// within tol of the chord joining their ends (Ramer-Douglas-Peucker). The
// cut point belongs to both neighbors.
func straightPieces(run []onLine, tol float64) [][]onLine {
	if len(run) < 3 {
		return [][]onLine{run}
	}
	a, b := run[0], run[len(run)-1]
	cut, worst := -1, tol
	for i := 1; i < len(run)-1; i++ {
		if d := chordDistance(a, b, run[i]); d > worst {
			cut, worst = i, d
		}
	}
	if cut < 0 {
		return [][]onLine{run}
	}
	return append(straightPieces(run[:cut+1], tol), straightPieces(run[cut:], tol)...)
}

func chordDistance(a, b, p onLine) float64 {
	dx, dy := b.along-a.along, b.offset-a.offset
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.along-a.along, p.offset-a.offset)
	}
	return math.Abs(dx*(p.offset-a.offset)-dy*(p.along-a.along)) / length
}

// fitEndpoints fits a total least squares line through the piece's pixels
// and returns the projections of its two extreme pixels onto that line.
func fitEndpoints(pixels []inkPixel, piece []onLine) (diagram.Point, diagram.Point) {
	var mx, my float64
	for _, q := range piece {
		mx += float64(pixels[q.pixel].x)
		my += float64(pixels[q.pixel].y)
	}
	n := float64(len(piece))
	mx, my = mx/n, my/n

	var sxx, syy, sxy float64
	for _, q := range piece {
		dx, dy := float64(pixels[q.pixel].x)-mx, float64(pixels[q.pixel].y)-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	phi := 0.5 * math.Atan2(2*sxy, sxx-syy)
	ux, uy := math.Cos(phi), math.Sin(phi)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, q := range piece {
		t := (float64(pixels[q.pixel].x)-mx)*ux + (float64(pixels[q.pixel].y)-my)*uy
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	at := func(t float64) diagram.Point {
		return diagram.Point{X: int(math.Round(mx + t*ux)), Y: int(math.Round(my + t*uy))}
	}
	return at(lo), at(hi)
}

// orient puts the row-major-first endpoint at Start.
func orient(s Segment) Segment {
	if s.End.Y < s.Start.Y || (s.End.Y == s.Start.Y && s.End.X < s.Start.X) {
		s.Start, s.End = s.End, s.Start
	}
	return s
}

func isNearDuplicate(existing []Segment, s Segment, tol float64) bool {
	for _, e := range existing {
		if pointDist(e.Start, s.Start) <= tol && pointDist(e.End, s.End) <= tol {
			return true
		}
	}
	return false
}

func pointDist(a, b diagram.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
