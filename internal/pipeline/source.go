package pipeline

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/uml-structure-mcp/internal/detection"
	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/fallback"
	"github.com/ironsheep/uml-structure-mcp/internal/imagemap"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
)

// Source precedences. Higher wins when sources disagree.
const (
	GeometricPrecedence = 1
	ImagemapPrecedence  = 2
)

// GeometricSourceName labels structures detected from the raster.
const GeometricSourceName = "geometric"

// Input describes one diagram. Image and Markup take priority over their
// path counterparts; either description may be absent.
type Input struct {
	Name string

	Image     image.Image
	ImagePath string

	Markup     *imagemap.Markup
	MarkupPath string
}

// Source produces a structure for a diagram from one kind of description.
//
// Extract returns a nil structure when the input lacks the description the
// source reads. Errors are reserved for cancellation.
type Source interface {
	Name() string
	Extract(ctx context.Context, in Input) (*diagram.Structure, error)
}

// GeometricSource detects structure from a raster and applies fallback
// reference data when detection is unreliable.
type GeometricSource struct {
	Preprocess imaging.PreprocessOptions
	Detection  detection.Options
	Classifier detection.Classifier
	Table      *fallback.Table
}

// NewGeometricSource returns a geometric source with default settings and
// the given reference table.
func NewGeometricSource(table *fallback.Table) *GeometricSource {
	return &GeometricSource{
		Preprocess: imaging.DefaultPreprocessOptions(),
		Detection:  detection.DefaultOptions(),
		Classifier: detection.HeadClassifier{},
		Table:      table,
	}
}

// Name implements Source.
func (g *GeometricSource) Name() string { return GeometricSourceName }

// Extract implements Source.
func (g *GeometricSource) Extract(ctx context.Context, in Input) (*diagram.Structure, error) {
	if in.Image == nil {
		return nil, nil
	}
	log := logging.Logger().With("diagram", in.Name)

	ink := imaging.Preprocess(in.Image, g.Preprocess)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := detection.DetectBoxes(ink, g.Detection.Boxes)
	s := &diagram.Structure{
		DiagramName: in.Name,
		Source:      GeometricSourceName,
		Precedence:  GeometricPrecedence,
		Boxes:       found.Boxes,
	}
	if found.LowConfidence {
		s.Diagnostics.Record(diagram.ErrLowConfidence)
		log.Info("low confidence box detection", "boxes", len(found.Boxes), "min", g.Detection.Boxes.MinBoxes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		dividers []diagram.DividerLine
		rels     detection.RelationshipResult
		eg       errgroup.Group
	)
	eg.Go(func() error {
		dividers = detection.DetectDividers(ink, s.Boxes, g.Detection.Dividers)
		return nil
	})
	eg.Go(func() error {
		segments := detection.DetectSegments(ink, g.Detection.Segments)
		rels = detection.DetectRelationships(ink, s.Boxes, segments, g.Classifier, g.Detection.Relationships)
		return nil
	})
	_ = eg.Wait()

	s.Dividers = dividers
	s.Relationships = rels.Edges
	s.Diagnostics.UnresolvedRelationship += rels.Unresolved
	log.Debug("geometric detection complete",
		"boxes", len(s.Boxes), "dividers", len(s.Dividers),
		"relationships", len(s.Relationships), "unresolved", rels.Unresolved)

	out, reason := fallback.Reconcile(s, g.Table, found.LowConfidence)
	if reason != fallback.ReasonNone {
		out.Dividers = detection.DetectDividers(ink, out.Boxes, g.Detection.Dividers)
		log.Info("applied fallback layout", "reason", string(reason),
			"detected", len(s.Boxes), "boxes", len(out.Boxes))
	}

	out.Normalize()
	return out, nil
}

// ImagemapSource transcribes imagemap markup. Documented relationships from
// Table are added between the classes the markup names.
type ImagemapSource struct {
	Table *fallback.Table
}

// Name implements Source.
func (ImagemapSource) Name() string { return imagemap.SourceName }

// Extract implements Source.
func (src ImagemapSource) Extract(ctx context.Context, in Input) (*diagram.Structure, error) {
	if in.Markup == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := imagemap.Extract(in.Name, in.Markup)
	s.Precedence = ImagemapPrecedence
	if entry, ok := src.Table.Lookup(in.Name); ok {
		if n := fallback.Connect(s, entry); n > 0 {
			logging.Logger().Debug("added documented relationships", "diagram", in.Name, "count", n)
		}
	}
	s.Normalize()
	return s, nil
}
