package pipeline

import (
	"context"
	"fmt"

	"github.com/ironsheep/uml-structure-mcp/internal/config"
	"github.com/ironsheep/uml-structure-mcp/internal/debugviz"
	"github.com/ironsheep/uml-structure-mcp/internal/detection"
	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/fallback"
	"github.com/ironsheep/uml-structure-mcp/internal/imagemap"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
	"github.com/ironsheep/uml-structure-mcp/internal/logging"
	"github.com/ironsheep/uml-structure-mcp/internal/merge"
)

// Processor runs the sources for a diagram and merges their output.
// It holds no per-diagram state and is safe for concurrent use.
type Processor struct {
	Sources []Source
	Merge   merge.Options

	// Images holds rasters loaded from Input.ImagePath while their diagram
	// is in flight. Process evicts the entry before it returns, so a file
	// rewritten between calls is decoded again.
	Images *imaging.ImageCache

	// DebugDir enables debug images when non-empty.
	DebugDir   string
	Debug      debugviz.Options
	Preprocess imaging.PreprocessOptions
}

// New builds a Processor from configuration. The table is shared read-only
// by every diagram processed.
func New(cfg *config.Config, table *fallback.Table) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}
	geo := &GeometricSource{
		Preprocess: cfg.PreprocessOptions(),
		Detection:  cfg.DetectionOptions(),
		Classifier: detection.HeadClassifier{},
		Table:      table,
	}
	return &Processor{
		Sources:    []Source{geo, ImagemapSource{Table: table}},
		Merge:      cfg.MergeOptions(),
		Images:     imaging.NewImageCache(),
		DebugDir:   cfg.DebugDir,
		Debug:      debugviz.DefaultOptions(),
		Preprocess: cfg.PreprocessOptions(),
	}
}

// Process produces the canonical structure for one diagram.
//
// Unreadable inputs are counted in the structure's diagnostics rather than
// returned; the only error is cancellation of ctx.
func (p *Processor) Process(ctx context.Context, in Input) (*diagram.Structure, error) {
	log := logging.Logger().With("diagram", in.Name)
	if in.Image == nil && in.ImagePath != "" && p.Images != nil {
		defer p.Images.Evict(in.ImagePath)
	}
	in, loadDiag := p.load(in)

	var candidates []*diagram.Structure
	for _, src := range p.Sources {
		s, err := src.Extract(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("diagram %q: %s: %w", in.Name, src.Name(), err)
		}
		if s != nil {
			log.Debug("source produced structure", "source", src.Name(), "boxes", len(s.Boxes))
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, &diagram.Structure{DiagramName: in.Name})
	}
	candidates[0].Diagnostics = candidates[0].Diagnostics.Add(loadDiag)

	out := merge.Merge(p.Merge, candidates...)
	out.DiagramName = in.Name
	out.Normalize()

	if n := out.Diagnostics.MergeConflict; n > 0 {
		log.Info("dropped boxes without a markup counterpart", "count", n)
	}
	if err := out.Validate(); err != nil {
		log.Error("merged structure failed validation", "error", err)
	}

	p.emitDebug(in, out)
	return out, nil
}

// load resolves path inputs, recording failures as input errors.
func (p *Processor) load(in Input) (Input, diagram.Diagnostics) {
	var diag diagram.Diagnostics
	log := logging.Logger().With("diagram", in.Name)

	if in.Image == nil && in.ImagePath != "" {
		cache := p.Images
		if cache == nil {
			cache = imaging.NewImageCache()
		}
		img, err := cache.Load(in.ImagePath)
		if err != nil {
			err = &diagram.InputError{Diagram: in.Name, Input: "raster", Err: err}
			log.Warn("skipping raster", "error", err)
			diag.Record(err)
		} else {
			in.Image = img
		}
	}

	if in.Markup == nil && in.MarkupPath != "" {
		m, err := imagemap.ParseFile(in.MarkupPath)
		if err != nil {
			err = &diagram.InputError{Diagram: in.Name, Input: "markup", Err: err}
			log.Warn("skipping markup", "error", err)
			diag.Record(err)
		} else {
			in.Markup = m
		}
	}
	return in, diag
}

func (p *Processor) emitDebug(in Input, s *diagram.Structure) {
	if p.DebugDir == "" || in.Image == nil {
		return
	}
	ink := imaging.Preprocess(in.Image, p.Preprocess)
	files, err := debugviz.Emit(p.DebugDir, fallback.Key(in.Name), in.Image, ink, s, p.Debug)
	if err != nil {
		logging.Logger().Warn("failed to write debug images", "diagram", in.Name, "error", err)
		return
	}
	logging.Logger().Debug("wrote debug images", "diagram", in.Name, "overlay", files.Overlay)
}
