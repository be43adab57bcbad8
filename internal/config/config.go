// Package config loads extraction settings from YAML.
//
// Missing values fall back to the built-in defaults, so a config file only
// needs to name the settings it changes. Settings where zero switches a step
// off (blur, closing, dilation, compartment tolerances, divider margin) keep
// an explicit zero; for the rest a zero also means the default.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/uml-structure-mcp/internal/detection"
	"github.com/ironsheep/uml-structure-mcp/internal/fallback"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
	"github.com/ironsheep/uml-structure-mcp/internal/merge"
)

// Config is the top-level extraction configuration.
type Config struct {
	Preprocess    PreprocessConfig   `yaml:"preprocess"`
	Boxes         BoxConfig          `yaml:"boxes"`
	Dividers      DividerConfig      `yaml:"dividers"`
	Relationships RelationshipConfig `yaml:"relationships"`
	Merge         MergeConfig        `yaml:"merge"`
	Fallback      FallbackConfig     `yaml:"fallback"`
	Batch         BatchConfig        `yaml:"batch"`

	// DebugDir receives debug overlays when set. Empty disables them.
	DebugDir string `yaml:"debug_dir"`
}

// PreprocessConfig controls binarization.
type PreprocessConfig struct {
	BackgroundLightness float64 `yaml:"background_lightness"`
	PaperDistance       float64 `yaml:"paper_distance"`
	BlurRadius          float64 `yaml:"blur_radius"`
	ThresholdRadius     float64 `yaml:"threshold_radius"`
	ThresholdOffset     int     `yaml:"threshold_offset"`
	CloseRadius         float64 `yaml:"close_radius"`
}

// BoxConfig controls box detection and filtering.
type BoxConfig struct {
	DilateRadius     int     `yaml:"dilate_radius"`
	MinInterior      int     `yaml:"min_interior"`
	CompartmentGap   int     `yaml:"compartment_gap"`
	CompartmentAlign int     `yaml:"compartment_align"`
	MinArea          int     `yaml:"min_area"`
	MinSide          int     `yaml:"min_side"`
	MaxAspect        float64 `yaml:"max_aspect"`
	MaxImageFraction float64 `yaml:"max_image_fraction"`
	IoUThreshold     float64 `yaml:"iou_threshold"`
	MinBoxes         int     `yaml:"min_boxes"`
}

// DividerConfig controls compartment divider detection.
type DividerConfig struct {
	MinSpanRatio float64 `yaml:"min_span_ratio"`
	BorderMargin int     `yaml:"border_margin"`
	MaxThickness int     `yaml:"max_thickness"`
}

// RelationshipConfig controls segment extraction and endpoint resolution.
type RelationshipConfig struct {
	MinVotes          int     `yaml:"min_votes"`
	MinLength         int     `yaml:"min_length"`
	MaxGap            int     `yaml:"max_gap"`
	MaxLines          int     `yaml:"max_lines"`
	EndpointTolerance float64 `yaml:"endpoint_tolerance"`
}

// MergeConfig controls structure merging.
type MergeConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

// FallbackConfig points at reference data for irregular diagrams.
type FallbackConfig struct {
	// Table is an optional YAML file overlaid on the built-in table.
	Table string `yaml:"table"`

	// Irregular lists extra diagram keys that always use their entry.
	Irregular []string `yaml:"irregular"`
}

// BatchConfig controls batch processing.
type BatchConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a Config with every setting at its default.
func Default() *Config {
	pre := imaging.DefaultPreprocessOptions()
	det := detection.DefaultOptions()
	cfg := &Config{
		Preprocess: PreprocessConfig{
			BlurRadius:      pre.BlurRadius,
			ThresholdOffset: int(pre.ThresholdOffset),
			CloseRadius:     pre.CloseRadius,
		},
		Boxes: BoxConfig{
			DilateRadius:     det.Boxes.DilateRadius,
			CompartmentGap:   det.Boxes.CompartmentGap,
			CompartmentAlign: det.Boxes.CompartmentAlign,
		},
		Dividers: DividerConfig{
			BorderMargin: det.Dividers.BorderMargin,
		},
	}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	pre := imaging.DefaultPreprocessOptions()
	if c.Preprocess.BackgroundLightness <= 0 {
		c.Preprocess.BackgroundLightness = pre.Background.Lightness
	}
	if c.Preprocess.PaperDistance <= 0 {
		c.Preprocess.PaperDistance = pre.Background.PaperDistance
	}
	if c.Preprocess.ThresholdRadius <= 0 {
		c.Preprocess.ThresholdRadius = pre.ThresholdRadius
	}

	det := detection.DefaultOptions()
	if c.Boxes.MinInterior <= 0 {
		c.Boxes.MinInterior = det.Boxes.MinInteriorPixels
	}
	if c.Boxes.MinArea <= 0 {
		c.Boxes.MinArea = det.Boxes.MinArea
	}
	if c.Boxes.MinSide <= 0 {
		c.Boxes.MinSide = det.Boxes.MinSide
	}
	if c.Boxes.MaxAspect <= 0 {
		c.Boxes.MaxAspect = det.Boxes.MaxAspect
	}
	if c.Boxes.MaxImageFraction <= 0 {
		c.Boxes.MaxImageFraction = det.Boxes.MaxAreaFraction
	}
	if c.Boxes.IoUThreshold <= 0 {
		c.Boxes.IoUThreshold = det.Boxes.DuplicateIoU
	}
	if c.Boxes.MinBoxes <= 0 {
		c.Boxes.MinBoxes = det.Boxes.MinBoxes
	}

	if c.Dividers.MinSpanRatio <= 0 {
		c.Dividers.MinSpanRatio = det.Dividers.MinWidthFraction
	}
	if c.Dividers.MaxThickness <= 0 {
		c.Dividers.MaxThickness = det.Dividers.MaxThickness
	}

	if c.Relationships.MinVotes <= 0 {
		c.Relationships.MinVotes = det.Segments.MinVotes
	}
	if c.Relationships.MinLength <= 0 {
		c.Relationships.MinLength = det.Segments.MinLength
	}
	if c.Relationships.MaxGap <= 0 {
		c.Relationships.MaxGap = det.Segments.MaxGap
	}
	if c.Relationships.MaxLines <= 0 {
		c.Relationships.MaxLines = det.Segments.MaxSegments
	}
	if c.Relationships.EndpointTolerance <= 0 {
		c.Relationships.EndpointTolerance = det.Relationships.EndpointTolerance
	}

	if c.Merge.Tolerance <= 0 {
		c.Merge.Tolerance = merge.DefaultOptions().Tolerance
	}

	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 4
	}
	if c.Batch.Timeout <= 0 {
		c.Batch.Timeout = 60 * time.Second
	}
}

// Parse decodes YAML configuration over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Preprocess.BackgroundLightness > 1 {
		return fmt.Errorf("preprocess.background_lightness %v out of range (0, 1]", c.Preprocess.BackgroundLightness)
	}
	if c.Preprocess.ThresholdOffset < 0 || c.Preprocess.ThresholdOffset > 255 {
		return fmt.Errorf("preprocess.threshold_offset %d out of range [0, 255]", c.Preprocess.ThresholdOffset)
	}
	if c.Preprocess.BlurRadius < 0 || c.Preprocess.CloseRadius < 0 {
		return fmt.Errorf("preprocess radii must not be negative (blur %v, close %v)", c.Preprocess.BlurRadius, c.Preprocess.CloseRadius)
	}
	if c.Boxes.DilateRadius < 0 || c.Boxes.CompartmentGap < 0 || c.Boxes.CompartmentAlign < 0 {
		return fmt.Errorf("boxes.dilate_radius, compartment_gap and compartment_align must not be negative")
	}
	if c.Dividers.BorderMargin < 0 {
		return fmt.Errorf("dividers.border_margin %d must not be negative", c.Dividers.BorderMargin)
	}
	if c.Boxes.MaxImageFraction > 1 {
		return fmt.Errorf("boxes.max_image_fraction %v out of range (0, 1]", c.Boxes.MaxImageFraction)
	}
	if c.Boxes.IoUThreshold > 1 {
		return fmt.Errorf("boxes.iou_threshold %v out of range (0, 1]", c.Boxes.IoUThreshold)
	}
	if c.Dividers.MinSpanRatio > 1 {
		return fmt.Errorf("dividers.min_span_ratio %v out of range (0, 1]", c.Dividers.MinSpanRatio)
	}
	return nil
}

// PreprocessOptions returns the binarization settings.
func (c *Config) PreprocessOptions() imaging.PreprocessOptions {
	return imaging.PreprocessOptions{
		Background: imaging.BackgroundOptions{
			Lightness:     c.Preprocess.BackgroundLightness,
			PaperDistance: c.Preprocess.PaperDistance,
		},
		BlurRadius:      c.Preprocess.BlurRadius,
		ThresholdRadius: c.Preprocess.ThresholdRadius,
		ThresholdOffset: uint8(c.Preprocess.ThresholdOffset),
		CloseRadius:     c.Preprocess.CloseRadius,
	}
}

// DetectionOptions returns the detector settings.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()

	opts.Boxes.DilateRadius = c.Boxes.DilateRadius
	opts.Boxes.MinInteriorPixels = c.Boxes.MinInterior
	opts.Boxes.CompartmentGap = c.Boxes.CompartmentGap
	opts.Boxes.CompartmentAlign = c.Boxes.CompartmentAlign
	opts.Boxes.MinArea = c.Boxes.MinArea
	opts.Boxes.MinSide = c.Boxes.MinSide
	opts.Boxes.MaxAspect = c.Boxes.MaxAspect
	opts.Boxes.MaxAreaFraction = c.Boxes.MaxImageFraction
	opts.Boxes.DuplicateIoU = c.Boxes.IoUThreshold
	opts.Boxes.MinBoxes = c.Boxes.MinBoxes

	opts.Dividers.MinWidthFraction = c.Dividers.MinSpanRatio
	opts.Dividers.BorderMargin = c.Dividers.BorderMargin
	opts.Dividers.MaxThickness = c.Dividers.MaxThickness

	opts.Segments.MinVotes = c.Relationships.MinVotes
	opts.Segments.MinLength = c.Relationships.MinLength
	opts.Segments.MaxGap = c.Relationships.MaxGap
	opts.Segments.MaxSegments = c.Relationships.MaxLines
	opts.Relationships.EndpointTolerance = c.Relationships.EndpointTolerance

	return opts
}

// MergeOptions returns the merger settings.
func (c *Config) MergeOptions() merge.Options {
	return merge.Options{Tolerance: c.Merge.Tolerance}
}

// FallbackTable builds the reference table for a batch: the built-in table,
// overlaid with the configured table file, with the configured irregular
// keys marked.
func (c *Config) FallbackTable() (*fallback.Table, error) {
	table := fallback.Default()
	if c.Fallback.Table != "" {
		extra, err := fallback.LoadFile(c.Fallback.Table)
		if err != nil {
			return nil, fmt.Errorf("load fallback table: %w", err)
		}
		table = table.Overlay(extra)
	}
	if len(c.Fallback.Irregular) > 0 {
		table = table.WithIrregular(c.Fallback.Irregular...)
	}
	return table, nil
}
