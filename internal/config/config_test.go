package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/uml-structure-mcp/internal/detection"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefaultMatchesPackageDefaults(t *testing.T) {
	cfg := Default()

	if got, want := cfg.PreprocessOptions(), imaging.DefaultPreprocessOptions(); got != want {
		t.Errorf("PreprocessOptions() = %+v, want %+v", got, want)
	}
	if got, want := cfg.DetectionOptions(), detection.DefaultOptions(); got != want {
		t.Errorf("DetectionOptions() = %+v, want %+v", got, want)
	}
	if cfg.MergeOptions().Tolerance != 30 {
		t.Errorf("merge tolerance = %v, want 30", cfg.MergeOptions().Tolerance)
	}
	if cfg.Batch.Workers != 4 || cfg.Batch.Timeout != time.Minute {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	if cfg.DebugDir != "" {
		t.Errorf("DebugDir = %q, want empty", cfg.DebugDir)
	}
}

func TestParseOverridesOnlyNamedSettings(t *testing.T) {
	cfg, err := Parse([]byte(`
boxes:
  min_area: 900
  min_boxes: 3
relationships:
  endpoint_tolerance: 20
merge:
  tolerance: 45
batch:
  timeout: 5s
debug_dir: /tmp/debug
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	det := cfg.DetectionOptions()
	if det.Boxes.MinArea != 900 || det.Boxes.MinBoxes != 3 {
		t.Errorf("boxes = %+v", det.Boxes)
	}
	if det.Boxes.MinSide != detection.DefaultBoxOptions().MinSide {
		t.Errorf("MinSide = %d, want default", det.Boxes.MinSide)
	}
	if det.Relationships.EndpointTolerance != 20 {
		t.Errorf("EndpointTolerance = %v, want 20", det.Relationships.EndpointTolerance)
	}
	if cfg.MergeOptions().Tolerance != 45 {
		t.Errorf("merge tolerance = %v, want 45", cfg.MergeOptions().Tolerance)
	}
	if cfg.Batch.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Batch.Timeout)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Batch.Workers)
	}
	if cfg.DebugDir != "/tmp/debug" {
		t.Errorf("DebugDir = %q", cfg.DebugDir)
	}
}

func TestParseKeepsExplicitZero(t *testing.T) {
	cfg, err := Parse([]byte(`
preprocess:
  blur_radius: 0
  close_radius: 0
  threshold_offset: 0
boxes:
  dilate_radius: 0
  compartment_gap: 0
  min_area: 0
dividers:
  border_margin: 0
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	pre := cfg.PreprocessOptions()
	if pre.BlurRadius != 0 || pre.CloseRadius != 0 || pre.ThresholdOffset != 0 {
		t.Errorf("preprocess = %+v, want blur, closing and offset off", pre)
	}
	det := cfg.DetectionOptions()
	if det.Boxes.DilateRadius != 0 || det.Boxes.CompartmentGap != 0 {
		t.Errorf("boxes = %+v, want no dilation and no compartment gap", det.Boxes)
	}
	if det.Dividers.BorderMargin != 0 {
		t.Errorf("BorderMargin = %d, want 0", det.Dividers.BorderMargin)
	}

	// A zero minimum area is meaningless and still means the default.
	if det.Boxes.MinArea != detection.DefaultBoxOptions().MinArea {
		t.Errorf("MinArea = %d, want default", det.Boxes.MinArea)
	}
	// Settings left out keep their defaults.
	if det.Boxes.CompartmentAlign != detection.DefaultBoxOptions().CompartmentAlign {
		t.Errorf("CompartmentAlign = %d, want default", det.Boxes.CompartmentAlign)
	}
	if pre.ThresholdRadius != imaging.DefaultPreprocessOptions().ThresholdRadius {
		t.Errorf("ThresholdRadius = %v, want default", pre.ThresholdRadius)
	}
}

func TestParseRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"lightness", "preprocess: {background_lightness: 1.5}", "background_lightness"},
		{"offset", "preprocess: {threshold_offset: 300}", "threshold_offset"},
		{"image fraction", "boxes: {max_image_fraction: 2}", "max_image_fraction"},
		{"iou", "boxes: {iou_threshold: 1.1}", "iou_threshold"},
		{"span", "dividers: {min_span_ratio: 3}", "min_span_ratio"},
		{"negative close", "preprocess: {close_radius: -1}", "close"},
		{"negative offset", "preprocess: {threshold_offset: -2}", "threshold_offset"},
		{"negative dilate", "boxes: {dilate_radius: -1}", "dilate_radius"},
		{"negative margin", "dividers: {border_margin: -3}", "border_margin"},
		{"syntax", "boxes: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "batch:\n  workers: 2\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Batch.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Batch.Workers)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() on missing file expected error")
	}
}

func TestFallbackTable(t *testing.T) {
	t.Run("built-in", func(t *testing.T) {
		table, err := Default().FallbackTable()
		if err != nil {
			t.Fatalf("FallbackTable() error = %v", err)
		}
		if !table.Irregular("term") || !table.Irregular("assignment") {
			t.Errorf("built-in keys = %v", table.Keys())
		}
	})

	t.Run("overlay and irregular", func(t *testing.T) {
		path := writeFile(t, "fallback.yaml", `
diagrams:
  block:
    boxes:
      - {x: 0, y: 0, width: 100, height: 80, name: oaBlock}
      - {x: 0, y: 200, width: 100, height: 80, name: oaInst}
    relationships:
      - {source: 0, target: 1}
`)
		cfg := Default()
		cfg.Fallback.Table = path
		cfg.Fallback.Irregular = []string{"Block.png"}

		table, err := cfg.FallbackTable()
		if err != nil {
			t.Fatalf("FallbackTable() error = %v", err)
		}
		if table.Len() != 3 {
			t.Errorf("Len() = %d, want 3", table.Len())
		}
		if !table.Irregular("block") {
			t.Error("block should be marked irregular")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := Default()
		cfg.Fallback.Table = filepath.Join(t.TempDir(), "none.yaml")
		if _, err := cfg.FallbackTable(); err == nil {
			t.Error("FallbackTable() expected error")
		}
	})
}
