// Package debugviz renders debug images for an extracted structure: the
// binarized ink and an annotated overlay of boxes, dividers and
// relationships on the source raster.
//
// Rendering happens after extraction and never feeds back into it.
package debugviz

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	bin "github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// Options controls overlay rendering.
type Options struct {
	// GridSpacing draws a coordinate grid every GridSpacing pixels.
	// Zero disables the grid.
	GridSpacing int

	BoxColor          string
	DividerColor      string
	RelationshipColor string
	GridColor         string
}

// DefaultOptions returns the default overlay colors with a 100px grid.
func DefaultOptions() Options {
	return Options{
		GridSpacing:       100,
		BoxColor:          "#E02020",
		DividerColor:      "#2060E0",
		RelationshipColor: "#20A040",
		GridColor:         "#80808060",
	}
}

// Overlay draws s over img.
func Overlay(img image.Image, s *diagram.Structure, opts Options) image.Image {
	bounds := img.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)

	if opts.GridSpacing > 0 {
		drawGrid(dc, opts.GridSpacing, parseHexColor(opts.GridColor, color.RGBA{128, 128, 128, 96}))
	}
	if s == nil {
		return dc.Image()
	}

	dc.SetColor(parseHexColor(opts.RelationshipColor, color.RGBA{32, 160, 64, 255}))
	dc.SetLineWidth(2)
	for _, e := range s.Relationships {
		sx, sy := float64(e.SourcePoint.X), float64(e.SourcePoint.Y)
		tx, ty := float64(e.TargetPoint.X), float64(e.TargetPoint.Y)
		dc.DrawLine(sx, sy, tx, ty)
		dc.Stroke()
		dc.DrawCircle(tx, ty, 3)
		dc.Fill()
		dc.DrawStringAnchored(string(e.Type), (sx+tx)/2, (sy+ty)/2, 0.5, 0.5)
	}

	dc.SetColor(parseHexColor(opts.DividerColor, color.RGBA{32, 96, 224, 255}))
	dc.SetLineWidth(1)
	for _, d := range s.Dividers {
		y := float64(d.Y) + 0.5
		dc.DrawLine(float64(d.X), y, float64(d.X+d.Width), y)
		dc.Stroke()
	}

	boxColor := parseHexColor(opts.BoxColor, color.RGBA{224, 32, 32, 255})
	for _, b := range s.Boxes {
		dc.SetColor(boxColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(b.X), float64(b.Y), float64(b.Width), float64(b.Height))
		dc.Stroke()

		label := strconv.Itoa(b.ID)
		if name := s.NameOf(b.ID); name != "" {
			label += " " + name
		}
		drawLabel(dc, label, float64(b.X)+3, float64(b.Y)+3, boxColor)
	}

	return dc.Image()
}

func drawGrid(dc *gg.Context, spacing int, c color.Color) {
	w, h := dc.Width(), dc.Height()
	dc.SetColor(c)
	dc.SetLineWidth(1)
	for x := spacing; x < w; x += spacing {
		dc.DrawLine(float64(x)+0.5, 0, float64(x)+0.5, float64(h))
	}
	for y := spacing; y < h; y += spacing {
		dc.DrawLine(0, float64(y)+0.5, float64(w), float64(y)+0.5)
	}
	dc.Stroke()

	for y := spacing; y < h; y += spacing {
		for x := spacing; x < w; x += spacing {
			drawLabel(dc, fmt.Sprintf("%d,%d", x, y), float64(x)+2, float64(y)+2, c)
		}
	}
}

// drawLabel writes text with its top-left corner at (x, y) on a light
// backing so it stays legible over ink.
func drawLabel(dc *gg.Context, text string, x, y float64, fg color.Color) {
	w, h := dc.MeasureString(text)
	dc.SetColor(color.RGBA{255, 255, 255, 200})
	dc.DrawRectangle(x-1, y-1, w+2, h+3)
	dc.Fill()
	dc.SetColor(fg)
	dc.DrawStringAnchored(text, x, y, 0, 1)
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA", returning def when hex is
// empty or invalid.
func parseHexColor(hex string, def color.RGBA) color.RGBA {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return def
		}
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return def
		}
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}
	default:
		return def
	}
}

// Files names the images written by Emit.
type Files struct {
	Binary  string `json:"binary,omitempty"`
	Overlay string `json:"overlay"`
}

// Emit writes the debug images for one diagram into dir, creating it if
// needed. ink may be nil when the structure did not come from the raster.
func Emit(dir, name string, img image.Image, ink *bin.Binary, s *diagram.Structure, opts Options) (Files, error) {
	var files Files
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return files, fmt.Errorf("failed to create debug directory: %w", err)
	}

	if ink != nil {
		files.Binary = filepath.Join(dir, name+"_binary.png")
		if err := imaging.Save(ink.Gray(), files.Binary); err != nil {
			return files, fmt.Errorf("failed to save binary image: %w", err)
		}
	}

	files.Overlay = filepath.Join(dir, name+"_overlay.png")
	if err := imaging.Save(Overlay(img, s, opts), files.Overlay); err != nil {
		return files, fmt.Errorf("failed to save overlay: %w", err)
	}
	return files, nil
}
