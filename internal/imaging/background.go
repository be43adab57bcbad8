package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// BackgroundOptions controls how a raster is reduced to ink on white paper.
type BackgroundOptions struct {
	// Lightness is the CIE L* (0..1) at or above which a pixel is paper.
	// Light fills inside class boxes (pale yellow, light gray) fall above it.
	Lightness float64

	// PaperDistance is the CIE Lab distance within which a pixel is treated
	// as the same color as the dominant paper color.
	PaperDistance float64
}

// DefaultBackgroundOptions returns the settings used for rendered diagrams.
func DefaultBackgroundOptions() BackgroundOptions {
	return BackgroundOptions{
		Lightness:     0.86,
		PaperDistance: 0.08,
	}
}

// PaperColor returns the most frequent color of img after quantizing each
// channel to 16 levels. Ties resolve to the lighter bucket so the result is
// stable for images with equal ink and paper coverage.
func PaperColor(img image.Image) color.NRGBA {
	bounds := img.Bounds()
	if bounds.Empty() {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}

	counts := make(map[uint32]int)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				// Transparent pixels are paper once flattened.
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			key := uint32(c.R/16*16)<<16 | uint32(c.G/16*16)<<8 | uint32(c.B/16*16)
			counts[key]++
		}
	}

	var best uint32
	bestCount := -1
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key > best) {
			best, bestCount = key, n
		}
	}
	return color.NRGBA{R: uint8(best >> 16), G: uint8(best >> 8), B: uint8(best), A: 255}
}

// FlattenBackground composites img over opaque white and replaces every
// paper-like pixel with pure white. Ink keeps its original color.
//
// The result always has bounds starting at (0, 0).
func FlattenBackground(img image.Image, opts BackgroundOptions) *image.NRGBA {
	bounds := img.Bounds()
	flat := imaging.Overlay(
		imaging.New(bounds.Dx(), bounds.Dy(), color.White),
		img, image.Pt(0, 0), 1.0,
	)

	paper, _ := colorful.MakeColor(PaperColor(flat))
	paperL, _, _ := paper.Lab()
	usePaper := paperL < opts.Lightness

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	fb := flat.Bounds()
	for y := fb.Min.Y; y < fb.Max.Y; y++ {
		for x := fb.Min.X; x < fb.Max.X; x++ {
			c, ok := colorful.MakeColor(flat.NRGBAAt(x, y))
			if !ok {
				flat.SetNRGBA(x, y, white)
				continue
			}
			l, _, _ := c.Lab()
			if l >= opts.Lightness || (usePaper && c.DistanceLab(paper) <= opts.PaperDistance) {
				flat.SetNRGBA(x, y, white)
			}
		}
	}
	return flat
}
