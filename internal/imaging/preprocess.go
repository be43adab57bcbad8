package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// PreprocessOptions tunes the raster-to-bitmap conversion.
type PreprocessOptions struct {
	Background BackgroundOptions

	// BlurRadius is the Gaussian radius applied before thresholding.
	BlurRadius float64

	// ThresholdRadius is the box-filter radius of the local mean used by the
	// adaptive threshold.
	ThresholdRadius float64

	// ThresholdOffset is how much darker than its neighborhood mean a pixel
	// must be to count as ink.
	ThresholdOffset uint8

	// CloseRadius is the morphological closing radius that bridges
	// anti-aliasing gaps in thin strokes. Zero disables closing.
	CloseRadius float64
}

// DefaultPreprocessOptions returns the settings used for rendered diagrams.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		Background:      DefaultBackgroundOptions(),
		BlurRadius:      1,
		ThresholdRadius: 5,
		ThresholdOffset: 4,
		CloseRadius:     1,
	}
}

// Preprocess reduces a diagram raster to a foreground bitmap.
//
// The pipeline is: flatten transparency and light fills to white, convert to
// grayscale, smooth, adaptive-threshold against the local mean, then close
// small gaps. Foreground (true) is ink: outlines, connectors, and glyphs.
//
// The result has the same dimensions as img and does not depend on any state
// outside its arguments.
func Preprocess(img image.Image, opts PreprocessOptions) *Binary {
	bounds := img.Bounds()
	if bounds.Empty() {
		return NewBinary(bounds.Dx(), bounds.Dy())
	}

	flat := FlattenBackground(img, opts.Background)
	gray := effect.Grayscale(flat)

	var smooth image.Image = gray
	if opts.BlurRadius > 0 {
		smooth = blur.Gaussian(gray, opts.BlurRadius)
	}
	mean := blur.Box(smooth, opts.ThresholdRadius)

	w, h := bounds.Dx(), bounds.Dy()
	ink := image.NewGray(image.Rect(0, 0, w, h))
	sb, mb := smooth.Bounds(), mean.Bounds()
	offset := int(opts.ThresholdOffset)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := luma(smooth.At(sb.Min.X+x, sb.Min.Y+y))
			m := luma(mean.At(mb.Min.X+x, mb.Min.Y+y))
			if s+offset < m {
				ink.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	var closed image.Image = ink
	if opts.CloseRadius > 0 {
		closed = effect.Erode(effect.Dilate(ink, opts.CloseRadius), opts.CloseRadius)
	}
	return BinaryFromGray(segment.Threshold(closed, 128), 128)
}

func luma(c color.Color) int {
	return int(color.GrayModel.Convert(c).(color.Gray).Y)
}
