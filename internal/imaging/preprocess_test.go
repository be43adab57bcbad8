package imaging

import (
	"image"
	"image/color"
	"testing"
)

// drawRectOutline draws a 1-pixel outline of the given rectangle.
func drawRectOutline(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestPreprocess_OutlineBecomesInk(t *testing.T) {
	img := solidImage(120, 90, color.White)
	drawRectOutline(img, image.Rect(20, 15, 100, 75), color.Black)

	bin := Preprocess(img, DefaultPreprocessOptions())
	if bin.Width != 120 || bin.Height != 90 {
		t.Fatalf("bitmap size = %dx%d, want 120x90", bin.Width, bin.Height)
	}
	for _, p := range []image.Point{{20, 40}, {99, 40}, {60, 15}, {60, 74}} {
		if !bin.At(p.X, p.Y) {
			t.Errorf("outline pixel %v should be ink", p)
		}
	}
	if bin.At(60, 45) {
		t.Error("box interior should be background")
	}
	if bin.At(5, 5) {
		t.Error("paper should be background")
	}
}

func TestPreprocess_LightFillIsBackground(t *testing.T) {
	img := solidImage(120, 90, color.White)
	fillRect(img, image.Rect(20, 15, 100, 75), color.RGBA{255, 255, 204, 255})
	drawRectOutline(img, image.Rect(20, 15, 100, 75), color.Black)

	bin := Preprocess(img, DefaultPreprocessOptions())
	if bin.At(60, 45) {
		t.Error("pale fill inside a class box should not become ink")
	}
	if !bin.At(20, 45) {
		t.Error("outline should remain ink over a pale fill")
	}
}

func TestPreprocess_TransparentIsBlank(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	bin := Preprocess(img, DefaultPreprocessOptions())
	if bin.Count() != 0 {
		t.Errorf("fully transparent raster produced %d ink pixels", bin.Count())
	}
}

func TestPreprocess_Deterministic(t *testing.T) {
	img := solidImage(80, 60, color.White)
	drawRectOutline(img, image.Rect(10, 10, 70, 50), color.RGBA{40, 40, 40, 255})

	a := Preprocess(img, DefaultPreprocessOptions())
	b := Preprocess(img, DefaultPreprocessOptions())
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("bitmaps differ at index %d", i)
		}
	}
}

func TestPreprocess_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 70, 50))
	fillRect(img, img.Bounds(), color.White)
	drawRectOutline(img, image.Rect(20, 20, 60, 40), color.Black)

	bin := Preprocess(img, DefaultPreprocessOptions())
	if bin.Width != 60 || bin.Height != 40 {
		t.Fatalf("bitmap size = %dx%d, want 60x40", bin.Width, bin.Height)
	}
	if !bin.At(10, 15) {
		t.Error("outline should be translated to bitmap coordinates")
	}
}

func TestPaperColor(t *testing.T) {
	img := solidImage(20, 20, color.RGBA{250, 250, 250, 255})
	fillRect(img, image.Rect(0, 0, 5, 5), color.Black)
	got := PaperColor(img)
	if got.R != 240 || got.G != 240 || got.B != 240 {
		t.Errorf("PaperColor = %v, want quantized #F0F0F0", got)
	}
}

func TestFlattenBackground_DarkPaper(t *testing.T) {
	// Mid-gray paper with black ink.
	img := solidImage(30, 30, color.RGBA{150, 150, 150, 255})
	fillRect(img, image.Rect(10, 10, 12, 20), color.Black)

	flat := FlattenBackground(img, DefaultBackgroundOptions())
	if c := flat.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("paper pixel = %v, want white", c)
	}
	if c := flat.NRGBAAt(10, 15); c.R != 0 {
		t.Errorf("ink pixel = %v, want black", c)
	}
}
