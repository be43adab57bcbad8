package imaging

import (
	"image"
	"image/color"
)

// Binary is a single-channel bitmap where true marks foreground (ink).
//
// Pixels are stored row-major with the origin at the top-left corner.
// Reads outside the bitmap return false, so neighborhood scans never need
// explicit bounds checks.
type Binary struct {
	Width  int
	Height int
	Pix    []bool
}

// NewBinary allocates an all-background bitmap.
func NewBinary(width, height int) *Binary {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Binary{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// BinaryFromGray converts a grayscale image to a bitmap. Pixels with a value
// at or above level become foreground.
func BinaryFromGray(g *image.Gray, level uint8) *Binary {
	bounds := g.Bounds()
	b := NewBinary(bounds.Dx(), bounds.Dy())
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if g.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y >= level {
				b.Pix[y*b.Width+x] = true
			}
		}
	}
	return b
}

// At reports whether (x, y) is foreground. Out-of-range reads return false.
func (b *Binary) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Pix[y*b.Width+x]
}

// Set assigns a pixel. Out-of-range writes are ignored.
func (b *Binary) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Width+x] = v
}

// Count returns the number of foreground pixels.
func (b *Binary) Count() int {
	n := 0
	for _, v := range b.Pix {
		if v {
			n++
		}
	}
	return n
}

// CountIn returns the number of foreground pixels inside r.
func (b *Binary) CountIn(r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if b.At(x, y) {
				n++
			}
		}
	}
	return n
}

// Clone returns an independent copy.
func (b *Binary) Clone() *Binary {
	c := NewBinary(b.Width, b.Height)
	copy(c.Pix, b.Pix)
	return c
}

// Gray renders the bitmap as a grayscale image with foreground in white.
func (b *Binary) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.Pix[y*b.Width+x] {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

// Dilate grows foreground by a square structuring element of side 2r+1.
func (b *Binary) Dilate(r int) *Binary {
	if r <= 0 {
		return b.Clone()
	}
	return b.dilateVertical(r).dilateHorizontalCentered(r)
}

// Erode shrinks foreground by a square structuring element of side 2r+1.
// Pixels outside the bitmap count as background.
func (b *Binary) Erode(r int) *Binary {
	if r <= 0 {
		return b.Clone()
	}
	return b.erodeVertical(r).erodeHorizontalCentered(r)
}

func (b *Binary) dilateHorizontalCentered(r int) *Binary {
	out := NewBinary(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			for d := -r; d <= r; d++ {
				if b.At(x+d, y) {
					out.Pix[y*b.Width+x] = true
					break
				}
			}
		}
	}
	return out
}

func (b *Binary) dilateVertical(r int) *Binary {
	out := NewBinary(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			for d := -r; d <= r; d++ {
				if b.At(x, y+d) {
					out.Pix[y*b.Width+x] = true
					break
				}
			}
		}
	}
	return out
}

func (b *Binary) erodeHorizontalCentered(r int) *Binary {
	out := NewBinary(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			keep := true
			for d := -r; d <= r && keep; d++ {
				keep = b.At(x+d, y)
			}
			out.Pix[y*b.Width+x] = keep
		}
	}
	return out
}

func (b *Binary) erodeVertical(r int) *Binary {
	out := NewBinary(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			keep := true
			for d := -r; d <= r && keep; d++ {
				keep = b.At(x, y+d)
			}
			out.Pix[y*b.Width+x] = keep
		}
	}
	return out
}

// ErodeHorizontal erodes with a 1xk line anchored at its left end: a pixel
// survives only if it and the k-1 pixels to its right are all foreground.
func (b *Binary) ErodeHorizontal(k int) *Binary {
	out := NewBinary(b.Width, b.Height)
	if k <= 0 {
		return out
	}
	for y := 0; y < b.Height; y++ {
		run := 0
		// Scan right-to-left so run counts consecutive foreground at x and beyond.
		for x := b.Width - 1; x >= 0; x-- {
			if b.Pix[y*b.Width+x] {
				run++
			} else {
				run = 0
			}
			out.Pix[y*b.Width+x] = run >= k
		}
	}
	return out
}

// DilateHorizontal dilates with the reflection of the ErodeHorizontal line:
// a foreground pixel at x marks x through x+k-1.
func (b *Binary) DilateHorizontal(k int) *Binary {
	out := NewBinary(b.Width, b.Height)
	if k <= 0 {
		return out
	}
	for y := 0; y < b.Height; y++ {
		remaining := 0
		for x := 0; x < b.Width; x++ {
			if b.Pix[y*b.Width+x] {
				remaining = k
			}
			if remaining > 0 {
				out.Pix[y*b.Width+x] = true
				remaining--
			}
		}
	}
	return out
}

// OpenHorizontal keeps only horizontal foreground runs of at least k pixels.
func (b *Binary) OpenHorizontal(k int) *Binary {
	return b.ErodeHorizontal(k).DilateHorizontal(k)
}

// Runs returns the [start, end) spans of consecutive foreground pixels in row
// y between x0 (inclusive) and x1 (exclusive).
func (b *Binary) Runs(y, x0, x1 int) [][2]int {
	var runs [][2]int
	start := -1
	for x := x0; x < x1; x++ {
		if b.At(x, y) {
			if start < 0 {
				start = x
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, [2]int{start, x})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, x1})
	}
	return runs
}

// Thin reduces foreground strokes to 8-connected skeletons one pixel wide
// (Zhang-Suen). Stroke ends and one-pixel lines are preserved.
func (b *Binary) Thin() *Binary {
	out := b.Clone()
	var del []int
	for changed := true; changed; {
		changed = false
		for pass := 0; pass < 2; pass++ {
			del = del[:0]
			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					if out.Pix[y*out.Width+x] && out.thinnable(x, y, pass) {
						del = append(del, y*out.Width+x)
					}
				}
			}
			for _, i := range del {
				out.Pix[i] = false
			}
			changed = changed || len(del) > 0
		}
	}
	return out
}

// thinnable applies one Zhang-Suen sub-iteration test to the pixel at (x, y).
// Neighbors run clockwise from north: p[0] = N, p[2] = E, p[4] = S, p[6] = W.
func (b *Binary) thinnable(x, y, pass int) bool {
	p := [8]bool{
		b.At(x, y-1), b.At(x+1, y-1), b.At(x+1, y), b.At(x+1, y+1),
		b.At(x, y+1), b.At(x-1, y+1), b.At(x-1, y), b.At(x-1, y-1),
	}
	n, transitions := 0, 0
	for i := range p {
		if p[i] {
			n++
		}
		if !p[i] && p[(i+1)%8] {
			transitions++
		}
	}
	if n < 2 || n > 6 || transitions != 1 {
		return false
	}
	if pass == 0 {
		return !(p[0] && p[2] && p[4]) && !(p[2] && p[4] && p[6])
	}
	return !(p[0] && p[2] && p[6]) && !(p[0] && p[4] && p[6])
}
