package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestBinary_SetAt(t *testing.T) {
	b := NewBinary(5, 4)
	b.Set(2, 3, true)
	b.Set(-1, 0, true) // ignored
	b.Set(5, 0, true)  // ignored

	if !b.At(2, 3) {
		t.Error("At(2,3) should be foreground")
	}
	if b.At(-1, 0) || b.At(0, 4) {
		t.Error("out-of-range reads must be background")
	}
	if b.Count() != 1 {
		t.Errorf("Count = %d, want 1", b.Count())
	}
}

func TestBinary_DilateErode(t *testing.T) {
	b := NewBinary(9, 9)
	b.Set(4, 4, true)

	d := b.Dilate(1)
	if d.Count() != 9 {
		t.Errorf("dilated single pixel count = %d, want 9", d.Count())
	}
	if !d.At(3, 3) || !d.At(5, 5) || d.At(2, 4) {
		t.Error("dilation should produce a 3x3 square centred on (4,4)")
	}

	e := d.Erode(1)
	if e.Count() != 1 || !e.At(4, 4) {
		t.Errorf("erode(dilate(p)) should restore the pixel, got count %d", e.Count())
	}

	if b.Dilate(0).Count() != 1 {
		t.Error("radius 0 dilation should copy")
	}
}

func TestBinary_ErodeTreatsOutsideAsBackground(t *testing.T) {
	b := NewBinary(3, 3)
	for i := range b.Pix {
		b.Pix[i] = true
	}
	e := b.Erode(1)
	if e.Count() != 1 || !e.At(1, 1) {
		t.Errorf("only the centre should survive, got count %d", e.Count())
	}
}

func TestBinary_OpenHorizontal(t *testing.T) {
	b := NewBinary(30, 3)
	for x := 2; x < 22; x++ {
		b.Set(x, 0, true) // 20-pixel run
	}
	for x := 5; x < 10; x++ {
		b.Set(x, 1, true) // 5-pixel run
	}
	b.Set(15, 2, true)

	open := b.OpenHorizontal(10)
	for x := 2; x < 22; x++ {
		if !open.At(x, 0) {
			t.Fatalf("long run lost pixel at x=%d", x)
		}
	}
	if open.At(1, 0) || open.At(22, 0) {
		t.Error("opening must not extend the run")
	}
	if open.Count() != 20 {
		t.Errorf("Count = %d, want 20 (short runs removed)", open.Count())
	}
}

func TestBinary_Runs(t *testing.T) {
	b := NewBinary(12, 1)
	for _, x := range []int{0, 1, 2, 6, 7, 11} {
		b.Set(x, 0, true)
	}
	runs := b.Runs(0, 0, 12)
	want := [][2]int{{0, 3}, {6, 8}, {11, 12}}
	if len(runs) != len(want) {
		t.Fatalf("runs = %v, want %v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("run %d = %v, want %v", i, runs[i], want[i])
		}
	}
}

func TestBinaryFromGrayRoundTrip(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	g.SetGray(1, 2, color.Gray{Y: 200})
	g.SetGray(3, 3, color.Gray{Y: 100})

	b := BinaryFromGray(g, 128)
	if !b.At(1, 2) || b.At(3, 3) {
		t.Error("threshold at 128 misclassified pixels")
	}
	back := b.Gray()
	if back.GrayAt(1, 2).Y != 255 || back.GrayAt(3, 3).Y != 0 {
		t.Error("Gray should render foreground white and background black")
	}
}

func TestBinary_CountIn(t *testing.T) {
	b := NewBinary(10, 10)
	b.Set(2, 2, true)
	b.Set(8, 8, true)
	if n := b.CountIn(image.Rect(0, 0, 5, 5)); n != 1 {
		t.Errorf("CountIn = %d, want 1", n)
	}
}

func TestBinary_Thin(t *testing.T) {
	t.Run("thick stroke", func(t *testing.T) {
		b := NewBinary(60, 20)
		for y := 8; y <= 10; y++ {
			for x := 5; x <= 54; x++ {
				b.Set(x, y, true)
			}
		}

		thin := b.Thin()
		for x := 8; x <= 51; x++ {
			n := 0
			for y := 0; y < 20; y++ {
				if thin.At(x, y) {
					n++
				}
			}
			if n != 1 {
				t.Fatalf("column %d has %d skeleton pixels, want 1", x, n)
			}
			if !thin.At(x, 9) {
				t.Fatalf("skeleton at column %d is off the stroke center", x)
			}
		}
	})

	t.Run("one-pixel lines survive", func(t *testing.T) {
		b := NewBinary(40, 40)
		for i := 5; i < 35; i++ {
			b.Set(i, 5, true)   // horizontal
			b.Set(i, i+3, true) // diagonal
		}
		before := b.Count()
		if got := b.Thin().Count(); got != before {
			t.Errorf("Thin removed %d pixels from one-pixel lines", before-got)
		}
	})

	t.Run("blank", func(t *testing.T) {
		if NewBinary(10, 10).Thin().Count() != 0 {
			t.Error("blank bitmap gained foreground")
		}
	})
}
