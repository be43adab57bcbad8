package detection

import (
	"math"

	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// strokeRect draws a 1-pixel outline with top-left (x, y) and the given size.
func strokeRect(b *imaging.Binary, x, y, w, h int) {
	for i := x; i < x+w; i++ {
		b.Set(i, y, true)
		b.Set(i, y+h-1, true)
	}
	for j := y; j < y+h; j++ {
		b.Set(x, j, true)
		b.Set(x+w-1, j, true)
	}
}

// strokeLine draws a 1-pixel line between two points, endpoints included.
func strokeLine(b *imaging.Binary, x0, y0, x1, y1 int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		b.Set(x0, y0, true)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		b.Set(x, y, true)
	}
}

// scenarioA draws two stacked boxes joined by a vertical connector:
// boxes at (10,10,100,60) and (10,120,100,60), connector (60,70)-(60,119).
func scenarioA() *imaging.Binary {
	b := imaging.NewBinary(140, 200)
	strokeRect(b, 10, 10, 100, 60)
	strokeRect(b, 10, 120, 100, 60)
	strokeLine(b, 60, 70, 60, 119)
	return b
}
