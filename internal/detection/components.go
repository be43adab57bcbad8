package detection

import (
	"image"

	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// region is a 4-connected area of background pixels.
type region struct {
	bounds        image.Rectangle // half-open
	pixels        int
	touchesBorder bool
}

// enclosedRegions labels the background of b and returns every region that
// does not reach the image border, in row-major order of first pixel.
// Each enclosed region is the interior of some closed outline.
//
// Uses an explicit stack rather than recursion so large interiors cannot
// overflow the goroutine stack.
func enclosedRegions(b *imaging.Binary, minPixels int) []region {
	w, h := b.Width, b.Height
	visited := make([]bool, w*h)
	var out []region
	stack := make([]int, 0, 256)

	for start := 0; start < w*h; start++ {
		if visited[start] || b.Pix[start] {
			continue
		}

		var r region
		minX, minY, maxX, maxY := w, h, -1, -1

		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			r.pixels++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				r.touchesBorder = true
			}

			if x > 0 {
				stack = pushBackground(b, visited, stack, idx-1)
			}
			if x < w-1 {
				stack = pushBackground(b, visited, stack, idx+1)
			}
			if y > 0 {
				stack = pushBackground(b, visited, stack, idx-w)
			}
			if y < h-1 {
				stack = pushBackground(b, visited, stack, idx+w)
			}
		}

		if r.touchesBorder || r.pixels < minPixels {
			continue
		}
		r.bounds = image.Rect(minX, minY, maxX+1, maxY+1)
		out = append(out, r)
	}
	return out
}

func pushBackground(b *imaging.Binary, visited []bool, stack []int, idx int) []int {
	if visited[idx] || b.Pix[idx] {
		return stack
	}
	visited[idx] = true
	return append(stack, idx)
}

// unionFind is a disjoint-set forest over indices 0..n-1.
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

// union joins the sets of a and b, keeping the smaller index as the root so
// grouping does not depend on call order.
func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u[rb] = ra
	} else {
		u[ra] = rb
	}
}
