package detection

import (
	"math"

	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
)

// DividerOptions tunes compartment divider detection.
type DividerOptions struct {
	// MinWidthFraction is the share of the box width a horizontal run must
	// cover to count as a divider.
	MinWidthFraction float64

	// BorderMargin excludes runs starting within this many pixels of the
	// box top or ending within this many pixels of its bottom; those are the
	// box outline.
	BorderMargin int

	// MaxThickness rejects bands of rows thicker than this (filled areas).
	MaxThickness int
}

// DefaultDividerOptions returns settings suited to rendered diagrams.
func DefaultDividerOptions() DividerOptions {
	return DividerOptions{
		MinWidthFraction: 0.8,
		BorderMargin:     3,
		MaxThickness:     6,
	}
}

// DetectDividers finds horizontal compartment separators inside each box.
//
// Each box region is opened with a horizontal line of MinWidthFraction of
// the box width, which erases text and short strokes and keeps only rows
// crossing most of the box. Consecutive surviving rows form one divider.
// Dividers are returned in box order, top to bottom, numbered from 0.
func DetectDividers(ink *imaging.Binary, boxes []diagram.Box, opts DividerOptions) []diagram.DividerLine {
	out := make([]diagram.DividerLine, 0)
	for _, box := range boxes {
		for _, d := range boxDividers(ink, box, opts) {
			d.ID = len(out)
			out = append(out, d)
		}
	}
	return out
}

func boxDividers(ink *imaging.Binary, box diagram.Box, opts DividerOptions) []diagram.DividerLine {
	if box.Width <= 0 || box.Height <= 0 {
		return nil
	}
	crop := imaging.NewBinary(box.Width, box.Height)
	for y := 0; y < box.Height; y++ {
		for x := 0; x < box.Width; x++ {
			if ink.At(box.X+x, box.Y+y) {
				crop.Pix[y*box.Width+x] = true
			}
		}
	}

	k := int(math.Ceil(opts.MinWidthFraction * float64(box.Width)))
	if k < 1 {
		k = 1
	}
	open := crop.OpenHorizontal(k)

	var found []diagram.DividerLine
	y := 0
	for y < box.Height {
		if !rowHasInk(open, y) {
			y++
			continue
		}
		top := y
		x0, x1 := box.Width, 0
		for y < box.Height && rowHasInk(open, y) {
			for _, run := range open.Runs(y, 0, box.Width) {
				if run[0] < x0 {
					x0 = run[0]
				}
				if run[1] > x1 {
					x1 = run[1]
				}
			}
			y++
		}
		bottom := y - 1

		if top <= opts.BorderMargin || bottom >= box.Height-1-opts.BorderMargin {
			continue
		}
		if bottom-top+1 > opts.MaxThickness {
			continue
		}
		found = append(found, diagram.DividerLine{
			BoxID:  box.ID,
			X:      box.X + x0,
			Y:      box.Y + top,
			Width:  x1 - x0,
			Height: bottom - top + 1,
			RelY:   top,
		})
	}
	return found
}

func rowHasInk(b *imaging.Binary, y int) bool {
	row := b.Pix[y*b.Width : (y+1)*b.Width]
	for _, v := range row {
		if v {
			return true
		}
	}
	return false
}
