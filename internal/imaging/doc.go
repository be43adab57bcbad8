// Package imaging turns diagram rasters into foreground bitmaps.
//
// It owns everything that touches pixels before structure detection runs:
// decoding and caching rasters, flattening transparency and pale fills to
// white paper, adaptive thresholding, and the binary morphology used by the
// detectors (square dilation and erosion, horizontal line opening).
//
// # Coordinate System
//
// All coordinates are 0-based with the origin at the top-left corner. X grows
// rightward and Y grows downward. A Binary produced by Preprocess always starts
// at (0, 0) regardless of the source image bounds.
//
// # Foreground Convention
//
// In a Binary, true marks ink (outlines, connectors, glyphs) and false marks
// paper. Gray renders ink as white (255) on black.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Preprocess and the Binary operations
// allocate their outputs and never mutate their inputs, so distinct diagrams
// can be processed in parallel.
package imaging
