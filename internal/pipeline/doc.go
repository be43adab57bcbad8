// Package pipeline turns diagram inputs into canonical structures.
//
// A diagram may be described by a raster, by imagemap markup, or both. Each
// description is read by a Source; the structures they produce are handed
// to the merger, which picks the authoritative one by precedence alone.
//
//	raster ──► GeometricSource ─┐
//	                            ├─► merge.Merge ─► canonical structure
//	markup ──► ImagemapSource ──┘
//
// Within the geometric source the stages run in order: preprocess, detect
// boxes, then detect dividers and relationships concurrently, then apply any
// fallback entry. Every stage is a pure function of its inputs, so diagrams
// can be processed in parallel without coordination; Batch does exactly that
// with a worker limit and a per-diagram timeout.
//
// Debug images are written after a structure is final and only when a debug
// directory is configured. Failing to write them is logged and otherwise
// ignored.
package pipeline
