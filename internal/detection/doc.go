// Package detection recovers class diagram structure from a foreground bitmap.
//
// It provides the geometric stages of extraction:
//
//   - DetectBoxes finds class boxes from the paper regions their outlines
//     enclose, merging stacked compartments into one box.
//   - DetectDividers finds horizontal compartment separators inside boxes.
//   - DetectSegments extracts straight strokes with a Hough line transform.
//   - DetectRelationships attaches segments to pairs of boxes and asks a
//     Classifier for the relationship type.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Determinism
//
// Every stage is a pure function of its inputs. Ties are broken by position
// or ID, never by map iteration order, so the same bitmap always yields the
// same boxes, IDs, dividers and edges.
//
// # Limitations
//
// These algorithms work best on clean rendered diagrams with axis-aligned
// boxes and straight connectors. Orthogonal connectors with bends are split
// into separate segments and only the leg touching two boxes is kept.
// Relationship types are best-effort.
package detection
