// Package diagram defines the structural model extracted from class diagrams.
//
// A Structure holds the boxes (one per class), the horizontal compartment
// dividers inside those boxes, and the relationship edges that connect two
// distinct boxes. Structures are produced once per detection pass and are
// never mutated afterwards; merging and fallback substitution always build a
// new Structure.
//
// # Referential Invariants
//
// Every DividerLine.BoxID and every RelationshipEdge endpoint references a Box
// ID present in the same Structure, and a RelationshipEdge never connects a box
// to itself. Validate reports the first violation found.
//
// # Coordinate System
//
// Pixel coordinates follow the image convention used across this module:
// origin at the top-left, X rightward, Y downward. A Box covers the half-open
// rectangle [X, X+Width) x [Y, Y+Height).
package diagram
