package diagram

import (
	"errors"
	"fmt"
)

// Sentinel conditions recorded in Diagnostics. They are never fatal; callers
// may wrap them to carry context and test with errors.Is.
var (
	ErrLowConfidence          = errors.New("low confidence detection")
	ErrUnresolvedRelationship = errors.New("unresolved relationship")
	ErrMergeConflict          = errors.New("merge conflict")
)

// InputError reports an unreadable or degenerate input for one diagram.
type InputError struct {
	Diagram string
	Input   string // "raster" or "markup"
	Err     error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("diagram %q: unreadable %s: %v", e.Diagram, e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// MalformedRegionError reports a markup region whose coordinates cannot be
// decoded. It is reported per region and never aborts the diagram.
type MalformedRegionError struct {
	Index  int
	Coords string
	Reason string
}

func (e *MalformedRegionError) Error() string {
	return fmt.Sprintf("region %d: malformed coords %q: %s", e.Index, e.Coords, e.Reason)
}

// Diagnostics tallies the recoverable conditions met while producing one
// diagram's structure.
type Diagnostics struct {
	LowConfidenceDetection int `json:"low_confidence_detection" yaml:"low_confidence_detection"`
	UnresolvedRelationship int `json:"unresolved_relationship" yaml:"unresolved_relationship"`
	MergeConflict          int `json:"merge_conflict" yaml:"merge_conflict"`
	MalformedRegionError   int `json:"malformed_region_error" yaml:"malformed_region_error"`
	InputError             int `json:"input_error" yaml:"input_error"`
}

// Add returns the element-wise sum of two tallies.
func (d Diagnostics) Add(o Diagnostics) Diagnostics {
	return Diagnostics{
		LowConfidenceDetection: d.LowConfidenceDetection + o.LowConfidenceDetection,
		UnresolvedRelationship: d.UnresolvedRelationship + o.UnresolvedRelationship,
		MergeConflict:          d.MergeConflict + o.MergeConflict,
		MalformedRegionError:   d.MalformedRegionError + o.MalformedRegionError,
		InputError:             d.InputError + o.InputError,
	}
}

// Record increments the counter matching err. Unknown errors are ignored.
func (d *Diagnostics) Record(err error) {
	var inputErr *InputError
	var regionErr *MalformedRegionError
	switch {
	case err == nil:
	case errors.As(err, &regionErr):
		d.MalformedRegionError++
	case errors.As(err, &inputErr):
		d.InputError++
	case errors.Is(err, ErrLowConfidence):
		d.LowConfidenceDetection++
	case errors.Is(err, ErrUnresolvedRelationship):
		d.UnresolvedRelationship++
	case errors.Is(err, ErrMergeConflict):
		d.MergeConflict++
	}
}

// Total returns the number of recorded conditions.
func (d Diagnostics) Total() int {
	return d.LowConfidenceDetection + d.UnresolvedRelationship + d.MergeConflict +
		d.MalformedRegionError + d.InputError
}
