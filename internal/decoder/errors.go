package decoder

import "fmt"

// InvalidShapeError reports an input whose rank is neither 2 (labels) nor
// 3 (scores).
type InvalidShapeError struct {
	Shape []int64
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("input must be [B, T] (labels, int) or [B, T, V] (scores, float); provided shape = %v", e.Shape)
}

// UnsupportedOperationError reports a decoder configuration the given input
// kind cannot satisfy.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s: %s", e.Op, e.Reason)
}
