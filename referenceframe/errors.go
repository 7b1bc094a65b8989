package referenceframe

import "github.com/pkg/errors"

// ErrTransformUnavailable is returned when no chain of transforms connects two frames
// before the lookup deadline.
var ErrTransformUnavailable = errors.New("transform unavailable")

// NewFrameMissingError returns an error indicating that the given frame is not known.
func NewFrameMissingError(frameName string) error {
	return errors.Errorf("frame with name %q not in frame buffer", frameName)
}

// NewFrameCycleError returns an error indicating that setting a transform would create a cycle.
func NewFrameCycleError(parent, child string) error {
	return errors.Errorf("setting %q as parent of %q would create a cycle", parent, child)
}
