package bvh

import "fmt"

// EmptyInputError is returned when an export is attempted on zero frames.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "bvh: no frames to export"
}

// InsufficientLandmarksError is returned when a frame has fewer landmarks
// than the skeleton reads from.
type InsufficientLandmarksError struct {
	Frame    int
	Have     int
	Required int
}

func (e *InsufficientLandmarksError) Error() string {
	return fmt.Sprintf("bvh: frame %d has %d landmarks, skeleton needs %d", e.Frame, e.Have, e.Required)
}

// FrameRateError is returned for a frame rate that is not a positive finite
// number.
type FrameRateError struct {
	Rate float64
}

func (e *FrameRateError) Error() string {
	return fmt.Sprintf("bvh: invalid frame rate %v", e.Rate)
}
