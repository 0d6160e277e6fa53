// Package landmark defines the per-frame body landmark data produced by a
// pose estimator and the archive format used to store it.
package landmark

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCount is the number of landmarks in the BlazePose topology.
const DefaultCount = 33

// Landmark ids in the BlazePose topology. The numbering is shared with the
// estimator and must not change.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
)

var names = [DefaultCount]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer", "left_ear", "right_ear",
	"mouth_left", "mouth_right", "left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow", "left_wrist", "right_wrist", "left_pinky",
	"right_pinky", "left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee", "left_ankle",
	"right_ankle", "left_heel", "right_heel", "left_foot_index",
	"right_foot_index",
}

// Name returns the BlazePose name of a landmark id, or "landmark_<id>" for
// ids outside the topology.
func Name(id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("landmark_%d", id)
}

// Point3 is a position in estimator world space (meters, y-up).
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns p as a gonum vector.
func (p Point3) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// FromVec converts a gonum vector to a Point3.
func FromVec(v r3.Vec) Point3 {
	return Point3{X: v.X, Y: v.Y, Z: v.Z}
}

// Pt is shorthand for building a present landmark.
func Pt(x, y, z float64) *Point3 {
	return &Point3{X: x, Y: y, Z: z}
}

// Frame is one estimator result: one entry per landmark id, nil when the
// landmark was not detected.
type Frame []*Point3

// At returns the landmark with the given id. Ids outside the frame are
// reported as absent.
func (f Frame) At(id int) *Point3 {
	if id < 0 || id >= len(f) {
		return nil
	}
	return f[id]
}

// Present counts the detected landmarks in the frame.
func (f Frame) Present() int {
	n := 0
	for _, p := range f {
		if p != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	return Normalize(f, len(f))
}

// Normalize returns a deep copy of in with exactly n entries. Missing
// trailing entries are padded as absent and entries past n are dropped.
// The result never aliases the caller's points.
func Normalize(in []*Point3, n int) Frame {
	if n < 0 {
		n = 0
	}
	out := make(Frame, n)
	for i := 0; i < n && i < len(in); i++ {
		if in[i] == nil {
			continue
		}
		p := *in[i]
		out[i] = &p
	}
	return out
}

// CloneFrames deep-copies a frame sequence.
func CloneFrames(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f.Clone()
	}
	return out
}
