// Package synthetic generates landmark frames of a walking figure for demos
// and tests.
package synthetic

import (
	"math"
	"math/rand"
	"sync"

	"github.com/banshee-data/nocap/internal/landmark"
)

// Walker produces BlazePose frames of a figure walking along +Z. Output is
// deterministic for a given configuration and seed.
type Walker struct {
	mu    sync.Mutex
	frame int
	rng   *rand.Rand

	// Configuration
	FrameRate   float64 // frames per second
	StrideHz    float64 // full gait cycles per second
	SpeedMPS    float64 // forward speed, metres per second
	Height      float64 // metres, ground to nose
	Jitter      float64 // metres, uniform noise added to each coordinate
	DropoutRate float64 // probability that a landmark is reported absent
	Limit       int     // frames to emit; 0 is unbounded
}

// NewWalker creates a walker with a 1.7 m figure at a relaxed pace.
func NewWalker(seed int64) *Walker {
	return &Walker{
		rng:       rand.New(rand.NewSource(seed)),
		FrameRate: 30,
		StrideHz:  0.9,
		SpeedMPS:  1.2,
		Height:    1.7,
	}
}

// Next implements recording.FrameSource.
func (w *Walker) Next() ([]*landmark.Point3, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Limit > 0 && w.frame >= w.Limit {
		return nil, false
	}
	f := w.poseAt(float64(w.frame) / w.FrameRate)
	w.frame++
	w.perturb(f)
	return f, true
}

// Frames returns the next n frames as a recording would store them.
func (w *Walker) Frames(n int) []landmark.Frame {
	out := make([]landmark.Frame, 0, n)
	for i := 0; i < n; i++ {
		f, ok := w.Next()
		if !ok {
			break
		}
		out = append(out, f)
	}
	return out
}

// Pose returns the noise-free pose at time t seconds.
func (w *Walker) Pose(t float64) landmark.Frame {
	return w.poseAt(t)
}

func (w *Walker) perturb(f landmark.Frame) {
	for i, p := range f {
		if w.DropoutRate > 0 && w.rng.Float64() < w.DropoutRate {
			f[i] = nil
			continue
		}
		if w.Jitter > 0 {
			p.X += (w.rng.Float64()*2 - 1) * w.Jitter
			p.Y += (w.rng.Float64()*2 - 1) * w.Jitter
			p.Z += (w.rng.Float64()*2 - 1) * w.Jitter
		}
	}
}

// poseAt lays out the 33 landmarks with proportions scaled from Height.
func (w *Walker) poseAt(t float64) landmark.Frame {
	s := w.Height / 1.7
	phase := 2 * math.Pi * w.StrideHz * t
	swing := math.Sin(phase)
	lift := math.Max(0, math.Sin(phase))
	liftR := math.Max(0, -math.Sin(phase))
	z0 := w.SpeedMPS * t
	bob := 0.02 * s * math.Abs(math.Cos(phase))

	f := make(landmark.Frame, landmark.DefaultCount)
	set := func(id int, x, y, z float64) {
		f[id] = &landmark.Point3{X: x * s, Y: y*s + bob, Z: z*s + z0}
	}

	// Head
	set(landmark.Nose, 0, 1.70, 0.10)
	set(landmark.LeftEyeInner, 0.015, 1.73, 0.09)
	set(landmark.LeftEye, 0.03, 1.73, 0.09)
	set(landmark.LeftEyeOuter, 0.045, 1.73, 0.085)
	set(landmark.RightEyeInner, -0.015, 1.73, 0.09)
	set(landmark.RightEye, -0.03, 1.73, 0.09)
	set(landmark.RightEyeOuter, -0.045, 1.73, 0.085)
	set(landmark.LeftEar, 0.075, 1.71, 0.0)
	set(landmark.RightEar, -0.075, 1.71, 0.0)
	set(landmark.MouthLeft, 0.025, 1.66, 0.09)
	set(landmark.MouthRight, -0.025, 1.66, 0.09)

	// Arms swing opposite to the legs.
	arm := 0.25 * swing
	set(landmark.LeftShoulder, 0.19, 1.45, 0)
	set(landmark.RightShoulder, -0.19, 1.45, 0)
	set(landmark.LeftElbow, 0.22, 1.17, -arm)
	set(landmark.RightElbow, -0.22, 1.17, arm)
	set(landmark.LeftWrist, 0.23, 0.92, -1.6*arm+0.05)
	set(landmark.RightWrist, -0.23, 0.92, 1.6*arm+0.05)
	set(landmark.LeftPinky, 0.24, 0.85, -1.7*arm+0.05)
	set(landmark.RightPinky, -0.24, 0.85, 1.7*arm+0.05)
	set(landmark.LeftIndex, 0.23, 0.84, -1.7*arm+0.07)
	set(landmark.RightIndex, -0.23, 0.84, 1.7*arm+0.07)
	set(landmark.LeftThumb, 0.21, 0.87, -1.6*arm+0.08)
	set(landmark.RightThumb, -0.21, 0.87, 1.6*arm+0.08)

	// Legs
	leg := 0.3 * swing
	set(landmark.LeftHip, 0.1, 0.95, 0)
	set(landmark.RightHip, -0.1, 0.95, 0)
	set(landmark.LeftKnee, 0.1, 0.52+0.05*lift, 0.5*leg+0.08*lift)
	set(landmark.RightKnee, -0.1, 0.52+0.05*liftR, -0.5*leg+0.08*liftR)
	set(landmark.LeftAnkle, 0.1, 0.08+0.1*lift, leg)
	set(landmark.RightAnkle, -0.1, 0.08+0.1*liftR, -leg)
	set(landmark.LeftHeel, 0.1, 0.04+0.1*lift, leg-0.06)
	set(landmark.RightHeel, -0.1, 0.04+0.1*liftR, -leg-0.06)
	set(landmark.LeftFootIndex, 0.1, 0.01+0.1*lift, leg+0.16)
	set(landmark.RightFootIndex, -0.1, 0.01+0.1*liftR, -leg+0.16)
	return f
}
