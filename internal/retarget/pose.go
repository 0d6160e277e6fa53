package retarget

import (
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
)

// RootPosition returns the midpoint of the two center landmarks scaled to
// output units. The origin is returned when either landmark is absent.
func RootPosition(f landmark.Frame, centers [2]int, scale float64) [3]float64 {
	a, b := f.At(centers[0]), f.At(centers[1])
	if a == nil || b == nil {
		return [3]float64{}
	}
	return [3]float64{
		(a.X + b.X) / 2 * scale,
		(a.Y + b.Y) / 2 * scale,
		(a.Z + b.Z) / 2 * scale,
	}
}

// MotionRow derives one BVH motion line for a frame: the root position
// followed by each joint's rotation channels in the hierarchy's walk order.
// The result always has h.ChannelCount() values.
func MotionRow(h *skeleton.Hierarchy, f landmark.Frame) []float64 {
	row := make([]float64, 0, h.ChannelCount())
	pos := RootPosition(f, h.CenterLandmarks(), h.PositionScale())
	row = append(row, pos[:]...)

	order, rest := h.RotationOrder(), h.RestAxis()
	for _, j := range h.Walk() {
		rot := DeriveRotation(f.At(j.From), f.At(j.To), order, rest)
		row = append(row, rot[:]...)
	}
	return row
}
