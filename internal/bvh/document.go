// Package bvh builds and writes Biovision Hierarchy animation files from
// recorded landmark frames.
package bvh

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/retarget"
	"github.com/banshee-data/nocap/internal/skeleton"
)

const (
	// Precision is the number of decimals for offsets and motion values.
	Precision = 6
	// FrameTimePrecision is the number of decimals for the frame time.
	FrameTimePrecision = 7
)

var positionChannels = []string{"Xposition", "Yposition", "Zposition"}

// Document is a derived animation ready to be written.
type Document struct {
	Hierarchy *skeleton.Hierarchy
	FrameTime float64
	// Motion holds one row per frame: root position then each joint's
	// rotation channels in walk order.
	Motion [][]float64
}

// Build derives the motion rows for frames. It is pure: identical inputs
// give identical documents.
func Build(h *skeleton.Hierarchy, frames []landmark.Frame, frameRate float64) (*Document, error) {
	if math.IsNaN(frameRate) || math.IsInf(frameRate, 0) || frameRate <= 0 {
		return nil, &FrameRateError{Rate: frameRate}
	}
	if len(frames) == 0 {
		return nil, &EmptyInputError{}
	}
	required := h.RequiredLandmarks()
	for i, f := range frames {
		if len(f) < required {
			return nil, &InsufficientLandmarksError{Frame: i, Have: len(f), Required: required}
		}
	}

	doc := &Document{
		Hierarchy: h,
		FrameTime: 1 / frameRate,
		Motion:    make([][]float64, len(frames)),
	}
	for i, f := range frames {
		doc.Motion[i] = retarget.MotionRow(h, f)
	}
	return doc, nil
}

// Serialize builds a document and returns its BVH encoding.
func Serialize(h *skeleton.Hierarchy, frames []landmark.Frame, frameRate float64) ([]byte, error) {
	doc, err := Build(h, frames, frameRate)
	if err != nil {
		return nil, err
	}
	return doc.Marshal(), nil
}

// Marshal returns the BVH text of the document.
func (d *Document) Marshal() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the BVH text to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	d.writeHierarchy(&sb)
	d.writeMotion(&sb)
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Frames returns the number of motion rows.
func (d *Document) Frames() int { return len(d.Motion) }

// JointChannels returns the rotation channel values of one joint across all
// frames, indexed [frame][channel]. ok is false for unknown joints.
func (d *Document) JointChannels(name string) (values [][3]float64, ok bool) {
	idx := -1
	for i, j := range d.Hierarchy.Walk() {
		if j.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	col := 3 + 3*idx
	values = make([][3]float64, len(d.Motion))
	for i, row := range d.Motion {
		copy(values[i][:], row[col:col+3])
	}
	return values, true
}

// RootPositions returns the root translation of every frame.
func (d *Document) RootPositions() [][3]float64 {
	out := make([][3]float64, len(d.Motion))
	for i, row := range d.Motion {
		copy(out[i][:], row[:3])
	}
	return out
}

func (d *Document) writeHierarchy(sb *strings.Builder) {
	h := d.Hierarchy
	rotation := strings.Join(h.RotationOrder().Channels(), " ")
	rootChannels := strings.Join(positionChannels, " ") + " " + rotation

	sb.WriteString("HIERARCHY\n")
	var write func(j skeleton.JointSpec, depth int)
	write = func(j skeleton.JointSpec, depth int) {
		indent := strings.Repeat("  ", depth)
		if j.IsRoot() {
			sb.WriteString(indent + "ROOT " + j.Name + "\n")
		} else {
			sb.WriteString(indent + "JOINT " + j.Name + "\n")
		}
		sb.WriteString(indent + "{\n")
		sb.WriteString(indent + "  OFFSET " + formatPoint(j.Offset) + "\n")
		if j.IsRoot() {
			sb.WriteString(indent + "  CHANNELS 6 " + rootChannels + "\n")
		} else {
			sb.WriteString(indent + "  CHANNELS 3 " + rotation + "\n")
		}

		children := h.Children(j.Name)
		if len(children) == 0 {
			sb.WriteString(indent + "  End Site\n")
			sb.WriteString(indent + "  {\n")
			sb.WriteString(indent + "    OFFSET " + formatPoint(h.EndSite(j)) + "\n")
			sb.WriteString(indent + "  }\n")
		}
		for _, name := range children {
			child, _ := h.Joint(name)
			write(child, depth+1)
		}
		sb.WriteString(indent + "}\n")
	}
	write(h.Root(), 0)
}

func (d *Document) writeMotion(sb *strings.Builder) {
	sb.WriteString("MOTION\n")
	sb.WriteString("Frames: " + strconv.Itoa(len(d.Motion)) + "\n")
	sb.WriteString("Frame Time: " + formatFixed(d.FrameTime, FrameTimePrecision) + "\n")
	for _, row := range d.Motion {
		for i, v := range row {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatFixed(v, Precision))
		}
		sb.WriteByte('\n')
	}
}

func formatPoint(p landmark.Point3) string {
	return formatFixed(p.X, Precision) + " " + formatFixed(p.Y, Precision) + " " + formatFixed(p.Z, Precision)
}

// formatFixed renders v with a fixed number of decimals. Values that round
// to zero are written without a sign.
func formatFixed(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if s[0] == '-' && strings.Trim(s[1:], "0.") == "" {
		s = s[1:]
	}
	return s
}
