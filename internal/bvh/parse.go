package bvh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/nocap/internal/landmark"
)

// ParsedJoint is one joint read back from a BVH header.
type ParsedJoint struct {
	Name     string
	Parent   string
	Offset   landmark.Point3
	Channels []string
	EndSite  *landmark.Point3
}

// Parsed is a BVH file read back into memory. Joints are in file order,
// which for files written by this package is the pre-order walk.
type Parsed struct {
	Joints    []ParsedJoint
	FrameTime float64
	Motion    [][]float64
}

// ChannelCount is the total number of channels declared in the header.
func (p *Parsed) ChannelCount() int {
	n := 0
	for _, j := range p.Joints {
		n += len(j.Channels)
	}
	return n
}

// JointNames returns the joint names in file order.
func (p *Parsed) JointNames() []string {
	out := make([]string, len(p.Joints))
	for i, j := range p.Joints {
		out[i] = j.Name
	}
	return out
}

// Parse reads a BVH file. It checks the brace structure, the frame count and
// that every motion line has one value per declared channel.
func Parse(r io.Reader) (*Parsed, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	p := &Parsed{}
	var (
		stack     []int // indices into p.Joints; -1 marks an End Site block
		pending   = -2  // node opened by the next "{"
		lineNo    int
		inMotion  bool
		frames    = -1
		frameTime bool
	)

	fail := func(format string, args ...any) error {
		return fmt.Errorf("bvh: line %d: %s", lineNo, fmt.Sprintf(format, args...))
	}

	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		if inMotion {
			switch {
			case fields[0] == "Frames:":
				if len(fields) != 2 {
					return nil, fail("malformed frame count")
				}
				n, err := strconv.Atoi(fields[1])
				if err != nil || n < 0 {
					return nil, fail("invalid frame count %q", fields[1])
				}
				frames = n
			case fields[0] == "Frame" && len(fields) == 3 && fields[1] == "Time:":
				v, err := strconv.ParseFloat(fields[2], 64)
				if err != nil {
					return nil, fail("invalid frame time %q", fields[2])
				}
				p.FrameTime = v
				frameTime = true
			default:
				if !frameTime {
					return nil, fail("motion data before frame time")
				}
				row := make([]float64, len(fields))
				for i, f := range fields {
					v, err := strconv.ParseFloat(f, 64)
					if err != nil {
						return nil, fail("invalid motion value %q", f)
					}
					row[i] = v
				}
				if len(row) != p.ChannelCount() {
					return nil, fail("motion line has %d values, header declares %d channels", len(row), p.ChannelCount())
				}
				p.Motion = append(p.Motion, row)
			}
			continue
		}

		switch fields[0] {
		case "HIERARCHY":
		case "ROOT", "JOINT":
			if len(fields) != 2 {
				return nil, fail("%s without a name", fields[0])
			}
			if fields[0] == "ROOT" && len(p.Joints) > 0 {
				return nil, fail("multiple roots")
			}
			j := ParsedJoint{Name: fields[1]}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				if parent < 0 {
					return nil, fail("joint inside End Site")
				}
				j.Parent = p.Joints[parent].Name
			}
			p.Joints = append(p.Joints, j)
			pending = len(p.Joints) - 1
		case "End":
			pending = -1
		case "{":
			if pending == -2 {
				return nil, fail("unexpected {")
			}
			stack = append(stack, pending)
			pending = -2
		case "}":
			if len(stack) == 0 {
				return nil, fail("unbalanced }")
			}
			stack = stack[:len(stack)-1]
		case "OFFSET":
			if len(stack) == 0 || len(fields) != 4 {
				return nil, fail("malformed OFFSET")
			}
			var xyz [3]float64
			for i := range xyz {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fail("invalid offset %q", fields[i+1])
				}
				xyz[i] = v
			}
			pt := landmark.Point3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
			if top := stack[len(stack)-1]; top >= 0 {
				p.Joints[top].Offset = pt
			} else {
				owner := stack[len(stack)-2]
				p.Joints[owner].EndSite = &pt
			}
		case "CHANNELS":
			if len(stack) == 0 || stack[len(stack)-1] < 0 || len(fields) < 2 {
				return nil, fail("malformed CHANNELS")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n != len(fields)-2 {
				return nil, fail("channel count does not match channel list")
			}
			p.Joints[stack[len(stack)-1]].Channels = fields[2:]
		case "MOTION":
			if len(stack) != 0 {
				return nil, fail("MOTION inside an open block")
			}
			inMotion = true
		default:
			return nil, fail("unexpected token %q", fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bvh: read: %w", err)
	}

	if len(p.Joints) == 0 {
		return nil, fmt.Errorf("bvh: no joints")
	}
	if !inMotion {
		return nil, fmt.Errorf("bvh: missing MOTION section")
	}
	if frames != len(p.Motion) {
		return nil, fmt.Errorf("bvh: header declares %d frames, found %d", frames, len(p.Motion))
	}
	return p, nil
}
