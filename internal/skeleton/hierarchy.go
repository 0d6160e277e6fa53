// Package skeleton describes the output joint hierarchy and the landmark
// pairs that drive each joint.
package skeleton

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/nocap/internal/landmark"
)

// DefaultPositionScale converts estimator meters to BVH centimeters.
const DefaultPositionScale = 100.0

// DefaultEndSiteLength is the length of a generated end site along the rest
// axis, in output units.
const DefaultEndSiteLength = 5.0

// JointSpec is the static definition of one joint.
type JointSpec struct {
	Name string
	// Parent is empty for the root joint.
	Parent string
	// Offset is the bind-pose translation from the parent, in output units.
	Offset landmark.Point3
	// From and To are the landmark ids whose direction defines the bone
	// axis in world space.
	From, To int
	// EndSite overrides the end site offset emitted for leaf joints.
	EndSite *landmark.Point3
}

// IsRoot reports whether j is the hierarchy root.
func (j JointSpec) IsRoot() bool {
	return j.Parent == ""
}

// Profile is a named configuration of a skeleton: joints, rotation order,
// rest axis and root translation source.
type Profile struct {
	Name          string
	Joints        []JointSpec
	RotationOrder RotationOrder
	// RestAxis is the bone direction in bind pose. Undetected or degenerate
	// bones fall back to it.
	RestAxis landmark.Point3
	// CenterLandmarks are averaged to place the root.
	CenterLandmarks [2]int
	// PositionScale converts landmark units to output units.
	PositionScale float64
}

// Hierarchy is a validated, immutable joint tree.
type Hierarchy struct {
	profile  Profile
	byName   map[string]int
	children map[string][]string
	root     string
	walk     []JointSpec
	required int
}

// New validates p and builds its hierarchy. It fails with a
// *ConfigurationError when the joints do not form a single rooted tree.
func New(p Profile) (*Hierarchy, error) {
	if p.RotationOrder == "" {
		p.RotationOrder = DefaultRotationOrder
	}
	if p.RestAxis == (landmark.Point3{}) {
		p.RestAxis = landmark.Point3{Y: 1}
	}
	if p.PositionScale == 0 {
		p.PositionScale = DefaultPositionScale
	}
	p.Joints = append([]JointSpec(nil), p.Joints...)

	cfgErr := func(joint, reason string) error {
		return &ConfigurationError{Profile: p.Name, Joint: joint, Reason: reason}
	}

	if !p.RotationOrder.Valid() {
		return nil, cfgErr("", "invalid rotation order "+string(p.RotationOrder))
	}
	axis := p.RestAxis.Vec()
	if r3.Norm(axis) < 1e-9 {
		return nil, cfgErr("", "rest axis has zero length")
	}
	p.RestAxis = landmark.FromVec(r3.Unit(axis))
	if p.PositionScale < 0 {
		return nil, cfgErr("", "negative position scale")
	}
	if len(p.Joints) == 0 {
		return nil, cfgErr("", "no joints defined")
	}
	if p.CenterLandmarks[0] < 0 || p.CenterLandmarks[1] < 0 {
		return nil, cfgErr("", "negative center landmark id")
	}

	h := &Hierarchy{
		profile:  p,
		byName:   make(map[string]int, len(p.Joints)),
		children: make(map[string][]string, len(p.Joints)),
	}

	for i, j := range p.Joints {
		if j.Name == "" {
			return nil, cfgErr("", "joint with empty name")
		}
		if _, dup := h.byName[j.Name]; dup {
			return nil, cfgErr(j.Name, "duplicate joint name")
		}
		if j.From < 0 || j.To < 0 {
			return nil, cfgErr(j.Name, "negative landmark id")
		}
		if j.IsRoot() {
			if h.root != "" {
				return nil, cfgErr(j.Name, "second root (first is "+h.root+")")
			}
			h.root = j.Name
		}
		h.byName[j.Name] = i
	}
	if h.root == "" {
		return nil, cfgErr("", "no root joint")
	}

	for _, j := range p.Joints {
		if j.IsRoot() {
			continue
		}
		if j.Parent == j.Name {
			return nil, cfgErr(j.Name, "joint is its own parent")
		}
		if _, ok := h.byName[j.Parent]; !ok {
			return nil, cfgErr(j.Name, "unknown parent "+j.Parent)
		}
		h.children[j.Parent] = append(h.children[j.Parent], j.Name)
	}

	// Every joint must reach the root without revisiting itself.
	for _, j := range p.Joints {
		seen := map[string]bool{j.Name: true}
		for cur := j; !cur.IsRoot(); {
			cur = p.Joints[h.byName[cur.Parent]]
			if seen[cur.Name] {
				return nil, cfgErr(j.Name, "parent chain contains a cycle")
			}
			seen[cur.Name] = true
		}
	}

	var visit func(name string)
	visit = func(name string) {
		h.walk = append(h.walk, p.Joints[h.byName[name]])
		for _, child := range h.children[name] {
			visit(child)
		}
	}
	visit(h.root)

	required := max(p.CenterLandmarks[0], p.CenterLandmarks[1])
	for _, j := range p.Joints {
		required = max(required, j.From, j.To)
	}
	h.required = required + 1

	return h, nil
}

// MustNew is New for hierarchies defined as program constants.
func MustNew(p Profile) *Hierarchy {
	h, err := New(p)
	if err != nil {
		panic(err)
	}
	return h
}

// Profile returns the profile the hierarchy was built from, with defaults
// applied.
func (h *Hierarchy) Profile() Profile {
	return h.profile
}

// Name returns the profile name.
func (h *Hierarchy) Name() string { return h.profile.Name }

// RotationOrder returns the rotation order used for every joint.
func (h *Hierarchy) RotationOrder() RotationOrder { return h.profile.RotationOrder }

// RestAxis returns the bind-pose bone direction.
func (h *Hierarchy) RestAxis() landmark.Point3 { return h.profile.RestAxis }

// CenterLandmarks returns the landmark ids averaged for the root position.
func (h *Hierarchy) CenterLandmarks() [2]int { return h.profile.CenterLandmarks }

// PositionScale returns the landmark-to-output unit factor.
func (h *Hierarchy) PositionScale() float64 { return h.profile.PositionScale }

// Walk returns the joints in pre-order, children in declaration order. The
// BVH header and every motion line use this order.
func (h *Hierarchy) Walk() []JointSpec {
	out := make([]JointSpec, len(h.walk))
	copy(out, h.walk)
	return out
}

// Len returns the number of joints.
func (h *Hierarchy) Len() int { return len(h.walk) }

// Root returns the root joint.
func (h *Hierarchy) Root() JointSpec {
	return h.walk[0]
}

// Joint looks up a joint by name.
func (h *Hierarchy) Joint(name string) (JointSpec, bool) {
	i, ok := h.byName[name]
	if !ok {
		return JointSpec{}, false
	}
	return h.profile.Joints[i], true
}

// Children returns the direct children of a joint in declaration order.
func (h *Hierarchy) Children(name string) []string {
	return append([]string(nil), h.children[name]...)
}

// IsLeaf reports whether the joint has no children.
func (h *Hierarchy) IsLeaf(name string) bool {
	return len(h.children[name]) == 0
}

// EndSite returns the end site offset for a leaf joint.
func (h *Hierarchy) EndSite(j JointSpec) landmark.Point3 {
	if j.EndSite != nil {
		return *j.EndSite
	}
	axis := h.profile.RestAxis
	return landmark.Point3{
		X: axis.X * DefaultEndSiteLength,
		Y: axis.Y * DefaultEndSiteLength,
		Z: axis.Z * DefaultEndSiteLength,
	}
}

// RequiredLandmarks is the minimum frame length every joint can be derived
// from.
func (h *Hierarchy) RequiredLandmarks() int { return h.required }

// ChannelCount is the number of values in one motion line.
func (h *Hierarchy) ChannelCount() int { return 3 + 3*len(h.walk) }
