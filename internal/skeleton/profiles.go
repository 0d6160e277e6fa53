package skeleton

import (
	"fmt"
	"sort"

	lm "github.com/banshee-data/nocap/internal/landmark"
)

// DefaultProfileName is the profile used when none is configured.
const DefaultProfileName = "simple"

func off(x, y, z float64) lm.Point3 { return lm.Point3{X: x, Y: y, Z: z} }

func endSite(x, y, z float64) *lm.Point3 { return &lm.Point3{X: x, Y: y, Z: z} }

var hipCenter = [2]int{lm.LeftHip, lm.RightHip}

// SimpleProfile is a 16-joint body skeleton with spine, arms and legs.
func SimpleProfile() Profile {
	return Profile{
		Name:            "simple",
		RotationOrder:   OrderXYZ,
		RestAxis:        off(0, 1, 0),
		CenterLandmarks: hipCenter,
		PositionScale:   DefaultPositionScale,
		Joints: []JointSpec{
			{Name: "root", Offset: off(0, 0, 0), From: lm.LeftHip, To: lm.RightHip},
			{Name: "spine", Parent: "root", Offset: off(0, 10, 0), From: lm.LeftHip, To: lm.LeftShoulder},
			{Name: "chest", Parent: "spine", Offset: off(0, 10, 0), From: lm.LeftShoulder, To: lm.Nose},
			{Name: "head", Parent: "chest", Offset: off(0, 10, 0), From: lm.Nose, To: lm.LeftEyeInner, EndSite: endSite(0, 5, 0)},
			{Name: "upperarm_l", Parent: "chest", Offset: off(5, 0, 0), From: lm.LeftShoulder, To: lm.LeftElbow},
			{Name: "lowerarm_l", Parent: "upperarm_l", Offset: off(10, 0, 0), From: lm.LeftElbow, To: lm.LeftWrist},
			{Name: "hand_l", Parent: "lowerarm_l", Offset: off(10, 0, 0), From: lm.LeftWrist, To: lm.LeftIndex, EndSite: endSite(5, 0, 0)},
			{Name: "upperarm_r", Parent: "chest", Offset: off(-5, 0, 0), From: lm.RightShoulder, To: lm.RightElbow},
			{Name: "lowerarm_r", Parent: "upperarm_r", Offset: off(-10, 0, 0), From: lm.RightElbow, To: lm.RightWrist},
			{Name: "hand_r", Parent: "lowerarm_r", Offset: off(-10, 0, 0), From: lm.RightWrist, To: lm.RightIndex, EndSite: endSite(-5, 0, 0)},
			{Name: "thigh_l", Parent: "root", Offset: off(5, -10, 0), From: lm.LeftHip, To: lm.LeftKnee},
			{Name: "calf_l", Parent: "thigh_l", Offset: off(0, -30, 0), From: lm.LeftKnee, To: lm.LeftAnkle},
			{Name: "foot_l", Parent: "calf_l", Offset: off(0, -20, 10), From: lm.LeftAnkle, To: lm.LeftFootIndex, EndSite: endSite(0, -5, 5)},
			{Name: "thigh_r", Parent: "root", Offset: off(-5, -10, 0), From: lm.RightHip, To: lm.RightKnee},
			{Name: "calf_r", Parent: "thigh_r", Offset: off(0, -30, 0), From: lm.RightKnee, To: lm.RightAnkle},
			{Name: "foot_r", Parent: "calf_r", Offset: off(0, -20, 10), From: lm.RightAnkle, To: lm.RightHeel, EndSite: endSite(0, -5, 5)},
		},
	}
}

// MannyProfile approximates the 22-joint UE5 mannequin naming.
func MannyProfile() Profile {
	return Profile{
		Name:            "manny",
		RotationOrder:   OrderXYZ,
		RestAxis:        off(0, 1, 0),
		CenterLandmarks: hipCenter,
		PositionScale:   DefaultPositionScale,
		Joints: []JointSpec{
			{Name: "pelvis", Offset: off(0, 0, 0), From: lm.LeftHip, To: lm.RightHip},
			{Name: "spine_01", Parent: "pelvis", Offset: off(0, 10, 0), From: lm.LeftHip, To: lm.LeftShoulder},
			{Name: "spine_02", Parent: "spine_01", Offset: off(0, 10, 0), From: lm.LeftShoulder, To: lm.Nose},
			// The browser exporter mapped spine_03 to (nose, nose), which never
			// resolves; the right shoulder gives it a usable axis.
			{Name: "spine_03", Parent: "spine_02", Offset: off(0, 10, 0), From: lm.RightShoulder, To: lm.Nose},
			{Name: "neck_01", Parent: "spine_03", Offset: off(0, 10, 0), From: lm.Nose, To: lm.LeftEyeInner},
			{Name: "head", Parent: "neck_01", Offset: off(0, 10, 0), From: lm.LeftEyeInner, To: lm.LeftEyeOuter, EndSite: endSite(0, 5, 0)},
			{Name: "clavicle_l", Parent: "pelvis", Offset: off(5, 9, 0), From: lm.LeftShoulder, To: lm.LeftElbow},
			{Name: "upperarm_l", Parent: "clavicle_l", Offset: off(10, 0, 0), From: lm.LeftElbow, To: lm.LeftWrist},
			{Name: "lowerarm_l", Parent: "upperarm_l", Offset: off(15, 0, 0), From: lm.LeftWrist, To: lm.LeftPinky},
			{Name: "hand_l", Parent: "lowerarm_l", Offset: off(15, 0, 0), From: lm.LeftPinky, To: lm.LeftIndex, EndSite: endSite(5, 0, 0)},
			{Name: "clavicle_r", Parent: "pelvis", Offset: off(-5, 9, 0), From: lm.RightShoulder, To: lm.RightElbow},
			{Name: "upperarm_r", Parent: "clavicle_r", Offset: off(-10, 0, 0), From: lm.RightElbow, To: lm.RightWrist},
			{Name: "lowerarm_r", Parent: "upperarm_r", Offset: off(-15, 0, 0), From: lm.RightWrist, To: lm.RightPinky},
			{Name: "hand_r", Parent: "lowerarm_r", Offset: off(-15, 0, 0), From: lm.RightPinky, To: lm.RightIndex, EndSite: endSite(-5, 0, 0)},
			{Name: "thigh_l", Parent: "pelvis", Offset: off(5, -10, 0), From: lm.LeftHip, To: lm.LeftKnee},
			{Name: "calf_l", Parent: "thigh_l", Offset: off(0, -30, 0), From: lm.LeftKnee, To: lm.LeftAnkle},
			{Name: "foot_l", Parent: "calf_l", Offset: off(0, -20, 5), From: lm.LeftAnkle, To: lm.LeftFootIndex},
			{Name: "ball_l", Parent: "foot_l", Offset: off(5, 0, 0), From: lm.LeftFootIndex, To: lm.RightFootIndex, EndSite: endSite(5, 0, 0)},
			{Name: "thigh_r", Parent: "pelvis", Offset: off(-5, -10, 0), From: lm.RightHip, To: lm.RightKnee},
			{Name: "calf_r", Parent: "thigh_r", Offset: off(0, -30, 0), From: lm.RightKnee, To: lm.RightAnkle},
			{Name: "foot_r", Parent: "calf_r", Offset: off(0, -20, 5), From: lm.RightAnkle, To: lm.RightHeel},
			{Name: "ball_r", Parent: "foot_r", Offset: off(-5, 0, 0), From: lm.RightHeel, To: lm.RightFootIndex, EndSite: endSite(-5, 0, 0)},
		},
	}
}

// MinimalProfile is a 7-joint hips, chest, head and legs rig using ZXY
// rotation channels.
func MinimalProfile() Profile {
	return Profile{
		Name:            "minimal",
		RotationOrder:   OrderZXY,
		RestAxis:        off(0, 1, 0),
		CenterLandmarks: hipCenter,
		PositionScale:   DefaultPositionScale,
		Joints: []JointSpec{
			{Name: "Hips", Offset: off(0, 0, 0), From: lm.LeftHip, To: lm.RightHip},
			{Name: "Chest", Parent: "Hips", Offset: off(0, 10, 0), From: lm.LeftHip, To: lm.LeftShoulder},
			{Name: "Head", Parent: "Chest", Offset: off(0, 10, 0), From: lm.Nose, To: lm.LeftEyeInner},
			{Name: "LeftUpLeg", Parent: "Hips", Offset: off(5, -10, 0), From: lm.LeftHip, To: lm.LeftKnee},
			{Name: "LeftLeg", Parent: "LeftUpLeg", Offset: off(0, -10, 0), From: lm.LeftKnee, To: lm.LeftAnkle},
			{Name: "RightUpLeg", Parent: "Hips", Offset: off(-5, -10, 0), From: lm.RightHip, To: lm.RightKnee},
			{Name: "RightLeg", Parent: "RightUpLeg", Offset: off(0, -10, 0), From: lm.RightKnee, To: lm.RightAnkle},
		},
	}
}

var registry = map[string]func() Profile{
	"simple":  SimpleProfile,
	"manny":   MannyProfile,
	"minimal": MinimalProfile,
}

// Lookup returns a fresh copy of a built-in profile.
func Lookup(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfileName
	}
	build, ok := registry[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown skeleton profile %q (available: %v)", name, Names())
	}
	return build(), nil
}

// Names lists the built-in profile names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Default is the hierarchy of the default profile.
func Default() *Hierarchy {
	p, _ := Lookup(DefaultProfileName)
	return MustNew(p)
}
