package core

import (
	"math"
	"strings"

	"clonecore/pkg/domain"
)

// headAnchorOffsets position the head-relative anchors from the head
// geometry bounds center.
var headAnchorOffsets = map[Anchor]Vec3{
	domain.AnchorHeadCenter:  {},
	domain.AnchorHeadTop:     {X: 0, Y: 0, Z: 0.15},
	domain.AnchorForehead:    {X: 0, Y: -0.05, Z: 0.05},
	domain.AnchorEyeLevel:    {X: 0, Y: -0.05, Z: 0},
	domain.AnchorMouthLevel:  {X: 0, Y: -0.05, Z: -0.05},
	domain.AnchorFaceForward: {X: 0, Y: -0.10, Z: 0},
}

// bodyAnchorOffsets position the body-relative anchors from the armature
// bounds center.
var bodyAnchorOffsets = map[Anchor]Vec3{
	domain.AnchorBodyCenter: {},
	domain.AnchorChestLevel: {X: 0, Y: 0, Z: 0.20},
	domain.AnchorWaistLevel: {},
	domain.AnchorFeetLevel:  {X: 0, Y: 0, Z: -0.90},
}

// ComputeReferencePoints derives the character anchor map from the scene.
// Head anchors come from the combined world bounds of head geometry meshes,
// body anchors from the combined armature bounds. Anchors whose source
// objects are absent keep the documented fallback constants.
func ComputeReferencePoints(objects []SceneObject) ReferencePoints {
	refs := domain.FallbackReferencePoints()

	var headBounds, bodyBounds worldBounds
	for _, o := range objects {
		switch {
		case o.Type == ObjectMesh && strings.Contains(strings.ToLower(o.Name), "headgeo"):
			headBounds.include(o)
		case o.Type == ObjectArmature:
			bodyBounds.include(o)
		}
	}

	if headBounds.valid {
		hc := headBounds.center()
		for anchor, offset := range headAnchorOffsets {
			refs[anchor] = hc.Add(offset)
		}
	}
	if bodyBounds.valid {
		bc := bodyBounds.center()
		for anchor, offset := range bodyAnchorOffsets {
			refs[anchor] = bc.Add(offset)
		}
	}
	return refs
}

// worldBounds accumulates an axis-aligned bounding box in world space.
type worldBounds struct {
	min, max Vec3
	valid    bool
}

func (b *worldBounds) include(o SceneObject) {
	lo := o.Position.Add(o.BoundsMin.Hadamard(o.Scale))
	hi := o.Position.Add(o.BoundsMax.Hadamard(o.Scale))
	// Negative scale components flip the box.
	lo, hi = Vec3{
		X: math.Min(lo.X, hi.X),
		Y: math.Min(lo.Y, hi.Y),
		Z: math.Min(lo.Z, hi.Z),
	}, Vec3{
		X: math.Max(lo.X, hi.X),
		Y: math.Max(lo.Y, hi.Y),
		Z: math.Max(lo.Z, hi.Z),
	}
	if !b.valid {
		b.min, b.max, b.valid = lo, hi, true
		return
	}
	b.min = Vec3{X: math.Min(b.min.X, lo.X), Y: math.Min(b.min.Y, lo.Y), Z: math.Min(b.min.Z, lo.Z)}
	b.max = Vec3{X: math.Max(b.max.X, hi.X), Y: math.Max(b.max.Y, hi.Y), Z: math.Max(b.max.Z, hi.Z)}
}

func (b *worldBounds) center() Vec3 {
	return b.min.Add(b.max).Mul(0.5)
}
