package core_test

import (
	"testing"

	"clonecore/internal/core"
	"clonecore/pkg/domain"
)

func TestComputeReferencePointsFromSceneGeometry(t *testing.T) {
	objects := []domain.SceneObject{
		{
			Name:      "NPC_HeadGeo",
			Type:      domain.ObjectMesh,
			Scale:     domain.Uniform(1),
			Position:  domain.Vec3{X: 1, Y: 2},
			BoundsMin: domain.Vec3{X: -0.1, Y: -0.1, Z: 1.9},
			BoundsMax: domain.Vec3{X: 0.1, Y: 0.1, Z: 2.1},
		},
		{
			Name:      "rig",
			Type:      domain.ObjectArmature,
			Scale:     domain.Uniform(1),
			Position:  domain.Vec3{Z: 0.1},
			BoundsMin: domain.Vec3{X: -0.3, Y: -0.3, Z: -0.1},
			BoundsMax: domain.Vec3{X: 0.3, Y: 0.3, Z: 1.9},
		},
	}

	refs := core.ComputeReferencePoints(objects)

	cases := []struct {
		anchor domain.Anchor
		want   domain.Vec3
	}{
		{domain.AnchorHeadCenter, domain.Vec3{X: 1, Y: 2, Z: 2.0}},
		{domain.AnchorHeadTop, domain.Vec3{X: 1, Y: 2, Z: 2.15}},
		{domain.AnchorForehead, domain.Vec3{X: 1, Y: 1.95, Z: 2.05}},
		{domain.AnchorEyeLevel, domain.Vec3{X: 1, Y: 1.95, Z: 2.0}},
		{domain.AnchorMouthLevel, domain.Vec3{X: 1, Y: 1.95, Z: 1.95}},
		{domain.AnchorFaceForward, domain.Vec3{X: 1, Y: 1.9, Z: 2.0}},
		{domain.AnchorBodyCenter, domain.Vec3{Z: 1.0}},
		{domain.AnchorChestLevel, domain.Vec3{Z: 1.2}},
		{domain.AnchorWaistLevel, domain.Vec3{Z: 1.0}},
		{domain.AnchorFeetLevel, domain.Vec3{Z: 0.1}},
	}
	for _, tc := range cases {
		if got := refs[tc.anchor]; !vecClose(got, tc.want) {
			t.Errorf("%s = %+v, want %+v", tc.anchor, got, tc.want)
		}
	}
}

func TestComputeReferencePointsFallsBackWithoutGeometry(t *testing.T) {
	refs := core.ComputeReferencePoints([]domain.SceneObject{
		{Name: "prop", Type: domain.ObjectMesh, Scale: domain.Uniform(1)},
		{Name: "lamp", Type: domain.ObjectLight, Scale: domain.Uniform(1)},
	})

	for anchor, want := range domain.FallbackReferencePoints() {
		if got := refs[anchor]; !vecClose(got, want) {
			t.Errorf("%s = %+v, want fallback %+v", anchor, got, want)
		}
	}
}

func TestComputeReferencePointsPartialFallback(t *testing.T) {
	// Armature only: body anchors follow the rig, head anchors stay on the
	// documented constants.
	refs := core.ComputeReferencePoints([]domain.SceneObject{
		{
			Name:      "rig",
			Type:      domain.ObjectArmature,
			Scale:     domain.Uniform(1),
			BoundsMin: domain.Vec3{X: -0.3, Y: -0.3, Z: 0},
			BoundsMax: domain.Vec3{X: 0.3, Y: 0.3, Z: 2.2},
		},
	})

	if got := refs[domain.AnchorBodyCenter]; !vecClose(got, domain.Vec3{Z: 1.1}) {
		t.Errorf("body-center = %+v, want (0,0,1.1)", got)
	}
	if got := refs[domain.AnchorFeetLevel]; !vecClose(got, domain.Vec3{Z: 0.2}) {
		t.Errorf("feet-level = %+v, want (0,0,0.2)", got)
	}
	fallback := domain.FallbackReferencePoints()
	if got := refs[domain.AnchorHeadTop]; !vecClose(got, fallback[domain.AnchorHeadTop]) {
		t.Errorf("head-top = %+v, want fallback %+v", got, fallback[domain.AnchorHeadTop])
	}
}

func TestComputeReferencePointsHandlesNegativeScale(t *testing.T) {
	// Mirrored geometry carries a negative axis scale; bounds still have to
	// come out with min below max.
	refs := core.ComputeReferencePoints([]domain.SceneObject{
		{
			Name:      "F_HeadGeo.mirror",
			Type:      domain.ObjectMesh,
			Scale:     domain.Vec3{X: -1, Y: 1, Z: 1},
			BoundsMin: domain.Vec3{X: 0, Y: -0.1, Z: 1.6},
			BoundsMax: domain.Vec3{X: 0.2, Y: 0.1, Z: 1.8},
		},
	})

	if got := refs[domain.AnchorHeadCenter]; !vecClose(got, domain.Vec3{X: -0.1, Z: 1.7}) {
		t.Errorf("head-center = %+v, want (-0.1,0,1.7)", got)
	}
}
