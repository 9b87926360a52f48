// Package charsheet plans turnaround sheet captures for an imported avatar:
// camera orbit positions sized to fill the frame, and the fixed A4 contact
// sheet layout the renders are composed into. Planning math only; rendering
// happens in the host tool.
package charsheet

import (
	"fmt"
	"math"

	"clonecore/pkg/domain"
)

// Default optics for the two capture kinds. Body shots frame the whole
// avatar at 80% fill through a 50mm lens; closeups frame the head at 60%
// fill through a 60mm lens.
const (
	SensorHeightMM = 24.0
	BodyLensMM     = 50.0
	BodyFill       = 0.8
	CloseupLensMM  = 60.0
	CloseupFill    = 0.6
)

// directionalLabels name the eight-point body orbit, clockwise from front.
var directionalLabels = [8]string{
	"Front",
	"Left Front",
	"Left Side",
	"Left Back",
	"Back",
	"Right Back",
	"Right Side",
	"Right Front",
}

// closeupAngles are the head shot bearings in degrees with their names.
var closeupAngles = []struct {
	degrees float64
	name    string
}{
	{0, "CloseFront"},
	{45, "Close3Q"},
	{90, "CloseSide"},
}

// View is one planned camera placement.
type View struct {
	Name     string
	Position domain.Vec3
	LensMM   float64
}

// VerticalFOV returns the vertical field of view in radians for a lens and
// sensor height.
func VerticalFOV(lensMM, sensorHeightMM float64) float64 {
	return 2.0 * math.Atan((sensorHeightMM*0.5)/lensMM)
}

// FillDistance returns how far a camera must sit for a subject of the given
// height to occupy fill of the frame vertically. Degenerate optics yield 0.
func FillDistance(height, fovRadians, fill float64) float64 {
	denom := fill * 2.0 * math.Tan(fovRadians*0.5)
	if math.Abs(denom) < 1e-9 {
		return 0
	}
	return height / denom
}

// OrbitPositions places count cameras on a horizontal circle around center,
// starting in front of the subject and stepping clockwise. An eight-point
// orbit gets directional labels; other counts are numbered.
func OrbitPositions(center domain.Vec3, distance float64, count int) []View {
	if count < 1 {
		count = 1
	}
	step := 360.0 / float64(count)
	views := make([]View, 0, count)
	for i := 0; i < count; i++ {
		rad := float64(i) * step * math.Pi / 180.0
		label := fmt.Sprintf("%02d", i+1)
		if count == len(directionalLabels) {
			label = directionalLabels[i]
		}
		views = append(views, View{
			Name: label,
			Position: domain.Vec3{
				X: center.X + distance*math.Sin(rad),
				Y: center.Y - distance*math.Cos(rad),
				Z: center.Z,
			},
		})
	}
	return views
}

// BodyViews plans the full-body orbit for an avatar of the given bounds
// center and height.
func BodyViews(center domain.Vec3, height float64, count int) []View {
	if height < 0.001 {
		height = 0.001
	}
	distance := FillDistance(height, VerticalFOV(BodyLensMM, SensorHeightMM), BodyFill)
	views := OrbitPositions(center, distance, count)
	for i := range views {
		views[i].Name = "Body_" + views[i].Name
		views[i].LensMM = BodyLensMM
	}
	return views
}

// CloseupViews plans the three head shots for the head bounds center and
// height.
func CloseupViews(center domain.Vec3, height float64) []View {
	if height < 0.001 {
		height = 0.001
	}
	distance := FillDistance(height, VerticalFOV(CloseupLensMM, SensorHeightMM), CloseupFill)
	views := make([]View, 0, len(closeupAngles))
	for _, a := range closeupAngles {
		rad := a.degrees * math.Pi / 180.0
		views = append(views, View{
			Name: a.name,
			Position: domain.Vec3{
				X: center.X + distance*math.Sin(rad),
				Y: center.Y - distance*math.Cos(rad),
				Z: center.Z,
			},
			LensMM: CloseupLensMM,
		})
	}
	return views
}
