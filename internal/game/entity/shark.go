package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Shark placement relative to the camera.
var (
	SharkOffset = mgl32.Vec3{0, -0.35, 0}
)

const (
	SharkScale = 0.3
	// SharkPitchFactor damps how far the shark tilts with the camera.
	SharkPitchFactor = 0.7
)

// SharkMatrix places the shark just below the camera, facing where the
// camera looks. yaw and pitch are the camera angles in degrees; t drives
// the tail sway.
func SharkMatrix(camera mgl32.Vec3, yaw, pitch float32, t float64) mgl32.Mat4 {
	pos := camera.Add(SharkOffset)
	sway := float32(math.Sin(t*2)) * mgl32.DegToRad(6)

	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(90))).
		Mul4(mgl32.HomogRotate3DY(-mgl32.DegToRad(yaw))).
		Mul4(mgl32.HomogRotate3DX(-mgl32.DegToRad(pitch * SharkPitchFactor))).
		Mul4(mgl32.HomogRotate3DY(sway)).
		Mul4(mgl32.Scale3D(SharkScale, SharkScale, SharkScale))
}
