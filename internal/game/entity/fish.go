// Package entity provides the swimming actors: the fish school members and
// the player's shark.
package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ArriveDistance is how close a fish must get to its waypoint before it
// picks a new one.
const ArriveDistance = 0.1

// FishScale is the uniform scale applied to the fish model.
const FishScale = 0.7

// Fish wanders between waypoints around its spawn point.
type Fish struct {
	Position    mgl32.Vec3
	SpawnCenter mgl32.Vec3
	Target      mgl32.Vec3
	Speed       float32 // units per second
}

// NewFish creates a fish at spawn heading for target.
func NewFish(spawn, target mgl32.Vec3, speed float32) *Fish {
	return &Fish{
		Position:    spawn,
		SpawnCenter: spawn,
		Target:      target,
		Speed:       speed,
	}
}

// Step moves the fish toward its target by Speed*dt without overshooting.
// It reports whether the fish is within ArriveDistance of the target.
func (f *Fish) Step(dt float32) bool {
	to := f.Target.Sub(f.Position)
	dist := to.Len()
	if dist > 0 {
		step := f.Speed * dt
		if step >= dist {
			f.Position = f.Target
		} else {
			f.Position = f.Position.Add(to.Mul(step / dist))
		}
	}
	return f.Target.Sub(f.Position).Len() < ArriveDistance
}

// Heading returns the unit direction to the target, or +Z once there.
func (f *Fish) Heading() mgl32.Vec3 {
	to := f.Target.Sub(f.Position)
	if to.Len() < 1e-6 {
		return mgl32.Vec3{0, 0, 1}
	}
	return to.Normalize()
}

// ModelMatrix orients the fish along its heading, then adds a side-to-side
// sway and a slight roll driven by t seconds.
func (f *Fish) ModelMatrix(t float64) mgl32.Mat4 {
	dir := f.Heading()
	yaw := float32(math.Atan2(float64(dir.X()), float64(dir.Z())))
	pitch := float32(math.Asin(float64(mgl32.Clamp(dir.Y(), -1, 1))))

	sway := float32(math.Sin(t*6+float64(f.Position.X())*0.5)) * mgl32.DegToRad(10)
	roll := float32(math.Sin(t*3+float64(f.Position.Z()))) * mgl32.DegToRad(3)

	return mgl32.Translate3D(f.Position.X(), f.Position.Y(), f.Position.Z()).
		Mul4(mgl32.HomogRotate3DY(yaw)).
		Mul4(mgl32.HomogRotate3DX(-pitch)).
		Mul4(mgl32.HomogRotate3DY(sway)).
		Mul4(mgl32.HomogRotate3DZ(roll)).
		Mul4(mgl32.Scale3D(FishScale, FishScale, FishScale))
}
