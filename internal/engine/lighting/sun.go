// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sun is a directional light. Longitude rotates around Y (0-360 degrees),
// latitude is the elevation above the horizon (0-90 degrees).
type Sun struct {
	Longitude float32
	Latitude  float32
	// Ambient is the light level faces turned away from the sun receive.
	Ambient float32
}

// DefaultSun lights the scene from high above, slightly behind the start
// view.
func DefaultSun() Sun {
	return Sun{Longitude: 323, Latitude: 66, Ambient: 0.45}
}

// Direction returns the unit vector pointing towards the sun.
func (s Sun) Direction() mgl32.Vec3 {
	d := SunDirection(s.Longitude, s.Latitude)
	return mgl32.Vec3(d)
}

// SunDirection converts longitude/latitude angles in degrees to a normalized
// direction vector pointing towards the sun.
func SunDirection(longitude, latitude float32) [3]float32 {
	lonRad := float64(longitude) * math.Pi / 180.0
	latRad := float64(latitude) * math.Pi / 180.0

	x := float32(math.Cos(latRad) * math.Sin(lonRad))
	y := float32(math.Sin(latRad))
	z := float32(math.Cos(latRad) * math.Cos(lonRad))

	return [3]float32{x, y, z}
}
