package model

import "github.com/go-gl/mathgl/mgl32"

// computeBounds returns the box enclosing every vertex position. An empty
// slice yields the zero box.
func computeBounds(vertices []Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	lo := mgl32.Vec3(vertices[0].Position)
	hi := lo
	for _, v := range vertices[1:] {
		p := mgl32.Vec3(v.Position)
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return Bounds{Min: lo, Max: hi}
}

// Union returns the box enclosing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
	return b
}

// Size returns the box extent along each axis.
func (b Bounds) Size() mgl32.Vec3 {
	return mgl32.Vec3(b.Max).Sub(mgl32.Vec3(b.Min))
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return mgl32.Vec3(b.Min).Add(mgl32.Vec3(b.Max)).Mul(0.5)
}
