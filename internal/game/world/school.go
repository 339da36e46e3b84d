// Package world holds the fish school the player hunts.
package world

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/hungryfish/internal/game/entity"
)

// Speed range of spawned fish, in units per second.
const (
	MinFishSpeed   = 0.5
	FishSpeedRange = 1.5
)

// SchoolConfig controls where fish spawn and how far they roam.
type SchoolConfig struct {
	Count int
	// Extent is the full size of the spawn box centred on the origin.
	Extent mgl32.Vec3
	// Wander is the half-width of the box waypoints are picked in, around
	// each fish's spawn point.
	Wander float32
}

// School is the set of live fish. It is not safe for concurrent use.
type School struct {
	cfg  SchoolConfig
	rng  *rand.Rand
	fish []*entity.Fish
}

// NewSchool spawns cfg.Count fish using rng for every random choice.
func NewSchool(cfg SchoolConfig, rng *rand.Rand) *School {
	s := &School{
		cfg:  cfg,
		rng:  rng,
		fish: make([]*entity.Fish, 0, max(cfg.Count, 0)),
	}
	for i := 0; i < cfg.Count; i++ {
		spawn := mgl32.Vec3{
			s.centered(cfg.Extent.X()),
			s.centered(cfg.Extent.Y()),
			s.centered(cfg.Extent.Z()),
		}
		speed := MinFishSpeed + s.rng.Float32()*FishSpeedRange
		s.fish = append(s.fish, entity.NewFish(spawn, s.waypoint(spawn), speed))
	}
	return s
}

// Update moves every fish, retargets the ones that arrived and removes the
// ones within radius of predator. It returns how many were caught.
func (s *School) Update(dt float32, predator mgl32.Vec3, radius float32) int {
	caught := 0
	kept := s.fish[:0]
	for _, f := range s.fish {
		if f.Step(dt) {
			f.Target = s.waypoint(f.SpawnCenter)
		}
		if predator.Sub(f.Position).Len() < radius {
			caught++
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(s.fish); i++ {
		s.fish[i] = nil
	}
	s.fish = kept
	return caught
}

// Fish returns the live fish in spawn order.
func (s *School) Fish() []*entity.Fish {
	return s.fish
}

// Len returns the number of live fish.
func (s *School) Len() int {
	return len(s.fish)
}

func (s *School) waypoint(center mgl32.Vec3) mgl32.Vec3 {
	w := 2 * s.cfg.Wander
	return center.Add(mgl32.Vec3{s.centered(w), s.centered(w), s.centered(w)})
}

// centered returns a uniform value in [-extent/2, extent/2).
func (s *School) centered(extent float32) float32 {
	return (s.rng.Float32() - 0.5) * extent
}
