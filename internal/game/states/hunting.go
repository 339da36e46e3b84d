package states

import (
	"go.uber.org/zap"
)

// HuntingState moves the shark with WASD and eats fish it swims into.
type HuntingState struct {
	ctx *Context
}

// NewHuntingState creates the initial game state.
func NewHuntingState(ctx *Context) *HuntingState {
	return &HuntingState{ctx: ctx}
}

// Name implements State.
func (s *HuntingState) Name() string { return "hunting" }

// Enter shows the fish count, or switches straight to FullState when the
// school is empty.
func (s *HuntingState) Enter() error {
	left := s.ctx.School.Len()
	s.ctx.Log.Info("hunt started", zap.Int("fish", left))
	if left == 0 {
		s.ctx.Manager.Change(NewFullState(s.ctx))
		return nil
	}
	s.ctx.HUD.SetTitle(HuntingTitle(left))
	return nil
}

// Exit implements State.
func (s *HuntingState) Exit() error { return nil }

// Update applies movement, advances the school and counts catches.
func (s *HuntingState) Update(dt float64) error {
	step := float32(dt)
	for _, mk := range movementKeys {
		if s.ctx.Keys.IsKeyHeld(mk.key) {
			s.ctx.Camera.Move(mk.dir, step)
		}
	}

	caught := s.ctx.School.Update(step, s.ctx.Camera.Position, s.ctx.CatchRadius)
	if caught == 0 {
		return nil
	}

	left := s.ctx.School.Len()
	s.ctx.Log.Info("fish caught", zap.Int("caught", caught), zap.Int("left", left))
	s.ctx.HUD.SetTitle(HuntingTitle(left))
	if left == 0 {
		s.ctx.Manager.Change(NewFullState(s.ctx))
	}
	return nil
}
