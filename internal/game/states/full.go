package states

// FullState ends the hunt. Movement input is ignored; Esc still quits.
type FullState struct {
	ctx *Context
}

// NewFullState creates the end state.
func NewFullState(ctx *Context) *FullState {
	return &FullState{ctx: ctx}
}

// Name implements State.
func (s *FullState) Name() string { return "full" }

// Enter implements State.
func (s *FullState) Enter() error {
	s.ctx.HUD.SetTitle(FullTitle)
	s.ctx.Log.Info("you're full")
	return nil
}

// Exit implements State.
func (s *FullState) Exit() error { return nil }

// Update implements State.
func (s *FullState) Update(float64) error { return nil }
