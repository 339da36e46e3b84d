package states

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/engine/camera"
	"github.com/Faultbox/hungryfish/internal/game/world"
)

// FullTitle is shown once every fish has been eaten.
const FullTitle = "Hungry_Fish_3D - You're full. Press Esc to exit."

// HuntingTitle is shown while fish remain.
func HuntingTitle(left int) string {
	return fmt.Sprintf("Hungry_Fish_3D - Fish left: %d", left)
}

// KeySource reports held keys. *input.Input implements it.
type KeySource interface {
	IsKeyHeld(sdl.Scancode) bool
}

// TitleSetter shows the HUD line. *window.Window implements it.
type TitleSetter interface {
	SetTitle(string)
}

// Context is the world the states act on.
type Context struct {
	Manager     *Manager
	Camera      *camera.FlyCamera
	School      *world.School
	Keys        KeySource
	HUD         TitleSetter
	CatchRadius float32
	Log         *zap.Logger
}

var movementKeys = []struct {
	key sdl.Scancode
	dir camera.Direction
}{
	{sdl.SCANCODE_W, camera.Forward},
	{sdl.SCANCODE_S, camera.Backward},
	{sdl.SCANCODE_A, camera.Left},
	{sdl.SCANCODE_D, camera.Right},
}
