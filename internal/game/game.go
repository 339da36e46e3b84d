// Package game implements the main game loop and state management.
package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/config"
	"github.com/Faultbox/hungryfish/internal/engine/camera"
	"github.com/Faultbox/hungryfish/internal/engine/debug"
	"github.com/Faultbox/hungryfish/internal/engine/input"
	"github.com/Faultbox/hungryfish/internal/engine/lighting"
	"github.com/Faultbox/hungryfish/internal/engine/model"
	"github.com/Faultbox/hungryfish/internal/engine/renderer"
	"github.com/Faultbox/hungryfish/internal/engine/skybox"
	"github.com/Faultbox/hungryfish/internal/engine/texture"
	"github.com/Faultbox/hungryfish/internal/engine/window"
	"github.com/Faultbox/hungryfish/internal/game/entity"
	"github.com/Faultbox/hungryfish/internal/game/states"
	"github.com/Faultbox/hungryfish/internal/game/world"
	"github.com/Faultbox/hungryfish/internal/logger"
	"github.com/Faultbox/hungryfish/pkg/importer"
)

// Title is the window title before the HUD takes over.
const Title = "Hungry_Fish_3D"

// ScreenshotDir is where F12 captures are written.
const ScreenshotDir = "screenshots"

// Game is the main game instance.
type Game struct {
	cfg      *config.Config
	log      *zap.Logger
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input

	camera *camera.FlyCamera
	shark  *model.Model
	fish   *model.Model
	sky    *skybox.Skybox
	school *world.School
	states *states.Manager

	screenshots       *debug.ScreenshotCapture
	screenshotPending bool

	start time.Time
}

// New creates the window, GL state, assets and fish school.
func New(cfg *config.Config) (*Game, error) {
	g := &Game{
		cfg: cfg,
		log: logger.Named("game"),
	}
	g.log.Info("initializing game",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.Int("fish", cfg.Game.FishCount),
	)

	// Create window (this also creates OpenGL context)
	var err error
	g.window, err = window.New(window.Config{
		Title:        Title,
		Width:        cfg.Graphics.Width,
		Height:       cfg.Graphics.Height,
		Fullscreen:   cfg.Graphics.Fullscreen,
		VSync:        cfg.Graphics.VSync,
		CaptureMouse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	w, h := g.window.DrawableSize()
	g.renderer, err = renderer.New(renderer.Config{
		Width:  w,
		Height: h,
		FOV:    cfg.Graphics.FOV,
		Near:   cfg.Graphics.Near,
		Far:    cfg.Graphics.Far,
	})
	if err != nil {
		g.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	g.renderer.SetSun(lighting.Sun{
		Longitude: cfg.Graphics.SunLongitude,
		Latitude:  cfg.Graphics.SunLatitude,
		Ambient:   cfg.Graphics.Ambient,
	})

	g.input = input.New()
	g.screenshots = debug.NewScreenshotCapture(ScreenshotDir, "hungryfish")

	g.camera = camera.NewFlyCamera(mgl32.Vec3{})
	g.camera.MovementSpeed = cfg.Game.CameraSpeed
	g.camera.MouseSensitivity = cfg.Game.MouseSensitivity
	g.camera.Zoom = cfg.Graphics.FOV

	g.loadAssets()

	g.school = world.NewSchool(world.SchoolConfig{
		Count:  cfg.Game.FishCount,
		Extent: mgl32.Vec3(cfg.Game.SpawnExtent),
		Wander: cfg.Game.WanderRadius,
	}, newRand(cfg.Game.Seed))

	g.states = states.NewManager(g.log.Named("states"))
	g.states.Change(states.NewHuntingState(&states.Context{
		Manager:     g.states,
		Camera:      g.camera,
		School:      g.school,
		Keys:        g.input,
		HUD:         g.window,
		CatchRadius: cfg.Game.CatchRadius,
		Log:         g.log,
	}))

	g.log.Info("game initialized successfully")
	return g, nil
}

// loadAssets loads both models and the skybox. Failures are logged and
// leave the asset empty or absent.
func (g *Game) loadAssets() {
	backend := g.renderer.Backend()
	imp := importer.Default(importer.Options{
		FlipUVs:         g.cfg.Assets.FlipUVs,
		GenerateNormals: g.cfg.Assets.GenerateNormals,
	})
	dec := texture.NewDecoder()

	g.shark = model.New(model.Deps{Importer: imp, Decoder: dec, Backend: backend})
	g.shark.Load(g.cfg.Assets.SharkModel)
	g.fish = model.New(model.Deps{Importer: imp, Decoder: dec, Backend: backend})
	g.fish.Load(g.cfg.Assets.FishModel)

	if paths := g.cfg.Assets.SkyboxPaths(); len(paths) > 0 {
		sky, err := skybox.New(dec, backend, paths, logger.Named("skybox"))
		if err != nil {
			g.log.Warn("skybox disabled", zap.Error(err))
		} else {
			g.sky = sky
		}
	}
}

// newRand seeds the school's random source; 0 picks a time-based seed.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run starts the main game loop.
func (g *Game) Run() error {
	g.running = true
	g.start = time.Now()

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	g.log.Info("starting game loop")

	for g.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if g.input.Update() {
			g.running = false
			break
		}
		g.handleEvents()

		// 2. Update game state
		if err := g.states.Update(dt); err != nil {
			return fmt.Errorf("update error: %w", err)
		}

		// 3. Render
		g.render(now.Sub(g.start).Seconds())

		if g.screenshotPending {
			g.screenshotPending = false
			g.captureScreenshot()
		}

		// 4. Present (swap buffers)
		g.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			g.log.Debug("fps", zap.Int("count", frameCount), zap.Float64("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (g *Game) handleEvents() {
	for _, event := range g.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			w, h := g.window.DrawableSize()
			g.renderer.Resize(w, h)
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				g.running = false
			case sdl.SCANCODE_F12:
				g.screenshotPending = true
			}
		}
	}

	// Mouse look keeps working after the hunt ends.
	if dx, dy := g.input.MouseDelta(); dx != 0 || dy != 0 {
		g.camera.HandleMouse(float32(dx), float32(-dy))
	}
	if s := g.input.Scroll(); s != 0 {
		g.camera.HandleZoom(s)
	}
}

// render draws the skybox, the shark under the camera and every fish.
func (g *Game) render(t float64) {
	g.renderer.Begin()

	projection := g.renderer.Projection(g.camera.Zoom)
	view := g.camera.ViewMatrix()

	if g.sky != nil {
		g.sky.Draw(g.renderer.SkyboxProgram(), view, projection)
	}

	prog := g.renderer.ModelProgram()
	g.renderer.BeginModels(view, projection)

	prog.SetMat4("model", entity.SharkMatrix(g.camera.Position, g.camera.Yaw, g.camera.Pitch, t))
	g.shark.Draw(prog)

	for _, f := range g.school.Fish() {
		prog.SetMat4("model", f.ModelMatrix(t))
		g.fish.Draw(prog)
	}
}

// captureScreenshot saves the back buffer before it is presented.
func (g *Game) captureScreenshot() {
	w, h := g.window.DrawableSize()
	path, err := g.screenshots.CaptureFromPixels(g.renderer.Backend().ReadPixels(w, h), w, h)
	if err != nil {
		g.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	g.log.Info("screenshot saved", zap.String("path", path))
}

// Close cleans up game resources.
func (g *Game) Close() {
	g.log.Info("closing game")

	if g.sky != nil {
		g.sky.Destroy()
	}
	if g.shark != nil {
		g.shark.Destroy()
	}
	if g.fish != nil {
		g.fish.Destroy()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}
