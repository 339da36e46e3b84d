// Package renderer provides OpenGL rendering functionality.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/engine/gpu"
	"github.com/Faultbox/hungryfish/internal/engine/lighting"
	"github.com/Faultbox/hungryfish/internal/engine/shader"
	"github.com/Faultbox/hungryfish/internal/engine/shaders"
	"github.com/Faultbox/hungryfish/internal/logger"
)

// ClearColor is the background drawn behind the skybox.
var ClearColor = [4]float32{0.1, 0.1, 0.1, 1.0}

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	FOV    float32 // degrees, used when no camera zoom is supplied
	Near   float32
	Far    float32
}

// Renderer owns the GL state, the GPU backend and the shader programs.
type Renderer struct {
	config Config
	log    *zap.Logger

	backend *gpu.GL
	sun     lighting.Sun
	model   *shader.Program
	skybox  *shader.Program
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:  cfg,
		log:     logger.Named("renderer"),
		backend: gpu.New(),
		sun:     lighting.DefaultSun(),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(ClearColor[0], ClearColor[1], ClearColor[2], ClearColor[3])
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	var err error
	r.model, err = shader.New(shaders.ModelVertexShader, shaders.ModelFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("model shader: %w", err)
	}
	r.skybox, err = shader.New(shaders.SkyboxVertexShader, shaders.SkyboxFragmentShader)
	if err != nil {
		r.model.Delete()
		return nil, fmt.Errorf("skybox shader: %w", err)
	}

	r.log.Debug("shader programs created",
		zap.Uint32("model", r.model.ID()),
		zap.Uint32("skybox", r.skybox.ID()))
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	if r.model != nil {
		r.model.Delete()
	}
	if r.skybox != nil {
		r.skybox.Delete()
	}
}

// Backend returns the GPU backend models and the skybox upload through.
func (r *Renderer) Backend() *gpu.GL {
	return r.backend
}

// ModelProgram returns the program used for textured meshes.
func (r *Renderer) ModelProgram() *shader.Program {
	return r.model
}

// SkyboxProgram returns the cubemap program.
func (r *Renderer) SkyboxProgram() *shader.Program {
	return r.skybox
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	return Aspect(r.config.Width, r.config.Height)
}

// Projection returns a perspective matrix for fovDeg using the configured
// clip planes.
func (r *Renderer) Projection(fovDeg float32) mgl32.Mat4 {
	if fovDeg <= 0 {
		fovDeg = r.config.FOV
	}
	return mgl32.Perspective(mgl32.DegToRad(fovDeg), r.Aspect(), r.config.Near, r.config.Far)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// SetSun replaces the directional light used for models.
func (r *Renderer) SetSun(sun lighting.Sun) {
	r.sun = sun
}

// BeginModels prepares the model program with the frame's camera matrices
// and the sun.
func (r *Renderer) BeginModels(view, projection mgl32.Mat4) {
	r.model.Use()
	r.model.SetMat4("view", view)
	r.model.SetMat4("projection", projection)
	r.model.SetVec3("lightDir", r.sun.Direction())
	r.model.SetFloat("ambient", r.sun.Ambient)
}

// Aspect returns width/height, or 1 for a degenerate size.
func Aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
