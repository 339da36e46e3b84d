// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// ModelVertexShader transforms model vertices by model, view and projection.
//
//go:embed model.vert
var ModelVertexShader string

// ModelFragmentShader samples texture_diffuse1 with simple directional light.
//
//go:embed model.frag
var ModelFragmentShader string

// SkyboxVertexShader projects the unit cube at maximum depth.
//
//go:embed skybox.vert
var SkyboxVertexShader string

// SkyboxFragmentShader samples the skybox cubemap.
//
//go:embed skybox.frag
var SkyboxFragmentShader string
