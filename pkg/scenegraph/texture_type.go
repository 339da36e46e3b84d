package scenegraph

import "strings"

// TextureType is the semantic slot a material binds a texture under.
// Values follow the importer's enumeration order; loaders iterate
// TextureNone..TextureUnknown inclusive.
type TextureType int

const (
	TextureNone TextureType = iota
	TextureDiffuse
	TextureSpecular
	TextureAmbient
	TextureEmissive
	TextureHeight
	TextureNormals
	TextureShininess
	TextureOpacity
	TextureDisplacement
	TextureLightmap
	TextureReflection
	TextureBaseColor
	TextureNormalCamera
	TextureEmissionColor
	TextureMetalness
	TextureDiffuseRoughness
	TextureAmbientOcclusion
	TextureUnknown
)

var textureTypeNames = [...]string{
	TextureNone:             "n/a",
	TextureDiffuse:          "Diffuse",
	TextureSpecular:         "Specular",
	TextureAmbient:          "Ambient",
	TextureEmissive:         "Emissive",
	TextureHeight:           "Height",
	TextureNormals:          "Normals",
	TextureShininess:        "Shininess",
	TextureOpacity:          "Opacity",
	TextureDisplacement:     "Displacement",
	TextureLightmap:         "Lightmap",
	TextureReflection:       "Reflection",
	TextureBaseColor:        "BaseColor",
	TextureNormalCamera:     "NormalCamera",
	TextureEmissionColor:    "EmissionColor",
	TextureMetalness:        "Metalness",
	TextureDiffuseRoughness: "DiffuseRoughness",
	TextureAmbientOcclusion: "AmbientOcclusion",
	TextureUnknown:          "Unknown",
}

// TextureTypes returns every slot in enumeration order.
func TextureTypes() []TextureType {
	types := make([]TextureType, 0, TextureUnknown+1)
	for t := TextureNone; t <= TextureUnknown; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is inside the enumeration.
func (t TextureType) Valid() bool {
	return t >= TextureNone && t <= TextureUnknown
}

func (t TextureType) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return textureTypeNames[t]
}

// Uniform returns the sampler name prefix used by model shaders, e.g.
// "texture_diffuse". Draw appends a 1-based per-type counter.
func (t TextureType) Uniform() string {
	if t == TextureNone {
		return "texture_none"
	}
	return "texture_" + strings.ToLower(t.String())
}
