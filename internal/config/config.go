// Package config handles demo configuration loading and management.
package config

// Config holds all demo settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Assets   AssetsConfig   `yaml:"assets"`
	Game     GameConfig     `yaml:"game"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and projection settings.
type GraphicsConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FOV        float32 `yaml:"fov"` // initial zoom, degrees
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`

	SunLongitude float32 `yaml:"sun_longitude"` // degrees around Y
	SunLatitude  float32 `yaml:"sun_latitude"`  // degrees above the horizon
	Ambient      float32 `yaml:"ambient"`       // 0..1
}

// AssetsConfig holds model and skybox locations plus import options.
type AssetsConfig struct {
	SharkModel      string   `yaml:"shark_model"`
	FishModel       string   `yaml:"fish_model"`
	SkyboxDir       string   `yaml:"skybox_dir"`
	SkyboxFaces     []string `yaml:"skybox_faces"` // right, left, top, bottom, front, back
	FlipUVs         bool     `yaml:"flip_uvs"`
	GenerateNormals bool     `yaml:"generate_normals"`
}

// GameConfig holds gameplay tuning.
type GameConfig struct {
	FishCount        int        `yaml:"fish_count"`
	CatchRadius      float32    `yaml:"catch_radius"`
	CameraSpeed      float32    `yaml:"camera_speed"`
	MouseSensitivity float32    `yaml:"mouse_sensitivity"`
	Seed             uint64     `yaml:"seed"`          // 0 picks a time-based seed
	SpawnExtent      [3]float32 `yaml:"spawn_extent"`  // full box size around the origin
	WanderRadius     float32    `yaml:"wander_radius"` // half-width of the waypoint box
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock demo values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  800,
			Height: 600,
			VSync:  true,
			FOV:    45,
			Near:   0.1,
			Far:    100,

			SunLongitude: 323,
			SunLatitude:  66,
			Ambient:      0.45,
		},
		Assets: AssetsConfig{
			SharkModel: "assets/great_white_shark.glb",
			FishModel:  "assets/low_poly_fish.glb",
			SkyboxDir:  "assets/skybox",
			SkyboxFaces: []string{
				"right.jpg", "left.jpg", "top.jpg",
				"bottom.jpg", "front.jpg", "back.jpg",
			},
			FlipUVs: true,
		},
		Game: GameConfig{
			FishCount:        8,
			CatchRadius:      1.2,
			CameraSpeed:      5,
			MouseSensitivity: 0.1,
			SpawnExtent:      [3]float32{15, 12, 15},
			WanderRadius:     2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
