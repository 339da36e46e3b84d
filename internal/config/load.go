package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the renderer or game cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = append(errs, fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if c.Graphics.Near <= 0 || c.Graphics.Far <= c.Graphics.Near {
		errs = append(errs, fmt.Errorf("graphics: invalid clip range [%g, %g]", c.Graphics.Near, c.Graphics.Far))
	}
	if c.Graphics.Ambient < 0 || c.Graphics.Ambient > 1 {
		errs = append(errs, fmt.Errorf("graphics: ambient %g outside [0, 1]", c.Graphics.Ambient))
	}
	if c.Game.FishCount < 0 {
		errs = append(errs, fmt.Errorf("game: negative fish_count %d", c.Game.FishCount))
	}
	if len(c.Assets.SkyboxFaces) != 0 && len(c.Assets.SkyboxFaces) != 6 {
		errs = append(errs, fmt.Errorf("assets: skybox needs 6 faces, got %d", len(c.Assets.SkyboxFaces)))
	}
	return errors.Join(errs...)
}

// SkyboxPaths returns the cubemap face files joined to SkyboxDir.
func (a AssetsConfig) SkyboxPaths() []string {
	paths := make([]string, len(a.SkyboxFaces))
	for i, f := range a.SkyboxFaces {
		paths[i] = filepath.Join(a.SkyboxDir, f)
	}
	return paths
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "HungryFish")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "HungryFish")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "hungryfish")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "hungryfish")
	}
}

// loadFromFile merges a YAML file over the values already in cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
