// Package config provides configuration management for the scene viewer and tools.
package config

// Config holds all configuration.
type Config struct {
	Graphics   GraphicsConfig   `yaml:"graphics" toml:"graphics"`
	Scene      SceneConfig      `yaml:"scene" toml:"scene"`
	Animation  AnimationConfig  `yaml:"animation" toml:"animation"`
	Instancing InstancingConfig `yaml:"instancing" toml:"instancing"`
	Camera     CameraConfig     `yaml:"camera" toml:"camera"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Data       DataConfig       `yaml:"data" toml:"data"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width" toml:"width"`
	Height     int  `yaml:"height" toml:"height"`
	Fullscreen bool `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool `yaml:"vsync" toml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit" toml:"fps_limit"`

	// ScreenshotScale multiplies the render size of captured screenshots.
	ScreenshotScale int `yaml:"screenshot_scale" toml:"screenshot_scale"`
}

// SceneConfig holds scene-wide rendering switches.
type SceneConfig struct {
	UseRightHandedSystem bool `yaml:"use_right_handed_system" toml:"use_right_handed_system"`
	ForceWireframe       bool `yaml:"force_wireframe" toml:"force_wireframe"`
	ForcePointsCloud     bool `yaml:"force_points_cloud" toml:"force_points_cloud"`
}

// AnimationConfig holds keyframe animation settings.
type AnimationConfig struct {
	// MatrixInterpolation is one of "none", "lerp", "decompose".
	MatrixInterpolation string  `yaml:"matrix_interpolation" toml:"matrix_interpolation"`
	DefaultFPS          float32 `yaml:"default_fps" toml:"default_fps"`
	BlendingSpeed       float32 `yaml:"blending_speed" toml:"blending_speed"`
}

// InstancingConfig holds hardware instancing settings.
type InstancingConfig struct {
	// InitialCapacity is the number of world matrices the instance buffer starts with.
	InitialCapacity int `yaml:"initial_capacity" toml:"initial_capacity"`
}

// CameraConfig holds default camera settings.
type CameraConfig struct {
	FOV                     float32 `yaml:"fov" toml:"fov"`
	MinZ                    float32 `yaml:"min_z" toml:"min_z"`
	MaxZ                    float32 `yaml:"max_z" toml:"max_z"`
	RigMode                 string  `yaml:"rig_mode" toml:"rig_mode"`
	InteraxialDistance      float32 `yaml:"interaxial_distance" toml:"interaxial_distance"`
	AlternateWebVRRendering bool    `yaml:"alternate_webvr_rendering" toml:"alternate_webvr_rendering"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// DataConfig holds data paths.
type DataConfig struct {
	SceneFile string `yaml:"scene_file" toml:"scene_file"`
	// HeightMap displaces the demo ground when no scene file is given.
	HeightMap string `yaml:"height_map" toml:"height_map"`
	// ExportFile is written as glTF by the viewer export key.
	ExportFile string `yaml:"export_file" toml:"export_file"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   60,

			ScreenshotScale: 1,
		},
		Animation: AnimationConfig{
			MatrixInterpolation: "none",
			DefaultFPS:          60,
			BlendingSpeed:       0.01,
		},
		Instancing: InstancingConfig{
			InitialCapacity: 32,
		},
		Camera: CameraConfig{
			FOV:                0.8,
			MinZ:               1,
			MaxZ:               10000,
			RigMode:            "none",
			InteraxialDistance: 0.0637,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Data: DataConfig{
			ExportFile: "scene.glb",
		},
	}
}
