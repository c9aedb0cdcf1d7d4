package config

import (
	"math"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-flex/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
)

// Present modes accepted by WindowConfig.PresentMode.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// WindowConfig describes the interactive window and its surface.
type WindowConfig struct {
	Title       string `yaml:"title,omitempty"`
	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
	PresentMode string `yaml:"present_mode,omitempty"`
	MSAA        int    `yaml:"msaa,omitempty"`

	// SoftwareAdapter asks WebGPU for its fallback (CPU) adapter.
	SoftwareAdapter bool `yaml:"software_adapter,omitempty"`
}

// AnimationConfig parameterizes the oscillating joint. An amplitude of 0 holds the rest pose, so
// Amplitude is a pointer to tell it apart from an omitted value.
type AnimationConfig struct {
	Amplitude *float64   `yaml:"amplitude,omitempty"`
	Frequency float64    `yaml:"frequency,omitempty"`
	Axis      [3]float32 `yaml:"axis,flow,omitempty"`
}

// StripConfig sizes the generated strip mesh.
type StripConfig struct {
	Rows   int     `yaml:"rows,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`

	// Origin is the centre of the bottom edge.
	Origin [3]float32 `yaml:"origin,flow,omitempty"`
}

// CameraConfig holds the projection and look-at parameters.
type CameraConfig struct {
	Fov    float32    `yaml:"fov,omitempty"`
	Near   float32    `yaml:"near,omitempty"`
	Far    float32    `yaml:"far,omitempty"`
	Eye    [3]float32 `yaml:"eye,flow"`
	Target [3]float32 `yaml:"target,flow"`
	Up     [3]float32 `yaml:"up,flow"`
}

// HeadlessConfig controls the software backend. Frames 0 renders until interrupted, so Frames is
// a pointer to tell it apart from an omitted value.
type HeadlessConfig struct {
	Frames          *int    `yaml:"frames,omitempty"`
	FPS             float64 `yaml:"fps,omitempty"`
	Supersample     int     `yaml:"supersample,omitempty"`
	OutputDir       string  `yaml:"output_dir,omitempty"`
	ValidateShaders bool    `yaml:"validate_shaders,omitempty"`
}

// ExportConfig controls the glTF pose export.
type ExportConfig struct {
	GLTF string  `yaml:"gltf,omitempty"`
	Time float64 `yaml:"time,omitempty"`
}

// Config is the complete run configuration, loaded from YAML and overridden by command line flags.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Backend   string          `yaml:"backend,omitempty"`
	Animation AnimationConfig `yaml:"animation"`
	Strip     StripConfig     `yaml:"strip"`
	Camera    CameraConfig    `yaml:"camera"`
	Headless  HeadlessConfig  `yaml:"headless"`
	Workers   int             `yaml:"workers,omitempty"`
	Profiling bool            `yaml:"profiling,omitempty"`
	Export    ExportConfig    `yaml:"export"`
}

// Flags are command line overrides. A nil field was not given on the command line.
type Flags struct {
	Backend    *string
	Frames     *int
	OutputDir  *string
	ExportGLTF *string
	Time       *float64
	Workers    *int
	Profile    *bool
}

// Default returns the configuration of the plank demo: a 400x400 view of the default strip
// swinging pi/4 about +Z once every 2*pi seconds.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:       "oxy-flex",
			Width:       400,
			Height:      400,
			PresentMode: PresentModeVSync,
			MSAA:        4,
		},
		Backend: BackendWGPU,
		Animation: AnimationConfig{
			Amplitude: ptr(math.Pi / 4),
			Frequency: 1,
			Axis:      [3]float32{0, 0, 1},
		},
		Strip: StripConfig{Rows: 5, Width: 1, Height: 0.8},
		Camera: CameraConfig{
			Fov:    math.Pi / 4,
			Near:   0.1,
			Far:    10,
			Eye:    [3]float32{0, 0, -4},
			Target: [3]float32{0, 0, 0},
			Up:     [3]float32{0, 1, 0},
		},
		Headless: HeadlessConfig{
			Frames:      ptr(120),
			FPS:         60,
			Supersample: 1,
		},
	}
}

// Load reads a YAML configuration file. Fields the file omits stay zero until Resolve fills them.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the parsed configuration
//   - error: an error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Resolve applies command line overrides and then fills every unset field from Default.
//
// Parameters:
//   - flags: the command line overrides
func (c *Config) Resolve(flags Flags) {
	if flags.Backend != nil {
		c.Backend = *flags.Backend
	}
	if flags.Frames != nil {
		c.Headless.Frames = ptr(*flags.Frames)
	}
	if flags.OutputDir != nil {
		c.Headless.OutputDir = *flags.OutputDir
	}
	if flags.ExportGLTF != nil {
		c.Export.GLTF = *flags.ExportGLTF
	}
	if flags.Time != nil {
		c.Export.Time = *flags.Time
	}
	if flags.Workers != nil {
		c.Workers = *flags.Workers
	}
	if flags.Profile != nil {
		c.Profiling = *flags.Profile
	}

	d := Default()
	c.Window.Title = common.Coalesce(c.Window.Title, d.Window.Title)
	c.Window.Width = common.Coalesce(c.Window.Width, d.Window.Width)
	c.Window.Height = common.Coalesce(c.Window.Height, d.Window.Height)
	c.Window.PresentMode = strings.ToLower(common.Coalesce(c.Window.PresentMode, d.Window.PresentMode))
	c.Window.MSAA = common.Coalesce(c.Window.MSAA, d.Window.MSAA)
	c.Backend = strings.ToLower(common.Coalesce(c.Backend, d.Backend))

	if c.Animation.Amplitude == nil {
		c.Animation.Amplitude = d.Animation.Amplitude
	}
	c.Animation.Frequency = common.Coalesce(c.Animation.Frequency, d.Animation.Frequency)
	c.Animation.Axis = common.Coalesce(c.Animation.Axis, d.Animation.Axis)

	c.Strip.Rows = common.Coalesce(c.Strip.Rows, d.Strip.Rows)
	c.Strip.Width = common.Coalesce(c.Strip.Width, d.Strip.Width)
	c.Strip.Height = common.Coalesce(c.Strip.Height, d.Strip.Height)

	c.Camera.Fov = common.Coalesce(c.Camera.Fov, d.Camera.Fov)
	c.Camera.Near = common.Coalesce(c.Camera.Near, d.Camera.Near)
	c.Camera.Far = common.Coalesce(c.Camera.Far, d.Camera.Far)
	// an eye at the origin is never useful, so a zero eye means unset; the target may be the origin
	c.Camera.Eye = common.Coalesce(c.Camera.Eye, d.Camera.Eye)
	c.Camera.Up = common.Coalesce(c.Camera.Up, d.Camera.Up)

	c.Headless.FPS = common.Coalesce(c.Headless.FPS, d.Headless.FPS)
	c.Headless.Supersample = common.Coalesce(c.Headless.Supersample, d.Headless.Supersample)
	if c.Headless.Frames == nil {
		c.Headless.Frames = d.Headless.Frames
	}
}

// Validate checks that the resolved configuration describes a runnable scene.
//
// Returns:
//   - error: a *common.ValidationError listing every invalid field, or nil
func (c *Config) Validate() error {
	verr := common.NewValidationError("config")
	switch c.Backend {
	case BackendWGPU, BackendSoftware:
	default:
		verr.Add("backend %q is not %q or %q", c.Backend, BackendWGPU, BackendSoftware)
	}
	switch c.Window.PresentMode {
	case PresentModeVSync, PresentModeUncapped:
	default:
		verr.Add("window.present_mode %q is not %q or %q", c.Window.PresentMode, PresentModeVSync, PresentModeUncapped)
	}
	if c.Window.MSAA != 1 && c.Window.MSAA != 4 {
		verr.Add("window.msaa must be 1 or 4, got %d", c.Window.MSAA)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		verr.Add("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Strip.Rows < 2 {
		verr.Add("strip.rows must be at least 2, got %d", c.Strip.Rows)
	}
	if c.Strip.Width <= 0 || c.Strip.Height <= 0 {
		verr.Add("strip dimensions must be positive, got %vx%v", c.Strip.Width, c.Strip.Height)
	}
	if c.Animation.Axis == ([3]float32{}) {
		verr.Add("animation.axis must be non-zero")
	}
	if !(c.Camera.Fov > 0 && c.Camera.Fov < math.Pi) {
		verr.Add("camera.fov must be in (0, pi), got %v", c.Camera.Fov)
	}
	if !(c.Camera.Near > 0 && c.Camera.Far > c.Camera.Near) {
		verr.Add("camera planes must satisfy 0 < near < far, got near %v far %v", c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.Eye == c.Camera.Target {
		verr.Add("camera.eye and camera.target coincide")
	}
	switch {
	case c.Headless.Frames == nil:
		verr.Add("headless.frames is unset")
	case *c.Headless.Frames < 0:
		verr.Add("headless.frames must not be negative, got %d", *c.Headless.Frames)
	}
	if c.Animation.Amplitude == nil {
		verr.Add("animation.amplitude is unset")
	}
	if !(c.Headless.FPS > 0) {
		verr.Add("headless.fps must be positive, got %v", c.Headless.FPS)
	}
	if c.Headless.Supersample < 1 {
		verr.Add("headless.supersample must be at least 1, got %d", c.Headless.Supersample)
	}
	if c.Workers < 0 {
		verr.Add("workers must not be negative, got %d", c.Workers)
	}
	return verr.OrNil()
}

func ptr[T any](v T) *T {
	return &v
}
