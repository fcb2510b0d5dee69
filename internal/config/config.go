// Package config loads the TOML settings file that drives the demo and
// watches it for frame settings edited while the program runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"Prism3D/internal/renderer"

	"github.com/pelletier/go-toml/v2"
)

type Window struct {
	Title         string `toml:"title"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Resizable     bool   `toml:"resizable"`
	VSync         bool   `toml:"vsync"`
	CaptureCursor bool   `toml:"capture_cursor"`
}

// Capture controls F12 screenshots.
type Capture struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
	// Scale shrinks the saved image; 1 keeps the surface size.
	Scale float64 `toml:"scale"`
	Queue int     `toml:"queue"`
}

type Scene struct {
	Model       string   `toml:"model"`
	ModelScale  float32  `toml:"model_scale"`
	Terrain     bool     `toml:"terrain"`
	Seed        int64    `toml:"seed"`
	Cubes       int      `toml:"cubes"`
	PointLights int      `toml:"point_lights"`
	Behaviours  []string `toml:"behaviours"`
}

// File is the whole settings file. Pipeline values are fixed once the
// renderer exists; Frame values may be edited at runtime.
type File struct {
	Preset   string                  `toml:"preset"`
	Window   Window                  `toml:"window"`
	Pipeline renderer.PipelineConfig `toml:"pipeline"`
	Frame    renderer.FrameSettings  `toml:"frame"`
	Capture  Capture                 `toml:"capture"`
	Scene    Scene                   `toml:"scene"`
}

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

func Default() File {
	return File{
		Window: Window{
			Title:         "Prism3D",
			Width:         defaultWidth,
			Height:        defaultHeight,
			VSync:         true,
			CaptureCursor: true,
		},
		Pipeline: renderer.DefaultPipelineConfig(defaultWidth, defaultHeight),
		Frame:    renderer.DefaultFrameSettings(),
		Capture: Capture{
			Dir:    "captures",
			Format: "webp",
			Scale:  1,
			Queue:  4,
		},
		Scene: Scene{
			ModelScale:  1,
			Terrain:     true,
			Seed:        7,
			Cubes:       5,
			PointLights: 4,
			Behaviours:  []string{"orbit", "pulse"},
		},
	}
}

// Load reads path over the defaults. The pipeline defaults come from the
// file's preset at the file's window size, so a file that only sets the
// window size still gets a matching pipeline resolution.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	f, err := decode(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func decode(data []byte) (File, error) {
	var head struct {
		Preset string `toml:"preset"`
		Window Window `toml:"window"`
	}
	head.Window = Default().Window
	if err := toml.Unmarshal(data, &head); err != nil {
		return File{}, err
	}

	f := Default()
	f.Window = head.Window
	pipeline, err := renderer.PipelinePreset(head.Preset, head.Window.Width, head.Window.Height)
	if err != nil {
		return File{}, err
	}
	f.Pipeline = pipeline

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return File{}, errors.New(strict.String())
		}
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	if f.Window.Width <= 0 || f.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", f.Window.Width, f.Window.Height)
	}
	if err := f.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := f.Frame.Validate(); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	switch strings.ToLower(f.Capture.Format) {
	case "webp", "png":
	default:
		return fmt.Errorf("capture format must be webp or png, got %q", f.Capture.Format)
	}
	if f.Capture.Scale <= 0 || f.Capture.Scale > 1 {
		return fmt.Errorf("capture scale must be in (0, 1], got %v", f.Capture.Scale)
	}
	if f.Scene.PointLights < 0 || f.Scene.PointLights > renderer.MaxPointLights {
		return fmt.Errorf("scene point_lights must be in [0, %d], got %d", renderer.MaxPointLights, f.Scene.PointLights)
	}
	if f.Scene.Cubes < 0 {
		return fmt.Errorf("scene cubes must not be negative")
	}
	return nil
}
