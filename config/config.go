// Package config loads demo runs from YAML or TOML: output size, scale,
// shaders, camera, and the scene itself.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/ssaa"
)

// maxConfigSize bounds the files Load reads.
const maxConfigSize = 1 << 20

// MaxScale is the largest supersampling scale a config may request. The
// renderer lowers it further to fit the device.
const MaxScale = 16

// Format is a config file syntax.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("config: unknown format for %q", path)
}

var (
	ErrInvalid      = errors.New("config: invalid")
	ErrTooLarge     = errors.New("config: file too large")
	ErrUnknownShape = errors.New("config: unknown mesh shape")
	ErrUnknownMesh  = errors.New("config: unknown mesh")
)

// Config is one demo run.
type Config struct {
	Width     uint32      `yaml:"width" toml:"width"`
	Height    uint32      `yaml:"height" toml:"height"`
	Scale     int         `yaml:"scale" toml:"scale"`
	AA        ssaa.AAMode `yaml:"aa" toml:"aa"`
	Technique string      `yaml:"technique" toml:"technique"`
	Frames    int         `yaml:"frames" toml:"frames"`

	// ClearColor is RGBA in [0, 1].
	ClearColor [4]float64 `yaml:"clear_color" toml:"clear_color"`

	Shaders Shaders  `yaml:"shaders" toml:"shaders"`
	Camera  Camera   `yaml:"camera" toml:"camera"`
	Meshes  []Mesh   `yaml:"meshes" toml:"meshes"`
	Objects []Object `yaml:"objects" toml:"objects"`
	Lights  []Light  `yaml:"lights" toml:"lights"`
}

// Shaders names WGSL files on disk. Empty names use the built-in shaders.
// Files are <Dir>/<name>.vert.wgsl and <Dir>/<name>.frag.wgsl.
type Shaders struct {
	Dir       string `yaml:"dir" toml:"dir"`
	Scene     string `yaml:"scene" toml:"scene"`
	Composite string `yaml:"composite" toml:"composite"`
}

// Camera orbits Target at Distance, raised by Height.
type Camera struct {
	FOV      float32    `yaml:"fov" toml:"fov"` // degrees
	Near     float32    `yaml:"near" toml:"near"`
	Far      float32    `yaml:"far" toml:"far"`
	Distance float32    `yaml:"distance" toml:"distance"`
	Height   float32    `yaml:"height" toml:"height"`
	Target   [3]float32 `yaml:"target" toml:"target"`
}

// Mesh is a procedural mesh.
type Mesh struct {
	Name     string     `yaml:"name" toml:"name"`
	Shape    string     `yaml:"shape" toml:"shape"` // box, plane or sphere
	Size     [3]float32 `yaml:"size" toml:"size"`
	Radius   float32    `yaml:"radius" toml:"radius"`
	Segments int        `yaml:"segments" toml:"segments"`
	Color    [3]float32 `yaml:"color" toml:"color"`
}

// Object places a named mesh.
type Object struct {
	Mesh     string     `yaml:"mesh" toml:"mesh"`
	Position [3]float32 `yaml:"position" toml:"position"`
}

// Light is a point light.
type Light struct {
	Position  [3]float32 `yaml:"position" toml:"position"`
	Color     [3]float32 `yaml:"color" toml:"color"`
	Intensity float32    `yaml:"intensity" toml:"intensity"`
}

// Default returns a small lit scene: a sphere and a box on a floor.
func Default() *Config {
	return &Config{
		Width:      640,
		Height:     480,
		Scale:      2,
		Technique:  "forward",
		Frames:     1,
		ClearColor: [4]float64{0.05, 0.05, 0.08, 1},
		Camera: Camera{
			FOV: 60, Near: 0.1, Far: 100, Distance: 6, Height: 2,
		},
		Meshes: []Mesh{
			{Name: "floor", Shape: "plane", Size: [3]float32{10, 0, 10}, Color: [3]float32{0.6, 0.6, 0.6}},
			{Name: "ball", Shape: "sphere", Radius: 1, Segments: 32, Color: [3]float32{0.9, 0.3, 0.2}},
			{Name: "crate", Shape: "box", Size: [3]float32{1, 1, 1}, Color: [3]float32{0.2, 0.5, 0.9}},
		},
		Objects: []Object{
			{Mesh: "floor", Position: [3]float32{0, -1, 0}},
			{Mesh: "ball", Position: [3]float32{-1.2, 0, 0}},
			{Mesh: "crate", Position: [3]float32{1.2, -0.5, 0}},
		},
		Lights: []Light{
			{Position: [3]float32{3, 4, 3}, Color: [3]float32{1, 1, 1}, Intensity: 20},
			{Position: [3]float32{-4, 2, -2}, Color: [3]float32{0.4, 0.5, 1}, Intensity: 8},
		},
	}
}

// Load reads a config file. Fields the file omits keep their Default values.
func Load(path string) (*Config, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ssaa.Logger().Info("config: loaded", "path", path, "format", format.String(),
		"meshes", len(cfg.Meshes), "objects", len(cfg.Objects), "lights", len(cfg.Lights))
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	// Scene lists replace the defaults instead of merging into them. A file
	// that declares none of them keeps the default scene.
	cfg.Meshes, cfg.Objects, cfg.Lights = nil, nil, nil

	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		err = fmt.Errorf("unknown format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", format, err)
	}
	if len(cfg.Meshes) == 0 && len(cfg.Objects) == 0 && len(cfg.Lights) == 0 {
		def := Default()
		cfg.Meshes, cfg.Objects, cfg.Lights = def.Meshes, def.Objects, def.Lights
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
