package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ssaa"
	"github.com/gogpu/ssaa/internal/shaders"
	"github.com/gogpu/ssaa/mesh"
	"github.com/gogpu/ssaa/render"
)

// Validate reports the first problem with c, wrapped in ErrInvalid or a
// more specific sentinel.
func (c *Config) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Scale < 1 || c.Scale > MaxScale:
		return fmt.Errorf("%w: scale %d outside [1, %d]", ErrInvalid, c.Scale, MaxScale)
	case c.Frames < 1:
		return fmt.Errorf("%w: frames %d, must be at least 1", ErrInvalid, c.Frames)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fmt.Errorf("%w: camera fov %v outside (0, 180)", ErrInvalid, c.Camera.FOV)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera near/far %v/%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	}
	if _, err := render.ParseTechnique(c.Technique); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	names := make(map[string]bool, len(c.Meshes))
	for i, m := range c.Meshes {
		if m.Name == "" {
			return fmt.Errorf("%w: mesh %d has no name", ErrInvalid, i)
		}
		if names[m.Name] {
			return fmt.Errorf("%w: duplicate mesh %q", ErrInvalid, m.Name)
		}
		names[m.Name] = true
		if _, err := m.Build(); err != nil {
			return err
		}
	}
	for i, o := range c.Objects {
		if !names[o.Mesh] {
			return fmt.Errorf("%w: object %d references %q", ErrUnknownMesh, i, o.Mesh)
		}
	}
	for i, l := range c.Lights {
		if l.Intensity < 0 {
			return fmt.Errorf("%w: light %d has negative intensity", ErrInvalid, i)
		}
	}
	return nil
}

// Build generates the mesh's indexed streams.
func (m Mesh) Build() (mesh.Indexed, error) {
	var out mesh.Indexed
	switch strings.ToLower(m.Shape) {
	case "box", "cube":
		if m.Size[0] <= 0 || m.Size[1] <= 0 || m.Size[2] <= 0 {
			return out, fmt.Errorf("%w: box %q size %v", ErrInvalid, m.Name, m.Size)
		}
		out = mesh.Box(m.Size[0], m.Size[1], m.Size[2])
	case "plane":
		if m.Size[0] <= 0 || m.Size[2] <= 0 {
			return out, fmt.Errorf("%w: plane %q size %v", ErrInvalid, m.Name, m.Size)
		}
		out = mesh.Plane(m.Size[0], m.Size[2])
	case "sphere":
		if m.Radius <= 0 {
			return out, fmt.Errorf("%w: sphere %q radius %v", ErrInvalid, m.Name, m.Radius)
		}
		segs := m.Segments
		if segs == 0 {
			segs = 24
		}
		out = mesh.UVSphere(m.Radius, segs, segs)
	default:
		return out, fmt.Errorf("%w: %q for mesh %q", ErrUnknownShape, m.Shape, m.Name)
	}
	if m.Color != ([3]float32{}) {
		out = mesh.Tint(out, vec3(m.Color))
	}
	return out, nil
}

func vec3(a [3]float32) ssaa.Vec3 { return ssaa.Vec3{X: a[0], Y: a[1], Z: a[2]} }

// Scene builds the ssaa scene. Meshes are added in declaration order, so
// MeshID i is c.Meshes[i].
func (c *Config) Scene() (ssaa.Scene, error) {
	var s ssaa.Scene
	ids := make(map[string]ssaa.MeshID, len(c.Meshes))
	for _, m := range c.Meshes {
		indexed, err := m.Build()
		if err != nil {
			return ssaa.Scene{}, err
		}
		vs, err := mesh.Flatten(indexed)
		if err != nil {
			return ssaa.Scene{}, fmt.Errorf("config: mesh %q: %w", m.Name, err)
		}
		ids[m.Name] = s.AddMesh(vs)
	}
	for i, o := range c.Objects {
		id, ok := ids[o.Mesh]
		if !ok {
			return ssaa.Scene{}, fmt.Errorf("%w: object %d references %q", ErrUnknownMesh, i, o.Mesh)
		}
		s.Place(id, vec3(o.Position))
	}
	for _, l := range c.Lights {
		s.Lights = append(s.Lights, ssaa.PointLight{
			Position:  vec3(l.Position),
			Color:     vec3(l.Color),
			Intensity: l.Intensity,
		})
	}
	return s, nil
}

// Options returns the renderer options c describes. Shader files are read
// relative to base when Shaders.Dir is relative.
func (c *Config) Options(base string) ([]render.Option, error) {
	opts := []render.Option{
		render.WithScale(c.Scale),
		render.WithAA(c.AA),
		render.WithClearColor(gputypes.Color{
			R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3],
		}),
	}
	scene, composite, err := c.ShaderPairs(base)
	if err != nil {
		return nil, err
	}
	if !scene.IsZero() {
		opts = append(opts, render.WithSceneShaders(scene))
	}
	if !composite.IsZero() {
		opts = append(opts, render.WithCompositeShaders(composite))
	}
	return opts, nil
}

// ShaderDir resolves Shaders.Dir against base.
func (c *Config) ShaderDir(base string) string {
	if c.Shaders.Dir == "" || filepath.IsAbs(c.Shaders.Dir) {
		return c.Shaders.Dir
	}
	return filepath.Join(base, c.Shaders.Dir)
}

// ShaderPairs loads the configured shader files. A pair whose name is
// empty is returned zero, meaning the built-in shaders.
func (c *Config) ShaderPairs(base string) (scene, composite shaders.Pair, err error) {
	dir := c.ShaderDir(base)
	if c.Shaders.Scene != "" {
		if scene, err = shaders.LoadDir(dir, c.Shaders.Scene); err != nil {
			return scene, composite, fmt.Errorf("config: scene shaders: %w", err)
		}
	}
	if c.Shaders.Composite != "" {
		if composite, err = shaders.LoadDir(dir, c.Shaders.Composite); err != nil {
			return scene, composite, fmt.Errorf("config: composite shaders: %w", err)
		}
	}
	return scene, composite, nil
}

// ShaderFiles lists the shader files the config reads, for watching.
func (c *Config) ShaderFiles(base string) []string {
	dir := c.ShaderDir(base)
	var files []string
	for _, name := range []string{c.Shaders.Scene, c.Shaders.Composite} {
		if name == "" {
			continue
		}
		v, f := shaders.Paths(dir, name)
		files = append(files, v, f)
	}
	return files
}

// TechniqueValue parses Technique.
func (c *Config) TechniqueValue() render.Technique {
	t, _ := render.ParseTechnique(c.Technique)
	return t
}

// OrbitCamera returns the camera for frame i of n, circling the target
// once over the run.
func (c *Config) OrbitCamera(i, n int) *ssaa.Camera {
	cam := ssaa.NewCameraForSize(c.Camera.FOV*math32.Pi/180, int(c.Width), int(c.Height), c.Camera.Near, c.Camera.Far)
	angle := float32(0)
	if n > 0 {
		angle = 2 * math32.Pi * float32(i) / float32(n)
	}
	target := vec3(c.Camera.Target)
	cam.SetPosition(ssaa.Vec3{
		X: target.X + c.Camera.Distance*math32.Sin(angle),
		Y: target.Y + c.Camera.Height,
		Z: target.Z + c.Camera.Distance*math32.Cos(angle),
	})
	cam.LookAt(target, ssaa.Vec3{Y: 1})
	return cam
}
