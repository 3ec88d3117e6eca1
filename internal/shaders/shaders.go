// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shaders holds the default WGSL sources of the forward renderer
// and loads replacement sources from disk.
package shaders

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed scene.vert.wgsl
var sceneVertexSource string

//go:embed scene.frag.wgsl
var sceneFragmentSource string

//go:embed composite.vert.wgsl
var compositeVertexSource string

//go:embed composite.frag.wgsl
var compositeFragmentSource string

// ErrEmptySource is returned when a shader file has no content.
var ErrEmptySource = errors.New("shaders: empty shader source")

// Pair is the WGSL source of one vertex and one fragment stage.
type Pair struct {
	Vertex   string
	Fragment string
}

// IsZero reports whether neither stage has source.
func (p Pair) IsZero() bool {
	return p.Vertex == "" && p.Fragment == ""
}

// Scene returns the default scene-shading pair.
func Scene() Pair {
	return Pair{Vertex: sceneVertexSource, Fragment: sceneFragmentSource}
}

// Composite returns the default downsample/composite pair.
func Composite() Pair {
	return Pair{Vertex: compositeVertexSource, Fragment: compositeFragmentSource}
}

// Load reads a pair from two files.
func Load(vertexPath, fragmentPath string) (Pair, error) {
	vs, err := readSource(vertexPath)
	if err != nil {
		return Pair{}, err
	}
	fs, err := readSource(fragmentPath)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Vertex: vs, Fragment: fs}, nil
}

// LoadDir reads <dir>/<name>.vert.wgsl and <dir>/<name>.frag.wgsl.
func LoadDir(dir, name string) (Pair, error) {
	return Load(
		filepath.Join(dir, name+".vert.wgsl"),
		filepath.Join(dir, name+".frag.wgsl"),
	)
}

// Paths returns the two file names LoadDir reads.
func Paths(dir, name string) (vertexPath, fragmentPath string) {
	return filepath.Join(dir, name+".vert.wgsl"), filepath.Join(dir, name+".frag.wgsl")
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("shaders: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	return string(data), nil
}
