// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/ssaa"
)

// Technique selects a rendering technique.
type Technique int

const (
	// TechniqueForward shades every object against every light in one pass.
	TechniqueForward Technique = iota
)

// ErrUnknownTechnique is returned for techniques without an implementation.
var ErrUnknownTechnique = errors.New("render: unknown technique")

// String returns the technique name.
func (t Technique) String() string {
	switch t {
	case TechniqueForward:
		return "forward"
	default:
		return fmt.Sprintf("Technique(%d)", int(t))
	}
}

// ParseTechnique parses a technique name, case-insensitively.
func ParseTechnique(s string) (Technique, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "":
		return TechniqueForward, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTechnique, s)
}

// Renderer is a renderer of any supported technique. Exactly one of the
// technique fields is set.
type Renderer struct {
	technique Technique
	forward   *ForwardRenderer
}

// NewRenderer creates a renderer for technique.
func NewRenderer(ctx *Context, technique Technique, width, height uint32, scene ssaa.Scene, opts ...Option) (*Renderer, error) {
	switch technique {
	case TechniqueForward:
		fr, err := NewForwardRenderer(ctx, width, height, scene, opts...)
		if err != nil {
			return nil, err
		}
		return &Renderer{technique: technique, forward: fr}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownTechnique, technique)
	}
}

// Technique returns the technique in use.
func (r *Renderer) Technique() Technique { return r.technique }

// Forward returns the forward renderer, or nil for other techniques.
func (r *Renderer) Forward() *ForwardRenderer { return r.forward }

// Draw renders one frame.
func (r *Renderer) Draw(camera *ssaa.Camera) error {
	switch r.technique {
	case TechniqueForward:
		return r.forward.Draw(camera)
	}
	return ErrUnknownTechnique
}

// FrameBuffer returns the target holding the finished frame.
func (r *Renderer) FrameBuffer() *Target {
	if r.forward != nil {
		return r.forward.FrameBuffer()
	}
	return nil
}

// Release destroys the renderer's resources.
func (r *Renderer) Release() {
	if r.forward != nil {
		r.forward.Release()
	}
}
