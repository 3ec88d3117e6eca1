// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ssaa"
	"github.com/gogpu/ssaa/internal/shaders"
)

// Option configures a renderer during construction.
//
// Example:
//
//	r, err := render.NewForwardRenderer(ctx, 800, 600, scene,
//	    render.WithScale(4),
//	    render.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}))
type Option func(*options)

type options struct {
	aa        ssaa.AAMode
	scale     int
	scene     ShaderPair
	composite ShaderPair
	clear     gputypes.Color
}

func defaultOptions() options {
	return options{
		aa:        ssaa.AANone,
		scale:     1,
		scene:     shaders.Scene(),
		composite: shaders.Composite(),
		clear:     gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// WithScale sets the supersampling factor. The scene pass renders at
// width*scale x height*scale. Scales below 1 are rejected.
func WithScale(scale int) Option {
	return func(o *options) {
		o.scale = scale
	}
}

// WithAA requests an anti-aliasing mode. Unsupported modes fall back to
// ssaa.AANone with a warning.
func WithAA(mode ssaa.AAMode) Option {
	return func(o *options) {
		o.aa = mode
	}
}

// WithSceneShaders replaces the scene-shading sources.
func WithSceneShaders(p ShaderPair) Option {
	return func(o *options) {
		if !p.IsZero() {
			o.scene = p
		}
	}
}

// WithCompositeShaders replaces the downsample/composite sources.
func WithCompositeShaders(p ShaderPair) Option {
	return func(o *options) {
		if !p.IsZero() {
			o.composite = p
		}
	}
}

// WithClearColor sets the color both passes clear to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = c
	}
}
