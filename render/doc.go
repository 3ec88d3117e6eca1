// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws ssaa scenes on a GPU through the wgpu HAL.
//
// Everything starts from a Context, which owns or borrows a device and its
// queue. Render objects are created from an initialized Context and must
// be released before it.
//
//	ctx := render.NewContext(gputypes.BackendVulkan)
//	if err := ctx.Init(); err != nil {
//	    return err
//	}
//	defer ctx.Release()
//
//	r, err := render.NewForwardRenderer(ctx, 800, 600, scene, render.WithScale(2))
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
//	if err := r.Draw(camera); err != nil {
//	    return err
//	}
//	img, err := r.ReadFrame()
//
// # Building blocks
//
//   - GeometryBuffer: one mesh in a vertex buffer, attached per Program
//   - LightBuffer: the fixed-size Lights uniform block
//   - Program: a WGSL vertex/fragment pair compiled with naga and linked
//     into a pipeline; failures become Diagnostics, never errors
//   - Target: a color texture with an optional depth attachment
//   - ForwardRenderer: the scene pass at width*scale x height*scale, then
//     a box-filter composite into a width x height target
//
// # Degradation
//
// Requests the device cannot honor are corrected and logged at Warn: more
// than ssaa.MaxLights lights are truncated, a scale whose target would
// exceed the texture limit is lowered, and anti-aliasing modes other than
// ssaa.AANone fall back to none. A Program that fails to link is kept; the
// passes that use it still clear their targets but draw nothing.
//
// # Threading
//
// A Context and everything made from it are driven from one goroutine.
package render
