// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// Target formats.
const (
	ColorFormat = gputypes.TextureFormatRGBA8Unorm
	DepthFormat = gputypes.TextureFormatDepth24PlusStencil8
)

// ErrInvalidSize is returned for zero-sized targets.
var ErrInvalidSize = errors.New("render: invalid target size")

// TargetDescriptor describes an offscreen target.
type TargetDescriptor struct {
	Label  string
	Width  uint32
	Height uint32

	// Depth adds a depth/stencil attachment.
	Depth bool
}

// Target is an offscreen render target: one color texture and an optional
// depth texture, fixed in size. Sizes beyond the device limit are clamped.
type Target struct {
	ctx    *Context
	label  string
	width  uint32
	height uint32

	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView
}

// NewTarget creates the textures. On failure everything created so far is
// destroyed before returning.
func NewTarget(ctx *Context, desc TargetDescriptor) (*Target, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrInvalidSize, desc.Label, desc.Width, desc.Height)
	}

	w, h := desc.Width, desc.Height
	if limit := ctx.MaxTextureDimension(); limit > 0 && (w > limit || h > limit) {
		w, h = min(w, limit), min(h, limit)
		ssaa.Logger().Warn("render: target exceeds texture limit, clamping",
			"target", desc.Label, "requested", fmt.Sprintf("%dx%d", desc.Width, desc.Height),
			"clamped", fmt.Sprintf("%dx%d", w, h), "limit", limit)
	}

	t := &Target{ctx: ctx, label: desc.Label, width: w, height: h}
	if err := t.create(desc.Depth); err != nil {
		t.Release()
		return nil, err
	}
	ssaa.Logger().Debug("render: target created", "target", t.label, "width", w, "height", h, "depth", desc.Depth)
	return t, nil
}

func (t *Target) create(withDepth bool) error {
	device := t.ctx.device
	size := hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1}

	var err error
	t.color, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         t.label + "_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create %s color texture: %w", t.label, err)
	}
	t.colorView, err = device.CreateTextureView(t.color, &hal.TextureViewDescriptor{
		Label: t.label + "_color_view",
	})
	if err != nil {
		return fmt.Errorf("create %s color view: %w", t.label, err)
	}

	if !withDepth {
		return nil
	}
	t.depth, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         t.label + "_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create %s depth texture: %w", t.label, err)
	}
	t.depthView, err = device.CreateTextureView(t.depth, &hal.TextureViewDescriptor{
		Label: t.label + "_depth_view",
	})
	if err != nil {
		return fmt.Errorf("create %s depth view: %w", t.label, err)
	}
	return nil
}

// PassDescriptor returns a render pass that clears and stores the target.
func (t *Target) PassDescriptor(clear gputypes.Color) *hal.RenderPassDescriptor {
	desc := &hal.RenderPassDescriptor{
		Label: t.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.colorView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		}},
	}
	if t.depthView != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              t.depthView,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		}
	}
	return desc
}

// Handle returns the color texture. Callers present or copy it.
func (t *Target) Handle() hal.Texture { return t.color }

// View returns the color texture view.
func (t *Target) View() hal.TextureView { return t.colorView }

// HasDepth reports whether the target has a depth attachment.
func (t *Target) HasDepth() bool { return t.depth != nil }

// Size returns the (possibly clamped) dimensions.
func (t *Target) Size() (width, height uint32) { return t.width, t.height }

// Label returns the debug label.
func (t *Target) Label() string { return t.label }

// ReadPixels copies the color texture back to the CPU.
func (t *Target) ReadPixels() (*image.RGBA, error) {
	if t.color == nil {
		return nil, fmt.Errorf("render: read %s: target released", t.label)
	}
	img, err := t.ctx.readTexture(t.color, t.width, t.height)
	if err != nil {
		return nil, fmt.Errorf("render: read %s: %w", t.label, err)
	}
	return img, nil
}

// Release destroys the textures in reverse creation order.
func (t *Target) Release() {
	device := t.ctx.device
	if t.depthView != nil {
		device.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depth != nil {
		device.DestroyTexture(t.depth)
		t.depth = nil
	}
	if t.colorView != nil {
		device.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.color != nil {
		device.DestroyTexture(t.color)
		t.color = nil
	}
}
