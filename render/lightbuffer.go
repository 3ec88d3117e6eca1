// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// LightBuffer is the uniform buffer holding the Lights block.
type LightBuffer struct {
	ctx    *Context
	buffer hal.Buffer
	count  int
	block  []byte
}

// NewLightBuffer uploads a light set. The buffer always spans MaxLights
// records; unused records are zero.
func NewLightBuffer(ctx *Context, lights ssaa.LightSet) (*LightBuffer, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	block := lights.Encode()
	buf, err := ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "lights_uniform",
		Size:  uint64(len(block)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create lights uniform: %w", err)
	}
	if err := ctx.queue.WriteBuffer(buf, 0, block); err != nil {
		ctx.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload lights uniform: %w", err)
	}
	ssaa.Logger().Debug("render: lights uploaded", "count", lights.Len(), "bytes", len(block))
	return &LightBuffer{ctx: ctx, buffer: buf, count: lights.Len(), block: block}, nil
}

// Count returns the number of lights uploaded.
func (l *LightBuffer) Count() int { return l.count }

// Size returns the byte size of the uniform block.
func (l *LightBuffer) Size() uint64 { return uint64(len(l.block)) }

// Buffer returns the uniform buffer.
func (l *LightBuffer) Buffer() hal.Buffer { return l.buffer }

// Bytes returns a copy of the block as uploaded.
func (l *LightBuffer) Bytes() []byte {
	return append([]byte(nil), l.block...)
}

// ReadBack copies the block from the GPU and decodes it with LightStride.
func (l *LightBuffer) ReadBack() ([]ssaa.PointLight, error) {
	data, err := l.ctx.readBuffer(l.buffer, l.Size())
	if err != nil {
		return nil, fmt.Errorf("render: read lights: %w", err)
	}
	return ssaa.DecodeLights(data, l.count)
}

// Release destroys the buffer.
func (l *LightBuffer) Release() {
	if l.buffer != nil {
		l.ctx.device.DestroyBuffer(l.buffer)
		l.buffer = nil
	}
}
