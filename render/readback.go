// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

func alignedRowPitch(width uint32) uint32 {
	return (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// readTexture copies an RGBA8 texture into a new image.
func (c *Context) readTexture(tex hal.Texture, w, h uint32) (*image.RGBA, error) {
	bytesPerRow := w * 4
	pitch := alignedRowPitch(w)
	size := uint64(pitch) * uint64(h)

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	err = c.submit("readback", func(enc hal.CommandEncoder) error {
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := c.mapRead(staging, size)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := uint32(0); row < h; row++ {
		src := data[int(row)*int(pitch):]
		copy(img.Pix[int(row)*img.Stride:int(row)*img.Stride+int(bytesPerRow)], src[:bytesPerRow])
	}
	return img, nil
}

// readBuffer copies size bytes of a buffer created with CopySrc usage.
func (c *Context) readBuffer(buf hal.Buffer, size uint64) ([]byte, error) {
	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_buffer_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	err = c.submit("readback_buffer", func(enc hal.CommandEncoder) error {
		enc.CopyBufferToBuffer(buf, staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: size},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.mapRead(staging, size)
}

// mapRead copies the first size bytes of a mapped-readable buffer.
func (c *Context) mapRead(buf hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := c.device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := c.device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return data, nil
}
