// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "image"

// Downsample averages each scale×scale block of src into one pixel, the
// same box filter the composite pass applies. Sums are rounded to nearest.
// Trailing rows and columns that do not fill a block are dropped. A scale
// below 2 returns a copy of src.
func Downsample(src *image.RGBA, scale int) *image.RGBA {
	b := src.Bounds()
	if scale < 2 {
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}

	w, h := b.Dx()/scale, b.Dy()/scale
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	n := uint32(scale * scale)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [4]uint32
			for sy := 0; sy < scale; sy++ {
				off := src.PixOffset(b.Min.X+x*scale, b.Min.Y+y*scale+sy)
				row := src.Pix[off : off+scale*4]
				for sx := 0; sx < scale; sx++ {
					for c := 0; c < 4; c++ {
						sum[c] += uint32(row[sx*4+c])
					}
				}
			}
			d := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[d+c] = uint8((sum[c] + n/2) / n)
			}
		}
	}
	return dst
}
