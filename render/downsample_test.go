// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"
	"testing"
)

func TestDownsampleBoxFilter(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	// Left block: two white, two black texels. Right block: solid red.
	src.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	src.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})
	src.SetRGBA(0, 1, color.RGBA{0, 0, 0, 255})
	src.SetRGBA(1, 0, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 2; y++ {
		for x := 2; x < 4; x++ {
			src.SetRGBA(x, y, color.RGBA{200, 0, 0, 255})
		}
	}

	dst := Downsample(src, 2)
	if b := dst.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Fatalf("bounds = %v, want 2x1", b)
	}
	// (255*2 + 2) / 4 rounds to 128.
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("left pixel = %v, want {128 128 128 255}", got)
	}
	if got := dst.RGBAAt(1, 0); got != (color.RGBA{200, 0, 0, 255}) {
		t.Errorf("right pixel = %v, want {200 0 0 255}", got)
	}
}

func TestDownsampleDropsPartialBlocks(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 7, 5))
	dst := Downsample(src, 3)
	if b := dst.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("bounds = %v, want 2x1", b)
	}
}

func TestDownsampleScaleOneCopies(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 5, 5))
	src.SetRGBA(2, 3, color.RGBA{1, 2, 3, 4})
	src.SetRGBA(4, 4, color.RGBA{5, 6, 7, 8})

	dst := Downsample(src, 1)
	if b := dst.Bounds(); b != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v, want (0,0)-(3,2)", b)
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{1, 2, 3, 4}) {
		t.Errorf("(0,0) = %v", got)
	}
	if got := dst.RGBAAt(2, 1); got != (color.RGBA{5, 6, 7, 8}) {
		t.Errorf("(2,1) = %v", got)
	}

	dst.Pix[0] = 99
	if src.RGBAAt(2, 3).R == 99 {
		t.Error("copy aliases the source")
	}
}
