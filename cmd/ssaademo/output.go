package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type imageFormat int

const (
	formatPNG imageFormat = iota
	formatBMP
	formatTIFF
)

func parseFormat(s string) (imageFormat, error) {
	switch strings.ToLower(s) {
	case "png":
		return formatPNG, nil
	case "bmp":
		return formatBMP, nil
	case "tiff", "tif":
		return formatTIFF, nil
	}
	return 0, fmt.Errorf("unknown image format %q (want png, bmp or tiff)", s)
}

func (f imageFormat) ext() string {
	switch f {
	case formatBMP:
		return ".bmp"
	case formatTIFF:
		return ".tiff"
	default:
		return ".png"
	}
}

// writeImage encodes img into dir/name plus the format's extension and
// returns the path written.
func writeImage(dir, name string, f imageFormat, img image.Image) (path string, err error) {
	path = filepath.Join(dir, name+f.ext())
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	switch f {
	case formatBMP:
		err = bmp.Encode(file, img)
	case formatTIFF:
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return path, nil
}
