// Package mesh builds triangle-list vertex data for ssaa scenes: procedural
// shapes, and flattening of indexed attribute streams.
package mesh

import (
	"errors"
	"fmt"

	"github.com/gogpu/ssaa"
)

// Errors returned by Flatten.
var (
	ErrNoPositions     = errors.New("mesh: no positions")
	ErrNotTriangles    = errors.New("mesh: index count is not a multiple of 3")
	ErrIndexOutOfRange = errors.New("mesh: index out of range")
)

// White is the color given to vertices without a color stream.
var White = ssaa.Vec3{X: 1, Y: 1, Z: 1}

// Indexed is a mesh as separate attribute streams plus a triangle index
// list. Every stream that is present has one entry per position. A nil
// Indices means the positions already form a triangle list.
type Indexed struct {
	Positions []ssaa.Vec3
	Normals   []ssaa.Vec3
	Colors    []ssaa.Vec3
	TexCoords []ssaa.Vec2
	Indices   []uint32
}

// TriangleCount returns the number of triangles Flatten will produce.
func (m Indexed) TriangleCount() int {
	if m.Indices == nil {
		return len(m.Positions) / 3
	}
	return len(m.Indices) / 3
}

// Flatten expands an indexed mesh into the non-indexed vertex list the
// renderer draws. Missing normal and texcoord streams are zero-filled and
// a warning is logged; a missing color stream becomes White.
func Flatten(m Indexed) ([]ssaa.Vertex, error) {
	if len(m.Positions) == 0 {
		return nil, ErrNoPositions
	}
	n := len(m.Positions)

	normals := m.Normals
	if len(normals) != n {
		ssaa.Logger().Warn("mesh: normal stream missing or short, zero-filling",
			"positions", n, "normals", len(normals))
		normals = nil
	}
	texCoords := m.TexCoords
	if len(texCoords) != n {
		ssaa.Logger().Warn("mesh: texcoord stream missing or short, zero-filling",
			"positions", n, "texcoords", len(texCoords))
		texCoords = nil
	}
	colors := m.Colors
	if len(colors) != n {
		colors = nil
	}

	indices := m.Indices
	if indices == nil {
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotTriangles, len(indices))
	}

	out := make([]ssaa.Vertex, len(indices))
	for i, idx := range indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("%w: index %d = %d, %d positions", ErrIndexOutOfRange, i, idx, n)
		}
		v := ssaa.Vertex{Position: m.Positions[idx], Color: White}
		if normals != nil {
			v.Normal = normals[idx]
		}
		if colors != nil {
			v.Color = colors[idx]
		}
		if texCoords != nil {
			v.TexCoord = texCoords[idx]
		}
		out[i] = v
	}
	return out, nil
}

// Tint returns m with every vertex given color c.
func Tint(m Indexed, c ssaa.Vec3) Indexed {
	m.Colors = make([]ssaa.Vec3, len(m.Positions))
	for i := range m.Colors {
		m.Colors[i] = c
	}
	return m
}
