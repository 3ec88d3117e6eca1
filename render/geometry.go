// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// ErrEmptyGeometry is returned when a geometry buffer is built from no vertices.
var ErrEmptyGeometry = errors.New("render: geometry has no vertices")

// vertexAttribute names a field of the packed ssaa.Vertex.
type vertexAttribute struct {
	name   string
	offset uint64
	format gputypes.VertexFormat
}

// vertexAttributes are the shader input names a GeometryBuffer can feed.
var vertexAttributes = []vertexAttribute{
	{"vertPosition", ssaa.VertexPositionOffset, gputypes.VertexFormatFloat32x3},
	{"vertNormal", ssaa.VertexNormalOffset, gputypes.VertexFormatFloat32x3},
	{"vertColor", ssaa.VertexColorOffset, gputypes.VertexFormatFloat32x3},
	{"vertTexCoord", ssaa.VertexTexCoordOffset, gputypes.VertexFormatFloat32x2},
}

// vertexLayoutFor builds the vertex buffer layout for the attributes a
// program declares. Attributes the program does not declare are skipped.
func vertexLayoutFor(p *Program) gputypes.VertexBufferLayout {
	layout := gputypes.VertexBufferLayout{
		ArrayStride: ssaa.VertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
	}
	for _, a := range vertexAttributes {
		loc, ok := p.Attribute(a.name)
		if !ok {
			continue
		}
		layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
			Format:         a.format,
			Offset:         a.offset,
			ShaderLocation: loc,
		})
	}
	return layout
}

// GeometryBuffer owns the vertex buffer of one mesh. The vertex count is
// fixed at creation; the mesh is drawn as a non-indexed triangle list.
//
// A buffer can be attached to several programs. Each attachment records the
// layout resolved against that program's attribute locations.
type GeometryBuffer struct {
	ctx         *Context
	label       string
	buffer      hal.Buffer
	vertexCount uint32
	layouts     map[*Program]gputypes.VertexBufferLayout
}

// NewGeometryBuffer uploads vertices into a new vertex buffer.
func NewGeometryBuffer(ctx *Context, label string, vertices []ssaa.Vertex) (*GeometryBuffer, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrEmptyGeometry)
	}
	data := ssaa.EncodeVertices(vertices)
	buf, err := ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := ctx.queue.WriteBuffer(buf, 0, data); err != nil {
		ctx.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	ssaa.Logger().Debug("render: geometry uploaded", "label", label, "vertices", len(vertices), "bytes", len(data))

	return &GeometryBuffer{
		ctx:         ctx,
		label:       label,
		buffer:      buf,
		vertexCount: uint32(len(vertices)),
		layouts:     make(map[*Program]gputypes.VertexBufferLayout),
	}, nil
}

// VertexCount returns the number of vertices drawn per call.
func (g *GeometryBuffer) VertexCount() uint32 { return g.vertexCount }

// Buffer returns the underlying vertex buffer.
func (g *GeometryBuffer) Buffer() hal.Buffer { return g.buffer }

// Attach resolves the buffer layout against p's attribute locations,
// replacing any earlier attachment to p. Attaching twice is harmless.
func (g *GeometryBuffer) Attach(p *Program) {
	layout := vertexLayoutFor(p)
	g.layouts[p] = layout
	ssaa.Logger().Debug("render: geometry attached",
		"geometry", g.label, "program", p.Label(), "attributes", len(layout.Attributes))
}

// Attached reports whether Attach has been called for p.
func (g *GeometryBuffer) Attached(p *Program) bool {
	_, ok := g.layouts[p]
	return ok
}

// Layout returns the layout bound for p.
func (g *GeometryBuffer) Layout(p *Program) (gputypes.VertexBufferLayout, bool) {
	l, ok := g.layouts[p]
	return l, ok
}

// Detach forgets the attachment to p.
func (g *GeometryBuffer) Detach(p *Program) {
	delete(g.layouts, p)
}

// draw binds the buffer and issues the draw. Nothing is recorded when the
// buffer was never attached to p.
func (g *GeometryBuffer) draw(rp hal.RenderPassEncoder, p *Program) {
	if !g.Attached(p) {
		return
	}
	rp.SetVertexBuffer(0, g.buffer, 0)
	rp.Draw(g.vertexCount, 1, 0, 0)
}

// Release destroys the vertex buffer.
func (g *GeometryBuffer) Release() {
	if g.buffer != nil {
		g.ctx.device.DestroyBuffer(g.buffer)
		g.buffer = nil
	}
	clear(g.layouts)
}

// MeshArena owns the geometry buffers of a scene, indexed by ssaa.MeshID.
type MeshArena struct {
	meshes []*GeometryBuffer
}

// NewMeshArena uploads every mesh. On failure the meshes uploaded so far
// are released.
func NewMeshArena(ctx *Context, meshes [][]ssaa.Vertex) (*MeshArena, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	a := &MeshArena{meshes: make([]*GeometryBuffer, 0, len(meshes))}
	for i, m := range meshes {
		g, err := NewGeometryBuffer(ctx, fmt.Sprintf("mesh_%d", i), m)
		if err != nil {
			a.Release()
			return nil, err
		}
		a.meshes = append(a.meshes, g)
	}
	return a, nil
}

// Len returns the number of meshes.
func (a *MeshArena) Len() int { return len(a.meshes) }

// Get returns the mesh for id.
func (a *MeshArena) Get(id ssaa.MeshID) (*GeometryBuffer, bool) {
	if id < 0 || int(id) >= len(a.meshes) {
		return nil, false
	}
	return a.meshes[id], true
}

// Release destroys every mesh.
func (a *MeshArena) Release() {
	for _, g := range a.meshes {
		g.Release()
	}
	a.meshes = nil
}
