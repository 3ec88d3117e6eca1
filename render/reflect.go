// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// BindingKind classifies a resource binding declared by a shader.
type BindingKind uint8

const (
	BindingUniform BindingKind = iota
	BindingTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return fmt.Sprintf("BindingKind(%d)", k)
	}
}

// Binding is one @group/@binding declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    string
	Kind    BindingKind

	// Size is the byte size of a uniform binding's type.
	Size uint32

	// Members maps member names of a uniform struct to their placement.
	Members map[string]Member

	// VertexStage and FragmentStage report which stages declare the binding.
	VertexStage   bool
	FragmentStage bool
}

// Member is the placement of one uniform struct member.
type Member struct {
	Offset uint32
	Size   uint32
	Type   string
}

// Attribute is a vertex shader input.
type Attribute struct {
	Name     string
	Location uint32
	Type     string
}

// UniformLocation resolves a uniform name to the binding and byte range
// that hold it.
type UniformLocation struct {
	Group   uint32
	Binding uint32
	Kind    BindingKind
	Offset  uint32
	Size    uint32

	// Type is the WGSL type of a struct member, or of the whole binding.
	Type string
}

// shaderInfo is what reflection extracts from one WGSL module.
type shaderInfo struct {
	vertexEntry   string
	fragmentEntry string
	attributes    []Attribute
	bindings      []Binding
	strides       map[string]uint32
}

func roundUp(align, n uint32) uint32 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// reflectWGSL parses and lowers WGSL source and reads entry points, vertex
// attributes and bindings from the resulting IR. Layouts are the ones naga
// computed, so @size and @align attributes are honored.
func reflectWGSL(src string) (*shaderInfo, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, err
	}
	return reflectModule(module), nil
}

func reflectModule(m *ir.Module) *shaderInfo {
	info := &shaderInfo{strides: make(map[string]uint32)}

	for i := range m.EntryPoints {
		ep := &m.EntryPoints[i]
		switch ep.Stage {
		case ir.StageVertex:
			if info.vertexEntry == "" {
				info.vertexEntry = ep.Name
				info.attributes = vertexInputs(m, ep.Function.Arguments)
			}
		case ir.StageFragment:
			if info.fragmentEntry == "" {
				info.fragmentEntry = ep.Name
			}
		}
	}

	for _, t := range m.Types {
		if st, ok := t.Inner.(ir.StructType); ok && t.Name != "" {
			info.strides[t.Name] = roundUp(16, st.Span)
		}
	}
	// An array of a struct carries the stride actually used in memory.
	for _, t := range m.Types {
		arr, ok := t.Inner.(ir.ArrayType)
		if !ok || int(arr.Base) >= len(m.Types) {
			continue
		}
		if base := m.Types[arr.Base]; base.Name != "" {
			if _, isStruct := base.Inner.(ir.StructType); isStruct {
				info.strides[base.Name] = arr.Stride
			}
		}
	}

	for i := range m.GlobalVariables {
		gv := &m.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
			Type:    typeName(m, gv.Type),
		}
		inner := typeInner(m, gv.Type)
		switch {
		case gv.Space == ir.SpaceUniform:
			b.Kind = BindingUniform
			b.Size = ir.TypeSize(m, gv.Type)
			if st, ok := inner.(ir.StructType); ok {
				b.Members = make(map[string]Member, len(st.Members))
				for _, mem := range st.Members {
					b.Members[mem.Name] = Member{
						Offset: mem.Offset,
						Size:   ir.TypeSize(m, mem.Type),
						Type:   typeName(m, mem.Type),
					}
				}
			}
		case gv.Space == ir.SpaceHandle:
			switch inner.(type) {
			case ir.ImageType:
				b.Kind = BindingTexture
			case ir.SamplerType:
				b.Kind = BindingSampler
			default:
				continue
			}
		default:
			// Storage buffers and other resources are not used by this renderer.
			continue
		}
		info.bindings = append(info.bindings, b)
	}
	return info
}

// vertexInputs collects @location inputs of a vertex entry point, either
// declared directly as arguments or as members of an argument struct.
func vertexInputs(m *ir.Module, args []ir.FunctionArgument) []Attribute {
	var out []Attribute
	for _, arg := range args {
		if loc, ok := location(arg.Binding); ok {
			out = append(out, Attribute{Name: arg.Name, Location: loc, Type: typeName(m, arg.Type)})
			continue
		}
		st, ok := typeInner(m, arg.Type).(ir.StructType)
		if !ok {
			continue
		}
		for _, mem := range st.Members {
			if loc, ok := location(mem.Binding); ok {
				out = append(out, Attribute{Name: mem.Name, Location: loc, Type: typeName(m, mem.Type)})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

func location(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	lb, ok := (*b).(ir.LocationBinding)
	return lb.Location, ok
}

func typeInner(m *ir.Module, h ir.TypeHandle) ir.TypeInner {
	if int(h) >= len(m.Types) {
		return nil
	}
	return m.Types[h].Inner
}

// typeName spells a type the way WGSL source would.
func typeName(m *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(m.Types) {
		return ""
	}
	t := m.Types[h]
	switch inner := t.Inner.(type) {
	case ir.ScalarType:
		return scalarName(inner)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", inner.Size, scalarName(inner.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", inner.Columns, inner.Rows, scalarName(inner.Scalar))
	case ir.ArrayType:
		if inner.Size.Constant == nil {
			return fmt.Sprintf("array<%s>", typeName(m, inner.Base))
		}
		return fmt.Sprintf("array<%s, %d>", typeName(m, inner.Base), *inner.Size.Constant)
	case ir.ImageType:
		return imageName(inner)
	case ir.SamplerType:
		if inner.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	}
	return t.Name
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		return fmt.Sprintf("f%d", int(s.Width)*8)
	case ir.ScalarSint:
		return fmt.Sprintf("i%d", int(s.Width)*8)
	case ir.ScalarUint:
		return fmt.Sprintf("u%d", int(s.Width)*8)
	case ir.ScalarBool:
		return "bool"
	}
	return "abstract"
}

func imageName(img ir.ImageType) string {
	dim := [...]string{ir.Dim1D: "1d", ir.Dim2D: "2d", ir.Dim3D: "3d", ir.DimCube: "cube"}[img.Dim]
	if img.Arrayed {
		dim += "_array"
	}
	switch img.Class {
	case ir.ImageClassDepth:
		return "texture_depth_" + dim
	case ir.ImageClassStorage:
		return "texture_storage_" + dim
	case ir.ImageClassExternal:
		return "texture_external"
	}
	prefix := "texture_"
	if img.Multisampled {
		prefix += "multisampled_"
	}
	return fmt.Sprintf("%s%s<%s>", prefix, dim, scalarName(ir.ScalarType{Kind: img.SampledKind, Width: 4}))
}
