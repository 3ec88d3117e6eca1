// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
	"github.com/gogpu/ssaa/internal/shaders"
)

// ShaderPair is the WGSL source of a vertex and a fragment stage.
type ShaderPair = shaders.Pair

// ProgramState is the lifecycle state of a Program.
type ProgramState int

const (
	ProgramUnlinked ProgramState = iota
	ProgramCompiling
	ProgramLinked
	ProgramFailed
)

func (s ProgramState) String() string {
	switch s {
	case ProgramUnlinked:
		return "unlinked"
	case ProgramCompiling:
		return "compiling"
	case ProgramLinked:
		return "linked"
	case ProgramFailed:
		return "failed"
	default:
		return fmt.Sprintf("ProgramState(%d)", int(s))
	}
}

// Stage identifies where a diagnostic came from.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageLink
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageLink:
		return "link"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Diagnostic is a compile or link message with its full text.
type Diagnostic struct {
	Stage   Stage
	Message string
}

func (d Diagnostic) String() string {
	return d.Stage.String() + ": " + d.Message
}

// ProgramDescriptor describes a shader program.
type ProgramDescriptor struct {
	Label  string
	Source ShaderPair

	// ColorFormat is the format of the single color target.
	ColorFormat gputypes.TextureFormat

	// DepthFormat enables depth testing when not TextureFormatUndefined.
	DepthFormat gputypes.TextureFormat
}

// Program is a compiled and linked vertex/fragment pipeline.
//
// Compile and link problems never fail construction. They are recorded as
// diagnostics, logged, and leave the program in ProgramFailed; a failed
// program can still be handed to a renderer, which then skips its draws.
// Source text and shader modules are dropped once the pipeline exists.
type Program struct {
	ctx   *Context
	label string

	state       ProgramState
	diagnostics []Diagnostic

	vertexEntry   string
	fragmentEntry string
	attributes    map[string]Attribute
	bindings      []Binding
	strides       map[string]uint32
	uniforms      map[string]UniformLocation

	groupLayouts   []hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
}

// compiledStage is the transient result of compiling one stage.
type compiledStage struct {
	stage  Stage
	source string
	info   *shaderInfo
	spirv  []uint32
}

// NewProgram compiles and links a program. The error result is reserved
// for misuse of the API; shader problems are reported through Diagnostics.
func NewProgram(ctx *Context, desc ProgramDescriptor) (*Program, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	p := &Program{
		ctx:        ctx,
		label:      desc.Label,
		state:      ProgramUnlinked,
		attributes: make(map[string]Attribute),
		strides:    make(map[string]uint32),
		uniforms:   make(map[string]UniformLocation),
	}

	p.state = ProgramCompiling
	vs := p.compile(StageVertex, desc.Source.Vertex)
	fs := p.compile(StageFragment, desc.Source.Fragment)
	p.reflect(vs, fs)
	p.link(vs, fs, desc)

	if len(p.diagnostics) > 0 {
		p.state = ProgramFailed
		for _, d := range p.diagnostics {
			ssaa.Logger().Error("render: shader diagnostic",
				"program", p.label, "stage", d.Stage.String(), "message", d.Message)
		}
	} else {
		p.state = ProgramLinked
		ssaa.Logger().Debug("render: program linked",
			"program", p.label, "attributes", len(p.attributes), "bindings", len(p.bindings))
	}
	return p, nil
}

func (p *Program) report(stage Stage, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, Diagnostic{Stage: stage, Message: fmt.Sprintf(format, args...)})
}

func (p *Program) compile(stage Stage, source string) *compiledStage {
	cs := &compiledStage{stage: stage, source: source, info: &shaderInfo{}}
	if strings.TrimSpace(source) == "" {
		p.report(stage, "empty shader source")
		return cs
	}
	info, err := reflectWGSL(source)
	if err != nil {
		p.report(stage, "%v", err)
		return cs
	}
	cs.info = info
	spirv, err := naga.Compile(source)
	if err != nil {
		p.report(stage, "%v", err)
		return cs
	}
	cs.spirv = spirvWords(spirv)
	return cs
}

// spirvWords converts little-endian SPIR-V bytes to words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

// reflect merges the interface of both stages.
func (p *Program) reflect(vs, fs *compiledStage) {
	p.vertexEntry = vs.info.vertexEntry
	p.fragmentEntry = fs.info.fragmentEntry
	for _, a := range vs.info.attributes {
		p.attributes[a.Name] = a
	}

	type key struct{ group, binding uint32 }
	merged := make(map[key]int)
	add := func(cs *compiledStage) {
		for name, s := range cs.info.strides {
			if _, ok := p.strides[name]; !ok {
				p.strides[name] = s
			}
		}
		for _, b := range cs.info.bindings {
			k := key{b.Group, b.Binding}
			if i, ok := merged[k]; ok {
				prev := &p.bindings[i]
				if prev.Kind != b.Kind || prev.Type != b.Type {
					p.report(StageLink, "binding @group(%d) @binding(%d) declared as %s %s and %s %s",
						b.Group, b.Binding, prev.Kind, prev.Type, b.Kind, b.Type)
				}
				prev.VertexStage = prev.VertexStage || cs.stage == StageVertex
				prev.FragmentStage = prev.FragmentStage || cs.stage == StageFragment
				continue
			}
			b.VertexStage = cs.stage == StageVertex
			b.FragmentStage = cs.stage == StageFragment
			merged[k] = len(p.bindings)
			p.bindings = append(p.bindings, b)
		}
	}
	add(vs)
	add(fs)
	sort.Slice(p.bindings, func(i, j int) bool {
		if p.bindings[i].Group != p.bindings[j].Group {
			return p.bindings[i].Group < p.bindings[j].Group
		}
		return p.bindings[i].Binding < p.bindings[j].Binding
	})
}

// link creates the pipeline. It runs even when a stage failed to compile so
// the device gets a chance to report its own, secondary diagnostic.
func (p *Program) link(vs, fs *compiledStage, desc ProgramDescriptor) {
	if p.vertexEntry == "" {
		p.report(StageLink, "no @vertex entry point")
	}
	if p.fragmentEntry == "" {
		p.report(StageLink, "no @fragment entry point")
	}
	if p.vertexEntry == "" || p.fragmentEntry == "" {
		return
	}

	device := p.ctx.device
	vsModule, err := p.createModule(vs)
	if err != nil {
		p.report(StageLink, "%v", err)
		return
	}
	defer device.DestroyShaderModule(vsModule)
	fsModule, err := p.createModule(fs)
	if err != nil {
		p.report(StageLink, "%v", err)
		return
	}
	defer device.DestroyShaderModule(fsModule)

	if err := p.createLayouts(); err != nil {
		p.report(StageLink, "%v", err)
		p.destroyLayouts()
		return
	}

	var vertexBuffers []gputypes.VertexBufferLayout
	if len(p.attributes) > 0 {
		vertexBuffers = []gputypes.VertexBufferLayout{vertexLayoutFor(p)}
	}

	pd := &hal.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: p.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     vsModule,
			EntryPoint: p.vertexEntry,
			Buffers:    vertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     fsModule,
			EntryPoint: p.fragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.ColorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.DepthFormat != gputypes.TextureFormatUndefined {
		pd.DepthStencil = &hal.DepthStencilState{
			Format:            desc.DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
			StencilReadMask:   0x00,
			StencilWriteMask:  0x00,
		}
	}

	pipeline, err := device.CreateRenderPipeline(pd)
	if err != nil {
		p.report(StageLink, "create pipeline: %v", err)
		p.destroyLayouts()
		return
	}
	p.pipeline = pipeline
}

var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

// createModule prefers the compiled SPIR-V and falls back to handing the
// WGSL text to the device.
func (p *Program) createModule(cs *compiledStage) (hal.ShaderModule, error) {
	src := hal.ShaderSource{SPIRV: cs.spirv}
	if cs.spirv == nil {
		src = hal.ShaderSource{WGSL: cs.source}
	}
	m, err := p.ctx.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("%s_%s", p.label, cs.stage),
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", cs.stage, err)
	}
	return m, nil
}

// createLayouts builds one bind group layout per group index up to the
// highest declared group, and the pipeline layout over them.
func (p *Program) createLayouts() error {
	groups := 0
	for _, b := range p.bindings {
		groups = max(groups, int(b.Group)+1)
	}
	device := p.ctx.device
	for g := 0; g < groups; g++ {
		var entries []gputypes.BindGroupLayoutEntry
		for _, b := range p.bindings {
			if int(b.Group) != g {
				continue
			}
			entries = append(entries, layoutEntry(b))
		}
		bgl, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", p.label, g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create bind group layout %d: %w", g, err)
		}
		p.groupLayouts = append(p.groupLayouts, bgl)
	}

	pl, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_layout",
		BindGroupLayouts: p.groupLayouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipelineLayout = pl
	return nil
}

func layoutEntry(b Binding) gputypes.BindGroupLayoutEntry {
	visibility := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	switch {
	case b.VertexStage && !b.FragmentStage:
		visibility = gputypes.ShaderStageVertex
	case b.FragmentStage && !b.VertexStage:
		visibility = gputypes.ShaderStageFragment
	}
	e := gputypes.BindGroupLayoutEntry{Binding: b.Binding, Visibility: visibility}
	switch b.Kind {
	case BindingTexture:
		e.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case BindingSampler:
		e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	default:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	}
	return e
}

func (p *Program) destroyLayouts() {
	device := p.ctx.device
	if p.pipelineLayout != nil {
		device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	for _, l := range p.groupLayouts {
		device.DestroyBindGroupLayout(l)
	}
	p.groupLayouts = nil
}

// Label returns the debug label.
func (p *Program) Label() string { return p.label }

// State returns the lifecycle state.
func (p *Program) State() ProgramState { return p.state }

// Linked reports whether the program compiled and linked cleanly.
func (p *Program) Linked() bool { return p.state == ProgramLinked }

// Diagnostics returns a copy of the compile and link messages.
func (p *Program) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), p.diagnostics...)
}

// Attribute returns the location of a vertex input.
func (p *Program) Attribute(name string) (uint32, bool) {
	a, ok := p.attributes[name]
	return a.Location, ok
}

// Bindings returns the merged resource bindings ordered by group and binding.
func (p *Program) Bindings() []Binding {
	return append([]Binding(nil), p.bindings...)
}

// StructStride returns the array stride of a struct type under uniform
// layout rules.
func (p *Program) StructStride(name string) (uint32, bool) {
	s, ok := p.strides[name]
	return s, ok
}

// Uniform resolves a name to its binding and byte range. A name matches a
// binding variable first, then a member of a uniform struct. Results are
// cached.
func (p *Program) Uniform(name string) (UniformLocation, bool) {
	if loc, ok := p.uniforms[name]; ok {
		return loc, true
	}
	loc, ok := p.lookupUniform(name)
	if ok {
		p.uniforms[name] = loc
	}
	return loc, ok
}

func (p *Program) lookupUniform(name string) (UniformLocation, bool) {
	for _, b := range p.bindings {
		if b.Name == name {
			return UniformLocation{Group: b.Group, Binding: b.Binding, Kind: b.Kind, Size: b.Size, Type: b.Type}, true
		}
	}
	for _, b := range p.bindings {
		if m, ok := b.Members[name]; ok {
			return UniformLocation{Group: b.Group, Binding: b.Binding, Kind: b.Kind, Offset: m.Offset, Size: m.Size, Type: m.Type}, true
		}
	}
	return UniformLocation{}, false
}

// groupCount returns the number of bind group layouts.
func (p *Program) groupCount() int { return len(p.groupLayouts) }

// groupLayout returns the layout of group g.
func (p *Program) groupLayout(g uint32) hal.BindGroupLayout {
	if int(g) >= len(p.groupLayouts) {
		return nil
	}
	return p.groupLayouts[g]
}

// Pipeline returns the render pipeline, nil when linking failed.
func (p *Program) Pipeline() hal.RenderPipeline { return p.pipeline }

// Release destroys the pipeline and its layouts.
func (p *Program) Release() {
	if p.pipeline != nil {
		p.ctx.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	p.destroyLayouts()
}
