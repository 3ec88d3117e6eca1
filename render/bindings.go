// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// uniformOffsetAlignment is the largest minUniformBufferOffsetAlignment a
// device may report; per-instance uniform records are spaced by it.
const uniformOffsetAlignment = 256

// uniformSlot is the buffer behind one uniform binding.
type uniformSlot struct {
	group, binding uint32
	buffer         hal.Buffer
	size           uint64 // bytes bound per bind group
	stride         uint64 // per-instance spacing, 0 when shared
	instances      int
}

func (s *uniformSlot) bytes() uint64 {
	if s.stride == 0 {
		return s.size
	}
	return s.stride * uint64(s.instances)
}

// bindingSet holds everything a program's bind groups reference.
//
// Groups are shared by all draws except instance groups, the ones holding
// per-object uniforms, which get one bind group per object.
type bindingSet struct {
	ctx     *Context
	program *Program

	slots          []*uniformSlot
	groups         []hal.BindGroup
	instanced      map[int]bool
	instanceGroups map[int][]hal.BindGroup

	// complete is false when some binding could not be satisfied; draws
	// with this set are skipped.
	complete bool
}

// bindingResources are the external resources a bindingSet may bind.
type bindingResources struct {
	// instanceUniforms name uniforms whose groups are per-instance.
	instanceUniforms []string
	instances        int

	// shared maps a uniform name to an existing buffer to bind for it.
	shared map[string]sharedBuffer

	// texture is bound to every texture binding.
	texture hal.TextureView
}

type sharedBuffer struct {
	buffer hal.Buffer
	size   uint64
}

// newBindingSet creates the uniform buffers and bind groups of p. Resource
// creation errors are returned; bindings the renderer cannot satisfy only
// mark the set incomplete.
func newBindingSet(ctx *Context, p *Program, res bindingResources) (*bindingSet, error) {
	s := &bindingSet{
		ctx:            ctx,
		program:        p,
		instanced:      make(map[int]bool),
		instanceGroups: make(map[int][]hal.BindGroup),
		complete:       true,
	}
	if p.Pipeline() == nil {
		s.complete = false
		return s, nil
	}
	for _, name := range res.instanceUniforms {
		if loc, ok := p.Uniform(name); ok && loc.Kind == BindingUniform {
			s.instanced[int(loc.Group)] = true
		}
	}

	sharedAt := make(map[[2]uint32]sharedBuffer)
	for name, sb := range res.shared {
		if loc, ok := p.Uniform(name); ok && loc.Kind == BindingUniform {
			sharedAt[[2]uint32{loc.Group, loc.Binding}] = sb
		}
	}

	s.groups = make([]hal.BindGroup, p.groupCount())
	for g := 0; g < p.groupCount(); g++ {
		instanced := s.instanced[g]
		var entries []gputypes.BindGroupEntry
		for _, b := range p.bindings {
			if int(b.Group) != g {
				continue
			}
			switch b.Kind {
			case BindingTexture:
				if res.texture == nil {
					s.incomplete("no texture for %s", b.Name)
					continue
				}
				entries = append(entries, gputypes.BindGroupEntry{
					Binding:  b.Binding,
					Resource: gputypes.TextureViewBinding{TextureView: res.texture.NativeHandle()},
				})
			case BindingSampler:
				// Composite shaders read texels with textureLoad.
				s.incomplete("sampler binding %s is not supported", b.Name)
				continue
			default:
				if b.Size == 0 {
					s.incomplete("unknown layout of uniform %s %s", b.Name, b.Type)
					continue
				}
				if sb, ok := sharedAt[[2]uint32{b.Group, b.Binding}]; ok && !instanced {
					entries = append(entries, gputypes.BindGroupEntry{
						Binding:  b.Binding,
						Resource: gputypes.BufferBinding{Buffer: sb.buffer.NativeHandle(), Offset: 0, Size: min(sb.size, uint64(b.Size))},
					})
					continue
				}
				slot, err := s.createSlot(b, instanced, res.instances)
				if err != nil {
					return s, err
				}
				if !instanced {
					entries = append(entries, gputypes.BindGroupEntry{
						Binding:  b.Binding,
						Resource: gputypes.BufferBinding{Buffer: slot.buffer.NativeHandle(), Offset: 0, Size: slot.size},
					})
				}
			}
		}
		if instanced {
			continue
		}
		bg, err := ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_group%d", p.Label(), g),
			Layout:  p.groupLayout(uint32(g)),
			Entries: entries,
		})
		if err != nil {
			return s, fmt.Errorf("create %s bind group %d: %w", p.Label(), g, err)
		}
		s.groups[g] = bg
	}

	for g := range s.instanced {
		if err := s.createInstanceGroups(g, res.instances); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s *bindingSet) incomplete(format string, args ...any) {
	s.complete = false
	ssaa.Logger().Warn("render: binding not satisfied, draws skipped",
		"program", s.program.Label(), "reason", fmt.Sprintf(format, args...))
}

func (s *bindingSet) createSlot(b Binding, instanced bool, instances int) (*uniformSlot, error) {
	slot := &uniformSlot{
		group:   b.Group,
		binding: b.Binding,
		size:    uint64(roundUp(16, b.Size)),
	}
	if instanced {
		slot.stride = uint64(roundUp(uniformOffsetAlignment, b.Size))
		slot.instances = max(instances, 1)
	}
	buf, err := s.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_%s_uniform", s.program.Label(), b.Name),
		Size:  slot.bytes(),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s uniform %s: %w", s.program.Label(), b.Name, err)
	}
	slot.buffer = buf
	s.slots = append(s.slots, slot)
	return slot, nil
}

// createInstanceGroups creates one bind group of group g per instance, each
// viewing its own stride-aligned record of the group's uniform buffers.
func (s *bindingSet) createInstanceGroups(group, instances int) error {
	g := uint32(group)
	for i := 0; i < instances; i++ {
		var entries []gputypes.BindGroupEntry
		for _, slot := range s.slots {
			if slot.group != g {
				continue
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  slot.binding,
				Resource: gputypes.BufferBinding{Buffer: slot.buffer.NativeHandle(), Offset: uint64(i) * slot.stride, Size: slot.size},
			})
		}
		bg, err := s.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_instance%d", s.program.Label(), i),
			Layout:  s.program.groupLayout(g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create %s instance bind group %d: %w", s.program.Label(), i, err)
		}
		s.instanceGroups[group] = append(s.instanceGroups[group], bg)
	}
	return nil
}

// drawable reports whether draws with this set can be recorded.
func (s *bindingSet) drawable() bool {
	return s.complete && s.program.Linked() && s.program.Pipeline() != nil
}

// bindShared sets the pipeline and every shared bind group.
func (s *bindingSet) bindShared(rp hal.RenderPassEncoder) {
	rp.SetPipeline(s.program.Pipeline())
	for g, bg := range s.groups {
		if bg != nil {
			rp.SetBindGroup(uint32(g), bg, nil)
		}
	}
}

// bindInstance sets every instance group for instance i.
func (s *bindingSet) bindInstance(rp hal.RenderPassEncoder, i int) {
	for g, groups := range s.instanceGroups {
		if i < len(groups) {
			rp.SetBindGroup(uint32(g), groups[i], nil)
		}
	}
}

// uniformData is the CPU image of every slot, in slot order.
type uniformData [][]byte

func (s *bindingSet) newData() uniformData {
	d := make(uniformData, len(s.slots))
	for i, slot := range s.slots {
		d[i] = make([]byte, slot.bytes())
	}
	return d
}

// field returns the bytes of a named uniform for an instance, nil when the
// program does not use the name.
func (s *bindingSet) field(d uniformData, name string, instance int) ([]byte, string) {
	loc, ok := s.program.Uniform(name)
	if !ok || loc.Kind != BindingUniform {
		return nil, ""
	}
	for i, slot := range s.slots {
		if slot.group != loc.Group || slot.binding != loc.Binding {
			continue
		}
		off := uint64(loc.Offset)
		if slot.stride != 0 {
			if instance >= slot.instances {
				return nil, ""
			}
			off += uint64(instance) * slot.stride
		}
		end := off + uint64(loc.Size)
		if end > uint64(len(d[i])) {
			return nil, ""
		}
		return d[i][off:end], loc.Type
	}
	return nil, ""
}

// setMat4 writes a matrix in WGSL column-major order.
func (s *bindingSet) setMat4(d uniformData, name string, instance int, m ssaa.Mat4) {
	dst, _ := s.field(d, name, instance)
	if len(dst) < 64 {
		return
	}
	for i, f := range m.ColumnMajor() {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

func (s *bindingSet) setVec3(d uniformData, name string, v ssaa.Vec3) {
	dst, _ := s.field(d, name, 0)
	if len(dst) < 12 {
		return
	}
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v.Z))
}

// setScalar writes n as the member's declared scalar type.
func (s *bindingSet) setScalar(d uniformData, name string, n int) {
	dst, typ := s.field(d, name, 0)
	if len(dst) < 4 {
		return
	}
	switch typ {
	case "f32":
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(n)))
	case "i32":
		binary.LittleEndian.PutUint32(dst, uint32(int32(n)))
	default:
		binary.LittleEndian.PutUint32(dst, uint32(n))
	}
}

// upload writes every slot to its buffer.
func (s *bindingSet) upload(d uniformData) error {
	for i, slot := range s.slots {
		if err := s.ctx.queue.WriteBuffer(slot.buffer, 0, d[i]); err != nil {
			return fmt.Errorf("upload %s uniforms: %w", s.program.Label(), err)
		}
	}
	return nil
}

// release destroys the bind groups and the slot buffers.
func (s *bindingSet) release() {
	device := s.ctx.device
	for _, groups := range s.instanceGroups {
		for _, bg := range groups {
			device.DestroyBindGroup(bg)
		}
	}
	s.instanceGroups = nil
	for _, bg := range s.groups {
		if bg != nil {
			device.DestroyBindGroup(bg)
		}
	}
	s.groups = nil
	for _, slot := range s.slots {
		if slot.buffer != nil {
			device.DestroyBuffer(slot.buffer)
		}
	}
	s.slots = nil
}
