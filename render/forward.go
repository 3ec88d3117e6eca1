// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// Renderer errors.
var (
	ErrInvalidScale = errors.New("render: supersampling scale must be at least 1")
	ErrReleased     = errors.New("render: renderer released")
	ErrNilCamera    = errors.New("render: nil camera")
)

// Uniform names the renderer writes. Names a program does not declare are
// skipped.
const (
	uniformMVP          = "mvp"
	uniformModel        = "modelMatrix"
	uniformViewPosition = "viewPosition"
	uniformLightCount   = "lightCount"
	uniformLights       = "Lights"
	uniformScale        = "scale"

	lightStructName = "PointLight"
)

// compositeVertexCount is the full-screen quad: two triangles.
const compositeVertexCount = 6

// ForwardRenderer draws a static scene in two passes: every object against
// every light into a supersampled scene target, then a box-filter downsample
// into a display-sized composite target.
//
// The renderer keeps its own copy of the scene; edits to the caller's Scene
// after construction have no effect.
type ForwardRenderer struct {
	ctx *Context

	width, height  uint32
	requestedScale int
	scale          int
	requestedAA    ssaa.AAMode
	aa             ssaa.AAMode
	clear          gputypes.Color

	scene   ssaa.Scene
	lights  ssaa.LightSet
	dropped int

	sceneTarget     *Target
	compositeTarget *Target
	sceneProgram    *Program
	compositeProg   *Program
	lightBuffer     *LightBuffer
	meshes          *MeshArena
	attached        int
	sceneBindings   *bindingSet
	compositeBinds  *bindingSet

	released bool
}

// NewForwardRenderer builds the renderer. Degradations (too many lights,
// a scale beyond the texture limit, an unsupported AA mode) are logged and
// corrected. Shader problems leave a renderer that draws nothing for the
// affected pass. GPU resource failures are returned after releasing
// everything created so far.
func NewForwardRenderer(ctx *Context, width, height uint32, scene ssaa.Scene, opts ...Option) (*ForwardRenderer, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if o.scale < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidScale, o.scale)
	}
	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("render: invalid scene: %w", err)
	}

	r := &ForwardRenderer{
		ctx:            ctx,
		width:          width,
		height:         height,
		requestedScale: o.scale,
		requestedAA:    o.aa,
		clear:          o.clear,
		scene:          scene.Clone(),
	}

	r.lights, r.dropped = ssaa.NewLightSet(r.scene.Lights)
	r.scale = fitScale(width, height, o.scale, ctx.MaxTextureDimension())
	r.aa = o.aa
	if !r.aa.Supported() {
		ssaa.Logger().Warn("render: anti-aliasing mode not supported, falling back",
			"requested", r.aa.String(), "using", ssaa.AANone.String())
		r.aa = ssaa.AANone
	}

	if err := r.build(o); err != nil {
		r.Release()
		return nil, fmt.Errorf("render: forward renderer: %w", err)
	}
	ssaa.Logger().Info("render: forward renderer ready",
		"width", width, "height", height, "scale", r.scale,
		"objects", len(r.scene.Objects), "lights", r.lights.Len())
	return r, nil
}

// maxLoggedSteps is the longest reduction logged one step at a time.
const maxLoggedSteps = 8

// fitScale returns the largest scale <= requested whose scaled size fits the
// texture limit. Each reduction step is logged; longer runs are logged as a
// single range. A scale of 1 is returned even if it does not fit; the
// target is clamped instead.
func fitScale(width, height uint32, requested int, limit uint32) int {
	if limit == 0 || requested <= 1 {
		return requested
	}
	fit := max(int(limit/max(width, height, 1)), 1)
	if fit >= requested {
		return requested
	}
	if requested-fit > maxLoggedSteps {
		ssaa.Logger().Warn("render: supersampled size exceeds texture limit, reducing scale",
			"from", requested, "to", fit, "steps", requested-fit, "limit", limit)
		return fit
	}
	for scale := requested; scale > fit; scale-- {
		ssaa.Logger().Warn("render: supersampled size exceeds texture limit, reducing scale",
			"from", scale, "to", scale-1,
			"size", fmt.Sprintf("%dx%d", uint64(width)*uint64(scale), uint64(height)*uint64(scale)),
			"limit", limit)
	}
	return fit
}

func (r *ForwardRenderer) build(o options) error {
	var err error
	s := uint32(r.scale)
	r.sceneTarget, err = NewTarget(r.ctx, TargetDescriptor{
		Label: "scene", Width: r.width * s, Height: r.height * s, Depth: true,
	})
	if err != nil {
		return err
	}
	r.compositeTarget, err = NewTarget(r.ctx, TargetDescriptor{
		Label: "composite", Width: r.width, Height: r.height,
	})
	if err != nil {
		return err
	}

	r.sceneProgram, err = NewProgram(r.ctx, ProgramDescriptor{
		Label: "scene", Source: o.scene, ColorFormat: ColorFormat, DepthFormat: DepthFormat,
	})
	if err != nil {
		return err
	}
	r.compositeProg, err = NewProgram(r.ctx, ProgramDescriptor{
		Label: "composite", Source: o.composite, ColorFormat: ColorFormat,
	})
	if err != nil {
		return err
	}

	r.lightBuffer, err = NewLightBuffer(r.ctx, r.lights)
	if err != nil {
		return err
	}
	if stride, ok := r.sceneProgram.StructStride(lightStructName); ok && stride != ssaa.LightStride {
		ssaa.Logger().Warn("render: shader light stride differs from upload stride",
			"shader", stride, "upload", ssaa.LightStride)
	}

	r.meshes, err = NewMeshArena(r.ctx, r.scene.Meshes)
	if err != nil {
		return err
	}
	seen := make(map[ssaa.MeshID]bool)
	for _, obj := range r.scene.Objects {
		if seen[obj.Mesh] {
			continue
		}
		seen[obj.Mesh] = true
		g, _ := r.meshes.Get(obj.Mesh)
		g.Attach(r.sceneProgram)
		r.attached++
	}

	r.sceneBindings, err = newBindingSet(r.ctx, r.sceneProgram, bindingResources{
		instanceUniforms: []string{uniformMVP, uniformModel},
		instances:        len(r.scene.Objects),
		shared: map[string]sharedBuffer{
			uniformLights: {buffer: r.lightBuffer.Buffer(), size: r.lightBuffer.Size()},
		},
	})
	if err != nil {
		return err
	}
	r.compositeBinds, err = newBindingSet(r.ctx, r.compositeProg, bindingResources{
		texture: r.sceneTarget.View(),
	})
	return err
}

// Draw renders one frame for camera: the scene pass, then the composite
// pass, submitted as one command buffer. It blocks until the GPU is done.
func (r *ForwardRenderer) Draw(camera *ssaa.Camera) error {
	if r.released {
		return ErrReleased
	}
	if camera == nil {
		return ErrNilCamera
	}
	sceneData, compositeData := r.frameData(camera)
	if err := r.sceneBindings.upload(sceneData); err != nil {
		return fmt.Errorf("render: draw: %w", err)
	}
	if err := r.compositeBinds.upload(compositeData); err != nil {
		return fmt.Errorf("render: draw: %w", err)
	}

	return r.ctx.submit("forward_frame", func(enc hal.CommandEncoder) error {
		r.recordScenePass(enc)
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: r.sceneTarget.Handle(),
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageTextureBinding,
			},
		}})
		r.recordCompositePass(enc)
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: r.sceneTarget.Handle(),
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
}

func (r *ForwardRenderer) recordScenePass(enc hal.CommandEncoder) {
	rp := enc.BeginRenderPass(r.sceneTarget.PassDescriptor(r.clear))
	w, h := r.sceneTarget.Size()
	rp.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	if r.sceneBindings.drawable() {
		r.sceneBindings.bindShared(rp)
		for i, obj := range r.scene.Objects {
			g, ok := r.meshes.Get(obj.Mesh)
			if !ok {
				continue
			}
			r.sceneBindings.bindInstance(rp, i)
			g.draw(rp, r.sceneProgram)
		}
	}
	rp.End()
}

func (r *ForwardRenderer) recordCompositePass(enc hal.CommandEncoder) {
	rp := enc.BeginRenderPass(r.compositeTarget.PassDescriptor(r.clear))
	w, h := r.compositeTarget.Size()
	rp.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	if r.compositeBinds.drawable() {
		r.compositeBinds.bindShared(rp)
		rp.Draw(compositeVertexCount, 1, 0, 0)
	}
	rp.End()
}

// frameData computes the uniform contents of both passes. It depends only
// on the camera and the renderer's own scene copy.
func (r *ForwardRenderer) frameData(camera *ssaa.Camera) (scene, composite uniformData) {
	scene = r.sceneBindings.newData()
	r.sceneBindings.setVec3(scene, uniformViewPosition, camera.Position())
	r.sceneBindings.setScalar(scene, uniformLightCount, r.lights.Len())
	vp := camera.ViewProjection()
	for i, obj := range r.scene.Objects {
		model := obj.Model()
		r.sceneBindings.setMat4(scene, uniformModel, i, model)
		r.sceneBindings.setMat4(scene, uniformMVP, i, vp.Mul(model))
	}

	composite = r.compositeBinds.newData()
	r.compositeBinds.setScalar(composite, uniformScale, r.scale)
	return scene, composite
}

// FrameBuffer returns the composite target. The caller presents it.
func (r *ForwardRenderer) FrameBuffer() *Target { return r.compositeTarget }

// SceneTarget returns the supersampled scene target.
func (r *ForwardRenderer) SceneTarget() *Target { return r.sceneTarget }

// ReadFrame reads the composite target back.
func (r *ForwardRenderer) ReadFrame() (*image.RGBA, error) {
	if r.released {
		return nil, ErrReleased
	}
	return r.compositeTarget.ReadPixels()
}

// ReadScene reads the supersampled scene target back.
func (r *ForwardRenderer) ReadScene() (*image.RGBA, error) {
	if r.released {
		return nil, ErrReleased
	}
	return r.sceneTarget.ReadPixels()
}

// Size returns the display resolution.
func (r *ForwardRenderer) Size() (width, height uint32) { return r.width, r.height }

// Scale returns the effective supersampling scale.
func (r *ForwardRenderer) Scale() int { return r.scale }

// RequestedScale returns the scale asked for at construction.
func (r *ForwardRenderer) RequestedScale() int { return r.requestedScale }

// AA returns the effective anti-aliasing mode.
func (r *ForwardRenderer) AA() ssaa.AAMode { return r.aa }

// RequestedAA returns the anti-aliasing mode asked for at construction.
func (r *ForwardRenderer) RequestedAA() ssaa.AAMode { return r.requestedAA }

// Lights returns the uploaded, possibly truncated, light set.
func (r *ForwardRenderer) Lights() ssaa.LightSet { return r.lights }

// DroppedLights returns how many lights were truncated.
func (r *ForwardRenderer) DroppedLights() int { return r.dropped }

// LightBuffer returns the uniform buffer holding the lights.
func (r *ForwardRenderer) LightBuffer() *LightBuffer { return r.lightBuffer }

// SceneProgram returns the scene-shading program.
func (r *ForwardRenderer) SceneProgram() *Program { return r.sceneProgram }

// CompositeProgram returns the downsample program.
func (r *ForwardRenderer) CompositeProgram() *Program { return r.compositeProg }

// Objects returns a copy of the objects being drawn.
func (r *ForwardRenderer) Objects() []ssaa.Renderable {
	return append([]ssaa.Renderable(nil), r.scene.Objects...)
}

// Release destroys every GPU resource in reverse creation order. It is safe
// on a partially built renderer and safe to call twice.
func (r *ForwardRenderer) Release() {
	if r.compositeBinds != nil {
		r.compositeBinds.release()
		r.compositeBinds = nil
	}
	if r.sceneBindings != nil {
		r.sceneBindings.release()
		r.sceneBindings = nil
	}
	if r.meshes != nil {
		r.meshes.Release()
		r.meshes = nil
	}
	if r.lightBuffer != nil {
		r.lightBuffer.Release()
		r.lightBuffer = nil
	}
	if r.compositeProg != nil {
		r.compositeProg.Release()
		r.compositeProg = nil
	}
	if r.sceneProgram != nil {
		r.sceneProgram.Release()
		r.sceneProgram = nil
	}
	if r.compositeTarget != nil {
		r.compositeTarget.Release()
		r.compositeTarget = nil
	}
	if r.sceneTarget != nil {
		r.sceneTarget.Release()
		r.sceneTarget = nil
	}
	r.released = true
}
