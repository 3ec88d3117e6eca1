// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ssaa"
	"github.com/gogpu/ssaa/internal/shaders"
)

func testCamera(w, h int) *ssaa.Camera {
	cam := ssaa.NewCameraForSize(math.Pi/3, w, h, 0.1, 100)
	cam.SetPosition(ssaa.Vec3{Z: 5})
	return cam
}

func newTestRenderer(t *testing.T, ctx *Context, w, h uint32, scene ssaa.Scene, opts ...Option) *ForwardRenderer {
	t.Helper()
	r, err := NewForwardRenderer(ctx, w, h, scene, opts...)
	if err != nil {
		t.Fatalf("NewForwardRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func TestForwardRendererTargets(t *testing.T) {
	ctx := newNoopContext(t)
	r := newTestRenderer(t, ctx, 64, 48, testScene(), WithScale(3))

	if r.Scale() != 3 || r.RequestedScale() != 3 {
		t.Errorf("Scale() = %d, RequestedScale() = %d; want 3, 3", r.Scale(), r.RequestedScale())
	}
	if w, h := r.SceneTarget().Size(); w != 192 || h != 144 {
		t.Errorf("scene target = %dx%d, want 192x144", w, h)
	}
	if !r.SceneTarget().HasDepth() {
		t.Error("scene target has no depth attachment")
	}
	if w, h := r.FrameBuffer().Size(); w != 64 || h != 48 {
		t.Errorf("frame buffer = %dx%d, want 64x48", w, h)
	}
	if r.FrameBuffer().HasDepth() {
		t.Error("composite target has a depth attachment")
	}
}

func TestForwardRendererDraw(t *testing.T) {
	ctx := newNoopContext(t)
	r := newTestRenderer(t, ctx, 32, 32, testScene(), WithScale(2))
	cam := testCamera(32, 32)

	for i := 0; i < 2; i++ {
		if err := r.Draw(cam); err != nil {
			t.Fatalf("Draw #%d: %v", i, err)
		}
	}
	if err := r.Draw(nil); !errors.Is(err, ErrNilCamera) {
		t.Errorf("Draw(nil) = %v, want ErrNilCamera", err)
	}
}

func TestForwardRendererAttachesDistinctMeshesOnce(t *testing.T) {
	ctx := newNoopContext(t)
	var scene ssaa.Scene
	a := scene.AddMesh(triangle())
	b := scene.AddMesh(triangle())
	scene.AddMesh(triangle()) // never placed
	scene.Place(a, ssaa.Vec3{})
	scene.Place(a, ssaa.Vec3{X: 1})
	scene.Place(b, ssaa.Vec3{X: 2})

	r := newTestRenderer(t, ctx, 16, 16, scene)
	if r.attached != 2 {
		t.Errorf("attached %d meshes, want 2", r.attached)
	}
	if g, _ := r.meshes.Get(2); g.Attached(r.SceneProgram()) {
		t.Error("unplaced mesh was attached")
	}
}

func TestForwardRendererTruncatesLights(t *testing.T) {
	buf := captureLogs(t)
	ctx := newNoopContext(t)

	scene := testScene()
	scene.Lights = make([]ssaa.PointLight, ssaa.MaxLights+5)
	for i := range scene.Lights {
		scene.Lights[i] = ssaa.PointLight{Position: ssaa.Vec3{X: float32(i)}, Intensity: 1}
	}

	r := newTestRenderer(t, ctx, 16, 16, scene)
	if r.Lights().Len() != ssaa.MaxLights {
		t.Errorf("Lights().Len() = %d, want %d", r.Lights().Len(), ssaa.MaxLights)
	}
	if r.DroppedLights() != 5 {
		t.Errorf("DroppedLights() = %d, want 5", r.DroppedLights())
	}
	if r.LightBuffer().Count() != ssaa.MaxLights {
		t.Errorf("LightBuffer().Count() = %d, want %d", r.LightBuffer().Count(), ssaa.MaxLights)
	}
	// The first MaxLights lights are kept in order.
	last, _ := r.Lights().At(ssaa.MaxLights - 1)
	if last.Position.X != float32(ssaa.MaxLights-1) {
		t.Errorf("last kept light at x=%v, want %d", last.Position.X, ssaa.MaxLights-1)
	}
	if !strings.Contains(buf.String(), "truncating") {
		t.Error("truncation was not logged")
	}
}

func TestForwardRendererReducesScale(t *testing.T) {
	buf := captureLogs(t)
	limits := gputypes.DefaultLimits()
	limits.MaxTextureDimension2D = 256
	ctx := newNoopContextWithLimits(t, limits)

	r := newTestRenderer(t, ctx, 100, 50, testScene(), WithScale(4))
	if r.Scale() != 2 {
		t.Errorf("Scale() = %d, want 2", r.Scale())
	}
	if r.RequestedScale() != 4 {
		t.Errorf("RequestedScale() = %d, want 4", r.RequestedScale())
	}
	if w, h := r.SceneTarget().Size(); w != 200 || h != 100 {
		t.Errorf("scene target = %dx%d, want 200x100", w, h)
	}
	if n := strings.Count(buf.String(), "reducing scale"); n != 2 {
		t.Errorf("logged %d reductions, want 2", n)
	}
}

func TestFitScale(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		requested     int
		limit         uint32
		want          int
	}{
		{"fits", 100, 100, 4, 1024, 4},
		{"width bound", 300, 10, 4, 1000, 3},
		{"height bound", 10, 300, 4, 700, 2},
		{"never below one", 2000, 2000, 4, 1024, 1},
		{"no limit", 100, 100, 8, 0, 8},
		{"huge request", 100, 50, 1 << 30, 1000, 10},
		{"scale one", 5000, 10, 1, 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitScale(tt.width, tt.height, tt.requested, tt.limit); got != tt.want {
				t.Errorf("fitScale = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFitScaleLogsLongRunsOnce(t *testing.T) {
	buf := captureLogs(t)
	if got := fitScale(100, 50, 1<<30, 1000); got != 10 {
		t.Fatalf("fitScale = %d, want 10", got)
	}
	if n := strings.Count(buf.String(), "reducing scale"); n != 1 {
		t.Errorf("logged %d reductions, want 1", n)
	}
}

func TestForwardRendererRejectsBadInput(t *testing.T) {
	ctx := newNoopContext(t)

	if _, err := NewForwardRenderer(ctx, 16, 16, testScene(), WithScale(0)); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("scale 0: error = %v, want ErrInvalidScale", err)
	}
	if _, err := NewForwardRenderer(ctx, 0, 16, testScene()); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("width 0: error = %v, want ErrInvalidSize", err)
	}

	bad := testScene()
	bad.Place(ssaa.MeshID(7), ssaa.Vec3{})
	if _, err := NewForwardRenderer(ctx, 16, 16, bad); !errors.Is(err, ssaa.ErrInvalidMeshID) {
		t.Errorf("bad mesh id: error = %v, want ErrInvalidMeshID", err)
	}
}

func TestForwardRendererAAFallback(t *testing.T) {
	buf := captureLogs(t)
	ctx := newNoopContext(t)

	for i := 0; i < 2; i++ {
		r := newTestRenderer(t, ctx, 16, 16, testScene(), WithAA(ssaa.AAMSAA))
		if r.AA() != ssaa.AANone {
			t.Errorf("construction %d: AA() = %v, want none", i, r.AA())
		}
		if r.RequestedAA() != ssaa.AAMSAA {
			t.Errorf("construction %d: RequestedAA() = %v, want msaa", i, r.RequestedAA())
		}
	}
	if n := strings.Count(buf.String(), "falling back"); n != 2 {
		t.Errorf("logged %d fallbacks, want 2", n)
	}

	r := newTestRenderer(t, ctx, 16, 16, testScene(), WithAA(ssaa.AANone))
	if r.AA() != ssaa.AANone {
		t.Errorf("AA() = %v, want none", r.AA())
	}
}

func TestForwardRendererFrameDataDeterministic(t *testing.T) {
	ctx := newNoopContext(t)
	r := newTestRenderer(t, ctx, 32, 32, testScene(), WithScale(2))
	requireLinked(t, r.SceneProgram())
	requireLinked(t, r.CompositeProgram())

	cam := testCamera(32, 32)
	s1, c1 := r.frameData(cam)
	s2, c2 := r.frameData(cam)
	if !reflect.DeepEqual(s1, s2) || !reflect.DeepEqual(c1, c2) {
		t.Fatal("frame data differs between identical frames")
	}

	count, _ := r.sceneBindings.field(s1, uniformLightCount, 0)
	if got := binary.LittleEndian.Uint32(count); got != 1 {
		t.Errorf("lightCount = %d, want 1", got)
	}
	scale, _ := r.compositeBinds.field(c1, uniformScale, 0)
	if got := binary.LittleEndian.Uint32(scale); got != 2 {
		t.Errorf("scale = %d, want 2", got)
	}

	// Each object gets its own model matrix; the second is translated by +2 X.
	m0, _ := r.sceneBindings.field(s1, uniformModel, 0)
	m1, _ := r.sceneBindings.field(s1, uniformModel, 1)
	tx := func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[48:])) }
	if tx(m0) != 0 || tx(m1) != 2 {
		t.Errorf("model translations = %v, %v; want 0, 2", tx(m0), tx(m1))
	}
}

// readBoth draws one frame and reads both targets back.
func readBoth(t *testing.T, r *ForwardRenderer, w, h int) (frame, scene *image.RGBA) {
	t.Helper()
	if err := r.Draw(testCamera(w, h)); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	frame, err := r.ReadFrame()
	if err != nil {
		t.Skipf("readback unavailable: %v", err)
	}
	scene, err = r.ReadScene()
	if err != nil {
		t.Fatalf("ReadScene: %v", err)
	}
	return frame, scene
}

// splitObjectVertex keeps the two per-object matrices in separate groups.
const splitObjectVertex = `
struct VertexInput {
    @location(0) vertPosition: vec3<f32>,
    @location(1) vertNormal: vec3<f32>,
    @location(2) vertColor: vec3<f32>,
    @location(3) vertTexCoord: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) worldPosition: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) color: vec3<f32>,
    @location(3) texCoord: vec2<f32>,
}

@group(1) @binding(0) var<uniform> mvp: mat4x4<f32>;
@group(2) @binding(0) var<uniform> modelMatrix: mat4x4<f32>;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = mvp * vec4<f32>(in.vertPosition, 1.0);
    out.worldPosition = (modelMatrix * vec4<f32>(in.vertPosition, 1.0)).xyz;
    out.normal = (modelMatrix * vec4<f32>(in.vertNormal, 0.0)).xyz;
    out.color = in.vertColor;
    out.texCoord = in.vertTexCoord;
    return out;
}
`

func TestForwardRendererPerObjectGroups(t *testing.T) {
	ctx := newNoopContext(t)
	pair := shaders.Scene()
	pair.Vertex = splitObjectVertex
	r := newTestRenderer(t, ctx, 16, 16, testScene(), WithSceneShaders(pair))
	requireLinked(t, r.SceneProgram())

	s := r.sceneBindings
	if !s.drawable() {
		t.Fatal("scene bindings not drawable")
	}
	objects := len(r.Objects())
	for _, g := range []int{1, 2} {
		if !s.instanced[g] {
			t.Errorf("group %d is not per-object", g)
		}
		if got := len(s.instanceGroups[g]); got != objects {
			t.Errorf("group %d has %d bind groups, want %d", g, got, objects)
		}
		if s.groups[g] != nil {
			t.Errorf("group %d also has a shared bind group", g)
		}
	}
	if s.instanced[0] {
		t.Error("frame group 0 is per-object")
	}

	d, _ := r.frameData(testCamera(16, 16))
	tx := func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[48:])) }
	m0, _ := s.field(d, uniformModel, 0)
	m1, _ := s.field(d, uniformModel, 1)
	if len(m0) != 64 || len(m1) != 64 {
		t.Fatalf("model matrix fields = %d, %d bytes; want 64", len(m0), len(m1))
	}
	if tx(m0) != 0 || tx(m1) != 2 {
		t.Errorf("model translations = %v, %v; want 0, 2", tx(m0), tx(m1))
	}
	p0, _ := s.field(d, uniformMVP, 0)
	p1, _ := s.field(d, uniformMVP, 1)
	if bytes.Equal(p0, p1) {
		t.Error("both objects share one mvp record")
	}
}

func TestForwardRendererScaleOne(t *testing.T) {
	ctx := newNoopContext(t)
	r := newTestRenderer(t, ctx, 20, 10, testScene(), WithScale(1))

	sw, sh := r.SceneTarget().Size()
	fw, fh := r.FrameBuffer().Size()
	if sw != fw || sh != fh {
		t.Fatalf("scene %dx%d != frame %dx%d at scale 1", sw, sh, fw, fh)
	}

	frame, sceneImg := readBoth(t, r, 20, 10)
	if frame.Bounds() != sceneImg.Bounds() {
		t.Fatalf("bounds differ: %v vs %v", frame.Bounds(), sceneImg.Bounds())
	}
	if !bytes.Equal(frame.Pix, sceneImg.Pix) {
		t.Error("composite at scale 1 is not a copy of the scene target")
	}
	if want := Downsample(sceneImg, 1); !bytes.Equal(frame.Pix, want.Pix) {
		t.Error("composite at scale 1 differs from Downsample(scene, 1)")
	}
}

func TestForwardRendererCompositeMatchesDownsample(t *testing.T) {
	ctx := newNoopContext(t)
	r := newTestRenderer(t, ctx, 12, 8, testScene(), WithScale(2))

	frame, sceneImg := readBoth(t, r, 12, 8)
	if got := sceneImg.Bounds().Size(); got != image.Pt(24, 16) {
		t.Fatalf("scene size = %v, want 24x16", got)
	}
	want := Downsample(sceneImg, 2)
	if frame.Bounds() != want.Bounds() {
		t.Fatalf("frame bounds %v, want %v", frame.Bounds(), want.Bounds())
	}
	for y := 0; y < want.Bounds().Dy(); y++ {
		for x := 0; x < want.Bounds().Dx(); x++ {
			if got, exp := frame.RGBAAt(x, y), want.RGBAAt(x, y); got != exp {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, exp)
			}
		}
	}
}

func TestForwardRendererBrokenShaderStillDraws(t *testing.T) {
	buf := captureLogs(t)
	ctx := newNoopContext(t)

	broken := shaders.Scene()
	broken.Fragment = "this is not wgsl"
	r := newTestRenderer(t, ctx, 16, 16, testScene(), WithSceneShaders(broken))

	if r.SceneProgram().Linked() {
		t.Fatal("broken scene program linked")
	}
	if r.sceneBindings.drawable() {
		t.Error("scene bindings drawable with a failed program")
	}
	if err := r.Draw(testCamera(16, 16)); err != nil {
		t.Errorf("Draw with failed program: %v", err)
	}
	if !strings.Contains(buf.String(), "shader diagnostic") {
		t.Error("shader failure was not logged")
	}
}

func TestForwardRendererCleanupOnTextureFailure(t *testing.T) {
	ctx, fd := newFailingContext(t)
	fd.textureBudget = 2 // scene color and depth, then composite fails

	_, err := NewForwardRenderer(ctx, 16, 16, testScene(), WithScale(2))
	if !errors.Is(err, errInjected) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if fd.destroyedTexture != fd.textures {
		t.Errorf("destroyed %d of %d textures", fd.destroyedTexture, fd.textures)
	}
}

func TestForwardRendererCleanupOnBufferFailure(t *testing.T) {
	ctx, fd := newFailingContext(t)
	fd.bufferBudget = 1 // lights upload, then the mesh fails

	_, err := NewForwardRenderer(ctx, 16, 16, testScene())
	if !errors.Is(err, errInjected) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if fd.destroyedBuffer != fd.buffers {
		t.Errorf("destroyed %d of %d buffers", fd.destroyedBuffer, fd.buffers)
	}
	if fd.destroyedTexture != fd.textures {
		t.Errorf("destroyed %d of %d textures", fd.destroyedTexture, fd.textures)
	}
}

func TestForwardRendererDrawReportsUploadFailure(t *testing.T) {
	device, queue := openNoopDevice(t)
	q := &failingQueue{Queue: queue}
	ctx := newContextFromParts(t, device, q)
	r := newTestRenderer(t, ctx, 16, 16, testScene())
	requireLinked(t, r.SceneProgram())

	q.broken = true
	if err := r.Draw(testCamera(16, 16)); !errors.Is(err, errInjected) {
		t.Errorf("Draw error = %v, want injected failure", err)
	}
	q.broken = false
	if err := r.Draw(testCamera(16, 16)); err != nil {
		t.Errorf("Draw after recovery: %v", err)
	}
}

func TestForwardRendererDrawTimesOut(t *testing.T) {
	device, queue := openNoopDevice(t)
	ctx := newContextFromParts(t, device, stalledQueue{queue})
	ctx.timeout = time.Millisecond
	r := newTestRenderer(t, ctx, 8, 8, testScene())

	err := r.Draw(testCamera(8, 8))
	if !errors.Is(err, ErrGPUTimeout) {
		t.Fatalf("Draw error = %v, want ErrGPUTimeout", err)
	}
	if strings.Contains(err.Error(), "%!") {
		t.Errorf("malformed error text: %q", err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, ErrGPUTimeout) {
		t.Errorf("ReadFrame error = %v, want ErrGPUTimeout", err)
	}
}

func TestForwardRendererOwnsSceneCopy(t *testing.T) {
	ctx := newNoopContext(t)
	scene := testScene()
	r := newTestRenderer(t, ctx, 16, 16, scene)

	scene.Objects[0].Position = ssaa.Vec3{X: 99}
	scene.Meshes[0][0].Position = ssaa.Vec3{X: 99}

	if got := r.Objects()[0].Position; got != (ssaa.Vec3{}) {
		t.Errorf("renderer object moved with caller's scene: %+v", got)
	}
}

func TestForwardRendererRelease(t *testing.T) {
	ctx := newNoopContext(t)
	r, err := NewForwardRenderer(ctx, 16, 16, testScene())
	if err != nil {
		t.Fatalf("NewForwardRenderer: %v", err)
	}
	r.Release()
	r.Release()

	if err := r.Draw(testCamera(16, 16)); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw after Release = %v, want ErrReleased", err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, ErrReleased) {
		t.Errorf("ReadFrame after Release = %v, want ErrReleased", err)
	}
}
