// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ssaa"
)

// newNoopContext returns an initialized Context on the noop backend.
func newNoopContext(t *testing.T) *Context {
	t.Helper()
	return newNoopContextWithLimits(t, gputypes.DefaultLimits())
}

// newNoopContextWithLimits opens a noop device and reports limits for it,
// so tests can shrink the texture limit without a real adapter.
func newNoopContextWithLimits(t *testing.T, limits gputypes.Limits) *Context {
	t.Helper()
	device, queue := openNoopDevice(t)
	ctx := NewContextFromHAL(device, queue, limits)
	if err := ctx.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return ctx
}

func openNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend exposes no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

var errInjected = errors.New("injected failure")

// failingDevice counts resource creations and fails once a budget runs out.
// Destroy calls are counted so tests can check cleanup.
type failingDevice struct {
	hal.Device

	mu               sync.Mutex
	textureBudget    int // creations allowed before failing, -1 for no limit
	bufferBudget     int
	textures         int
	buffers          int
	destroyedTexture int
	destroyedBuffer  int
}

func newFailingDevice(d hal.Device) *failingDevice {
	return &failingDevice{Device: d, textureBudget: -1, bufferBudget: -1}
}

func (d *failingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.textureBudget >= 0 && d.textures >= d.textureBudget {
		return nil, errInjected
	}
	d.textures++
	return d.Device.CreateTexture(desc)
}

func (d *failingDevice) DestroyTexture(tex hal.Texture) {
	d.mu.Lock()
	d.destroyedTexture++
	d.mu.Unlock()
	d.Device.DestroyTexture(tex)
}

func (d *failingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bufferBudget >= 0 && d.buffers >= d.bufferBudget {
		return nil, errInjected
	}
	d.buffers++
	return d.Device.CreateBuffer(desc)
}

func (d *failingDevice) DestroyBuffer(buf hal.Buffer) {
	d.mu.Lock()
	d.destroyedBuffer++
	d.mu.Unlock()
	d.Device.DestroyBuffer(buf)
}

func newFailingContext(t *testing.T) (*Context, *failingDevice) {
	t.Helper()
	device, queue := openNoopDevice(t)
	fd := newFailingDevice(device)
	ctx := NewContextFromHAL(fd, queue, gputypes.DefaultLimits())
	if err := ctx.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return ctx, fd
}

// newContextFromParts initializes a Context over arbitrary device and queue
// wrappers.
func newContextFromParts(t *testing.T, device hal.Device, queue hal.Queue) *Context {
	t.Helper()
	ctx := NewContextFromHAL(device, queue, gputypes.DefaultLimits())
	if err := ctx.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return ctx
}

// copyingDevice runs buffer-to-buffer copies on the CPU, which the noop
// encoder skips, so readback returns what was uploaded.
type copyingDevice struct {
	hal.Device
}

func (d copyingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return copyingEncoder{CommandEncoder: enc, device: d.Device}, nil
}

type copyingEncoder struct {
	hal.CommandEncoder
	device hal.Device
}

func (e copyingEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	for _, r := range regions {
		from, err := e.device.MapBuffer(src, r.SrcOffset, r.Size)
		if err != nil {
			continue
		}
		to, err := e.device.MapBuffer(dst, r.DstOffset, r.Size)
		if err != nil {
			continue
		}
		copy(unsafe.Slice((*byte)(to.Ptr), r.Size), unsafe.Slice((*byte)(from.Ptr), r.Size))
	}
}

// stalledQueue accepts submissions but never completes them.
type stalledQueue struct {
	hal.Queue
}

func (stalledQueue) PollCompleted() uint64 { return 0 }

// failingQueue rejects buffer writes while broken is set.
type failingQueue struct {
	hal.Queue
	broken bool
}

func (q *failingQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if q.broken {
		return errInjected
	}
	return q.Queue.WriteBuffer(buf, offset, data)
}

// captureLogs routes package logging into a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ssaa.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { ssaa.SetLogger(nil) })
	return &buf
}

// triangle is one counter-clockwise triangle facing +Z.
func triangle() []ssaa.Vertex {
	n := ssaa.Vec3{Z: 1}
	c := ssaa.Vec3{X: 1, Y: 1, Z: 1}
	return []ssaa.Vertex{
		{Position: ssaa.Vec3{X: -1, Y: -1}, Normal: n, Color: c},
		{Position: ssaa.Vec3{X: 1, Y: -1}, Normal: n, Color: c},
		{Position: ssaa.Vec3{Y: 1}, Normal: n, Color: c},
	}
}

func testScene() ssaa.Scene {
	var s ssaa.Scene
	tri := s.AddMesh(triangle())
	s.Place(tri, ssaa.Vec3{})
	s.Place(tri, ssaa.Vec3{X: 2})
	s.Lights = []ssaa.PointLight{
		{Position: ssaa.Vec3{Z: 3}, Color: ssaa.Vec3{X: 1, Y: 1, Z: 1}, Intensity: 4},
	}
	return s
}

// requireLinked skips when the shader compiler cannot handle a program the
// renderer ships with; the rest of the test needs a real pipeline.
func requireLinked(t *testing.T, p *Program) {
	t.Helper()
	if !p.Linked() {
		t.Skipf("program %s did not link on this toolchain: %v", p.Label(), p.Diagnostics())
	}
}
