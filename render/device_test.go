// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

func TestNullDeviceHandle(t *testing.T) {
	var handle DeviceHandle = NullDeviceHandle{}

	if handle.Device() != nil {
		t.Error("NullDeviceHandle.Device() should return nil")
	}
	if handle.Queue() != nil {
		t.Error("NullDeviceHandle.Queue() should return nil")
	}
	if handle.Adapter() != nil {
		t.Error("NullDeviceHandle.Adapter() should return nil")
	}
	if info := handle.AdapterInfo(); info.Type != gpucontext.AdapterTypeUnknown || info.Name != "" {
		t.Errorf("NullDeviceHandle.AdapterInfo() = %+v, want unknown", info)
	}
	if handle.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Error("NullDeviceHandle.SurfaceFormat() should return Undefined")
	}
}

func TestDeviceHandleAlias(t *testing.T) {
	// DeviceHandle should be an alias for gpucontext.DeviceProvider.
	// This is a compile-time check - if it compiles, types are compatible.
	acceptProvider := func(_ gpucontext.DeviceProvider) {}
	acceptProvider(NullDeviceHandle{})
}

// halHost is a host provider that exposes its HAL objects.
type halHost struct {
	NullDeviceHandle
	device, queue any
}

func (h halHost) HalDevice() any { return h.device }
func (h halHost) HalQueue() any  { return h.queue }

func TestHalFromProvider(t *testing.T) {
	device, queue := openNoopDevice(t)

	tests := []struct {
		name     string
		provider DeviceHandle
		wantErr  bool
	}{
		{"nil provider", nil, true},
		{"no HAL accessors", NullDeviceHandle{}, true},
		{"wrong device type", halHost{device: "gpu", queue: queue}, true},
		{"nil queue", halHost{device: device}, true},
		{"valid", halHost{device: device, queue: queue}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, q, err := halFromProvider(tt.provider)
			if (err != nil) != tt.wantErr {
				t.Fatalf("halFromProvider error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (d != device || q != queue) {
				t.Error("halFromProvider returned different HAL objects")
			}
		})
	}
}

func TestContextFromHostProvider(t *testing.T) {
	device, queue := openNoopDevice(t)
	ctx := NewContextFromProvider(halHost{device: device, queue: queue})
	if err := ctx.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer ctx.Release()

	caps := ctx.Capabilities()
	if caps.MaxTextureSize != gputypes.DefaultLimits().MaxTextureDimension2D {
		t.Errorf("MaxTextureSize = %d, want default limit", caps.MaxTextureSize)
	}
	if caps.DeviceName != "" {
		t.Errorf("DeviceName = %q, want empty for host devices", caps.DeviceName)
	}
}
