// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from a host application.
//
// A host that already owns a device (a windowed gogpu app, for example)
// passes it to NewContextFromProvider so the renderer draws with the shared
// device instead of opening its own. The provider must also expose the HAL
// objects through HalDevice() any and HalQueue() any.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by providers that expose their HAL device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// halFromProvider extracts the HAL device and queue from a provider.
func halFromProvider(provider DeviceHandle) (hal.Device, hal.Queue, error) {
	if provider == nil {
		return nil, nil, fmt.Errorf("render: nil device provider")
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, fmt.Errorf("render: provider %T does not expose HAL types", provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("render: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("render: provider HalQueue is not hal.Queue")
	}
	return device, queue, nil
}

// DeviceCapabilities describes the device a Context was opened on.
type DeviceCapabilities struct {
	// MaxTextureSize is the maximum 2D texture dimension.
	MaxTextureSize uint32

	// MaxBindGroups is the maximum number of bind groups per pipeline.
	MaxBindGroups uint32

	// DeviceName is the adapter name, empty for host-supplied devices.
	DeviceName string
}

// NullDeviceHandle is a DeviceHandle without any device. Contexts built from
// it fail to initialize.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports an unknown adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}
