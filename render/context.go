// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssaa"
)

// Context errors.
var (
	// ErrContextNotInitialized is returned by every constructor that is
	// handed a Context whose Init has not succeeded.
	ErrContextNotInitialized = errors.New("render: context not initialized")

	// ErrNoAdapter is returned when a backend exposes no adapters.
	ErrNoAdapter = errors.New("render: no GPU adapters found")

	// ErrContextReleased is returned by Init once the Context was released.
	ErrContextReleased = errors.New("render: context released")

	// ErrGPUTimeout is returned when submitted work does not complete in time.
	ErrGPUTimeout = errors.New("render: timed out waiting for GPU")
)

const (
	// submitTimeout bounds every wait on submitted work.
	submitTimeout = 5 * time.Second

	// pollInterval is the sleep between completion polls.
	pollInterval = 50 * time.Microsecond
)

// Context is the process-wide GPU bootstrap state: the device, its queue
// and the limits it was opened with. It is initialized once; every render
// object is created from an initialized Context and must be released before
// the Context.
//
// A Context is driven from a single goroutine.
type Context struct {
	open func(c *Context) error

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits
	name     string
	owned    bool

	once        sync.Once
	initErr     error
	initialized bool
	released    bool

	// timeout bounds waits on submitted work; zero means submitTimeout.
	timeout time.Duration
}

// NewContext returns a Context that opens its own device on the given
// backend. The backend package must be registered, usually through a blank
// import such as _ "github.com/gogpu/wgpu/hal/vulkan".
func NewContext(backend gputypes.Backend) *Context {
	return &Context{open: func(c *Context) error {
		b, ok := hal.GetBackend(backend)
		if !ok {
			return fmt.Errorf("render: backend %v not available", backend)
		}
		instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			return fmt.Errorf("render: create instance: %w", err)
		}
		if err := c.openAdapter(instance.EnumerateAdapters(nil)); err != nil {
			instance.Destroy()
			return err
		}
		c.instance = instance
		return nil
	}}
}

// NewContextFromInstance returns a Context that opens a device from an
// already created instance and takes ownership of it.
func NewContextFromInstance(instance hal.Instance) *Context {
	return &Context{open: func(c *Context) error {
		if instance == nil {
			return fmt.Errorf("render: nil instance")
		}
		if err := c.openAdapter(instance.EnumerateAdapters(nil)); err != nil {
			instance.Destroy()
			return err
		}
		c.instance = instance
		return nil
	}}
}

// NewContextFromHAL wraps a device the caller owns. limits must be the
// limits the device was opened with; they drive target clamping.
func NewContextFromHAL(device hal.Device, queue hal.Queue, limits gputypes.Limits) *Context {
	return &Context{open: func(c *Context) error {
		if device == nil || queue == nil {
			return fmt.Errorf("render: nil device or queue")
		}
		c.device, c.queue, c.limits = device, queue, limits
		return nil
	}}
}

// NewContextFromProvider wraps a host-owned device. Default limits are
// assumed because providers do not report the limits they opened with.
func NewContextFromProvider(provider DeviceHandle) *Context {
	return &Context{open: func(c *Context) error {
		device, queue, err := halFromProvider(provider)
		if err != nil {
			return err
		}
		c.device, c.queue, c.limits = device, queue, gputypes.DefaultLimits()
		return nil
	}}
}

// openAdapter opens the first discrete or integrated GPU, or the first
// adapter when neither is present.
func (c *Context) openAdapter(adapters []hal.ExposedAdapter) error {
	if len(adapters) == 0 {
		return ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		return fmt.Errorf("render: open device: %w", err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue
	c.limits = limits
	c.name = selected.Info.Name
	c.owned = true
	ssaa.Logger().Info("render: GPU initialized", "adapter", c.name)
	return nil
}

// Init opens the device. It is idempotent: calls after the first return the
// first call's result without doing any work. A released Context cannot be
// initialized again.
func (c *Context) Init() error {
	if c.released {
		return ErrContextReleased
	}
	c.once.Do(func() {
		c.initErr = c.open(c)
		c.initialized = c.initErr == nil
		if c.initialized {
			ssaa.Logger().Debug("render: context ready",
				"maxTextureDimension2D", c.limits.MaxTextureDimension2D)
		}
	})
	return c.initErr
}

// Initialized reports whether Init succeeded.
func (c *Context) Initialized() bool {
	return c != nil && c.initialized
}

func (c *Context) check() error {
	if !c.Initialized() {
		return ErrContextNotInitialized
	}
	return nil
}

// Device returns the HAL device, nil before Init.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue, nil before Init.
func (c *Context) Queue() hal.Queue { return c.queue }

// Limits returns the limits the device was opened with.
func (c *Context) Limits() gputypes.Limits { return c.limits }

// MaxTextureDimension returns the largest supported 2D texture side.
func (c *Context) MaxTextureDimension() uint32 {
	return c.limits.MaxTextureDimension2D
}

// Capabilities describes the opened device.
func (c *Context) Capabilities() DeviceCapabilities {
	return DeviceCapabilities{
		MaxTextureSize: c.limits.MaxTextureDimension2D,
		MaxBindGroups:  c.limits.MaxBindGroups,
		DeviceName:     c.name,
	}
}

// Release destroys the device and instance if the Context opened them.
// Host-supplied devices are left alone. The Context is unusable afterwards.
func (c *Context) Release() {
	if c.owned {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device = nil
	c.queue = nil
	c.instance = nil
	c.initialized = false
	c.released = true
}

// submit records commands into a fresh encoder, submits them and waits for
// completion. record must not end the encoder.
func (c *Context) submit(label string, record func(enc hal.CommandEncoder) error) error {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := record(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	index, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return c.wait(index)
}

// wait blocks until the queue reports submission index as completed.
func (c *Context) wait(index uint64) error {
	timeout := c.timeout
	if timeout == 0 {
		timeout = submitTimeout
	}
	deadline := time.Now().Add(timeout)
	for c.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrGPUTimeout, index, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}
