package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ssaa/render"
)

// openContext initializes a render context on the named backend. The noop
// backend draws nothing but exercises the whole pipeline.
func openContext(name string) (*render.Context, error) {
	var ctx *render.Context
	switch name {
	case "vulkan":
		ctx = render.NewContext(gputypes.BackendVulkan)
	case "noop":
		instance, err := noop.API{}.CreateInstance(nil)
		if err != nil {
			return nil, fmt.Errorf("noop instance: %w", err)
		}
		ctx = render.NewContextFromInstance(instance)
	default:
		return nil, fmt.Errorf("unknown backend %q (want vulkan or noop)", name)
	}
	if err := ctx.Init(); err != nil {
		return nil, err
	}
	return ctx, nil
}
