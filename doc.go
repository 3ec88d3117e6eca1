// Package ssaa is a playground for supersampling anti-aliasing with a
// forward renderer.
//
// # Overview
//
// The root package holds the renderer-independent data model: vectors,
// matrices, quaternions, the [Camera], mesh [Vertex] data, point lights
// packed into a bounded [LightSet], anti-aliasing modes and the [Scene]
// a renderer draws. GPU work lives in the render sub-package, built on
// gogpu/wgpu's HAL.
//
// # Rendering model
//
// A frame is two passes. The scene pass shades every object against all
// lights into an offscreen target whose resolution is the display size
// multiplied by an integer scale. The composite pass box-filters that
// target down into a display-sized target, which the caller presents.
//
//	box, _ := mesh.Flatten(mesh.Box(1, 1, 1))
//	var scene ssaa.Scene
//	scene.Place(scene.AddMesh(box), ssaa.V3(0, 0, -3))
//	scene.Lights = []ssaa.PointLight{{Position: ssaa.V3(2, 2, 0), Color: ssaa.V3(1, 1, 1), Intensity: 4}}
//
//	r, err := render.NewForwardRenderer(ctx, 640, 480, scene, render.WithScale(4))
//	...
//	err = r.Draw(camera)
//	img, err := r.ReadFrame()
//
// # Coordinate System
//
// World space is right-handed and Y-up. Front faces wind counter-clockwise.
// Matrices are row-major with column vectors, so transforms compose as
// projection * view * model.
//
// # Logging
//
// Nothing is logged by default. See [SetLogger].
package ssaa
