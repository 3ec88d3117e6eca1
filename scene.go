package ssaa

import (
	"errors"
	"fmt"
)

// MeshID is a handle into Scene.Meshes.
type MeshID int

// Renderable places a mesh in the world. The transform is a translation only.
type Renderable struct {
	Mesh     MeshID
	Position Vec3
}

// Model returns the object's model matrix.
func (r Renderable) Model() Mat4 {
	return Translate4(r.Position)
}

// Scene is the static content a renderer draws: a mesh arena, the objects
// referencing it and the lights.
type Scene struct {
	Meshes  [][]Vertex
	Objects []Renderable
	Lights  []PointLight
}

// Scene validation errors.
var (
	ErrEmptyMesh     = errors.New("ssaa: mesh has no vertices")
	ErrInvalidMeshID = errors.New("ssaa: mesh handle out of range")
)

// Validate checks that every mesh is non-empty and every object references
// an existing mesh.
func (s *Scene) Validate() error {
	for i, m := range s.Meshes {
		if len(m) == 0 {
			return fmt.Errorf("mesh %d: %w", i, ErrEmptyMesh)
		}
		if len(m)%3 != 0 {
			return fmt.Errorf("mesh %d: %d vertices is not a triangle list", i, len(m))
		}
	}
	for i, o := range s.Objects {
		if o.Mesh < 0 || int(o.Mesh) >= len(s.Meshes) {
			return fmt.Errorf("object %d: mesh %d: %w", i, o.Mesh, ErrInvalidMeshID)
		}
	}
	return nil
}

// AddMesh appends a mesh to the arena and returns its handle.
func (s *Scene) AddMesh(vs []Vertex) MeshID {
	s.Meshes = append(s.Meshes, vs)
	return MeshID(len(s.Meshes) - 1)
}

// Place adds an object referencing mesh at position.
func (s *Scene) Place(mesh MeshID, position Vec3) {
	s.Objects = append(s.Objects, Renderable{Mesh: mesh, Position: position})
}

// Clone returns a deep copy. Renderers keep a clone so later edits by the
// caller do not alias their state.
func (s *Scene) Clone() Scene {
	c := Scene{
		Meshes:  make([][]Vertex, len(s.Meshes)),
		Objects: append([]Renderable(nil), s.Objects...),
		Lights:  append([]PointLight(nil), s.Lights...),
	}
	for i, m := range s.Meshes {
		c.Meshes[i] = append([]Vertex(nil), m...)
	}
	return c
}
