package ssaa

import (
	"errors"
	"testing"
)

func triangle() []Vertex {
	return []Vertex{
		{Position: V3(0, 0, 0)},
		{Position: V3(1, 0, 0)},
		{Position: V3(0, 1, 0)},
	}
}

func TestScene_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scene   Scene
		wantErr error
		anyErr  bool
	}{
		{"empty scene", Scene{}, nil, false},
		{"one object", Scene{Meshes: [][]Vertex{triangle()}, Objects: []Renderable{{Mesh: 0}}}, nil, false},
		{"shared mesh", Scene{Meshes: [][]Vertex{triangle()}, Objects: []Renderable{{Mesh: 0}, {Mesh: 0, Position: V3(1, 0, 0)}}}, nil, false},
		{"empty mesh", Scene{Meshes: [][]Vertex{{}}}, ErrEmptyMesh, true},
		{"partial triangle", Scene{Meshes: [][]Vertex{triangle()[:2]}}, nil, true},
		{"handle past end", Scene{Meshes: [][]Vertex{triangle()}, Objects: []Renderable{{Mesh: 1}}}, ErrInvalidMeshID, true},
		{"negative handle", Scene{Meshes: [][]Vertex{triangle()}, Objects: []Renderable{{Mesh: -1}}}, ErrInvalidMeshID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scene.Validate()
			if (err != nil) != tt.anyErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.anyErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScene_Clone(t *testing.T) {
	var s Scene
	id := s.AddMesh(triangle())
	s.Place(id, V3(1, 2, 3))
	s.Lights = sampleLights(2)

	c := s.Clone()
	s.Meshes[0][0].Position = V3(9, 9, 9)
	s.Objects[0].Position = V3(0, 0, 0)
	s.Lights[0].Intensity = 99

	if c.Meshes[0][0].Position != V3(0, 0, 0) {
		t.Error("clone shares mesh storage")
	}
	if c.Objects[0].Position != V3(1, 2, 3) {
		t.Error("clone shares object storage")
	}
	if c.Lights[0].Intensity == 99 {
		t.Error("clone shares light storage")
	}
}

func TestRenderable_Model(t *testing.T) {
	r := Renderable{Position: V3(4, 5, 6)}
	if got := r.Model().TransformPoint(V3(0, 0, 0)); got != V3(4, 5, 6) {
		t.Errorf("Model() origin = %v", got)
	}
}
