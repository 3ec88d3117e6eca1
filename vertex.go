package ssaa

import (
	"encoding/binary"
	"math"
)

// VertexStride is the byte stride of one packed Vertex.
// Layout per vertex:
//
//	position (vec3<f32>) = 12 bytes (offset 0)
//	normal   (vec3<f32>) = 12 bytes (offset 12)
//	color    (vec3<f32>) = 12 bytes (offset 24)
//	texcoord (vec2<f32>) = 8 bytes  (offset 36)
//
// Total = 44 bytes per vertex.
const VertexStride = 44

// Byte offsets of the vertex attributes inside a packed Vertex.
const (
	VertexPositionOffset = 0
	VertexNormalOffset   = 12
	VertexColorOffset    = 24
	VertexTexCoordOffset = 36
)

// Vertex is one corner of a triangle. Meshes are non-indexed triangle lists,
// so shared corners are duplicated.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	Color    Vec3
	TexCoord Vec2
}

// EncodeVertices packs vertices little-endian at VertexStride.
func EncodeVertices(vs []Vertex) []byte {
	buf := make([]byte, len(vs)*VertexStride)
	for i := range vs {
		writeVertex(buf[i*VertexStride:], &vs[i])
	}
	return buf
}

func writeVertex(buf []byte, v *Vertex) {
	putVec3(buf[VertexPositionOffset:], v.Position)
	putVec3(buf[VertexNormalOffset:], v.Normal)
	putVec3(buf[VertexColorOffset:], v.Color)
	putFloat(buf[VertexTexCoordOffset:], v.TexCoord.X)
	putFloat(buf[VertexTexCoordOffset+4:], v.TexCoord.Y)
}

func putFloat(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
}

func getFloat(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

func putVec3(buf []byte, v Vec3) {
	putFloat(buf[0:], v.X)
	putFloat(buf[4:], v.Y)
	putFloat(buf[8:], v.Z)
}

func getVec3(buf []byte) Vec3 {
	return Vec3{X: getFloat(buf[0:]), Y: getFloat(buf[4:]), Z: getFloat(buf[8:])}
}
