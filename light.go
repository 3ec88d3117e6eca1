package ssaa

import (
	"errors"
	"fmt"
)

// MaxLights is the capacity of the Lights uniform block.
const MaxLights = 8

// LightStride is the byte stride of one light record in the Lights uniform
// block. A record is position.xyz, one pad float, color.rgb, intensity:
// eight floats. This matches the WGSL layout of
//
//	struct PointLight { position: vec3<f32>, color: vec3<f32>, intensity: f32 }
//
// where each vec3 is 16-byte aligned and intensity packs into the tail of
// the color slot.
const LightStride = 32

// Byte offsets inside one light record.
const (
	lightPositionOffset  = 0
	lightColorOffset     = 16
	lightIntensityOffset = 28
)

// LightBlockSize is the byte size of the whole Lights uniform block.
const LightBlockSize = MaxLights * LightStride

// ErrLightBlockTooShort is returned by DecodeLights when the buffer cannot
// hold the requested number of records.
var ErrLightBlockTooShort = errors.New("ssaa: light block too short")

// PointLight is an omnidirectional light.
type PointLight struct {
	Position  Vec3
	Color     Vec3
	Intensity float32
}

// LightSet is a bounded, ordered sequence of at most MaxLights point lights.
// The zero value is an empty set.
type LightSet struct {
	lights [MaxLights]PointLight
	n      int
}

// NewLightSet copies lights into a LightSet. Lights beyond MaxLights are
// dropped; the number dropped is returned and reported as a warning on the
// package logger. Truncation is a defined degradation, not an error.
func NewLightSet(lights []PointLight) (LightSet, int) {
	var s LightSet
	n := min(len(lights), MaxLights)
	copy(s.lights[:], lights[:n])
	s.n = n
	dropped := len(lights) - n
	if dropped > 0 {
		Logger().Warn("light count exceeds capacity, truncating",
			"requested", len(lights), "capacity", MaxLights, "dropped", dropped)
	}
	return s, dropped
}

// Len returns the number of lights in the set.
func (s LightSet) Len() int { return s.n }

// At returns the i-th light. ok is false when i is out of range.
func (s LightSet) At(i int) (PointLight, bool) {
	if i < 0 || i >= s.n {
		return PointLight{}, false
	}
	return s.lights[i], true
}

// Lights returns a copy of the lights in order.
func (s LightSet) Lights() []PointLight {
	out := make([]PointLight, s.n)
	copy(out, s.lights[:s.n])
	return out
}

// Encode packs the set into a LightBlockSize byte uniform block.
// Records past Len are zero.
func (s LightSet) Encode() []byte {
	buf := make([]byte, LightBlockSize)
	for i := 0; i < s.n; i++ {
		rec := buf[i*LightStride:]
		l := s.lights[i]
		putVec3(rec[lightPositionOffset:], l.Position)
		putVec3(rec[lightColorOffset:], l.Color)
		putFloat(rec[lightIntensityOffset:], l.Intensity)
	}
	return buf
}

// DecodeLights reads n light records back from a block produced by Encode.
func DecodeLights(buf []byte, n int) ([]PointLight, error) {
	if n < 0 || n > MaxLights {
		return nil, fmt.Errorf("ssaa: decode %d lights: count out of range [0, %d]", n, MaxLights)
	}
	if len(buf) < n*LightStride {
		return nil, fmt.Errorf("%w: %d bytes for %d records", ErrLightBlockTooShort, len(buf), n)
	}
	out := make([]PointLight, n)
	for i := range out {
		rec := buf[i*LightStride:]
		out[i] = PointLight{
			Position:  getVec3(rec[lightPositionOffset:]),
			Color:     getVec3(rec[lightColorOffset:]),
			Intensity: getFloat(rec[lightIntensityOffset:]),
		}
	}
	return out, nil
}
