package ssaa

import (
	"fmt"
	"strings"
)

// AAMode selects an anti-aliasing technique applied on top of supersampling.
type AAMode int

const (
	// AANone disables any additional anti-aliasing.
	AANone AAMode = iota
	AAMSAA
	AAFXAA
	AASMAA
	AAMLAA
	AATAA
)

var aaModeNames = [...]string{
	AANone: "none",
	AAMSAA: "msaa",
	AAFXAA: "fxaa",
	AASMAA: "smaa",
	AAMLAA: "mlaa",
	AATAA:  "taa",
}

// String returns the lowercase mode name.
func (m AAMode) String() string {
	if m < 0 || int(m) >= len(aaModeNames) {
		return fmt.Sprintf("AAMode(%d)", int(m))
	}
	return aaModeNames[m]
}

// Supported reports whether the renderer implements the mode.
// Only AANone is implemented; the others degrade to it.
func (m AAMode) Supported() bool {
	return m == AANone
}

// ParseAAMode parses a mode name case-insensitively.
func ParseAAMode(s string) (AAMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range aaModeNames {
		if n == name {
			return AAMode(i), nil
		}
	}
	return AANone, fmt.Errorf("ssaa: unknown anti-aliasing mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m AAMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so config files can
// name the mode.
func (m *AAMode) UnmarshalText(text []byte) error {
	v, err := ParseAAMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
