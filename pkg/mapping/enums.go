package mapping

import (
	"fmt"
	"strings"
)

// Registration selects how mesh-space points map to voxel-index space.
type Registration int

const (
	// Identity assumes mesh and grid already share index space.
	Identity Registration = iota
	// BoundingBoxNormalize stretches the mesh bounding box over the grid.
	BoundingBoxNormalize
	// WorldTransform delegates to an injected world-to-index transform.
	WorldTransform
	// SphericalProjection treats vertices as directions from the grid centre
	// and projects them onto the grid cuboid.
	SphericalProjection
)

// Scaling selects how the per-vertex intensities are rescaled before colour
// mapping.
type Scaling int

const (
	// NoScaling leaves values untouched; the legend is fixed at [0, 1].
	NoScaling Scaling = iota
	// LinearScaling maps the observed [min, max] onto [0, 1].
	LinearScaling
	// HistogramEqualize applies contrast-limited adaptive histogram
	// equalisation; the legend range is unknown.
	HistogramEqualize
)

// Palette selects the colour ramp.
type Palette int

const (
	// Grayscale ramps from black to white.
	Grayscale Palette = iota
	// RedBlack ramps from black to red.
	RedBlack
)

var (
	registrationNames = []string{"identity", "bbox", "world", "spherical"}
	scalingNames      = []string{"none", "linear", "equalize"}
	paletteNames      = []string{"grayscale", "redblack"}
)

func enumString(names []string, v int, kind string) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parseEnum(names []string, s, kind string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}

func marshalEnum(names []string, v int, kind string) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("unknown %s %d", kind, v)
	}
	return []byte(names[v]), nil
}

func (r Registration) String() string { return enumString(registrationNames, int(r), "Registration") }
func (s Scaling) String() string      { return enumString(scalingNames, int(s), "Scaling") }
func (p Palette) String() string      { return enumString(paletteNames, int(p), "Palette") }

// ParseRegistration resolves a registration policy by name.
func ParseRegistration(s string) (Registration, error) {
	v, err := parseEnum(registrationNames, s, "registration")
	return Registration(v), err
}

// ParseScaling resolves a scaling policy by name.
func ParseScaling(s string) (Scaling, error) {
	v, err := parseEnum(scalingNames, s, "scaling")
	return Scaling(v), err
}

// ParsePalette resolves a palette by name.
func ParsePalette(s string) (Palette, error) {
	v, err := parseEnum(paletteNames, s, "palette")
	return Palette(v), err
}

func (r Registration) MarshalText() ([]byte, error) {
	return marshalEnum(registrationNames, int(r), "registration")
}

func (r *Registration) UnmarshalText(text []byte) error {
	v, err := ParseRegistration(string(text))
	if err == nil {
		*r = v
	}
	return err
}

func (s Scaling) MarshalText() ([]byte, error) {
	return marshalEnum(scalingNames, int(s), "scaling")
}

func (s *Scaling) UnmarshalText(text []byte) error {
	v, err := ParseScaling(string(text))
	if err == nil {
		*s = v
	}
	return err
}

func (p Palette) MarshalText() ([]byte, error) {
	return marshalEnum(paletteNames, int(p), "palette")
}

func (p *Palette) UnmarshalText(text []byte) error {
	v, err := ParsePalette(string(text))
	if err == nil {
		*p = v
	}
	return err
}
