package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color. Two sentinels stand for inherited colors:
// ByLayer (all zero) and ByBlock (alpha 1, otherwise zero).
type Color struct {
	R uint8 `codec:"r" json:"r"`
	G uint8 `codec:"g" json:"g"`
	B uint8 `codec:"b" json:"b"`
	A uint8 `codec:"a" json:"a"`
}

var (
	ByLayer = Color{}
	ByBlock = Color{A: 1}

	White   = RGB(255, 255, 255)
	Black   = RGB(0, 0, 0)
	Red     = RGB(255, 0, 0)
	Yellow  = RGB(255, 255, 0)
	Green   = RGB(0, 255, 0)
	Cyan    = RGB(0, 255, 255)
	Blue    = RGB(0, 0, 255)
	Magenta = RGB(255, 0, 255)
)

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

func (c Color) IsByLayer() bool { return c == ByLayer }
func (c Color) IsByBlock() bool { return c == ByBlock }

// Hex formats c as #rrggbbaa, or "bylayer"/"byblock" for the sentinels.
func (c Color) Hex() string {
	switch c {
	case ByLayer:
		return "bylayer"
	case ByBlock:
		return "byblock"
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

var namedColors = map[string]Color{
	"bylayer": ByLayer,
	"byblock": ByBlock,
	"white":   White,
	"black":   Black,
	"red":     Red,
	"yellow":  Yellow,
	"green":   Green,
	"cyan":    Cyan,
	"blue":    Blue,
	"magenta": Magenta,
}

// ParseColor accepts a color name, #rrggbb or #rrggbbaa.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("entity: invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("entity: invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// LineType names a dash pattern.
type LineType int

const (
	LineTypeByLayer LineType = iota
	LineTypeByBlock
	Continuous
	Dashed
	Dotted
	DashDot
	DashDotDot
	Center
	Hidden
)

var lineTypeNames = []string{
	"bylayer", "byblock", "continuous", "dashed", "dotted",
	"dashdot", "dashdotdot", "center", "hidden",
}

func (t LineType) String() string {
	if int(t) < len(lineTypeNames) && t >= 0 {
		return lineTypeNames[t]
	}
	return fmt.Sprintf("LineType(%d)", int(t))
}

// ParseLineType is the inverse of LineType.String.
func ParseLineType(s string) (LineType, error) {
	s = strings.ToLower(s)
	for i, n := range lineTypeNames {
		if n == s {
			return LineType(i), nil
		}
	}
	return 0, fmt.Errorf("entity: unknown line type %q", s)
}

// Pattern returns alternating dash/gap lengths in drawing units.
// Continuous and the inherited sentinels return nil.
func (t LineType) Pattern() []float64 {
	switch t {
	case Dashed:
		return []float64{0.5, 0.25}
	case Dotted:
		return []float64{0, 0.25}
	case DashDot:
		return []float64{0.5, 0.25, 0, 0.25}
	case DashDotDot:
		return []float64{0.5, 0.25, 0, 0.25, 0, 0.25}
	case Center:
		return []float64{1.25, 0.25, 0.25, 0.25}
	case Hidden:
		return []float64{0.25, 0.125}
	}
	return nil
}

// LineWeight is a stroke width in hundredths of a millimetre, or one of
// the negative sentinels.
type LineWeight int16

const (
	WeightByLayer LineWeight = -1
	WeightByBlock LineWeight = -2
	WeightDefault LineWeight = -3
)

// MM returns the width in millimetres; sentinels report 0.25.
func (w LineWeight) MM() float64 {
	if w < 0 {
		return 0.25
	}
	return float64(w) / 100
}

// Properties are the display attributes of an entity.
type Properties struct {
	Color        Color      `codec:"color" json:"color"`
	LineType     LineType   `codec:"linetype" json:"linetype"`
	LineWeight   LineWeight `codec:"weight" json:"weight"`
	Transparency uint8      `codec:"transparency" json:"transparency"`
}

// DefaultProperties inherits everything from the layer.
func DefaultProperties() Properties {
	return Properties{
		Color:      ByLayer,
		LineType:   LineTypeByLayer,
		LineWeight: WeightByLayer,
	}
}

// Resolved is the effective appearance after inheritance.
type Resolved struct {
	Color      Color
	LineType   LineType
	LineWeight LineWeight
}

// Resolve applies ByLayer inheritance from l. ByBlock has no block
// context here and falls back to white, continuous, default weight.
func Resolve(p Properties, l Layer) Resolved {
	r := Resolved{Color: p.Color, LineType: p.LineType, LineWeight: p.LineWeight}
	switch {
	case p.Color.IsByLayer():
		r.Color = l.Color
	case p.Color.IsByBlock():
		r.Color = White
	}
	switch p.LineType {
	case LineTypeByLayer:
		r.LineType = l.LineType
	case LineTypeByBlock:
		r.LineType = Continuous
	}
	switch p.LineWeight {
	case WeightByLayer:
		r.LineWeight = l.LineWeight
	case WeightByBlock:
		r.LineWeight = WeightDefault
	}
	return r
}
