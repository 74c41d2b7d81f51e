package entity

import "github.com/chazu/zcad/pkg/geom"

// DefaultLayerName is the layer every document starts with. It cannot be
// deleted.
const DefaultLayerName = "0"

// Layer groups entities and supplies inherited display properties.
type Layer struct {
	ID          EntityID   `codec:"id" json:"id"`
	Name        string     `codec:"name" json:"name"`
	Color       Color      `codec:"color" json:"color"`
	LineType    LineType   `codec:"linetype" json:"linetype"`
	LineWeight  LineWeight `codec:"weight" json:"weight"`
	Visible     bool       `codec:"visible" json:"visible"`
	Locked      bool       `codec:"locked" json:"locked"`
	Frozen      bool       `codec:"frozen" json:"frozen"`
	Plottable   bool       `codec:"plottable" json:"plottable"`
	Description string     `codec:"description" json:"description"`
}

// NewLayer returns a visible, unlocked, plottable layer with white
// continuous lines.
func NewLayer(name string) Layer {
	return Layer{
		Name:       name,
		Color:      White,
		LineType:   Continuous,
		LineWeight: WeightDefault,
		Visible:    true,
		Plottable:  true,
	}
}

// IsEditable reports whether entities on the layer may be modified by
// editing commands.
func (l Layer) IsEditable() bool {
	return !l.Locked && !l.Frozen
}

// ShouldDisplay reports whether the layer's entities are drawn.
func (l Layer) ShouldDisplay() bool {
	return l.Visible && !l.Frozen
}

// View is a named viewport.
type View struct {
	Name   string    `codec:"name" json:"name"`
	Center geom.Vec2 `codec:"center" json:"center"`
	Zoom   float64   `codec:"zoom" json:"zoom"`
}
