package drawing

import (
	"fmt"

	"github.com/figdraw/figdraw/internal/figure"
)

// Defaults are the kind and style given to newly created figures, and the
// style applied to a selection by ApplyStyle.
type Defaults struct {
	Kind  figure.Kind  `json:"kind"`
	Style figure.Style `json:"style"`
}

// DefaultDefaults is a white circle with a thin black edge.
func DefaultDefaults() Defaults {
	fill, edge := figure.White, figure.Black
	return Defaults{
		Kind: figure.KindCircle,
		Style: figure.Style{
			Fill:      &fill,
			Edge:      &edge,
			LineType:  figure.LineSolid,
			LineWidth: 1,
		},
	}
}

// Validate checks that the kind is known and the style has some paint.
func (d Defaults) Validate() error {
	_, err := d.normalized()
	return err
}

func (d Defaults) normalized() (Defaults, error) {
	if _, err := figure.ParseKind(d.Kind.Name()); err != nil {
		return Defaults{}, err
	}
	style, err := figure.NewStyle(d.Style.Fill, d.Style.Edge, d.Style.LineType, d.Style.LineWidth)
	if err != nil {
		return Defaults{}, fmt.Errorf("invalid default style: %w", err)
	}
	d.Style = style
	return d, nil
}

func (d Defaults) clone() Defaults {
	d.Style = d.Style.Clone()
	return d
}
