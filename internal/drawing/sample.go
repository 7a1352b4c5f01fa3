package drawing

import (
	"github.com/figdraw/figdraw/internal/figure"
)

const sampleOutlineMix = 0.5

// NewSample returns a drawing seeded with one figure of several kinds, used
// for the playground project.
func NewSample(factory *figure.Factory) *Drawing {
	d := New(factory, DefaultDefaults())

	red := figure.MustParseColor("#e94560")
	navy := figure.MustParseColor("#0f3460")
	ink := figure.MustParseColor("#16213e")
	green := figure.MustParseColor("#53d769")
	gold := figure.MustParseColor("#f5c518")

	// Edges are the fill darkened halfway toward ink.
	outline := func(fill figure.Color) *figure.Color {
		e := fill.Blend(ink, sampleOutlineMix)
		return &e
	}

	figs := []struct {
		kind  figure.Kind
		at    figure.Point
		drag  figure.Point
		style figure.Style
	}{
		{
			kind:  figure.KindRectangle,
			at:    figure.Point{X: 200, Y: 200},
			drag:  figure.Point{X: 400, Y: 350},
			style: figure.Style{Fill: &red, Edge: outline(red), LineType: figure.LineSolid, LineWidth: 2},
		},
		{
			kind:  figure.KindEllipse,
			at:    figure.Point{X: 640, Y: 360},
			drag:  figure.Point{X: 760, Y: 440},
			style: figure.Style{Fill: &navy, Edge: outline(navy), LineType: figure.LineSolid, LineWidth: 2},
		},
		{
			kind:  figure.KindNGon,
			at:    figure.Point{X: 1000, Y: 275},
			drag:  figure.Point{X: 1000, Y: 175},
			style: figure.Style{Fill: &green, LineType: figure.LineNone},
		},
		{
			kind:  figure.KindStar,
			at:    figure.Point{X: 500, Y: 550},
			drag:  figure.Point{X: 500, Y: 470},
			style: figure.Style{Fill: &gold, Edge: outline(gold), LineType: figure.LineDashed, LineWidth: 3},
		},
	}

	for _, s := range figs {
		f, err := d.factory.New(s.kind, s.style, s.at.X, s.at.Y)
		if err != nil {
			d.logger.Error("failed to create sample figure", "kind", s.kind, "error", err)
			continue
		}
		f.SetLastPoint(s.drag)
		if err := d.Add(f); err != nil {
			d.logger.Error("failed to add sample figure", "figure", f.ID, "error", err)
		}
	}
	return d
}
