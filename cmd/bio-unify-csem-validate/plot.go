package main

import (
	"image/color"

	"github.com/grailbio/csem/unify"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeScatter plots weight (x, in [0, 1]) against count (y) and saves the
// plot to path. The image format follows the extension of path.
func writeScatter(path, title string, points []unify.Point) error {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.Weight
		xys[i].Y = float64(pt.Count)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Weights"
	p.Y.Label.Text = "Counts"
	p.Add(plotter.NewGrid())

	if len(xys) > 0 {
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.RGBA{B: 255, A: 128}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
	}
	// Add() widens the axes to the data; keep x on [0, 1].
	p.X.Min, p.X.Max = 0, 1
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
