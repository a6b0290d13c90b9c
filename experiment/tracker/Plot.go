package tracker

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot renders the tracked series as a PNG learning curve.
type Plot struct {
	filename string
	title    string
	xLabel   string
	yLabel   string
	points   plotter.XYs
}

// NewPlot returns a Plot tracker rendering to filename.
func NewPlot(filename, title, xLabel, yLabel string) *Plot {
	return &Plot{
		filename: filename,
		title:    title,
		xLabel:   xLabel,
		yLabel:   yLabel,
	}
}

// Track adds one observation to the curve.
func (p *Plot) Track(x, value float64) {
	p.points = append(p.points, plotter.XY{X: x, Y: value})
}

// Save renders the curve.
func (p *Plot) Save() error {
	plt := plot.New()
	plt.Title.Text = p.title
	plt.X.Label.Text = p.xLabel
	plt.Y.Label.Text = p.yLabel

	line, err := plotter.NewLine(p.points)
	if err != nil {
		return fmt.Errorf("save: could not create line: %v", err)
	}
	plt.Add(line)

	if err := plt.Save(8*vg.Inch, 4*vg.Inch, p.filename); err != nil {
		return fmt.Errorf("save: could not render %v: %v", p.filename, err)
	}
	return nil
}
