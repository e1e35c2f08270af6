// Package render draws decoded state paths and their scores.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/teatak/viterbi/hmm"
	"github.com/teatak/viterbi/viterbi"
)

// MarginFloor bounds how far below the best state a score margin is drawn,
// so that impossible states (-Inf) stay on the chart.
const MarginFloor = -50.0

// PathPlot draws the decoded path as a step line over time with one
// nominal Y tick per state.
func PathPlot(m *hmm.Model, tr *viterbi.Trellis) (*plot.Plot, error) {
	pts := make(plotter.XYs, tr.Len())
	for t, s := range tr.Path {
		pts[t].X = float64(t)
		pts[t].Y = float64(s)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.StepStyle = plotter.PreStep
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = plotutil.Color(0)

	names := make([]string, m.NumStates())
	for s := range names {
		names[s] = m.Label(s)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Viterbi path (log P = %.4g)", tr.LogProb)
	p.X.Label.Text = "Time"
	p.Add(line)
	p.NominalY(names...)
	return p, nil
}

// ScorePlot draws, for every state, how far its score trails the best
// state at each time step.
func ScorePlot(m *hmm.Model, tr *viterbi.Trellis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Score margin by state"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "log score - best"

	states, steps := tr.Scores.Dims()
	margins := make([]plotter.XYs, states)
	for s := range margins {
		margins[s] = make(plotter.XYs, steps)
	}
	for t := 0; t < steps; t++ {
		col := tr.Column(t)
		best := math.Inf(-1)
		for _, v := range col {
			if v > best {
				best = v
			}
		}
		for s, v := range col {
			margin := v - best
			if math.IsNaN(margin) || margin < MarginFloor {
				margin = MarginFloor
			}
			margins[s][t].X = float64(t)
			margins[s][t].Y = margin
		}
	}

	for s, pts := range margins {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(s)
		line.LineStyle.Dashes = plotutil.Dashes(s)
		p.Add(line)
		p.Legend.Add(m.Label(s), line)
	}
	return p, nil
}

// FormatFor returns the image format implied by a file name, defaulting
// to png.
func FormatFor(path string) string {
	for _, ext := range []string{"svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff", "png"} {
		if strings.HasSuffix(strings.ToLower(path), "."+ext) {
			return ext
		}
	}
	return "png"
}

// WritePlot renders p in the given format (see FormatFor) to output.
func WritePlot(p *plot.Plot, width, height vg.Length, output io.Writer, format string) error {
	w, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = w.WriteTo(output)
	return err
}

// WriteClosePlot is WritePlot followed by closing output. Write and close
// failures are both reported.
func WriteClosePlot(p *plot.Plot, width, height vg.Length, output io.WriteCloser, format string) (err error) {
	defer func() {
		if e := output.Close(); e != nil {
			err = multierror.Append(err, e).ErrorOrNil()
		}
	}()
	return WritePlot(p, width, height, output, format)
}

// SavePlot writes p to path in the format implied by its extension.
func SavePlot(p *plot.Plot, width, height vg.Length, path string) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	return WriteClosePlot(p, width, height, output, FormatFor(path))
}
