package linsolve

import (
	"errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveConvergencePlot renders the per-iteration residual norms and Rayleigh
// quotients of a finished solve to an image file. The format follows the
// file extension (png, pdf, svg, ...). Noisy solves record no residual
// history; their plot carries the Rayleigh trace only.
func SaveConvergencePlot(res *Result, path string) error {
	if len(res.rayleigh) == 0 && len(res.residHistory) == 0 {
		return errors.New("linsolve: no iteration history to plot")
	}

	p := plot.New()
	p.Title.Text = "Probabilistic linear solver convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "value"

	var series []interface{}
	if len(res.residHistory) > 0 {
		series = append(series, "residual 2-norm", trace(res.residHistory))
	}
	if len(res.rayleigh) > 0 {
		series = append(series, "Rayleigh quotient", trace(res.rayleigh))
	}
	if err := plotutil.AddLinePoints(p, series...); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func trace(vals []float64) plotter.XYs {
	xys := make(plotter.XYs, len(vals))
	for i, v := range vals {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	return xys
}
