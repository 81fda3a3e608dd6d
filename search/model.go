// Package search implements NOMAD's pluggable search methods: trial-point
// generators an Iteration runs before polling (spec.md §4.10).
//
// Grounded on github.com/rwcarlsen/optim/pattern's Searcher interface
// (pattern.go): `Search(obj, mesh, curr) (success, best, n, err)`,
// generalized here to the narrower mads.SearchMethod shape
// (`Generate(center, mesh, lb, ub) []nmath.Point`, no embedded evaluation
// loop) since trial-point generation and evaluation are split across
// mads.Iteration and queue.Control in this port.
package search

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rwcarlsen/nomad/eval"
)

// quadraticModel is a diagonal (no cross-term) quadratic surrogate
//
//	f(x) ~= intercept + sum_i linear[i]*x[i] + sum_i quad[i]*x[i]^2
//
// fit by least squares to a set of already-evaluated points. Diagonal form
// keeps the fit well-posed with as few as 2*ndim+1 points, matching the
// per-coordinate trust-region models original_source's QuadModel uses for
// small sample counts.
type quadraticModel struct {
	intercept float64
	linear    []float64
	quad      []float64
}

// eval returns the model's predicted objective at x.
func (m *quadraticModel) eval(x []float64) float64 {
	v := m.intercept
	for i, xi := range x {
		v += m.linear[i]*xi + m.quad[i]*xi*xi
	}
	return v
}

// minimizer returns the model's unconstrained minimizer, coordinate by
// coordinate: x_i* = -linear[i]/(2*quad[i]) where quad[i] > 0 (a convex
// bowl along that axis), else fall back to center[i] (the model gives no
// useful direction along a non-convex or flat axis).
func (m *quadraticModel) minimizer(center []float64) []float64 {
	out := make([]float64, len(center))
	for i := range out {
		if m.quad[i] > 1e-12 {
			out[i] = -m.linear[i] / (2 * m.quad[i])
		} else {
			out[i] = center[i]
		}
	}
	return out
}

// fitQuadraticModel builds a diagonal quadratic model from pts (feasible,
// BB-evaluated points only) by ordinary least squares via QR. It requires
// at least 2*ndim+1 points to be well-posed and returns ok=false otherwise.
func fitQuadraticModel(pts []*eval.EvalPoint, ndim int) (*quadraticModel, bool) {
	var rows [][]float64
	var targets []float64
	for _, p := range pts {
		f := p.F()
		if !f.IsDefined() || !f.IsFinite() {
			continue
		}
		x := p.Point.Floats()
		if len(x) != ndim {
			continue
		}
		row := make([]float64, 1+2*ndim)
		row[0] = 1
		for i, xi := range x {
			row[1+i] = xi
			row[1+ndim+i] = xi * xi
		}
		rows = append(rows, row)
		targets = append(targets, f.Value())
	}

	ncoef := 1 + 2*ndim
	if len(rows) < ncoef {
		return nil, false
	}

	a := mat.NewDense(len(rows), ncoef, nil)
	for i, row := range rows {
		a.SetRow(i, row)
	}
	b := mat.NewDense(len(targets), 1, targets)
	x := mat.NewDense(ncoef, 1, nil)

	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveTo(x, false, b); err != nil {
		return nil, false
	}

	model := &quadraticModel{
		intercept: x.At(0, 0),
		linear:    make([]float64, ndim),
		quad:      make([]float64, ndim),
	}
	for i := 0; i < ndim; i++ {
		model.linear[i] = x.At(1+i, 0)
		model.quad[i] = x.At(1+ndim+i, 0)
	}
	return model, true
}

// nearbyPoints returns the cached, evaluated points within radius of
// center (radius<=0 means "every cached point"), used to restrict a
// quadratic fit to a local trust region.
func nearbyPoints(c *eval.Cache, center []float64, radius float64) []*eval.EvalPoint {
	if c == nil {
		return nil
	}
	var out []*eval.EvalPoint
	for _, p := range c.All() {
		if p.Status != eval.Ok {
			continue
		}
		if radius > 0 {
			d := 0.0
			x := p.Point.Floats()
			for i, xi := range x {
				diff := xi - center[i]
				d += diff * diff
			}
			if d > radius*radius {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
