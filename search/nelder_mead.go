package search

import (
	"gonum.org/v1/gonum/optimize"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// NelderMead minimizes the same diagonal quadratic surrogate Quadratic fits,
// but via gonum/optimize's NelderMead simplex rather than a closed-form
// vertex, so a non-convex or partially-flat model (where Quadratic gives up
// on some axes) still yields a candidate. Grounded in
// gonum.org/v1/gonum/optimize.NelderMead/Minimize (the pack's Nelder-Mead
// implementation), used here as the model-based search's minimizer instead
// of NOMAD's original hand-rolled simplex sub-algorithm.
type NelderMead struct {
	Cache      *eval.Cache
	Radius     float64
	MaxIterations int
}

func (n *NelderMead) Name() string { return "NM_MODEL" }

func (n *NelderMead) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	c := center.Floats()
	pts := nearbyPoints(n.Cache, c, n.Radius)
	model, ok := fitQuadraticModel(pts, len(c))
	if !ok {
		return nil
	}

	p := optimize.Problem{Func: model.eval}
	var bounds []optimize.Bound
	if lb != nil || ub != nil {
		bounds = make([]optimize.Bound, len(c))
		for i := range bounds {
			bounds[i] = optimize.Bound{Min: boundOr(lb, i, negInf), Max: boundOr(ub, i, posInf)}
		}
	}

	maxIter := n.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}
	settings := &optimize.Settings{MajorIterations: maxIter}
	nm := &optimize.NelderMead{Bounds: bounds}

	result, err := optimize.Minimize(p, append([]float64{}, c...), settings, nm)
	if err != nil || result == nil {
		return nil
	}

	cand := m.ProjectOnMesh(result.X, c, lb, ub)
	if equalCoords(cand, c) {
		return nil
	}
	return []nmath.Point{nmath.NewPoint(cand)}
}

const (
	negInf = -1e300
	posInf = 1e300
)

func boundOr(bound []float64, i int, fallback float64) float64 {
	if bound == nil {
		return fallback
	}
	return bound[i]
}
