package search

import (
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// Quadratic fits a diagonal quadratic surrogate to cached points near the
// frame center and proposes its vertex as a single trial point, the
// MODEL_SGTE-style search of spec.md §4.10. It is a no-op (returns no
// points) until the cache holds at least 2*ndim+1 evaluated points in the
// trust region.
type Quadratic struct {
	Cache *eval.Cache
	// Radius bounds the points used to fit the model around the frame
	// center; <=0 means "use every cached point".
	Radius float64
}

func (q *Quadratic) Name() string { return "QUAD_MODEL" }

func (q *Quadratic) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	c := center.Floats()
	pts := nearbyPoints(q.Cache, c, q.Radius)
	model, ok := fitQuadraticModel(pts, len(c))
	if !ok {
		return nil
	}

	cand := model.minimizer(c)
	cand = m.ProjectOnMesh(cand, c, lb, ub)
	if equalCoords(cand, c) {
		return nil
	}
	return []nmath.Point{nmath.NewPoint(cand)}
}

func equalCoords(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
