package search

import (
	"testing"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

func sphereCache(center []float64, n int) *eval.Cache {
	c := eval.NewCache()
	pts := [][]float64{
		center,
		{center[0] + 1, center[1]},
		{center[0] - 1, center[1]},
		{center[0], center[1] + 1},
		{center[0], center[1] - 1},
	}
	for i := 0; i < n && i < len(pts); i++ {
		x := pts[i]
		obj := x[0]*x[0] + x[1]*x[1]
		ep := eval.NewEvalPoint(nmath.NewPoint(x), [16]byte{})
		ep.SetEval(eval.NewEval(eval.EvalTypeBB, obj, nil, nil, ""))
		c.Insert(ep)
	}
	return c
}

func TestQuadraticReturnsNoPointsWithoutEnoughData(t *testing.T) {
	c := eval.NewCache()
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	q := &Quadratic{Cache: c}
	pts := q.Generate(nmath.NewPoint([]float64{3, 3}), m, nil, nil)
	if pts != nil {
		t.Fatalf("expected no candidate with an empty cache, got %v", pts)
	}
}

func TestQuadraticFindsVertexNearOrigin(t *testing.T) {
	c := sphereCache([]float64{3, 3}, 5)
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	q := &Quadratic{Cache: c}
	pts := q.Generate(nmath.NewPoint([]float64{3, 3}), m, nil, nil)
	if len(pts) != 1 {
		t.Fatalf("expected one candidate point, got %d", len(pts))
	}
	x := pts[0].Floats()
	if x[0] < -1 || x[0] > 1 || x[1] < -1 || x[1] > 1 {
		t.Errorf("expected the fitted sphere's vertex near the origin, got %v", x)
	}
}

func TestNelderMeadFindsCandidateNearOrigin(t *testing.T) {
	c := sphereCache([]float64{3, 3}, 5)
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	nm := &NelderMead{Cache: c}
	pts := nm.Generate(nmath.NewPoint([]float64{3, 3}), m, nil, nil)
	if len(pts) != 1 {
		t.Fatalf("expected one candidate point, got %d", len(pts))
	}
	x := pts[0].Floats()
	if x[0]*x[0]+x[1]*x[1] > 18 {
		t.Errorf("expected nelder-mead candidate to improve on center's f=18, got %v (f=%v)", x, x[0]*x[0]+x[1]*x[1])
	}
}
