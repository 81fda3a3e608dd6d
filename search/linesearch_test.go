package search

import (
	"testing"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

func TestLineSearchProbesTowardBestIncumbent(t *testing.T) {
	barrier := eval.NewBarrier(nmath.Inf(1))
	best := eval.NewEvalPoint(nmath.NewPoint([]float64{4, 0}), [16]byte{})
	best.SetEval(eval.NewEval(eval.EvalTypeBB, 0, nil, nil, ""))
	barrier.AddXFeas(best)

	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	ls := &LineSearch{Barrier: barrier, Steps: []float64{0.5, 1}}
	pts := ls.Generate(nmath.NewPoint([]float64{0, 0}), m, nil, nil)
	if len(pts) != 2 {
		t.Fatalf("expected 2 probe points, got %d", len(pts))
	}
	if x := pts[1].Floats(); x[0] != 4 || x[1] != 0 {
		t.Errorf("expected the step=1 probe to land exactly on the incumbent (4,0), got %v", x)
	}
}

func TestLineSearchNoPointsWithoutBarrierTarget(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	ls := &LineSearch{}
	if pts := ls.Generate(nmath.NewPoint([]float64{0, 0}), m, nil, nil); pts != nil {
		t.Fatalf("expected no points without a barrier target, got %v", pts)
	}
}
