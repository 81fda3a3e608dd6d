package mads

import (
	"testing"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/queue"
)

func twoFeasiblePoints() (a, b *eval.EvalPoint) {
	a = eval.NewEvalPoint(nmath.NewPoint([]float64{2, 2}), [16]byte{})
	a.SetEval(eval.NewEval(eval.EvalTypeBB, 8, nil, nil, ""))
	b = eval.NewEvalPoint(nmath.NewPoint([]float64{-2, -2}), [16]byte{})
	b.SetEval(eval.NewEval(eval.EvalTypeBB, 8, nil, nil, ""))
	return a, b
}

func TestFrameCentersCapsAtMaxXFeas(t *testing.T) {
	barrier := eval.NewBarrier(nmath.Inf(1))
	a, b := twoFeasiblePoints()
	barrier.AddXFeas(a)
	barrier.AddXFeas(b)

	mi := &MegaIteration{Barrier: barrier, MaxXFeas: 1}
	centers := mi.frameCenters()
	if len(centers) != 1 {
		t.Fatalf("expected frameCenters capped at MaxXFeas=1, got %d", len(centers))
	}
}

func TestFrameCentersUnlimitedWhenCapIsZero(t *testing.T) {
	barrier := eval.NewBarrier(nmath.Inf(1))
	a, b := twoFeasiblePoints()
	barrier.AddXFeas(a)
	barrier.AddXFeas(b)

	mi := &MegaIteration{Barrier: barrier}
	centers := mi.frameCenters()
	if len(centers) != 2 {
		t.Fatalf("expected both incumbents as centers when MaxXFeas==0, got %d", len(centers))
	}
}

func TestMegaIterationRunSequentialImprovesBarrier(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	barrier := eval.NewBarrier(nmath.Inf(1))
	a, b := twoFeasiblePoints()
	barrier.AddXFeas(a)
	barrier.AddXFeas(b)

	cache := eval.NewCache()
	q := queue.NewQueue(queue.Lexicographic)
	ctrl := queue.NewControl(q, sphereEvaluator(), cache, barrier, eval.EvalTypeBB, 1, 8)

	mi := &MegaIteration{Mesh: m, Barrier: barrier}
	result := mi.Run(ctrl)
	if result == eval.Unsuccessful {
		t.Fatal("expected at least one constituent iteration to improve on f=8")
	}
	if best := barrier.GetFirstXFeas(); best.F().Value() >= 8 {
		t.Errorf("expected barrier's best f to improve below 8, got %v", best.F().Value())
	}
}

func TestMegaIterationRunGenerateAllPointsBeforeEval(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	barrier := eval.NewBarrier(nmath.Inf(1))
	a, b := twoFeasiblePoints()
	barrier.AddXFeas(a)
	barrier.AddXFeas(b)

	cache := eval.NewCache()
	q := queue.NewQueue(queue.Lexicographic)
	ctrl := queue.NewControl(q, sphereEvaluator(), cache, barrier, eval.EvalTypeBB, 2, 8)

	mi := &MegaIteration{Mesh: m, Barrier: barrier, GenerateAllPointsBeforeEval: true}
	result := mi.Run(ctrl)
	if result == eval.Unsuccessful {
		t.Fatal("expected at least one constituent iteration to improve on f=8 in GenerateAllPointsBeforeEval mode")
	}
	if q.Len() != 0 {
		t.Errorf("expected the combined queue to be fully drained, got %d remaining", q.Len())
	}
}
