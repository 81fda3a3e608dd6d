package mads

import (
	"testing"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/queue"
)

func sphereEvaluator() *blackbox.Evaluator {
	return blackbox.NewCallableEvaluator([]blackbox.OutputKind{blackbox.OutputObj}, func(x []float64) (blackbox.Result, error) {
		obj := 0.0
		for _, v := range x {
			obj += v * v
		}
		return blackbox.Result{Obj: obj}, nil
	})
}

func TestIterationPollFindsImprovement(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	center := eval.NewEvalPoint(nmath.NewPoint([]float64{1, 1}), [16]byte{})
	center.SetEval(eval.NewEval(eval.EvalTypeBB, 2, nil, nil, ""))

	barrier := eval.NewBarrier(nmath.Inf(1))
	barrier.AddXFeas(center)
	cache := eval.NewCache()
	q := queue.NewQueue(queue.Lexicographic)
	ctrl := queue.NewControl(q, sphereEvaluator(), cache, barrier, eval.EvalTypeBB, 1, 4)

	it := NewIteration(nil, m, center, 0)
	result := it.Run(ctrl)
	if result == eval.Unsuccessful {
		t.Fatal("expected the poll toward the origin to improve on (1,1)")
	}
	if best := barrier.GetFirstXFeas(); best.F().Value() >= 2 {
		t.Errorf("expected barrier's best f to improve below 2, got %v", best.F().Value())
	}
}

func TestIterationRefinesMeshOnUnsuccessfulPoll(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	center := eval.NewEvalPoint(nmath.NewPoint([]float64{0, 0}), [16]byte{})
	center.SetEval(eval.NewEval(eval.EvalTypeBB, 0, nil, nil, ""))

	barrier := eval.NewBarrier(nmath.Inf(1))
	barrier.AddXFeas(center)
	cache := eval.NewCache()
	q := queue.NewQueue(queue.Lexicographic)
	ctrl := queue.NewControl(q, sphereEvaluator(), cache, barrier, eval.EvalTypeBB, 1, 4)

	before := m.FrameSize(0)
	it := NewIteration(nil, m, center, 0)
	result := it.Run(ctrl)
	if result != eval.Unsuccessful {
		t.Fatal("expected no poll direction to improve on the global minimum (0,0)")
	}
	if m.FrameSize(0) >= before {
		t.Errorf("expected frame size to shrink after an unsuccessful iteration, before=%v after=%v", before, m.FrameSize(0))
	}
}
