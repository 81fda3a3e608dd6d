package queue

import (
	"context"
	"testing"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/step"
)

func TestControlRunEvaluatesAndUpdatesBarrier(t *testing.T) {
	q := NewQueue(Lexicographic)
	q.Push(qp([]float64{3}, 0))
	q.Push(qp([]float64{1}, 0))
	q.Push(qp([]float64{2}, 0))

	evaler := blackbox.NewCallableEvaluator([]blackbox.OutputKind{blackbox.OutputObj}, func(x []float64) (blackbox.Result, error) {
		return blackbox.Result{Obj: x[0]}, nil
	})

	cache := eval.NewCache()
	barrier := eval.NewBarrier(nmath.Inf(1))
	ctrl := NewControl(q, evaler, cache, barrier, eval.EvalTypeBB, 2, 1)

	best, stop := ctrl.Run(context.Background())
	if best == eval.Unsuccessful {
		t.Error("expected at least a full success evaluating the first point")
	}
	if stop.Terminates() {
		t.Errorf("expected a clean drain with no terminating stop reason, got %v", stop)
	}
	if best := barrier.GetFirstXFeas(); best == nil || best.F().Value() != 1 {
		t.Errorf("expected best feasible f=1 (no constraints means h=0), got %v", best)
	}
	if cache.Len() != 3 {
		t.Errorf("expected 3 cached points, got %d", cache.Len())
	}
}

func TestControlRunRespectsMaxBBEvalBudget(t *testing.T) {
	q := NewQueue(Lexicographic)
	for i := 0; i < 10; i++ {
		q.Push(qp([]float64{float64(i)}, 0))
	}
	evaler := blackbox.NewCallableEvaluator([]blackbox.OutputKind{blackbox.OutputObj}, func(x []float64) (blackbox.Result, error) {
		return blackbox.Result{Obj: x[0]}, nil
	})
	cache := eval.NewCache()
	barrier := eval.NewBarrier(nmath.Inf(1))
	ctrl := NewControl(q, evaler, cache, barrier, eval.EvalTypeBB, 1, 1)
	ctrl.Budgets.MaxBBEval = 3

	_, stop := ctrl.Run(context.Background())
	if stop != step.MaxBBEvalReached {
		t.Errorf("expected MaxBBEvalReached, got %v", stop)
	}
	if ctrl.Counters.BBEval.Load() < 3 {
		t.Errorf("expected at least 3 bb evals recorded, got %d", ctrl.Counters.BBEval.Load())
	}
}

func TestControlOpportunisticCutoffClearsQueue(t *testing.T) {
	q := NewQueue(Lexicographic)
	q.Push(qp([]float64{1}, 0))
	q.Push(qp([]float64{2}, 0))
	q.Push(qp([]float64{3}, 0))

	evaler := blackbox.NewCallableEvaluator([]blackbox.OutputKind{blackbox.OutputObj}, func(x []float64) (blackbox.Result, error) {
		return blackbox.Result{Obj: x[0]}, nil
	})
	cache := eval.NewCache()
	barrier := eval.NewBarrier(nmath.Inf(1))
	ctrl := NewControl(q, evaler, cache, barrier, eval.EvalTypeBB, 1, 1)
	ctrl.Opportunistic = true

	ctrl.Run(context.Background())
	if ctrl.StopReason() != step.OpportunisticSuccess {
		t.Errorf("expected OpportunisticSuccess stop reason, got %v", ctrl.StopReason())
	}
	if q.Len() != 0 {
		t.Errorf("expected the opportunistic cutoff to leave the queue empty, got %d remaining", q.Len())
	}
}
