package blackbox

import (
	"context"
	"testing"

	"github.com/rwcarlsen/nomad/eval"
)

func TestEvalBlockCallable(t *testing.T) {
	e := NewCallableEvaluator([]OutputKind{OutputObj, OutputPB}, func(x []float64) (Result, error) {
		return Result{Obj: x[0] * x[0], Cons: []float64{x[0] - 1}, Kinds: []eval.ConstraintKind{eval.ConstraintPB}}, nil
	})

	results, err := e.EvalBlock(context.Background(), [][]float64{{2}, {0}})
	if err != nil {
		t.Fatalf("EvalBlock: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Obj != 4 {
		t.Errorf("results[0].Obj = %v, want 4", results[0].Obj)
	}
	if results[0].Failed {
		t.Errorf("results[0] should not be failed")
	}
}

func TestParseOutputLineWellFormed(t *testing.T) {
	r, ok := parseOutputLine("1.5 -0.2 3", []OutputKind{OutputObj, OutputPB, OutputEB})
	if !ok {
		t.Fatal("expected well-formed line to parse")
	}
	if r.Obj != 1.5 {
		t.Errorf("Obj = %v, want 1.5", r.Obj)
	}
	if len(r.Cons) != 2 || r.Cons[0] != -0.2 || r.Cons[1] != 3 {
		t.Errorf("Cons = %v, want [-0.2 3]", r.Cons)
	}
	if r.Kinds[0] != eval.ConstraintPB || r.Kinds[1] != eval.ConstraintEB {
		t.Errorf("Kinds = %v, want [PB EB]", r.Kinds)
	}
}

func TestParseOutputLineWrongColumnCount(t *testing.T) {
	if _, ok := parseOutputLine("1.5 2.0", []OutputKind{OutputObj, OutputPB, OutputEB}); ok {
		t.Error("expected column-count mismatch to fail to parse")
	}
}

func TestParseOutputLineNaN(t *testing.T) {
	if _, ok := parseOutputLine("NaN 1.0", []OutputKind{OutputObj, OutputPB}); ok {
		t.Error("expected NaN output to fail to parse")
	}
}

func TestParseBlockOutputShortOutputMarksMissingFailed(t *testing.T) {
	results := parseBlockOutput("1.0\n", 2, []OutputKind{OutputObj})
	if results[0].Failed {
		t.Error("first point should have parsed ok")
	}
	if !results[1].Failed {
		t.Error("second point should be marked failed due to missing output line")
	}
}

func TestResultToEvalFailed(t *testing.T) {
	r := Result{Failed: true}
	e := r.ToEval(eval.EvalTypeBB)
	if e.Ok {
		t.Error("expected failed Result to produce a not-Ok Eval")
	}
}

func TestResultToEvalFeasible(t *testing.T) {
	r := Result{Obj: 2.0}
	e := r.ToEval(eval.EvalTypeBB)
	if !e.Feasible() {
		t.Error("expected no-constraint Result to produce a feasible Eval")
	}
}
