// Package blackbox runs one evaluation block against an objective function,
// either an external executable (NOMAD's historical contract: one input
// file per block, argv[1], whitespace-separated echoed output on stdout) or
// an in-process Go callable, per spec.md §4.5/§6.
//
// Grounded on rwcarlsen-cloudlus's Job.Execute (cloudlus/job.go): temp
// working directory, exec.Command with a kill channel and timeout, stdout/
// stderr capture via io.MultiWriter.
package blackbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/nomad/eval"
)

// OutputKind says how one column of a blackbox output line contributes to
// an Eval, mirroring BB_OUTPUT_TYPE (spec.md §6): OBJ is the objective, EB/
// PB are extreme/progressive-barrier constraints, CSTR is an alias for PB.
type OutputKind int

const (
	OutputObj OutputKind = iota
	OutputEB
	OutputPB
	OutputExtra // NOTHING / CNT_EVAL-style column: parsed but ignored
)

func (k OutputKind) constraintKind() eval.ConstraintKind {
	if k == OutputEB {
		return eval.ConstraintEB
	}
	return eval.ConstraintPB
}

// DefaultTimeout bounds one external-executable call (cloudlus.DefaultInfile
// uses the same escape hatch: a hung blackbox must not hang the optimizer).
var DefaultTimeout = 600 * time.Second

// Result is one parsed blackbox output line, not yet folded into an Eval
// (the caller supplies EvalType and point identity).
type Result struct {
	Obj    float64
	Cons   []float64
	Kinds  []eval.ConstraintKind
	Raw    string
	Failed bool
}

// Callable is the in-process blackbox contract: a plain Go function from a
// point's coordinates to a Result.
type Callable func(x []float64) (Result, error)

// Evaluator evaluates blocks of points against either an external
// executable or an in-process Callable. Exactly one of Cmd or Fn should be
// set.
type Evaluator struct {
	// Cmd, if non-empty, is run once per block: Cmd[0] with Cmd[1:] plus a
	// trailing input-file path argument (spec.md §6 "passed as argv[1]").
	Cmd []string
	// Fn, if set, is called once per point instead of spawning a process.
	Fn Callable
	// OutputTypes declares the column layout of one blackbox output line,
	// in declaration order (spec.md §6 "order = declared output types").
	OutputTypes []OutputKind
	// Timeout bounds one external-executable call; zero means
	// DefaultTimeout.
	Timeout time.Duration
	// Dir is the directory the temporary input file is created in; empty
	// means the system temp directory (os.CreateTemp's default). The
	// command itself runs in the process's current directory.
	Dir string
}

// NewEvaluator builds an Evaluator around an external executable command
// and its declared output column layout.
func NewEvaluator(outputTypes []OutputKind, cmd ...string) *Evaluator {
	return &Evaluator{Cmd: cmd, OutputTypes: outputTypes}
}

// NewCallableEvaluator builds an Evaluator around an in-process Callable.
func NewCallableEvaluator(outputTypes []OutputKind, fn Callable) *Evaluator {
	return &Evaluator{Fn: fn, OutputTypes: outputTypes}
}

// EvalBlock evaluates every point in xs against the same blackbox call
// (one process invocation for an external command, one echoed line per
// point; one Fn call per point for a Callable) and returns one Result per
// point. Exit code != 0 for an external command marks every point in the
// block as Failed (spec.md §6: "any non-zero marks all points in the block
// as failed"); a malformed or NaN line marks only that point as Failed.
func (e *Evaluator) EvalBlock(ctx context.Context, xs [][]float64) ([]Result, error) {
	if e.Fn != nil {
		out := make([]Result, len(xs))
		for i, x := range xs {
			r, err := e.Fn(x)
			if err != nil {
				r = Result{Failed: true, Raw: err.Error()}
			}
			out[i] = r
		}
		return out, nil
	}
	return e.evalBlockExternal(ctx, xs)
}

func (e *Evaluator) evalBlockExternal(ctx context.Context, xs [][]float64) ([]Result, error) {
	if len(e.Cmd) == 0 {
		return nil, fmt.Errorf("blackbox: no Cmd or Fn configured")
	}

	f, err := os.CreateTemp(e.Dir, "nomad-bb-in-*")
	if err != nil {
		return nil, fmt.Errorf("blackbox: create input file: %w", err)
	}
	inPath := f.Name()
	defer os.Remove(inPath)

	w := bufio.NewWriter(f)
	for _, x := range xs {
		fields := make([]string, len(x))
		for i, v := range x {
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("blackbox: write input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("blackbox: close input file: %w", err)
	}

	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, e.Cmd[1:]...), inPath)
	cmd := exec.CommandContext(runCtx, e.Cmd[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runErr != nil {
		failed := make([]Result, len(xs))
		for i := range failed {
			failed[i] = Result{Failed: true, Raw: stderr.String()}
		}
		return failed, nil
	}

	return parseBlockOutput(stdout.String(), len(xs), e.OutputTypes), nil
}

// parseBlockOutput parses one echoed-output line per point. A line with the
// wrong column count, a NaN, or a parse error marks only that point failed
// (spec.md §6); a short output (fewer lines than points) marks the missing
// points failed too.
func parseBlockOutput(stdout string, n int, outTypes []OutputKind) []Result {
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		if i >= len(lines) {
			out[i] = Result{Failed: true}
			continue
		}
		r, ok := parseOutputLine(lines[i], outTypes)
		if !ok {
			out[i] = Result{Failed: true, Raw: lines[i]}
			continue
		}
		out[i] = r
	}
	return out
}

func parseOutputLine(line string, outTypes []OutputKind) (Result, bool) {
	fields := strings.Fields(line)
	if len(fields) != len(outTypes) {
		return Result{}, false
	}
	r := Result{Raw: line}
	for i, kind := range outTypes {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || math.IsNaN(v) {
			return Result{}, false
		}
		switch kind {
		case OutputObj:
			r.Obj = v
		case OutputExtra:
			// parsed, ignored
		default:
			r.Cons = append(r.Cons, v)
			r.Kinds = append(r.Kinds, kind.constraintKind())
		}
	}
	return r, true
}

// ToEval folds a Result into an eval.Eval of the given type, applying the
// same objective/constraint aggregation rule as eval.NewEval.
func (r Result) ToEval(typ eval.EvalType) eval.Eval {
	if r.Failed {
		return eval.NewFailedEval(typ)
	}
	return eval.NewEval(typ, r.Obj, r.Cons, r.Kinds, r.Raw)
}
