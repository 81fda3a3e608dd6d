// Package eval holds NOMAD's evaluation data model (Eval, EvalPoint), the
// content-addressed Cache of evaluated points, and the progressive Barrier
// of feasible/infeasible incumbents.
//
// Grounded on github.com/rwcarlsen/optim's CacheEvaler (optim.go) for the
// dedup-cache shape and original_source/src/Eval/Barrier.hpp for the exact
// progressive-barrier contract.
package eval

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rwcarlsen/nomad/nmath"
)

// EvalType distinguishes which evaluator produced an Eval: the real
// blackbox, a static surrogate, or a model (quadratic) surrogate.
type EvalType int

const (
	EvalTypeBB EvalType = iota
	EvalTypeStaticSurrogate
	EvalTypeModelSurrogate
)

func (t EvalType) String() string {
	switch t {
	case EvalTypeBB:
		return "BB"
	case EvalTypeStaticSurrogate:
		return "STATIC_SGTE"
	case EvalTypeModelSurrogate:
		return "MODEL_SGTE"
	default:
		return "UNKNOWN"
	}
}

// Status is an EvalPoint's lifecycle state.
type Status int

const (
	NotEvaluated Status = iota
	InProgress
	Ok
	Failed
	Rejected
)

// ConstraintKind says how a single constraint output contributes to h.
type ConstraintKind int

const (
	// ConstraintPB is a progressive-barrier constraint: its violation
	// accumulates into h.
	ConstraintPB ConstraintKind = iota
	// ConstraintEB is an extreme-barrier constraint: any violation sets
	// h to +Inf, immediately rejecting the point.
	ConstraintEB
)

// ErrEvalFailed marks a blackbox call that failed (non-zero exit, parse
// error, timeout, or exception). It is absorbed by the barrier as
// non-improving, never propagated as a fatal error (spec.md §7).
var ErrEvalFailed = errors.New("eval: evaluation failed")

// ErrRejected marks a point an extreme-barrier constraint threw out
// (h=+Inf): distinct from ErrEvalFailed in that the blackbox call itself
// succeeded, the point is simply infeasible beyond recovery (spec.md §7).
var ErrRejected = errors.New("eval: point rejected by extreme barrier")

// Eval holds the outputs of evaluating one point with one evaluator type:
// an objective value f, an aggregate infeasibility h = sum(max(c_j,0)^2),
// a raw echoed output string, and status flags.
type Eval struct {
	Type    EvalType
	F       nmath.Double
	H       nmath.Double
	Raw     string
	Ok      bool
	Rejected bool
}

// NewEval aggregates objective obj and constraint values cons (one per
// constraint, kinds given in parallel) into an Eval. An EB constraint
// violation (positive value) sets H to +Inf and Rejected to true,
// immediately disqualifying the point; PB constraint violations accumulate
// into H as sum(max(c,0)^2).
func NewEval(typ EvalType, obj float64, cons []float64, kinds []ConstraintKind, raw string) Eval {
	if len(cons) != len(kinds) {
		panic("eval: constraint/kind length mismatch")
	}
	h := 0.0
	for i, c := range cons {
		if c <= 0 {
			continue
		}
		if kinds[i] == ConstraintEB {
			return Eval{Type: typ, F: nmath.NewDouble(obj), H: nmath.Inf(1), Raw: raw, Ok: true, Rejected: true}
		}
		h += c * c
	}
	return Eval{Type: typ, F: nmath.NewDouble(obj), H: nmath.NewDouble(h), Raw: raw, Ok: true}
}

// NewFailedEval builds an Eval representing a failed blackbox call.
func NewFailedEval(typ EvalType) Eval {
	return Eval{Type: typ, F: nmath.Undefined(), H: nmath.Undefined(), Ok: false}
}

// Feasible reports whether this Eval's H is exactly zero: an H of 0 defines
// feasibility per spec.md §3.
func (e Eval) Feasible() bool { return e.Ok && !e.Rejected && e.H.IsDefined() && e.H.Value() == 0 }

// EvalPoint is a Point together with up to one Eval per EvalType, a
// generating parent reference (PointFrom, a uuid.UUID rather than a
// pointer), a tag, and a status. PointFrom is not tied to the cache's
// Tag or hash keys; every EvalPoint the cache, queue and mads packages
// create gets uuid.Nil.
type EvalPoint struct {
	Point    nmath.Point
	Evals    map[EvalType]Eval
	PointFrom uuid.UUID // zero value means "no parent" (e.g. an X0 point)
	Tag      int
	Status   Status
}

// NewEvalPoint wraps p as a not-yet-evaluated point generated from parent
// (the zero uuid.UUID if there is none).
func NewEvalPoint(p nmath.Point, parent uuid.UUID) *EvalPoint {
	return &EvalPoint{Point: p, Evals: map[EvalType]Eval{}, PointFrom: parent, Status: NotEvaluated}
}

// SetEval records ev under its own EvalType and updates Status accordingly.
func (ep *EvalPoint) SetEval(ev Eval) {
	ep.Evals[ev.Type] = ev
	switch {
	case ev.Rejected:
		ep.Status = Rejected
	case !ev.Ok:
		ep.Status = Failed
	default:
		ep.Status = Ok
	}
}

// Eval returns the Eval of the given type, if present.
func (ep *EvalPoint) Eval(typ EvalType) (Eval, bool) {
	e, ok := ep.Evals[typ]
	return e, ok
}

// F returns the blackbox objective value, or undefined if not evaluated.
func (ep *EvalPoint) F() nmath.Double {
	if e, ok := ep.Evals[EvalTypeBB]; ok {
		return e.F
	}
	return nmath.Undefined()
}

// H returns the blackbox aggregate infeasibility, or undefined if not
// evaluated.
func (ep *EvalPoint) H() nmath.Double {
	if e, ok := ep.Evals[EvalTypeBB]; ok {
		return e.H
	}
	return nmath.Undefined()
}

// Feasible reports whether the blackbox Eval is present and feasible.
func (ep *EvalPoint) Feasible() bool {
	e, ok := ep.Evals[EvalTypeBB]
	return ok && e.Feasible()
}

func (ep *EvalPoint) String() string {
	f, h := ep.F(), ep.H()
	return fmt.Sprintf("x=%v f=%v h=%v status=%v", ep.Point, f.Value(), h.Value(), ep.Status)
}
