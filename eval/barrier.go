package eval

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rwcarlsen/nomad/nmath"
)

// SuccessType classifies a newly evaluated point against a Barrier's current
// incumbents, per spec.md §4.4 (algorithm 12.2 of DFBO).
type SuccessType int

const (
	Unsuccessful SuccessType = iota
	PartialSuccess
	FullSuccess
)

func (s SuccessType) String() string {
	switch s {
	case FullSuccess:
		return "FULL_SUCCESS"
	case PartialSuccess:
		return "PARTIAL_SUCCESS"
	default:
		return "UNSUCCESSFUL"
	}
}

// Barrier holds the feasible (xFeas) and infeasible (xInf) incumbent sets and
// the moving infeasibility threshold hMax. Feasible incumbents are kept
// sorted by f; infeasible incumbents by (h, f) lexicographically, smallest
// first, so GetFirstXFeas/GetFirstXInf are O(1).
//
// A Barrier is shared across every worker goroutine an EvaluatorControl
// dispatches (spec.md §5: "single writer lock; readers snapshot"), and,
// under COOPMads, across several concurrent main threads as well. mu guards
// every field; exported methods take it directly, and the handful that need
// to compose several reads/writes into one atomic step (UpdateWithPoints)
// take it once for the whole operation via unexported, lock-free helpers.
//
// Grounded on original_source/src/Eval/Barrier.hpp (class Barrier, algorithm
// 12.2 of DFBO).
type Barrier struct {
	mu    sync.RWMutex
	xFeas []*EvalPoint
	xInf  []*EvalPoint
	hMax  nmath.Double
}

// NewBarrier builds an empty Barrier with the given initial hMax (pass
// nmath.Inf(1) for "unconstrained until the first infeasible point sets it").
func NewBarrier(hMax nmath.Double) *Barrier {
	return &Barrier{hMax: hMax}
}

// GetAllXFeas returns every feasible incumbent, ordered best-f-first.
func (b *Barrier) GetAllXFeas() []*EvalPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*EvalPoint{}, b.xFeas...)
}

// GetAllXInf returns every infeasible incumbent, ordered (h,f)-first.
func (b *Barrier) GetAllXInf() []*EvalPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*EvalPoint{}, b.xInf...)
}

// GetAllPoints returns every feasible and infeasible incumbent.
func (b *Barrier) GetAllPoints() []*EvalPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*EvalPoint, 0, len(b.xFeas)+len(b.xInf))
	out = append(out, b.xFeas...)
	out = append(out, b.xInf...)
	return out
}

// GetFirstXFeas returns the best feasible incumbent, or nil if none exists.
func (b *Barrier) GetFirstXFeas() *EvalPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.firstXFeas()
}

// GetFirstXInf returns the best infeasible incumbent, or nil if none exists.
func (b *Barrier) GetFirstXInf() *EvalPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.firstXInf()
}

func (b *Barrier) firstXFeas() *EvalPoint {
	if len(b.xFeas) == 0 {
		return nil
	}
	return b.xFeas[0]
}

func (b *Barrier) firstXInf() *EvalPoint {
	if len(b.xInf) == 0 {
		return nil
	}
	return b.xInf[0]
}

// NbXFeas returns the number of feasible incumbents.
func (b *Barrier) NbXFeas() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.xFeas)
}

// NbXInf returns the number of infeasible incumbents.
func (b *Barrier) NbXInf() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.xInf)
}

// GetHMax returns the current infeasibility threshold.
func (b *Barrier) GetHMax() nmath.Double {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hMax
}

// SetHMax sets the infeasibility threshold directly. Callers normally prefer
// UpdateHMax, which enforces the never-increase-except-on-dominating-success
// rule of spec.md §4.4.
func (b *Barrier) SetHMax(hMax nmath.Double) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hMax = hMax
}

// AddXFeas inserts xFeas into the feasible incumbent set, keeping it sorted
// by f ascending. xFeas must be feasible (h==0); it is a programmer error
// otherwise, mirroring the C++ checkXFeasIsFeas guard.
func (b *Barrier) AddXFeas(xFeas *EvalPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addXFeas(xFeas)
}

func (b *Barrier) addXFeas(xFeas *EvalPoint) {
	if !xFeas.Feasible() {
		panic("eval: AddXFeas requires a feasible point")
	}
	b.xFeas = append(b.xFeas, xFeas)
	sort.SliceStable(b.xFeas, func(i, j int) bool {
		return b.xFeas[i].F().Value() < b.xFeas[j].F().Value()
	})
}

// ClearXFeas empties the feasible incumbent set.
func (b *Barrier) ClearXFeas() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.xFeas = nil
}

// AddXInf inserts xInf into the infeasible incumbent set, keeping it sorted
// by (h, f) lexicographically.
func (b *Barrier) AddXInf(xInf *EvalPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addXInf(xInf)
}

func (b *Barrier) addXInf(xInf *EvalPoint) {
	b.xInf = append(b.xInf, xInf)
	sort.SliceStable(b.xInf, func(i, j int) bool {
		hi, hj := b.xInf[i].H().Value(), b.xInf[j].H().Value()
		if hi != hj {
			return hi < hj
		}
		return b.xInf[i].F().Value() < b.xInf[j].F().Value()
	})
}

// ClearXInf empties the infeasible incumbent set.
func (b *Barrier) ClearXInf() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.xInf = nil
}

func (b *Barrier) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.display(math.MaxInt64)
}

func (b *Barrier) display(max int) string {
	s := fmt.Sprintf("hMax=%v feas=%d inf=%d", b.hMax.Value(), len(b.xFeas), len(b.xInf))
	n := len(b.xFeas)
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		s += fmt.Sprintf("\n  xFeas[%d]: %v", i, b.xFeas[i])
	}
	n = len(b.xInf)
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		s += fmt.Sprintf("\n  xInf[%d]: %v", i, b.xInf[i])
	}
	return s
}

const successEps = 1e-13

// Classify compares p against the current best feasible and infeasible
// incumbents (per GetFirstXFeas/GetFirstXInf) and returns p's SuccessType,
// exactly the ladder of spec.md §4.4. It does not mutate the barrier; call
// UpdateWithPoints to apply the result. Classify takes a read lock so it
// observes a consistent incumbent snapshot even while other goroutines are
// inserting concurrently.
func (b *Barrier) Classify(p *EvalPoint) SuccessType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.classify(p)
}

func (b *Barrier) classify(p *EvalPoint) SuccessType {
	if p.Status == Failed || p.Status == Rejected {
		return Unsuccessful
	}
	if p.Feasible() {
		best := b.firstXFeas()
		if best == nil {
			return FullSuccess
		}
		pf, bf := p.F().Value(), best.F().Value()
		switch {
		case pf < bf-successEps:
			return FullSuccess
		case pf <= bf:
			return PartialSuccess
		default:
			return Unsuccessful
		}
	}

	h := p.H()
	if !h.IsDefined() || h.Value() > b.hMax.Value() {
		return Unsuccessful
	}
	best := b.firstXInf()
	if best == nil {
		return FullSuccess
	}
	pf, bf := p.F().Value(), best.F().Value()
	ph, bh := h.Value(), best.H().Value()
	switch {
	case pf < bf && ph < bh:
		return FullSuccess
	case pf < bf || ph < bh:
		return PartialSuccess
	default:
		return Unsuccessful
	}
}

// UpdateWithPoints classifies every point in pts against the barrier,
// inserts feasible/infeasible points into the appropriate incumbent set
// (only those that are not Unsuccessful, matching the reference's
// successful-only insertion policy), and returns the best SuccessType seen
// across the batch (spec.md §4.1: "classifies each result against the
// barrier"). Points with Status Failed or Rejected are ignored for
// incumbent insertion but still considered Unsuccessful for the return
// value. The whole batch runs under a single write lock, so a concurrent
// worker's Classify call never observes a partially-applied batch.
func (b *Barrier) UpdateWithPoints(pts []*EvalPoint) SuccessType {
	b.mu.Lock()
	defer b.mu.Unlock()
	best := Unsuccessful
	for _, p := range pts {
		s := b.classify(p)
		if s > best {
			best = s
		}
		if s == Unsuccessful {
			continue
		}
		if p.Feasible() {
			b.addXFeas(p)
		} else {
			b.addXInf(p)
		}
	}
	return best
}

// UpdateHMax recomputes hMax at the end of a mega-iteration: hMax shrinks to
// the largest h among current infeasible incumbents that were not
// dominated this iteration, and otherwise never increases (spec.md §4.4).
// dominatedThisIter lists the infeasible incumbents displaced by a better
// point during this mega-iteration (already removed from b.xInf by the
// caller); they are excluded from the max.
func (b *Barrier) UpdateHMax(dominatedThisIter []*EvalPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dominated := make(map[*EvalPoint]bool, len(dominatedThisIter))
	for _, p := range dominatedThisIter {
		dominated[p] = true
	}
	maxH := 0.0
	any := false
	for _, p := range b.xInf {
		if dominated[p] {
			continue
		}
		h := p.H().Value()
		if !any || h > maxH {
			maxH = h
			any = true
		}
	}
	if !any {
		return
	}
	candidate := nmath.NewDouble(maxH)
	if !b.hMax.IsDefined() || candidate.Value() < b.hMax.Value() {
		b.hMax = candidate
	}
}
