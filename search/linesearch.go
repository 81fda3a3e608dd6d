package search

import (
	"fmt"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// LineSearch probes a handful of step sizes along the direction from the
// frame center toward the barrier's current best incumbent, a simple
// bracketing line search rather than a full direct-search poll.
//
// Grounded on original_source/src/Algos/Mads/SimpleLineSearchMethod.cpp
// (a short, fixed set of candidate step multipliers tried along one
// direction) and the bracket-expansion idiom of other_examples'
// pa-m/optimize powell.go (minimizePowell's per-direction bracket search),
// simplified here to a fixed geometric step schedule since this port has no
// access to the real objective inside search.Generate (only mesh and
// cache).
type LineSearch struct {
	Barrier *eval.Barrier
	// Steps are multiples of the center-to-incumbent displacement, tried in
	// order (1 lands on the incumbent before mesh projection); nil defaults
	// to {0.5, 1, 2, 4}.
	Steps []float64
}

func (l *LineSearch) Name() string { return "LINE_SEARCH" }

func (l *LineSearch) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	var target *eval.EvalPoint
	if l.Barrier != nil {
		if f := l.Barrier.GetFirstXFeas(); f != nil {
			target = f
		} else if f := l.Barrier.GetFirstXInf(); f != nil {
			target = f
		}
	}
	if target == nil || target.Point.Equal(center) {
		return nil
	}

	c := center.Floats()
	t := target.Point.Floats()
	dir := make([]float64, len(c))
	for i := range c {
		dir[i] = t[i] - c[i]
	}

	steps := l.Steps
	if steps == nil {
		steps = []float64{0.5, 1, 2, 4}
	}

	seen := map[string]bool{}
	var out []nmath.Point
	for _, s := range steps {
		x := make([]float64, len(c))
		for i := range c {
			x[i] = c[i] + s*dir[i]
		}
		x = m.ProjectOnMesh(x, c, lb, ub)
		key := pointKey(x)
		if seen[key] || equalCoords(x, c) {
			continue
		}
		seen[key] = true
		out = append(out, nmath.NewPoint(x))
	}
	return out
}

func pointKey(x []float64) string {
	return fmt.Sprintf("%v", x)
}
