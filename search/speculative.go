package search

import (
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// Speculative extends one step further along the direction from the
// previous frame center to the current one, betting that a direction which
// just succeeded will keep succeeding (spec.md §4.10's speculative search:
// "after a successful poll or search step, try a larger step in the same
// direction before re-polling").
type Speculative struct {
	// Factor scales the extension step as a multiple of the displacement
	// from the previous center to the current one; <=0 defaults to 4, per
	// spec.md §4.10's default speculative search extension factor.
	Factor float64

	prevCenter nmath.Point
	haveCenter bool
}

func (s *Speculative) Name() string { return "SPECULATIVE" }

func (s *Speculative) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	factor := s.Factor
	if factor <= 0 {
		factor = 4
	}

	var pts []nmath.Point
	if s.haveCenter && !s.prevCenter.Equal(center) {
		c := center.Floats()
		prev := s.prevCenter.Floats()
		extended := make([]float64, len(c))
		for i := range c {
			extended[i] = c[i] + factor*(c[i]-prev[i])
		}
		extended = m.ProjectOnMesh(extended, c, lb, ub)
		if !equalCoords(extended, c) {
			pts = append(pts, nmath.NewPoint(extended))
		}
	}

	s.prevCenter = center
	s.haveCenter = true
	return pts
}
