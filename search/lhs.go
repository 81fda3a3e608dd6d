package search

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// LatinHypercube generates N stratified-random trial points in a box around
// the frame center, one per mesh-projected Latin Hypercube sample: each
// coordinate's [center-Radius, center+Radius] range is split into N equal
// strata and exactly one sample is drawn from each stratum, then the strata
// are independently permuted per coordinate (spec.md §4.10's LH_SEARCH,
// generalized from a global-space initial design to a local per-iteration
// search step).
//
// Grounded on gonum.org/v1/gonum/stat/distuv.Uniform for the within-stratum
// draw; the stratify-then-permute scheme itself follows
// original_source/src/Algos/LH/LH.cpp's generatePoints (no gonum/ecosystem
// package in the pack implements Latin Hypercube sampling directly).
type LatinHypercube struct {
	N      int
	Radius float64
	Rng    *rand.Rand
}

func (l *LatinHypercube) Name() string { return "LH_SEARCH" }

func (l *LatinHypercube) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	n := l.N
	if n <= 0 {
		n = center.Len()
	}
	rng := l.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	c := center.Floats()
	ndim := len(c)
	radius := l.Radius
	if radius <= 0 {
		radius = 1
		for i := range c {
			if d := m.FrameSize(i); d > radius {
				radius = d
			}
		}
	}

	// strata[i] holds a permutation of [0,n) for coordinate i.
	strata := make([][]int, ndim)
	for i := range strata {
		strata[i] = rng.Perm(n)
	}

	out := make([]nmath.Point, 0, n)
	for s := 0; s < n; s++ {
		x := make([]float64, ndim)
		for i := 0; i < ndim; i++ {
			stratum := strata[i][s]
			lo := c[i] - radius + float64(stratum)*2*radius/float64(n)
			hi := lo + 2*radius/float64(n)
			u := distuv.Uniform{Min: lo, Max: hi}
			x[i] = u.Rand()
		}
		x = m.ProjectOnMesh(x, c, lb, ub)
		out = append(out, nmath.NewPoint(x))
	}
	return out
}
