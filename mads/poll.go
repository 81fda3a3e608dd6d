// Package mads implements the MADS iteration and mega-iteration: per-
// frame-center search-then-poll, mesh update, and poll direction generation
// (spec.md §4.8/§4.9/§4.10's poll half).
//
// Poll direction generation is grounded on
// github.com/rwcarlsen/optim/pattern's Spanner interface
// (Compass2N/CompassNp1/RandomN in pattern.go), generalized from a single
// scalar step to NOMAD's per-coordinate GMesh frame size and renamed to the
// NOMAD direction-type vocabulary (Ortho2N/OrthoNp1/RandomN, spec.md §6's
// DIRECTION_TYPE keyword: ORTHO_2N, ORTHO_NP1_NEG, ...).
package mads

import (
	"math/rand"

	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// Spanner generates a positive basis (or other poll direction set) for n
// dimensions, in mesh-size units.
type Spanner interface {
	Span(ndim int, rng *rand.Rand) [][]int
}

// Ortho2N returns the 2n compass directions (+e_i, -e_i for every i), in
// random order, a positive basis of size 2n.
type Ortho2N struct{}

func (Ortho2N) Span(ndim int, rng *rand.Rand) [][]int {
	dirs := make([][]int, 2*ndim)
	perm := rng.Perm(ndim)
	for i := 0; i < ndim; i++ {
		d := make([]int, ndim)
		d[i] = 1
		dirs[perm[i]] = d

		d2 := make([]int, ndim)
		d2[i] = -1
		dirs[ndim+perm[i]] = d2
	}
	return dirs
}

// OrthoNp1 returns n random-polarity compass directions plus the single
// direction that is the negation of all of them, a minimal positive basis
// of size n+1.
type OrthoNp1 struct{}

func (OrthoNp1) Span(ndim int, rng *rand.Rand) [][]int {
	dirs := make([][]int, 0, ndim+1)
	final := make([]int, ndim)
	for i := 0; i < ndim; i++ {
		d := make([]int, ndim)
		if rng.Intn(2) == 0 {
			d[i] = -1
			final[i] = 1
		} else {
			d[i] = 1
			final[i] = -1
		}
		dirs = append(dirs, d)
	}
	dirs = append(dirs, final)
	// poll the diagonal direction first, mirroring
	// github.com/rwcarlsen/optim's pattern.CompassNp1.
	end := len(dirs) - 1
	dirs[0], dirs[end] = dirs[end], dirs[0]
	return dirs
}

// RandomN generates n random directions, each setting a random subset of
// dimensions to +/-1. Nothing in this module selects it automatically
// (solver's DIRECTION_TYPE mapping yields only Ortho2N or OrthoNp1); a
// caller that wants random directions sets it as the Spanner.
type RandomN struct {
	N int
}

func (r RandomN) Span(ndim int, rng *rand.Rand) [][]int {
	n := r.N
	if n <= 0 {
		n = ndim
	}
	dirs := make([][]int, 0, n)
	for len(dirs) < n {
		d := make([]int, ndim)
		nNonzero := rng.Intn(ndim) + 1
		perm := rng.Perm(ndim)
		for i := 0; i < nNonzero; i++ {
			if rng.Intn(2) == 0 {
				d[perm[i]] = 1
			} else {
				d[perm[i]] = -1
			}
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// GenPollPoints converts a direction set (in mesh-size units) into actual
// coordinate points, centered on `from`, each projected onto m's mesh grid
// and clipped to [lb, ub].
func GenPollPoints(from []float64, span Spanner, m *mesh.GMesh, lb, ub []float64, rng *rand.Rand) [][]float64 {
	dirs := span.Span(len(from), rng)
	out := make([][]float64, 0, len(dirs))
	for _, d := range dirs {
		raw := make([]float64, len(from))
		for i, x0 := range from {
			raw[i] = x0 + float64(d[i])*m.MeshSize(i)
		}
		out = append(out, m.ProjectOnMesh(raw, from, lb, ub))
	}
	return out
}

// DirectionToMeshUnits returns the displacement from `from` to `to`,
// expressed as a multiple of each coordinate's mesh size; used to decide
// anisotropic frame-size growth (mesh.GMesh.EnlargeDeltaFrameSize's dir
// argument).
func DirectionToMeshUnits(from, to nmath.Point, m *mesh.GMesh) []float64 {
	out := make([]float64, from.Len())
	for i := 0; i < from.Len(); i++ {
		d := to.At(i).Value() - from.At(i).Value()
		ms := m.MeshSize(i)
		if ms == 0 {
			out[i] = 0
			continue
		}
		out[i] = d / ms
	}
	return out
}
