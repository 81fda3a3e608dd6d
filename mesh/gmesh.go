// Package mesh implements NOMAD's granular mesh (GMesh): a per-variable
// lattice with independent mesh size (delta) and frame size (Delta) that
// enlarges on search/poll success and refines on failure, supporting
// integer/granular variables and box-bound snapping.
//
// It generalizes github.com/rwcarlsen/optim's single scalar-step Mesh
// (InfMesh/BoxMesh/IntMesh in mesh.go) to a per-coordinate granular scheme,
// following
// original_source/src/Algos/MeshBase.{hpp,cpp}.
package mesh

import "math"

// DefaultBase is the mesh update base b used by the decadal/dyadic scheme
// (spec.md §4.2: "fixed base b=4").
const DefaultBase = 4.0

// MinFrameSize is the default per-coordinate frame size below which the
// mesh is considered to have converged, when granularity is zero.
const MinFrameSize = 1e-13

// GMesh is a granular, per-variable mesh/frame. Index i ranges over
// [0, n) where n = len(Granularity).
type GMesh struct {
	// Granularity holds gamma_i for each coordinate; gamma_i == 0 means
	// coordinate i is continuous.
	Granularity []float64
	// Base is the mesh update base b (default 4, spec.md §4.2).
	Base float64
	// MinFrame is the per-coordinate minimum frame size used for stop
	// detection; if nil, a granular coordinate uses its granularity and a
	// continuous one uses the MinFrameSize constant.
	MinFrame []float64

	delta    []float64 // mesh size per coordinate
	Delta    []float64 // frame size per coordinate
	expDelta []int     // allocated by New but never read or updated
	expdelta []int     // allocated by New but never read or updated

	lastFailure bool
}

// New builds a GMesh for the given per-coordinate granularity and initial
// frame size. initFrame[i] must be > 0.
func New(granularity, initFrame []float64) *GMesh {
	n := len(granularity)
	if len(initFrame) != n {
		panic("mesh: granularity and initFrame length mismatch")
	}
	m := &GMesh{
		Granularity: append([]float64{}, granularity...),
		Base:        DefaultBase,
		Delta:       append([]float64{}, initFrame...),
		delta:       make([]float64, n),
		expDelta:    make([]int, n),
		expdelta:    make([]int, n),
	}
	for i := range m.Delta {
		m.deriveDeltaFromFrame(i)
	}
	return m
}

func (m *GMesh) base() float64 {
	if m.Base == 0 {
		return DefaultBase
	}
	return m.Base
}

// N returns the mesh's dimension.
func (m *GMesh) N() int { return len(m.Granularity) }

// MeshSize returns delta_i, the current mesh (grid) size for coordinate i.
func (m *GMesh) MeshSize(i int) float64 { return m.delta[i] }

// FrameSize returns Delta_i, the current frame size for coordinate i.
func (m *GMesh) FrameSize(i int) float64 { return m.Delta[i] }

// FrameSizeRatio returns rho_i = Delta_i/delta_i.
func (m *GMesh) FrameSizeRatio(i int) float64 {
	if m.delta[i] == 0 {
		return math.Inf(1)
	}
	return m.Delta[i] / m.delta[i]
}

// deriveDeltaFromFrame enforces the invariant delta_i = min(Delta_i,
// Delta_i^2), scaled so delta_i <= Delta_i, clipped to a granularity
// multiple when coordinate i is granular (spec.md §4.2 update rule).
func (m *GMesh) deriveDeltaFromFrame(i int) {
	D := m.Delta[i]
	d := math.Min(D, D*D)
	if g := m.Granularity[i]; g > 0 {
		// round to nearest multiple of g, never exceeding D, never below g.
		mult := math.Max(1, math.Round(d/g))
		d = mult * g
		if d > D {
			d = g * math.Max(1, math.Floor(D/g))
		}
	}
	m.delta[i] = d
}

func (m *GMesh) minFrame(i int) float64 {
	if m.MinFrame != nil {
		return m.MinFrame[i]
	}
	if g := m.Granularity[i]; g > 0 {
		return g
	}
	return MinFrameSize
}

// EnlargeDeltaFrameSize grows Delta_i following a successful iteration along
// direction dir (a displacement in mesh units per coordinate, same length
// as the mesh). If anisotropic is false, every coordinate is scaled
// uniformly by Base. If anisotropic is true, only coordinates whose
// relative displacement |dir_i|/Delta_i is at least anisotropyFactor are grown;
// others are held. Returns true iff any Delta_i changed.
func (m *GMesh) EnlargeDeltaFrameSize(dir []float64, anisotropyFactor float64, anisotropic bool) bool {
	changed := false
	b := m.base()
	for i := range m.Delta {
		grow := true
		if anisotropic && anisotropyFactor > 0 && dir != nil {
			ratio := 0.0
			if m.Delta[i] != 0 {
				ratio = math.Abs(dir[i]) / m.Delta[i]
			}
			grow = ratio >= anisotropyFactor
		}
		if !grow {
			continue
		}
		next := m.Delta[i] * b
		if g := m.Granularity[i]; g > 0 {
			next = g * math.Max(1, math.Round(next/g))
		}
		if next != m.Delta[i] {
			changed = true
		}
		m.Delta[i] = next
		m.deriveDeltaFromFrame(i)
	}
	m.lastFailure = false
	return changed
}

// RefineDeltaFrameSize shrinks every Delta_i by Base following a failed
// iteration, clipping to a granularity multiple, and re-derives delta_i.
func (m *GMesh) RefineDeltaFrameSize() {
	b := m.base()
	for i := range m.Delta {
		next := m.Delta[i] / b
		if g := m.Granularity[i]; g > 0 {
			next = g * math.Max(1, math.Round(next/g))
			if next < g {
				next = g
			}
		}
		if next < m.minFrame(i) && m.Granularity[i] == 0 {
			next = m.minFrame(i)
		}
		m.Delta[i] = next
		m.deriveDeltaFromFrame(i)
	}
	m.lastFailure = true
}

// ProjectOnMesh returns the nearest point to p (a []float64 of length N())
// whose coordinates minus center are integer multiples of delta_i, then
// clips to [lb,ub] with snap-to-bound and re-projects, per spec.md §4.2.
func (m *GMesh) ProjectOnMesh(p, center, lb, ub []float64) []float64 {
	out := m.projectOnly(p, center)
	if lb == nil && ub == nil {
		return out
	}
	clipped := false
	for i := range out {
		if lb != nil && out[i] < lb[i] {
			out[i] = lb[i]
			clipped = true
		}
		if ub != nil && out[i] > ub[i] {
			out[i] = ub[i]
			clipped = true
		}
	}
	if clipped {
		// re-project the snapped-to-bound point so it still lands on the
		// mesh grid (spec.md §4.2: "clip... and re-project").
		out = m.projectOnly(out, center)
		for i := range out {
			if lb != nil && out[i] < lb[i] {
				out[i] = lb[i]
			}
			if ub != nil && out[i] > ub[i] {
				out[i] = ub[i]
			}
		}
	}
	return out
}

func (m *GMesh) projectOnly(p, center []float64) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		d := m.delta[i]
		if d == 0 {
			out[i] = p[i]
			continue
		}
		n := math.Round((p[i] - center[i]) / d)
		out[i] = center[i] + d*n
	}
	return out
}

// VerifyPointIsOnMesh reports whether p could have been produced by
// ProjectOnMesh(p, center, nil, nil): every coordinate offset from center
// is (within floating tolerance) an integer multiple of delta_i.
func (m *GMesh) VerifyPointIsOnMesh(p, center []float64) bool {
	const tol = 1e-9
	for i := range p {
		d := m.delta[i]
		if d == 0 {
			continue
		}
		ratio := (p[i] - center[i]) / d
		if math.Abs(ratio-math.Round(ratio)) > tol {
			return false
		}
	}
	return true
}

// CheckMeshForStopping reports whether the mesh has converged: every
// Delta_i is below its minimum frame size, or (for an all-granular mesh)
// every Delta_i has reached its granularity and the last update was a
// failure.
func (m *GMesh) CheckMeshForStopping() bool {
	allBelowMin := true
	allGranularAtFloor := true
	for i := range m.Delta {
		if m.Delta[i] >= m.minFrame(i) {
			allBelowMin = false
		}
		g := m.Granularity[i]
		if g == 0 || m.Delta[i] > g*(1+1e-9) {
			allGranularAtFloor = false
		}
	}
	if allBelowMin {
		return true
	}
	if allGranularAtFloor && m.lastFailure {
		return true
	}
	return false
}
