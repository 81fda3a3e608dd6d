// Package subproblem derives a lesser-dimension optimization problem from a
// full-dimension one by fixing a subset of coordinates, and maps points back
// and forth between the two spaces.
//
// Grounded on original_source/src/Algos/Subproblem.{hpp,cpp}: Subproblem's
// constructor takes a full-dimension Point whose defined components are the
// fixed variables, computes the reduced dimension as
// refDimension-nbDefined(), and re-derives every dimensioned parameter (X0,
// bounds, mesh sizes, granularity) by copying only the positions where
// fixedVariable[i] is undefined, in order. We keep that same "mask +
// project/expand" shape but delegate the actual remap to
// nmath.Point.ProjectSubspace/nmath.ExpandSubspace, which already implement
// exactly this fixed/free split over nmath.Double's defined/undefined
// distinction; Subproblem only adds the PSD/SSD-facing Dimension bookkeeping
// and the []float64 convenience wrappers mesh/bounds plumbing needs.
package subproblem

import "github.com/rwcarlsen/nomad/nmath"

// Subproblem maps between a full-dimension problem and the lower-dimension
// problem obtained by fixing the coordinates where FixedVariable is defined.
type Subproblem struct {
	// FixedVariable is always in full dimension. A defined component fixes
	// that coordinate to its value; an undefined component marks a free
	// (subproblem) variable.
	FixedVariable nmath.Point

	// free holds the full-dimension indices of the free coordinates, in
	// order; len(free) is the subproblem's dimension.
	free []int
}

// New builds a Subproblem from a full-dimension fixed-variable mask.
func New(fixedVariable nmath.Point) *Subproblem {
	s := &Subproblem{FixedVariable: fixedVariable.Clone()}
	for i := 0; i < fixedVariable.Len(); i++ {
		if !fixedVariable.At(i).IsDefined() {
			s.free = append(s.free, i)
		}
	}
	return s
}

// FullDimension returns n, the dimension of the enclosing problem.
func (s *Subproblem) FullDimension() int { return s.FixedVariable.Len() }

// Dimension returns n', the subproblem's dimension (n minus the number of
// fixed coordinates).
func (s *Subproblem) Dimension() int { return len(s.free) }

// ToSub projects a full-dimension point down to subproblem coordinates,
// dropping the fixed positions. Panics if full isn't in full dimension.
func (s *Subproblem) ToSub(full nmath.Point) nmath.Point {
	return full.ProjectSubspace(s.FixedVariable.Coords())
}

// ToFull expands a subproblem-dimension point back to full dimension,
// filling the fixed positions from FixedVariable. Panics if sub isn't in
// subproblem dimension.
func (s *Subproblem) ToFull(sub nmath.Point) nmath.Point {
	if sub.Len() != s.Dimension() {
		panic("subproblem: ToFull dimension mismatch")
	}
	return nmath.ExpandSubspace(sub, s.FixedVariable.Coords())
}

// ToSubFloats and ToFullFloats are the []float64-typed equivalents of ToSub
// and ToFull, used by mesh/bounds plumbing that already trades in raw
// slices (GMesh, LOWER_BOUND/UPPER_BOUND) rather than nmath.Point.
func (s *Subproblem) ToSubFloats(full []float64) []float64 {
	return s.ToSub(nmath.NewPoint(full)).Floats()
}

func (s *Subproblem) ToFullFloats(sub []float64) []float64 {
	return s.ToFull(nmath.NewPoint(sub)).Floats()
}
