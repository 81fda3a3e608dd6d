package nmath

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
)

// ArrayOfDouble is a flat, fixed-length vector of Double, the plain-data
// building block for Point and Direction.
type ArrayOfDouble []Double

// NewArrayOfDouble builds an ArrayOfDouble of defined values from a []float64.
func NewArrayOfDouble(vs []float64) ArrayOfDouble {
	a := make(ArrayOfDouble, len(vs))
	for i, v := range vs {
		a[i] = NewDouble(v)
	}
	return a
}

// Floats returns the underlying values as a []float64. Any undefined
// component becomes NaN.
func (a ArrayOfDouble) Floats() []float64 {
	out := make([]float64, len(a))
	for i, d := range a {
		out[i] = d.Value()
	}
	return out
}

func (a ArrayOfDouble) clone() ArrayOfDouble {
	out := make(ArrayOfDouble, len(a))
	copy(out, a)
	return out
}

// Point is an ordered, fixed-dimension sequence of Double coordinates.
type Point struct {
	coords ArrayOfDouble
}

// NewPoint builds a Point from a []float64.
func NewPoint(vs []float64) Point { return Point{coords: NewArrayOfDouble(vs)} }

// NewPointFromArray builds a Point directly from an ArrayOfDouble.
func NewPointFromArray(a ArrayOfDouble) Point { return Point{coords: a.clone()} }

// Len returns the dimension of p.
func (p Point) Len() int { return len(p.coords) }

// At returns the i-th coordinate.
func (p Point) At(i int) Double { return p.coords[i] }

// Coords returns the underlying coordinates (read-only use expected; callers
// that need to mutate should use Clone first).
func (p Point) Coords() ArrayOfDouble { return p.coords }

// Floats returns the point's coordinates as plain float64 (undefined -> NaN).
func (p Point) Floats() []float64 { return p.coords.Floats() }

// Clone returns a deep copy of p.
func (p Point) Clone() Point { return Point{coords: p.coords.clone()} }

func (p Point) String() string { return fmt.Sprintf("%v", p.Floats()) }

func (p Point) elementwise(o Point, f func(a, b Double) Double) Point {
	if p.Len() != o.Len() {
		panic(fmt.Sprintf("nmath: dimension mismatch %v vs %v", p.Len(), o.Len()))
	}
	out := make(ArrayOfDouble, p.Len())
	for i := range out {
		out[i] = f(p.coords[i], o.coords[i])
	}
	return Point{coords: out}
}

// Add returns the componentwise sum p+o.
func (p Point) Add(o Point) Point { return p.elementwise(o, Double.Add) }

// Sub returns the componentwise difference p-o.
func (p Point) Sub(o Point) Point { return p.elementwise(o, Double.Sub) }

// Scale returns p with every coordinate multiplied by s.
func (p Point) Scale(s float64) Point {
	out := make(ArrayOfDouble, p.Len())
	sd := NewDouble(s)
	for i, c := range p.coords {
		out[i] = c.Mul(sd)
	}
	return Point{coords: out}
}

// L2Dist returns the Euclidean distance between p and o.
func (p Point) L2Dist(o Point) float64 {
	if p.Len() != o.Len() {
		panic("nmath: dimension mismatch in L2Dist")
	}
	tot := 0.0
	for i := range p.coords {
		d := p.coords[i].Value() - o.coords[i].Value()
		tot += d * d
	}
	return math.Sqrt(tot)
}

// WeakLess is a strict weak ordering over Points used only to give cache
// keys (coordinate tuples) a reproducible total order; it is lexicographic
// over each coordinate's Double.WeakLess.
func (p Point) WeakLess(o Point) bool {
	n := p.Len()
	if o.Len() < n {
		n = o.Len()
	}
	for i := 0; i < n; i++ {
		if p.coords[i].WeakLess(o.coords[i]) {
			return true
		}
		if o.coords[i].WeakLess(p.coords[i]) {
			return false
		}
	}
	return p.Len() < o.Len()
}

// Equal reports whether every coordinate of p and o compares Equal.
func (p Point) Equal(o Point) bool {
	if p.Len() != o.Len() {
		return false
	}
	for i := range p.coords {
		if !p.coords[i].Equal(o.coords[i]) {
			return false
		}
	}
	return true
}

// Hash returns a content hash of p's coordinates, suitable as a cache key.
// Undefined coordinates hash as NaN's bit pattern, so two points differing
// only in which components are undefined still hash differently.
func (p Point) Hash() [sha1.Size]byte {
	data := make([]byte, p.Len()*8)
	for i, c := range p.coords {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(c.Value()))
	}
	return sha1.Sum(data)
}

// ProjectSubspace returns the coordinates of p at the positions where mask
// is NOT fixed (mask[i].IsDefined()==false means "free"), in order. It is
// the forward half of the fixed-variable round-trip law.
func (p Point) ProjectSubspace(mask ArrayOfDouble) Point {
	if len(mask) != p.Len() {
		panic("nmath: mask dimension mismatch")
	}
	out := make(ArrayOfDouble, 0, p.Len())
	for i, m := range mask {
		if !m.IsDefined() {
			out = append(out, p.coords[i])
		}
	}
	return Point{coords: out}
}

// ExpandSubspace rebuilds a full-dimension Point from a reduced-dimension
// sub point sub and the same mask used to produce it via ProjectSubspace:
// fixed coordinates (mask[i] defined) take the mask's value, free
// coordinates are filled in order from sub. This is the other half of the
// round-trip law:
//
//	ExpandSubspace(ProjectSubspace(p, mask), mask) == p
//
// whenever p is compatible with mask (p's fixed coordinates equal mask's).
func ExpandSubspace(sub Point, mask ArrayOfDouble) Point {
	out := make(ArrayOfDouble, len(mask))
	si := 0
	for i, m := range mask {
		if m.IsDefined() {
			out[i] = m
		} else {
			out[i] = sub.coords[si]
			si++
		}
	}
	return Point{coords: out}
}

// CompatibleWithMask reports whether p's fixed coordinates (where mask is
// defined) equal the mask's values, i.e. p could have been produced by
// ExpandSubspace from ProjectSubspace(p, mask).
func (p Point) CompatibleWithMask(mask ArrayOfDouble) bool {
	if len(mask) != p.Len() {
		return false
	}
	for i, m := range mask {
		if m.IsDefined() && !m.Equal(p.coords[i]) {
			return false
		}
	}
	return true
}

// Direction is a Point used as a displacement between two points; it adds
// norm and cosine operations meaningful for directions but not absolute
// positions.
type Direction struct {
	Point
}

// NewDirection builds a Direction from raw components.
func NewDirection(vs []float64) Direction { return Direction{Point: NewPoint(vs)} }

// DirectionBetween returns the displacement from-to, i.e. to-from, as a
// Direction.
func DirectionBetween(from, to Point) Direction { return Direction{Point: to.Sub(from)} }

// Norm returns the Euclidean norm of the direction.
func (d Direction) Norm() float64 {
	tot := 0.0
	for _, c := range d.Coords() {
		v := c.Value()
		tot += v * v
	}
	return math.Sqrt(tot)
}

// Cos returns the cosine of the angle between d and o, or 0 if either has
// zero norm.
func (d Direction) Cos(o Direction) float64 {
	na, nb := d.Norm(), o.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	dot := 0.0
	dc, oc := d.Coords(), o.Coords()
	for i := range dc {
		dot += dc[i].Value() * oc[i].Value()
	}
	return dot / (na * nb)
}

// Negate returns the opposite direction.
func (d Direction) Negate() Direction { return Direction{Point: d.Point.Scale(-1)} }
