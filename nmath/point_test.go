package nmath

import "testing"

func TestSubspaceRoundTrip(t *testing.T) {
	full := NewPoint([]float64{1, 2, 3, 4, 5})
	mask := ArrayOfDouble{Undefined(), NewDouble(2), Undefined(), NewDouble(4), Undefined()}

	if !full.CompatibleWithMask(mask) {
		t.Fatal("full point should be compatible with its own fixed mask")
	}

	sub := full.ProjectSubspace(mask)
	if sub.Len() != 3 {
		t.Fatalf("expected reduced dimension 3, got %v", sub.Len())
	}

	back := ExpandSubspace(sub, mask)
	if !back.Equal(full) {
		t.Errorf("round trip failed: got %v, want %v", back, full)
	}
}

func TestL2Dist(t *testing.T) {
	a := NewPoint([]float64{0, 0})
	b := NewPoint([]float64{3, 4})
	if d := a.L2Dist(b); d != 5 {
		t.Errorf("L2Dist = %v, want 5", d)
	}
}

func TestWeakLessLexicographic(t *testing.T) {
	a := NewPoint([]float64{1, 2})
	b := NewPoint([]float64{1, 3})
	if !a.WeakLess(b) {
		t.Errorf("expected (1,2) weakly less than (1,3)")
	}
	if b.WeakLess(a) {
		t.Errorf("did not expect (1,3) weakly less than (1,2)")
	}
}

func TestDirectionCosOrthogonal(t *testing.T) {
	d1 := NewDirection([]float64{1, 0})
	d2 := NewDirection([]float64{0, 1})
	if c := d1.Cos(d2); c != 0 {
		t.Errorf("cos of orthogonal directions = %v, want 0", c)
	}
	d3 := NewDirection([]float64{2, 0})
	if c := d1.Cos(d3); c != 1 {
		t.Errorf("cos of parallel directions = %v, want 1", c)
	}
}

func TestHashDistinguishesPoints(t *testing.T) {
	a := NewPoint([]float64{1, 2, 3})
	b := NewPoint([]float64{1, 2, 3.0000001})
	if a.Hash() == b.Hash() {
		t.Errorf("expected distinct hashes for distinct points")
	}
	c := NewPoint([]float64{1, 2, 3})
	if a.Hash() != c.Hash() {
		t.Errorf("expected identical hashes for identical points")
	}
}
