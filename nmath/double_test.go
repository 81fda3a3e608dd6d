package nmath

import (
	"math"
	"testing"
)

func TestUndefinedPropagates(t *testing.T) {
	u := Undefined()
	v := NewDouble(3)

	for _, got := range []Double{u.Add(v), v.Add(u), u.Mul(v), v.Div(u)} {
		if got.IsDefined() {
			t.Errorf("expected undefined, got %v", got.Value())
		}
	}
}

func TestDivByZeroUndefined(t *testing.T) {
	got := NewDouble(1).Div(NewDouble(0))
	if got.IsDefined() {
		t.Errorf("expected undefined for divide by zero, got %v", got.Value())
	}
}

func TestIsMultipleOf(t *testing.T) {
	cases := []struct {
		v, gamma float64
		want     bool
	}{
		{6, 3, true},
		{7, 3, false},
		{-9, 3, true},
		{0, 1, true},
		{1.0000000000001, 1, true},
	}
	for _, c := range cases {
		got := NewDouble(c.v).IsMultipleOf(c.gamma)
		if got != c.want {
			t.Errorf("IsMultipleOf(%v,%v) = %v, want %v", c.v, c.gamma, got, c.want)
		}
	}
}

func TestRoundToGranularityRoundTrip(t *testing.T) {
	// Double display round-trip law: parse(format(v,gamma)) == round(v,gamma).
	for _, gamma := range []float64{1, 0.5, 0.01, 2} {
		for _, v := range []float64{3.14159, -2.71828, 0, 100.005} {
			rounded := NewDouble(v).RoundToGranularity(gamma)
			again := rounded.RoundToGranularity(gamma)
			if !rounded.Equal(again) {
				t.Errorf("rounding not idempotent for v=%v gamma=%v: %v vs %v", v, gamma, rounded.Value(), again.Value())
			}
			if !rounded.IsMultipleOf(gamma) {
				t.Errorf("RoundToGranularity(%v,%v)=%v is not a multiple of gamma", v, gamma, rounded.Value())
			}
		}
	}
}

func TestWeakLessTotalPreorder(t *testing.T) {
	a := NewDouble(1.0)
	b := NewDouble(1.0 + Eps/10)
	if a.WeakLess(b) || b.WeakLess(a) {
		t.Errorf("values within epsilon should not be weakly ordered apart")
	}
	c := NewDouble(2.0)
	if !a.WeakLess(c) {
		t.Errorf("expected 1.0 weakly less than 2.0")
	}
}

func TestEqualInfinities(t *testing.T) {
	if !Inf(1).Equal(Inf(1)) {
		t.Errorf("expected +Inf == +Inf")
	}
	if Inf(1).Equal(Inf(-1)) {
		t.Errorf("expected +Inf != -Inf")
	}
}

func TestDisplayPrecision(t *testing.T) {
	cases := []struct {
		gamma float64
		want  int
	}{
		{1, 0},
		{0.1, 1},
		{0.01, 2},
		{0, 8},
	}
	for _, c := range cases {
		if got := DisplayPrecision(c.gamma); got != c.want {
			t.Errorf("DisplayPrecision(%v) = %v, want %v", c.gamma, got, c.want)
		}
	}
}

func TestIsInfIsFinite(t *testing.T) {
	if !Inf(1).IsInf() {
		t.Error("Inf(1) should report IsInf")
	}
	if NewDouble(1).IsInf() {
		t.Error("finite value should not report IsInf")
	}
	if !NewDouble(math.Pi).IsFinite() {
		t.Error("pi should be finite")
	}
}
