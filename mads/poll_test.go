package mads

import (
	"math/rand"
	"testing"

	"github.com/rwcarlsen/nomad/mesh"
)

func TestOrtho2NSpanSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dirs := Ortho2N{}.Span(3, rng)
	if len(dirs) != 6 {
		t.Fatalf("expected 2n=6 directions, got %d", len(dirs))
	}
}

func TestOrtho2NIsPositiveBasis(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dirs := Ortho2N{}.Span(2, rng)
	seen := map[[2]int]bool{}
	for _, d := range dirs {
		seen[[2]int{d[0], d[1]}] = true
	}
	want := [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("expected direction %v present in Ortho2N span", w)
		}
	}
}

func TestOrthoNp1SpanSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dirs := OrthoNp1{}.Span(4, rng)
	if len(dirs) != 5 {
		t.Fatalf("expected n+1=5 directions, got %d", len(dirs))
	}
}

func TestOrthoNp1SumsToZero(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	dirs := OrthoNp1{}.Span(3, rng)
	sum := make([]int, 3)
	for _, d := range dirs {
		for i := range d {
			sum[i] += d[i]
		}
	}
	for i, s := range sum {
		if s != 0 {
			t.Errorf("dim %d: expected directions to sum to 0, got %d", i, s)
		}
	}
}

func TestGenPollPointsOnMesh(t *testing.T) {
	m := mesh.New([]float64{0, 0}, []float64{1, 1})
	rng := rand.New(rand.NewSource(1))
	pts := GenPollPoints([]float64{0, 0}, Ortho2N{}, m, nil, nil, rng)
	if len(pts) != 4 {
		t.Fatalf("expected 4 poll points, got %d", len(pts))
	}
	for _, p := range pts {
		if !m.VerifyPointIsOnMesh(p, []float64{0, 0}) {
			t.Errorf("poll point %v not on mesh", p)
		}
	}
}

func TestRandomNRespectsCount(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	dirs := RandomN{N: 5}.Span(3, rng)
	if len(dirs) < 5 {
		t.Fatalf("expected at least 5 directions, got %d", len(dirs))
	}
}
