package mesh

import (
	"math"
	"testing"
)

func TestProjectOnMeshIdempotent(t *testing.T) {
	m := New([]float64{0, 0}, []float64{1, 1})
	center := []float64{0, 0}
	p := []float64{1.73, -0.42}

	once := m.ProjectOnMesh(p, center, nil, nil)
	twice := m.ProjectOnMesh(once, center, nil, nil)

	for i := range once {
		if math.Abs(once[i]-twice[i]) > 1e-9 {
			t.Errorf("projection not idempotent at %v: %v vs %v", i, once[i], twice[i])
		}
	}
}

func TestProjectOnMeshRespectsBounds(t *testing.T) {
	m := New([]float64{0}, []float64{1})
	got := m.ProjectOnMesh([]float64{10}, []float64{0}, []float64{-2}, []float64{2})
	if got[0] < -2 || got[0] > 2 {
		t.Errorf("expected projected point within bounds, got %v", got[0])
	}
}

func TestVerifyPointIsOnMesh(t *testing.T) {
	m := New([]float64{0}, []float64{0.5})
	center := []float64{0}
	if !m.VerifyPointIsOnMesh([]float64{1.5}, center) {
		t.Errorf("1.5 should be on a 0.25-step mesh (frame size 0.5) centered at 0")
	}
	if m.VerifyPointIsOnMesh([]float64{1.3}, center) {
		t.Errorf("1.3 should not be on a 0.25-step mesh (frame size 0.5) centered at 0")
	}
}

func TestEnlargeOnSuccessGrowsFrame(t *testing.T) {
	m := New([]float64{0}, []float64{1})
	before := m.FrameSize(0)
	changed := m.EnlargeDeltaFrameSize(nil, 0, false)
	if !changed {
		t.Fatal("expected frame size to change on enlarge")
	}
	if m.FrameSize(0) <= before {
		t.Errorf("expected frame size to grow, before=%v after=%v", before, m.FrameSize(0))
	}
}

func TestRefineOnFailureShrinksFrame(t *testing.T) {
	m := New([]float64{0}, []float64{4})
	before := m.FrameSize(0)
	m.RefineDeltaFrameSize()
	if m.FrameSize(0) >= before {
		t.Errorf("expected frame size to shrink, before=%v after=%v", before, m.FrameSize(0))
	}
}

func TestGranularMeshStaysOnLattice(t *testing.T) {
	m := New([]float64{1}, []float64{4}) // granularity 1 => integer mesh
	for i := 0; i < 5; i++ {
		m.RefineDeltaFrameSize()
	}
	if math.Mod(m.FrameSize(0), 1) != 0 {
		t.Errorf("expected integer frame size, got %v", m.FrameSize(0))
	}
	if m.FrameSize(0) < 1 {
		t.Errorf("granular frame size should never drop below granularity, got %v", m.FrameSize(0))
	}
}

func TestCheckMeshForStoppingGranularFloor(t *testing.T) {
	m := New([]float64{1}, []float64{1})
	m.RefineDeltaFrameSize() // failure at granularity floor already
	if !m.CheckMeshForStopping() {
		t.Errorf("expected mesh to report stopping at granularity floor after a failure")
	}
}

func TestCheckMeshForStoppingMinFrame(t *testing.T) {
	m := New([]float64{0}, []float64{1e-14})
	if !m.CheckMeshForStopping() {
		t.Errorf("expected mesh below min frame size to report stopping")
	}
}

func TestAnisotropicEnlargeOnlyGrowsActiveDims(t *testing.T) {
	m := New([]float64{0, 0}, []float64{1, 1})
	dir := []float64{5, 0} // large displacement in dim 0, none in dim 1
	m.EnlargeDeltaFrameSize(dir, 0.5, true)
	if m.FrameSize(0) <= 1 {
		t.Errorf("expected dim 0 to grow, got %v", m.FrameSize(0))
	}
	if m.FrameSize(1) != 1 {
		t.Errorf("expected dim 1 to stay fixed, got %v", m.FrameSize(1))
	}
}
