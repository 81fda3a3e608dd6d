package mads

import (
	"context"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/queue"
	"github.com/rwcarlsen/nomad/step"
)

// MegaIteration selects up to MaxXFeas feasible and MaxXInf infeasible
// incumbents from the barrier as frame centers and runs one Iteration per
// center on the shared mesh (spec.md §4.9).
type MegaIteration struct {
	Ctx        *step.Context
	Mesh       *mesh.GMesh
	Barrier    *eval.Barrier
	K          int
	MaxXFeas   int
	MaxXInf    int
	NewSearches func() []SearchMethod
	DirectionType Spanner
	AnisotropyFactor float64
	AnisotropicMesh  bool
	LB, UB     []float64
	// GenerateAllPointsBeforeEval mirrors spec.md §4.9's
	// GENERATE_ALL_POINTS_BEFORE_EVAL: when true every constituent
	// iteration generates its trial points before any evaluation starts.
	GenerateAllPointsBeforeEval bool
}

// frameCenters picks up to MaxXFeas feasible and MaxXInf infeasible
// incumbents. A zero cap means "unlimited".
func (mi *MegaIteration) frameCenters() []*eval.EvalPoint {
	var centers []*eval.EvalPoint
	feas := mi.Barrier.GetAllXFeas()
	if mi.MaxXFeas > 0 && len(feas) > mi.MaxXFeas {
		feas = feas[:mi.MaxXFeas]
	}
	centers = append(centers, feas...)

	inf := mi.Barrier.GetAllXInf()
	if mi.MaxXInf > 0 && len(inf) > mi.MaxXInf {
		inf = inf[:mi.MaxXInf]
	}
	centers = append(centers, inf...)
	return centers
}

func (mi *MegaIteration) newIteration(center *eval.EvalPoint) *Iteration {
	it := NewIteration(mi.Ctx, mi.Mesh, center, mi.K)
	if mi.NewSearches != nil {
		it.Searches = mi.NewSearches()
	}
	if mi.DirectionType != nil {
		it.DirectionType = mi.DirectionType
	}
	it.AnisotropyFactor = mi.AnisotropyFactor
	it.AnisotropicMesh = mi.AnisotropicMesh
	it.LB, it.UB = mi.LB, mi.UB
	return it
}

// Run executes every constituent iteration and applies the shared mesh's
// update: in sequential mode, each Iteration runs its own search-poll-update
// cycle in turn (default); in GenerateAllPointsBeforeEval mode, every
// iteration generates first, a single evaluation pass drains the combined
// queue, then each iteration applies its own mesh update from its own
// trial points' outcomes.
func (mi *MegaIteration) Run(ctrl *queue.Control) eval.SuccessType {
	centers := mi.frameCenters()
	best := eval.Unsuccessful

	if !mi.GenerateAllPointsBeforeEval {
		for _, c := range centers {
			it := mi.newIteration(c)
			s := it.Run(ctrl)
			if s > best {
				best = s
			}
		}
		return best
	}

	iters := make([]*Iteration, len(centers))
	pushed := make([][]*queue.EvalQueuePoint, len(centers))
	for i, c := range centers {
		iters[i] = mi.newIteration(c)
		pushed[i] = iters[i].GeneratePoints(ctrl)
	}

	ctrl.Run(context.Background())

	for i, it := range iters {
		s := BestOf(pushed[i])
		if s > best {
			best = s
		}
		it.updateMesh(ctrl, s)
	}
	return best
}
