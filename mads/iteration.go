package mads

import (
	"context"
	"math/rand"

	"github.com/google/uuid"

	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/queue"
	"github.com/rwcarlsen/nomad/step"
)

// SearchMethod generates trial points for one search method given the
// current frame center and mesh (spec.md §4.10). Implementations live in
// package search; Iteration depends only on this narrow interface to avoid
// an import cycle.
type SearchMethod interface {
	Name() string
	Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point
}

// Iteration runs one MADS iteration (spec.md §4.8): search phase (each
// enabled SearchMethod in order), poll phase (positive basis of directions
// scaled by the mesh), then a mesh update based on whether any trial point
// succeeded.
//
// Grounded on github.com/rwcarlsen/optim/pattern.Method.Iterate
// (pattern.go): the same search-then-poll shape (Searcher.Search before
// Poller.Poll, skip poll on search success, mesh grow/shrink by success),
// generalized to GMesh's per-coordinate frame and the progressive-barrier
// success ladder instead of pattern's single-scalar-val improvement test.
type Iteration struct {
	Ctx                     *step.Context
	Mesh                    *mesh.GMesh
	Center                  *eval.EvalPoint
	K                       int
	Searches                []SearchMethod
	SkipPollOnSearchSuccess bool
	DirectionType           Spanner
	AnisotropyFactor        float64
	AnisotropicMesh         bool
	LB, UB                  []float64
	Rng                     *rand.Rand
}

// NewIteration builds an Iteration centered at center on mesh m, defaulting
// DirectionType to Ortho2N and SkipPollOnSearchSuccess to true (spec.md
// §4.8's stated default).
func NewIteration(ctx *step.Context, m *mesh.GMesh, center *eval.EvalPoint, k int) *Iteration {
	return &Iteration{
		Ctx: ctx, Mesh: m, Center: center, K: k,
		SkipPollOnSearchSuccess: true,
		DirectionType:           Ortho2N{},
		Rng:                     rand.New(rand.NewSource(int64(k) + 1)),
	}
}

// Run executes the search phase then (unless skipped) the poll phase,
// pushing every generated trial point to ctrl's queue, draining it, then
// applying the mesh update rule: enlarge on any success, refine otherwise.
func (it *Iteration) Run(ctrl *queue.Control) eval.SuccessType {
	centerCoords := it.Center.Point.Floats()

	best := eval.Unsuccessful
	searchSucceeded := false

	for _, s := range it.Searches {
		pts := s.Generate(it.Center.Point, it.Mesh, it.LB, it.UB)
		if len(pts) == 0 {
			continue
		}
		it.pushPoints(ctrl, pts, "search:"+s.Name())
		succ, _ := ctrl.Run(context.Background())
		if succ > best {
			best = succ
		}
		if succ == eval.FullSuccess {
			searchSucceeded = true
			if it.SkipPollOnSearchSuccess {
				break
			}
		}
	}

	if !(searchSucceeded && it.SkipPollOnSearchSuccess) {
		dirType := it.DirectionType
		if dirType == nil {
			dirType = Ortho2N{}
		}
		raw := GenPollPoints(centerCoords, dirType, it.Mesh, it.LB, it.UB, it.Rng)
		pts := make([]nmath.Point, len(raw))
		for i, r := range raw {
			pts[i] = nmath.NewPoint(r)
		}
		it.pushPoints(ctrl, pts, "poll")
		succ, _ := ctrl.Run(context.Background())
		if succ > best {
			best = succ
		}
	}

	it.updateMesh(ctrl, best)
	return best
}

func (it *Iteration) pushPoints(ctrl *queue.Control, pts []nmath.Point, stepName string) []*queue.EvalQueuePoint {
	pushed := make([]*queue.EvalQueuePoint, 0, len(pts))
	for _, p := range pts {
		ep := eval.NewEvalPoint(p, uuid.Nil)
		qp := &queue.EvalQueuePoint{
			EvalPoint:      ep,
			MeshSize:       append([]float64{}, it.Mesh.Delta...),
			Iteration:      it.K,
			GeneratingStep: stepName,
		}
		ctrl.Queue.Push(qp)
		pushed = append(pushed, qp)
	}
	return pushed
}

// GeneratePoints pushes this iteration's search and poll trial points to
// ctrl's queue WITHOUT draining it, for
// GENERATE_ALL_POINTS_BEFORE_EVAL mode (spec.md §4.9): every iteration in a
// mega-iteration generates before any evaluation starts, increasing queue
// depth for better priority ordering. It always generates both search and
// poll points (the skip-poll-on-search-success shortcut needs evaluation
// results between phases, which this mode defers).
func (it *Iteration) GeneratePoints(ctrl *queue.Control) []*queue.EvalQueuePoint {
	centerCoords := it.Center.Point.Floats()
	var pushed []*queue.EvalQueuePoint

	for _, s := range it.Searches {
		pts := s.Generate(it.Center.Point, it.Mesh, it.LB, it.UB)
		pushed = append(pushed, it.pushPoints(ctrl, pts, "search:"+s.Name())...)
	}

	dirType := it.DirectionType
	if dirType == nil {
		dirType = Ortho2N{}
	}
	raw := GenPollPoints(centerCoords, dirType, it.Mesh, it.LB, it.UB, it.Rng)
	pts := make([]nmath.Point, len(raw))
	for i, r := range raw {
		pts[i] = nmath.NewPoint(r)
	}
	pushed = append(pushed, it.pushPoints(ctrl, pts, "poll")...)
	return pushed
}

// BestOf scans pushed (this iteration's own trial points, already
// evaluated) and returns the best SuccessType among them.
func BestOf(pushed []*queue.EvalQueuePoint) eval.SuccessType {
	best := eval.Unsuccessful
	for _, p := range pushed {
		if p.Success > best {
			best = p.Success
		}
	}
	return best
}

// updateMesh applies spec.md §4.8's MadsUpdate rule: enlarge on any poll or
// search success, scaled anisotropically toward the barrier's current best
// incumbent's direction from the frame center, else refine.
func (it *Iteration) updateMesh(ctrl *queue.Control, best eval.SuccessType) {
	if best == eval.Unsuccessful {
		it.Mesh.RefineDeltaFrameSize()
		return
	}
	var dir []float64
	if ctrl.Barrier != nil {
		var bestPoint *eval.EvalPoint
		if f := ctrl.Barrier.GetFirstXFeas(); f != nil {
			bestPoint = f
		} else if f := ctrl.Barrier.GetFirstXInf(); f != nil {
			bestPoint = f
		}
		if bestPoint != nil {
			dir = DirectionToMeshUnits(it.Center.Point, bestPoint.Point, it.Mesh)
		}
	}
	it.Mesh.EnlargeDeltaFrameSize(dir, it.AnisotropyFactor, it.AnisotropicMesh)
}
