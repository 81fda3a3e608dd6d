// PSD-MADS, SSD-MADS and COOPMads multi-start/decomposition drivers.
//
// Grounded on original_source/src/Algos/PSDMads/PSDMads.hpp (a RandomPickup
// partitions the free variables into waves of subproblems run concurrently,
// sharing one Barrier updated under a lock, with the main mesh enlarged or
// refined once per wave), original_source/src/Algos/SSDMads/SSDMads.cpp
// (the same partition-into-subproblems idea run sequentially instead of
// concurrently), and original_source/src/Algos/COOPMads/COOPMads.hpp
// (independent full-dimension MADS runs sharing one Cache/Barrier). The
// concurrency itself is grounded in github.com/rwcarlsen/optim's
// ParallelEvaler goroutine-per-point pattern (vendored inside
// rwcarlsen-cloudlus), generalized here to goroutine-per-subproblem instead
// of goroutine-per-point.
package solver

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mads"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/param"
	"github.com/rwcarlsen/nomad/queue"
	"github.com/rwcarlsen/nomad/step"
	"github.com/rwcarlsen/nomad/subproblem"
)

// DefaultSubMaxMegaIter bounds how many mega-iterations one subproblem MADS
// run gets before PSD/SSD moves on to the next wave, since a subproblem is
// meant to make local progress, not fully converge (PSDMads.hpp's pollster
// decides when to advance, not the subproblem itself).
const DefaultSubMaxMegaIter = 20

// subEvaluator wraps a full-dimension Evaluator so it can be called with
// subproblem-dimension coordinates: each call expands x back to full
// dimension via sp before delegating, implementing spec.md §4.11's
// "EvcInterface converts back to full-space before cache/queue insertion".
func subEvaluator(full *blackbox.Evaluator, sp *subproblem.Subproblem) *blackbox.Evaluator {
	return blackbox.NewCallableEvaluator(full.OutputTypes, func(x []float64) (blackbox.Result, error) {
		fullX := sp.ToFullFloats(x)
		results, err := full.EvalBlock(context.Background(), [][]float64{fullX})
		if err != nil {
			return blackbox.Result{}, err
		}
		return results[0], nil
	})
}

// runOneSubMADS runs a bounded MADS on the subproblem sp, starting from
// bestFull (the current best full-dimension incumbent projected down),
// and merges its result back into the shared full-dimension cache/barrier.
// It reports whether the merge improved the shared barrier.
func runOneSubMADS(fullEvaluator *blackbox.Evaluator, sp *subproblem.Subproblem, bestFull nmath.Point,
	fullMesh *mesh.GMesh, fullCache *eval.Cache, fullBarrier *eval.Barrier, fullMu *sync.Mutex,
	p *param.Params, log *zap.SugaredLogger, maxMegaIter int) bool {

	subEval := subEvaluator(fullEvaluator, sp)
	subX0 := sp.ToSub(bestFull)

	subGran := sp.ToSubFloats(fullMesh.Granularity)
	subInitFrame := sp.ToSubFloats(fullMesh.Delta)
	subMesh := mesh.New(subGran, subInitFrame)

	var subLB, subUB []float64
	if len(p.LowerBound) == sp.FullDimension() {
		subLB = sp.ToSubFloats(p.LowerBound)
	}
	if len(p.UpperBound) == sp.FullDimension() {
		subUB = sp.ToSubFloats(p.UpperBound)
	}

	subBarrier := eval.NewBarrier(nmath.Inf(1))
	subCache := eval.NewCache()
	subQueue := queue.NewQueue(nil)
	subCtrl := queue.NewControl(subQueue, subEval, subCache, subBarrier, eval.EvalTypeBB, 1, 1)
	subCtrl.Opportunistic = p.OpportunisticEval

	x0pt := eval.NewEvalPoint(subX0, uuid.Nil)
	subQueue.Push(&queue.EvalQueuePoint{EvalPoint: x0pt, Iteration: -1, GeneratingStep: "subx0"})
	subCtrl.Run(context.Background())
	if x0pt.Status != eval.Ok && x0pt.Status != eval.Rejected {
		return false
	}

	ctx := step.NewContext("SUB-MADS", log)
	for k := 0; k < maxMegaIter; k++ {
		if subMesh.CheckMeshForStopping() {
			break
		}
		mi := &mads.MegaIteration{
			Ctx:              ctx.Child(k),
			Mesh:             subMesh,
			Barrier:          subBarrier,
			K:                k,
			MaxXFeas:         1,
			MaxXInf:          1,
			DirectionType:    spannerFor(p.DirectionType),
			AnisotropyFactor: p.AnisotropyFactor,
			AnisotropicMesh:  p.AnisotropicMesh,
			LB:               subLB,
			UB:               subUB,
		}
		mi.Run(subCtrl)
		if subCtrl.StopReason().Terminates() {
			break
		}
	}

	var subBest *eval.EvalPoint
	if f := subBarrier.GetFirstXFeas(); f != nil {
		subBest = f
	} else {
		subBest = subBarrier.GetFirstXInf()
	}
	if subBest == nil {
		return false
	}
	ev, ok := subBest.Eval(eval.EvalTypeBB)
	if !ok {
		return false
	}

	fullPoint := eval.NewEvalPoint(sp.ToFull(subBest.Point), uuid.Nil)
	fullPoint.SetEval(ev)

	fullMu.Lock()
	defer fullMu.Unlock()
	fullCache.Insert(fullPoint)
	success := fullBarrier.Classify(fullPoint)
	if success != eval.Unsuccessful {
		fullBarrier.UpdateWithPoints([]*eval.EvalPoint{fullPoint})
	}
	return success != eval.Unsuccessful
}


// groupsForWave partitions the full dimension's indices into consecutive
// groups of groupSize using rp, mirroring RandomPickup's distinct-until-
// exhausted contract: one call to groupsForWave drains rp down to (or past)
// exhaustion and returns every group drawn along the way.
func groupsForWave(rp *randomPickup, n, groupSize int) [][]int {
	var groups [][]int
	for picked := 0; picked < n; {
		g := make([]int, 0, groupSize)
		for i := 0; i < groupSize && picked < n; i++ {
			g = append(g, rp.pickup())
			picked++
		}
		groups = append(groups, g)
	}
	return groups
}

func currentBest(b *eval.Barrier) nmath.Point {
	if f := b.GetFirstXFeas(); f != nil {
		return f.Point
	}
	if inf := b.GetFirstXInf(); inf != nil {
		return inf.Point
	}
	return nmath.Point{}
}

// RunPSD runs PSD-MADS (Parallel Space Decomposition): each wave partitions
// the full set of variables into groups of groupSize, runs one subproblem
// MADS per group CONCURRENTLY (fixing every other variable to the current
// shared best), merges every subproblem's result into the shared
// barrier/cache, then enlarges or refines the shared main mesh once per
// wave depending on whether any subproblem in it succeeded.
func RunPSD(p *param.Params, evaluator *blackbox.Evaluator, log *zap.SugaredLogger, groupSize, maxWaves int) (*eval.EvalPoint, step.StopType, error) {
	ec, err := New(p, evaluator, log)
	if err != nil {
		return nil, step.Error, err
	}
	defer ec.Close()

	if groupSize <= 0 || groupSize >= p.Dimension {
		groupSize = p.Dimension
	}

	rng := rand.New(rand.NewSource(p.Seed))
	rp := newRandomPickup(p.Dimension, rng)
	var mu sync.Mutex

	for wave := 0; wave < maxWaves; wave++ {
		if ec.Ctx.Stopped() || ec.Control.StopReason().Terminates() {
			break
		}
		groups := groupsForWave(rp, p.Dimension, groupSize)
		best := currentBest(ec.Barrier)

		var wg sync.WaitGroup
		results := make([]bool, len(groups))
		for i, g := range groups {
			sp := subproblem.New(fixedVariableMask(best, g))
			wg.Add(1)
			go func(i int, sp *subproblem.Subproblem) {
				defer wg.Done()
				results[i] = runOneSubMADS(evaluator, sp, best, ec.Mesh, ec.Cache, ec.Barrier, &mu, p, log, DefaultSubMaxMegaIter)
			}(i, sp)
		}
		wg.Wait()

		anySuccess := false
		for _, s := range results {
			anySuccess = anySuccess || s
		}
		if anySuccess {
			ec.Mesh.EnlargeDeltaFrameSize(nil, 0, false)
		} else {
			ec.Mesh.RefineDeltaFrameSize()
		}
	}

	return ec.best(), ec.Ctx.StopReason, nil
}

// RunSSD runs SSD-MADS (Sequential Space Decomposition): identical to
// RunPSD's wave/group partition, but every group's subproblem MADS runs one
// at a time instead of concurrently (original_source/src/Algos/SSDMads).
func RunSSD(p *param.Params, evaluator *blackbox.Evaluator, log *zap.SugaredLogger, groupSize, maxWaves int) (*eval.EvalPoint, step.StopType, error) {
	ec, err := New(p, evaluator, log)
	if err != nil {
		return nil, step.Error, err
	}
	defer ec.Close()

	if groupSize <= 0 || groupSize >= p.Dimension {
		groupSize = p.Dimension
	}

	rng := rand.New(rand.NewSource(p.Seed))
	rp := newRandomPickup(p.Dimension, rng)
	var mu sync.Mutex

	for wave := 0; wave < maxWaves; wave++ {
		if ec.Ctx.Stopped() || ec.Control.StopReason().Terminates() {
			break
		}
		groups := groupsForWave(rp, p.Dimension, groupSize)
		anySuccess := false
		for _, g := range groups {
			best := currentBest(ec.Barrier)
			sp := subproblem.New(fixedVariableMask(best, g))
			if runOneSubMADS(evaluator, sp, best, ec.Mesh, ec.Cache, ec.Barrier, &mu, p, log, DefaultSubMaxMegaIter) {
				anySuccess = true
			}
		}
		if anySuccess {
			ec.Mesh.EnlargeDeltaFrameSize(nil, 0, false)
		} else {
			ec.Mesh.RefineDeltaFrameSize()
		}
	}

	return ec.best(), ec.Ctx.StopReason, nil
}

// RunCoop runs COOPMads: nStarts independent full-dimension MADS runs,
// each from its own X0 (the first start uses Params.X0, the rest are random
// points in the bounding box), all sharing one Cache and Barrier under
// locks (original_source/src/Algos/COOPMads/COOPMads.hpp; spec.md §5
// "multiple main threads run concurrent algorithms that share a single
// Cache and Barrier under locks").
func RunCoop(p *param.Params, evaluator *blackbox.Evaluator, log *zap.SugaredLogger, nStarts int) (*eval.EvalPoint, step.StopType, error) {
	ec, err := New(p, evaluator, log)
	if err != nil {
		return nil, step.Error, err
	}
	defer ec.Close()

	rng := rand.New(rand.NewSource(p.Seed))
	var wg sync.WaitGroup
	for s := 1; s < nStarts; s++ {
		x0 := randomX0(p, rng)
		wg.Add(1)
		go func(x0 []float64) {
			defer wg.Done()
			runCoopStart(p, evaluator, ec, x0, log)
		}(x0)
	}

	mainDone := make(chan struct{})
	go func() {
		ec.Run(context.Background())
		close(mainDone)
	}()
	<-mainDone
	wg.Wait()

	return ec.best(), ec.Ctx.StopReason, nil
}

// runCoopStart is one of COOPMads' additional concurrent full-dimension
// MADS runs, sharing ec's Cache and Barrier but owning its own mesh/queue/
// control so its dispatch doesn't contend with the main run's.
func runCoopStart(p *param.Params, evaluator *blackbox.Evaluator, shared *EngineContext, x0 []float64, log *zap.SugaredLogger) {
	initFrame := p.InitialFrameSize
	if len(initFrame) == 0 {
		initFrame = uniform(p.Dimension, 1)
	}
	gran := p.Granularity
	if len(gran) == 0 {
		gran = make([]float64, p.Dimension)
	}
	m := mesh.New(gran, initFrame)

	q := queue.NewQueue(nil)
	ctrl := queue.NewControl(q, evaluator, shared.Cache, shared.Barrier, eval.EvalTypeBB, 1, p.BBMaxBlockSize)
	ctrl.Opportunistic = p.OpportunisticEval
	ctrl.Budgets = queue.Budgets{MaxBBEval: p.MaxBBEval, MaxEval: p.MaxEval}

	x0pt := eval.NewEvalPoint(nmath.NewPoint(x0), uuid.Nil)
	q.Push(&queue.EvalQueuePoint{EvalPoint: x0pt, Iteration: -1, GeneratingStep: "coop-x0"})
	ctrl.Run(context.Background())
	if x0pt.Status == eval.Failed {
		return
	}

	ctx := step.NewContext("COOP-MADS", log)
	for k := 0; !ctx.Stopped() && !m.CheckMeshForStopping(); k++ {
		mi := &mads.MegaIteration{
			Ctx:              ctx.Child(k),
			Mesh:             m,
			Barrier:          shared.Barrier,
			K:                k,
			DirectionType:    spannerFor(p.DirectionType),
			AnisotropyFactor: p.AnisotropyFactor,
			AnisotropicMesh:  p.AnisotropicMesh,
			LB:               p.LowerBound,
			UB:               p.UpperBound,
		}
		mi.Run(ctrl)
		if stop := ctrl.StopReason(); stop.Terminates() {
			ctx.SetStopReason(stop)
			break
		}
	}
}

// randomX0 draws a uniform-random point in [LowerBound,UpperBound],
// defaulting missing bounds to [-10,10].
func randomX0(p *param.Params, rng *rand.Rand) []float64 {
	out := make([]float64, p.Dimension)
	for i := range out {
		lo, hi := -10.0, 10.0
		if len(p.LowerBound) == p.Dimension {
			lo = p.LowerBound[i]
		}
		if len(p.UpperBound) == p.Dimension {
			hi = p.UpperBound[i]
		}
		if lo == hi {
			out[i] = lo
		} else {
			out[i] = lo + rng.Float64()*(hi-lo)
		}
	}
	return out
}
