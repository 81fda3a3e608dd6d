// Package solver drives MADS mega-iterations to a stop condition and wires
// together the mesh/barrier/cache/queue/evaluator machinery the other
// packages provide, plus the multi-start/decomposition drivers PSD-MADS,
// SSD-MADS and COOPMads.
//
// Grounded on github.com/rwcarlsen/optim's Solver (optim.go): the same
// "Next() runs one iteration, checks budgets/no-improve/step-size, returns
// whether to continue" shape, and cmd/pswarmdriver/main.go for wiring an
// Evaler + Method + Mesh + Solver together end to end, generalized here
// into EngineContext/New/Run plus the three multi-algorithm drivers from
// original_source/src/Algos/{PSDMads,SSDMads,COOPMads}.
package solver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/mads"
	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
	"github.com/rwcarlsen/nomad/param"
	"github.com/rwcarlsen/nomad/queue"
	"github.com/rwcarlsen/nomad/search"
	"github.com/rwcarlsen/nomad/step"
)

// ErrUserTerminated marks a run ended by cancellation of the context passed
// to Run (CTRL-C in cmd/nomad) rather than a budget or convergence stop
// reason (spec.md §7).
var ErrUserTerminated = errors.New("solver: terminated by user")

// EngineContext bundles the shared state one MADS run needs: the mesh it
// owns, the barrier/cache it updates, the queue/control dispatching
// evaluations, and the search methods each mega-iteration runs.
//
// Grounded on optim.Solver's Method/Obj/Mesh fields, split across our
// richer GMesh/Barrier/Cache/Control types instead of optim's single Mesh +
// Objectiver.
type EngineContext struct {
	Params    *param.Params
	Evaluator *blackbox.Evaluator
	Cache     *eval.Cache
	Barrier   *eval.Barrier
	Mesh      *mesh.GMesh
	Control   *queue.Control
	Ctx       *step.Context
	StatsDB   *sql.DB

	NewSearches   func() []mads.SearchMethod
	MaxXFeas      int
	MaxXInf       int
	GenerateAllPointsBeforeEval bool

	k int
}

// New builds an EngineContext from Params and an Evaluator, seeding the
// cache/barrier with X0 and constructing the initial GMesh from
// INITIAL_FRAME_SIZE/GRANULARITY (plus MIN_FRAME_SIZE when it has one entry
// per dimension). INITIAL_MESH_SIZE is not read: the mesh size follows from
// the frame size.
func New(p *param.Params, evaluator *blackbox.Evaluator, log *zap.SugaredLogger) (*EngineContext, error) {
	if p.Dimension <= 0 {
		return nil, fmt.Errorf("solver: DIMENSION must be > 0")
	}
	if len(p.X0) != p.Dimension {
		return nil, fmt.Errorf("solver: X0 must have DIMENSION=%d entries, got %d", p.Dimension, len(p.X0))
	}

	initFrame := p.InitialFrameSize
	if len(initFrame) == 0 {
		initFrame = uniform(p.Dimension, 1)
	}
	gran := p.Granularity
	if len(gran) == 0 {
		gran = make([]float64, p.Dimension)
	}
	m := mesh.New(gran, initFrame)
	if len(p.MinFrameSize) == p.Dimension {
		m.MinFrame = p.MinFrameSize
	}

	hMax := nmath.Inf(1)
	barrier := eval.NewBarrier(hMax)
	cache := eval.NewCache()

	q := queue.NewQueue(nil)
	ctrl := queue.NewControl(q, evaluator, cache, barrier, eval.EvalTypeBB, p.NbThreadsParallelEval, p.BBMaxBlockSize)
	ctrl.Opportunistic = p.OpportunisticEval
	ctrl.Budgets = queue.Budgets{MaxBBEval: p.MaxBBEval, MaxEval: p.MaxEval}

	db, err := statsDB(p)
	if err != nil {
		return nil, err
	}

	ec := &EngineContext{
		Params:    p,
		Evaluator: evaluator,
		Cache:     cache,
		Barrier:   barrier,
		Mesh:      m,
		Control:   ctrl,
		Ctx:       step.NewContext("MADS", log),
		StatsDB:   db,
	}
	ec.NewSearches = buildSearches(p, cache, barrier)

	x0 := eval.NewEvalPoint(nmath.NewPoint(p.X0), uuid.Nil)
	qp := &queue.EvalQueuePoint{EvalPoint: x0, Iteration: -1, GeneratingStep: "x0"}
	q.Push(qp)
	ctrl.Run(context.Background())
	if x0.Status == eval.Failed {
		return nil, fmt.Errorf("solver: X0 evaluation failed: %w", eval.ErrEvalFailed)
	}

	return ec, nil
}

// buildSearches assembles the enabled mads.SearchMethod instances per
// Params' QUAD_MODEL_SEARCH/NM_SEARCH/VNS_SEARCH/SPECULATIVE_SEARCH/
// LH_SEARCH/LINE_SEARCH flags (spec.md §4.10) and returns a closure
// mads.MegaIteration can call once per frame center. The closure always
// hands back the same method instances rather than fresh ones each call,
// since VNS/Speculative carry state (neighborhood size, previous center)
// across mega-iterations that must persist per spec.md §9's "per-engine
// fields, not file-scope statics" redesign.
func buildSearches(p *param.Params, cache *eval.Cache, barrier *eval.Barrier) func() []mads.SearchMethod {
	var methods []mads.SearchMethod
	if p.QuadModelSearch {
		methods = append(methods, &search.Quadratic{Cache: cache})
	}
	if p.NMSearch {
		methods = append(methods, &search.NelderMead{Cache: cache})
	}
	if p.SpeculativeSearch {
		methods = append(methods, &search.Speculative{})
	}
	if p.VNSSearch {
		methods = append(methods, &search.VNS{})
	}
	if p.LHSearchPoints > 0 {
		methods = append(methods, &search.LatinHypercube{N: p.LHSearchPoints, Rng: rand.New(rand.NewSource(p.Seed))})
	}
	if p.LineSearch {
		methods = append(methods, &search.LineSearch{Barrier: barrier})
	}
	if len(methods) == 0 {
		return nil
	}
	return func() []mads.SearchMethod { return methods }
}

// spannerFor maps Params.DirectionType (DIRECTION_TYPE, spec.md §6's
// enumerated set) to the mads.Spanner it selects, defaulting unknown or
// unset values to mads.Ortho2N per spec.md §4.8.
func spannerFor(directionType string) mads.Spanner {
	switch directionType {
	case "ORTHO_NP1_NEG", "ORTHO_NP1_QUAD":
		return mads.OrthoNp1{}
	default:
		return mads.Ortho2N{}
	}
}

// uniform returns a length-n slice of v repeated.
func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Run drives mega-iterations until the barrier's mesh converges, a budget
// is exceeded, or ctx is cancelled, and returns the best feasible
// incumbent found (or the best infeasible one, if none is feasible), the
// stop reason, and ErrUserTerminated if ctx was the cause (spec.md §7:
// cancellation is reported distinctly from a budget/convergence stop).
func (ec *EngineContext) Run(ctx context.Context) (*eval.EvalPoint, step.StopType, error) {
	var runErr error
	for {
		if ec.Ctx.Stopped() {
			break
		}
		if ctx.Err() != nil {
			ec.Ctx.SetStopReason(step.CtrlC)
			runErr = ErrUserTerminated
			break
		}
		if ec.Mesh.CheckMeshForStopping() {
			ec.Ctx.SetStopReason(step.MinMeshSizeReached)
			break
		}

		mi := &mads.MegaIteration{
			Ctx:                         ec.Ctx.Child(ec.k),
			Mesh:                        ec.Mesh,
			Barrier:                     ec.Barrier,
			K:                           ec.k,
			MaxXFeas:                    ec.MaxXFeas,
			MaxXInf:                    ec.MaxXInf,
			NewSearches:                 ec.NewSearches,
			DirectionType:               spannerFor(ec.Params.DirectionType),
			AnisotropyFactor:            ec.Params.AnisotropyFactor,
			AnisotropicMesh:             ec.Params.AnisotropicMesh,
			GenerateAllPointsBeforeEval: ec.GenerateAllPointsBeforeEval,
			LB:                          ec.Params.LowerBound,
			UB:                          ec.Params.UpperBound,
		}
		success := mi.Run(ec.Control)
		logMegaIteration(ec.StatsDB, ec.k, ec.Control.Counters.BBEval.Load(), ec.best(), success)
		ec.k++

		if stop := ec.Control.StopReason(); stop.Terminates() {
			ec.Ctx.SetStopReason(stop)
			break
		}
	}
	return ec.best(), ec.Ctx.StopReason, runErr
}

func (ec *EngineContext) best() *eval.EvalPoint {
	if p := ec.Barrier.GetFirstXFeas(); p != nil {
		return p
	}
	return ec.Barrier.GetFirstXInf()
}

// Close releases StatsDB, if one was opened.
func (ec *EngineContext) Close() error {
	if ec.StatsDB != nil {
		return ec.StatsDB.Close()
	}
	return nil
}

// statsDB opens an optional STATS_FILE sqlite database for iteration
// logging, grounded directly in pattern.Method.Db/swarm.Method.Db's
// database/sql usage; returns nil, nil if StatsFile is unset.
func statsDB(p *param.Params) (*sql.DB, error) {
	if p.StatsFile == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", p.StatsFile)
	if err != nil {
		return nil, fmt.Errorf("solver: open stats db: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS megaiterations (
		k INTEGER, bbeval INTEGER, best_f REAL, success TEXT
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("solver: create stats table: %w", err)
	}
	return db, nil
}

func logMegaIteration(db *sql.DB, k int, bbeval int64, best *eval.EvalPoint, success eval.SuccessType) {
	if db == nil {
		return
	}
	f := nmath.Undefined()
	if best != nil {
		f = best.F()
	}
	_, _ = db.Exec(`INSERT INTO megaiterations VALUES (?,?,?,?)`, k, bbeval, f.Value(), success.String())
}

// randomPickup cycles through a permutation of [0,n), refreshing with a new
// permutation once exhausted, grounded on
// original_source/src/Math/RandomPickup.{hpp,cpp}'s "distinct picks until
// exhausted, then reshuffle" contract.
type randomPickup struct {
	rng   *rand.Rand
	order []int
	pos   int
}

func newRandomPickup(n int, rng *rand.Rand) *randomPickup {
	rp := &randomPickup{rng: rng}
	rp.reset(n)
	return rp
}

func (rp *randomPickup) reset(n int) {
	rp.order = rp.rng.Perm(n)
	rp.pos = 0
}

func (rp *randomPickup) pickup() int {
	if rp.pos >= len(rp.order) {
		rp.reset(len(rp.order))
	}
	v := rp.order[rp.pos]
	rp.pos++
	return v
}

// fixedVariableMask builds a subproblem mask that frees the coordinates
// listed in free and fixes every other coordinate to best's value.
func fixedVariableMask(best nmath.Point, free []int) nmath.Point {
	freeSet := make(map[int]bool, len(free))
	for _, i := range free {
		freeSet[i] = true
	}
	arr := make(nmath.ArrayOfDouble, best.Len())
	for i := 0; i < best.Len(); i++ {
		if freeSet[i] {
			arr[i] = nmath.Undefined()
		} else {
			arr[i] = best.At(i)
		}
	}
	return nmath.NewPointFromArray(arr)
}
