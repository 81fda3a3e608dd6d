package queue

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rwcarlsen/nomad/blackbox"
	"github.com/rwcarlsen/nomad/eval"
	"github.com/rwcarlsen/nomad/step"
)

// Budgets bounds an EvaluatorControl run; a zero field means "unbounded"
// (spec.md §4.6 counters/budgets).
type Budgets struct {
	MaxBBEval      int64
	MaxEval        int64
	MaxBlockEval   int64
	LapMaxBBEval   int64
	MaxSgteEval    int64
}

// Counters holds EvaluatorControl's atomic, monotonically-increasing
// evaluation counters (spec.md §4.6/§5: "atomic integers, monotonic
// increments only"), grounded in viamrobotics-rdk's pervasive use of
// go.uber.org/atomic for the same purpose.
type Counters struct {
	BBEval    atomic.Int64
	EvalCount atomic.Int64
	SgteEval  atomic.Int64
	BlockEval atomic.Int64
	LapBBEval atomic.Int64
	SubBBEval atomic.Int64
}

// Control is NOMAD's EvaluatorControl: it owns the Queue, pops blocks from
// it and evaluates each block against an Evaluator in its own goroutine (at
// most NumWorkers at a time), folds results back into a Cache and Barrier,
// and enforces
// opportunistic cutoff and evaluation budgets.
//
// Grounded on github.com/rwcarlsen/optim's ParallelEvaler
// goroutine-per-point pattern (vendored inside rwcarlsen-cloudlus; its
// ParallelEvaler spawns one goroutine per point over a WaitGroup); here
// bounded by golang.org/x/sync/semaphore.Weighted and orchestrated by
// golang.org/x/sync/errgroup so a cancellation request never aborts an
// in-flight evaluator call (spec.md §5).
type Control struct {
	Queue      *Queue
	Evaluator  *blackbox.Evaluator
	Cache      *eval.Cache
	Barrier    *eval.Barrier
	EvalType   eval.EvalType
	NumWorkers int
	BlockSize  int
	Opportunistic bool
	Budgets    Budgets
	Counters   Counters

	mu   sync.Mutex
	stop step.StopType
}

// NewControl builds a Control with the given number of workers (1 = single-
// threaded cooperative, per spec.md §4.6) and max block size.
func NewControl(q *Queue, evaler *blackbox.Evaluator, cache *eval.Cache, barrier *eval.Barrier, typ eval.EvalType, numWorkers, blockSize int) *Control {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if blockSize < 1 {
		blockSize = 1
	}
	return &Control{
		Queue: q, Evaluator: evaler, Cache: cache, Barrier: barrier,
		EvalType: typ, NumWorkers: numWorkers, BlockSize: blockSize,
	}
}

// StopReason returns the stop reason Control has observed so far.
func (c *Control) StopReason() step.StopType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop
}

func (c *Control) setStop(s step.StopType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop.Terminates() {
		return
	}
	c.stop = s
}

// Run drains the queue, dispatching blocks of up to BlockSize points across
// NumWorkers goroutines, until the queue empties, a budget is exceeded, or
// ctx is cancelled. It returns the accumulated success classification
// across all evaluated points in this run and the stop reason, if any,
// that ended it.
//
// Each worker loop matches spec.md §4.6 exactly: pop block -> evaluate
// block -> for each point: update cache status; classify against barrier;
// increment counters; if opportunistic and success: set
// OPPORTUNISTIC_SUCCESS and clear the remainder of the queue generated by
// the same iteration. Run checks the budgets and ctx between blocks, not
// within a block, so no evaluator call is aborted mid-flight.
func (c *Control) Run(ctx context.Context) (eval.SuccessType, step.StopType) {
	sem := semaphore.NewWeighted(int64(c.NumWorkers))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	best := eval.Unsuccessful

	for {
		// Acquire before the budget check: with the previous block finished,
		// its evaluations are already counted.
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		if c.budgetExceeded() {
			break
		}
		select {
		case <-gctx.Done():
			goto drain
		default:
		}
		block := c.Queue.PopBlock(c.BlockSize)
		if len(block) == 0 {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			s := c.evalBlock(gctx, block)
			mu.Lock()
			if s > best {
				best = s
			}
			mu.Unlock()
			return nil
		})
	}
drain:
	g.Wait()

	if c.budgetExceeded() {
		c.setStop(c.budgetStopReason())
	}
	if err := ctx.Err(); err != nil {
		c.setStop(step.CtrlC)
	}
	return best, c.StopReason()
}

func (c *Control) evalBlock(ctx context.Context, block []*EvalQueuePoint) eval.SuccessType {
	xs := make([][]float64, len(block))
	for i, p := range block {
		xs[i] = p.Point.Floats()
	}

	results, err := c.Evaluator.EvalBlock(ctx, xs)
	c.Counters.BlockEval.Inc()
	if err != nil {
		for _, p := range block {
			p.SetEval(eval.NewFailedEval(c.EvalType))
		}
		return eval.Unsuccessful
	}

	best := eval.Unsuccessful
	evaluated := make([]*eval.EvalPoint, 0, len(block))
	for i, p := range block {
		r := results[i]
		p.SetEval(r.ToEval(c.EvalType))
		c.Counters.EvalCount.Inc()
		if c.EvalType == eval.EvalTypeBB {
			c.Counters.BBEval.Inc()
			c.Counters.LapBBEval.Inc()
		} else {
			c.Counters.SgteEval.Inc()
		}

		if c.Cache != nil {
			c.Cache.Insert(p.EvalPoint)
		}
		s := eval.Unsuccessful
		if c.Barrier != nil {
			s = c.Barrier.Classify(p.EvalPoint)
			if s != eval.Unsuccessful {
				evaluated = append(evaluated, p.EvalPoint)
			}
		}
		p.Success = s
		if s > best {
			best = s
		}
		if c.Opportunistic && s != eval.Unsuccessful {
			p.Opportunistic = "OPPORTUNISTIC_SUCCESS"
			c.setStop(step.OpportunisticSuccess)
			c.Queue.ClearFromIteration(p.Iteration)
		}
	}
	if c.Barrier != nil && len(evaluated) > 0 {
		c.Barrier.UpdateWithPoints(evaluated)
	}
	return best
}

func (c *Control) budgetExceeded() bool {
	b := c.Budgets
	switch {
	case b.MaxBBEval > 0 && c.Counters.BBEval.Load() >= b.MaxBBEval:
		return true
	case b.MaxEval > 0 && c.Counters.EvalCount.Load() >= b.MaxEval:
		return true
	case b.MaxBlockEval > 0 && c.Counters.BlockEval.Load() >= b.MaxBlockEval:
		return true
	case b.LapMaxBBEval > 0 && c.Counters.LapBBEval.Load() >= b.LapMaxBBEval:
		return true
	case b.MaxSgteEval > 0 && c.Counters.SgteEval.Load() >= b.MaxSgteEval:
		return true
	}
	return false
}

func (c *Control) budgetStopReason() step.StopType {
	b := c.Budgets
	switch {
	case b.MaxBBEval > 0 && c.Counters.BBEval.Load() >= b.MaxBBEval:
		return step.MaxBBEvalReached
	case b.MaxEval > 0 && c.Counters.EvalCount.Load() >= b.MaxEval:
		return step.MaxEvalReached
	case b.MaxBlockEval > 0 && c.Counters.BlockEval.Load() >= b.MaxBlockEval:
		return step.MaxBlockEvalReached
	case b.LapMaxBBEval > 0 && c.Counters.LapBBEval.Load() >= b.LapMaxBBEval:
		return step.LapMaxBBEvalReached
	case b.MaxSgteEval > 0 && c.Counters.SgteEval.Load() >= b.MaxSgteEval:
		return step.MaxSgteEvalReached
	}
	return step.Started
}

// ResetLap resets the lap counter for a sub-algorithm run (spec.md §4.6:
// "lapBbEval (resettable for sub-algorithms)").
func (c *Control) ResetLap() { c.Counters.LapBBEval.Store(0) }
