// Package queue implements NOMAD's priority-ordered evaluation queue and
// EvaluatorControl worker-pool dispatch, per spec.md §4.6.
//
// Grounded on container/heap (the priority queue) and
// golang.org/x/sync/errgroup + golang.org/x/sync/semaphore for the bounded
// worker pool, replacing rwcarlsen-cloudlus's hand-rolled channel/WaitGroup
// server dispatch in cloudlus/worker.go with a cancelable, bounded-
// concurrency idiom.
package queue

import (
	"container/heap"
	"sync"

	"github.com/rwcarlsen/nomad/eval"
)

// EvalQueuePoint is an eval.EvalPoint plus the generation metadata spec.md
// §3 defines for a queued point: the mesh/frame size in effect when it was
// generated, its originating iteration index, the generating step's name,
// and (once evaluated) its success classification and an opportunistic
// comment.
type EvalQueuePoint struct {
	*eval.EvalPoint
	MeshSize         []float64
	FrameSize        []float64
	Iteration        int
	GeneratingStep   string
	Success          eval.SuccessType
	Opportunistic    string
	priorityIdx      int // heap bookkeeping
	insertionOrder   int // tie-break preserving push order within one iteration
}

// ComparePriority orders two queued points; Less(a, b) true means a is
// popped before b. Implementations are the pluggable priorities of spec.md
// §4.6: lexicographic, random, last-successful-direction cosine,
// quadratic-surrogate f-value, static-surrogate, or a user callback.
type ComparePriority func(a, b *EvalQueuePoint) bool

// Lexicographic orders points by their coordinate tuple, smallest first.
func Lexicographic(a, b *EvalQueuePoint) bool {
	return a.Point.WeakLess(b.Point)
}

// pqueue is the container/heap-backed priority queue. It is not
// synchronized itself; Queue wraps it with a mutex.
type pqueue struct {
	items []*EvalQueuePoint
	less  ComparePriority
}

func (q *pqueue) Len() int { return len(q.items) }
func (q *pqueue) Less(i, j int) bool {
	if q.less != nil && q.less(q.items[i], q.items[j]) {
		return true
	}
	if q.less != nil && q.less(q.items[j], q.items[i]) {
		return false
	}
	// stable tie-break: preserve push order (spec.md §4.6: "Sorting is
	// stable for ties").
	return q.items[i].insertionOrder < q.items[j].insertionOrder
}
func (q *pqueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].priorityIdx = i
	q.items[j].priorityIdx = j
}
func (q *pqueue) Push(x any) {
	p := x.(*EvalQueuePoint)
	p.priorityIdx = len(q.items)
	q.items = append(q.items, p)
}
func (q *pqueue) Pop() any {
	n := len(q.items)
	p := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return p
}

// Queue is a thread-safe priority queue of EvalQueuePoints. Producers Push
// under a lock; the consumer side Pops the front element or a block of up
// to a given size (spec.md §4.6).
//
// Unlike spec.md §5's CV-blocked-workers description, PopBlock never blocks:
// EvaluatorControl's worker pool generates a full iteration's points up
// front and drains the queue until empty, so there is no waiting consumer
// to wake and no condition variable to wait on.
type Queue struct {
	mu  sync.Mutex
	pq  pqueue
	seq int
}

// NewQueue builds an empty Queue ordered by cmp (nil means Lexicographic).
func NewQueue(cmp ComparePriority) *Queue {
	if cmp == nil {
		cmp = Lexicographic
	}
	return &Queue{pq: pqueue{less: cmp}}
}

// SetComparePriority swaps the ordering comparator and re-heapifies.
func (q *Queue) SetComparePriority(cmp ComparePriority) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pq.less = cmp
	heap.Init(&q.pq)
}

// Push inserts p into the queue under a lock.
func (q *Queue) Push(p *EvalQueuePoint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p.insertionOrder = q.seq
	q.seq++
	heap.Push(&q.pq, p)
}

// Len returns the number of points currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Len()
}

// PopBlock pops up to n points (fewer if the queue holds less), in priority
// order. PopBlock never blocks: an empty queue returns an empty slice.
func (q *Queue) PopBlock(n int) []*EvalQueuePoint {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*EvalQueuePoint
	for len(out) < n && q.pq.Len() > 0 {
		out = append(out, heap.Pop(&q.pq).(*EvalQueuePoint))
	}
	return out
}

// ClearFromIteration removes every queued point generated at or after
// iteration it, returning how many were removed,
// implementing the opportunistic-cutoff rule of spec.md §4.6: "clear
// remainder of queue generated by the same iteration."
func (q *Queue) ClearFromIteration(it int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.pq.items[:0]
	removed := 0
	for _, p := range q.pq.items {
		if p.Iteration >= it {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	q.pq.items = kept
	for i, p := range q.pq.items {
		p.priorityIdx = i
	}
	heap.Init(&q.pq)
	return removed
}
