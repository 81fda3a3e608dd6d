package step

import "go.uber.org/zap"

// Context is the single explicit back-reference object threaded through a
// step tree, replacing the original's pointer-walking
// getParentOfType<Algorithm>() (spec.md §9's design-notes realization:
// "step.Context carries explicit Algorithm/Iteration back-references
// instead of parent-pointer walks").
type Context struct {
	// Algorithm names the owning top-level algorithm run (e.g. "MADS",
	// "PSD-MADS"). Each Context holds its own StopReason value; a Context
	// made by Child starts from a copy of its parent's (spec.md §4.7).
	Algorithm string
	// Iteration is the current mega-iteration/iteration index k.
	Iteration int
	// Log is the structured tracer for this step's start/run/end lines.
	Log *zap.SugaredLogger
	// StopReason is the owning algorithm's current stop reason; a
	// sub-step only reads it, and only an Algorithm step may set it to a
	// value other than Started.
	StopReason StopType
}

// NewContext builds a root Context for an algorithm run.
func NewContext(algorithm string, log *zap.SugaredLogger) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Context{Algorithm: algorithm, Log: log, StopReason: Started}
}

// Child returns a Context for a nested iteration with the same algorithm
// name and logger and a copy of the current stop reason. The stop reason is
// not shared: a later SetStopReason on the child or the parent is not seen
// by the other.
func (c *Context) Child(iteration int) *Context {
	return &Context{Algorithm: c.Algorithm, Iteration: iteration, Log: c.Log, StopReason: c.StopReason}
}

// Stopped reports whether this context's stop reason requires its
// enclosing algorithm to halt.
func (c *Context) Stopped() bool { return c.StopReason.Terminates() }

// SetStopReason records s as this context's stop reason. It never
// overwrites an existing terminating reason with a non-terminating one; a
// later terminating reason does replace an earlier one.
func (c *Context) SetStopReason(s StopType) {
	if c.StopReason.Terminates() && !s.Terminates() {
		return
	}
	c.StopReason = s
}

// Base is an embeddable implementation of the created→started→running→
// ended state machine (spec.md §4.7). Steps embed Base and implement Run
// themselves; Start/End are provided but may be overridden.
type Base struct {
	Ctx   *Context
	Name  string
	state State
}

// NewBase builds a Base step bound to ctx, named name for trace lines.
func NewBase(ctx *Context, name string) Base {
	return Base{Ctx: ctx, Name: name, state: Created}
}

// Start transitions Created/Ended -> StartedState (reentry from Ended is how
// iteration steps increment k) and emits a trace line. It leaves
// Ctx.StopReason unchanged.
func (b *Base) Start() error {
	if b.state != Created && b.state != Ended {
		panic("step: Start called from state " + b.stateName())
	}
	b.state = StartedState
	if b.Ctx != nil && b.Ctx.Log != nil {
		b.Ctx.Log.Infow("step started", "step", b.Name, "iteration", b.Ctx.Iteration)
	}
	return nil
}

// End transitions Running -> Ended and emits a trace line.
func (b *Base) End() error {
	b.state = Ended
	if b.Ctx != nil && b.Ctx.Log != nil {
		b.Ctx.Log.Infow("step ended", "step", b.Name, "stopReason", b.Ctx.StopReason.String())
	}
	return nil
}

// MarkRunning transitions StartedState -> Running; step implementations
// call this at the top of their Run method.
func (b *Base) MarkRunning() { b.state = Running }

// State returns the step's current lifecycle state.
func (b *Base) State() State { return b.state }

func (b *Base) stateName() string {
	switch b.state {
	case Created:
		return "created"
	case StartedState:
		return "started"
	case Running:
		return "running"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}
