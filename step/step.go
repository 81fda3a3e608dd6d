// Package step implements NOMAD's start/run/end step contract and its typed
// stop-reason hierarchy, per spec.md §4.7.
//
// Grounded on original_source/src/Util/StopReason.hpp (the
// BaseStopType/MadsStopType/EvalStopType/IterStopType/NMStopType/LHStopType
// enums and their checkTerminate() semantics) and rwcarlsen-cloudlus's
// plain-struct state style (no class hierarchy; cloudlus/job.go's
// string-constant Status field is the same flavor of "small state enum on a
// struct", here promoted to a typed int with a Terminates() method instead
// of opaque strings).
package step

// StopType is a single flat enumeration covering every category the
// original keeps as separate C++ enums (Base/Mads/Eval/Iter/NM/LH/Model):
// a step cares only whether its own stop reason terminates its enclosing
// algorithm, so one type with a Terminates method serves every category
// without the templated-dictionary machinery the C++ source uses to keep
// them distinct.
type StopType int

const (
	// Started is the zero value: no stop reason set yet.
	Started StopType = iota

	// Base stop types: can occur at any level.
	MaxTimeReached
	InitializationFailed
	Error
	UnknownStopReason
	CtrlC
	UserStopped

	// Eval stop types.
	MaxBBEvalReached
	LapMaxBBEvalReached
	MaxEvalReached
	OpportunisticSuccess
	EmptyListOfPoints
	AllPointsEvaluated
	MaxBlockEvalReached
	MaxSgteEvalReached

	// Iter stop types.
	MaxIterReached
	StopOnFeas

	// Mads stop types.
	MeshPrecReached
	MinMeshSizeReached
	MinFrameSizeReached
	X0Fail
	POneSearchFailed

	// Nelder-Mead stop types.
	TooSmallSimplex
	SimplexRankInsufficient
	NMInitialFailed
	ReflectFailed
	ExpansionFailed
	OutsideContractionFailed
	InsideContractionFailed
	ShrinkFailed
	UndefinedStep
	InsertionFailed
	NMX0Failed
	NMSingleCompleted
	NMStopOnSuccess

	// Latin Hypercube stop types.
	NoPointsGenerated

	// Model (quadratic/sgtelib) stop types.
	OracleFail
	ModelOptimizerFail
	NoPointsToBuildModel
	NoNewPointsFound
	ModelEvalFail
)

var names = map[StopType]string{
	Started:                  "STARTED",
	MaxTimeReached:           "MAX_TIME_REACHED",
	InitializationFailed:     "INITIALIZATION_FAILED",
	Error:                    "ERROR",
	UnknownStopReason:        "UNKNOWN_STOP_REASON",
	CtrlC:                    "CTRL_C",
	UserStopped:              "USER_STOPPED",
	MaxBBEvalReached:         "MAX_BB_EVAL_REACHED",
	LapMaxBBEvalReached:      "LAP_MAX_BB_EVAL_REACHED",
	MaxEvalReached:           "MAX_EVAL_REACHED",
	OpportunisticSuccess:     "OPPORTUNISTIC_SUCCESS",
	EmptyListOfPoints:        "EMPTY_LIST_OF_POINTS",
	AllPointsEvaluated:       "ALL_POINTS_EVALUATED",
	MaxBlockEvalReached:      "MAX_BLOCK_EVAL_REACHED",
	MaxSgteEvalReached:       "MAX_SGTE_EVAL_REACHED",
	MaxIterReached:           "MAX_ITER_REACHED",
	StopOnFeas:               "STOP_ON_FEAS",
	MeshPrecReached:          "MESH_PREC_REACHED",
	MinMeshSizeReached:       "MIN_MESH_SIZE_REACHED",
	MinFrameSizeReached:      "MIN_FRAME_SIZE_REACHED",
	X0Fail:                   "X0_FAIL",
	POneSearchFailed:         "PONE_SEARCH_FAILED",
	TooSmallSimplex:          "TOO_SMALL_SIMPLEX",
	SimplexRankInsufficient:  "SIMPLEX_RANK_INSUFFICIENT",
	NMInitialFailed:          "INITIAL_FAILED",
	ReflectFailed:            "REFLECT_FAILED",
	ExpansionFailed:          "EXPANSION_FAILED",
	OutsideContractionFailed: "OUTSIDE_CONTRACTION_FAILED",
	InsideContractionFailed:  "INSIDE_CONTRACTION_FAILED",
	ShrinkFailed:             "SHRINK_FAILED",
	UndefinedStep:            "UNDEFINED_STEP",
	InsertionFailed:          "INSERTION_FAILED",
	NMX0Failed:               "X0_FAILED",
	NMSingleCompleted:        "NM_SINGLE_COMPLETED",
	NMStopOnSuccess:          "NM_STOP_ON_SUCCESS",
	NoPointsGenerated:        "NO_POINTS_GENERATED",
	OracleFail:               "ORACLE_FAIL",
	ModelOptimizerFail:       "MODEL_OPTIMIZER_FAIL",
	NoPointsToBuildModel:     "NO_POINTS",
	NoNewPointsFound:         "NO_NEW_POINTS_FOUND",
	ModelEvalFail:            "EVAL_FAIL",
}

func (s StopType) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "UNKNOWN_STOP_REASON"
}

// nonTerminating lists stop reasons that, per the original's
// checkTerminate() specializations, do NOT require the enclosing algorithm
// to halt: Started (no stop yet), and the eval-level bookkeeping reasons
// that only end the current block/iteration (OpportunisticSuccess,
// AllPointsEvaluated, EmptyListOfPoints) rather than the whole algorithm.
var nonTerminating = map[StopType]bool{
	Started:              true,
	OpportunisticSuccess: true,
	AllPointsEvaluated:   true,
	EmptyListOfPoints:    true,
}

// Terminates reports whether this stop reason requires its enclosing
// algorithm to halt (spec.md §4.7: "each variant's checkTerminate() returns
// a fixed true/false").
func (s StopType) Terminates() bool { return !nonTerminating[s] }

// State is a step's lifecycle state (spec.md §4.7: "created → started →
// running → ended").
type State int

const (
	Created State = iota
	StartedState
	Running
	Ended
)

// Runner is the start/run/end contract every step implements. Run returns
// whether the step produced a success (spec.md §4.7).
type Runner interface {
	Start() error
	Run() (success bool, err error)
	End() error
}
