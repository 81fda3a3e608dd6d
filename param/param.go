// Package param holds NOMAD's run configuration and a minimal parser for
// the `KEYWORD value...` parameter-file format (spec.md §6).
//
// Grounded on rwcarlsen-cloudlus's `cmd/pswarmdriver/main.go`, which builds
// its entire run configuration from a flat set of `flag.String`/`flag.Int`/
// `flag.Float64` variables read once at startup; we keep that "one flat
// struct populated before the solver ever runs" shape but read it from a
// text file instead of flags, since spec.md §6 specifies a parameter file,
// not a CLI-flag surface. This intentionally does NOT implement NOMAD's
// full attribute-registration metadata system (type-checked, introspectable
// attributes with per-attribute help text) — that system's generality is an
// explicit non-goal (spec.md §1); nothing in the example pack implements an
// equivalent, so a flat struct + line parser is the right-sized substitute.
package param

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Params is the full set of configuration values this port understands.
// Fields default to their zero value, which New fills with NOMAD's usual
// defaults.
type Params struct {
	Dimension int

	X0         []float64
	LowerBound []float64
	UpperBound []float64
	Granularity []float64

	BBExe        string
	BBOutputType []string

	InitialMeshSize  []float64
	InitialFrameSize []float64
	MinMeshSize      []float64
	MinFrameSize     []float64

	MaxBBEval int64
	MaxEval   int64

	NbThreadsParallelEval int
	BBMaxBlockSize        int
	OpportunisticEval     bool

	DirectionType    string
	AnisotropicMesh  bool
	AnisotropyFactor float64

	QuadModelSearch   bool
	NMSearch          bool
	VNSSearch         bool
	SpeculativeSearch bool
	LHSearchPoints    int
	LineSearch        bool

	Seed int64

	SolutionFile string
	HistoryFile  string
	CacheFile    string
	StatsFile    string

	DisplayDegree int
}

// New returns Params populated with NOMAD's stated defaults (spec.md §4
// design notes): single-threaded, opportunistic evaluation on, Ortho-2n
// polling.
func New() *Params {
	return &Params{
		NbThreadsParallelEval: 1,
		BBMaxBlockSize:        1,
		OpportunisticEval:     true,
		DirectionType:         "ORTHO_2N",
		AnisotropicMesh:       true,
		AnisotropyFactor:      0.1,
		QuadModelSearch:       true,
		SpeculativeSearch:     true,
		Seed:                  1,
		DisplayDegree:         2,
	}
}

// Load reads a parameter file from path.
func Load(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("param: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a parameter file from r: one `KEYWORD value[...]` per line,
// `#` begins a trailing comment, blank lines are ignored (spec.md §6).
func Parse(r io.Reader) (*Params, error) {
	p := New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToUpper(fields[0])
		values := fields[1:]
		if err := p.set(keyword, values); err != nil {
			return nil, fmt.Errorf("param: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("param: scan: %w", err)
	}
	return p, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func (p *Params) set(keyword string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%s: no value given", keyword)
	}
	switch keyword {
	case "DIMENSION":
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("DIMENSION: %w", err)
		}
		p.Dimension = n
	case "X0":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("X0: %w", err)
		}
		p.X0 = vs
	case "LOWER_BOUND":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("LOWER_BOUND: %w", err)
		}
		p.LowerBound = vs
	case "UPPER_BOUND":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("UPPER_BOUND: %w", err)
		}
		p.UpperBound = vs
	case "GRANULARITY":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("GRANULARITY: %w", err)
		}
		p.Granularity = vs
	case "INITIAL_MESH_SIZE":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("INITIAL_MESH_SIZE: %w", err)
		}
		p.InitialMeshSize = vs
	case "INITIAL_FRAME_SIZE":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("INITIAL_FRAME_SIZE: %w", err)
		}
		p.InitialFrameSize = vs
	case "MIN_MESH_SIZE":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("MIN_MESH_SIZE: %w", err)
		}
		p.MinMeshSize = vs
	case "MIN_FRAME_SIZE":
		vs, err := parseArrayOfDouble(values)
		if err != nil {
			return fmt.Errorf("MIN_FRAME_SIZE: %w", err)
		}
		p.MinFrameSize = vs
	case "BB_EXE":
		p.BBExe = strings.Join(values, " ")
	case "BB_OUTPUT_TYPE":
		p.BBOutputType = append([]string{}, values...)
	case "MAX_BB_EVAL":
		n, err := parseSizeT(values[0])
		if err != nil {
			return fmt.Errorf("MAX_BB_EVAL: %w", err)
		}
		p.MaxBBEval = n
	case "MAX_EVAL":
		n, err := parseSizeT(values[0])
		if err != nil {
			return fmt.Errorf("MAX_EVAL: %w", err)
		}
		p.MaxEval = n
	case "NB_THREADS_PARALLEL_EVAL":
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("NB_THREADS_PARALLEL_EVAL: %w", err)
		}
		p.NbThreadsParallelEval = n
	case "BB_MAX_BLOCK_SIZE":
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("BB_MAX_BLOCK_SIZE: %w", err)
		}
		p.BBMaxBlockSize = n
	case "OPPORTUNISTIC_EVAL":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("OPPORTUNISTIC_EVAL: %w", err)
		}
		p.OpportunisticEval = b
	case "DIRECTION_TYPE":
		p.DirectionType = strings.ToUpper(values[0])
	case "ANISOTROPIC_MESH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("ANISOTROPIC_MESH: %w", err)
		}
		p.AnisotropicMesh = b
	case "ANISOTROPY_FACTOR":
		f, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return fmt.Errorf("ANISOTROPY_FACTOR: %w", err)
		}
		p.AnisotropyFactor = f
	case "QUAD_MODEL_SEARCH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("QUAD_MODEL_SEARCH: %w", err)
		}
		p.QuadModelSearch = b
	case "NM_SEARCH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("NM_SEARCH: %w", err)
		}
		p.NMSearch = b
	case "VNS_SEARCH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("VNS_SEARCH: %w", err)
		}
		p.VNSSearch = b
	case "SPECULATIVE_SEARCH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("SPECULATIVE_SEARCH: %w", err)
		}
		p.SpeculativeSearch = b
	case "LH_SEARCH":
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("LH_SEARCH: %w", err)
		}
		p.LHSearchPoints = n
	case "LINE_SEARCH":
		b, err := parseBool(values[0])
		if err != nil {
			return fmt.Errorf("LINE_SEARCH: %w", err)
		}
		p.LineSearch = b
	case "SEED":
		n, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil {
			return fmt.Errorf("SEED: %w", err)
		}
		p.Seed = n
	case "SOLUTION_FILE":
		p.SolutionFile = values[0]
	case "HISTORY_FILE":
		p.HistoryFile = values[0]
	case "CACHE_FILE":
		p.CacheFile = values[0]
	case "STATS_FILE":
		p.StatsFile = values[0]
	case "DISPLAY_DEGREE":
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("DISPLAY_DEGREE: %w", err)
		}
		p.DisplayDegree = n
	default:
		return fmt.Errorf("unknown keyword %q", keyword)
	}
	return nil
}

// parseArrayOfDouble parses a space-separated list possibly wrapped in
// "( ... )", allowing "INF"/"-INF" per entry (spec.md §6).
func parseArrayOfDouble(values []string) ([]float64, error) {
	values = stripParens(values)
	out := make([]float64, len(values))
	for i, s := range values {
		v, err := parseDouble(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func stripParens(values []string) []string {
	if len(values) == 0 {
		return values
	}
	first, last := values[0], values[len(values)-1]
	if strings.HasPrefix(first, "(") || strings.HasSuffix(last, ")") {
		out := make([]string, len(values))
		copy(out, values)
		out[0] = strings.TrimPrefix(out[0], "(")
		out[len(out)-1] = strings.TrimSuffix(out[len(out)-1], ")")
		filtered := out[:0]
		for _, v := range out {
			if v != "" {
				filtered = append(filtered, v)
			}
		}
		return filtered
	}
	return values
}

func parseDouble(s string) (float64, error) {
	switch strings.ToUpper(s) {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseSizeT(s string) (int64, error) {
	if strings.EqualFold(s, "INF") {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a bool: %q", s)
}
