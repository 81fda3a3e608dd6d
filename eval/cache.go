package eval

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rwcarlsen/nomad/nmath"
)

// cacheMagic identifies the CACHE_FILE binary format (spec.md §4.3).
const cacheMagic = uint32(0x4e4f4d41) // "NOMA"

// Cache is a content-addressed, thread-safe store of evaluated points keyed
// by coordinate tuple. At most one entry exists per coordinate tuple
// (points distinct by more than nmath.Eps in any dimension are distinct
// entries). Grounded on optim.CacheEvaler's hash-keyed map
// (github.com/rwcarlsen/optim, optim.go), generalized to the richer
// EvalPoint/smart-insert/best-point-query contract of
// original_source/src/Cache.
type Cache struct {
	mu      sync.RWMutex
	byHash  map[[20]byte]*EvalPoint
	nextTag int
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{byHash: map[[20]byte]*EvalPoint{}}
}

// SmartInsert atomically decides whether point needs evaluation and, if so,
// registers it as in-progress. It returns needsEval==true when:
//   - there is no existing entry for point's coordinates (a fresh
//     in-progress entry is inserted), or
//   - an entry exists with status Ok and maxEval > 1 (re-evaluation is
//     allowed; status is left Ok until the caller calls Insert with a fresh
//     Eval).
//
// No per-point evaluation count is kept, so with maxEval > 1 a settled Ok
// entry is offered for re-evaluation on every call, however many times it
// has already been evaluated. typ is not consulted. Otherwise it returns
// false: the cache already has a settled answer for this point.
func (c *Cache) SmartInsert(point nmath.Point, maxEval int, typ EvalType) (ep *EvalPoint, needsEval bool) {
	h := point.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byHash[h]; ok {
		if existing.Status == InProgress {
			return existing, false
		}
		if existing.Status == Ok {
			if maxEval <= 1 {
				return existing, false
			}
			return existing, true
		}
		return existing, false
	}

	ep = NewEvalPoint(point, uuid.Nil)
	ep.Tag = c.nextTag
	c.nextTag++
	ep.Status = InProgress
	c.byHash[h] = ep
	return ep, true
}

// Insert records ep's evaluation result in the cache (overwriting any
// in-progress placeholder for the same coordinates). Insertion is atomic
// with respect to concurrent readers.
func (c *Cache) Insert(ep *EvalPoint) {
	h := ep.Point.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash[h] = ep
}

// Find returns the cached EvalPoint for point's coordinates, if any.
// Readers may observe in-progress entries (spec.md §3).
func (c *Cache) Find(point nmath.Point) (*EvalPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ep, ok := c.byHash[point.Hash()]
	return ep, ok
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byHash)
}

// All returns a snapshot of every cached point, in unspecified order.
func (c *Cache) All() []*EvalPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*EvalPoint, 0, len(c.byHash))
	for _, ep := range c.byHash {
		out = append(out, ep)
	}
	return out
}

// FindBestFeas returns the feasible (h==0) point with smallest f, among
// points compatible with the given fixed-variable mask (nil mask means "no
// restriction").
func (c *Cache) FindBestFeas(mask nmath.ArrayOfDouble) (*EvalPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *EvalPoint
	for _, ep := range c.byHash {
		if ep.Status != Ok || !ep.Feasible() {
			continue
		}
		if mask != nil && !ep.Point.CompatibleWithMask(mask) {
			continue
		}
		if best == nil || ep.F().Lt(best.F()) {
			best = ep
		}
	}
	return best, best != nil
}

// FindBestInf returns the infeasible point (0 < h <= hMax) with smallest
// (h, f) lexicographically, among points compatible with mask.
func (c *Cache) FindBestInf(hMax nmath.Double, mask nmath.ArrayOfDouble) (*EvalPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *EvalPoint
	for _, ep := range c.byHash {
		if ep.Status != Ok {
			continue
		}
		h := ep.H()
		if !h.IsDefined() || h.Value() <= 0 {
			continue
		}
		if hMax.IsDefined() && h.Value() > hMax.Value() {
			continue
		}
		if mask != nil && !ep.Point.CompatibleWithMask(mask) {
			continue
		}
		if best == nil {
			best = ep
			continue
		}
		bh := best.H()
		if h.Lt(bh) || (h.Equal(bh) && ep.F().Lt(best.F())) {
			best = ep
		}
	}
	return best, best != nil
}

// ClearModelEval removes EvalTypeModelSurrogate results from every entry,
// used to discard a stale quadratic model's cached predictions between
// trust-region rebuilds. threadId is accepted for API parity with the
// per-thread clearing the original supports but is unused: this port keeps
// one shared cache, not per-thread shards.
func (c *Cache) ClearModelEval(threadId int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ep := range c.byHash {
		delete(ep.Evals, EvalTypeModelSurrogate)
	}
}

// cacheRecord is the on-disk shape of one Cache entry (spec.md §4.3:
// "length-prefixed records of (coordinates, eval-kind, f, h, status,
// bbo-echo)").
type cacheRecord struct {
	Coords []float64
	Kind   EvalType
	F, H   float64
	Status Status
	Raw    string
}

// Save writes the cache as an append-only binary file: a header
// {magic, dim, evalType bitmap} followed by length-prefixed records.
func (c *Cache) Save(w io.Writer, dim int, typeBitmap uint32) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, cacheMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, typeBitmap); err != nil {
		return err
	}

	for _, ep := range c.byHash {
		for _, e := range ep.Evals {
			rec := cacheRecord{
				Coords: ep.Point.Floats(),
				Kind:   e.Type,
				F:      e.F.Value(),
				H:      e.H.Value(),
				Status: ep.Status,
				Raw:    e.Raw,
			}
			if err := writeRecord(bw, rec); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeRecord(w io.Writer, rec cacheRecord) error {
	var buf []byte
	for _, c := range rec.Coords {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(c))
		buf = append(buf, b...)
	}
	hdr := make([]byte, 4+8+8+4)
	binary.LittleEndian.PutUint32(hdr[0:], uint32(rec.Kind))
	binary.LittleEndian.PutUint64(hdr[4:], math.Float64bits(rec.F))
	binary.LittleEndian.PutUint64(hdr[12:], math.Float64bits(rec.H))
	binary.LittleEndian.PutUint32(hdr[20:], uint32(rec.Status))
	rawBytes := []byte(rec.Raw)

	length := uint32(len(hdr) + len(buf) + 4 + len(rawBytes))
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(rawBytes))); err != nil {
		return err
	}
	_, err := w.Write(rawBytes)
	return err
}

// Load reads a cache file written by Save. Loading tolerates an incomplete
// trailing record (spec.md §4.3): a short final read stops loading without
// error instead of failing the whole load.
func (c *Cache) Load(r io.Reader, dim int) error {
	br := bufio.NewReader(r)
	var magic, fileDim, bitmap uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != cacheMagic {
		return fmt.Errorf("eval: bad cache file magic")
	}
	if err := binary.Read(br, binary.LittleEndian, &fileDim); err != nil {
		return err
	}
	if err := binary.Read(br, binary.LittleEndian, &bitmap); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		var length uint32
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			if err == io.EOF {
				return nil
			}
			return nil // tolerate incomplete trailing length prefix
		}
		body := make([]byte, length)
		n, err := io.ReadFull(br, body)
		if n < len(body) {
			return nil // tolerate incomplete trailing record
		}
		if err != nil {
			return nil
		}
		rec, ok := parseRecord(body, int(fileDim))
		if !ok {
			return nil
		}
		pt := nmath.NewPoint(rec.Coords)
		ep := NewEvalPoint(pt, uuid.Nil)
		ep.Status = rec.Status
		ep.SetEval(Eval{Type: rec.Kind, F: nmath.NewDouble(rec.F), H: nmath.NewDouble(rec.H), Raw: rec.Raw, Ok: rec.Status == Ok})
		c.byHash[pt.Hash()] = ep
	}
}

func parseRecord(body []byte, dim int) (cacheRecord, bool) {
	coordBytes := dim * 8
	if len(body) < coordBytes+20 {
		return cacheRecord{}, false
	}
	coords := make([]float64, dim)
	for i := 0; i < dim; i++ {
		coords[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:]))
	}
	hdr := body[coordBytes:]
	kind := EvalType(binary.LittleEndian.Uint32(hdr[0:]))
	f := math.Float64frombits(binary.LittleEndian.Uint64(hdr[4:]))
	h := math.Float64frombits(binary.LittleEndian.Uint64(hdr[12:]))
	status := Status(binary.LittleEndian.Uint32(hdr[20:]))
	rest := hdr[24:]
	if len(rest) < 4 {
		return cacheRecord{}, false
	}
	rawLen := binary.LittleEndian.Uint32(rest[0:])
	if len(rest) < int(4+rawLen) {
		return cacheRecord{}, false
	}
	raw := string(rest[4 : 4+rawLen])
	return cacheRecord{Coords: coords, Kind: kind, F: f, H: h, Status: status, Raw: raw}, true
}
