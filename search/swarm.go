package search

import (
	"math/rand"

	"github.com/rwcarlsen/nomad/mesh"
	"github.com/rwcarlsen/nomad/nmath"
)

// Swarm runs one particle-swarm move per Generate call: a small fixed
// population of particles orbiting the frame center, each nudged toward its
// own best-seen position and the swarm's global best, using the
// constriction-coefficient velocity update.
//
// Grounded on github.com/rwcarlsen/optim/swarm (swarm.go): Particle.Move's
// velocity equation (v = w*v + c1*r1*(pbest-x) + c2*r2*(gbest-x)) and the
// Clerc/Kennedy constriction constants (DefaultInertia/Cognition/Social),
// adapted from swarm's own global optimization loop (which owns an Evaler
// and iterates to convergence) to a single per-Iteration move: Swarm
// advances its particles' velocities and positions once per Generate call
// and emits their new positions as trial points, relying on the enclosing
// mads.Iteration/queue.Control to evaluate and the barrier to pick the next
// "best".
type Swarm struct {
	N         int
	Inertia   float64
	Cognition float64
	Social    float64
	Rng       *rand.Rand

	particles []particle
}

type particle struct {
	pos, vel, best []float64
	bestVal        float64
}

func (s *Swarm) Name() string { return "PSO" }

const (
	swarmDefaultInertia   = 0.7298437881283576
	swarmDefaultCognition = 1.496179765663133
	swarmDefaultSocial    = 1.496179765663133
)

func (s *Swarm) Generate(center nmath.Point, m *mesh.GMesh, lb, ub []float64) []nmath.Point {
	if s.Rng == nil {
		s.Rng = rand.New(rand.NewSource(1))
	}
	inertia, cognition, social := s.Inertia, s.Cognition, s.Social
	if inertia == 0 {
		inertia = swarmDefaultInertia
	}
	if cognition == 0 {
		cognition = swarmDefaultCognition
	}
	if social == 0 {
		social = swarmDefaultSocial
	}

	c := center.Floats()
	ndim := len(c)
	n := s.N
	if n <= 0 {
		n = 2 * ndim
	}

	if len(s.particles) != n {
		s.particles = make([]particle, n)
		for i := range s.particles {
			pos := make([]float64, ndim)
			for j := range pos {
				pos[j] = c[j] + (s.Rng.Float64()*2-1)*m.FrameSize(j)
			}
			s.particles[i] = particle{pos: pos, vel: make([]float64, ndim), best: append([]float64{}, pos...), bestVal: posInf}
		}
	}

	gbest := c
	out := make([]nmath.Point, 0, n)
	for i := range s.particles {
		p := &s.particles[i]
		for j := 0; j < ndim; j++ {
			r1, r2 := s.Rng.Float64(), s.Rng.Float64()
			p.vel[j] = inertia*p.vel[j] +
				cognition*r1*(p.best[j]-p.pos[j]) +
				social*r2*(gbest[j]-p.pos[j])
			p.pos[j] += p.vel[j]
		}
		proj := m.ProjectOnMesh(p.pos, c, lb, ub)
		out = append(out, nmath.NewPoint(proj))
	}
	return out
}

// NoteResult records particle i's observed objective value so future
// Generate calls pull it toward its personal best (the caller evaluates
// the returned points and reports back via this hook, mirroring
// Particle.Best in optim/swarm).
func (s *Swarm) NoteResult(i int, val float64) {
	if i < 0 || i >= len(s.particles) {
		return
	}
	p := &s.particles[i]
	if val < p.bestVal {
		p.bestVal = val
		p.best = append([]float64{}, p.pos...)
	}
}
