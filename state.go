package nbody

import "github.com/gonum/matrix/mat64"

// Batch is an ordered collection of integrated-body state vectors. The first
// N-Nadd entries are massless test particles; the trailing Nadd (when Masses
// is non-nil and has positive entries) are additional massive perturbers
// integrated alongside the massless ones.
type Batch struct {
	// States holds one length-6 Cartesian state vector (position, velocity)
	// per particle.
	States [][]float64
	// Masses optionally marks additional massive perturbers: Masses[i] > 0
	// means particle i also acts as a perturber on the other particles in
	// the batch (but never on the ephemeris-supplied bodies, and never on
	// another additional perturber). A nil or all-zero Masses means every
	// particle in the batch is massless.
	Masses []float64
}

// N returns the number of particles in the batch.
func (b Batch) N() int { return len(b.States) }

// IsAdditionalPerturber reports whether particle i is a massive additional
// perturber.
func (b Batch) IsAdditionalPerturber(i int) bool {
	return b.Masses != nil && i < len(b.Masses) && b.Masses[i] > 0
}

// NewJacobianStack returns N identity 6x6 matrices, the canonical initial
// condition for d(state)/d(state_0).
func NewJacobianStack(n int) []*mat64.Dense {
	stack := make([]*mat64.Dense, n)
	for i := range stack {
		stack[i] = DenseIdentity(6)
	}
	return stack
}
