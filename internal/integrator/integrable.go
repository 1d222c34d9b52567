// Package integrator provides the modified-midpoint substep recurrence that
// underlies the Bulirsch-Stoer driver: a fixed-count sequence of leapfrog-like
// half-steps producing one candidate state per substep count, which the
// caller then extrapolates to zero step size.
package integrator

// Integrable defines something which can be integrated, i.e. has a state
// vector and a right-hand-side function. Unlike a generic ODE driver, the
// modified-midpoint method drives a fixed number of substeps per call rather
// than running to a Stop predicate, so callers only need to supply the state
// and the derivative function.
type Integrable interface {
	// GetState returns the state vector at the start of the interval.
	GetState() []float64
	// Func evaluates the ODE right-hand side at time t and state s. A
	// non-nil error aborts the stepper immediately (e.g. a force model
	// encountering a non-finite acceleration).
	Func(t float64, s []float64) ([]float64, error)
}
