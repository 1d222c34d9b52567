package integrator

import "github.com/pkg/errors"

// Midpoint drives the modified-midpoint substep recurrence over one interval
// [t, t+H] using n substeps of size h = H/n, exactly the base method the
// Bulirsch-Stoer extrapolation table is built from.
type Midpoint struct {
	T0         float64
	H          float64 // total interval length, may be negative for backward integration
	Integrable Integrable
}

// NewMidpoint returns a Midpoint stepper for the given interval and
// integrable.
func NewMidpoint(t0, h float64, inte Integrable) *Midpoint {
	if inte == nil {
		panic("config Integrable may not be nil")
	}
	return &Midpoint{T0: t0, H: h, Integrable: inte}
}

// Solve runs n substeps of the modified-midpoint method and returns the final
// state, performing exactly n+1 evaluations of Func:
//
//	q0 = state(t0)
//	q1 = q0 + h*f(t0, q0)
//	q_{k+1} = q_{k-1} + 2h*f(t0+k*h, q_k), k = 1..n-1
//	state(t0+H) = 1/2 * (q_n + q_{n-1} + h*f(t0+H, q_n))
func (m *Midpoint) Solve(n int) ([]float64, error) {
	if n < 2 {
		return nil, errors.Errorf("modified midpoint requires at least 2 substeps, got %d", n)
	}
	h := m.H / float64(n)
	q0 := m.Integrable.GetState()
	dim := len(q0)

	f0, err := m.Integrable.Func(m.T0, q0)
	if err != nil {
		return nil, errors.Wrap(err, "modified midpoint: initial derivative")
	}
	q1 := make([]float64, dim)
	for i := range q1 {
		q1[i] = q0[i] + h*f0[i]
	}

	qPrev, qCur := q0, q1
	for k := 1; k < n; k++ {
		fk, err := m.Integrable.Func(m.T0+float64(k)*h, qCur)
		if err != nil {
			return nil, errors.Wrapf(err, "modified midpoint: substep %d", k)
		}
		qNext := make([]float64, dim)
		for i := range qNext {
			qNext[i] = qPrev[i] + 2*h*fk[i]
		}
		qPrev, qCur = qCur, qNext
	}

	fn, err := m.Integrable.Func(m.T0+m.H, qCur)
	if err != nil {
		return nil, errors.Wrap(err, "modified midpoint: final derivative")
	}
	out := make([]float64, dim)
	for i := range out {
		out[i] = 0.5 * (qCur[i] + qPrev[i] + h*fn[i])
	}
	return out, nil
}
