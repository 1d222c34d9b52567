package nbody

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// Driver slices a [t0,t1] propagation request into a sequence of steps
// (fixed-size for Bulirsch-Stoer, adaptive for Gauss-Radau 15), chaining
// step results together and merging every step's encounter log into one
// running log for the whole call.
type Driver struct {
	Config EngineConfig
	Force  *ForceModel
}

// NewDriver returns a Driver bound to the given configuration and force
// model.
func NewDriver(cfg EngineConfig, force *ForceModel) *Driver {
	return &Driver{Config: cfg, Force: force}
}

// bsRemainderTol is the spec's "10*epsilon" threshold (rstep_tol) below which
// a step-remainder is folded into a single 10-substep modified-midpoint
// finisher rather than a full Bulirsch-Stoer row.
const bsRemainderTol = 10 * 2.220446049250313e-16

// PropagateBS advances particles from t0 to t1 using the Bulirsch-Stoer
// method, per spec.md 4.4/4.7: the interval is sliced into total = floor(
// |t1-t0|/|h|) whole steps of signed size h (the whole interval in one step
// when maxStep <= 0), followed by a remainder step when (t1-t0) isn't an
// exact multiple of h — a full BS step when the remainder exceeds
// bsRemainderTol, otherwise a single cheap 10-substep modified-midpoint
// finisher with no extrapolation. Every step's encounter log is merged into
// one running log for the whole call.
func (d *Driver) PropagateBS(t0, t1 float64, particles Batch, maxStep float64, opts BSOptions) (BSResult, error) {
	h := t1 - t0
	chained := maxStep > 0 && maxStep < math.Abs(h)
	if chained {
		h = math.Copysign(maxStep, t1-t0)
	}
	if opts.WithJacobians && chained {
		return BSResult{}, newError("PropagateBS", DomainError, nil,
			"Jacobian propagation across multiple chained steps is not supported; call BulirschFullJPL directly with maxStep<=0")
	}

	total := int(math.Abs(t1-t0) / math.Abs(h))
	rem := (t1 - t0) - float64(total)*h
	if math.Abs(rem) > math.Abs(h) {
		return BSResult{}, newError("PropagateBS", DomainError, nil,
			"remainder %g exceeds step size %g", rem, h)
	}

	log := NewEncounterLog(particles.N())
	cur := particles
	t := t0
	var lastRows int
	var lastJacobians []*mat64.Dense

	for i := 0; i < total; i++ {
		res, err := BulirschFullJPL(d.Config, d.Force, t, t+h, cur, opts)
		if err != nil {
			return BSResult{}, err
		}
		log.Merge(res.Log)
		cur = Batch{States: res.States, Masses: particles.Masses}
		lastRows = res.Rows
		lastJacobians = res.Jacobians
		t += h
	}

	switch {
	case rem == 0:
		// Interval divided evenly: no finisher, matching spec.md 4.7's
		// "zero remainder" case exactly.
	case math.Abs(rem) > bsRemainderTol:
		res, err := BulirschFullJPL(d.Config, d.Force, t, t+rem, cur, opts)
		if err != nil {
			return BSResult{}, err
		}
		log.Merge(res.Log)
		cur = Batch{States: res.States, Masses: particles.Masses}
		lastRows = res.Rows
		lastJacobians = res.Jacobians
		t += rem
	default:
		res, err := bsMidpointFinisher(d.Config, d.Force, t, rem, cur, opts)
		if err != nil {
			return BSResult{}, err
		}
		log.Merge(res.Log)
		cur = Batch{States: res.States, Masses: particles.Masses}
		lastJacobians = res.Jacobians
		t += rem
	}

	driverLogger.Log("level", "info", "subsys", "driver", "method", "bs", "status", "completed",
		"t0", t0, "t1", t1, "particles", particles.N())
	return BSResult{States: cur.States, Jacobians: lastJacobians, Log: log, Rows: lastRows}, nil
}

// PropagateGR15 advances particles from t0 to t1 using Gauss-Radau 15,
// chaining the adaptive step-size hint returned by each call and merging
// encounter logs together. initialStep seeds the very first step; pass 0 to
// use the whole interval as the first attempt. Per spec.md 4.5 step 5, each
// sequence's converged b-coefficients are advanced via the q-series and
// carried into the next sequence's GR15Options.SeedB, so only the very first
// sequence in the chain starts its predictor-corrector iteration from zero.
func (d *Driver) PropagateGR15(t0, t1 float64, particles Batch, ll float64, class GR15Class, initialStep float64, opts GR15Options) (GR15Result, error) {
	log := NewEncounterLog(particles.N())
	cur := particles
	t := t0
	direction := math.Copysign(1, t1-t0)
	step := initialStep
	if step == 0 {
		step = t1 - t0
	}
	seedB := opts.SeedB
	var predicted [7][]float64

	for direction*(t1-t) > 0 {
		remaining := t1 - t
		if direction*step > direction*remaining {
			step = remaining
		}
		callOpts := opts
		callOpts.SeedB = seedB
		res, err := GaussRadau15FullJPL(d.Config, d.Force, t, t+step, cur, ll, class, false, callOpts)
		if err != nil {
			return GR15Result{}, err
		}
		log.Merge(res.Log)
		cur = Batch{States: res.States, Masses: particles.Masses}
		t = res.Achieved
		step = res.NextStepHint
		if step == 0 {
			step = t1 - t
		}
		predicted = res.PredictedB
		seedB = predicted
	}

	driverLogger.Log("level", "info", "subsys", "driver", "method", "gr15", "status", "completed",
		"t0", t0, "t1", t1, "particles", particles.N())
	return GR15Result{States: cur.States, Log: log, Achieved: t, NextStepHint: step, PredictedB: predicted}, nil
}

// PropagateKepler advances every particle independently by dt using the
// universal-variable two-body solver, ignoring mutual and perturbing forces
// entirely (a Kepler-only shortcut for single-body, unperturbed arcs).
func (d *Driver) PropagateKepler(dt float64, particles Batch) (Batch, error) {
	out := Batch{States: make([][]float64, particles.N()), Masses: particles.Masses}
	for i, s := range particles.States {
		next, err := KeplerStep(d.Config, dt, s)
		if err != nil {
			return Batch{}, newError("PropagateKepler", SolverNonConvergence, err, "particle %d failed to propagate", i)
		}
		out.States[i] = next
	}
	return out, nil
}
