package nbody

import "math"

// GR15Class distinguishes how the Gauss-Radau driver should treat the
// equations of motion it is handed.
type GR15Class int

const (
	// GR15SecondOrder is the ordinary case: acceleration depends on both
	// position and velocity (e.g. relativity is enabled).
	GR15SecondOrder GR15Class = 2
	// GR15SecondOrderPositionOnly signals that the caller's force does not
	// depend on velocity, which this driver accepts as a hint but does not
	// currently exploit (the force model is always evaluated with the full
	// state regardless).
	GR15SecondOrderPositionOnly GR15Class = -2
	// GR15FirstOrder is unsupported: this engine's collaborators only ever
	// produce second-order (acceleration) equations of motion.
	GR15FirstOrder GR15Class = 1
)

// gr15Nodes are the 8 Gauss-Radau spacings (fractions of the step) that
// Everhart's RA15 algorithm samples the force at; gr15Nodes[0] = 0 is the
// start of the step.
var gr15Nodes = [8]float64{
	0,
	0.05626256053692215,
	0.18024069173689236,
	0.35262471711316964,
	0.54715362633055538,
	0.73421017721541053,
	0.88532094683909577,
	0.97752061356128750,
}

// GR15Options configures one Gauss-Radau 15 interval.
type GR15Options struct {
	// MaxCorrectorIters overrides the predictor-corrector iteration count.
	// Zero defers to spec.md 4.5 step 2's default: 6 iterations when SeedB
	// is absent (this is the first sequence of a chained propagation), 2
	// when SeedB carries a prior sequence's predicted coefficients.
	MaxCorrectorIters int
	MaxShrinkRetries  int // default 6 when zero

	// SeedB carries the b-coefficients predicted by the previous chained
	// sequence's step 5 (spec.md 4.5), used both to seed this sequence's
	// predictor-corrector iteration and to select the 2-iteration budget for
	// a non-first sequence. A zero value (SeedB[0] == nil) means this is the
	// first sequence: iteration starts from zero and uses the 6-iteration
	// budget.
	SeedB [7][]float64
}

// hasSeedB reports whether seed carries a previous sequence's predicted
// b-coefficients, as opposed to the zero value used for a first sequence.
func hasSeedB(seed [7][]float64) bool { return seed[0] != nil }

// GR15Result is the outcome of one GaussRadau15FullJPL call.
type GR15Result struct {
	States       [][]float64
	Log          *EncounterLog
	Achieved     float64 // epoch actually reached; short of t1 when step-size control shrank the step
	NextStepHint float64 // suggested step length for the following call

	// PredictedB is this sequence's converged b-coefficients, advanced to
	// the next sequence's step size via spec.md 4.5 step 5's q-series and
	// corrected by (b_current - e_previous); pass it as the next chained
	// call's GR15Options.SeedB.
	PredictedB [7][]float64
}

// GaussRadau15FullJPL propagates particles over [t0, t1] with Everhart's
// 15th-order single-sequence Gauss-Radau method: predictor-corrector
// iteration on 7 polynomial coefficients per spatial component, evaluated at
// the 8 Gauss-Radau nodes, with step-size control driven by the magnitude of
// the highest-order coefficient relative to the ll-decade tolerance.
//
// Jacobian propagation is not supported here (see BulirschFullJPL for that);
// requesting it is a DomainError, since chaining the state-transition-matrix
// chain rule through the predictor-corrector iteration is not implemented.
func GaussRadau15FullJPL(cfg EngineConfig, force *ForceModel, t0, t1 float64, particles Batch, ll float64, class GR15Class, withJacobians bool, opts GR15Options) (GR15Result, error) {
	if particles.N() == 0 {
		return GR15Result{}, newError("GaussRadau15FullJPL", DomainError, nil, "empty particle batch")
	}
	if withJacobians {
		return GR15Result{}, newError("GaussRadau15FullJPL", DomainError, nil, "Jacobian propagation is not supported by the Gauss-Radau driver")
	}
	if class == GR15FirstOrder {
		return GR15Result{}, newError("GaussRadau15FullJPL", DomainError, nil, "first-order equations of motion are not supported")
	}

	maxIters := opts.MaxCorrectorIters
	if maxIters == 0 {
		if hasSeedB(opts.SeedB) {
			maxIters = 2
		} else {
			maxIters = 6
		}
	}
	maxShrink := opts.MaxShrinkRetries
	if maxShrink == 0 {
		maxShrink = 6
	}
	tol := math.Pow(10, -ll)

	n := particles.N()
	dim := 3 * n
	log := NewEncounterLog(n)

	X0 := make([]float64, dim)
	V0 := make([]float64, dim)
	for i := 0; i < n; i++ {
		copy(X0[3*i:3*i+3], particles.States[i][0:3])
		copy(V0[3*i:3*i+3], particles.States[i][3:6])
	}

	H := t1 - t0
	for attempt := 0; attempt <= maxShrink; attempt++ {
		b, a0, err := gr15Converge(cfg, force, log, t0, H, X0, V0, maxIters, opts.SeedB)
		if err != nil {
			return GR15Result{}, err
		}

		errEstimate := gr15ErrorEstimate(b[6], a0)
		if errEstimate <= tol {
			Xf, Vf := gr15Evaluate(H, X0, V0, a0, b)
			states := make([][]float64, n)
			for i := 0; i < n; i++ {
				s := make([]float64, 6)
				copy(s[0:3], Xf[3*i:3*i+3])
				copy(s[3:6], Vf[3*i:3*i+3])
				states[i] = s
			}
			growth := 1.0
			if errEstimate > 0 {
				growth = math.Pow(tol/errEstimate, 1.0/7.0) * 0.9
			}
			growth = math.Min(4, math.Max(0.2, growth))
			driverLogger.Log("level", "info", "subsys", "gr15", "status", "completed",
				"shrinks", attempt, "t0", t0, "t1", t1, "particles", n)
			predicted := predictBForNextStep(b, growth, opts.SeedB)
			return GR15Result{
				States:       states,
				Log:          log,
				Achieved:     t0 + H,
				NextStepHint: H * growth,
				PredictedB:   predicted,
			}, nil
		}
		if attempt == maxShrink {
			break
		}

		shrink := math.Pow(tol/errEstimate, 1.0/7.0) * 0.8
		shrink = math.Min(0.5, math.Max(0.05, shrink))
		H *= shrink
		driverLogger.Log("level", "notice", "subsys", "gr15", "status", "shrink",
			"attempt", attempt+1, "h", H)
	}

	driverLogger.Log("level", "warning", "subsys", "gr15", "status", "shrink-exhausted",
		"max_shrinks", maxShrink, "t0", t0, "t1", t1)
	return GR15Result{}, newError("GaussRadau15FullJPL", SolverNonConvergence, nil,
		"step-size control could not satisfy tolerance 1e-%g over [%g,%g]", ll, t0, t1)
}

// gr15Converge runs the predictor-corrector iteration to a fixed point for
// the interval [t0,t0+H], returning the converged b-coefficients (index
// 0..6 for b1..b7) and the initial acceleration a0. seed, when non-zero (per
// hasSeedB), is the previous sequence's predicted b-coefficients (spec.md 4.5
// step 5) and is used as the starting point of the iteration rather than the
// all-zero coefficients a first sequence starts from.
func gr15Converge(cfg EngineConfig, force *ForceModel, log *EncounterLog, t0, H float64, X0, V0 []float64, maxIters int, seed [7][]float64) ([7][]float64, []float64, error) {
	dim := len(X0)
	n := dim / 3

	a0, err := gr15Accel(cfg, force, log, t0, X0, V0, n)
	if err != nil {
		return [7][]float64{}, nil, err
	}

	var b [7][]float64
	for k := range b {
		b[k] = make([]float64, dim)
		if hasSeedB(seed) && len(seed[k]) == dim {
			copy(b[k], seed[k])
		}
	}

	tau := make([]float64, 8)
	for i := range tau {
		tau[i] = gr15Nodes[i] * H
	}

	for iter := 0; iter < maxIters; iter++ {
		var f [8][]float64
		f[0] = a0
		for i := 1; i < 8; i++ {
			Xi, Vi := gr15Evaluate(tau[i], X0, V0, a0, b)
			fi, err := gr15Accel(cfg, force, log, t0+tau[i], Xi, Vi, n)
			if err != nil {
				return [7][]float64{}, nil, err
			}
			f[i] = fi
		}

		newB, maxDelta := gr15CoefficientsFromSamples(tau, f, b)
		b = newB
		if maxDelta < 1e-14 {
			break
		}
	}

	return b, a0, nil
}

// binomial returns the binomial coefficient C(n,k) for the small non-negative
// n, k (n,k <= 7) predictBForNextStep calls it with.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

// predictBForNextStep advances converged b-coefficients b to the next
// sequence's step size via Everhart's q-series (spec.md 4.5 step 5):
// new_b[k] = sum_{j=k}^{7} C(j,k) * q^(j-k) * b[j], for 1-indexed k=1..7,
// where q is the ratio of the next step to the current one. The result is
// then corrected by (b - seed), the change this sequence's predictor-
// corrector iteration made to whatever it started from, since that same
// correction is expected to recur in the next sequence.
func predictBForNextStep(b [7][]float64, q float64, seed [7][]float64) [7][]float64 {
	dim := len(b[0])
	var predicted [7][]float64
	for k := range predicted {
		predicted[k] = make([]float64, dim)
	}

	for k1 := 1; k1 <= 7; k1++ {
		k := k1 - 1
		for c := 0; c < dim; c++ {
			var qSeries float64
			for j1 := k1; j1 <= 7; j1++ {
				j := j1 - 1
				qSeries += binomial(j1, k1) * math.Pow(q, float64(j1-k1)) * b[j][c]
			}
			var seedComponent float64
			if hasSeedB(seed) && len(seed[k]) == dim {
				seedComponent = seed[k][c]
			}
			predicted[k][c] = qSeries + (b[k][c] - seedComponent)
		}
	}
	return predicted
}

// gr15Accel evaluates the force model at the given epoch/state and returns
// only the acceleration half (3 components per particle) of its derivative.
func gr15Accel(cfg EngineConfig, force *ForceModel, log *EncounterLog, t float64, X, V []float64, n int) ([]float64, error) {
	batch := Batch{States: make([][]float64, n)}
	for i := 0; i < n; i++ {
		s := make([]float64, 6)
		copy(s[0:3], X[3*i:3*i+3])
		copy(s[3:6], V[3*i:3*i+3])
		batch.States[i] = s
	}
	deriv, _, err := force.Evaluate(cfg, t, batch, false, log)
	if err != nil {
		return nil, err
	}
	a := make([]float64, 3*n)
	for i := 0; i < n; i++ {
		copy(a[3*i:3*i+3], deriv[i][3:6])
	}
	return a, nil
}

// gr15Evaluate returns the predicted position and velocity at elapsed time
// tau from the start of the step, given the initial state, initial
// acceleration, and the current b-coefficients.
func gr15Evaluate(tau float64, X0, V0, a0 []float64, b [7][]float64) (X, V []float64) {
	dim := len(X0)
	X = make([]float64, dim)
	V = make([]float64, dim)
	for i := 0; i < dim; i++ {
		t2 := tau * tau
		V[i] = V0[i] + a0[i]*tau +
			b[0][i]*t2/2 + b[1][i]*tau*t2/3 + b[2][i]*t2*t2/4 +
			b[3][i]*t2*t2*tau/5 + b[4][i]*t2*t2*t2/6 +
			b[5][i]*t2*t2*t2*tau/7 + b[6][i]*t2*t2*t2*t2/8

		X[i] = X0[i] + V0[i]*tau + a0[i]*t2/2 +
			b[0][i]*t2*tau/6 + b[1][i]*t2*t2/12 + b[2][i]*t2*t2*tau/20 +
			b[3][i]*t2*t2*t2/30 + b[4][i]*t2*t2*t2*tau/42 +
			b[5][i]*t2*t2*t2*t2/56 + b[6][i]*t2*t2*t2*t2*tau/72
	}
	return
}

// gr15CoefficientsFromSamples computes the divided-difference g-coefficients
// from the 8 force samples and converts them to the 7 b-coefficients via the
// Newton-basis-to-monomial expansion, returning the new coefficients and the
// largest absolute change from the previous iteration's b7 (the slowest
// coefficient to converge, per Everhart's convergence heuristic).
func gr15CoefficientsFromSamples(tau []float64, f [8][]float64, prevB [7][]float64) ([7][]float64, float64) {
	dim := len(f[0])

	var r [8][8]float64
	for i := 1; i < 8; i++ {
		for j := 0; j < i; j++ {
			r[i][j] = 1 / (tau[i] - tau[j])
		}
	}

	var coeff [8][8]float64 // coeff[k][j], k=1..7
	coeff[1][1] = 1
	for k := 2; k <= 7; k++ {
		for j := 1; j <= k; j++ {
			coeff[k][j] = coeff[k-1][j-1] - tau[k-1]*coeff[k-1][j]
		}
	}

	var newB [7][]float64
	for k := range newB {
		newB[k] = make([]float64, dim)
	}
	maxDelta := 0.0

	for c := 0; c < dim; c++ {
		var g [8]float64
		g[0] = f[0][c]
		for k := 1; k <= 7; k++ {
			temp := (f[k][c] - f[0][c]) * r[k][0]
			for j := 1; j < k; j++ {
				temp = (temp - g[j]) * r[k][j]
			}
			g[k] = temp
		}
		for j := 1; j <= 7; j++ {
			var bj float64
			for k := j; k <= 7; k++ {
				bj += coeff[k][j] * g[k]
			}
			newB[j-1][c] = bj
		}
		if d := math.Abs(newB[6][c] - prevB[6][c]); d > maxDelta {
			maxDelta = d
		}
	}

	return newB, maxDelta
}

// gr15ErrorEstimate summarizes the highest-order coefficient's magnitude,
// relative to the characteristic acceleration scale, as a single scalar the
// step-size controller can compare against tolerance.
func gr15ErrorEstimate(b7, a0 []float64) float64 {
	var scale float64
	for _, v := range a0 {
		if math.Abs(v) > scale {
			scale = math.Abs(v)
		}
	}
	if scale == 0 {
		scale = 1
	}
	var worst float64
	for _, v := range b7 {
		rel := math.Abs(v) / scale
		if rel > worst {
			worst = rel
		}
	}
	return worst
}
