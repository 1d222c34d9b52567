package nbody

import (
	"github.com/gonum/matrix/mat64"

	"github.com/kestrel-orbital/nbodycore/internal/integrator"
)

// BSOptions configures one Bulirsch-Stoer interval step.
type BSOptions struct {
	// WithJacobians requests that the state-transition matrix of every
	// particle be propagated alongside its state.
	WithJacobians bool
}

// BSResult is the outcome of one BulirschFullJPL call.
type BSResult struct {
	States    [][]float64
	Jacobians []*mat64.Dense // nil unless BSOptions.WithJacobians was set
	Log       *EncounterLog
	Rows      int // extrapolation rows used to converge
}

// BulirschFullJPL propagates particles from t0 to t1 under the configured
// force model, using the Bulirsch-Stoer extrapolation method: the interval
// is handed whole to the modified-midpoint base method at increasing
// substep counts, the resulting sequence is extrapolated to zero step size,
// and the row count grows until every particle's state component converges
// to within convergenceTolerance or the table runs out of rows.
func BulirschFullJPL(cfg EngineConfig, force *ForceModel, t0, t1 float64, particles Batch, opts BSOptions) (BSResult, error) {
	if particles.N() == 0 {
		return BSResult{}, newError("BulirschFullJPL", DomainError, nil, "empty particle batch")
	}

	var jacobians []*mat64.Dense
	if opts.WithJacobians {
		jacobians = NewJacobianStack(particles.N())
	}

	log := NewEncounterLog(particles.N())
	bi := newBatchIntegrable(cfg, force, log, particles, jacobians)
	width := particleWidth(opts.WithJacobians)
	H := t1 - t0

	table := NewTable(cfg.ExtrapolationKind, len(bi.flat))
	var estimate, errEstimate []float64
	for row := 0; row < MaxRows(); row++ {
		n := bsSubsteps[row]
		mp := integrator.NewMidpoint(t0, H, bi)
		sample, err := mp.Solve(n)
		if err != nil {
			return BSResult{}, newError("BulirschFullJPL", SolverNonConvergence, err, "modified midpoint failed at row %d (n=%d)", row, n)
		}
		estimate, errEstimate = table.AddRow(sample)
		if rowConverged(estimate, errEstimate, particles.N(), width, stateWidth) {
			out := bi.extractBatch(estimate)
			driverLogger.Log("level", "info", "subsys", "bs", "status", "converged",
				"row", row+1, "t0", t0, "t1", t1, "particles", particles.N())
			return BSResult{
				States:    out.States,
				Jacobians: bi.extractJacobians(estimate),
				Log:       log,
				Rows:      row + 1,
			}, nil
		}
	}

	driverLogger.Log("level", "warning", "subsys", "bs", "status", "non-convergence",
		"rows", MaxRows(), "t0", t0, "t1", t1)
	return BSResult{}, newError("BulirschFullJPL", SolverNonConvergence, nil,
		"extrapolation did not converge within %d rows over [%g, %g]", MaxRows(), t0, t1)
}

// bsMidpointFinisher runs a single modified-midpoint step of 10 substeps
// with no extrapolation, the cheap finisher spec.md 4.4/4.7 specify for a
// step-remainder too small (<=10*epsilon) to be worth a full BS row over.
func bsMidpointFinisher(cfg EngineConfig, force *ForceModel, t0, h float64, particles Batch, opts BSOptions) (BSResult, error) {
	if particles.N() == 0 {
		return BSResult{}, newError("BulirschFullJPL", DomainError, nil, "empty particle batch")
	}

	var jacobians []*mat64.Dense
	if opts.WithJacobians {
		jacobians = NewJacobianStack(particles.N())
	}

	log := NewEncounterLog(particles.N())
	bi := newBatchIntegrable(cfg, force, log, particles, jacobians)
	mp := integrator.NewMidpoint(t0, h, bi)
	sample, err := mp.Solve(10)
	if err != nil {
		return BSResult{}, newError("BulirschFullJPL", SolverNonConvergence, err,
			"modified-midpoint finisher failed over [%g,%g]", t0, t0+h)
	}
	out := bi.extractBatch(sample)
	return BSResult{States: out.States, Jacobians: bi.extractJacobians(sample), Log: log, Rows: 0}, nil
}
