package nbody

import (
	"github.com/gonum/matrix/mat64"

	"github.com/kestrel-orbital/nbodycore/internal/integrator"
)

// batchIntegrable adapts a Batch (and, optionally, its per-particle Jacobian
// stack) into the flat state vector internal/integrator.Integrable expects,
// row-major: 6 state components per particle, followed, when jacobians is
// non-nil, by that particle's 6x6 Jacobian flattened row by row (per the
// design note resolving the flattening convention).
type batchIntegrable struct {
	cfg     EngineConfig
	force   *ForceModel
	log     *EncounterLog
	n       int
	withJac bool
	flat    []float64
	batch   Batch // kept to reconstruct additional-perturber masses each Func call
}

const stateWidth = 6
const jacWidth = 36

func particleWidth(withJac bool) int {
	if withJac {
		return stateWidth + jacWidth
	}
	return stateWidth
}

// newBatchIntegrable flattens batch (and jacobians, if supplied) into a
// single state vector.
func newBatchIntegrable(cfg EngineConfig, force *ForceModel, log *EncounterLog, batch Batch, jacobians []*mat64.Dense) *batchIntegrable {
	n := batch.N()
	withJac := jacobians != nil
	w := particleWidth(withJac)
	flat := make([]float64, n*w)
	for i := 0; i < n; i++ {
		off := i * w
		copy(flat[off:off+stateWidth], batch.States[i])
		if withJac {
			flattenJacobian(jacobians[i], flat[off+stateWidth:off+w])
		}
	}
	return &batchIntegrable{cfg: cfg, force: force, log: log, n: n, withJac: withJac, flat: flat, batch: batch}
}

func flattenJacobian(j *mat64.Dense, dst []float64) {
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			dst[r*6+c] = j.At(r, c)
		}
	}
}

func unflattenJacobian(src []float64) *mat64.Dense {
	j := mat64.NewDense(6, 6, nil)
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			j.Set(r, c, src[r*6+c])
		}
	}
	return j
}

func (bi *batchIntegrable) GetState() []float64 { return bi.flat }

// Func evaluates the force model against the flattened state and, when
// Jacobians are tracked, the chain rule d/dt(Phi) = (d(accel)/d(state)) * Phi
// for each particle's state-transition matrix.
func (bi *batchIntegrable) Func(t float64, s []float64) ([]float64, error) {
	w := particleWidth(bi.withJac)
	batch := Batch{States: make([][]float64, bi.n), Masses: bi.batch.Masses}
	for i := 0; i < bi.n; i++ {
		off := i * w
		batch.States[i] = append([]float64(nil), s[off:off+stateWidth]...)
	}

	deriv, jac, err := bi.force.Evaluate(bi.cfg, t, batch, bi.withJac, bi.log)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(s))
	for i := 0; i < bi.n; i++ {
		off := i * w
		copy(out[off:off+stateWidth], deriv[i])
		if bi.withJac {
			phi := unflattenJacobian(s[off+stateWidth : off+w])
			var dPhi mat64.Dense
			dPhi.Mul(jac[i], phi)
			flattenJacobian(&dPhi, out[off+stateWidth:off+w])
		}
	}
	return out, nil
}

var _ integrator.Integrable = (*batchIntegrable)(nil)

// extractBatch reconstructs the Batch from a flat state vector.
func (bi *batchIntegrable) extractBatch(flat []float64) Batch {
	w := particleWidth(bi.withJac)
	out := Batch{States: make([][]float64, bi.n), Masses: bi.batch.Masses}
	for i := 0; i < bi.n; i++ {
		off := i * w
		out.States[i] = append([]float64(nil), flat[off:off+stateWidth]...)
	}
	return out
}

// extractJacobians reconstructs the per-particle Jacobian stack from a flat
// state vector; returns nil when the integrable wasn't tracking Jacobians.
func (bi *batchIntegrable) extractJacobians(flat []float64) []*mat64.Dense {
	if !bi.withJac {
		return nil
	}
	w := particleWidth(true)
	out := make([]*mat64.Dense, bi.n)
	for i := 0; i < bi.n; i++ {
		off := i * w
		out[i] = unflattenJacobian(flat[off+stateWidth : off+w])
	}
	return out
}
