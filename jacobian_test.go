package nbody

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// TestBulirschJacobianConsistencyUnderRandomPerturbation checks that for a
// small random perturbation delta to the initial state, the finite-difference
// response (state(t;s0+delta)-state(t;s0))/|delta| agrees with
// J(t)*delta/|delta| to second order in |delta|. The perturbation direction
// is drawn from a 6-dimensional Gaussian via gonum/stat/distmv rather than a
// fixed axis-aligned delta, so the check is not an artifact of one
// particular perturbation direction.
func TestBulirschJacobianConsistencyUnderRandomPerturbation(t *testing.T) {
	mu := PlanetaryMu(Sun)
	r := 1.0
	v := math.Sqrt(mu / r)
	s0 := []float64{r, 0, 0, 0, v, 0}

	cov := mat64.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		cov.SetSym(i, i, 1)
	}
	seed := rand.New(rand.NewSource(42))
	dist, ok := distmv.NewNormal(make([]float64, 6), cov, seed)
	if !ok {
		t.Fatal("distmv.NewNormal rejected a diagonal covariance")
	}
	dir := dist.Rand(nil)
	floats.Scale(1/floats.Norm(dir, 2), dir)

	cfg := EngineConfig{CentralBody: Sun, Relativity: boolPtr(false)}
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{append([]float64(nil), s0...)}}
	dt := 2.0

	base, err := BulirschFullJPL(cfg, force, 0, dt, batch, BSOptions{WithJacobians: true})
	if err != nil {
		t.Fatalf("BulirschFullJPL (base): %v", err)
	}

	const eps = 1e-6
	perturbed := make([]float64, 6)
	for i := range perturbed {
		perturbed[i] = s0[i] + eps*dir[i]
	}
	other, err := BulirschFullJPL(cfg, force, 0, dt, Batch{States: [][]float64{perturbed}}, BSOptions{})
	if err != nil {
		t.Fatalf("BulirschFullJPL (perturbed): %v", err)
	}

	j := base.Jacobians[0]
	for i := 0; i < 6; i++ {
		finiteDiff := (other.States[0][i] - base.States[0][i]) / eps
		var predicted float64
		for k := 0; k < 6; k++ {
			predicted += j.At(i, k) * dir[k]
		}
		if math.Abs(finiteDiff-predicted) > 1e-4 {
			t.Errorf("component %d: finite-difference response %g, Jacobian prediction %g", i, finiteDiff, predicted)
		}
	}
}
