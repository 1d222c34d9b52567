package nbody

import (
	"math"
	"testing"
)

func TestBulirschFullJPLMatchesKeplerOnTwoBody(t *testing.T) {
	mu := PlanetaryMu(Sun)
	r := 1.0
	v := math.Sqrt(mu / r)
	dt := 5.0 // days, a short arc well inside the table's convergence range

	cfg := EngineConfig{CentralBody: Sun, Relativity: boolPtr(false)}
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{{r, 0, 0, 0, v, 0}}}

	want, err := KeplerStep(cfg, dt, batch.States[0])
	if err != nil {
		t.Fatalf("KeplerStep reference: %v", err)
	}

	res, err := BulirschFullJPL(cfg, force, 0, dt, batch, BSOptions{})
	if err != nil {
		t.Fatalf("BulirschFullJPL: %v", err)
	}
	if len(res.States) != 1 {
		t.Fatalf("expected 1 particle state, got %d", len(res.States))
	}
	for i := 0; i < 6; i++ {
		if math.Abs(res.States[0][i]-want[i]) > 1e-8 {
			t.Errorf("state[%d] = %g, want %g (Kepler reference)", i, res.States[0][i], want[i])
		}
	}
}

func TestBulirschFullJPLEmptyBatchIsError(t *testing.T) {
	cfg := DefaultEngineConfig()
	force := &ForceModel{Ephem: stubEphemeris{}}
	_, err := BulirschFullJPL(cfg, force, 0, 1, Batch{}, BSOptions{})
	if err == nil {
		t.Fatal("expected an error for an empty particle batch")
	}
}

func TestBulirschFullJPLPropagatesJacobianIdentityAtZeroSpan(t *testing.T) {
	cfg := EngineConfig{CentralBody: Sun, Relativity: boolPtr(false)}
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{{1, 0, 0, 0, 1, 0}}}

	res, err := BulirschFullJPL(cfg, force, 0, 1e-6, batch, BSOptions{WithJacobians: true})
	if err != nil {
		t.Fatalf("BulirschFullJPL: %v", err)
	}
	if res.Jacobians == nil {
		t.Fatal("expected Jacobians to be populated")
	}
	j := res.Jacobians[0]
	for i := 0; i < 6; i++ {
		for k := 0; k < 6; k++ {
			want := 0.0
			if i == k {
				want = 1
			}
			if got := j.At(i, k); math.Abs(got-want) > 1e-4 {
				t.Errorf("Jacobian(%d,%d) over a near-zero span = %g, want ~%g", i, k, got, want)
			}
		}
	}
}

func TestDriverPropagateBSChainsSteps(t *testing.T) {
	mu := PlanetaryMu(Sun)
	r := 1.0
	v := math.Sqrt(mu / r)
	cfg := EngineConfig{CentralBody: Sun, Relativity: boolPtr(false)}
	force := &ForceModel{Ephem: stubEphemeris{}}
	driver := NewDriver(cfg, force)

	batch := Batch{States: [][]float64{{r, 0, 0, 0, v, 0}}}
	whole, err := BulirschFullJPL(cfg, force, 0, 10, batch, BSOptions{})
	if err != nil {
		t.Fatalf("whole-interval BulirschFullJPL: %v", err)
	}

	chained, err := driver.PropagateBS(0, 10, batch, 2.5, BSOptions{})
	if err != nil {
		t.Fatalf("PropagateBS: %v", err)
	}
	for i := 0; i < 6; i++ {
		if math.Abs(chained.States[0][i]-whole.States[0][i]) > 1e-6 {
			t.Errorf("chained state[%d] = %g, whole-interval = %g", i, chained.States[0][i], whole.States[0][i])
		}
	}
}
