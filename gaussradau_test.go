package nbody

import (
	"math"
	"testing"
)

func TestGaussRadau15MatchesKeplerOnTwoBody(t *testing.T) {
	mu := PlanetaryMu(Sun)
	r := 1.0
	v := math.Sqrt(mu / r)
	dt := 3.0

	cfg := EngineConfig{CentralBody: Sun, Relativity: boolPtr(false)}
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{{r, 0, 0, 0, v, 0}}}

	want, err := KeplerStep(cfg, dt, batch.States[0])
	if err != nil {
		t.Fatalf("KeplerStep reference: %v", err)
	}

	res, err := GaussRadau15FullJPL(cfg, force, 0, dt, batch, 12, GR15SecondOrder, false, GR15Options{})
	if err != nil {
		t.Fatalf("GaussRadau15FullJPL: %v", err)
	}
	for i := 0; i < 6; i++ {
		if math.Abs(res.States[0][i]-want[i]) > 1e-7 {
			t.Errorf("state[%d] = %g, want %g (Kepler reference)", i, res.States[0][i], want[i])
		}
	}
	if res.Achieved != dt {
		t.Errorf("Achieved = %g, want %g", res.Achieved, dt)
	}
	if res.NextStepHint <= 0 {
		t.Errorf("NextStepHint should be positive, got %g", res.NextStepHint)
	}
}

func TestGaussRadau15RejectsJacobians(t *testing.T) {
	cfg := DefaultEngineConfig()
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{{1, 0, 0, 0, 1, 0}}}
	_, err := GaussRadau15FullJPL(cfg, force, 0, 1, batch, 12, GR15SecondOrder, true, GR15Options{})
	if err == nil {
		t.Fatal("expected an error requesting Jacobian propagation from the Gauss-Radau driver")
	}
}

func TestGaussRadau15RejectsFirstOrderClass(t *testing.T) {
	cfg := DefaultEngineConfig()
	force := &ForceModel{Ephem: stubEphemeris{}}
	batch := Batch{States: [][]float64{{1, 0, 0, 0, 1, 0}}}
	_, err := GaussRadau15FullJPL(cfg, force, 0, 1, batch, 12, GR15FirstOrder, false, GR15Options{})
	if err == nil {
		t.Fatal("expected an error for unsupported first-order equations of motion")
	}
}

func TestGaussRadau15EmptyBatchIsError(t *testing.T) {
	cfg := DefaultEngineConfig()
	force := &ForceModel{Ephem: stubEphemeris{}}
	_, err := GaussRadau15FullJPL(cfg, force, 0, 1, Batch{}, 12, GR15SecondOrder, false, GR15Options{})
	if err == nil {
		t.Fatal("expected an error for an empty particle batch")
	}
}

func TestGR15CoefficientsFromSamplesZeroForConstantAcceleration(t *testing.T) {
	// A constant force sampled at every node should need no correction terms:
	// all b-coefficients collapse to zero.
	H := 1.0
	var tau [8]float64
	for i := range tau {
		tau[i] = gr15Nodes[i] * H
	}
	var f [8][]float64
	for i := range f {
		f[i] = []float64{2.5}
	}
	var prevB [7][]float64
	for k := range prevB {
		prevB[k] = []float64{0}
	}
	newB, maxDelta := gr15CoefficientsFromSamples(tau[:], f, prevB)
	if maxDelta > 1e-12 {
		t.Errorf("expected maxDelta ~0 for constant acceleration, got %g", maxDelta)
	}
	for k, row := range newB {
		if math.Abs(row[0]) > 1e-9 {
			t.Errorf("b%d = %g, want ~0 for constant acceleration", k+1, row[0])
		}
	}
}

func TestHasSeedBDistinguishesZeroFromSeeded(t *testing.T) {
	var zero [7][]float64
	if hasSeedB(zero) {
		t.Fatal("a zero-value [7][]float64 should report no seed")
	}
	var seeded [7][]float64
	seeded[0] = []float64{1}
	if !hasSeedB(seeded) {
		t.Fatal("a [7][]float64 with SeedB[0] set should report a seed")
	}
}

// TestPredictBForNextStepQSeries checks the binomial q-series expansion
// against its known literal form for b1: with only b1 nonzero, the series
// collapses to b1 itself (q^0 term), and the spec's (b_current-e_previous)
// correction then doubles it when no seed was supplied for this sequence.
func TestPredictBForNextStepQSeries(t *testing.T) {
	var b [7][]float64
	for k := range b {
		b[k] = []float64{0}
	}
	b[0][0] = 1
	predicted := predictBForNextStep(b, 2.0, [7][]float64{})
	if math.Abs(predicted[0][0]-2) > 1e-12 {
		t.Errorf("predicted b1 = %g, want 2 (q-series term 1 + correction 1)", predicted[0][0])
	}
	for k := 1; k < 7; k++ {
		if predicted[k][0] != 0 {
			t.Errorf("predicted b%d = %g, want 0", k+1, predicted[k][0])
		}
	}
}

// TestPredictBForNextStepCorrectionCancelsWhenSeedMatchesConverged checks
// that the (b_current-e_previous) correction vanishes when the sequence
// converged to exactly the coefficients it was seeded with, leaving only the
// pure q-series term.
func TestPredictBForNextStepCorrectionCancelsWhenSeedMatchesConverged(t *testing.T) {
	var b [7][]float64
	for k := range b {
		b[k] = []float64{0}
	}
	b[0][0] = 3
	seed := b
	predicted := predictBForNextStep(b, 2.0, seed)
	if math.Abs(predicted[0][0]-3) > 1e-12 {
		t.Errorf("predicted b1 = %g, want 3 (pure q-series, no correction)", predicted[0][0])
	}
}

func TestBinomialCoefficients(t *testing.T) {
	cases := []struct{ n, k int; want float64 }{
		{7, 1, 7}, {7, 2, 21}, {7, 3, 35}, {7, 7, 1}, {3, 0, 1}, {3, 4, 0},
	}
	for _, c := range cases {
		if got := binomial(c.n, c.k); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("binomial(%d,%d) = %g, want %g", c.n, c.k, got, c.want)
		}
	}
}

func TestGR15ErrorEstimateScalesByAcceleration(t *testing.T) {
	b7 := []float64{1e-6}
	small := gr15ErrorEstimate(b7, []float64{1})
	large := gr15ErrorEstimate(b7, []float64{1e3})
	if small <= large {
		t.Errorf("error estimate should shrink as the acceleration scale grows: small=%g large=%g", small, large)
	}
}
