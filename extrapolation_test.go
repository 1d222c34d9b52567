package nbody

import (
	"math"
	"testing"
)

// TestTablePolynomialConvergesOnSmoothFunction feeds the table increasingly
// fine modified-Euler-like approximations of a smooth scalar function and
// checks the diagonal estimate converges to the true limit as rows increase.
func TestTablePolynomialConvergesOnSmoothFunction(t *testing.T) {
	// Samples carry a pure h^2 error term, sample(n) = 1 + (1/n)^2, mimicking
	// the modified-midpoint method's even error expansion; the limit as
	// h -> 0 is 1.
	const trueValue = 1.0
	table := NewTable(Polynomial, 1)
	var estimate []float64
	for row := 0; row < 6; row++ {
		n := bsSubsteps[row]
		h := 1.0 / float64(n)
		sample := []float64{trueValue + h*h}
		estimate, _ = table.AddRow(sample)
	}
	if math.Abs(estimate[0]-trueValue) > 1e-6 {
		t.Errorf("polynomial extrapolation did not converge: got %g, want %g", estimate[0], trueValue)
	}
}

func TestTableRationalConvergesOnSmoothFunction(t *testing.T) {
	const trueValue = 2.5
	table := NewTable(Rational, 1)
	var estimate []float64
	for row := 0; row < 6; row++ {
		n := bsSubsteps[row]
		h := 1.0 / float64(n)
		sample := []float64{trueValue + h*h}
		estimate, _ = table.AddRow(sample)
	}
	if math.Abs(estimate[0]-trueValue) > 1e-6 {
		t.Errorf("rational extrapolation did not converge: got %g, want %g", estimate[0], trueValue)
	}
}

func TestRowConvergedIgnoresJacobianComponents(t *testing.T) {
	// particleWidth=42 (6 state + 36 Jacobian), stateWidth=6: a huge error in
	// the Jacobian slots must not block convergence.
	estimate := make([]float64, 42)
	errEstimate := make([]float64, 42)
	for i := 6; i < 42; i++ {
		errEstimate[i] = 1e6 // would fail convergence if checked
	}
	if !rowConverged(estimate, errEstimate, 1, 42, 6) {
		t.Fatal("rowConverged should ignore Jacobian-slot error and report convergence")
	}
}

func TestRowConvergedNilErrEstimate(t *testing.T) {
	if rowConverged([]float64{1}, nil, 1, 1, 1) {
		t.Fatal("a nil error estimate (first row) must never be reported as converged")
	}
}

func TestRowConvergedDetectsLargeStateError(t *testing.T) {
	estimate := []float64{1}
	errEstimate := []float64{1.0}
	if rowConverged(estimate, errEstimate, 1, 1, 1) {
		t.Fatal("a large relative error in a state component should not converge")
	}
}

func TestMaxRowsMatchesSubstepSequence(t *testing.T) {
	if MaxRows() != len(bsSubsteps) {
		t.Fatalf("MaxRows() = %d, want %d", MaxRows(), len(bsSubsteps))
	}
}

// TestBSSubstepsMatchesSpecSequence pins bsSubsteps to the literal doubling
// sequence named in the data model (2,4,6,8, then each entry twice the one
// two places before it),
// so a future refactor can't silently regress to a coarser schedule that
// would make BulirschFullJPL give up on hard (e.g. high-eccentricity) cases
// far sooner than the sequence was designed to allow.
func TestBSSubstepsMatchesSpecSequence(t *testing.T) {
	want := []int{
		2, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128, 192, 256, 384, 512,
		768, 1024, 1536, 2048, 3072, 4096, 6144, 8192, 12288, 16384, 24576,
	}
	if len(bsSubsteps) != len(want) {
		t.Fatalf("bsSubsteps has %d entries, want %d", len(bsSubsteps), len(want))
	}
	for i, n := range want {
		if bsSubsteps[i] != n {
			t.Errorf("bsSubsteps[%d] = %d, want %d", i, bsSubsteps[i], n)
		}
	}
}
