package nbody

import "math"

// ClassicalElements is the classical (Keplerian) orbital element set used to
// seed a minor-body catalogue entry: semimajor axis (AU), eccentricity,
// inclination, longitude of ascending node, argument of perihelion, and
// true anomaly (the last four in radians).
type ClassicalElements struct {
	A, E, I, RAAN, ArgPeriapsis, TrueAnomaly float64
}

// stateFromElements converts classical elements around a body of parameter
// mu into a Cartesian state vector, via the perifocal-frame construction
// (Vallado's COE2RV algorithm): build the position and velocity in the
// perifocal (PQW) frame from the conic equation, then rotate into the
// reference frame with a 3-1-3 Euler sequence.
func stateFromElements(el ClassicalElements, mu float64) []float64 {
	p := el.A * (1 - el.E*el.E)
	muOverP := math.Sqrt(mu / p)
	sinNu, cosNu := math.Sincos(el.TrueAnomaly)

	rPQW := []float64{
		p * cosNu / (1 + el.E*cosNu),
		p * sinNu / (1 + el.E*cosNu),
		0,
	}
	vPQW := []float64{
		-muOverP * sinNu,
		muOverP * (el.E + cosNu),
		0,
	}

	rot := euler313(-el.ArgPeriapsis, -el.I, -el.RAAN)
	return append(rotate3(rot, rPQW), rotate3(rot, vPQW)...)
}

// euler313 returns the 3x3 rotation matrix (row-major, flattened) of a 3-1-3
// Euler sequence.
func euler313(t1, t2, t3 float64) [9]float64 {
	s1, c1 := math.Sincos(t1)
	s2, c2 := math.Sincos(t2)
	s3, c3 := math.Sincos(t3)
	return [9]float64{
		c3*c1 - s3*c2*s1, c3*s1 + s3*c2*c1, s3 * s2,
		-s3*c1 - c3*c2*s1, -s3*s1 + c3*c2*c1, c3 * s2,
		s2 * s1, -s2 * c1, c2,
	}
}

func rotate3(m [9]float64, v []float64) []float64 {
	return []float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// StaticMinorBodyCatalogue is a fixed-elements MinorBodyCatalogue: every
// entry's position is evaluated by propagating its osculating elements
// analytically (mean motion times elapsed time from Epoch, no
// perturbations), sufficient to exercise the ForceModel's minor-body
// perturbation term without depending on an external asteroid ephemeris
// service.
type StaticMinorBodyCatalogue struct {
	Elements []ClassicalElements
	Masses   []float64 // solar masses
	Epoch    float64   // MJD at which Elements' TrueAnomaly applies
	Mu       float64   // central body's GM, AU^3/day^2 (Sun by convention)
}

// Positions implements MinorBodyCatalogue by advancing each body's mean
// anomaly linearly from Epoch to t and solving Kepler's equation (elliptic
// case only) for the resulting true anomaly.
func (cat *StaticMinorBodyCatalogue) Positions(t float64, n int) ([][]float64, error) {
	if n > len(cat.Elements) {
		n = len(cat.Elements)
	}
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		el := cat.Elements[i]
		if el.E >= 1 {
			return nil, newError("StaticMinorBodyCatalogue.Positions", DomainError, nil,
				"body %d is not elliptical (e=%g); static propagation only supports bound orbits", i, el.E)
		}
		meanMotion := math.Sqrt(cat.Mu / (el.A * el.A * el.A))
		e0 := trueToEccentric(el.TrueAnomaly, el.E)
		m0 := e0 - el.E*math.Sin(e0)
		m := m0 + meanMotion*(t-cat.Epoch)
		ecc := solveKeplerEquationElliptic(m, el.E)
		nu := eccentricToTrue(ecc, el.E)
		advanced := el
		advanced.TrueAnomaly = nu
		state := stateFromElements(advanced, cat.Mu)
		out[i] = state[0:3]
	}
	return out, nil
}

// Masses implements MinorBodyCatalogue.
func (cat *StaticMinorBodyCatalogue) Masses(n int) ([]float64, error) {
	if n > len(cat.Masses) {
		n = len(cat.Masses)
	}
	return append([]float64(nil), cat.Masses[:n]...), nil
}

func trueToEccentric(nu, e float64) float64 {
	return 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(nu/2), math.Sqrt(1+e)*math.Cos(nu/2))
}

func eccentricToTrue(ecc, e float64) float64 {
	return 2 * math.Atan2(math.Sqrt(1+e)*math.Sin(ecc/2), math.Sqrt(1-e)*math.Cos(ecc/2))
}

// solveKeplerEquationElliptic solves M = E - e*sin(E) for E via Newton
// iteration, a direct special case independent of the universal-variable
// solver in kepler.go (this one is angle-only, not a state propagation).
func solveKeplerEquationElliptic(m, e float64) float64 {
	m = math.Mod(m, 2*math.Pi)
	ecc := m
	for i := 0; i < 50; i++ {
		delta := (ecc - e*math.Sin(ecc) - m) / (1 - e*math.Cos(ecc))
		ecc -= delta
		if math.Abs(delta) < 1e-14 {
			break
		}
	}
	return ecc
}
