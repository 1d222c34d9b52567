package nbody

import (
	"github.com/gonum/matrix/mat64"
)

// ForceModel computes, for a set of particle states at an epoch, the time
// derivative of each state (and, on request, the Jacobian of that derivative
// with respect to the state), accumulating encounter observations into an
// EncounterLog as a side effect.
type ForceModel struct {
	Ephem     Ephemeris
	Catalogue MinorBodyCatalogue // nil when MinorBodies is false

	// PerturberMask selects which of the 9 planets and the Moon contribute a
	// perturbing term; index 0 and 11 are ignored (the central body and the
	// Sun are handled separately, see Evaluate).
	PerturberMask [NumBodies + 1]bool
	MinorBodies   bool
	NumMinorBody  int

	// RadialAccel, when non-nil, is an empirical radial acceleration (AU/day^2)
	// applied to massless particles only, in the style of a non-gravitational
	// (radiation-pressure-like) term.
	RadialAccel *float64

	// ApproachThreshold is the distance (AU) below which a non-colliding
	// encounter is logged; above it, no record is made at all. Zero means
	// "log every approach", matching an unset (always-record) threshold.
	ApproachThreshold float64
}

// Evaluate computes the derivative (and optionally the Jacobian) of every
// particle in batch at epoch t MJD, against cfg's central body and
// relativity setting, recording any close approaches or collisions into log
// (which may be nil to skip encounter bookkeeping entirely).
func (fm *ForceModel) Evaluate(cfg EngineConfig, t float64, batch Batch, wantJacobian bool, log *EncounterLog) ([][]float64, []*mat64.Dense, error) {
	central := cfg.centralBody()
	relativity := cfg.relativityEnabled()
	if relativity && central != Sun {
		return nil, nil, newError("ForceModel.Evaluate", DomainError, nil,
			"relativity requires a Sun-centered integration, central body is %s", central)
	}

	pos, _, err := fm.Ephem.Positions(t, false)
	if err != nil {
		return nil, nil, newError("ForceModel.Evaluate", EphemerisFailure, err, "ephemeris lookup failed at MJD %g", t)
	}
	// pos is heliocentric; shift every active perturber into the central
	// body's frame. The Sun itself is the zero vector in this frame when
	// central == Sun, and pos[central] otherwise.
	centralPos := []float64{0, 0, 0}
	if central != Sun {
		centralPos = pos[central]
	}
	perturberR := make(map[BodyIndex][]float64, NumBodies)
	for b := Mercury; b <= Moon; b++ {
		if !fm.PerturberMask[b] || b == central {
			continue
		}
		perturberR[b] = Sub(pos[b], centralPos)
	}
	if central != Sun {
		// The Sun is always an implicit perturber of a non-solar-centered
		// integration, mask or no mask, since it is never the origin.
		perturberR[Sun] = Sub([]float64{0, 0, 0}, centralPos)
	}

	var minorPos [][]float64
	var minorMu []float64
	if fm.MinorBodies && fm.Catalogue != nil && fm.NumMinorBody > 0 {
		rawPos, err := fm.Catalogue.Positions(t, fm.NumMinorBody)
		if err != nil {
			return nil, nil, newError("ForceModel.Evaluate", EphemerisFailure, err, "minor-body catalogue position lookup failed")
		}
		rawMass, err := fm.Catalogue.Masses(fm.NumMinorBody)
		if err != nil {
			return nil, nil, newError("ForceModel.Evaluate", EphemerisFailure, err, "minor-body catalogue mass lookup failed")
		}
		minorPos = make([][]float64, len(rawPos))
		minorMu = make([]float64, len(rawMass))
		for i := range rawPos {
			minorPos[i] = Sub(rawPos[i], centralPos)
			minorMu[i] = GravitationalConstant * rawMass[i]
		}
	}

	muC := PlanetaryMu(central)
	n := batch.N()
	deriv := make([][]float64, n)
	var jac []*mat64.Dense
	if wantJacobian {
		jac = make([]*mat64.Dense, n)
	}

	for i := 0; i < n; i++ {
		ri := batch.States[i][0:3]
		vi := batch.States[i][3:6]
		rNorm := Norm(ri)
		if rNorm == 0 {
			return nil, nil, newError("ForceModel.Evaluate", DomainError, nil, "particle %d is at the origin of the central body", i)
		}

		accel := Scale(-muC/(rNorm*rNorm*rNorm), ri)

		var posJac, velJac *mat64.Dense
		if wantJacobian {
			posJac = mat64.NewDense(3, 3, nil)
			velJac = mat64.NewDense(3, 3, nil)
			addInverseCubeJacobian(posJac, ri, muC, 1)
		}

		for b, rj := range perturberR {
			mu := PlanetaryMu(b)
			diff := Sub(rj, ri)
			dNorm := Norm(diff)
			if dNorm == 0 {
				return nil, nil, newError("ForceModel.Evaluate", DomainError, nil, "particle %d coincides with body %s", i, b)
			}
			accel = Add(accel, Scale(mu/(dNorm*dNorm*dNorm), diff))
			// A perturber sitting at the central body's origin contributes
			// no indirect term.
			if jNorm := Norm(rj); jNorm > 0 {
				accel = Sub(accel, Scale(mu/(jNorm*jNorm*jNorm), rj))
			}
			fm.recordEncounter(log, i, b, t, dNorm, rNorm)
			if wantJacobian {
				addInverseCubeJacobian(posJac, diff, mu, 1)
			}
		}

		// A Sun record is always emitted at body index 11, mask or no mask;
		// when the Sun is the central body its distance is simply rNorm,
		// since perturberR never carries an entry for the central body.
		if central == Sun {
			fm.recordEncounter(log, i, Sun, t, rNorm, rNorm)
		}

		// Additional perturbers act on massless particles only: never on the
		// ephemeris-supplied bodies (handled above) and never on each other.
		if !batch.IsAdditionalPerturber(i) {
			for k := 0; k < n; k++ {
				if k == i || !batch.IsAdditionalPerturber(k) {
					continue
				}
				rk := batch.States[k][0:3]
				mu := GravitationalConstant * batch.Masses[k]
				diff := Sub(rk, ri)
				dNorm := Norm(diff)
				if dNorm == 0 {
					return nil, nil, newError("ForceModel.Evaluate", DomainError, nil, "particles %d and %d coincide", i, k)
				}
				accel = Add(accel, Scale(mu/(dNorm*dNorm*dNorm), diff))
				kNorm := Norm(rk)
				accel = Sub(accel, Scale(mu/(kNorm*kNorm*kNorm), rk))
				if wantJacobian {
					addInverseCubeJacobian(posJac, diff, mu, 1)
				}
			}
		}

		for j, mj := range minorMu {
			rj := minorPos[j]
			diff := Sub(rj, ri)
			dNorm := Norm(diff)
			if dNorm == 0 {
				continue
			}
			accel = Add(accel, Scale(mj/(dNorm*dNorm*dNorm), diff))
			jNorm := Norm(rj)
			accel = Sub(accel, Scale(mj/(jNorm*jNorm*jNorm), rj))
			if wantJacobian {
				addInverseCubeJacobian(posJac, diff, mj, 1)
			}
		}

		if relativity {
			arel, jrPos, jrVel := relativisticAcceleration(ri, vi, muC)
			accel = Add(accel, arel)
			if wantJacobian {
				addBlock(posJac, 0, 0, jrPos)
				addBlock(velJac, 0, 0, jrVel)
			}
		}

		if fm.RadialAccel != nil && !batch.IsAdditionalPerturber(i) {
			u := Unit(ri)
			accel = Add(accel, Scale(*fm.RadialAccel, u))
			if wantJacobian {
				jr := radialJacobian(ri, *fm.RadialAccel)
				addBlock(posJac, 0, 0, jr)
			}
		}

		if AnyNonFinite(accel) {
			return nil, nil, newError("ForceModel.Evaluate", DomainError, nil, "non-finite acceleration for particle %d at MJD %g", i, t)
		}

		d := make([]float64, 6)
		copy(d[0:3], vi)
		copy(d[3:6], accel)
		deriv[i] = d
		if wantJacobian {
			block := mat64.NewDense(6, 6, nil)
			for c := 0; c < 3; c++ {
				block.Set(c, c+3, 1)
			}
			addBlock(block, 3, 0, posJac)
			addBlock(block, 3, 3, velJac)
			jac[i] = block
		}
	}

	return deriv, jac, nil
}

// recordEncounter logs a (particle, body) observation at the particle's
// distance from that body (for flyby/collision detection against it) when a
// log is supplied. The trailing argument is unused.
func (fm *ForceModel) recordEncounter(log *EncounterLog, particle int, body BodyIndex, t, distance, _ float64) {
	if log == nil {
		return
	}
	radius := PlanetaryRadius(body)
	if distance <= radius {
		log.observe(particle, body, t, distance, 0, CategoryCollision)
		driverLogger.Log("level", "warning", "subsys", "force", "status", "collision",
			"particle", particle, "body", body, "mjd", t, "distance_au", distance)
		return
	}
	if fm.ApproachThreshold > 0 && distance > fm.ApproachThreshold {
		return
	}
	log.observe(particle, body, t, distance, 0, CategoryApproach)
}

// addBlock adds the entries of a 3x3 src into block at the given row/column
// offset (one of the four 3x3 quadrants of a 6x6 state Jacobian).
func addBlock(block *mat64.Dense, rowOff, colOff int, src *mat64.Dense) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			block.Set(rowOff+i, colOff+j, block.At(rowOff+i, colOff+j)+src.At(i, j))
		}
	}
}

// relativisticAcceleration evaluates the isotropic-coordinates first
// post-Newtonian correction
//
//	a_rel = (mu/(c^2 r^3)) * [(4*mu/r - v.v) r + 4(r.v) v]
//
// together with its Jacobian with respect to r and v, analytically
// differentiated term by term.
func relativisticAcceleration(r, v []float64, mu float64) (accel []float64, jPos, jVel *mat64.Dense) {
	rn := Norm(r)
	v2 := Dot(v, v)
	rv := Dot(r, v)
	c2 := SpeedOfLight * SpeedOfLight
	k := mu / c2

	a := 4*mu/rn - v2
	bCoef := 4 * rv / (rn * rn * rn)
	accel = Add(Scale(k*a/(rn*rn*rn), r), Scale(k*bCoef, v))

	jPos = mat64.NewDense(3, 3, nil)
	jVel = mat64.NewDense(3, 3, nil)

	// A = 4*mu/r^4 - v^2/r^3 so that a_rel = k*(A*r + B*v).
	A := 4*mu/(rn*rn*rn*rn) - v2/(rn*rn*rn)
	gradA := Scale(-16*mu/(rn*rn*rn*rn*rn*rn)+3*v2/(rn*rn*rn*rn*rn), r)
	gradB := Add(Scale(4/(rn*rn*rn), v), Scale(-12*rv/(rn*rn*rn*rn*rn), r))
	addOuter3x3(jPos, r, gradA, k)
	addDiag3x3(jPos, k*A)
	addOuter3x3(jPos, v, gradB, k)

	gradAv := Scale(-2/(rn*rn*rn), v)
	gradBv := Scale(4/(rn*rn*rn), r)
	B := 4 * rv / (rn * rn * rn)
	addOuter3x3(jVel, r, gradAv, k)
	addDiag3x3(jVel, k*B)
	addOuter3x3(jVel, v, gradBv, k)

	return accel, jPos, jVel
}

// radialJacobian differentiates a_rad*(r/|r|) with respect to r.
func radialJacobian(r []float64, aRad float64) *mat64.Dense {
	rn := Norm(r)
	j := mat64.NewDense(3, 3, nil)
	addDiag3x3(j, aRad/rn)
	addOuter3x3(j, r, r, -aRad/(rn*rn*rn))
	return j
}
