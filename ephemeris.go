package nbody

import (
	"math"

	"github.com/soniakeys/meeus/julian"
	"github.com/soniakeys/meeus/planetposition"
	"github.com/soniakeys/meeus/pluto"
)

// Ephemeris is the position/velocity collaborator the force model and
// Kepler solver consume. The engine only depends on this narrow interface,
// never on how positions are produced.
type Ephemeris interface {
	// Positions returns the heliocentric position (AU), and, when
	// withVelocity is true, the heliocentric velocity (AU/day), of each of
	// the 9 planets and the Moon at epoch t (MJD). Index 0 and 11 are left
	// as nil slices; index 11 (Sun) is always the origin by construction
	// and is never populated here, since callers add it implicitly.
	Positions(t float64, withVelocity bool) (pos, vel [NumBodies + 1][]float64, err error)
	// PlanetaryMu, PlanetaryRadii and PlanetaryMasses return the constants
	// catalogue, indexed 1=Mercury...10=Moon, 11=Sun.
	PlanetaryMu() [NumBodies + 1]float64
	PlanetaryRadii() [NumBodies + 1]float64
	PlanetaryMasses() [NumBodies + 1]float64
}

// MinorBodyCatalogue is the asteroid-perturber collaborator: a parallel
// catalogue of minor-body positions and masses.
type MinorBodyCatalogue interface {
	// Positions returns the heliocentric position (AU) of the first n
	// cataloged minor bodies at epoch t.
	Positions(t float64, n int) ([][]float64, error)
	// Masses returns the mass (solar masses) of the first n cataloged minor
	// bodies.
	Masses(n int) ([]float64, error)
}

// vsopSlot maps the cataloged planets to meeus' VSOP87 slot indices
// (0-based: Mercury=0 ... Neptune=7); Pluto and the Moon are handled as
// special cases below, since soniakeys/meeus tracks Pluto separately from
// the VSOP87 planet set.
var vsopSlot = map[BodyIndex]int{
	Mercury: 0,
	Venus:   1,
	Earth:   2,
	Mars:    3,
	Jupiter: 4,
	Saturn:  5,
	Uranus:  6,
	Neptune: 7,
}

// MeeusEphemeris is a concrete Ephemeris backed by the VSOP87 planetary
// theory (soniakeys/meeus/planetposition) with a dedicated Pluto case
// (soniakeys/meeus/pluto). The Moon is approximated as coincident with
// Earth (a caller integrating lunar perturbations precisely should supply
// its own Ephemeris; this implementation exists to give the engine one real
// non-test-double Ephemeris, not to be a complete lunar theory).
type MeeusEphemeris struct {
	VSOP87Dir string
	planets   map[BodyIndex]*planetposition.V87Planet
}

// NewMeeusEphemeris returns a MeeusEphemeris that loads VSOP87 planet files
// from dir on first use, lazily, per planet.
func NewMeeusEphemeris(dir string) *MeeusEphemeris {
	return &MeeusEphemeris{VSOP87Dir: dir, planets: make(map[BodyIndex]*planetposition.V87Planet)}
}

func (e *MeeusEphemeris) planet(b BodyIndex) (*planetposition.V87Planet, error) {
	if p, ok := e.planets[b]; ok {
		return p, nil
	}
	slot, ok := vsopSlot[b]
	if !ok {
		return nil, newError("MeeusEphemeris.planet", DomainError, nil, "body %s has no VSOP87 slot", b)
	}
	p, err := planetposition.LoadPlanetPath(slot, e.VSOP87Dir)
	if err != nil {
		return nil, newError("MeeusEphemeris.planet", EphemerisFailure, err, "could not load VSOP87 data for %s", b)
	}
	e.planets[b] = p
	return p, nil
}

// heliocentricCartesian converts a VSOP87 (L,B,R) ecliptic spherical
// position to Cartesian AU.
func heliocentricCartesian(l, b, r float64) []float64 {
	sb, cb := math.Sincos(b)
	sl, cl := math.Sincos(l)
	return []float64{r * cb * cl, r * cb * sl, r * sb}
}

// Positions implements Ephemeris. Velocities, when requested, are estimated
// by central finite difference with a one-hour step either side, since VSOP87 as
// exposed by soniakeys/meeus yields only the instantaneous (L,B,R) position.
func (e *MeeusEphemeris) Positions(t float64, withVelocity bool) (pos, vel [NumBodies + 1][]float64, err error) {
	jd := t + 2400000.5 // MJD -> JD
	for b := Mercury; b <= Moon; b++ {
		if b == Moon {
			// Approximate the Moon as coincident with Earth's barycenter;
			// callers needing precise lunar perturbations should supply
			// their own Ephemeris.
			pos[b] = pos[Earth]
			if withVelocity {
				vel[b] = vel[Earth]
			}
			continue
		}
		r, verr := e.bodyPosition(b, jd)
		if verr != nil {
			return pos, vel, verr
		}
		pos[b] = r
		if withVelocity {
			const dtHour = 1.0 / 24.0
			rPlus, verr := e.bodyPosition(b, jd+dtHour)
			if verr != nil {
				return pos, vel, verr
			}
			rMinus, verr := e.bodyPosition(b, jd-dtHour)
			if verr != nil {
				return pos, vel, verr
			}
			v := make([]float64, 3)
			for i := 0; i < 3; i++ {
				v[i] = (rPlus[i] - rMinus[i]) / (2 * dtHour)
			}
			vel[b] = v
		}
	}
	return pos, vel, nil
}

func (e *MeeusEphemeris) bodyPosition(b BodyIndex, jd float64) ([]float64, error) {
	if b == PlutoBody {
		l, lat, r := pluto.Heliocentric(jd)
		return heliocentricCartesian(l.Rad(), lat.Rad(), r), nil
	}
	p, err := e.planet(b)
	if err != nil {
		return nil, err
	}
	l, lat, r := p.Position2000(jd)
	return heliocentricCartesian(l.Rad(), lat.Rad(), r), nil
}

func (e *MeeusEphemeris) PlanetaryMu() [NumBodies + 1]float64     { return planetaryMu }
func (e *MeeusEphemeris) PlanetaryRadii() [NumBodies + 1]float64  { return planetaryRadii }
func (e *MeeusEphemeris) PlanetaryMasses() [NumBodies + 1]float64 { return planetaryMasses }

// mjdFromJD converts a Julian day number to a Modified Julian Date, for
// callers that want to align with meeus' julian.TimeToJD helpers when
// converting from a time.Time.
func mjdFromJD(jd float64) float64 { return jd - 2400000.5 }

// JulianToMJD converts a Julian day number to a Modified Julian Date,
// matching soniakeys/meeus/julian's day-number convention.
func JulianToMJD(jd float64) float64 { return mjdFromJD(jd) }

// The blank reference keeps soniakeys/meeus/julian imported as the bridge
// for callers building epochs from calendar dates.
var _ = julian.TimeToJD
