package nbody

import "math"

// Encounter categories recorded in an EncounterLog cell.
const (
	// CategoryCollision means the recorded distance is below the body's
	// collision radius.
	CategoryCollision = 1
	// CategoryApproach means a non-impacting close approach was recorded.
	CategoryApproach = 2
	// CategoryUnobserved is the sentinel meaning "no observation yet".
	CategoryUnobserved = 3
)

// EncounterRecord is one (particle, body) cell of the encounter log.
type EncounterRecord struct {
	MJD      float64 // epoch of evaluation
	Category int     // 1 = collision, 2 = approach, 3 = unobserved
	Distance float64 // separation distance, AU
	Substep  float64 // substep size at which this record was taken
}

func newEncounterRecord() EncounterRecord {
	return EncounterRecord{Category: CategoryUnobserved, Distance: math.Inf(1)}
}

// EncounterLog is the three-dimensional (particle, body, field) table of
// closest-approach and collision observations. Body indices run 1..11 (see
// BodyIndex); index 0 is unused.
type EncounterLog struct {
	Records [][]EncounterRecord // [particle][body], body 0 unused
}

// NewEncounterLog returns a log sized for nParticles particles, initialized
// to the unobserved sentinel for every (particle, body) pair.
func NewEncounterLog(nParticles int) *EncounterLog {
	records := make([][]EncounterRecord, nParticles)
	for p := range records {
		row := make([]EncounterRecord, NumBodies+1)
		for b := range row {
			row[b] = newEncounterRecord()
		}
		records[p] = row
	}
	return &EncounterLog{Records: records}
}

// observe records a single (particle, body) observation taken at the given
// epoch and substep size, applying the same precedence the Merge function
// uses: a closer/earlier observation always replaces a worse one, a
// category-1 observation from this call can only be beaten by an earlier
// category-1 observation.
func (l *EncounterLog) observe(particle int, body BodyIndex, mjd, distance, substep float64, category int) {
	cur := &l.Records[particle][body]
	mergeInto(cur, EncounterRecord{MJD: mjd, Category: category, Distance: distance, Substep: substep})
}

// mergeInto applies the encounter-precedence rule in place: cur is replaced
// by incoming when incoming wins under the rule; otherwise cur is left
// untouched.
//
//   - a category-1 (collision) record with an earlier-or-equal MJD always
//     wins over a record with a strictly later MJD, regardless of category;
//   - among records that are both category-1 with the same precedence, or
//     both category >= 2, the smaller distance wins;
//   - a category-1 record from a nested (finer) call promotes any
//     non-impact record at the outer level for the same pair, i.e. a
//     collision always displaces a mere approach once it is no later.
func mergeInto(cur *EncounterRecord, incoming EncounterRecord) {
	if cur.Category == CategoryUnobserved {
		*cur = incoming
		return
	}
	if incoming.Category == CategoryCollision {
		if cur.Category != CategoryCollision {
			if incoming.MJD <= cur.MJD {
				*cur = incoming
			}
			return
		}
		// Both category 1: earlier time wins; ties broken by distance.
		if incoming.MJD < cur.MJD || (incoming.MJD == cur.MJD && incoming.Distance < cur.Distance) {
			*cur = incoming
		}
		return
	}
	if cur.Category == CategoryCollision {
		// An outer non-impact can never displace an established collision.
		return
	}
	// Both category >= 2: smaller distance wins.
	if incoming.Distance < cur.Distance {
		*cur = incoming
	}
}

// Merge folds a nested log (e.g. from a finer substep or a recursive split)
// into l, applying mergeInto cell by cell. Both logs must have the same
// particle count.
func (l *EncounterLog) Merge(nested *EncounterLog) {
	if nested == nil {
		return
	}
	for p := range l.Records {
		if p >= len(nested.Records) {
			break
		}
		for b := range l.Records[p] {
			mergeInto(&l.Records[p][b], nested.Records[p][b])
		}
	}
}
