package scheduling

import "time"

// Slot placement rules. The gap applies on both ends of a slot, so two slots
// for one doctor must be separated by at least SlotGap.
const (
	SlotGap    = 5 * time.Minute
	JoinWindow = 15 * time.Minute
)

var allowedDurations = map[time.Duration]struct{}{
	15 * time.Minute: {},
	30 * time.Minute: {},
	60 * time.Minute: {},
}

// ValidDuration reports whether a slot length is one of the bookable sizes.
func ValidDuration(d time.Duration) bool {
	_, ok := allowedDurations[d]
	return ok
}

// BufferedBounds widens a slot by SlotGap on both sides. A conflicting slot
// for the same doctor is any one that starts before the widened end and ends
// after the widened start; the repository's conflict query compares against
// exactly these bounds.
func BufferedBounds(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-SlotGap), end.Add(SlotGap)
}

// BufferedOverlap is the symmetric buffered-interval test: it holds for exact
// overlaps, partial overlaps, and slots closer than SlotGap to each other, in
// both directions. Boundary: a slot starting exactly SlotGap after another
// ends does NOT overlap.
func BufferedOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	lo, hi := BufferedBounds(bStart, bEnd)
	return aStart.Before(hi) && aEnd.After(lo)
}
