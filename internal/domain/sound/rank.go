package sound

import "sort"

// DefaultTopLimit is the size of the ranked list served to readers
const DefaultTopLimit = 50

// Rank orders entries by velocity, highest first, and truncates to limit.
// Equal velocities fall back to latest uses (highest first) and then sound ID,
// so the order is deterministic. A non-positive limit keeps every entry.
func Rank(entries []Ranked, limit int) []Ranked {
	ranked := make([]Ranked, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Velocity != b.Velocity {
			return a.Velocity > b.Velocity
		}
		if a.LatestUses != b.LatestUses {
			return a.LatestUses > b.LatestUses
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
