// README: Pure ordering heuristic for delivery stops.
package routing

import "slices"

// OrderByDistance sorts stops by hub distance ascending, parcel id as the
// tie-break so equal distances produce a deterministic order. A greedy
// near-to-far band keeps early stops short without solving a full VRP.
func OrderByDistance(stops []Stop, distanceMeters map[string]int) []Stop {
	out := make([]Stop, len(stops))
	copy(out, stops)

	slices.SortFunc(out, func(a, b Stop) int {
		da := distanceMeters[a.ParcelID]
		db := distanceMeters[b.ParcelID]
		if da != db {
			return da - db
		}
		if a.ParcelID < b.ParcelID {
			return -1
		}
		if a.ParcelID > b.ParcelID {
			return 1
		}
		return 0
	})
	return out
}
