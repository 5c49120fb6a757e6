// Package occupancy computes per-room beds-in-use over a date window. It is
// a pure function over a claim snapshot passed in by the caller; it holds no
// state and takes no locks.
package occupancy

import (
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

// RoomUsage is the per-room result of a window query.
type RoomUsage struct {
	RoomID    string
	Capacity  int
	Occupied  int
	Available int
}

// Compute sums the beds of every claim overlapping the window, per room.
// Claims whose RefID equals excludeRefID are skipped, so an edit does not
// count its own booking against itself. Available is floored at zero: an
// already-overbooked room reports zero, not a negative count.
func Compute(catalog domain.Catalog, claims []domain.Claim, window domain.DateRange, excludeRefID string) (map[string]RoomUsage, error) {
	if !window.CheckOut.After(window.CheckIn) {
		return nil, domain.ErrInvalidDateRange
	}

	usage := make(map[string]RoomUsage, len(catalog))
	for _, room := range catalog {
		usage[room.ID] = RoomUsage{RoomID: room.ID, Capacity: room.Capacity, Available: room.Capacity}
	}

	for _, claim := range claims {
		if excludeRefID != "" && claim.RefID == excludeRefID {
			continue
		}
		u, ok := usage[claim.RoomID]
		if !ok {
			continue
		}
		if !claim.Range().Overlaps(window) {
			continue
		}
		u.Occupied += claim.Beds
		u.Available = u.Capacity - u.Occupied
		if u.Available < 0 {
			u.Available = 0
		}
		usage[claim.RoomID] = u
	}
	return usage, nil
}

// OccupiedOnDay sums the beds claimed in one room on one specific night.
// The conflict detector uses it for the per-day overbooking scan.
func OccupiedOnDay(claims []domain.Claim, roomID string, day time.Time, excludeRefID string) int {
	total := 0
	for _, claim := range claims {
		if claim.RoomID != roomID {
			continue
		}
		if excludeRefID != "" && claim.RefID == excludeRefID {
			continue
		}
		if claim.Range().Contains(day) {
			total += claim.Beds
		}
	}
	return total
}

// TotalAvailable sums availability across all rooms of a usage map.
func TotalAvailable(usage map[string]RoomUsage) int {
	total := 0
	for _, u := range usage {
		total += u.Available
	}
	return total
}
