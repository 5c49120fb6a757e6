package flexroom

import (
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

// DemandScore estimates the revenue impact of relabeling the flexible room
// mixed for the window: positive means mixed demand outweighs female demand,
// negative the reverse. It feeds admin/manual override decisions only; the
// deterministic policy in Resolve ignores it.
func DemandScore(room domain.Room, bookings []domain.Booking, window domain.DateRange) float64 {
	if room.Capacity == 0 {
		return 0
	}
	mixedBeds, femaleBeds := 0, 0
	for _, b := range bookings {
		if !b.Active() || !b.Range().Overlaps(window) {
			continue
		}
		switch b.Type {
		case domain.RoomTypeFemale:
			femaleBeds += b.Beds
		default:
			mixedBeds += b.Beds
		}
	}
	return float64(mixedBeds-femaleBeds) / float64(room.Capacity)
}
