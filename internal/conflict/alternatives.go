package conflict

import (
	"sort"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/occupancy"
)

type AlternativeKind string

const (
	KindOtherRoom      AlternativeKind = "other_room"
	KindShiftedDates   AlternativeKind = "shifted_dates"
	KindMultiRoomSplit AlternativeKind = "multi_room_split"
)

// Alternative is one feasible variation of a rejected request, ranked by
// Score. Alternatives are suggestions for the caller, never applied.
type Alternative struct {
	Kind        AlternativeKind
	RoomID      string
	CheckIn     time.Time
	CheckOut    time.Time
	Allocations []allocator.RoomAllocation
	Score       float64
}

// splitThreshold: only requests larger than this get a multi-room split
// suggestion.
const splitThreshold = 7

var dateShifts = []int{-3, 3, -7, 7}

func (d *Detector) suggestAlternatives(c Candidate, claims []domain.Claim) []Alternative {
	var out []Alternative

	// Same request, every other room.
	for _, room := range d.catalog {
		if room.ID == c.RoomID {
			continue
		}
		alt := c
		alt.RoomID = room.ID
		if report := d.validate(alt, claims); report.CanProceed {
			out = append(out, Alternative{
				Kind:     KindOtherRoom,
				RoomID:   room.ID,
				CheckIn:  alt.CheckIn,
				CheckOut: alt.CheckOut,
				Score:    d.feasibilityScore(KindOtherRoom, room.ID, alt.window(), claims, 0),
			})
		}
	}

	// Same room, shifted windows.
	today := domain.DayOf(d.clock.Now())
	for _, shift := range dateShifts {
		shifted := c.window().Shift(shift)
		if shifted.CheckIn.Before(today) {
			continue
		}
		alt := c
		alt.CheckIn = shifted.CheckIn
		alt.CheckOut = shifted.CheckOut
		if report := d.validate(alt, claims); report.CanProceed {
			out = append(out, Alternative{
				Kind:     KindShiftedDates,
				RoomID:   c.RoomID,
				CheckIn:  shifted.CheckIn,
				CheckOut: shifted.CheckOut,
				Score:    d.feasibilityScore(KindShiftedDates, c.RoomID, shifted, claims, shift),
			})
		}
	}

	// Large groups: try splitting across rooms.
	if c.Beds > splitThreshold {
		if split, ok := d.trySplit(c, claims); ok {
			out = append(out, split)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (d *Detector) trySplit(c Candidate, claims []domain.Claim) (Alternative, bool) {
	usage, err := occupancy.Compute(d.catalog, claims, c.window(), c.ExcludeRefID)
	if err != nil {
		return Alternative{}, false
	}
	rooms := make([]allocator.RoomAvailability, 0, len(d.catalog))
	for _, room := range d.catalog {
		rooms = append(rooms, allocator.RoomAvailability{
			Room:          room,
			EffectiveType: room.Type,
			Available:     usage[room.ID].Available,
		})
	}
	res, err := allocator.Allocate(c.Beds, rooms, allocator.StrategyGroupFriendly, allocator.Preferences{})
	if err != nil {
		return Alternative{}, false
	}
	return Alternative{
		Kind:        KindMultiRoomSplit,
		CheckIn:     c.CheckIn,
		CheckOut:    c.CheckOut,
		Allocations: res.Allocations,
		Score:       0.75 * (1 - res.Fragmentation/100),
	}, true
}

// feasibilityScore ranks alternatives: staying in the requested window beats
// moving dates, and more remaining headroom beats a tighter fit. Shifted
// windows lose a little per day moved.
func (d *Detector) feasibilityScore(kind AlternativeKind, roomID string, window domain.DateRange, claims []domain.Claim, shift int) float64 {
	room, ok := d.catalog.Get(roomID)
	if !ok || room.Capacity == 0 {
		return 0
	}
	usage, err := occupancy.Compute(d.catalog, claims, window, "")
	if err != nil {
		return 0
	}
	headroom := float64(usage[roomID].Available) / float64(room.Capacity)

	base := 1.0
	if kind == KindShiftedDates {
		base = 0.6 - 0.02*absInt(shift)
	}
	return base * headroom
}

func absInt(n int) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
