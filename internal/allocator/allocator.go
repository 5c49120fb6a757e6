// Package allocator selects which rooms satisfy a multi-bed request. All
// strategies are greedy and never backtrack: on pathological inputs the
// result can be more fragmented than the optimum. That is inherited behavior
// downstream code depends on, not a bug to fix here.
package allocator

import (
	"sort"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

type Strategy string

const (
	// StrategyGroupFriendly is the default: large groups fill 12-bed rooms
	// first, small requests try to stay in one room.
	StrategyGroupFriendly Strategy = "group-friendly"
	// StrategyMaximizeUtilization fills the most-occupied rooms first.
	StrategyMaximizeUtilization Strategy = "maximize-utilization"
	// StrategyMinimizeFragmentation prefers the emptiest room.
	StrategyMinimizeFragmentation Strategy = "minimize-fragmentation"
	StrategyPreferLarger          Strategy = "prefer-larger"
	StrategyPreferSmaller         Strategy = "prefer-smaller"
)

// largeGroupBeds is the request size at which group-friendly switches to the
// large-group fill order.
const largeGroupBeds = 7

type Preferences struct {
	RoomType            *domain.RoomType
	AvoidFlexibleRooms  bool
	PreferSeparateRooms bool
}

// RoomAvailability is one room's standing going into allocation. The
// effective type already reflects the flexible-room policy; a flexible room
// relabeled mixed satisfies a mixed preference.
type RoomAvailability struct {
	Room          domain.Room
	EffectiveType domain.RoomType
	Available     int
}

type RoomAllocation struct {
	RoomID string `json:"room_id"`
	Beds   int    `json:"beds"`
}

const (
	WarnGroupSplit           = "group split across multiple rooms"
	WarnFlexibleRoomIncluded = "allocation includes the flexible room"
	WarnSeparateRoomsUnmet   = "separate-rooms preference not satisfiable"
)

// Result carries the allocation plus observability metrics. The metrics feed
// warnings and dashboards only; correctness never depends on them.
type Result struct {
	Allocations []RoomAllocation
	// Utilization is the average post-allocation occupancy percentage
	// across touched rooms.
	Utilization float64
	// Fragmentation is touched rooms over total rooms, as a percentage.
	Fragmentation float64
	Warnings      []string
}

// Allocate greedily distributes requested beds over the filtered, sorted
// room list: take min(remaining, available) from each room until nothing
// remains. Fails with ErrInsufficientCapacity when the filtered rooms cannot
// cover the request.
func Allocate(requested int, rooms []RoomAvailability, strategy Strategy, prefs Preferences) (Result, error) {
	if requested <= 0 {
		return Result{}, domain.ErrInvalidBeds
	}

	candidates := filter(rooms, prefs)

	total := 0
	for _, r := range candidates {
		total += r.Available
	}
	if total < requested {
		return Result{}, domain.ErrInsufficientCapacity
	}

	ordered := order(candidates, strategy, requested)

	var allocations []RoomAllocation
	remaining := requested
	for _, r := range ordered {
		if remaining == 0 {
			break
		}
		take := r.Available
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, RoomAllocation{RoomID: r.Room.ID, Beds: take})
		remaining -= take
	}

	res := Result{Allocations: allocations}
	res.Utilization = utilization(allocations, candidates)
	res.Fragmentation = float64(len(allocations)) / float64(len(rooms)) * 100
	res.Warnings = warnings(requested, allocations, candidates, prefs)
	return res, nil
}

func filter(rooms []RoomAvailability, prefs Preferences) []RoomAvailability {
	out := make([]RoomAvailability, 0, len(rooms))
	for _, r := range rooms {
		if r.Available <= 0 {
			continue
		}
		if prefs.RoomType != nil && r.EffectiveType != *prefs.RoomType {
			continue
		}
		if prefs.AvoidFlexibleRooms && r.Room.Flexible {
			continue
		}
		out = append(out, r)
	}
	return out
}

func order(rooms []RoomAvailability, strategy Strategy, requested int) []RoomAvailability {
	ordered := append([]RoomAvailability(nil), rooms...)

	switch strategy {
	case StrategyMaximizeUtilization:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Available < ordered[j].Available
		})
	case StrategyMinimizeFragmentation:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Available > ordered[j].Available
		})
	case StrategyPreferLarger:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Room.Capacity > ordered[j].Room.Capacity
		})
	case StrategyPreferSmaller:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Room.Capacity < ordered[j].Room.Capacity
		})
	default:
		ordered = groupFriendly(ordered, requested)
	}
	return ordered
}

// groupFriendly orders for the default strategy. Requests of largeGroupBeds
// or more fill 12-bed rooms before 7-bed rooms, each tier by descending
// availability. Smaller requests prefer a single room that holds the whole
// group, then fall back to the room with the most space.
func groupFriendly(rooms []RoomAvailability, requested int) []RoomAvailability {
	ordered := append([]RoomAvailability(nil), rooms...)

	if requested >= largeGroupBeds {
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Room.Capacity != ordered[j].Room.Capacity {
				return ordered[i].Room.Capacity > ordered[j].Room.Capacity
			}
			return ordered[i].Available > ordered[j].Available
		})
		return ordered
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Available > ordered[j].Available
	})
	for i, r := range ordered {
		if r.Available >= requested {
			fit := ordered[i]
			copy(ordered[1:i+1], ordered[:i])
			ordered[0] = fit
			break
		}
	}
	return ordered
}

func utilization(allocations []RoomAllocation, rooms []RoomAvailability) float64 {
	if len(allocations) == 0 {
		return 0
	}
	byID := make(map[string]RoomAvailability, len(rooms))
	for _, r := range rooms {
		byID[r.Room.ID] = r
	}
	sum := 0.0
	for _, a := range allocations {
		r := byID[a.RoomID]
		occupied := r.Room.Capacity - r.Available + a.Beds
		sum += float64(occupied) / float64(r.Room.Capacity) * 100
	}
	return sum / float64(len(allocations))
}

func warnings(requested int, allocations []RoomAllocation, rooms []RoomAvailability, prefs Preferences) []string {
	var out []string
	if requested <= largeGroupBeds && len(allocations) > 1 {
		out = append(out, WarnGroupSplit)
	}
	byID := make(map[string]RoomAvailability, len(rooms))
	for _, r := range rooms {
		byID[r.Room.ID] = r
	}
	for _, a := range allocations {
		if byID[a.RoomID].Room.Flexible {
			out = append(out, WarnFlexibleRoomIncluded)
			break
		}
	}
	if prefs.PreferSeparateRooms && requested > 1 && len(allocations) == 1 {
		out = append(out, WarnSeparateRoomsUnmet)
	}
	return out
}
