package domain

import "time"

type HoldStatus string

const (
	HoldStatusHold      HoldStatus = "hold"
	HoldStatusPaid      HoldStatus = "paid"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
)

// Rank orders the progressing statuses: hold(1) < paid(2) < confirmed(3).
// Released and unknown statuses rank 0; they never participate in the
// monotonic ladder.
func (s HoldStatus) Rank() int {
	switch s {
	case HoldStatusHold:
		return 1
	case HoldStatusPaid:
		return 2
	case HoldStatusConfirmed:
		return 3
	default:
		return 0
	}
}

// Hold is a provisional, TTL-bounded claim on beds made while a guest
// completes payment. Status only moves forward; expiry is always computed
// from ExpiresAt, never from whether a sweep has run.
type Hold struct {
	ID          string
	BedsPerRoom map[string]int
	CheckIn     time.Time
	CheckOut    time.Time
	GuestEmail  string
	Status      HoldStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (h Hold) TotalBeds() int {
	total := 0
	for _, beds := range h.BedsPerRoom {
		total += beds
	}
	return total
}

func (h Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// Claiming reports whether the hold still counts against capacity at the
// given instant.
func (h Hold) Claiming(now time.Time) bool {
	return h.Status != HoldStatusReleased && !h.Expired(now)
}

func (h Hold) Range() DateRange {
	return DateRange{CheckIn: DayOf(h.CheckIn), CheckOut: DayOf(h.CheckOut)}
}
