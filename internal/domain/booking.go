package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Booking is a reservation persisted by the external booking workflow. The
// core reads bookings to compute occupancy; its only write is expiring
// stale pending rows during maintenance sweeps.
type Booking struct {
	ID       string
	RoomID   string
	CheckIn  time.Time
	CheckOut time.Time
	Beds     int
	// Type is the gender designation the beds were sold under. It drives
	// the flexible-room conversion policy.
	Type       RoomType
	GuestEmail string
	Status     BookingStatus
	CreatedAt  time.Time
}

// Active reports whether the booking still claims beds.
func (b Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

func (b Booking) Range() DateRange {
	return DateRange{CheckIn: DayOf(b.CheckIn), CheckOut: DayOf(b.CheckOut)}
}
