package domain

import "time"

type ClaimSource string

const (
	ClaimSourceBooking ClaimSource = "booking"
	ClaimSourceHold    ClaimSource = "hold"
)

// Claim is one row of the occupancy snapshot the pure components consume: a
// number of beds in one room over a date range, traced back to the booking
// or hold that owns it.
type Claim struct {
	Source     ClaimSource
	RefID      string
	RoomID     string
	GuestEmail string
	CheckIn    time.Time
	CheckOut   time.Time
	Beds       int
}

func (c Claim) Range() DateRange {
	return DateRange{CheckIn: DayOf(c.CheckIn), CheckOut: DayOf(c.CheckOut)}
}

// ClaimFromBooking flattens an active booking into a snapshot row.
func ClaimFromBooking(b Booking) Claim {
	return Claim{
		Source:     ClaimSourceBooking,
		RefID:      b.ID,
		RoomID:     b.RoomID,
		GuestEmail: b.GuestEmail,
		CheckIn:    DayOf(b.CheckIn),
		CheckOut:   DayOf(b.CheckOut),
		Beds:       b.Beds,
	}
}

// ClaimsFromHold flattens a hold into one snapshot row per room it touches.
func ClaimsFromHold(h Hold) []Claim {
	claims := make([]Claim, 0, len(h.BedsPerRoom))
	for roomID, beds := range h.BedsPerRoom {
		if beds <= 0 {
			continue
		}
		claims = append(claims, Claim{
			Source:     ClaimSourceHold,
			RefID:      h.ID,
			RoomID:     roomID,
			GuestEmail: h.GuestEmail,
			CheckIn:    DayOf(h.CheckIn),
			CheckOut:   DayOf(h.CheckOut),
			Beds:       beds,
		})
	}
	return claims
}
