package flexroom

import (
	"errors"
	"testing"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

func flexRoom(t *testing.T) domain.Room {
	t.Helper()
	room, ok := domain.DefaultCatalog().FlexibleRoom()
	if !ok {
		t.Fatal("default catalog has no flexible room")
	}
	return room
}

func TestResolve(t *testing.T) {
	t.Parallel()

	room := flexRoom(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := domain.DateRange{
		CheckIn:  time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
	}

	femaleBooking := func(id string, status domain.BookingStatus, checkIn, checkOut time.Time) domain.Booking {
		return domain.Booking{
			ID: id, RoomID: room.ID, Type: domain.RoomTypeFemale,
			Status: status, CheckIn: checkIn, CheckOut: checkOut, Beds: 2,
		}
	}

	t.Run("confirmed female booking pins the room female", func(t *testing.T) {
		bookings := []domain.Booking{
			femaleBooking("b-f1", domain.BookingStatusConfirmed, window.CheckIn, window.CheckOut),
		}
		d := Resolve(room, domain.RoomTypeFemale, bookings, window, now, Options{})
		if d.EffectiveType != domain.RoomTypeFemale || d.Action != ActionKeep {
			t.Fatalf("expected female/keep, got %s/%s", d.EffectiveType, d.Action)
		}
	})

	t.Run("pending female more than 24h away schedules conversion", func(t *testing.T) {
		checkIn := now.Add(60 * time.Hour)
		bookings := []domain.Booking{
			femaleBooking("b-p1", domain.BookingStatusPending, checkIn, checkIn.AddDate(0, 0, 2)),
		}
		d := Resolve(room, domain.RoomTypeFemale, bookings, window, now, Options{})
		if d.Action != ActionSchedule {
			t.Fatalf("expected schedule_conversion, got %s", d.Action)
		}
		want := checkIn.Add(-24 * time.Hour)
		if !d.EligibleAt.Equal(want) {
			t.Fatalf("expected eligible at %v, got %v", want, d.EligibleAt)
		}
	})

	t.Run("empty room with no female demand converts now", func(t *testing.T) {
		// 72h before a candidate check-in, nothing on the books.
		d := Resolve(room, domain.RoomTypeFemale, nil, window, now, Options{})
		if d.EffectiveType != domain.RoomTypeMixed || d.Action != ActionConvert {
			t.Fatalf("expected mixed/convert, got %s/%s", d.EffectiveType, d.Action)
		}
		if !d.WillConvert {
			t.Fatal("expected WillConvert=true pre-conversion")
		}
	})

	t.Run("already-converted room reports WillConvert=false", func(t *testing.T) {
		d := Resolve(room, domain.RoomTypeMixed, nil, window, now, Options{})
		if d.EffectiveType != domain.RoomTypeMixed {
			t.Fatalf("expected mixed, got %s", d.EffectiveType)
		}
		if d.WillConvert {
			t.Fatal("expected WillConvert=false once already converted")
		}
	})

	t.Run("confirmed female inside autoConvertHours blocks conversion", func(t *testing.T) {
		checkIn := now.Add(24 * time.Hour)
		bookings := []domain.Booking{
			femaleBooking("b-f2", domain.BookingStatusConfirmed, checkIn, checkIn.AddDate(0, 0, 1)),
		}
		d := Resolve(room, domain.RoomTypeFemale, bookings, window, now, Options{})
		if d.Action != ActionKeep || d.EffectiveType != domain.RoomTypeFemale {
			t.Fatalf("expected female/keep, got %s/%s", d.EffectiveType, d.Action)
		}
	})

	t.Run("confirmed female beyond autoConvertHours converts an empty room", func(t *testing.T) {
		checkIn := now.Add(100 * time.Hour)
		bookings := []domain.Booking{
			femaleBooking("b-f3", domain.BookingStatusConfirmed, checkIn, checkIn.AddDate(0, 0, 1)),
		}
		d := Resolve(room, domain.RoomTypeFemale, bookings, window, now, Options{})
		if d.Action != ActionConvert || d.EffectiveType != domain.RoomTypeMixed {
			t.Fatalf("expected mixed/convert, got %s/%s", d.EffectiveType, d.Action)
		}
	})

	t.Run("occupied room keeps its label", func(t *testing.T) {
		bookings := []domain.Booking{
			{
				ID: "b-m1", RoomID: room.ID, Type: domain.RoomTypeMixed,
				Status:  domain.BookingStatusConfirmed,
				CheckIn: now.AddDate(0, 0, -1), CheckOut: now.AddDate(0, 0, 2), Beds: 3,
			},
		}
		d := Resolve(room, domain.RoomTypeFemale, bookings, window, now, Options{})
		if d.Action != ActionKeep || d.EffectiveType != domain.RoomTypeFemale {
			t.Fatalf("expected female/keep for occupied room, got %s/%s", d.EffectiveType, d.Action)
		}
	})

	t.Run("non-flexible room always keeps its catalog type", func(t *testing.T) {
		fixed, _ := domain.DefaultCatalog().Get(domain.RoomMixto12A)
		d := Resolve(fixed, domain.RoomTypeMixed, nil, window, now, Options{})
		if d.EffectiveType != domain.RoomTypeMixed || d.Action != ActionKeep {
			t.Fatalf("expected mixed/keep, got %s/%s", d.EffectiveType, d.Action)
		}
	})
}

func TestConvert_RejectsConflictingConfirmedBookings(t *testing.T) {
	t.Parallel()

	room := flexRoom(t)
	window := domain.DateRange{
		CheckIn:  time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
	}
	bookings := []domain.Booking{
		{ID: "b-f9", RoomID: room.ID, Type: domain.RoomTypeFemale, Status: domain.BookingStatusConfirmed,
			CheckIn: window.CheckIn, CheckOut: window.CheckOut, Beds: 2},
		{ID: "b-f8", RoomID: room.ID, Type: domain.RoomTypeFemale, Status: domain.BookingStatusConfirmed,
			CheckIn: window.CheckIn.AddDate(0, 0, 1), CheckOut: window.CheckOut, Beds: 1},
	}

	err := Convert(room, domain.RoomTypeMixed, bookings, window)
	if !errors.Is(err, domain.ErrConversionConflict) {
		t.Fatalf("expected ErrConversionConflict, got %v", err)
	}
	var conflictErr *ConversionConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected *ConversionConflictError, got %T", err)
	}
	if len(conflictErr.BookingIDs) != 2 {
		t.Fatalf("expected both conflicting booking IDs, got %v", conflictErr.BookingIDs)
	}
}

func TestConvert_AllowsCompatibleRelabel(t *testing.T) {
	t.Parallel()

	room := flexRoom(t)
	window := domain.DateRange{
		CheckIn:  time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
	}
	if err := Convert(room, domain.RoomTypeMixed, nil, window); err != nil {
		t.Fatalf("expected no error on empty room, got %v", err)
	}
}

func TestDemandScore(t *testing.T) {
	t.Parallel()

	room := flexRoom(t)
	window := domain.DateRange{
		CheckIn:  time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
	}
	bookings := []domain.Booking{
		{ID: "b-1", RoomID: room.ID, Type: domain.RoomTypeMixed, Status: domain.BookingStatusConfirmed,
			CheckIn: window.CheckIn, CheckOut: window.CheckOut, Beds: 5},
		{ID: "b-2", RoomID: room.ID, Type: domain.RoomTypeFemale, Status: domain.BookingStatusPending,
			CheckIn: window.CheckIn, CheckOut: window.CheckOut, Beds: 2},
	}

	got := DemandScore(room, bookings, window)
	want := float64(5-2) / float64(room.Capacity)
	if got != want {
		t.Fatalf("expected score %v, got %v", want, got)
	}
}
