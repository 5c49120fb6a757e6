// Package flexroom resolves the effective gender designation of the one
// convertible room. The deterministic policy in this file is authoritative
// for allocation; the demand scorer in score.go is advisory only and never
// consulted on the correctness path.
package flexroom

import (
	"fmt"
	"sort"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

type Action string

const (
	// ActionKeep leaves the current label untouched.
	ActionKeep Action = "keep"
	// ActionConvert relabels the room mixed effective immediately.
	ActionConvert Action = "convert"
	// ActionSchedule defers the decision until EligibleAt.
	ActionSchedule Action = "schedule_conversion"
)

type Options struct {
	// AutoConvertAfter is how far away the next confirmed female booking
	// must be before an empty room converts to mixed. Default 48h.
	AutoConvertAfter time.Duration
	// ConversionNotice is the lead time required before a pending female
	// check-in blocks conversion outright. Default 24h.
	ConversionNotice time.Duration
}

func (o Options) withDefaults() Options {
	if o.AutoConvertAfter <= 0 {
		o.AutoConvertAfter = 48 * time.Hour
	}
	if o.ConversionNotice <= 0 {
		o.ConversionNotice = 24 * time.Hour
	}
	return o
}

// Decision is the derived flexible-room state for one availability query.
// It is recomputed on every call, never persisted.
type Decision struct {
	EffectiveType domain.RoomType
	Action        Action
	// WillConvert is true when this decision changes the label; a room
	// already labeled mixed reports false.
	WillConvert bool
	// EligibleAt is the instant a scheduled conversion becomes decidable.
	EligibleAt time.Time
}

// Resolve applies the conversion rule chain, first match wins:
//
//  1. a confirmed female booking overlapping the window pins the room female
//  2. pending-only female demand more than ConversionNotice away defers the
//     decision until notice time
//  3. an empty room with no confirmed female booking inside AutoConvertAfter
//     converts to mixed now
//  4. otherwise the current label stands
//
// currentType is the room's present label (the catalog default unless a
// prior conversion relabeled it). The policy only relabels; it never cancels
// or moves an existing booking.
func Resolve(room domain.Room, currentType domain.RoomType, bookings []domain.Booking, window domain.DateRange, now time.Time, opts Options) Decision {
	if !room.Flexible {
		return Decision{EffectiveType: room.Type, Action: ActionKeep}
	}
	opts = opts.withDefaults()

	var (
		confirmedFemaleInWindow bool
		pendingFemale           []domain.Booking
		nextConfirmedFemale     *domain.Booking
		occupiedNow             bool
	)
	for i, b := range bookings {
		if b.RoomID != room.ID || !b.Active() {
			continue
		}
		if b.Range().Contains(now) {
			occupiedNow = true
		}
		if b.Type != domain.RoomTypeFemale {
			continue
		}
		if b.Status == domain.BookingStatusConfirmed {
			if b.Range().Overlaps(window) {
				confirmedFemaleInWindow = true
			}
			if b.CheckIn.After(now) {
				if nextConfirmedFemale == nil || b.CheckIn.Before(nextConfirmedFemale.CheckIn) {
					nextConfirmedFemale = &bookings[i]
				}
			}
			continue
		}
		if b.Status == domain.BookingStatusPending && b.CheckIn.After(now) {
			pendingFemale = append(pendingFemale, b)
		}
	}

	if confirmedFemaleInWindow {
		return Decision{EffectiveType: domain.RoomTypeFemale, Action: ActionKeep}
	}

	if nextConfirmedFemale == nil && len(pendingFemale) > 0 {
		sort.Slice(pendingFemale, func(i, j int) bool {
			return pendingFemale[i].CheckIn.Before(pendingFemale[j].CheckIn)
		})
		earliest := pendingFemale[0].CheckIn
		if earliest.Sub(now) > opts.ConversionNotice {
			return Decision{
				EffectiveType: currentType,
				Action:        ActionSchedule,
				EligibleAt:    earliest.Add(-opts.ConversionNotice),
			}
		}
	}

	if !occupiedNow {
		noConfirmedSoon := nextConfirmedFemale == nil ||
			nextConfirmedFemale.CheckIn.Sub(now) > opts.AutoConvertAfter
		if noConfirmedSoon {
			return Decision{
				EffectiveType: domain.RoomTypeMixed,
				Action:        ActionConvert,
				WillConvert:   currentType != domain.RoomTypeMixed,
			}
		}
	}

	return Decision{EffectiveType: currentType, Action: ActionKeep}
}

// ConversionConflictError names the confirmed bookings an explicit
// conversion would strand on the wrong room type.
type ConversionConflictError struct {
	RoomID     string
	To         domain.RoomType
	BookingIDs []string
}

func (e *ConversionConflictError) Error() string {
	return fmt.Sprintf("cannot convert room %s to %s: conflicts with confirmed bookings %v", e.RoomID, e.To, e.BookingIDs)
}

func (e *ConversionConflictError) Unwrap() error {
	return domain.ErrConversionConflict
}

// Convert validates an explicit (admin-driven) relabel of the flexible room.
// A conversion that would conflict with confirmed bookings of the opposite
// type is rejected with the conflicting booking IDs; it is never executed.
func Convert(room domain.Room, to domain.RoomType, bookings []domain.Booking, window domain.DateRange) error {
	if !room.Flexible {
		return domain.ErrRoomNotFound
	}
	var conflicting []string
	for _, b := range bookings {
		if b.RoomID != room.ID || b.Status != domain.BookingStatusConfirmed {
			continue
		}
		if !b.Range().Overlaps(window) {
			continue
		}
		if b.Type != to {
			conflicting = append(conflicting, b.ID)
		}
	}
	if len(conflicting) > 0 {
		sort.Strings(conflicting)
		return &ConversionConflictError{RoomID: room.ID, To: to, BookingIDs: conflicting}
	}
	return nil
}
