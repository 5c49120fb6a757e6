// Package app orchestrates the pure engine components over the stores. The
// services here own the read-snapshot / lock / re-validate / commit choreography;
// everything below them is side-effect free.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/flexroom"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/occupancy"
)

type BookingSource interface {
	ListOverlapping(ctx context.Context, window domain.DateRange) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (domain.Booking, error)
}

type HoldClaimSource interface {
	OccupancyView(ctx context.Context, window domain.DateRange) ([]domain.Claim, error)
}

type AvailabilityService struct {
	catalog  domain.Catalog
	bookings BookingSource
	holds    HoldClaimSource
	clock    clock.Clock
	flexOpts flexroom.Options
	log      logrus.FieldLogger
}

type AvailabilityServiceOption func(*AvailabilityService)

// WithFlexOptions overrides the flexible-room conversion timings.
func WithFlexOptions(opts flexroom.Options) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.flexOpts = opts
	}
}

func NewAvailabilityService(catalog domain.Catalog, bookings BookingSource, holds HoldClaimSource, clk clock.Clock, log logrus.FieldLogger, opts ...AvailabilityServiceOption) *AvailabilityService {
	svc := &AvailabilityService{
		catalog:  catalog,
		bookings: bookings,
		holds:    holds,
		clock:    clk,
		log:      log,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CheckAvailabilityInput struct {
	CheckIn  time.Time
	CheckOut time.Time
	// Beds, when positive, asks for a recommended allocation on top of the
	// per-room standing.
	Beds int
	// ExcludeBookingID drops one booking's claim from the snapshot, so an
	// edit can query availability without counting against itself.
	ExcludeBookingID string
	Strategy         allocator.Strategy
	Preferences      allocator.Preferences
}

// RoomStanding is one room's availability for the queried window, with the
// flexible-room decision already applied.
type RoomStanding struct {
	Room          domain.Room
	EffectiveType domain.RoomType
	Occupied      int
	Available     int
	Conversion    flexroom.Decision
	// DemandScore is the advisory mixed-vs-female demand balance, populated
	// for the flexible room only. Positive favors relabeling mixed.
	DemandScore float64
}

type CheckAvailabilityResult struct {
	Rooms          []RoomStanding
	TotalAvailable int
	// Available reports whether the request can be satisfied: the requested
	// beds fit somewhere when beds were asked for, or any bed is free at all
	// for a bare standing query.
	Available bool
	// Recommendation is nil when no beds were requested or the request is
	// not satisfiable with the current standing.
	Recommendation *allocator.Result
}

// Check computes the per-room standing for a window and, when beds were
// requested, a recommended allocation. It reads without locks: the result is
// advisory and every reservation re-validates under locks before committing.
func (s *AvailabilityService) Check(ctx context.Context, in CheckAvailabilityInput) (CheckAvailabilityResult, error) {
	window, err := domain.NewDateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}
	if in.Beds < 0 {
		return CheckAvailabilityResult{}, domain.ErrInvalidBeds
	}
	if in.ExcludeBookingID != "" {
		if _, err := s.bookings.GetByID(ctx, in.ExcludeBookingID); err != nil {
			return CheckAvailabilityResult{}, err
		}
	}

	bookings, claims, err := s.loadSnapshot(ctx, window)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}

	usage, err := occupancy.Compute(s.catalog, claims, window, in.ExcludeBookingID)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}

	result := CheckAvailabilityResult{
		Rooms:          s.standings(bookings, usage, window),
		TotalAvailable: occupancy.TotalAvailable(usage),
	}

	if in.Beds > 0 {
		rooms := make([]allocator.RoomAvailability, 0, len(result.Rooms))
		for _, st := range result.Rooms {
			rooms = append(rooms, allocator.RoomAvailability{
				Room:          st.Room,
				EffectiveType: st.EffectiveType,
				Available:     st.Available,
			})
		}
		rec, err := allocator.Allocate(in.Beds, rooms, in.Strategy, in.Preferences)
		switch {
		case errors.Is(err, domain.ErrInsufficientCapacity):
			// Standing is still worth returning; the caller sees no
			// recommendation and the shortfall in TotalAvailable.
		case err != nil:
			return CheckAvailabilityResult{}, err
		default:
			result.Recommendation = &rec
		}
		result.Available = result.Recommendation != nil
	} else {
		result.Available = result.TotalAvailable > 0
	}

	s.log.WithFields(logrus.Fields{
		"check_in":        window.CheckIn.Format("2006-01-02"),
		"check_out":       window.CheckOut.Format("2006-01-02"),
		"beds":            in.Beds,
		"total_available": result.TotalAvailable,
		"recommended":     result.Recommendation != nil,
	}).Debug("availability checked")

	return result, nil
}

// ConvertFlexRoom validates an explicit relabel of the flexible room over a
// window. It returns flexroom.ConversionConflictError when confirmed bookings
// of the opposite type stand in the way.
func (s *AvailabilityService) ConvertFlexRoom(ctx context.Context, to domain.RoomType, window domain.DateRange) error {
	room, ok := s.catalog.FlexibleRoom()
	if !ok {
		return domain.ErrRoomNotFound
	}
	bookings, err := s.bookings.ListOverlapping(ctx, window)
	if err != nil {
		return err
	}
	if err := flexroom.Convert(room, to, bookings, window); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"room": room.ID,
		"to":   to,
	}).Info("flexible room converted")
	return nil
}

func (s *AvailabilityService) loadSnapshot(ctx context.Context, window domain.DateRange) ([]domain.Booking, []domain.Claim, error) {
	bookings, err := s.bookings.ListOverlapping(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	holdClaims, err := s.holds.OccupancyView(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	return bookings, mergeClaims(bookings, holdClaims), nil
}

func (s *AvailabilityService) standings(bookings []domain.Booking, usage map[string]occupancy.RoomUsage, window domain.DateRange) []RoomStanding {
	now := s.clock.Now()
	out := make([]RoomStanding, 0, len(s.catalog))
	for _, room := range s.catalog {
		decision := flexroom.Resolve(room, room.Type, bookings, window, now, s.flexOpts)
		u := usage[room.ID]
		st := RoomStanding{
			Room:          room,
			EffectiveType: decision.EffectiveType,
			Occupied:      u.Occupied,
			Available:     u.Available,
			Conversion:    decision,
		}
		if room.Flexible {
			st.DemandScore = flexroom.DemandScore(room, bookings, window)
		}
		out = append(out, st)
	}
	return out
}

// mergeClaims flattens active bookings and live hold claims into the single
// snapshot the pure components consume.
func mergeClaims(bookings []domain.Booking, holdClaims []domain.Claim) []domain.Claim {
	claims := make([]domain.Claim, 0, len(bookings)+len(holdClaims))
	for _, b := range bookings {
		if b.Active() {
			claims = append(claims, domain.ClaimFromBooking(b))
		}
	}
	return append(claims, holdClaims...)
}
