package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/conflict"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/flexroom"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/lockmgr"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/occupancy"
)

type HoldStore interface {
	Start(ctx context.Context, bedsPerRoom map[string]int, window domain.DateRange, guestEmail string) (domain.Hold, error)
	Advance(ctx context.Context, id string, to domain.HoldStatus) (domain.Hold, error)
	Release(ctx context.Context, id string) (domain.Hold, error)
	OccupancyView(ctx context.Context, window domain.DateRange) ([]domain.Claim, error)
}

type RoomLocker interface {
	AcquireAll(ctx context.Context, roomIDs []string, window domain.DateRange) ([]lockmgr.Lock, error)
	ReleaseAll(ctx context.Context, locks []lockmgr.Lock) error
}

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 50 * time.Millisecond
)

// ConflictError carries the per-room validation reports of a reserve attempt
// that could not proceed. Alternatives, when the detector found any, ride
// inside the reports.
type ConflictError struct {
	Reports map[string]conflict.Report
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reservation conflicted in %d room(s)", len(e.Reports))
}

type ReservationService struct {
	catalog  domain.Catalog
	bookings BookingSource
	holds    HoldStore
	locks    RoomLocker
	detector *conflict.Detector
	clock    clock.Clock
	flexOpts flexroom.Options
	log      logrus.FieldLogger

	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)
}

type ReservationServiceOption func(*ReservationService)

// WithMaxAttempts bounds how often Reserve retries after losing a lock race.
func WithMaxAttempts(n int) ReservationServiceOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithBackoffBase(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.backoffBase = d
		}
	}
}

// WithSleep replaces the inter-attempt sleep. Tests pass a no-op.
func WithSleep(fn func(time.Duration)) ReservationServiceOption {
	return func(s *ReservationService) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithReservationFlexOptions overrides the flexible-room conversion timings
// used when planning an allocation.
func WithReservationFlexOptions(opts flexroom.Options) ReservationServiceOption {
	return func(s *ReservationService) {
		s.flexOpts = opts
	}
}

func NewReservationService(catalog domain.Catalog, bookings BookingSource, holds HoldStore, locks RoomLocker, det *conflict.Detector, clk clock.Clock, log logrus.FieldLogger, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		catalog:     catalog,
		bookings:    bookings,
		holds:       holds,
		locks:       locks,
		detector:    det,
		clock:       clk,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReserveInput struct {
	CheckIn  time.Time
	CheckOut time.Time
	// Beds asks the allocator to pick rooms. Ignored when Allocations is set.
	Beds int
	// Allocations pins the exact rooms and beds. An explicit plan is
	// validated as-is and never re-planned on conflict.
	Allocations []allocator.RoomAllocation
	GuestEmail  string
	Strategy    allocator.Strategy
	Preferences allocator.Preferences
}

type ReserveResult struct {
	Hold        domain.Hold
	Allocations []allocator.RoomAllocation
	Warnings    []string
	Attempts    int
}

// Reserve turns a bed request into a TTL-bounded hold. The plan is computed
// from an unlocked snapshot, then the touched rooms are locked, the snapshot
// is re-read, and every room is re-validated before the hold is written.
// Losing the lock race or failing re-validation on an auto plan triggers a
// bounded retry with a fresh plan; an explicit plan surfaces its conflicts
// immediately.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	window, err := domain.NewDateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return ReserveResult{}, err
	}

	explicit := len(in.Allocations) > 0
	if explicit {
		in.Allocations = coalesceAllocations(in.Allocations)
	}
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		plan, warnings := in.Allocations, []string(nil)
		if !explicit {
			plan, warnings, err = s.plan(ctx, in, window)
			if err != nil {
				return ReserveResult{Attempts: attempt}, err
			}
		}

		roomIDs := make([]string, 0, len(plan))
		for _, a := range plan {
			roomIDs = append(roomIDs, a.RoomID)
		}
		sort.Strings(roomIDs)

		locks, err := s.locks.AcquireAll(ctx, roomIDs, window)
		if errors.Is(err, domain.ErrLockContention) {
			lastErr = err
			s.log.WithFields(logrus.Fields{"attempt": attempt, "rooms": roomIDs}).Info("lock contention, backing off")
			s.sleep(s.backoffBase << (attempt - 1))
			continue
		}
		if err != nil {
			return ReserveResult{Attempts: attempt}, err
		}

		result, conflictErr, err := s.commitUnderLocks(ctx, in, window, plan, warnings, attempt)
		if releaseErr := s.locks.ReleaseAll(ctx, locks); releaseErr != nil && err == nil && conflictErr == nil {
			err = releaseErr
		}
		if err != nil {
			return ReserveResult{Attempts: attempt}, err
		}
		if conflictErr != nil {
			if explicit {
				return ReserveResult{Attempts: attempt}, conflictErr
			}
			// Someone beat us to the beds between snapshots; replan.
			lastErr = conflictErr
			continue
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = domain.ErrLockContention
	}
	return ReserveResult{Attempts: s.maxAttempts}, lastErr
}

// commitUnderLocks re-reads the snapshot, validates every planned room, and
// writes the hold. Caller holds the room locks and releases them afterwards.
func (s *ReservationService) commitUnderLocks(ctx context.Context, in ReserveInput, window domain.DateRange, plan []allocator.RoomAllocation, warnings []string, attempt int) (ReserveResult, *ConflictError, error) {
	claims, err := s.snapshot(ctx, window)
	if err != nil {
		return ReserveResult{}, nil, err
	}

	reports := make(map[string]conflict.Report, len(plan))
	proceed := true
	for _, a := range plan {
		report := s.detector.Validate(conflict.Candidate{
			RoomID:     a.RoomID,
			CheckIn:    in.CheckIn,
			CheckOut:   in.CheckOut,
			Beds:       a.Beds,
			GuestEmail: in.GuestEmail,
		}, claims)
		reports[a.RoomID] = report
		if !report.CanProceed {
			proceed = false
		}
		warnings = append(warnings, report.Warnings...)
	}
	if !proceed {
		return ReserveResult{}, &ConflictError{Reports: reports}, nil
	}

	beds := make(map[string]int, len(plan))
	for _, a := range plan {
		beds[a.RoomID] += a.Beds
	}
	hold, err := s.holds.Start(ctx, beds, window, in.GuestEmail)
	if err != nil {
		return ReserveResult{}, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"hold":     hold.ID,
		"beds":     hold.TotalBeds(),
		"rooms":    len(plan),
		"attempt":  attempt,
		"check_in": window.CheckIn.Format("2006-01-02"),
	}).Info("hold started")

	return ReserveResult{
		Hold:        hold,
		Allocations: plan,
		Warnings:    warnings,
		Attempts:    attempt,
	}, nil, nil
}

// plan computes a tentative allocation from an unlocked snapshot.
func (s *ReservationService) plan(ctx context.Context, in ReserveInput, window domain.DateRange) ([]allocator.RoomAllocation, []string, error) {
	bookings, err := s.bookings.ListOverlapping(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	holdClaims, err := s.holds.OccupancyView(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	claims := mergeClaims(bookings, holdClaims)

	usage, err := occupancy.Compute(s.catalog, claims, window, "")
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	rooms := make([]allocator.RoomAvailability, 0, len(s.catalog))
	for _, room := range s.catalog {
		decision := flexroom.Resolve(room, room.Type, bookings, window, now, s.flexOpts)
		rooms = append(rooms, allocator.RoomAvailability{
			Room:          room,
			EffectiveType: decision.EffectiveType,
			Available:     usage[room.ID].Available,
		})
	}

	res, err := allocator.Allocate(in.Beds, rooms, in.Strategy, in.Preferences)
	if err != nil {
		return nil, nil, err
	}
	return res.Allocations, res.Warnings, nil
}

// coalesceAllocations merges entries naming the same room, so each room is
// locked once and validated once with its combined bed count. Without the
// merge a duplicated room ID would contend with itself in AcquireAll.
func coalesceAllocations(allocs []allocator.RoomAllocation) []allocator.RoomAllocation {
	beds := make(map[string]int, len(allocs))
	order := make([]string, 0, len(allocs))
	for _, a := range allocs {
		if _, seen := beds[a.RoomID]; !seen {
			order = append(order, a.RoomID)
		}
		beds[a.RoomID] += a.Beds
	}
	out := make([]allocator.RoomAllocation, 0, len(order))
	for _, roomID := range order {
		out = append(out, allocator.RoomAllocation{RoomID: roomID, Beds: beds[roomID]})
	}
	return out
}

func (s *ReservationService) snapshot(ctx context.Context, window domain.DateRange) ([]domain.Claim, error) {
	bookings, err := s.bookings.ListOverlapping(ctx, window)
	if err != nil {
		return nil, err
	}
	holdClaims, err := s.holds.OccupancyView(ctx, window)
	if err != nil {
		return nil, err
	}
	return mergeClaims(bookings, holdClaims), nil
}

// Advance moves a hold up the status ladder, typically from a payment
// webhook. Regressions are rejected by the store, never coerced.
func (s *ReservationService) Advance(ctx context.Context, holdID string, to domain.HoldStatus) (domain.Hold, error) {
	hold, err := s.holds.Advance(ctx, holdID, to)
	if err != nil {
		return domain.Hold{}, err
	}
	s.log.WithFields(logrus.Fields{"hold": hold.ID, "status": hold.Status}).Info("hold advanced")
	return hold, nil
}

// Confirm advances a hold all the way to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.Advance(ctx, holdID, domain.HoldStatusConfirmed)
}

// Release frees a hold's beds ahead of its TTL.
func (s *ReservationService) Release(ctx context.Context, holdID string) (domain.Hold, error) {
	hold, err := s.holds.Release(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	s.log.WithField("hold", hold.ID).Info("hold released")
	return hold, nil
}
