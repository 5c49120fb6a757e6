// Package conflict validates a prospective booking against the occupancy
// snapshot it was allocated from. No allocation may be committed without a
// passing report, and the report must be computed under the same lock the
// commit happens under.
package conflict

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/occupancy"
)

var validateFields = validator.New()

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

type Type string

const (
	TypeInvalidDates    Type = "invalid_dates"
	TypePastCheckIn     Type = "past_check_in"
	TypeInvalidBeds     Type = "invalid_beds"
	TypeInvalidEmail    Type = "invalid_email"
	TypeOverbooking     Type = "overbooking"
	TypeDuplicateGuest  Type = "duplicate_guest"
	TypeRoomUnavailable Type = "room_unavailable"
)

type Conflict struct {
	Type     Type
	Severity Severity
	RoomID   string
	// Date is set for overbooking conflicts: the offending night.
	Date time.Time
	// RefID points at the booking or hold this candidate collides with.
	RefID   string
	Message string
}

// Candidate is the prospective single-room claim under validation. A
// multi-room allocation is validated one candidate per touched room.
type Candidate struct {
	RoomID     string
	CheckIn    time.Time
	CheckOut   time.Time
	Beds       int
	GuestEmail string
	// ExcludeRefID skips the candidate's own prior claim when re-validating
	// an edit.
	ExcludeRefID string
}

func (c Candidate) window() domain.DateRange {
	return domain.DateRange{CheckIn: domain.DayOf(c.CheckIn), CheckOut: domain.DayOf(c.CheckOut)}
}

type Report struct {
	IsValid      bool
	CanProceed   bool
	Conflicts    []Conflict
	Warnings     []string
	Alternatives []Alternative
	// LockRequired reports that the overbooking path was evaluated, so a
	// commit based on this report must happen under the room locks.
	LockRequired bool
}

func (r Report) highCount() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

func (r Report) mediumCount() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Severity == SeverityMedium {
			n++
		}
	}
	return n
}

type Detector struct {
	catalog domain.Catalog
	clock   clock.Clock
	// allowedOverbookingPct widens the capacity ceiling to
	// floor(capacity × (1+pct)). Nonzero values are experimental.
	allowedOverbookingPct float64
	maxMediumConflicts    int
}

type Option func(*Detector)

// WithOverbookingPct enables the experimental overbooking tolerance.
func WithOverbookingPct(pct float64) Option {
	return func(d *Detector) {
		if pct > 0 {
			d.allowedOverbookingPct = pct
		}
	}
}

// WithMaxMediumConflicts overrides how many MEDIUM conflicts a candidate
// tolerates before it stops proceeding.
func WithMaxMediumConflicts(n int) Option {
	return func(d *Detector) {
		if n >= 0 {
			d.maxMediumConflicts = n
		}
	}
}

func NewDetector(catalog domain.Catalog, clk clock.Clock, opts ...Option) *Detector {
	d := &Detector{
		catalog:            catalog,
		clock:              clk,
		maxMediumConflicts: 2,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate runs the full validation pipeline against the snapshot and, when
// the candidate cannot proceed, suggests ranked alternatives. Alternatives
// are advisory: they are re-validated but never applied.
func (d *Detector) Validate(c Candidate, claims []domain.Claim) Report {
	report := d.validate(c, claims)
	if !report.CanProceed && report.LockRequired {
		// Alternatives only make sense once the input itself is sound.
		report.Alternatives = d.suggestAlternatives(c, claims)
	}
	return report
}

func (d *Detector) validate(c Candidate, claims []domain.Claim) Report {
	var report Report

	// Stage 1: field validation. A failure here short-circuits the scans.
	if fieldConflicts := d.validateFields(c); len(fieldConflicts) > 0 {
		report.Conflicts = fieldConflicts
		return report
	}

	report.LockRequired = true

	// Stage 2: room existence and physical fit.
	room, ok := d.catalog.Get(c.RoomID)
	if !ok {
		report.Conflicts = append(report.Conflicts, Conflict{
			Type:     TypeRoomUnavailable,
			Severity: SeverityHigh,
			RoomID:   c.RoomID,
			Message:  fmt.Sprintf("room %s does not exist", c.RoomID),
		})
		return report
	}
	if c.Beds > room.Capacity {
		report.Conflicts = append(report.Conflicts, Conflict{
			Type:     TypeRoomUnavailable,
			Severity: SeverityHigh,
			RoomID:   c.RoomID,
			Message:  fmt.Sprintf("%d beds exceed room %s capacity %d", c.Beds, room.Name, room.Capacity),
		})
		return report
	}

	// Stage 3: per-day overbooking scan.
	report.Conflicts = append(report.Conflicts, d.scanOverbooking(c, room, claims)...)

	// Stage 4: duplicate-guest heuristic, advisory per policy.
	report.Conflicts = append(report.Conflicts, d.scanDuplicateGuest(c, claims)...)

	report.IsValid = report.highCount() == 0
	report.CanProceed = report.IsValid && report.mediumCount() <= d.maxMediumConflicts
	return report
}

func (d *Detector) validateFields(c Candidate) []Conflict {
	var out []Conflict
	if !domain.DayOf(c.CheckOut).After(domain.DayOf(c.CheckIn)) {
		out = append(out, Conflict{
			Type: TypeInvalidDates, Severity: SeverityHigh,
			Message: domain.ErrInvalidDateRange.Error(),
		})
	}
	today := domain.DayOf(d.clock.Now())
	if domain.DayOf(c.CheckIn).Before(today) {
		out = append(out, Conflict{
			Type: TypePastCheckIn, Severity: SeverityHigh,
			Message: domain.ErrPastCheckIn.Error(),
		})
	}
	if c.Beds <= 0 {
		out = append(out, Conflict{
			Type: TypeInvalidBeds, Severity: SeverityHigh,
			Message: domain.ErrInvalidBeds.Error(),
		})
	}
	if err := validateFields.Var(c.GuestEmail, "required,email"); err != nil {
		out = append(out, Conflict{
			Type: TypeInvalidEmail, Severity: SeverityHigh,
			Message: domain.ErrInvalidEmail.Error(),
		})
	}
	return out
}

// overbookingCeiling is floor(capacity × (1+pct)). With the default pct of
// zero it is exactly the physical capacity.
func (d *Detector) overbookingCeiling(capacity int) int {
	return int(math.Floor(float64(capacity) * (1 + d.allowedOverbookingPct)))
}

func (d *Detector) scanOverbooking(c Candidate, room domain.Room, claims []domain.Claim) []Conflict {
	ceiling := d.overbookingCeiling(room.Capacity)
	var out []Conflict
	for _, day := range c.window().Days() {
		occupied := occupancy.OccupiedOnDay(claims, c.RoomID, day, c.ExcludeRefID)
		if occupied+c.Beds > ceiling {
			out = append(out, Conflict{
				Type:     TypeOverbooking,
				Severity: SeverityHigh,
				RoomID:   c.RoomID,
				Date:     day,
				Message: fmt.Sprintf("room %s over capacity on %s: %d occupied + %d requested > %d",
					room.Name, day.Format("2006-01-02"), occupied, c.Beds, ceiling),
			})
		}
	}
	return out
}

func (d *Detector) scanDuplicateGuest(c Candidate, claims []domain.Claim) []Conflict {
	email := strings.ToLower(strings.TrimSpace(c.GuestEmail))
	window := c.window()
	var out []Conflict
	for _, claim := range claims {
		if c.ExcludeRefID != "" && claim.RefID == c.ExcludeRefID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(claim.GuestEmail)) != email {
			continue
		}
		if !claim.Range().Overlaps(window) {
			continue
		}
		out = append(out, Conflict{
			Type:     TypeDuplicateGuest,
			Severity: SeverityMedium,
			RoomID:   claim.RoomID,
			RefID:    claim.RefID,
			Message:  fmt.Sprintf("guest already holds an overlapping %s (%s)", claim.Source, claim.RefID),
		})
	}
	return out
}
