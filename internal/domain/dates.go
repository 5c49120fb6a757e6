package domain

import "time"

// DayOf strips the time-of-day; all range arithmetic happens at day
// granularity in UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is a half-open [CheckIn, CheckOut) interval of nights.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange normalizes both ends to day granularity. A zero-length or
// inverted interval is an error, never "no overlap possible".
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: DayOf(checkIn), CheckOut: DayOf(checkOut)}
	if !r.CheckOut.After(r.CheckIn) {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

// Overlaps reports whether two half-open intervals share at least one night:
// s1 < e2 && e1 > s2.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && r.CheckOut.After(other.CheckIn)
}

func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Days lists every night in the interval, check-out day excluded.
func (r DateRange) Days() []time.Time {
	days := make([]time.Time, 0, r.Nights())
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) Contains(day time.Time) bool {
	day = DayOf(day)
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}

// Shift moves both ends by the given number of days.
func (r DateRange) Shift(days int) DateRange {
	return DateRange{
		CheckIn:  r.CheckIn.AddDate(0, 0, days),
		CheckOut: r.CheckOut.AddDate(0, 0, days),
	}
}
