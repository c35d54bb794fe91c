// Package timeofday holds the clock arithmetic used by scheduling: minutes since
// midnight, calendar dates and half-open intervals.
package timeofday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds every Minutes value; 24:00 is allowed as an end of day.
const MinutesPerDay = 24 * 60

// Minutes is a time of day expressed as minutes since midnight.
type Minutes int

// ParseClock converts "HH:MM" (optionally "HH:MM:SS") into Minutes.
func ParseClock(s string) (Minutes, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("timeofday: invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("timeofday: invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("timeofday: invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("timeofday: invalid second in %q", s)
		}
	}
	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("timeofday: out of range time %q", s)
	}
	total := hour*60 + minute
	if total > MinutesPerDay {
		return 0, fmt.Errorf("timeofday: out of range time %q", s)
	}
	return Minutes(total), nil
}

// MustClock is ParseClock for constants; it panics on bad input.
func MustClock(s string) Minutes {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromTime returns the wall-clock minutes of t in its own location.
func FromTime(t time.Time) Minutes {
	return Minutes(t.Hour()*60 + t.Minute())
}

// String renders the value as zero-padded "HH:MM".
func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Add offsets m by n minutes.
func (m Minutes) Add(n int) Minutes {
	return m + Minutes(n)
}

func (m Minutes) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Minutes) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

const dateLayout = "2006-01-02"

// Date is a calendar day in "YYYY-MM-DD" form.
type Date string

// ParseDate accepts "YYYY-MM-DD" or an ISO datetime, which is truncated to its date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("timeofday: invalid date %q", s)
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateLayout, string(d), loc)
}

// Weekday reports the day of week; an unparsable date reports an error.
func (d Date) Weekday() (time.Weekday, error) {
	t, err := d.Time(time.UTC)
	if err != nil {
		return time.Sunday, fmt.Errorf("timeofday: invalid date %q", string(d))
	}
	return t.Weekday(), nil
}

// Before compares two well-formed dates.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

func (d Date) String() string { return string(d) }

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Minutes
	End   Minutes
}

// Span builds the interval covering duration minutes from start.
func Span(start Minutes, duration int) Interval {
	return Interval{Start: start, End: start.Add(duration)}
}

// Empty reports whether the interval has no length.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps uses the half-open test, so touching edges do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

// Intersect returns the common part of both intervals; it may be empty.
func (i Interval) Intersect(other Interval) Interval {
	out := Interval{Start: i.Start, End: i.End}
	if other.Start > out.Start {
		out.Start = other.Start
	}
	if other.End < out.End {
		out.End = other.End
	}
	return out
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}
