// Package schedule provides clinic operating hours and per-doctor working
// windows, and resolves them into the bookable window for a date.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// ClinicDay is the parsed clinic schedule for one weekday.
type ClinicDay struct {
	IsOpen bool
	Hours  timeofday.Interval
	Break  *timeofday.Interval
}

// DoctorDay is a doctor's working window for one weekday.
type DoctorDay struct {
	DoctorID string
	Weekday  time.Weekday
	Hours    timeofday.Interval
}

// Catalog is the read side used by availability and validation.
// A missing entry is reported through the bool, never as an error.
type Catalog interface {
	ClinicDay(ctx context.Context, weekday time.Weekday) (ClinicDay, bool, error)
	DoctorDay(ctx context.Context, doctorID string, weekday time.Weekday) (DoctorDay, bool, error)
}

// Editor adds the admin write side.
type Editor interface {
	Catalog
	ClinicWeek(ctx context.Context) (ClinicWeek, error)
	SetClinicWeek(ctx context.Context, week ClinicWeek) error
	DoctorWeek(ctx context.Context, doctorID string) (DoctorWeek, error)
	SetDoctorWeek(ctx context.Context, doctorID string, week DoctorWeek) error
}

// Day is the effective bookable window for one doctor on one date.
type Day struct {
	Window timeofday.Interval
	Break  *timeofday.Interval
}

// Admits reports whether iv fits in the window without touching the break.
func (d Day) Admits(iv timeofday.Interval) bool {
	if !d.Window.Contains(iv) {
		return false
	}
	return d.Break == nil || !d.Break.Overlaps(iv)
}

// Reasons attached to schedule_closed errors.
const (
	ReasonClinicClosed      = "clinic closed"
	ReasonDoctorUnavailable = "doctor unavailable"
	ReasonNoOverlap         = "doctor hours outside clinic hours"
	ReasonOutsideHours      = "outside working hours"
	ReasonBreak             = "overlaps clinic break"
)

// ResolveDay intersects clinic and doctor hours for date. A closed day comes
// back as an apperr schedule_closed error.
func ResolveDay(ctx context.Context, catalog Catalog, doctorID string, date timeofday.Date) (Day, error) {
	weekday, err := date.Weekday()
	if err != nil {
		return Day{}, apperr.Validation("invalid date")
	}

	clinic, ok, err := catalog.ClinicDay(ctx, weekday)
	if err != nil {
		return Day{}, fmt.Errorf("schedule: clinic day: %w", err)
	}
	if !ok || !clinic.IsOpen {
		return Day{}, apperr.ScheduleClosed(ReasonClinicClosed)
	}

	doctor, ok, err := catalog.DoctorDay(ctx, doctorID, weekday)
	if err != nil {
		return Day{}, fmt.Errorf("schedule: doctor day: %w", err)
	}
	if !ok {
		return Day{}, apperr.ScheduleClosed(ReasonDoctorUnavailable)
	}

	window := clinic.Hours.Intersect(doctor.Hours)
	if window.Empty() {
		return Day{}, apperr.ScheduleClosed(ReasonNoOverlap)
	}
	return Day{Window: window, Break: clinic.Break}, nil
}

// WeekdayName is the at-rest key for a weekday.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseWeekday accepts a weekday name in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if WeekdayName(d) == name {
			return d, true
		}
	}
	return time.Sunday, false
}
