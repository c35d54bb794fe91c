// Package scheduling decides which slots are bookable and whether a proposed
// appointment fits the clinic's constraints.
package scheduling

import (
	"context"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// Limits are the clinic-wide capacity rules.
type Limits struct {
	StepMinutes  int
	SlotCapacity int
	DayCapacity  int
}

// DefaultLimits is a 30 minute grid with 5 bookings per slot and 15 per day.
func DefaultLimits() Limits {
	return Limits{StepMinutes: 30, SlotCapacity: 5, DayCapacity: 15}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.StepMinutes <= 0 {
		l.StepMinutes = d.StepMinutes
	}
	if l.SlotCapacity <= 0 {
		l.SlotCapacity = d.SlotCapacity
	}
	if l.DayCapacity <= 0 {
		l.DayCapacity = d.DayCapacity
	}
	return l
}

// Conflict reasons.
const (
	ReasonSlotTaken       = "slot taken"
	ReasonSlotFullyBooked = "slot fully booked"
	ReasonDayFullyBooked  = "day fully booked"
)

// Proposal is a candidate booking. ExcludeID skips the appointment being moved.
type Proposal struct {
	DoctorID  string
	Date      timeofday.Date
	Start     timeofday.Minutes
	Duration  int
	ExcludeID string
}

// Validator runs the ordered booking checks.
type Validator struct {
	catalog schedule.Catalog
	limits  Limits
}

func NewValidator(catalog schedule.Catalog, limits Limits) *Validator {
	return &Validator{catalog: catalog, limits: limits.normalized()}
}

// Validate checks p against the schedule and the live appointments of its date,
// stopping at the first failure: schedule, doctor overlap, slot capacity, day capacity.
func (v *Validator) Validate(ctx context.Context, p Proposal, existing []appointments.Appointment) error {
	if p.Duration <= 0 {
		return apperr.Validation("duration must be positive")
	}
	day, err := schedule.ResolveDay(ctx, v.catalog, p.DoctorID, p.Date)
	if err != nil {
		return err
	}
	candidate := timeofday.Span(p.Start, p.Duration)
	if !day.Window.Contains(candidate) {
		return apperr.ScheduleClosed(schedule.ReasonOutsideHours)
	}
	if day.Break != nil && day.Break.Overlaps(candidate) {
		return apperr.ScheduleClosed(schedule.ReasonBreak)
	}
	return checkOccupancy(v.limits, p, candidate, existing)
}

// checkOccupancy applies the overlap and capacity rules; the schedule is assumed checked.
func checkOccupancy(limits Limits, p Proposal, candidate timeofday.Interval, existing []appointments.Appointment) error {
	slotCount, dayCount := 0, 0
	overlap := false
	for _, other := range existing {
		if other.ID == p.ExcludeID && p.ExcludeID != "" {
			continue
		}
		if !other.Live() || other.Date != p.Date {
			continue
		}
		dayCount++
		if other.StartTime == p.Start {
			slotCount++
		}
		if other.DoctorID == p.DoctorID && other.Interval().Overlaps(candidate) {
			overlap = true
		}
	}
	switch {
	case overlap:
		return apperr.Conflict(ReasonSlotTaken)
	case slotCount >= limits.SlotCapacity:
		return apperr.Conflict(ReasonSlotFullyBooked)
	case dayCount >= limits.DayCapacity:
		return apperr.Conflict(ReasonDayFullyBooked)
	}
	return nil
}
