package scheduling

import (
	"context"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// Query asks for bookable starts. NotBefore drops earlier starts, used for today.
type Query struct {
	DoctorID  string
	Date      timeofday.Date
	Duration  int
	NotBefore *timeofday.Minutes
}

// Calculator lists bookable start times.
type Calculator struct {
	catalog schedule.Catalog
	limits  Limits
}

func NewCalculator(catalog schedule.Catalog, limits Limits) *Calculator {
	return &Calculator{catalog: catalog, limits: limits.normalized()}
}

// Slots returns ascending start times on the step grid that pass every
// validation rule against existing. A closed day yields an empty list.
func (c *Calculator) Slots(ctx context.Context, q Query, existing []appointments.Appointment) ([]timeofday.Minutes, error) {
	if q.Duration <= 0 {
		return nil, apperr.Validation("duration must be positive")
	}
	day, err := schedule.ResolveDay(ctx, c.catalog, q.DoctorID, q.Date)
	if err != nil {
		if apperr.IsKind(err, apperr.KindScheduleClosed) {
			return []timeofday.Minutes{}, nil
		}
		return nil, err
	}

	slots := []timeofday.Minutes{}
	for start := day.Window.Start; start.Add(q.Duration) <= day.Window.End; start = start.Add(c.limits.StepMinutes) {
		if q.NotBefore != nil && start < *q.NotBefore {
			continue
		}
		candidate := timeofday.Span(start, q.Duration)
		if !day.Admits(candidate) {
			continue
		}
		p := Proposal{DoctorID: q.DoctorID, Date: q.Date, Start: start, Duration: q.Duration}
		if checkOccupancy(c.limits, p, candidate, existing) != nil {
			continue
		}
		slots = append(slots, start)
	}
	return slots, nil
}
