// Package appointments holds the appointment model, its status lifecycle and
// the stores that persist it.
package appointments

import (
	"sort"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending               Status = "pending"
	StatusConfirmed             Status = "confirmed"
	StatusCompleted             Status = "completed"
	StatusCancelled             Status = "cancelled"
	StatusCancellationRequested Status = "cancellation_requested"
)

// ParseStatus accepts a known status name.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusCancellationRequested:
		return st, true
	}
	return "", false
}

// Terminal reports whether no transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is the canonical record.
type Appointment struct {
	ID                  string             `json:"id"`
	DoctorID            string             `json:"doctorId"`
	PatientID           string             `json:"patientId"`
	ServiceID           string             `json:"serviceId"`
	Date                timeofday.Date     `json:"date"`
	StartTime           timeofday.Minutes  `json:"time"`
	DurationMinutes     int                `json:"durationMinutes"`
	Status              Status             `json:"status"`
	PreviousStatus      Status             `json:"previousStatus,omitempty"`
	RescheduleRequested bool               `json:"rescheduleRequested"`
	PreviousDate        timeofday.Date     `json:"previousDate,omitempty"`
	PreviousStartTime   *timeofday.Minutes `json:"previousTime,omitempty"`
	Notes               string             `json:"notes,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Interval is the half-open time range the appointment occupies.
func (a Appointment) Interval() timeofday.Interval {
	return timeofday.Span(a.StartTime, a.DurationMinutes)
}

// Live reports whether the appointment still holds its slot.
func (a Appointment) Live() bool {
	return a.Status != StatusCancelled
}

// Filter selects appointments. Empty fields match everything.
type Filter struct {
	DoctorID        string
	Date            timeofday.Date
	Statuses        []Status
	ExcludeStatuses []Status
}

// LiveOn selects the live appointments of a date.
func LiveOn(date timeofday.Date) Filter {
	return Filter{Date: date, ExcludeStatuses: []Status{StatusCancelled}}
}

// Matches applies the filter to one appointment.
func (f Filter) Matches(a Appointment) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
		return false
	}
	return !containsStatus(f.ExcludeStatuses, a.Status)
}

// StatusUpdate is the persisted part of a lifecycle transition.
type StatusUpdate struct {
	Status              Status
	PreviousStatus      Status
	RescheduleRequested bool
	UpdatedAt           time.Time
}

// ScheduleUpdate moves an appointment to a new slot.
type ScheduleUpdate struct {
	Date                timeofday.Date
	StartTime           timeofday.Minutes
	Status              Status
	RescheduleRequested bool
	PreviousDate        timeofday.Date
	PreviousStartTime   *timeofday.Minutes
	UpdatedAt           time.Time
}

// AsStatusUpdate captures the lifecycle fields of a.
func (a Appointment) AsStatusUpdate() StatusUpdate {
	return StatusUpdate{
		Status:              a.Status,
		PreviousStatus:      a.PreviousStatus,
		RescheduleRequested: a.RescheduleRequested,
		UpdatedAt:           a.UpdatedAt,
	}
}

// AsScheduleUpdate captures the slot and lifecycle fields of a.
func (a Appointment) AsScheduleUpdate() ScheduleUpdate {
	return ScheduleUpdate{
		Date:                a.Date,
		StartTime:           a.StartTime,
		Status:              a.Status,
		RescheduleRequested: a.RescheduleRequested,
		PreviousDate:        a.PreviousDate,
		PreviousStartTime:   a.PreviousStartTime,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (u StatusUpdate) apply(a Appointment) Appointment {
	a.Status = u.Status
	a.PreviousStatus = u.PreviousStatus
	a.RescheduleRequested = u.RescheduleRequested
	a.UpdatedAt = u.UpdatedAt
	return a
}

func (u ScheduleUpdate) apply(a Appointment) Appointment {
	a.Date = u.Date
	a.StartTime = u.StartTime
	a.Status = u.Status
	a.RescheduleRequested = u.RescheduleRequested
	a.PreviousDate = u.PreviousDate
	a.PreviousStartTime = u.PreviousStartTime
	a.UpdatedAt = u.UpdatedAt
	return a
}

// Sort orders appointments by date, start time and creation.
func Sort(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func containsStatus(list []Status, s Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
