package schedule

import (
	"fmt"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// ClinicDayHours is the stored form of a clinic day ("HH:MM" 24-hour strings).
type ClinicDayHours struct {
	IsOpen         bool   `json:"isOpen"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	BreakStartTime string `json:"breakStartTime,omitempty"`
	BreakEndTime   string `json:"breakEndTime,omitempty"`
}

// DoctorHours is the stored form of a doctor's working window.
type DoctorHours struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ClinicWeek maps lower-case weekday names to clinic hours.
type ClinicWeek map[string]ClinicDayHours

// DoctorWeek maps lower-case weekday names to a doctor's hours; a missing day is a day off.
type DoctorWeek map[string]DoctorHours

// DefaultClinicWeek opens Monday to Saturday 09:00-18:00 with a lunch break.
func DefaultClinicWeek() ClinicWeek {
	week := ClinicWeek{}
	for d := time.Monday; d <= time.Saturday; d++ {
		week[WeekdayName(d)] = ClinicDayHours{IsOpen: true, StartTime: "09:00", EndTime: "18:00", BreakStartTime: "12:00", BreakEndTime: "13:00"}
	}
	week[WeekdayName(time.Sunday)] = ClinicDayHours{IsOpen: false, StartTime: "09:00", EndTime: "18:00"}
	return week
}

// Parse converts the stored strings into minutes.
func (h ClinicDayHours) Parse() (ClinicDay, error) {
	if !h.IsOpen {
		return ClinicDay{IsOpen: false}, nil
	}
	hours, err := parseWindow(h.StartTime, h.EndTime)
	if err != nil {
		return ClinicDay{}, err
	}
	day := ClinicDay{IsOpen: true, Hours: hours}
	if h.BreakStartTime == "" && h.BreakEndTime == "" {
		return day, nil
	}
	brk, err := parseWindow(h.BreakStartTime, h.BreakEndTime)
	if err != nil {
		return ClinicDay{}, fmt.Errorf("break: %w", err)
	}
	if !hours.Contains(brk) {
		return ClinicDay{}, apperr.Validation("break must fall inside opening hours")
	}
	day.Break = &brk
	return day, nil
}

// Parse converts the stored strings into a DoctorDay.
func (h DoctorHours) Parse(doctorID string, weekday time.Weekday) (DoctorDay, error) {
	hours, err := parseWindow(h.StartTime, h.EndTime)
	if err != nil {
		return DoctorDay{}, err
	}
	return DoctorDay{DoctorID: doctorID, Weekday: weekday, Hours: hours}, nil
}

// Validate checks every day of the week and rejects unknown weekday keys.
func (w ClinicWeek) Validate() error {
	if len(w) == 0 {
		return apperr.Validation("at least one weekday is required")
	}
	for name, hours := range w {
		if _, ok := ParseWeekday(name); !ok {
			return apperr.Validation(fmt.Sprintf("unknown weekday %q", name))
		}
		if _, err := hours.Parse(); err != nil {
			return apperr.Validation(fmt.Sprintf("%s: %s", name, apperr.ReasonOf(err)))
		}
	}
	return nil
}

func (w DoctorWeek) Validate() error {
	for name, hours := range w {
		weekday, ok := ParseWeekday(name)
		if !ok {
			return apperr.Validation(fmt.Sprintf("unknown weekday %q", name))
		}
		if _, err := hours.Parse("", weekday); err != nil {
			return apperr.Validation(fmt.Sprintf("%s: %s", name, apperr.ReasonOf(err)))
		}
	}
	return nil
}

func parseWindow(start, end string) (timeofday.Interval, error) {
	s, err := timeofday.ParseClock(start)
	if err != nil {
		return timeofday.Interval{}, apperr.Validation(fmt.Sprintf("invalid start time %q", start))
	}
	e, err := timeofday.ParseClock(end)
	if err != nil {
		return timeofday.Interval{}, apperr.Validation(fmt.Sprintf("invalid end time %q", end))
	}
	if e <= s {
		return timeofday.Interval{}, apperr.Validation("start time must be before end time")
	}
	return timeofday.Interval{Start: s, End: e}, nil
}

func normalizeClinicWeek(w ClinicWeek) ClinicWeek {
	out := make(ClinicWeek, len(w))
	for name, hours := range w {
		d, _ := ParseWeekday(name)
		out[WeekdayName(d)] = hours
	}
	return out
}

func normalizeDoctorWeek(w DoctorWeek) DoctorWeek {
	out := make(DoctorWeek, len(w))
	for name, hours := range w {
		d, _ := ParseWeekday(name)
		out[WeekdayName(d)] = hours
	}
	return out
}
