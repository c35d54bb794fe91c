package booking

import (
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// createBody is the POST /booking payload. Older clients send the snake_case
// or appointment-prefixed names; they are folded into the canonical fields here.
type createBody struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`

	AppointmentDate      string `json:"appointmentDate"`
	AppointmentTime      string `json:"appointmentTime"`
	AppointmentDateSnake string `json:"appointment_date"`
	AppointmentTimeSnake string `json:"appointment_time"`
	DoctorIDSnake        string `json:"doctor_id"`
	PatientIDSnake       string `json:"patient_id"`
	ServiceIDSnake       string `json:"service_id"`
}

func (b createBody) toRequest() (CreateRequest, error) {
	date, start, err := parseSlot(
		firstNonEmpty(b.Date, b.AppointmentDate, b.AppointmentDateSnake),
		firstNonEmpty(b.Time, b.AppointmentTime, b.AppointmentTimeSnake),
	)
	if err != nil {
		return CreateRequest{}, err
	}
	return CreateRequest{
		PatientID: firstNonEmpty(b.PatientID, b.PatientIDSnake),
		DoctorID:  firstNonEmpty(b.DoctorID, b.DoctorIDSnake),
		ServiceID: firstNonEmpty(b.ServiceID, b.ServiceIDSnake),
		Date:      date,
		Start:     start,
		Notes:     b.Notes,
	}, nil
}

type rescheduleBody struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type statusBody struct {
	Status string `json:"status"`
}

func parseSlot(rawDate, rawTime string) (timeofday.Date, timeofday.Minutes, error) {
	if rawDate == "" {
		return "", 0, apperr.Validation("date is required")
	}
	if rawTime == "" {
		return "", 0, apperr.Validation("time is required")
	}
	date, err := timeofday.ParseDate(rawDate)
	if err != nil {
		return "", 0, apperr.Validation("invalid date")
	}
	start, err := timeofday.ParseClock(rawTime)
	if err != nil {
		return "", 0, apperr.Validation("invalid time")
	}
	return date, start, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
