package events

import "time"

// Appointment event types.
const (
	TypeAppointmentCreated       = "appointment.created.v1"
	TypeAppointmentRescheduled   = "appointment.rescheduled.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
)

// AppointmentEventV1 is the payload for every appointment event.
type AppointmentEventV1 struct {
	EventID             string    `json:"event_id"`
	AppointmentID       string    `json:"appointment_id"`
	DoctorID            string    `json:"doctor_id"`
	PatientID           string    `json:"patient_id"`
	ServiceID           string    `json:"service_id"`
	Date                string    `json:"date"`
	Time                string    `json:"time"`
	DurationMinutes     int       `json:"duration_minutes"`
	Status              string    `json:"status"`
	PreviousStatus      string    `json:"previous_status,omitempty"`
	PreviousDate        string    `json:"previous_date,omitempty"`
	PreviousTime        string    `json:"previous_time,omitempty"`
	RescheduleRequested bool      `json:"reschedule_requested"`
	Actor               string    `json:"actor,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}
