package appointments

import (
	"context"

	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// Reader serves lock-free reads.
type Reader interface {
	List(ctx context.Context, f Filter) ([]Appointment, error)
	Get(ctx context.Context, id string) (Appointment, error)
}

// Store is the persistence collaborator. InTx runs fn as one all-or-nothing
// unit; returning an error from fn discards every write made through the Tx.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side, valid only inside InTx.
type Tx interface {
	// LockDate serializes writers touching the same date.
	LockDate(ctx context.Context, date timeofday.Date) error
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)
	// GetAppointment locks the row for the rest of the transaction.
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, u StatusUpdate) (Appointment, error)
	UpdateAppointmentSchedule(ctx context.Context, id string, u ScheduleUpdate) (Appointment, error)
	RecordEvent(ctx context.Context, entry events.OutboxEntry) error
}

// Reasons shared by the stores.
const (
	ReasonNotFound  = "appointment not found"
	ReasonSlotTaken = "slot taken"
)
