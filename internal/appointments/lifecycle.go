package appointments

import (
	"fmt"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionConfirm             Action = "confirm"
	ActionComplete            Action = "complete"
	ActionCancel              Action = "cancel"
	ActionRequestCancellation Action = "request_cancellation"
	ActionApproveCancellation Action = "approve_cancellation"
	ActionRejectCancellation  Action = "reject_cancellation"
	ActionReschedule          Action = "reschedule"
)

// Reasons attached to invalid_transition errors.
const (
	ReasonAlreadyRequested = "cancellation already requested"
	ReasonNoPriorStatus    = "no prior status recorded"
)

// ActionForStatus maps a requested target status onto the staff action that reaches it.
func ActionForStatus(current, target Status) (Action, error) {
	switch target {
	case StatusConfirmed:
		return ActionConfirm, nil
	case StatusCompleted:
		return ActionComplete, nil
	case StatusCancelled:
		if current == StatusCancellationRequested {
			return ActionApproveCancellation, nil
		}
		return ActionCancel, nil
	case StatusCancellationRequested:
		return ActionRequestCancellation, nil
	case StatusPending:
		return "", apperr.InvalidTransition("appointments return to pending only through reschedule")
	}
	return "", apperr.Validation(fmt.Sprintf("unknown status %q", target))
}

// Apply runs a status-only action and returns the updated copy.
func Apply(a Appointment, action Action, now time.Time) (Appointment, error) {
	switch action {
	case ActionConfirm:
		return Confirm(a, now)
	case ActionComplete:
		return Complete(a, now)
	case ActionCancel:
		return Cancel(a, now)
	case ActionRequestCancellation:
		return RequestCancellation(a, now)
	case ActionApproveCancellation:
		return ApproveCancellation(a, now)
	case ActionRejectCancellation:
		return RejectCancellation(a, now)
	}
	return a, apperr.Validation(fmt.Sprintf("unknown action %q", action))
}

// Confirm moves pending or confirmed to confirmed and clears the reschedule flag.
func Confirm(a Appointment, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionConfirm, StatusPending, StatusConfirmed); err != nil {
		return a, err
	}
	a.Status = StatusConfirmed
	a.RescheduleRequested = false
	a.UpdatedAt = now
	return a, nil
}

// Complete marks a pending or confirmed appointment done.
func Complete(a Appointment, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionComplete, StatusPending, StatusConfirmed); err != nil {
		return a, err
	}
	a.Status = StatusCompleted
	a.RescheduleRequested = false
	a.UpdatedAt = now
	return a, nil
}

// Cancel is the staff cancellation.
func Cancel(a Appointment, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionCancel, StatusPending, StatusConfirmed, StatusCancellationRequested); err != nil {
		return a, err
	}
	a.Status = StatusCancelled
	a.UpdatedAt = now
	return a, nil
}

// RequestCancellation is the patient action; the current status is kept for a later reject.
func RequestCancellation(a Appointment, now time.Time) (Appointment, error) {
	if a.Status == StatusCancellationRequested {
		return a, apperr.InvalidTransition(ReasonAlreadyRequested)
	}
	if err := requireStatus(a, ActionRequestCancellation, StatusPending, StatusConfirmed); err != nil {
		return a, err
	}
	a.PreviousStatus = a.Status
	a.Status = StatusCancellationRequested
	a.UpdatedAt = now
	return a, nil
}

// ApproveCancellation cancels an appointment whose cancellation was requested.
func ApproveCancellation(a Appointment, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionApproveCancellation, StatusCancellationRequested); err != nil {
		return a, err
	}
	a.Status = StatusCancelled
	a.UpdatedAt = now
	return a, nil
}

// RejectCancellation restores the status recorded by RequestCancellation.
func RejectCancellation(a Appointment, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionRejectCancellation, StatusCancellationRequested); err != nil {
		return a, err
	}
	if a.PreviousStatus != StatusPending && a.PreviousStatus != StatusConfirmed {
		return a, apperr.InvalidTransition(ReasonNoPriorStatus)
	}
	a.Status = a.PreviousStatus
	a.PreviousStatus = ""
	a.UpdatedAt = now
	return a, nil
}

// Reschedule moves the appointment in place. The new slot still has to pass validation.
func Reschedule(a Appointment, date timeofday.Date, start timeofday.Minutes, now time.Time) (Appointment, error) {
	if err := requireStatus(a, ActionReschedule, StatusPending, StatusConfirmed); err != nil {
		return a, err
	}
	prev := a.StartTime
	a.PreviousDate = a.Date
	a.PreviousStartTime = &prev
	a.Date = date
	a.StartTime = start
	a.Status = StatusPending
	a.RescheduleRequested = true
	a.UpdatedAt = now
	return a, nil
}

func requireStatus(a Appointment, action Action, allowed ...Status) error {
	if containsStatus(allowed, a.Status) {
		return nil
	}
	if a.Status.Terminal() {
		return apperr.InvalidTransition(fmt.Sprintf("appointment is %s", a.Status))
	}
	return apperr.InvalidTransition(fmt.Sprintf("cannot %s an appointment that is %s", humanAction(action), a.Status))
}

func humanAction(a Action) string {
	switch a {
	case ActionRequestCancellation:
		return "request cancellation of"
	case ActionApproveCancellation:
		return "approve cancellation of"
	case ActionRejectCancellation:
		return "reject cancellation of"
	}
	return string(a)
}
