// Package booking orchestrates slot listing and the appointment write
// operations, and exposes them over HTTP.
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.booking")

// DurationResolver maps a service reference to minutes.
type DurationResolver interface {
	Resolve(ctx context.Context, serviceRef string) (int, error)
}

// Options tune the service; zero values take the defaults.
type Options struct {
	Limits         scheduling.Limits
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Location       *time.Location
}

// Service is the booking entry point for the HTTP layer.
type Service struct {
	store      appointments.Store
	snapshots  *appointments.SnapshotCache
	resolver   DurationResolver
	validator  *scheduling.Validator
	calculator *scheduling.Calculator
	locker     DateLocker
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger

	clock       func() time.Time
	location    *time.Location
	maxAttempts int
	baseDelay   time.Duration
}

// NewService wires the scheduling rules to a store.
func NewService(store appointments.Store, catalog schedule.Catalog, resolver DurationResolver, opts Options, logger *logging.Logger) *Service {
	if store == nil {
		panic("booking: appointment store required")
	}
	if catalog == nil {
		panic("booking: schedule catalog required")
	}
	if resolver == nil {
		panic("booking: duration resolver required")
	}
	logger = logger.With("component", "booking")
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 25 * time.Millisecond
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:       store,
		snapshots:   appointments.NewSnapshotCache(nil, store, 0, logger),
		resolver:    resolver,
		validator:   scheduling.NewValidator(catalog, opts.Limits),
		calculator:  scheduling.NewCalculator(catalog, opts.Limits),
		logger:      logger,
		clock:       time.Now,
		location:    opts.Location,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.RetryBaseDelay,
	}
}

// WithSnapshotCache serves availability reads from cache.
func (s *Service) WithSnapshotCache(cache *appointments.SnapshotCache) *Service {
	if cache != nil {
		s.snapshots = cache
	}
	return s
}

// WithLocker takes a date lock ahead of each write transaction.
func (s *Service) WithLocker(locker DateLocker) *Service {
	s.locker = locker
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithClock replaces time.Now, mainly for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// AvailabilityRequest asks for bookable starts.
type AvailabilityRequest struct {
	DoctorID  string
	Date      timeofday.Date
	ServiceID string
}

// CreateRequest is a new booking in canonical form.
type CreateRequest struct {
	PatientID string
	DoctorID  string
	ServiceID string
	Date      timeofday.Date
	Start     timeofday.Minutes
	Notes     string
}

// AvailableSlots lists bookable start times. Past dates and past times today are never offered.
func (s *Service) AvailableSlots(ctx context.Context, req AvailabilityRequest) (slots []timeofday.Minutes, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.date", string(req.Date)),
		attribute.String("clinic.service_id", req.ServiceID),
	)
	defer s.observe("availability", s.clock(), span, &err)

	if strings.TrimSpace(req.DoctorID) == "" {
		return nil, apperr.Validation("doctorId is required")
	}
	if req.Date == "" {
		return nil, apperr.Validation("date is required")
	}
	duration, err := s.resolver.Resolve(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	today, nowMinutes := s.today()
	if req.Date.Before(today) {
		return []timeofday.Minutes{}, nil
	}
	q := scheduling.Query{DoctorID: req.DoctorID, Date: req.Date, Duration: duration}
	if req.Date == today {
		q.NotBefore = &nowMinutes
	}

	existing, err := s.snapshots.Day(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	slots, err = s.calculator.Slots(ctx, q, existing)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSlots(len(slots))
	return slots, nil
}

// Create validates and stores a new pending appointment.
func (s *Service) Create(ctx context.Context, req CreateRequest) (created appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.date", string(req.Date)),
		attribute.String("clinic.time", req.Start.String()),
	)
	defer s.observe("create", s.clock(), span, &err)

	if err := validateCreate(req); err != nil {
		return appointments.Appointment{}, err
	}
	if err := s.rejectPast(req.Date, req.Start); err != nil {
		return appointments.Appointment{}, err
	}
	duration, err := s.resolver.Resolve(ctx, req.ServiceID)
	if err != nil {
		return appointments.Appointment{}, err
	}

	now := s.clock().UTC()
	draft := appointments.Appointment{
		ID:              uuid.NewString(),
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		ServiceID:       req.ServiceID,
		Date:            req.Date,
		StartTime:       req.Start,
		DurationMinutes: duration,
		Status:          appointments.StatusPending,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.write(ctx, "create", req.Date, func(tx appointments.Tx) error {
		existing, err := tx.ListAppointments(ctx, appointments.LiveOn(req.Date))
		if err != nil {
			return err
		}
		proposal := scheduling.Proposal{DoctorID: req.DoctorID, Date: req.Date, Start: req.Start, Duration: duration}
		if err := s.validator.Validate(ctx, proposal, existing); err != nil {
			return err
		}
		created, err = tx.CreateAppointment(ctx, draft)
		if err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, events.TypeAppointmentCreated, created, "patient")
	})
	if err != nil {
		s.logger.Info("booking rejected", "doctor_id", req.DoctorID, "date", req.Date, "time", req.Start, "reason", apperr.ReasonOf(err))
		return appointments.Appointment{}, err
	}

	s.snapshots.Invalidate(ctx, req.Date)
	span.SetAttributes(attribute.String("clinic.appointment_id", created.ID))
	s.logger.Info("booking created", "appointment_id", created.ID, "doctor_id", created.DoctorID, "date", created.Date, "time", created.StartTime, "duration_minutes", created.DurationMinutes)
	return created, nil
}

// Reschedule moves an appointment in place. The original slot is released
// immediately; it is remembered in PreviousDate/PreviousStartTime.
func (s *Service) Reschedule(ctx context.Context, id string, date timeofday.Date, start timeofday.Minutes) (moved appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment_id", id),
		attribute.String("clinic.date", string(date)),
		attribute.String("clinic.time", start.String()),
	)
	defer s.observe("reschedule", s.clock(), span, &err)

	if strings.TrimSpace(id) == "" {
		return appointments.Appointment{}, apperr.Validation("appointment id is required")
	}
	if date == "" {
		return appointments.Appointment{}, apperr.Validation("date is required")
	}
	if err := s.rejectPast(date, start); err != nil {
		return appointments.Appointment{}, err
	}

	err = s.write(ctx, "reschedule", date, func(tx appointments.Tx) error {
		current, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		next, err := appointments.Reschedule(current, date, start, s.clock().UTC())
		if err != nil {
			return err
		}
		existing, err := tx.ListAppointments(ctx, appointments.LiveOn(date))
		if err != nil {
			return err
		}
		proposal := scheduling.Proposal{
			DoctorID:  current.DoctorID,
			Date:      date,
			Start:     start,
			Duration:  current.DurationMinutes,
			ExcludeID: current.ID,
		}
		if err := s.validator.Validate(ctx, proposal, existing); err != nil {
			return err
		}
		moved, err = tx.UpdateAppointmentSchedule(ctx, id, next.AsScheduleUpdate())
		if err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, events.TypeAppointmentRescheduled, moved, "patient")
	})
	if err != nil {
		return appointments.Appointment{}, err
	}

	s.snapshots.Invalidate(ctx, moved.PreviousDate, moved.Date)
	s.logger.Info("booking rescheduled", "appointment_id", moved.ID, "doctor_id", moved.DoctorID, "date", moved.Date, "time", moved.StartTime, "previous_date", moved.PreviousDate)
	return moved, nil
}

// RequestCancellation is the patient's request; staff approve or reject it.
func (s *Service) RequestCancellation(ctx context.Context, id string) (appointments.Appointment, error) {
	return s.transition(ctx, "request_cancellation", id, "patient", func(appointments.Appointment) (appointments.Action, error) {
		return appointments.ActionRequestCancellation, nil
	})
}

// ApproveCancellation cancels an appointment whose cancellation was requested.
func (s *Service) ApproveCancellation(ctx context.Context, id string) (appointments.Appointment, error) {
	return s.transition(ctx, "approve_cancellation", id, "staff", func(appointments.Appointment) (appointments.Action, error) {
		return appointments.ActionApproveCancellation, nil
	})
}

// RejectCancellation restores the status held before the request.
func (s *Service) RejectCancellation(ctx context.Context, id string) (appointments.Appointment, error) {
	return s.transition(ctx, "reject_cancellation", id, "staff", func(appointments.Appointment) (appointments.Action, error) {
		return appointments.ActionRejectCancellation, nil
	})
}

// ChangeStatus applies a staff status change.
func (s *Service) ChangeStatus(ctx context.Context, id string, target appointments.Status) (appointments.Appointment, error) {
	return s.transition(ctx, "change_status", id, "staff", func(current appointments.Appointment) (appointments.Action, error) {
		return appointments.ActionForStatus(current.Status, target)
	})
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (appointments.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return appointments.Appointment{}, apperr.Validation("appointment id is required")
	}
	return s.store.Get(ctx, id)
}

// List returns appointments matching f, ordered by date and time.
func (s *Service) List(ctx context.Context, f appointments.Filter) ([]appointments.Appointment, error) {
	return s.store.List(ctx, f)
}

// transition runs a status-only change against the locked row. Status changes
// never add occupancy, so the conflict rules are not re-run.
func (s *Service) transition(ctx context.Context, op, id, actor string, pick func(appointments.Appointment) (appointments.Action, error)) (updated appointments.Appointment, err error) {
	ctx, span := bookingTracer.Start(ctx, "booking."+op)
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))
	defer s.observe(op, s.clock(), span, &err)

	if strings.TrimSpace(id) == "" {
		return appointments.Appointment{}, apperr.Validation("appointment id is required")
	}
	actor = actorFrom(ctx, actor)

	var from appointments.Status
	err = s.retry(ctx, op, func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx appointments.Tx) error {
			current, err := tx.GetAppointment(ctx, id)
			if err != nil {
				return err
			}
			action, err := pick(current)
			if err != nil {
				return err
			}
			next, err := appointments.Apply(current, action, s.clock().UTC())
			if err != nil {
				return err
			}
			from = current.Status
			updated, err = tx.UpdateAppointmentStatus(ctx, id, next.AsStatusUpdate())
			if err != nil {
				return err
			}
			return s.recordEvent(ctx, tx, events.TypeAppointmentStatusChanged, updated, actor)
		})
	})
	if err != nil {
		return appointments.Appointment{}, err
	}

	s.snapshots.Invalidate(ctx, updated.Date)
	s.logger.Info("booking status changed", "appointment_id", updated.ID, "from", from, "to", updated.Status, "actor", actor)
	return updated, nil
}

// write runs fn in a store transaction holding the date lock, retrying transient failures.
func (s *Service) write(ctx context.Context, op string, date timeofday.Date, fn func(tx appointments.Tx) error) error {
	return s.retry(ctx, op, func(ctx context.Context) error {
		if s.locker != nil {
			release, err := s.locker.Lock(ctx, date)
			if err != nil {
				return err
			}
			defer release()
		}
		return s.store.InTx(ctx, func(tx appointments.Tx) error {
			if err := tx.LockDate(ctx, date); err != nil {
				return err
			}
			return fn(tx)
		})
	})
}

func (s *Service) recordEvent(ctx context.Context, tx appointments.Tx, eventType string, a appointments.Appointment, actor string) error {
	payload := events.AppointmentEventV1{
		EventID:             uuid.NewString(),
		AppointmentID:       a.ID,
		DoctorID:            a.DoctorID,
		PatientID:           a.PatientID,
		ServiceID:           a.ServiceID,
		Date:                string(a.Date),
		Time:                a.StartTime.String(),
		DurationMinutes:     a.DurationMinutes,
		Status:              string(a.Status),
		PreviousStatus:      string(a.PreviousStatus),
		PreviousDate:        string(a.PreviousDate),
		RescheduleRequested: a.RescheduleRequested,
		Actor:               actor,
		OccurredAt:          a.UpdatedAt,
	}
	if a.PreviousStartTime != nil {
		payload.PreviousTime = a.PreviousStartTime.String()
	}
	entry, err := events.NewEntry(a.ID, eventType, payload, a.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.RecordEvent(ctx, entry)
}

func (s *Service) today() (timeofday.Date, timeofday.Minutes) {
	now := s.clock().In(s.location)
	return timeofday.DateOf(now), timeofday.FromTime(now)
}

func (s *Service) rejectPast(date timeofday.Date, start timeofday.Minutes) error {
	today, nowMinutes := s.today()
	if date.Before(today) {
		return apperr.Validation("date is in the past")
	}
	if date == today && start < nowMinutes {
		return apperr.Validation("time is in the past")
	}
	return nil
}

func (s *Service) observe(op string, started time.Time, span trace.Span, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		outcome = string(apperr.KindOf(err))
		span.RecordError(err)
		span.SetAttributes(attribute.String("clinic.outcome", outcome))
	}
	s.metrics.ObserveOperation(op, outcome, s.clock().Sub(started).Seconds())
}

func validateCreate(req CreateRequest) error {
	switch {
	case strings.TrimSpace(req.PatientID) == "":
		return apperr.Validation("patientId is required")
	case strings.TrimSpace(req.DoctorID) == "":
		return apperr.Validation("doctorId is required")
	case strings.TrimSpace(req.ServiceID) == "":
		return apperr.Validation("serviceId is required")
	case req.Date == "":
		return apperr.Validation("date is required")
	}
	if _, err := req.Date.Weekday(); err != nil {
		return apperr.Validation("invalid date")
	}
	return nil
}
