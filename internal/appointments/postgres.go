package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

const appointmentColumns = `id::text, doctor_id, patient_id, service_id,
		to_char(appointment_date, 'YYYY-MM-DD'), start_minute, duration_minutes, status,
		COALESCE(previous_status, ''), reschedule_requested,
		COALESCE(to_char(previous_date, 'YYYY-MM-DD'), ''), COALESCE(previous_start_minute, -1),
		notes, created_at, updated_at`

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxPool interface {
	pgxQuerier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PostgresStore persists appointments with pgx. Writes run in READ COMMITTED
// transactions behind a per-date advisory lock, so every read after LockDate
// sees the rows committed by the writer it waited on. A partial unique index
// backs the per-doctor slot rule.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithPool(pool pgxPool) *PostgresStore {
	if pool == nil {
		panic("appointments: pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Appointment, error) {
	return listAppointments(ctx, s.pool, f)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Appointment, error) {
	return getAppointment(ctx, s.pool, id, false)
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classifyPgError(err, "begin transaction")
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return classifyPgError(err, "transaction")
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPgError(err, "commit")
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockDate(ctx context.Context, date timeofday.Date) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "appointments:"+string(date)); err != nil {
		return classifyPgError(err, "lock date")
	}
	return nil
}

func (t *pgTx) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	return listAppointments(ctx, t.tx, f)
}

func (t *pgTx) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	return getAppointment(ctx, t.tx, id, true)
}

func (t *pgTx) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	id := uuid.New()
	if a.ID != "" {
		parsed, err := uuid.Parse(a.ID)
		if err != nil {
			return Appointment{}, apperr.Validation("appointment id must be a UUID")
		}
		id = parsed
	}
	a.ID = id.String()

	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, service_id, appointment_date, start_minute,
			duration_minutes, status, reschedule_requested, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	date, err := dateParam(a.Date)
	if err != nil {
		return Appointment{}, err
	}
	if _, err := t.tx.Exec(ctx, query,
		id, a.DoctorID, a.PatientID, a.ServiceID, date, int(a.StartTime),
		a.DurationMinutes, string(a.Status), a.RescheduleRequested, a.Notes, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return Appointment{}, classifyPgError(err, "insert appointment")
	}
	return a, nil
}

func (t *pgTx) UpdateAppointmentStatus(ctx context.Context, id string, u StatusUpdate) (Appointment, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	query := `
		UPDATE appointments
		SET status = $2, previous_status = NULLIF($3, ''), reschedule_requested = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + appointmentColumns
	a, err := scanAppointment(t.tx.QueryRow(ctx, query,
		uid, string(u.Status), string(u.PreviousStatus), u.RescheduleRequested, u.UpdatedAt))
	if err != nil {
		return Appointment{}, classifyPgError(err, "update status")
	}
	return a, nil
}

func (t *pgTx) UpdateAppointmentSchedule(ctx context.Context, id string, u ScheduleUpdate) (Appointment, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	date, err := dateParam(u.Date)
	if err != nil {
		return Appointment{}, err
	}
	var prevDate *time.Time
	if u.PreviousDate != "" {
		d, err := dateParam(u.PreviousDate)
		if err != nil {
			return Appointment{}, err
		}
		prevDate = &d
	}
	var prevStart *int
	if u.PreviousStartTime != nil {
		v := int(*u.PreviousStartTime)
		prevStart = &v
	}
	query := `
		UPDATE appointments
		SET appointment_date = $2, start_minute = $3, status = $4, reschedule_requested = $5,
		    previous_date = $6, previous_start_minute = $7, updated_at = $8
		WHERE id = $1
		RETURNING ` + appointmentColumns
	a, err := scanAppointment(t.tx.QueryRow(ctx, query,
		uid, date, int(u.StartTime), string(u.Status), u.RescheduleRequested, prevDate, prevStart, u.UpdatedAt))
	if err != nil {
		return Appointment{}, classifyPgError(err, "update schedule")
	}
	return a, nil
}

func (t *pgTx) RecordEvent(ctx context.Context, entry events.OutboxEntry) error {
	if err := events.Insert(ctx, t.tx, entry); err != nil {
		return classifyPgError(err, "record event")
	}
	return nil
}

func listAppointments(ctx context.Context, q pgxQuerier, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.DoctorID != "" {
		args = append(args, f.DoctorID)
		where = append(where, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.Date != "" {
		date, err := dateParam(f.Date)
		if err != nil {
			return nil, err
		}
		args = append(args, date)
		where = append(where, fmt.Sprintf("appointment_date = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(f.ExcludeStatuses) > 0 {
		args = append(args, statusStrings(f.ExcludeStatuses))
		where = append(where, fmt.Sprintf("status <> ALL($%d)", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY appointment_date, start_minute, created_at`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError(err, "list appointments")
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err, "list appointments")
	}
	return out, nil
}

func getAppointment(ctx context.Context, q pgxQuerier, id string, forUpdate bool) (Appointment, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	a, err := scanAppointment(q.QueryRow(ctx, query, uid))
	if err != nil {
		return Appointment{}, classifyPgError(err, "get appointment")
	}
	return a, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a         Appointment
		date      string
		start     int
		status    string
		prevState string
		prevDate  string
		prevStart int
	)
	if err := row.Scan(
		&a.ID, &a.DoctorID, &a.PatientID, &a.ServiceID,
		&date, &start, &a.DurationMinutes, &status,
		&prevState, &a.RescheduleRequested,
		&prevDate, &prevStart,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return Appointment{}, err
	}
	a.Date = timeofday.Date(date)
	a.StartTime = timeofday.Minutes(start)
	a.Status = Status(status)
	a.PreviousStatus = Status(prevState)
	a.PreviousDate = timeofday.Date(prevDate)
	if prevStart >= 0 {
		m := timeofday.Minutes(prevStart)
		a.PreviousStartTime = &m
	}
	return a, nil
}

// classifyPgError maps Postgres failures onto the apperr kinds. Errors that
// already carry a kind pass through unchanged.
func classifyPgError(err error, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(ReasonNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict(ReasonSlotTaken)
		case "40001", "40P01", "55P03":
			return apperr.Transient("appointment store busy", err)
		}
	}
	return fmt.Errorf("appointments: %s: %w", op, err)
}

func dateParam(d timeofday.Date) (time.Time, error) {
	t, err := d.Time(time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date")
	}
	return t, nil
}

func statusStrings(list []Status) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = string(s)
	}
	return out
}
