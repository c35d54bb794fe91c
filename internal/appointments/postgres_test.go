package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

var columns = []string{
	"id", "doctor_id", "patient_id", "service_id", "appointment_date", "start_minute",
	"duration_minutes", "status", "previous_status", "reschedule_requested",
	"previous_date", "previous_start_minute", "notes", "created_at", "updated_at",
}

func addRow(rows *pgxmock.Rows, id, doctor, date string, start int, status string) *pgxmock.Rows {
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return rows.AddRow(id, doctor, "pat-1", "srv001", date, start, 30, status, "", false, "", -1, "", ts, ts)
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithPool(mock), mock
}

func TestPostgresListBuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(columns)
	addRow(rows, uuid.NewString(), "doc-1", "2025-03-10", 600, "pending")
	addRow(rows, uuid.NewString(), "doc-1", "2025-03-10", 660, "confirmed")
	mock.ExpectQuery(`FROM appointments WHERE doctor_id = \$1 AND appointment_date = \$2 AND status <> ALL\(\$3\) ORDER BY`).
		WithArgs("doc-1", day, []string{"cancelled"}).
		WillReturnRows(rows)

	f := LiveOn("2025-03-10")
	f.DoctorID = "doc-1"
	list, err := store.List(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "10:00", list[0].StartTime.String())
	assert.Equal(t, StatusConfirmed, list[1].Status)
	assert.Nil(t, list[0].PreviousStartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM appointments WHERE status = ANY\(\$1\) ORDER BY`).
		WithArgs([]string{"cancellation_requested"}).
		WillReturnRows(pgxmock.NewRows(columns))

	list, err := store.List(context.Background(), Filter{Statuses: []Status{StatusCancellationRequested}})
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery(`FROM appointments WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), id.String())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = store.Get(context.Background(), "not-a-uuid")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateInTx(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("appointments:2025-03-10").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(id, "doc-1", "pat-1", "srv001", day, 600, 30, "pending", false, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), id.String(), events.TypeAppointmentCreated, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	a := sample(StatusPending)
	a.ID = id.String()
	a.Notes = ""
	err := store.InTx(context.Background(), func(tx Tx) error {
		if err := tx.LockDate(context.Background(), a.Date); err != nil {
			return err
		}
		created, err := tx.CreateAppointment(context.Background(), a)
		if err != nil {
			return err
		}
		entry, err := events.NewEntry(created.ID, events.TypeAppointmentCreated, map[string]string{"id": created.ID}, now)
		if err != nil {
			return err
		}
		return tx.RecordEvent(context.Background(), entry)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAfterLockRunsInReadCommittedTx(t *testing.T) {
	store, mock := newMockStore(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	committed := pgxmock.NewRows(columns)
	addRow(committed, uuid.NewString(), "doc-1", "2025-03-10", 600, "pending")
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("appointments:2025-03-10").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM appointments WHERE appointment_date = \$1 AND status <> ALL\(\$2\)`).
		WithArgs(day, []string{"cancelled"}).
		WillReturnRows(committed)
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx Tx) error {
		if err := tx.LockDate(context.Background(), "2025-03-10"); err != nil {
			return err
		}
		live, err := tx.ListAppointments(context.Background(), LiveOn("2025-03-10"))
		if err != nil {
			return err
		}
		for _, other := range live {
			if other.DoctorID == "doc-1" && other.StartTime.String() == "10:00" {
				return apperr.Conflict(ReasonSlotTaken)
			}
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.False(t, apperr.Retryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("INSERT INTO appointments").WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	mock.ExpectRollback()

	a := sample(StatusPending)
	a.ID = ""
	err := store.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.CreateAppointment(context.Background(), a)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, ReasonSlotTaken, apperr.ReasonOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSerializationFailureIsTransient(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

	err := store.InTx(context.Background(), func(tx Tx) error { return nil })
	require.Error(t, err)
	assert.True(t, apperr.Retryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatus(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	rows := pgxmock.NewRows(columns)
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rows.AddRow(id.String(), "doc-1", "pat-1", "srv001", "2025-03-10", 600, 30, "cancellation_requested", "confirmed", false, "", -1, "", ts, ts)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`UPDATE appointments\s+SET status = \$2`).
		WithArgs(id, "cancellation_requested", "confirmed", false, now).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var got Appointment
	err := store.InTx(context.Background(), func(tx Tx) error {
		var err error
		got, err = tx.UpdateAppointmentStatus(context.Background(), id.String(), StatusUpdate{
			Status:         StatusCancellationRequested,
			PreviousStatus: StatusConfirmed,
			UpdatedAt:      now,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.PreviousStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSchedule(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	newDay := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	oldDay := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	prevStart := 600

	rows := pgxmock.NewRows(columns)
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rows.AddRow(id.String(), "doc-1", "pat-1", "srv001", "2025-03-11", 840, 30, "pending", "", true, "2025-03-10", 600, "", ts, ts)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(`FROM appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(addRow(pgxmock.NewRows(columns), id.String(), "doc-1", "2025-03-10", 600, "confirmed"))
	mock.ExpectQuery(`UPDATE appointments\s+SET appointment_date = \$2`).
		WithArgs(id, newDay, 840, "pending", true, &oldDay, &prevStart, now).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var got Appointment
	err := store.InTx(context.Background(), func(tx Tx) error {
		current, err := tx.GetAppointment(context.Background(), id.String())
		if err != nil {
			return err
		}
		moved, err := Reschedule(current, "2025-03-11", timeofday.MustClock("14:00"), now)
		if err != nil {
			return err
		}
		got, err = tx.UpdateAppointmentSchedule(context.Background(), id.String(), moved.AsScheduleUpdate())
		return err
	})
	require.NoError(t, err)
	assert.True(t, got.RescheduleRequested)
	assert.Equal(t, timeofday.Date("2025-03-10"), got.PreviousDate)
	require.NotNil(t, got.PreviousStartTime)
	assert.Equal(t, "10:00", got.PreviousStartTime.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyPgError(t *testing.T) {
	assert.True(t, apperr.Retryable(classifyPgError(&pgconn.PgError{Code: "40P01"}, "op")))
	assert.True(t, apperr.Retryable(classifyPgError(&pgconn.PgError{Code: "55P03"}, "op")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(classifyPgError(&pgconn.PgError{Code: "42P01"}, "op")))

	passthrough := apperr.Conflict("day fully booked")
	assert.Equal(t, passthrough, classifyPgError(passthrough, "op"))
}
