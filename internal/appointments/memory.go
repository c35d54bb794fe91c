package appointments

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

// MemoryStore keeps appointments in process. Readers load an immutable
// snapshot; writers serialize on one mutex and publish a new snapshot on commit.
type MemoryStore struct {
	writeMu sync.Mutex
	current atomic.Pointer[map[string]Appointment]
	outbox  *events.MemoryOutbox
}

// NewMemoryStore creates an empty store. Committed events go to outbox when it is non-nil.
func NewMemoryStore(outbox *events.MemoryOutbox) *MemoryStore {
	s := &MemoryStore{outbox: outbox}
	empty := map[string]Appointment{}
	s.current.Store(&empty)
	return s
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Appointment, error) {
	return listFrom(*s.current.Load(), f), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Appointment, error) {
	a, ok := (*s.current.Load())[id]
	if !ok {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	return a, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	base := *s.current.Load()
	working := make(map[string]Appointment, len(base)+1)
	for id, a := range base {
		working[id] = a
	}
	tx := &memoryTx{rows: working}
	if err := fn(tx); err != nil {
		return err
	}
	s.current.Store(&working)
	if s.outbox != nil && len(tx.events) > 0 {
		s.outbox.Append(tx.events...)
	}
	return nil
}

type memoryTx struct {
	rows   map[string]Appointment
	events []events.OutboxEntry
}

func (t *memoryTx) LockDate(ctx context.Context, date timeofday.Date) error { return nil }

func (t *memoryTx) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	return listFrom(t.rows, f), nil
}

func (t *memoryTx) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	a, ok := t.rows[id]
	if !ok {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	return a, nil
}

func (t *memoryTx) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := t.rows[a.ID]; exists {
		return Appointment{}, apperr.Conflict("appointment already exists")
	}
	if t.slotTaken(a, "") {
		return Appointment{}, apperr.Conflict(ReasonSlotTaken)
	}
	t.rows[a.ID] = a
	return a, nil
}

func (t *memoryTx) UpdateAppointmentStatus(ctx context.Context, id string, u StatusUpdate) (Appointment, error) {
	a, ok := t.rows[id]
	if !ok {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	updated := u.apply(a)
	if !a.Live() && updated.Live() && t.slotTaken(updated, id) {
		return Appointment{}, apperr.Conflict(ReasonSlotTaken)
	}
	t.rows[id] = updated
	return updated, nil
}

func (t *memoryTx) UpdateAppointmentSchedule(ctx context.Context, id string, u ScheduleUpdate) (Appointment, error) {
	a, ok := t.rows[id]
	if !ok {
		return Appointment{}, apperr.NotFound(ReasonNotFound)
	}
	updated := u.apply(a)
	if updated.Live() && t.slotTaken(updated, id) {
		return Appointment{}, apperr.Conflict(ReasonSlotTaken)
	}
	t.rows[id] = updated
	return updated, nil
}

func (t *memoryTx) RecordEvent(ctx context.Context, entry events.OutboxEntry) error {
	t.events = append(t.events, entry)
	return nil
}

// slotTaken mirrors the unique index on live (doctor, date, start) rows.
func (t *memoryTx) slotTaken(a Appointment, excludeID string) bool {
	if !a.Live() {
		return false
	}
	for id, other := range t.rows {
		if id == excludeID || !other.Live() {
			continue
		}
		if other.DoctorID == a.DoctorID && other.Date == a.Date && other.StartTime == a.StartTime {
			return true
		}
	}
	return false
}

func listFrom(rows map[string]Appointment, f Filter) []Appointment {
	out := []Appointment{}
	for _, a := range rows {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	Sort(out)
	return out
}
