package schedule

import (
	"context"
	"sync"
	"time"
)

// MemoryCatalog keeps schedules in process. Used when Redis is not configured and in tests.
type MemoryCatalog struct {
	mu      sync.RWMutex
	clinic  ClinicWeek
	doctors map[string]DoctorWeek
}

// NewMemoryCatalog starts from the default clinic week and no doctors.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		clinic:  DefaultClinicWeek(),
		doctors: make(map[string]DoctorWeek),
	}
}

func (m *MemoryCatalog) ClinicDay(ctx context.Context, weekday time.Weekday) (ClinicDay, bool, error) {
	m.mu.RLock()
	hours, ok := m.clinic[WeekdayName(weekday)]
	m.mu.RUnlock()
	if !ok {
		return ClinicDay{}, false, nil
	}
	day, err := hours.Parse()
	if err != nil {
		return ClinicDay{}, false, err
	}
	return day, true, nil
}

func (m *MemoryCatalog) DoctorDay(ctx context.Context, doctorID string, weekday time.Weekday) (DoctorDay, bool, error) {
	m.mu.RLock()
	hours, ok := m.doctors[doctorID][WeekdayName(weekday)]
	m.mu.RUnlock()
	if !ok {
		return DoctorDay{}, false, nil
	}
	day, err := hours.Parse(doctorID, weekday)
	if err != nil {
		return DoctorDay{}, false, err
	}
	return day, true, nil
}

func (m *MemoryCatalog) ClinicWeek(ctx context.Context) (ClinicWeek, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(ClinicWeek, len(m.clinic))
	for k, v := range m.clinic {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryCatalog) SetClinicWeek(ctx context.Context, week ClinicWeek) error {
	if err := week.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.clinic = normalizeClinicWeek(week)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCatalog) DoctorWeek(ctx context.Context, doctorID string) (DoctorWeek, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(DoctorWeek, len(m.doctors[doctorID]))
	for k, v := range m.doctors[doctorID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryCatalog) SetDoctorWeek(ctx context.Context, doctorID string, week DoctorWeek) error {
	if err := week.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.doctors[doctorID] = normalizeDoctorWeek(week)
	m.mu.Unlock()
	return nil
}
