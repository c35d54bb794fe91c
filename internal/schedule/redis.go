package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const clinicKey = "clinic:schedule:clinic"

// RedisStore persists schedules as Redis hashes keyed by weekday name, one JSON
// document per field.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a new schedule store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) doctorKey(doctorID string) string {
	return fmt.Sprintf("clinic:schedule:doctor:%s", doctorID)
}

// ClinicDay reads one weekday, falling back to the default week when nothing has been saved.
func (s *RedisStore) ClinicDay(ctx context.Context, weekday time.Weekday) (ClinicDay, bool, error) {
	var hours ClinicDayHours
	found, err := s.hget(ctx, clinicKey, WeekdayName(weekday), &hours)
	if err != nil {
		return ClinicDay{}, false, err
	}
	if !found {
		exists, err := s.redis.Exists(ctx, clinicKey).Result()
		if err != nil {
			return ClinicDay{}, false, fmt.Errorf("schedule: clinic exists: %w", err)
		}
		if exists > 0 {
			return ClinicDay{}, false, nil
		}
		hours, found = DefaultClinicWeek()[WeekdayName(weekday)]
		if !found {
			return ClinicDay{}, false, nil
		}
	}
	day, err := hours.Parse()
	if err != nil {
		return ClinicDay{}, false, fmt.Errorf("schedule: clinic %s: %w", WeekdayName(weekday), err)
	}
	return day, true, nil
}

func (s *RedisStore) DoctorDay(ctx context.Context, doctorID string, weekday time.Weekday) (DoctorDay, bool, error) {
	var hours DoctorHours
	found, err := s.hget(ctx, s.doctorKey(doctorID), WeekdayName(weekday), &hours)
	if err != nil || !found {
		return DoctorDay{}, false, err
	}
	day, err := hours.Parse(doctorID, weekday)
	if err != nil {
		return DoctorDay{}, false, fmt.Errorf("schedule: doctor %s %s: %w", doctorID, WeekdayName(weekday), err)
	}
	return day, true, nil
}

// ClinicWeek returns the stored week, or the default when none is saved.
func (s *RedisStore) ClinicWeek(ctx context.Context) (ClinicWeek, error) {
	fields, err := s.redis.HGetAll(ctx, clinicKey).Result()
	if err != nil {
		return nil, fmt.Errorf("schedule: get clinic week: %w", err)
	}
	if len(fields) == 0 {
		return DefaultClinicWeek(), nil
	}
	week := make(ClinicWeek, len(fields))
	for name, raw := range fields {
		var hours ClinicDayHours
		if err := json.Unmarshal([]byte(raw), &hours); err != nil {
			return nil, fmt.Errorf("schedule: unmarshal clinic %s: %w", name, err)
		}
		week[name] = hours
	}
	return week, nil
}

// SetClinicWeek replaces the whole week atomically.
func (s *RedisStore) SetClinicWeek(ctx context.Context, week ClinicWeek) error {
	if err := week.Validate(); err != nil {
		return err
	}
	values := make(map[string]any, len(week))
	for name, hours := range normalizeClinicWeek(week) {
		data, err := json.Marshal(hours)
		if err != nil {
			return fmt.Errorf("schedule: marshal clinic %s: %w", name, err)
		}
		values[name] = data
	}
	return s.replace(ctx, clinicKey, values)
}

func (s *RedisStore) DoctorWeek(ctx context.Context, doctorID string) (DoctorWeek, error) {
	fields, err := s.redis.HGetAll(ctx, s.doctorKey(doctorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("schedule: get doctor week: %w", err)
	}
	week := make(DoctorWeek, len(fields))
	for name, raw := range fields {
		var hours DoctorHours
		if err := json.Unmarshal([]byte(raw), &hours); err != nil {
			return nil, fmt.Errorf("schedule: unmarshal doctor %s: %w", name, err)
		}
		week[name] = hours
	}
	return week, nil
}

func (s *RedisStore) SetDoctorWeek(ctx context.Context, doctorID string, week DoctorWeek) error {
	if err := week.Validate(); err != nil {
		return err
	}
	values := make(map[string]any, len(week))
	for name, hours := range normalizeDoctorWeek(week) {
		data, err := json.Marshal(hours)
		if err != nil {
			return fmt.Errorf("schedule: marshal doctor %s: %w", name, err)
		}
		values[name] = data
	}
	return s.replace(ctx, s.doctorKey(doctorID), values)
}

func (s *RedisStore) hget(ctx context.Context, key, field string, dest any) (bool, error) {
	data, err := s.redis.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("schedule: get %s/%s: %w", key, field, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("schedule: unmarshal %s/%s: %w", key, field, err)
	}
	return true, nil
}

func (s *RedisStore) replace(ctx context.Context, key string, values map[string]any) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule: set %s: %w", key, err)
	}
	return nil
}
