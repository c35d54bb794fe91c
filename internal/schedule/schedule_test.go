package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
)

func mondayCatalog(t *testing.T) *MemoryCatalog {
	t.Helper()
	cat := NewMemoryCatalog()
	require.NoError(t, cat.SetClinicWeek(context.Background(), ClinicWeek{
		"monday": {IsOpen: true, StartTime: "09:00", EndTime: "17:00", BreakStartTime: "12:00", BreakEndTime: "13:00"},
		"sunday": {IsOpen: false},
	}))
	require.NoError(t, cat.SetDoctorWeek(context.Background(), "doc-1", DoctorWeek{
		"Monday": {StartTime: "08:00", EndTime: "18:00"},
		"sunday": {StartTime: "09:00", EndTime: "12:00"},
	}))
	return cat
}

func TestResolveDay(t *testing.T) {
	ctx := context.Background()
	cat := mondayCatalog(t)

	day, err := ResolveDay(ctx, cat, "doc-1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "09:00-17:00", day.Window.String())
	require.NotNil(t, day.Break)
	assert.Equal(t, "12:00-13:00", day.Break.String())
}

func TestResolveDayClosedReasons(t *testing.T) {
	ctx := context.Background()
	cat := mondayCatalog(t)
	require.NoError(t, cat.SetDoctorWeek(ctx, "doc-early", DoctorWeek{"monday": {StartTime: "06:00", EndTime: "09:00"}}))

	tests := []struct {
		name   string
		doctor string
		date   timeofday.Date
		reason string
	}{
		{name: "clinic closed sunday", doctor: "doc-1", date: "2025-03-09", reason: ReasonClinicClosed},
		{name: "clinic has no tuesday entry", doctor: "doc-1", date: "2025-03-11", reason: ReasonClinicClosed},
		{name: "doctor not scheduled", doctor: "doc-2", date: "2025-03-10", reason: ReasonDoctorUnavailable},
		{name: "hours only touch", doctor: "doc-early", date: "2025-03-10", reason: ReasonNoOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDay(ctx, cat, tt.doctor, tt.date)
			require.Error(t, err)
			assert.Equal(t, apperr.KindScheduleClosed, apperr.KindOf(err))
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
		})
	}

	_, err := ResolveDay(ctx, cat, "doc-1", "not-a-date")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDayAdmits(t *testing.T) {
	brk := timeofday.Interval{Start: timeofday.MustClock("12:00"), End: timeofday.MustClock("13:00")}
	day := Day{Window: timeofday.Interval{Start: timeofday.MustClock("09:00"), End: timeofday.MustClock("17:00")}, Break: &brk}

	assert.True(t, day.Admits(timeofday.Span(timeofday.MustClock("11:30"), 30)))
	assert.False(t, day.Admits(timeofday.Span(timeofday.MustClock("11:45"), 30)))
	assert.True(t, day.Admits(timeofday.Span(timeofday.MustClock("13:00"), 30)))
	assert.False(t, day.Admits(timeofday.Span(timeofday.MustClock("08:30"), 30)))
	assert.False(t, day.Admits(timeofday.Span(timeofday.MustClock("16:45"), 30)))
	assert.True(t, day.Admits(timeofday.Span(timeofday.MustClock("16:30"), 30)))
}

func TestWeekValidation(t *testing.T) {
	tests := []struct {
		name string
		week ClinicWeek
	}{
		{name: "empty", week: ClinicWeek{}},
		{name: "unknown day", week: ClinicWeek{"funday": {IsOpen: true, StartTime: "09:00", EndTime: "17:00"}}},
		{name: "end before start", week: ClinicWeek{"monday": {IsOpen: true, StartTime: "17:00", EndTime: "09:00"}}},
		{name: "break outside hours", week: ClinicWeek{"monday": {IsOpen: true, StartTime: "09:00", EndTime: "17:00", BreakStartTime: "16:30", BreakEndTime: "17:30"}}},
		{name: "half a break", week: ClinicWeek{"monday": {IsOpen: true, StartTime: "09:00", EndTime: "17:00", BreakStartTime: "12:00"}}},
		{name: "bad clock", week: ClinicWeek{"monday": {IsOpen: true, StartTime: "9am", EndTime: "17:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.week.Validate()
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	closed := ClinicWeek{"sunday": {IsOpen: false, StartTime: "bogus"}}
	assert.NoError(t, closed.Validate(), "closed days ignore their times")

	assert.Error(t, DoctorWeek{"monday": {StartTime: "10:00", EndTime: "10:00"}}.Validate())
	assert.NoError(t, DoctorWeek{}.Validate())
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday(" Wednesday ")
	assert.True(t, ok)
	assert.Equal(t, time.Wednesday, d)
	_, ok = ParseWeekday("someday")
	assert.False(t, ok)
}
