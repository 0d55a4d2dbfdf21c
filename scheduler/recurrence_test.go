package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacerhq/pacer/errors"
	"github.com/pacerhq/pacer/internal/util"
)

func TestNextRun_Once(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(RecurrenceOnce, RecurrenceConfig{}, "UTC", now)
	require.NoError(t, err)
	assert.Nil(t, next, "one-shots never recur")
}

func TestNextRun_Hourly(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 30, 45, 0, time.UTC)

	next, err := NextRun(RecurrenceHourly, RecurrenceConfig{}, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_DailyTimePassed(t *testing.T) {
	// 10:30, daily run at 09:00: today's slot is gone, tomorrow it is
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Hour: util.Ptr(9), Minute: util.Ptr(0)}

	next, err := NextRun(RecurrenceDaily, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_DailyTimeAhead(t *testing.T) {
	now := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Hour: util.Ptr(9), Minute: util.Ptr(30)}

	next, err := NextRun(RecurrenceDaily, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_DailyDefaults(t *testing.T) {
	// Missing hour/minute degrade to 09:00 rather than freezing the schedule
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(RecurrenceDaily, RecurrenceConfig{}, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_DailyOutOfRangeFieldsUseDefaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Hour: util.Ptr(99), Minute: util.Ptr(-5)}

	next, err := NextRun(RecurrenceDaily, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_WeeklySameDayTimePassed(t *testing.T) {
	// Monday at noon, weekly Monday 09:00: a full week ahead, never zero
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) // a Monday
	cfg := RecurrenceConfig{DayOfWeek: util.Ptr(1), Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceWeekly, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_WeeklyLaterThisWeek(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) // a Tuesday
	cfg := RecurrenceConfig{DayOfWeek: util.Ptr(5), Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceWeekly, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), next.UTC())
	assert.Equal(t, time.Friday, next.Weekday())
}

func TestNextRun_MonthlyAdvancesMonth(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{DayOfMonth: util.Ptr(1), Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceMonthly, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_MonthlyClampsToShortMonth(t *testing.T) {
	// Day 31 from the end of January lands on Feb 29 (2024 is a leap year)
	now := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{DayOfMonth: util.Ptr(31), Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceMonthly, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_MonthlyDecemberRollsOver(t *testing.T) {
	now := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{DayOfMonth: util.Ptr(15), Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceMonthly, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_IntervalMinutes(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Value: util.Ptr(30), Unit: "minutes"}

	next, err := NextRun(RecurrenceInterval, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(30*time.Minute), next.UTC())
}

func TestNextRun_IntervalHoursDefault(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Unit: "hours"}

	next, err := NextRun(RecurrenceInterval, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(time.Hour), next.UTC())
}

func TestNextRun_IntervalEmptyConfigDefaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(RecurrenceInterval, RecurrenceConfig{}, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(60*time.Minute), next.UTC())
}

func TestNextRun_Cron(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 7, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Expression: "*/15 * * * *"}

	next, err := NextRun(RecurrenceCron, cfg, "UTC", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_CronInvalidExpression(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Expression: "not a cron"}

	next, err := NextRun(RecurrenceCron, cfg, "UTC", now)
	assert.Error(t, err)
	assert.Nil(t, next)
}

func TestNextRun_CronEmptyExpression(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(RecurrenceCron, RecurrenceConfig{}, "UTC", now)
	assert.Error(t, err)
	assert.Nil(t, next)
}

func TestNextRun_UnsupportedType(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(RecurrenceType("quarterly"), RecurrenceConfig{}, "UTC", now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedRecurrence))
	assert.Nil(t, next)
}

func TestNextRun_TimezoneAware(t *testing.T) {
	// 08:00 in New York (12:00 UTC during EDT): today's 09:00 local slot is
	// still ahead, which is 13:00 UTC
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Hour: util.Ptr(9), Minute: util.Ptr(0)}

	next, err := NextRun(RecurrenceDaily, cfg, "America/New_York", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := RecurrenceConfig{Hour: util.Ptr(9)}

	next, err := NextRun(RecurrenceDaily, cfg, "Mars/Olympus", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_AlwaysStrictlyFuture(t *testing.T) {
	// Evaluating at the exact scheduled instant must advance, not repeat it
	cases := []struct {
		name string
		rt   RecurrenceType
		cfg  RecurrenceConfig
		now  time.Time
	}{
		{"daily at its own slot", RecurrenceDaily,
			RecurrenceConfig{Hour: util.Ptr(9)},
			time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		{"weekly at its own slot", RecurrenceWeekly,
			RecurrenceConfig{DayOfWeek: util.Ptr(1), Hour: util.Ptr(9)},
			time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		{"monthly at its own slot", RecurrenceMonthly,
			RecurrenceConfig{DayOfMonth: util.Ptr(1), Hour: util.Ptr(9)},
			time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		{"hourly on the boundary", RecurrenceHourly,
			RecurrenceConfig{},
			time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := NextRun(tc.rt, tc.cfg, "UTC", tc.now)
			require.NoError(t, err)
			require.NotNil(t, next)
			assert.True(t, next.After(tc.now),
				"next run %s must be strictly after %s", next, tc.now)
		})
	}
}

func TestParseRecurrenceConfig(t *testing.T) {
	cfg, err := ParseRecurrenceConfig(`{"hour": 14, "minute": 30, "day_of_week": 5}`)
	require.NoError(t, err)
	require.NotNil(t, cfg.Hour)
	assert.Equal(t, 14, *cfg.Hour)
	require.NotNil(t, cfg.Minute)
	assert.Equal(t, 30, *cfg.Minute)
	require.NotNil(t, cfg.DayOfWeek)
	assert.Equal(t, 5, *cfg.DayOfWeek)
}

func TestParseRecurrenceConfig_Empty(t *testing.T) {
	cfg, err := ParseRecurrenceConfig("")
	require.NoError(t, err)
	assert.Nil(t, cfg.Hour)
}

func TestParseRecurrenceConfig_Corrupt(t *testing.T) {
	_, err := ParseRecurrenceConfig("{not json")
	assert.Error(t, err)
}
